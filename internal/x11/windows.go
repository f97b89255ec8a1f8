package x11

import (
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"

	"anydrag/internal/geom"
	"anydrag/internal/inventory"
)

// Stacking layers derived from _NET_WM_WINDOW_TYPE. Normal application
// windows sit at 0; everything positive is system UI that the inventory
// filters out.
const (
	layerNormal       = 0
	layerDock         = 20
	layerNotification = 22
	layerDesktop      = 24
)

// ListWindows returns raw records for every managed top-level window,
// front-to-back. Implements the inventory's platform query. Owner names
// are left empty for the cache to resolve from the pid.
func (c *Connection) ListWindows() ([]inventory.WindowInfo, error) {
	clients, err := c.stackedClients()
	if err != nil {
		return nil, err
	}

	windows := make([]inventory.WindowInfo, 0, len(clients))
	for _, windowID := range clients {
		rect, ok := c.windowRect(windowID)
		if !ok {
			continue
		}

		pid := 0
		if p, err := ewmh.WmPidGet(c.XUtil, windowID); err == nil {
			pid = int(p)
		}

		windows = append(windows, inventory.WindowInfo{
			ID:       uint32(windowID),
			Bounds:   rect,
			OwnerPID: pid,
			Title:    c.windowTitle(windowID),
			Layer:    c.windowLayer(windowID),
			OnScreen: !c.isHidden(windowID),
		})
	}

	return windows, nil
}

// stackedClients returns managed clients front-to-back. The stacking list
// is bottom-to-top per the EWMH spec, so it is reversed; window managers
// that don't publish it fall back to the unordered client list.
func (c *Connection) stackedClients() ([]xproto.Window, error) {
	stacking, err := ewmh.ClientListStackingGet(c.XUtil)
	if err == nil && len(stacking) > 0 {
		reversed := make([]xproto.Window, len(stacking))
		for i, w := range stacking {
			reversed[len(stacking)-1-i] = w
		}
		return reversed, nil
	}

	return ewmh.ClientListGet(c.XUtil)
}

// windowLayer maps _NET_WM_WINDOW_TYPE onto the inventory's stacking
// layer scheme.
func (c *Connection) windowLayer(windowID xproto.Window) int {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, windowID)
	if err != nil || len(types) == 0 {
		// No type set: assume a normal window.
		return layerNormal
	}

	for _, t := range types {
		switch t {
		case "_NET_WM_WINDOW_TYPE_NORMAL", "_NET_WM_WINDOW_TYPE_DIALOG", "_NET_WM_WINDOW_TYPE_UTILITY":
			return layerNormal
		case "_NET_WM_WINDOW_TYPE_DOCK", "_NET_WM_WINDOW_TYPE_TOOLBAR", "_NET_WM_WINDOW_TYPE_MENU":
			return layerDock
		case "_NET_WM_WINDOW_TYPE_NOTIFICATION", "_NET_WM_WINDOW_TYPE_SPLASH", "_NET_WM_WINDOW_TYPE_TOOLTIP":
			return layerNotification
		case "_NET_WM_WINDOW_TYPE_DESKTOP":
			return layerDesktop
		}
	}

	return layerNormal
}

func (c *Connection) isHidden(windowID xproto.Window) bool {
	states, err := ewmh.WmStateGet(c.XUtil, windowID)
	if err != nil {
		return false
	}
	for _, state := range states {
		if state == "_NET_WM_STATE_HIDDEN" {
			return true
		}
	}
	return false
}

func (c *Connection) windowRect(windowID xproto.Window) (geom.Rect, bool) {
	connRaw := c.XUtil.Conn()

	geo, err := xproto.GetGeometry(connRaw, xproto.Drawable(windowID)).Reply()
	if err != nil {
		return geom.Rect{}, false
	}

	translate, err := xproto.TranslateCoordinates(
		connRaw,
		windowID,
		c.Root,
		0, 0,
	).Reply()
	if err != nil {
		return geom.Rect{}, false
	}

	return geom.Rect{
		X:      int(translate.DstX),
		Y:      int(translate.DstY),
		Width:  int(geo.Width),
		Height: int(geo.Height),
	}, true
}

func (c *Connection) windowTitle(windowID xproto.Window) string {
	title, err := ewmh.WmNameGet(c.XUtil, windowID)
	if err == nil {
		title = strings.TrimSpace(title)
		if title != "" {
			return title
		}
	}

	title, err = icccm.WmNameGet(c.XUtil, windowID)
	if err == nil {
		title = strings.TrimSpace(title)
		if title != "" {
			return title
		}
	}

	return ""
}

// FocusWindow activates and raises a window using _NET_ACTIVE_WINDOW.
// Sends a client message to the root window per EWMH spec.
func (c *Connection) FocusWindow(windowID xproto.Window) error {
	atomReply, err := xproto.InternAtom(c.XUtil.Conn(), false,
		uint16(len("_NET_ACTIVE_WINDOW")), "_NET_ACTIVE_WINDOW").Reply()
	if err != nil {
		return err
	}

	const sourceIndication = 2 // pager/direct action
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: windowID,
		Type:   atomReply.Atom,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{sourceIndication, 0, 0, 0, 0}),
	}

	return xproto.SendEventChecked(
		c.XUtil.Conn(),
		false,
		c.Root,
		xproto.EventMaskSubstructureRedirect|xproto.EventMaskSubstructureNotify,
		string(ev.Bytes()),
	).Check()
}
