package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/xwindow"

	"anydrag/internal/access"
	"anydrag/internal/geom"
)

// windowHandle is the live-handle implementation over a managed client
// window. Satisfies access.Handle.
type windowHandle struct {
	conn *Connection
	win  xproto.Window
}

var _ access.Handle = (*windowHandle)(nil)

func (h *windowHandle) Position() (geom.Point, error) {
	rect, ok := h.conn.windowRect(h.win)
	if !ok {
		return geom.Point{}, access.ErrGone
	}
	return rect.Origin(), nil
}

// SetPosition moves the window without resizing it. The EWMH request is
// preferred for WM compatibility; direct configuration is the fallback.
func (h *windowHandle) SetPosition(p geom.Point) error {
	rect, ok := h.conn.windowRect(h.win)
	if !ok {
		return access.ErrGone
	}

	err := ewmh.MoveresizeWindow(h.conn.XUtil, h.win, p.X, p.Y, rect.Width, rect.Height)
	if err != nil {
		xwindow.New(h.conn.XUtil, h.win).Move(p.X, p.Y)
	}
	return nil
}

func (h *windowHandle) Bounds() (geom.Rect, error) {
	rect, ok := h.conn.windowRect(h.win)
	if !ok {
		return geom.Rect{}, access.ErrGone
	}
	return rect, nil
}

// Settable reports whether the window accepts position writes. Windows
// that bypass the window manager (override-redirect popups) do not.
func (h *windowHandle) Settable() bool {
	attrs, err := xproto.GetWindowAttributes(h.conn.XUtil.Conn(), h.win).Reply()
	if err != nil {
		return false
	}
	return !attrs.OverrideRedirect
}

func (h *windowHandle) Minimized() (bool, error) {
	states, err := ewmh.WmStateGet(h.conn.XUtil, h.win)
	if err != nil {
		return false, fmt.Errorf("window state query failed: %w", err)
	}
	for _, state := range states {
		if state == "_NET_WM_STATE_HIDDEN" {
			return true, nil
		}
	}
	return false, nil
}

// Unminimize deiconifies the window. Mapping an iconified window is the
// ICCCM way to restore it.
func (h *windowHandle) Unminimize() error {
	return xproto.MapWindowChecked(h.conn.XUtil.Conn(), h.win).Check()
}

func (h *windowHandle) Focus() error {
	return h.conn.FocusWindow(h.win)
}

func (h *windowHandle) Raise() error {
	return xproto.ConfigureWindowChecked(
		h.conn.XUtil.Conn(),
		h.win,
		xproto.ConfigWindowStackMode,
		[]uint32{xproto.StackModeAbove},
	).Check()
}

// ProcessWindows enumerates the managed windows owned by pid, frontmost
// first. Implements access.Provider.
func (c *Connection) ProcessWindows(pid int) ([]access.Handle, error) {
	clients, err := c.stackedClients()
	if err != nil {
		return nil, fmt.Errorf("client list query failed: %w", err)
	}

	var handles []access.Handle
	for _, windowID := range clients {
		p, err := ewmh.WmPidGet(c.XUtil, windowID)
		if err != nil || int(p) != pid {
			continue
		}
		handles = append(handles, &windowHandle{conn: c, win: windowID})
	}
	return handles, nil
}

// ElementAtPoint descends the window tree under the pointer until it
// reaches a managed client window, bounded to maxDepth levels. This is
// the slow-path point query the hit tester falls back to when no
// inventory candidate resolves.
func (c *Connection) ElementAtPoint(p geom.Point, maxDepth int) (access.Handle, error) {
	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return nil, fmt.Errorf("client list query failed: %w", err)
	}
	managed := make(map[xproto.Window]struct{}, len(clients))
	for _, w := range clients {
		managed[w] = struct{}{}
	}

	cur := c.Root
	for depth := 0; depth < maxDepth; depth++ {
		if _, ok := managed[cur]; ok {
			return &windowHandle{conn: c, win: cur}, nil
		}

		reply, err := xproto.TranslateCoordinates(
			c.XUtil.Conn(),
			c.Root,
			cur,
			int16(p.X), int16(p.Y),
		).Reply()
		if err != nil || reply.Child == 0 {
			break
		}
		cur = reply.Child
	}

	return nil, access.ErrGone
}

// ActivateProcess raises and focuses the frontmost window owned by pid.
// Process-keyed activation is what foregrounds an application reliably
// when its windows span displays.
func (c *Connection) ActivateProcess(pid int) error {
	handles, err := c.ProcessWindows(pid)
	if err != nil {
		return err
	}
	if len(handles) == 0 {
		return fmt.Errorf("no windows for pid %d: %w", pid, access.ErrGone)
	}
	return handles[0].Focus()
}
