package x11

import (
	"fmt"
	"strings"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xwindow"
	"github.com/rs/zerolog"

	"anydrag/internal/geom"
)

// Event is one raw input observation: the pointer location (pointer
// space) and whether the drag modifier was held at that instant.
type Event struct {
	Pointer      geom.Point
	ModifierHeld bool
}

// Handler consumes input events. Called on the X event goroutine.
type Handler func(Event)

// InputMonitor watches global pointer motion and the configured modifier
// key. Root-window motion selection only sees the pointer over windows
// that don't select motion themselves, so while the modifier is held the
// pointer is actively grabbed; the grab routes every MotionNotify here no
// matter which client window is underneath. Subscribe and Unsubscribe
// arrive on IPC goroutines while events arrive on the X event goroutine,
// so all mutable state is mutex-protected.
type InputMonitor struct {
	log     zerolog.Logger
	modMask uint16
	keysyms []string

	mu       sync.Mutex
	handler  Handler
	attached bool
	grabbed  bool

	attach func() error
	detach func()
	grab   func() error
	ungrab func()
	height func() int
}

// NewInputMonitor creates a monitor for the named modifier ("alt",
// "super", "ctrl" or "shift").
func NewInputMonitor(conn *Connection, modifier string, log zerolog.Logger) (*InputMonitor, error) {
	mask, keysyms, err := modifierSpec(modifier)
	if err != nil {
		return nil, err
	}

	m := &InputMonitor{
		log:     log,
		modMask: mask,
		keysyms: keysyms,
		height:  conn.PrimaryHeight,
	}

	m.attach = func() error {
		root := xwindow.New(conn.XUtil, conn.Root)
		if err := root.Listen(xproto.EventMaskPointerMotion); err != nil {
			return fmt.Errorf("failed to select pointer motion on root: %w", err)
		}
		xevent.MotionNotifyFun(m.onMotion).Connect(conn.XUtil, conn.Root)

		for _, keysym := range m.keysyms {
			// The passive grab claims every press of the bare modifier
			// while monitoring is on; other clients' shortcuts bound to
			// the key alone will not fire until monitoring is disabled.
			// There is no other way to observe a press that happens
			// without pointer motion.
			if err := keybind.KeyPressFun(m.onKeyPress).Connect(conn.XUtil, conn.Root, keysym, true); err != nil {
				m.log.Warn().Err(err).Str("key", keysym).Msg("modifier grab failed")
				continue
			}
			// The active grab routes the matching release here without a
			// second grab.
			if err := keybind.KeyReleaseFun(m.onKeyRelease).Connect(conn.XUtil, conn.Root, keysym, false); err != nil {
				m.log.Warn().Err(err).Str("key", keysym).Msg("modifier release binding failed")
			}
		}
		return nil
	}
	m.detach = func() {
		keybind.Detach(conn.XUtil, conn.Root)
		xevent.Detach(conn.XUtil, conn.Root)
	}
	m.grab = func() error {
		reply, err := xproto.GrabPointer(
			conn.XUtil.Conn(),
			false,
			conn.Root,
			uint16(xproto.EventMaskPointerMotion),
			xproto.GrabModeAsync, xproto.GrabModeAsync,
			xproto.WindowNone, xproto.CursorNone,
			xproto.TimeCurrentTime,
		).Reply()
		if err != nil {
			return err
		}
		if reply.Status != xproto.GrabStatusSuccess {
			return fmt.Errorf("pointer grab refused (status %d)", reply.Status)
		}
		return nil
	}
	m.ungrab = func() {
		xproto.UngrabPointer(conn.XUtil.Conn(), xproto.TimeCurrentTime)
	}

	return m, nil
}

func modifierSpec(name string) (uint16, []string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "alt", "mod1":
		return xproto.ModMask1, []string{"Alt_L", "Alt_R"}, nil
	case "super", "mod4", "win", "cmd":
		return xproto.ModMask4, []string{"Super_L", "Super_R"}, nil
	case "ctrl", "control":
		return xproto.ModMaskControl, []string{"Control_L", "Control_R"}, nil
	case "shift":
		return xproto.ModMaskShift, []string{"Shift_L", "Shift_R"}, nil
	default:
		return 0, nil, fmt.Errorf("unknown modifier %q (want alt, super, ctrl or shift)", name)
	}
}

// Subscribe starts delivering events to h. Idempotent while attached.
func (m *InputMonitor) Subscribe(h Handler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.attached {
		return nil
	}

	// Events can fire on the X goroutine as soon as attach connects the
	// callbacks, so the handler must already be in place.
	m.handler = h
	if err := m.attach(); err != nil {
		m.handler = nil
		return err
	}

	m.attached = true
	m.log.Debug().Str("mask", fmt.Sprintf("%#x", m.modMask)).Msg("input monitoring attached")
	return nil
}

// Unsubscribe stops event delivery, drops any in-progress pointer grab
// and releases the modifier grabs. Idempotent while detached.
func (m *InputMonitor) Unsubscribe() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.attached {
		return
	}
	m.detach()
	m.releaseGrabLocked()
	m.attached = false
	m.handler = nil
	m.log.Debug().Msg("input monitoring detached")
}

func (m *InputMonitor) onMotion(xu *xgbutil.XUtil, ev xevent.MotionNotifyEvent) {
	m.emit(
		geom.Point{X: int(ev.RootX), Y: int(ev.RootY)},
		ev.State&m.modMask != 0,
	)
}

func (m *InputMonitor) onKeyPress(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
	m.grabPointerWhileHeld()
	m.emit(geom.Point{X: int(ev.RootX), Y: int(ev.RootY)}, true)
}

func (m *InputMonitor) onKeyRelease(xu *xgbutil.XUtil, ev xevent.KeyReleaseEvent) {
	m.mu.Lock()
	m.releaseGrabLocked()
	m.mu.Unlock()
	m.emit(geom.Point{X: int(ev.RootX), Y: int(ev.RootY)}, false)
}

// grabPointerWhileHeld takes the pointer grab on the first press of the
// modifier. Key auto-repeat delivers further presses while held; those
// find the grab already in place.
func (m *InputMonitor) grabPointerWhileHeld() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.attached || m.grabbed {
		return
	}
	if err := m.grab(); err != nil {
		// Motion over clients that select motion themselves will not be
		// seen until the grab succeeds on a later press.
		m.log.Warn().Err(err).Msg("pointer grab failed")
		return
	}
	m.grabbed = true
}

func (m *InputMonitor) releaseGrabLocked() {
	if !m.grabbed {
		return
	}
	m.ungrab()
	m.grabbed = false
}

// emit converts the root-relative location (top-left origin) into pointer
// space and hands the event off.
func (m *InputMonitor) emit(raw geom.Point, held bool) {
	m.mu.Lock()
	h := m.handler
	m.mu.Unlock()
	if h == nil {
		return
	}
	h(Event{
		Pointer:      geom.ToPointerSpace(raw, m.height()),
		ModifierHeld: held,
	})
}
