// Package access abstracts live window handles: mutable references to
// on-screen windows, as opposed to the read-only records the inventory
// returns. The daemon core only ever talks to these interfaces; the X11
// implementation lives in internal/x11 and tests use fakes.
package access

import (
	"errors"

	"anydrag/internal/geom"
)

var (
	// ErrNotSettable indicates the window's position attribute cannot be
	// written (e.g. override-redirect or WM-managed geometry).
	ErrNotSettable = errors.New("window position is not settable")

	// ErrGone indicates the window or its owning process disappeared
	// between resolution and mutation.
	ErrGone = errors.New("window no longer exists")
)

// Handle is a resolved, mutable reference to a single window.
type Handle interface {
	// Position returns the window's top-left corner in window space.
	Position() (geom.Point, error)
	// SetPosition moves the window's top-left corner to p (window space).
	SetPosition(p geom.Point) error
	// Bounds returns the window's full geometry in window space.
	Bounds() (geom.Rect, error)
	// Settable reports whether the position attribute accepts writes.
	Settable() bool
	// Minimized reports whether the window is currently minimized.
	Minimized() (bool, error)
	// Unminimize restores a minimized window.
	Unminimize() error
	// Focus gives the window keyboard focus.
	Focus() error
	// Raise brings the window to the front of its stacking layer.
	Raise() error
}

// Provider resolves live handles out of the platform's window tree.
type Provider interface {
	// ProcessWindows enumerates the top-level windows owned by pid.
	ProcessWindows(pid int) ([]Handle, error)
	// ElementAtPoint returns the window-like element under p (window
	// space), walking up from the deepest element at that point for at
	// most maxDepth steps. Returns ErrGone when nothing window-like is
	// found within the walk bound.
	ElementAtPoint(p geom.Point, maxDepth int) (Handle, error)
	// ActivateProcess brings pid's application to the foreground. Keyed
	// by process id rather than a window handle because cross-display
	// activation through the handle alone is unreliable.
	ActivateProcess(pid int) error
}
