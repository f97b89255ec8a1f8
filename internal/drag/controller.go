// Package drag implements the modifier-drag state machine: it consumes
// raw modifier and pointer-motion events, decides when to start and stop
// moving a window, and applies rate-limited position updates through the
// window mutator.
package drag

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"anydrag/internal/access"
	"anydrag/internal/geom"
	"anydrag/internal/hittest"
)

// DefaultThrottle caps event processing at roughly 120 events per second.
// Pointer motion can arrive far faster than windows can usefully be moved.
const DefaultThrottle = 8 * time.Millisecond

// ErrPermissionDenied indicates the platform has not authorized window
// mutation; monitoring cannot start until it does.
var ErrPermissionDenied = errors.New("accessibility permission not granted")

// HitTester resolves the window under a pointer-space point.
type HitTester interface {
	WindowUnderPoint(p geom.Point) (hittest.ResolvedWindow, bool)
}

// Mover applies window mutations. Satisfied by *mover.Mover.
type Mover interface {
	Position(h access.Handle) (geom.Point, error)
	SetPosition(h access.Handle, p geom.Point)
	RaiseAndFocus(h access.Handle, ownerPID int)
}

// PermissionChecker queries and requests platform authorization.
type PermissionChecker interface {
	// Authorized reports whether window mutation is currently allowed.
	Authorized() bool
	// Request triggers the platform's consent flow, best-effort.
	Request()
}

// Controller runs the drag state machine. Two states: idle (no session)
// and dragging (session present). Events normally arrive on a single
// event-delivery goroutine, but start/stop and status queries come in
// over IPC, so all state is mutex-serialized.
type Controller struct {
	mu     sync.Mutex
	tester HitTester
	mover  Mover
	perms  PermissionChecker
	log    zerolog.Logger

	// Throttle is the minimum spacing between processed events. Events
	// arriving sooner after the last processed one are dropped before
	// dispatch and can never change state.
	Throttle time.Duration

	now           func() time.Time
	lastProcessed time.Time

	session     *Session
	status      Status
	subscribers []StatusFunc
}

// NewController wires the state machine to its collaborators.
func NewController(tester HitTester, mover Mover, perms PermissionChecker, log zerolog.Logger) *Controller {
	return &Controller{
		tester:   tester,
		mover:    mover,
		perms:    perms,
		log:      log,
		Throttle: DefaultThrottle,
		now:      time.Now,
	}
}

// Subscribe registers fn for status change notifications. fn runs outside
// the controller lock and may call back into the controller.
func (c *Controller) Subscribe(fn StatusFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

// Status returns the current observable state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Dragging reports whether a drag session is in progress.
func (c *Controller) Dragging() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil
}

// StartMonitoring enables event consumption. Idempotent. Fails with
// ErrPermissionDenied when the platform has not authorized mutation.
func (c *Controller) StartMonitoring() error {
	c.mu.Lock()
	if c.status.MonitoringEnabled {
		c.mu.Unlock()
		return nil
	}

	granted := c.perms.Authorized()
	next := Status{MonitoringEnabled: granted, AccessibilityGranted: granted}
	notify := c.setStatusLocked(next)
	c.mu.Unlock()
	runAll(notify)

	if !granted {
		return ErrPermissionDenied
	}
	c.log.Info().Msg("monitoring started")
	return nil
}

// StopMonitoring disables event consumption and synchronously clears any
// in-progress drag session so no stale handle is referenced afterwards.
// Idempotent.
func (c *Controller) StopMonitoring() {
	c.mu.Lock()
	wasEnabled := c.status.MonitoringEnabled
	c.session = nil
	notify := c.setStatusLocked(Status{
		MonitoringEnabled:    false,
		AccessibilityGranted: c.status.AccessibilityGranted,
	})
	c.mu.Unlock()
	runAll(notify)

	if wasEnabled {
		c.log.Info().Msg("monitoring stopped")
	}
}

// CheckPermission refreshes the authorization flag, requesting consent as
// a side effect when it is absent, and returns the refreshed value.
func (c *Controller) CheckPermission() bool {
	granted := c.perms.Authorized()
	if !granted {
		c.perms.Request()
	}

	c.mu.Lock()
	notify := c.setStatusLocked(Status{
		MonitoringEnabled:    c.status.MonitoringEnabled && granted,
		AccessibilityGranted: granted,
	})
	c.mu.Unlock()
	runAll(notify)

	return granted
}

// ModifierChanged feeds a modifier-key state change at the given pointer
// position (pointer space).
func (c *Controller) ModifierChanged(held bool, pointer geom.Point) {
	c.dispatch(pointer, held)
}

// PointerMoved feeds a pointer-motion event with the modifier state it
// carried (pointer space).
func (c *Controller) PointerMoved(pointer geom.Point, modifierHeld bool) {
	c.dispatch(pointer, modifierHeld)
}

// dispatch runs the state machine for one raw event. Both event classes
// reduce to the same transition table over (pointer, modifier held).
func (c *Controller) dispatch(pointer geom.Point, held bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.status.MonitoringEnabled {
		return
	}

	now := c.now()
	if !c.lastProcessed.IsZero() && now.Sub(c.lastProcessed) < c.Throttle {
		return
	}
	c.lastProcessed = now

	if c.session == nil {
		if held {
			c.acquireLocked(pointer)
		}
		return
	}

	if !held {
		c.log.Debug().Uint32("window", c.session.Target.ID).Msg("drag ended")
		c.session = nil
		return
	}

	c.mover.SetPosition(c.session.Handle, c.session.TargetPosition(pointer))
}

// acquireLocked attempts to arm a drag at the pointer. On a negative hit
// test the controller simply stays idle.
func (c *Controller) acquireLocked(pointer geom.Point) {
	resolved, ok := c.tester.WindowUnderPoint(pointer)
	if !ok {
		return
	}

	anchor, err := c.mover.Position(resolved.Handle)
	if err != nil {
		c.log.Debug().Err(err).Msg("anchor position read failed, not arming")
		return
	}

	c.session = &Session{
		Handle:        resolved.Handle,
		Target:        resolved.Info,
		AnchorPointer: pointer,
		AnchorWindow:  anchor,
	}
	c.log.Debug().
		Uint32("window", resolved.Info.ID).
		Str("owner", resolved.Info.OwnerName).
		Msg("drag started")

	c.mover.RaiseAndFocus(resolved.Handle, resolved.Info.OwnerPID)
}
