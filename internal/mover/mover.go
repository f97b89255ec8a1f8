// Package mover applies position and foregrounding mutations to live
// window handles. Every operation here is best-effort: the platform can
// reject any write at any time (window closed mid-drag, process exited),
// and the drag engine degrades to "no visible movement" rather than
// failing.
package mover

import (
	"time"

	"github.com/rs/zerolog"

	"anydrag/internal/access"
	"anydrag/internal/geom"
)

// DefaultRaiseDelay is how long after an activation the raise is repeated.
// Raise calls racing with application activation get re-ordered by the
// window server; a second raise shortly after settles the race.
const DefaultRaiseDelay = 40 * time.Millisecond

// Scheduler defers a task by a fixed delay. The production implementation
// is time.AfterFunc; tests substitute a synchronous one.
type Scheduler interface {
	AfterFunc(d time.Duration, task func())
}

// SchedulerFunc adapts a function to the Scheduler interface.
type SchedulerFunc func(d time.Duration, task func())

func (f SchedulerFunc) AfterFunc(d time.Duration, task func()) { f(d, task) }

// TimerScheduler schedules through the runtime timer heap.
func TimerScheduler() Scheduler {
	return SchedulerFunc(func(d time.Duration, task func()) {
		time.AfterFunc(d, task)
	})
}

// Mover mutates windows through the access layer.
type Mover struct {
	provider   access.Provider
	sched      Scheduler
	log        zerolog.Logger
	RaiseDelay time.Duration
}

// New creates a Mover using the given provider and scheduler.
func New(provider access.Provider, sched Scheduler, log zerolog.Logger) *Mover {
	return &Mover{
		provider:   provider,
		sched:      sched,
		log:        log,
		RaiseDelay: DefaultRaiseDelay,
	}
}

// Position reads the window's current top-left corner in window space.
func (m *Mover) Position(h access.Handle) (geom.Point, error) {
	return h.Position()
}

// SetPosition moves the window. A rejected write is logged and swallowed;
// the drag stops producing visible movement until the next successful
// hit test re-acquires a window.
func (m *Mover) SetPosition(h access.Handle, p geom.Point) {
	if err := h.SetPosition(p); err != nil {
		m.log.Debug().Err(err).Int("x", p.X).Int("y", p.Y).Msg("position write rejected")
	}
}

// RaiseAndFocus brings the window and its owning application to the
// foreground. Sub-steps are independently best-effort: a failed one is
// logged and the remaining steps still run. The final raise is re-issued
// after RaiseDelay, fire-and-forget, to counteract window-server
// re-ordering when raise races with application activation.
func (m *Mover) RaiseAndFocus(h access.Handle, ownerPID int) {
	if minimized, err := h.Minimized(); err == nil && minimized {
		if err := h.Unminimize(); err != nil {
			m.log.Debug().Err(err).Msg("unminimize failed")
		}
	}

	if err := h.Focus(); err != nil {
		m.log.Debug().Err(err).Msg("focus failed")
	}
	if err := h.Raise(); err != nil {
		m.log.Debug().Err(err).Msg("raise failed")
	}

	// Process-keyed activation: activating only through the window
	// handle is unreliable when the target sits on another display.
	if ownerPID > 0 {
		if err := m.provider.ActivateProcess(ownerPID); err != nil {
			m.log.Debug().Err(err).Int("pid", ownerPID).Msg("process activation failed")
		}
	}

	m.sched.AfterFunc(m.RaiseDelay, func() {
		if err := h.Raise(); err != nil {
			m.log.Debug().Err(err).Msg("delayed re-raise failed")
		}
	})
}
