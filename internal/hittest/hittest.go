// Package hittest resolves the window under a pointer-space point to a
// live, mutable handle. It is a hybrid: the window inventory gives fast,
// accurate stacking order among overlapping windows but only read-only
// records, while the platform's element tree gives mutable handles but no
// reliable global stacking. The inventory drives candidate ordering and
// the element tree is queried only to resolve handles or as a last-resort
// fallback.
package hittest

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"anydrag/internal/access"
	"anydrag/internal/geom"
	"anydrag/internal/inventory"
)

const (
	// DefaultTolerance is the maximum per-edge mismatch allowed when
	// matching an inventory record against a handle's geometry. The two
	// layers expose the same window under different identifiers, so
	// bounds are the only join key; the slack absorbs frame decoration
	// rounding. Tunable, not correctness-critical.
	DefaultTolerance = 5

	// DefaultMaxAncestorDepth bounds the ancestor walk in the fallback
	// point query so a degenerate element tree cannot stall an event.
	DefaultMaxAncestorDepth = 8
)

// Snapshotter supplies the current window inventory.
type Snapshotter interface {
	Snapshot() []inventory.WindowInfo
}

// Displays supplies the primary display height used for the pointer-space
// to window-space conversion.
type Displays interface {
	PrimaryHeight() int
}

// ResolvedWindow pairs an inventory record with its live handle.
type ResolvedWindow struct {
	Info   inventory.WindowInfo
	Handle access.Handle
}

// Tester finds the topmost drag-eligible window under a point.
type Tester struct {
	snapshots Snapshotter
	provider  access.Provider
	displays  Displays
	log       zerolog.Logger

	Tolerance        int
	MaxAncestorDepth int
}

// New creates a hit tester with the default tolerance and walk bound.
func New(snapshots Snapshotter, provider access.Provider, displays Displays, log zerolog.Logger) *Tester {
	return &Tester{
		snapshots:        snapshots,
		provider:         provider,
		displays:         displays,
		log:              log,
		Tolerance:        DefaultTolerance,
		MaxAncestorDepth: DefaultMaxAncestorDepth,
	}
}

// WindowUnderPoint returns the topmost window containing the pointer-space
// point p, resolved to a mutable handle. The second return value is false
// when no eligible window resolves; that is a normal negative result, not
// an error, and the caller must not start a drag.
func (t *Tester) WindowUnderPoint(p geom.Point) (ResolvedWindow, bool) {
	start := time.Now()
	wp := geom.ToWindowSpace(p, t.displays.PrimaryHeight())

	candidates := t.candidatesAt(wp)
	for _, c := range candidates {
		handle, ok := t.resolveCandidate(c)
		if !ok {
			continue
		}
		t.log.Debug().
			Uint32("window", c.ID).
			Str("owner", c.OwnerName).
			Dur("took", time.Since(start)).
			Msg("hit test resolved via inventory")
		return ResolvedWindow{Info: c, Handle: handle}, true
	}

	// Slow path: direct point query against the element tree. No global
	// stacking information, but it can see windows the last inventory
	// refresh missed.
	if resolved, ok := t.fallbackAtPoint(wp); ok {
		t.log.Debug().Dur("took", time.Since(start)).Msg("hit test resolved via point query")
		return resolved, true
	}

	return ResolvedWindow{}, false
}

// candidatesAt returns the inventory entries containing wp, frontmost
// first: ordered by layer ascending with ties broken by snapshot order.
func (t *Tester) candidatesAt(wp geom.Point) []inventory.WindowInfo {
	var candidates []inventory.WindowInfo
	for _, w := range t.snapshots.Snapshot() {
		if w.Bounds.Contains(wp) {
			candidates = append(candidates, w)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Layer < candidates[j].Layer
	})
	return candidates
}

// resolveCandidate joins an inventory record to a live handle by
// enumerating the owner process's windows and matching bounds within the
// tolerance. A handle only counts if its position is settable.
func (t *Tester) resolveCandidate(c inventory.WindowInfo) (access.Handle, bool) {
	handles, err := t.provider.ProcessWindows(c.OwnerPID)
	if err != nil {
		t.log.Debug().Err(err).Int("pid", c.OwnerPID).Msg("process window enumeration failed")
		return nil, false
	}

	for _, h := range handles {
		bounds, err := h.Bounds()
		if err != nil {
			continue
		}
		if !boundsMatch(c.Bounds, bounds, t.Tolerance) {
			continue
		}
		if !h.Settable() {
			continue
		}
		return h, true
	}
	return nil, false
}

func (t *Tester) fallbackAtPoint(wp geom.Point) (ResolvedWindow, bool) {
	handle, err := t.provider.ElementAtPoint(wp, t.MaxAncestorDepth)
	if err != nil {
		return ResolvedWindow{}, false
	}
	if !handle.Settable() {
		return ResolvedWindow{}, false
	}

	info := inventory.WindowInfo{OnScreen: true}
	if bounds, err := handle.Bounds(); err == nil {
		info.Bounds = bounds
	}
	return ResolvedWindow{Info: info, Handle: handle}, true
}

// boundsMatch reports whether each edge of a and b differs by at most tol.
func boundsMatch(a, b geom.Rect, tol int) bool {
	return absDiff(a.X, b.X) <= tol &&
		absDiff(a.Y, b.Y) <= tol &&
		absDiff(a.X+a.Width, b.X+b.Width) <= tol &&
		absDiff(a.Y+a.Height, b.Y+b.Height) <= tol
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
