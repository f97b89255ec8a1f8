// Package inventory maintains a periodically rebuilt snapshot of all
// visible top-level windows. The snapshot is read-only: moving a window
// does not update its recorded bounds until the next refresh, so staleness
// is bounded by the refresh interval.
package inventory

import (
	"strings"

	"anydrag/internal/geom"
)

// WindowInfo is one window's record in a snapshot.
type WindowInfo struct {
	// ID is the platform window identifier. It is only stable within a
	// snapshot; identifiers may be reused after a refresh.
	ID uint32
	// Bounds is the window geometry in window space.
	Bounds geom.Rect
	// OwnerPID and OwnerName identify the owning application.
	OwnerPID  int
	OwnerName string
	// Title is the window's display name, possibly empty.
	Title string
	// Layer is the stacking layer. Normal application windows use 0;
	// anything positive is system UI (docks, notifications) and is
	// filtered out at build time. Among layer-0 windows the snapshot
	// order carries front-to-back stacking.
	Layer int
	// OnScreen reports whether the window is currently visible.
	OnScreen bool
}

// Lister is the platform window-list query. Implementations return raw,
// unfiltered records in platform-reported order; OwnerName may be left
// empty for the cache to resolve from OwnerPID.
type Lister interface {
	ListWindows() ([]WindowInfo, error)
}

// Options controls which raw records make it into a snapshot.
type Options struct {
	// MinWidth and MinHeight exclude sub-window UI chrome (tooltips,
	// menu shadows) that some platforms report as windows.
	MinWidth  int
	MinHeight int
	// ExcludedOwners lists owning-process names that are never drag
	// targets (window manager chrome, compositors, screen lockers).
	ExcludedOwners []string
}

// DefaultOptions matches the thresholds the daemon ships with.
func DefaultOptions() Options {
	return Options{
		MinWidth:  50,
		MinHeight: 30,
		ExcludedOwners: []string{
			"plasmashell", "polybar", "xfce4-panel", "gnome-shell",
			"picom", "dunst", "i3bar",
		},
	}
}

// Filter applies the snapshot invariants to raw records, preserving order.
func Filter(raw []WindowInfo, opts Options) []WindowInfo {
	out := make([]WindowInfo, 0, len(raw))
	for _, w := range raw {
		if !w.OnScreen {
			continue
		}
		if w.Layer > 0 {
			continue
		}
		if w.Bounds.Width < opts.MinWidth || w.Bounds.Height < opts.MinHeight {
			continue
		}
		if excludedOwner(w.OwnerName, opts.ExcludedOwners) {
			continue
		}
		out = append(out, w)
	}
	return out
}

func excludedOwner(name string, excluded []string) bool {
	if name == "" {
		return false
	}
	for _, e := range excluded {
		if strings.EqualFold(name, e) {
			return true
		}
	}
	return false
}
