package inventory

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"anydrag/internal/geom"
)

func window(id uint32, w, h, layer int) WindowInfo {
	return WindowInfo{
		ID:       id,
		Bounds:   geom.Rect{X: 0, Y: 0, Width: w, Height: h},
		OwnerPID: int(id),
		Layer:    layer,
		OnScreen: true,
	}
}

func TestFilter_ExcludesSubMinimumSizes(t *testing.T) {
	opts := DefaultOptions()
	raw := []WindowInfo{
		window(1, 49, 100, 0), // too narrow
		window(2, 100, 29, 0), // too short
		window(3, 50, 30, 0),  // exactly at the thresholds
		window(4, 800, 600, 0),
	}

	got := Filter(raw, opts)
	if len(got) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(got))
	}
	if got[0].ID != 3 || got[1].ID != 4 {
		t.Errorf("expected windows 3 and 4, got %d and %d", got[0].ID, got[1].ID)
	}
}

func TestFilter_ExcludesPositiveLayers(t *testing.T) {
	raw := []WindowInfo{
		window(1, 800, 600, 1),
		window(2, 800, 600, 25),
		window(3, 800, 600, 0),
	}

	got := Filter(raw, DefaultOptions())
	if len(got) != 1 || got[0].ID != 3 {
		t.Fatalf("expected only window 3, got %v", got)
	}
}

func TestFilter_ExcludesSystemOwnersAndOffScreen(t *testing.T) {
	hidden := window(2, 800, 600, 0)
	hidden.OnScreen = false

	panel := window(3, 1920, 40, 0)
	panel.OwnerName = "Polybar" // case-insensitive match

	app := window(1, 800, 600, 0)
	app.OwnerName = "firefox"

	got := Filter([]WindowInfo{hidden, panel, app}, DefaultOptions())
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("expected only the firefox window, got %v", got)
	}
}

func TestFilter_PreservesPlatformOrder(t *testing.T) {
	raw := []WindowInfo{
		window(9, 800, 600, 0),
		window(4, 800, 600, 0),
		window(7, 800, 600, 0),
	}

	got := Filter(raw, DefaultOptions())
	for i, want := range []uint32{9, 4, 7} {
		if got[i].ID != want {
			t.Fatalf("order not preserved: got %v", got)
		}
	}
}

type fakeLister struct {
	windows []WindowInfo
	err     error
	calls   int
}

func (f *fakeLister) ListWindows() ([]WindowInfo, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]WindowInfo, len(f.windows))
	copy(out, f.windows)
	return out, nil
}

func newTestCache(lister Lister, interval time.Duration) (*Cache, *time.Time) {
	c := NewCache(lister, DefaultOptions(), interval, zerolog.Nop())
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }
	c.resolveOwner = func(pid int) string { return "app" }
	return c, &now
}

func TestCache_ReusesSnapshotWithinInterval(t *testing.T) {
	lister := &fakeLister{windows: []WindowInfo{window(1, 800, 600, 0)}}
	c, now := newTestCache(lister, 100*time.Millisecond)

	first := c.Snapshot()
	if len(first) != 1 {
		t.Fatalf("expected 1 window, got %d", len(first))
	}

	// The real window set changes, but within the interval the cached
	// snapshot is served as-is.
	lister.windows = append(lister.windows, window(2, 800, 600, 0))
	*now = now.Add(99 * time.Millisecond)
	if got := c.Snapshot(); len(got) != 1 {
		t.Errorf("expected stale snapshot of 1 window, got %d", len(got))
	}
	if lister.calls != 1 {
		t.Errorf("expected 1 platform query, got %d", lister.calls)
	}

	*now = now.Add(1 * time.Millisecond)
	if got := c.Snapshot(); len(got) != 2 {
		t.Errorf("expected refreshed snapshot of 2 windows, got %d", len(got))
	}
	if lister.calls != 2 {
		t.Errorf("expected 2 platform queries, got %d", lister.calls)
	}
}

func TestCache_QueryFailureYieldsEmptySnapshot(t *testing.T) {
	lister := &fakeLister{err: errors.New("display gone")}
	c, now := newTestCache(lister, 100*time.Millisecond)

	if got := c.Snapshot(); len(got) != 0 {
		t.Fatalf("expected empty snapshot, got %d windows", len(got))
	}

	// Recovers on the next scheduled refresh.
	lister.err = nil
	lister.windows = []WindowInfo{window(1, 800, 600, 0)}
	*now = now.Add(100 * time.Millisecond)
	if got := c.Snapshot(); len(got) != 1 {
		t.Errorf("expected recovery after failed refresh, got %d windows", len(got))
	}
}

func TestCache_InvalidateForcesRefresh(t *testing.T) {
	lister := &fakeLister{windows: []WindowInfo{window(1, 800, 600, 0)}}
	c, _ := newTestCache(lister, 100*time.Millisecond)

	c.Snapshot()
	c.Invalidate()
	c.Snapshot()
	if lister.calls != 2 {
		t.Errorf("expected invalidate to force a query, got %d calls", lister.calls)
	}
}

func TestCache_ReconfigureAppliesNewOptionsImmediately(t *testing.T) {
	lister := &fakeLister{windows: []WindowInfo{window(1, 60, 40, 0)}}
	c, _ := newTestCache(lister, 100*time.Millisecond)

	if got := c.Snapshot(); len(got) != 1 {
		t.Fatalf("expected 1 window before reconfigure, got %d", len(got))
	}

	opts := DefaultOptions()
	opts.MinWidth = 100
	c.Reconfigure(opts, 100*time.Millisecond)

	// Stale snapshot is discarded and the new threshold applies.
	if got := c.Snapshot(); len(got) != 0 {
		t.Errorf("expected window excluded by new threshold, got %d", len(got))
	}
	if lister.calls != 2 {
		t.Errorf("expected reconfigure to force a query, got %d calls", lister.calls)
	}
}

func TestCache_ResolvesOwnerNamesOncePerPID(t *testing.T) {
	a := window(1, 800, 600, 0)
	b := window(2, 800, 600, 0)
	b.OwnerPID = 1 // same owner as a

	lister := &fakeLister{windows: []WindowInfo{a, b}}
	c, _ := newTestCache(lister, 100*time.Millisecond)

	resolved := 0
	c.resolveOwner = func(pid int) string {
		resolved++
		return "firefox"
	}

	got := c.Snapshot()
	if resolved != 1 {
		t.Errorf("expected 1 owner resolution for shared pid, got %d", resolved)
	}
	for _, w := range got {
		if w.OwnerName != "firefox" {
			t.Errorf("window %d missing resolved owner name", w.ID)
		}
	}
}
