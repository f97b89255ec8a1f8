package hittest

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"anydrag/internal/access"
	"anydrag/internal/geom"
	"anydrag/internal/inventory"
)

type fakeHandle struct {
	bounds   geom.Rect
	settable bool
}

func (h *fakeHandle) Position() (geom.Point, error)  { return h.bounds.Origin(), nil }
func (h *fakeHandle) SetPosition(p geom.Point) error { h.bounds.X, h.bounds.Y = p.X, p.Y; return nil }
func (h *fakeHandle) Bounds() (geom.Rect, error)     { return h.bounds, nil }
func (h *fakeHandle) Settable() bool                 { return h.settable }
func (h *fakeHandle) Minimized() (bool, error)       { return false, nil }
func (h *fakeHandle) Unminimize() error              { return nil }
func (h *fakeHandle) Focus() error                   { return nil }
func (h *fakeHandle) Raise() error                   { return nil }

type fakeProvider struct {
	byPID    map[int][]access.Handle
	atPoint  access.Handle
	pointErr error
}

func (p *fakeProvider) ProcessWindows(pid int) ([]access.Handle, error) {
	handles, ok := p.byPID[pid]
	if !ok {
		return nil, errors.New("no such process")
	}
	return handles, nil
}

func (p *fakeProvider) ElementAtPoint(pt geom.Point, maxDepth int) (access.Handle, error) {
	if p.pointErr != nil {
		return nil, p.pointErr
	}
	if p.atPoint == nil {
		return nil, access.ErrGone
	}
	return p.atPoint, nil
}

func (p *fakeProvider) ActivateProcess(pid int) error { return nil }

type fixedSnapshot []inventory.WindowInfo

func (s fixedSnapshot) Snapshot() []inventory.WindowInfo { return s }

type fixedDisplays int

func (d fixedDisplays) PrimaryHeight() int { return int(d) }

const screenHeight = 1080

// at builds a window record plus a matching settable handle.
func at(id uint32, pid int, bounds geom.Rect, layer int) (inventory.WindowInfo, *fakeHandle) {
	info := inventory.WindowInfo{
		ID:       id,
		Bounds:   bounds,
		OwnerPID: pid,
		Layer:    layer,
		OnScreen: true,
	}
	return info, &fakeHandle{bounds: bounds, settable: true}
}

// pointerAt converts a window-space point into the pointer-space point
// that hits it, since WindowUnderPoint takes pointer-space input.
func pointerAt(wp geom.Point) geom.Point {
	return geom.ToPointerSpace(wp, screenHeight)
}

func TestWindowUnderPoint_ResolvesContainingWindow(t *testing.T) {
	info, handle := at(1, 100, geom.Rect{X: 100, Y: 100, Width: 400, Height: 300}, 0)
	provider := &fakeProvider{byPID: map[int][]access.Handle{100: {handle}}}
	tester := New(fixedSnapshot{info}, provider, fixedDisplays(screenHeight), zerolog.Nop())

	got, ok := tester.WindowUnderPoint(pointerAt(geom.Point{X: 200, Y: 200}))
	if !ok {
		t.Fatal("expected a hit")
	}
	if got.Info.ID != 1 || got.Handle != handle {
		t.Errorf("resolved wrong window: %+v", got.Info)
	}
}

func TestWindowUnderPoint_MissesOutsideBounds(t *testing.T) {
	info, handle := at(1, 100, geom.Rect{X: 100, Y: 100, Width: 400, Height: 300}, 0)
	provider := &fakeProvider{byPID: map[int][]access.Handle{100: {handle}}}
	tester := New(fixedSnapshot{info}, provider, fixedDisplays(screenHeight), zerolog.Nop())

	if _, ok := tester.WindowUnderPoint(pointerAt(geom.Point{X: 50, Y: 50})); ok {
		t.Error("expected no hit outside every window")
	}
}

func TestWindowUnderPoint_LowerLayerWins(t *testing.T) {
	overlap := geom.Rect{X: 100, Y: 100, Width: 400, Height: 300}
	back, backHandle := at(1, 100, overlap, 1)
	front, frontHandle := at(2, 200, overlap, 0)

	provider := &fakeProvider{byPID: map[int][]access.Handle{
		100: {backHandle},
		200: {frontHandle},
	}}
	// Higher layer listed first: ordering must come from the layer sort,
	// not from snapshot position.
	tester := New(fixedSnapshot{back, front}, provider, fixedDisplays(screenHeight), zerolog.Nop())

	got, ok := tester.WindowUnderPoint(pointerAt(geom.Point{X: 200, Y: 200}))
	if !ok {
		t.Fatal("expected a hit")
	}
	if got.Info.ID != 2 {
		t.Errorf("expected layer-0 window 2, got window %d", got.Info.ID)
	}
}

func TestWindowUnderPoint_TieBrokenBySnapshotOrder(t *testing.T) {
	overlap := geom.Rect{X: 100, Y: 100, Width: 400, Height: 300}
	first, firstHandle := at(1, 100, overlap, 0)
	second, secondHandle := at(2, 200, overlap, 0)

	provider := &fakeProvider{byPID: map[int][]access.Handle{
		100: {firstHandle},
		200: {secondHandle},
	}}
	tester := New(fixedSnapshot{first, second}, provider, fixedDisplays(screenHeight), zerolog.Nop())

	got, _ := tester.WindowUnderPoint(pointerAt(geom.Point{X: 200, Y: 200}))
	if got.Info.ID != 1 {
		t.Errorf("equal layers must keep snapshot order; got window %d", got.Info.ID)
	}
}

func TestWindowUnderPoint_SkipsUnresolvableCandidates(t *testing.T) {
	overlap := geom.Rect{X: 100, Y: 100, Width: 400, Height: 300}
	front, frontHandle := at(1, 100, overlap, 0)
	frontHandle.settable = false
	behind, behindHandle := at(2, 200, overlap, 0)

	provider := &fakeProvider{byPID: map[int][]access.Handle{
		100: {frontHandle},
		200: {behindHandle},
	}}
	tester := New(fixedSnapshot{front, behind}, provider, fixedDisplays(screenHeight), zerolog.Nop())

	got, ok := tester.WindowUnderPoint(pointerAt(geom.Point{X: 200, Y: 200}))
	if !ok {
		t.Fatal("expected the next candidate to resolve")
	}
	if got.Info.ID != 2 {
		t.Errorf("expected fall-through to window 2, got window %d", got.Info.ID)
	}
}

func TestWindowUnderPoint_BoundsToleranceJoinsLayers(t *testing.T) {
	info, _ := at(1, 100, geom.Rect{X: 100, Y: 100, Width: 400, Height: 300}, 0)
	// The live handle reports geometry shifted by the frame decoration.
	within := &fakeHandle{bounds: geom.Rect{X: 104, Y: 97, Width: 403, Height: 305}, settable: true}
	beyond := &fakeHandle{bounds: geom.Rect{X: 110, Y: 100, Width: 400, Height: 300}, settable: true}

	provider := &fakeProvider{byPID: map[int][]access.Handle{100: {beyond, within}}}
	tester := New(fixedSnapshot{info}, provider, fixedDisplays(screenHeight), zerolog.Nop())

	got, ok := tester.WindowUnderPoint(pointerAt(geom.Point{X: 200, Y: 200}))
	if !ok {
		t.Fatal("expected a hit")
	}
	if got.Handle != within {
		t.Error("expected the handle within tolerance, not the one 10 units off")
	}
}

func TestWindowUnderPoint_FallsBackToPointQuery(t *testing.T) {
	fallback := &fakeHandle{bounds: geom.Rect{X: 0, Y: 0, Width: 500, Height: 500}, settable: true}
	provider := &fakeProvider{byPID: map[int][]access.Handle{}, atPoint: fallback}
	tester := New(fixedSnapshot{}, provider, fixedDisplays(screenHeight), zerolog.Nop())

	got, ok := tester.WindowUnderPoint(pointerAt(geom.Point{X: 200, Y: 200}))
	if !ok {
		t.Fatal("expected the point-query fallback to resolve")
	}
	if got.Handle != fallback {
		t.Error("expected the fallback handle")
	}
}

func TestWindowUnderPoint_FallbackRequiresSettable(t *testing.T) {
	fallback := &fakeHandle{settable: false}
	provider := &fakeProvider{byPID: map[int][]access.Handle{}, atPoint: fallback}
	tester := New(fixedSnapshot{}, provider, fixedDisplays(screenHeight), zerolog.Nop())

	if _, ok := tester.WindowUnderPoint(pointerAt(geom.Point{X: 200, Y: 200})); ok {
		t.Error("a non-settable fallback element must not produce a hit")
	}
}

func TestBoundsMatch(t *testing.T) {
	base := geom.Rect{X: 100, Y: 100, Width: 400, Height: 300}

	tests := []struct {
		name  string
		other geom.Rect
		want  bool
	}{
		{"identical", base, true},
		{"all edges at tolerance", geom.Rect{X: 105, Y: 95, Width: 395, Height: 310}, true},
		{"one edge past tolerance", geom.Rect{X: 106, Y: 100, Width: 400, Height: 300}, false},
		{"size drift past tolerance", geom.Rect{X: 100, Y: 100, Width: 411, Height: 300}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := boundsMatch(base, tt.other, DefaultTolerance); got != tt.want {
				t.Errorf("boundsMatch(%v, %v) = %v, want %v", base, tt.other, got, tt.want)
			}
		})
	}
}
