package drag

import (
	"anydrag/internal/access"
	"anydrag/internal/geom"
	"anydrag/internal/inventory"
)

// Session is the state of one in-progress drag. It exists only while the
// controller is in the dragging state and is owned exclusively by it.
type Session struct {
	// Handle is the live handle of the window being moved.
	Handle access.Handle
	// Target is the inventory record the handle was resolved from.
	Target inventory.WindowInfo
	// AnchorPointer is the pointer position at drag start, pointer space.
	AnchorPointer geom.Point
	// AnchorWindow is the window's position at drag start, window space.
	AnchorWindow geom.Point
}

// TargetPosition computes the window position for the current pointer.
// Deltas are taken in pointer space; the vertical component is negated
// because pointer space and window space run their y-axes in opposite
// directions.
func (s *Session) TargetPosition(pointer geom.Point) geom.Point {
	dx := pointer.X - s.AnchorPointer.X
	dy := pointer.Y - s.AnchorPointer.Y
	return geom.Point{
		X: s.AnchorWindow.X + dx,
		Y: s.AnchorWindow.Y - dy,
	}
}
