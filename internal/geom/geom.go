package geom

// Point is a location in screen coordinates.
type Point struct {
	X int
	Y int
}

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Contains reports whether p lies inside r. The right and bottom edges are
// exclusive, matching how window geometry is reported.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.Width && p.Y >= r.Y && p.Y < r.Y+r.Height
}

// Origin returns the top-left corner of r.
func (r Rect) Origin() Point {
	return Point{X: r.X, Y: r.Y}
}

// ToWindowSpace converts a pointer-space point (origin at the bottom-left of
// the primary display) into window space (origin at the top-left of the
// primary display). Window geometry is always reported relative to the
// primary display's origin, so primaryHeight must be the primary display's
// height even when the point falls on another display.
func ToWindowSpace(p Point, primaryHeight int) Point {
	return Point{X: p.X, Y: primaryHeight - p.Y}
}

// ToPointerSpace is the inverse of ToWindowSpace. The flip is an involution,
// so the two functions are the same operation under different names.
func ToPointerSpace(p Point, primaryHeight int) Point {
	return Point{X: p.X, Y: primaryHeight - p.Y}
}
