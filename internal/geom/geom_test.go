package geom

import "testing"

func TestToWindowSpace_FlipsYOnly(t *testing.T) {
	p := ToWindowSpace(Point{X: 300, Y: 200}, 1080)
	if p.X != 300 {
		t.Errorf("expected X unchanged (300), got %d", p.X)
	}
	if p.Y != 880 {
		t.Errorf("expected Y=880, got %d", p.Y)
	}
}

func TestTransform_RoundTrip(t *testing.T) {
	heights := []int{768, 1080, 1440, 2160}
	points := []Point{
		{0, 0},
		{1, 1},
		{1920, 1080},
		{-100, 40},   // point on a display left of the primary
		{500, -200},  // point on a display below the primary
		{3000, 1500}, // point on a display right of the primary
	}

	for _, h := range heights {
		for _, p := range points {
			got := ToWindowSpace(ToPointerSpace(p, h), h)
			if got != p {
				t.Errorf("round trip with height %d: got %v, want %v", h, got, p)
			}
		}
	}
}

func TestRectContains(t *testing.T) {
	r := Rect{X: 10, Y: 20, Width: 100, Height: 50}

	tests := []struct {
		name string
		p    Point
		want bool
	}{
		{"inside", Point{50, 40}, true},
		{"top-left corner", Point{10, 20}, true},
		{"right edge exclusive", Point{110, 40}, false},
		{"bottom edge exclusive", Point{50, 70}, false},
		{"left of rect", Point{9, 40}, false},
		{"above rect", Point{50, 19}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Contains(tt.p); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}
