package geoproc

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func TestIntersects(t *testing.T) {
	square := orb.Polygon{{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}}
	donut := orb.Polygon{
		{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
		{{4, 4}, {4, 6}, {6, 6}, {6, 4}, {4, 4}},
	}
	river := orb.LineString{{-1, 0}, {1, 0}}

	tests := []struct {
		name   string
		a, b   orb.Geometry
		expect bool
	}{
		{"point on line", river, orb.Point{0, 0}, true},
		{"point off line", river, orb.Point{5, 5}, false},
		{"point at line end", river, orb.Point{1, 0}, true},
		{"point just off line end", river, orb.Point{1 + 1e-6, 0}, false},
		{"point inside polygon", square, orb.Point{5, 5}, true},
		{"point on polygon edge", square, orb.Point{10, 3}, true},
		{"point in polygon hole", donut, orb.Point{5, 5}, false},
		{"point outside polygon", square, orb.Point{11, 5}, false},
		{"crossing lines", orb.LineString{{0, -1}, {0, 1}}, river, true},
		{"parallel lines", orb.LineString{{-1, 1}, {1, 1}}, river, false},
		{"line inside polygon", square, orb.LineString{{2, 2}, {3, 3}}, true},
		{"line crossing polygon", square, orb.LineString{{-5, 5}, {15, 5}}, true},
		{"polygon inside polygon", square, orb.Polygon{{{1, 1}, {2, 1}, {2, 2}, {1, 1}}}, true},
		{"multipoint one inside", square, orb.MultiPoint{{20, 20}, {5, 5}}, true},
		{"multiline none touching", square, orb.MultiLineString{{{20, 20}, {30, 30}}, {{-5, -5}, {-1, -2}}}, false},
		{"nil geometry", nil, orb.Point{0, 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Intersects(tt.a, tt.b, DefaultTolerance); got != tt.expect {
				t.Errorf("Intersects(a, b) = %v, want %v", got, tt.expect)
			}
			if got := Intersects(tt.b, tt.a, DefaultTolerance); got != tt.expect {
				t.Errorf("Intersects(b, a) = %v, want %v", got, tt.expect)
			}
		})
	}
}

func TestIntersectsTolerance(t *testing.T) {
	river := orb.LineString{{0, 0}, {100, 0}}
	p := orb.Point{50, 0.5}

	if Intersects(river, p, DefaultTolerance) {
		t.Error("Expected point 0.5 away not to intersect at default tolerance")
	}
	if !Intersects(river, p, 0.5) {
		t.Error("Expected point 0.5 away to intersect at tolerance 0.5")
	}
	if Intersects(river, p, 0.49) {
		t.Error("Expected point 0.5 away not to intersect at tolerance 0.49")
	}
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name   string
		a, b   orb.Geometry
		expect float64
	}{
		{"points", orb.Point{0, 0}, orb.Point{3, 4}, 5},
		{"point to segment interior", orb.LineString{{0, 0}, {10, 0}}, orb.Point{5, 2}, 2},
		{"point to segment end", orb.LineString{{0, 0}, {10, 0}}, orb.Point{13, 4}, 5},
		{"crossing lines", orb.LineString{{0, 0}, {2, 2}}, orb.LineString{{0, 2}, {2, 0}}, 0},
		{"skew lines", orb.LineString{{0, 0}, {1, 0}}, orb.LineString{{2, 1}, {2, 5}}, math.Sqrt2},
		{"point inside polygon", orb.Polygon{{{0, 0}, {4, 0}, {4, 4}, {0, 4}, {0, 0}}}, orb.Point{1, 1}, 0},
		{"point outside polygon", orb.Polygon{{{0, 0}, {4, 0}, {4, 4}, {0, 4}, {0, 0}}}, orb.Point{7, 4}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Distance(tt.a, tt.b); math.Abs(got-tt.expect) > 1e-12 {
				t.Errorf("Expected distance %v, got %v", tt.expect, got)
			}
		})
	}

	if d := Distance(nil, orb.Point{0, 0}); !math.IsInf(d, 1) {
		t.Errorf("Expected +Inf for nil geometry, got %v", d)
	}
}
