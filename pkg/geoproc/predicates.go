package geoproc

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// DefaultTolerance is the distance under which two geometries are treated as
// intersecting. It absorbs floating-point noise for points lying on lines.
const DefaultTolerance = 1e-9

// Intersects reports whether two geometries share at least one point, allowing
// a gap of up to tol. Polygon interiors are part of the geometry, so a point
// inside a polygon intersects it.
//
// The test stops at the first pair of primitives found within tol.
func Intersects(a, b orb.Geometry, tol float64) bool {
	if a == nil || b == nil {
		return false
	}
	if tol < 0 {
		tol = 0
	}
	if boxGap(BoundsOf(a), BoundsOf(b)) > tol {
		return false
	}
	d := distanceWithin(decompose(a), decompose(b), tol)
	return d <= tol
}

// Distance returns the minimum planar distance between two geometries.
// It is 0 when they intersect and +Inf when either is nil or empty.
func Distance(a, b orb.Geometry) float64 {
	if a == nil || b == nil {
		return math.Inf(1)
	}
	return distanceWithin(decompose(a), decompose(b), -1)
}

// parts holds a geometry broken into the primitives the distance test works on.
type parts struct {
	points []orb.Point
	lines  []orb.LineString // includes every polygon ring
	polys  []orb.Polygon
}

func decompose(g orb.Geometry) parts {
	var p parts
	switch t := g.(type) {
	case orb.Point:
		p.points = append(p.points, t)
	case orb.MultiPoint:
		p.points = append(p.points, t...)
	case orb.LineString:
		p.addLine(t)
	case orb.MultiLineString:
		for _, ls := range t {
			p.addLine(ls)
		}
	case orb.Ring:
		p.addPolygon(orb.Polygon{t})
	case orb.Polygon:
		p.addPolygon(t)
	case orb.MultiPolygon:
		for _, poly := range t {
			p.addPolygon(poly)
		}
	case orb.Collection:
		for _, sub := range t {
			s := decompose(sub)
			p.points = append(p.points, s.points...)
			p.lines = append(p.lines, s.lines...)
			p.polys = append(p.polys, s.polys...)
		}
	}
	return p
}

func (p *parts) addLine(ls orb.LineString) {
	switch len(ls) {
	case 0:
	case 1:
		p.points = append(p.points, ls[0])
	default:
		p.lines = append(p.lines, ls)
	}
}

func (p *parts) addPolygon(poly orb.Polygon) {
	if len(poly) == 0 || len(poly[0]) == 0 {
		return
	}
	p.polys = append(p.polys, poly)
	for _, ring := range poly {
		p.addLine(orb.LineString(ring))
	}
}

// representatives returns one vertex per connected component. When no
// boundary of one geometry comes within reach of the other, each component
// lies wholly inside or wholly outside every polygon, so one vertex decides.
func (p parts) representatives() []orb.Point {
	reps := make([]orb.Point, 0, len(p.points)+len(p.lines))
	reps = append(reps, p.points...)
	for _, ls := range p.lines {
		reps = append(reps, ls[0])
	}
	return reps
}

// distanceWithin returns the minimum distance between a and b, stopping as
// soon as a distance <= tol is seen. Pass a negative tol for the exact minimum.
func distanceWithin(a, b parts, tol float64) float64 {
	if len(a.points)+len(a.lines) == 0 || len(b.points)+len(b.lines) == 0 {
		return math.Inf(1)
	}

	if insideAny(a.polys, b.representatives()) || insideAny(b.polys, a.representatives()) {
		return 0
	}

	best := math.Inf(1)
	done := func(d float64) bool {
		if d < best {
			best = d
		}
		return best <= tol || best == 0
	}

	for _, pa := range a.points {
		for _, pb := range b.points {
			if done(planar.Distance(pa, pb)) {
				return best
			}
		}
		for _, ls := range b.lines {
			if done(pointLineDistance(pa, ls)) {
				return best
			}
		}
	}
	for _, la := range a.lines {
		for _, pb := range b.points {
			if done(pointLineDistance(pb, la)) {
				return best
			}
		}
		for _, lb := range b.lines {
			if done(lineLineDistance(la, lb, tol)) {
				return best
			}
		}
	}
	return best
}

func insideAny(polys []orb.Polygon, pts []orb.Point) bool {
	for _, poly := range polys {
		for _, pt := range pts {
			if planar.PolygonContains(poly, pt) {
				return true
			}
		}
	}
	return false
}

func pointLineDistance(p orb.Point, ls orb.LineString) float64 {
	best := math.Inf(1)
	for i := 1; i < len(ls); i++ {
		if d := planar.DistanceFromSegment(ls[i-1], ls[i], p); d < best {
			best = d
			if best == 0 {
				break
			}
		}
	}
	return best
}

func lineLineDistance(a, b orb.LineString, tol float64) float64 {
	best := math.Inf(1)
	bb := BoundsOf(b)
	for i := 1; i < len(a); i++ {
		sa := Bounds{
			MinX: math.Min(a[i-1][0], a[i][0]), MinY: math.Min(a[i-1][1], a[i][1]),
			MaxX: math.Max(a[i-1][0], a[i][0]), MaxY: math.Max(a[i-1][1], a[i][1]),
		}
		if boxGap(sa, bb) > best {
			continue
		}
		for j := 1; j < len(b); j++ {
			d := segmentDistance(a[i-1], a[i], b[j-1], b[j])
			if d < best {
				best = d
				if best <= tol || best == 0 {
					return best
				}
			}
		}
	}
	return best
}

// segmentDistance returns the distance between segments p1-p2 and q1-q2.
func segmentDistance(p1, p2, q1, q2 orb.Point) float64 {
	if segmentsIntersect(p1, p2, q1, q2) {
		return 0
	}
	return math.Min(
		math.Min(planar.DistanceFromSegment(q1, q2, p1), planar.DistanceFromSegment(q1, q2, p2)),
		math.Min(planar.DistanceFromSegment(p1, p2, q1), planar.DistanceFromSegment(p1, p2, q2)),
	)
}

// segmentsIntersect reports whether two closed segments share a point.
func segmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	d1 := cross(q1, q2, p1)
	d2 := cross(q1, q2, p2)
	d3 := cross(p1, p2, q1)
	d4 := cross(p1, p2, q2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return (d1 == 0 && onSegment(q1, q2, p1)) ||
		(d2 == 0 && onSegment(q1, q2, p2)) ||
		(d3 == 0 && onSegment(p1, p2, q1)) ||
		(d4 == 0 && onSegment(p1, p2, q2))
}

// cross returns the z component of (b-a) x (c-a): positive when c is left of a->b.
func cross(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

// onSegment reports whether c, known to be collinear with a-b, lies within it.
func onSegment(a, b, c orb.Point) bool {
	return math.Min(a[0], b[0]) <= c[0] && c[0] <= math.Max(a[0], b[0]) &&
		math.Min(a[1], b[1]) <= c[1] && c[1] <= math.Max(a[1], b[1])
}

// boxGap returns the distance between two boxes, 0 when they overlap.
func boxGap(a, b Bounds) float64 {
	if a.IsEmpty() || b.IsEmpty() {
		return math.Inf(1)
	}
	dx := math.Max(0, math.Max(a.MinX-b.MaxX, b.MinX-a.MaxX))
	dy := math.Max(0, math.Max(a.MinY-b.MaxY, b.MinY-a.MaxY))
	return math.Hypot(dx, dy)
}
