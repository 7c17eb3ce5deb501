package geoproc

import (
	"math"

	"github.com/paulmach/orb"
)

// GeometryKind names the geometry variants a feature may carry.
type GeometryKind int

const (
	GeometryUnknown GeometryKind = iota
	GeometryPoint
	GeometryLineString
	GeometryPolygon
	GeometryMultiPoint
	GeometryMultiLineString
	GeometryMultiPolygon
)

// String returns the GeoJSON type name of the kind.
func (k GeometryKind) String() string {
	switch k {
	case GeometryPoint:
		return "Point"
	case GeometryLineString:
		return "LineString"
	case GeometryPolygon:
		return "Polygon"
	case GeometryMultiPoint:
		return "MultiPoint"
	case GeometryMultiLineString:
		return "MultiLineString"
	case GeometryMultiPolygon:
		return "MultiPolygon"
	default:
		return "Unknown"
	}
}

// IsMulti reports whether the kind is a multi-part variant.
func (k GeometryKind) IsMulti() bool {
	return k == GeometryMultiPoint || k == GeometryMultiLineString || k == GeometryMultiPolygon
}

// IsPolygonal reports whether the kind encloses area.
func (k GeometryKind) IsPolygonal() bool {
	return k == GeometryPolygon || k == GeometryMultiPolygon
}

// GeometryKindOf returns the variant of g, or GeometryUnknown for nil and
// for orb types outside the six supported variants.
func GeometryKindOf(g orb.Geometry) GeometryKind {
	switch g.(type) {
	case orb.Point:
		return GeometryPoint
	case orb.LineString:
		return GeometryLineString
	case orb.Polygon:
		return GeometryPolygon
	case orb.MultiPoint:
		return GeometryMultiPoint
	case orb.MultiLineString:
		return GeometryMultiLineString
	case orb.MultiPolygon:
		return GeometryMultiPolygon
	default:
		return GeometryUnknown
	}
}

// Normalize validates a geometry and returns a cleaned copy.
//
// Consecutive duplicate vertices are removed and unclosed polygon rings are
// closed. A GeometryError is returned for nil or unsupported geometries,
// non-finite coordinates, empty coordinate sequences, and polygon rings with
// fewer than 4 coordinates after closing. A line whose vertices all coincide
// is kept as a single-vertex line; it buffers to a disc.
//
// The input is never modified.
func Normalize(g orb.Geometry) (orb.Geometry, error) {
	kind := GeometryKindOf(g)
	switch t := g.(type) {
	case orb.Point:
		if !finitePoint(t) {
			return nil, &GeometryError{Kind: kind, Reason: "non-finite coordinate"}
		}
		return t, nil

	case orb.MultiPoint:
		if len(t) == 0 {
			return nil, &GeometryError{Kind: kind, Reason: "empty coordinate sequence"}
		}
		out := make(orb.MultiPoint, len(t))
		for i, p := range t {
			if !finitePoint(p) {
				return nil, &GeometryError{Kind: kind, Reason: "non-finite coordinate"}
			}
			out[i] = p
		}
		return out, nil

	case orb.LineString:
		ls, err := normalizeLine(t)
		if err != nil {
			return nil, err
		}
		return ls, nil

	case orb.MultiLineString:
		if len(t) == 0 {
			return nil, &GeometryError{Kind: kind, Reason: "empty coordinate sequence"}
		}
		out := make(orb.MultiLineString, len(t))
		for i, part := range t {
			ls, err := normalizeLine(part)
			if err != nil {
				return nil, &GeometryError{Kind: kind, Reason: err.(*GeometryError).Reason}
			}
			out[i] = ls
		}
		return out, nil

	case orb.Polygon:
		return normalizePolygon(t)

	case orb.MultiPolygon:
		if len(t) == 0 {
			return nil, &GeometryError{Kind: kind, Reason: "empty coordinate sequence"}
		}
		out := make(orb.MultiPolygon, len(t))
		for i, part := range t {
			poly, err := normalizePolygon(part)
			if err != nil {
				return nil, &GeometryError{Kind: kind, Reason: err.(*GeometryError).Reason}
			}
			out[i] = poly
		}
		return out, nil

	case nil:
		return nil, &GeometryError{Reason: "missing geometry"}

	default:
		return nil, &GeometryError{Reason: "unsupported geometry type " + g.GeoJSONType()}
	}
}

func normalizeLine(ls orb.LineString) (orb.LineString, error) {
	if len(ls) == 0 {
		return nil, &GeometryError{Kind: GeometryLineString, Reason: "empty coordinate sequence"}
	}
	out := make(orb.LineString, 0, len(ls))
	for _, p := range ls {
		if !finitePoint(p) {
			return nil, &GeometryError{Kind: GeometryLineString, Reason: "non-finite coordinate"}
		}
		if len(out) > 0 && out[len(out)-1] == p {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func normalizePolygon(poly orb.Polygon) (orb.Polygon, error) {
	if len(poly) == 0 {
		return nil, &GeometryError{Kind: GeometryPolygon, Reason: "empty coordinate sequence"}
	}
	out := make(orb.Polygon, len(poly))
	for i, ring := range poly {
		r, err := normalizeRing(ring)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

func normalizeRing(ring orb.Ring) (orb.Ring, error) {
	out := make(orb.Ring, 0, len(ring)+1)
	for _, p := range ring {
		if !finitePoint(p) {
			return nil, &GeometryError{Kind: GeometryPolygon, Reason: "non-finite coordinate"}
		}
		if len(out) > 0 && out[len(out)-1] == p {
			continue
		}
		out = append(out, p)
	}
	if len(out) > 0 && out[0] != out[len(out)-1] {
		out = append(out, out[0])
	}
	if len(out) < 4 {
		return nil, &GeometryError{Kind: GeometryPolygon, Reason: "ring has fewer than 4 coordinates"}
	}
	return out, nil
}

func finitePoint(p orb.Point) bool {
	return !math.IsNaN(p[0]) && !math.IsNaN(p[1]) && !math.IsInf(p[0], 0) && !math.IsInf(p[1], 0)
}
