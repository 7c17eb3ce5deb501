package geoproc

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	sfgeom "github.com/peterstace/simplefeatures/geom"
)

// BufferResult is the output of buffering one layer.
type BufferResult struct {
	// Layer holds one buffered feature per input feature that could be
	// buffered, in input order.
	Layer *Layer

	// Skipped lists input features whose geometry could not be buffered.
	Skipped []FeatureSkip
}

// Buffer returns a new layer where every feature's geometry is replaced by
// the area within distance of it.
//
// Points, lines and polygons all become polygons: single-part geometries
// produce a Polygon and multi-part geometries a MultiPolygon. Curves are
// approximated with opts.QuadrantSegments segments per quarter circle, with
// round caps at line ends and round joins at vertices. A single point or a
// zero-length line buffers to a disc.
//
// Attributes and IDs are copied unchanged and feature order is preserved.
// The output layer keeps the input's CRS and source and is named after the
// input with opts.Suffix appended.
//
// distance is in layer coordinate units. A negative or non-finite distance
// returns a ConfigError before any feature is processed. A distance of zero
// copies polygonal geometries unchanged and skips all others.
//
// Features whose geometry is invalid are skipped and listed in
// BufferResult.Skipped; the remaining features are still buffered.
//
// Example:
//
//	res, err := geoproc.Buffer(rivers, 0.01, geoproc.DefaultBufferOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%s: %d features, %d skipped\n",
//	    res.Layer.Name, res.Layer.Len(), len(res.Skipped))
func Buffer(layer *Layer, distance float64, opts BufferOptions) (*BufferResult, error) {
	if layer == nil {
		return nil, &ConfigError{Field: "layer", Reason: "missing input layer"}
	}
	if err := checkDistance(distance); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	out := layer.derive(layer.Name + opts.Suffix)
	out.Features = make([]Feature, 0, len(layer.Features))
	result := &BufferResult{Layer: out}

	for i := range layer.Features {
		f := &layer.Features[i]
		g, err := BufferGeometry(f.Geometry, distance, opts.QuadrantSegments)
		if err != nil {
			result.Skipped = append(result.Skipped, FeatureSkip{Layer: layer.Name, Index: i, Err: err})
			continue
		}
		out.Features = append(out.Features, f.withGeometry(g))
	}

	return result, nil
}

// BufferGeometry buffers a single geometry. See Buffer for the semantics.
// quadSegs below 1 uses DefaultQuadrantSegments.
func BufferGeometry(g orb.Geometry, distance float64, quadSegs int) (orb.Geometry, error) {
	if err := checkDistance(distance); err != nil {
		return nil, err
	}
	if quadSegs < 1 {
		quadSegs = DefaultQuadrantSegments
	}

	geom, err := Normalize(g)
	if err != nil {
		return nil, err
	}
	kind := GeometryKindOf(geom)

	if distance == 0 {
		if kind.IsPolygonal() {
			return geom, nil
		}
		return nil, &GeometryError{Kind: kind, Reason: "zero-distance buffer of a non-polygonal geometry has no area"}
	}

	// A lone point buffers to an exact disc.
	switch t := geom.(type) {
	case orb.Point:
		return orb.Polygon{disc(t, distance, quadSegs)}, nil
	case orb.LineString:
		if len(t) == 1 {
			return orb.Polygon{disc(t[0], distance, quadSegs)}, nil
		}
	}

	polys, err := jtsBuffer(geom, distance, quadSegs)
	if err != nil {
		return nil, &GeometryError{Kind: kind, Reason: err.Error()}
	}

	switch {
	case len(polys) == 0:
		return nil, &GeometryError{Kind: kind, Reason: "buffer produced no area"}
	case kind.IsMulti() || len(polys) > 1:
		return polys, nil
	default:
		return polys[0], nil
	}
}

func checkDistance(distance float64) error {
	if math.IsNaN(distance) || math.IsInf(distance, 0) {
		return &ConfigError{Field: "distance", Reason: "must be a finite number"}
	}
	if distance < 0 {
		return &ConfigError{Field: "distance", Reason: "must not be negative"}
	}
	return nil
}

// jtsBuffer computes the buffer with round caps and round joins and returns
// it as polygons with counter-clockwise shells and clockwise holes.
func jtsBuffer(g orb.Geometry, d float64, q int) (orb.MultiPolygon, error) {
	data, err := wkb.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("encode geometry: %w", err)
	}
	in, err := sfgeom.UnmarshalWKB(data, sfgeom.NoValidate{})
	if err != nil {
		return nil, fmt.Errorf("convert geometry: %w", err)
	}

	buf, err := sfgeom.Buffer(in, d,
		sfgeom.BufferQuadSegments(q),
		sfgeom.BufferEndCapRound(),
		sfgeom.BufferJoinStyleRound(),
	)
	if err != nil {
		return nil, fmt.Errorf("buffer: %w", err)
	}

	out, err := wkb.Unmarshal(buf.AsBinary())
	if err != nil {
		return nil, fmt.Errorf("decode buffer: %w", err)
	}
	return polygonsOf(out), nil
}

// polygonsOf collects the non-empty polygons of g, oriented for GeoJSON.
func polygonsOf(g orb.Geometry) orb.MultiPolygon {
	var out orb.MultiPolygon
	add := func(p orb.Polygon) {
		if len(p) == 0 || len(p[0]) < 4 {
			return
		}
		poly := make(orb.Polygon, 0, len(p))
		for i, r := range p {
			if len(r) >= 4 {
				poly = append(poly, orient(r, i == 0))
			}
		}
		out = append(out, poly)
	}

	switch t := g.(type) {
	case orb.Polygon:
		add(t)
	case orb.MultiPolygon:
		for _, p := range t {
			add(p)
		}
	case orb.Collection:
		for _, c := range t {
			out = append(out, polygonsOf(c)...)
		}
	}
	return out
}

// disc returns a closed counter-clockwise regular polygon with 4*q vertices,
// all exactly d from c.
func disc(c orb.Point, d float64, q int) orb.Ring {
	n := 4 * q
	ring := make(orb.Ring, 0, n+1)
	for k := 0; k < n; k++ {
		a := 2 * math.Pi * float64(k) / float64(n)
		ring = append(ring, orb.Point{c[0] + d*math.Cos(a), c[1] + d*math.Sin(a)})
	}
	return append(ring, ring[0])
}

// orient returns the ring counter-clockwise when ccw is set, clockwise otherwise.
func orient(r orb.Ring, ccw bool) orb.Ring {
	if (r.Orientation() == orb.CCW) == ccw {
		return r
	}
	out := make(orb.Ring, len(r))
	for i, p := range r {
		out[len(r)-1-i] = p
	}
	return out
}
