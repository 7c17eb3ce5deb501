package geoproc

import (
	"fmt"
	"math"
)

// SelectResult is the outcome of selecting one river layer.
type SelectResult struct {
	// River is the name of the river layer this result belongs to.
	River string

	// Layer holds the river features that intersect at least one point, in
	// river order. It is empty (not nil) when nothing matched, and nil when
	// Err is set.
	Layer *Layer

	// Skipped lists river features whose geometry could not be tested.
	Skipped []FeatureSkip

	// Err is set when the whole river layer failed. Other river layers are
	// unaffected.
	Err error
}

// Matched returns the number of selected river features.
func (r SelectResult) Matched() int {
	if r.Layer == nil {
		return 0
	}
	return r.Layer.Len()
}

// Select keeps, for every river layer, the features that intersect at least
// one feature of points.
//
// The point layer is indexed once and the index is shared read-only by all
// river layers, which run independently on up to opts.Workers goroutines.
// For each river feature the index is queried with the feature's bounding
// box, and candidates are tested exactly in ascending order until the first
// match. A river feature is reported once however many points touch it.
//
// One result is returned per river layer, in input order. Output layers are
// named "<points>_<river>" and keep the river layer's CRS, source and
// feature order. A river layer with no match produces an empty layer; an
// empty point layer produces empty layers for every river.
//
// A nil point layer returns a ConfigError. A nil river layer, or a CRS
// mismatch under opts.RequireMatchingCRS, fails only that river's result.
//
// Example:
//
//	results, err := geoproc.Select(stations, rivers, geoproc.DefaultSelectOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, r := range results {
//	    if r.Err != nil {
//	        log.Printf("%s: %v", r.River, r.Err)
//	        continue
//	    }
//	    fmt.Printf("%s: %d features selected\n", r.River, r.Matched())
//	}
func Select(points *Layer, rivers []*Layer, opts SelectOptions) ([]SelectResult, error) {
	sel, err := NewSelector(points, opts)
	if err != nil {
		return nil, err
	}
	opts = sel.opts

	results := make([]SelectResult, len(rivers))

	RunParallel(len(rivers), ParallelOptions{Workers: opts.Workers, SkipErrors: true}, func(i int) error {
		results[i] = sel.SelectLayer(rivers[i])
		return results[i].Err
	})

	return results, nil
}

func checkSelectOptions(opts SelectOptions) error {
	for _, v := range []struct {
		field string
		value float64
	}{
		{"tolerance", opts.Tolerance},
		{"search_distance", opts.SearchDistance},
	} {
		if math.IsNaN(v.value) || math.IsInf(v.value, 0) {
			return &ConfigError{Field: v.field, Reason: "must be a finite number"}
		}
		if v.value < 0 {
			return &ConfigError{Field: v.field, Reason: "must not be negative"}
		}
	}
	return nil
}

// Selector holds an index over one point layer and selects river layers
// against it. It is safe for concurrent use.
type Selector struct {
	points *Layer
	index  *SpatialIndex
	opts   SelectOptions
}

// NewSelector indexes points for repeated selections. Invalid point
// geometries are left out of the index and listed by PointSkips.
//
// A nil point layer or an invalid option returns a ConfigError.
func NewSelector(points *Layer, opts SelectOptions) (*Selector, error) {
	if points == nil {
		return nil, &ConfigError{Field: "points", Reason: "missing point layer"}
	}
	if err := checkSelectOptions(opts); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	return &Selector{
		points: points,
		index:  BuildIndexWithPadding(points, opts.Tolerance),
		opts:   opts,
	}, nil
}

// Index returns the spatial index over the point layer.
func (s *Selector) Index() *SpatialIndex {
	return s.index
}

// PointSkips lists point features that could not be indexed.
func (s *Selector) PointSkips() []FeatureSkip {
	return s.index.Skipped()
}

// SelectLayer selects the features of one river layer.
func (s *Selector) SelectLayer(river *Layer) SelectResult {
	if river == nil {
		return SelectResult{Err: &ConfigError{Field: "river", Reason: "missing river layer"}}
	}

	result := SelectResult{River: river.Name}
	if s.opts.RequireMatchingCRS && river.CRS != s.points.CRS {
		result.Err = fmt.Errorf("%s: %w (%q vs %q)", river.Name, ErrCRSMismatch, river.CRS, s.points.CRS)
		return result
	}

	out := river.derive(s.points.Name + "_" + river.Name)
	out.Features = []Feature{}
	result.Layer = out

	reach := s.opts.reach()
	if s.index.Len() == 0 || !river.Bounds().Expand(reach).Intersects(s.index.Bounds()) {
		// Nothing can match; still report features that would have been skipped.
		for i := range river.Features {
			if _, err := Normalize(river.Features[i].Geometry); err != nil {
				result.Skipped = append(result.Skipped, FeatureSkip{Layer: river.Name, Index: i, Err: err})
			}
		}
		return result
	}

	for i := range river.Features {
		f := &river.Features[i]
		g, err := Normalize(f.Geometry)
		if err != nil {
			result.Skipped = append(result.Skipped, FeatureSkip{Layer: river.Name, Index: i, Err: err})
			continue
		}

		for _, c := range s.index.Query(BoundsOf(g).Expand(reach)) {
			if Intersects(g, s.index.Geometry(c), reach) {
				out.Features = append(out.Features, f.withGeometry(f.Geometry))
				break
			}
		}
	}

	return result
}
