package geoproc

import (
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
)

// DefaultIndexPadding is the distance every indexed and queried box is grown
// by. Points and axis-parallel lines have zero-area boxes, which the R-tree
// cannot store, and boxes that only touch would otherwise not match.
const DefaultIndexPadding = 1e-9

const relativePadding = 1e-12

// SpatialIndex answers bounding-box overlap queries over one layer's features.
//
// The index is built once from a layer and is read-only afterwards, so a
// single index may be queried from many goroutines at the same time.
// Queries return candidates only: callers must apply an exact geometric test
// to the returned features.
//
// Build is O(n log n) in the number of features; a query is O(log n + k)
// where k is the number of candidates, compared to O(n) for a linear scan.
//
// Example:
//
//	idx := geoproc.BuildIndex(points)
//	for _, i := range idx.Query(river.Bounds()) {
//	    if geoproc.Intersects(river.Geometry, idx.Geometry(i), 1e-9) {
//	        // river touches points.Features[i]
//	    }
//	}
type SpatialIndex struct {
	rtree   *rtreego.Rtree
	geoms   []orb.Geometry // Normalized geometry per feature; nil when skipped
	bounds  Bounds         // Union of indexed feature bounds
	count   int            // Number of indexed features
	pad     float64
	skipped []FeatureSkip
}

// indexedFeature adapts a feature's box to the rtreego.Spatial interface.
type indexedFeature struct {
	index int
	rect  rtreego.Rect
}

// Bounds method for rtreego.Spatial interface.
func (f *indexedFeature) Bounds() rtreego.Rect {
	return f.rect
}

// BuildIndex indexes every feature of the layer using DefaultIndexPadding.
func BuildIndex(layer *Layer) *SpatialIndex {
	return BuildIndexWithPadding(layer, DefaultIndexPadding)
}

// BuildIndexWithPadding indexes every feature of the layer, growing each
// box by pad. A non-positive pad is replaced by DefaultIndexPadding.
//
// Features whose geometry fails Normalize are not indexed; they are listed
// by Skipped.
func BuildIndexWithPadding(layer *Layer, pad float64) *SpatialIndex {
	if pad <= 0 {
		pad = DefaultIndexPadding
	}

	idx := &SpatialIndex{
		// Create R-tree (2D, min=25 children, max=50 children)
		rtree:  rtreego.NewTree(2, 25, 50),
		bounds: EmptyBounds(),
		pad:    pad,
	}
	if layer == nil {
		return idx
	}

	idx.geoms = make([]orb.Geometry, len(layer.Features))
	for i := range layer.Features {
		g, err := Normalize(layer.Features[i].Geometry)
		if err != nil {
			idx.skipped = append(idx.skipped, FeatureSkip{Layer: layer.Name, Index: i, Err: err})
			continue
		}
		b := BoundsOf(g)
		idx.geoms[i] = g
		idx.bounds = idx.bounds.Union(b)
		idx.rtree.Insert(&indexedFeature{index: i, rect: paddedRect(b, pad)})
		idx.count++
	}

	return idx
}

// Query returns the indices of features whose boxes intersect b, in
// ascending order.
func (idx *SpatialIndex) Query(b Bounds) []int {
	if idx.count == 0 || b.IsEmpty() {
		return nil
	}

	spatials := idx.rtree.SearchIntersect(paddedRect(b, idx.pad))
	if len(spatials) == 0 {
		return nil
	}

	result := make([]int, len(spatials))
	for i, spatial := range spatials {
		result[i] = spatial.(*indexedFeature).index
	}
	sort.Ints(result)
	return result
}

// Geometry returns the normalized geometry of feature i, or nil when the
// feature was not indexed.
func (idx *SpatialIndex) Geometry(i int) orb.Geometry {
	if i < 0 || i >= len(idx.geoms) {
		return nil
	}
	return idx.geoms[i]
}

// Len returns the number of indexed features.
func (idx *SpatialIndex) Len() int {
	return idx.count
}

// Bounds returns the union of the indexed feature boxes (unpadded).
func (idx *SpatialIndex) Bounds() Bounds {
	return idx.bounds
}

// Skipped lists features that could not be indexed.
func (idx *SpatialIndex) Skipped() []FeatureSkip {
	return idx.skipped
}

// paddedRect converts bounds to an R-tree rectangle grown by pad on each side.
// Lengths are always positive, which rtreego.NewRect requires. The pad also
// grows with coordinate magnitude so it survives float64 rounding far from
// the origin.
func paddedRect(b Bounds, pad float64) rtreego.Rect {
	pad += relativePadding * math.Max(
		math.Max(math.Abs(b.MinX), math.Abs(b.MaxX)),
		math.Max(math.Abs(b.MinY), math.Abs(b.MaxY)),
	)
	point := rtreego.Point{b.MinX - pad, b.MinY - pad}
	lengths := []float64{
		(b.MaxX - b.MinX) + 2*pad,
		(b.MaxY - b.MinY) + 2*pad,
	}
	rect, _ := rtreego.NewRect(point, lengths)
	return rect
}
