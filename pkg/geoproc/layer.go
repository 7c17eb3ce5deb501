package geoproc

import (
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/paulmach/orb"
)

// Bounds is an axis-aligned bounding box in layer coordinates.
type Bounds struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// EmptyBounds returns a box that contains nothing and extends to any point
// it is unioned with.
func EmptyBounds() Bounds {
	return Bounds{
		MinX: math.Inf(1), MinY: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1),
	}
}

// BoundsOf returns the bounding box of a geometry.
func BoundsOf(g orb.Geometry) Bounds {
	if g == nil {
		return EmptyBounds()
	}
	b := g.Bound()
	return Bounds{MinX: b.Min[0], MinY: b.Min[1], MaxX: b.Max[0], MaxY: b.Max[1]}
}

// IsEmpty reports whether the box contains no points.
func (b Bounds) IsEmpty() bool {
	return b.MinX > b.MaxX || b.MinY > b.MaxY
}

// Intersects reports whether two boxes overlap. Touching edges count.
func (b Bounds) Intersects(o Bounds) bool {
	if b.IsEmpty() || o.IsEmpty() {
		return false
	}
	return b.MinX <= o.MaxX && o.MinX <= b.MaxX &&
		b.MinY <= o.MaxY && o.MinY <= b.MaxY
}

// Union returns the smallest box containing both boxes.
func (b Bounds) Union(o Bounds) Bounds {
	if b.IsEmpty() {
		return o
	}
	if o.IsEmpty() {
		return b
	}
	return Bounds{
		MinX: math.Min(b.MinX, o.MinX), MinY: math.Min(b.MinY, o.MinY),
		MaxX: math.Max(b.MaxX, o.MaxX), MaxY: math.Max(b.MaxY, o.MaxY),
	}
}

// Expand grows the box by d on every side.
func (b Bounds) Expand(d float64) Bounds {
	if b.IsEmpty() {
		return b
	}
	return Bounds{MinX: b.MinX - d, MinY: b.MinY - d, MaxX: b.MaxX + d, MaxY: b.MaxY + d}
}

// Attributes maps attribute names to scalar values.
type Attributes map[string]Value

// Clone returns a copy of the attribute map.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Keys returns the attribute names in sorted order.
func (a Attributes) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Feature is one geometry plus its attributes.
type Feature struct {
	// ID is the optional feature identifier from the source file.
	ID Value

	// Geometry is one of Point, LineString, Polygon, MultiPoint,
	// MultiLineString or MultiPolygon. See GeometryKindOf.
	Geometry orb.Geometry

	// Attributes holds the feature's properties.
	Attributes Attributes
}

// Attribute returns the named attribute, or Null when it is missing.
func (f *Feature) Attribute(name string) Value {
	if f.Attributes == nil {
		return Null()
	}
	return f.Attributes[name]
}

// Bounds returns the bounding box of the feature's geometry.
func (f *Feature) Bounds() Bounds {
	return BoundsOf(f.Geometry)
}

// withGeometry returns a copy of the feature carrying a different geometry.
func (f *Feature) withGeometry(g orb.Geometry) Feature {
	return Feature{
		ID:         f.ID,
		Geometry:   g,
		Attributes: f.Attributes.Clone(),
	}
}

// Layer is an ordered collection of features sharing a coordinate reference system.
//
// Layers are values handed between the codec and the transforms. Transforms
// never modify their input layers; they return new ones.
type Layer struct {
	// Name identifies the layer in output file names and reports.
	Name string

	// Source is the path the layer was read from, if any.
	Source string

	// CRS is an opaque coordinate reference system identifier. It is passed
	// through unchanged; no reprojection is performed.
	CRS string

	// Schema lists the attribute names declared by the layer, in first-seen order.
	// Features are not required to carry every attribute.
	Schema []string

	// Features are the layer's features in source order.
	Features []Feature
}

// NewLayer creates an empty layer with the given name.
func NewLayer(name string) *Layer {
	return &Layer{Name: name}
}

// LayerNameFromPath derives a layer name from a file path: the base name
// without its extension.
func LayerNameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Len returns the number of features.
func (l *Layer) Len() int {
	return len(l.Features)
}

// Add appends a feature and extends the schema with any new attribute names.
func (l *Layer) Add(f Feature) {
	l.Features = append(l.Features, f)
	l.extendSchema(f.Attributes)
}

func (l *Layer) extendSchema(attrs Attributes) {
	if len(attrs) == 0 {
		return
	}
	known := make(map[string]struct{}, len(l.Schema))
	for _, name := range l.Schema {
		known[name] = struct{}{}
	}
	for _, name := range attrs.Keys() {
		if _, ok := known[name]; !ok {
			l.Schema = append(l.Schema, name)
		}
	}
}

// Bounds returns the union of all feature bounds.
func (l *Layer) Bounds() Bounds {
	b := EmptyBounds()
	for i := range l.Features {
		if l.Features[i].Geometry == nil {
			continue
		}
		b = b.Union(l.Features[i].Bounds())
	}
	return b
}

// derive returns an empty layer that keeps this layer's CRS, source and schema
// under a new name.
func (l *Layer) derive(name string) *Layer {
	schema := make([]string, len(l.Schema))
	copy(schema, l.Schema)
	return &Layer{
		Name:   name,
		Source: l.Source,
		CRS:    l.CRS,
		Schema: schema,
	}
}
