package geoproc

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/paulmach/orb/geojson"
)

// Codec reads and writes layers in an external geometry file format.
type Codec interface {
	// Read decodes the file at path into a layer named after the file.
	// Failures are returned as *ReadError.
	Read(path string) (*Layer, error)

	// Write encodes the layer into the file at path, creating parent
	// directories as needed. Failures are returned as *WriteError.
	Write(layer *Layer, path string) error
}

// GeoJSONExtension is the file extension written by the GeoJSON codec.
const GeoJSONExtension = ".geojson"

// GeoJSONCodec reads and writes GeoJSON FeatureCollections.
//
// A file holding a single Feature or a bare geometry is read as a one-feature
// layer. The legacy top-level "crs" member is kept in Layer.CRS as JSON text
// and written back unchanged. Coordinates round-trip without loss.
type GeoJSONCodec struct {
	// Indent pretty-prints written files with this indent when non-empty.
	Indent string
}

// NewGeoJSONCodec returns a codec writing compact GeoJSON.
func NewGeoJSONCodec() *GeoJSONCodec {
	return &GeoJSONCodec{}
}

var errNotGeoJSON = errors.New("not a GeoJSON object")

// Read implements Codec.
func (c *GeoJSONCodec) Read(path string) (*Layer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	layer, err := DecodeGeoJSON(data, LayerNameFromPath(path))
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	layer.Source = path
	return layer, nil
}

// Write implements Codec.
func (c *GeoJSONCodec) Write(layer *Layer, path string) error {
	data, err := EncodeGeoJSON(layer, c.Indent)
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err := writeFileAtomic(path, data); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

// DecodeGeoJSON decodes a FeatureCollection, Feature or geometry into a layer.
func DecodeGeoJSON(data []byte, name string) (*Layer, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}

	layer := NewLayer(name)
	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("decode feature collection: %w", err)
		}
		if crs, ok := fc.ExtraMembers["crs"]; ok && crs != nil {
			text, err := json.Marshal(crs)
			if err != nil {
				return nil, fmt.Errorf("decode crs: %w", err)
			}
			layer.CRS = string(text)
		}
		layer.Features = make([]Feature, 0, len(fc.Features))
		for _, f := range fc.Features {
			layer.Add(featureFromGeoJSON(f))
		}

	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("decode feature: %w", err)
		}
		layer.Add(featureFromGeoJSON(f))

	case "Point", "LineString", "Polygon", "MultiPoint", "MultiLineString", "MultiPolygon", "GeometryCollection":
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("decode geometry: %w", err)
		}
		layer.Add(Feature{Geometry: g.Geometry()})

	default:
		return nil, fmt.Errorf("%w: type %q", errNotGeoJSON, head.Type)
	}

	return layer, nil
}

// EncodeGeoJSON encodes a layer as a FeatureCollection.
func EncodeGeoJSON(layer *Layer, indent string) ([]byte, error) {
	if layer == nil {
		return nil, errors.New("nil layer")
	}

	fc := geojson.NewFeatureCollection()
	for i := range layer.Features {
		fc.Append(featureToGeoJSON(&layer.Features[i]))
	}
	if layer.CRS != "" {
		fc.ExtraMembers = map[string]interface{}{"crs": crsMember(layer.CRS)}
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode feature collection: %w", err)
	}
	if indent == "" {
		return data, nil
	}

	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("indent feature collection: %w", err)
	}
	return json.MarshalIndent(v, "", indent)
}

func featureFromGeoJSON(f *geojson.Feature) Feature {
	out := Feature{
		ID:       ValueOf(f.ID),
		Geometry: f.Geometry,
	}
	if len(f.Properties) > 0 {
		out.Attributes = make(Attributes, len(f.Properties))
		for k, v := range f.Properties {
			out.Attributes[k] = ValueOf(v)
		}
	}
	return out
}

func featureToGeoJSON(f *Feature) *geojson.Feature {
	gf := geojson.NewFeature(f.Geometry)
	if !f.ID.IsNull() {
		gf.ID = f.ID.Interface()
	}
	for k, v := range f.Attributes {
		gf.Properties[k] = v.Interface()
	}
	return gf
}

// crsMember returns the value written as the "crs" member: the stored JSON
// text when it is valid JSON, otherwise a named CRS object.
func crsMember(crs string) interface{} {
	if json.Valid([]byte(crs)) {
		return json.RawMessage(crs)
	}
	return map[string]interface{}{
		"type":       "name",
		"properties": map[string]interface{}{"name": crs},
	}
}

// writeFileAtomic writes data next to path and renames it into place so a
// failed write never leaves a truncated layer behind.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
