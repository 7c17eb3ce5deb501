// Package geoproc provides batch transforms over vector geometry layers.
//
// Two transforms are provided. Buffer replaces every feature's geometry with
// the area within a fixed distance of it. Select keeps the features of river
// layers that intersect at least one feature of a point layer. Both read and
// write layers through a Codec; GeoJSONCodec is the built-in format.
//
// # Basic Usage
//
//	codec := geoproc.NewGeoJSONCodec()
//	rivers, err := codec.Read("data/rivers.geojson")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := geoproc.Buffer(rivers, 250, geoproc.DefaultBufferOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := codec.Write(res.Layer, "out/rivers_buffer.geojson"); err != nil {
//	    log.Fatal(err)
//	}
//
// # Selecting Features
//
// The point layer is indexed once with an R-tree and shared by every river
// layer:
//
//	results, err := geoproc.Select(stations, []*geoproc.Layer{rivers, streams},
//	    geoproc.DefaultSelectOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, r := range results {
//	    fmt.Printf("%s: %d of %d features\n", r.Layer.Name, r.Matched(), len(rivers.Features))
//	}
//
// # Units
//
// Distances and tolerances are in the layer's coordinate units. Layers are
// expected in a projected CRS; geographic coordinates are treated as planar
// and no reprojection is done. CRS identifiers are carried through to
// outputs unchanged.
//
// # Errors
//
// Invalid options return *ConfigError before any work starts. Features with
// invalid geometry are skipped and reported as FeatureSkip values next to
// the output; they never fail the layer. File failures are *ReadError and
// *WriteError.
//
// # Thread Safety
//
// Layers are not modified by the transforms. SpatialIndex, Selector and
// LayerCache are safe for concurrent use.
package geoproc
