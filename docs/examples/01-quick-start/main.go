package main

import (
	"fmt"
	"log"

	"github.com/beetlebugorg/geoproc/pkg/geoproc"
)

func main() {
	codec := geoproc.NewGeoJSONCodec()

	// Read a layer
	rivers, err := codec.Read("rivers.geojson")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Layer: %s\n", rivers.Name)
	fmt.Printf("Features: %d\n", rivers.Len())

	// Buffer every feature by 100 layer units
	res, err := geoproc.Buffer(rivers, 100, geoproc.DefaultBufferOptions())
	if err != nil {
		log.Fatal(err)
	}
	for _, skip := range res.Skipped {
		fmt.Printf("  skipped: %v\n", skip)
	}

	// Write rivers_buffer.geojson
	if err := codec.Write(res.Layer, res.Layer.Name+".geojson"); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Wrote %s (%d features)\n", res.Layer.Name, res.Layer.Len())
}
