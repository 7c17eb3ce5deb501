package main

import (
	"fmt"
	"log"

	"github.com/beetlebugorg/geoproc/pkg/geoproc"
)

func main() {
	codec := geoproc.NewGeoJSONCodec()

	stations, err := codec.Read("stations.geojson")
	if err != nil {
		log.Fatal(err)
	}
	rivers, err := codec.Read("rivers.geojson")
	if err != nil {
		log.Fatal(err)
	}

	// Index the stations once and query a window (O(log n))
	idx := geoproc.BuildIndex(stations)
	window := geoproc.Bounds{
		MinX: 500000, MinY: 4600000,
		MaxX: 510000, MaxY: 4610000,
	}
	fmt.Printf("Stations in window: %d\n", len(idx.Query(window)))

	// Keep river features within 50 units of any station
	opts := geoproc.DefaultSelectOptions()
	opts.SearchDistance = 50

	results, err := geoproc.Select(stations, []*geoproc.Layer{rivers}, opts)
	if err != nil {
		log.Fatal(err)
	}

	for _, res := range results {
		if res.Err != nil {
			fmt.Printf("  %s: %v\n", res.River, res.Err)
			continue
		}
		fmt.Printf("  %s: %d of %d features selected\n",
			res.River, res.Matched(), rivers.Len())
	}
}
