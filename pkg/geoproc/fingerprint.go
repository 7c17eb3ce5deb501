package geoproc

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/paulmach/orb"
)

// Fingerprint returns a 64-bit digest of the layer's features: IDs,
// geometry variants, coordinates and attributes, in feature order.
//
// Two layers with equal fingerprints hold the same features in the same
// order. The name, source and CRS are not included, so a layer read back
// from a file it was written to keeps its fingerprint.
func (l *Layer) Fingerprint() uint64 {
	d := xxhash.New()
	var buf [8]byte

	putUint := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		d.Write(buf[:])
	}
	putFloat := func(f float64) {
		putUint(math.Float64bits(f))
	}
	putString := func(s string) {
		putUint(uint64(len(s)))
		d.WriteString(s)
	}
	putValue := func(v Value) {
		putUint(uint64(v.Kind()))
		switch v.Kind() {
		case KindString:
			s, _ := v.Str()
			putString(s)
		case KindNumber:
			n, _ := v.Num()
			putFloat(n)
		case KindBool:
			if b, _ := v.Boolean(); b {
				putUint(1)
			} else {
				putUint(0)
			}
		}
	}
	putPoints := func(pts []orb.Point) {
		putUint(uint64(len(pts)))
		for _, p := range pts {
			putFloat(p[0])
			putFloat(p[1])
		}
	}

	putUint(uint64(len(l.Features)))
	for i := range l.Features {
		f := &l.Features[i]
		putValue(f.ID)
		putUint(uint64(GeometryKindOf(f.Geometry)))

		switch g := f.Geometry.(type) {
		case orb.Point:
			putPoints([]orb.Point{g})
		case orb.MultiPoint:
			putPoints(g)
		case orb.LineString:
			putPoints(g)
		case orb.MultiLineString:
			putUint(uint64(len(g)))
			for _, ls := range g {
				putPoints(ls)
			}
		case orb.Polygon:
			putUint(uint64(len(g)))
			for _, r := range g {
				putPoints(r)
			}
		case orb.MultiPolygon:
			putUint(uint64(len(g)))
			for _, poly := range g {
				putUint(uint64(len(poly)))
				for _, r := range poly {
					putPoints(r)
				}
			}
		}

		keys := f.Attributes.Keys()
		putUint(uint64(len(keys)))
		for _, k := range keys {
			putString(k)
			putValue(f.Attributes[k])
		}
	}

	return d.Sum64()
}
