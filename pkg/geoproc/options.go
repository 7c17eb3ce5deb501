package geoproc

import "runtime"

// DefaultQuadrantSegments is the number of straight segments used to
// approximate a quarter circle in buffer outlines.
const DefaultQuadrantSegments = 5

// BufferSuffix is appended to a layer's name to name its buffered output.
const BufferSuffix = "_buffer"

// BufferOptions configures the buffer engine.
type BufferOptions struct {
	// QuadrantSegments is the number of segments per quarter circle used for
	// round caps, joins and point discs. Values below 1 use
	// DefaultQuadrantSegments.
	QuadrantSegments int

	// Suffix is appended to the input layer name to form the output name.
	// Empty uses BufferSuffix.
	Suffix string
}

// DefaultBufferOptions returns buffer options with defaults.
func DefaultBufferOptions() BufferOptions {
	return BufferOptions{
		QuadrantSegments: DefaultQuadrantSegments,
		Suffix:           BufferSuffix,
	}
}

func (o BufferOptions) withDefaults() BufferOptions {
	if o.QuadrantSegments < 1 {
		o.QuadrantSegments = DefaultQuadrantSegments
	}
	if o.Suffix == "" {
		o.Suffix = BufferSuffix
	}
	return o
}

// SelectOptions configures the intersection selector.
type SelectOptions struct {
	// Tolerance is the gap under which a river and a point still count as
	// intersecting. Zero uses DefaultTolerance.
	Tolerance float64

	// SearchDistance selects rivers within this distance of a point, which is
	// the same as intersecting the point's buffer. Zero selects only rivers
	// that touch a point.
	SearchDistance float64

	// Workers is the number of river layers processed concurrently.
	// If 0, defaults to runtime.NumCPU().
	Workers int

	// RequireMatchingCRS fails a river layer whose CRS differs from the
	// point layer's CRS instead of selecting it.
	RequireMatchingCRS bool
}

// DefaultSelectOptions returns select options with sensible defaults.
func DefaultSelectOptions() SelectOptions {
	return SelectOptions{
		Tolerance: DefaultTolerance,
		Workers:   runtime.NumCPU(),
	}
}

func (o SelectOptions) withDefaults() SelectOptions {
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	return o
}

// reach is the distance within which a point selects a river.
func (o SelectOptions) reach() float64 {
	if o.SearchDistance > o.Tolerance {
		return o.SearchDistance
	}
	return o.Tolerance
}
