// Package pipeline runs the buffer and select transforms over directories of
// layer files.
//
// Each input file is an independent task: a file that cannot be read, or
// whose output cannot be written, fails alone and is recorded in the run
// Report while the other files are processed. Only configuration errors
// stop a run before it starts.
package pipeline

import (
	"math"
	"os"
	"strings"

	"github.com/beetlebugorg/geoproc/pkg/geoproc"
)

// DefaultExtensions are the file extensions read as layers.
var DefaultExtensions = []string{".geojson", ".json"}

// BufferConfig configures a buffer run.
type BufferConfig struct {
	// InputPath is a layer file or a directory searched recursively.
	InputPath string

	// OutputPath is the directory buffered layers are written to. The input
	// directory structure is mirrored below it.
	OutputPath string

	// Distance is the buffer distance in layer units. Must be positive.
	Distance float64

	// QuadrantSegments is passed to the buffer engine. 0 uses the default.
	QuadrantSegments int

	// SaveProject writes a project manifest next to every buffered layer.
	SaveProject bool

	// Workers is the number of files processed concurrently.
	// If 0, defaults to runtime.NumCPU().
	Workers int

	// Extensions overrides DefaultExtensions.
	Extensions []string

	// Progress is called after each file with the number of finished files.
	Progress func(done, total int)
}

// Validate checks the configuration before any file is touched.
func (c *BufferConfig) Validate() error {
	if err := checkInput("input_path", c.InputPath); err != nil {
		return err
	}
	if strings.TrimSpace(c.OutputPath) == "" {
		return &geoproc.ConfigError{Field: "output_path", Reason: "required"}
	}
	if math.IsNaN(c.Distance) || math.IsInf(c.Distance, 0) {
		return &geoproc.ConfigError{Field: "distance", Reason: "must be a finite number"}
	}
	if c.Distance <= 0 {
		return &geoproc.ConfigError{Field: "distance", Reason: "must be positive"}
	}
	if c.QuadrantSegments < 0 {
		return &geoproc.ConfigError{Field: "quadrant_segments", Reason: "must not be negative"}
	}
	if c.Workers < 0 {
		return &geoproc.ConfigError{Field: "workers", Reason: "must not be negative"}
	}
	return nil
}

// SelectConfig configures a select run.
type SelectConfig struct {
	// InputPath is a point layer file or a directory of point layers.
	InputPath string

	// RiverPath is a river layer file or a directory of river layers.
	RiverPath string

	// SavePath is the directory selected layers are written to.
	SavePath string

	// WriteEmpty also writes outputs with no selected features.
	WriteEmpty bool

	// SearchDistance and Tolerance are passed to the selector.
	SearchDistance float64
	Tolerance      float64

	// RequireSameCRS fails river layers whose CRS differs from the point layer's.
	RequireSameCRS bool

	// CacheLayers is the number of decoded river layers kept in memory.
	// 0 uses geoproc.DefaultCacheLayers.
	CacheLayers int

	// Workers is the number of river layers processed concurrently.
	// If 0, defaults to runtime.NumCPU().
	Workers int

	// Extensions overrides DefaultExtensions.
	Extensions []string

	// Progress is called after each point/river pairing with the number of
	// finished pairings.
	Progress func(done, total int)
}

// Validate checks the configuration before any file is touched.
func (c *SelectConfig) Validate() error {
	if err := checkInput("input_path", c.InputPath); err != nil {
		return err
	}
	if err := checkInput("river_path", c.RiverPath); err != nil {
		return err
	}
	if strings.TrimSpace(c.SavePath) == "" {
		return &geoproc.ConfigError{Field: "save_path", Reason: "required"}
	}
	for _, v := range []struct {
		field string
		value float64
	}{
		{"search_distance", c.SearchDistance},
		{"tolerance", c.Tolerance},
	} {
		if math.IsNaN(v.value) || math.IsInf(v.value, 0) || v.value < 0 {
			return &geoproc.ConfigError{Field: v.field, Reason: "must be a finite, non-negative number"}
		}
	}
	if c.CacheLayers < 0 {
		return &geoproc.ConfigError{Field: "cache_layers", Reason: "must not be negative"}
	}
	if c.Workers < 0 {
		return &geoproc.ConfigError{Field: "workers", Reason: "must not be negative"}
	}
	return nil
}

func (c *SelectConfig) selectOptions() geoproc.SelectOptions {
	return geoproc.SelectOptions{
		Tolerance:          c.Tolerance,
		SearchDistance:     c.SearchDistance,
		Workers:            c.Workers,
		RequireMatchingCRS: c.RequireSameCRS,
	}
}

func checkInput(field, path string) error {
	if strings.TrimSpace(path) == "" {
		return &geoproc.ConfigError{Field: field, Reason: "required"}
	}
	if _, err := os.Stat(path); err != nil {
		return &geoproc.ConfigError{Field: field, Reason: err.Error()}
	}
	return nil
}
