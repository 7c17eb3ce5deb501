package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/beetlebugorg/geoproc/pkg/geoproc"
)

// ManifestSuffix is appended to a buffered layer's name to name its manifest.
const ManifestSuffix = ".project.json"

// Manifest describes one buffered layer and the run that produced it.
type Manifest struct {
	RunID       string    `json:"run_id"`
	CreatedAt   time.Time `json:"created_at"`
	Layer       string    `json:"layer"`
	Source      string    `json:"source"`
	Output      string    `json:"output"`
	CRS         string    `json:"crs,omitempty"`
	Distance    float64   `json:"distance"`
	Features    int       `json:"features"`
	Skipped     int       `json:"skipped"`
	Fingerprint string    `json:"fingerprint"`
}

func newManifest(runID string, layer *geoproc.Layer, output string, distance float64, skipped int) Manifest {
	return Manifest{
		RunID:       runID,
		CreatedAt:   time.Now().UTC(),
		Layer:       layer.Name,
		Source:      layer.Source,
		Output:      output,
		CRS:         layer.CRS,
		Distance:    distance,
		Features:    layer.Len(),
		Skipped:     skipped,
		Fingerprint: strconv.FormatUint(layer.Fingerprint(), 16),
	}
}

// WriteManifest writes m as indented JSON to path.
func WriteManifest(path string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return &geoproc.WriteError{Path: path, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &geoproc.WriteError{Path: path, Err: err}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return &geoproc.WriteError{Path: path, Err: err}
	}
	return nil
}

// ReadManifest reads a manifest written by WriteManifest.
func ReadManifest(path string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return m, &geoproc.ReadError{Path: path, Err: err}
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, &geoproc.ReadError{Path: path, Err: fmt.Errorf("decode manifest: %w", err)}
	}
	return m, nil
}
