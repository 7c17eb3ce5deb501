package geoproc

import (
	"errors"
	"fmt"
)

// ErrCRSMismatch indicates a river layer's CRS differs from the point layer's
// while SelectOptions.RequireMatchingCRS is set.
var ErrCRSMismatch = errors.New("coordinate reference systems differ")

// ConfigError indicates invalid configuration: a bad distance, a missing
// path or a missing input layer. It is fatal and detected before any
// processing begins.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// GeometryError indicates a geometry that cannot be buffered or tested,
// such as an empty coordinate sequence or an unsupported variant.
type GeometryError struct {
	Kind   GeometryKind
	Reason string
}

func (e *GeometryError) Error() string {
	if e.Kind != GeometryUnknown {
		return fmt.Sprintf("invalid geometry (%v): %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("invalid geometry: %s", e.Reason)
}

// ReadError indicates a layer file could not be read or decoded.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// WriteError indicates a layer file could not be encoded or written.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// FeatureSkip records a feature that was left out of an output layer.
type FeatureSkip struct {
	Layer string // Name of the layer the feature belongs to
	Index int    // Position of the feature in its layer
	Err   error  // Why the feature was skipped
}

func (s FeatureSkip) String() string {
	return fmt.Sprintf("%s[%d]: %v", s.Layer, s.Index, s.Err)
}

// IsConfigError reports whether err is or wraps a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsGeometryError reports whether err is or wraps a GeometryError.
func IsGeometryError(err error) bool {
	var ge *GeometryError
	return errors.As(err, &ge)
}
