package pipeline

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/beetlebugorg/geoproc/pkg/geoproc"
)

// Exit codes returned by Report.ExitCode and the command line tools.
const (
	ExitOK             = 0
	ExitFatal          = 1
	ExitLayerFailed    = 2
	ExitFeatureSkipped = 3
)

// Failure is a layer, or a point/river pairing, that produced no output.
type Failure struct {
	Layer string // Output layer name
	Path  string // Input file that failed
	Err   error
}

// Report summarizes a run. It is safe for concurrent use while the run is
// in progress; read its fields only after the run returns.
type Report struct {
	Op    string
	RunID string

	Layers   int                   // Layers or pairings processed successfully
	Features int                   // Features written to outputs
	Empty    int                   // Outputs not written because nothing was selected
	Skips    []geoproc.FeatureSkip // Features left out of outputs
	Failures []Failure
	Written  []string // Output files, sorted
	Elapsed  time.Duration

	mu      sync.Mutex
	started time.Time
	outputs map[string]string // output path -> input path that claimed it
}

func newReport(op string) *Report {
	return &Report{
		Op:      op,
		RunID:   uuid.NewString(),
		started: time.Now(),
		outputs: make(map[string]string),
	}
}

// claim reserves an output path for an input. It returns the input that
// already claimed the path, if any.
func (r *Report) claim(output, input string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.outputs[output]; ok {
		return prev, false
	}
	r.outputs[output] = input
	return "", true
}

func (r *Report) layerDone(features int, skips []geoproc.FeatureSkip, written ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Layers++
	r.Features += features
	r.Skips = append(r.Skips, skips...)
	r.Written = append(r.Written, written...)
}

func (r *Report) addSkips(skips []geoproc.FeatureSkip) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Skips = append(r.Skips, skips...)
}

func (r *Report) emptyOutput() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Empty++
}

func (r *Report) fail(layer, path string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Failures = append(r.Failures, Failure{Layer: layer, Path: path, Err: err})
}

// finish sorts the collected entries so reports of identical runs compare equal.
func (r *Report) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Elapsed = time.Since(r.started)
	sort.Strings(r.Written)
	sort.SliceStable(r.Failures, func(i, j int) bool {
		if r.Failures[i].Path != r.Failures[j].Path {
			return r.Failures[i].Path < r.Failures[j].Path
		}
		return r.Failures[i].Layer < r.Failures[j].Layer
	})
	sort.SliceStable(r.Skips, func(i, j int) bool {
		if r.Skips[i].Layer != r.Skips[j].Layer {
			return r.Skips[i].Layer < r.Skips[j].Layer
		}
		return r.Skips[i].Index < r.Skips[j].Index
	})
}

// ExitCode maps the outcome to the process exit status: ExitLayerFailed
// when any layer failed, ExitFeatureSkipped when only features were
// skipped, ExitOK otherwise.
func (r *Report) ExitCode() int {
	switch {
	case len(r.Failures) > 0:
		return ExitLayerFailed
	case len(r.Skips) > 0:
		return ExitFeatureSkipped
	default:
		return ExitOK
	}
}

// Log writes the summary, every failure and every skipped feature.
func (r *Report) Log(log *zap.Logger) {
	for _, f := range r.Failures {
		log.Error("layer failed", zap.String("layer", f.Layer), zap.String("path", f.Path), zap.Error(f.Err))
	}
	for _, s := range r.Skips {
		log.Warn("feature skipped", zap.String("layer", s.Layer), zap.Int("index", s.Index), zap.Error(s.Err))
	}
	log.Info("run finished",
		zap.String("op", r.Op),
		zap.String("run_id", r.RunID),
		zap.Int("layers", r.Layers),
		zap.Int("features", r.Features),
		zap.Int("written", len(r.Written)),
		zap.Int("empty", r.Empty),
		zap.Int("failed", len(r.Failures)),
		zap.Int("skipped", len(r.Skips)),
		zap.Duration("elapsed", r.Elapsed),
	)
}
