// Package metrics collects Prometheus counters for a pipeline run.
//
// The tools are batch jobs, so nothing is served over HTTP. At the end of a
// run the registry is written in the text exposition format to a file that
// node_exporter's textfile collector can pick up.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Run labels.
const (
	OpBuffer = "buffer"
	OpSelect = "select"
)

// Provider owns a private registry and the run metrics registered in it.
// A nil *Provider is valid and records nothing.
type Provider struct {
	reg *prometheus.Registry

	features     *prometheus.CounterVec
	skipped      *prometheus.CounterVec
	layers       *prometheus.CounterVec
	layersFailed *prometheus.CounterVec
	filesWritten *prometheus.CounterVec
	layerSeconds *prometheus.HistogramVec
	cacheLookups *prometheus.CounterVec
	runInfo      *prometheus.GaugeVec
}

// New registers the run metrics in a fresh registry.
func New() *Provider {
	reg := prometheus.NewRegistry()

	p := &Provider{
		reg: reg,
		features: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geoproc_features_total",
				Help: "Features written to output layers.",
			},
			[]string{"op"},
		),
		skipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geoproc_features_skipped_total",
				Help: "Features left out of output layers because of invalid geometry.",
			},
			[]string{"op"},
		),
		layers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geoproc_layers_total",
				Help: "Layers processed successfully.",
			},
			[]string{"op"},
		),
		layersFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geoproc_layers_failed_total",
				Help: "Layers that failed entirely.",
			},
			[]string{"op"},
		),
		filesWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geoproc_files_written_total",
				Help: "Output files written.",
			},
			[]string{"op"},
		),
		layerSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "geoproc_layer_seconds",
				Help:    "Time spent processing one layer.",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"op"},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geoproc_layer_cache_lookups_total",
				Help: "River layer cache lookups by result.",
			},
			[]string{"result"},
		),
		runInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "geoproc_run_info",
				Help: "Run identity (value is always 1).",
			},
			[]string{"op", "run_id"},
		),
	}

	reg.MustRegister(
		p.features, p.skipped, p.layers, p.layersFailed,
		p.filesWritten, p.layerSeconds, p.cacheLookups, p.runInfo,
	)
	return p
}

// Registry returns the registry holding the run metrics.
func (p *Provider) Registry() *prometheus.Registry {
	if p == nil {
		return nil
	}
	return p.reg
}

// RunStarted records the run ID of the operation.
func (p *Provider) RunStarted(op, runID string) {
	if p == nil {
		return
	}
	p.runInfo.WithLabelValues(op, runID).Set(1)
}

// LayerDone records one successfully processed layer.
func (p *Provider) LayerDone(op string, features, skipped int, elapsed time.Duration) {
	if p == nil {
		return
	}
	p.layers.WithLabelValues(op).Inc()
	p.features.WithLabelValues(op).Add(float64(features))
	p.skipped.WithLabelValues(op).Add(float64(skipped))
	p.layerSeconds.WithLabelValues(op).Observe(elapsed.Seconds())
}

// LayerFailed records a layer that produced no output.
func (p *Provider) LayerFailed(op string) {
	if p == nil {
		return
	}
	p.layersFailed.WithLabelValues(op).Inc()
}

// FileWritten records an output file.
func (p *Provider) FileWritten(op string) {
	if p == nil {
		return
	}
	p.filesWritten.WithLabelValues(op).Inc()
}

// CacheLookups records layer cache hits and misses.
func (p *Provider) CacheLookups(hits, misses int64) {
	if p == nil {
		return
	}
	p.cacheLookups.WithLabelValues("hit").Add(float64(hits))
	p.cacheLookups.WithLabelValues("miss").Add(float64(misses))
}

// WriteTextfile writes every metric to path in the Prometheus text format.
// The file is replaced atomically.
func (p *Provider) WriteTextfile(path string) error {
	if p == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, p.reg)
}
