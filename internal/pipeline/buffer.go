package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/beetlebugorg/geoproc/internal/metrics"
	"github.com/beetlebugorg/geoproc/pkg/geoproc"
)

// RunBuffer buffers every layer file under cfg.InputPath and writes the
// results below cfg.OutputPath.
//
// A file <dir>/<name>.geojson becomes <output>/<dir>/<name>_buffer.geojson.
// Layers are processed concurrently on cfg.Workers goroutines. The returned
// error is non-nil only for configuration errors, for an input directory
// that cannot be listed, and for cancellation; per-file failures are in the
// Report.
func RunBuffer(ctx context.Context, cfg BufferConfig, log *zap.Logger, m *metrics.Provider) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	paths, err := ListLayers(cfg.InputPath, cfg.Extensions)
	if err != nil {
		return nil, err
	}

	report := newReport(metrics.OpBuffer)
	m.RunStarted(metrics.OpBuffer, report.RunID)
	log = log.With(zap.String("run_id", report.RunID))
	log.Info("buffer run started",
		zap.String("input", cfg.InputPath),
		zap.String("output", cfg.OutputPath),
		zap.Float64("distance", cfg.Distance),
		zap.Int("files", len(paths)),
	)

	b := &bufferRun{
		cfg:    cfg,
		codec:  geoproc.NewGeoJSONCodec(),
		opts:   geoproc.BufferOptions{QuadrantSegments: cfg.QuadrantSegments},
		report: report,
		log:    log,
		m:      m,
	}

	geoproc.RunParallel(len(paths), geoproc.ParallelOptions{
		Workers:    cfg.Workers,
		SkipErrors: true,
		Progress:   cfg.Progress,
	}, func(i int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return b.file(paths[i])
	})

	report.finish()
	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("buffer run interrupted: %w", err)
	}
	return report, nil
}

type bufferRun struct {
	cfg    BufferConfig
	codec  geoproc.Codec
	opts   geoproc.BufferOptions
	report *Report
	log    *zap.Logger
	m      *metrics.Provider
}

// file buffers one layer file. Failures are recorded in the report and
// also returned so the worker pool can log them.
func (b *bufferRun) file(path string) error {
	start := time.Now()
	name := geoproc.LayerNameFromPath(path)
	outDir := filepath.Join(b.cfg.OutputPath, relativeDir(b.cfg.InputPath, path))
	outName := name + geoproc.BufferSuffix
	outPath := filepath.Join(outDir, outName+geoproc.GeoJSONExtension)

	fail := func(err error) error {
		b.report.fail(outName, path, err)
		b.m.LayerFailed(metrics.OpBuffer)
		b.log.Warn("layer failed", zap.String("path", path), zap.Error(err))
		return err
	}

	if prev, ok := b.report.claim(outPath, path); !ok {
		return fail(fmt.Errorf("output %s already written for %s", outPath, prev))
	}

	b.log.Debug("reading layer", zap.String("path", path))
	layer, err := b.codec.Read(path)
	if err != nil {
		return fail(err)
	}

	res, err := geoproc.Buffer(layer, b.cfg.Distance, b.opts)
	if err != nil {
		return fail(err)
	}
	for _, s := range res.Skipped {
		b.log.Debug("feature skipped", zap.String("layer", s.Layer), zap.Int("index", s.Index), zap.Error(s.Err))
	}

	if err := b.codec.Write(res.Layer, outPath); err != nil {
		return fail(err)
	}
	b.m.FileWritten(metrics.OpBuffer)
	written := []string{outPath}

	if b.cfg.SaveProject {
		manifestPath := filepath.Join(outDir, outName+ManifestSuffix)
		manifest := newManifest(b.report.RunID, res.Layer, outPath, b.cfg.Distance, len(res.Skipped))
		if err := WriteManifest(manifestPath, manifest); err != nil {
			return fail(err)
		}
		b.m.FileWritten(metrics.OpBuffer)
		written = append(written, manifestPath)
	}

	elapsed := time.Since(start)
	b.report.layerDone(res.Layer.Len(), res.Skipped, written...)
	b.m.LayerDone(metrics.OpBuffer, res.Layer.Len(), len(res.Skipped), elapsed)
	b.log.Debug("layer buffered",
		zap.String("layer", res.Layer.Name),
		zap.String("output", outPath),
		zap.Int("features", res.Layer.Len()),
		zap.Int("skipped", len(res.Skipped)),
		zap.Duration("elapsed", elapsed),
	)
	return nil
}
