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

// RunSelect selects, for every point file under cfg.InputPath and every
// river file under cfg.RiverPath, the river features that intersect a
// point, and writes them to <save>/<points>_<river>.geojson.
//
// Point files are processed one at a time; the river files of each point
// file run concurrently against one shared index of its points. Decoded
// river layers are kept in an LRU cache across point files. Outputs with
// no selected features are written only when cfg.WriteEmpty is set.
//
// A point file that cannot be read fails every pairing it is part of; a
// river file that cannot be read fails only its own pairings.
func RunSelect(ctx context.Context, cfg SelectConfig, log *zap.Logger, m *metrics.Provider) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	pointPaths, err := ListLayers(cfg.InputPath, cfg.Extensions)
	if err != nil {
		return nil, err
	}
	riverPaths, err := ListLayers(cfg.RiverPath, cfg.Extensions)
	if err != nil {
		return nil, err
	}

	report := newReport(metrics.OpSelect)
	m.RunStarted(metrics.OpSelect, report.RunID)
	log = log.With(zap.String("run_id", report.RunID))
	log.Info("select run started",
		zap.String("input", cfg.InputPath),
		zap.String("rivers", cfg.RiverPath),
		zap.String("save", cfg.SavePath),
		zap.Int("point_files", len(pointPaths)),
		zap.Int("river_files", len(riverPaths)),
	)
	if len(riverPaths) == 0 {
		log.Warn("no river layers found", zap.String("path", cfg.RiverPath))
	}

	s := &selectRun{
		cfg:    cfg,
		codec:  geoproc.NewGeoJSONCodec(),
		cache:  geoproc.NewLayerCache(cfg.CacheLayers),
		rivers: riverPaths,
		total:  len(pointPaths) * len(riverPaths),
		report: report,
		log:    log,
		m:      m,
	}

	for _, path := range pointPaths {
		if ctx.Err() != nil {
			break
		}
		s.pointFile(ctx, path)
	}

	stats := s.cache.Stats()
	m.CacheLookups(stats.Hits, stats.Misses)
	log.Debug("river cache", zap.Int64("hits", stats.Hits), zap.Int64("misses", stats.Misses), zap.Int64("evicted", stats.Evicted))

	report.finish()
	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("select run interrupted: %w", err)
	}
	return report, nil
}

type selectRun struct {
	cfg    SelectConfig
	codec  geoproc.Codec
	cache  *geoproc.LayerCache
	rivers []string
	total  int
	done   int
	report *Report
	log    *zap.Logger
	m      *metrics.Provider
}

// pointFile runs every river file against one point file.
func (s *selectRun) pointFile(ctx context.Context, path string) {
	offset := s.done
	s.done += len(s.rivers)
	progress := func(done, _ int) {
		if s.cfg.Progress != nil {
			s.cfg.Progress(offset+done, s.total)
		}
	}

	s.log.Debug("reading point layer", zap.String("path", path))
	points, err := s.codec.Read(path)
	if err != nil {
		name := geoproc.LayerNameFromPath(path)
		for i, river := range s.rivers {
			s.fail(name+"_"+geoproc.LayerNameFromPath(river), path, err)
			progress(i+1, len(s.rivers))
		}
		return
	}

	sel, err := geoproc.NewSelector(points, s.cfg.selectOptions())
	if err != nil {
		for i, river := range s.rivers {
			s.fail(points.Name+"_"+geoproc.LayerNameFromPath(river), path, err)
			progress(i+1, len(s.rivers))
		}
		return
	}
	s.report.addSkips(sel.PointSkips())
	s.log.Debug("point layer indexed",
		zap.String("layer", points.Name),
		zap.Int("indexed", sel.Index().Len()),
		zap.Int("skipped", len(sel.PointSkips())),
	)

	geoproc.RunParallel(len(s.rivers), geoproc.ParallelOptions{
		Workers:    s.cfg.Workers,
		SkipErrors: true,
		Progress:   progress,
	}, func(i int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return s.pairing(sel, points, s.rivers[i])
	})
}

// pairing selects one river file against the indexed points and writes the
// result.
func (s *selectRun) pairing(sel *geoproc.Selector, points *geoproc.Layer, riverPath string) error {
	start := time.Now()
	outName := points.Name + "_" + geoproc.LayerNameFromPath(riverPath)
	outPath := filepath.Join(s.cfg.SavePath, outName+geoproc.GeoJSONExtension)

	if prev, ok := s.report.claim(outPath, points.Source+" + "+riverPath); !ok {
		return s.fail(outName, riverPath, fmt.Errorf("output %s already written for %s", outPath, prev))
	}

	river, err := s.cache.Get(riverPath, func() (*geoproc.Layer, error) {
		s.log.Debug("reading river layer", zap.String("path", riverPath))
		return s.codec.Read(riverPath)
	})
	if err != nil {
		return s.fail(outName, riverPath, err)
	}
	if !s.cfg.RequireSameCRS && river.CRS != points.CRS {
		s.log.Warn("crs mismatch",
			zap.String("layer", outName),
			zap.String("points_crs", points.CRS),
			zap.String("river_crs", river.CRS),
		)
	}

	res := sel.SelectLayer(river)
	if res.Err != nil {
		return s.fail(outName, riverPath, res.Err)
	}

	var written []string
	if res.Matched() > 0 || s.cfg.WriteEmpty {
		if err := s.codec.Write(res.Layer, outPath); err != nil {
			return s.fail(outName, riverPath, err)
		}
		s.m.FileWritten(metrics.OpSelect)
		written = append(written, outPath)
	} else {
		s.report.emptyOutput()
		s.log.Debug("no features selected", zap.String("layer", outName))
	}

	elapsed := time.Since(start)
	s.report.layerDone(res.Matched(), res.Skipped, written...)
	s.m.LayerDone(metrics.OpSelect, res.Matched(), len(res.Skipped), elapsed)
	s.log.Debug("river layer selected",
		zap.String("layer", outName),
		zap.Int("selected", res.Matched()),
		zap.Int("of", river.Len()),
		zap.Int("skipped", len(res.Skipped)),
		zap.Duration("elapsed", elapsed),
	)
	return nil
}

func (s *selectRun) fail(layer, path string, err error) error {
	s.report.fail(layer, path, err)
	s.m.LayerFailed(metrics.OpSelect)
	s.log.Warn("pairing failed", zap.String("layer", layer), zap.String("path", path), zap.Error(err))
	return err
}
