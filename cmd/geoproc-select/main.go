// Command geoproc-select keeps the river features that touch a point.
//
// Usage:
//
//	geoproc-select --input_path data/stations --river_path data/rivers --save_path out
//
// Every point layer is tested against every river layer and the selected
// river features are written to <save_path>/<points>_<river>.geojson.
// Pairings with no selected feature are not written unless --write_empty is
// set. Every flag can also be set with a GEOPROC_<FLAG> environment variable
// or in a .env file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/beetlebugorg/geoproc/internal/cli"
	"github.com/beetlebugorg/geoproc/internal/metrics"
	"github.com/beetlebugorg/geoproc/internal/pipeline"
	"github.com/beetlebugorg/geoproc/pkg/geoproc"
)

func main() {
	os.Exit(run())
}

func run() int {
	cli.LoadEnv()
	env := cli.NewEnv()

	var (
		inputPath      = flag.String("input_path", env.String("input_path", ""), "Point layer file or directory")
		riverPath      = flag.String("river_path", env.String("river_path", ""), "River layer file or directory")
		savePath       = flag.String("save_path", env.String("save_path", ""), "Directory to write selected layers to")
		writeEmpty     = flag.Bool("write_empty", env.Bool("write_empty", false), "Also write layers with no selected features")
		searchDistance = flag.Float64("search_distance", env.Float("search_distance", 0), "Select rivers within this distance of a point")
		tolerance      = flag.Float64("tolerance", env.Float("tolerance", geoproc.DefaultTolerance), "Gap still counted as an intersection")
		sameCRS        = flag.Bool("require_same_crs", env.Bool("require_same_crs", false), "Fail river layers whose CRS differs from the point layer's")
		cacheLayers    = flag.Int("cache_layers", env.Int("cache_layers", geoproc.DefaultCacheLayers), "Decoded river layers kept in memory")
		workers        = flag.Int("workers", env.Int("workers", 0), "River layers processed concurrently (0 = number of CPUs)")
		verbose        = flag.Bool("verbose", env.Bool("verbose", false), "Enable debug logging")
		logJSON        = flag.Bool("log_json", env.Bool("log_json", false), "Log JSON lines instead of text")
		progress       = flag.Bool("progress", env.Bool("progress", cli.IsTerminal(os.Stderr)), "Show a progress counter on stderr (default on when stderr is a terminal)")
		metricsFile    = flag.String("metrics_file", env.String("metrics_file", ""), "Write Prometheus metrics to this file after the run")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s --input_path DIR --river_path DIR --save_path DIR [flags]\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	log, err := cli.NewLogger(*verbose, *logJSON)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return pipeline.ExitFatal
	}
	if err := env.Err(); err != nil {
		log.Error("invalid environment", zap.Error(err))
		_ = log.Sync()
		return pipeline.ExitFatal
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := pipeline.SelectConfig{
		InputPath:      *inputPath,
		RiverPath:      *riverPath,
		SavePath:       *savePath,
		WriteEmpty:     *writeEmpty,
		SearchDistance: *searchDistance,
		Tolerance:      *tolerance,
		RequireSameCRS: *sameCRS,
		CacheLayers:    *cacheLayers,
		Workers:        *workers,
		Progress:       cli.Progress(os.Stderr, "Processing", *progress),
	}

	m := metrics.New()
	report, err := pipeline.RunSelect(ctx, cfg, log, m)
	if geoproc.IsConfigError(err) {
		log.Error("invalid configuration", zap.Error(err))
		flag.Usage()
		_ = log.Sync()
		return pipeline.ExitFatal
	}
	return cli.Finish(log, report, err, m, *metricsFile)
}
