// Command geoproc-buffer buffers every layer file in a directory.
//
// Usage:
//
//	geoproc-buffer --input_path data/rivers --output_path out --distance 250
//
// Each input <dir>/<name>.geojson is written to
// <output_path>/<dir>/<name>_buffer.geojson. Every flag can also be set with
// a GEOPROC_<FLAG> environment variable or in a .env file.
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
		inputPath   = flag.String("input_path", env.String("input_path", ""), "Layer file or directory of layers to buffer")
		outputPath  = flag.String("output_path", env.String("output_path", ""), "Directory to write buffered layers to")
		distance    = flag.Float64("distance", env.Float("distance", 0), "Buffer distance in layer units")
		saveProject = flag.Bool("save_project_with_layers", env.Bool("save_project_with_layers", false), "Write a project manifest next to each buffered layer")
		segments    = flag.Int("quadrant_segments", env.Int("quadrant_segments", geoproc.DefaultQuadrantSegments), "Segments per quarter circle")
		workers     = flag.Int("workers", env.Int("workers", 0), "Files processed concurrently (0 = number of CPUs)")
		verbose     = flag.Bool("verbose", env.Bool("verbose", false), "Enable debug logging")
		logJSON     = flag.Bool("log_json", env.Bool("log_json", false), "Log JSON lines instead of text")
		progress    = flag.Bool("progress", env.Bool("progress", cli.IsTerminal(os.Stderr)), "Show a progress counter on stderr (default on when stderr is a terminal)")
		metricsFile = flag.String("metrics_file", env.String("metrics_file", ""), "Write Prometheus metrics to this file after the run")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s --input_path DIR --output_path DIR --distance D [flags]\n\n", os.Args[0])
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

	cfg := pipeline.BufferConfig{
		InputPath:        *inputPath,
		OutputPath:       *outputPath,
		Distance:         *distance,
		QuadrantSegments: *segments,
		SaveProject:      *saveProject,
		Workers:          *workers,
		Progress:         cli.Progress(os.Stderr, "Buffering", *progress),
	}

	m := metrics.New()
	report, err := pipeline.RunBuffer(ctx, cfg, log, m)
	if geoproc.IsConfigError(err) {
		log.Error("invalid configuration", zap.Error(err))
		flag.Usage()
		_ = log.Sync()
		return pipeline.ExitFatal
	}
	return cli.Finish(log, report, err, m, *metricsFile)
}
