// Package cli holds the pieces shared by the geoproc command line tools:
// environment defaults for flags, logger setup and the end-of-run summary.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"github.com/beetlebugorg/geoproc/internal/logger"
	"github.com/beetlebugorg/geoproc/internal/metrics"
	"github.com/beetlebugorg/geoproc/internal/pipeline"
	"github.com/beetlebugorg/geoproc/pkg/geoproc"
)

// EnvPrefix is prepended to upper-cased flag names to form their
// environment variable, e.g. GEOPROC_INPUT_PATH for --input_path.
const EnvPrefix = "GEOPROC_"

// LoadEnv loads .env files into the process environment. Variables that are
// already set win. Missing files are ignored.
func LoadEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

// EnvName returns the environment variable read for a flag.
func EnvName(flag string) string {
	return EnvPrefix + strings.ToUpper(flag)
}

// Env reads flag defaults from GEOPROC_* variables. Malformed values are
// collected and reported by Err; the default is used in their place.
type Env struct {
	errs []error
}

// NewEnv returns an empty environment reader.
func NewEnv() *Env {
	return &Env{}
}

func (e *Env) lookup(flag string) (string, bool) {
	v := os.Getenv(EnvName(flag))
	return v, v != ""
}

func (e *Env) invalid(flag, value, want string) {
	e.errs = append(e.errs, &geoproc.ConfigError{
		Field:  flag,
		Reason: fmt.Sprintf("%s=%q is not %s", EnvName(flag), value, want),
	})
}

// String returns the flag's environment value or def.
func (e *Env) String(flag, def string) string {
	if v, ok := e.lookup(flag); ok {
		return v
	}
	return def
}

// Float returns the flag's environment value parsed as a float, or def.
func (e *Env) Float(flag string, def float64) float64 {
	v, ok := e.lookup(flag)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.invalid(flag, v, "a number")
		return def
	}
	return f
}

// Int returns the flag's environment value parsed as an int, or def.
func (e *Env) Int(flag string, def int) int {
	v, ok := e.lookup(flag)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.invalid(flag, v, "an integer")
		return def
	}
	return n
}

// Bool returns the flag's environment value parsed as a bool, or def.
func (e *Env) Bool(flag string, def bool) bool {
	v, ok := e.lookup(flag)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.invalid(flag, v, "a boolean")
		return def
	}
	return b
}

// Err returns the malformed variables seen so far as one error, or nil.
func (e *Env) Err() error {
	return errors.Join(e.errs...)
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// NewLogger builds the tool logger: debug level when verbose, JSON lines
// when json is set.
func NewLogger(verbose, json bool) (*zap.Logger, error) {
	level := "info"
	if verbose {
		level = "debug"
	}
	return logger.New(logger.Config{Level: level, JSON: json})
}

// Progress returns a progress callback that redraws a counter on w, or nil
// when disabled.
func Progress(w io.Writer, label string, enabled bool) func(done, total int) {
	if !enabled {
		return nil
	}
	var mu sync.Mutex
	return func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "\r%s: %d/%d", label, done, total)
		if done == total {
			fmt.Fprintln(w)
		}
	}
}

// Finish logs the run report, writes the metrics textfile when a path is
// given and returns the process exit code.
func Finish(log *zap.Logger, report *pipeline.Report, runErr error, m *metrics.Provider, metricsFile string) int {
	code := pipeline.ExitOK
	if report != nil {
		report.Log(log)
		code = report.ExitCode()
	}
	if runErr != nil {
		log.Error("run failed", zap.Error(runErr))
		code = pipeline.ExitFatal
	}

	if metricsFile != "" {
		if err := m.WriteTextfile(metricsFile); err != nil {
			log.Error("write metrics", zap.String("path", metricsFile), zap.Error(err))
		}
	}
	_ = log.Sync()
	return code
}
