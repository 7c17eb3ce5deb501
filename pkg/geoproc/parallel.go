package geoproc

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
)

// ParallelOptions controls worker pool behavior and error handling.
type ParallelOptions struct {
	// Workers specifies the number of worker goroutines.
	// If 0, defaults to runtime.NumCPU(). A value of 1 runs tasks serially
	// on the calling goroutine.
	Workers int

	// SkipErrors causes processing to continue when individual tasks fail.
	// When false, no new tasks start after the first failure; tasks already
	// running finish and tasks never started report ErrNotRun.
	SkipErrors bool

	// Progress is an optional callback for tracking progress.
	// Called after each task finishes (successfully or with error) with the
	// number of finished tasks and the total.
	Progress func(done, total int)

	// ErrorLog is an optional writer for task errors.
	ErrorLog io.Writer
}

// ErrNotRun marks tasks that were never started because an earlier task
// failed and SkipErrors was false.
var ErrNotRun = errors.New("task not run")

// RunParallel runs fn for every task index in [0, n) using a pool of workers
// and returns the error of each task by index (nil for successes).
//
// Tasks must be independent; results should be written to per-index slots
// by fn. Progress is called from the collecting goroutine only, so it needs
// no locking of its own.
//
// Example:
//
//	errs := geoproc.RunParallel(len(paths), geoproc.ParallelOptions{
//	    SkipErrors: true,
//	    Progress: func(done, total int) {
//	        fmt.Printf("\rProcessing: %d/%d", done, total)
//	    },
//	}, func(i int) error {
//	    layer, err := codec.Read(paths[i])
//	    layers[i] = layer
//	    return err
//	})
func RunParallel(n int, opts ParallelOptions, fn func(i int) error) []error {
	errs := make([]error, n)
	if n == 0 {
		return errs
	}

	// Determine worker count
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	// Don't create more workers than tasks
	if workers > n {
		workers = n
	}

	if workers == 1 {
		return runSerial(n, opts, fn, errs)
	}

	type taskResult struct {
		index int
		err   error
	}

	jobs := make(chan int, n)
	results := make(chan taskResult, n)

	var mu sync.Mutex
	stopped := false

	// Start worker pool
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range jobs {
				mu.Lock()
				skip := stopped
				mu.Unlock()
				if skip {
					results <- taskResult{index: index, err: ErrNotRun}
					continue
				}

				err := fn(index)
				if err != nil && !opts.SkipErrors {
					mu.Lock()
					stopped = true
					mu.Unlock()
				}
				results <- taskResult{index: index, err: err}
			}
		}()
	}

	// Send jobs to workers
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)

	// Wait for workers to finish in a separate goroutine
	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect results
	done := 0
	for result := range results {
		done++
		errs[result.index] = result.err

		if opts.Progress != nil {
			opts.Progress(done, n)
		}
		if result.err != nil && result.err != ErrNotRun && opts.ErrorLog != nil {
			fmt.Fprintf(opts.ErrorLog, "task %d failed: %v\n", result.index, result.err)
		}
	}

	return errs
}

// runSerial runs tasks one at a time (used when only one worker is requested).
func runSerial(n int, opts ParallelOptions, fn func(i int) error, errs []error) []error {
	stopped := false
	for i := 0; i < n; i++ {
		if stopped {
			errs[i] = ErrNotRun
		} else if err := fn(i); err != nil {
			errs[i] = err
			if opts.ErrorLog != nil {
				fmt.Fprintf(opts.ErrorLog, "task %d failed: %v\n", i, err)
			}
			if !opts.SkipErrors {
				stopped = true
			}
		}

		if opts.Progress != nil {
			opts.Progress(i+1, n)
		}
	}
	return errs
}
