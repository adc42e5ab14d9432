package analysis

import (
	"context"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/logflow/procmine/pkg/errors"
)

// BatchResult holds the outcome of one source in a batch.
type BatchResult struct {
	Source Source
	Result *Result
	Err    error
}

// BatchOptions controls RunBatch.
type BatchOptions struct {
	// Workers bounds concurrency; 0 uses the runner's configured workers,
	// then GOMAXPROCS.
	Workers int

	// FailFast stops scheduling new sources after the first failure.
	FailFast bool

	// OnDone is called after each source finishes, from the worker
	// goroutine. done counts finished sources.
	OnDone func(done int, res BatchResult)
}

// RunBatch runs every source concurrently. Results keep the order of
// sources. The returned error combines every per-source failure.
func (r *Runner) RunBatch(ctx context.Context, sources []Source, opts BatchOptions) ([]BatchResult, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = r.workers
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	out := make([]BatchResult, len(sources))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, src := range sources {
		i, src := i, src
		out[i].Source = src
		g.Go(func() error {
			if gctx.Err() != nil {
				out[i].Err = errors.ContextCanceled("batch " + src.String())
				return nil
			}

			res, err := r.Run(gctx, src)
			out[i].Result = res
			out[i].Err = err

			n := done.Add(1)
			if opts.OnDone != nil {
				opts.OnDone(int(n), out[i])
			}
			if err != nil && opts.FailFast {
				return err
			}
			return nil
		})
	}
	g.Wait()

	merr := &errors.MultiError{}
	for _, br := range out {
		if br.Err != nil {
			merr.Add(errors.Wrap(br.Err, errors.GetCode(br.Err), "batch source failed").
				WithContext("source", br.Source.String()))
		}
	}
	return out, merr.Combined()
}
