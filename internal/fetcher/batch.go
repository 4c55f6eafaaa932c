package fetcher

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"candlehub/internal/logger"
)

type BatchRequest struct {
	Interval     string
	Start, End   time.Time
	ForceRefresh bool
	// Concurrency bounds how many single-instrument fetches run at once.
	Concurrency int
}

const defaultBatchConcurrency = 8

// FetchBatch runs one Fetch per instrument under a bounded-concurrency gate.
// Every instrument's outcome is independent: a total failure for one leaves
// its slot absent from the result map and never aborts the others.
func (f *Fetcher) FetchBatch(ctx context.Context, instruments []string, req BatchRequest) map[string]*Result {
	limit := req.Concurrency
	if limit <= 0 {
		limit = defaultBatchConcurrency
	}

	var (
		mu  sync.Mutex
		out = make(map[string]*Result, len(instruments))
	)
	var g errgroup.Group
	g.SetLimit(limit)

	for _, instrument := range instruments {
		if instrument == "" {
			continue
		}
		instrument := instrument
		g.Go(func() error {
			res, err := f.Fetch(ctx, Request{
				Instrument:   instrument,
				Interval:     req.Interval,
				Start:        req.Start,
				End:          req.End,
				ForceRefresh: req.ForceRefresh,
			})
			if err != nil {
				logger.Warnf("batch: skipping %s: %v", instrument, err)
				return nil
			}
			mu.Lock()
			out[instrument] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}
