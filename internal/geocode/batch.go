package geocode

import (
	"context"
	"time"
)

// BatchResult is the outcome for one query of a batch.
type BatchResult struct {
	Query  string
	Result *Result
	Err    error
}

// Progress is called after each query of a batch with the number of queries
// finished so far.
type Progress func(done, total int)

// ResolveBatch resolves queries one at a time, waiting pacing between
// upstream requests. Queries answered from memory skip the wait. A cancelled
// context stops the batch and returns the results gathered so far together
// with the context error.
func (c *Cache) ResolveBatch(ctx context.Context, queries []string, pacing time.Duration, progress Progress) ([]BatchResult, error) {
	out := make([]BatchResult, 0, len(queries))
	lastUpstream := false

	for i, q := range queries {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		if lastUpstream && pacing > 0 && !c.Cached(q) {
			if err := sleep(ctx, pacing); err != nil {
				return out, err
			}
		}

		r, upstream, err := c.resolve(ctx, q)
		lastUpstream = upstream
		out = append(out, BatchResult{Query: q, Result: r, Err: err})

		if progress != nil {
			progress(i+1, len(queries))
		}
	}
	return out, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
