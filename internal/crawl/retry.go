package crawl

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jobharvest/rod-jobs/internal/job"
)

// Retrier gives every failed URL one more serial attempt after the parallel
// pass has drained. It borrows the pool's worker identities, starting at 0 and
// moving to the next one whenever a session cannot be acquired. A Retrier is
// not safe for concurrent use.
type Retrier struct {
	extractor *Extractor
	workers   int
	// worker is the identity currently serving the pass.
	worker int
	log    *zap.Logger
}

// NewRetrier returns a Retrier that may use worker identities 0..workers-1.
// They are only safe to reuse once the parallel pass has stopped.
func NewRetrier(extractor *Extractor, workers int, log *zap.Logger) *Retrier {
	return &Retrier{extractor: extractor, workers: workers, log: log}
}

// Retry re-extracts each entry once, in order. Entries that fail again come
// back as failed results and are not retried further.
func (r *Retrier) Retry(ctx context.Context, failed []job.ErrorEntry) []job.Result {
	if len(failed) == 0 {
		return nil
	}
	r.log.Info("retrying failed pages", zap.Int("count", len(failed)))

	results := make([]job.Result, 0, len(failed))
	for _, entry := range failed {
		res := r.retry(ctx, entry.SourceURL)
		if !res.OK() {
			r.log.Warn("page dropped after retry",
				zap.String("url", entry.SourceURL),
				zap.String("first", entry.Message),
				zap.String("second", res.Error.Message))
		}
		results = append(results, res)
	}
	return results
}

func (r *Retrier) retry(ctx context.Context, url string) job.Result {
	err := fmt.Errorf("all %d workers: %w", r.workers, ErrNoSession)
	for r.worker < r.workers {
		var res job.Result
		res, err = r.extractor.Extract(ctx, r.worker, url)
		if err == nil {
			return res
		}
		r.log.Warn("retry session unavailable, trying next worker", zap.Int("worker", r.worker), zap.Error(err))
		r.worker++
	}
	return job.Failure(url, describe("retry", err))
}
