package crawl

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/iter"
	"go.uber.org/zap"

	"github.com/jobharvest/rod-jobs/internal/filter"
	"github.com/jobharvest/rod-jobs/internal/job"
)

// Collector produces the listing snapshots of one search.
type Collector interface {
	Collect(ctx context.Context, keyword string) ([]Snapshot, error)
}

// Pipeline runs a search end to end: listing walk, link extraction, parallel
// detail extraction, one serial retry pass, filtering.
type Pipeline struct {
	listing   Collector
	links     LinkExtractor
	extractor *Extractor
	retrier   *Retrier
	workers   int
	log       *zap.Logger
}

// NewPipeline wires the stages. workers bounds both parallel passes and must be
// positive.
func NewPipeline(listing Collector, links LinkExtractor, extractor *Extractor, retrier *Retrier, workers int, log *zap.Logger) (*Pipeline, error) {
	if workers < 1 {
		return nil, fmt.Errorf("workers must be positive, got %d", workers)
	}
	return &Pipeline{
		listing:   listing,
		links:     links,
		extractor: extractor,
		retrier:   retrier,
		workers:   workers,
		log:       log,
	}, nil
}

// Output is what a run hands to persistence.
type Output struct {
	// Records passed the filters, in URL order.
	Records []*job.Record
	Log     filter.AggregateLog
	// Dropped lists URLs that failed twice.
	Dropped []job.ErrorEntry
}

// Run executes every stage. Only a listing or link-extraction failure returns
// an error; detail failures are counted in the log.
func (p *Pipeline) Run(ctx context.Context, keyword string, spec filter.Spec) (*Output, error) {
	snapshots, err := p.listing.Collect(ctx, keyword)
	if c, ok := p.listing.(io.Closer); ok {
		if cerr := c.Close(); cerr != nil {
			p.log.Warn("closing listing session", zap.Error(cerr))
		}
	}
	if err != nil {
		return nil, err
	}

	p.log.Info("collecting job page urls", zap.Int("pages", len(snapshots)))
	urls, err := p.Links(snapshots)
	if err != nil {
		return nil, err
	}

	p.log.Info("parsing data", zap.Int("urls", len(urls)), zap.Int("workers", p.workers))
	results := p.ExtractAll(ctx, urls)

	_, failed := job.Split(results)
	retried := p.retrier.Retry(ctx, failed)
	_, dropped := job.Split(retried)

	p.log.Info("filtering data")
	records, log := filter.Apply(append(results, retried...), spec)
	p.log.Info("run summary",
		zap.Int("total", log.TotalCount),
		zap.Int("parsed", log.SuccessCount),
		zap.Int("filtered", log.FilteredCount),
		zap.Int("companies", log.DistinctCompanyCount),
		zap.Int("dropped", len(dropped)))

	return &Output{Records: records, Log: log, Dropped: dropped}, nil
}

// Links extracts the detail URLs of every snapshot in parallel and flattens
// them in page order.
func (p *Pipeline) Links(snapshots []Snapshot) ([]string, error) {
	mapper := iter.Mapper[Snapshot, []string]{MaxGoroutines: p.workers}
	perPage, err := mapper.MapErr(snapshots, func(s *Snapshot) ([]string, error) {
		return p.links.Extract(*s)
	})
	if err != nil {
		return nil, err
	}

	var urls []string
	for _, page := range perPage {
		urls = append(urls, page...)
	}
	return urls, nil
}

// ExtractAll runs the detail pass on p.workers workers. Worker w only ever
// uses session w. The result at index i belongs to urls[i] whatever order the
// tasks finished in.
func (p *Pipeline) ExtractAll(ctx context.Context, urls []string) []job.Result {
	results := make([]job.Result, len(urls))

	tasks := make(chan int, len(urls))
	for i := range urls {
		tasks <- i
	}
	close(tasks)

	var wg conc.WaitGroup
	for w := 0; w < p.workers; w++ {
		worker := w
		wg.Go(func() {
			for i := range tasks {
				res, err := p.extractor.Extract(ctx, worker, urls[i])
				if err != nil {
					// Without a session this worker can do nothing more; the
					// others keep draining the queue.
					p.log.Error("worker stopped", zap.Int("worker", worker), zap.Error(err))
					results[i] = job.Failure(urls[i], describe("session", err))
					return
				}
				results[i] = res
				p.log.Debug("parsed", zap.Int("worker", worker), zap.Int("index", i), zap.Bool("ok", res.OK()))
			}
		})
	}
	wg.Wait()

	for i, res := range results {
		if res.Record == nil && res.Error == nil {
			results[i] = job.Failure(urls[i], describe("session", errNoWorker))
		}
	}
	return results
}

var errNoWorker = errors.New("no worker with a live session was left")
