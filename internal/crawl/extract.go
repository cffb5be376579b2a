package crawl

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/jobharvest/rod-jobs/internal/job"
)

// Loader is a worker's session: it navigates and returns the page markup once
// readySelector is visible on the new document.
type Loader interface {
	Load(ctx context.Context, url, readySelector string) (string, error)
}

// Sessions hands each worker identity its own Loader.
type Sessions interface {
	Acquire(worker int) (Loader, error)
}

// Extractor turns detail URLs into records.
type Extractor struct {
	sessions Sessions
	site     Site
	rules    []Rule
	log      *zap.Logger
}

func NewExtractor(sessions Sessions, site Site, rules []Rule, log *zap.Logger) *Extractor {
	return &Extractor{sessions: sessions, site: site, rules: rules, log: log}
}

// Extract loads url on worker's session and parses it. Page-level failures are
// returned as a failed Result; the error is only set when the worker has no
// session, which ends that worker.
func (e *Extractor) Extract(ctx context.Context, worker int, url string) (job.Result, error) {
	sess, err := e.sessions.Acquire(worker)
	if err != nil {
		return job.Result{}, &SessionError{Worker: worker, Err: err}
	}

	html, err := sess.Load(ctx, url, e.site.DetailReady)
	if err != nil {
		e.log.Debug("detail page did not load", zap.Int("worker", worker), zap.String("url", url), zap.Error(err))
		return job.Failure(url, describe("load", err)), nil
	}

	rec, err := e.Parse(url, html)
	if err != nil {
		e.log.Debug("detail page rejected", zap.Int("worker", worker), zap.String("url", url), zap.Error(err))
		return job.Failure(url, describe("parse", err)), nil
	}
	return job.Success(rec), nil
}

// Parse applies the rule table to html. The returned record always carries url
// as its source.
func (e *Extractor) Parse(url, html string) (*job.Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse detail page: %w", err)
	}

	rec := job.NewRecord(url)
	for _, r := range e.rules {
		if err := r.apply(doc.Selection, e.site, rec); err != nil {
			return nil, err
		}
	}
	rec.SourceURL = url
	return rec, nil
}
