package crawl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// State is a step of the listing walk.
type State int

const (
	StateInit State = iota
	StateSearching
	StatePageCountKnown
	StateCollecting
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateSearching:
		return "searching"
	case StatePageCountKnown:
		return "page-count-known"
	case StateCollecting:
		return "collecting"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Navigator is the listing session. Every call blocks until the page settled
// or the session wait timeout expired.
type Navigator interface {
	Search(ctx context.Context, startURL, inputSelector, keyword string) error
	WaitVisible(ctx context.Context, selectors ...string) error
	HTML() (string, error)
	Next(ctx context.Context, nextSelector, readySelector string) error
}

// Paginator walks the search result pages of one keyword in order on its own
// session. It must not be shared with the extraction workers.
type Paginator struct {
	nav      Navigator
	site     Site
	maxPages int
	log      *zap.Logger

	state State
	page  int
	pages int
}

// NewPaginator returns a paginator driving nav. maxPages caps the walk; zero
// collects every page.
func NewPaginator(nav Navigator, site Site, maxPages int, log *zap.Logger) *Paginator {
	return &Paginator{nav: nav, site: site, maxPages: maxPages, log: log}
}

func (p *Paginator) State() State { return p.state }

// Pages is the number of pages the walk targets, known after the search.
func (p *Paginator) Pages() int { return p.pages }

func (p *Paginator) fail(err error) error {
	return &NavigationError{State: p.state, Page: p.page, Err: err}
}

// Collect submits keyword and returns one snapshot per result page, in page
// order. Any navigation failure is fatal.
func (p *Paginator) Collect(ctx context.Context, keyword string) ([]Snapshot, error) {
	if p.state != StateInit {
		return nil, fmt.Errorf("paginator already used (state %s)", p.state)
	}

	p.state = StateSearching
	p.log.Info("searching", zap.String("keyword", keyword))
	if err := p.nav.Search(ctx, p.site.StartURL, p.site.KeywordInput, keyword); err != nil {
		return nil, p.fail(err)
	}
	if err := p.nav.WaitVisible(ctx, p.site.JobLink, p.site.NextPage); err != nil {
		return nil, p.fail(err)
	}

	html, err := p.nav.HTML()
	if err != nil {
		return nil, p.fail(err)
	}
	n, err := ParsePageCount(html, p.site.PageSelect)
	if err != nil {
		return nil, p.fail(err)
	}
	p.state = StatePageCountKnown
	p.log.Info("pages of jobs found", zap.Int("pages", n))
	if p.maxPages > 0 && n > p.maxPages {
		n = p.maxPages
		p.log.Info("page walk capped", zap.Int("pages", n))
	}
	p.pages = n

	p.state = StateCollecting
	snapshots := make([]Snapshot, 0, n)
	for p.page = 1; ; p.page++ {
		if p.page > 1 {
			html, err = p.nav.HTML()
			if err != nil {
				return nil, p.fail(err)
			}
		}
		snapshots = append(snapshots, Snapshot{Page: p.page, HTML: html})
		p.log.Debug("collected listing page", zap.Int("page", p.page), zap.Int("of", n))
		if p.page == n {
			break
		}
		// The last page may hide the next-page control, so readiness is
		// judged on the job links alone.
		if err := p.nav.Next(ctx, p.site.NextPage, p.site.JobLink); err != nil {
			return nil, p.fail(err)
		}
	}

	p.state = StateDone
	return snapshots, nil
}

// Close releases the listing session if it owns resources.
func (p *Paginator) Close() error {
	if c, ok := p.nav.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// ParsePageCount reads the total page count from the page selector, whose
// first option reads like "第 1 / 12 頁".
func ParsePageCount(html, selector string) (int, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0, fmt.Errorf("parse listing page: %w", err)
	}
	opt := doc.Find(selector).First()
	if opt.Length() == 0 {
		return 0, fmt.Errorf("page selector %q not found", selector)
	}
	tokens := strings.Fields(opt.Text())
	if len(tokens) < 2 {
		return 0, fmt.Errorf("unexpected page selector text %q", opt.Text())
	}
	n, err := strconv.Atoi(tokens[len(tokens)-2])
	if err != nil {
		return 0, fmt.Errorf("page count in %q: %w", opt.Text(), err)
	}
	if n < 1 {
		return 0, errors.New("search returned no result pages")
	}
	return n, nil
}
