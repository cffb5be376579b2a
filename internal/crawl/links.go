package crawl

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Snapshot is the raw markup of one listing page.
type Snapshot struct {
	Page int
	HTML string
}

// LinkExtractor turns listing snapshots into detail-page URLs. It holds no
// state and never touches a browser.
type LinkExtractor struct {
	Site Site
}

// Extract returns the detail URL of every job entry in document order. Entries
// without a usable link are skipped.
func (le LinkExtractor) Extract(s Snapshot) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s.HTML))
	if err != nil {
		return nil, fmt.Errorf("parse listing page %d: %w", s.Page, err)
	}

	base, err := url.Parse(le.Site.LinkBase)
	if err != nil {
		return nil, fmt.Errorf("parse link base %q: %w", le.Site.LinkBase, err)
	}

	urls := []string{}
	doc.Find(le.Site.JobItem).Each(func(_ int, item *goquery.Selection) {
		href, ok := item.Find("a" + le.Site.JobLink).First().Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		urls = append(urls, base.ResolveReference(ref).String())
	})
	return urls, nil
}
