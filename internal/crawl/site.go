package crawl

// Site holds the fixed page structure of the target job board. The selectors
// are an external contract: a redesign of the site breaks them, not the crawler.
type Site struct {
	// Listing side.
	StartURL     string
	KeywordInput string
	JobLink      string
	NextPage     string
	PageSelect   string
	JobItem      string
	// LinkBase resolves protocol-relative detail links.
	LinkBase string

	// Detail side.
	DetailReady string
	TableRow    string
	RowHeading  string
}

var JobBank = Site{
	StartURL:     "https://www.104.com.tw/jobs/main/",
	KeywordInput: "#ikeyword",
	JobLink:      ".js-job-link",
	NextPage:     ".js-next-page",
	PageSelect:   "select.page-select option",
	JobItem:      "article.js-job-item",
	LinkBase:     "https://www.104.com.tw/",

	DetailReady: ".job-description__content",
	TableRow:    "div.row.mb-2",
	RowHeading:  "h3",
}
