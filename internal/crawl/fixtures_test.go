package crawl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

const listingPage = `<html><body>
<select class="page-select js-paging-select gtm-paging-top"><option value="1">第 1 / %d 頁</option></select>
<div id="js-job-content">
  <article class="b-block--top-bord job-list-item b-clearfix js-job-item" data-job-name="Go Engineer">
    <div class="b-block__left"><h2 class="b-tit"><a href="//www.104.com.tw/job/7abc1?jobsource=jolist_a_relevance" class="js-job-link">Go Engineer</a></h2></div>
  </article>
  <div class="ad">not a job <a class="js-job-link" href="//www.104.com.tw/job/ad">ad</a></div>
  <article class="b-block--top-bord job-list-item b-clearfix js-job-item" data-job-name="SRE">
    <div class="b-block__left"><h2 class="b-tit"><a href="//www.104.com.tw/job/7abc2?jobsource=jolist_a_relevance" class="js-job-link">SRE</a></h2></div>
  </article>
</div>
<button class="b-btn b-btn--page js-next-page">下一頁</button>
</body></html>`

func listing(pages int) string {
	return fmt.Sprintf(listingPage, pages)
}

type detail struct {
	noTitle    bool
	noContact  bool
	noBenefits bool
	noTables   bool
	// noRequirementTable keeps the requirement block but drops its table.
	noRequirementTable bool
	// category replaces the first job category.
	category string
}

func (d detail) firstCategory() string {
	if d.category != "" {
		return d.category
	}
	return "軟體工程師"
}

func (d detail) html() string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="job-header">`)
	b.WriteString(`<div class="job-header__title"><h1 class="h1" title="後端工程師 Backend Engineer">後端工程師</h1>`)
	b.WriteString(`<div class="mt-3"><a data-gtm-head="公司名稱" title="  宏碁股份有限公司 " href="//www.104.com.tw/company/x">宏碁</a></div></div>`)
	b.WriteString(`</div>`)
	if d.noTitle {
		s := b.String()
		b.Reset()
		b.WriteString(strings.Replace(s, `<h1 class="h1" title="後端工程師 Backend Engineer">後端工程師</h1>`, "", 1))
	}
	b.WriteString(`<div class="job-description col"><p class="mb-5 r3 job-description__content text-break">
  負責後端服務開發
</p>`)
	if !d.noTables {
		b.WriteString(`<div class="job-description-table row">
  <div class="row mb-2"><div class="col-2"><h3>職務類別</h3></div><div class="col"><span><u>` + d.firstCategory() + `</u></span><span>、</span><span><u>後端工程師</u></span></div></div>
  <div class="row mb-2"><div class="col-2"><h3>工作待遇</h3></div><div class="col"><p>月薪50,000~80,000元</p><p>（固定或變動薪資因個人資歷或績效而異）</p></div></div>
  <div class="row mb-2"><div class="col-2"><h3>工作性質</h3></div><div class="col"><p>全職</p></div></div>
  <div class="row mb-2"><div class="col-2"><h3>上班地點</h3></div><div class="col"><p>台北市信義區</p></div></div>
  <div class="row mb-2"><div class="col-2"><h3>需求人數</h3></div><div class="col"><p> 2人 </p></div></div>
</div>`)
	}
	b.WriteString(`</div>`)
	if !d.noTables {
		b.WriteString(`<div class="job-requirement col opened">`)
	}
	if !d.noTables && !d.noRequirementTable {
		b.WriteString(`<div class="job-requirement-table row">
  <div class="row mb-2"><div class="col-2"><h3>接受身份</h3></div><div class="col"><span>上班族</span><span>、</span><span>應屆畢業生</span></div></div>
  <div class="row mb-2"><div class="col-2"><h3>工作經歷</h3></div><div class="col"><p>2年以上</p></div></div>
  <div class="row mb-2"><div class="col-2"><h3>學歷要求</h3></div><div class="col"><p>大學以上</p></div></div>
</div>`)
	}
	if !d.noTables {
		b.WriteString(`<p class="m-0 r3">熟悉 Go 與 PostgreSQL</p></div>`)
	}
	if !d.noBenefits {
		b.WriteString(`<div class="row benefits-description"><p>年終獎金、員工旅遊</p></div>`)
	}
	if !d.noContact {
		b.WriteString(`<div class="row job-contact-table">
  <div class="col p-0 job-contact-table__head">聯絡人</div><div class="col p-0 job-contact-table__data t3 mb-0 text-break">王小姐</div>
  <div class="col p-0 job-contact-table__head">聯絡方式</div><div class="col p-0 job-contact-table__data t3 mb-0 text-break">hr@example.com</div>
</div>`)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

// fakeLoader serves canned pages and can fail a URL a fixed number of times.
type fakeLoader struct {
	id    int
	pages map[string]string
	fails map[string]int
	err   error

	mu    *sync.Mutex
	calls *[]call
}

type call struct {
	worker int
	url    string
}

func (l *fakeLoader) Load(_ context.Context, url, readySelector string) (string, error) {
	l.mu.Lock()
	*l.calls = append(*l.calls, call{worker: l.id, url: url})
	n := l.fails[url]
	if n > 0 {
		l.fails[url] = n - 1
	}
	l.mu.Unlock()

	if n > 0 {
		return "", fmt.Errorf("wait for %s: %w", readySelector, context.DeadlineExceeded)
	}
	html, ok := l.pages[url]
	if !ok {
		return "", errors.New("net::ERR_NAME_NOT_RESOLVED")
	}
	return html, nil
}

// fakeSessions hands out one fakeLoader per worker over shared page data.
type fakeSessions struct {
	pages  map[string]string
	fails  map[string]int
	broken map[int]bool

	mu       sync.Mutex
	calls    []call
	sessions map[int]*fakeLoader
}

func newFakeSessions(pages map[string]string) *fakeSessions {
	return &fakeSessions{
		pages:    pages,
		fails:    map[string]int{},
		broken:   map[int]bool{},
		sessions: map[int]*fakeLoader{},
	}
}

func (f *fakeSessions) Acquire(worker int) (Loader, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.broken[worker] {
		return nil, errors.New("browser failed to start")
	}
	if s, ok := f.sessions[worker]; ok {
		return s, nil
	}
	s := &fakeLoader{id: worker, pages: f.pages, fails: f.fails, mu: &f.mu, calls: &f.calls}
	f.sessions[worker] = s
	return s, nil
}

func (f *fakeSessions) loads() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

// fakeNavigator replays a sequence of listing pages.
type fakeNavigator struct {
	pages     []string
	current   int
	searchErr error
	nextErrAt int // 1-based page after which Next fails; 0 never
	searched  string
	nexts     int
	closed    bool
}

func (n *fakeNavigator) Search(_ context.Context, _, _, keyword string) error {
	n.searched = keyword
	return n.searchErr
}

func (n *fakeNavigator) WaitVisible(context.Context, ...string) error { return nil }

func (n *fakeNavigator) HTML() (string, error) { return n.pages[n.current], nil }

func (n *fakeNavigator) Next(context.Context, string, string) error {
	n.nexts++
	if n.nextErrAt > 0 && n.current+1 == n.nextErrAt {
		return fmt.Errorf("wait for page: %w", context.DeadlineExceeded)
	}
	if n.current+1 >= len(n.pages) {
		return errors.New("no next page")
	}
	n.current++
	return nil
}

func (n *fakeNavigator) Close() error {
	n.closed = true
	return nil
}
