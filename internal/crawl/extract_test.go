package crawl

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jobharvest/rod-jobs/internal/job"
)

const jobURL = "https://www.104.com.tw/job/7abc1"

func newTestExtractor(pages map[string]string) (*Extractor, *fakeSessions) {
	sessions := newFakeSessions(pages)
	return NewExtractor(sessions, JobBank, DetailRules, zap.NewNop()), sessions
}

func TestParseFullDetailPage(t *testing.T) {
	e, _ := newTestExtractor(nil)

	rec, err := e.Parse(jobURL, detail{}.html())
	require.NoError(t, err)

	assert.Equal(t, "宏碁股份有限公司", rec.Company)
	assert.Equal(t, "後端工程師 Backend Engineer", rec.Title)
	assert.Equal(t, "負責後端服務開發", rec.Description)
	assert.Equal(t, []string{"軟體工程師", "後端工程師"}, rec.Category)
	assert.Equal(t, "月薪50,000~80,000元 （固定或變動薪資因個人資歷或績效而異）", rec.Compensation)
	assert.Equal(t, "全職", rec.Nature)
	assert.Equal(t, "台北市信義區", rec.Location)
	assert.Equal(t, "2人", rec.Headcount)
	assert.Equal(t, []string{"上班族", "應屆畢業生"}, rec.AcceptedStatus)
	assert.Equal(t, "2年以上", rec.Experience)
	assert.Equal(t, "大學以上", rec.Education)
	assert.Equal(t, "熟悉 Go 與 PostgreSQL", rec.OtherRequirements)
	assert.Equal(t, "年終獎金、員工旅遊", rec.Benefits)
	assert.Equal(t, "王小姐", rec.ContactName)
	assert.Equal(t, "hr@example.com", rec.ContactMethod)
	assert.Equal(t, jobURL, rec.SourceURL)

	// Rows the page does not carry keep the placeholder.
	for _, f := range []job.Field{job.Management, job.Travel, job.Schedule, job.Leave, job.StartDate, job.Major, job.Language, job.Tools, job.Skills} {
		assert.Equal(t, []string{job.None}, rec.Values(f), f.Key())
	}
}

func TestParseEveryFieldPresent(t *testing.T) {
	e, _ := newTestExtractor(nil)
	pages := []detail{{}, {noContact: true}, {noBenefits: true}, {noContact: true, noBenefits: true}}

	for _, d := range pages {
		rec, err := e.Parse(jobURL, d.html())
		require.NoError(t, err)
		for _, f := range job.Fields() {
			vals := rec.Values(f)
			require.NotEmpty(t, vals, f.Key())
			for _, v := range vals {
				assert.NotEmpty(t, v, f.Key())
			}
		}
		assert.Equal(t, jobURL, rec.SourceURL)
	}
}

func TestParseMissingContactKeepsDefault(t *testing.T) {
	e, sessions := newTestExtractor(map[string]string{jobURL: detail{noContact: true}.html()})

	res, err := e.Extract(context.Background(), 0, jobURL)
	require.NoError(t, err)
	require.True(t, res.OK())
	assert.Nil(t, res.Error)
	assert.Equal(t, job.None, res.Record.ContactName)
	assert.Equal(t, job.None, res.Record.ContactMethod)
	assert.Equal(t, "年終獎金、員工旅遊", res.Record.Benefits)
	assert.Len(t, sessions.loads(), 1)
}

func TestParseMissingTableFails(t *testing.T) {
	e, _ := newTestExtractor(nil)

	tests := []struct {
		name    string
		page    detail
		field   job.Field
		section string
	}{
		{"both tables", detail{noTables: true}, job.Category, "div.job-description-table"},
		{"requirement table", detail{noRequirementTable: true}, job.AcceptedStatus, "div.job-requirement-table"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Parse(jobURL, tt.page.html())
			assert.ErrorIs(t, err, ErrRequiredFieldMissing)

			var fe *FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.field, fe.Field)
			assert.Equal(t, tt.section, fe.Selector)
		})
	}
}

func TestExtractMissingTableIsRetryable(t *testing.T) {
	e, _ := newTestExtractor(map[string]string{jobURL: detail{noRequirementTable: true}.html()})

	res, err := e.Extract(context.Background(), 0, jobURL)
	require.NoError(t, err)
	require.False(t, res.OK())
	assert.True(t, strings.HasPrefix(res.Error.Message, "parse: [RequiredFieldMissing]"), res.Error.Message)
}

func TestExtractMissingTitleFails(t *testing.T) {
	e, _ := newTestExtractor(map[string]string{jobURL: detail{noTitle: true}.html()})

	res, err := e.Extract(context.Background(), 0, jobURL)
	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.Nil(t, res.Record)
	require.NotNil(t, res.Error)
	assert.Equal(t, jobURL, res.Error.SourceURL)
	assert.True(t, strings.HasPrefix(res.Error.Message, "parse: [RequiredFieldMissing]"), res.Error.Message)
	assert.Contains(t, res.Error.Message, "title")
}

func TestParseRequiredFieldError(t *testing.T) {
	e, _ := newTestExtractor(nil)

	_, err := e.Parse(jobURL, detail{noTitle: true}.html())
	assert.ErrorIs(t, err, ErrRequiredFieldMissing)

	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, job.Title, fe.Field)
}

func TestExtractTimeout(t *testing.T) {
	e, sessions := newTestExtractor(map[string]string{jobURL: detail{}.html()})
	sessions.fails[jobURL] = 1

	res, err := e.Extract(context.Background(), 3, jobURL)
	require.NoError(t, err)
	require.NotNil(t, res.Error)
	assert.True(t, strings.HasPrefix(res.Error.Message, "load: [TimeoutError]"), res.Error.Message)

	res, err = e.Extract(context.Background(), 3, jobURL)
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, []call{{3, jobURL}, {3, jobURL}}, sessions.loads())
}

func TestExtractWithoutSession(t *testing.T) {
	e, sessions := newTestExtractor(nil)
	sessions.broken[1] = true

	_, err := e.Extract(context.Background(), 1, jobURL)
	assert.Error(t, err)
}

func TestRuleStrategies(t *testing.T) {
	page := `<div class="t"><div class="row mb-2"><h3>工作待遇</h3><p> a </p><p></p><p>b</p></div>
<div class="row mb-2"><h3>職務類別</h3><u>x</u><u>、</u><u>y</u></div></div>
<div class="c"><i>first</i><i>second</i></div>`

	tests := []struct {
		name string
		rule Rule
		want []string
	}{
		{"joined", Rule{Field: job.Compensation, Strategy: Joined, Section: "div.t", Heading: "工作待遇", Selector: "p"}, []string{"a b"}},
		{"list with drop", Rule{Field: job.Category, Strategy: List, Section: "div.t", Heading: "職務類別", Selector: "u", Drop: []string{"、"}}, []string{"x", "y"}},
		{"conditional index", Rule{Field: job.ContactMethod, Strategy: Conditional, Section: "div.c", Selector: "i", Index: 1}, []string{"second"}},
		{"conditional index out of range", Rule{Field: job.ContactMethod, Strategy: Conditional, Section: "div.c", Selector: "i", Index: 5}, []string{job.None}},
		{"missing heading", Rule{Field: job.Nature, Strategy: Optional, Section: "div.t", Heading: "工作性質", Selector: "p"}, []string{job.None}},
		{"missing section", Rule{Field: job.Benefits, Strategy: Conditional, Section: "div.nope", Selector: "p"}, []string{job.None}},
		{"missing row of required section", Rule{Field: job.Nature, Strategy: Optional, Section: "div.t", SectionRequired: true, Heading: "工作性質", Selector: "p"}, []string{job.None}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExtractor(nil, JobBank, []Rule{tt.rule}, zap.NewNop())
			rec, err := e.Parse(jobURL, page)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.Values(tt.rule.Field))
		})
	}
}
