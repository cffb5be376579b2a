package crawl

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"

	"github.com/jobharvest/rod-jobs/internal/job"
)

// Strategy decides how a field is read and what happens when it is absent.
type Strategy int

const (
	// Required reads one element; absence fails the whole page.
	Required Strategy = iota
	// Optional reads one element; absence keeps job.None.
	Optional
	// List collects every matching element in order.
	List
	// Joined concatenates every matching element with a single space.
	Joined
	// Conditional reads the Index-th element of a section that only some
	// listings carry. Any failure keeps job.None.
	Conditional
)

func (s Strategy) String() string {
	switch s {
	case Required:
		return "required"
	case Optional:
		return "optional"
	case List:
		return "list"
	case Joined:
		return "joined"
	case Conditional:
		return "conditional"
	}
	return "unknown"
}

// Rule is one row of the field-extraction table.
type Rule struct {
	Field    job.Field
	Strategy Strategy
	// Section scopes the lookup to the first element it matches.
	Section string
	// SectionRequired fails the page when Section is absent, whatever the
	// strategy. A missing row or element inside it still keeps the default.
	SectionRequired bool
	// Heading selects the table row of Section whose heading equals it.
	Heading  string
	Selector string
	// Attr reads an attribute instead of the text.
	Attr  string
	Index int
	// Drop lists separator tokens that are not values.
	Drop []string
}

const (
	descriptionTable = "div.job-description-table"
	requirementTable = "div.job-requirement-table"
)

func tableRule(section string, f job.Field, s Strategy, selector string) Rule {
	return Rule{Field: f, Strategy: s, Section: section, SectionRequired: true, Heading: f.Label(), Selector: selector}
}

// DetailRules is the extraction table of a JobBank detail page.
var DetailRules = []Rule{
	{Field: job.Company, Strategy: Required, Selector: `a[data-gtm-head="公司名稱"]`, Attr: "title"},
	{Field: job.Title, Strategy: Required, Selector: "div.job-header__title h1", Attr: "title"},
	{Field: job.Description, Strategy: Required, Selector: "p.job-description__content"},

	tableRule(descriptionTable, job.Category, List, "u"),
	tableRule(descriptionTable, job.Compensation, Joined, "p"),
	tableRule(descriptionTable, job.Nature, Optional, "p"),
	tableRule(descriptionTable, job.Location, Optional, "p"),
	tableRule(descriptionTable, job.Management, Optional, "p"),
	tableRule(descriptionTable, job.Travel, Optional, "p"),
	tableRule(descriptionTable, job.Schedule, Optional, "p"),
	tableRule(descriptionTable, job.Leave, Optional, "p"),
	tableRule(descriptionTable, job.StartDate, Optional, "p"),
	tableRule(descriptionTable, job.Headcount, Optional, "p"),

	{Field: job.AcceptedStatus, Strategy: List, Section: requirementTable, SectionRequired: true, Heading: job.AcceptedStatus.Label(), Selector: "span", Drop: []string{"、"}},
	tableRule(requirementTable, job.Experience, Optional, "p"),
	tableRule(requirementTable, job.Education, Optional, "p"),
	tableRule(requirementTable, job.Major, Optional, "p"),
	tableRule(requirementTable, job.Language, Optional, "p"),
	tableRule(requirementTable, job.Tools, Optional, "p"),
	tableRule(requirementTable, job.Skills, Optional, "p"),

	{Field: job.OtherRequirements, Strategy: Conditional, Section: "div.job-requirement.opened", Selector: "p.m-0.r3"},
	{Field: job.Benefits, Strategy: Conditional, Section: "div.row.benefits-description", Selector: "p"},
	{Field: job.ContactName, Strategy: Conditional, Section: "div.row.job-contact-table", Selector: ".job-contact-table__data", Index: 0},
	{Field: job.ContactMethod, Strategy: Conditional, Section: "div.row.job-contact-table", Selector: ".job-contact-table__data", Index: 1},
}

func clean(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// scope narrows doc to the rule's section, and to the row under its heading.
func (r Rule) scope(doc *goquery.Selection, site Site) (*goquery.Selection, error) {
	if r.Section == "" {
		return doc, nil
	}
	section := doc.Find(r.Section).First()
	if section.Length() == 0 {
		return nil, errSectionMissing
	}
	if r.Heading == "" {
		return section, nil
	}
	row := section.Find(site.TableRow).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return clean(s.Find(site.RowHeading).First().Text()) == r.Heading
	}).First()
	if row.Length() == 0 {
		return nil, errSectionMissing
	}
	return row, nil
}

func (r Rule) read(s *goquery.Selection) (string, bool) {
	if r.Attr != "" {
		v, ok := s.Attr(r.Attr)
		return clean(v), ok
	}
	return clean(s.Text()), true
}

func (r Rule) dropped(v string) bool {
	for _, d := range r.Drop {
		if v == d {
			return true
		}
	}
	return false
}

// values extracts the rule's raw values. An error means nothing usable was
// found.
func (r Rule) values(doc *goquery.Selection, site Site) ([]string, error) {
	scope, err := r.scope(doc, site)
	if err != nil {
		return nil, err
	}

	var out []string
	switch r.Strategy {
	case List, Joined:
		scope.Find(r.Selector).Each(func(_ int, s *goquery.Selection) {
			if v, ok := r.read(s); ok && v != "" && !r.dropped(v) {
				out = append(out, v)
			}
		})
		if r.Strategy == Joined && len(out) > 0 {
			out = []string{strings.Join(out, " ")}
		}
	default:
		sel := scope.Find(r.Selector)
		if r.Strategy == Conditional {
			sel = sel.Eq(r.Index)
		} else {
			sel = sel.First()
		}
		if sel.Length() > 0 {
			if v, ok := r.read(sel); ok && v != "" {
				out = []string{v}
			}
		}
	}

	if len(out) == 0 {
		return nil, errSectionMissing
	}
	return out, nil
}

// apply stores the rule's value into rec. Only Required rules and rules whose
// section is required report an error; otherwise the default stays in place.
func (r Rule) apply(doc *goquery.Selection, site Site, rec *job.Record) error {
	if r.SectionRequired && doc.Find(r.Section).Length() == 0 {
		return &FieldError{Field: r.Field, Selector: r.Section}
	}
	if r.Strategy == Required {
		vals, err := r.values(doc, site)
		if err != nil {
			return &FieldError{Field: r.Field, Selector: r.Selector}
		}
		rec.Set(r.Field, vals...)
		return nil
	}
	attempt(rec, r.Field, func() ([]string, error) { return r.values(doc, site) })
	return nil
}

// attempt sets f from extract, or leaves the default in place if extract fails.
func attempt(rec *job.Record, f job.Field, extract func() ([]string, error)) {
	vals, err := extract()
	if err != nil {
		return
	}
	rec.Set(f, vals...)
}
