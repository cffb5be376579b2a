package job

import "strings"

// ListSeparator joins list-valued fields when they are flattened to one cell.
const ListSeparator = "、"

// Record is one parsed detail page. Every field is always populated; fields the
// extractor could not resolve hold None.
type Record struct {
	Company           string   `json:"company"`
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Category          []string `json:"category"`
	Compensation      string   `json:"compensation"`
	Nature            string   `json:"nature"`
	Location          string   `json:"location"`
	Management        string   `json:"management"`
	Travel            string   `json:"travel"`
	Schedule          string   `json:"schedule"`
	Leave             string   `json:"leave"`
	StartDate         string   `json:"start_date"`
	Headcount         string   `json:"headcount"`
	AcceptedStatus    []string `json:"accepted_status"`
	Experience        string   `json:"experience"`
	Education         string   `json:"education"`
	Major             string   `json:"major"`
	Language          string   `json:"language"`
	Tools             string   `json:"tools"`
	Skills            string   `json:"skills"`
	OtherRequirements string   `json:"other_requirements"`
	Benefits          string   `json:"benefits"`
	ContactName       string   `json:"contact_name"`
	ContactMethod     string   `json:"contact_method"`
	SourceURL         string   `json:"source_url"`
}

// NewRecord returns a record for url with every other field set to None.
func NewRecord(url string) *Record {
	r := &Record{}
	for _, f := range Fields() {
		r.Set(f, None)
	}
	r.SourceURL = url
	return r
}

func (r *Record) ref(f Field) (*string, *[]string) {
	switch f {
	case Company:
		return &r.Company, nil
	case Title:
		return &r.Title, nil
	case Description:
		return &r.Description, nil
	case Category:
		return nil, &r.Category
	case Compensation:
		return &r.Compensation, nil
	case Nature:
		return &r.Nature, nil
	case Location:
		return &r.Location, nil
	case Management:
		return &r.Management, nil
	case Travel:
		return &r.Travel, nil
	case Schedule:
		return &r.Schedule, nil
	case Leave:
		return &r.Leave, nil
	case StartDate:
		return &r.StartDate, nil
	case Headcount:
		return &r.Headcount, nil
	case AcceptedStatus:
		return nil, &r.AcceptedStatus
	case Experience:
		return &r.Experience, nil
	case Education:
		return &r.Education, nil
	case Major:
		return &r.Major, nil
	case Language:
		return &r.Language, nil
	case Tools:
		return &r.Tools, nil
	case Skills:
		return &r.Skills, nil
	case OtherRequirements:
		return &r.OtherRequirements, nil
	case Benefits:
		return &r.Benefits, nil
	case ContactName:
		return &r.ContactName, nil
	case ContactMethod:
		return &r.ContactMethod, nil
	case SourceURL:
		return &r.SourceURL, nil
	}
	return nil, nil
}

// Set stores values into f. Scalar fields take the first value. Empty input
// leaves the field untouched so a resolved field never turns blank.
func (r *Record) Set(f Field, values ...string) {
	if len(values) == 0 {
		return
	}
	s, l := r.ref(f)
	switch {
	case s != nil:
		*s = values[0]
	case l != nil:
		*l = append([]string(nil), values...)
	}
}

// Values returns the field as a slice; scalar fields yield one element.
func (r *Record) Values(f Field) []string {
	s, l := r.ref(f)
	switch {
	case s != nil:
		return []string{*s}
	case l != nil:
		return *l
	}
	return nil
}

// Text flattens the field into one string.
func (r *Record) Text(f Field) string {
	return strings.Join(r.Values(f), ListSeparator)
}

// Contains reports whether any value of f contains token.
func (r *Record) Contains(f Field, token string) bool {
	for _, v := range r.Values(f) {
		if strings.Contains(v, token) {
			return true
		}
	}
	return false
}

// Row renders the record as CSV cells in Header order.
func (r *Record) Row() []string {
	out := make([]string, 0, fieldCount)
	for _, f := range Fields() {
		out = append(out, r.Text(f))
	}
	return out
}
