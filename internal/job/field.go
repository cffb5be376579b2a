package job

import "strings"

// None is the placeholder held by every field the extractor could not resolve.
const None = "無"

// Field enumerates the fixed column set of a Record.
type Field int

const (
	Company Field = iota
	Title
	Description
	Category
	Compensation
	Nature
	Location
	Management
	Travel
	Schedule
	Leave
	StartDate
	Headcount
	AcceptedStatus
	Experience
	Education
	Major
	Language
	Tools
	Skills
	OtherRequirements
	Benefits
	ContactName
	ContactMethod
	SourceURL

	fieldCount
)

type fieldInfo struct {
	key   string
	label string // heading used by the site, also the CSV column name
	list  bool
}

var fields = [fieldCount]fieldInfo{
	Company:           {"company", "公司名稱", false},
	Title:             {"title", "工作職稱", false},
	Description:       {"description", "工作內容", false},
	Category:          {"category", "職務類別", true},
	Compensation:      {"compensation", "工作待遇", false},
	Nature:            {"nature", "工作性質", false},
	Location:          {"location", "上班地點", false},
	Management:        {"management", "管理責任", false},
	Travel:            {"travel", "出差外派", false},
	Schedule:          {"schedule", "上班時段", false},
	Leave:             {"leave", "休假制度", false},
	StartDate:         {"start_date", "可上班日", false},
	Headcount:         {"headcount", "需求人數", false},
	AcceptedStatus:    {"accepted_status", "接受身份", true},
	Experience:        {"experience", "工作經歷", false},
	Education:         {"education", "學歷要求", false},
	Major:             {"major", "科系要求", false},
	Language:          {"language", "語文條件", false},
	Tools:             {"tools", "擅長工具", false},
	Skills:            {"skills", "工作技能", false},
	OtherRequirements: {"other_requirements", "其他條件", false},
	Benefits:          {"benefits", "公司福利", false},
	ContactName:       {"contact_name", "聯絡人", false},
	ContactMethod:     {"contact_method", "聯絡方式", false},
	SourceURL:         {"source_url", "連結路徑", false},
}

// Fields returns every field in column order.
func Fields() []Field {
	out := make([]Field, 0, fieldCount)
	for f := Field(0); f < fieldCount; f++ {
		out = append(out, f)
	}
	return out
}

func (f Field) Valid() bool { return f >= 0 && f < fieldCount }

// Key is the ASCII identifier used in configuration and storage.
func (f Field) Key() string {
	if !f.Valid() {
		return ""
	}
	return fields[f].key
}

// Label is the heading the target site prints for the field.
func (f Field) Label() string {
	if !f.Valid() {
		return ""
	}
	return fields[f].label
}

// IsList reports whether the field holds a list of values.
func (f Field) IsList() bool {
	return f.Valid() && fields[f].list
}

func (f Field) String() string { return f.Key() }

// ParseField resolves a field from its key or its site label.
func ParseField(s string) (Field, bool) {
	s = strings.TrimSpace(s)
	for f := Field(0); f < fieldCount; f++ {
		if strings.EqualFold(s, fields[f].key) || s == fields[f].label {
			return f, true
		}
	}
	return 0, false
}

// Header returns the CSV column names in field order.
func Header() []string {
	out := make([]string, 0, fieldCount)
	for f := Field(0); f < fieldCount; f++ {
		out = append(out, fields[f].label)
	}
	return out
}
