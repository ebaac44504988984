package contract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Lllllllleong/competencymatrix/internal/models"
	"github.com/Lllllllleong/competencymatrix/internal/textnorm"
)

const maxFallbackCodeLen = 8

var jobCodeRegex = regexp.MustCompile(`\b([A-Za-z0-9]{4})\b`)

// fieldLabels holds the card's own Arabic label for each payload key. A label is accepted
// when the extractor echoes it instead of the requested key.
var fieldLabels = map[string]string{
	"job_title":       "مسمى الوظيفة",
	"job_code":        "كود الوظيفة",
	"financial_grade": "الدرجة المالية",
	"general_group":   "المجموعة العامة",
	"specific_group":  "المجموعة النوعية",
	"job_purpose":     "تختص هذه الوظيفة",
	"job_location":    "تقع هذه الوظيفة",
	"duties":          "واجبات ومسؤوليات الوظيفة",
	"qualification":   "المؤهل",
	"experience":      "الخبرة العملية",
}

// ParseJobPayload recovers a single job object from raw extractor output and normalizes it.
func ParseJobPayload(raw string) (models.JobPayload, error) {
	text, err := ExtractJSON(raw)
	if err != nil {
		return models.JobPayload{}, err
	}
	var data any
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return models.JobPayload{}, &ParseError{Message: "extraction output is not valid JSON", Cause: err}
	}
	obj, ok := data.(map[string]any)
	if !ok {
		return models.JobPayload{}, &SchemaError{Shape: "job payload", Errors: []FieldError{{
			Field:   "(root)",
			Message: fmt.Sprintf("expected a JSON object for a single job, got %s", jsonKind(data)),
		}}}
	}
	return NormalizeJobPayload(obj), nil
}

// NormalizeJobPayload maps a decoded extraction object onto JobPayload. Duties become a
// list of trimmed non-empty strings (or null), a 4-character code is pulled out of noisy
// code strings, and additional_fields is always a map.
func NormalizeJobPayload(m map[string]any) models.JobPayload {
	get := func(key string) any {
		if v := m[key]; v != nil {
			return v
		}
		return m[fieldLabels[key]]
	}

	p := models.JobPayload{
		JobTitle:       optionalString(get("job_title")),
		JobCode:        normalizeJobCode(get("job_code")),
		FinancialGrade: optionalString(get("financial_grade")),
		GeneralGroup:   optionalString(get("general_group")),
		SpecificGroup:  optionalString(get("specific_group")),
		JobPurpose:     optionalString(get("job_purpose")),
		JobLocation:    optionalString(get("job_location")),
		Duties:         normalizeDuties(get("duties")),
		Qualification:  optionalString(get("qualification")),
		Experience:     optionalString(get("experience")),
	}

	switch af := m["additional_fields"].(type) {
	case nil:
		p.AdditionalFields = map[string]any{}
	case map[string]any:
		p.AdditionalFields = af
	default:
		p.AdditionalFields = map[string]any{"_raw": scalarString(af)}
	}
	return p
}

func optionalString(v any) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(scalarString(v))
	return &s
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	}
	return fmt.Sprint(v)
}

func normalizeJobCode(v any) *string {
	switch v.(type) {
	case string, float64, json.Number:
	default:
		return nil
	}
	s := strings.TrimSpace(scalarString(v))
	if m := jobCodeRegex.FindStringSubmatch(s); m != nil {
		return &m[1]
	}
	if r := []rune(s); len(r) > maxFallbackCodeLen {
		s = string(r[:maxFallbackCodeLen])
	}
	return &s
}

func normalizeDuties(v any) []string {
	switch t := v.(type) {
	case string:
		duties := []string{}
		for _, ln := range strings.Split(t, "\n") {
			ln = textnorm.TrimLeadingBullets(ln)
			if ln != "" {
				duties = append(duties, ln)
			}
		}
		return duties
	case []any:
		duties := []string{}
		for _, x := range t {
			if x == nil {
				continue
			}
			if s := strings.TrimSpace(scalarString(x)); s != "" {
				duties = append(duties, s)
			}
		}
		return duties
	}
	return nil
}
