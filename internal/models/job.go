package models

// JobSegment is a contiguous page range of a source document holding one job card.
// Pages are 0-based and PageEnd is inclusive.
type JobSegment struct {
	Index     int    `json:"index" firestore:"index"`
	PageStart int    `json:"page_start" firestore:"pageStart"`
	PageEnd   int    `json:"page_end" firestore:"pageEnd"`
	Title     string `json:"title" firestore:"title"`
}

// PageCount returns the number of pages covered by the segment.
func (s JobSegment) PageCount() int {
	return s.PageEnd - s.PageStart + 1
}

// JobPayload holds the fields extracted from one job card. Every field is always
// serialized; absent values are null.
type JobPayload struct {
	JobTitle         *string        `json:"job_title"`
	JobCode          *string        `json:"job_code"`
	FinancialGrade   *string        `json:"financial_grade"`
	GeneralGroup     *string        `json:"general_group"`
	SpecificGroup    *string        `json:"specific_group"`
	JobPurpose       *string        `json:"job_purpose"`
	JobLocation      *string        `json:"job_location"`
	Duties           []string       `json:"duties"`
	Qualification    *string        `json:"qualification"`
	Experience       *string        `json:"experience"`
	AdditionalFields map[string]any `json:"additional_fields"`

	Extraction *ExtractionInfo `json:"_extraction,omitempty"`
}

// ExtractionInfo records how a JobPayload was obtained.
type ExtractionInfo struct {
	Method  string `json:"method"`
	Attempt int    `json:"attempt"`
}

// Extraction methods.
const (
	ExtractionMethodPDF     = "pdf"
	ExtractionMethodVision  = "vision_png"
	ExtractionMethodSkipped = "skipped"
)

// Value dereferences an optional payload field, returning "" for null.
func Value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Title returns the job title or "" when the field is null.
func (p JobPayload) Title() string {
	return Value(p.JobTitle)
}
