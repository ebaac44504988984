package models

// DefaultCompType is the competency type used when the synthesizer leaves it empty.
const DefaultCompType = "الكفاءة الفنية التخصصية"

// CompetencyTopic is one sub-topic of the main competency; it becomes one slide.
// Level texts are newline-separated items without bullet glyphs.
type CompetencyTopic struct {
	Title        string `json:"title" validate:"min=2"`
	Desc         string `json:"desc" validate:"min=6"`
	Expert       string `json:"expert"`
	Advanced     string `json:"advanced"`
	Intermediate string `json:"intermediate"`
	Beginner     string `json:"beginner"`
}

// CompetencyRecord is the validated single-job contract consumed by the renderer.
type CompetencyRecord struct {
	CompetencyName string            `json:"competency_name" validate:"min=2"`
	Definition     string            `json:"definition" validate:"min=10"`
	CompType       string            `json:"comp_type" validate:"required"`
	JobGroup       string            `json:"job_group" validate:"min=2"`
	Department     string            `json:"department" validate:"min=2"`
	Topics         []CompetencyTopic `json:"topics" validate:"min=2,max=3,dive"`
}

// ClarificationRequest is returned instead of a record when the main competency
// could not be determined.
type ClarificationRequest struct {
	NeedsClarification bool     `json:"needs_clarification"`
	Candidates         []string `json:"candidates" validate:"min=2,max=5,dive,required"`
	Question           string   `json:"question" validate:"min=6"`
	Reason             string   `json:"reason,omitempty"`
}

// Classification carries the job-card fields that are authoritative for slide headers.
type Classification struct {
	GeneralGroup  string `json:"general_group,omitempty"`
	SpecificGroup string `json:"specific_group,omitempty"`
	JobLocation   string `json:"job_location,omitempty"`
}

// ClassificationOf returns the header-relevant fields of a job payload.
func ClassificationOf(p JobPayload) Classification {
	return Classification{
		GeneralGroup:  Value(p.GeneralGroup),
		SpecificGroup: Value(p.SpecificGroup),
		JobLocation:   Value(p.JobLocation),
	}
}
