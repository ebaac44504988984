package models

// These structs define the JSON payloads for HTTP requests and responses
// between the orchestration workflow (or the CLI) and the worker functions.

// JobParseRequest is the input for the job-parser function.
// When SelectedJobIndex is nil the response is a listing of the detected job cards.
type JobParseRequest struct {
	DocumentID       string `json:"documentId,omitempty"`
	GCSUri           string `json:"gcsUri"`
	SelectedJobIndex *int   `json:"selectedJobIndex,omitempty"`
	ExecutionID      string `json:"executionId,omitempty"`
}

// JobListing is returned when no job has been selected yet.
type JobListing struct {
	JobCount int          `json:"job_count"`
	Jobs     []JobSegment `json:"jobs"`
	Note     string       `json:"note"`
}

// ExtractedJob is returned for a selected job card.
type ExtractedJob struct {
	Segment JobSegment     `json:"segment"`
	Job     JobPayload     `json:"job"`
	Warning string         `json:"warning,omitempty"`
	Debug   map[string]int `json:"debug,omitempty"`
}

// Job-parser response statuses.
const (
	ParseStatusListing   = "listing"
	ParseStatusExtracted = "extracted"
)

// JobParseResponse carries exactly one of Listing or Extracted.
type JobParseResponse struct {
	Status    string        `json:"status"`
	Listing   *JobListing   `json:"listing,omitempty"`
	Extracted *ExtractedJob `json:"extracted,omitempty"`
}

// CompetencyRequest is the input for the competency-generator function.
type CompetencyRequest struct {
	Job              JobPayload `json:"job"`
	ChosenCompetency string     `json:"chosenCompetency,omitempty"`
	RulebookGCSUri   string     `json:"rulebookGcsUri,omitempty"`
	ExecutionID      string     `json:"executionId,omitempty"`
}

// Competency response modes.
const (
	ModeOK            = "ok"
	ModeClarification = "clarification"
)

// CompetencyResponse is the output of the competency-generator function.
type CompetencyResponse struct {
	Mode          string                `json:"mode"`
	Record        *CompetencyRecord     `json:"record,omitempty"`
	Clarification *ClarificationRequest `json:"clarification,omitempty"`
	Attempts      int                   `json:"attempts"`
}

// RenderRequest is the input for the deck-renderer function. Record is decoded
// loosely and coerced into a CompetencyRecord at the boundary.
type RenderRequest struct {
	Record         any             `json:"record"`
	Classification *Classification `json:"classification,omitempty"`
	JobTitle       string          `json:"jobTitle,omitempty"`
	OutputFilename string          `json:"outputFilename,omitempty"`
	LayoutName     string          `json:"layoutName,omitempty"`
	Strict         *bool           `json:"strict,omitempty"`
	ExecutionID    string          `json:"executionId,omitempty"`
}

// RenderResult reports the rendered deck and where it was published.
type RenderResult struct {
	OutputFilename  string  `json:"output_filename"`
	SlidesGenerated int     `json:"slides_generated"`
	GCSBucket       *string `json:"gcs_bucket"`
	GCSObject       *string `json:"gcs_object"`
	GCSURL          *string `json:"gcs_url"`
	SignedURL       *string `json:"signed_url"`
	UploadError     *string `json:"upload_error"`
	ArtifactBytes   []byte  `json:"artifact_bytes,omitempty"`
	FinalMessage    string  `json:"final_message"`
}
