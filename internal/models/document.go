package models

import "time"

// Document is the Firestore record for an uploaded job-description PDF.
// Segments are cached here so a later selection does not have to rescan the file.
type Document struct {
	FileHash            string       `firestore:"fileHash,omitempty"`
	OriginalFilename    string       `firestore:"originalFilename,omitempty"`
	SourceURI           string       `firestore:"sourceUri,omitempty"`
	Status              string       `firestore:"status,omitempty"`
	ErrorDetails        string       `firestore:"errorDetails,omitempty"`
	PageCount           int          `firestore:"pageCount,omitempty"`
	JobCount            int          `firestore:"jobCount"`
	Segments            []JobSegment `firestore:"segments"`
	WorkflowExecutionID string       `firestore:"workflowExecutionId,omitempty"` // For traceability
	CreatedAt           time.Time    `firestore:"createdAt,omitempty"`
}

// Document statuses.
const (
	StatusSegmenting = "SEGMENTING"
	StatusSegmented  = "SEGMENTED"
	StatusNoJobCards = "NO_JOB_CARDS"
	StatusFailed     = "FAILED"
)
