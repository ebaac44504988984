package services

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/Lllllllleong/competencymatrix/internal/models"
	"github.com/Lllllllleong/competencymatrix/internal/pdfdoc"
	"github.com/Lllllllleong/competencymatrix/internal/segment"
)

// GCSEvent is the storage.object.v1.finalized payload the intake function receives.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// URI returns the gs:// address of the uploaded object.
func (e GCSEvent) URI() string {
	return fmt.Sprintf("gs://%s/%s", e.Bucket, e.Name)
}

// WorkflowPayload is the argument of the orchestration workflow.
type WorkflowPayload struct {
	DocumentID string `json:"documentId"`
	JobCount   int    `json:"jobCount"`
	GCSUri     string `json:"gcsUri"`
}

// DocumentIntake segments newly uploaded PDFs, records them and hands off to the workflow.
type DocumentIntake struct {
	source    SourceReader
	documents DocumentStore
	cache     SegmentCache
	workflow  WorkflowTrigger

	validate  func(pdf []byte) (int, error)
	pageTexts func(pdf []byte) ([]string, error)
	now       func() time.Time
}

// NewDocumentIntake wires the intake. cache and workflow may be nil.
func NewDocumentIntake(source SourceReader, documents DocumentStore, cache SegmentCache, workflow WorkflowTrigger) *DocumentIntake {
	return &DocumentIntake{
		source:    source,
		documents: documents,
		cache:     cache,
		workflow:  workflow,
		validate:  pdfdoc.Validate,
		pageTexts: pdfdoc.PageTexts,
		now:       time.Now,
	}
}

// Process handles one uploaded object. Non-PDF objects and duplicates are skipped.
func (f *DocumentIntake) Process(ctx context.Context, e GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	logCtx.Info("Processing new GCS object.")

	if !strings.EqualFold(path.Ext(e.Name), ".pdf") {
		logCtx.Info("Not a PDF, skipping.")
		return nil
	}

	pdf, err := f.source.Read(ctx, e.URI())
	if err != nil {
		logCtx.Error("Failed to download source PDF", "error", err)
		return err
	}

	fileHash := hashBytes(pdf)
	logCtx = logCtx.With("fileHash", fileHash)

	existingID, err := f.documents.FindByHash(ctx, fileHash)
	if err != nil {
		logCtx.Error("Failed to check for duplicate", "error", err)
		return err
	}
	if existingID != "" {
		logCtx.Info("Duplicate file detected. Skipping.", "existingDocId", existingID)
		return nil
	}

	docID, err := f.documents.Create(ctx, models.Document{
		FileHash:         fileHash,
		OriginalFilename: e.Name,
		SourceURI:        e.URI(),
		Status:           models.StatusSegmenting,
		Segments:         []models.JobSegment{},
		CreatedAt:        f.now(),
	})
	if err != nil {
		logCtx.Error("Failed to create initial Firestore document", "error", err)
		return err
	}
	logCtx = logCtx.With("documentId", docID)
	logCtx.Info("Created master document in Firestore.")

	segments, pageCount, err := f.segmentDocument(pdf)
	if err != nil {
		return f.handleError(ctx, logCtx, docID, "failed to segment PDF", err)
	}

	status := models.StatusSegmented
	if len(segments) == 0 {
		status = models.StatusNoJobCards
	}
	if err := f.documents.Update(ctx, docID, map[string]any{
		"status":    status,
		"pageCount": pageCount,
		"jobCount":  len(segments),
		"segments":  segments,
	}); err != nil {
		return f.handleError(ctx, logCtx, docID, "failed to record segments", err)
	}
	logCtx.Info("Document segmented.", "pageCount", pageCount, "jobCount", len(segments), "status", status)

	if f.cache != nil {
		if err := f.cache.Put(ctx, fileHash, segments); err != nil {
			logCtx.Warn("Segment cache write failed.", "error", err)
		}
	}

	if len(segments) == 0 || f.workflow == nil {
		return nil
	}
	executionID, err := f.workflow.Trigger(ctx, WorkflowPayload{
		DocumentID: docID,
		JobCount:   len(segments),
		GCSUri:     e.URI(),
	})
	if err != nil {
		return f.handleError(ctx, logCtx, docID, "failed to trigger workflow execution", err)
	}
	if err := f.documents.Update(ctx, docID, map[string]any{"workflowExecutionId": executionID}); err != nil {
		logCtx.Warn("Failed to record workflow execution.", "executionId", executionID, "error", err)
	}
	logCtx.Info("Hand-off to workflow complete.", "executionId", executionID)
	return nil
}

func (f *DocumentIntake) segmentDocument(pdf []byte) ([]models.JobSegment, int, error) {
	pageCount, err := f.validate(pdf)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to validate PDF: %w", err)
	}
	pages, err := f.pageTexts(pdf)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to extract page texts: %w", err)
	}
	return segment.Segment(pages), pageCount, nil
}

func (f *DocumentIntake) handleError(ctx context.Context, logCtx *slog.Logger, docID, message string, originalErr error) error {
	fullError := fmt.Sprintf("%s: %v", message, originalErr)
	logCtx.Error(message, "error", originalErr)
	if err := f.documents.Update(ctx, docID, map[string]any{
		"status":       models.StatusFailed,
		"errorDetails": fullError,
	}); err != nil {
		logCtx.Error("CRITICAL: Failed to update Firestore status to FAILED after a processing error.", "updateError", err)
	}
	return fmt.Errorf("%s: %w", message, originalErr)
}
