package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Lllllllleong/competencymatrix/internal/contract"
	"github.com/Lllllllleong/competencymatrix/internal/models"
	"github.com/Lllllllleong/competencymatrix/internal/pdfdoc"
	"github.com/Lllllllleong/competencymatrix/internal/prompts"
	"github.com/Lllllllleong/competencymatrix/internal/segment"
	"github.com/Lllllllleong/competencymatrix/internal/synth"
)

const (
	// ListingNote asks the caller to pick one index from the listing.
	ListingNote = "اختر رقم الوظيفة (index) لاستخراج التفاصيل الكاملة."
	// SkippedWarning marks a job payload produced without calling the extractor.
	SkippedWarning = "GOOGLE_CLOUD_PROJECT not set; Gemini call skipped."

	pdfExtractionAttempts = 2
)

type JobParserConfig struct {
	// SynthTarget names the project the extractor is bound to. Empty means degraded mode.
	SynthTarget          string
	ScannedTextThreshold int
	VisionDPI            float64
}

// pdfOps are the document operations the parser depends on.
type pdfOps struct {
	pageTexts   func(pdf []byte) ([]string, error)
	subDocument func(pdf []byte, start, end int) ([]byte, error)
	renderPages func(pdf []byte, start, end int, dpi float64) ([][]byte, error)
}

var defaultPDFOps = pdfOps{
	pageTexts:   pdfdoc.PageTexts,
	subDocument: pdfdoc.SubDocument,
	renderPages: pdfdoc.RenderPages,
}

// JobParser lists the job cards of a document and extracts the fields of a selected one.
type JobParser struct {
	source    SourceReader
	cache     SegmentCache
	extractor synth.Synthesizer
	snapshots SnapshotWriter
	config    JobParserConfig
	pdf       pdfOps
}

// NewJobParser wires a parser. cache, extractor and snapshots may be nil.
func NewJobParser(source SourceReader, cache SegmentCache, extractor synth.Synthesizer, snapshots SnapshotWriter, config JobParserConfig) *JobParser {
	if config.ScannedTextThreshold <= 0 {
		config.ScannedTextThreshold = segment.DefaultScannedThreshold
	}
	if config.VisionDPI <= 0 {
		config.VisionDPI = pdfdoc.DefaultDPI
	}
	return &JobParser{
		source:    source,
		cache:     cache,
		extractor: extractor,
		snapshots: snapshots,
		config:    config,
		pdf:       defaultPDFOps,
	}
}

// Process returns the listing when no job is selected, otherwise the extracted job.
func (f *JobParser) Process(ctx context.Context, req models.JobParseRequest) (*models.JobParseResponse, error) {
	logCtx := slog.With("gcsUri", req.GCSUri, "documentId", req.DocumentID, "executionId", req.ExecutionID)

	pdf, err := f.readSource(ctx, req.GCSUri)
	if err != nil {
		logCtx.Warn("Source document unavailable.", "error", err)
		return nil, err
	}
	fileHash := hashBytes(pdf)
	logCtx = logCtx.With("fileHash", fileHash)

	var pages []string
	segments, cached := f.cachedSegments(ctx, logCtx, fileHash)
	if !cached || req.SelectedJobIndex != nil {
		pages, err = f.pdf.pageTexts(pdf)
		if err != nil {
			logCtx.Error("Failed to extract page texts.", "error", err)
			return nil, &InputError{Message: "failed to read PDF text", Cause: err}
		}
	}
	if !cached {
		segments = segment.Segment(pages)
		f.storeSegments(ctx, logCtx, fileHash, segments)
	}
	if len(segments) == 0 {
		logCtx.Warn("No job cards detected.")
		return nil, &InputError{Message: MsgNoJobCards}
	}

	if req.SelectedJobIndex == nil {
		logCtx.Info("Returning job listing.", "jobCount", len(segments), "cached", cached)
		return &models.JobParseResponse{
			Status: models.ParseStatusListing,
			Listing: &models.JobListing{
				JobCount: len(segments),
				Jobs:     segments,
				Note:     ListingNote,
			},
		}, nil
	}

	index := *req.SelectedJobIndex
	if index < 0 || index >= len(segments) {
		return nil, selectionOutOfRange(index, len(segments))
	}
	seg := segments[index]
	logCtx = logCtx.With("jobIndex", index, "pageStart", seg.PageStart, "pageEnd", seg.PageEnd)

	extracted, err := f.extract(ctx, logCtx, pdf, pages, seg)
	if err != nil {
		return nil, err
	}
	f.snapshot(ctx, logCtx, fileHash, extracted)

	return &models.JobParseResponse{Status: models.ParseStatusExtracted, Extracted: extracted}, nil
}

func (f *JobParser) readSource(ctx context.Context, uri string) ([]byte, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, &InputError{Message: MsgNoDocument}
	}
	data, err := f.source.Read(ctx, uri)
	if err != nil {
		return nil, &InputError{Message: MsgNoDocument, Cause: err}
	}
	if len(data) == 0 {
		return nil, &InputError{Message: MsgNoDocument}
	}
	return data, nil
}

func (f *JobParser) cachedSegments(ctx context.Context, logCtx *slog.Logger, fileHash string) ([]models.JobSegment, bool) {
	if f.cache == nil {
		return nil, false
	}
	segs, ok, err := f.cache.Get(ctx, fileHash)
	if err != nil {
		logCtx.Warn("Segment cache read failed, rescanning.", "error", err)
		return nil, false
	}
	return segs, ok
}

func (f *JobParser) storeSegments(ctx context.Context, logCtx *slog.Logger, fileHash string, segs []models.JobSegment) {
	if f.cache == nil {
		return
	}
	if err := f.cache.Put(ctx, fileHash, segs); err != nil {
		logCtx.Warn("Segment cache write failed.", "error", err)
	}
}

// extract runs the extractor on the sub-document twice, then once on rendered page images.
func (f *JobParser) extract(ctx context.Context, logCtx *slog.Logger, pdf []byte, pages []string, seg models.JobSegment) (*models.ExtractedJob, error) {
	if seg.PageStart < 0 || seg.PageEnd >= len(pages) || seg.PageStart > seg.PageEnd {
		return nil, fmt.Errorf("segment %d pages %d-%d outside document of %d pages", seg.Index, seg.PageStart, seg.PageEnd, len(pages))
	}
	hint := strings.Join(pages[seg.PageStart:seg.PageEnd+1], "\n")

	if f.extractor == nil || f.config.SynthTarget == "" {
		logCtx.Warn("No extractor target configured. Returning title-only job.")
		return degradedJob(seg, len(hint)), nil
	}

	sub, err := f.pdf.subDocument(pdf, seg.PageStart, seg.PageEnd)
	if err != nil {
		logCtx.Error("Failed to build sub-document.", "error", err)
		return nil, fmt.Errorf("failed to build sub-document for job %d: %w", seg.Index, err)
	}

	instruction, err := prompts.ExtractionInstruction()
	if err != nil {
		return nil, err
	}
	pdfReq := synth.Request{
		Instruction: instruction,
		Attachments: []synth.Attachment{{MIMEType: synth.MIMETypePDF, Data: sub}},
	}
	if segment.LooksScanned(pages, seg.PageStart, seg.PageEnd, f.config.ScannedTextThreshold) {
		logCtx.Info("Text layer looks scanned, dropping text hint.", "hintChars", len(hint))
	} else {
		if pdfReq.Hint, err = prompts.ExtractionHint(hint); err != nil {
			return nil, err
		}
	}

	var lastErr error
	for attempt := 1; attempt <= pdfExtractionAttempts; attempt++ {
		job, err := f.callExtractor(ctx, pdfReq)
		if err == nil {
			job.Extraction = &models.ExtractionInfo{Method: models.ExtractionMethodPDF, Attempt: attempt}
			logCtx.Info("Job extracted from PDF.", "attempt", attempt)
			return &models.ExtractedJob{Segment: seg, Job: job}, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("extraction cancelled: %w", ctxErr)
		}
		lastErr = err
		logCtx.Warn("PDF extraction attempt failed.", "attempt", attempt, "error", err)
	}

	images, err := f.pdf.renderPages(pdf, seg.PageStart, seg.PageEnd, f.config.VisionDPI)
	if err != nil {
		logCtx.Error("Failed to render pages for vision fallback.", "error", err)
		return nil, &contract.ContractError{Attempts: pdfExtractionAttempts, LastErr: errors.Join(lastErr, err)}
	}
	visionReq := synth.Request{Instruction: instruction}
	for _, img := range images {
		visionReq.Attachments = append(visionReq.Attachments, synth.Attachment{MIMEType: synth.MIMETypePNG, Data: img})
	}

	job, err := f.callExtractor(ctx, visionReq)
	if err != nil {
		logCtx.Error("Vision extraction failed.", "pdfError", lastErr, "error", err)
		return nil, &contract.ContractError{
			Attempts: pdfExtractionAttempts + 1,
			LastErr:  fmt.Errorf("PDF: %v; vision: %w", lastErr, err),
		}
	}
	job.Extraction = &models.ExtractionInfo{Method: models.ExtractionMethodVision, Attempt: pdfExtractionAttempts + 1}
	logCtx.Warn("Job extracted from page images after PDF failures.", "pdfError", lastErr)
	return &models.ExtractedJob{
		Segment: seg,
		Job:     job,
		Warning: fmt.Sprintf("PDF parse failed twice: %v", lastErr),
	}, nil
}

func (f *JobParser) callExtractor(ctx context.Context, req synth.Request) (models.JobPayload, error) {
	raw, err := f.extractor.Synthesize(ctx, req)
	if err != nil {
		return models.JobPayload{}, err
	}
	return contract.ParseJobPayload(raw)
}

func (f *JobParser) snapshot(ctx context.Context, logCtx *slog.Logger, fileHash string, extracted *models.ExtractedJob) {
	if f.snapshots == nil || extracted.Job.Extraction == nil || extracted.Job.Extraction.Method == models.ExtractionMethodSkipped {
		return
	}
	data, err := json.Marshal(extracted)
	if err != nil {
		logCtx.Warn("Failed to encode job snapshot.", "error", err)
		return
	}
	name := fmt.Sprintf("%s/%03d.json", fileHash, extracted.Segment.Index)
	if err := f.snapshots.Save(ctx, name, string(data)); err != nil {
		logCtx.Warn("Failed to save job snapshot.", "snapshot", name, "error", err)
	}
}

// degradedJob carries only the segment title, for runs without an extractor.
func degradedJob(seg models.JobSegment, hintChars int) *models.ExtractedJob {
	title := seg.Title
	return &models.ExtractedJob{
		Segment: seg,
		Job: models.JobPayload{
			JobTitle:         &title,
			AdditionalFields: map[string]any{"_warning": SkippedWarning},
			Extraction:       &models.ExtractionInfo{Method: models.ExtractionMethodSkipped},
		},
		Debug: map[string]int{"text_hint_chars": hintChars},
	}
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
