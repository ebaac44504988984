package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/competencymatrix/internal/models"
)

// Pipeline stages at which a run can stop.
const (
	StageListing       = "listing"
	StageClarification = "clarification"
	StageRendered      = "rendered"
)

// PipelineRequest selects one job of a document and optionally steers its competency.
type PipelineRequest struct {
	SourceURI string
	// JobIndex nil stops the run at the listing.
	JobIndex         *int
	ChosenCompetency string
	RulebookURI      string
	OutputFilename   string
	ExecutionID      string
}

// PipelineResult records how far a run got and what each step produced.
type PipelineResult struct {
	Stage      string                     `json:"stage"`
	Listing    *models.JobListing         `json:"listing,omitempty"`
	Extracted  *models.ExtractedJob       `json:"extracted,omitempty"`
	Competency *models.CompetencyResponse `json:"competency,omitempty"`
	Render     *models.RenderResult       `json:"render,omitempty"`
}

// Pipeline runs parse, generate and render in sequence for one selection.
type Pipeline struct {
	Parser    *JobParser
	Generator *CompetencyGenerator
	Renderer  *DeckRenderer
}

// Run executes one selection. Each step's error is returned unchanged in kind so callers
// can tell input, contract and template failures apart.
func (p *Pipeline) Run(ctx context.Context, req PipelineRequest) (*PipelineResult, error) {
	logCtx := slog.With("source", req.SourceURI, "executionId", req.ExecutionID)

	parsed, err := p.Parser.Process(ctx, models.JobParseRequest{
		GCSUri:           req.SourceURI,
		SelectedJobIndex: req.JobIndex,
		ExecutionID:      req.ExecutionID,
	})
	if err != nil {
		return nil, fmt.Errorf("parse step: %w", err)
	}
	if parsed.Listing != nil {
		return &PipelineResult{Stage: StageListing, Listing: parsed.Listing}, nil
	}
	result := &PipelineResult{Extracted: parsed.Extracted}
	job := parsed.Extracted.Job
	logCtx = logCtx.With("jobIndex", parsed.Extracted.Segment.Index, "jobTitle", job.Title())

	comp, err := p.Generator.Process(ctx, models.CompetencyRequest{
		Job:              job,
		ChosenCompetency: req.ChosenCompetency,
		RulebookGCSUri:   req.RulebookURI,
		ExecutionID:      req.ExecutionID,
	})
	if err != nil {
		return nil, fmt.Errorf("generate step: %w", err)
	}
	result.Competency = comp
	if comp.Mode == models.ModeClarification {
		logCtx.Info("Run paused for clarification.", "candidates", len(comp.Clarification.Candidates))
		result.Stage = StageClarification
		return result, nil
	}

	classification := models.ClassificationOf(job)
	rendered, err := p.Renderer.Process(ctx, models.RenderRequest{
		Record:         comp.Record,
		Classification: &classification,
		JobTitle:       job.Title(),
		OutputFilename: req.OutputFilename,
		ExecutionID:    req.ExecutionID,
	})
	if err != nil {
		return nil, fmt.Errorf("render step: %w", err)
	}
	result.Render = rendered
	result.Stage = StageRendered
	logCtx.Info("Run complete.", "outputFilename", rendered.OutputFilename, "uploaded", rendered.UploadError == nil)
	return result, nil
}
