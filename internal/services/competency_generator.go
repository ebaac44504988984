package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Lllllllleong/competencymatrix/internal/contract"
	"github.com/Lllllllleong/competencymatrix/internal/models"
	"github.com/Lllllllleong/competencymatrix/internal/synth"
)

type CompetencyGeneratorConfig struct {
	// SynthTarget names the project the synthesizer is bound to. Empty means degraded mode.
	SynthTarget string
	MaxAttempts int
	// RulebookPath is an optional local reference PDF sent with every attempt.
	RulebookPath string
}

// CompetencyGenerator turns an extracted job into a validated competency record or a
// clarification request.
type CompetencyGenerator struct {
	validator *contract.Validator
	source    SourceReader
	rulebook  []byte
	config    CompetencyGeneratorConfig
}

// NewCompetencyGenerator loads the configured rulebook once. source resolves per-request
// rulebook URIs and may be nil.
func NewCompetencyGenerator(s synth.Synthesizer, source SourceReader, config CompetencyGeneratorConfig) (*CompetencyGenerator, error) {
	var rulebook []byte
	if config.RulebookPath != "" {
		data, err := os.ReadFile(config.RulebookPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read rulebook %s: %w", config.RulebookPath, err)
		}
		rulebook = data
	}
	validator := contract.New(s, contract.Options{
		MaxAttempts: config.MaxAttempts,
		Target:      config.SynthTarget,
		Logger:      slog.Default(),
	})
	slog.Info("Competency generator initialized.", "maxAttempts", config.MaxAttempts, "rulebookBytes", len(rulebook))
	return &CompetencyGenerator{
		validator: validator,
		source:    source,
		rulebook:  rulebook,
		config:    config,
	}, nil
}

// Process runs the validator. A clarification is a successful response; an exhausted
// budget surfaces as *contract.ContractError.
func (f *CompetencyGenerator) Process(ctx context.Context, req models.CompetencyRequest) (*models.CompetencyResponse, error) {
	logCtx := slog.With("jobTitle", req.Job.Title(), "executionId", req.ExecutionID, "steered", req.ChosenCompetency != "")

	rulebook := f.rulebook
	if req.RulebookGCSUri != "" {
		if f.source == nil {
			return nil, &InputError{Message: "rulebook URI given but no document reader is configured"}
		}
		data, err := f.source.Read(ctx, req.RulebookGCSUri)
		if err != nil {
			return nil, &InputError{Message: "failed to read rulebook", Cause: err}
		}
		rulebook = data
	}

	result, err := f.validator.Generate(ctx, req.Job, contract.Request{
		ChosenCompetency: req.ChosenCompetency,
		Context:          rulebook,
	})
	if err != nil {
		logCtx.Error("Competency generation failed.", "error", err)
		return nil, err
	}

	resp := &models.CompetencyResponse{Attempts: result.Attempts}
	switch result.State {
	case contract.StateValidated:
		resp.Mode = models.ModeOK
		resp.Record = result.Record
	default:
		resp.Mode = models.ModeClarification
		resp.Clarification = result.Clarification
	}
	logCtx.Info("Competency generation finished.", "mode", resp.Mode, "attempts", resp.Attempts)
	return resp, nil
}
