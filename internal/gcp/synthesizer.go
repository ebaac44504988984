package gcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Lllllllleong/competencymatrix/internal/prompts"
	"github.com/Lllllllleong/competencymatrix/internal/synth"
)

// Synthesizer providers.
const (
	ProviderVertex    = "vertex"
	ProviderGeminiAPI = "gemini-api"
)

const jsonMIMEType = "application/json"

// SynthesizerSettings selects the provider and models for both pipeline roles.
type SynthesizerSettings struct {
	Provider        string
	ProjectID       string
	Location        string
	APIKey          string
	ExtractorModel  string
	CompetencyModel string
}

// Synthesizers holds the two configured roles. Close releases the shared client.
type Synthesizers struct {
	Extractor  synth.Synthesizer
	Competency synth.Synthesizer
	close      func() error
}

func (s *Synthesizers) Close() error {
	if s == nil || s.close == nil {
		return nil
	}
	return s.close()
}

// NewSynthesizers builds the extractor and competency synthesizers for the configured provider.
func NewSynthesizers(ctx context.Context, settings SynthesizerSettings) (*Synthesizers, error) {
	extractorSystem, err := prompts.System(prompts.Extraction)
	if err != nil {
		return nil, err
	}
	competencySystem, err := prompts.System(prompts.Competency)
	if err != nil {
		return nil, err
	}

	switch settings.Provider {
	case ProviderGeminiAPI:
		client, err := NewGeminiAPIClient(ctx, settings.APIKey)
		if err != nil {
			return nil, err
		}
		return &Synthesizers{
			Extractor:  client.Synthesizer(settings.ExtractorModel, extractorSystem),
			Competency: client.Synthesizer(settings.CompetencyModel, competencySystem),
			close:      client.Close,
		}, nil
	case ProviderVertex, "":
		client, err := NewVertexClient(ctx, settings.ProjectID, settings.Location)
		if err != nil {
			return nil, err
		}
		return &Synthesizers{
			Extractor:  client.Synthesizer(settings.ExtractorModel, extractorSystem),
			Competency: client.Synthesizer(settings.CompetencyModel, competencySystem),
			close:      client.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown synthesizer provider %q", settings.Provider)
	}
}

// requestPart is one provider-neutral piece of a synthesis call.
type requestPart struct {
	Text       string
	Attachment *synth.Attachment
}

// requestParts orders a request as attachments, hint, instruction, steering.
func requestParts(req synth.Request) ([]requestPart, error) {
	if strings.TrimSpace(req.Instruction) == "" {
		return nil, errors.New("synthesis request has no instruction")
	}
	parts := make([]requestPart, 0, len(req.Attachments)+3)
	for i := range req.Attachments {
		a := req.Attachments[i]
		if len(a.Data) == 0 {
			continue
		}
		parts = append(parts, requestPart{Attachment: &a})
	}
	if h := strings.TrimSpace(req.Hint); h != "" {
		parts = append(parts, requestPart{Text: h})
	}
	parts = append(parts, requestPart{Text: req.Instruction})
	if s := strings.TrimSpace(req.Steering); s != "" {
		parts = append(parts, requestPart{Text: s})
	}
	return parts, nil
}

func joinTexts(texts []string) (string, error) {
	if len(texts) == 0 {
		return "", errors.New("no text parts in response")
	}
	return strings.Join(texts, ""), nil
}
