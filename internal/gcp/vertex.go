package gcp

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/vertexai/genai"

	"github.com/Lllllllleong/competencymatrix/internal/synth"
)

// VertexClient owns the Vertex AI connection shared by all configured models.
type VertexClient struct {
	baseClient *genai.Client
}

// NewVertexClient connects to Vertex AI in the given project and region.
func NewVertexClient(ctx context.Context, projectID, region string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}
	return &VertexClient{baseClient: baseClient}, nil
}

// Synthesizer returns a JSON-mode synthesizer backed by modelName.
func (c *VertexClient) Synthesizer(modelName, systemPrompt string) *VertexSynthesizer {
	model := c.baseClient.GenerativeModel(modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: jsonMIMEType,
		Temperature:      genai.Ptr[float32](0.2),
	}
	model.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
	}
	return &VertexSynthesizer{model: model, name: modelName}
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}

// VertexSynthesizer implements synth.Synthesizer on a Vertex AI generative model.
type VertexSynthesizer struct {
	model *genai.GenerativeModel
	name  string
}

func (s *VertexSynthesizer) Synthesize(ctx context.Context, req synth.Request) (string, error) {
	parts, err := vertexParts(req)
	if err != nil {
		return "", err
	}
	resp, err := s.model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("vertex %s: failed to generate content: %w", s.name, err)
	}
	return vertexText(resp)
}

func vertexParts(req synth.Request) ([]genai.Part, error) {
	specs, err := requestParts(req)
	if err != nil {
		return nil, err
	}
	parts := make([]genai.Part, 0, len(specs))
	for _, p := range specs {
		if p.Attachment != nil {
			parts = append(parts, genai.Blob{MIMEType: p.Attachment.MIMEType, Data: p.Attachment.Data})
			continue
		}
		parts = append(parts, genai.Text(p.Text))
	}
	return parts, nil
}

func vertexText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("no candidates in response")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", errors.New("no content in response")
	}
	var texts []string
	for _, part := range candidate.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			texts = append(texts, string(t))
		}
	}
	return joinTexts(texts)
}
