package gcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/Lllllllleong/competencymatrix/internal/synth"
)

// GeminiAPIClient talks to the Gemini API with an API key instead of project credentials.
type GeminiAPIClient struct {
	client *genai.Client
}

func NewGeminiAPIClient(ctx context.Context, apiKey string) (*GeminiAPIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiAPIClient{client: client}, nil
}

// Synthesizer returns a JSON-mode synthesizer backed by modelName.
func (c *GeminiAPIClient) Synthesizer(modelName, systemPrompt string) *GeminiAPISynthesizer {
	model := c.client.GenerativeModel(modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}
	model.SetTemperature(0.2)
	model.ResponseMIMEType = jsonMIMEType
	return &GeminiAPISynthesizer{model: model, name: modelName}
}

func (c *GeminiAPIClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// GeminiAPISynthesizer implements synth.Synthesizer on the Gemini API.
type GeminiAPISynthesizer struct {
	model *genai.GenerativeModel
	name  string
}

func (s *GeminiAPISynthesizer) Synthesize(ctx context.Context, req synth.Request) (string, error) {
	parts, err := geminiParts(req)
	if err != nil {
		return "", err
	}
	resp, err := s.model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini %s: failed to generate content: %w", s.name, err)
	}
	return geminiText(resp)
}

func geminiParts(req synth.Request) ([]genai.Part, error) {
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

func geminiText(resp *genai.GenerateContentResponse) (string, error) {
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
