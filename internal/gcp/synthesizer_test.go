package gcp

import (
	"context"
	"testing"

	vertex "cloud.google.com/go/vertexai/genai"
	gemini "github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Lllllllleong/competencymatrix/internal/synth"
)

func TestRequestParts_Order(t *testing.T) {
	parts, err := requestParts(synth.Request{
		Instruction: "extract",
		Attachments: []synth.Attachment{
			{MIMEType: synth.MIMETypePDF, Data: []byte("%PDF")},
			{MIMEType: synth.MIMETypePNG},
		},
		Hint:     "  page text  ",
		Steering: "chosen",
	})
	require.NoError(t, err)
	require.Len(t, parts, 4, "empty attachments are dropped")

	require.NotNil(t, parts[0].Attachment)
	assert.Equal(t, synth.MIMETypePDF, parts[0].Attachment.MIMEType)
	assert.Equal(t, "page text", parts[1].Text)
	assert.Equal(t, "extract", parts[2].Text)
	assert.Equal(t, "chosen", parts[3].Text)
}

func TestRequestParts_InstructionOnly(t *testing.T) {
	parts, err := requestParts(synth.Request{Instruction: "go", Hint: "   "})
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, "go", parts[0].Text)

	_, err = requestParts(synth.Request{Instruction: " "})
	assert.Error(t, err)
}

func TestProviderParts(t *testing.T) {
	req := synth.Request{
		Instruction: "do it",
		Attachments: []synth.Attachment{{MIMEType: synth.MIMETypePNG, Data: []byte{1, 2}}},
	}

	vp, err := vertexParts(req)
	require.NoError(t, err)
	require.Len(t, vp, 2)
	assert.Equal(t, vertex.Blob{MIMEType: synth.MIMETypePNG, Data: []byte{1, 2}}, vp[0])
	assert.Equal(t, vertex.Text("do it"), vp[1])

	gp, err := geminiParts(req)
	require.NoError(t, err)
	require.Len(t, gp, 2)
	assert.Equal(t, gemini.Blob{MIMEType: synth.MIMETypePNG, Data: []byte{1, 2}}, gp[0])
	assert.Equal(t, gemini.Text("do it"), gp[1])
}

func TestVertexText(t *testing.T) {
	resp := &vertex.GenerateContentResponse{
		Candidates: []*vertex.Candidate{{
			Content: &vertex.Content{Parts: []vertex.Part{vertex.Text(`[{"a":`), vertex.Text(`1}]`)}},
		}},
	}
	text, err := vertexText(resp)
	require.NoError(t, err)
	assert.Equal(t, `[{"a":1}]`, text)

	_, err = vertexText(&vertex.GenerateContentResponse{})
	assert.ErrorContains(t, err, "no candidates")

	_, err = vertexText(&vertex.GenerateContentResponse{Candidates: []*vertex.Candidate{{}}})
	assert.ErrorContains(t, err, "no content")

	_, err = vertexText(&vertex.GenerateContentResponse{Candidates: []*vertex.Candidate{{
		Content: &vertex.Content{Parts: []vertex.Part{vertex.Blob{MIMEType: "image/png"}}},
	}}})
	assert.ErrorContains(t, err, "no text parts")
}

func TestGeminiText(t *testing.T) {
	resp := &gemini.GenerateContentResponse{
		Candidates: []*gemini.Candidate{{
			Content: &gemini.Content{Parts: []gemini.Part{gemini.Text("{}")}},
		}},
	}
	text, err := geminiText(resp)
	require.NoError(t, err)
	assert.Equal(t, "{}", text)

	_, err = geminiText(nil)
	assert.Error(t, err)
}

func TestNewSynthesizers_Validation(t *testing.T) {
	ctx := context.Background()

	_, err := NewSynthesizers(ctx, SynthesizerSettings{Provider: "openai"})
	assert.ErrorContains(t, err, "unknown synthesizer provider")

	_, err = NewSynthesizers(ctx, SynthesizerSettings{Provider: ProviderGeminiAPI})
	assert.ErrorContains(t, err, "API key is required")

	_, err = NewSynthesizers(ctx, SynthesizerSettings{Provider: ProviderVertex, Location: "us-central1"})
	assert.ErrorContains(t, err, "projectID and region cannot be empty")

	var nilSet *Synthesizers
	assert.NoError(t, nilSet.Close())
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(status.Error(codes.NotFound, "missing")))
	assert.False(t, IsNotFound(status.Error(codes.Internal, "boom")))
	assert.False(t, IsNotFound(nil))
}

func TestWorkflowParent(t *testing.T) {
	assert.Equal(t,
		"projects/p/locations/us-central1/workflows/competency-orchestrator",
		WorkflowParent("p", "us-central1", "competency-orchestrator"))
}
