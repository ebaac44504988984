package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/competencymatrix/internal/models"
)

func newTestPipeline(t *testing.T, extractor, competency *scriptedSynth, store ArtifactStore) *Pipeline {
	t.Helper()
	gen, err := NewCompetencyGenerator(competency, nil, CompetencyGeneratorConfig{SynthTarget: "proj", MaxAttempts: 2})
	require.NoError(t, err)
	return &Pipeline{
		Parser:    newTestParser(cardPages(), extractor, "proj"),
		Generator: gen,
		Renderer:  newTestRenderer(t, store),
	}
}

func TestPipeline_StopsAtListing(t *testing.T) {
	p := newTestPipeline(t, &scriptedSynth{}, &scriptedSynth{}, nil)

	res, err := p.Run(context.Background(), PipelineRequest{SourceURI: testURI})
	require.NoError(t, err)

	assert.Equal(t, StageListing, res.Stage)
	assert.Equal(t, 2, res.Listing.JobCount)
	assert.Nil(t, res.Extracted)
}

func TestPipeline_StopsAtClarification(t *testing.T) {
	competency := &scriptedSynth{outputs: []string{clarificationJSON}}
	p := newTestPipeline(t, &scriptedSynth{outputs: []string{jobJSON}}, competency, nil)

	res, err := p.Run(context.Background(), PipelineRequest{SourceURI: testURI, JobIndex: intPtr(0)})
	require.NoError(t, err)

	assert.Equal(t, StageClarification, res.Stage)
	assert.Equal(t, models.ModeClarification, res.Competency.Mode)
	assert.Nil(t, res.Render)
}

func TestPipeline_Renders(t *testing.T) {
	store := &fakeStore{bucket: "decks"}
	competency := &scriptedSynth{outputs: []string{recordJSON(3)}}
	p := newTestPipeline(t, &scriptedSynth{outputs: []string{jobJSON}}, competency, store)

	res, err := p.Run(context.Background(), PipelineRequest{
		SourceURI:        testURI,
		JobIndex:         intPtr(0),
		ChosenCompetency: "إدارة المشاريع الهندسية",
	})
	require.NoError(t, err)

	assert.Equal(t, StageRendered, res.Stage)
	assert.Equal(t, "الوظائف الهندسية", res.Competency.Record.CompType)
	assert.Equal(t, 3, res.Render.SlidesGenerated)
	assert.Equal(t, "مهندس_مدني_2026-03-14.pptx", res.Render.OutputFilename)
	assert.Contains(t, store.uploads, res.Render.OutputFilename)
	assert.Contains(t, competency.requests[0].Steering, "إدارة المشاريع الهندسية")
}

func TestPipeline_WrapsStepErrors(t *testing.T) {
	p := newTestPipeline(t, &scriptedSynth{}, &scriptedSynth{}, nil)

	_, err := p.Run(context.Background(), PipelineRequest{SourceURI: testURI, JobIndex: intPtr(5)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse step")
	assert.True(t, IsInputError(err))
}
