package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/competencymatrix/internal/config"
)

func TestRuntime_DegradedWithoutCloud(t *testing.T) {
	cfg := config.Default()
	r := NewRuntime(cfg)
	t.Cleanup(func() { _ = r.Close() })
	ctx := context.Background()

	assert.Empty(t, r.SynthTarget())

	parser, err := r.JobParser(ctx)
	require.NoError(t, err)
	assert.Nil(t, parser.extractor)
	assert.Nil(t, parser.snapshots)
	assert.Same(t, r.memCache, parser.cache)

	renderer, err := r.DeckRenderer(ctx)
	require.NoError(t, err)
	assert.Nil(t, renderer.store)
	assert.Equal(t, cfg.Template.LayoutName, renderer.config.LayoutName)

	_, err = r.CompetencyGenerator(ctx)
	require.NoError(t, err)

	_, err = r.DocumentIntake(ctx)
	assert.ErrorContains(t, err, "GOOGLE_CLOUD_PROJECT")
}

func TestRuntime_SynthTarget(t *testing.T) {
	cfg := config.Default()
	cfg.GCP.ProjectID = "proj"
	assert.Equal(t, "proj", NewRuntime(cfg).SynthTarget())

	cfg = config.Default()
	cfg.Synth.Provider = config.ProviderGeminiAPI
	assert.Empty(t, NewRuntime(cfg).SynthTarget())
	cfg.Synth.APIKey = "key"
	assert.Equal(t, config.ProviderGeminiAPI, NewRuntime(cfg).SynthTarget())
}
