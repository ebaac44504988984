package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/competencymatrix/internal/contract"
	"github.com/Lllllllleong/competencymatrix/internal/models"
	"github.com/Lllllllleong/competencymatrix/internal/synth"
)

func testJob() models.JobPayload {
	return models.JobPayload{
		JobTitle:      strPtr("مهندس مدني"),
		GeneralGroup:  strPtr("الوظائف الهندسية"),
		SpecificGroup: strPtr("الهندسة المدنية"),
		JobLocation:   strPtr("إدارة المشاريع"),
		Duties:        []string{"يراجع المخططات"},
	}
}

func TestCompetencyGenerator_Validated(t *testing.T) {
	s := &scriptedSynth{outputs: []string{"oops", recordJSON(2)}}
	g, err := NewCompetencyGenerator(s, nil, CompetencyGeneratorConfig{SynthTarget: "proj", MaxAttempts: 2})
	require.NoError(t, err)

	resp, err := g.Process(context.Background(), models.CompetencyRequest{Job: testJob()})
	require.NoError(t, err)

	assert.Equal(t, models.ModeOK, resp.Mode)
	assert.Equal(t, 2, resp.Attempts)
	require.NotNil(t, resp.Record)
	assert.Nil(t, resp.Clarification)
	assert.Len(t, resp.Record.Topics, 2)
	assert.Equal(t, "الوظائف الهندسية", resp.Record.CompType)
	assert.Equal(t, "الهندسة المدنية", resp.Record.JobGroup)
	assert.Equal(t, "إدارة المشاريع", resp.Record.Department)
}

func TestCompetencyGenerator_Clarification(t *testing.T) {
	s := &scriptedSynth{outputs: []string{clarificationJSON}}
	g, err := NewCompetencyGenerator(s, nil, CompetencyGeneratorConfig{SynthTarget: "proj", MaxAttempts: 2})
	require.NoError(t, err)

	resp, err := g.Process(context.Background(), models.CompetencyRequest{Job: testJob()})
	require.NoError(t, err)

	assert.Equal(t, models.ModeClarification, resp.Mode)
	assert.Nil(t, resp.Record)
	require.NotNil(t, resp.Clarification)
	assert.Equal(t, []string{"إدارة العقود", "ضبط الجودة"}, resp.Clarification.Candidates)
	assert.Equal(t, 1, s.calls())
}

func TestCompetencyGenerator_Degraded(t *testing.T) {
	s := &scriptedSynth{}
	g, err := NewCompetencyGenerator(s, nil, CompetencyGeneratorConfig{MaxAttempts: 2})
	require.NoError(t, err)

	resp, err := g.Process(context.Background(), models.CompetencyRequest{Job: testJob()})
	require.NoError(t, err)

	assert.Equal(t, models.ModeClarification, resp.Mode)
	assert.Equal(t, contract.DegradedCandidates, resp.Clarification.Candidates)
	assert.Zero(t, s.calls())
}

func TestCompetencyGenerator_SteeringAndRulebook(t *testing.T) {
	s := &scriptedSynth{outputs: []string{recordJSON(3)}}
	source := fakeSource{"gs://refs/rulebook.pdf": []byte("%PDF rulebook")}
	g, err := NewCompetencyGenerator(s, source, CompetencyGeneratorConfig{SynthTarget: "proj"})
	require.NoError(t, err)

	_, err = g.Process(context.Background(), models.CompetencyRequest{
		Job:              testJob(),
		ChosenCompetency: "إدارة العقود",
		RulebookGCSUri:   "gs://refs/rulebook.pdf",
	})
	require.NoError(t, err)

	req := s.requests[0]
	require.Len(t, req.Attachments, 1)
	assert.Equal(t, synth.MIMETypePDF, req.Attachments[0].MIMEType)
	assert.Equal(t, "%PDF rulebook", string(req.Attachments[0].Data))
	assert.Contains(t, req.Steering, "إدارة العقود")
	assert.Contains(t, req.Instruction, "مهندس مدني")
}

func TestCompetencyGenerator_RulebookFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rulebook.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF local"), 0o644))

	s := &scriptedSynth{outputs: []string{recordJSON(2)}}
	g, err := NewCompetencyGenerator(s, nil, CompetencyGeneratorConfig{SynthTarget: "proj", RulebookPath: path})
	require.NoError(t, err)

	_, err = g.Process(context.Background(), models.CompetencyRequest{Job: testJob()})
	require.NoError(t, err)
	assert.Equal(t, "%PDF local", string(s.requests[0].Attachments[0].Data))

	_, err = NewCompetencyGenerator(s, nil, CompetencyGeneratorConfig{RulebookPath: filepath.Join(t.TempDir(), "missing.pdf")})
	assert.Error(t, err)
}

func TestCompetencyGenerator_RulebookErrors(t *testing.T) {
	g, err := NewCompetencyGenerator(&scriptedSynth{}, nil, CompetencyGeneratorConfig{SynthTarget: "proj"})
	require.NoError(t, err)
	_, err = g.Process(context.Background(), models.CompetencyRequest{Job: testJob(), RulebookGCSUri: "gs://refs/rulebook.pdf"})
	assert.True(t, IsInputError(err))

	g, err = NewCompetencyGenerator(&scriptedSynth{}, fakeSource{}, CompetencyGeneratorConfig{SynthTarget: "proj"})
	require.NoError(t, err)
	_, err = g.Process(context.Background(), models.CompetencyRequest{Job: testJob(), RulebookGCSUri: "gs://refs/rulebook.pdf"})
	assert.True(t, IsInputError(err))
	assert.ErrorIs(t, err, errNotFound)
}

func TestCompetencyGenerator_BudgetExhausted(t *testing.T) {
	s := &scriptedSynth{outputs: []string{"not json", recordJSON(1)}}
	g, err := NewCompetencyGenerator(s, nil, CompetencyGeneratorConfig{SynthTarget: "proj", MaxAttempts: 2})
	require.NoError(t, err)

	_, err = g.Process(context.Background(), models.CompetencyRequest{Job: testJob()})

	var ce *contract.ContractError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 2, ce.Attempts)
	var se *contract.SchemaError
	assert.True(t, errors.As(err, &se), "last error should be the schema failure, got %v", ce.LastErr)
	assert.False(t, IsInputError(err))
}
