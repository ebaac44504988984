package contract

import (
	"errors"
	"testing"

	"github.com/Lllllllleong/competencymatrix/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOutput_Clarification(t *testing.T) {
	out, err := ParseOutput(`{"needs_clarification": true, "candidates": ["A","B"], "question": "choose one"}`)

	require.NoError(t, err)
	assert.Nil(t, out.Record)
	require.NotNil(t, out.Clarification)
	assert.Equal(t, []string{"A", "B"}, out.Clarification.Candidates)
	assert.Equal(t, "choose one", out.Clarification.Question)
	assert.Empty(t, out.Clarification.Reason)
}

func TestParseOutput_ClarificationInvalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "one candidate", raw: `{"needs_clarification": true, "candidates": ["A"], "question": "choose one"}`},
		{name: "six candidates", raw: `{"needs_clarification": true, "candidates": ["A","B","C","D","E","F"], "question": "choose one"}`},
		{name: "short question", raw: `{"needs_clarification": true, "candidates": ["A","B"], "question": "which"}`},
		{name: "missing question", raw: `{"needs_clarification": true, "candidates": ["A","B"]}`},
		{name: "blank candidate", raw: `{"needs_clarification": true, "candidates": ["A","  "], "question": "choose one"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOutput(tt.raw)
			require.Error(t, err)
			var se *SchemaError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, ShapeClarification, se.Shape)
		})
	}
}

func TestParseOutput_SingleRecord(t *testing.T) {
	raw := "```json\n" + mustJSON([]any{recordJSON("إعداد التقارير المالية", 2)}) + "\n```"

	out, err := ParseOutput(raw)

	require.NoError(t, err)
	assert.Nil(t, out.Clarification)
	require.NotNil(t, out.Record)
	assert.Equal(t, "إعداد التقارير المالية", out.Record.CompetencyName)
	require.Len(t, out.Record.Topics, 2)

	topic := out.Record.Topics[0]
	assert.Equal(t, "يضع المعايير\nيبتكر الحلول", topic.Expert)
	assert.Equal(t, "يطور الإجراءات\nيقيم الحالات", topic.Advanced)
	assert.NotContains(t, topic.Expert, "•")
}

func TestParseOutput_KeepsOnlyFirstRecord(t *testing.T) {
	raw := mustJSON([]any{
		recordJSON("الكفاءة الأولى", 2),
		recordJSON("الكفاءة الثانية", 3),
	})

	out, err := ParseOutput(raw)

	require.NoError(t, err)
	require.NotNil(t, out.Record)
	assert.Equal(t, "الكفاءة الأولى", out.Record.CompetencyName)
}

func TestParseOutput_DefaultsCompType(t *testing.T) {
	rec := recordJSON("إدارة المخاطر", 2)
	delete(rec, "comp_type")

	out, err := ParseOutput(mustJSON([]any{rec}))

	require.NoError(t, err)
	assert.Equal(t, models.DefaultCompType, out.Record.CompType)
}

func TestParseOutput_Failures(t *testing.T) {
	shortDefinition := recordJSON("إدارة المخاطر", 2)
	shortDefinition["definition"] = "قصير"

	missingLevel := recordJSON("إدارة المخاطر", 2)
	delete(missingLevel["topics"].([]any)[1].(map[string]any), "beginner")

	tests := []struct {
		name      string
		raw       string
		wantField string
	}{
		{name: "object without flag", raw: mustJSON(recordJSON("إدارة المخاطر", 2)), wantField: "(root)"},
		{name: "flag false", raw: `{"needs_clarification": false, "candidates": ["A","B"], "question": "choose one"}`, wantField: "(root)"},
		{name: "empty array", raw: `[]`, wantField: "(root)"},
		{name: "one topic", raw: mustJSON([]any{recordJSON("إدارة المخاطر", 1)}), wantField: "[0].topics"},
		{name: "four topics", raw: mustJSON([]any{recordJSON("إدارة المخاطر", 4)}), wantField: "[0].topics"},
		{name: "short definition", raw: mustJSON([]any{shortDefinition}), wantField: "[0].definition"},
		{name: "missing level", raw: mustJSON([]any{missingLevel}), wantField: "[0].topics.1"},
		{name: "second record invalid", raw: mustJSON([]any{recordJSON("إدارة المخاطر", 2), recordJSON("x", 2)}), wantField: "[1].competency_name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOutput(tt.raw)
			require.Error(t, err)
			var se *SchemaError
			require.True(t, errors.As(err, &se), "got %T: %v", err, err)
			require.NotEmpty(t, se.Errors)
			assert.Equal(t, tt.wantField, se.Errors[0].Field)
		})
	}
}

func TestParseOutput_Unparseable(t *testing.T) {
	_, err := ParseOutput(`[{"competency_name": "x",]`)
	var pe *ParseError
	require.True(t, errors.As(err, &pe))

	_, err = ParseOutput("I cannot help with that.")
	require.True(t, errors.As(err, &pe))
}
