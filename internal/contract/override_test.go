package contract

import (
	"testing"

	"github.com/Lllllllleong/competencymatrix/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestApplyHeaderOverrides(t *testing.T) {
	base := models.CompetencyRecord{CompType: "synth type", JobGroup: "synth group", Department: "synth dept"}

	tests := []struct {
		name     string
		job      models.JobPayload
		expected models.CompetencyRecord
	}{
		{
			name:     "all fields present",
			job:      models.JobPayload{GeneralGroup: ptr("عام"), SpecificGroup: ptr("نوعي"), JobLocation: ptr(" الإدارة ")},
			expected: models.CompetencyRecord{CompType: "عام", JobGroup: "نوعي", Department: "الإدارة"},
		},
		{
			name:     "empty and null fields keep synthesizer values",
			job:      models.JobPayload{GeneralGroup: ptr("  "), SpecificGroup: nil, JobLocation: ptr("الإدارة")},
			expected: models.CompetencyRecord{CompType: "synth type", JobGroup: "synth group", Department: "الإدارة"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := base
			ApplyHeaderOverrides(&rec, tt.job)
			assert.Equal(t, tt.expected, rec)
		})
	}

	assert.NotPanics(t, func() { ApplyHeaderOverrides(nil, models.JobPayload{}) })
}
