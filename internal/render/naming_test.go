package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOutputName(t *testing.T) {
	day := time.Date(2025, 1, 5, 15, 4, 0, 0, time.UTC)

	tests := []struct {
		name     string
		title    string
		expected string
	}{
		{name: "latin", title: "Senior Engineer", expected: "Senior_Engineer_2025-01-05.pptx"},
		{name: "whitespace runs", title: "  Senior    Engineer  ", expected: "Senior_Engineer_2025-01-05.pptx"},
		{name: "arabic", title: "محاسب أول", expected: "محاسب_أول_2025-01-05.pptx"},
		{name: "punctuation stripped", title: "Lead/Dev (QA) #1!", expected: "LeadDev_QA_1_2025-01-05.pptx"},
		{name: "hyphen kept", title: "Co-Pilot", expected: "Co-Pilot_2025-01-05.pptx"},
		{name: "empty", title: "", expected: "job_2025-01-05.pptx"},
		{name: "nothing permitted", title: "???///", expected: "job_2025-01-05.pptx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, OutputName(tt.title, day))
		})
	}
}

func TestOutputName_Deterministic(t *testing.T) {
	day := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, OutputName("مهندس مدني", day), OutputName("مهندس مدني", day))
}
