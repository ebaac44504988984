package contract

import (
	"testing"

	"github.com/Lllllllleong/competencymatrix/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerceRecord_Inputs(t *testing.T) {
	m := recordJSON("  إدارة المخاطر  ", 2)

	tests := []struct {
		name  string
		input any
	}{
		{name: "map", input: m},
		{name: "json string", input: mustJSON(m)},
		{name: "json bytes", input: []byte(mustJSON(m))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := CoerceRecord(tt.input)
			require.NoError(t, err)
			assert.Equal(t, "إدارة المخاطر", rec.CompetencyName)
			require.Len(t, rec.Topics, 2)
			assert.Equal(t, "يطور الإجراءات\nيقيم الحالات", rec.Topics[1].Advanced)
			assert.NoError(t, ValidateRecord(rec))
		})
	}
}

func TestCoerceRecord_TypedRecord(t *testing.T) {
	rec := models.CompetencyRecord{
		CompetencyName: "إدارة المخاطر",
		Topics: []models.CompetencyTopic{
			{Title: "t1", Expert: "• a\n• b"},
		},
	}

	out, err := CoerceRecord(&rec)

	require.NoError(t, err)
	assert.Equal(t, models.DefaultCompType, out.CompType)
	assert.Equal(t, "a\nb", out.Topics[0].Expert)
	assert.Equal(t, "• a\n• b", rec.Topics[0].Expert, "input is not mutated")
}

func TestCoerceRecord_Errors(t *testing.T) {
	_, err := CoerceRecord(nil)
	assert.Error(t, err)

	_, err = CoerceRecord(`{"topics": "not a list"}`)
	assert.Error(t, err)

	var nilRec *models.CompetencyRecord
	_, err = CoerceRecord(nilRec)
	assert.Error(t, err)
}

func TestValidateRecord_TopicCount(t *testing.T) {
	rec, err := CoerceRecord(recordJSON("إدارة المخاطر", 2))
	require.NoError(t, err)

	rec.Topics = rec.Topics[:1]
	assert.Error(t, ValidateRecord(rec))

	rec.Topics = nil
	assert.Error(t, ValidateRecord(rec))
}
