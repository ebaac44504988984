package contract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Lllllllleong/competencymatrix/internal/models"
	"github.com/Lllllllleong/competencymatrix/internal/textnorm"
)

// levelText accepts a proficiency level as a string, a list of items, or null.
type levelText string

func (l *levelText) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*l = levelText(textnorm.NormalizeLines(v))
	return nil
}

type looseTopic struct {
	Title        string    `json:"title"`
	Desc         string    `json:"desc"`
	Expert       levelText `json:"expert"`
	Advanced     levelText `json:"advanced"`
	Intermediate levelText `json:"intermediate"`
	Beginner     levelText `json:"beginner"`
}

type looseRecord struct {
	CompetencyName string       `json:"competency_name"`
	Definition     string       `json:"definition"`
	CompType       *string      `json:"comp_type"`
	JobGroup       string       `json:"job_group"`
	Department     string       `json:"department"`
	Topics         []looseTopic `json:"topics"`
}

// CoerceRecord converts a loosely typed record (a decoded JSON map, raw JSON, or a
// CompetencyRecord) into the canonical form: trimmed strings, comp_type defaulted, and
// level texts normalized to bullet-free lines. It does not check invariants; see
// ValidateRecord.
func CoerceRecord(v any) (models.CompetencyRecord, error) {
	switch t := v.(type) {
	case models.CompetencyRecord:
		return normalizeRecord(t), nil
	case *models.CompetencyRecord:
		if t == nil {
			return models.CompetencyRecord{}, &SchemaError{Shape: ShapeRecord, Errors: []FieldError{{Field: "(root)", Message: "record is nil"}}}
		}
		return normalizeRecord(*t), nil
	}

	var data []byte
	switch t := v.(type) {
	case nil:
		return models.CompetencyRecord{}, &SchemaError{Shape: ShapeRecord, Errors: []FieldError{{Field: "(root)", Message: "record is nil"}}}
	case []byte:
		data = t
	case json.RawMessage:
		data = t
	case string:
		data = []byte(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return models.CompetencyRecord{}, &ParseError{Message: fmt.Sprintf("cannot encode %T as a record", v), Cause: err}
		}
		data = b
	}

	var loose looseRecord
	if err := json.Unmarshal(data, &loose); err != nil {
		return models.CompetencyRecord{}, &SchemaError{Shape: ShapeRecord, Errors: []FieldError{{Field: "(root)", Message: err.Error()}}}
	}

	rec := models.CompetencyRecord{
		CompetencyName: loose.CompetencyName,
		Definition:     loose.Definition,
		CompType:       models.Value(loose.CompType),
		JobGroup:       loose.JobGroup,
		Department:     loose.Department,
		Topics:         make([]models.CompetencyTopic, 0, len(loose.Topics)),
	}
	for _, lt := range loose.Topics {
		rec.Topics = append(rec.Topics, models.CompetencyTopic{
			Title:        lt.Title,
			Desc:         lt.Desc,
			Expert:       string(lt.Expert),
			Advanced:     string(lt.Advanced),
			Intermediate: string(lt.Intermediate),
			Beginner:     string(lt.Beginner),
		})
	}
	return normalizeRecord(rec), nil
}

func normalizeRecord(rec models.CompetencyRecord) models.CompetencyRecord {
	out := models.CompetencyRecord{
		CompetencyName: strings.TrimSpace(rec.CompetencyName),
		Definition:     strings.TrimSpace(rec.Definition),
		CompType:       strings.TrimSpace(rec.CompType),
		JobGroup:       strings.TrimSpace(rec.JobGroup),
		Department:     strings.TrimSpace(rec.Department),
		Topics:         make([]models.CompetencyTopic, len(rec.Topics)),
	}
	if out.CompType == "" {
		out.CompType = models.DefaultCompType
	}
	for i, t := range rec.Topics {
		out.Topics[i] = models.CompetencyTopic{
			Title:        strings.TrimSpace(t.Title),
			Desc:         strings.TrimSpace(t.Desc),
			Expert:       textnorm.NormalizeLines(t.Expert),
			Advanced:     textnorm.NormalizeLines(t.Advanced),
			Intermediate: textnorm.NormalizeLines(t.Intermediate),
			Beginner:     textnorm.NormalizeLines(t.Beginner),
		}
	}
	return out
}
