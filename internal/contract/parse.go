package contract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Lllllllleong/competencymatrix/internal/models"
)

// Outcome is exactly one of a validated record or a clarification request.
type Outcome struct {
	Record        *models.CompetencyRecord
	Clarification *models.ClarificationRequest
}

// ParseOutput turns raw synthesizer text into an Outcome. An object with a true
// needs_clarification flag is validated as a clarification; anything else must be an
// array of records, every one of which must validate. Only the first record is kept.
func ParseOutput(raw string) (*Outcome, error) {
	if err := loadSchemas(); err != nil {
		return nil, err
	}

	text, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}
	var data any
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return nil, &ParseError{Message: "output is not valid JSON", Cause: err}
	}

	if obj, ok := data.(map[string]any); ok && obj["needs_clarification"] == true {
		c, err := parseClarification(obj)
		if err != nil {
			return nil, err
		}
		return &Outcome{Clarification: c}, nil
	}

	items, ok := data.([]any)
	if !ok {
		return nil, &SchemaError{Shape: ShapeRecord, Errors: []FieldError{{
			Field:   "(root)",
			Message: fmt.Sprintf("expected a JSON array of records or a clarification object, got %s", jsonKind(data)),
		}}}
	}
	if len(items) == 0 {
		return nil, &SchemaError{Shape: ShapeRecord, Errors: []FieldError{{Field: "(root)", Message: "array holds no competency record"}}}
	}

	records := make([]models.CompetencyRecord, 0, len(items))
	for i, item := range items {
		prefix := fmt.Sprintf("[%d]", i)
		if err := checkSchema(recordSchema, ShapeRecord, prefix, item); err != nil {
			return nil, err
		}
		rec, err := CoerceRecord(item)
		if err != nil {
			return nil, err
		}
		if err := checkStruct(ShapeRecord, prefix, rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return &Outcome{Record: &records[0]}, nil
}

func parseClarification(obj map[string]any) (*models.ClarificationRequest, error) {
	if err := checkSchema(clarificationSchema, ShapeClarification, "", obj); err != nil {
		return nil, err
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return nil, &ParseError{Message: "cannot re-encode clarification", Cause: err}
	}
	var c models.ClarificationRequest
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, &SchemaError{Shape: ShapeClarification, Errors: []FieldError{{Field: "(root)", Message: err.Error()}}}
	}
	c.Question = strings.TrimSpace(c.Question)
	c.Reason = strings.TrimSpace(c.Reason)
	for i := range c.Candidates {
		c.Candidates[i] = strings.TrimSpace(c.Candidates[i])
	}
	if err := checkStruct(ShapeClarification, "", c); err != nil {
		return nil, err
	}
	return &c, nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	}
	return fmt.Sprintf("%T", v)
}
