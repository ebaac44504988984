package contract

import (
	"embed"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/Lllllllleong/competencymatrix/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"
)

// Shapes the synthesizer may return.
const (
	ShapeRecord        = "competency record"
	ShapeClarification = "clarification"
)

//go:embed schemas/*.json
var schemaFiles embed.FS

var (
	schemaOnce          sync.Once
	recordSchema        *gojsonschema.Schema
	clarificationSchema *gojsonschema.Schema
	schemaErr           error

	validate = newStructValidator()
)

// newStructValidator reports field paths by their JSON names.
func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func loadSchemas() error {
	schemaOnce.Do(func() {
		recordSchema, schemaErr = compileSchema("schemas/competency_record.schema.json")
		if schemaErr != nil {
			return
		}
		clarificationSchema, schemaErr = compileSchema("schemas/clarification.schema.json")
	})
	return schemaErr
}

func compileSchema(path string) (*gojsonschema.Schema, error) {
	data, err := schemaFiles.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema %s: %w", path, err)
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema %s: %w", path, err)
	}
	return s, nil
}

// checkSchema validates an already-decoded JSON value. prefix is prepended to field paths.
func checkSchema(s *gojsonschema.Schema, shape, prefix string, v any) error {
	result, err := s.Validate(gojsonschema.NewGoLoader(v))
	if err != nil {
		return &SchemaError{Shape: shape, Errors: []FieldError{{Field: rootField(prefix), Message: err.Error()}}}
	}
	if result.Valid() {
		return nil
	}
	se := &SchemaError{Shape: shape, Errors: make([]FieldError, 0, len(result.Errors()))}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "(root)" || field == "" {
			field = rootField(prefix)
		} else if prefix != "" {
			field = prefix + "." + field
		}
		se.Errors = append(se.Errors, FieldError{Field: field, Message: desc.Description()})
	}
	return se
}

// checkStruct runs the struct-level invariants on a normalized value.
func checkStruct(shape, prefix string, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return &SchemaError{Shape: shape, Errors: []FieldError{{Field: rootField(prefix), Message: err.Error()}}}
	}
	se := &SchemaError{Shape: shape, Errors: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		if prefix != "" {
			field = prefix + "." + field
		}
		se.Errors = append(se.Errors, FieldError{
			Field:   field,
			Message: fmt.Sprintf("failed %q (param %s)", fe.Tag(), fe.Param()),
		})
	}
	return se
}

func rootField(prefix string) string {
	if prefix == "" {
		return "(root)"
	}
	return prefix
}

// ValidateRecord checks the invariants of an already-normalized record.
func ValidateRecord(rec models.CompetencyRecord) error {
	return checkStruct(ShapeRecord, "", rec)
}
