// Package prompts holds the synthesizer instructions for the two model stages: reading a
// job card into a job payload, and drafting a competency record from that payload. Each
// stage's texts live in an embedded JSON file and are parsed as text/template once.
package prompts

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"text/template"
)

// Stage selects the prompt file of one model stage.
type Stage string

const (
	Extraction Stage = "extraction"
	Competency Stage = "competency"
)

// Keys every stage file must define.
var requiredKeys = map[Stage][]string{
	Extraction: {"system", "instruction", "text_hint"},
	Competency: {"system", "instruction", "steering", "rulebook_note"},
}

//go:embed *.json
var files embed.FS

var stageTemplates = map[Stage]func() (map[string]*template.Template, error){
	Extraction: sync.OnceValues(func() (map[string]*template.Template, error) { return load(Extraction) }),
	Competency: sync.OnceValues(func() (map[string]*template.Template, error) { return load(Competency) }),
}

func load(stage Stage) (map[string]*template.Template, error) {
	filename := string(stage) + ".json"
	data, err := files.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", filename, err)
	}
	var texts map[string]string
	if err := json.Unmarshal(data, &texts); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %s: %w", filename, err)
	}
	for _, key := range requiredKeys[stage] {
		if _, ok := texts[key]; !ok {
			return nil, fmt.Errorf("prompt file %s has no %q", filename, key)
		}
	}

	tmpls := make(map[string]*template.Template, len(texts))
	for key, text := range texts {
		t, err := template.New(string(stage) + "/" + key).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("failed to parse prompt %s/%s: %w", stage, key, err)
		}
		tmpls[key] = t
	}
	return tmpls, nil
}

func execute(stage Stage, key string, data any) (string, error) {
	get, ok := stageTemplates[stage]
	if !ok {
		return "", fmt.Errorf("unknown prompt stage %q", stage)
	}
	tmpls, err := get()
	if err != nil {
		return "", err
	}
	t, ok := tmpls[key]
	if !ok {
		return "", fmt.Errorf("prompt %s/%s not found", stage, key)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render prompt %s/%s: %w", stage, key, err)
	}
	return buf.String(), nil
}

// Keys lists the prompt keys defined for a stage, sorted.
func Keys(stage Stage) ([]string, error) {
	get, ok := stageTemplates[stage]
	if !ok {
		return nil, fmt.Errorf("unknown prompt stage %q", stage)
	}
	tmpls, err := get()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(tmpls))
	for key := range tmpls {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// System returns the system instruction of a stage.
func System(stage Stage) (string, error) {
	return execute(stage, "system", nil)
}

// ExtractionInstruction asks for a job payload from an attached job card.
func ExtractionInstruction() (string, error) {
	return execute(Extraction, "instruction", nil)
}

// ExtractionHint wraps the card's own text layer as a reading aid for the extractor.
func ExtractionHint(text string) (string, error) {
	return execute(Extraction, "text_hint", struct{ Text string }{text})
}

// CompetencyInstruction asks for a competency record for the job payload jobJSON.
// defaultCompType is the competency type assumed when the job gives no reason for another.
func CompetencyInstruction(jobJSON, defaultCompType string) (string, error) {
	return execute(Competency, "instruction", struct {
		JobJSON         string
		DefaultCompType string
	}{jobJSON, defaultCompType})
}

// Steering commits the competency stage to a competency the user picked from a
// clarification.
func Steering(choice string) (string, error) {
	return execute(Competency, "steering", struct{ Choice string }{choice})
}

// RulebookNote tells the competency stage how to use an attached reference PDF.
func RulebookNote() (string, error) {
	return execute(Competency, "rulebook_note", nil)
}
