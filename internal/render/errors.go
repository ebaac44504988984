package render

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoTopics is returned for a record with nothing to render.
var ErrNoTopics = errors.New("record has no topics, expected 2-3")

// TemplateMismatchError reports drift between the template and the record contract. It is
// never worth retrying: re-synthesizing content cannot fix a template.
type TemplateMismatchError struct {
	Layout string
	// Missing lists required names absent from the layout.
	Missing []string
	// Slide (1-based) and Name identify a layout placeholder absent from an instantiated slide.
	Slide int
	Name  string
}

func (e *TemplateMismatchError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("template layout %q is missing required placeholders: %s", e.Layout, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("slide %d from layout %q has no placeholder %q", e.Slide, e.Layout, e.Name)
}
