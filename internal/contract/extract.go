package contract

import (
	"regexp"
	"strings"
)

var (
	leadingFenceRegex  = regexp.MustCompile("(?i)^\\s*```(?:json)?\\s*")
	trailingFenceRegex = regexp.MustCompile("\\s*```\\s*$")
)

// ExtractJSON recovers the JSON region of raw synthesizer text: code fences are stripped,
// then everything from the first opening brace or bracket to the last closing one is kept.
// Leading prose that contains stray brackets defeats it.
func ExtractJSON(raw string) (string, error) {
	t := strings.TrimSpace(raw)
	t = leadingFenceRegex.ReplaceAllString(t, "")
	t = trailingFenceRegex.ReplaceAllString(t, "")

	start := -1
	for _, i := range []int{strings.Index(t, "{"), strings.Index(t, "[")} {
		if i != -1 && (start == -1 || i < start) {
			start = i
		}
	}
	if start == -1 {
		return "", &ParseError{Message: "no JSON object or array found in output"}
	}
	t = t[start:]

	end := max(strings.LastIndex(t, "}"), strings.LastIndex(t, "]"))
	if end == -1 {
		return "", &ParseError{Message: "unterminated JSON value in output"}
	}
	return strings.TrimSpace(t[:end+1]), nil
}
