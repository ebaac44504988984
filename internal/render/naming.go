package render

import (
	"regexp"
	"strings"
	"time"
)

// FallbackStem names decks whose title has no permitted characters.
const FallbackStem = "job"

var (
	disallowedNameRegex = regexp.MustCompile(`[^A-Za-z0-9_\x{0600}-\x{06FF}\- ]+`)
	whitespaceRegex     = regexp.MustCompile(`\s+`)
)

// OutputName derives a filesystem and link safe deck name from a title and a date:
// characters outside Arabic, latin letters, digits, underscore, hyphen and space are
// dropped, whitespace runs become single underscores, and "_YYYY-MM-DD.pptx" is appended.
func OutputName(title string, when time.Time) string {
	safe := strings.TrimSpace(disallowedNameRegex.ReplaceAllString(title, ""))
	safe = whitespaceRegex.ReplaceAllString(safe, "_")
	if safe == "" {
		safe = FallbackStem
	}
	return safe + "_" + when.Format("2006-01-02") + ".pptx"
}
