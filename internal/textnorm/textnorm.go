// Package textnorm normalizes text extracted from job cards and produced by the
// content synthesizer.
package textnorm

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const bulletGlyph = "•"

var leadingBulletRegex = regexp.MustCompile(`^\s*(?:[\x{2022}\-*]\s*)+`)

// NFKC folds presentation forms (common in Arabic PDF text layers) into their
// canonical characters.
func NFKC(s string) string {
	return norm.NFKC.String(s)
}

// NormalizeLines turns a string or a list of strings into newline-separated items
// with no bullet glyphs. Bullets are rendered by the template, never by the data.
func NormalizeLines(v any) string {
	var items []string
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		items = strings.Split(t, "\n")
	case []string:
		items = t
	case []any:
		for _, x := range t {
			if x == nil {
				continue
			}
			items = append(items, fmt.Sprint(x))
		}
	default:
		items = strings.Split(fmt.Sprint(t), "\n")
	}

	cleaned := make([]string, 0, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" {
			continue
		}
		it = TrimLeadingBullets(strings.ReplaceAll(it, bulletGlyph, ""))
		if it != "" {
			cleaned = append(cleaned, it)
		}
	}
	return strings.Join(cleaned, "\n")
}

// TrimLeadingBullets removes every bullet mark (•, - or *) that opens s, however many
// are stacked.
func TrimLeadingBullets(s string) string {
	return strings.TrimSpace(leadingBulletRegex.ReplaceAllString(s, ""))
}

// StripBullets removes bullet glyphs anywhere in s.
func StripBullets(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, bulletGlyph, ""))
}
