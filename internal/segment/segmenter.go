// Package segment partitions the page text of a job-description PDF into job cards.
package segment

import (
	"regexp"
	"strings"

	"github.com/Lllllllleong/competencymatrix/internal/models"
	"github.com/Lllllllleong/competencymatrix/internal/textnorm"
)

// JobCardMarker opens every job card ("job description card").
const JobCardMarker = "بطاقة الوصف الوظيفي"

// UntitledLabel is used when no title can be found after the marker.
const UntitledLabel = "غير محدد"

// DefaultScannedThreshold is the minimum number of Arabic letters a segment must carry
// before its text layer is trusted.
const DefaultScannedThreshold = 200

// markerRemainderRegex captures whatever follows the marker, on the same line or the next.
var markerRemainderRegex = regexp.MustCompile(regexp.QuoteMeta(JobCardMarker) + `\s*(.+)`)

// NormalizeText prepares raw page text for marker detection.
func NormalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return textnorm.NFKC(s)
}

// Segment returns one JobSegment per page containing the marker. Each segment runs up to
// the page before the next marker, the last one to the final page. No marker yields an
// empty slice.
func Segment(pages []string) []models.JobSegment {
	var starts []int
	for i, text := range pages {
		if strings.Contains(text, JobCardMarker) {
			starts = append(starts, i)
		}
	}

	segments := make([]models.JobSegment, 0, len(starts))
	for j, start := range starts {
		end := len(pages) - 1
		if j+1 < len(starts) {
			end = starts[j+1] - 1
		}
		segments = append(segments, models.JobSegment{
			Index:     j,
			PageStart: start,
			PageEnd:   end,
			Title:     extractTitle(pages[start]),
		})
	}
	return segments
}

// extractTitle takes the line right after a marker-only line, falling back to the
// text that follows the marker.
func extractTitle(page string) string {
	var lines []string
	for _, ln := range strings.Split(page, "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			lines = append(lines, ln)
		}
	}
	for k, ln := range lines {
		if ln == JobCardMarker && k+1 < len(lines) {
			return lines[k+1]
		}
	}

	if m := markerRemainderRegex.FindStringSubmatch(page); m != nil {
		if title := strings.Trim(m[1], " \t:-"); title != "" {
			return title
		}
	}
	return UntitledLabel
}

// LooksScanned reports whether pages[start..end] carry fewer Arabic letters than
// threshold, which means the text layer is missing or garbage.
func LooksScanned(pages []string, start, end, threshold int) bool {
	if start < 0 {
		start = 0
	}
	if end >= len(pages) {
		end = len(pages) - 1
	}
	count := 0
	for i := start; i <= end; i++ {
		for _, r := range pages[i] {
			if r >= 0x0600 && r <= 0x06FF {
				count++
			}
		}
	}
	return count < threshold
}
