package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/Lllllllleong/competencymatrix/internal/gcp"
	"github.com/Lllllllleong/competencymatrix/internal/models"
	"github.com/Lllllllleong/competencymatrix/internal/segment"
	"github.com/Lllllllleong/competencymatrix/internal/synth"
)

const testURI = "gs://uploads/cards.pdf"

var errNotFound = errors.New("object not found")

type fakeSource map[string][]byte

func (s fakeSource) Read(_ context.Context, uri string) ([]byte, error) {
	data, ok := s[uri]
	if !ok {
		return nil, fmt.Errorf("%s: %w", uri, errNotFound)
	}
	return data, nil
}

// scriptedSynth replays outputs in order; a non-nil entry in errs fails that call.
type scriptedSynth struct {
	mu       sync.Mutex
	outputs  []string
	errs     []error
	requests []synth.Request
}

func (s *scriptedSynth) Synthesize(_ context.Context, req synth.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := len(s.requests)
	s.requests = append(s.requests, req)
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i >= len(s.outputs) {
		return "", errors.New("script exhausted")
	}
	return s.outputs[i], nil
}

func (s *scriptedSynth) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

type fakeStore struct {
	bucket  string
	prefix  string
	err     error
	signed  string
	uploads map[string][]byte
}

func (s *fakeStore) Bucket() string { return s.bucket }

func (s *fakeStore) ObjectName(filename string) string {
	if s.prefix == "" {
		return filename
	}
	return s.prefix + "/" + filename
}

func (s *fakeStore) Upload(_ context.Context, filename string, data []byte, _ string) (*gcp.UploadInfo, error) {
	if s.bucket == "" {
		return nil, gcp.ErrBucketNotSet
	}
	if s.err != nil {
		return nil, s.err
	}
	if s.uploads == nil {
		s.uploads = make(map[string][]byte)
	}
	object := s.ObjectName(filename)
	s.uploads[object] = data
	return &gcp.UploadInfo{
		Bucket:     s.bucket,
		Object:     object,
		ConsoleURL: gcp.ConsoleURL(s.bucket, object),
		SignedURL:  s.signed,
	}, nil
}

type memorySnapshots struct {
	saved map[string]string
}

func (m *memorySnapshots) Save(_ context.Context, name, content string) error {
	if m.saved == nil {
		m.saved = make(map[string]string)
	}
	m.saved[name] = content
	return nil
}

// cardPages returns a document whose pages 0 and 2 open job cards.
func cardPages() []string {
	return []string{
		segment.JobCardMarker + "\nمهندس مدني\nالمهام",
		"تكملة الواجبات",
		segment.JobCardMarker + "\nمحاسب أول",
	}
}

func stubPDFOps(pages []string) pdfOps {
	return pdfOps{
		pageTexts: func([]byte) ([]string, error) { return pages, nil },
		subDocument: func(_ []byte, start, end int) ([]byte, error) {
			return []byte(fmt.Sprintf("%%PDF sub %d-%d", start, end)), nil
		},
		renderPages: func(_ []byte, start, end int, _ float64) ([][]byte, error) {
			var imgs [][]byte
			for i := start; i <= end; i++ {
				imgs = append(imgs, []byte(fmt.Sprintf("png %d", i)))
			}
			return imgs, nil
		},
	}
}

const jobJSON = `{"job_title": "مهندس مدني", "job_code": "كود: EN12", "general_group": "الوظائف الهندسية",
"specific_group": "الهندسة المدنية", "job_location": "إدارة المشاريع", "duties": "• يراجع المخططات\n• يشرف على التنفيذ"}`

func topicJSON(title string) string {
	return fmt.Sprintf(`{"title": %q, "desc": "وصف الموضوع الفرعي", "expert": ["يضع المعايير", "يبتكر"],
"advanced": "• يطور الإجراءات", "intermediate": "يطبق باستقلالية", "beginner": "يتبع التعليمات"}`, title)
}

func recordJSON(topics int) string {
	ts := make([]string, topics)
	for i := range ts {
		ts[i] = topicJSON(fmt.Sprintf("موضوع %d", i+1))
	}
	return fmt.Sprintf(`[{"competency_name": "إدارة المشاريع الهندسية", "definition": "القدرة على تخطيط المشاريع الهندسية وتنفيذها",
"comp_type": "فنية", "job_group": "مجموعة", "department": "قسم", "topics": [%s]}]`, strings.Join(ts, ","))
}

const clarificationJSON = `{"needs_clarification": true, "candidates": ["إدارة العقود", "ضبط الجودة"], "question": "أي كفاءة تقصد؟"}`

func intPtr(i int) *int { return &i }

func strPtr(s string) *string { return &s }

func testRecord() models.CompetencyRecord {
	topic := models.CompetencyTopic{
		Title:        "التخطيط",
		Desc:         "وصف الموضوع الفرعي",
		Expert:       "يضع المعايير",
		Advanced:     "يطور الإجراءات",
		Intermediate: "يطبق باستقلالية",
		Beginner:     "يتبع التعليمات",
	}
	return models.CompetencyRecord{
		CompetencyName: "إدارة المشاريع",
		Definition:     "القدرة على تخطيط المشاريع وتنفيذها",
		CompType:       "فنية",
		JobGroup:       "مجموعة",
		Department:     "قسم",
		Topics:         []models.CompetencyTopic{topic, topic},
	}
}

func dirNames(dir string) []string {
	entries, _ := os.ReadDir(dir)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
