package contract

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Lllllllleong/competencymatrix/internal/synth"
)

func topicJSON(title string) map[string]any {
	return map[string]any{
		"title":        title,
		"desc":         "وصف الموضوع الفرعي",
		"expert":       "• يضع المعايير\n• يبتكر الحلول",
		"advanced":     []any{"- يطور الإجراءات", "يقيم الحالات"},
		"intermediate": "يطبق باستقلالية",
		"beginner":     "يتبع التعليمات",
	}
}

func recordJSON(name string, topics int) map[string]any {
	ts := make([]any, 0, topics)
	for i := 0; i < topics; i++ {
		ts = append(ts, topicJSON(fmt.Sprintf("موضوع %d", i+1)))
	}
	return map[string]any{
		"competency_name": name,
		"definition":      "القدرة على إعداد التقارير المالية وفق المعايير",
		"comp_type":       "فنية",
		"job_group":       "مجموعة المحاسبة",
		"department":      "إدارة الشؤون المالية",
		"topics":          ts,
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

// scriptedSynth returns its outputs in order and records every request.
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
		return "", nil
	}
	return s.outputs[i], nil
}

func (s *scriptedSynth) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}
