package contract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/competencymatrix/internal/models"
	"github.com/Lllllllleong/competencymatrix/internal/prompts"
	"github.com/Lllllllleong/competencymatrix/internal/synth"
)

// DefaultMaxAttempts is one initial attempt plus one retry.
const DefaultMaxAttempts = 2

// State is a step of one Generate invocation.
type State string

const (
	StateInitial            State = "INITIAL"
	StateSynthesized        State = "SYNTHESIZED"
	StateValidated          State = "VALIDATED"
	StateNeedsClarification State = "NEEDS_CLARIFICATION"
	StateFailed             State = "FAILED"
)

// Returned without calling the synthesizer when no target is configured.
var (
	DegradedCandidates = []string{
		"تنظيم/تشريعات المجال الوظيفي",
		"إدارة الامتثال والحوكمة",
		"تحليل البيانات (عند اللزوم)",
	}
	DegradedQuestion = "لم يتم تهيئة GOOGLE_CLOUD_PROJECT. اختر الكفاءة الأنسب للوظيفة:"
	DegradedReason   = "تعذر استدعاء Gemini محليًا بدون إعدادات مشروع Vertex AI."
)

// Options configures a Validator.
type Options struct {
	// MaxAttempts is the total attempt budget. Zero means DefaultMaxAttempts.
	MaxAttempts int
	// Target names the project the synthesizer is bound to. Empty means the synthesizer
	// is unreachable and Generate returns the degraded clarification.
	Target string
	Logger *slog.Logger
}

// Request carries the per-invocation inputs besides the job.
type Request struct {
	// ChosenCompetency steers a new invocation after a clarification round.
	ChosenCompetency string
	// Context is an optional reference PDF sent with every attempt.
	Context []byte
}

// Result is the terminal state of a successful invocation: VALIDATED with a record or
// NEEDS_CLARIFICATION with a clarification.
type Result struct {
	State         State                        `json:"state"`
	Record        *models.CompetencyRecord     `json:"record,omitempty"`
	Clarification *models.ClarificationRequest `json:"clarification,omitempty"`
	Attempts      int                          `json:"attempts"`
}

// Validator drives the synthesize, parse, validate loop for competency records.
type Validator struct {
	synth       synth.Synthesizer
	maxAttempts int
	target      string
	logger      *slog.Logger
}

// New returns a Validator. A nil synthesizer behaves like an unconfigured target.
func New(s synth.Synthesizer, opts Options) *Validator {
	v := &Validator{
		synth:       s,
		maxAttempts: opts.MaxAttempts,
		target:      opts.Target,
		logger:      opts.Logger,
	}
	if v.maxAttempts <= 0 {
		v.maxAttempts = DefaultMaxAttempts
	}
	if v.logger == nil {
		v.logger = slog.Default()
	}
	return v
}

// Generate runs up to MaxAttempts sequential synthesis attempts for job. Parse and schema
// failures consume the budget; a well-formed clarification ends the loop at once. When
// the budget runs out the returned error is a *ContractError carrying the last failure.
// Synthesizer call errors and context cancellation abort without further attempts.
func (v *Validator) Generate(ctx context.Context, job models.JobPayload, req Request) (*Result, error) {
	logCtx := v.logger.With("jobTitle", job.Title(), "maxAttempts", v.maxAttempts)

	if v.synth == nil || v.target == "" {
		logCtx.Warn("No synthesizer target configured. Returning fixed clarification.")
		return DegradedResult(), nil
	}

	sreq, err := BuildCompetencyRequest(job, req)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= v.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("generation cancelled before attempt %d: %w", attempt, err)
		}

		raw, err := v.synth.Synthesize(ctx, sreq)
		if err != nil {
			logCtx.Error("Synthesizer call failed.", "attempt", attempt, "error", err)
			return nil, fmt.Errorf("synthesizer call failed on attempt %d: %w", attempt, err)
		}
		logCtx.Debug("Output received.", "state", StateSynthesized, "attempt", attempt, "chars", len(raw))

		out, err := ParseOutput(raw)
		if err != nil {
			lastErr = err
			logCtx.Warn("Output rejected.", "attempt", attempt, "error", err)
			continue
		}

		if out.Clarification != nil {
			logCtx.Info("Synthesizer asked for clarification.", "attempt", attempt, "candidates", len(out.Clarification.Candidates))
			return &Result{State: StateNeedsClarification, Clarification: out.Clarification, Attempts: attempt}, nil
		}

		ApplyHeaderOverrides(out.Record, job)
		logCtx.Info("Competency record validated.", "attempt", attempt, "topics", len(out.Record.Topics))
		return &Result{State: StateValidated, Record: out.Record, Attempts: attempt}, nil
	}

	logCtx.Error("Attempt budget exhausted.", "state", StateFailed, "error", lastErr)
	return nil, &ContractError{Attempts: v.maxAttempts, LastErr: lastErr}
}

// DegradedResult is the deterministic clarification used when no synthesizer is reachable.
func DegradedResult() *Result {
	return &Result{
		State: StateNeedsClarification,
		Clarification: &models.ClarificationRequest{
			NeedsClarification: true,
			Candidates:         append([]string(nil), DegradedCandidates...),
			Question:           DegradedQuestion,
			Reason:             DegradedReason,
		},
	}
}

// BuildCompetencyRequest assembles the synthesizer request for a job.
func BuildCompetencyRequest(job models.JobPayload, req Request) (synth.Request, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(job); err != nil {
		return synth.Request{}, fmt.Errorf("failed to encode job payload: %w", err)
	}

	instruction, err := prompts.CompetencyInstruction(buf.String(), models.DefaultCompType)
	if err != nil {
		return synth.Request{}, err
	}

	sreq := synth.Request{Instruction: instruction}
	if len(req.Context) > 0 {
		sreq.Attachments = []synth.Attachment{{MIMEType: synth.MIMETypePDF, Data: req.Context}}
		if sreq.Hint, err = prompts.RulebookNote(); err != nil {
			return synth.Request{}, err
		}
	}
	if req.ChosenCompetency != "" {
		if sreq.Steering, err = prompts.Steering(req.ChosenCompetency); err != nil {
			return synth.Request{}, err
		}
	}
	return sreq, nil
}
