// Package synth defines the content synthesizer capability: a prompt plus optional binary
// context in, raw text (expected to encode JSON) out.
package synth

import "context"

// Common attachment MIME types.
const (
	MIMETypePDF = "application/pdf"
	MIMETypePNG = "image/png"
)

// Attachment is a binary context blob sent alongside the instruction.
type Attachment struct {
	MIMEType string
	Data     []byte
}

// Request is one synthesis call.
type Request struct {
	// Instruction is the free-form prompt text.
	Instruction string
	Attachments []Attachment
	// Hint is extracted text offered to help read the attachments.
	Hint string
	// Steering is a prior-turn choice the output must commit to.
	Steering string
}

// Synthesizer produces raw text for a request. Implementations make no promise about
// determinism or latency; callers validate whatever comes back.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (string, error)
}

// Func adapts a plain function to the Synthesizer interface.
type Func func(ctx context.Context, req Request) (string, error)

// Synthesize calls f.
func (f Func) Synthesize(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
