package services

import (
	"errors"
	"fmt"
)

// Messages shown to the user for input problems.
const (
	MsgNoDocument = "لم أتمكن من العثور على ملف PDF. رجاءً ارفع ملف PDF (بطاقة الوصف الوظيفي) أو مرّر مساره."
	MsgNoJobCards = "لم يتم العثور على أي 'بطاقة الوصف الوظيفي' داخل المستند."
)

// InputError is a caller problem: a missing document, no job cards, a bad selection or
// a malformed record. It is surfaced immediately and never retried.
type InputError struct {
	Message string
	Cause   error
}

func (e *InputError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *InputError) Unwrap() error {
	return e.Cause
}

// IsInputError reports whether err wraps an InputError.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

func selectionOutOfRange(index, count int) *InputError {
	return &InputError{Message: fmt.Sprintf("selected_job_index %d out of range. Must be 0..%d", index, count-1)}
}
