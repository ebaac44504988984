package contract

import (
	"fmt"
	"strings"
)

// FieldError is a single validation failure at a field path.
type FieldError struct {
	Field   string
	Message string
}

// ParseError means no JSON value could be recovered from the synthesizer output.
type ParseError struct {
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// SchemaError means the JSON value does not have one of the accepted shapes.
type SchemaError struct {
	Shape  string
	Errors []FieldError
}

func (e *SchemaError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s validation failed:", e.Shape)
	for i, fe := range e.Errors {
		fmt.Fprintf(&sb, " %d. %s: %s;", i+1, fe.Field, fe.Message)
	}
	return strings.TrimSuffix(sb.String(), ";")
}

// ContractError is terminal: the attempt budget ran out without a valid output.
type ContractError struct {
	Attempts int
	LastErr  error
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("contract not satisfied after %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *ContractError) Unwrap() error {
	return e.LastErr
}
