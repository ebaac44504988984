package gcp

import "fmt"

// StorageError wraps a failed object operation.
type StorageError struct {
	Op     string
	Object string
	Cause  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("gcs %s %s: %v", e.Op, e.Object, e.Cause)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}
