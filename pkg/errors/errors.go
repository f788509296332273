package neuroscan_errors

import (
	"errors"
	"fmt"
	"time"
)

// Common errors
var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidInput      = errors.New("invalid input")
	ErrAlreadyExists     = errors.New("already exists")
	ErrQueueFull         = errors.New("analysis queue full")
	ErrResultsMismatch   = errors.New("results allowed only with completed status")
)

// Validation rule codes surfaced to clients.
const (
	RuleInvalidFileType = "INVALID_FILE_TYPE"
	RuleFileTooLarge    = "FILE_TOO_LARGE"
	RuleEmptyBatch      = "EMPTY_BATCH"
	RuleBatchTooLarge   = "BATCH_TOO_LARGE"
)

// ValidationError rejects a whole upload batch before any file is written.
// Count is the number of files that violated the rule.
type ValidationError struct {
	Rule    string
	Count   int
	Message string
}

func (e *ValidationError) Error() string {
	if e.Count > 0 {
		return fmt.Sprintf("%s (%d file(s) rejected)", e.Message, e.Count)
	}
	return e.Message
}

func NewValidationError(rule string, count int, message string) *ValidationError {
	return &ValidationError{Rule: rule, Count: count, Message: message}
}

// AsValidationError unwraps err into a *ValidationError if possible.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// NowPtr returns a pointer to current time
func NowPtr() *time.Time {
	now := time.Now()
	return &now
}
