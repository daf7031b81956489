package engine

import "fmt"

// Validation error codes. These are local precondition failures: they are
// resolved before any network call and never reach the adapter.
const (
	CodeNotAuthenticated = "NOT_AUTHENTICATED"
	CodeEmptyContent     = "EMPTY_CONTENT"
	CodeNotAuthor        = "NOT_AUTHOR"
	CodeNotFound         = "NOT_FOUND"
	CodeBusy             = "BUSY"
	CodeUnknownReaction  = "UNKNOWN_REACTION"
)

type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func validationError(code, message string) *ValidationError {
	return &ValidationError{Code: code, Message: message}
}
