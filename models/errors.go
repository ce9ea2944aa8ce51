package models

import (
	"errors"
	"fmt"
)

// Error codes used in API responses and internal error handling.
const (
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeCanceled     = "REQUEST_CANCELED"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeInternal     = "INTERNAL_ERROR"

	// Summarization collaborator error codes. These never fail an ingestion;
	// they are reported alongside the record.
	ErrCodeSummarizeFailure     = "SUMMARIZE_FAILED"
	ErrCodeSummarizeAuthFailure = "SUMMARIZE_AUTH_FAILURE"
	ErrCodeSummarizeRateLimited = "SUMMARIZE_RATE_LIMITED"
)

// ErrInvalidURL is wrapped by every INVALID_INPUT error returned for a URL
// that does not parse as an absolute http(s) URL.
var ErrInvalidURL = errors.New("invalid url")

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ScrapeError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type ScrapeError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// NewScrapeError creates a new ScrapeError.
func NewScrapeError(code, message string, err error) *ScrapeError {
	return &ScrapeError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *ScrapeError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

// IsInvalidInput reports whether err is an INVALID_INPUT ScrapeError.
func IsInvalidInput(err error) bool {
	var se *ScrapeError
	return errors.As(err, &se) && se.Code == ErrCodeInvalidInput
}
