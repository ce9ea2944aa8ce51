package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/use-agent/linkstash/models"
)

// Reason tags why a strategy failed. The dispatcher escalates on every
// reason; Fatal reasons additionally disable the rendering service for a
// cool-down period.
type Reason string

const (
	ReasonBlocked            Reason = "blocked"
	ReasonAccessDenied       Reason = "access_denied"
	ReasonServerError        Reason = "server_error"
	ReasonNotHTML            Reason = "not_html"
	ReasonTimeout            Reason = "timeout"
	ReasonNetwork            Reason = "network"
	ReasonEmpty              Reason = "empty"
	ReasonInvalidCredentials Reason = "invalid_credentials"
	ReasonQuotaExceeded      Reason = "quota_exceeded"
	ReasonTransient          Reason = "transient"
	ReasonNotConfigured      Reason = "not_configured"
	ReasonCanceled           Reason = "canceled"

	// ReasonErrorPage is set by the dispatcher when a fetched page passed the
	// HTML checks but the extracted result was rejected.
	ReasonErrorPage Reason = "error_page"
)

// Fatal reports whether retrying the same service within this process is
// pointless until an operator intervenes.
func (r Reason) Fatal() bool {
	return r == ReasonInvalidCredentials || r == ReasonQuotaExceeded
}

// FetchError is the tagged failure every engine returns.
type FetchError struct {
	Method models.FetchMethod
	Reason Reason
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s fetch %s: %v", e.Method, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s fetch %s", e.Method, e.Reason)
}

func (e *FetchError) Unwrap() error { return e.Err }

func fetchErr(method models.FetchMethod, reason Reason, err error) *FetchError {
	return &FetchError{Method: method, Reason: reason, Err: err}
}

// ReasonOf extracts the failure reason from err, or "" when err is not a
// FetchError.
func ReasonOf(err error) Reason {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Reason
	}
	return ""
}

// transportReason classifies a transport error. parent is the caller's
// context: when it is done the caller gave up, otherwise a deadline hit here
// is the engine's own timeout.
func transportReason(parent context.Context, err error) Reason {
	switch {
	case parent.Err() != nil:
		return ReasonCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	default:
		return ReasonNetwork
	}
}
