package scraper

import (
	"errors"
	"fmt"
)

// ErrPageUnavailable is returned by Fetch once every attempt for a page has
// failed.
var ErrPageUnavailable = errors.New("page unavailable")

// ErrorKind labels why a fetch attempt failed. It doubles as the metrics
// label.
type ErrorKind string

const (
	KindTimeout     ErrorKind = "timeout"
	KindConnection  ErrorKind = "connection"
	KindForbidden   ErrorKind = "forbidden"
	KindNotFound    ErrorKind = "not_found"
	KindRateLimited ErrorKind = "rate_limited"
	KindBadStatus   ErrorKind = "bad_status"
	KindOther       ErrorKind = "other"
)

// AttemptError describes one failed request for a page. Status is zero when
// no response was received.
type AttemptError struct {
	Kind   ErrorKind
	Status int
	Err    error
}

func (e *AttemptError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *AttemptError) Unwrap() error {
	return e.Err
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var attemptErr *AttemptError
	if errors.As(err, &attemptErr) {
		return string(attemptErr.Kind)
	}
	return string(KindOther)
}
