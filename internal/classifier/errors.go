package classifier

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

const (
	timeoutMessage         = "Request timeout"
	invalidResponseMessage = "Invalid response from server"
)

// ClassifierError describes a failed classification call. Message is the
// user-facing text recorded on failure outcomes.
type ClassifierError struct {
	StatusCode int
	Message    string
	Timeout    bool
	Cause      error
}

func (e *ClassifierError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 4)
	parts = append(parts, "classifier error")

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *ClassifierError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func newTimeoutError(cause error) *ClassifierError {
	return &ClassifierError{Message: timeoutMessage, Timeout: true, Cause: cause}
}

// IsTimeout reports whether err is an abandoned attempt.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}

	var classifierErr *ClassifierError
	if errors.As(err, &classifierErr) {
		return classifierErr.Timeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return errors.Is(err, context.DeadlineExceeded)
}

// ErrorMessage extracts the text to show for a failed item.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var classifierErr *ClassifierError
	if errors.As(err, &classifierErr) {
		if msg := strings.TrimSpace(classifierErr.Message); msg != "" {
			return msg
		}
	}
	if errors.Is(err, context.Canceled) {
		return "Request canceled"
	}

	return err.Error()
}
