package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers for stage failure classification. Every error crossing the
// orchestrator boundary is wrapped with exactly one of these.
var (
	// ErrValidation marks malformed input parameters. Never retried.
	ErrValidation = errors.New("validation error")
	// ErrTransient marks timeouts, memory pressure, and flaky collaborator
	// failures. Retried a bounded number of times after guard cleanup.
	ErrTransient = errors.New("transient resource error")
	// ErrFatal marks unsupported input formats and corrupted intermediate
	// assets. Never retried.
	ErrFatal = errors.New("fatal processing error")
	// ErrStuck is applied only by the sweeper when a worker goes silent.
	ErrStuck = errors.New("stuck job error")
)

// Code is the stable error code surfaced through the status interface.
type Code string

const (
	CodeValidation Code = "validation_error"
	CodeTransient  Code = "transient_resource_error"
	CodeFatal      Code = "fatal_processing_error"
	CodeStuck      Code = "stuck_job_error"
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker. The marker should be one of the sentinels above;
// nil defaults to ErrTransient.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps a stage error to its stable code. Unmarked errors are treated
// as transient, matching the retry-then-fail default.
func Classify(err error) Code {
	switch {
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrFatal):
		return CodeFatal
	case errors.Is(err, ErrStuck):
		return CodeStuck
	default:
		return CodeTransient
	}
}

// Retryable reports whether the orchestrator may retry the failed stage.
func Retryable(err error) bool {
	return Classify(err) == CodeTransient
}

// UserMessage produces the short human-readable message persisted to the
// ledger. Internals (stack traces, model names) are stripped down to the
// wrapped detail text.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.TrimSpace(err.Error())
	for _, sentinel := range []error{ErrValidation, ErrTransient, ErrFatal, ErrStuck} {
		prefix := sentinel.Error() + ": "
		if strings.HasPrefix(msg, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(msg, prefix))
		}
	}
	return msg
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "stage failure"
	}
	return strings.Join(parts, ": ")
}
