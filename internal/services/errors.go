package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrExternalTool marks failures reported by an external binary
	// (renderer, analyzer subprocess).
	ErrExternalTool = errors.New("external tool error")
	// ErrValidation marks malformed or missing input, rejected before any
	// state change.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks unusable configuration discovered at runtime.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks a referenced record or file that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a guarded status transition that affected zero rows:
	// another actor changed the job concurrently.
	ErrConflict = errors.New("conflict")
	// ErrRateLimited marks a caller that exceeded a route's fixed window.
	ErrRateLimited = errors.New("rate limited")
	// ErrTimeout marks an operation that exceeded its deadline.
	ErrTimeout = errors.New("timeout")
	// ErrTransient marks failures expected to succeed on retry.
	ErrTransient = errors.New("transient failure")
	// ErrPermanent marks failures that no amount of retrying will fix.
	ErrPermanent = errors.New("permanent failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later retry classification. The marker should
// be one of the exported sentinel errors above.
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

// IsRetryable reports whether an error should be retried by the worker.
// Permanent, validation, and not-found failures never retry; everything else
// defaults to retryable, the safer choice for unclassified errors.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrPermanent),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrConfiguration),
		errors.Is(err, ErrNotFound):
		return false
	default:
		return true
	}
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
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
