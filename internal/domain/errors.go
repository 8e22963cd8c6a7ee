package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	ErrJobNotFound           = errors.New("job not found")
	ErrJobActive             = errors.New("a job for this identity is already in progress")
	ErrJobNotPendingReview   = errors.New("job is not pending review")
	ErrJobNotActive          = errors.New("job is not running")
	ErrRecordNotFound        = errors.New("processing record not found")
	ErrInFlight              = errors.New("identity is already being processed")
	ErrQueueFull             = errors.New("processing queue is full")
	ErrUnsupportedFileType   = errors.New("unsupported file type")
	ErrFileTooLarge          = errors.New("file exceeds maximum allowed size")
	ErrEmptyDocument         = errors.New("document is empty")
	ErrNoRecordToSubmit      = errors.New("no extracted record to submit")
	ErrMissingMasterCategory = errors.New("master category id is required")
)

// ConfigurationError lists every missing or invalid setting found at startup.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// ConversionError indicates a document could not be converted to text.
// It is deterministic and never retried.
type ConversionError struct {
	Identity string
	Err      error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("converting %s: %v", e.Identity, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// ValidationError carries every violated invariant of the last extraction attempt.
type ValidationError struct {
	Attempts int
	Errors   []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed after %d attempt(s): %s", e.Attempts, strings.Join(e.Errors, "; "))
}

// TransportError is a network-level failure talking to the model provider or
// the catalog API.
type TransportError struct {
	Scope      TransportScope
	Provider   string
	StatusCode int
	RetryAfter time.Duration
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s transport error (%s, status %d): %v", e.Scope, e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s transport error (%s): %v", e.Scope, e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is transient: connection-level
// errors, rate limiting, and 5xx responses.
func (e *TransportError) Retryable() bool {
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// AuthError is a non-retryable authentication failure. On the catalog side it
// aborts the whole submission.
type AuthError struct {
	Scope TransportScope
	Err   error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s authentication failed: %v", e.Scope, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// PartialSubmissionError reports that some entities failed after exhausting retries.
type PartialSubmissionError struct {
	Counts  SubmissionCounts
	Details []string
}

func (e *PartialSubmissionError) Error() string {
	return fmt.Sprintf("submission incomplete: %d group(s) and %d entry(ies) failed: %s",
		e.Counts.GroupsFailed, e.Counts.EntriesFailed, strings.Join(e.Details, "; "))
}

// NewPartialSubmissionError builds a PartialSubmissionError from an outcome.
func NewPartialSubmissionError(o *SubmissionOutcome) *PartialSubmissionError {
	var details []string
	for i := range o.Groups {
		g := &o.Groups[i]
		if g.Status == SubmissionFailed {
			details = append(details, fmt.Sprintf("group %q: %s", g.Name, g.Reason))
		}
		for j := range g.Entries {
			if g.Entries[j].Status == SubmissionFailed {
				details = append(details, fmt.Sprintf("entry %q in %q: %s", g.Entries[j].Name, g.Name, g.Entries[j].Reason))
			}
		}
	}
	return &PartialSubmissionError{Counts: o.Counts(), Details: details}
}
