package port

import (
	"context"

	"epcsync/internal/domain"
)

// Submitter sends a validated record to the remote catalog.
// The outcome is returned even when the error is non-nil so callers can
// report what was created before a fatal failure.
type Submitter interface {
	Submit(ctx context.Context, record *domain.CatalogRecord) (*domain.SubmissionOutcome, error)
}

// TokenSource supplies bearer tokens for the catalog API.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	// Invalidate drops any cached token so the next Token call re-authenticates.
	Invalidate()
}
