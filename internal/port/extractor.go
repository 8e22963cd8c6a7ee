package port

import (
	"context"

	"epcsync/internal/domain"
)

// Extractor produces a validated CatalogRecord from converted document text.
// An exhausted validation budget is reported through the result, not the error;
// the error is reserved for aborts (model transport, auth, cancellation).
type Extractor interface {
	Extract(ctx context.Context, text string) (*domain.ExtractionResult, error)
	Validate(record *domain.CatalogRecord) []string
}
