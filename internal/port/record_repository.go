package port

import (
	"context"

	"epcsync/internal/domain"
)

// RecordRepository defines durable storage for processing records keyed by
// document identity. Upsert must be persisted before it returns.
type RecordRepository interface {
	Get(ctx context.Context, identity string) (*domain.ProcessingRecord, error)
	Upsert(ctx context.Context, record *domain.ProcessingRecord) error
	List(ctx context.Context) ([]domain.ProcessingRecord, error)
	DeleteAll(ctx context.Context) (int, error)
}
