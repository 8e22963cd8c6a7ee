package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"epcsync/internal/domain"
	"epcsync/internal/port"
)

type recordRepo struct {
	db *sqlx.DB
}

// NewRecordRepo creates a new PostgreSQL-backed RecordRepository.
func NewRecordRepo(db *sqlx.DB) port.RecordRepository {
	return &recordRepo{db: db}
}

// recordRow reads details as text so the scan does not depend on how the
// driver surfaces jsonb.
type recordRow struct {
	Identity    string         `db:"identity"`
	Fingerprint string         `db:"fingerprint"`
	ProcessedAt time.Time      `db:"processed_at"`
	Success     bool           `db:"success"`
	Stage       string         `db:"stage"`
	Details     sql.NullString `db:"details"`
}

func (row *recordRow) toDomain() domain.ProcessingRecord {
	rec := domain.ProcessingRecord{
		Identity:    row.Identity,
		Fingerprint: row.Fingerprint,
		ProcessedAt: row.ProcessedAt,
		Success:     row.Success,
		Stage:       row.Stage,
	}
	if row.Details.Valid {
		rec.Details = json.RawMessage(row.Details.String)
	}
	return rec
}

const selectRecords = `SELECT identity, fingerprint, processed_at, success, stage, details::text AS details
	FROM processing_records`

func (r *recordRepo) Get(ctx context.Context, identity string) (*domain.ProcessingRecord, error) {
	var row recordRow
	err := r.db.GetContext(ctx, &row, selectRecords+" WHERE identity = $1", identity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fmt.Errorf("recordRepo.Get: %w", err)
	}
	rec := row.toDomain()
	return &rec, nil
}

func (r *recordRepo) Upsert(ctx context.Context, record *domain.ProcessingRecord) error {
	var details interface{}
	if len(record.Details) > 0 {
		details = string(record.Details)
	}

	query := `INSERT INTO processing_records (identity, fingerprint, processed_at, success, stage, details)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb)
		ON CONFLICT (identity) DO UPDATE SET
			fingerprint = EXCLUDED.fingerprint,
			processed_at = EXCLUDED.processed_at,
			success = EXCLUDED.success,
			stage = EXCLUDED.stage,
			details = EXCLUDED.details`

	_, err := r.db.ExecContext(ctx, query,
		record.Identity, record.Fingerprint, record.ProcessedAt, record.Success, record.Stage, details)
	if err != nil {
		return fmt.Errorf("recordRepo.Upsert: %w", err)
	}
	return nil
}

func (r *recordRepo) List(ctx context.Context) ([]domain.ProcessingRecord, error) {
	var rows []recordRow
	if err := r.db.SelectContext(ctx, &rows, selectRecords+" ORDER BY processed_at DESC, identity"); err != nil {
		return nil, fmt.Errorf("recordRepo.List: %w", err)
	}
	out := make([]domain.ProcessingRecord, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}

func (r *recordRepo) DeleteAll(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM processing_records")
	if err != nil {
		return 0, fmt.Errorf("recordRepo.DeleteAll: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("recordRepo.DeleteAll: %w", err)
	}
	return int(n), nil
}
