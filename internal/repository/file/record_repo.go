// Package file implements port.RecordRepository on a single JSON file.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"epcsync/internal/domain"
	"epcsync/internal/port"
)

// RecordRepo stores processing records as one JSON object keyed by identity.
// Every write replaces the file through a synced temp file and a rename, so
// the file on disk is always a complete snapshot.
type RecordRepo struct {
	path string

	mu      sync.Mutex
	records map[string]domain.ProcessingRecord
}

// NewRecordRepo creates a file-backed RecordRepository at path. The file is
// read lazily on first use; a missing file is an empty store.
func NewRecordRepo(path string) port.RecordRepository {
	return &RecordRepo{path: path}
}

func (r *RecordRepo) Get(_ context.Context, identity string) (*domain.ProcessingRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(); err != nil {
		return nil, err
	}
	rec, ok := r.records[identity]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return &rec, nil
}

func (r *RecordRepo) Upsert(_ context.Context, record *domain.ProcessingRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(); err != nil {
		// An unreadable store must not block new outcomes. Set it aside for
		// inspection and start over.
		aside, qerr := r.quarantine()
		if qerr != nil {
			return fmt.Errorf("file.RecordRepo.Upsert: store unreadable (%v) and could not be set aside: %w", err, qerr)
		}
		logrus.Warnf("file.RecordRepo.Upsert: unreadable store %s moved to %s: %v", r.path, aside, err)
		r.records = make(map[string]domain.ProcessingRecord)
	}

	next := make(map[string]domain.ProcessingRecord, len(r.records)+1)
	for k, v := range r.records {
		next[k] = v
	}
	next[record.Identity] = *record
	if err := r.write(next); err != nil {
		return err
	}
	r.records = next
	return nil
}

// List returns all records, most recently processed first.
func (r *RecordRepo) List(_ context.Context) ([]domain.ProcessingRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(); err != nil {
		return nil, err
	}
	out := make([]domain.ProcessingRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProcessedAt.Equal(out[j].ProcessedAt) {
			return out[i].Identity < out[j].Identity
		}
		return out[i].ProcessedAt.After(out[j].ProcessedAt)
	})
	return out, nil
}

func (r *RecordRepo) DeleteAll(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	if err := r.load(); err == nil {
		n = len(r.records)
	}
	empty := make(map[string]domain.ProcessingRecord)
	if err := r.write(empty); err != nil {
		return 0, err
	}
	r.records = empty
	return n, nil
}

// load reads the file once. Callers hold r.mu.
func (r *RecordRepo) load() error {
	if r.records != nil {
		return nil
	}
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		r.records = make(map[string]domain.ProcessingRecord)
		return nil
	}
	if err != nil {
		return fmt.Errorf("file.RecordRepo: reading %s: %w", r.path, err)
	}

	records := make(map[string]domain.ProcessingRecord)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &records); err != nil {
			return fmt.Errorf("file.RecordRepo: decoding %s: %w", r.path, err)
		}
	}
	for identity, rec := range records {
		rec.Identity = identity
		records[identity] = rec
	}
	r.records = records
	return nil
}

// quarantine renames the store file to <path>.corrupt-<unix nanos>.
func (r *RecordRepo) quarantine() (string, error) {
	aside := fmt.Sprintf("%s.corrupt-%d", r.path, time.Now().UnixNano())
	if err := os.Rename(r.path, aside); err != nil {
		return "", err
	}
	return aside, nil
}

func (r *RecordRepo) write(records map[string]domain.ProcessingRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("file.RecordRepo: encoding records: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("file.RecordRepo: creating %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("file.RecordRepo: creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("file.RecordRepo: writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("file.RecordRepo: syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("file.RecordRepo: closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		cleanup()
		return fmt.Errorf("file.RecordRepo: replacing %s: %w", r.path, err)
	}
	return nil
}
