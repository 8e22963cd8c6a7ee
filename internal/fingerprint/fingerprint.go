package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"epcsync/internal/domain"
	"epcsync/internal/port"
)

// Fingerprint returns the hex SHA-256 of raw.
func Fingerprint(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Tracker decides whether a document identity needs processing and records
// the outcome once it does. Decisions are serialized per identity through an
// in-memory claim: a caller that gets true owns the identity until it calls
// RecordOutcome or Release. The claim map is the only locked state; storage
// I/O happens outside the lock.
type Tracker struct {
	repo port.RecordRepository

	mu     sync.Mutex
	claims map[string]string
}

// NewTracker creates a Tracker over repo.
func NewTracker(repo port.RecordRepository) *Tracker {
	return &Tracker{
		repo:   repo,
		claims: make(map[string]string),
	}
}

// ShouldProcess reports whether identity must be processed for raw. See
// ShouldProcessFingerprint.
func (t *Tracker) ShouldProcess(ctx context.Context, identity string, raw []byte) (bool, error) {
	return t.ShouldProcessFingerprint(ctx, identity, Fingerprint(raw))
}

// ShouldProcessFingerprint returns false only when a successful record with
// the same fingerprint exists. A concurrent claim on the identity returns
// (false, domain.ErrInFlight). A store read failure returns (true, err): the
// document is processed anyway and the error is reported.
func (t *Tracker) ShouldProcessFingerprint(ctx context.Context, identity, fp string) (bool, error) {
	if !t.claim(identity, fp) {
		return false, domain.ErrInFlight
	}

	rec, err := t.repo.Get(ctx, identity)
	switch {
	case errors.Is(err, domain.ErrRecordNotFound):
		return true, nil
	case err != nil:
		logrus.Warnf("fingerprint.Tracker: reading record for %s failed, processing anyway: %v", identity, err)
		return true, fmt.Errorf("reading processing record: %w", err)
	case rec.Success && rec.Fingerprint == fp:
		t.Release(identity)
		return false, nil
	default:
		return true, nil
	}
}

// RecordOutcome persists the outcome for identity and releases its claim.
func (t *Tracker) RecordOutcome(ctx context.Context, identity string, raw []byte, success bool, stage string, details interface{}) error {
	return t.RecordFingerprint(ctx, identity, Fingerprint(raw), success, stage, details)
}

// RecordFingerprint is RecordOutcome for an already computed fingerprint.
// The record replaces any earlier one for identity and is durable when this
// returns without error.
func (t *Tracker) RecordFingerprint(ctx context.Context, identity, fp string, success bool, stage string, details interface{}) error {
	defer t.Release(identity)

	var raw json.RawMessage
	if details != nil {
		b, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("marshaling outcome details: %w", err)
		}
		raw = b
	}

	rec := &domain.ProcessingRecord{
		Identity:    identity,
		Fingerprint: fp,
		ProcessedAt: time.Now().UTC(),
		Success:     success,
		Stage:       stage,
		Details:     raw,
	}
	if err := t.repo.Upsert(ctx, rec); err != nil {
		logrus.Errorf("fingerprint.Tracker: persisting outcome for %s failed: %v", identity, err)
		return fmt.Errorf("persisting processing record: %w", err)
	}
	logrus.Infof("fingerprint.Tracker: recorded %s (success=%t, stage=%s)", identity, success, stage)
	return nil
}

// Release drops the claim on identity without recording anything.
func (t *Tracker) Release(identity string) {
	t.mu.Lock()
	delete(t.claims, identity)
	t.mu.Unlock()
}

// InFlight reports whether identity is currently claimed.
func (t *Tracker) InFlight(identity string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.claims[identity]
	return ok
}

func (t *Tracker) Get(ctx context.Context, identity string) (*domain.ProcessingRecord, error) {
	return t.repo.Get(ctx, identity)
}

func (t *Tracker) List(ctx context.Context) ([]domain.ProcessingRecord, error) {
	return t.repo.List(ctx)
}

// Clear deletes every processing record. Claims held by running documents
// are left alone.
func (t *Tracker) Clear(ctx context.Context) (int, error) {
	n, err := t.repo.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("clearing processing records: %w", err)
	}
	logrus.Infof("fingerprint.Tracker: cleared %d processing record(s)", n)
	return n, nil
}

func (t *Tracker) claim(identity, fp string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, busy := t.claims[identity]; busy {
		return false
	}
	t.claims[identity] = fp
	return true
}
