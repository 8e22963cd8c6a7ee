package file_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epcsync/internal/domain"
	"epcsync/internal/repository/file"
)

func TestRecordRepo_MissingFileIsEmpty(t *testing.T) {
	repo := file.NewRecordRepo(filepath.Join(t.TempDir(), "none.json"))

	_, err := repo.Get(context.Background(), "a.pdf")
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRecordRepo_UpsertPersistsAndReplaces(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "processed.json")
	repo := file.NewRecordRepo(path)

	first := &domain.ProcessingRecord{Identity: "a.pdf", Fingerprint: "h1", ProcessedAt: time.Now().UTC(), Success: false}
	require.NoError(t, repo.Upsert(ctx, first))
	second := &domain.ProcessingRecord{Identity: "a.pdf", Fingerprint: "h2", ProcessedAt: time.Now().UTC(), Success: true,
		Details: json.RawMessage(`{"groups_created":1}`)}
	require.NoError(t, repo.Upsert(ctx, second))

	// a fresh repository sees what the first one wrote
	reopened := file.NewRecordRepo(path)
	rec, err := reopened.Get(ctx, "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "h2", rec.Fingerprint)
	assert.True(t, rec.Success)
	assert.JSONEq(t, `{"groups_created":1}`, string(rec.Details))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestRecordRepo_FileFormatIsKeyedByIdentity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed.json")
	repo := file.NewRecordRepo(path)
	require.NoError(t, repo.Upsert(context.Background(), &domain.ProcessingRecord{
		Identity: "docs/a.pdf", Fingerprint: "abc", ProcessedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), Success: true,
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Contains(t, raw, "docs/a.pdf")
	assert.Equal(t, "abc", raw["docs/a.pdf"]["hash"])
	assert.Equal(t, true, raw["docs/a.pdf"]["success"])
}

func TestRecordRepo_ReadsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "legacy.pdf": {"hash": "deadbeef", "timestamp": "2025-01-02T03:04:05Z", "success": true}
}`), 0o644))

	rec, err := file.NewRecordRepo(path).Get(context.Background(), "legacy.pdf")

	require.NoError(t, err)
	assert.Equal(t, "legacy.pdf", rec.Identity)
	assert.Equal(t, "deadbeef", rec.Fingerprint)
	assert.True(t, rec.Success)
}

func TestRecordRepo_CorruptFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "processed.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	repo := file.NewRecordRepo(path)

	_, err := repo.Get(ctx, "a.pdf")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrRecordNotFound)

	require.NoError(t, repo.Upsert(ctx, &domain.ProcessingRecord{Identity: "a.pdf", Fingerprint: "h", Success: true}))
	rec, err := repo.Get(ctx, "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "h", rec.Fingerprint)
}

func TestRecordRepo_CorruptFileIsPreserved(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "processed.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	repo := file.NewRecordRepo(path)

	require.NoError(t, repo.Upsert(ctx, &domain.ProcessingRecord{Identity: "a.pdf", Fingerprint: "h", Success: true}))

	aside, err := filepath.Glob(path + ".corrupt-*")
	require.NoError(t, err)
	require.Len(t, aside, 1)
	data, err := os.ReadFile(aside[0])
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(data))

	var stored map[string]json.RawMessage
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &stored))
	assert.Contains(t, stored, "a.pdf")
}

func TestRecordRepo_ListNewestFirstAndDeleteAll(t *testing.T) {
	ctx := context.Background()
	repo := file.NewRecordRepo(filepath.Join(t.TempDir(), "processed.json"))
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Upsert(ctx, &domain.ProcessingRecord{Identity: "old.pdf", ProcessedAt: base}))
	require.NoError(t, repo.Upsert(ctx, &domain.ProcessingRecord{Identity: "new.pdf", ProcessedAt: base.Add(time.Hour)}))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new.pdf", list[0].Identity)
	assert.Equal(t, "old.pdf", list[1].Identity)

	n, err := repo.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	list, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
