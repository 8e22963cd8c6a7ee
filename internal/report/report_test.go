package report_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"epcsync/internal/domain"
	"epcsync/internal/port"
	"epcsync/internal/report"
	"epcsync/internal/service"
	"epcsync/mocks"
)

func sampleSummary() *service.Summary {
	record := &domain.CatalogRecord{Groups: []domain.Group{
		{Name: "Engine", SecondaryName: "Motor", Entries: []domain.Entry{{Name: "Piston"}, {Name: "Valve"}}},
		{Name: "Brakes", Entries: []domain.Entry{{Name: "Pad"}}},
	}}
	outcome := &domain.SubmissionOutcome{Groups: []domain.GroupOutcome{
		{Name: "Engine", Status: domain.SubmissionCreated, RemoteID: "g1", Entries: []domain.EntryOutcome{
			{Name: "Piston", Status: domain.SubmissionCreated},
			{Name: "Valve", Status: domain.SubmissionFailed, Reason: "status 422"},
		}},
		{Name: "Brakes", Status: domain.SubmissionSkipped, Entries: []domain.EntryOutcome{
			{Name: "Pad", Status: domain.SubmissionSkipped},
		}},
	}}
	return &service.Summary{
		Total:     2,
		Completed: 1,
		Failed:    1,
		Results: []*service.Result{
			{
				Identity:   "docs/engine.pdf",
				FileName:   "engine.pdf",
				State:      domain.JobCompleted,
				Stage:      domain.StageCompleted,
				Extraction: &domain.ExtractionResult{Record: record, Attempts: 2},
				Outcome:    outcome,
				Duration:   1500 * time.Millisecond,
			},
			{
				Identity: "docs/broken.pdf",
				FileName: "broken.pdf",
				State:    domain.JobFailed,
				Stage:    domain.StageConversion,
				Error:    "converting docs/broken.pdf: malformed PDF",
			},
		},
	}
}

func TestRowFromResult(t *testing.T) {
	rows := report.RowsFromSummary(sampleSummary())
	require.Len(t, rows, 2)

	assert.Equal(t, "engine.pdf", rows[0].FileName)
	assert.Equal(t, 2, rows[0].Attempts)
	assert.Equal(t, 2, rows[0].Groups)
	assert.Equal(t, 3, rows[0].Entries)
	assert.Equal(t, 1, rows[0].Counts.GroupsCreated)
	assert.Equal(t, 1, rows[0].Counts.GroupsSkipped)
	assert.Equal(t, 1, rows[0].Counts.EntriesFailed)

	assert.Equal(t, domain.JobFailed, rows[1].Status)
	assert.Equal(t, 0, rows[1].Groups)
	assert.Contains(t, rows[1].Error, "malformed PDF")
}

func TestRowFromResult_SkipReasonUsedAsError(t *testing.T) {
	row := report.RowFromResult(&service.Result{
		Identity: "a.pdf",
		State:    domain.JobSkipped,
		Reason:   "already processed with identical content",
	})
	assert.Equal(t, "already processed with identical content", row.Error)
}

func TestRowFromJob(t *testing.T) {
	started := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	done := started.Add(4 * time.Second)
	row := report.RowFromJob(&domain.Job{
		Identity:    "a.pdf",
		FileName:    "a.pdf",
		State:       domain.JobCompleted,
		Stage:       domain.StageCompleted,
		Attempts:    1,
		StartedAt:   &started,
		CompletedAt: &done,
		Record:      &domain.CatalogRecord{Groups: []domain.Group{{Name: "A", Entries: []domain.Entry{{Name: "X"}}}}},
	})
	assert.Equal(t, 4*time.Second, row.Duration)
	assert.Equal(t, 1, row.Groups)
	assert.Equal(t, 1, row.Entries)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.WriteCSV(&buf, report.RowsFromSummary(sampleSummary())))

	data := buf.Bytes()
	require.True(t, bytes.HasPrefix(data, report.BOM))

	records, err := csv.NewReader(bytes.NewReader(data[len(report.BOM):])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "Document Name", records[0][0])
	assert.Equal(t, "Error", records[0][len(records[0])-1])
	assert.Equal(t, []string{"engine.pdf", "docs/engine.pdf", "completed", "completed", "2", "2", "3"}, records[1][:7])
	assert.Equal(t, "1.50", records[1][13])
	assert.Equal(t, "failed", records[2][2])
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.WriteXLSX(&buf, report.RowsFromSummary(sampleSummary())))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Documents", "Groups"}, f.GetSheetList())

	docs, err := f.GetRows("Documents")
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "engine.pdf", docs[1][0])
	assert.Equal(t, "failed", docs[2][2])

	groups, err := f.GetRows("Groups")
	require.NoError(t, err)
	require.Len(t, groups, 3)
	assert.Equal(t, []string{"engine.pdf", "1", "Engine", "Motor", "2", "created", "g1", "1", "1"}, groups[1][:9])
	assert.Equal(t, "Brakes", groups[2][2])
	assert.Equal(t, "skipped", groups[2][5])
}

func TestWriteFile_ByExtension(t *testing.T) {
	dir := t.TempDir()
	s := sampleSummary()

	jsonPath := filepath.Join(dir, "out", "results.json")
	require.NoError(t, report.WriteFile(jsonPath, s))
	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var decoded service.Summary
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 2, decoded.Total)
	require.Len(t, decoded.Results, 2)
	assert.Equal(t, "docs/broken.pdf", decoded.Results[1].Identity)

	csvPath := filepath.Join(dir, "results.csv")
	require.NoError(t, report.WriteFile(csvPath, s))
	data, err = os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, report.BOM))

	xlsxPath := filepath.Join(dir, "results.xlsx")
	require.NoError(t, report.WriteFile(xlsxPath, s))
	f, err := excelize.OpenFile(xlsxPath)
	require.NoError(t, err)
	f.Close()
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Engine Parts 2024", "Engine_Parts_2024"},
		{"a//b..c", "a_b_c"},
		{"__x__", "x"},
		{"", ""},
		{strings.Repeat("a", 150), strings.Repeat("a", 100)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, report.SanitizeFilename(tt.in), tt.in)
	}
}

func TestBuildFilename(t *testing.T) {
	name := report.BuildFilename("batch run", "csv")
	assert.True(t, strings.HasPrefix(name, "batch_run_"))
	assert.True(t, strings.HasSuffix(name, ".csv"))

	assert.True(t, strings.HasPrefix(report.BuildFilename("!!!", "xlsx"), "epcsync_report_"))
}

func TestUploader_UploadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n"), 0o600))

	storage := new(mocks.MockObjectStorage)
	storage.On("Upload", mock.Anything, mock.MatchedBy(func(in port.UploadInput) bool {
		return in.Bucket == "archive" && in.Key == "epc/reports/results.csv" &&
			in.ContentType == "text/csv; charset=utf-8" && in.Size == 4
	})).Return(&port.UploadOutput{Location: "s3://archive/epc/reports/results.csv"}, nil)

	loc, err := report.NewUploader(storage, "archive", "epc/").UploadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "s3://archive/epc/reports/results.csv", loc)
	storage.AssertExpectations(t)
}

func TestUploader_MissingFile(t *testing.T) {
	storage := new(mocks.MockObjectStorage)
	_, err := report.NewUploader(storage, "b", "").UploadFile(context.Background(), filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	storage.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}
