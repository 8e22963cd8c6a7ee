// Package report renders batch and job results as JSON, CSV and XLSX.
package report

import (
	"time"

	"epcsync/internal/domain"
	"epcsync/internal/service"
)

// Row is one document line of a report.
type Row struct {
	FileName  string
	Identity  string
	Status    domain.JobState
	Stage     string
	Attempts  int
	Groups    int
	Entries   int
	Counts    domain.SubmissionCounts
	Error     string
	Duration  time.Duration
	UpdatedAt time.Time
	Record    *domain.CatalogRecord
	Outcome   *domain.SubmissionOutcome
}

// RowFromResult builds a Row from a pipeline result.
func RowFromResult(r *service.Result) Row {
	row := Row{
		FileName: r.FileName,
		Identity: r.Identity,
		Status:   r.State,
		Stage:    r.Stage,
		Error:    r.Error,
		Duration: r.Duration,
		Outcome:  r.Outcome,
	}
	if row.Error == "" {
		row.Error = r.Reason
	}
	if r.Extraction != nil {
		row.Attempts = r.Extraction.Attempts
		row.Record = r.Extraction.Record
	}
	fill(&row)
	return row
}

// RowFromJob builds a Row from a registry job.
func RowFromJob(j *domain.Job) Row {
	row := Row{
		FileName:  j.FileName,
		Identity:  j.Identity,
		Status:    j.State,
		Stage:     j.Stage,
		Attempts:  j.Attempts,
		Error:     j.Error,
		UpdatedAt: j.UpdatedAt,
		Record:    j.Record,
		Outcome:   j.Outcome,
	}
	if j.StartedAt != nil && j.CompletedAt != nil {
		row.Duration = j.CompletedAt.Sub(*j.StartedAt)
	}
	fill(&row)
	return row
}

// RowsFromSummary converts every result of a batch run.
func RowsFromSummary(s *service.Summary) []Row {
	rows := make([]Row, 0, len(s.Results))
	for _, r := range s.Results {
		rows = append(rows, RowFromResult(r))
	}
	return rows
}

func fill(row *Row) {
	if row.Record != nil {
		row.Groups = len(row.Record.Groups)
		row.Entries = row.Record.EntryCount()
	}
	if row.Outcome != nil {
		row.Counts = row.Outcome.Counts()
	}
}
