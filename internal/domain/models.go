package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Entry is a subordinate line of a catalog group (a type category in EPC terms).
type Entry struct {
	Code          string `json:"code,omitempty"`
	Name          string `json:"name"`
	SecondaryName string `json:"secondary_name,omitempty"`
	Description   string `json:"description,omitempty"`
}

// Group is a bold heading of the source document and owns its entries in reading order.
type Group struct {
	Name          string  `json:"name"`
	SecondaryName string  `json:"secondary_name,omitempty"`
	Description   string  `json:"description,omitempty"`
	Entries       []Entry `json:"entries"`
}

// CatalogRecord is the canonical structured shape extracted from one document.
// Group and entry order reflects document reading order and is never resorted.
type CatalogRecord struct {
	Groups []Group `json:"groups"`
}

// EntryCount returns the number of entries across all groups.
func (r *CatalogRecord) EntryCount() int {
	n := 0
	for i := range r.Groups {
		n += len(r.Groups[i].Entries)
	}
	return n
}

// AttemptReport summarizes one extraction attempt.
type AttemptReport struct {
	Number          int           `json:"number"`
	Errors          []string      `json:"errors,omitempty"`
	TransportErrors int           `json:"transport_errors,omitempty"`
	Duration        time.Duration `json:"duration"`
}

// ExtractionResult is the outcome of a structured extraction: either a valid
// record or the violation list of the final attempt.
type ExtractionResult struct {
	Record   *CatalogRecord  `json:"record,omitempty"`
	Errors   []string        `json:"errors,omitempty"`
	Attempts int             `json:"attempts"`
	History  []AttemptReport `json:"history,omitempty"`
}

// OK reports whether extraction produced a valid record.
func (r *ExtractionResult) OK() bool {
	return r != nil && r.Record != nil
}

// EntryOutcome is the submission result for one entry.
type EntryOutcome struct {
	Name     string           `json:"name"`
	Status   SubmissionStatus `json:"status"`
	RemoteID string           `json:"remote_id,omitempty"`
	Reason   string           `json:"reason,omitempty"`
}

// GroupOutcome is the submission result for one group and its entries.
// Exists marks a group skipped because the catalog already had it, as
// opposed to one skipped locally for having no entries.
type GroupOutcome struct {
	Name     string           `json:"name"`
	Status   SubmissionStatus `json:"status"`
	RemoteID string           `json:"remote_id,omitempty"`
	Reason   string           `json:"reason,omitempty"`
	Exists   bool             `json:"exists,omitempty"`
	Entries  []EntryOutcome   `json:"entries,omitempty"`
}

// FailedEntries returns the number of entries that failed under this group.
func (g *GroupOutcome) FailedEntries() int {
	n := 0
	for i := range g.Entries {
		if g.Entries[i].Status == SubmissionFailed {
			n++
		}
	}
	return n
}

// SubmissionCounts aggregates a SubmissionOutcome.
type SubmissionCounts struct {
	GroupsCreated  int `json:"groups_created"`
	GroupsSkipped  int `json:"groups_skipped"`
	GroupsFailed   int `json:"groups_failed"`
	EntriesCreated int `json:"entries_created"`
	EntriesSkipped int `json:"entries_skipped"`
	EntriesFailed  int `json:"entries_failed"`
}

// SubmissionOutcome holds per-group results in record order. Partial success
// is representable: siblings may succeed while others fail.
type SubmissionOutcome struct {
	Groups []GroupOutcome `json:"groups"`
}

// Counts tallies group and entry statuses.
func (o *SubmissionOutcome) Counts() SubmissionCounts {
	var c SubmissionCounts
	for i := range o.Groups {
		g := &o.Groups[i]
		switch g.Status {
		case SubmissionCreated:
			c.GroupsCreated++
		case SubmissionSkipped:
			c.GroupsSkipped++
		case SubmissionFailed:
			c.GroupsFailed++
		}
		for j := range g.Entries {
			switch g.Entries[j].Status {
			case SubmissionCreated:
				c.EntriesCreated++
			case SubmissionSkipped:
				c.EntriesSkipped++
			case SubmissionFailed:
				c.EntriesFailed++
			}
		}
	}
	return c
}

// HasFailures reports whether any group or entry failed.
func (o *SubmissionOutcome) HasFailures() bool {
	c := o.Counts()
	return c.GroupsFailed > 0 || c.EntriesFailed > 0
}

// AnySucceeded reports whether at least one group was created or already
// existed remotely. Groups skipped locally never count.
func (o *SubmissionOutcome) AnySucceeded() bool {
	for i := range o.Groups {
		g := &o.Groups[i]
		if g.Status == SubmissionCreated || (g.Status == SubmissionSkipped && g.Exists) {
			return true
		}
	}
	return false
}

// ProcessingRecord is the persisted fingerprint-store entry for a document identity.
type ProcessingRecord struct {
	Identity    string          `db:"identity" json:"identity"`
	Fingerprint string          `db:"fingerprint" json:"hash"`
	ProcessedAt time.Time       `db:"processed_at" json:"timestamp"`
	Success     bool            `db:"success" json:"success"`
	Stage       string          `db:"stage" json:"stage,omitempty"`
	Details     json.RawMessage `db:"details" json:"details,omitempty"`
}

// Job tracks one document through the pipeline for interactive status polling.
type Job struct {
	ID          uuid.UUID          `json:"id"`
	Identity    string             `json:"identity"`
	FileName    string             `json:"filename"`
	State       JobState           `json:"status"`
	Stage       string             `json:"stage"`
	Fingerprint string             `json:"fingerprint,omitempty"`
	Attempts    int                `json:"attempts,omitempty"`
	Record      *CatalogRecord     `json:"extracted_data,omitempty"`
	Outcome     *SubmissionOutcome `json:"submission,omitempty"`
	Error       string             `json:"error,omitempty"`
	ErrorStage  string             `json:"error_stage,omitempty"`
	CreatedAt   time.Time          `json:"uploaded_at"`
	StartedAt   *time.Time         `json:"started_at,omitempty"`
	UpdatedAt   time.Time          `json:"updated_at"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
}
