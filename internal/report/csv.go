package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// columns defines the CSV header row.
var columns = []string{
	"Document Name",
	"Identity",
	"Status",
	"Stage",
	"Attempts",
	"Groups",
	"Entries",
	"Groups Created",
	"Groups Skipped",
	"Groups Failed",
	"Entries Created",
	"Entries Skipped",
	"Entries Failed",
	"Duration (s)",
	"Error",
}

// CSVWriter wraps csv.Writer for exporting report rows.
type CSVWriter struct {
	csv *csv.Writer
}

// NewCSVWriter creates a CSVWriter that writes to w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{csv: csv.NewWriter(w)}
}

// WriteHeader writes the header row.
func (w *CSVWriter) WriteHeader() error {
	return w.csv.Write(columns)
}

// WriteRows converts rows to CSV records and writes them.
func (w *CSVWriter) WriteRows(rows []Row) error {
	for i := range rows {
		if err := w.csv.Write(rowToRecord(&rows[i])); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *CSVWriter) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *CSVWriter) Error() error {
	return w.csv.Error()
}

// WriteCSV writes BOM, header and rows to w in one go.
func WriteCSV(w io.Writer, rows []Row) error {
	if _, err := w.Write(BOM); err != nil {
		return err
	}
	cw := NewCSVWriter(w)
	if err := cw.WriteHeader(); err != nil {
		return err
	}
	if err := cw.WriteRows(rows); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func rowToRecord(r *Row) []string {
	return []string{
		r.FileName,
		r.Identity,
		string(r.Status),
		r.Stage,
		strconv.Itoa(r.Attempts),
		strconv.Itoa(r.Groups),
		strconv.Itoa(r.Entries),
		strconv.Itoa(r.Counts.GroupsCreated),
		strconv.Itoa(r.Counts.GroupsSkipped),
		strconv.Itoa(r.Counts.GroupsFailed),
		strconv.Itoa(r.Counts.EntriesCreated),
		strconv.Itoa(r.Counts.EntriesSkipped),
		strconv.Itoa(r.Counts.EntriesFailed),
		strconv.FormatFloat(r.Duration.Seconds(), 'f', 2, 64),
		r.Error,
	}
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename replaces characters outside [A-Za-z0-9_-] with _,
// collapses runs of underscores, and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns {sanitized base}_{YYYY-MM-DD}.{ext}.
func BuildFilename(base, ext string) string {
	sanitized := SanitizeFilename(base)
	if sanitized == "" {
		sanitized = "epcsync_report"
	}
	return fmt.Sprintf("%s_%s.%s", sanitized, time.Now().Format("2006-01-02"), ext)
}
