package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"epcsync/internal/service"
)

// WriteJSON encodes the batch summary as indented JSON.
func WriteJSON(w io.Writer, s *service.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	return nil
}

// WriteFile renders rows or the summary to path, choosing the format from
// the extension (.json, .csv or .xlsx). The file is written once.
func WriteFile(path string, s *service.Summary) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating report directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}

	switch filepath.Ext(path) {
	case ".csv":
		err = WriteCSV(f, RowsFromSummary(s))
	case ".xlsx":
		err = WriteXLSX(f, RowsFromSummary(s))
	default:
		err = WriteJSON(f, s)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
