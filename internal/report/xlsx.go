package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"epcsync/internal/domain"
)

const (
	documentsSheet = "Documents"
	groupsSheet    = "Groups"
)

var groupColumns = []string{
	"Document Name",
	"Group #",
	"Group",
	"Secondary Name",
	"Entries",
	"Submission",
	"Remote ID",
	"Entries Created",
	"Entries Failed",
	"Reason",
}

// WriteXLSX writes a workbook with a Documents sheet (one row per document)
// and a Groups sheet (one row per extracted group, in document order).
func WriteXLSX(w io.Writer, rows []Row) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), documentsSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	if _, err := f.NewSheet(groupsSheet); err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	if err := writeSheetRow(f, documentsSheet, 1, stringsToCells(columns)); err != nil {
		return err
	}
	for i := range rows {
		r := &rows[i]
		cells := []interface{}{
			r.FileName, r.Identity, string(r.Status), r.Stage, r.Attempts, r.Groups, r.Entries,
			r.Counts.GroupsCreated, r.Counts.GroupsSkipped, r.Counts.GroupsFailed,
			r.Counts.EntriesCreated, r.Counts.EntriesSkipped, r.Counts.EntriesFailed,
			r.Duration.Seconds(), r.Error,
		}
		if err := writeSheetRow(f, documentsSheet, i+2, cells); err != nil {
			return err
		}
	}

	if err := writeSheetRow(f, groupsSheet, 1, stringsToCells(groupColumns)); err != nil {
		return err
	}
	line := 2
	for i := range rows {
		r := &rows[i]
		if r.Record == nil {
			continue
		}
		for gi, g := range r.Record.Groups {
			cells := []interface{}{r.FileName, gi + 1, g.Name, g.SecondaryName, len(g.Entries)}
			if r.Outcome != nil && gi < len(r.Outcome.Groups) {
				out := &r.Outcome.Groups[gi]
				created := 0
				for _, e := range out.Entries {
					if e.Status == domain.SubmissionCreated {
						created++
					}
				}
				cells = append(cells, string(out.Status), out.RemoteID, created, out.FailedEntries(), out.Reason)
			}
			if err := writeSheetRow(f, groupsSheet, line, cells); err != nil {
				return err
			}
			line++
		}
	}

	for _, sheet := range []string{documentsSheet, groupsSheet} {
		if err := f.SetRowStyle(sheet, 1, 1, header); err != nil {
			return fmt.Errorf("styling %s header: %w", sheet, err)
		}
		if err := f.SetColWidth(sheet, "A", "C", 28); err != nil {
			return fmt.Errorf("sizing %s columns: %w", sheet, err)
		}
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeSheetRow(f *excelize.File, sheet string, row int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("writing %s row %d: %w", sheet, row, err)
	}
	return nil
}

func stringsToCells(s []string) []interface{} {
	out := make([]interface{}, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
