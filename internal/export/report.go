package export

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"
)

const (
	sheetPapers  = "Papers"
	sheetSummary = "Summary"
)

var reportHeaders = []string{"Paper ID", "Title", "Author", "Category", "Status", "Version", "Submitted", "Reviews", "Mean overall"}

// SubmissionsReport writes every paper to a Papers sheet and per-status
// counts to a Summary sheet.
func SubmissionsReport(rows []ReportRow) (*Result, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetPapers); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for i, h := range reportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetPapers, cell, h); err != nil {
			return nil, err
		}
	}

	counts := make(map[string]int)
	for r, row := range rows {
		counts[row.Status]++
		values := []any{
			row.PaperID,
			row.Title,
			row.AuthorName,
			row.Category,
			row.Status,
			row.Version,
			row.SubmissionDate.Format("2006-01-02"),
			row.ReviewCount,
			row.MeanOverall,
		}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheetPapers, cell, v); err != nil {
				return nil, err
			}
		}
	}

	if _, err := f.NewSheet(sheetSummary); err != nil {
		return nil, fmt.Errorf("create summary sheet: %w", err)
	}
	if err := f.SetCellValue(sheetSummary, "A1", "Status"); err != nil {
		return nil, err
	}
	if err := f.SetCellValue(sheetSummary, "B1", "Papers"); err != nil {
		return nil, err
	}
	statuses := make([]string, 0, len(counts))
	for status := range counts {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	for i, status := range statuses {
		if err := f.SetCellValue(sheetSummary, fmt.Sprintf("A%d", i+2), status); err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheetSummary, fmt.Sprintf("B%d", i+2), counts[status]); err != nil {
			return nil, err
		}
	}
	totalRow := len(statuses) + 2
	if err := f.SetCellValue(sheetSummary, fmt.Sprintf("A%d", totalRow), "total"); err != nil {
		return nil, err
	}
	if err := f.SetCellValue(sheetSummary, fmt.Sprintf("B%d", totalRow), len(rows)); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}
	return &Result{
		Data:     buf.Bytes(),
		Filename: "submissions.xlsx",
		MimeType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	}, nil
}
