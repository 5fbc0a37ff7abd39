// Package export renders per-record run summaries (retries and failures) and
// stores them where an operator can download them.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/target/gradesync/config"
	"github.com/target/gradesync/internal/domain/model"
)

// Renderer turns a run summary into one file format.
type Renderer interface {
	Format() config.ExportFormat
	ContentType() string
	Render(w io.Writer, summary model.RunSummary) error
}

// RendererFor returns the renderer of a sanitized export format.
func RendererFor(format config.ExportFormat) (Renderer, error) {
	switch format {
	case config.ExportCSV:
		return CSVRenderer{}, nil
	case config.ExportXLSX:
		return XLSXRenderer{}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

var summaryHeader = []string{"kind", "user_id", "attempts", "average", "error"}

// summaryRows flattens failures then retries into rows matching summaryHeader.
func summaryRows(summary model.RunSummary) [][]string {
	rows := make([][]string, 0, len(summary.Failures)+len(summary.Retries))
	for _, f := range summary.Failures {
		rows = append(rows, []string{
			"failure",
			f.UserID,
			"",
			strconv.FormatFloat(f.Average, 'f', 2, 64),
			f.Error,
		})
	}
	for _, r := range summary.Retries {
		rows = append(rows, []string{"retry", r.UserID, strconv.Itoa(r.Attempts), "", ""})
	}
	return rows
}

// CSVRenderer writes one header row followed by failures, then retries.
type CSVRenderer struct{}

func (CSVRenderer) Format() config.ExportFormat { return config.ExportCSV }
func (CSVRenderer) ContentType() string         { return "text/csv" }

func (CSVRenderer) Render(w io.Writer, summary model.RunSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(summaryHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := cw.WriteAll(summaryRows(summary)); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return nil
}

const (
	failuresSheet = "Failures"
	retriesSheet  = "Retries"
)

// XLSXRenderer writes a workbook with a Failures sheet and a Retries sheet.
type XLSXRenderer struct{}

func (XLSXRenderer) Format() config.ExportFormat { return config.ExportXLSX }
func (XLSXRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (XLSXRenderer) Render(w io.Writer, summary model.RunSummary) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// The default sheet becomes the failures sheet.
	if err := f.SetSheetName(f.GetSheetName(0), failuresSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(retriesSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	failures := [][]any{{"user_id", "average", "error"}}
	for _, r := range summary.Failures {
		failures = append(failures, []any{r.UserID, r.Average, r.Error})
	}
	retries := [][]any{{"user_id", "attempts"}}
	for _, r := range summary.Retries {
		retries = append(retries, []any{r.UserID, r.Attempts})
	}
	if err := writeSheet(f, failuresSheet, failures); err != nil {
		return err
	}
	if err := writeSheet(f, retriesSheet, retries); err != nil {
		return err
	}
	_ = f.SetColWidth(failuresSheet, "A", "B", 14)
	_ = f.SetColWidth(failuresSheet, "C", "C", 60)
	_ = f.SetColWidth(retriesSheet, "A", "B", 14)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err = f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
