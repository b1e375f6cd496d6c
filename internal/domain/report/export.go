package report

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"
)

// Export formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ContentType returns the MIME type for an export format.
func ContentType(format string) string {
	if format == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// exportRow is one CSV line. Period is "total" for the whole range, else the month label.
type exportRow struct {
	Period   string `csv:"period"`
	Category string `csv:"category"`
	Amount   string `csv:"amount"`
	Count    int    `csv:"count"`
	Percent  string `csv:"percent"`
	Currency string `csv:"currency"`
}

func exportRows(r *Report) []*exportRow {
	rows := make([]*exportRow, 0, len(r.ByCategory)+1)
	for _, ct := range r.ByCategory {
		rows = append(rows, &exportRow{
			Period:   "total",
			Category: ct.Name,
			Amount:   ct.Amount,
			Count:    ct.Count,
			Percent:  ct.Percent.StringFixed(2),
			Currency: r.Currency,
		})
	}
	for _, b := range r.Trend {
		for _, ct := range b.ByCategory {
			rows = append(rows, &exportRow{
				Period:   b.Label,
				Category: ct.Name,
				Amount:   ct.Amount,
				Count:    ct.Count,
				Percent:  ct.Percent.StringFixed(2),
				Currency: r.Currency,
			})
		}
	}
	return rows
}

// ExportCSV writes the breakdown, then any trend buckets, as one CSV table.
func ExportCSV(w io.Writer, r *Report) error {
	if err := gocsv.Marshal(exportRows(r), w); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

const (
	summarySheet = "Summary"
	trendSheet   = "Trend"
)

// ExportXLSX writes a workbook with a category sheet and, when present, a trend sheet.
func ExportXLSX(w io.Writer, r *Report) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := []any{"Category", "Amount", "Count", "Percent"}
	if err := f.SetSheetRow(summarySheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	row := 2
	for _, ct := range r.ByCategory {
		if err := setRow(f, summarySheet, row, ct.Name, ct.Amount, ct.Count, ct.Percent.StringFixed(2)); err != nil {
			return err
		}
		row++
	}
	if err := setRow(f, summarySheet, row, "Total", r.Total, r.Count, "100.00"); err != nil {
		return err
	}
	if err := setRow(f, summarySheet, row+1, "Range", r.Range.String(), "", r.Currency); err != nil {
		return err
	}

	if len(r.Trend) > 0 {
		if _, err := f.NewSheet(trendSheet); err != nil {
			return fmt.Errorf("failed to add trend sheet: %w", err)
		}
		trendHeader := []any{"Month", "Total", "Count"}
		if err := f.SetSheetRow(trendSheet, "A1", &trendHeader); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		for i, b := range r.Trend {
			if err := setRow(f, trendSheet, i+2, b.Label, b.Total, b.Count); err != nil {
				return err
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("failed to address row %d: %w", row, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}
