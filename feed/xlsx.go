package feed

import (
	"context"
	"fmt"
	"io"

	"github.com/warp/report-engine/generic"
	"github.com/xuri/excelize/v2"
)

// =============================================================================
// XLSX SOURCES - Excel workbooks
// =============================================================================

// XLSXWorkReports reads the work-report log from a workbook on disk.
// An empty Sheet selects the first sheet.
type XLSXWorkReports struct {
	Path  string
	Sheet string
}

func (s *XLSXWorkReports) FetchWorkReports(_ context.Context) ([]generic.WorkReportRow, error) {
	f, err := excelize.OpenFile(s.Path)
	if err != nil {
		return nil, &generic.FeedError{Feed: "work_report", Err: err}
	}
	defer f.Close()

	records, err := sheetRows(f, s.Sheet)
	if err != nil {
		return nil, &generic.FeedError{Feed: "work_report", Err: err}
	}
	return DecodeWorkReports(records)
}

// XLSXRoster reads the roster from a workbook on disk.
type XLSXRoster struct {
	Path  string
	Sheet string
}

func (s *XLSXRoster) FetchRoster(_ context.Context) ([]generic.RosterRow, error) {
	f, err := excelize.OpenFile(s.Path)
	if err != nil {
		return nil, &generic.FeedError{Feed: "roster", Err: err}
	}
	defer f.Close()

	records, err := sheetRows(f, s.Sheet)
	if err != nil {
		return nil, &generic.FeedError{Feed: "roster", Err: err}
	}
	return DecodeRoster(records)
}

// ReadXLSX reads the rows of one sheet from an uploaded workbook.
func ReadXLSX(r io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return sheetRows(f, sheet)
}

// WriteXLSX writes records to a single-sheet workbook.
func WriteXLSX(w io.Writer, sheet string, records [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheet == "" {
		sheet = "Sheet1"
	}
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return err
		}
	}
	for i, rec := range records {
		axis, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := make([]interface{}, len(rec))
		for j, v := range rec {
			row[j] = v
		}
		if err := f.SetSheetRow(sheet, axis, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	_, err := f.WriteTo(w)
	return err
}

func sheetRows(f *excelize.File, sheet string) ([][]string, error) {
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return rows, nil
}
