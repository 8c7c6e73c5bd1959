package export

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// XLSXExporter renders datasets into a single-sheet workbook.
type XLSXExporter struct{}

// NewXLSXExporter builds an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Render writes the dataset to a workbook whose first sheet is named sheet.
func (e *XLSXExporter) Render(data Dataset, sheet string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one header")
	}
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	if sheet == "" {
		sheet = defaultSheet
	} else if err := f.SetSheetName(defaultSheet, sheet); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	if err := writeRow(f, sheet, 1, data.Headers); err != nil {
		return nil, err
	}
	last, _ := excelize.CoordinatesToCellName(len(data.Headers), 1)
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}
	for i := range data.Rows {
		if err := writeRow(f, sheet, i+2, data.Record(i)); err != nil {
			return nil, err
		}
	}
	for i, header := range data.Headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		width := float64(len(header) + 4)
		if width < 12 {
			width = 12
		}
		_ = f.SetColWidth(sheet, col, col, width)
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &out); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

// Sheet is the first worksheet of a workbook read as a header row plus records.
// Header names are trimmed and lower-cased; every record has len(Headers) cells.
type Sheet struct {
	Headers []string
	Records [][]string
}

// Column returns the index of header, or -1.
func (s *Sheet) Column(header string) int {
	for i, h := range s.Headers {
		if h == header {
			return i
		}
	}
	return -1
}

// Missing returns the required headers absent from the sheet, in the order given.
func (s *Sheet) Missing(required []string) []string {
	var missing []string
	for _, h := range required {
		if s.Column(h) < 0 {
			missing = append(missing, h)
		}
	}
	return missing
}

// ReadSheet parses the first worksheet of the workbook in r. Fully blank rows are
// kept as empty records so record i is always spreadsheet row i+2.
func ReadSheet(r io.Reader) (*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close() //nolint:errcheck

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %s is empty", sheets[0])
	}

	out := &Sheet{Headers: make([]string, len(rows[0]))}
	for i, h := range rows[0] {
		out.Headers[i] = strings.ToLower(strings.TrimSpace(h))
	}
	for _, row := range rows[1:] {
		record := make([]string, len(out.Headers))
		for i := range record {
			if i < len(row) {
				record[i] = strings.TrimSpace(row[i])
			}
		}
		out.Records = append(out.Records, record)
	}
	return out, nil
}

// Blank reports whether every cell of record is empty.
func Blank(record []string) bool {
	for _, v := range record {
		if v != "" {
			return false
		}
	}
	return true
}
