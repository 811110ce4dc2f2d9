// =============================================================================
// Freight Survey Ingest - Spreadsheet Parser
// =============================================================================
//
// This module reads the XLSX reference workbooks (lookup tables, municipal
// codetables with embedded sections, the NUTS region mapping). Workbooks are
// opened from bytes the caller already loaded.
//
// Two row shapes are offered:
//   - Records: first non-empty row is the header, each following row becomes
//     a column -> value map (simple key/value sheets)
//   - Rows:    raw array-of-arrays, for sheets holding several embedded
//     tables that are delimited by header marker rows
//
// =============================================================================

package xlsxparser

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ginjaninja78/freight-survey-ingest/internal/types"
	"github.com/xuri/excelize/v2"
)

// ErrUnreadable is returned when the bytes are not a readable workbook.
var ErrUnreadable = errors.New("unreadable workbook")

// ErrNoSheet is returned when a requested sheet does not exist.
var ErrNoSheet = errors.New("sheet not found")

// =============================================================================
// WORKBOOK
// =============================================================================

// Workbook is an opened spreadsheet.
type Workbook struct {
	file   *excelize.File
	sheets []string
}

// Open reads a workbook from bytes.
func Open(data []byte) (*Workbook, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrUnreadable)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	return &Workbook{
		file:   f,
		sheets: f.GetSheetList(),
	}, nil
}

// Close releases the workbook.
func (w *Workbook) Close() error {
	return w.file.Close()
}

// SheetNames returns the sheet names in workbook order.
func (w *Workbook) SheetNames() []string {
	return append([]string(nil), w.sheets...)
}

// Sheet returns the actual name of the sheet matching name
// case-insensitively, ignoring surrounding whitespace.
func (w *Workbook) Sheet(name string) (string, bool) {
	want := strings.ToLower(strings.TrimSpace(name))
	for _, s := range w.sheets {
		if strings.ToLower(strings.TrimSpace(s)) == want {
			return s, true
		}
	}
	return "", false
}

// HasSheet reports whether a sheet matching name exists.
func (w *Workbook) HasSheet(name string) bool {
	_, ok := w.Sheet(name)
	return ok
}

// FirstSheet returns the name of the first sheet, or "" for an empty
// workbook.
func (w *Workbook) FirstSheet() string {
	if len(w.sheets) == 0 {
		return ""
	}
	return w.sheets[0]
}

// =============================================================================
// ROW ACCESS
// =============================================================================

// Rows returns the sheet as an array of arrays. Cell values are trimmed;
// rows keep their natural (possibly ragged) length.
func (w *Workbook) Rows(sheet string) ([][]string, error) {
	name, ok := w.Sheet(sheet)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSheet, sheet)
	}

	rows, err := w.file.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of %s: %w", name, err)
	}

	for _, row := range rows {
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}
	}
	return rows, nil
}

// Records returns the sheet as header-keyed rows. The first non-empty row
// is the header; empty rows are skipped.
func (w *Workbook) Records(sheet string) ([]string, []types.RawRow, error) {
	rows, err := w.Rows(sheet)
	if err != nil {
		return nil, nil, err
	}

	headerIdx := -1
	for i, row := range rows {
		if !IsRowEmpty(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, nil, nil
	}

	headers := rows[headerIdx]
	records := make([]types.RawRow, 0, len(rows)-headerIdx-1)
	for _, row := range rows[headerIdx+1:] {
		if IsRowEmpty(row) {
			continue
		}
		rec := make(types.RawRow, len(headers))
		for i, h := range headers {
			if h == "" {
				continue
			}
			rec[h] = Cell(row, i)
		}
		records = append(records, rec)
	}

	return headers, records, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// Cell returns the trimmed value at index, or "" past the end of the row.
func Cell(row []string, index int) string {
	if index >= 0 && index < len(row) {
		return strings.TrimSpace(row[index])
	}
	return ""
}

// IsRowEmpty checks if a row contains only empty cells.
func IsRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
