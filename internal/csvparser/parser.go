// =============================================================================
// Freight Survey Ingest - Delimited Text Parser
// =============================================================================
//
// This module parses the semicolon-delimited exports delivered by CBS
// (shipments, sub-trips, municipal and logistics-class code tables).
//
// FEATURES:
//   - Header row cleanup (whitespace, stray quote characters, BOM)
//   - Rows as column -> raw value maps (types.RawRow)
//   - Per-row diagnostics instead of aborting: a malformed row is reported
//     in the side list and parsing continues with the next row
//   - Streaming access for callers that only need the header and first row
//
// Input is always bytes already loaded by the caller; this package does not
// open files.
//
// =============================================================================

package csvparser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ginjaninja78/freight-survey-ingest/internal/types"
	"github.com/ginjaninja78/freight-survey-ingest/internal/validation"
)

// DefaultDelimiter is the CBS export delimiter.
const DefaultDelimiter = ';'

// ErrNoHeader is returned when the input has no header row.
var ErrNoHeader = errors.New("no header row")

// =============================================================================
// CSV DATA STRUCTURE
// =============================================================================

// CSVData represents a parsed delimited file.
type CSVData struct {
	// Headers contains the cleaned column names in file order.
	Headers []string

	// Rows contains the non-empty data rows.
	Rows []types.RawRow

	// Report holds per-row parse diagnostics.
	Report validation.Report

	// SourceFile is the name the data was delivered under.
	SourceFile string
}

// RowCount returns the number of data rows.
func (d *CSVData) RowCount() int {
	return len(d.Rows)
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse decodes delimited text into rows.
//
// PARAMETERS:
//   - data: The raw file content.
//   - name: The file name, used in diagnostics.
//   - delimiter: The field delimiter (0 selects DefaultDelimiter).
//
// RETURNS:
//   - The parsed data. Malformed rows are listed in CSVData.Report.
//   - ErrNoHeader if the input contains no header row.
func Parse(data []byte, name string, delimiter rune) (*CSVData, error) {
	parser, err := NewStreamingParser(bytes.NewReader(data), name, delimiter)
	if err != nil {
		return nil, err
	}

	result := &CSVData{
		Headers:    parser.Headers(),
		Rows:       make([]types.RawRow, 0, bytes.Count(data, []byte{'\n'})),
		SourceFile: name,
	}

	for parser.Next() {
		result.Rows = append(result.Rows, parser.Row())
	}
	result.Report = parser.Report()

	if err := parser.Err(); err != nil {
		result.Report.Fail(name, parser.RowNumber(), "", "reading stopped: %v", err)
	}

	return result, nil
}

// Peek returns the headers and the first data row (nil if there is none)
// without decoding the remainder of the input.
func Peek(data []byte, delimiter rune) ([]string, types.RawRow, error) {
	parser, err := NewStreamingParser(bytes.NewReader(data), "", delimiter)
	if err != nil {
		return nil, nil, err
	}
	if parser.Next() {
		return parser.Headers(), parser.Row(), nil
	}
	return parser.Headers(), nil, nil
}

// configureReader applies the settings CBS exports need.
func configureReader(reader *csv.Reader, delimiter rune) {
	if delimiter == 0 {
		delimiter = DefaultDelimiter
	}
	reader.Comma = delimiter

	// Rows with a deviating field count are reported, not rejected.
	reader.FieldsPerRecord = -1

	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = false
}

// cleanHeaders trims whitespace and stray quote characters from headers.
// Empty headers are named Column_N.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))

	for i, header := range headers {
		if i == 0 {
			header = strings.TrimPrefix(header, "\ufeff")
		}
		header = strings.TrimSpace(header)
		header = strings.Trim(header, `"'`)
		header = strings.TrimSpace(header)

		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}

		cleaned[i] = header
	}

	return cleaned
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// =============================================================================
// STREAMING PARSER
// =============================================================================

// StreamingParser decodes one row at a time.
//
// USAGE:
//
//	parser, err := NewStreamingParser(r, name, ';')
//	if err != nil {
//		return err
//	}
//	for parser.Next() {
//		row := parser.Row()
//	}
//	report := parser.Report()
type StreamingParser struct {
	reader     *csv.Reader
	name       string
	headers    []string
	currentRow types.RawRow
	rowNumber  int
	report     validation.Report
	err        error
}

// NewStreamingParser reads the header row from r.
func NewStreamingParser(r io.Reader, name string, delimiter rune) (*StreamingParser, error) {
	reader := csv.NewReader(r)
	configureReader(reader, delimiter)

	parser := &StreamingParser{
		reader: reader,
		name:   name,
	}

	if err := parser.readHeaders(); err != nil {
		return nil, err
	}

	return parser, nil
}

// readHeaders reads the first non-empty row as the header row.
func (p *StreamingParser) readHeaders() error {
	for {
		row, err := p.reader.Read()
		if err == io.EOF {
			return ErrNoHeader
		}
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}
		if isRowEmpty(row) {
			continue
		}
		p.headers = cleanHeaders(row)
		return nil
	}
}

// Next advances to the next non-empty row. Malformed rows are recorded in
// the report and skipped. Returns false at end of input or on an I/O error.
func (p *StreamingParser) Next() bool {
	for p.err == nil {
		row, err := p.reader.Read()
		if err == io.EOF {
			return false
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				p.rowNumber++
				p.report.Fail(p.name, p.rowNumber, "", "malformed row: %v", parseErr.Err)
				continue
			}
			p.err = err
			return false
		}

		if isRowEmpty(row) {
			continue
		}
		p.rowNumber++

		if len(row) != len(p.headers) {
			p.report.Warn(p.name, p.rowNumber, "", "expected %d fields, got %d", len(p.headers), len(row))
		}

		p.currentRow = make(types.RawRow, len(p.headers))
		for i, header := range p.headers {
			if i < len(row) {
				p.currentRow[header] = strings.TrimSpace(row[i])
			} else {
				p.currentRow[header] = ""
			}
		}
		return true
	}
	return false
}

// Row returns the current row.
func (p *StreamingParser) Row() types.RawRow {
	return p.currentRow
}

// Headers returns the cleaned headers.
func (p *StreamingParser) Headers() []string {
	return p.headers
}

// RowNumber returns the 1-based number of the last data row read.
func (p *StreamingParser) RowNumber() int {
	return p.rowNumber
}

// Report returns the diagnostics collected so far.
func (p *StreamingParser) Report() validation.Report {
	return p.report
}

// Err returns the I/O error that stopped parsing, if any.
func (p *StreamingParser) Err() error {
	return p.err
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// HasColumn reports whether headers contains column.
func HasColumn(headers []string, column string) bool {
	for _, h := range headers {
		if h == column {
			return true
		}
	}
	return false
}
