package lookup

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/freight-survey-ingest/internal/types"
	"github.com/ginjaninja78/freight-survey-ingest/internal/xlsxparser"
)

// Columns of the lookup sheets and code tables.
const (
	colCode        = "code"
	colDescription = "omschrijving"
)

// workbookSheets maps the sheets of the full lookup workbook to categories.
var workbookSheets = []struct {
	sheet    string
	category Category
}{
	{"VoertuigsoortRDW", CategoryVehicleType},
	{"Brandstofsoort", CategoryFuel},
	{"LaadvermogenCombinatie", CategoryPayload},
	{"MaxToegestaanGewicht", CategoryMaxWeight},
	{"LeeggewichtCombinatie", CategoryUnladenWeight},
	{"LogistiekeKlasse", CategoryLogistics},
	{"LegeRit", CategoryEmptyTrip},
	{"NUTS3", CategoryRegion},
	{"Gemeentecode", CategoryMunicipal},
}

// embeddedSections maps lowercase section names of the codetable workbook
// to categories.
var embeddedSections = map[string]Category{
	"voertuigsoortrdw":                    CategoryVehicleType,
	"brandstofsoortklasse":                CategoryFuel,
	"laadvermogencombinatie_klasse":       CategoryPayload,
	"leeggewichtcombinatie_klasse":        CategoryUnladenWeight,
	"maxtoegestaangewicht_klasse":         CategoryMaxWeight,
	"stadslogistieke_klasse_code":         CategoryLogistics,
	"stadslogistieke_klasse_legerit_code": CategoryEmptyTrip,
}

// skippedSection is a raw data column listed among the codetables.
const skippedSection = "euronormklasse"

// =============================================================================
// WORKBOOK LOADERS
// =============================================================================

// LoadFullWorkbook replaces every category from the full lookup workbook.
// A category whose sheet is missing is replaced by an empty table.
func (r *Registry) LoadFullWorkbook(wb *xlsxparser.Workbook) error {
	loaded := make(map[Category][]types.LookupEntry, len(workbookSheets))

	for _, ws := range workbookSheets {
		if !wb.HasSheet(ws.sheet) {
			loaded[ws.category] = nil
			continue
		}
		_, records, err := wb.Records(ws.sheet)
		if err != nil {
			return fmt.Errorf("load sheet %s: %w", ws.sheet, err)
		}
		loaded[ws.category] = entriesFrom(records, colCode, colDescription)
	}

	for category, entries := range loaded {
		r.Set(category, entries)
	}
	return nil
}

// LoadEmbeddedCodetables scans every sheet for embedded code tables and
// replaces the categories it finds. A section starts at a row whose second
// and third cells read "code" and "omschrijving"; its first cell names the
// section. Data rows have an empty first cell; the section ends at the first
// row without a code. Sections with the same category across sheets are
// concatenated.
//
// RETURNS:
//   - The categories that were replaced, in workbook order.
func (r *Registry) LoadEmbeddedCodetables(wb *xlsxparser.Workbook) ([]Category, error) {
	found := make(map[Category][]types.LookupEntry)

	for _, sheet := range wb.SheetNames() {
		rows, err := wb.Rows(sheet)
		if err != nil {
			return nil, fmt.Errorf("scan sheet %s: %w", sheet, err)
		}
		scanSections(rows, found)
	}

	var replaced []Category
	for _, c := range Categories {
		entries, ok := found[c]
		if !ok {
			continue
		}
		r.Set(c, entries)
		replaced = append(replaced, c)
	}
	return replaced, nil
}

func scanSections(rows [][]string, found map[Category][]types.LookupEntry) {
	var (
		current Category
		active  bool
		entries []types.LookupEntry
	)

	flush := func() {
		if active && len(entries) > 0 {
			found[current] = append(found[current], entries...)
		}
		active = false
		entries = nil
	}

	for _, row := range rows {
		a := xlsxparser.Cell(row, 0)
		b := xlsxparser.Cell(row, 1)
		c := xlsxparser.Cell(row, 2)

		if strings.EqualFold(b, colCode) && strings.EqualFold(c, colDescription) {
			flush()
			name := strings.ToLower(a)
			if name == skippedSection {
				continue
			}
			current, active = embeddedSections[name]
			continue
		}

		if !active {
			continue
		}

		switch {
		case a == "" && b != "":
			entries = append(entries, types.LookupEntry{Code: b, Description: capitalize(c)})
		case b == "":
			flush()
		}
	}
	flush()
}

// =============================================================================
// CODE TABLE LOADERS
// =============================================================================

// LoadMunicipalCodeTable replaces the municipal category from the rows of
// the municipal code CSV. Codes are padded to four digits.
func (r *Registry) LoadMunicipalCodeTable(rows []types.RawRow) int {
	entries := entriesFrom(rows, types.ColMunicipalCode, types.ColMunicipalName)
	r.Set(CategoryMunicipal, entries)
	return len(entries)
}

// LoadLogisticsClassCodeTable replaces the logistics-class category from
// the rows of the logistics class CSV.
func (r *Registry) LoadLogisticsClassCodeTable(rows []types.RawRow) int {
	codeCol := types.ColLogisticsClass
	if len(rows) > 0 {
		if _, ok := rows[0].Get(codeCol); !ok {
			codeCol = colCode
		}
	}
	entries := entriesFrom(rows, codeCol, types.ColLogisticsName)
	r.Set(CategoryLogistics, entries)
	return len(entries)
}

func entriesFrom(rows []types.RawRow, codeCol, descCol string) []types.LookupEntry {
	entries := make([]types.LookupEntry, 0, len(rows))
	for _, row := range rows {
		code := row.Value(codeCol)
		if code == "" {
			continue
		}
		entries = append(entries, types.LookupEntry{Code: code, Description: row.Value(descCol)})
	}
	return entries
}

// =============================================================================
// REGION MAPPING
// =============================================================================

// Columns of the region mapping workbook.
const (
	ColRegionMunicipalCode = "Gemeentecode"
	ColRegionMunicipalName = "Gemeentenaam"
	ColRegionNUTS1         = "NUTS1"
	ColRegionNUTS2         = "NUTS2"
	ColRegionNUTS3         = "NUTS3"
	ColRegionUrbanization  = "DEGURBA"
)

// ParseRegionMappings reads the region mapping from the first sheet. The
// header is the first row carrying the municipal-code column; a title row
// above it is skipped.
func ParseRegionMappings(wb *xlsxparser.Workbook) ([]types.RegionMapping, error) {
	sheet := wb.FirstSheet()
	if sheet == "" {
		return nil, xlsxparser.ErrNoSheet
	}

	rows, err := wb.Rows(sheet)
	if err != nil {
		return nil, err
	}

	headerIdx := -1
	for i, row := range rows {
		if indexOf(row, ColRegionMunicipalCode) >= 0 {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, fmt.Errorf("%s: no %s column", sheet, ColRegionMunicipalCode)
	}

	header := rows[headerIdx]
	col := func(row []string, name string) string {
		return xlsxparser.Cell(row, indexOf(header, name))
	}

	mappings := make([]types.RegionMapping, 0, len(rows)-headerIdx-1)
	for _, row := range rows[headerIdx+1:] {
		code := col(row, ColRegionMunicipalCode)
		if code == "" {
			continue
		}
		mappings = append(mappings, types.RegionMapping{
			MunicipalCode: PadMunicipalCode(code),
			MunicipalName: col(row, ColRegionMunicipalName),
			NUTS1:         col(row, ColRegionNUTS1),
			NUTS2:         col(row, ColRegionNUTS2),
			NUTS3:         col(row, ColRegionNUTS3),
			Urbanization:  col(row, ColRegionUrbanization),
		})
	}
	return mappings, nil
}

func indexOf(row []string, name string) int {
	for i, cell := range row {
		if strings.EqualFold(strings.TrimSpace(cell), name) {
			return i
		}
	}
	return -1
}
