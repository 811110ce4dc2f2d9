// =============================================================================
// Freight Survey Ingest - File Classifier
// =============================================================================
//
// This module assigns a semantic role to every uploaded file. It looks at
// the extension first and, for delimited text and workbooks, at column
// signatures or sheet names. Classification has no side effects; the
// converter decides what to do with each role.
//
// DELIMITED TEXT (fixed priority):
//   1. sub-trip count column        -> sub-trip-data
//   2. shipment count column        -> shipment-data
//   3. municipal name column        -> municipal-code-table
//   4. logistics class column       -> logistics-class-code-table
//   5. zone + PC6 columns           -> zone-assignment-metadata
//   6. anything else                -> unknown (warning)
//
// WORKBOOKS:
//   1. vehicle-type and fuel-type sheets           -> reference-lookup-workbook
//   2. shipments or sub-trips sheet                -> municipal-codetable-workbook
//   3. header has municipal code and NUTS1         -> region-mapping-workbook
//   4. anything else                               -> unknown
//
// =============================================================================

package classifier

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ginjaninja78/freight-survey-ingest/internal/csvparser"
	"github.com/ginjaninja78/freight-survey-ingest/internal/types"
	"github.com/ginjaninja78/freight-survey-ingest/internal/xlsxparser"
)

// =============================================================================
// ROLES AND STATUS
// =============================================================================

// Role is the semantic role of an uploaded file.
type Role string

const (
	RoleShipmentData               Role = "shipment-data"
	RoleSubTripData                Role = "sub-trip-data"
	RoleMunicipalCodeTable         Role = "municipal-code-table"
	RoleLogisticsClassCodeTable    Role = "logistics-class-code-table"
	RoleReferenceLookupWorkbook    Role = "reference-lookup-workbook"
	RoleMunicipalCodetableWorkbook Role = "municipal-codetable-workbook"
	RoleRegionMappingWorkbook      Role = "region-mapping-workbook"
	RoleZoneAssignment             Role = "zone-assignment-metadata"
	RoleHeroImage                  Role = "hero-image"
	RoleMetadataDocument           Role = "unrecognized-metadata-document"
	RoleUnknown                    Role = "unknown"
)

// IsData reports whether files of this role produce records.
func (r Role) IsData() bool {
	return r == RoleShipmentData || r == RoleSubTripData
}

// Status is the user-facing verdict for a file.
type Status string

const (
	StatusValid   Status = "valid"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// Detection is the classification result for one file.
type Detection struct {
	Name    string
	Role    Role
	Status  Status
	Message string

	// Year is the survey year of a data file, taken from its first row.
	Year int
}

// Sheet names of the reference workbooks.
const (
	SheetVehicleType = "VoertuigsoortRDW"
	SheetFuelType    = "Brandstofsoort"
	SheetShipments   = "Zendingen"
	SheetSubTrips    = "Deelritten"
)

// Column markers of the region mapping workbook.
const (
	ColRegionMunicipalCode = "Gemeentecode"
	ColRegionNUTS1         = "NUTS1"
)

var (
	imageExtensions    = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".webp": true}
	documentExtensions = map[string]bool{".docx": true, ".doc": true, ".pdf": true, ".odt": true}
	workbookExtensions = map[string]bool{".xlsx": true, ".xlsm": true, ".xls": true}
)

// =============================================================================
// CLASSIFICATION
// =============================================================================

// Classify determines the role of a file from its name and content.
//
// PARAMETERS:
//   - name: The file name; its extension selects the inspection strategy.
//   - content: The raw bytes. Unused for images and documents.
//   - delimiter: The delimiter of text files (0 selects ';').
func Classify(name string, content []byte, delimiter rune) Detection {
	ext := strings.ToLower(filepath.Ext(name))
	det := Detection{Name: name}

	switch {
	case imageExtensions[ext]:
		return det.with(RoleHeroImage, StatusValid, "image")
	case documentExtensions[ext]:
		return det.with(RoleMetadataDocument, StatusValid, "metadata document")
	case ext == ".csv":
		return classifyDelimited(det, content, delimiter)
	case workbookExtensions[ext]:
		return classifyWorkbook(det, content)
	}

	return det.with(RoleUnknown, StatusError, fmt.Sprintf("unsupported file type %q", ext))
}

func (d Detection) with(role Role, status Status, msg string) Detection {
	d.Role = role
	d.Status = status
	d.Message = msg
	return d
}

// classifyDelimited tests discriminating columns in fixed priority order.
func classifyDelimited(det Detection, content []byte, delimiter rune) Detection {
	headers, first, err := csvparser.Peek(content, delimiter)
	if err != nil {
		return det.with(RoleUnknown, StatusError, fmt.Sprintf("cannot parse: %v", err))
	}

	has := func(col string) bool { return csvparser.HasColumn(headers, col) }

	switch {
	case has(types.ColTripCount):
		return dataDetection(det, RoleSubTripData, "sub-trips", first)
	case has(types.ColShipmentCount):
		return dataDetection(det, RoleShipmentData, "shipments", first)
	case has(types.ColMunicipalName):
		return det.with(RoleMunicipalCodeTable, StatusValid, "municipal code table")
	case has(types.ColLogisticsName):
		return det.with(RoleLogisticsClassCodeTable, StatusValid, "logistics class code table")
	case has(types.ColZone) && has(types.ColPC6):
		return det.with(RoleZoneAssignment, StatusValid, "zone assignment")
	}

	return det.with(RoleUnknown, StatusWarning, "unrecognized columns")
}

func dataDetection(det Detection, role Role, label string, first types.RawRow) Detection {
	if first == nil {
		return det.with(role, StatusWarning, label+": no data rows")
	}

	year := csvparser.Int(first.Value(types.ColYear))
	if year <= 0 {
		return det.with(role, StatusWarning, label+": survey year not found in first row")
	}

	det.Year = year
	return det.with(role, StatusValid, fmt.Sprintf("%s %d", label, year))
}

// classifyWorkbook inspects sheet names, then the first row of the first
// sheet.
func classifyWorkbook(det Detection, content []byte) Detection {
	wb, err := xlsxparser.Open(content)
	if err != nil {
		return det.with(RoleUnknown, StatusError, err.Error())
	}
	defer wb.Close()

	switch {
	case wb.HasSheet(SheetVehicleType) && wb.HasSheet(SheetFuelType):
		return det.with(RoleReferenceLookupWorkbook, StatusValid, "reference lookup workbook")
	case wb.HasSheet(SheetShipments) || wb.HasSheet(SheetSubTrips):
		return det.with(RoleMunicipalCodetableWorkbook, StatusValid, "codetable workbook")
	}

	if first := wb.FirstSheet(); first != "" {
		rows, err := wb.Rows(first)
		if err == nil && regionHeader(rows) {
			return det.with(RoleRegionMappingWorkbook, StatusValid, "region mapping")
		}
	}

	return det.with(RoleUnknown, StatusWarning, "unrecognized workbook")
}

// regionHeader looks for the region columns in the first row, or in the
// second when the first is a title row.
func regionHeader(rows [][]string) bool {
	for i := 0; i < len(rows) && i < 2; i++ {
		if rowHas(rows[i], ColRegionMunicipalCode) && rowHas(rows[i], ColRegionNUTS1) {
			return true
		}
	}
	return false
}

func rowHas(row []string, name string) bool {
	for _, cell := range row {
		if strings.EqualFold(strings.TrimSpace(cell), name) {
			return true
		}
	}
	return false
}
