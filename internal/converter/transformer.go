// =============================================================================
// Freight Survey Ingest - Per-File Transformation
// =============================================================================
//
// This module handles a single classified file inside a run.
//
// REFERENCE FILES:
//   Workbooks and code table CSVs are parsed and loaded into the staged
//   registry. A loader that fails leaves the registry as it was.
//
// DATA FILES:
//   1. Parse the delimited text (malformed rows become issues)
//   2. Check the required columns (missing ones become warnings)
//   3. Measure the fill rate of the key columns
//   4. Enrich every row into a typed record
//   5. Settle the survey year: the classified year, else the first record's
//
// =============================================================================

package converter

import (
	"fmt"

	"github.com/ginjaninja78/freight-survey-ingest/internal/aggregate"
	"github.com/ginjaninja78/freight-survey-ingest/internal/classifier"
	"github.com/ginjaninja78/freight-survey-ingest/internal/csvparser"
	"github.com/ginjaninja78/freight-survey-ingest/internal/enrich"
	"github.com/ginjaninja78/freight-survey-ingest/internal/lookup"
	"github.com/ginjaninja78/freight-survey-ingest/internal/types"
	"github.com/ginjaninja78/freight-survey-ingest/internal/validation"
	"github.com/ginjaninja78/freight-survey-ingest/internal/xlsxparser"
)

// parsedFile holds the records of one data file until commit.
type parsedFile struct {
	kind      types.RecordKind
	year      int
	shipments []types.ShipmentRecord
	subTrips  []types.SubTripRecord
}

// =============================================================================
// REFERENCE FILES
// =============================================================================

// loadReference loads one reference file into the registry and returns the
// region mappings when the file is a region mapping workbook.
func loadReference(registry *lookup.Registry, result *Result, content []byte, delimiter rune) []types.RegionMapping {
	switch result.Role {
	case classifier.RoleMunicipalCodeTable, classifier.RoleLogisticsClassCodeTable:
		data, err := csvparser.Parse(content, result.File, delimiter)
		if err != nil {
			result.fail("cannot parse code table: %v", err)
			return nil
		}
		result.Issues = data.Report.Issues

		if result.Role == classifier.RoleMunicipalCodeTable {
			result.Records = registry.LoadMunicipalCodeTable(data.Rows)
		} else {
			result.Records = registry.LoadLogisticsClassCodeTable(data.Rows)
		}
		if result.Records == 0 {
			result.warn("code table holds no entries")
		}
		return nil
	}

	wb, err := xlsxparser.Open(content)
	if err != nil {
		result.fail("%v", err)
		return nil
	}
	defer wb.Close()

	switch result.Role {
	case classifier.RoleReferenceLookupWorkbook:
		if err := registry.LoadFullWorkbook(wb); err != nil {
			result.fail("%v", err)
			return nil
		}
		result.Records = lookupCount(registry, lookup.Categories)

	case classifier.RoleMunicipalCodetableWorkbook:
		replaced, err := registry.LoadEmbeddedCodetables(wb)
		if err != nil {
			result.fail("%v", err)
			return nil
		}
		result.Records = lookupCount(registry, replaced)
		if len(replaced) == 0 {
			result.warn("no embedded code tables found")
		}

	case classifier.RoleRegionMappingWorkbook:
		mappings, err := lookup.ParseRegionMappings(wb)
		if err != nil {
			result.fail("%v", err)
			return nil
		}
		result.Records = len(mappings)
		if len(mappings) == 0 {
			result.warn("region mapping holds no municipalities")
			return nil
		}
		return mappings
	}

	return nil
}

// =============================================================================
// DATA FILES
// =============================================================================

// transform parses and enriches one shipment or sub-trip file.
func transform(enricher *enrich.Enricher, result *Result, content []byte, delimiter rune) parsedFile {
	data, err := csvparser.Parse(content, result.File, delimiter)
	if err != nil {
		result.fail("cannot parse: %v", err)
		return parsedFile{}
	}

	report := data.Report
	required, fields := types.ShipmentColumnsRequired, types.ShipmentCompletenessFields
	if result.Role == classifier.RoleSubTripData {
		required, fields = types.SubTripColumnsRequired, types.SubTripCompletenessFields
	}
	missing := validation.CheckColumns(&report, result.File, data.Headers, required)

	result.Completeness = aggregate.DataCompleteness(data.Rows, fields, func(r types.RawRow, f string) (string, bool) {
		return r.Get(f)
	})

	out := parsedFile{year: result.Year}
	if result.Role == classifier.RoleSubTripData {
		out.kind = types.KindSubTrip
		out.subTrips = enricher.SubTrips(data.Rows)
		result.Records = len(out.subTrips)
		if out.year == 0 && len(out.subTrips) > 0 {
			out.year = out.subTrips[0].Year
		}
	} else {
		out.kind = types.KindShipment
		out.shipments = enricher.Shipments(data.Rows)
		result.Records = len(out.shipments)
		if out.year == 0 && len(out.shipments) > 0 {
			out.year = out.shipments[0].Year
		}
	}

	result.Issues = report.Issues
	result.Year = out.year

	switch {
	case out.year <= 0:
		result.Year = 0
		result.warn("survey year unknown, records not loaded")
		return parsedFile{}
	case report.ErrorCount() > 0:
		result.warn("%d records for %d, %d rows skipped", result.Records, out.year, report.ErrorCount())
	case missing > 0:
		result.warn("%d records for %d, %d required columns missing", result.Records, out.year, missing)
	case report.WarningCount() > 0:
		result.warn("%d records for %d, %d warnings", result.Records, out.year, report.WarningCount())
	default:
		result.Status = classifier.StatusValid
		result.Message = fmt.Sprintf("%d records for %d", result.Records, out.year)
	}
	return out
}
