// =============================================================================
// Freight Survey Ingest - Shared Types
// =============================================================================
//
// This package contains the record schemas shared by the parsers, the
// enricher, the aggregation engine, the filter layer and the store. Keeping
// them here avoids import cycles between those packages.
//
// RECORD KINDS:
//   - ShipmentRecord ("zending"): one goods movement origin -> destination
//   - SubTripRecord ("deelrit"):  one vehicle movement segment
//
// Parser output is a RawRow (column name -> raw cell text). Nothing past the
// enricher works with RawRow values.
//
// =============================================================================

package types

import "strings"

// =============================================================================
// RAW ROWS
// =============================================================================

// RawRow is one parsed row, keyed by trimmed column name.
type RawRow map[string]string

// Get returns the trimmed value for a column and whether the column exists.
func (r RawRow) Get(column string) (string, bool) {
	v, ok := r[column]
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// Value returns the trimmed value for a column, or "" when absent.
func (r RawRow) Value(column string) string {
	v, _ := r.Get(column)
	return v
}

// =============================================================================
// GEOGRAPHY
// =============================================================================

// GeoLevel is the precision of a resolved geographic key.
type GeoLevel string

const (
	// GeoLevelNone marks an endpoint whose geography could not be resolved.
	GeoLevelNone GeoLevel = ""

	// GeoLevelFine is a 6-character postal code.
	GeoLevelFine GeoLevel = "fine"

	// GeoLevelCoarse is a 4-character postal code.
	GeoLevelCoarse GeoLevel = "coarse"

	// GeoLevelRegion is a NUTS3 regional code.
	GeoLevelRegion GeoLevel = "region"
)

// Zones holds the optional zone-membership values of one endpoint.
// A nil pointer means the source file did not carry the column.
type Zones struct {
	Emission      *string
	Pedestrian    *string
	ClosedLoading *string
	Closed        *string
}

// Endpoint is the origin or destination of a movement.
type Endpoint struct {
	// Raw identifiers as delivered.
	FinePostal   string
	CoarsePostal string
	Municipality string
	Region       string

	// InROI is the "in region of interest" dummy flag.
	InROI bool

	Zones Zones

	// Derived by the enricher.
	Country              string
	GeoKey               string
	GeoLevel             GeoLevel
	DomesticCoarsePostal string
}

// Resolved reports whether the endpoint has a geographic key.
func (e Endpoint) Resolved() bool {
	return e.GeoLevel != GeoLevelNone
}

// =============================================================================
// RECORDS
// =============================================================================

// Movement holds the attributes shared by shipments and sub-trips.
type Movement struct {
	Year        int
	Origin      Endpoint
	Destination Endpoint

	LogisticsClassCode string
	LogisticsClass     string
	EmissionClass      string
	FuelClassCode      string
	FuelClass          string

	GrossWeight float64

	// Classification flags, written once by the enricher.
	National      bool
	International bool
	Import        bool
	Export        bool
}

// Core returns the shared movement attributes. Embedding makes it
// available on every record kind.
func (m *Movement) Core() *Movement {
	return m
}

// Record is satisfied by pointers to record kinds, letting generic code
// over []E reach the shared movement attributes.
type Record[E any] interface {
	*E
	Core() *Movement
}

// ShipmentRecord is one shipment ("zending").
type ShipmentRecord struct {
	Movement

	ShipmentCount   float64
	AverageDistance float64
}

// SubTripRecord is one vehicle movement segment ("deelrit").
type SubTripRecord struct {
	Movement

	VehicleTypeCode string
	VehicleType     string

	EmptyTripClassCode string
	EmptyTripClass     string

	PayloadClassCode string
	PayloadClass     string

	UnladenWeightClassCode string
	UnladenWeightClass     string

	MaxWeightClassCode string
	MaxWeightClass     string

	TripCount           float64
	EmptyTripCount      float64
	AverageDistance     float64
	AverageLoadFactor   float64 // 0-100 scale
	AverageShipmentsPer float64
}

// VehicleCode returns the raw vehicle-type code.
func (r *SubTripRecord) VehicleCode() string {
	return r.VehicleTypeCode
}

// RecordKind distinguishes the two record collections of a dataset.
type RecordKind string

const (
	KindShipment RecordKind = "shipment"
	KindSubTrip  RecordKind = "subtrip"
)

// =============================================================================
// REFERENCE DATA
// =============================================================================

// LookupEntry is one code -> description pair.
type LookupEntry struct {
	Code        string
	Description string
}

// RegionMapping connects a municipality to its NUTS hierarchy.
type RegionMapping struct {
	MunicipalCode string
	MunicipalName string
	NUTS1         string
	NUTS2         string
	NUTS3         string
	Urbanization  string
}

// Municipality is the auto-detected municipality of a dataset.
type Municipality struct {
	Code string
	Name string
}
