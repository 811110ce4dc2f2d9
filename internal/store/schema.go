package store

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/freight-survey-ingest/internal/filter"
	"github.com/ginjaninja78/freight-survey-ingest/internal/types"
)

const (
	tableDatasets   = "datasets"
	tableShipments  = "zendingen"
	tableSubTrips   = "deelritten"
	tableLookups    = "lookup_entries"
	tableRegions    = "region_mappings"
	columnDatasetID = "dataset_id"
)

const (
	sqlText    = "TEXT"
	sqlInt     = "INTEGER"
	sqlFloat   = "DOUBLE PRECISION"
	sqlBool    = "BOOLEAN"
	sqlNullTxt = "TEXT NULL"
)

// column maps one record field to a table column. field returns a pointer
// to the field: database/sql dereferences it on insert and fills it on scan.
type column[T any] struct {
	name  string
	typ   string
	field func(*T) interface{}
}

func names[T any](cols []column[T]) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.name
	}
	return out
}

func fields[T any](cols []column[T], r *T) []interface{} {
	out := make([]interface{}, len(cols))
	for i, c := range cols {
		out[i] = c.field(r)
	}
	return out
}

// movementColumns are shared by both record tables.
func movementColumns[T any](core func(*T) *types.Movement) []column[T] {
	m := func(get func(*types.Movement) interface{}) func(*T) interface{} {
		return func(r *T) interface{} { return get(core(r)) }
	}

	return []column[T]{
		{filter.ColumnYear, sqlInt, m(func(v *types.Movement) interface{} { return &v.Year })},

		{"laad_pc6", sqlText, m(func(v *types.Movement) interface{} { return &v.Origin.FinePostal })},
		{"laad_pc4", sqlText, m(func(v *types.Movement) interface{} { return &v.Origin.CoarsePostal })},
		{"laad_gemeente", sqlText, m(func(v *types.Movement) interface{} { return &v.Origin.Municipality })},
		{"laad_nuts3", sqlText, m(func(v *types.Movement) interface{} { return &v.Origin.Region })},
		{"laad_in_roi", sqlBool, m(func(v *types.Movement) interface{} { return &v.Origin.InROI })},
		{"laad_land", sqlText, m(func(v *types.Movement) interface{} { return &v.Origin.Country })},
		{"laad_geo_key", sqlText, m(func(v *types.Movement) interface{} { return &v.Origin.GeoKey })},
		{"laad_geo_level", sqlText, m(func(v *types.Movement) interface{} { return &v.Origin.GeoLevel })},
		{"laad_pc4_nl", sqlText, m(func(v *types.Movement) interface{} { return &v.Origin.DomesticCoarsePostal })},
		{filter.ColumnZoneOrigin, sqlNullTxt, m(func(v *types.Movement) interface{} { return &v.Origin.Zones.Emission })},
		{"laad_zone_voetganger", sqlNullTxt, m(func(v *types.Movement) interface{} { return &v.Origin.Zones.Pedestrian })},
		{"laad_zone_afgesloten_laden_lossen", sqlNullTxt, m(func(v *types.Movement) interface{} { return &v.Origin.Zones.ClosedLoading })},
		{"laad_zone_afgesloten", sqlNullTxt, m(func(v *types.Movement) interface{} { return &v.Origin.Zones.Closed })},

		{"los_pc6", sqlText, m(func(v *types.Movement) interface{} { return &v.Destination.FinePostal })},
		{"los_pc4", sqlText, m(func(v *types.Movement) interface{} { return &v.Destination.CoarsePostal })},
		{"los_gemeente", sqlText, m(func(v *types.Movement) interface{} { return &v.Destination.Municipality })},
		{"los_nuts3", sqlText, m(func(v *types.Movement) interface{} { return &v.Destination.Region })},
		{"los_in_roi", sqlBool, m(func(v *types.Movement) interface{} { return &v.Destination.InROI })},
		{"los_land", sqlText, m(func(v *types.Movement) interface{} { return &v.Destination.Country })},
		{"los_geo_key", sqlText, m(func(v *types.Movement) interface{} { return &v.Destination.GeoKey })},
		{"los_geo_level", sqlText, m(func(v *types.Movement) interface{} { return &v.Destination.GeoLevel })},
		{"los_pc4_nl", sqlText, m(func(v *types.Movement) interface{} { return &v.Destination.DomesticCoarsePostal })},
		{filter.ColumnZoneDestination, sqlNullTxt, m(func(v *types.Movement) interface{} { return &v.Destination.Zones.Emission })},
		{"los_zone_voetganger", sqlNullTxt, m(func(v *types.Movement) interface{} { return &v.Destination.Zones.Pedestrian })},
		{"los_zone_afgesloten_laden_lossen", sqlNullTxt, m(func(v *types.Movement) interface{} { return &v.Destination.Zones.ClosedLoading })},
		{"los_zone_afgesloten", sqlNullTxt, m(func(v *types.Movement) interface{} { return &v.Destination.Zones.Closed })},

		{"stadslogistieke_klasse_code", sqlText, m(func(v *types.Movement) interface{} { return &v.LogisticsClassCode })},
		{"stadslogistieke_klasse", sqlText, m(func(v *types.Movement) interface{} { return &v.LogisticsClass })},
		{filter.ColumnEmissionClass, sqlText, m(func(v *types.Movement) interface{} { return &v.EmissionClass })},
		{"brandstofsoort_klasse", sqlText, m(func(v *types.Movement) interface{} { return &v.FuelClassCode })},
		{"brandstofsoort", sqlText, m(func(v *types.Movement) interface{} { return &v.FuelClass })},
		{"bruto_gewicht", sqlFloat, m(func(v *types.Movement) interface{} { return &v.GrossWeight })},

		{"is_national", sqlBool, m(func(v *types.Movement) interface{} { return &v.National })},
		{"is_international", sqlBool, m(func(v *types.Movement) interface{} { return &v.International })},
		{filter.ColumnImport, sqlBool, m(func(v *types.Movement) interface{} { return &v.Import })},
		{filter.ColumnExport, sqlBool, m(func(v *types.Movement) interface{} { return &v.Export })},
	}
}

var shipmentColumns = append(
	movementColumns(func(r *types.ShipmentRecord) *types.Movement { return r.Core() }),
	[]column[types.ShipmentRecord]{
		{"zending_aantal", sqlFloat, func(r *types.ShipmentRecord) interface{} { return &r.ShipmentCount }},
		{"zending_afstand_gemiddeld", sqlFloat, func(r *types.ShipmentRecord) interface{} { return &r.AverageDistance }},
	}...,
)

var subTripColumns = append(
	movementColumns(func(r *types.SubTripRecord) *types.Movement { return r.Core() }),
	[]column[types.SubTripRecord]{
		{filter.ColumnVehicleType, sqlText, func(r *types.SubTripRecord) interface{} { return &r.VehicleTypeCode }},
		{"voertuigsoort", sqlText, func(r *types.SubTripRecord) interface{} { return &r.VehicleType }},
		{"lege_rit_code", sqlText, func(r *types.SubTripRecord) interface{} { return &r.EmptyTripClassCode }},
		{"lege_rit", sqlText, func(r *types.SubTripRecord) interface{} { return &r.EmptyTripClass }},
		{"laadvermogen_klasse", sqlText, func(r *types.SubTripRecord) interface{} { return &r.PayloadClassCode }},
		{"laadvermogen", sqlText, func(r *types.SubTripRecord) interface{} { return &r.PayloadClass }},
		{"leeggewicht_klasse", sqlText, func(r *types.SubTripRecord) interface{} { return &r.UnladenWeightClassCode }},
		{"leeggewicht", sqlText, func(r *types.SubTripRecord) interface{} { return &r.UnladenWeightClass }},
		{"max_gewicht_klasse", sqlText, func(r *types.SubTripRecord) interface{} { return &r.MaxWeightClassCode }},
		{"max_gewicht", sqlText, func(r *types.SubTripRecord) interface{} { return &r.MaxWeightClass }},
		{"aantal_deelritten", sqlFloat, func(r *types.SubTripRecord) interface{} { return &r.TripCount }},
		{"aantal_lege_deelritten", sqlFloat, func(r *types.SubTripRecord) interface{} { return &r.EmptyTripCount }},
		{"deelrit_afstand_gemiddeld", sqlFloat, func(r *types.SubTripRecord) interface{} { return &r.AverageDistance }},
		{"beladingsgraad", sqlFloat, func(r *types.SubTripRecord) interface{} { return &r.AverageLoadFactor }},
		{"zendingen_per_rit", sqlFloat, func(r *types.SubTripRecord) interface{} { return &r.AverageShipmentsPer }},
	}...,
)

var (
	lookupColumns = []string{columnDatasetID, "table_name", "code", "omschrijving"}
	regionColumns = []string{columnDatasetID, "gemeentecode", "gemeentenaam", "nuts1", "nuts2", "nuts3", "degurba"}
)

// schema returns the CREATE statements for a dialect.
func schema(d dialect) []string {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	municipality_code TEXT NOT NULL UNIQUE,
	municipality_name TEXT NOT NULL,
	years TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
)`, tableDatasets),
		recordTable(d, tableShipments, names(shipmentColumns), columnTypes(shipmentColumns)),
		recordTable(d, tableSubTrips, names(subTripColumns), columnTypes(subTripColumns)),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	%s TEXT NOT NULL,
	table_name TEXT NOT NULL,
	code TEXT NOT NULL,
	omschrijving TEXT NOT NULL
)`, tableLookups, columnDatasetID),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	%s TEXT NOT NULL,
	gemeentecode TEXT NOT NULL,
	gemeentenaam TEXT NOT NULL,
	nuts1 TEXT NOT NULL,
	nuts2 TEXT NOT NULL,
	nuts3 TEXT NOT NULL,
	degurba TEXT NOT NULL
)`, tableRegions, columnDatasetID),
	}

	for _, t := range []string{tableShipments, tableSubTrips, tableLookups, tableRegions} {
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_dataset ON %s (%s)", t, t, columnDatasetID))
	}
	return stmts
}

func columnTypes[T any](cols []column[T]) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.typ
	}
	return out
}

func recordTable(d dialect, table string, cols, sqlTypes []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n\tid %s,\n\t%s TEXT NOT NULL", table, d.serial, columnDatasetID)
	for i, c := range cols {
		fmt.Fprintf(&b, ",\n\t%s %s", c, sqlTypes[i])
	}
	b.WriteString("\n)")
	return b.String()
}
