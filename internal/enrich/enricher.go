// =============================================================================
// Freight Survey Ingest - Record Enricher
// =============================================================================
//
// This module turns parsed rows into typed shipment and sub-trip records.
//
// PER RECORD:
//   1. Country of each endpoint from the first two characters of its
//      regional code
//   2. National / international / import / export flags
//   3. Geographic key of each endpoint (see package geo)
//   4. Numeric coercion of counts, weights, distances and load factor
//   5. Human-readable labels through the lookup registry
//
// The enricher never fails on a single row: malformed numbers become 0,
// missing lookups get synthesized labels and unresolvable geography leaves
// the key empty. It reads the registry but never modifies it.
//
// =============================================================================

package enrich

import (
	"github.com/ginjaninja78/freight-survey-ingest/internal/csvparser"
	"github.com/ginjaninja78/freight-survey-ingest/internal/geo"
	"github.com/ginjaninja78/freight-survey-ingest/internal/lookup"
	"github.com/ginjaninja78/freight-survey-ingest/internal/types"
)

// =============================================================================
// COLUMN SETS
// =============================================================================

// endpointColumns names the columns of one side of a movement.
type endpointColumns struct {
	fine, coarse, municipal, region, inROI string
	zonePrefix                             string
}

var (
	originColumns = endpointColumns{
		fine:       types.ColOriginPC6,
		coarse:     types.ColOriginPC4,
		municipal:  types.ColOriginMunicipal,
		region:     types.ColOriginNUTS3,
		inROI:      types.ColOriginInROI,
		zonePrefix: "laad_",
	}
	destinationColumns = endpointColumns{
		fine:       types.ColDestPC6,
		coarse:     types.ColDestPC4,
		municipal:  types.ColDestMunicipal,
		region:     types.ColDestNUTS3,
		inROI:      types.ColDestInROI,
		zonePrefix: "los_",
	}
)

// labelRule attaches one description to a sub-trip record.
type labelRule struct {
	category lookup.Category
	code     func(*types.SubTripRecord) string
	label    func(*types.SubTripRecord) *string
}

// subTripLabels are applied in order to every sub-trip.
var subTripLabels = []labelRule{
	{
		category: lookup.CategoryVehicleType,
		code:     func(r *types.SubTripRecord) string { return r.VehicleTypeCode },
		label:    func(r *types.SubTripRecord) *string { return &r.VehicleType },
	},
	{
		category: lookup.CategoryEmptyTrip,
		code:     func(r *types.SubTripRecord) string { return r.EmptyTripClassCode },
		label:    func(r *types.SubTripRecord) *string { return &r.EmptyTripClass },
	},
	{
		category: lookup.CategoryPayload,
		code:     func(r *types.SubTripRecord) string { return r.PayloadClassCode },
		label:    func(r *types.SubTripRecord) *string { return &r.PayloadClass },
	},
	{
		category: lookup.CategoryUnladenWeight,
		code:     func(r *types.SubTripRecord) string { return r.UnladenWeightClassCode },
		label:    func(r *types.SubTripRecord) *string { return &r.UnladenWeightClass },
	},
	{
		category: lookup.CategoryMaxWeight,
		code:     func(r *types.SubTripRecord) string { return r.MaxWeightClassCode },
		label:    func(r *types.SubTripRecord) *string { return &r.MaxWeightClass },
	},
}

// =============================================================================
// ENRICHER
// =============================================================================

// Enricher converts raw rows into typed records.
type Enricher struct {
	registry *lookup.Registry
	resolver geo.Resolver
}

// New creates an Enricher. A nil registry behaves like an empty one.
func New(registry *lookup.Registry, resolver geo.Resolver) *Enricher {
	if registry == nil {
		registry = lookup.NewRegistry()
	}
	return &Enricher{
		registry: registry,
		resolver: resolver,
	}
}

// Shipments enriches shipment rows.
func (e *Enricher) Shipments(rows []types.RawRow) []types.ShipmentRecord {
	out := make([]types.ShipmentRecord, len(rows))
	for i, row := range rows {
		out[i] = e.Shipment(row)
	}
	return out
}

// SubTrips enriches sub-trip rows.
func (e *Enricher) SubTrips(rows []types.RawRow) []types.SubTripRecord {
	out := make([]types.SubTripRecord, len(rows))
	for i, row := range rows {
		out[i] = e.SubTrip(row)
	}
	return out
}

// Shipment enriches one shipment row.
func (e *Enricher) Shipment(row types.RawRow) types.ShipmentRecord {
	return types.ShipmentRecord{
		Movement:        e.movement(row),
		ShipmentCount:   csvparser.Number(row.Value(types.ColShipmentCount)),
		AverageDistance: csvparser.Number(row.Value(types.ColShipmentDistance)),
	}
}

// SubTrip enriches one sub-trip row.
func (e *Enricher) SubTrip(row types.RawRow) types.SubTripRecord {
	rec := types.SubTripRecord{
		Movement: e.movement(row),

		VehicleTypeCode:        row.Value(types.ColVehicleType),
		EmptyTripClassCode:     row.Value(types.ColEmptyTripClass),
		PayloadClassCode:       row.Value(types.ColPayloadClass),
		UnladenWeightClassCode: row.Value(types.ColUnladenClass),
		MaxWeightClassCode:     row.Value(types.ColMaxWeightClass),

		TripCount:           csvparser.Number(row.Value(types.ColTripCount)),
		EmptyTripCount:      csvparser.Number(row.Value(types.ColEmptyTripCount)),
		AverageDistance:     csvparser.Number(row.Value(types.ColTripDistance)),
		AverageLoadFactor:   csvparser.Number(row.Value(types.ColLoadFactor)),
		AverageShipmentsPer: csvparser.Number(row.Value(types.ColShipmentsPerTrip)),
	}

	for _, rule := range subTripLabels {
		*rule.label(&rec) = e.registry.Get(rule.category, rule.code(&rec))
	}
	return rec
}

// movement reads and derives the attributes shared by both record kinds.
func (e *Enricher) movement(row types.RawRow) types.Movement {
	m := types.Movement{
		Year:               csvparser.Int(row.Value(types.ColYear)),
		Origin:             readEndpoint(row, originColumns),
		Destination:        readEndpoint(row, destinationColumns),
		LogisticsClassCode: row.Value(types.ColLogisticsClass),
		EmissionClass:      row.Value(types.ColEmissionClass),
		FuelClassCode:      row.Value(types.ColFuelClass),
		GrossWeight:        csvparser.Number(row.Value(types.ColGrossWeight)),
	}

	e.resolver.Apply(&m.Origin)
	e.resolver.Apply(&m.Destination)
	e.Classify(&m)

	m.LogisticsClass = e.registry.Get(lookup.CategoryLogistics, m.LogisticsClassCode)
	m.FuelClass = e.registry.Get(lookup.CategoryFuel, m.FuelClassCode)
	return m
}

// Classify sets the trade flags from the endpoint countries.
//
// National and international both require two known countries; a movement
// with an unknown country is neither. Import and export look at one
// endpoint only.
func (e *Enricher) Classify(m *types.Movement) {
	origin, dest := m.Origin.Country, m.Destination.Country
	bothKnown := origin != "" && dest != ""

	m.National = bothKnown && e.resolver.IsDomestic(origin) && e.resolver.IsDomestic(dest)
	m.International = bothKnown && !m.National
	m.Import = origin != "" && !e.resolver.IsDomestic(origin)
	m.Export = dest != "" && !e.resolver.IsDomestic(dest)
}

func readEndpoint(row types.RawRow, cols endpointColumns) types.Endpoint {
	return types.Endpoint{
		FinePostal:   row.Value(cols.fine),
		CoarsePostal: row.Value(cols.coarse),
		Municipality: row.Value(cols.municipal),
		Region:       row.Value(cols.region),
		InROI:        csvparser.Flag(row.Value(cols.inROI)),
		Zones: types.Zones{
			Emission:      optional(row, cols.zonePrefix+types.ZoneEmission),
			Pedestrian:    optional(row, cols.zonePrefix+types.ZonePedestrian),
			ClosedLoading: optional(row, cols.zonePrefix+types.ZoneClosedLoading),
			Closed:        optional(row, cols.zonePrefix+types.ZoneClosed),
		},
	}
}

// optional returns nil when the column is absent or blank.
func optional(row types.RawRow, column string) *string {
	v, ok := row.Get(column)
	if !ok || v == "" {
		return nil
	}
	return &v
}
