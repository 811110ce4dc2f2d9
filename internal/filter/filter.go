// =============================================================================
// Freight Survey Ingest - Filter Layer
// =============================================================================
//
// One filter vocabulary, two executions:
//   - Apply:     in-process filtering of enriched record collections
//   - Predicate: translation to a SQL WHERE clause for the store
//
// Both must select exactly the same records. Options compose with AND; an
// omitted option imposes no constraint.
//
// OPTIONS:
//   year             exact survey year (0 = any)
//   emission_class   exact emission-norm class
//   zone_origin      exact emission-zone value at the origin; records
//                    without the value are excluded
//   zone_destination same, at the destination
//   trade            "import" or "export"
//   vehicle_type     exact vehicle-type code (sub-trips only)
//
// =============================================================================

package filter

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/ginjaninja78/freight-survey-ingest/internal/types"
	"github.com/ginjaninja78/freight-survey-ingest/internal/validation"
)

// TradeDirection restricts records to imports or exports.
type TradeDirection string

const (
	TradeAny    TradeDirection = ""
	TradeImport TradeDirection = "import"
	TradeExport TradeDirection = "export"
)

// Filters is the shared filter vocabulary.
type Filters struct {
	Year            int            `json:"year,omitempty" yaml:"year" validate:"min=0"`
	EmissionClass   string         `json:"emission_class,omitempty" yaml:"emission_class"`
	ZoneOrigin      string         `json:"zone_origin,omitempty" yaml:"zone_origin"`
	ZoneDestination string         `json:"zone_destination,omitempty" yaml:"zone_destination"`
	Trade           TradeDirection `json:"trade,omitempty" yaml:"trade" validate:"omitempty,oneof=import export"`
	VehicleType     string         `json:"vehicle_type,omitempty" yaml:"vehicle_type"`
}

// Validate checks the option values.
func (f Filters) Validate() error {
	return validation.Struct(f)
}

// IsZero reports whether no option is set.
func (f Filters) IsZero() bool {
	return f == Filters{}
}

// =============================================================================
// IN-PROCESS
// =============================================================================

type vehicleCoded interface {
	VehicleCode() string
}

// Apply returns the records matching every option, in input order.
func Apply[E any, P types.Record[E]](records []E, f Filters) []E {
	if f.IsZero() {
		return records
	}

	out := make([]E, 0, len(records))
	for i := range records {
		p := P(&records[i])
		vehicle, hasVehicle := "", false
		if v, ok := any(p).(vehicleCoded); ok {
			vehicle, hasVehicle = v.VehicleCode(), true
		}
		if f.Match(p.Core(), vehicle, hasVehicle) {
			out = append(out, records[i])
		}
	}
	return out
}

// Match tests one record. The vehicle option only applies to records that
// carry a vehicle type.
func (f Filters) Match(m *types.Movement, vehicle string, hasVehicle bool) bool {
	switch {
	case f.Year != 0 && m.Year != f.Year:
		return false
	case f.EmissionClass != "" && m.EmissionClass != f.EmissionClass:
		return false
	case f.ZoneOrigin != "" && !zoneIs(m.Origin.Zones.Emission, f.ZoneOrigin):
		return false
	case f.ZoneDestination != "" && !zoneIs(m.Destination.Zones.Emission, f.ZoneDestination):
		return false
	case f.Trade == TradeImport && !m.Import:
		return false
	case f.Trade == TradeExport && !m.Export:
		return false
	case f.VehicleType != "" && hasVehicle && vehicle != f.VehicleType:
		return false
	}
	return true
}

func zoneIs(value *string, want string) bool {
	return value != nil && *value == want
}

// =============================================================================
// SERVER-SIDE
// =============================================================================

// Column names of the stored record tables.
const (
	ColumnYear            = "jaar"
	ColumnEmissionClass   = "euronorm_klasse"
	ColumnZoneOrigin      = "laad_zone_emissiezone"
	ColumnZoneDestination = "los_zone_emissiezone"
	ColumnImport          = "is_import"
	ColumnExport          = "is_export"
	ColumnVehicleType     = "voertuigsoort_rdw"
)

// Predicate translates the filters into a WHERE clause for one record kind.
// A stored zone value is NULL when the record lacks it, so equality
// excludes those records as Apply does.
func Predicate(f Filters, kind types.RecordKind) sq.Sqlizer {
	where := sq.And{}

	if f.Year != 0 {
		where = append(where, sq.Eq{ColumnYear: f.Year})
	}
	if f.EmissionClass != "" {
		where = append(where, sq.Eq{ColumnEmissionClass: f.EmissionClass})
	}
	if f.ZoneOrigin != "" {
		where = append(where, sq.Eq{ColumnZoneOrigin: f.ZoneOrigin})
	}
	if f.ZoneDestination != "" {
		where = append(where, sq.Eq{ColumnZoneDestination: f.ZoneDestination})
	}
	switch f.Trade {
	case TradeImport:
		where = append(where, sq.Eq{ColumnImport: true})
	case TradeExport:
		where = append(where, sq.Eq{ColumnExport: true})
	}
	if f.VehicleType != "" && kind == types.KindSubTrip {
		where = append(where, sq.Eq{ColumnVehicleType: f.VehicleType})
	}

	return where
}
