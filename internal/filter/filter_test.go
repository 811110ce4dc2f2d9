package filter

import (
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/ginjaninja78/freight-survey-ingest/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func sampleSubTrips() []types.SubTripRecord {
	a := types.SubTripRecord{VehicleTypeCode: "1"}
	a.Year, a.EmissionClass, a.Import = 2023, "6", true
	a.Origin.Zones.Emission = strPtr("ja")

	b := types.SubTripRecord{VehicleTypeCode: "2"}
	b.Year, b.EmissionClass, b.Export = 2023, "5", true
	b.Origin.Zones.Emission = strPtr("nee")
	b.Destination.Zones.Emission = strPtr("ja")

	c := types.SubTripRecord{VehicleTypeCode: "1"}
	c.Year, c.EmissionClass = 2022, "6"

	return []types.SubTripRecord{a, b, c}
}

func codes(records []types.SubTripRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.EmissionClass+"/"+r.VehicleTypeCode)
	}
	return out
}

func TestApply(t *testing.T) {
	records := sampleSubTrips()

	tests := []struct {
		name    string
		filters Filters
		want    int
	}{
		{name: "no filters", filters: Filters{}, want: 3},
		{name: "year", filters: Filters{Year: 2023}, want: 2},
		{name: "emission class", filters: Filters{EmissionClass: "6"}, want: 2},
		{name: "zone origin excludes missing", filters: Filters{ZoneOrigin: "nee"}, want: 1},
		{name: "zone destination", filters: Filters{ZoneDestination: "ja"}, want: 1},
		{name: "import", filters: Filters{Trade: TradeImport}, want: 1},
		{name: "export", filters: Filters{Trade: TradeExport}, want: 1},
		{name: "vehicle", filters: Filters{VehicleType: "1"}, want: 2},
		{name: "combined", filters: Filters{Year: 2023, EmissionClass: "6", VehicleType: "1"}, want: 1},
		{name: "no match", filters: Filters{Year: 2023, Trade: TradeImport, VehicleType: "2"}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, Apply(records, tt.filters), tt.want)
		})
	}
}

func TestApply_VehicleIgnoredForShipments(t *testing.T) {
	s := types.ShipmentRecord{}
	s.Year = 2023
	got := Apply([]types.ShipmentRecord{s}, Filters{VehicleType: "1"})
	assert.Len(t, got, 1)
}

func TestApply_KeepsOrder(t *testing.T) {
	got := Apply(sampleSubTrips(), Filters{EmissionClass: "6"})
	assert.Equal(t, []string{"6/1", "6/1"}, codes(got))
	assert.Equal(t, 2023, got[0].Year)
	assert.Equal(t, 2022, got[1].Year)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Filters{Trade: TradeExport}.Validate())
	assert.Error(t, Filters{Trade: "sideways"}.Validate())
	assert.Error(t, Filters{Year: -1}.Validate())
}

func TestPredicate(t *testing.T) {
	sql, args, err := sq.Select("*").From("deelritten").
		Where(Predicate(Filters{
			Year:          2023,
			EmissionClass: "6",
			ZoneOrigin:    "ja",
			Trade:         TradeImport,
			VehicleType:   "1",
		}, types.KindSubTrip)).
		ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT * FROM deelritten WHERE (jaar = ? AND euronorm_klasse = ? AND laad_zone_emissiezone = ? AND is_import = ? AND voertuigsoort_rdw = ?)",
		sql)
	assert.Equal(t, []interface{}{2023, "6", "ja", true, "1"}, args)
}

func TestPredicate_ShipmentsIgnoreVehicle(t *testing.T) {
	sql, args, err := Predicate(Filters{VehicleType: "1", Trade: TradeExport}, types.KindShipment).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "(is_export = ?)", sql)
	assert.Equal(t, []interface{}{true}, args)
}

func TestPredicate_Empty(t *testing.T) {
	sql, _, err := Predicate(Filters{}, types.KindSubTrip).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "(1=1)", sql)
}
