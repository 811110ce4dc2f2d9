package enrich

import (
	"testing"

	"github.com/ginjaninja78/freight-survey-ingest/internal/geo"
	"github.com/ginjaninja78/freight-survey-ingest/internal/lookup"
	"github.com/ginjaninja78/freight-survey-ingest/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEnricher(reg *lookup.Registry) *Enricher {
	return New(reg, geo.NewResolver("NL", "NUTS3:"))
}

func TestClassify_TradeFlags(t *testing.T) {
	e := newEnricher(nil)

	tests := []struct {
		name                                     string
		origin, dest                             string
		national, international, import_, export bool
	}{
		{name: "domestic", origin: "NL", dest: "NL", national: true},
		{name: "import", origin: "DE", dest: "NL", international: true, import_: true},
		{name: "export", origin: "NL", dest: "BE", international: true, export: true},
		{name: "foreign transit", origin: "DE", dest: "FR", international: true, import_: true, export: true},
		{name: "unknown destination", origin: "DE", dest: "", import_: true},
		{name: "unknown origin", origin: "", dest: "NL"},
		{name: "both unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := types.Movement{
				Origin:      types.Endpoint{Country: tt.origin},
				Destination: types.Endpoint{Country: tt.dest},
			}
			e.Classify(&m)

			assert.Equal(t, tt.national, m.National)
			assert.Equal(t, tt.international, m.International)
			assert.Equal(t, tt.import_, m.Import)
			assert.Equal(t, tt.export, m.Export)
			assert.False(t, m.National && m.International)
		})
	}
}

func TestShipments_EndToEnd(t *testing.T) {
	e := newEnricher(nil)

	records := e.Shipments([]types.RawRow{
		{"jaar": "2023", "laadNuts3": "NL123", "losNuts3": "NL456", "zendingAantal": "10"},
		{"jaar": "2023", "laadNuts3": "DE100", "losNuts3": "NL456", "zendingAantal": "5"},
	})
	require.Len(t, records, 2)

	a, b := records[0], records[1]
	assert.True(t, a.National)
	assert.False(t, a.International)
	assert.Equal(t, 10.0, a.ShipmentCount)

	assert.True(t, b.International)
	assert.True(t, b.Import)
	assert.False(t, b.Export)
	assert.Equal(t, "DE", b.Origin.Country)
	assert.Equal(t, "NUTS3:DE100", b.Origin.GeoKey)
	assert.Equal(t, types.GeoLevelRegion, b.Origin.GeoLevel)
	assert.Equal(t, 2023, b.Year)
}

func TestShipment_FieldsAndZones(t *testing.T) {
	reg := lookup.NewRegistry()
	reg.Set(lookup.CategoryLogistics, []types.LookupEntry{{Code: "3", Description: "Pakket"}})
	e := newEnricher(reg)

	rec := e.Shipment(types.RawRow{
		"jaar":                        "2022",
		"laadPC6":                     "3511AB",
		"laadPC4":                     "3511",
		"laadGemeente":                "0344",
		"laadNuts3":                   "NL310",
		"losPC4":                      "1012",
		"losNuts3":                    "NL329",
		"stadslogistieke_klasse_code": "3",
		"euronormKlasse":              "6",
		"brandstofsoortKlasse":        "1",
		"dummy_laadInROI":             "1",
		"dummy_losInROI":              "0",
		"zendingAantal":               "2,6e+03",
		"brutoGewicht":                "1.234,5",
		"zendingAfstandGemiddeld":     "bogus",
		"laad_zone_emissiezonePC6":    "ja",
		"los_zone_emissiezonePC6":     "",
	})

	assert.Equal(t, 2600.0, rec.ShipmentCount)
	assert.Equal(t, 1234.5, rec.GrossWeight)
	assert.Equal(t, 0.0, rec.AverageDistance)

	assert.Equal(t, "Pakket", rec.LogisticsClass)
	assert.Equal(t, "Brandstof 1", rec.FuelClass)
	assert.Equal(t, "6", rec.EmissionClass)

	assert.True(t, rec.Origin.InROI)
	assert.False(t, rec.Destination.InROI)
	assert.Equal(t, "3511AB", rec.Origin.GeoKey)
	assert.Equal(t, types.GeoLevelFine, rec.Origin.GeoLevel)
	assert.Equal(t, "1012", rec.Destination.GeoKey)
	assert.Equal(t, types.GeoLevelCoarse, rec.Destination.GeoLevel)
	assert.Equal(t, "1012", rec.Destination.DomesticCoarsePostal)

	require.NotNil(t, rec.Origin.Zones.Emission)
	assert.Equal(t, "ja", *rec.Origin.Zones.Emission)
	assert.Nil(t, rec.Origin.Zones.Pedestrian)
	assert.Nil(t, rec.Destination.Zones.Emission)
}

func TestSubTrip_LabelsFallBack(t *testing.T) {
	reg := lookup.NewRegistry()
	reg.Set(lookup.CategoryMaxWeight, []types.LookupEntry{{Code: "2", Description: "3,5 - 12 ton"}})
	e := newEnricher(reg)

	rec := e.SubTrip(types.RawRow{
		"jaar":                                "2023",
		"voertuigsoortRDW":                    "1",
		"laadNuts3":                           "NL310",
		"losNuts3":                            "NL310",
		"stadslogistieke_klasse_code":         "8",
		"stadslogistieke_klasse_legeRit_code": "1",
		"maxToegestaanGewicht_klasse":         "2",
		"laadvermogenCombinatie_klasse":       "4",
		"leeggewichtCombinatie_klasse":        "",
		"aantalDeelritten":                    "12",
		"aantalLegeDeelritten":                "3",
		"beladingsgraadGewichtGemiddeld":      "45,5",
	})

	assert.Equal(t, "Bestelwagen", rec.VehicleType)
	assert.Equal(t, "Klasse 8", rec.LogisticsClass)
	assert.Equal(t, "Lege rit 1", rec.EmptyTripClass)
	assert.Equal(t, "3,5 - 12 ton", rec.MaxWeightClass)
	assert.Equal(t, "Laadvermogen 4", rec.PayloadClass)
	assert.Equal(t, "", rec.UnladenWeightClass)
	assert.Equal(t, 12.0, rec.TripCount)
	assert.Equal(t, 3.0, rec.EmptyTripCount)
	assert.Equal(t, 45.5, rec.AverageLoadFactor)
	assert.True(t, rec.National)
}

func TestEnrich_Deterministic(t *testing.T) {
	reg := lookup.NewRegistry()
	e := newEnricher(reg)
	row := types.RawRow{"jaar": "2023", "laadPC6": "3511AB", "laadNuts3": "NL310", "losNuts3": "BE100", "aantalDeelritten": "4"}

	first := e.SubTrip(row)
	second := e.SubTrip(row)
	assert.Equal(t, first, second)
	assert.Empty(t, reg.Loaded(), "enrichment must not populate the registry")
}
