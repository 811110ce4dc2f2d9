package reportwriter

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/freight-survey-ingest/internal/aggregate"
	"github.com/ginjaninja78/freight-survey-ingest/internal/classifier"
	"github.com/ginjaninja78/freight-survey-ingest/internal/converter"
	"github.com/ginjaninja78/freight-survey-ingest/internal/dataset"
	"github.com/ginjaninja78/freight-survey-ingest/internal/filter"
	"github.com/ginjaninja78/freight-survey-ingest/internal/types"
)

func shipment(year int, count float64, destCountry string) types.ShipmentRecord {
	r := types.ShipmentRecord{ShipmentCount: count}
	r.Year = year
	r.GrossWeight = count * 100
	r.Origin.Municipality = "344"
	r.Origin.InROI = true
	r.Origin.Country = "NL"
	r.Destination.Country = destCountry
	r.National = destCountry == "NL"
	r.International = !r.National
	r.Export = destCountry != "NL"
	return r
}

func subTrip(year int, trips, loadFactor float64) types.SubTripRecord {
	r := types.SubTripRecord{TripCount: trips, AverageLoadFactor: loadFactor, VehicleType: "Trekker"}
	r.Year = year
	r.LogisticsClass = "Bouw"
	r.EmissionClass = "6"
	r.FuelClass = "Diesel"
	r.National = true
	return r
}

func testSession() *dataset.Session {
	s := dataset.New()
	s.Commit(dataset.Batch{
		Shipments: map[int][]types.ShipmentRecord{
			2022: {shipment(2022, 4, "NL")},
			2023: {shipment(2023, 10, "NL"), shipment(2023, 5, "DE")},
		},
		SubTrips: map[int][]types.SubTripRecord{
			2023: {subTrip(2023, 30, 50), subTrip(2023, 10, 100)},
		},
		Files: []classifier.Detection{
			{Name: "VESDI_PC6_Utrecht_2023_zendingen.csv", Role: classifier.RoleShipmentData, Status: classifier.StatusValid, Year: 2023},
			{Name: "notes.txt", Role: classifier.RoleUnknown, Status: classifier.StatusError, Message: "unsupported file type"},
		},
	})
	s.DetectMunicipality()
	return s
}

// regionSession holds 2023 shipments with NUTS3 regions and logistics
// classes, and sub-trips with postal codes.
func regionSession() *dataset.Session {
	routed := func(count float64, class, from, to string) types.ShipmentRecord {
		r := shipment(2023, count, "NL")
		r.LogisticsClass = class
		r.Origin.Region = from
		r.Destination.Region = to
		return r
	}
	inbound := routed(6, "Bouw", "NL329", "NL310")
	inbound.Origin.Municipality = "363"
	inbound.Origin.InROI = false
	inbound.Destination.Municipality = "344"

	postal := func(trips, loadFactor float64, fromPC6, toPC4 string) types.SubTripRecord {
		r := subTrip(2023, trips, loadFactor)
		r.GrossWeight = trips * 10
		r.Origin.FinePostal = fromPC6
		r.Origin.DomesticCoarsePostal = fromPC6[:4]
		r.Destination.FinePostal = toPC4
		r.Destination.DomesticCoarsePostal = toPC4
		return r
	}

	s := dataset.New()
	s.Commit(dataset.Batch{
		Shipments: map[int][]types.ShipmentRecord{
			2023: {
				routed(10, "Bouw", "NL310", "NL329"),
				routed(5, "Afval", "NL310", "NL332"),
				routed(2, "Bouw", "NL310", "NL310"),
				inbound,
			},
		},
		SubTrips: map[int][]types.SubTripRecord{
			2023: {postal(30, 50, "3511AB", "1012"), postal(10, 100, "3511CD", "2511")},
		},
	})
	s.DetectMunicipality()
	return s
}

func sheetRows(t *testing.T, f *excelize.File, sheet string) [][]string {
	t.Helper()
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	return rows
}

func generate(t *testing.T, in Input) *excelize.File {
	t.Helper()
	data, err := Generate(in, Options{Now: func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

// labelled maps the first column of a sheet to its second.
func labelled(t *testing.T, f *excelize.File, sheet string) map[string]string {
	t.Helper()
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	require.NoError(t, err)

	out := make(map[string]string)
	for _, row := range rows {
		if len(row) >= 2 {
			out[row[0]] = row[1]
		}
	}
	return out
}

func TestGenerate_Sheets(t *testing.T) {
	f := generate(t, Input{Session: testSession()})
	assert.Equal(t, []string{
		SheetOverview, SheetTrends, SheetLoadFactor, SheetClasses,
		SheetDistribution, SheetVehicles, SheetRegions, SheetPostalAreas,
		SheetCountries, SheetFiles, SheetCompleteness,
	}, f.GetSheetList())
}

func TestGenerate_Overview(t *testing.T) {
	tests := []struct {
		name    string
		filters filter.Filters
		want    map[string]string
	}{
		{
			name: "latest year",
			want: map[string]string{
				"Gemeente":       "Utrecht (344)",
				"Jaren":          "2022, 2023",
				"Rapportjaar":    "2023",
				"Filters":        "geen",
				"Gegenereerd":    "2024-05-01 12:00:00",
				"Zendingen":      "15",
				"Deelritten":     "40",
				"Beladingsgraad": "0.625",
				"Aandeel Euro 6": "1",
			},
		},
		{
			name:    "filtered year and trade",
			filters: filter.Filters{Year: 2023, Trade: filter.TradeExport},
			want: map[string]string{
				"Rapportjaar":    "2023",
				"Filters":        "jaar=2023, handel=export",
				"Zendingen":      "5",
				"Aandeel export": "1",
				"Deelritten":     "0",
			},
		},
		{
			name:    "earlier year",
			filters: filter.Filters{Year: 2022},
			want: map[string]string{
				"Rapportjaar": "2022",
				"Zendingen":   "4",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := labelled(t, generate(t, Input{Session: testSession(), Filters: tt.filters}), SheetOverview)
			for label, value := range tt.want {
				assert.Equal(t, value, got[label], label)
			}
		})
	}
}

func TestGenerate_TrendsAndCountries(t *testing.T) {
	f := generate(t, Input{Session: testSession()})

	trends, err := f.GetRows(SheetTrends, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, trends, 3)
	assert.Equal(t, []string{"2022", "0", "0", "0", "4", "400"}, trends[1])
	assert.Equal(t, "2023", trends[2][0])
	assert.Equal(t, "40", trends[2][1])

	countries, err := f.GetRows(SheetCountries, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, countries, 2)
	assert.Equal(t, []string{"Duitsland", "DE", "0", "5"}, countries[1])
}

func TestGenerate_ClassesAndVehicles(t *testing.T) {
	f := generate(t, Input{Session: regionSession()})

	classes := sheetRows(t, f, SheetClasses)
	require.Len(t, classes, 9)
	assert.Equal(t, "Zendingen per klasse", classes[0][0])
	assert.Equal(t, []string{"Bouw", "18", "1800"}, classes[1])
	assert.Equal(t, []string{"Afval", "5", "500"}, classes[2])
	assert.Equal(t, "Deelritten per klasse", classes[4][0])
	assert.Equal(t, []string{"Bouw", "40", "400"}, classes[5])
	assert.Equal(t, []string{"Nationale deelritten per klasse", "2023"}, classes[7])
	assert.Equal(t, []string{"Bouw", "40"}, classes[8])

	vehicles := sheetRows(t, f, SheetVehicles)
	require.Len(t, vehicles, 2)
	assert.Equal(t, []string{"Voertuigsoort", "2023"}, vehicles[0])
	assert.Equal(t, []string{"Trekker", "1"}, vehicles[1])
}

func TestGenerate_Regions(t *testing.T) {
	tests := []struct {
		name    string
		session *dataset.Session
		want    [][]string
	}{
		{
			name:    "municipality detected",
			session: regionSession(),
			want: [][]string{
				{"Herkomstregio inkomend", "Zendingen", "Aandeel"},
				{"NL329", "6", "1"},
				nil,
				{"Bestemmingsregio uitgaand", "Zendingen", "Aandeel"},
				{"NL329", "10"},
				{"NL332", "5"},
				{"NL310", "2"},
				nil,
				{"Herkomstregio", "Bestemmingsregio", "Zendingen"},
				{"NL310", "NL329", "10"},
				{"NL329", "NL310", "6"},
				{"NL310", "NL332", "5"},
			},
		},
		{
			name:    "no municipality",
			session: dataset.New(),
			want: [][]string{
				{"Herkomstregio inkomend", "Zendingen", "Aandeel"},
				nil,
				{"Bestemmingsregio uitgaand", "Zendingen", "Aandeel"},
				nil,
				{"Herkomstregio", "Bestemmingsregio", "Zendingen"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := sheetRows(t, generate(t, Input{Session: tt.session}), SheetRegions)
			require.Len(t, rows, len(tt.want))
			for i, want := range tt.want {
				if want == nil {
					assert.Empty(t, rows[i], "row %d", i)
					continue
				}
				require.GreaterOrEqual(t, len(rows[i]), len(want), "row %d", i)
				assert.Equal(t, want, rows[i][:len(want)], "row %d", i)
			}
		})
	}
}

func TestGenerate_PostalAreas(t *testing.T) {
	rows := sheetRows(t, generate(t, Input{Session: regionSession()}), SheetPostalAreas)
	require.Len(t, rows, 12)

	assert.Equal(t, "PC4 herkomst", rows[0][0])
	assert.Equal(t, []string{"3511", "40", "400", "0.625"}, rows[1])
	assert.Equal(t, "PC4 bestemming", rows[3][0])
	assert.Equal(t, []string{"1012", "30", "300", "0.5"}, rows[4])
	assert.Equal(t, []string{"2511", "10", "100", "1"}, rows[5])

	// Destination codes are too short for the PC6 roll-up.
	assert.Equal(t, "PC6 herkomst (top 25)", rows[7][0])
	assert.Equal(t, []string{"3511AB", "30", "300", "0.5"}, rows[8])
	assert.Equal(t, []string{"3511CD", "10", "100", "1"}, rows[9])
	assert.Equal(t, []string{"PC6 bestemming (top 25)", "Deelritten", "Bruto gewicht (kg)", "Beladingsgraad"}, rows[11])
}

func TestLimitAreas(t *testing.T) {
	areas := []aggregate.PostalArea{{Code: "a"}, {Code: "b"}, {Code: "c"}}
	assert.Len(t, limitAreas(areas, 2), 2)
	assert.Len(t, limitAreas(areas, 5), 3)
}

func TestGenerate_FilesAndCompleteness(t *testing.T) {
	results := []converter.Result{{
		File:         "VESDI_PC6_Utrecht_2023_zendingen.csv",
		Completeness: []aggregate.Completeness{{Field: "jaar", Completeness: 1}, {Field: "laadGemeente", Completeness: 0.5}},
	}}
	f := generate(t, Input{Session: testSession(), Results: results})

	files, err := f.GetRows(SheetFiles)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "notes.txt", files[2][0])
	assert.Equal(t, string(classifier.StatusError), files[2][2])

	completeness, err := f.GetRows(SheetCompleteness, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, completeness, 3)
	assert.Equal(t, []string{"VESDI_PC6_Utrecht_2023_zendingen.csv", "laadGemeente", "0.5"}, completeness[2])
}

func TestGenerate_EmptySession(t *testing.T) {
	got := labelled(t, generate(t, Input{Session: dataset.New()}), SheetOverview)
	assert.Equal(t, "onbekend", got["Gemeente"])
	assert.Equal(t, "0", got["Zendingen"])
}

func TestGenerate_InvalidFilters(t *testing.T) {
	_, err := Generate(Input{Session: dataset.New(), Filters: filter.Filters{Trade: "sideways"}}, Options{})
	assert.Error(t, err)
}
