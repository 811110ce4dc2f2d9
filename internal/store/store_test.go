package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/freight-survey-ingest/internal/aggregate"
	"github.com/ginjaninja78/freight-survey-ingest/internal/dataset"
	"github.com/ginjaninja78/freight-survey-ingest/internal/filter"
	"github.com/ginjaninja78/freight-survey-ingest/internal/lookup"
	"github.com/ginjaninja78/freight-survey-ingest/internal/types"
)

func zone(v string) *string { return &v }

func openTestStore(t *testing.T) Store {
	t.Helper()
	// A chunk size of 2 forces multi-statement inserts.
	s, err := Open(DriverSQLite, ":memory:", Options{ChunkSize: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testShipments() []types.ShipmentRecord {
	mk := func(year int, emission string, count, weight float64, imp, exp bool, zoneOrigin *string) types.ShipmentRecord {
		r := types.ShipmentRecord{ShipmentCount: count, AverageDistance: 12.5}
		r.Year = year
		r.EmissionClass = emission
		r.GrossWeight = weight
		r.Import, r.Export = imp, exp
		r.International = imp || exp
		r.National = !r.International
		r.Origin.Zones.Emission = zoneOrigin
		r.Origin.GeoKey, r.Origin.GeoLevel = "3511AB", types.GeoLevelFine
		return r
	}
	return []types.ShipmentRecord{
		mk(2022, "5", 10, 1000, false, false, zone("ja")),
		mk(2023, "6", 20, 2500, true, false, zone("nee")),
		mk(2023, "6", 5, 400, false, true, nil),
		mk(2023, "5", 7, 900, false, false, zone("ja")),
	}
}

func testSubTrips() []types.SubTripRecord {
	mk := func(year int, vehicle, emission string, trips, weight, loadFactor float64, zoneDest *string) types.SubTripRecord {
		r := types.SubTripRecord{
			VehicleTypeCode:   vehicle,
			VehicleType:       "Voertuigsoort " + vehicle,
			TripCount:         trips,
			AverageLoadFactor: loadFactor,
		}
		r.Year = year
		r.EmissionClass = emission
		r.GrossWeight = weight
		r.National = true
		r.Destination.Zones.Emission = zoneDest
		return r
	}
	return []types.SubTripRecord{
		mk(2022, "1", "6", 10, 100, 40, nil),
		mk(2023, "1", "6", 30, 300, 80, zone("ja")),
		mk(2023, "2", "5", 5, 200, 50, zone("nee")),
		mk(2023, "2", "6", 15, 150, 20, zone("ja")),
		mk(2023, "3", "", 0, 0, 0, nil),
	}
}

func testDataset() Dataset {
	return Dataset{
		ID:           uuid.New(),
		Municipality: types.Municipality{Code: "344", Name: "Utrecht"},
		Years:        []int{2022, 2023},
		Shipments:    testShipments(),
		SubTrips:     testSubTrips(),
		Lookups: map[lookup.Category][]types.LookupEntry{
			lookup.CategoryFuel: {
				{Code: "2", Description: "Benzine"},
				{Code: "1", Description: "Diesel"},
			},
		},
		Regions: []types.RegionMapping{
			{MunicipalCode: "0344", MunicipalName: "Utrecht", NUTS1: "NL3", NUTS2: "NL31", NUTS3: "NL310", Urbanization: "1"},
		},
	}
}

func TestSync_Metadata(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	ds := testDataset()

	require.NoError(t, s.Migrate(ctx), "migrate is repeatable")
	require.NoError(t, s.Sync(ctx, ds))

	years, err := s.Years(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{2022, 2023}, years)

	m, err := s.Municipality(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, ds.Municipality, m)

	fuel, err := s.LookupTable(ctx, ds.ID, lookup.CategoryFuel)
	require.NoError(t, err)
	assert.Equal(t, []types.LookupEntry{{Code: "1", Description: "Diesel"}, {Code: "2", Description: "Benzine"}}, fuel)

	empty, err := s.LookupTable(ctx, ds.ID, lookup.CategoryVehicleType)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = s.Years(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSync_ReplacesMunicipalityDataset(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	first := testDataset()
	require.NoError(t, s.Sync(ctx, first))

	second := testDataset()
	second.Years = []int{2024}
	second.Shipments = second.Shipments[:1]
	require.NoError(t, s.Sync(ctx, second))

	_, err := s.Municipality(ctx, first.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	years, err := s.Years(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{2024}, years)

	kpis, err := s.ShipmentKPIs(ctx, first.ID, filter.Filters{})
	require.NoError(t, err)
	assert.Zero(t, kpis.Count, "rows of the replaced dataset are gone")

	kpis, err = s.ShipmentKPIs(ctx, second.ID, filter.Filters{})
	require.NoError(t, err)
	assert.Equal(t, 10.0, kpis.Count)
}

func TestSync_InvalidDataset(t *testing.T) {
	s := openTestStore(t)

	ds := testDataset()
	ds.Municipality = types.Municipality{}
	assert.ErrorIs(t, s.Sync(context.Background(), ds), ErrInvalidDataset)

	_, err := FromSession(dataset.New())
	assert.ErrorIs(t, err, ErrInvalidDataset)
}

func TestKPIs_MatchInProcessFiltering(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	ds := testDataset()
	require.NoError(t, s.Sync(ctx, ds))

	tests := []struct {
		name    string
		filters filter.Filters
	}{
		{"no filters", filter.Filters{}},
		{"year", filter.Filters{Year: 2023}},
		{"emission class", filter.Filters{EmissionClass: "6"}},
		{"origin zone", filter.Filters{ZoneOrigin: "ja"}},
		{"destination zone", filter.Filters{ZoneDestination: "ja"}},
		{"import", filter.Filters{Trade: filter.TradeImport}},
		{"export", filter.Filters{Trade: filter.TradeExport}},
		{"vehicle type", filter.Filters{VehicleType: "2"}},
		{"combined", filter.Filters{Year: 2023, EmissionClass: "6", VehicleType: "1"}},
		{"nothing matches", filter.Filters{Year: 1999}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := aggregate.SumShipmentKPIs(filter.Apply(ds.Shipments, tt.filters))
			got, err := s.ShipmentKPIs(ctx, ds.ID, tt.filters)
			require.NoError(t, err)
			assert.InDelta(t, want.Count, got.Count, 1e-9)
			assert.InDelta(t, want.Weight, got.Weight, 1e-9)

			wantTrips := aggregate.SumSubTripKPIs(filter.Apply(ds.SubTrips, tt.filters))
			gotTrips, err := s.SubTripKPIs(ctx, ds.ID, tt.filters)
			require.NoError(t, err)
			assert.InDelta(t, wantTrips.Trips, gotTrips.Trips, 1e-9)
			assert.InDelta(t, wantTrips.Weight, gotTrips.Weight, 1e-9)
			assert.InDelta(t, wantTrips.LoadFactor, gotTrips.LoadFactor, 1e-9)
		})
	}
}

func TestSubTripKPIs_LoadFactorIsTripWeighted(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	ds := testDataset()
	require.NoError(t, s.Sync(ctx, ds))

	// (30*0.8 + 15*0.2) / 45
	k, err := s.SubTripKPIs(ctx, ds.ID, filter.Filters{Year: 2023, EmissionClass: "6"})
	require.NoError(t, err)
	assert.Equal(t, 45.0, k.Trips)
	assert.InDelta(t, 0.6, k.LoadFactor, 1e-9)
}

func TestKPIs_RejectInvalidFilters(t *testing.T) {
	s := openTestStore(t)
	_, err := s.ShipmentKPIs(context.Background(), uuid.New(), filter.Filters{Trade: "sideways"})
	assert.Error(t, err)
}

func TestSubTrips_Pagination(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	ds := testDataset()
	require.NoError(t, s.Sync(ctx, ds))

	tests := []struct {
		name      string
		filters   filter.Filters
		page      Page
		wantLen   int
		wantTotal int
		wantPages int
		wantPage  Page
	}{
		{"defaults", filter.Filters{}, Page{}, 5, 5, 1, Page{Page: 1, PageSize: 100}},
		{"first page", filter.Filters{}, Page{Page: 1, PageSize: 2}, 2, 5, 3, Page{Page: 1, PageSize: 2}},
		{"last page", filter.Filters{}, Page{Page: 3, PageSize: 2}, 1, 5, 3, Page{Page: 3, PageSize: 2}},
		{"past the end", filter.Filters{}, Page{Page: 9, PageSize: 2}, 0, 5, 3, Page{Page: 9, PageSize: 2}},
		{"filtered", filter.Filters{VehicleType: "2"}, Page{PageSize: 10}, 2, 2, 1, Page{Page: 1, PageSize: 10}},
		{"no match", filter.Filters{Year: 1999}, Page{}, 0, 0, 0, Page{Page: 1, PageSize: 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.SubTrips(ctx, ds.ID, tt.filters, tt.page)
			require.NoError(t, err)
			assert.Len(t, got.Data, tt.wantLen)
			assert.Equal(t, tt.wantTotal, got.Total)
			assert.Equal(t, tt.wantPages, got.TotalPages)
			assert.Equal(t, tt.wantPage, Page{Page: got.Page, PageSize: got.PageSize})
		})
	}
}

func TestSubTrips_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	ds := testDataset()
	require.NoError(t, s.Sync(ctx, ds))

	got, err := s.SubTrips(ctx, ds.ID, filter.Filters{}, Page{})
	require.NoError(t, err)
	assert.Equal(t, ds.SubTrips, got.Data)
}

func TestSubTrips_InvalidPage(t *testing.T) {
	s := openTestStore(t)
	for _, p := range []Page{{Page: -1}, {PageSize: 1001}, {PageSize: -5}} {
		_, err := s.SubTrips(context.Background(), uuid.New(), filter.Filters{}, p)
		assert.Error(t, err, "%+v", p)
	}
}

func TestRowsPerStatement(t *testing.T) {
	assert.Equal(t, 5000, rowsPerStatement(5000, 4))
	assert.Equal(t, 30000/50, rowsPerStatement(5000, 50))
	assert.Equal(t, 2, rowsPerStatement(2, 50))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("mysql", "", Options{})
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}
