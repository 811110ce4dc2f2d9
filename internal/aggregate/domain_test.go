package aggregate

import (
	"testing"

	"github.com/ginjaninja78/freight-survey-ingest/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shipment(origin, dest string, count float64) types.ShipmentRecord {
	r := types.ShipmentRecord{ShipmentCount: count}
	r.Origin.Country, r.Destination.Country = origin, dest
	r.National = origin == "NL" && dest == "NL"
	r.International = origin != "" && dest != "" && !r.National
	r.Import = origin != "" && origin != "NL"
	r.Export = dest != "" && dest != "NL"
	return r
}

func subTrip(class string, trips, loadFactor float64) types.SubTripRecord {
	r := types.SubTripRecord{TripCount: trips, AverageLoadFactor: loadFactor}
	r.LogisticsClass = class
	r.National = true
	return r
}

func TestEndToEnd_CountryGrouping(t *testing.T) {
	records := []types.ShipmentRecord{
		shipment("NL", "NL", 10),
		shipment("DE", "NL", 5),
	}

	byOrigin := DistributionBy(records, func(r types.ShipmentRecord) string { return r.Origin.Country }, ShipmentCount)
	assert.Equal(t, []Group{{Name: "NL", Value: 10}, {Name: "DE", Value: 5}}, byOrigin)

	byDest := DistributionBy(records, func(r types.ShipmentRecord) string { return r.Destination.Country }, ShipmentCount)
	assert.Equal(t, []Group{{Name: "NL", Value: 15}}, byDest)

	assert.Equal(t, 10.0, SumTotals(National(records), ShipmentCount))
	assert.Equal(t, TradeShare{Import: 1, Export: 0}, ImportExportShare(records))
}

func TestSumSubTripKPIs(t *testing.T) {
	kpis := SumSubTripKPIs([]types.SubTripRecord{
		subTrip("Bouw", 10, 40),
		subTrip("Bouw", 30, 80),
	})
	assert.Equal(t, 40.0, kpis.Trips)
	assert.InDelta(t, 0.7, kpis.LoadFactor, 1e-12)

	assert.Equal(t, SubTripKPIs{}, SumSubTripKPIs(nil))
}

func TestShares(t *testing.T) {
	a := subTrip("Bouw", 6, 0)
	a.EmissionClass = "6"
	a.EmptyTripCount = 3
	b := subTrip("Bouw", 4, 0)
	b.EmissionClass = "5"

	records := []types.SubTripRecord{a, b}
	assert.InDelta(t, 0.6, Euro6Share(records), 1e-12)
	assert.InDelta(t, 0.3, EmptyTripShare(records), 1e-12)
	assert.Equal(t, 0.0, Euro6Share(nil))
}

func TestShipmentsPerClass(t *testing.T) {
	a := shipment("NL", "NL", 2)
	a.LogisticsClass, a.GrossWeight = "Pakket", 100
	b := shipment("NL", "NL", 7)
	b.LogisticsClassCode, b.GrossWeight = "9", 50
	c := shipment("NL", "NL", 1)
	c.LogisticsClass, c.GrossWeight = "Pakket", 10

	got := ShipmentsPerClass([]types.ShipmentRecord{a, b, c})
	assert.Equal(t, []ClassCount{
		{Class: "Klasse 9", Count: 7, Weight: 50},
		{Class: "Pakket", Count: 3, Weight: 110},
	}, got)
}

func TestLoadFactorPerClass(t *testing.T) {
	empty := subTrip(EmptyTripClass, 50, 0)
	foreign := subTrip("Bouw", 100, 100)
	foreign.National = false

	byYear := map[int][]types.SubTripRecord{
		2022: {subTrip("Bouw", 10, 50), subTrip("Food", 10, 20)},
		2023: {subTrip("Bouw", 10, 30), subTrip("Bouw", 30, 70), subTrip("Food", 10, 90), empty, foreign},
	}

	got := LoadFactorPerClass(byYear)
	require.Len(t, got, 2)
	assert.Equal(t, "Food", got[0].Class)
	assert.Equal(t, map[int]float64{2022: 20, 2023: 90}, got[0].Values)
	assert.Equal(t, "Bouw", got[1].Class)
	assert.Equal(t, map[int]float64{2022: 50, 2023: 60}, got[1].Values)
}

func TestSubTripsPerClassPerYear(t *testing.T) {
	byYear := map[int][]types.SubTripRecord{
		2022: {subTrip("Bouw", 10, 0)},
		2023: {subTrip("Food", 4, 0), subTrip("Bouw", 1, 0)},
	}

	got := SubTripsPerClassPerYear(byYear)
	require.Len(t, got, 2)
	assert.Equal(t, ClassYearValues{Class: "Food", Values: map[int]float64{2022: 0, 2023: 4}}, got[0])
	assert.Equal(t, ClassYearValues{Class: "Bouw", Values: map[int]float64{2022: 10, 2023: 1}}, got[1])
}

func TestVehicleTypeSharePerYear(t *testing.T) {
	a := subTrip("", 3, 0)
	a.VehicleType = "Bestelwagen"
	b := subTrip("", 1, 0)
	b.VehicleTypeCode = "7"

	got := VehicleTypeSharePerYear(map[int][]types.SubTripRecord{2023: {a, b}})
	require.Len(t, got, 1)
	assert.Equal(t, []Group{{Name: "Bestelwagen", Value: 0.75}, {Name: "Voertuigsoort 7", Value: 0.25}}, got[0].Shares)
}

func TestTrendSubTripsKms(t *testing.T) {
	intra := subTrip("", 2, 0)
	intra.Origin.Municipality, intra.Destination.Municipality = "0344", "0344"
	intra.AverageDistance = 12.5
	outbound := subTrip("", 3, 0)
	outbound.Origin.Municipality, outbound.Destination.Municipality = "0344", "0363"
	outbound.AverageDistance = 40

	got := TrendSubTripsKms(map[int][]types.SubTripRecord{2023: {intra, outbound}}, "0344")
	assert.Equal(t, []TrendPoint{{Year: 2023, Value: 5, Value2: 25}}, got)
}

func TestRegionShares(t *testing.T) {
	in1 := shipment("NL", "NL", 6)
	in1.Origin.Region, in1.Destination.Municipality = "NL329", "0344"
	in2 := shipment("DE", "NL", 2)
	in2.Origin.Region, in2.Destination.Municipality = "DE100", "0344"
	out := shipment("NL", "BE", 4)
	out.Origin.Municipality, out.Destination.Region = "0344", "BE100"

	records := []types.ShipmentRecord{in1, in2, out}

	inbound := RegionShareInbound(records, "0344", ShipmentCount)
	assert.Equal(t, []Share{
		{Key: "NL329", Value: 6, Percentage: 0.75},
		{Key: "DE100", Value: 2, Percentage: 0.25},
	}, inbound)

	outbound := RegionShareOutbound(records, "0344", ShipmentCount)
	assert.Equal(t, []Share{{Key: "BE100", Value: 4, Percentage: 1}}, outbound)
}

func TestInternationalPerCountry(t *testing.T) {
	records := []types.ShipmentRecord{
		shipment("DE", "NL", 5),
		shipment("NL", "BE", 8),
		shipment("NL", "DE", 1),
		shipment("NL", "NL", 100),
		shipment("DE", "", 50),
	}

	got := InternationalPerCountry(records, "NL", ShipmentCount)
	assert.Equal(t, []CountryFlow{
		{Country: "België", CountryCode: "BE", Unloaded: 8},
		{Country: "Duitsland", CountryCode: "DE", Loaded: 5, Unloaded: 1},
	}, got)
}

func TestPostalRollups(t *testing.T) {
	a := subTrip("", 10, 50)
	a.Origin.FinePostal, a.Origin.DomesticCoarsePostal, a.GrossWeight = "3511AB", "3511", 100
	b := subTrip("", 30, 10)
	b.Origin.FinePostal, b.Origin.DomesticCoarsePostal = "3511", "3511"
	c := subTrip("", 5, 0)
	c.Origin.FinePostal = "DE12"

	pc4 := SubTripsPerPC4([]types.SubTripRecord{a, b, c}, true)
	require.Len(t, pc4, 1)
	assert.Equal(t, "3511", pc4[0].Code)
	assert.Equal(t, 40.0, pc4[0].Count)
	assert.InDelta(t, 0.2, pc4[0].LoadFactor, 1e-12)

	pc6 := SubTripsPerPC6([]types.SubTripRecord{a, b, c}, true)
	require.Len(t, pc6, 1)
	assert.Equal(t, "3511AB", pc6[0].Code)

	assert.Empty(t, SubTripsPerPC4([]types.SubTripRecord{a}, false))
}

func TestEmissionZoneDistribution(t *testing.T) {
	ja, nee := "Ja", "nee"
	a := shipment("NL", "NL", 4)
	a.Origin.Zones.Emission = &ja
	b := shipment("NL", "NL", 1)
	b.Origin.Zones.Emission = &nee
	c := shipment("NL", "NL", 100)

	got := EmissionZoneDistribution([]types.ShipmentRecord{a, b, c}, true, ShipmentCount)
	assert.Equal(t, []Group{{Name: "Ja", Value: 4}, {Name: "Nee", Value: 1}}, got)

	assert.Nil(t, EmissionZoneDistribution([]types.ShipmentRecord{a, b, c}, false, ShipmentCount))
}

func TestSubTripDistributions(t *testing.T) {
	a := subTrip("", 2, 0)
	a.FuelClass, a.MaxWeightClass, a.VehicleType = "Diesel", "> 12 ton", "Trekker"
	b := subTrip("", 5, 0)
	b.FuelClassCode, b.VehicleTypeCode = "4", "9"

	records := []types.SubTripRecord{a, b}
	assert.Equal(t, []Group{{Name: "Brandstof 4", Value: 5}, {Name: "Diesel", Value: 2}}, FuelDistribution(records))
	assert.Equal(t, []Group{{Name: "Onbekend", Value: 5}, {Name: "> 12 ton", Value: 2}}, WeightClassDistribution(records))
	assert.Equal(t, []Group{{Name: "Voertuigsoort 9", Value: 5}, {Name: "Trekker", Value: 2}}, VehicleDistribution(records))
}
