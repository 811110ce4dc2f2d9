package aggregate

import (
	"sort"
	"strings"

	"github.com/ginjaninja78/freight-survey-ingest/internal/geo"
	"github.com/ginjaninja78/freight-survey-ingest/internal/types"
	"github.com/shopspring/decimal"
)

// EmptyTripClass is the logistics class of empty sub-trips.
const EmptyTripClass = "***Lege_rit***"

// EmissionClassEuro6 is the emission class counted as Euro 6.
const EmissionClassEuro6 = "6"

const (
	labelUnknown  = "Onbekend"
	labelYes      = "Ja"
	labelNo       = "Nee"
	topLoadFactor = 10
)

// =============================================================================
// MEASURES
// =============================================================================

// ShipmentCount is the shipment count of a shipment.
func ShipmentCount(r types.ShipmentRecord) float64 { return r.ShipmentCount }

// ShipmentWeight is the gross weight of a shipment.
func ShipmentWeight(r types.ShipmentRecord) float64 { return r.GrossWeight }

// TripCount is the trip count of a sub-trip.
func TripCount(r types.SubTripRecord) float64 { return r.TripCount }

// TripWeight is the gross weight of a sub-trip.
func TripWeight(r types.SubTripRecord) float64 { return r.GrossWeight }

// LoadFactor is the average load factor (0-100) of a sub-trip.
func LoadFactor(r types.SubTripRecord) float64 { return r.AverageLoadFactor }

// logisticsLabel returns the class label, or a synthesized one.
func logisticsLabel(m *types.Movement) string {
	if m.LogisticsClass != "" {
		return m.LogisticsClass
	}
	return "Klasse " + m.LogisticsClassCode
}

// =============================================================================
// SUBSETS
// =============================================================================

// National returns the records flagged national.
func National[E any, P types.Record[E]](records []E) []E {
	return where[E, P](records, func(m *types.Movement) bool { return m.National })
}

// International returns the records flagged international.
func International[E any, P types.Record[E]](records []E) []E {
	return where[E, P](records, func(m *types.Movement) bool { return m.International })
}

func where[E any, P types.Record[E]](records []E, keep func(*types.Movement) bool) []E {
	out := make([]E, 0, len(records))
	for i := range records {
		if keep(P(&records[i]).Core()) {
			out = append(out, records[i])
		}
	}
	return out
}

// =============================================================================
// KPIS
// =============================================================================

// ShipmentKPIs are the headline totals of a shipment collection.
type ShipmentKPIs struct {
	Count  float64 `json:"zendingAantal"`
	Weight float64 `json:"brutoGewicht"`
}

// SumShipmentKPIs totals shipment count and weight.
func SumShipmentKPIs(records []types.ShipmentRecord) ShipmentKPIs {
	return ShipmentKPIs{
		Count:  SumTotals(records, ShipmentCount),
		Weight: SumTotals(records, ShipmentWeight),
	}
}

// SubTripKPIs are the headline totals of a sub-trip collection.
type SubTripKPIs struct {
	Trips      float64 `json:"aantalDeelritten"`
	Weight     float64 `json:"brutoGewicht"`
	LoadFactor float64 `json:"beladingsgraad"`
}

// SumSubTripKPIs totals trips and weight; the load factor is the
// trip-weighted average as a fraction.
func SumSubTripKPIs(records []types.SubTripRecord) SubTripKPIs {
	return SubTripKPIs{
		Trips:      SumTotals(records, TripCount),
		Weight:     SumTotals(records, TripWeight),
		LoadFactor: WeightedAverage(records, LoadFactor, TripCount),
	}
}

// Euro6Share is the fraction of trips made by Euro 6 vehicles.
func Euro6Share(records []types.SubTripRecord) float64 {
	var euro6 float64
	for _, r := range records {
		if r.EmissionClass == EmissionClassEuro6 {
			euro6 += r.TripCount
		}
	}
	return ratio(euro6, SumTotals(records, TripCount))
}

// EmptyTripShare is the fraction of trips made empty.
func EmptyTripShare(records []types.SubTripRecord) float64 {
	empty := SumTotals(records, func(r types.SubTripRecord) float64 { return r.EmptyTripCount })
	return ratio(empty, SumTotals(records, TripCount))
}

// TradeShare is the import and export fraction of international volume.
type TradeShare struct {
	Import float64 `json:"importPct"`
	Export float64 `json:"exportPct"`
}

// ImportExportShare computes import and export shares over the
// international shipments.
func ImportExportShare(records []types.ShipmentRecord) TradeShare {
	intl := International(records)
	total := SumTotals(intl, ShipmentCount)

	var imp, exp float64
	for _, r := range intl {
		if r.Import {
			imp += r.ShipmentCount
		}
		if r.Export {
			exp += r.ShipmentCount
		}
	}
	return TradeShare{Import: ratio(imp, total), Export: ratio(exp, total)}
}

// =============================================================================
// PER CLASS
// =============================================================================

// ClassCount is the volume of one logistics class.
type ClassCount struct {
	Class  string  `json:"klasse"`
	Count  float64 `json:"count"`
	Weight float64 `json:"weight"`
}

// ShipmentsPerClass sums count and weight per logistics class.
func ShipmentsPerClass(records []types.ShipmentRecord) []ClassCount {
	return perClass(records, ShipmentCount)
}

// SubTripsPerClass sums trips and weight per logistics class.
func SubTripsPerClass(records []types.SubTripRecord) []ClassCount {
	return perClass(records, TripCount)
}

func perClass[E any, P types.Record[E]](records []E, count Measure[E]) []ClassCount {
	counts, weights := newGrouper(), newGrouper()
	for i := range records {
		m := P(&records[i]).Core()
		k := logisticsLabel(m)
		counts.add(k, count(records[i]))
		weights.add(k, m.GrossWeight)
	}

	out := make([]ClassCount, 0, len(counts.keys))
	for _, g := range counts.groups() {
		out = append(out, ClassCount{
			Class:  g.Name,
			Count:  g.Value,
			Weight: weights.sums[weights.index[g.Name]].float(),
		})
	}
	return out
}

// ClassYearValues holds one value per year for a class.
type ClassYearValues struct {
	Class  string          `json:"klasse"`
	Values map[int]float64 `json:"values"`
}

// LoadFactorPerClass is the trip-weighted load factor per logistics class
// and year over national sub-trips, as a rounded percentage. Empty trips
// are excluded; the ten classes with the highest latest-year value are
// returned.
func LoadFactorPerClass(byYear map[int][]types.SubTripRecord) []ClassYearValues {
	years := SortedYears(byYear)

	var classes []string
	seen := make(map[string]bool)
	national := make(map[int][]types.SubTripRecord, len(years))
	for _, y := range years {
		national[y] = National(byYear[y])
		for _, r := range national[y] {
			if r.LogisticsClass != "" && !seen[r.LogisticsClass] {
				seen[r.LogisticsClass] = true
				classes = append(classes, r.LogisticsClass)
			}
		}
	}

	out := make([]ClassYearValues, 0, len(classes))
	for _, class := range classes {
		if class == EmptyTripClass {
			continue
		}
		row := ClassYearValues{Class: class, Values: make(map[int]float64, len(years))}
		for _, y := range years {
			var inClass []types.SubTripRecord
			for _, r := range national[y] {
				if r.LogisticsClass == class {
					inClass = append(inClass, r)
				}
			}
			pct := decimal.NewFromFloat(WeightedAverage(inClass, LoadFactor, TripCount) * 100)
			row.Values[y] = pct.Round(0).InexactFloat64()
		}
		out = append(out, row)
	}

	sortByLatest(out, years)
	if len(out) > topLoadFactor {
		out = out[:topLoadFactor]
	}
	return out
}

// SubTripsPerClassPerYear sums national trips per logistics class and year,
// sorted by the latest year descending.
func SubTripsPerClassPerYear(byYear map[int][]types.SubTripRecord) []ClassYearValues {
	years := SortedYears(byYear)

	var out []ClassYearValues
	index := make(map[string]int)
	for _, y := range years {
		for _, r := range National(byYear[y]) {
			k := logisticsLabel(&r.Movement)
			i, ok := index[k]
			if !ok {
				i = len(out)
				index[k] = i
				out = append(out, ClassYearValues{Class: k, Values: make(map[int]float64, len(years))})
			}
			out[i].Values[y] += r.TripCount
		}
	}

	for i := range out {
		for _, y := range years {
			if _, ok := out[i].Values[y]; !ok {
				out[i].Values[y] = 0
			}
		}
	}

	sortByLatest(out, years)
	return out
}

func sortByLatest(rows []ClassYearValues, years []int) {
	if len(years) == 0 {
		return
	}
	latest := years[len(years)-1]
	sortStable(rows, func(a, b ClassYearValues) bool {
		return a.Values[latest] > b.Values[latest]
	})
}

// YearShares is the distribution of one year as fractions.
type YearShares struct {
	Year   int     `json:"year"`
	Shares []Group `json:"shares"`
}

// VehicleTypeSharePerYear is the share of national trips per vehicle type
// and year.
func VehicleTypeSharePerYear(byYear map[int][]types.SubTripRecord) []YearShares {
	years := SortedYears(byYear)
	out := make([]YearShares, 0, len(years))
	for _, y := range years {
		national := National(byYear[y])
		total := SumTotals(national, TripCount)
		groups := DistributionBy(national, vehicleLabel, TripCount)
		for i := range groups {
			groups[i].Value = ratio(groups[i].Value, total)
		}
		out = append(out, YearShares{Year: y, Shares: groups})
	}
	return out
}

func vehicleLabel(r types.SubTripRecord) string {
	if r.VehicleType != "" {
		return r.VehicleType
	}
	return "Voertuigsoort " + r.VehicleTypeCode
}

// =============================================================================
// TRENDS
// =============================================================================

// TrendSubTripsKms is, per year, the national trip count with the
// kilometres driven within the municipality as second value.
func TrendSubTripsKms(byYear map[int][]types.SubTripRecord, municipality string) []TrendPoint {
	return PerYearDualTrend(byYear,
		func(rows []types.SubTripRecord) float64 {
			return SumTotals(National(rows), TripCount)
		},
		func(rows []types.SubTripRecord) float64 {
			return SumTotals(National(rows), func(r types.SubTripRecord) float64 {
				if r.Origin.Municipality != municipality || r.Destination.Municipality != municipality {
					return 0
				}
				return r.AverageDistance * r.TripCount
			})
		},
	)
}

// TrendEuro6 is the Euro 6 share of national trips per year.
func TrendEuro6(byYear map[int][]types.SubTripRecord) []TrendPoint {
	return PerYearTrend(byYear, func(rows []types.SubTripRecord) float64 {
		return Euro6Share(National(rows))
	})
}

// TrendShipmentsWeight is the shipment count with gross weight as second
// value, per year.
func TrendShipmentsWeight(byYear map[int][]types.ShipmentRecord) []TrendPoint {
	return PerYearDualTrend(byYear,
		func(rows []types.ShipmentRecord) float64 { return SumTotals(rows, ShipmentCount) },
		func(rows []types.ShipmentRecord) float64 { return SumTotals(rows, ShipmentWeight) },
	)
}

// =============================================================================
// REGIONS AND COUNTRIES
// =============================================================================

// RegionShareInbound is the share per origin region of the volume
// delivered into the municipality.
func RegionShareInbound[E any, P types.Record[E]](records []E, municipality string, weight Measure[E]) []Share {
	to := where[E, P](records, func(m *types.Movement) bool { return m.Destination.Municipality == municipality })
	return PerRegionShare(to, func(r E) string { return P(&r).Core().Origin.Region }, weight)
}

// RegionShareOutbound is the share per destination region of the volume
// loaded in the municipality.
func RegionShareOutbound[E any, P types.Record[E]](records []E, municipality string, weight Measure[E]) []Share {
	from := where[E, P](records, func(m *types.Movement) bool { return m.Origin.Municipality == municipality })
	return PerRegionShare(from, func(r E) string { return P(&r).Core().Destination.Region }, weight)
}

// CountryFlow is the international volume exchanged with one country.
type CountryFlow struct {
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	Loaded      float64 `json:"geladenAantal"`
	Unloaded    float64 `json:"gelostAantal"`
}

// InternationalPerCountry sums international volume per foreign country:
// loaded when the origin is abroad, unloaded when the destination is.
// Sorted by total volume descending.
func InternationalPerCountry[E any, P types.Record[E]](records []E, domestic string, weight Measure[E]) []CountryFlow {
	var out []CountryFlow
	index := make(map[string]int)
	slot := func(code string) *CountryFlow {
		i, ok := index[code]
		if !ok {
			i = len(out)
			index[code] = i
			out = append(out, CountryFlow{Country: geo.CountryName(code), CountryCode: code})
		}
		return &out[i]
	}

	for i := range records {
		m := P(&records[i]).Core()
		if !m.International {
			continue
		}
		w := weight(records[i])
		if c := m.Origin.Country; c != "" && !strings.EqualFold(c, domestic) {
			slot(c).Loaded += w
		}
		if c := m.Destination.Country; c != "" && !strings.EqualFold(c, domestic) {
			slot(c).Unloaded += w
		}
	}

	sortStable(out, func(a, b CountryFlow) bool {
		return a.Loaded+a.Unloaded > b.Loaded+b.Unloaded
	})
	return out
}

// =============================================================================
// POSTAL AREAS
// =============================================================================

// PostalArea is the sub-trip volume of one postal area.
type PostalArea struct {
	Code       string  `json:"pc"`
	Count      float64 `json:"count"`
	Weight     float64 `json:"weight"`
	LoadFactor float64 `json:"beladingsgraad"`
}

// SubTripsPerPC4 rolls sub-trips up per domestic 4-character postal area
// of the origin (origin=true) or destination.
func SubTripsPerPC4(records []types.SubTripRecord, origin bool) []PostalArea {
	return perPostal(records, func(r types.SubTripRecord) string {
		return endpoint(r, origin).DomesticCoarsePostal
	})
}

// SubTripsPerPC6 rolls sub-trips up per 6-character postal code of the
// origin or destination. Shorter codes are skipped.
func SubTripsPerPC6(records []types.SubTripRecord, origin bool) []PostalArea {
	return perPostal(records, func(r types.SubTripRecord) string {
		pc := strings.TrimSpace(endpoint(r, origin).FinePostal)
		if len(pc) < 6 {
			return ""
		}
		return pc
	})
}

func endpoint(r types.SubTripRecord, origin bool) types.Endpoint {
	if origin {
		return r.Origin
	}
	return r.Destination
}

func perPostal(records []types.SubTripRecord, code Key[types.SubTripRecord]) []PostalArea {
	var out []PostalArea
	var loaded []sum
	index := make(map[string]int)

	for _, r := range records {
		k := code(r)
		if k == "" {
			continue
		}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, PostalArea{Code: k})
			loaded = append(loaded, sum{})
		}
		out[i].Count += r.TripCount
		out[i].Weight += r.GrossWeight
		loaded[i].add(r.AverageLoadFactor / 100 * r.TripCount)
	}

	for i := range out {
		out[i].LoadFactor = ratio(loaded[i].float(), out[i].Count)
	}
	sortStable(out, func(a, b PostalArea) bool { return a.Count > b.Count })
	return out
}

// =============================================================================
// DISTRIBUTIONS
// =============================================================================

// EmissionZoneDistribution splits volume by whether the origin (or
// destination) lies in an emission zone. Records without the zone value
// are skipped; no data at all yields nil.
func EmissionZoneDistribution[E any, P types.Record[E]](records []E, origin bool, weight Measure[E]) []Group {
	var yes, no float64
	hasData := false
	for i := range records {
		m := P(&records[i]).Core()
		zone := m.Destination.Zones.Emission
		if origin {
			zone = m.Origin.Zones.Emission
		}
		if zone == nil || *zone == "" {
			continue
		}
		hasData = true
		if strings.EqualFold(*zone, "ja") {
			yes += weight(records[i])
		} else {
			no += weight(records[i])
		}
	}
	if !hasData {
		return nil
	}
	return []Group{{Name: labelYes, Value: yes}, {Name: labelNo, Value: no}}
}

// FuelDistribution sums trips per fuel type.
func FuelDistribution(records []types.SubTripRecord) []Group {
	return DistributionBy(records, func(r types.SubTripRecord) string {
		if r.FuelClass != "" {
			return r.FuelClass
		}
		return "Brandstof " + r.FuelClassCode
	}, TripCount)
}

// WeightClassDistribution sums trips per maximum permitted weight class.
func WeightClassDistribution(records []types.SubTripRecord) []Group {
	return DistributionBy(records, func(r types.SubTripRecord) string {
		if r.MaxWeightClass != "" {
			return r.MaxWeightClass
		}
		return labelUnknown
	}, TripCount)
}

// VehicleDistribution sums trips per vehicle type.
func VehicleDistribution(records []types.SubTripRecord) []Group {
	return DistributionBy(records, vehicleLabel, TripCount)
}

func sortStable[T any](s []T, less func(a, b T) bool) {
	sort.SliceStable(s, func(i, j int) bool { return less(s[i], s[j]) })
}
