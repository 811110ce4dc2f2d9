// =============================================================================
// Freight Survey Ingest - Aggregation Engine
// =============================================================================
//
// Pure reducers over enriched record collections. Every function is
// deterministic: groups are created in first-seen order and results are
// emitted sorted by the documented key, with ties kept in first-seen order.
// No reducer divides by zero; an empty denominator yields 0.
//
// Sums are accumulated with shopspring/decimal so that the order in which
// records arrive does not change the result.
//
// =============================================================================

package aggregate

import (
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Measure extracts a numeric field from a record.
type Measure[T any] func(T) float64

// Key extracts a grouping key from a record.
type Key[T any] func(T) string

// =============================================================================
// RESULT TYPES
// =============================================================================

// Group is one category of a distribution.
type Group struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// TrendPoint is one year of a trend. Value2 is set by dual trends only.
type TrendPoint struct {
	Year   int     `json:"year"`
	Value  float64 `json:"value"`
	Value2 float64 `json:"value2,omitempty"`
}

// Share is one group with its fraction of the filtered total.
type Share struct {
	Key        string  `json:"key"`
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
}

// Pair is one origin/destination combination.
type Pair struct {
	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	Value       float64 `json:"value"`
}

// Completeness is the filled fraction of one field.
type Completeness struct {
	Field        string  `json:"field"`
	Completeness float64 `json:"completeness"`
}

// =============================================================================
// ACCUMULATION
// =============================================================================

type sum struct {
	d decimal.Decimal
}

func (s *sum) add(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	s.d = s.d.Add(decimal.NewFromFloat(v))
}

func (s sum) float() float64 {
	return s.d.InexactFloat64()
}

// ratio returns num/den, or 0 when den is zero.
func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// grouper accumulates values per key in first-seen order.
type grouper struct {
	keys  []string
	index map[string]int
	sums  []sum
}

func newGrouper() *grouper {
	return &grouper{index: make(map[string]int)}
}

func (g *grouper) slot(key string) int {
	i, ok := g.index[key]
	if !ok {
		i = len(g.keys)
		g.index[key] = i
		g.keys = append(g.keys, key)
		g.sums = append(g.sums, sum{})
	}
	return i
}

func (g *grouper) add(key string, v float64) {
	g.sums[g.slot(key)].add(v)
}

func (g *grouper) groups() []Group {
	out := make([]Group, len(g.keys))
	for i, k := range g.keys {
		out[i] = Group{Name: k, Value: g.sums[i].float()}
	}
	sortGroups(out)
	return out
}

func sortGroups(groups []Group) {
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Value > groups[j].Value
	})
}

// =============================================================================
// GENERIC REDUCERS
// =============================================================================

// SumTotals sums a numeric field across all records.
func SumTotals[T any](records []T, field Measure[T]) float64 {
	var s sum
	for _, r := range records {
		s.add(field(r))
	}
	return s.float()
}

// WeightedAverage computes Σ(rate/100 × weight) / Σ(weight). The result is
// a fraction; 0 when the weight sum is 0.
func WeightedAverage[T any](records []T, rate, weight Measure[T]) float64 {
	var num, den sum
	for _, r := range records {
		w := weight(r)
		num.add(rate(r) / 100 * w)
		den.add(w)
	}
	return ratio(num.float(), den.float())
}

// DistributionBy sums weight per label, sorted by descending sum.
func DistributionBy[T any](records []T, label Key[T], weight Measure[T]) []Group {
	g := newGrouper()
	for _, r := range records {
		g.add(label(r), weight(r))
	}
	return g.groups()
}

// PerYearTrend produces one point per year, ascending.
func PerYearTrend[T any](byYear map[int][]T, value func([]T) float64) []TrendPoint {
	return PerYearDualTrend(byYear, value, nil)
}

// PerYearDualTrend is PerYearTrend with a second measure per year.
func PerYearDualTrend[T any](byYear map[int][]T, value, value2 func([]T) float64) []TrendPoint {
	years := SortedYears(byYear)
	points := make([]TrendPoint, 0, len(years))
	for _, y := range years {
		p := TrendPoint{Year: y, Value: value(byYear[y])}
		if value2 != nil {
			p.Value2 = value2(byYear[y])
		}
		points = append(points, p)
	}
	return points
}

// PerRegionShare groups by region key and reports each group's share of
// the total over the given records. Records with an empty key are skipped.
func PerRegionShare[T any](records []T, region Key[T], weight Measure[T]) []Share {
	g := newGrouper()
	var total sum
	for _, r := range records {
		k := region(r)
		if k == "" {
			continue
		}
		w := weight(r)
		g.add(k, w)
		total.add(w)
	}

	groups := g.groups()
	out := make([]Share, len(groups))
	for i, grp := range groups {
		out[i] = Share{Key: grp.Name, Value: grp.Value, Percentage: ratio(grp.Value, total.float())}
	}
	return out
}

// TopNPairs aggregates weight per (origin, destination) key pair. Pairs
// with an empty key or identical keys are skipped. A limit of 0 returns
// every pair.
func TopNPairs[T any](records []T, origin, destination Key[T], weight Measure[T], limit int) []Pair {
	type pairKey struct{ o, d string }

	var keys []pairKey
	index := make(map[pairKey]int)
	var sums []sum

	for _, r := range records {
		k := pairKey{origin(r), destination(r)}
		if k.o == "" || k.d == "" || k.o == k.d {
			continue
		}
		i, ok := index[k]
		if !ok {
			i = len(keys)
			index[k] = i
			keys = append(keys, k)
			sums = append(sums, sum{})
		}
		sums[i].add(weight(r))
	}

	out := make([]Pair, len(keys))
	for i, k := range keys {
		out[i] = Pair{Origin: k.o, Destination: k.d, Value: sums[i].float()}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Value > out[j].Value
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// DataCompleteness reports, per field, the fraction of records where the
// field is present and not blank.
func DataCompleteness[T any](records []T, fields []string, value func(T, string) (string, bool)) []Completeness {
	out := make([]Completeness, len(fields))
	for i, f := range fields {
		out[i] = Completeness{Field: f}
		if len(records) == 0 {
			continue
		}
		filled := 0
		for _, r := range records {
			if v, ok := value(r, f); ok && strings.TrimSpace(v) != "" {
				filled++
			}
		}
		out[i].Completeness = float64(filled) / float64(len(records))
	}
	return out
}

// SortedYears returns the keys of a year-partitioned collection, ascending.
func SortedYears[T any](byYear map[int][]T) []int {
	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}
