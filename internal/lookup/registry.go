// =============================================================================
// Freight Survey Ingest - Lookup Registry
// =============================================================================
//
// The registry holds the code -> description tables of one working session.
// Tables come from the full lookup workbook, from the codetable workbook with
// embedded sections, or from the municipal and logistics-class CSVs. A load
// for a category always replaces that category's entries completely.
//
// DESCRIPTION FALLBACK (per Get call):
//   1. entry loaded for the category
//   2. built-in table (vehicle type only)
//   3. synthesized "<Label> <code>"
//
// A Registry is safe for concurrent readers, but it belongs to exactly one
// session and must not be shared between independent sessions.
//
// =============================================================================

package lookup

import (
	"fmt"
	"maps"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/ginjaninja78/freight-survey-ingest/internal/types"
)

// =============================================================================
// CATEGORIES
// =============================================================================

// Category identifies one lookup table.
type Category string

const (
	CategoryVehicleType   Category = "voertuigsoortRDW"
	CategoryFuel          Category = "brandstofsoort"
	CategoryPayload       Category = "laadvermogenCombinatie"
	CategoryMaxWeight     Category = "maxToegestaanGewicht"
	CategoryUnladenWeight Category = "leeggewichtCombinatie"
	CategoryLogistics     Category = "logistiekeKlasse"
	CategoryEmptyTrip     Category = "legeRit"
	CategoryRegion        Category = "nuts3"
	CategoryMunicipal     Category = "gemeentecode"
)

// Categories lists every category in workbook order.
var Categories = []Category{
	CategoryVehicleType,
	CategoryFuel,
	CategoryPayload,
	CategoryMaxWeight,
	CategoryUnladenWeight,
	CategoryLogistics,
	CategoryEmptyTrip,
	CategoryRegion,
	CategoryMunicipal,
}

// labels are the prefixes of synthesized descriptions.
var labels = map[Category]string{
	CategoryVehicleType:   "Voertuigsoort",
	CategoryFuel:          "Brandstof",
	CategoryPayload:       "Laadvermogen",
	CategoryMaxWeight:     "Gewichtsklasse",
	CategoryUnladenWeight: "Leeggewicht",
	CategoryLogistics:     "Klasse",
	CategoryEmptyTrip:     "Lege rit",
	CategoryRegion:        "Regio",
	CategoryMunicipal:     "Gemeente",
}

// Label returns the display prefix of the category.
func (c Category) Label() string {
	if l, ok := labels[c]; ok {
		return l
	}
	return string(c)
}

// ParseCategory resolves a category name case-insensitively.
func ParseCategory(name string) (Category, bool) {
	for _, c := range Categories {
		if strings.EqualFold(string(c), strings.TrimSpace(name)) {
			return c, true
		}
	}
	return "", false
}

// builtinVehicleTypes covers the four CBS vehicle-type codes.
var builtinVehicleTypes = map[string]string{
	"1": "Bestelwagen",
	"2": "Vrachtwagen",
	"3": "Trekker",
	"4": "Overig",
}

// =============================================================================
// REGISTRY
// =============================================================================

type table struct {
	entries []types.LookupEntry
	index   map[string]string
}

// Registry is the session-scoped set of lookup tables.
type Registry struct {
	mu     sync.RWMutex
	tables map[Category]*table
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tables: make(map[Category]*table)}
}

// Set replaces the entries of one category. The first entry wins when a
// code appears more than once.
func (r *Registry) Set(category Category, entries []types.LookupEntry) {
	t := &table{
		entries: make([]types.LookupEntry, 0, len(entries)),
		index:   make(map[string]string, len(entries)),
	}
	for _, e := range entries {
		code := key(category, e.Code)
		if code == "" {
			continue
		}
		t.entries = append(t.entries, types.LookupEntry{Code: code, Description: e.Description})
		if _, dup := t.index[code]; !dup {
			t.index[code] = e.Description
		}
	}

	r.mu.Lock()
	r.tables[category] = t
	r.mu.Unlock()
}

// Entries returns a copy of the entries of one category.
func (r *Registry) Entries(category Category) []types.LookupEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tables[category]
	if !ok {
		return nil
	}
	return append([]types.LookupEntry(nil), t.entries...)
}

// Loaded returns the categories that hold at least one entry, in
// workbook order.
func (r *Registry) Loaded() []Category {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Category
	for _, c := range Categories {
		if t, ok := r.tables[c]; ok && len(t.entries) > 0 {
			out = append(out, c)
		}
	}
	return out
}

// Snapshot returns a copy of every loaded table, for storage.
func (r *Registry) Snapshot() map[Category][]types.LookupEntry {
	out := make(map[Category][]types.LookupEntry)
	for _, c := range r.Loaded() {
		out[c] = r.Entries(c)
	}
	return out
}

// Clone returns an independent copy of the registry. Loaders can fill the
// copy and the caller swaps it in once every load succeeded.
func (r *Registry) Clone() *Registry {
	c := NewRegistry()
	r.mu.RLock()
	defer r.mu.RUnlock()
	for category, t := range r.tables {
		c.tables[category] = &table{
			entries: append([]types.LookupEntry(nil), t.entries...),
			index:   maps.Clone(t.index),
		}
	}
	return c
}

// Lookup returns the loaded description for a code.
func (r *Registry) Lookup(category Category, code string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tables[category]
	if !ok {
		return "", false
	}
	desc, ok := t.index[key(category, code)]
	if !ok || desc == "" {
		return "", false
	}
	return desc, true
}

// Get returns the description of a code, falling back to the built-in
// vehicle table and then to a synthesized label. An empty code yields "".
func (r *Registry) Get(category Category, code string) string {
	code = key(category, code)
	if code == "" {
		return ""
	}

	return FirstOf(
		func() (string, bool) { return r.Lookup(category, code) },
		func() (string, bool) { return builtin(category, code) },
		func() (string, bool) { return Synthesize(category, code), true },
	)
}

func builtin(category Category, code string) (string, bool) {
	if category != CategoryVehicleType {
		return "", false
	}
	desc, ok := builtinVehicleTypes[code]
	return desc, ok
}

// Synthesize builds the fallback label of a code without a description.
func Synthesize(category Category, code string) string {
	return fmt.Sprintf("%s %s", category.Label(), code)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// Source yields one candidate of an ordered fallback list.
type Source func() (string, bool)

// FirstOf returns the first candidate a source accepts, or "" when all
// sources decline.
func FirstOf(sources ...Source) string {
	for _, src := range sources {
		if v, ok := src(); ok {
			return v
		}
	}
	return ""
}

// Present is a Source for a value that counts when it is not blank.
func Present(v string) Source {
	return func() (string, bool) {
		v = strings.TrimSpace(v)
		return v, v != ""
	}
}

// NormalizeCode trims a code and writes numeric codes in canonical integer
// form, so "01", "1" and "1.0" address the same entry.
func NormalizeCode(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	f, err := strconv.ParseFloat(code, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return code
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// key is the index form of a code within its category.
func key(category Category, code string) string {
	code = NormalizeCode(code)
	if category == CategoryMunicipal {
		return PadMunicipalCode(code)
	}
	return code
}

// PadMunicipalCode left-pads a municipal code with zeros to four digits.
func PadMunicipalCode(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	for len(code) < 4 {
		code = "0" + code
	}
	return code
}

// capitalize upper-cases the first letter of a description.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = []rune(strings.ToUpper(string(r[0])))[0]
	return string(r)
}
