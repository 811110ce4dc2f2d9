// =============================================================================
// Freight Survey Ingest - Geographic Key Resolver
// =============================================================================
//
// Every endpoint of a record gets one canonical geographic key, used for map
// centroids and spatial rollups. The most precise identifier wins:
//
//   fine postal (>= 4 chars)   -> postal code if domestic, else region key
//   coarse postal (>= 4 chars) -> postal code if domestic, else region key
//   region code                -> region key
//   nothing                    -> unresolved
//
// Region keys carry a namespace prefix so they never collide with postal
// codes. Origin and destination are resolved independently.
//
// =============================================================================

package geo

import (
	"strings"

	"github.com/ginjaninja78/freight-survey-ingest/internal/types"
)

// Defaults for the Netherlands.
const (
	DefaultDomestic  = "NL"
	DefaultPrefix    = "NUTS3:"
	minPostalLength  = 4
	coarsePostalSize = 4
)

// Location is the result of one resolution.
type Location struct {
	Key   string
	Level types.GeoLevel

	// DomesticCoarse is the 4-character postal area, set only for domestic
	// endpoints resolved at postal precision.
	DomesticCoarse string
}

// Resolver derives canonical geographic keys.
type Resolver struct {
	Domestic string
	Prefix   string
}

// NewResolver returns a resolver; empty arguments select the defaults.
func NewResolver(domestic, prefix string) Resolver {
	if domestic == "" {
		domestic = DefaultDomestic
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Resolver{Domestic: strings.ToUpper(domestic), Prefix: prefix}
}

// IsDomestic reports whether a country code is the domestic one.
func (r Resolver) IsDomestic(country string) bool {
	return country != "" && strings.EqualFold(country, r.Domestic)
}

// RegionKey namespaces a regional code.
func (r Resolver) RegionKey(region string) string {
	return r.Prefix + region
}

// Resolve picks the key and precision of one endpoint.
//
// A foreign endpoint at postal precision needs a regional code for its key;
// without one it is left unresolved.
func (r Resolver) Resolve(fine, coarse, region, country string) Location {
	fine = strings.TrimSpace(fine)
	coarse = strings.TrimSpace(coarse)
	region = strings.TrimSpace(region)
	domestic := r.IsDomestic(country)

	switch {
	case len(fine) >= minPostalLength:
		return r.postal(fine, fine[:coarsePostalSize], region, domestic, types.GeoLevelFine)
	case len(coarse) >= minPostalLength:
		return r.postal(coarse, coarse, region, domestic, types.GeoLevelCoarse)
	case region != "":
		return Location{Key: r.RegionKey(region), Level: types.GeoLevelRegion}
	}
	return Location{}
}

func (r Resolver) postal(code, area, region string, domestic bool, level types.GeoLevel) Location {
	if domestic {
		return Location{Key: code, Level: level, DomesticCoarse: area}
	}
	if region == "" {
		return Location{}
	}
	return Location{Key: r.RegionKey(region), Level: level}
}

// Apply resolves an endpoint in place from its raw identifiers.
func (r Resolver) Apply(e *types.Endpoint) {
	e.Country = CountryOf(e.Region)
	loc := r.Resolve(e.FinePostal, e.CoarsePostal, e.Region, e.Country)
	e.GeoKey = loc.Key
	e.GeoLevel = loc.Level
	e.DomesticCoarsePostal = loc.DomesticCoarse
}
