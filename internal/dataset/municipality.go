package dataset

import (
	"regexp"
	"sort"
	"strings"

	"github.com/ginjaninja78/freight-survey-ingest/internal/lookup"
	"github.com/ginjaninja78/freight-survey-ingest/internal/types"
)

// fileNamePattern extracts the municipality from export names such as
// "VESDI_PC6_Utrecht_2023.csv".
var fileNamePattern = regexp.MustCompile(`_PC6_([A-Za-z\s'-]+)_\d{4}`)

// Names are the sources consulted, in order, for a municipality name.
type Names struct {
	Regions   []types.RegionMapping
	Registry  *lookup.Registry
	FileNames []string
}

// DetectMunicipality finds the municipality a dataset describes.
//
// Years are visited in ascending order and the first year with shipments
// loaded in the region of interest decides. Within that year shipment
// counts are summed per origin municipality and the largest sum wins; on a
// tie the municipality seen first wins.
//
// The name is taken from the region mapping, then the municipal code
// table, then the first matching file name, and falls back to the code.
func DetectMunicipality(byYear map[int][]types.ShipmentRecord, names Names) (types.Municipality, bool) {
	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)

	for _, y := range years {
		code, found := topOrigin(byYear[y])
		if !found {
			continue
		}
		if code == "" {
			return types.Municipality{}, false
		}
		return types.Municipality{Code: code, Name: names.resolve(code)}, true
	}
	return types.Municipality{}, false
}

// topOrigin returns the origin municipality with the largest shipment count
// among in-region rows. found is false when no row is in the region.
func topOrigin(records []types.ShipmentRecord) (code string, found bool) {
	totals := make(map[string]float64)
	var order []string

	for i := range records {
		r := &records[i]
		if !r.Origin.InROI {
			continue
		}
		found = true
		c := r.Origin.Municipality
		if _, ok := totals[c]; !ok {
			order = append(order, c)
		}
		totals[c] += r.ShipmentCount
	}

	var best float64
	for _, c := range order {
		if totals[c] > best {
			code, best = c, totals[c]
		}
	}
	return code, found
}

func (n Names) resolve(code string) string {
	padded := lookup.PadMunicipalCode(code)

	return lookup.FirstOf(
		func() (string, bool) {
			for _, m := range n.Regions {
				if m.MunicipalCode == code || m.MunicipalCode == padded {
					return m.MunicipalName, m.MunicipalName != ""
				}
			}
			return "", false
		},
		func() (string, bool) {
			if n.Registry == nil {
				return "", false
			}
			return n.Registry.Lookup(lookup.CategoryMunicipal, code)
		},
		func() (string, bool) {
			for _, name := range n.FileNames {
				if m := fileNamePattern.FindStringSubmatch(name); m != nil {
					return strings.TrimSpace(m[1]), true
				}
			}
			return "", false
		},
		lookup.Present(code),
	)
}
