// =============================================================================
// Freight Survey Ingest - Dataset Session
// =============================================================================
//
// A Session is one working dataset: the lookup registry built from the
// uploaded reference tables, the region mappings, and the enriched records
// partitioned by survey year. It is scoped to one user's uploads and is not
// meant to be shared between independent sessions.
//
// REPLACEMENT:
//   Loading a data file for a year replaces the whole partition of that
//   record kind for that year. Commit applies a batch of partitions under a
//   single lock, so readers never observe a half-applied batch.
//
// =============================================================================

package dataset

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/freight-survey-ingest/internal/classifier"
	"github.com/ginjaninja78/freight-survey-ingest/internal/lookup"
	"github.com/ginjaninja78/freight-survey-ingest/internal/types"
)

// Session holds the state of one working dataset.
type Session struct {
	mu sync.RWMutex

	id        uuid.UUID
	createdAt time.Time

	registry *lookup.Registry
	regions  []types.RegionMapping

	shipments map[int][]types.ShipmentRecord
	subTrips  map[int][]types.SubTripRecord

	files        []classifier.Detection
	municipality *types.Municipality
}

// Batch is the outcome of one processing run, committed together.
type Batch struct {
	// Registry replaces the session registry when not nil.
	Registry *lookup.Registry

	// Regions replaces the region mappings when not nil.
	Regions []types.RegionMapping

	Shipments map[int][]types.ShipmentRecord
	SubTrips  map[int][]types.SubTripRecord

	// Files are appended to the detected-files list.
	Files []classifier.Detection
}

// Empty reports whether the batch carries no partitions.
func (b Batch) Empty() bool {
	return len(b.Shipments) == 0 && len(b.SubTrips) == 0
}

// New returns an empty session.
func New() *Session {
	s := &Session{}
	s.reset()
	return s
}

func (s *Session) reset() {
	s.id = uuid.New()
	s.createdAt = time.Now()
	s.registry = lookup.NewRegistry()
	s.regions = nil
	s.shipments = make(map[int][]types.ShipmentRecord)
	s.subTrips = make(map[int][]types.SubTripRecord)
	s.files = nil
	s.municipality = nil
}

// ID identifies the dataset. It changes on Clear.
func (s *Session) ID() uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// CreatedAt is the time the dataset was started.
func (s *Session) CreatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.createdAt
}

// Registry returns the session's lookup registry.
func (s *Session) Registry() *lookup.Registry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry
}

// SetRegions replaces the region mappings.
func (s *Session) SetRegions(mappings []types.RegionMapping) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regions = append([]types.RegionMapping(nil), mappings...)
}

// Regions returns a copy of the region mappings.
func (s *Session) Regions() []types.RegionMapping {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.RegionMapping(nil), s.regions...)
}

// =============================================================================
// YEAR PARTITIONS
// =============================================================================

// Commit replaces every partition named in the batch and records its files.
// Partitions for other years are left untouched.
func (s *Session) Commit(b Batch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.Registry != nil {
		s.registry = b.Registry
	}
	if b.Regions != nil {
		s.regions = append([]types.RegionMapping(nil), b.Regions...)
	}

	for year, records := range b.Shipments {
		s.shipments[year] = records
	}
	for year, records := range b.SubTrips {
		s.subTrips[year] = records
	}
	s.files = append(s.files, b.Files...)
}

// ReplaceShipments replaces the shipment partition of one year.
func (s *Session) ReplaceShipments(year int, records []types.ShipmentRecord) {
	s.Commit(Batch{Shipments: map[int][]types.ShipmentRecord{year: records}})
}

// ReplaceSubTrips replaces the sub-trip partition of one year.
func (s *Session) ReplaceSubTrips(year int, records []types.SubTripRecord) {
	s.Commit(Batch{SubTrips: map[int][]types.SubTripRecord{year: records}})
}

// Shipments returns the shipments of one year.
func (s *Session) Shipments(year int) []types.ShipmentRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shipments[year]
}

// SubTrips returns the sub-trips of one year.
func (s *Session) SubTrips(year int) []types.SubTripRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subTrips[year]
}

// ShipmentsByYear returns a shallow copy of the shipment partitions.
func (s *Session) ShipmentsByYear() map[int][]types.ShipmentRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int][]types.ShipmentRecord, len(s.shipments))
	for y, r := range s.shipments {
		out[y] = r
	}
	return out
}

// SubTripsByYear returns a shallow copy of the sub-trip partitions.
func (s *Session) SubTripsByYear() map[int][]types.SubTripRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int][]types.SubTripRecord, len(s.subTrips))
	for y, r := range s.subTrips {
		out[y] = r
	}
	return out
}

// Years returns the years present in either record kind, ascending.
func (s *Session) Years() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[int]bool, len(s.shipments)+len(s.subTrips))
	for y := range s.shipments {
		seen[y] = true
	}
	for y := range s.subTrips {
		seen[y] = true
	}

	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// LatestYear returns the most recent year, or 0 for an empty session.
func (s *Session) LatestYear() int {
	years := s.Years()
	if len(years) == 0 {
		return 0
	}
	return years[len(years)-1]
}

// Files returns the detected-files list in upload order.
func (s *Session) Files() []classifier.Detection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]classifier.Detection(nil), s.files...)
}

// Clear discards all state and starts a new dataset.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

// =============================================================================
// MUNICIPALITY
// =============================================================================

// Municipality returns the detected municipality.
func (s *Session) Municipality() (types.Municipality, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.municipality == nil {
		return types.Municipality{}, false
	}
	return *s.municipality, true
}

// DetectMunicipality runs detection once per dataset. A previously detected
// municipality is kept until Clear.
func (s *Session) DetectMunicipality() (types.Municipality, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.municipality != nil {
		return *s.municipality, true
	}

	names := make([]string, len(s.files))
	for i, f := range s.files {
		names[i] = f.Name
	}

	m, ok := DetectMunicipality(s.shipments, Names{
		Regions:   s.regions,
		Registry:  s.registry,
		FileNames: names,
	})
	if ok {
		s.municipality = &m
	}
	return m, ok
}
