package geo

import (
	"errors"
	"sync"

	"github.com/civiclens/civiclens-api/internal/models"
)

// ErrEmptyIndex indicates no project records are loaded, so no nearest match
// can be produced.
var ErrEmptyIndex = errors.New("geo index holds no project records")

// Index is an immutable snapshot of project records supporting nearest-record
// queries. Distance is squared degree-space difference: not geodesic, but the
// relative ordering it produces is what matters at city scale, and it keeps
// the comparator cheap and branch-free.
type Index struct {
	records []models.ProjectRecord
}

// NewIndex builds a snapshot over the given records. The slice is copied so
// later mutation by the caller cannot affect in-flight audit runs.
func NewIndex(records []models.ProjectRecord) *Index {
	snapshot := make([]models.ProjectRecord, len(records))
	copy(snapshot, records)
	return &Index{records: snapshot}
}

// Len returns the number of records in the snapshot.
func (i *Index) Len() int {
	return len(i.records)
}

// Nearest returns the record closest to the given coordinates. Ties are broken
// by lowest id so the result is deterministic regardless of load order.
func (i *Index) Nearest(lat, lng float64) (models.ProjectRecord, error) {
	if len(i.records) == 0 {
		return models.ProjectRecord{}, ErrEmptyIndex
	}

	best := i.records[0]
	bestDist := squaredDegreeDistance(lat, lng, best.Lat, best.Lng)

	for _, candidate := range i.records[1:] {
		dist := squaredDegreeDistance(lat, lng, candidate.Lat, candidate.Lng)
		if dist < bestDist || (dist == bestDist && candidate.ID < best.ID) {
			best = candidate
			bestDist = dist
		}
	}

	return best, nil
}

func squaredDegreeDistance(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := lat1 - lat2
	dLng := lng1 - lng2
	return dLat*dLat + dLng*dLng
}

// Store publishes the current index snapshot to audit runs. Refreshes swap the
// whole snapshot in one step; a run captures the pointer once and keeps using
// it for its full duration even if a refresh lands mid-run.
type Store struct {
	mu    sync.RWMutex
	index *Index
}

// NewStore creates a store holding an empty snapshot.
func NewStore() *Store {
	return &Store{index: NewIndex(nil)}
}

// Current returns the active snapshot.
func (s *Store) Current() *Index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

// Replace swaps in a freshly built snapshot.
func (s *Store) Replace(index *Index) {
	if index == nil {
		index = NewIndex(nil)
	}
	s.mu.Lock()
	s.index = index
	s.mu.Unlock()
}
