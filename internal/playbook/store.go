package playbook

import (
	"sort"
	"sync/atomic"
)

// Store is an immutable index of playbooks by observation id. A reload
// builds a fresh Store; readers never observe a partially updated map.
type Store struct {
	byObservation map[string]*Playbook
	supported     []string
}

// NewStore builds a store from a map of observation id to playbook.
// The map is owned by the store after this call.
func NewStore(byObservation map[string]*Playbook) *Store {
	supported := make([]string, 0, len(byObservation))
	for id := range byObservation {
		supported = append(supported, id)
	}
	sort.Strings(supported)
	return &Store{byObservation: byObservation, supported: supported}
}

// Get returns the playbook for an observation id.
func (s *Store) Get(observationID string) (*Playbook, bool) {
	pb, ok := s.byObservation[observationID]
	return pb, ok
}

// SupportedObservations returns the sorted list of observation ids that
// have a playbook. Used to report unsupported-observation conditions.
func (s *Store) SupportedObservations() []string {
	return s.supported
}

// Len returns the number of loaded playbooks.
func (s *Store) Len() int {
	return len(s.byObservation)
}

// Handle is a swappable reference to the current Store. The watcher
// replaces the store atomically on reload; per-observation evaluation
// snapshots the store once at the start of a unit of work.
type Handle struct {
	current atomic.Pointer[Store]
}

// NewHandle creates a handle pointing at the given store. A nil store
// becomes an empty one so Current never returns nil.
func NewHandle(store *Store) *Handle {
	if store == nil {
		store = NewStore(nil)
	}
	h := &Handle{}
	h.current.Store(store)
	return h
}

// Current returns the store snapshot to use for one evaluation.
func (h *Handle) Current() *Store {
	return h.current.Load()
}

// Swap atomically replaces the current store.
func (h *Handle) Swap(store *Store) {
	h.current.Store(store)
}
