// Package pending holds the in-memory queues of changes waiting to be sent
// to the clearing house. All queues share a single mutex; draining swaps a
// queue for an empty one and hands the caller an owned snapshot.
package pending

import (
	"sync"

	"github.com/kilianp07/evsync/core/model"
)

// evseSet is an insertion ordered set of EVSEs keyed by identity. Adding an
// EVSE already present replaces the stored value but keeps its position.
type evseSet struct {
	order []model.EVSEID
	items map[model.EVSEID]model.EVSE
}

func newEVSESet() evseSet {
	return evseSet{items: make(map[model.EVSEID]model.EVSE)}
}

func (s *evseSet) add(e model.EVSE) bool {
	if _, ok := s.items[e.ID]; ok {
		s.items[e.ID] = e
		return false
	}
	s.order = append(s.order, e.ID)
	s.items[e.ID] = e
	return true
}

func (s *evseSet) has(id model.EVSEID) bool {
	_, ok := s.items[id]
	return ok
}

func (s *evseSet) len() int { return len(s.order) }

func (s *evseSet) values() []model.EVSE {
	if len(s.order) == 0 {
		return nil
	}
	out := make([]model.EVSE, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out
}

// Snapshot is a detached copy of the data queues taken by DrainAll.
type Snapshot struct {
	Add    []model.EVSE
	Update []model.EVSE
	Remove []model.EVSE
	// Delayed holds status updates that were held back because their EVSE
	// was waiting for its initial upload.
	Delayed []model.EVSEStatusUpdate
	CDRs    []model.ChargeDetailRecord
}

// Empty reports whether the snapshot carries no work.
func (s Snapshot) Empty() bool {
	return len(s.Add) == 0 && len(s.Update) == 0 && len(s.Remove) == 0 &&
		len(s.Delayed) == 0 && len(s.CDRs) == 0
}

// Depths reports the number of entries in each queue.
type Depths struct {
	Add, Update, Remove, StatusFast, StatusDelayed, CDRs int
}

// Store is the pending-change store. The zero value is not usable; create
// stores with New.
type Store struct {
	mu            sync.Mutex
	toAdd         evseSet
	toUpdate      evseSet
	toRemove      evseSet
	statusFast    []model.EVSEStatusUpdate
	statusDelayed []model.EVSEStatusUpdate
	cdrs          []model.ChargeDetailRecord
}

// New creates an empty store.
func New() *Store {
	return &Store{
		toAdd:    newEVSESet(),
		toUpdate: newEVSESet(),
		toRemove: newEVSESet(),
	}
}

// EnqueueAdd queues e for its initial upload. It reports whether e was not
// already queued.
func (s *Store) EnqueueAdd(e model.EVSE) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.toAdd.add(e)
}

// EnqueueUpdate queues e for a static data update.
func (s *Store) EnqueueUpdate(e model.EVSE) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.toUpdate.add(e)
}

// EnqueueRemove queues e for removal.
func (s *Store) EnqueueRemove(e model.EVSE) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.toRemove.add(e)
}

// EnqueueStatus queues a status update. Updates for EVSEs still waiting in
// the add queue go to the delayed list so that the remote side never sees a
// status for an EVSE it does not know yet. It reports whether the update
// landed on the fast list.
func (s *Store) EnqueueStatus(u model.EVSEStatusUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.toAdd.has(u.ID()) {
		s.statusDelayed = append(s.statusDelayed, u)
		return false
	}
	s.statusFast = append(s.statusFast, u)
	return true
}

// EnqueueCDR appends a charge detail record.
func (s *Store) EnqueueCDR(r model.ChargeDetailRecord) {
	s.mu.Lock()
	s.cdrs = append(s.cdrs, r)
	s.mu.Unlock()
}

// DrainAll detaches the add, update, remove, delayed status and CDR queues
// and resets them. The second return value is false when every queue was
// already empty; the store is then left untouched.
func (s *Store) DrainAll() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.toAdd.len() == 0 && s.toUpdate.len() == 0 && s.toRemove.len() == 0 &&
		len(s.statusDelayed) == 0 && len(s.cdrs) == 0 {
		return Snapshot{}, false
	}
	snap := Snapshot{
		Add:     s.toAdd.values(),
		Update:  s.toUpdate.values(),
		Remove:  s.toRemove.values(),
		Delayed: s.statusDelayed,
		CDRs:    s.cdrs,
	}
	s.toAdd = newEVSESet()
	s.toUpdate = newEVSESet()
	s.toRemove = newEVSESet()
	s.statusDelayed = nil
	s.cdrs = nil
	return snap, true
}

// DrainStatusFast detaches the fast status list. Updates whose EVSE is
// currently waiting in the add queue are moved to the delayed list instead
// of being returned.
func (s *Store) DrainStatusFast() []model.EVSEStatusUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.statusFast) == 0 {
		return nil
	}
	out := make([]model.EVSEStatusUpdate, 0, len(s.statusFast))
	for _, u := range s.statusFast {
		if s.toAdd.has(u.ID()) {
			s.statusDelayed = append(s.statusDelayed, u)
			continue
		}
		out = append(out, u)
	}
	s.statusFast = nil
	return out
}

// RequeueStatus puts updates back on the fast list, e.g. delayed updates
// whose EVSE has completed its initial upload or updates of a failed push.
// EVSEs that are queued for adding again are held back as usual.
func (s *Store) RequeueStatus(updates []model.EVSEStatusUpdate) {
	if len(updates) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range updates {
		if s.toAdd.has(u.ID()) {
			s.statusDelayed = append(s.statusDelayed, u)
			continue
		}
		s.statusFast = append(s.statusFast, u)
	}
}

// Requeue returns the static data and CDRs of a snapshot to the store after
// a transport failure. Entries queued in the meantime take precedence over
// the returned ones. Delayed status updates go back to the delayed list.
func (s *Store) Requeue(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range snap.Add {
		if !s.toAdd.has(e.ID) {
			s.toAdd.add(e)
		}
	}
	for _, e := range snap.Update {
		if !s.toUpdate.has(e.ID) {
			s.toUpdate.add(e)
		}
	}
	for _, e := range snap.Remove {
		if !s.toRemove.has(e.ID) {
			s.toRemove.add(e)
		}
	}
	s.statusDelayed = append(append([]model.EVSEStatusUpdate(nil), snap.Delayed...), s.statusDelayed...)
	s.cdrs = append(append([]model.ChargeDetailRecord(nil), snap.CDRs...), s.cdrs...)
}

// RequeueCDRs puts records back at the head of the CDR queue.
func (s *Store) RequeueCDRs(records []model.ChargeDetailRecord) {
	if len(records) == 0 {
		return
	}
	s.mu.Lock()
	s.cdrs = append(append([]model.ChargeDetailRecord(nil), records...), s.cdrs...)
	s.mu.Unlock()
}

// PendingAdd reports whether id waits for its initial upload.
func (s *Store) PendingAdd(id model.EVSEID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.toAdd.has(id)
}

// Len returns the current queue depths.
func (s *Store) Len() Depths {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Depths{
		Add:           s.toAdd.len(),
		Update:        s.toUpdate.len(),
		Remove:        s.toRemove.len(),
		StatusFast:    len(s.statusFast),
		StatusDelayed: len(s.statusDelayed),
		CDRs:          len(s.cdrs),
	}
}
