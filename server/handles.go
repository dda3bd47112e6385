package server

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chazu/slotbridge/bridge"
)

// handle is a server-side reference to a bridged Go object.
type handle struct {
	object   *bridge.Object
	lastUsed time.Time
}

// HandleStore maps opaque string IDs to objects created or returned through
// the service. Holding a handle keeps the object reachable.
type HandleStore struct {
	mu      sync.Mutex
	handles map[string]*handle
	byPtr   map[any]string
	nextID  atomic.Uint64
}

// NewHandleStore creates an empty handle store.
func NewHandleStore() *HandleStore {
	return &HandleStore{
		handles: make(map[string]*handle),
		byPtr:   make(map[any]string),
	}
}

// Create registers obj and returns its handle ID. An object that already has
// a handle keeps it.
func (s *HandleStore) Create(obj *bridge.Object) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := obj.Interface()
	if id, ok := s.byPtr[key]; ok {
		s.handles[id].lastUsed = time.Now()
		return id
	}

	id := fmt.Sprintf("h-%d", s.nextID.Add(1))
	s.handles[id] = &handle{
		object:   obj,
		lastUsed: time.Now(),
	}
	s.byPtr[key] = id
	return id
}

// Lookup retrieves the object for a handle.
func (s *HandleStore) Lookup(id string) (*bridge.Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.handles[id]
	if !ok {
		return nil, false
	}
	h.lastUsed = time.Now()
	return h.object, true
}

// Release removes a handle. It reports whether the handle existed.
func (s *HandleStore) Release(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.handles[id]
	if !ok {
		return false
	}
	delete(s.byPtr, h.object.Interface())
	delete(s.handles, id)
	return true
}

// Len returns the number of live handles.
func (s *HandleStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

// Sweep removes handles that haven't been accessed within the TTL.
func (s *HandleStore) Sweep(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-ttl)
	removed := 0
	for id, h := range s.handles {
		if h.lastUsed.Before(cutoff) {
			delete(s.byPtr, h.object.Interface())
			delete(s.handles, id)
			removed++
		}
	}
	if removed > 0 {
		log.Debugf("swept %d idle handles", removed)
	}
	return removed
}

// StartSweeper runs periodic TTL sweeps in the background.
// Returns a stop function.
func (s *HandleStore) StartSweeper(interval, ttl time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				s.Sweep(ttl)
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}
