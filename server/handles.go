package server

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chazu/metaobject/meta"
)

// handle is a server-side reference to a live object.
type handle struct {
	id       string
	seq      uint64
	obj      meta.Object
	created  time.Time
	lastUsed time.Time
}

// HandleStore maps opaque string IDs to objects created through the
// service. Released and expired objects are destroyed.
type HandleStore struct {
	mu      sync.RWMutex
	handles map[string]*handle
	nextID  atomic.Uint64
}

// NewHandleStore creates a new handle store.
func NewHandleStore() *HandleStore {
	return &HandleStore{handles: make(map[string]*handle)}
}

// Create registers obj and returns an opaque handle ID.
func (s *HandleStore) Create(obj meta.Object) string {
	seq := s.nextID.Add(1)
	id := fmt.Sprintf("h-%d", seq)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.handles[id] = &handle{id: id, seq: seq, obj: obj, created: now, lastUsed: now}
	return id
}

// Lookup retrieves the object for a handle.
func (s *HandleStore) Lookup(id string) (meta.Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.handles[id]
	if !ok {
		return nil, false
	}
	h.lastUsed = time.Now()
	return h.obj, true
}

// Release removes a handle and destroys its object. Returns false if the
// handle does not exist.
func (s *HandleStore) Release(id string) bool {
	s.mu.Lock()
	h, ok := s.handles[id]
	delete(s.handles, id)
	s.mu.Unlock()

	if ok {
		meta.Destroy(h.obj)
	}
	return ok
}

// List returns the live handles in creation order.
func (s *HandleStore) List() []ObjectInfo {
	s.mu.RLock()
	hs := make([]*handle, 0, len(s.handles))
	for _, h := range s.handles {
		hs = append(hs, h)
	}
	s.mu.RUnlock()

	sort.Slice(hs, func(i, j int) bool { return hs[i].seq < hs[j].seq })
	out := make([]ObjectInfo, len(hs))
	for i, h := range hs {
		out[i] = objectInfo(h.id, h.obj)
	}
	return out
}

// Len returns the number of live handles.
func (s *HandleStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.handles)
}

// Sweep destroys objects whose handles haven't been accessed within the
// TTL.
func (s *HandleStore) Sweep(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	s.mu.Lock()
	var expired []meta.Object
	for id, h := range s.handles {
		if h.lastUsed.Before(cutoff) {
			expired = append(expired, h.obj)
			delete(s.handles, id)
		}
	}
	s.mu.Unlock()

	for _, obj := range expired {
		meta.Destroy(obj)
	}
	if len(expired) > 0 {
		log.Infof("swept %d expired handles", len(expired))
	}
	return len(expired)
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

func objectInfo(id string, obj meta.Object) ObjectInfo {
	base := obj.ObjectBase()
	return ObjectInfo{
		Handle: id,
		Class:  obj.MetaObject().ClassName(),
		Name:   base.ObjectName(),
		ID:     base.ObjectID(),
	}
}
