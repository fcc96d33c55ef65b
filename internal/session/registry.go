package session

import (
	"sort"
	"sync"
)

// Registry maps owners to their current match and to the mutex that
// serializes everything done to it. mu guards only the two maps; the
// contents of a State are guarded by that owner's lock.
type Registry struct {
	mu       sync.RWMutex
	locks    map[string]*sync.Mutex
	sessions map[string]*State
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		locks:    make(map[string]*sync.Mutex),
		sessions: make(map[string]*State),
	}
}

// Lock returns the one mutex for owner, creating it on first use. Locks are
// never removed: a goroutine parked on an evicted owner's lock must still be
// contending with whoever arrives next.
func (r *Registry) Lock(owner string) *sync.Mutex {
	r.mu.RLock()
	l, ok := r.locks[owner]
	r.mu.RUnlock()
	if ok {
		return l
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.locks[owner]; ok {
		return l
	}
	l = &sync.Mutex{}
	r.locks[owner] = l
	return l
}

// Start inserts st unless owner already has an active match. An ended match
// is replaced. The caller must hold owner's lock.
func (r *Registry) Start(owner string, st *State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.sessions[owner]; ok && cur.Phase == PhaseActive {
		return ErrAlreadyActive
	}
	r.sessions[owner] = st
	return nil
}

// Get returns owner's current match. The caller must hold owner's lock
// before reading or writing the result.
func (r *Registry) Get(owner string) (*State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.sessions[owner]
	return st, ok
}

// Replace swaps in a new match for owner.
func (r *Registry) Replace(owner string, st *State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[owner] = st
}

// Remove drops owner's match and returns it.
func (r *Registry) Remove(owner string) (*State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.sessions[owner]
	if ok {
		delete(r.sessions, owner)
	}
	return st, ok
}

// Len returns the number of tracked matches.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Owners returns a sorted snapshot of owners with a tracked match.
func (r *Registry) Owners() []string {
	r.mu.RLock()
	owners := make([]string, 0, len(r.sessions))
	for owner := range r.sessions {
		owners = append(owners, owner)
	}
	r.mu.RUnlock()

	sort.Strings(owners)
	return owners
}
