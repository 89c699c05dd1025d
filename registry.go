package cinder

import (
	"slices"
	"sort"
	"sync"
)

// Registry holds the named context sets shared by all the rules checked
// together. It is safe for concurrent use, but see the package documentation
// for the order in which changes must reach the checkers.
type Registry struct {
	mu   sync.RWMutex
	sets map[string]*contextSet
}

// contextSet keeps its members in insertion order, which is the order
// quantifier branches are created in.
type contextSet struct {
	items []Context
	pos   map[Context]int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sets: map[string]*contextSet{},
	}
}

// Declare makes sure the named sets exist, creating empty sets as needed.
func (r *Registry) Declare(names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range names {
		r.set(n)
	}
}

// set returns the named set, creating it if needed. Caller holds the write lock.
func (r *Registry) set(name string) *contextSet {
	s, ok := r.sets[name]
	if !ok {
		s = &contextSet{pos: map[Context]int{}}
		r.sets[name] = s
	}
	return s
}

// Add inserts c into the named set, creating the set if needed.
// It reports whether c was added; adding a member again is a no-op, and
// contexts that are not Valid are refused.
func (r *Registry) Add(name string, c Context) bool {
	if c.Valid() != nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.set(name)
	if _, ok := s.pos[c]; ok {
		return false
	}
	s.pos[c] = len(s.items)
	s.items = append(s.items, c)
	return true
}

// Remove deletes c from the named set. It reports whether c was a member.
func (r *Registry) Remove(name string, c Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sets[name]
	if !ok {
		return false
	}
	i, ok := s.pos[c]
	if !ok {
		return false
	}
	delete(s.pos, c)
	s.items = slices.Delete(s.items, i, i+1)
	for j := i; j < len(s.items); j++ {
		s.pos[s.items[j]] = j
	}
	return true
}

// Contains reports whether c is a member of the named set.
func (r *Registry) Contains(name string, c Context) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sets[name]
	if !ok {
		return false
	}
	_, ok = s.pos[c]
	return ok
}

// Has reports whether the named set has been declared.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sets[name]
	return ok
}

// Elements returns a copy of the members of the named set, in insertion order.
func (r *Registry) Elements(name string) []Context {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sets[name]
	if !ok {
		return nil
	}
	return slices.Clone(s.items)
}

// Len is the number of members of the named set.
func (r *Registry) Len(name string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sets[name]
	if !ok {
		return 0
	}
	return len(s.items)
}

// Names returns the names of all declared sets, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ks := make([]string, 0, len(r.sets))
	for k := range r.sets {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return ks
}
