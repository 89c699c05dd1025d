package predicates

import (
	"fmt"

	"github.com/ezachrisen/cinder"
	lru "github.com/hashicorp/golang-lru/v2"
)

type memoKey struct {
	name string
	a, b cinder.Context
}

// Memo caches the results of a predicate library. Contexts are immutable
// values, so a result for (name, a, b) never changes. Results are keyed on
// the whole contexts, so a stream that reuses an ID for another observation
// does not see stale results. Errors are not cached.
//
// Memo is safe for concurrent use, so a single Memo can serve all the
// checkers of a suite.
type Memo struct {
	p     cinder.Predicate
	cache *lru.Cache[memoKey, bool]
}

// Memoize wraps p with a cache of at most size results.
func Memoize(p cinder.Predicate, size int) (*Memo, error) {
	c, err := lru.New[memoKey, bool](size)
	if err != nil {
		return nil, fmt.Errorf("creating predicate cache: %w", err)
	}
	return &Memo{p: p, cache: c}, nil
}

// Eval returns the cached result, or evaluates the predicate and caches it.
func (m *Memo) Eval(name string, a, b cinder.Context) (bool, error) {
	k := memoKey{name: name, a: a, b: b}
	if v, ok := m.cache.Get(k); ok {
		return v, nil
	}
	v, err := m.p.Eval(name, a, b)
	if err != nil {
		return false, err
	}
	m.cache.Add(k, v)
	return v, nil
}

// Names lists the names of the wrapped library, if it can list them.
func (m *Memo) Names() []string {
	if l, ok := m.p.(cinder.Lister); ok {
		return l.Names()
	}
	return nil
}

// Len is the number of cached results.
func (m *Memo) Len() int {
	return m.cache.Len()
}

// Purge empties the cache.
func (m *Memo) Purge() {
	m.cache.Purge()
}
