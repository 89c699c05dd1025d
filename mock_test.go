package cinder_test

import (
	"fmt"
	"sync"

	"github.com/ezachrisen/cinder"
)

// -------------------------------------------------- MOCK PREDICATES
// mockPredicates is used for testing.
// It evaluates predicates from a table of functions and records how often
// each predicate was called, so tests can tell what a check recomputed.
type mockPredicates struct {
	mu    sync.Mutex
	funcs map[string]func(a, b cinder.Context) bool
	calls map[string]int
	// if set, evaluating this predicate fails
	failing string
}

func newMockPredicates() *mockPredicates {
	return &mockPredicates{
		funcs: map[string]func(a, b cinder.Context) bool{
			// true for even IDs
			"even": func(a, _ cinder.Context) bool { return a.ID%2 == 0 },
			// true when a and b are the same context
			"same": func(a, b cinder.Context) bool { return a.ID == b.ID },
			// true when a has a smaller ID than b
			"less": func(a, b cinder.Context) bool { return a.ID < b.ID },
			// true when a and b belong to the same entity
			"entity": func(a, b cinder.Context) bool { return a.EntityTag == b.EntityTag },
			"true":   func(_, _ cinder.Context) bool { return true },
			"false":  func(_, _ cinder.Context) bool { return false },
		},
		calls: map[string]int{},
	}
}

func (m *mockPredicates) Eval(name string, a, b cinder.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[name]++
	if name == m.failing {
		return false, fmt.Errorf("predicate %s failed on purpose", name)
	}
	f, ok := m.funcs[name]
	if !ok {
		return false, fmt.Errorf("%w: %s", cinder.ErrUnknownPredicate, name)
	}
	return f(a, b), nil
}

func (m *mockPredicates) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.funcs))
	for n := range m.funcs {
		names = append(names, n)
	}
	return names
}

// Calls returns the number of evaluations of the named predicate.
func (m *mockPredicates) Calls(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

// ResetCalls clears the call counts.
func (m *mockPredicates) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = map[string]int{}
}
