package cinder

import (
	"errors"
	"fmt"
)

// Predicate is the interface implemented by predicate libraries. The checker
// calls Eval for every predicate leaf it recomputes.
//
// a is the innermost bound context and b the one bound just outside it. When
// the predicate is inside a single quantifier, a and b are the same context.
type Predicate interface {
	Eval(name string, a, b Context) (bool, error)
}

// Lister is implemented by predicate libraries that know all the names they
// can evaluate. Checkers created with ValidatePredicates use it to reject
// rules with unknown predicates before the first check.
type Lister interface {
	Names() []string
}

// ErrUnknownPredicate is returned (wrapped) when a rule uses a predicate the
// library cannot evaluate.
var ErrUnknownPredicate = errors.New("unknown predicate")

// PredicateFunc adapts an ordinary function to the Predicate interface.
type PredicateFunc func(name string, a, b Context) (bool, error)

// Eval calls f(name, a, b).
func (f PredicateFunc) Eval(name string, a, b Context) (bool, error) {
	return f(name, a, b)
}

// checkPredicateNames returns an error if any of names is not provided by l.
func checkPredicateNames(l Lister, names []string) error {
	known := map[string]bool{}
	for _, n := range l.Names() {
		known[n] = true
	}
	for _, n := range names {
		if !known[n] {
			return fmt.Errorf("%w: %s", ErrUnknownPredicate, n)
		}
	}
	return nil
}
