package main

import (
	"sort"

	"github.com/ezachrisen/cinder"
	"github.com/ezachrisen/cinder/cel"
	"github.com/ezachrisen/cinder/config"
	"github.com/ezachrisen/cinder/predicates"
)

// layered evaluates CEL predicates first and falls back to the built-ins.
type layered struct {
	cel     *cel.Library
	builtin predicates.Library
}

func (l layered) Eval(name string, a, b cinder.Context) (bool, error) {
	if l.cel != nil {
		if _, ok := l.cel.Expr(name); ok {
			return l.cel.Eval(name, a, b)
		}
	}
	return l.builtin.Eval(name, a, b)
}

func (l layered) Names() []string {
	seen := map[string]bool{}
	for _, n := range l.builtin.Names() {
		seen[n] = true
	}
	if l.cel != nil {
		for _, n := range l.cel.Names() {
			seen[n] = true
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// newLibrary builds the predicate library described by the configuration.
func newLibrary(cfg config.PredicateConfig) (cinder.Predicate, error) {
	l := layered{builtin: predicates.New(cfg.Bounds)}
	if len(cfg.CEL) > 0 {
		c, err := cel.NewLibrary(cfg.CEL)
		if err != nil {
			return nil, err
		}
		l.cel = c
	}
	if cfg.CacheSize == 0 {
		return l, nil
	}
	m, err := predicates.Memoize(l, cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	return m, nil
}
