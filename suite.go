package cinder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Suite checks a set of rules that share a Registry. It is the single writer
// of the registry: a batch of changes is routed to every checker before each
// change is committed to the registry, and then all rules are checked in
// parallel against the resulting stable sets.
//
// Rules can be added and removed while the suite is in use; the current list
// of checkers is published atomically.
type Suite struct {
	reg      *Registry
	checkers atomic.Pointer[[]*Checker] // sorted by name, never modified after Store
	mu       sync.Mutex                 // serializes Apply, Check and rule changes
	opts     SuiteOptions
}

// SuiteOptions holds the settings of a Suite.
type SuiteOptions struct {
	// Parallelism is the number of rules checked at the same time.
	// Zero or less means no limit.
	Parallelism int
	Logger      *slog.Logger
}

// SuiteOption sets a SuiteOptions field.
type SuiteOption func(o *SuiteOptions)

// Parallelism limits the number of rules checked at the same time.
// Default: no limit
func Parallelism(n int) SuiteOption {
	return func(o *SuiteOptions) {
		o.Parallelism = n
	}
}

// SuiteLogger sets the logger of the suite.
// Default: discard
func SuiteLogger(l *slog.Logger) SuiteOption {
	return func(o *SuiteOptions) {
		o.Logger = l
	}
}

// NewSuite creates an empty suite over the registry.
func NewSuite(reg *Registry, opts ...SuiteOption) *Suite {
	s := &Suite{reg: reg}
	for _, opt := range opts {
		opt(&s.opts)
	}
	if s.opts.Logger == nil {
		s.opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	empty := []*Checker{}
	s.checkers.Store(&empty)
	return s
}

// Registry returns the shared registry.
func (s *Suite) Registry() *Registry {
	return s.reg
}

// Add adds checkers to the suite. Every checker must use the suite's
// registry and have a name not already in the suite.
func (s *Suite) Add(checkers ...*Checker) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := slices.Clone(*s.checkers.Load())
	for _, c := range checkers {
		if c == nil {
			return fmt.Errorf("attempt to add nil checker")
		}
		if c.reg != s.reg {
			return fmt.Errorf("rule %s uses a different registry than the suite", c.name)
		}
		if slices.ContainsFunc(next, func(x *Checker) bool { return x.name == c.name }) {
			return fmt.Errorf("rule %s is already in the suite", c.name)
		}
		next = append(next, c)
	}
	slices.SortFunc(next, func(a, b *Checker) int {
		switch {
		case a.name < b.name:
			return -1
		case a.name > b.name:
			return 1
		}
		return 0
	})
	s.checkers.Store(&next)
	return nil
}

// Remove removes the named rule from the suite.
func (s *Suite) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := *s.checkers.Load()
	i := slices.IndexFunc(cur, func(c *Checker) bool { return c.name == name })
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrRuleNotFound, name)
	}
	cur[i].opts.Metrics.forget(name)
	next := slices.Delete(slices.Clone(cur), i, i+1)
	s.checkers.Store(&next)
	return nil
}

// Checker returns the checker for the named rule.
func (s *Suite) Checker(name string) (*Checker, bool) {
	for _, c := range *s.checkers.Load() {
		if c.name == name {
			return c, true
		}
	}
	return nil, false
}

// Names returns the rule names in the suite, sorted.
func (s *Suite) Names() []string {
	cur := *s.checkers.Load()
	names := make([]string, len(cur))
	for i, c := range cur {
		names[i] = c.name
	}
	return names
}

// Len is the number of rules in the suite.
func (s *Suite) Len() int {
	return len(*s.checkers.Load())
}

// Apply applies a batch of changes in order. For each change, every checker
// that references the set edits its tree, then the registry is changed.
// Additions of members and removals of non-members are skipped. Changes
// with an invalid context are reported and reach neither the checkers nor
// the registry.
//
// A checker that fails to apply a change is disabled; the other checkers and
// the registry still receive the change. The errors of all disabled checkers
// are returned together.
func (s *Suite) Apply(ctx context.Context, changes []Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, span := tracer.Start(ctx, "cinder.Suite.Apply", trace.WithAttributes(
		attribute.Int("changes", len(changes)),
		attribute.Int("rules", s.Len()),
	))
	defer span.End()

	cur := *s.checkers.Load()
	var errs []error
	applied := 0
	for _, ch := range changes {
		if err := ch.Context.Valid(); err != nil {
			errs = append(errs, fmt.Errorf("change %s: %w", ch, err))
			continue
		}
		member := s.reg.Contains(ch.Set, ch.Context)
		if (ch.Op == Add && member) || (ch.Op == Remove && !member) {
			s.opts.Logger.Debug("skipping change", "change", ch.String(), "member", member)
			continue
		}
		for _, c := range cur {
			if c.broken != nil {
				continue
			}
			if err := c.Edit(ch.Op, ch.Set, ch.Context); err != nil {
				errs = append(errs, err)
			}
		}
		switch ch.Op {
		case Add:
			s.reg.Add(ch.Set, ch.Context)
		case Remove:
			s.reg.Remove(ch.Set, ch.Context)
		default:
			errs = append(errs, fmt.Errorf("change %s: unknown operation %d", ch, int(ch.Op)))
			continue
		}
		applied++
	}
	span.SetAttributes(attribute.Int("applied", applied))
	if err := errors.Join(errs...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Check checks every rule and returns the reports in rule name order.
// Disabled checkers are reported as errors.
func (s *Suite) Check(ctx context.Context) ([]*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := *s.checkers.Load()
	reports := make([]*Report, len(cur))
	g, gctx := errgroup.WithContext(ctx)
	if s.opts.Parallelism > 0 {
		g.SetLimit(s.opts.Parallelism)
	}
	for i, c := range cur {
		i, c := i, c // per-iteration copies; go directive is below 1.22
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := c.Check(gctx)
			if err != nil {
				return err
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// Step applies a batch of changes and checks all rules.
func (s *Suite) Step(ctx context.Context, changes []Change) ([]*Report, error) {
	if err := s.Apply(ctx, changes); err != nil {
		return nil, err
	}
	return s.Check(ctx)
}
