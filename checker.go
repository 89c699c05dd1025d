package cinder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrRuleNotFound is returned when a rule name is not known.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrIndexOutOfSync is returned when the checking tree no longer matches
	// the context sets. The checker is disabled when this happens.
	ErrIndexOutOfSync = errors.New("checking tree out of sync with context sets")

	// ErrBroken is returned by every call to a disabled checker.
	ErrBroken = errors.New("checker disabled")
)

// Checker checks one rule incrementally. It keeps the rule's Checking Context
// Tree in step with the context sets it ranges over, and recomputes only the
// parts of the tree affected by changes since the last check.
//
// A Checker is not safe for concurrent use.
type Checker struct {
	name  string
	rule  *Node
	reg   *Registry
	pred  Predicate
	opts  CheckerOptions
	sets  map[string]bool
	tree  tree
	index criticalIndex

	// broken is set when an internal invariant fails; the checker refuses
	// further work until Reset.
	broken error

	checks     int
	recomputed int
}

// New validates the rule and builds its checking tree from the current
// contents of the registry. Sets referenced by the rule are declared in the
// registry if they do not exist yet.
func New(name string, rule *Node, reg *Registry, pred Predicate, opts ...CheckerOption) (*Checker, error) {
	if len(strings.TrimSpace(name)) == 0 {
		return nil, fmt.Errorf("required rule name for rule %s", rule.Formula())
	}
	if reg == nil {
		return nil, fmt.Errorf("rule %s: nil registry", name)
	}
	if pred == nil {
		return nil, fmt.Errorf("rule %s: nil predicate library", name)
	}
	if err := rule.Validate(); err != nil {
		return nil, fmt.Errorf("rule %s: %w", name, err)
	}

	c := &Checker{
		name: name,
		rule: rule,
		reg:  reg,
		pred: pred,
		sets: map[string]bool{},
	}
	applyCheckerOptions(&c.opts, opts...)
	if c.opts.Logger == nil {
		c.opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c.opts.Logger = c.opts.Logger.With("rule", name)

	if c.opts.ValidatePredicates {
		l, ok := pred.(Lister)
		if !ok {
			return nil, fmt.Errorf("rule %s: predicate validation requested, but %T cannot list its predicates", name, pred)
		}
		if err := checkPredicateNames(l, rule.Predicates()); err != nil {
			return nil, fmt.Errorf("rule %s: %w", name, err)
		}
	}

	for _, s := range rule.Sets() {
		c.sets[s] = true
	}
	reg.Declare(rule.Sets()...)
	c.rebuild()
	return c, nil
}

// CheckerOptions holds the settings of a Checker. See the functional
// definitions below for the meaning.
type CheckerOptions struct {
	Logger             *slog.Logger
	Metrics            *Metrics
	ValidatePredicates bool
}

// CheckerOption sets a CheckerOptions field.
type CheckerOption func(o *CheckerOptions)

func applyCheckerOptions(o *CheckerOptions, opts ...CheckerOption) {
	for _, opt := range opts {
		opt(o)
	}
}

// WithLogger sets the logger for structural edits and checks.
// Default: discard
func WithLogger(l *slog.Logger) CheckerOption {
	return func(o *CheckerOptions) {
		o.Logger = l
	}
}

// WithMetrics records checker activity in m.
// Default: none
func WithMetrics(m *Metrics) CheckerOption {
	return func(o *CheckerOptions) {
		o.Metrics = m
	}
}

// ValidatePredicates makes New reject rules that use predicates the library
// does not list. The library must implement Lister. Without this option an
// unknown predicate is reported by the first Check that reaches it.
// Default: off
func ValidatePredicates(b bool) CheckerOption {
	return func(o *CheckerOptions) {
		o.ValidatePredicates = b
	}
}

// Name is the rule name.
func (c *Checker) Name() string {
	return c.name
}

// Rule returns the rule formula. It must not be modified.
func (c *Checker) Rule() *Node {
	return c.rule
}

// Registry returns the registry the checker reads its sets from.
func (c *Checker) Registry() *Registry {
	return c.reg
}

// References reports whether the rule ranges over the named set.
func (c *Checker) References(set string) bool {
	return c.sets[set]
}

// Update applies a change to the named set: the checking tree is edited
// first, then the registry. Changes to sets the rule does not reference,
// additions of members and removals of non-members are no-ops.
//
// When several checkers share a registry, use a Suite (or Edit) so that every
// checker sees the change before the registry is modified.
func (c *Checker) Update(op Op, set string, x Context) error {
	if c.broken != nil {
		return c.brokenErr()
	}
	if !c.sets[set] {
		return nil
	}
	if err := x.Valid(); err != nil {
		return fmt.Errorf("rule %s: %w", c.name, err)
	}
	switch op {
	case Add:
		if c.reg.Contains(set, x) {
			return nil
		}
		if err := c.Edit(op, set, x); err != nil {
			return err
		}
		c.reg.Add(set, x)
	case Remove:
		if !c.reg.Contains(set, x) {
			return nil
		}
		if err := c.Edit(op, set, x); err != nil {
			return err
		}
		c.reg.Remove(set, x)
	default:
		return fmt.Errorf("rule %s: unknown operation %d", c.name, int(op))
	}
	return nil
}

// Edit changes the checking tree for a change to the named set, without
// modifying the registry. The caller must commit the change to the registry
// after all checkers have been edited, and must only pass additions of
// non-members and removals of members.
func (c *Checker) Edit(op Op, set string, x Context) error {
	if c.broken != nil {
		return c.brokenErr()
	}
	if !c.sets[set] {
		return nil
	}
	switch op {
	case Add:
		c.add(set, x)
	case Remove:
		if err := c.remove(set, x); err != nil {
			c.broken = err
			c.opts.Logger.Error("checker disabled", "error", err)
			return err
		}
	default:
		return fmt.Errorf("rule %s: unknown operation %d", c.name, int(op))
	}
	c.opts.Logger.Debug("edited checking tree", "op", op.String(), "set", set, "context", x.String(), "nodes", c.tree.size)
	c.opts.Metrics.update(c.name, op, c.tree.size)
	return nil
}

// pending is a context being added to a set that is not in the registry yet.
// Quantifiers over that set built during the addition must include it.
type pending struct {
	set string
	ctx Context
	ok  bool
}

// build creates the checking tree for the formula node st. Quantifiers get one
// branch per member of their set, each bound to its member.
func (c *Checker) build(st *Node, parent nodeID, bound Context, bind bool, p pending) nodeID {
	id := c.tree.alloc(st, parent, bound, bind)
	var children []nodeID
	if st.Kind.Quantifier() {
		c.index.register(st.Set, id)
		elems := c.reg.Elements(st.Set)
		if p.ok && p.set == st.Set && !c.reg.Contains(st.Set, p.ctx) {
			elems = append(elems, p.ctx)
		}
		body := st.Children[0]
		children = make([]nodeID, 0, len(elems))
		for _, x := range elems {
			children = append(children, c.build(body, id, x, true, p))
		}
	} else {
		children = make([]nodeID, 0, len(st.Children))
		for _, ch := range st.Children {
			children = append(children, c.build(ch, id, Context{}, false, p))
		}
	}
	c.tree.nodes[id].children = children
	return id
}

// add appends a branch for x to every quantifier instance over set. Instances
// created while adding already include x and are not in the snapshot.
func (c *Checker) add(set string, x Context) {
	p := pending{set: set, ctx: x, ok: true}
	for _, id := range c.index.snapshot(set) {
		c.tree.invalidate(id)
		body := c.tree.nodes[id].st.Children[0]
		child := c.build(body, id, x, true, p)
		c.tree.nodes[id].children = append(c.tree.nodes[id].children, child)
	}
}

// remove detaches the branch bound to x from every quantifier instance over
// set. Only direct children are matched; instances inside a detached branch
// are dropped with it.
func (c *Checker) remove(set string, x Context) error {
	dead := map[string]map[nodeID]bool{}
	for _, id := range c.index.snapshot(set) {
		if !c.tree.nodes[id].live {
			continue
		}
		c.tree.invalidate(id)
		i := c.childBoundTo(id, x)
		if i < 0 {
			return fmt.Errorf("%w: rule %s: %s has no branch for %s", ErrIndexOutOfSync, c.name, c.tree.nodes[id].st.label(), x)
		}
		child := c.tree.detach(id, i)
		c.tree.release(child, func(q nodeID, n *cctNode) {
			if dead[n.st.Set] == nil {
				dead[n.st.Set] = map[nodeID]bool{}
			}
			dead[n.st.Set][q] = true
		})
	}
	c.index.deregister(dead)
	return nil
}

func (c *Checker) childBoundTo(id nodeID, x Context) int {
	for i, ch := range c.tree.nodes[id].children {
		n := &c.tree.nodes[ch]
		if n.hasBound && n.bound == x {
			return i
		}
	}
	return -1
}

// Check evaluates the rule, recomputing only stale nodes, and reports the
// verdict. A failing rule is reported with its witness chains.
func (c *Checker) Check(ctx context.Context) (*Report, error) {
	if c.broken != nil {
		return nil, c.brokenErr()
	}
	_, span := tracer.Start(ctx, "cinder.Checker.Check", trace.WithAttributes(
		attribute.String("rule", c.name),
		attribute.Int("nodes", c.tree.size),
	))
	defer span.End()

	start := time.Now()
	e := evaluation{c: c}
	pass, err := e.eval(c.tree.root)
	if err != nil {
		err = fmt.Errorf("checking rule %s: %w", c.name, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	elapsed := time.Since(start)
	c.checks++
	c.recomputed = e.recomputed

	r := &Report{
		Rule:       c.name,
		Pass:       pass,
		Recomputed: e.recomputed,
		Nodes:      c.tree.size,
	}
	if !pass {
		for _, ch := range c.tree.nodes[c.tree.root].witness {
			if len(ch) > 0 {
				r.Chains = append(r.Chains, slices.Clone(ch))
			}
		}
	}
	span.SetAttributes(attribute.Bool("pass", pass), attribute.Int("recomputed", e.recomputed))
	c.opts.Logger.Debug("checked rule", "pass", pass, "recomputed", e.recomputed, "nodes", c.tree.size, "elapsed", elapsed)
	c.opts.Metrics.check(c.name, pass, e.recomputed, c.tree.size, elapsed)
	return r, nil
}

// Reset discards the checking tree and builds it again from the registry.
// It also re-enables a checker disabled by an internal error.
func (c *Checker) Reset() {
	c.broken = nil
	c.rebuild()
	c.opts.Logger.Info("checking tree rebuilt", "nodes", c.tree.size)
}

func (c *Checker) rebuild() {
	c.tree = newTree()
	c.index = criticalIndex{}
	c.tree.root = c.build(c.rule, noNode, Context{}, false, pending{})
	c.opts.Metrics.size(c.name, c.tree.size)
}

func (c *Checker) brokenErr() error {
	return fmt.Errorf("%w: rule %s: %w", ErrBroken, c.name, c.broken)
}

// Stats describes the state of a checker's tree.
type Stats struct {
	// Nodes in the checking tree.
	Nodes int
	// Stale nodes that the next check will recompute.
	Stale int
	// Critical nodes: quantifier instances indexed by set.
	Critical int
	// Checks completed.
	Checks int
	// Nodes recomputed by the last check.
	Recomputed int
}

// Stats returns counts describing the checking tree.
func (c *Checker) Stats() Stats {
	s := Stats{
		Nodes:      c.tree.size,
		Critical:   c.index.count(),
		Checks:     c.checks,
		Recomputed: c.recomputed,
	}
	c.tree.walk(c.tree.root, func(_ nodeID, n *cctNode) {
		if n.valid == Stale {
			s.Stale++
		}
	})
	return s
}

// Tree returns a tree representation of the checking tree, showing each
// node's bound context, cached value and state.
func (c *Checker) Tree() string {
	return c.tree.render()
}
