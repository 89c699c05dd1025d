package cinder

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Kind is the type of a formula node.
type Kind int

const (
	KindAnd Kind = iota
	KindImplies
	KindNot
	KindForall
	KindExists
	KindPred
)

func (k Kind) String() string {
	switch k {
	case KindAnd:
		return "and"
	case KindImplies:
		return "implies"
	case KindNot:
		return "not"
	case KindForall:
		return "forall"
	case KindExists:
		return "exists"
	case KindPred:
		return "bfunc"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// arity is the number of children a node of the kind must have.
func (k Kind) arity() int {
	switch k {
	case KindAnd, KindImplies:
		return 2
	case KindNot, KindForall, KindExists:
		return 1
	default:
		return 0
	}
}

// Quantifier reports whether the kind ranges over a context set.
func (k Kind) Quantifier() bool {
	return k == KindForall || k == KindExists
}

// A Node is one node of a rule formula (the syntax tree).
//
// Formulas are built with the constructor functions:
//
//	Forall("v1", "cars", Implies(
//	    Pred("sz_loc_range"),
//	    Exists("v2", "cars", Pred("same")),
//	))
//
// A formula must not be modified once a Checker has been created for it.
type Node struct {
	Kind Kind

	// Set is the name of the context set a quantifier ranges over.
	Set string

	// Var is the name of the variable a quantifier binds. It is only
	// used when printing the formula.
	Var string

	// Name is the name of the predicate of a KindPred node.
	Name string

	// Children are the operands: two for and/implies, one for not and the
	// quantifiers, none for predicates.
	Children []*Node
}

// ErrShape is returned when a formula does not have the structure required
// for checking.
var ErrShape = errors.New("malformed formula")

// Forall builds a universal quantifier over the set.
func Forall(v, set string, body *Node) *Node {
	return &Node{Kind: KindForall, Var: v, Set: set, Children: []*Node{body}}
}

// Exists builds an existential quantifier over the set.
func Exists(v, set string, body *Node) *Node {
	return &Node{Kind: KindExists, Var: v, Set: set, Children: []*Node{body}}
}

// And builds a conjunction.
func And(left, right *Node) *Node {
	return &Node{Kind: KindAnd, Children: []*Node{left, right}}
}

// Implies builds an implication.
func Implies(left, right *Node) *Node {
	return &Node{Kind: KindImplies, Children: []*Node{left, right}}
}

// Not builds a negation.
func Not(n *Node) *Node {
	return &Node{Kind: KindNot, Children: []*Node{n}}
}

// Pred builds a predicate leaf. The predicate is applied to the innermost
// bound context and the one bound just outside it.
func Pred(name string) *Node {
	return &Node{Kind: KindPred, Name: name}
}

// Validate checks that every node has the number of children its kind
// requires, that quantifiers name a set, and that every predicate is in the
// scope of at least one quantifier.
func (n *Node) Validate() error {
	return n.validate(n.label(), 0)
}

func (n *Node) validate(path string, depth int) error {
	if n == nil {
		return fmt.Errorf("%w: %s: nil node", ErrShape, path)
	}
	switch n.Kind {
	case KindAnd, KindImplies, KindNot, KindForall, KindExists, KindPred:
	default:
		return fmt.Errorf("%w: %s: unknown node kind %d", ErrShape, path, int(n.Kind))
	}
	if len(n.Children) != n.Kind.arity() {
		return fmt.Errorf("%w: %s: %s needs %d operand(s), has %d", ErrShape, path, n.Kind, n.Kind.arity(), len(n.Children))
	}
	switch {
	case n.Kind.Quantifier():
		if strings.TrimSpace(n.Set) == "" {
			return fmt.Errorf("%w: %s: quantifier without a context set", ErrShape, path)
		}
		depth++
	case n.Kind == KindPred:
		if strings.TrimSpace(n.Name) == "" {
			return fmt.Errorf("%w: %s: predicate without a name", ErrShape, path)
		}
		if depth == 0 {
			return fmt.Errorf("%w: %s: predicate %s is not bound by any quantifier", ErrShape, path, n.Name)
		}
	}
	for i, c := range n.Children {
		p := fmt.Sprintf("%s/%d", path, i)
		if c != nil {
			p = path + "/" + c.label()
		}
		if err := c.validate(p, depth); err != nil {
			return err
		}
	}
	return nil
}

// label is the short name of a node used in paths and trees.
func (n *Node) label() string {
	if n == nil {
		return "<nil>"
	}
	switch n.Kind {
	case KindForall, KindExists:
		if n.Var != "" {
			return fmt.Sprintf("%s %s in %s", n.Kind, n.Var, n.Set)
		}
		return fmt.Sprintf("%s in %s", n.Kind, n.Set)
	case KindPred:
		return n.Name
	default:
		return n.Kind.String()
	}
}

// Walk applies f to n and its descendants, depth first, parents before
// children. It stops at the first error.
func Walk(n *Node, f func(n *Node) error) error {
	if n == nil {
		return nil
	}
	if err := f(n); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := Walk(c, f); err != nil {
			return err
		}
	}
	return nil
}

// Sets returns the sorted names of the context sets the formula ranges over.
func (n *Node) Sets() []string {
	return n.collect(func(x *Node) (string, bool) {
		return x.Set, x.Kind.Quantifier()
	})
}

// Predicates returns the sorted names of the predicates used in the formula.
func (n *Node) Predicates() []string {
	return n.collect(func(x *Node) (string, bool) {
		return x.Name, x.Kind == KindPred
	})
}

func (n *Node) collect(f func(*Node) (string, bool)) []string {
	seen := map[string]bool{}
	_ = Walk(n, func(x *Node) error {
		if s, ok := f(x); ok {
			seen[s] = true
		}
		return nil
	})
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Formula returns the formula in infix notation, for example
//
//	forall v1 in cars: (sz_loc_range implies exists v2 in cars: same)
func (n *Node) Formula() string {
	if n == nil {
		return "<nil>"
	}
	switch n.Kind {
	case KindForall, KindExists:
		return n.label() + ": " + n.operand(0).Formula()
	case KindNot:
		return "not " + n.operand(0).Formula()
	case KindAnd, KindImplies:
		return "(" + n.operand(0).Formula() + " " + n.Kind.String() + " " + n.operand(1).Formula() + ")"
	default:
		return n.Name
	}
}

func (n *Node) operand(i int) *Node {
	if i < len(n.Children) {
		return n.Children[i]
	}
	return nil
}

// String returns a table of the formula's nodes, indented by depth.
func (n *Node) String() string {
	tw := table.NewWriter()
	tw.SetTitle("\nCINDER FORMULA\n")
	tw.AppendHeader(table.Row{"Node", "Kind", "Set", "Predicate"})
	for _, r := range n.rows(0) {
		tw.AppendRow(r)
	}
	style := table.StyleLight
	style.Format.Header = text.FormatDefault
	tw.SetStyle(style)
	return tw.Render()
}

func (n *Node) rows(depth int) []table.Row {
	if n == nil {
		return nil
	}
	indent := strings.Repeat("  ", depth)
	rows := []table.Row{{indent + n.label(), n.Kind.String(), n.Set, n.Name}}
	for _, c := range n.Children {
		rows = append(rows, c.rows(depth+1)...)
	}
	return rows
}

// Tree returns a tree representation of the formula.
//
// Example output:
//
//	forall v1 in cars
//	└── implies
//	    ├── sz_loc_range
//	    └── exists v2 in cars
//	        └── same
func (n *Node) Tree() string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(n.label())
	sb.WriteString("\n")
	n.buildTree(&sb, "")
	return sb.String()
}

func (n *Node) buildTree(sb *strings.Builder, prefix string) {
	writeTree(sb, prefix, len(n.Children), func(i int) string {
		return n.Children[i].label()
	}, func(i int, p string) {
		n.Children[i].buildTree(sb, p)
	})
}

// writeTree writes count children with box-drawing connectors. label returns
// the text for child i, and descend writes the subtree of child i with the
// given prefix.
func writeTree(sb *strings.Builder, prefix string, count int, label func(i int) string, descend func(i int, prefix string)) {
	for i := 0; i < count; i++ {
		connector, childPrefix := "├── ", "│   "
		if i == count-1 {
			connector, childPrefix = "└── ", "    "
		}
		sb.WriteString(prefix)
		sb.WriteString(connector)
		sb.WriteString(label(i))
		sb.WriteString("\n")
		descend(i, prefix+childPrefix)
	}
}
