package cinder_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/ezachrisen/cinder"
	"github.com/matryer/is"
)

// ctx returns a context with the given ID and an entity derived from it.
func ctx(id int) cinder.Context {
	return cinder.Context{
		ID:        id,
		Timestamp: fmt.Sprintf("2007-10-26 11:00:%02d:000", id%60),
		EntityTag: fmt.Sprintf("car%d", id%3),
		Longitude: 114 + float64(id)/1000,
		Latitude:  22.5,
		Speed:     float64(id),
	}
}

// newRegistry returns a registry with the sets filled with the given IDs.
func newRegistry(sets map[string][]int) *cinder.Registry {
	reg := cinder.NewRegistry()
	for name, ids := range sets {
		reg.Declare(name)
		for _, id := range ids {
			reg.Add(name, ctx(id))
		}
	}
	return reg
}

// mustCheck checks the rule and fails the test on error.
func mustCheck(t *testing.T, c *cinder.Checker) *cinder.Report {
	t.Helper()
	r, err := c.Check(context.Background())
	is.New(t).NoErr(err)
	return r
}

// naive evaluates the formula directly over the registry, without a
// checking tree. It is the reference for incremental checking.
func naive(n *cinder.Node, reg *cinder.Registry, pred cinder.Predicate, stack []cinder.Context) bool {
	switch n.Kind {
	case cinder.KindNot:
		return !naive(n.Children[0], reg, pred, stack)
	case cinder.KindAnd:
		l := naive(n.Children[0], reg, pred, stack)
		r := naive(n.Children[1], reg, pred, stack)
		return l && r
	case cinder.KindImplies:
		l := naive(n.Children[0], reg, pred, stack)
		r := naive(n.Children[1], reg, pred, stack)
		return !l || r
	case cinder.KindForall, cinder.KindExists:
		forall := n.Kind == cinder.KindForall
		for _, x := range reg.Elements(n.Set) {
			v := naive(n.Children[0], reg, pred, append(stack, x))
			if forall && !v {
				return false
			}
			if !forall && v {
				return true
			}
		}
		return forall
	case cinder.KindPred:
		k := len(stack)
		a, b := stack[k-1], stack[k-1]
		if k >= 2 {
			b = stack[k-2]
		}
		v, err := pred.Eval(n.Name, a, b)
		if err != nil {
			panic(err)
		}
		return v
	}
	panic(fmt.Sprintf("unexpected kind %s", n.Kind))
}

// sameReport compares two reports, ignoring the work counters.
func sameReport(a, b *cinder.Report) bool {
	return a.Rule == b.Rule && a.Pass == b.Pass && a.Links() == b.Links()
}
