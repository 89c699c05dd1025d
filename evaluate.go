package cinder

import (
	"fmt"
	"slices"
)

// evaluation is one pass over the checking tree. stack holds the contexts
// bound by the quantifier branches between the root and the current node.
type evaluation struct {
	c          *Checker
	stack      []Context
	recomputed int
}

// eval returns the value of node id, recomputing it and its stale
// descendants. Fresh nodes are returned from the cache without descending.
func (e *evaluation) eval(id nodeID) (bool, error) {
	t := &e.c.tree
	n := &t.nodes[id]
	if n.valid == Fresh {
		return n.value, nil
	}
	if n.hasBound {
		e.stack = append(e.stack, n.bound)
		defer func() { e.stack = e.stack[:len(e.stack)-1] }()
	}

	var (
		value bool
		w     Witness
		err   error
	)
	if len(n.children) == 0 {
		value, w, err = e.leaf(n)
		if err != nil {
			return false, err
		}
	} else {
		value, w, err = e.inner(n)
		if err != nil {
			return false, err
		}
	}

	n.value = value
	n.witness = w
	n.valid = Fresh
	e.recomputed++
	return value, nil
}

// leaf evaluates predicates and quantifiers over empty sets.
func (e *evaluation) leaf(n *cctNode) (bool, Witness, error) {
	w := Witness{slices.Clone(Chain(e.stack))}
	switch n.st.Kind {
	case KindForall:
		return true, w, nil
	case KindExists:
		return false, w, nil
	case KindPred:
		k := len(e.stack)
		if k == 0 {
			return false, nil, fmt.Errorf("%w: predicate %s evaluated without a bound context", ErrIndexOutOfSync, n.st.Name)
		}
		a, b := e.stack[k-1], e.stack[k-1]
		if k >= 2 {
			b = e.stack[k-2]
		}
		v, err := e.c.pred.Eval(n.st.Name, a, b)
		if err != nil {
			return false, nil, fmt.Errorf("predicate %s(%s, %s): %w", n.st.Name, a, b, err)
		}
		return v, w, nil
	}
	return false, nil, fmt.Errorf("%w: %s node without operands", ErrIndexOutOfSync, n.st.Kind)
}

// inner evaluates every child of a connective or quantifier, then combines
// the results. Children are never skipped, so the whole subtree is fresh
// afterwards.
func (e *evaluation) inner(n *cctNode) (bool, Witness, error) {
	t := &e.c.tree
	values := make([]bool, len(n.children))
	for i, ch := range n.children {
		v, err := e.eval(ch)
		if err != nil {
			return false, nil, err
		}
		values[i] = v
	}
	witness := func(i int) Witness {
		return t.nodes[n.children[i]].witness
	}

	switch n.st.Kind {
	case KindNot:
		v, w := combineNot(values[0], witness(0))
		return v, w, nil
	case KindAnd:
		v, w := combineAnd(values[0], witness(0), values[1], witness(1))
		return v, w, nil
	case KindImplies:
		v, w := combineImplies(values[0], witness(0), values[1], witness(1))
		return v, w, nil
	case KindForall, KindExists:
		ws := make([]Witness, len(values))
		for i := range ws {
			ws[i] = witness(i)
		}
		v, w := combineQuantifier(n.st.Kind == KindForall, values, ws)
		return v, w, nil
	}
	return false, nil, fmt.Errorf("%w: %s node with operands", ErrIndexOutOfSync, n.st.Kind)
}

// combineNot keeps the operand's witness: the same bindings explain both.
func combineNot(v bool, w Witness) (bool, Witness) {
	return !v, w
}

// combineAnd reports the failing side alone when exactly one side fails, and
// pairs both sides' chains otherwise.
func combineAnd(lv bool, lw Witness, rv bool, rw Witness) (bool, Witness) {
	switch {
	case lv && !rv:
		return false, rw
	case !lv && rv:
		return false, lw
	default:
		return lv && rv, cartesian(lw, rw)
	}
}

// combineImplies pairs both sides' chains when the implication holds, and
// reports the consequent alone when it does not.
func combineImplies(lv bool, lw Witness, rv bool, rw Witness) (bool, Witness) {
	if !lv || rv {
		return true, cartesian(lw, rw)
	}
	return false, rw
}

// combineQuantifier aggregates with AND (forall) or OR (exists) and keeps the
// witnesses of the children whose value equals the aggregate.
func combineQuantifier(forall bool, values []bool, ws []Witness) (bool, Witness) {
	agg := forall
	for _, v := range values {
		if forall {
			agg = agg && v
		} else {
			agg = agg || v
		}
	}
	var w Witness
	for i, v := range values {
		if v == agg {
			w = append(w, ws[i]...)
		}
	}
	return agg, w
}
