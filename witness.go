package cinder

import (
	"strings"
)

const (
	// ChainSeparator separates the chains of a witness on the wire.
	ChainSeparator = "#"
	// ContextSeparator separates the contexts of a chain on the wire.
	ContextSeparator = ";"
)

// A Chain is an ordered list of contexts, outermost binding first, that
// together explain the value of a formula.
type Chain []Context

func (c Chain) String() string {
	ss := make([]string, len(c))
	for i, x := range c {
		ss[i] = x.String()
	}
	return strings.Join(ss, ContextSeparator)
}

// A Witness is a set of chains. Each chain is an independent explanation.
type Witness []Chain

// String encodes the witness in the wire format: chains joined by '#',
// contexts in a chain joined by ';'.
func (w Witness) String() string {
	ss := make([]string, len(w))
	for i, c := range w {
		ss[i] = c.String()
	}
	return strings.Join(ss, ChainSeparator)
}

// ParseWitness decodes a witness in the wire format into context IDs.
// Empty chains are dropped.
func ParseWitness(s string) ([][]int, error) {
	var out [][]int
	if s == "" {
		return out, nil
	}
	for _, chain := range strings.Split(s, ChainSeparator) {
		var ids []int
		for _, e := range strings.Split(chain, ContextSeparator) {
			if e == "" {
				continue
			}
			id, err := ParseContextID(e)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		if len(ids) > 0 {
			out = append(out, ids)
		}
	}
	return out, nil
}

// cartesian pairs every chain of l with every chain of r.
func cartesian(l, r Witness) Witness {
	if len(l) == 0 {
		return r
	}
	if len(r) == 0 {
		return l
	}
	out := make(Witness, 0, len(l)*len(r))
	for _, a := range l {
		for _, b := range r {
			c := make(Chain, 0, len(a)+len(b))
			c = append(c, a...)
			c = append(c, b...)
			out = append(out, c)
		}
	}
	return out
}
