package cinder_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/ezachrisen/cinder"
	"github.com/matryer/is"
)

// carsRule is the example used throughout the package documentation.
func carsRule() *cinder.Node {
	return cinder.Forall("v1", "cars", cinder.Implies(
		cinder.Pred("sz_loc_range"),
		cinder.Exists("v2", "cars", cinder.Pred("same")),
	))
}

func TestValidate(t *testing.T) {
	cases := map[string]struct {
		n    *cinder.Node
		want string // empty if valid
	}{
		"ok":     {n: carsRule()},
		"nested": {n: cinder.Not(cinder.Exists("x", "S", cinder.And(cinder.Pred("p"), cinder.Not(cinder.Pred("q")))))},
		"nil": {
			n:    cinder.Forall("x", "S", nil),
			want: "forall x in S/0: nil node",
		},
		"unbound predicate": {
			n:    cinder.And(cinder.Pred("p"), cinder.Forall("x", "S", cinder.Pred("q"))),
			want: "and/p: predicate p is not bound by any quantifier",
		},
		"missing operand": {
			n:    cinder.Forall("x", "S", &cinder.Node{Kind: cinder.KindImplies, Children: []*cinder.Node{cinder.Pred("p")}}),
			want: "forall x in S/implies: implies needs 2 operand(s), has 1",
		},
		"extra operand": {
			n:    &cinder.Node{Kind: cinder.KindExists, Set: "S", Children: []*cinder.Node{cinder.Pred("p"), cinder.Pred("q")}},
			want: "exists in S: exists needs 1 operand(s), has 2",
		},
		"no set": {
			n:    cinder.Forall("x", " ", cinder.Pred("p")),
			want: "quantifier without a context set",
		},
		"no predicate name": {
			n:    cinder.Forall("x", "S", cinder.Pred("")),
			want: "predicate without a name",
		},
		"unknown kind": {
			n:    cinder.Forall("x", "S", &cinder.Node{Kind: cinder.Kind(42)}),
			want: "unknown node kind 42",
		},
	}

	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			is := is.New(t)
			err := c.n.Validate()
			if c.want == "" {
				is.NoErr(err)
				return
			}
			is.True(errors.Is(err, cinder.ErrShape))
			is.True(strings.Contains(err.Error(), c.want)) // error names the offending node
		})
	}
}

func TestFormula(t *testing.T) {
	is := is.New(t)
	is.Equal(carsRule().Formula(), "forall v1 in cars: (sz_loc_range implies exists v2 in cars: same)")

	n := cinder.Exists("", "S", cinder.Not(cinder.And(cinder.Pred("p"), cinder.Pred("q"))))
	is.Equal(n.Formula(), "exists in S: not (p and q)")

	var none *cinder.Node
	is.Equal(none.Formula(), "<nil>")
}

func TestSetsAndPredicates(t *testing.T) {
	is := is.New(t)
	n := cinder.Forall("x", "T", cinder.And(
		cinder.Exists("y", "S", cinder.Pred("q")),
		cinder.Forall("z", "T", cinder.Implies(cinder.Pred("p"), cinder.Pred("q"))),
	))
	is.Equal(n.Sets(), []string{"S", "T"})
	is.Equal(n.Predicates(), []string{"p", "q"})
}

func TestWalk(t *testing.T) {
	is := is.New(t)
	var kinds []string
	err := cinder.Walk(carsRule(), func(n *cinder.Node) error {
		kinds = append(kinds, n.Kind.String())
		return nil
	})
	is.NoErr(err)
	is.Equal(kinds, []string{"forall", "implies", "bfunc", "exists", "bfunc"})

	stop := errors.New("stop")
	count := 0
	err = cinder.Walk(carsRule(), func(n *cinder.Node) error {
		count++
		if n.Kind == cinder.KindImplies {
			return stop
		}
		return nil
	})
	is.Equal(err, stop)
	is.Equal(count, 2)

	is.NoErr(cinder.Walk(nil, func(*cinder.Node) error { return stop }))
}

func TestKind(t *testing.T) {
	is := is.New(t)
	is.Equal(cinder.KindPred.String(), "bfunc")
	is.Equal(cinder.Kind(42).String(), "kind(42)")
	is.True(cinder.KindForall.Quantifier())
	is.True(cinder.KindExists.Quantifier())
	is.True(!cinder.KindNot.Quantifier())
}

func TestNodeTree(t *testing.T) {
	is := is.New(t)
	want := `forall v1 in cars
└── implies
    ├── sz_loc_range
    └── exists v2 in cars
        └── same
`
	is.Equal(carsRule().Tree(), want)

	s := carsRule().String()
	is.True(strings.Contains(s, "CINDER FORMULA"))
	is.True(strings.Contains(s, "    exists v2 in cars")) // indented by depth
}
