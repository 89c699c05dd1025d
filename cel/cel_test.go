package cel_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ezachrisen/cinder"
	"github.com/ezachrisen/cinder/cel"
	"github.com/matryer/is"
)

var (
	car1 = cinder.Context{ID: 1, Timestamp: "2007-10-26 11:00:00:000", EntityTag: "A", Longitude: 113.5, Latitude: 22.5, Speed: 40}
	car2 = cinder.Context{ID: 2, Timestamp: "2007-10-26 11:00:05:000", EntityTag: "A", Longitude: 113.5, Latitude: 22.6, Speed: 45}
	car3 = cinder.Context{ID: 3, Timestamp: "not a time", EntityTag: "B", Longitude: 120, Latitude: 30, Speed: 200}
)

func TestLibraryEval(t *testing.T) {
	is := is.New(t)

	lib, err := cel.NewLibrary(map[string]string{
		"same":     `a.id == b.id`,
		"fast":     `a.speed > 100.0`,
		"near":     `dist(a, b) < 0.5`,
		"entity":   `a.entity == b.entity`,
		"in_order": `has(a.time) && has(b.time) && b.time <= a.time`,
	})
	is.NoErr(err)
	is.Equal(lib.Names(), []string{"entity", "fast", "in_order", "near", "same"})

	cases := []struct {
		pred string
		a, b cinder.Context
		want bool
	}{
		{"same", car1, car1, true},
		{"same", car1, car2, false},
		{"fast", car1, car1, false},
		{"fast", car3, car1, true},
		{"near", car1, car2, true},
		{"near", car1, car3, false},
		{"entity", car1, car2, true},
		{"entity", car1, car3, false},
		{"in_order", car2, car1, true},
		{"in_order", car1, car2, false},
		{"in_order", car3, car1, false},
	}

	for _, c := range cases {
		got, err := lib.Eval(c.pred, c.a, c.b)
		is.NoErr(err)
		if got != c.want {
			t.Errorf("%s(%s, %s) = %t, want %t", c.pred, c.a, c.b, got, c.want)
		}
	}
}

func TestLibraryUnknownPredicate(t *testing.T) {
	is := is.New(t)

	lib, err := cel.NewLibrary(map[string]string{"same": `a.id == b.id`})
	is.NoErr(err)

	_, err = lib.Eval("missing", car1, car2)
	is.True(errors.Is(err, cinder.ErrUnknownPredicate))
}

// time is only set for timestamps that parse; unguarded use fails the
// evaluation instead of yielding false.
func TestLibraryMissingTime(t *testing.T) {
	is := is.New(t)

	lib, err := cel.NewLibrary(map[string]string{
		"timed":     `has(a.time)`,
		"unguarded": `a.time >= b.time`,
	})
	is.NoErr(err)

	ok, err := lib.Eval("timed", car1, car1)
	is.NoErr(err)
	is.True(ok)

	ok, err = lib.Eval("timed", car3, car1)
	is.NoErr(err)
	is.True(!ok) // "not a time" does not parse

	ok, err = lib.Eval("unguarded", car2, car1)
	is.NoErr(err)
	is.True(ok)

	_, err = lib.Eval("unguarded", car3, car1)
	is.True(err != nil) // no such key
}

func TestLibraryCompileErrors(t *testing.T) {
	cases := map[string]map[string]string{
		"syntax":     {"bad": `a.id ==`},
		"not bool":   {"bad": `a.speed + 1.0`},
		"unknown":    {"bad": `c.id == 1`},
		"empty name": {"": `true`},
	}

	for name, defs := range cases {
		t.Run(name, func(t *testing.T) {
			is := is.New(t)
			_, err := cel.NewLibrary(defs)
			is.True(err != nil)
		})
	}
}

func TestLibraryExpr(t *testing.T) {
	is := is.New(t)

	lib, err := cel.NewLibrary(map[string]string{"same": `a.id == b.id`})
	is.NoErr(err)

	e, ok := lib.Expr("same")
	is.True(ok)
	is.Equal(e, `a.id == b.id`)

	_, ok = lib.Expr("other")
	is.True(!ok)
}

// The checker accepts a CEL library as its predicate library, including
// eager validation of predicate names.
func TestLibraryWithChecker(t *testing.T) {
	is := is.New(t)

	lib, err := cel.NewLibrary(map[string]string{"slow": `a.speed < 100.0`})
	is.NoErr(err)

	reg := cinder.NewRegistry()
	reg.Add("cars", car1)
	reg.Add("cars", car3)

	c, err := cinder.New("all_slow", cinder.Forall("v", "cars", cinder.Pred("slow")), reg, lib, cinder.ValidatePredicates(true))
	is.NoErr(err)

	r, err := c.Check(context.Background())
	is.NoErr(err)
	is.True(!r.Pass)
	is.Equal(r.Links(), "ctx_3")

	_, err = cinder.New("typo", cinder.Forall("v", "cars", cinder.Pred("slw")), reg, lib, cinder.ValidatePredicates(true))
	is.True(errors.Is(err, cinder.ErrUnknownPredicate))
}
