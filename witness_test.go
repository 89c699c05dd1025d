package cinder_test

import (
	"testing"

	"github.com/ezachrisen/cinder"
	"github.com/matryer/is"
)

func TestParseWitness(t *testing.T) {
	cases := []struct {
		in   string
		want [][]int
		err  bool
	}{
		{in: "", want: nil},
		{in: "ctx_1", want: [][]int{{1}}},
		{in: "ctx_1;ctx_2#ctx_3", want: [][]int{{1, 2}, {3}}},
		{in: "ctx_1;ctx_2;#ctx_3;", want: [][]int{{1, 2}, {3}}}, // trailing separators
		{in: "ctx_1##ctx_2", want: [][]int{{1}, {2}}},             // empty chain dropped
		{in: "ctx_1;car_2", err: true},
		{in: "ctx_x", err: true},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			is := is.New(t)
			got, err := cinder.ParseWitness(c.in)
			if c.err {
				is.True(err != nil)
				return
			}
			is.NoErr(err)
			if len(c.want) == 0 {
				is.Equal(len(got), 0)
				return
			}
			is.Equal(got, c.want)
		})
	}
}

func TestWitnessString(t *testing.T) {
	is := is.New(t)
	w := cinder.Witness{{ctx(1), ctx(2)}, {ctx(3)}}
	is.Equal(w.String(), "ctx_1;ctx_2#ctx_3")

	ids, err := cinder.ParseWitness(w.String())
	is.NoErr(err)
	is.Equal(ids, [][]int{{1, 2}, {3}})

	is.Equal(cinder.Witness{}.String(), "")
	is.Equal(cinder.Chain{ctx(7)}.String(), "ctx_7")
}

func TestContextID(t *testing.T) {
	is := is.New(t)
	is.Equal(ctx(42).String(), "ctx_42")

	id, err := cinder.ParseContextID("ctx_42")
	is.NoErr(err)
	is.Equal(id, 42)

	for _, bad := range []string{"", "ctx_", "42", "cx_42", "ctx_4x"} {
		_, err := cinder.ParseContextID(bad)
		is.True(err != nil) // invalid identifier
	}
}

func TestContextTime(t *testing.T) {
	is := is.New(t)

	c := cinder.Context{Timestamp: "2007-10-26 11:00:05:250"}
	tm, ok := c.Time()
	is.True(ok)
	is.Equal(tm.Second(), 5)
	is.Equal(tm.Nanosecond(), 250000000)

	c.Timestamp = "2007-10-26T11:00:05Z"
	tm, ok = c.Time()
	is.True(ok)
	is.Equal(tm.Hour(), 11)

	c.Timestamp = "yesterday"
	_, ok = c.Time()
	is.True(!ok)
}

func TestOpAndChange(t *testing.T) {
	is := is.New(t)

	op, err := cinder.ParseOp("+")
	is.NoErr(err)
	is.Equal(op, cinder.Add)
	op, err = cinder.ParseOp("-")
	is.NoErr(err)
	is.Equal(op, cinder.Remove)
	_, err = cinder.ParseOp("*")
	is.True(err != nil)
	is.Equal(cinder.Op(9).String(), "?")

	ch := cinder.Change{Op: cinder.Remove, Set: "pat_001", Context: ctx(3)}
	is.Equal(ch.String(), "-pat_001:ctx_3")
}
