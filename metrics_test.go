package cinder

import (
	"context"
	"testing"

	"github.com/matryer/is"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics(t *testing.T) {
	is := is.New(t)
	preg := prometheus.NewRegistry()
	m, err := NewMetrics(preg)
	is.NoErr(err)

	reg := NewRegistry()
	c, err := New("evens", Forall("x", "S", Pred("even")), reg, evenPredicate{}, WithMetrics(m))
	is.NoErr(err)
	is.Equal(testutil.ToFloat64(m.nodes.WithLabelValues("evens")), 1.0)

	is.NoErr(c.Update(Add, "S", Context{ID: 2}))
	is.NoErr(c.Update(Add, "S", Context{ID: 3}))
	is.NoErr(c.Update(Add, "S", Context{ID: 3})) // no-op
	is.Equal(testutil.ToFloat64(m.updates.WithLabelValues("evens", "+")), 2.0)
	is.Equal(testutil.ToFloat64(m.nodes.WithLabelValues("evens")), 3.0)

	_, err = c.Check(context.Background())
	is.NoErr(err)
	is.Equal(testutil.ToFloat64(m.checks.WithLabelValues("evens", "fail")), 1.0)
	is.Equal(testutil.ToFloat64(m.recomputed.WithLabelValues("evens")), 3.0)

	is.NoErr(c.Update(Remove, "S", Context{ID: 3}))
	_, err = c.Check(context.Background())
	is.NoErr(err)
	is.Equal(testutil.ToFloat64(m.updates.WithLabelValues("evens", "-")), 1.0)
	is.Equal(testutil.ToFloat64(m.checks.WithLabelValues("evens", "pass")), 1.0)
	is.Equal(testutil.ToFloat64(m.recomputed.WithLabelValues("evens")), 4.0)

	n, err := testutil.GatherAndCount(preg, "cinder_check_duration_seconds")
	is.NoErr(err)
	is.Equal(n, 1)

	// removing the rule from a suite drops its tree size series
	s := NewSuite(reg)
	is.NoErr(s.Add(c))
	is.NoErr(s.Remove("evens"))
	n, err = testutil.GatherAndCount(preg, "cinder_tree_nodes")
	is.NoErr(err)
	is.Equal(n, 0)
}

func TestMetricsRegisterTwice(t *testing.T) {
	is := is.New(t)
	preg := prometheus.NewRegistry()
	_, err := NewMetrics(preg)
	is.NoErr(err)
	_, err = NewMetrics(preg)
	is.True(err != nil) // already registered
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.update("r", Add, 1)
	m.size("r", 1)
	m.check("r", true, 1, 1, 0)
	m.forget("r")
}
