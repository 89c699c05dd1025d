package cinder_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/ezachrisen/cinder"
)

// manyRules returns n rules cycling through the equivalence rules.
func manyRules(n int) map[string]*cinder.Node {
	var names []string
	for name := range equivalenceRules {
		names = append(names, name)
	}
	rules := map[string]*cinder.Node{}
	for i := 0; i < n; i++ {
		name := names[i%len(names)]
		rules[fmt.Sprintf("%s_%02d", name, i)] = equivalenceRules[name]
	}
	return rules
}

func randomBatch(rng *rand.Rand, reg *cinder.Registry) []cinder.Change {
	var batch []cinder.Change
	for i := 0; i < 4; i++ {
		set := []string{"S", "T"}[rng.Intn(2)]
		c := ctx(1 + rng.Intn(8))
		op := cinder.Add
		if reg.Contains(set, c) {
			op = cinder.Remove
		}
		batch = append(batch, cinder.Change{Op: op, Set: set, Context: c})
	}
	return batch
}

func TestParallelCheck(t *testing.T) {
	ctx := context.Background()
	rules := manyRules(20)

	seqReg, parReg := cinder.NewRegistry(), cinder.NewRegistry()
	seq := newSuite(t, seqReg, newMockPredicates(), rules, cinder.Parallelism(1))
	par := newSuite(t, parReg, newMockPredicates(), rules, cinder.Parallelism(3))

	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 30; round++ {
		batch := randomBatch(rng, seqReg)

		start := time.Now()
		want, err := seq.Step(ctx, batch)
		if err != nil {
			t.Fatal(err)
		}
		sequentialTime := time.Since(start)

		start = time.Now()
		got, err := par.Step(ctx, batch)
		if err != nil {
			t.Fatal(err)
		}
		parallelTime := time.Since(start)

		if len(got) != len(want) {
			t.Fatalf("round %d: got %d reports, wanted %d", round, len(got), len(want))
		}
		for i := range want {
			if !sameReport(got[i], want[i]) {
				t.Errorf("round %d: rule %s differs: sequential=%s, parallel=%s",
					round, want[i].Rule, want[i].Links(), got[i].Links())
			}
		}
		if round == 0 {
			t.Logf("Sequential time: %v, Parallel time: %v", sequentialTime, parallelTime)
		}
	}
}

// Readers of the suite and the registry run while the suite changes rules
// and applies batches. Run with -race.
func TestParallelReaders(t *testing.T) {
	bg := context.Background()
	reg := cinder.NewRegistry()
	m := newMockPredicates()
	s := newSuite(t, reg, m, manyRules(8), cinder.Parallelism(2))

	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				for _, name := range s.Names() {
					if _, ok := s.Checker(name); !ok {
						t.Errorf("rule %s listed but not found", name)
					}
				}
				_ = s.Len()
				_ = reg.Elements("S")
				_ = reg.Contains("T", ctx(1))
			}
		}()
	}

	rng := rand.New(rand.NewSource(11))
	for round := 0; round < 30; round++ {
		if _, err := s.Step(bg, randomBatch(rng, reg)); err != nil {
			t.Fatal(err)
		}
		if round%10 == 5 {
			name := fmt.Sprintf("late_%d", round)
			c, err := cinder.New(name, cinder.Exists("x", "S", cinder.Pred("even")), reg, m)
			if err != nil {
				t.Fatal(err)
			}
			if err := s.Add(c); err != nil {
				t.Fatal(err)
			}
		}
	}
	close(done)
	wg.Wait()

	if s.Len() != 11 {
		t.Errorf("expected 11 rules, got %d", s.Len())
	}
}

func TestParallelCancellation(t *testing.T) {
	reg := newRegistry(map[string][]int{"S": {1, 2, 3}, "T": {4, 5}})
	s := newSuite(t, reg, newMockPredicates(), manyRules(50), cinder.Parallelism(2))

	for i := 0; i < 20; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		go cancel()
		reports, err := s.Check(ctx)
		if err == nil && len(reports) != 50 {
			t.Fatalf("expected 50 reports, got %d", len(reports))
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	reports, err := s.Check(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range reports {
		if r == nil {
			t.Fatal("missing report")
		}
	}
}
