package stream

import (
	"context"
	"fmt"
	"io"

	"github.com/ezachrisen/cinder"
)

// Round is the result of checking all rules after one batch of changes.
type Round struct {
	// Number counts rounds from 1.
	Number int
	// Changes is the number of changes in the batch.
	Changes int
	Reports []*cinder.Report
}

// Sink receives the result of each round. Returning an error stops Run.
type Sink func(r Round) error

// Stats summarizes a run.
type Stats struct {
	Rounds  int
	Changes int
	// Failed is the number of failing reports over all rounds.
	Failed int
}

// Run reads changes from r, applies them to the suite in batches of
// batchSize, and checks all rules after each batch. Every round is handed to
// sink, which may be nil.
func Run(ctx context.Context, s *cinder.Suite, r io.Reader, batchSize int, sink Sink) (Stats, error) {
	var st Stats
	cr := NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		batch, err := cr.Batch(batchSize)
		if err == io.EOF {
			return st, nil
		}
		if err != nil {
			return st, err
		}

		reports, err := s.Step(ctx, batch)
		if err != nil {
			return st, fmt.Errorf("round %d: %w", st.Rounds+1, err)
		}
		st.Rounds++
		st.Changes += len(batch)
		for _, rep := range reports {
			if !rep.Pass {
				st.Failed++
			}
		}
		if sink == nil {
			continue
		}
		if err := sink(Round{Number: st.Rounds, Changes: len(batch), Reports: reports}); err != nil {
			return st, err
		}
	}
}
