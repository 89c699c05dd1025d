// Package stream reads context changes and feeds them to a suite of rules
// in rounds.
//
// A change is one line of the form
//
//	op,set,id,timestamp,entity,longitude_latitude_speed
//
// where op is + (add) or - (remove), for example
//
//	+,pat_000,1,2007-10-26 11:00:00:000,粤B00001,114.022901_22.532434_0.0
package stream

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/ezachrisen/cinder"
)

// ErrMalformed is returned (wrapped) for lines that are not valid changes.
var ErrMalformed = errors.New("malformed change")

// ParseChange parses a single change line.
func ParseChange(line string) (cinder.Change, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) != 6 {
		return cinder.Change{}, fmt.Errorf("%w: want 6 fields, got %d", ErrMalformed, len(fields))
	}
	op, err := cinder.ParseOp(fields[0])
	if err != nil {
		return cinder.Change{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if fields[1] == "" {
		return cinder.Change{}, fmt.Errorf("%w: empty set name", ErrMalformed)
	}
	id, err := strconv.Atoi(fields[2])
	if err != nil {
		return cinder.Change{}, fmt.Errorf("%w: id %q: %w", ErrMalformed, fields[2], err)
	}

	motion := strings.Split(fields[5], "_")
	if len(motion) != 3 {
		return cinder.Change{}, fmt.Errorf("%w: want longitude_latitude_speed, got %q", ErrMalformed, fields[5])
	}
	var v [3]float64
	for i, s := range motion {
		if v[i], err = strconv.ParseFloat(s, 64); err != nil {
			return cinder.Change{}, fmt.Errorf("%w: %q: %w", ErrMalformed, s, err)
		}
		if math.IsNaN(v[i]) || math.IsInf(v[i], 0) {
			return cinder.Change{}, fmt.Errorf("%w: %q is not a finite number", ErrMalformed, s)
		}
	}

	return cinder.Change{
		Op:  op,
		Set: fields[1],
		Context: cinder.Context{
			ID:        id,
			Timestamp: fields[3],
			EntityTag: fields[4],
			Longitude: v[0],
			Latitude:  v[1],
			Speed:     v[2],
		},
	}, nil
}

// Reader reads changes, one per line. Blank lines are skipped.
type Reader struct {
	sc   *bufio.Scanner
	line int
}

// NewReader returns a Reader reading from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{sc: bufio.NewScanner(r)}
}

// Next returns the next change. It returns io.EOF after the last change.
func (r *Reader) Next() (cinder.Change, error) {
	for r.sc.Scan() {
		r.line++
		text := r.sc.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		ch, err := ParseChange(text)
		if err != nil {
			return cinder.Change{}, fmt.Errorf("line %d: %w", r.line, err)
		}
		return ch, nil
	}
	if err := r.sc.Err(); err != nil {
		return cinder.Change{}, fmt.Errorf("reading changes: %w", err)
	}
	return cinder.Change{}, io.EOF
}

// Line is the number of the last line read.
func (r *Reader) Line() int {
	return r.line
}

// Batch reads up to size changes. A batch shorter than size means the input
// is exhausted; an empty batch is returned with io.EOF. A size less than one
// is treated as one.
func (r *Reader) Batch(size int) ([]cinder.Change, error) {
	if size < 1 {
		size = 1
	}
	batch := make([]cinder.Change, 0, size)
	for len(batch) < size {
		ch, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		batch = append(batch, ch)
	}
	if len(batch) == 0 {
		return nil, io.EOF
	}
	return batch, nil
}

// Batches reads all changes from r and groups them into rounds of size. The
// last round holds the remaining changes and may be shorter.
func Batches(r io.Reader, size int) ([][]cinder.Change, error) {
	cr := NewReader(r)
	var out [][]cinder.Change
	for {
		b, err := cr.Batch(size)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
}
