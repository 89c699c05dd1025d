package cinder

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Context is one observation from the context stream: an entity seen at a
// place and time, moving at some speed. Contexts are immutable values and are
// compared by value.
type Context struct {
	ID        int
	Timestamp string
	EntityTag string
	Longitude float64
	Latitude  float64
	Speed     float64
}

const contextPrefix = "ctx_"

// String returns the identifier used for the context in witness chains.
func (c Context) String() string {
	return contextPrefix + strconv.Itoa(c.ID)
}

// ErrInvalidContext is returned for contexts that cannot be members of a set.
var ErrInvalidContext = errors.New("invalid context")

// Valid reports an error if a coordinate or the speed is NaN or infinite.
// Such a context is not equal to itself and could never be found again in a
// set.
func (c Context) Valid() error {
	for _, f := range []struct {
		name string
		v    float64
	}{{"longitude", c.Longitude}, {"latitude", c.Latitude}, {"speed", c.Speed}} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s: %s is %v", ErrInvalidContext, c, f.name, f.v)
		}
	}
	return nil
}

// Describe returns all the fields of the context in a readable form.
func (c Context) Describe() string {
	return fmt.Sprintf("%s{%s %s (%.6f, %.6f) %.2f}", c, c.Timestamp, c.EntityTag, c.Longitude, c.Latitude, c.Speed)
}

// timeLayouts are the timestamp formats Time recognizes.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
}

// Time parses the timestamp of the context. Milliseconds may be separated
// from the seconds by a colon, as in "2007-10-26 11:00:00:250".
func (c Context) Time() (time.Time, bool) {
	s := c.Timestamp
	if len(s) == len("2006-01-02 15:04:05:000") && s[19] == ':' {
		s = s[:19] + "." + s[20:]
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseContextID parses an identifier produced by Context.String.
func ParseContextID(s string) (int, error) {
	if len(s) <= len(contextPrefix) || s[:len(contextPrefix)] != contextPrefix {
		return 0, fmt.Errorf("invalid context identifier %q", s)
	}
	id, err := strconv.Atoi(s[len(contextPrefix):])
	if err != nil {
		return 0, fmt.Errorf("invalid context identifier %q: %w", s, err)
	}
	return id, nil
}

// Op is the kind of change made to a context set.
type Op int

const (
	// Add inserts a context into a set.
	Add Op = iota
	// Remove deletes a context from a set.
	Remove
)

func (o Op) String() string {
	switch o {
	case Add:
		return "+"
	case Remove:
		return "-"
	default:
		return "?"
	}
}

// ParseOp converts "+" and "-" to an Op.
func ParseOp(s string) (Op, error) {
	switch s {
	case "+":
		return Add, nil
	case "-":
		return Remove, nil
	}
	return 0, fmt.Errorf("unknown operation %q", s)
}

// Change is a single addition or removal of a context in a named set.
type Change struct {
	Op      Op
	Set     string
	Context Context
}

func (c Change) String() string {
	return fmt.Sprintf("%s%s:%s", c.Op, c.Set, c.Context)
}
