// Package predicates provides the built-in spatio-temporal predicates for
// taxi and vehicle context streams, and a result cache for any predicate
// library.
package predicates

import (
	"fmt"
	"math"
	"sort"

	"github.com/ezachrisen/cinder"
)

// Func is a predicate over the innermost bound context a and the one bound
// just outside it, b.
type Func func(a, b cinder.Context) bool

// Library is a set of named predicates. It implements cinder.Predicate and
// cinder.Lister. A Library must not be modified after it is passed to a
// checker.
type Library map[string]Func

// Eval evaluates the named predicate.
func (l Library) Eval(name string, a, b cinder.Context) (bool, error) {
	f, ok := l[name]
	if !ok {
		return false, fmt.Errorf("%w: %s", cinder.ErrUnknownPredicate, name)
	}
	return f(a, b), nil
}

// Names returns the predicate names, sorted.
func (l Library) Names() []string {
	names := make([]string, 0, len(l))
	for n := range l {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Options holds the bounds used by the built-in predicates.
type Options struct {
	// Bounding box for sz_loc_range, in degrees.
	MinLongitude float64 `yaml:"min_longitude"`
	MaxLongitude float64 `yaml:"max_longitude"`
	MinLatitude  float64 `yaml:"min_latitude"`
	MaxLatitude  float64 `yaml:"max_latitude"`

	// CloseDistance is the largest planar distance, in degrees, at which
	// sz_loc_close considers two contexts to be at the same place.
	CloseDistance float64 `yaml:"close_distance"`

	// SpeedDelta is the largest speed difference accepted by sz_spd_close.
	SpeedDelta float64 `yaml:"speed_delta"`

	// MaxSpeed is the fastest plausible movement, in km/h, used by
	// sz_loc_dist.
	MaxSpeed float64 `yaml:"max_speed"`
}

// DefaultOptions are the bounds for the Shenzhen taxi data set.
func DefaultOptions() Options {
	return Options{
		MinLongitude:  112.0,
		MaxLongitude:  116.0,
		MinLatitude:   20.0,
		MaxLatitude:   24.0,
		CloseDistance: 0.001,
		SpeedDelta:    50,
		MaxSpeed:      200,
	}
}

// Validate reports bounds that would make the predicates meaningless.
func (o Options) Validate() error {
	switch {
	case o.MinLongitude > o.MaxLongitude:
		return fmt.Errorf("min_longitude %g is greater than max_longitude %g", o.MinLongitude, o.MaxLongitude)
	case o.MinLatitude > o.MaxLatitude:
		return fmt.Errorf("min_latitude %g is greater than max_latitude %g", o.MinLatitude, o.MaxLatitude)
	case o.CloseDistance < 0:
		return fmt.Errorf("close_distance %g is negative", o.CloseDistance)
	case o.SpeedDelta < 0:
		return fmt.Errorf("speed_delta %g is negative", o.SpeedDelta)
	case o.MaxSpeed <= 0:
		return fmt.Errorf("max_speed %g must be positive", o.MaxSpeed)
	}
	return nil
}

// Default returns the built-in predicates with the default bounds.
func Default() Library {
	return New(DefaultOptions())
}

// kmPerDegree approximates the length of one degree at the equator.
const kmPerDegree = 111.32

// New returns the built-in predicates using the bounds in o:
//
//	same             a and b belong to the same entity
//	sz_loc_range     a lies inside the bounding box
//	sz_loc_close     a and b are within CloseDistance of each other
//	sz_spd_close     the speeds of a and b differ by at most SpeedDelta
//	sz_loc_dist      for the same entity, a is reachable from b at MaxSpeed
//	sz_loc_dist_neq  a and b belong to different entities, or are at the same place
func New(o Options) Library {
	return Library{
		"same": func(a, b cinder.Context) bool {
			return a.EntityTag == b.EntityTag
		},
		"sz_loc_range": func(a, _ cinder.Context) bool {
			return a.Longitude >= o.MinLongitude && a.Longitude <= o.MaxLongitude &&
				a.Latitude >= o.MinLatitude && a.Latitude <= o.MaxLatitude
		},
		"sz_loc_close": func(a, b cinder.Context) bool {
			return distance(a, b) <= o.CloseDistance
		},
		"sz_spd_close": func(a, b cinder.Context) bool {
			return math.Abs(a.Speed-b.Speed) <= o.SpeedDelta
		},
		"sz_loc_dist": func(a, b cinder.Context) bool {
			if a.EntityTag != b.EntityTag {
				return true
			}
			ta, okA := a.Time()
			tb, okB := b.Time()
			if !okA || !okB {
				// Without both times the movement cannot be judged.
				return true
			}
			hours := math.Abs(ta.Sub(tb).Hours())
			return distance(a, b)*kmPerDegree <= o.MaxSpeed*hours
		},
		"sz_loc_dist_neq": func(a, b cinder.Context) bool {
			return a.EntityTag != b.EntityTag || (a.Longitude == b.Longitude && a.Latitude == b.Latitude)
		},
	}
}

// distance is the planar distance between two contexts, in degrees.
func distance(a, b cinder.Context) float64 {
	return math.Hypot(a.Longitude-b.Longitude, a.Latitude-b.Latitude)
}
