// Package cel provides a predicate library for cinder backed by Google's
// cel-go expression engine.
//
// See https://github.com/google/cel-go and https://opensource.google/projects/cel
// for more information about CEL. Predicate expressions must conform to the
// CEL spec: https://github.com/google/cel-spec.
//
// Each predicate is a boolean CEL expression over two variables, a and b.
// a is the innermost context bound by the rule's quantifiers, b the one bound
// just outside it (or a again when there is only one). Both are maps with
// these keys:
//
//	id         int     context identifier
//	timestamp  string  the timestamp as received
//	time       google.protobuf.Timestamp, only present if the timestamp parses
//	entity     string  entity tag, e.g. a plate number
//	lon, lat   double  position
//	speed      double  speed
//
// The function dist(a, b) returns the planar distance between the positions
// of a and b in degrees.
//
// Example definitions:
//
//	lib, err := cel.NewLibrary(map[string]string{
//	    "same":      `a.entity == b.entity`,
//	    "fast":      `a.speed > 120.0`,
//	    "near":      `dist(a, b) < 0.001`,
//	    "in_order":  `a.time >= b.time`,
//	})
//
// A Library is safe for concurrent use.
package cel
