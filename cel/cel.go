package cel

import (
	"fmt"
	"sort"

	"github.com/ezachrisen/cinder"
	celgo "github.com/google/cel-go/cel"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Library evaluates named predicates written as CEL expressions.
type Library struct {
	env *celgo.Env

	// exprs holds the source of each predicate.
	exprs map[string]string

	// programs holds the compiled, runnable form of each predicate.
	programs map[string]celgo.Program
}

// NewLibrary compiles the predicate definitions, a map of predicate name to
// CEL expression. Every expression must produce a bool. Additional CEL
// environment options (custom functions, extensions) can be passed in opts.
func NewLibrary(defs map[string]string, opts ...celgo.EnvOption) (*Library, error) {
	envOpts := []celgo.EnvOption{
		celgo.Variable("a", contextType),
		celgo.Variable("b", contextType),
		distFunction(),
	}
	envOpts = append(envOpts, opts...)

	env, err := celgo.NewEnv(envOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "creating CEL environment")
	}

	l := &Library{
		env:      env,
		exprs:    make(map[string]string, len(defs)),
		programs: make(map[string]celgo.Program, len(defs)),
	}
	for name, expr := range defs {
		if err := l.compile(name, expr); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// compile parses, checks and stores the predicate.
func (l *Library) compile(name, expr string) error {
	if name == "" {
		return fmt.Errorf("predicate with expression %q has no name", expr)
	}

	// Parse the expression to an AST and type-check it against the declarations
	ast, iss := l.env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return errors.Wrapf(iss.Err(), "compiling predicate %s", name)
	}

	if !ast.OutputType().IsExactType(celgo.BoolType) {
		return fmt.Errorf("predicate %s: expression produces %s, want bool", name, ast.OutputType())
	}

	// Generate an evaluable program
	prg, err := l.env.Program(ast)
	if err != nil {
		return errors.Wrapf(err, "generating program for predicate %s", name)
	}
	l.exprs[name] = expr
	l.programs[name] = prg
	return nil
}

// Eval evaluates the named predicate with a and b.
func (l *Library) Eval(name string, a, b cinder.Context) (bool, error) {
	prg, ok := l.programs[name]
	if !ok {
		return false, errors.Wrap(cinder.ErrUnknownPredicate, name)
	}

	out, _, err := prg.Eval(map[string]any{
		"a": contextValue(a),
		"b": contextValue(b),
	})
	if err != nil {
		return false, errors.Wrapf(err, "evaluating predicate %s", name)
	}
	v, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("predicate %s: expected bool, got %T", name, out.Value())
	}
	return v, nil
}

// Names returns the names of the predicates in the library, sorted.
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.exprs))
	for n := range l.exprs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Expr returns the source of the named predicate.
func (l *Library) Expr(name string) (string, bool) {
	e, ok := l.exprs[name]
	return e, ok
}

// contextValue converts a context to the map seen by expressions.
func contextValue(c cinder.Context) map[string]any {
	m := map[string]any{
		"id":        int64(c.ID),
		"timestamp": c.Timestamp,
		"entity":    c.EntityTag,
		"lon":       c.Longitude,
		"lat":       c.Latitude,
		"speed":     c.Speed,
	}
	if t, ok := c.Time(); ok {
		m["time"] = timestamppb.New(t)
	}
	return m
}
