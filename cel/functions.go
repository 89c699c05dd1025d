package cel

import (
	"math"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
)

// contextType is the CEL type of the a and b variables.
var contextType = celgo.MapType(celgo.StringType, celgo.DynType)

// distFunction declares dist(a, b): the planar distance between two contexts.
func distFunction() celgo.EnvOption {
	return celgo.Function("dist",
		celgo.Overload("dist_context_context",
			[]*celgo.Type{contextType, contextType},
			celgo.DoubleType,
			celgo.BinaryBinding(dist)))
}

func dist(lhs, rhs ref.Val) ref.Val {
	x1, err := coordinate(lhs, "lon")
	if err != nil {
		return err
	}
	y1, err := coordinate(lhs, "lat")
	if err != nil {
		return err
	}
	x2, err := coordinate(rhs, "lon")
	if err != nil {
		return err
	}
	y2, err := coordinate(rhs, "lat")
	if err != nil {
		return err
	}
	return types.Double(math.Hypot(x1-x2, y1-y2))
}

// coordinate reads a double field from a context map. The returned ref.Val
// is a CEL error value when the field is missing or not a double.
func coordinate(v ref.Val, key string) (float64, ref.Val) {
	m, ok := v.(traits.Mapper)
	if !ok {
		return 0, types.NewErr("dist: expected a context, got %s", v.Type())
	}
	f, found := m.Find(types.String(key))
	if !found {
		return 0, types.NewErr("dist: context has no field %q", key)
	}
	d, ok := f.(types.Double)
	if !ok {
		return 0, types.NewErr("dist: field %q is %s, not double", key, f.Type())
	}
	return float64(d), nil
}
