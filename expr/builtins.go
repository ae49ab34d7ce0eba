package expr

import (
	"fmt"
	"reflect"

	"github.com/ev1313/dingsda/container"
)

// evalCall dispatches the small set of built-in helper functions
// grounded on dingsda's helpers.py (len_, sum_, min_, max_, obj_), used
// throughout the original library's Rebuild doctests, e.g.
// Rebuild(Int32ub, len_(this.items)).
func evalCall(n *Call, ctx *container.Container) (any, error) {
	args := make([]any, len(n.Args))
	for i, a := range n.Args {
		v, err := Eval(a, ctx)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	switch n.Name {
	case "len_":
		if len(args) != 1 {
			return nil, fmt.Errorf("expr: len_ takes exactly 1 argument")
		}
		return lengthOf(args[0])
	case "sum_":
		if len(args) != 1 {
			return nil, fmt.Errorf("expr: sum_ takes exactly 1 argument")
		}
		return sumOf(args[0])
	case "min_":
		return reduceNumeric(args, func(a, b float64) bool { return a < b })
	case "max_":
		return reduceNumeric(args, func(a, b float64) bool { return a > b })
	case "obj_":
		if len(args) != 1 {
			return nil, fmt.Errorf("expr: obj_ takes exactly 1 argument")
		}
		return args[0], nil
	default:
		return nil, fmt.Errorf("expr: unknown function %q", n.Name)
	}
}

func itemsOf(v any) ([]any, error) {
	switch x := v.(type) {
	case *container.ListContainer:
		return x.Items, nil
	case []any:
		return x, nil
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Slice {
			return nil, fmt.Errorf("expr: expected a sequence, got %T", v)
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, nil
	}
}

func lengthOf(v any) (any, error) {
	if s, ok := v.(string); ok {
		return int64(len(s)), nil
	}
	if b, ok := v.([]byte); ok {
		return int64(len(b)), nil
	}
	items, err := itemsOf(v)
	if err != nil {
		return nil, err
	}
	return int64(len(items)), nil
}

func sumOf(v any) (any, error) {
	items, err := itemsOf(v)
	if err != nil {
		return nil, err
	}
	var total float64
	allInt := true
	var itotal int64
	for _, it := range items {
		f, err := toFloat(it)
		if err != nil {
			return nil, err
		}
		total += f
		if isIntLike(it) {
			i, _ := toInt(it)
			itotal += i
		} else {
			allInt = false
		}
	}
	if allInt {
		return itotal, nil
	}
	return total, nil
}

func reduceNumeric(args []any, better func(a, b float64) bool) (any, error) {
	var values []any
	if len(args) == 1 {
		items, err := itemsOf(args[0])
		if err != nil {
			return nil, err
		}
		values = items
	} else {
		values = args
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("expr: min_/max_ on empty sequence")
	}
	best := values[0]
	bestF, err := toFloat(best)
	if err != nil {
		return nil, err
	}
	for _, v := range values[1:] {
		f, err := toFloat(v)
		if err != nil {
			return nil, err
		}
		if better(f, bestF) {
			best = v
			bestF = f
		}
	}
	return best, nil
}
