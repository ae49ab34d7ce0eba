package expr

import (
	"fmt"
	"reflect"

	"github.com/ev1313/dingsda/container"
	"github.com/ev1313/dingsda/errs"
)

// Eval walks e against ctx, the currently active context, returning its
// value. This is the lazy, tree-walking evaluator that replaces a CEL
// pipeline: every call re-reads ctx live, so a Rebuild closure evaluated
// during the second preprocess sweep sees the meta that the same sweep
// has already filled in for earlier siblings.
func Eval(e Expr, ctx *container.Container) (any, error) {
	switch n := e.(type) {
	case *Literal:
		return n.Value, nil
	case *Path:
		return evalPath(n, ctx)
	case *BinOp:
		return evalBinOp(n, ctx)
	case *UnOp:
		return evalUnOp(n, ctx)
	case *Ternary:
		cond, err := Eval(n.Cond, ctx)
		if err != nil {
			return nil, err
		}
		if truthy(cond) {
			return Eval(n.Then, ctx)
		}
		return Eval(n.Else, ctx)
	case *Call:
		return evalCall(n, ctx)
	case *IndexExpr:
		return evalIndex(n, ctx)
	case *LambdaExpr:
		return n.Fn(ctx)
	default:
		return nil, fmt.Errorf("expr: unknown node type %T", e)
	}
}

func (n *Literal) Eval(ctx *container.Container) (any, error) { return n.Value, nil }
func (n *Path) Eval(ctx *container.Container) (any, error)    { return evalPath(n, ctx) }
func (n *BinOp) Eval(ctx *container.Container) (any, error)   { return evalBinOp(n, ctx) }
func (n *UnOp) Eval(ctx *container.Container) (any, error)    { return evalUnOp(n, ctx) }
func (n *Ternary) Eval(ctx *container.Container) (any, error) { return Eval(n, ctx) }
func (n *Call) Eval(ctx *container.Container) (any, error)    { return evalCall(n, ctx) }
func (n *IndexExpr) Eval(ctx *container.Container) (any, error) { return evalIndex(n, ctx) }

func evalPath(p *Path, ctx *container.Container) (any, error) {
	cur := ctx
	if p.Root {
		cur = ctx.Root()
	} else if p.Parent {
		if cur.Parent() == nil {
			return nil, errs.NewContextError("", "_ (no parent context)")
		}
		cur = cur.Parent()
	}
	if len(p.Fields) == 0 {
		return cur, nil
	}
	var cursor any = cur
	for i, f := range p.Fields {
		c, ok := cursor.(*container.Container)
		if !ok {
			return nil, errs.NewContextError("", fmt.Sprintf("%s (not a container)", f))
		}
		if f == "_index" {
			cursor = c.Index
			continue
		}
		v, ok := c.Get(f)
		if !ok {
			return nil, errs.NewContextError("", f)
		}
		if i < len(p.Fields)-1 {
			cursor = v
		} else {
			cursor = v
		}
	}
	return cursor, nil
}

func evalIndex(n *IndexExpr, ctx *container.Container) (any, error) {
	base, err := Eval(n.Base, ctx)
	if err != nil {
		return nil, err
	}
	idx, err := Eval(n.Idx, ctx)
	if err != nil {
		return nil, err
	}
	i, err := toInt(idx)
	if err != nil {
		return nil, err
	}
	switch v := base.(type) {
	case *container.ListContainer:
		if i < 0 || int(i) >= len(v.Items) {
			return nil, errs.NewRangeError("", "index %d out of range (len %d)", i, len(v.Items))
		}
		return v.Items[i], nil
	default:
		rv := reflect.ValueOf(base)
		if rv.Kind() == reflect.Slice {
			if i < 0 || int(i) >= rv.Len() {
				return nil, errs.NewRangeError("", "index %d out of range (len %d)", i, rv.Len())
			}
			return rv.Index(int(i)).Interface(), nil
		}
		return nil, fmt.Errorf("expr: cannot index %T", base)
	}
}

func evalUnOp(n *UnOp, ctx *container.Container) (any, error) {
	v, err := Eval(n.Operand, ctx)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case UnNot:
		return !truthy(v), nil
	case UnNeg:
		f, ferr := toFloat(v)
		if ferr != nil {
			return nil, ferr
		}
		if isIntLike(v) {
			i, _ := toInt(v)
			return -i, nil
		}
		return -f, nil
	}
	return nil, fmt.Errorf("expr: unknown unary op %v", n.Op)
}

func evalBinOp(n *BinOp, ctx *container.Container) (any, error) {
	// short-circuit and/or
	if n.Op == OpAnd {
		l, err := Eval(n.Left, ctx)
		if err != nil {
			return nil, err
		}
		if !truthy(l) {
			return false, nil
		}
		r, err := Eval(n.Right, ctx)
		if err != nil {
			return nil, err
		}
		return truthy(r), nil
	}
	if n.Op == OpOr {
		l, err := Eval(n.Left, ctx)
		if err != nil {
			return nil, err
		}
		if truthy(l) {
			return true, nil
		}
		r, err := Eval(n.Right, ctx)
		if err != nil {
			return nil, err
		}
		return truthy(r), nil
	}

	l, err := Eval(n.Left, ctx)
	if err != nil {
		return nil, err
	}
	r, err := Eval(n.Right, ctx)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case OpEq:
		return equal(l, r), nil
	case OpNe:
		return !equal(l, r), nil
	}

	if ls, lok := l.(string); lok {
		if rs, rok := r.(string); rok && n.Op == OpAdd {
			return ls + rs, nil
		}
	}

	lf, err := toFloat(l)
	if err != nil {
		return nil, err
	}
	rf, err := toFloat(r)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case OpLt:
		return lf < rf, nil
	case OpLe:
		return lf <= rf, nil
	case OpGt:
		return lf > rf, nil
	case OpGe:
		return lf >= rf, nil
	}

	if isIntLike(l) && isIntLike(r) {
		li, _ := toInt(l)
		ri, _ := toInt(r)
		switch n.Op {
		case OpAdd:
			return li + ri, nil
		case OpSub:
			return li - ri, nil
		case OpMul:
			return li * ri, nil
		case OpDiv:
			if ri == 0 {
				return nil, errs.NewExplicitError("", "division by zero")
			}
			return li / ri, nil
		case OpMod:
			if ri == 0 {
				return nil, errs.NewExplicitError("", "modulo by zero")
			}
			return li % ri, nil
		}
	}

	switch n.Op {
	case OpAdd:
		return lf + rf, nil
	case OpSub:
		return lf - rf, nil
	case OpMul:
		return lf * rf, nil
	case OpDiv:
		return lf / rf, nil
	}
	return nil, fmt.Errorf("expr: unsupported binary op %v", n.Op)
}

func equal(a, b any) bool {
	af, aerr := toFloat(a)
	bf, berr := toFloat(b)
	if aerr == nil && berr == nil {
		return af == bf
	}
	return reflect.DeepEqual(a, b)
}

func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case nil:
		return false
	default:
		f, err := toFloat(v)
		if err == nil {
			return f != 0
		}
		return true
	}
}

func isIntLike(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

func toInt(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		return int64(x), nil
	case float32:
		return int64(x), nil
	case float64:
		return int64(x), nil
	default:
		return 0, fmt.Errorf("expr: cannot convert %T to int", v)
	}
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case int:
		return float64(x), nil
	case int8:
		return float64(x), nil
	case int16:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint:
		return float64(x), nil
	case uint8:
		return float64(x), nil
	case uint16:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	default:
		return 0, fmt.Errorf("expr: cannot convert %T to number", v)
	}
}
