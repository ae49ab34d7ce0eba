package construct

import (
	"github.com/ev1313/dingsda/container"
	"github.com/ev1313/dingsda/errs"
	"github.com/ev1313/dingsda/expr"
	"github.com/ev1313/dingsda/stream"
)

// deferredValue is what Rebuild.Preprocess returns in place of a real
// value: a placeholder carrying the closure to evaluate once every
// sibling field has been preprocessed. Struct's second preprocess sweep
// resolves it in place.
type deferredValue struct {
	expr expr.Expr
	ctx  *container.Container
}

// Rebuild wraps subcon: Build ignores the object it's handed and instead
// evaluates Expr against the context, so a length/count/checksum field
// can be derived from its siblings rather than supplied by the caller.
// Parse behaves exactly like subcon.
type Rebuild struct {
	base
	Subcon Construct
	Expr   expr.Expr
}

func NewRebuild(subcon Construct, e expr.Expr) *Rebuild {
	return &Rebuild{Subcon: subcon, Expr: e}
}

func (c *Rebuild) Parse(s *stream.Stream, ctx *container.Container) (any, error) {
	return c.Subcon.Parse(s, ctx)
}

func (c *Rebuild) Build(s *stream.Stream, obj any, ctx *container.Container) error {
	if dv, ok := obj.(*deferredValue); ok {
		v, err := expr.Eval(dv.expr, dv.ctx)
		if err != nil {
			return errs.WithPath(c.name, err)
		}
		return c.Subcon.Build(s, v, ctx)
	}
	v, err := expr.Eval(c.Expr, ctx)
	if err != nil {
		return errs.WithPath(c.name, err)
	}
	return c.Subcon.Build(s, v, ctx)
}

// Preprocess returns a deferred placeholder; Struct's two-phase sweep
// resolves it into a concrete value once every sibling has its meta
// filled in, left to right in a second pass.
func (c *Rebuild) Preprocess(obj any, ctx *container.Container) (any, error) {
	return &deferredValue{expr: c.Expr, ctx: ctx}, nil
}

func (c *Rebuild) StaticSizeof(ctx *container.Container) (int64, error) {
	return c.Subcon.StaticSizeof(ctx)
}
func (c *Rebuild) Sizeof(obj any, ctx *container.Container) (int64, error) {
	if dv, ok := obj.(*deferredValue); ok {
		v, err := expr.Eval(dv.expr, dv.ctx)
		if err != nil {
			return 0, errs.WithPath(c.name, err)
		}
		return c.Subcon.Sizeof(v, ctx)
	}
	return c.Subcon.Sizeof(obj, ctx)
}
func (c *Rebuild) FullSizeof(obj any, ctx *container.Container) (int64, error) {
	return c.Sizeof(obj, ctx)
}
func (c *Rebuild) ExpectedSizeof(s *stream.Stream, ctx *container.Container) (int64, error) {
	return c.Subcon.ExpectedSizeof(s, ctx)
}
func (c *Rebuild) ToElement(name string, obj any, ctx *container.Container) (*Element, error) {
	return c.Subcon.ToElement(name, obj, ctx)
}
func (c *Rebuild) FromElement(name string, e *Element, ctx *container.Container) (any, error) {
	return c.Subcon.FromElement(name, e, ctx)
}

// resolveDeferred forces a deferredValue down to a concrete value,
// passing through any other value unchanged. Used by Struct's second
// preprocess sweep.
func resolveDeferred(v any) (any, error) {
	if dv, ok := v.(*deferredValue); ok {
		return expr.Eval(dv.expr, dv.ctx)
	}
	return v, nil
}
