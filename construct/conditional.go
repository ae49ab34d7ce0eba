package construct

import (
	"github.com/ev1313/dingsda/container"
	"github.com/ev1313/dingsda/errs"
	"github.com/ev1313/dingsda/expr"
	"github.com/ev1313/dingsda/stream"
)

// If parses/builds Subcon only when Cond is true; otherwise the field is
// absent (nil), contributing zero bytes. IfThenElse additionally
// supplies an Else subcon for the false branch.
type If struct {
	base
	Cond   expr.Expr
	Subcon Construct
}

func NewIf(cond expr.Expr, subcon Construct) *If { return &If{Cond: cond, Subcon: subcon} }

func (c *If) test(ctx *container.Container) (bool, error) {
	v, err := expr.Eval(c.Cond, ctx)
	if err != nil {
		return false, errs.WithPath(c.name, err)
	}
	return truthy(v), nil
}

func (c *If) Parse(s *stream.Stream, ctx *container.Container) (any, error) {
	ok, err := c.test(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return c.Subcon.Parse(s, ctx)
}

func (c *If) Build(s *stream.Stream, obj any, ctx *container.Container) error {
	ok, err := c.test(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return c.Subcon.Build(s, obj, ctx)
}

func (c *If) Preprocess(obj any, ctx *container.Container) (any, error) {
	ok, err := c.test(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return obj, nil
	}
	return c.Subcon.Preprocess(obj, ctx)
}

func (c *If) StaticSizeof(ctx *container.Container) (int64, error) {
	return 0, errs.NewUnknownSizeError(c.name, "If size depends on its condition")
}

func (c *If) Sizeof(obj any, ctx *container.Container) (int64, error) {
	ok, err := c.test(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return c.Subcon.Sizeof(obj, ctx)
}

func (c *If) FullSizeof(obj any, ctx *container.Container) (int64, error) { return c.Sizeof(obj, ctx) }

func (c *If) ExpectedSizeof(s *stream.Stream, ctx *container.Container) (int64, error) {
	ok, err := c.test(ctx)
	if err != nil || !ok {
		return 0, err
	}
	return c.Subcon.ExpectedSizeof(s, ctx)
}

func (c *If) ToElement(name string, obj any, ctx *container.Container) (*Element, error) {
	ok, err := c.test(ctx)
	if err != nil || !ok {
		return nil, err
	}
	return c.Subcon.ToElement(name, obj, ctx)
}

func (c *If) FromElement(name string, e *Element, ctx *container.Container) (any, error) {
	ok, err := c.test(ctx)
	if err != nil || !ok {
		return nil, err
	}
	return c.Subcon.FromElement(name, e, ctx)
}

// IfThenElse chooses between ThenSubcon and ElseSubcon based on Cond.
// ToElement renders through whichever branch Cond selects and adds no
// marker of that choice to the element. FromElement tries ThenSubcon
// first and falls back to ElseSubcon; it does not pick the branch from
// the element's tag.
type IfThenElse struct {
	base
	Cond       expr.Expr
	ThenSubcon Construct
	ElseSubcon Construct
}

func NewIfThenElse(cond expr.Expr, thenSubcon, elseSubcon Construct) *IfThenElse {
	return &IfThenElse{Cond: cond, ThenSubcon: thenSubcon, ElseSubcon: elseSubcon}
}

func (c *IfThenElse) branch(ctx *container.Container) (Construct, error) {
	v, err := expr.Eval(c.Cond, ctx)
	if err != nil {
		return nil, errs.WithPath(c.name, err)
	}
	if truthy(v) {
		return c.ThenSubcon, nil
	}
	return c.ElseSubcon, nil
}

func (c *IfThenElse) Parse(s *stream.Stream, ctx *container.Container) (any, error) {
	b, err := c.branch(ctx)
	if err != nil {
		return nil, err
	}
	return b.Parse(s, ctx)
}

func (c *IfThenElse) Build(s *stream.Stream, obj any, ctx *container.Container) error {
	b, err := c.branch(ctx)
	if err != nil {
		return err
	}
	return b.Build(s, obj, ctx)
}

func (c *IfThenElse) Preprocess(obj any, ctx *container.Container) (any, error) {
	b, err := c.branch(ctx)
	if err != nil {
		return nil, err
	}
	return b.Preprocess(obj, ctx)
}

func (c *IfThenElse) StaticSizeof(ctx *container.Container) (int64, error) {
	return 0, errs.NewUnknownSizeError(c.name, "IfThenElse size depends on its condition")
}

func (c *IfThenElse) Sizeof(obj any, ctx *container.Container) (int64, error) {
	b, err := c.branch(ctx)
	if err != nil {
		return 0, err
	}
	return b.Sizeof(obj, ctx)
}

func (c *IfThenElse) FullSizeof(obj any, ctx *container.Container) (int64, error) {
	return c.Sizeof(obj, ctx)
}

func (c *IfThenElse) ExpectedSizeof(s *stream.Stream, ctx *container.Container) (int64, error) {
	b, err := c.branch(ctx)
	if err != nil {
		return 0, err
	}
	return b.ExpectedSizeof(s, ctx)
}

func (c *IfThenElse) ToElement(name string, obj any, ctx *container.Container) (*Element, error) {
	b, err := c.branch(ctx)
	if err != nil {
		return nil, err
	}
	return b.ToElement(name, obj, ctx)
}

func (c *IfThenElse) FromElement(name string, e *Element, ctx *container.Container) (any, error) {
	// Cannot re-evaluate Cond without the enclosing value, so the
	// fallback is to try ThenSubcon first and fall back to ElseSubcon.
	v, err := c.ThenSubcon.FromElement(name, e, ctx)
	if err == nil {
		return v, nil
	}
	return c.ElseSubcon.FromElement(name, e, ctx)
}
