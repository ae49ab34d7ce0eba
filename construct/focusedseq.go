package construct

import (
	"github.com/ev1313/dingsda/container"
	"github.com/ev1313/dingsda/errs"
	"github.com/ev1313/dingsda/stream"
)

// FocusedSeq parses/builds every subcon (for their side effects on the
// shared context, and to keep the stream position correct) but surfaces
// only the subcon named Focus as its externally visible value -- the
// other fields are accessible only via the context during parsing/
// building.
type FocusedSeq struct {
	base
	Fields []Construct
	Focus  string
}

func NewFocusedSeq(focus string, fields ...Construct) *FocusedSeq {
	return &FocusedSeq{Fields: fields, Focus: focus}
}

func (c *FocusedSeq) Parse(s *stream.Stream, ctx *container.Container) (any, error) {
	work := container.NewChild(ctx)
	var focused any
	for i, f := range c.Fields {
		name := fieldName(f, i)
		v, err := f.Parse(s, work)
		if err != nil {
			return nil, errs.WithPath(name, err)
		}
		if name != "" {
			work.Set(name, v)
		}
		if name == c.Focus {
			focused = v
		}
	}
	return focused, nil
}

func (c *FocusedSeq) Build(s *stream.Stream, obj any, ctx *container.Container) error {
	work := container.NewChild(ctx)
	work.Set(c.Focus, obj)
	for i, f := range c.Fields {
		name := fieldName(f, i)
		var v any
		if name == c.Focus {
			v = obj
		} else if name != "" {
			v, _ = work.Get(name)
		}
		if err := f.Build(s, v, work); err != nil {
			return errs.WithPath(name, err)
		}
	}
	return nil
}

func (c *FocusedSeq) Preprocess(obj any, ctx *container.Container) (any, error) {
	work := container.NewChild(ctx)
	work.Set(c.Focus, obj)
	for i, f := range c.Fields {
		name := fieldName(f, i)
		var v any
		if name != "" {
			v, _ = work.Get(name)
		}
		nv, err := f.Preprocess(v, work)
		if err != nil {
			return nil, err
		}
		if name != "" {
			work.Set(name, nv)
		}
		if name == c.Focus {
			obj = nv
		}
	}
	return obj, nil
}

func (c *FocusedSeq) StaticSizeof(ctx *container.Container) (int64, error) {
	var total int64
	for _, f := range c.Fields {
		n, err := f.StaticSizeof(ctx)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func (c *FocusedSeq) Sizeof(obj any, ctx *container.Container) (int64, error) {
	return c.StaticSizeof(ctx)
}

func (c *FocusedSeq) FullSizeof(obj any, ctx *container.Container) (int64, error) {
	return c.StaticSizeof(ctx)
}

func (c *FocusedSeq) ExpectedSizeof(s *stream.Stream, ctx *container.Container) (int64, error) {
	return expectedSizeofViaStatic(c, s, ctx)
}

func (c *FocusedSeq) ToElement(name string, obj any, ctx *container.Container) (*Element, error) {
	for i, f := range c.Fields {
		if fieldName(f, i) == c.Focus {
			return f.ToElement(name, obj, ctx)
		}
	}
	return nil, errs.NewXMLError(c.name, "focus field %q not found", c.Focus)
}

func (c *FocusedSeq) FromElement(name string, e *Element, ctx *container.Container) (any, error) {
	for i, f := range c.Fields {
		if fieldName(f, i) == c.Focus {
			return f.FromElement(name, e, ctx)
		}
	}
	return nil, errs.NewXMLError(c.name, "focus field %q not found", c.Focus)
}
