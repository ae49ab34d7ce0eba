package construct

import (
	"github.com/ev1313/dingsda/container"
	"github.com/ev1313/dingsda/errs"
	"github.com/ev1313/dingsda/expr"
	"github.com/ev1313/dingsda/stream"
)

// Pointer parses/builds Subcon at Offset (absolute, or from-EOF if
// negative), saving and restoring the stream position around the
// detour. A Pointer field itself occupies zero bytes in its parent's
// byte layout -- its Sizeof is always 0, and the enclosing Struct's
// running offset is unaffected -- but its FullSizeof reports the
// pointee's own footprint, recorded by the enclosing Struct as the
// field's meta.PtrSize and flattened _<name>_ptrsize.
type Pointer struct {
	base
	Offset expr.Expr
	Subcon Construct
}

func NewPointer(offset expr.Expr, subcon Construct) *Pointer {
	return &Pointer{Offset: offset, Subcon: subcon}
}

func (c *Pointer) resolveOffset(ctx *container.Container) (int64, error) {
	v, err := expr.Eval(c.Offset, ctx)
	if err != nil {
		return 0, errs.WithPath(c.name, err)
	}
	return toInt64(v)
}

func (c *Pointer) Parse(s *stream.Stream, ctx *container.Container) (any, error) {
	off, err := c.resolveOffset(ctx)
	if err != nil {
		return nil, err
	}
	saved := s.Tell()
	if err := s.Seek(off); err != nil {
		return nil, errs.WithPath(c.name, err)
	}
	v, err := c.Subcon.Parse(s, ctx)
	if serr := s.Seek(saved); serr != nil && err == nil {
		err = serr
	}
	if err != nil {
		return nil, errs.WithPath(c.name, err)
	}
	return v, nil
}

func (c *Pointer) Build(s *stream.Stream, obj any, ctx *container.Container) error {
	off, err := c.resolveOffset(ctx)
	if err != nil {
		return err
	}
	saved := s.Tell()
	if err := s.Seek(off); err != nil {
		return errs.WithPath(c.name, err)
	}
	err = c.Subcon.Build(s, obj, ctx)
	if serr := s.Seek(saved); serr != nil && err == nil {
		err = serr
	}
	return errs.WithPath(c.name, err)
}

func (c *Pointer) Preprocess(obj any, ctx *container.Container) (any, error) {
	return c.Subcon.Preprocess(obj, ctx)
}

func (c *Pointer) StaticSizeof(ctx *container.Container) (int64, error) { return 0, nil }
func (c *Pointer) Sizeof(obj any, ctx *container.Container) (int64, error) { return 0, nil }

// FullSizeof reports the pointee's own footprint (recursively including
// anything it in turn points at), not the zero bytes the Pointer itself
// occupies inline -- this is what lets a parent Struct's FullSizeof total
// actually reflect "size including pointed-to regions".
func (c *Pointer) FullSizeof(obj any, ctx *container.Container) (int64, error) {
	return c.Subcon.FullSizeof(obj, ctx)
}

func (c *Pointer) ExpectedSizeof(s *stream.Stream, ctx *container.Container) (int64, error) {
	return 0, nil
}

func (c *Pointer) ToElement(name string, obj any, ctx *container.Container) (*Element, error) {
	return c.Subcon.ToElement(name, obj, ctx)
}
func (c *Pointer) FromElement(name string, e *Element, ctx *container.Container) (any, error) {
	return c.Subcon.FromElement(name, e, ctx)
}

// Area combines Pointer's seek-and-return with Array's repetition: it
// reads/writes Count (or as many elements as fit in Size bytes) of
// Subcon at Offset, and when CheckStreamPos is set, asserts the bytes
// actually consumed land exactly at Offset+Size. Like Pointer, an Area
// field is zero bytes wide in its parent's own layout; its FullSizeof
// instead reports the total footprint of the elements it points at.
type Area struct {
	base
	Offset         expr.Expr
	Size           expr.Expr
	Count          expr.Expr // nil means "fill Size"
	Subcon         Construct
	CheckStreamPos bool
}

func NewArea(offset, size expr.Expr, subcon Construct) *Area {
	return &Area{Offset: offset, Size: size, Subcon: subcon, CheckStreamPos: true}
}

func (c *Area) Parse(s *stream.Stream, ctx *container.Container) (any, error) {
	off, err := evalInt(c.Offset, ctx, c.name)
	if err != nil {
		return nil, err
	}
	size, err := evalInt(c.Size, ctx, c.name)
	if err != nil {
		return nil, err
	}
	saved := s.Tell()
	if err := s.Seek(off); err != nil {
		return nil, errs.WithPath(c.name, err)
	}

	out := container.NewList()
	var count int64 = -1
	if c.Count != nil {
		count, err = evalInt(c.Count, ctx, c.name)
		if err != nil {
			return nil, err
		}
	}
	i := int64(0)
	for {
		if count >= 0 && i >= count {
			break
		}
		if count < 0 && s.Tell() >= off+size {
			break
		}
		elemCtx := container.NewChild(ctx)
		elemCtx.Index = int(i)
		v, err := c.Subcon.Parse(s, elemCtx)
		if err != nil {
			return nil, errs.WithPath(c.name, err)
		}
		out.Append(v)
		i++
	}

	parsedEnd := s.Tell()
	if err := s.Seek(saved); err != nil {
		return nil, errs.WithPath(c.name, err)
	}
	if c.CheckStreamPos && parsedEnd != off+size {
		return nil, errs.WithPath(c.name, errs.NewRangeError(c.name, "area consumed %d bytes, expected %d", parsedEnd-off, size))
	}
	if parsedEnd > off+size {
		return nil, errs.WithPath(c.name, errs.NewRangeError(c.name, "area overran its bound by %d bytes", parsedEnd-(off+size)))
	}
	return out, nil
}

func (c *Area) Build(s *stream.Stream, obj any, ctx *container.Container) error {
	lst, ok := obj.(*container.ListContainer)
	if !ok {
		return errs.WithPath(c.name, errs.NewFormatErrorf(c.name, "expected a ListContainer, got %T", obj))
	}
	off, err := evalInt(c.Offset, ctx, c.name)
	if err != nil {
		return err
	}
	saved := s.Tell()
	if err := s.Seek(off); err != nil {
		return errs.WithPath(c.name, err)
	}
	for i, v := range lst.Items {
		elemCtx := container.NewChild(ctx)
		elemCtx.Index = i
		if err := c.Subcon.Build(s, v, elemCtx); err != nil {
			return errs.WithPath(c.name, err)
		}
	}
	return errs.WithPath(c.name, s.Seek(saved))
}

func (c *Area) Preprocess(obj any, ctx *container.Container) (any, error) {
	lst, ok := obj.(*container.ListContainer)
	if !ok {
		return obj, nil
	}
	out := container.NewList()
	for i, v := range lst.Items {
		elemCtx := container.NewChild(ctx)
		elemCtx.Index = i
		nv, err := c.Subcon.Preprocess(v, elemCtx)
		if err != nil {
			return nil, err
		}
		out.Append(nv)
	}
	return out, nil
}

func (c *Area) StaticSizeof(ctx *container.Container) (int64, error) { return 0, nil }
func (c *Area) Sizeof(obj any, ctx *container.Container) (int64, error) { return 0, nil }

// FullSizeof sums each pointed-to element's own footprint.
func (c *Area) FullSizeof(obj any, ctx *container.Container) (int64, error) {
	lst, ok := obj.(*container.ListContainer)
	if !ok {
		return 0, nil
	}
	var total int64
	for i, v := range lst.Items {
		elemCtx := container.NewChild(ctx)
		elemCtx.Index = i
		n, err := c.Subcon.FullSizeof(v, elemCtx)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func (c *Area) ExpectedSizeof(s *stream.Stream, ctx *container.Container) (int64, error) {
	return 0, nil
}

func (c *Area) ToElement(name string, obj any, ctx *container.Container) (*Element, error) {
	arr := &Array{Subcon: c.Subcon}
	return arr.ToElement(name, obj, ctx)
}
func (c *Area) FromElement(name string, e *Element, ctx *container.Container) (any, error) {
	arr := &Array{Subcon: c.Subcon}
	return arr.FromElement(name, e, ctx)
}

func evalInt(e expr.Expr, ctx *container.Container, path string) (int64, error) {
	v, err := expr.Eval(e, ctx)
	if err != nil {
		return 0, errs.WithPath(path, err)
	}
	return toInt64(v)
}
