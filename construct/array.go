package construct

import (
	"errors"

	"github.com/ev1313/dingsda/container"
	"github.com/ev1313/dingsda/errs"
	"github.com/ev1313/dingsda/expr"
	"github.com/ev1313/dingsda/stream"
)

// Array repeats Subcon a fixed (or expression-derived) number of times,
// producing a *container.ListContainer. Each element's context carries
// Index, so Computed(this._index) works inside the element description.
type Array struct {
	base
	Count  expr.Expr
	Subcon Construct
}

// NewArray returns an Array of count elements of subcon.
func NewArray(count int64, subcon Construct) *Array {
	return &Array{Count: expr.Lit(count), Subcon: subcon}
}

// NewArrayExpr returns an Array whose element count is computed from the
// context.
func NewArrayExpr(count expr.Expr, subcon Construct) *Array {
	return &Array{Count: count, Subcon: subcon}
}

func (c *Array) resolveCount(ctx *container.Container) (int64, error) {
	v, err := expr.Eval(c.Count, ctx)
	if err != nil {
		return 0, errs.WithPath(c.name, err)
	}
	return toInt64(v)
}

func (c *Array) Parse(s *stream.Stream, ctx *container.Container) (any, error) {
	n, err := c.resolveCount(ctx)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, errs.WithPath(c.name, errs.NewRangeError(c.name, "negative count %d", n))
	}
	out := container.NewList()
	for i := int64(0); i < n; i++ {
		elemCtx := container.NewChild(ctx)
		elemCtx.Index = int(i)
		v, err := c.Subcon.Parse(s, elemCtx)
		if err != nil {
			return nil, errs.WithPath(c.name, err)
		}
		out.Append(v)
	}
	return out, nil
}

func (c *Array) Build(s *stream.Stream, obj any, ctx *container.Container) error {
	lst, ok := obj.(*container.ListContainer)
	if !ok {
		return errs.WithPath(c.name, errs.NewFormatErrorf(c.name, "expected a ListContainer, got %T", obj))
	}
	n, err := c.resolveCount(ctx)
	if err != nil {
		return err
	}
	if int64(lst.Len()) != n {
		return errs.WithPath(c.name, errs.NewRangeError(c.name, "expected %d elements, got %d", n, lst.Len()))
	}
	for i, v := range lst.Items {
		elemCtx := container.NewChild(ctx)
		elemCtx.Index = i
		if err := c.Subcon.Build(s, v, elemCtx); err != nil {
			return errs.WithPath(c.name, err)
		}
	}
	return nil
}

func (c *Array) Preprocess(obj any, ctx *container.Container) (any, error) {
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

func (c *Array) StaticSizeof(ctx *container.Container) (int64, error) {
	n, err := c.resolveCount(ctx)
	if err != nil {
		return 0, err
	}
	elemSize, err := c.Subcon.StaticSizeof(ctx)
	if err != nil {
		return 0, err
	}
	return n * elemSize, nil
}

func (c *Array) Sizeof(obj any, ctx *container.Container) (int64, error) {
	lst, ok := obj.(*container.ListContainer)
	if !ok {
		return c.StaticSizeof(ctx)
	}
	var total int64
	for i, v := range lst.Items {
		elemCtx := container.NewChild(ctx)
		elemCtx.Index = i
		n, err := c.Subcon.Sizeof(v, elemCtx)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func (c *Array) FullSizeof(obj any, ctx *container.Container) (int64, error) {
	return c.Sizeof(obj, ctx)
}

func (c *Array) ExpectedSizeof(s *stream.Stream, ctx *container.Container) (int64, error) {
	return expectedSizeofViaStatic(c, s, ctx)
}

func (c *Array) ToElement(name string, obj any, ctx *container.Container) (*Element, error) {
	lst, ok := obj.(*container.ListContainer)
	if !ok {
		return nil, errs.NewXMLError(c.name, "expected a ListContainer")
	}
	// Arrays of simple atomics are rendered as one CSV-bracketed
	// attribute, arrays of structs as repeated child elements.
	if _, isStruct := c.Subcon.(*Struct); !isStruct {
		s := "["
		for i, v := range lst.Items {
			if i > 0 {
				s += ","
			}
			s += numericAttrString(v)
		}
		s += "]"
		return attrElement(name, s), nil
	}
	el := NewElement(name)
	for i, v := range lst.Items {
		elemCtx := container.NewChild(ctx)
		elemCtx.Index = i
		child, err := c.Subcon.ToElement(name, v, elemCtx)
		if err != nil {
			return nil, err
		}
		el.AppendChild(child)
	}
	return el, nil
}

func (c *Array) FromElement(name string, e *Element, ctx *container.Container) (any, error) {
	out := container.NewList()
	for i, child := range e.Children() {
		if child.Tag() != name {
			continue
		}
		elemCtx := container.NewChild(ctx)
		elemCtx.Index = i
		v, err := c.Subcon.FromElement(name, child, elemCtx)
		if err != nil {
			return nil, err
		}
		out.Append(v)
	}
	return out, nil
}

// GreedyRange repeats Subcon until parsing fails with a clean
// end-of-sequence signal: a StreamError (ran out of bytes) or a
// FormatError from an empty read, both swallowed; any other error
// propagates.
type GreedyRange struct {
	base
	Subcon Construct
}

func NewGreedyRange(subcon Construct) *GreedyRange { return &GreedyRange{Subcon: subcon} }

func (c *GreedyRange) Parse(s *stream.Stream, ctx *container.Container) (any, error) {
	out := container.NewList()
	for i := 0; ; i++ {
		if s.EOF() {
			break
		}
		startPos := s.Tell()
		elemCtx := container.NewChild(ctx)
		elemCtx.Index = i
		v, err := c.Subcon.Parse(s, elemCtx)
		if err != nil {
			if errors.Is(err, errStopField) {
				break
			}
			if errors.Is(err, errs.ErrUnderflow) {
				break
			}
			if errors.Is(err, errs.ErrMalformed) {
				_ = s.Seek(startPos)
				break // clean stop: treat as end of sequence
			}
			return nil, errs.WithPath(c.name, err)
		}
		out.Append(v)
	}
	return out, nil
}

func (c *GreedyRange) Build(s *stream.Stream, obj any, ctx *container.Container) error {
	lst, ok := obj.(*container.ListContainer)
	if !ok {
		return errs.WithPath(c.name, errs.NewFormatErrorf(c.name, "expected a ListContainer, got %T", obj))
	}
	for i, v := range lst.Items {
		elemCtx := container.NewChild(ctx)
		elemCtx.Index = i
		if err := c.Subcon.Build(s, v, elemCtx); err != nil {
			if errors.Is(err, errStopField) {
				break
			}
			return errs.WithPath(c.name, err)
		}
	}
	return nil
}

func (c *GreedyRange) Preprocess(obj any, ctx *container.Container) (any, error) {
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

func (c *GreedyRange) StaticSizeof(ctx *container.Container) (int64, error) {
	return 0, errs.NewUnknownSizeError(c.name, "GreedyRange has no static size")
}

func (c *GreedyRange) Sizeof(obj any, ctx *container.Container) (int64, error) {
	lst, ok := obj.(*container.ListContainer)
	if !ok {
		return 0, errs.NewUnknownSizeError(c.name, "GreedyRange has no static size")
	}
	var total int64
	for i, v := range lst.Items {
		elemCtx := container.NewChild(ctx)
		elemCtx.Index = i
		n, err := c.Subcon.Sizeof(v, elemCtx)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func (c *GreedyRange) FullSizeof(obj any, ctx *container.Container) (int64, error) {
	return c.Sizeof(obj, ctx)
}

func (c *GreedyRange) ExpectedSizeof(s *stream.Stream, ctx *container.Container) (int64, error) {
	return expectedSizeofViaStatic(c, s, ctx)
}

func (c *GreedyRange) ToElement(name string, obj any, ctx *container.Container) (*Element, error) {
	arr := &Array{Subcon: c.Subcon}
	return arr.ToElement(name, obj, ctx)
}

func (c *GreedyRange) FromElement(name string, e *Element, ctx *container.Container) (any, error) {
	arr := &Array{Subcon: c.Subcon}
	return arr.FromElement(name, e, ctx)
}

// PrefixedArray reads a length-prefix with LengthField, then exactly
// that many elements of Subcon (the common count-prefixed array idiom,
// composed here from Array plus a length read/write rather than given
// its own bespoke implementation, matching construct's own
// PrefixedArray = len_ wrapped Array convention).
type PrefixedArray struct {
	base
	LengthField Construct
	Subcon      Construct
}

func NewPrefixedArray(lengthField, subcon Construct) *PrefixedArray {
	return &PrefixedArray{LengthField: lengthField, Subcon: subcon}
}

func (c *PrefixedArray) Parse(s *stream.Stream, ctx *container.Container) (any, error) {
	nRaw, err := c.LengthField.Parse(s, ctx)
	if err != nil {
		return nil, errs.WithPath(c.name, err)
	}
	n, err := toInt64(nRaw)
	if err != nil {
		return nil, errs.WithPath(c.name, err)
	}
	arr := &Array{Count: expr.Lit(n), Subcon: c.Subcon}
	return arr.Parse(s, ctx)
}

func (c *PrefixedArray) Build(s *stream.Stream, obj any, ctx *container.Container) error {
	lst, ok := obj.(*container.ListContainer)
	if !ok {
		return errs.WithPath(c.name, errs.NewFormatErrorf(c.name, "expected a ListContainer, got %T", obj))
	}
	if err := c.LengthField.Build(s, int64(lst.Len()), ctx); err != nil {
		return errs.WithPath(c.name, err)
	}
	arr := &Array{Count: expr.Lit(int64(lst.Len())), Subcon: c.Subcon}
	return arr.Build(s, obj, ctx)
}

func (c *PrefixedArray) Preprocess(obj any, ctx *container.Container) (any, error) {
	arr := &Array{Subcon: c.Subcon}
	return arr.Preprocess(obj, ctx)
}

func (c *PrefixedArray) StaticSizeof(ctx *container.Container) (int64, error) {
	return 0, errs.NewUnknownSizeError(c.name, "PrefixedArray size depends on its count")
}

func (c *PrefixedArray) Sizeof(obj any, ctx *container.Container) (int64, error) {
	lenSize, err := c.LengthField.StaticSizeof(ctx)
	if err != nil {
		return 0, err
	}
	arr := &Array{Subcon: c.Subcon}
	elemsSize, err := arr.Sizeof(obj, ctx)
	if err != nil {
		return 0, err
	}
	return lenSize + elemsSize, nil
}

func (c *PrefixedArray) FullSizeof(obj any, ctx *container.Container) (int64, error) {
	return c.Sizeof(obj, ctx)
}

// ExpectedSizeof peeks only the length prefix -- not the element bodies
// -- to answer how big the whole field will be: it reads LengthField at
// the current position, restores the stream, then reports the prefix's
// own width plus count*static-element-size. This is the non-destructive
// lookahead PrefixedArray exists for: a caller deciding how much of the
// stream to skip doesn't need to actually parse every element.
func (c *PrefixedArray) ExpectedSizeof(s *stream.Stream, ctx *container.Container) (int64, error) {
	start := s.Tell()
	nRaw, perr := c.LengthField.Parse(s, ctx)
	lenWidth := s.Tell() - start
	if err := s.Seek(start); err != nil {
		return 0, errs.WithPath(c.name, err)
	}
	if perr != nil {
		return 0, errs.WithPath(c.name, perr)
	}
	n, err := toInt64(nRaw)
	if err != nil {
		return 0, errs.WithPath(c.name, err)
	}
	elemSize, err := c.Subcon.StaticSizeof(ctx)
	if err != nil {
		return 0, err
	}
	return lenWidth + n*elemSize, nil
}

func (c *PrefixedArray) ToElement(name string, obj any, ctx *container.Container) (*Element, error) {
	arr := &Array{Subcon: c.Subcon}
	return arr.ToElement(name, obj, ctx)
}

func (c *PrefixedArray) FromElement(name string, e *Element, ctx *container.Container) (any, error) {
	arr := &Array{Subcon: c.Subcon}
	return arr.FromElement(name, e, ctx)
}
