package construct

import (
	"errors"

	"github.com/ev1313/dingsda/container"
	"github.com/ev1313/dingsda/errs"
	"github.com/ev1313/dingsda/stream"
)

// Struct is an ordered sequence of named subcons, each contributing one
// field to a Container. A field constructed from a Construct whose own
// Sizeof reports a fixed/resolvable size participates fully in the
// offset/size bookkeeping of Preprocess.
type Struct struct {
	base
	Fields []Construct
}

// NewStruct returns a Struct over fields, each normally wrapped in
// Renamed so it has a field name.
func NewStruct(fields ...Construct) *Struct { return &Struct{Fields: fields} }

func fieldName(c Construct, idx int) string {
	if n := c.Name(); n != "" {
		return n
	}
	return "_unnamed" + itoa(int64(idx))
}

func (c *Struct) Parse(s *stream.Stream, ctx *container.Container) (any, error) {
	out := container.NewChild(ctx)
	for i, f := range c.Fields {
		name := fieldName(f, i)
		v, err := f.Parse(s, out)
		if err != nil {
			if errors.Is(err, errStopField) {
				break
			}
			return nil, errs.WithPath(name, err)
		}
		if name != "" && !isAnonymous(f) {
			out.Set(name, v)
			out.SetSubcon(name, f)
		}
	}
	return out, nil
}

func isAnonymous(f Construct) bool {
	switch f.(type) {
	case *passConstruct, *indexConstruct, *StopIf, *Check, *tellConstruct:
		return true
	}
	return f.Name() == ""
}

func (c *Struct) Build(s *stream.Stream, obj any, ctx *container.Container) error {
	in, ok := obj.(*container.Container)
	if !ok {
		return errs.NewFormatErrorf(c.name, "expected a Container, got %T", obj)
	}
	out := container.NewChild(ctx)
	// copy caller-supplied fields into a fresh working context so nested
	// Computed/Rebuild expressions can reference siblings already built.
	for _, k := range in.Keys() {
		v, _ := in.Get(k)
		out.Set(k, v)
	}
	for i, f := range c.Fields {
		name := fieldName(f, i)
		var v any
		if name != "" {
			v, _ = out.Get(name)
		}
		if err := f.Build(s, v, out); err != nil {
			if errors.Is(err, errStopField) {
				break
			}
			return errs.WithPath(name, err)
		}
	}
	return nil
}

// Preprocess runs the two-phase sweep documented in struct.py: first a
// basic per-field preprocess (materializing Rebuild placeholders), then
// a left-to-right pass computing offset/size meta and resolving those
// placeholders, so a field's Rebuild expression can see an earlier
// sibling's fully-resolved value and meta.
func (c *Struct) Preprocess(obj any, ctx *container.Container) (any, error) {
	var in *container.Container
	if m, ok := obj.(*container.Container); ok {
		in = m
	} else {
		in = container.NewChild(ctx)
	}
	out := container.NewChild(ctx)
	for _, k := range in.Keys() {
		v, _ := in.Get(k)
		out.Set(k, v)
	}

	// phase 1: per-field preprocess
	for i, f := range c.Fields {
		name := fieldName(f, i)
		var v any
		if name != "" {
			v, _ = out.Get(name)
		}
		nv, err := f.Preprocess(v, out)
		if err != nil {
			return nil, errs.WithPath(name, err)
		}
		if name != "" && !isAnonymous(f) {
			out.Set(name, nv)
			out.SetSubcon(name, f)
		}
	}

	// phase 2: compute offsets/sizes left to right, resolving deferred
	// Rebuild values as we go, so SetMeta makes earlier siblings visible
	// to later ones and resolveDeferred makes resolved values visible to
	// anything evaluated afterward. The per-field Size/EndOffset meta (and
	// the running offset) come from Sizeof, not FullSizeof: a Pointer/Area
	// field occupies zero bytes in its parent's layout even though its
	// FullSizeof reports the (non-zero) footprint of what it points at.
	var offset int64
	for i, f := range c.Fields {
		name := fieldName(f, i)
		var v any
		if name != "" {
			v, _ = out.Get(name)
		}
		resolved, err := resolveDeferred(v)
		if err != nil {
			return nil, errs.WithPath(name, err)
		}
		if _, wasDeferred := v.(*deferredValue); wasDeferred && name != "" && !isAnonymous(f) {
			out.Set(name, resolved)
		}
		size, err := f.Sizeof(resolved, out)
		if err != nil {
			size = 0 // fields whose Sizeof fails (e.g. a BitsInteger, whose size is in bits) contribute 0 to the running offset
		}
		if name != "" && !isAnonymous(f) {
			meta := container.Meta{Offset: offset, Size: size, EndOffset: offset + size}
			if _, isPtr := unwrapPointerLike(f); isPtr {
				ptrSize, err := f.FullSizeof(resolved, out)
				if err == nil {
					meta.PtrSize = &ptrSize
					out.Set("_"+name+"_ptrsize", ptrSize)
				}
			}
			out.SetMeta(name, meta)
			out.Set("_"+name+"_offset", meta.Offset)
			out.Set("_"+name+"_size", meta.Size)
			out.Set("_"+name+"_endoffset", meta.EndOffset)
		}
		offset += size
	}
	return out, nil
}

// unwrapPointerLike follows Renamed/Default wrapping to see whether f is
// ultimately a Pointer or Area, the two combinators whose fields carry a
// _ptrsize distinct from their (zero) contribution to the enclosing
// Struct's layout.
func unwrapPointerLike(f Construct) (Construct, bool) {
	for {
		switch t := f.(type) {
		case *Pointer:
			return t, true
		case *Area:
			return t, true
		case *Renamed:
			f = t.Subcon
		case *Default:
			f = t.Subcon
		default:
			return nil, false
		}
	}
}

func (c *Struct) StaticSizeof(ctx *container.Container) (int64, error) {
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

func (c *Struct) Sizeof(obj any, ctx *container.Container) (int64, error) {
	in, ok := obj.(*container.Container)
	if !ok {
		return c.StaticSizeof(ctx)
	}
	var total int64
	for i, f := range c.Fields {
		name := fieldName(f, i)
		var v any
		if name != "" {
			v, _ = in.Get(name)
		}
		n, err := f.Sizeof(v, ctx)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func (c *Struct) FullSizeof(obj any, ctx *container.Container) (int64, error) {
	in, ok := obj.(*container.Container)
	if !ok {
		return c.StaticSizeof(ctx)
	}
	var total int64
	for i, f := range c.Fields {
		name := fieldName(f, i)
		var v any
		if name != "" {
			v, _ = in.Get(name)
		}
		resolved, err := resolveDeferred(v)
		if err != nil {
			return 0, err
		}
		n, err := f.FullSizeof(resolved, ctx)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// ExpectedSizeof peeks each field in turn, advancing s so a later field's
// own lookahead (e.g. PrefixedArray's length prefix) sees the right
// stream position, then restores s to where it started.
func (c *Struct) ExpectedSizeof(s *stream.Stream, ctx *container.Container) (int64, error) {
	saved := s.Tell()
	var total int64
	for _, f := range c.Fields {
		n, err := f.ExpectedSizeof(s, ctx)
		if err != nil {
			s.Seek(saved)
			return 0, err
		}
		total += n
		if err := s.Seek(saved + total); err != nil {
			return 0, err
		}
	}
	return total, s.Seek(saved)
}

func (c *Struct) ToElement(name string, obj any, ctx *container.Container) (*Element, error) {
	in, ok := obj.(*container.Container)
	if !ok {
		return nil, errs.NewXMLError(c.name, "expected a Container")
	}
	el := NewElement(name)
	for i, f := range c.Fields {
		fname := fieldName(f, i)
		var v any
		if fname != "" {
			v, _ = in.Get(fname)
		}
		child, err := f.ToElement(fname, v, in)
		if err != nil {
			return nil, errs.WithPath(fname, err)
		}
		if child == nil {
			continue
		}
		if child.Tag() == "attr" {
			for _, an := range child.AttrNames() {
				av, _ := child.GetAttr(an)
				el.SetAttr(an, av)
			}
		} else {
			el.AppendChild(child)
		}
	}
	return el, nil
}

func (c *Struct) FromElement(name string, e *Element, ctx *container.Container) (any, error) {
	out := container.NewChild(ctx)
	for i, f := range c.Fields {
		fname := fieldName(f, i)
		v, err := f.FromElement(fname, e, out)
		if err != nil {
			return nil, errs.WithPath(fname, err)
		}
		if fname != "" && !isAnonymous(f) {
			out.Set(fname, v)
		}
	}
	return out, nil
}
