package construct

import (
	"github.com/ev1313/dingsda/container"
	"github.com/ev1313/dingsda/errs"
	"github.com/ev1313/dingsda/stream"
)

// Union parses every subcon at the SAME starting stream offset (seeking
// back to it before each branch and again after the last, so the Union
// itself consumes no bytes), returning a
// Container with every branch's decoded value keyed by name. Building
// writes only the first subcon whose name is present as a key in the
// supplied object. Lossy in XML, like Tunnel/Compressed (documented).
type Union struct {
	base
	Subcons []Construct
}

func NewUnion(subcons ...Construct) *Union { return &Union{Subcons: subcons} }

func (c *Union) Parse(s *stream.Stream, ctx *container.Container) (any, error) {
	start := s.Tell()
	out := container.NewChild(ctx)
	for i, sc := range c.Subcons {
		if err := s.Seek(start); err != nil {
			return nil, errs.WithPath(c.name, err)
		}
		name := fieldName(sc, i)
		v, err := sc.Parse(s, out)
		if err != nil {
			continue // a branch that fails to parse is simply absent from the union's result
		}
		out.Set(name, v)
	}
	if err := s.Seek(start); err != nil {
		return nil, errs.WithPath(c.name, err)
	}
	return out, nil
}

func (c *Union) Build(s *stream.Stream, obj any, ctx *container.Container) error {
	in, ok := obj.(*container.Container)
	if !ok {
		return errs.WithPath(c.name, errs.NewFormatErrorf(c.name, "expected a Container, got %T", obj))
	}
	for i, sc := range c.Subcons {
		name := fieldName(sc, i)
		if v, ok := in.Get(name); ok {
			return sc.Build(s, v, ctx)
		}
	}
	return errs.WithPath(c.name, errs.NewFormatErrorf(c.name, "no union branch present in build object"))
}

func (c *Union) Preprocess(obj any, ctx *container.Container) (any, error) { return obj, nil }

func (c *Union) StaticSizeof(ctx *container.Container) (int64, error) {
	return 0, errs.NewUnknownSizeError(c.name, "Union size is the size of whichever branch is built")
}
func (c *Union) Sizeof(obj any, ctx *container.Container) (int64, error) {
	in, ok := obj.(*container.Container)
	if !ok {
		return 0, errs.NewUnknownSizeError(c.name, "Union size depends on its value")
	}
	for i, sc := range c.Subcons {
		name := fieldName(sc, i)
		if v, ok := in.Get(name); ok {
			return sc.Sizeof(v, ctx)
		}
	}
	return 0, errs.NewUnknownSizeError(c.name, "no union branch present")
}
func (c *Union) FullSizeof(obj any, ctx *container.Container) (int64, error) {
	return c.Sizeof(obj, ctx)
}
func (c *Union) ExpectedSizeof(s *stream.Stream, ctx *container.Container) (int64, error) {
	return expectedSizeofViaStatic(c, s, ctx)
}
func (c *Union) ToElement(name string, obj any, ctx *container.Container) (*Element, error) {
	return nil, errs.NewXMLError(c.name, "Union cannot be rendered to XML unambiguously")
}
func (c *Union) FromElement(name string, e *Element, ctx *container.Container) (any, error) {
	return nil, errs.NewXMLError(c.name, "Union cannot be recovered from XML unambiguously")
}

// Peek parses Subcon and then rewinds the stream to where it started,
// so a sibling field can inspect upcoming bytes without consuming them.
// ExplicitError still propagates (a user assertion failing is never
// swallowed); any other parse error is swallowed and Peek returns nil.
type Peek struct {
	base
	Subcon Construct
}

func NewPeek(subcon Construct) *Peek { return &Peek{Subcon: subcon} }

func (c *Peek) Parse(s *stream.Stream, ctx *container.Container) (any, error) {
	start := s.Tell()
	v, err := c.Subcon.Parse(s, ctx)
	_ = s.Seek(start)
	if err != nil {
		if errs.IsExplicit(err) {
			return nil, errs.WithPath(c.name, err)
		}
		return nil, nil
	}
	return v, nil
}

func (c *Peek) Build(s *stream.Stream, obj any, ctx *container.Container) error { return nil }
func (c *Peek) Preprocess(obj any, ctx *container.Container) (any, error)       { return obj, nil }
func (c *Peek) StaticSizeof(ctx *container.Container) (int64, error)           { return 0, nil }
func (c *Peek) Sizeof(obj any, ctx *container.Container) (int64, error)       { return 0, nil }
func (c *Peek) FullSizeof(obj any, ctx *container.Container) (int64, error)   { return 0, nil }
func (c *Peek) ExpectedSizeof(s *stream.Stream, ctx *container.Container) (int64, error) {
	return 0, nil
}
func (c *Peek) ToElement(name string, obj any, ctx *container.Container) (*Element, error) {
	return nil, nil
}
func (c *Peek) FromElement(name string, e *Element, ctx *container.Container) (any, error) {
	return nil, nil
}
