package construct

import (
	"github.com/ev1313/dingsda/container"
	"github.com/ev1313/dingsda/errs"
	"github.com/ev1313/dingsda/stream"
)

// Aligned pads Subcon's encoding up to the next multiple of Modulus
// bytes, on both parse (discarding the padding) and build (emitting
// zero padding), used by AlignedStruct below for the common "every
// field aligned to N bytes" pattern.
type Aligned struct {
	base
	Modulus int64
	Subcon  Construct
}

func NewAligned(modulus int64, subcon Construct) *Aligned {
	return &Aligned{Modulus: modulus, Subcon: subcon}
}

func padLen(size, modulus int64) int64 {
	if modulus <= 0 {
		return 0
	}
	rem := size % modulus
	if rem == 0 {
		return 0
	}
	return modulus - rem
}

func (c *Aligned) Parse(s *stream.Stream, ctx *container.Container) (any, error) {
	start := s.Tell()
	v, err := c.Subcon.Parse(s, ctx)
	if err != nil {
		return nil, errs.WithPath(c.name, err)
	}
	consumed := s.Tell() - start
	if pad := padLen(consumed, c.Modulus); pad > 0 {
		if _, err := s.ReadBytes(int(pad)); err != nil {
			return nil, errs.WithPath(c.name, err)
		}
	}
	return v, nil
}

func (c *Aligned) Build(s *stream.Stream, obj any, ctx *container.Container) error {
	start := s.Tell()
	if err := c.Subcon.Build(s, obj, ctx); err != nil {
		return errs.WithPath(c.name, err)
	}
	consumed := s.Tell() - start
	if pad := padLen(consumed, c.Modulus); pad > 0 {
		if err := s.WriteBytes(make([]byte, pad)); err != nil {
			return errs.WithPath(c.name, err)
		}
	}
	return nil
}

func (c *Aligned) Preprocess(obj any, ctx *container.Container) (any, error) {
	return c.Subcon.Preprocess(obj, ctx)
}

func (c *Aligned) StaticSizeof(ctx *container.Container) (int64, error) {
	n, err := c.Subcon.StaticSizeof(ctx)
	if err != nil {
		return 0, err
	}
	return n + padLen(n, c.Modulus), nil
}

func (c *Aligned) Sizeof(obj any, ctx *container.Container) (int64, error) {
	n, err := c.Subcon.Sizeof(obj, ctx)
	if err != nil {
		return 0, err
	}
	return n + padLen(n, c.Modulus), nil
}

func (c *Aligned) FullSizeof(obj any, ctx *container.Container) (int64, error) {
	n, err := c.Subcon.FullSizeof(obj, ctx)
	if err != nil {
		return 0, err
	}
	return n + padLen(n, c.Modulus), nil
}

func (c *Aligned) ExpectedSizeof(s *stream.Stream, ctx *container.Container) (int64, error) {
	n, err := c.Subcon.ExpectedSizeof(s, ctx)
	if err != nil {
		return 0, err
	}
	return n + padLen(n, c.Modulus), nil
}

func (c *Aligned) ToElement(name string, obj any, ctx *container.Container) (*Element, error) {
	return c.Subcon.ToElement(name, obj, ctx)
}
func (c *Aligned) FromElement(name string, e *Element, ctx *container.Container) (any, error) {
	return c.Subcon.FromElement(name, e, ctx)
}

// AlignedStruct wraps every field of a Struct in Aligned(modulus, ...),
// a convenience helper for the common "every field padded to N bytes"
// format family.
func AlignedStruct(modulus int64, fields ...Construct) *Struct {
	aligned := make([]Construct, len(fields))
	for i, f := range fields {
		name := f.Name()
		aligned[i] = NewRenamed(name, NewAligned(modulus, f))
	}
	return NewStruct(aligned...)
}
