package construct

import (
	"github.com/ev1313/dingsda/container"
	"github.com/ev1313/dingsda/errs"
	"github.com/ev1313/dingsda/stream"
)

// BitsInteger reads/writes width MSB-first bits as a signed or unsigned
// integer, intended for use inside a Bitwise block. Supplements the
// spec's atomic catalogue (needed by scenario 5, a Bitwise struct of
// packed sub-byte integer fields).
type BitsInteger struct {
	base
	Width  int
	Signed bool
}

func NewBitsInteger(width int, signed bool) *BitsInteger {
	return &BitsInteger{Width: width, Signed: signed}
}

func (c *BitsInteger) Parse(s *stream.Stream, ctx *container.Container) (any, error) {
	v, err := s.ReadBits(c.Width)
	if err != nil {
		return nil, errs.WithPath(c.name, err)
	}
	if c.Signed && c.Width < 64 {
		signBit := uint64(1) << uint(c.Width-1)
		if v&signBit != 0 {
			return int64(v) - int64(1<<uint(c.Width)), nil
		}
	}
	if c.Signed {
		return int64(v), nil
	}
	return v, nil
}

func (c *BitsInteger) Build(s *stream.Stream, obj any, ctx *container.Container) error {
	i, err := toInt64(obj)
	if err != nil {
		return errs.WithPath(c.name, err)
	}
	mask := uint64(1)<<uint(c.Width) - 1
	return s.WriteBits(uint64(i)&mask, c.Width)
}

func (c *BitsInteger) Preprocess(obj any, ctx *container.Container) (any, error) { return obj, nil }

func (c *BitsInteger) StaticSizeof(ctx *container.Container) (int64, error) {
	return 0, errs.NewUnknownSizeError(c.name, "BitsInteger size is in bits, not bytes")
}
func (c *BitsInteger) Sizeof(obj any, ctx *container.Container) (int64, error) {
	return 0, errs.NewUnknownSizeError(c.name, "BitsInteger size is in bits, not bytes")
}
func (c *BitsInteger) FullSizeof(obj any, ctx *container.Container) (int64, error) {
	return c.Sizeof(obj, ctx)
}
func (c *BitsInteger) ExpectedSizeof(s *stream.Stream, ctx *container.Container) (int64, error) {
	return 0, errs.NewUnknownSizeError(c.name, "BitsInteger size is in bits, not bytes")
}
func (c *BitsInteger) ToElement(name string, obj any, ctx *container.Container) (*Element, error) {
	return attrElement(name, numericAttrString(obj)), nil
}
func (c *BitsInteger) FromElement(name string, e *Element, ctx *container.Container) (any, error) {
	v, ok := e.GetAttr(name)
	if !ok {
		return nil, errs.NewXMLError(c.name, "missing attribute %q", name)
	}
	return parseNumericAttr(v, nil)
}

func numericAttrString(v any) string {
	i, err := toInt64(v)
	if err == nil {
		return itoa(i)
	}
	return ""
}

func itoa(i int64) string {
	neg := i < 0
	if neg {
		i = -i
	}
	if i == 0 {
		return "0"
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

// Bitwise switches the stream into bit mode for the duration of subcon's
// parse/build, then leaves bit mode (erroring on non-byte-aligned exit).
// Bytewise, the inverse, is used inside a Bitwise block to drop back to
// ordinary byte-aligned reads for an embedded byte-oriented subcon.
type Bitwise struct {
	base
	Subcon Construct
}

func NewBitwise(subcon Construct) *Bitwise { return &Bitwise{Subcon: subcon} }

func (c *Bitwise) Parse(s *stream.Stream, ctx *container.Container) (any, error) {
	s.EnterBits()
	v, err := c.Subcon.Parse(s, ctx)
	if lerr := s.LeaveBits(); lerr != nil && err == nil {
		err = lerr
	}
	return v, errs.WithPath(c.name, err)
}

func (c *Bitwise) Build(s *stream.Stream, obj any, ctx *container.Container) error {
	s.EnterBits()
	err := c.Subcon.Build(s, obj, ctx)
	if lerr := s.LeaveBits(); lerr != nil && err == nil {
		err = lerr
	}
	return errs.WithPath(c.name, err)
}

func (c *Bitwise) Preprocess(obj any, ctx *container.Container) (any, error) {
	return c.Subcon.Preprocess(obj, ctx)
}
func (c *Bitwise) StaticSizeof(ctx *container.Container) (int64, error) {
	return 0, errs.NewUnknownSizeError(c.name, "Bitwise size is computed in bits by its subcon")
}
func (c *Bitwise) Sizeof(obj any, ctx *container.Container) (int64, error) {
	return 0, errs.NewUnknownSizeError(c.name, "Bitwise size is computed in bits by its subcon")
}
func (c *Bitwise) FullSizeof(obj any, ctx *container.Container) (int64, error) {
	return c.Sizeof(obj, ctx)
}
func (c *Bitwise) ExpectedSizeof(s *stream.Stream, ctx *container.Container) (int64, error) {
	return 0, errs.NewUnknownSizeError(c.name, "Bitwise size is computed in bits by its subcon")
}
func (c *Bitwise) ToElement(name string, obj any, ctx *container.Container) (*Element, error) {
	return c.Subcon.ToElement(name, obj, ctx)
}
func (c *Bitwise) FromElement(name string, e *Element, ctx *container.Container) (any, error) {
	return c.Subcon.FromElement(name, e, ctx)
}

// Bytewise is Bitwise's inverse: used inside an enclosing Bitwise block
// to drop back to ordinary byte-aligned reads/writes for an embedded
// byte-oriented subcon, then resume bit mode afterward. Leaving bit mode
// non-aligned is an error (the same "must be balanced" rule Bitwise
// itself enforces on exit).
type Bytewise struct {
	base
	Subcon Construct
}

func NewBytewise(subcon Construct) *Bytewise { return &Bytewise{Subcon: subcon} }

func (c *Bytewise) Parse(s *stream.Stream, ctx *container.Container) (any, error) {
	if err := s.LeaveBits(); err != nil {
		return nil, errs.WithPath(c.name, err)
	}
	v, err := c.Subcon.Parse(s, ctx)
	s.EnterBits()
	if err != nil {
		return nil, errs.WithPath(c.name, err)
	}
	return v, nil
}

func (c *Bytewise) Build(s *stream.Stream, obj any, ctx *container.Container) error {
	if err := s.LeaveBits(); err != nil {
		return errs.WithPath(c.name, err)
	}
	err := c.Subcon.Build(s, obj, ctx)
	s.EnterBits()
	if err != nil {
		return errs.WithPath(c.name, err)
	}
	return nil
}

func (c *Bytewise) Preprocess(obj any, ctx *container.Container) (any, error) {
	return c.Subcon.Preprocess(obj, ctx)
}
func (c *Bytewise) StaticSizeof(ctx *container.Container) (int64, error) {
	return c.Subcon.StaticSizeof(ctx)
}
func (c *Bytewise) Sizeof(obj any, ctx *container.Container) (int64, error) {
	return c.Subcon.Sizeof(obj, ctx)
}
func (c *Bytewise) FullSizeof(obj any, ctx *container.Container) (int64, error) {
	return c.Subcon.FullSizeof(obj, ctx)
}
func (c *Bytewise) ExpectedSizeof(s *stream.Stream, ctx *container.Container) (int64, error) {
	return c.Subcon.ExpectedSizeof(s, ctx)
}
func (c *Bytewise) ToElement(name string, obj any, ctx *container.Container) (*Element, error) {
	return c.Subcon.ToElement(name, obj, ctx)
}
func (c *Bytewise) FromElement(name string, e *Element, ctx *container.Container) (any, error) {
	return c.Subcon.FromElement(name, e, ctx)
}
