package construct

import (
	"bytes"

	"github.com/ev1313/dingsda/container"
	"github.com/ev1313/dingsda/errs"
	"github.com/ev1313/dingsda/stream"
)

// NullTerminated reads bytes up to (and consuming) a Term sequence,
// handing the bytes before it to Subcon; on build it appends Term after
// Subcon's encoding.
type NullTerminated struct {
	base
	Term   []byte
	Subcon Construct
}

func NewNullTerminated(subcon Construct, term ...byte) *NullTerminated {
	t := term
	if len(t) == 0 {
		t = []byte{0}
	}
	return &NullTerminated{Term: t, Subcon: subcon}
}

func (c *NullTerminated) Parse(s *stream.Stream, ctx *container.Container) (any, error) {
	var buf []byte
	for {
		b, err := s.ReadBytes(1)
		if err != nil {
			return nil, errs.WithPath(c.name, err)
		}
		if len(c.Term) > 0 && b[0] == c.Term[0] {
			// only single-byte terminators are matched incrementally;
			// multi-byte terms are checked once enough bytes accumulate.
			if len(c.Term) == 1 {
				break
			}
		}
		buf = append(buf, b[0])
		if len(c.Term) > 1 && bytes.HasSuffix(buf, c.Term) {
			buf = buf[:len(buf)-len(c.Term)]
			break
		}
	}
	sub := stream.New(buf)
	return c.Subcon.Parse(sub, ctx)
}

func (c *NullTerminated) Build(s *stream.Stream, obj any, ctx *container.Container) error {
	sub := stream.NewEmpty()
	if err := c.Subcon.Build(sub, obj, ctx); err != nil {
		return errs.WithPath(c.name, err)
	}
	if err := s.WriteBytes(sub.Bytes()); err != nil {
		return err
	}
	return s.WriteBytes(c.Term)
}

func (c *NullTerminated) Preprocess(obj any, ctx *container.Container) (any, error) {
	return c.Subcon.Preprocess(obj, ctx)
}
func (c *NullTerminated) StaticSizeof(ctx *container.Container) (int64, error) {
	return 0, errs.NewUnknownSizeError(c.name, "NullTerminated size depends on its payload")
}
func (c *NullTerminated) Sizeof(obj any, ctx *container.Container) (int64, error) {
	n, err := c.Subcon.Sizeof(obj, ctx)
	if err != nil {
		return 0, err
	}
	return n + int64(len(c.Term)), nil
}
func (c *NullTerminated) FullSizeof(obj any, ctx *container.Container) (int64, error) {
	return c.Sizeof(obj, ctx)
}
func (c *NullTerminated) ExpectedSizeof(s *stream.Stream, ctx *container.Container) (int64, error) {
	return expectedSizeofViaStatic(c, s, ctx)
}
func (c *NullTerminated) ToElement(name string, obj any, ctx *container.Container) (*Element, error) {
	return c.Subcon.ToElement(name, obj, ctx)
}
func (c *NullTerminated) FromElement(name string, e *Element, ctx *container.Container) (any, error) {
	return c.Subcon.FromElement(name, e, ctx)
}

// NullStripped strips trailing Pad bytes before handing the remainder to
// Subcon on parse, and pads Subcon's build output back up to Length
// bytes with Pad on build.
type NullStripped struct {
	base
	Pad    byte
	Length int64
	Subcon Construct
}

func NewNullStripped(subcon Construct, length int64, pad byte) *NullStripped {
	return &NullStripped{Pad: pad, Length: length, Subcon: subcon}
}

func (c *NullStripped) Parse(s *stream.Stream, ctx *container.Container) (any, error) {
	b, err := s.ReadBytes(int(c.Length))
	if err != nil {
		return nil, errs.WithPath(c.name, err)
	}
	end := len(b)
	for end > 0 && b[end-1] == c.Pad {
		end--
	}
	sub := stream.New(b[:end])
	return c.Subcon.Parse(sub, ctx)
}

func (c *NullStripped) Build(s *stream.Stream, obj any, ctx *container.Container) error {
	sub := stream.NewEmpty()
	if err := c.Subcon.Build(sub, obj, ctx); err != nil {
		return errs.WithPath(c.name, err)
	}
	b := sub.Bytes()
	if int64(len(b)) > c.Length {
		return errs.WithPath(c.name, errs.NewRangeError(c.name, "payload %d bytes exceeds fixed length %d", len(b), c.Length))
	}
	padded := make([]byte, c.Length)
	copy(padded, b)
	for i := len(b); i < len(padded); i++ {
		padded[i] = c.Pad
	}
	return s.WriteBytes(padded)
}

func (c *NullStripped) Preprocess(obj any, ctx *container.Container) (any, error) {
	return c.Subcon.Preprocess(obj, ctx)
}
func (c *NullStripped) StaticSizeof(ctx *container.Container) (int64, error) { return c.Length, nil }
func (c *NullStripped) Sizeof(obj any, ctx *container.Container) (int64, error) {
	return c.Length, nil
}
func (c *NullStripped) FullSizeof(obj any, ctx *container.Container) (int64, error) {
	return c.Length, nil
}
func (c *NullStripped) ExpectedSizeof(s *stream.Stream, ctx *container.Container) (int64, error) {
	return c.Length, nil
}
func (c *NullStripped) ToElement(name string, obj any, ctx *container.Container) (*Element, error) {
	return c.Subcon.ToElement(name, obj, ctx)
}
func (c *NullStripped) FromElement(name string, e *Element, ctx *container.Container) (any, error) {
	return c.Subcon.FromElement(name, e, ctx)
}

// OffsettedEnd reads bytes from the current position up to EndOffset
// bytes before EOF (EndOffset is normally <= 0), handing them to Subcon.
// Useful for trailer-bearing formats where a fixed-size footer follows a
// variable-length body.
type OffsettedEnd struct {
	base
	EndOffset int64
	Subcon    Construct
}

func NewOffsettedEnd(endOffset int64, subcon Construct) *OffsettedEnd {
	return &OffsettedEnd{EndOffset: endOffset, Subcon: subcon}
}

func (c *OffsettedEnd) Parse(s *stream.Stream, ctx *container.Container) (any, error) {
	limit := s.Size() + c.EndOffset
	n := limit - s.Tell()
	if n < 0 {
		return nil, errs.WithPath(c.name, errs.NewRangeError(c.name, "end offset %d is before current position", c.EndOffset))
	}
	b, err := s.ReadBytes(int(n))
	if err != nil {
		return nil, errs.WithPath(c.name, err)
	}
	sub := stream.New(b)
	return c.Subcon.Parse(sub, ctx)
}

func (c *OffsettedEnd) Build(s *stream.Stream, obj any, ctx *container.Container) error {
	return c.Subcon.Build(s, obj, ctx)
}
func (c *OffsettedEnd) Preprocess(obj any, ctx *container.Container) (any, error) {
	return c.Subcon.Preprocess(obj, ctx)
}
func (c *OffsettedEnd) StaticSizeof(ctx *container.Container) (int64, error) {
	return 0, errs.NewUnknownSizeError(c.name, "OffsettedEnd size depends on stream length")
}
func (c *OffsettedEnd) Sizeof(obj any, ctx *container.Container) (int64, error) {
	return c.Subcon.Sizeof(obj, ctx)
}
func (c *OffsettedEnd) FullSizeof(obj any, ctx *container.Container) (int64, error) {
	return c.Sizeof(obj, ctx)
}
func (c *OffsettedEnd) ExpectedSizeof(s *stream.Stream, ctx *container.Container) (int64, error) {
	limit := s.Size() + c.EndOffset
	n := limit - s.Tell()
	if n < 0 {
		return 0, errs.WithPath(c.name, errs.NewRangeError(c.name, "end offset %d is before current position", c.EndOffset))
	}
	return n, nil
}
func (c *OffsettedEnd) ToElement(name string, obj any, ctx *container.Container) (*Element, error) {
	return c.Subcon.ToElement(name, obj, ctx)
}
func (c *OffsettedEnd) FromElement(name string, e *Element, ctx *container.Container) (any, error) {
	return c.Subcon.FromElement(name, e, ctx)
}
