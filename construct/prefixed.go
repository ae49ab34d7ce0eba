package construct

import (
	"bytes"
	"compress/flate"
	"io"

	"github.com/ev1313/dingsda/container"
	"github.com/ev1313/dingsda/errs"
	"github.com/ev1313/dingsda/stream"
)

// Prefixed reads a length prefix with LengthField, then reads exactly
// that many bytes into a private sub-stream and parses Subcon from it
// (so Subcon can never read past its declared bound). Building runs
// Subcon against a private stream, then writes the length followed by
// the bytes.
type Prefixed struct {
	base
	LengthField Construct
	Subcon      Construct
}

func NewPrefixed(lengthField, subcon Construct) *Prefixed {
	return &Prefixed{LengthField: lengthField, Subcon: subcon}
}

func (c *Prefixed) Parse(s *stream.Stream, ctx *container.Container) (any, error) {
	nRaw, err := c.LengthField.Parse(s, ctx)
	if err != nil {
		return nil, errs.WithPath(c.name, err)
	}
	n, err := toInt64(nRaw)
	if err != nil {
		return nil, errs.WithPath(c.name, err)
	}
	b, err := s.ReadBytes(int(n))
	if err != nil {
		return nil, errs.WithPath(c.name, err)
	}
	sub := stream.New(b)
	return c.Subcon.Parse(sub, ctx)
}

func (c *Prefixed) Build(s *stream.Stream, obj any, ctx *container.Container) error {
	sub := stream.NewEmpty()
	if err := c.Subcon.Build(sub, obj, ctx); err != nil {
		return errs.WithPath(c.name, err)
	}
	payload := sub.Bytes()
	if err := c.LengthField.Build(s, int64(len(payload)), ctx); err != nil {
		return errs.WithPath(c.name, err)
	}
	return s.WriteBytes(payload)
}

func (c *Prefixed) Preprocess(obj any, ctx *container.Container) (any, error) {
	return c.Subcon.Preprocess(obj, ctx)
}

func (c *Prefixed) StaticSizeof(ctx *container.Container) (int64, error) {
	return 0, errs.NewUnknownSizeError(c.name, "Prefixed size depends on its payload")
}
func (c *Prefixed) Sizeof(obj any, ctx *container.Container) (int64, error) {
	lenSize, err := c.LengthField.StaticSizeof(ctx)
	if err != nil {
		return 0, err
	}
	bodySize, err := c.Subcon.Sizeof(obj, ctx)
	if err != nil {
		return 0, err
	}
	return lenSize + bodySize, nil
}
func (c *Prefixed) FullSizeof(obj any, ctx *container.Container) (int64, error) {
	return c.Sizeof(obj, ctx)
}

// ExpectedSizeof peeks only LengthField -- the prefix already states the
// body's exact byte length, so there is no need to touch Subcon at all.
func (c *Prefixed) ExpectedSizeof(s *stream.Stream, ctx *container.Container) (int64, error) {
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
	return lenWidth + n, nil
}

func (c *Prefixed) ToElement(name string, obj any, ctx *container.Container) (*Element, error) {
	return c.Subcon.ToElement(name, obj, ctx)
}
func (c *Prefixed) FromElement(name string, e *Element, ctx *container.Container) (any, error) {
	return c.Subcon.FromElement(name, e, ctx)
}

// Codec is the compression/encoding collaborator Tunnel delegates to.
type Codec interface {
	Decode(b []byte) ([]byte, error)
	Encode(b []byte) ([]byte, error)
}

// IdentityCodec passes bytes through unchanged.
type IdentityCodec struct{}

func (IdentityCodec) Decode(b []byte) ([]byte, error) { return b, nil }
func (IdentityCodec) Encode(b []byte) ([]byte, error) { return b, nil }

// FlateCodec implements Codec over compress/flate, the idiomatic minimal
// standard-library DEFLATE implementation (no pack repo ships an
// importable compression codec -- see DESIGN.md).
type FlateCodec struct{}

func (FlateCodec) Decode(b []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(b))
	defer r.Close()
	return io.ReadAll(r)
}

func (FlateCodec) Encode(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(b); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Tunnel (also known in the original library as Compressed when paired
// with a real codec) decodes the remaining bytes through Codec before
// handing them to Subcon, and re-encodes Subcon's built bytes through
// Codec on the way out. Lossy/approximate over XML -- documented,
// matching Compressed's spec-noted quirk.
type Tunnel struct {
	base
	Codec  Codec
	Subcon Construct
}

func NewTunnel(codec Codec, subcon Construct) *Tunnel { return &Tunnel{Codec: codec, Subcon: subcon} }

// Compressed is Tunnel specialized with FlateCodec.
func Compressed(subcon Construct) *Tunnel { return NewTunnel(FlateCodec{}, subcon) }

func (c *Tunnel) Parse(s *stream.Stream, ctx *container.Container) (any, error) {
	raw, err := s.ReadRemaining()
	if err != nil {
		return nil, errs.WithPath(c.name, err)
	}
	decoded, err := c.Codec.Decode(raw)
	if err != nil {
		return nil, errs.WithPath(c.name, errs.NewFormatErrorf(c.name, "tunnel decode: %v", err))
	}
	sub := stream.New(decoded)
	return c.Subcon.Parse(sub, ctx)
}

func (c *Tunnel) Build(s *stream.Stream, obj any, ctx *container.Container) error {
	sub := stream.NewEmpty()
	if err := c.Subcon.Build(sub, obj, ctx); err != nil {
		return errs.WithPath(c.name, err)
	}
	encoded, err := c.Codec.Encode(sub.Bytes())
	if err != nil {
		return errs.WithPath(c.name, errs.NewFormatErrorf(c.name, "tunnel encode: %v", err))
	}
	return s.WriteBytes(encoded)
}

func (c *Tunnel) Preprocess(obj any, ctx *container.Container) (any, error) {
	return c.Subcon.Preprocess(obj, ctx)
}
func (c *Tunnel) StaticSizeof(ctx *container.Container) (int64, error) {
	return 0, errs.NewUnknownSizeError(c.name, "Tunnel size depends on compressed payload")
}
func (c *Tunnel) Sizeof(obj any, ctx *container.Container) (int64, error) {
	return 0, errs.NewUnknownSizeError(c.name, "Tunnel size depends on compressed payload")
}
func (c *Tunnel) FullSizeof(obj any, ctx *container.Container) (int64, error) {
	return c.Sizeof(obj, ctx)
}
func (c *Tunnel) ExpectedSizeof(s *stream.Stream, ctx *container.Container) (int64, error) {
	return expectedSizeofViaStatic(c, s, ctx)
}
func (c *Tunnel) ToElement(name string, obj any, ctx *container.Container) (*Element, error) {
	return c.Subcon.ToElement(name, obj, ctx)
}
func (c *Tunnel) FromElement(name string, e *Element, ctx *container.Container) (any, error) {
	return c.Subcon.FromElement(name, e, ctx)
}
