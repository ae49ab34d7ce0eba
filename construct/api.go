// This file is the external entry surface: the package-level
// Parse/Build/Preprocess/Sizeof convenience functions a caller reaches
// for first, plus file-backed wrappers around them.
package construct

import (
	"os"

	"github.com/ev1313/dingsda/container"
	"github.com/ev1313/dingsda/errs"
	"github.com/ev1313/dingsda/stream"
)

// Parse decodes data through c, returning the resulting value (typically
// a *container.Container for a Struct, or a plain Go value for an
// atomic construct).
func Parse(c Construct, data []byte) (any, error) {
	s := stream.New(data)
	return c.Parse(s, nil)
}

// Preprocess runs c's two-phase preprocessing sweep over obj ahead of a
// Build call, resolving Rebuild placeholders and filling in offset/size
// meta.
func Preprocess(c Construct, obj any) (any, error) {
	return c.Preprocess(obj, nil)
}

// Build preprocesses obj through c and then encodes it, returning the
// resulting bytes. This is the common case; call Preprocess and
// c.Build separately only when the preprocessed value itself is needed
// (e.g. to inspect computed meta before emitting bytes).
func Build(c Construct, obj any) ([]byte, error) {
	pre, err := Preprocess(c, obj)
	if err != nil {
		return nil, err
	}
	s := stream.NewEmpty()
	if err := c.Build(s, pre, nil); err != nil {
		return nil, err
	}
	return s.Bytes(), nil
}

// StaticSizeof returns c's size without reference to any value.
func StaticSizeof(c Construct) (int64, error) { return c.StaticSizeof(nil) }

// Sizeof returns c's size for a specific (already-parsed) value.
func Sizeof(c Construct, obj any) (int64, error) { return c.Sizeof(obj, nil) }

// ExpectedSizeof peeks data non-destructively to answer how many leading
// bytes c's encoding will occupy.
func ExpectedSizeof(c Construct, data []byte) (int64, error) {
	s := stream.New(data)
	return c.ExpectedSizeof(s, nil)
}

// ParseFile reads the named file and parses it through c.
func ParseFile(c Construct, path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(c, data)
}

// BuildFile builds obj through c and writes the result to the named
// file.
func BuildFile(c Construct, obj any, path string) error {
	data, err := Build(c, obj)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ToElement renders obj (typically already parsed through c) as an XML
// bridge Element named name.
func ToElement(c Construct, name string, obj any) (*Element, error) {
	return c.ToElement(name, obj, nil)
}

// FromElement recovers a value from an XML bridge Element previously
// produced by ToElement.
func FromElement(c Construct, name string, e *Element) (any, error) {
	return c.FromElement(name, e, nil)
}

// CString is the common "bytes up to a NUL, decoded as text" idiom,
// composed from NullTerminated plus a string-decoding adapter.
func CString(enc StringEncoder) Construct {
	return &cstringConstruct{enc: enc}
}

type cstringConstruct struct {
	base
	enc StringEncoder
}

func (c *cstringConstruct) Parse(s *stream.Stream, ctx *container.Container) (any, error) {
	nt := NewNullTerminated(GreedyBytes())
	v, err := nt.Parse(s, ctx)
	if err != nil {
		return nil, err
	}
	b, _ := v.([]byte)
	return c.enc.Decode(b)
}

func (c *cstringConstruct) Build(s *stream.Stream, obj any, ctx *container.Container) error {
	str, _ := obj.(string)
	b, err := c.enc.Encode(str)
	if err != nil {
		return err
	}
	nt := NewNullTerminated(GreedyBytes())
	return nt.Build(s, b, ctx)
}

func (c *cstringConstruct) Preprocess(obj any, ctx *container.Container) (any, error) { return obj, nil }
func (c *cstringConstruct) StaticSizeof(ctx *container.Container) (int64, error) {
	return 0, errs.NewUnknownSizeError(c.name, "CString size depends on its content")
}
func (c *cstringConstruct) Sizeof(obj any, ctx *container.Container) (int64, error) {
	str, _ := obj.(string)
	b, err := c.enc.Encode(str)
	if err != nil {
		return 0, err
	}
	return int64(len(b)) + 1, nil
}
func (c *cstringConstruct) FullSizeof(obj any, ctx *container.Container) (int64, error) {
	return c.Sizeof(obj, ctx)
}
func (c *cstringConstruct) ExpectedSizeof(s *stream.Stream, ctx *container.Container) (int64, error) {
	start := s.Tell()
	nt := NewNullTerminated(GreedyBytes())
	_, perr := nt.Parse(s, ctx)
	n := s.Tell() - start
	if err := s.Seek(start); err != nil {
		return 0, err
	}
	if perr != nil {
		return 0, errs.WithPath(c.name, perr)
	}
	return n, nil
}
func (c *cstringConstruct) ToElement(name string, obj any, ctx *container.Container) (*Element, error) {
	s, _ := obj.(string)
	return attrElement(name, s), nil
}
func (c *cstringConstruct) FromElement(name string, e *Element, ctx *container.Container) (any, error) {
	v, ok := e.GetAttr(name)
	if !ok {
		return nil, errs.NewXMLError(c.name, "missing attribute %q", name)
	}
	return v, nil
}
