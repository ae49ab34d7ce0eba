package construct

import (
	"fmt"
	"reflect"

	"github.com/ev1313/dingsda/container"
	"github.com/ev1313/dingsda/errs"
	"github.com/ev1313/dingsda/expr"
	"github.com/ev1313/dingsda/stream"
)

// FormatField reads/writes a fixed-width numeric value via a
// NumericFormatter, the atomic building block behind Int32ub-style
// convenience constructs.
type FormatField struct {
	base
	Fmt NumericFormatter
}

// NewFormatField returns a FormatField using fmt for encode/decode.
func NewFormatField(fmt NumericFormatter) *FormatField {
	return &FormatField{Fmt: fmt}
}

func (c *FormatField) Parse(s *stream.Stream, ctx *container.Container) (any, error) {
	b, err := s.ReadBytes(c.Fmt.Width())
	if err != nil {
		return nil, errs.WithPath(c.name, err)
	}
	v, err := c.Fmt.Decode(b)
	if err != nil {
		return nil, errs.WithPath(c.name, err)
	}
	return v, nil
}

func (c *FormatField) Build(s *stream.Stream, obj any, ctx *container.Container) error {
	b, err := c.Fmt.Encode(obj)
	if err != nil {
		return errs.WithPath(c.name, err)
	}
	return s.WriteBytes(b)
}

func (c *FormatField) Preprocess(obj any, ctx *container.Container) (any, error) { return obj, nil }

func (c *FormatField) StaticSizeof(ctx *container.Container) (int64, error) {
	return int64(c.Fmt.Width()), nil
}
func (c *FormatField) Sizeof(obj any, ctx *container.Container) (int64, error) {
	return sizeofViaStatic(c, obj, ctx)
}
func (c *FormatField) FullSizeof(obj any, ctx *container.Container) (int64, error) {
	return fullSizeofViaSizeof(c, obj, ctx)
}
func (c *FormatField) ExpectedSizeof(s *stream.Stream, ctx *container.Container) (int64, error) {
	return expectedSizeofViaStatic(c, s, ctx)
}

func (c *FormatField) ToElement(name string, obj any, ctx *container.Container) (*Element, error) {
	return attrElement(name, fmt.Sprintf("%v", obj)), nil
}

func (c *FormatField) FromElement(name string, e *Element, ctx *container.Container) (any, error) {
	v, ok := e.GetAttr(name)
	if !ok {
		return nil, errs.NewXMLError(c.name, "missing attribute %q", name)
	}
	return parseNumericAttr(v, c.Fmt)
}

func attrElement(name, value string) *Element {
	el := NewElement("attr")
	el.SetAttr(name, value)
	return el
}

func parseNumericAttr(s string, fmtr NumericFormatter) (any, error) {
	var iv int64
	if _, err := fmt.Sscanf(s, "%d", &iv); err == nil {
		return iv, nil
	}
	var fv float64
	if _, err := fmt.Sscanf(s, "%g", &fv); err == nil {
		return fv, nil
	}
	return nil, errs.NewXMLError("", "cannot parse %q as numeric", s)
}

// Bytes reads/writes a fixed-length (or expression-length) byte slice.
type Bytes struct {
	base
	Length expr.Expr // evaluates to an int64 length; nil means "remaining bytes"
}

// NewBytes returns a Bytes construct of fixed length n.
func NewBytes(n int64) *Bytes { return &Bytes{Length: expr.Lit(n)} }

// NewBytesExpr returns a Bytes construct whose length is computed from
// the context at parse/build time (e.g. expr.This().Field("len").Expr()).
func NewBytesExpr(length expr.Expr) *Bytes { return &Bytes{Length: length} }

// GreedyBytes reads to EOF and writes the value's own length.
func GreedyBytes() *Bytes { return &Bytes{} }

func (c *Bytes) resolveLen(ctx *container.Container) (int64, bool, error) {
	if c.Length == nil {
		return 0, false, nil
	}
	v, err := expr.Eval(c.Length, ctx)
	if err != nil {
		return 0, false, errs.WithPath(c.name, err)
	}
	n, err := toInt64(v)
	if err != nil {
		return 0, false, errs.WithPath(c.name, err)
	}
	return n, true, nil
}

func (c *Bytes) Parse(s *stream.Stream, ctx *container.Container) (any, error) {
	n, has, err := c.resolveLen(ctx)
	if err != nil {
		return nil, err
	}
	if !has {
		b, err := s.ReadRemaining()
		if err != nil {
			return nil, errs.WithPath(c.name, err)
		}
		return b, nil
	}
	b, err := s.ReadBytes(int(n))
	if err != nil {
		return nil, errs.WithPath(c.name, err)
	}
	return b, nil
}

func (c *Bytes) Build(s *stream.Stream, obj any, ctx *container.Container) error {
	b, ok := obj.([]byte)
	if !ok {
		return errs.NewFormatErrorf(c.name, "expected []byte, got %T", obj)
	}
	return s.WriteBytes(b)
}

func (c *Bytes) Preprocess(obj any, ctx *container.Container) (any, error) { return obj, nil }

func (c *Bytes) StaticSizeof(ctx *container.Container) (int64, error) {
	if c.Length == nil {
		return 0, errs.NewUnknownSizeError(c.name, "greedy Bytes has no static size")
	}
	if lit, ok := c.Length.(*expr.Literal); ok {
		n, err := toInt64(lit.Value)
		if err == nil {
			return n, nil
		}
	}
	return 0, errs.NewUnknownSizeError(c.name, "Bytes length depends on context")
}

func (c *Bytes) Sizeof(obj any, ctx *container.Container) (int64, error) {
	if n, has, err := c.resolveLen(ctx); err == nil && has {
		return n, nil
	}
	if b, ok := obj.([]byte); ok {
		return int64(len(b)), nil
	}
	return sizeofViaStatic(c, obj, ctx)
}

func (c *Bytes) FullSizeof(obj any, ctx *container.Container) (int64, error) {
	return c.Sizeof(obj, ctx)
}

// ExpectedSizeof resolves Length against ctx (not the stream -- unlike
// PrefixedArray, a Bytes length is never itself stream-encoded) and
// otherwise falls back to StaticSizeof.
func (c *Bytes) ExpectedSizeof(s *stream.Stream, ctx *container.Container) (int64, error) {
	if n, has, err := c.resolveLen(ctx); err == nil && has {
		return n, nil
	}
	return c.StaticSizeof(ctx)
}

func (c *Bytes) ToElement(name string, obj any, ctx *container.Container) (*Element, error) {
	b, _ := obj.([]byte)
	return attrElement(name, fmt.Sprintf("%x", b)), nil
}

func (c *Bytes) FromElement(name string, e *Element, ctx *container.Container) (any, error) {
	v, ok := e.GetAttr(name)
	if !ok {
		return nil, errs.NewXMLError(c.name, "missing attribute %q", name)
	}
	out := make([]byte, len(v)/2)
	_, err := fmt.Sscanf(v, "%x", &out)
	return out, err
}

// Const wraps a subcon, asserting the parsed value equals Value and
// always writing Value during Build regardless of the object supplied --
// Const ignores its build-time argument and always emits the expected
// bytes.
type Const struct {
	base
	Subcon Construct
	Value  any
}

// NewConst returns a Const over subcon expecting value.
func NewConst(subcon Construct, value any) *Const {
	return &Const{Subcon: subcon, Value: value}
}

func (c *Const) Parse(s *stream.Stream, ctx *container.Container) (any, error) {
	v, err := c.Subcon.Parse(s, ctx)
	if err != nil {
		return nil, errs.WithPath(c.name, err)
	}
	if !valuesEqual(v, c.Value) {
		return nil, errs.WithPath(c.name, errs.NewConstError(c.name, v, c.Value))
	}
	return v, nil
}

func (c *Const) Build(s *stream.Stream, obj any, ctx *container.Container) error {
	return c.Subcon.Build(s, c.Value, ctx)
}

func (c *Const) Preprocess(obj any, ctx *container.Container) (any, error) { return c.Value, nil }

func (c *Const) StaticSizeof(ctx *container.Container) (int64, error) {
	return c.Subcon.StaticSizeof(ctx)
}
func (c *Const) Sizeof(obj any, ctx *container.Container) (int64, error) {
	return c.Subcon.Sizeof(c.Value, ctx)
}
func (c *Const) FullSizeof(obj any, ctx *container.Container) (int64, error) {
	return c.Subcon.FullSizeof(c.Value, ctx)
}
func (c *Const) ExpectedSizeof(s *stream.Stream, ctx *container.Container) (int64, error) {
	return c.Subcon.ExpectedSizeof(s, ctx)
}
func (c *Const) ToElement(name string, obj any, ctx *container.Container) (*Element, error) {
	return c.Subcon.ToElement(name, c.Value, ctx)
}
func (c *Const) FromElement(name string, e *Element, ctx *container.Container) (any, error) {
	return c.Subcon.FromElement(name, e, ctx)
}

func valuesEqual(a, b any) bool {
	ab, aok := a.([]byte)
	bb, bok := b.([]byte)
	if aok && bok {
		if len(ab) != len(bb) {
			return false
		}
		for i := range ab {
			if ab[i] != bb[i] {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

// Computed never touches the stream: it evaluates an expression against
// the context both when parsing and when preprocessing, and contributes
// nothing to Build's bytes (size zero).
type Computed struct {
	base
	Expr expr.Expr
}

// NewComputed returns a Computed field evaluating e against the context.
func NewComputed(e expr.Expr) *Computed { return &Computed{Expr: e} }

func (c *Computed) Parse(s *stream.Stream, ctx *container.Container) (any, error) {
	v, err := expr.Eval(c.Expr, ctx)
	return v, errs.WithPath(c.name, err)
}

func (c *Computed) Build(s *stream.Stream, obj any, ctx *container.Container) error { return nil }

func (c *Computed) Preprocess(obj any, ctx *container.Container) (any, error) {
	v, err := expr.Eval(c.Expr, ctx)
	return v, errs.WithPath(c.name, err)
}

func (c *Computed) StaticSizeof(ctx *container.Container) (int64, error) { return 0, nil }
func (c *Computed) Sizeof(obj any, ctx *container.Container) (int64, error) { return 0, nil }
func (c *Computed) FullSizeof(obj any, ctx *container.Container) (int64, error) { return 0, nil }
func (c *Computed) ExpectedSizeof(s *stream.Stream, ctx *container.Container) (int64, error) {
	return 0, nil
}
func (c *Computed) ToElement(name string, obj any, ctx *container.Container) (*Element, error) {
	return nil, nil
}
func (c *Computed) FromElement(name string, e *Element, ctx *container.Container) (any, error) {
	return nil, nil
}

// Padding writes n constant pad bytes and discards n bytes on parse.
type Padding struct {
	base
	N    int64
	Pad  byte
}

// NewPadding returns a Padding of n bytes, each equal to fill[0] when at
// least one fill byte is given, or 0x00 otherwise.
func NewPadding(n int64, fill ...byte) *Padding {
	p := &Padding{N: n, Pad: 0}
	if len(fill) > 0 {
		p.Pad = fill[0]
	}
	return p
}

func (c *Padding) Parse(s *stream.Stream, ctx *container.Container) (any, error) {
	_, err := s.ReadBytes(int(c.N))
	return nil, errs.WithPath(c.name, err)
}

func (c *Padding) Build(s *stream.Stream, obj any, ctx *container.Container) error {
	b := make([]byte, c.N)
	for i := range b {
		b[i] = c.Pad
	}
	return s.WriteBytes(b)
}

func (c *Padding) Preprocess(obj any, ctx *container.Container) (any, error) { return obj, nil }
func (c *Padding) StaticSizeof(ctx *container.Container) (int64, error)      { return c.N, nil }
func (c *Padding) Sizeof(obj any, ctx *container.Container) (int64, error) {
	return sizeofViaStatic(c, obj, ctx)
}
func (c *Padding) FullSizeof(obj any, ctx *container.Container) (int64, error) {
	return fullSizeofViaSizeof(c, obj, ctx)
}
func (c *Padding) ExpectedSizeof(s *stream.Stream, ctx *container.Container) (int64, error) {
	return expectedSizeofViaStatic(c, s, ctx)
}
func (c *Padding) ToElement(name string, obj any, ctx *container.Container) (*Element, error) {
	return nil, nil
}
func (c *Padding) FromElement(name string, e *Element, ctx *container.Container) (any, error) {
	return nil, nil
}

// Flag reads/writes a single byte as a bool (non-zero is true).
type Flag struct{ base }

func NewFlag() *Flag { return &Flag{} }

func (c *Flag) Parse(s *stream.Stream, ctx *container.Container) (any, error) {
	b, err := s.ReadBytes(1)
	if err != nil {
		return nil, errs.WithPath(c.name, err)
	}
	return b[0] != 0, nil
}

func (c *Flag) Build(s *stream.Stream, obj any, ctx *container.Container) error {
	v, _ := obj.(bool)
	var b byte
	if v {
		b = 1
	}
	return s.WriteBytes([]byte{b})
}

func (c *Flag) Preprocess(obj any, ctx *container.Container) (any, error) { return obj, nil }
func (c *Flag) StaticSizeof(ctx *container.Container) (int64, error)      { return 1, nil }
func (c *Flag) Sizeof(obj any, ctx *container.Container) (int64, error) {
	return sizeofViaStatic(c, obj, ctx)
}
func (c *Flag) FullSizeof(obj any, ctx *container.Container) (int64, error) {
	return fullSizeofViaSizeof(c, obj, ctx)
}
func (c *Flag) ExpectedSizeof(s *stream.Stream, ctx *container.Container) (int64, error) {
	return expectedSizeofViaStatic(c, s, ctx)
}
func (c *Flag) ToElement(name string, obj any, ctx *container.Container) (*Element, error) {
	return attrElement(name, fmt.Sprintf("%v", obj)), nil
}
func (c *Flag) FromElement(name string, e *Element, ctx *container.Container) (any, error) {
	v, ok := e.GetAttr(name)
	if !ok {
		return nil, errs.NewXMLError(c.name, "missing attribute %q", name)
	}
	return v == "true", nil
}

// Enum maps a subcon's decoded integer value to a symbolic name and back.
type Enum struct {
	base
	Subcon   Construct
	ToName   map[int64]string
	ToValue  map[string]int64
}

// NewEnum builds an Enum over subcon using the given name->value mapping.
func NewEnum(subcon Construct, mapping map[string]int64) *Enum {
	e := &Enum{Subcon: subcon, ToName: make(map[int64]string), ToValue: mapping}
	for k, v := range mapping {
		e.ToName[v] = k
	}
	return e
}

func (c *Enum) Parse(s *stream.Stream, ctx *container.Container) (any, error) {
	raw, err := c.Subcon.Parse(s, ctx)
	if err != nil {
		return nil, errs.WithPath(c.name, err)
	}
	i, err := toInt64(raw)
	if err != nil {
		return nil, errs.WithPath(c.name, err)
	}
	if name, ok := c.ToName[i]; ok {
		return name, nil
	}
	return i, nil // unknown values pass through raw, matching construct's Enum default leniency
}

func (c *Enum) Build(s *stream.Stream, obj any, ctx *container.Container) error {
	switch v := obj.(type) {
	case string:
		i, ok := c.ToValue[v]
		if !ok {
			return errs.WithPath(c.name, errs.NewFormatErrorf(c.name, "unknown enum name %q", v))
		}
		return c.Subcon.Build(s, i, ctx)
	default:
		i, err := toInt64(obj)
		if err != nil {
			return errs.WithPath(c.name, err)
		}
		return c.Subcon.Build(s, i, ctx)
	}
}

func (c *Enum) Preprocess(obj any, ctx *container.Container) (any, error) { return obj, nil }
func (c *Enum) StaticSizeof(ctx *container.Container) (int64, error)     { return c.Subcon.StaticSizeof(ctx) }
func (c *Enum) Sizeof(obj any, ctx *container.Container) (int64, error) {
	return sizeofViaStatic(c, obj, ctx)
}
func (c *Enum) FullSizeof(obj any, ctx *container.Container) (int64, error) {
	return fullSizeofViaSizeof(c, obj, ctx)
}
func (c *Enum) ExpectedSizeof(s *stream.Stream, ctx *container.Container) (int64, error) {
	return expectedSizeofViaStatic(c, s, ctx)
}
func (c *Enum) ToElement(name string, obj any, ctx *container.Container) (*Element, error) {
	return attrElement(name, fmt.Sprintf("%v", obj)), nil
}
func (c *Enum) FromElement(name string, e *Element, ctx *container.Container) (any, error) {
	v, ok := e.GetAttr(name)
	if !ok {
		return nil, errs.NewXMLError(c.name, "missing attribute %q", name)
	}
	return v, nil
}

// FlagsEnum maps a subcon's decoded integer bitmask to a set of symbolic
// flag names (as a map[string]bool) and back. Building silently masks
// off any bits not named in the mapping, a build-then-reparse quirk
// worth knowing about rather than hiding.
type FlagsEnum struct {
	base
	Subcon Construct
	Bits   map[string]int64
}

func NewFlagsEnum(subcon Construct, bits map[string]int64) *FlagsEnum {
	return &FlagsEnum{Subcon: subcon, Bits: bits}
}

func (c *FlagsEnum) Parse(s *stream.Stream, ctx *container.Container) (any, error) {
	raw, err := c.Subcon.Parse(s, ctx)
	if err != nil {
		return nil, errs.WithPath(c.name, err)
	}
	i, err := toInt64(raw)
	if err != nil {
		return nil, errs.WithPath(c.name, err)
	}
	out := make(map[string]bool)
	for name, bit := range c.Bits {
		out[name] = i&bit != 0
	}
	return out, nil
}

func (c *FlagsEnum) Build(s *stream.Stream, obj any, ctx *container.Container) error {
	m, ok := obj.(map[string]bool)
	if !ok {
		raw, err := toInt64(obj)
		if err != nil {
			return errs.WithPath(c.name, errs.NewFormatErrorf(c.name, "expected map[string]bool or an integer, got %T", obj))
		}
		var known int64
		for _, bit := range c.Bits {
			known |= bit
		}
		return c.Subcon.Build(s, raw&known, ctx)
	}
	var mask int64
	for name, set := range m {
		if !set {
			continue
		}
		if bit, ok := c.Bits[name]; ok {
			mask |= bit
		}
		// unknown flag names are silently dropped -- masked out, per
		// the documented quirk.
	}
	return c.Subcon.Build(s, mask, ctx)
}

func (c *FlagsEnum) Preprocess(obj any, ctx *container.Container) (any, error) { return obj, nil }
func (c *FlagsEnum) StaticSizeof(ctx *container.Container) (int64, error) {
	return c.Subcon.StaticSizeof(ctx)
}
func (c *FlagsEnum) Sizeof(obj any, ctx *container.Container) (int64, error) {
	return sizeofViaStatic(c, obj, ctx)
}
func (c *FlagsEnum) FullSizeof(obj any, ctx *container.Container) (int64, error) {
	return fullSizeofViaSizeof(c, obj, ctx)
}
func (c *FlagsEnum) ExpectedSizeof(s *stream.Stream, ctx *container.Container) (int64, error) {
	return expectedSizeofViaStatic(c, s, ctx)
}
func (c *FlagsEnum) ToElement(name string, obj any, ctx *container.Container) (*Element, error) {
	m, _ := obj.(map[string]bool)
	var names []string
	for n, set := range m {
		if set {
			names = append(names, n)
		}
	}
	return attrElement(name, fmt.Sprintf("%v", names)), nil
}
func (c *FlagsEnum) FromElement(name string, e *Element, ctx *container.Container) (any, error) {
	return nil, errs.NewXMLError(c.name, "FlagsEnum.FromElement not supported from flattened attribute text")
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		return int64(x), nil
	case float64:
		return int64(x), nil
	default:
		return 0, errs.NewFormatErrorf("", "cannot convert %T to int", v)
	}
}
