package construct

import (
	"github.com/ev1313/dingsda/container"
	"github.com/ev1313/dingsda/errs"
	"github.com/ev1313/dingsda/expr"
	"github.com/ev1313/dingsda/stream"
)

// Pass is the zero-size no-op construct, the default case for Switch.
var Pass Construct = &passConstruct{}

type passConstruct struct{ base }

func (c *passConstruct) Parse(s *stream.Stream, ctx *container.Container) (any, error) { return nil, nil }
func (c *passConstruct) Build(s *stream.Stream, obj any, ctx *container.Container) error { return nil }
func (c *passConstruct) Preprocess(obj any, ctx *container.Container) (any, error)      { return obj, nil }
func (c *passConstruct) StaticSizeof(ctx *container.Container) (int64, error)           { return 0, nil }
func (c *passConstruct) Sizeof(obj any, ctx *container.Container) (int64, error)        { return 0, nil }
func (c *passConstruct) FullSizeof(obj any, ctx *container.Container) (int64, error)    { return 0, nil }
func (c *passConstruct) ExpectedSizeof(s *stream.Stream, ctx *container.Container) (int64, error) {
	return 0, nil
}
func (c *passConstruct) ToElement(name string, obj any, ctx *container.Container) (*Element, error) {
	return nil, nil
}
func (c *passConstruct) FromElement(name string, e *Element, ctx *container.Container) (any, error) {
	return nil, nil
}

// Index is a zero-size construct returning the enclosing repeater's
// _index, useful as Computed(indexExpr) or as part of a larger expression.
var Index Construct = &indexConstruct{}

type indexConstruct struct{ base }

func (c *indexConstruct) Parse(s *stream.Stream, ctx *container.Container) (any, error) {
	if ctx == nil {
		return nil, errs.NewContextError("", "_index (no context)")
	}
	return int64(ctx.Index), nil
}
func (c *indexConstruct) Build(s *stream.Stream, obj any, ctx *container.Container) error { return nil }
func (c *indexConstruct) Preprocess(obj any, ctx *container.Container) (any, error) {
	return c.Parse(nil, ctx)
}
func (c *indexConstruct) StaticSizeof(ctx *container.Container) (int64, error) { return 0, nil }
func (c *indexConstruct) Sizeof(obj any, ctx *container.Container) (int64, error) { return 0, nil }
func (c *indexConstruct) FullSizeof(obj any, ctx *container.Container) (int64, error) { return 0, nil }
func (c *indexConstruct) ExpectedSizeof(s *stream.Stream, ctx *container.Container) (int64, error) {
	return 0, nil
}
func (c *indexConstruct) ToElement(name string, obj any, ctx *container.Container) (*Element, error) {
	return nil, nil
}
func (c *indexConstruct) FromElement(name string, e *Element, ctx *container.Container) (any, error) {
	return nil, nil
}

// stopFieldSentinel is returned from StopIf's Parse/Build as a sentinel
// error value, caught by Struct to end its field loop silently.
type stopFieldSentinel struct{}

func (stopFieldSentinel) Error() string { return "stop field" }

var errStopField error = stopFieldSentinel{}

// StopIf short-circuits an enclosing Struct or GreedyRange: when Cond
// evaluates true, parsing/building of the enclosing repeater stops
// immediately and cleanly.
type StopIf struct {
	base
	Cond expr.Expr
}

func NewStopIf(cond expr.Expr) *StopIf { return &StopIf{Cond: cond} }

func (c *StopIf) Parse(s *stream.Stream, ctx *container.Container) (any, error) {
	v, err := expr.Eval(c.Cond, ctx)
	if err != nil {
		return nil, errs.WithPath(c.name, err)
	}
	if truthy(v) {
		return nil, errStopField
	}
	return nil, nil
}

func (c *StopIf) Build(s *stream.Stream, obj any, ctx *container.Container) error {
	v, err := expr.Eval(c.Cond, ctx)
	if err != nil {
		return errs.WithPath(c.name, err)
	}
	if truthy(v) {
		return errStopField
	}
	return nil
}

func (c *StopIf) Preprocess(obj any, ctx *container.Container) (any, error) { return obj, nil }
func (c *StopIf) StaticSizeof(ctx *container.Container) (int64, error)      { return 0, nil }
func (c *StopIf) Sizeof(obj any, ctx *container.Container) (int64, error)  { return 0, nil }
func (c *StopIf) FullSizeof(obj any, ctx *container.Container) (int64, error) { return 0, nil }
func (c *StopIf) ExpectedSizeof(s *stream.Stream, ctx *container.Container) (int64, error) {
	return 0, nil
}
func (c *StopIf) ToElement(name string, obj any, ctx *container.Container) (*Element, error) {
	return nil, nil
}
func (c *StopIf) FromElement(name string, e *Element, ctx *container.Container) (any, error) {
	return nil, nil
}

func truthy(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return v != nil
}

// Check raises an ExplicitError if Cond evaluates false, supplementing
// StopIf with a hard assertion rather than a silent stop.
type Check struct {
	base
	Cond expr.Expr
}

func NewCheck(cond expr.Expr) *Check { return &Check{Cond: cond} }

func (c *Check) Parse(s *stream.Stream, ctx *container.Container) (any, error) {
	return nil, c.check(ctx)
}
func (c *Check) Build(s *stream.Stream, obj any, ctx *container.Container) error {
	return c.check(ctx)
}
func (c *Check) check(ctx *container.Container) error {
	v, err := expr.Eval(c.Cond, ctx)
	if err != nil {
		return errs.WithPath(c.name, err)
	}
	if !truthy(v) {
		return errs.WithPath(c.name, errs.NewExplicitError(c.name, "check failed"))
	}
	return nil
}
func (c *Check) Preprocess(obj any, ctx *container.Container) (any, error) { return obj, nil }
func (c *Check) StaticSizeof(ctx *container.Container) (int64, error)      { return 0, nil }
func (c *Check) Sizeof(obj any, ctx *container.Container) (int64, error)  { return 0, nil }
func (c *Check) FullSizeof(obj any, ctx *container.Container) (int64, error) { return 0, nil }
func (c *Check) ExpectedSizeof(s *stream.Stream, ctx *container.Container) (int64, error) {
	return 0, nil
}
func (c *Check) ToElement(name string, obj any, ctx *container.Container) (*Element, error) {
	return nil, nil
}
func (c *Check) FromElement(name string, e *Element, ctx *container.Container) (any, error) {
	return nil, nil
}

// RawCopy wraps subcon, returning both the decoded value and the raw
// byte span consumed -- useful for checksums over a field's own encoding.
// The returned value is a
// *container.Container with keys "data" (the raw bytes), "value" (the
// decoded value), "offset1"/"offset2" (start/end stream position) and
// "length".
type RawCopy struct {
	base
	Subcon Construct
}

func NewRawCopy(subcon Construct) *RawCopy { return &RawCopy{Subcon: subcon} }

func (c *RawCopy) Parse(s *stream.Stream, ctx *container.Container) (any, error) {
	off1 := s.Tell()
	v, err := c.Subcon.Parse(s, ctx)
	if err != nil {
		return nil, err
	}
	off2 := s.Tell()
	if err := s.Seek(off1); err != nil {
		return nil, err
	}
	raw, err := s.ReadBytes(int(off2 - off1))
	if err != nil {
		return nil, err
	}
	out := container.New()
	out.Set("data", raw)
	out.Set("value", v)
	out.Set("offset1", off1)
	out.Set("offset2", off2)
	out.Set("length", off2-off1)
	return out, nil
}

func (c *RawCopy) Build(s *stream.Stream, obj any, ctx *container.Container) error {
	m, ok := obj.(*container.Container)
	if ok {
		if data, ok := m.Get("data"); ok {
			if b, ok := data.([]byte); ok {
				return s.WriteBytes(b)
			}
		}
		if v, ok := m.Get("value"); ok {
			return c.Subcon.Build(s, v, ctx)
		}
	}
	return c.Subcon.Build(s, obj, ctx)
}

func (c *RawCopy) Preprocess(obj any, ctx *container.Container) (any, error) { return obj, nil }
func (c *RawCopy) StaticSizeof(ctx *container.Container) (int64, error) {
	return c.Subcon.StaticSizeof(ctx)
}
func (c *RawCopy) Sizeof(obj any, ctx *container.Container) (int64, error) {
	return sizeofViaStatic(c, obj, ctx)
}
func (c *RawCopy) FullSizeof(obj any, ctx *container.Container) (int64, error) {
	return fullSizeofViaSizeof(c, obj, ctx)
}
func (c *RawCopy) ExpectedSizeof(s *stream.Stream, ctx *container.Container) (int64, error) {
	return expectedSizeofViaStatic(c, s, ctx)
}
func (c *RawCopy) ToElement(name string, obj any, ctx *container.Container) (*Element, error) {
	m, _ := obj.(*container.Container)
	if m == nil {
		return nil, nil
	}
	v, _ := m.Get("value")
	return c.Subcon.ToElement(name, v, ctx)
}
func (c *RawCopy) FromElement(name string, e *Element, ctx *container.Container) (any, error) {
	return c.Subcon.FromElement(name, e, ctx)
}

// Tell is a zero-size construct returning the current stream offset.
var Tell Construct = &tellConstruct{}

type tellConstruct struct{ base }

func (c *tellConstruct) Parse(s *stream.Stream, ctx *container.Container) (any, error) {
	return s.Tell(), nil
}
func (c *tellConstruct) Build(s *stream.Stream, obj any, ctx *container.Container) error { return nil }
func (c *tellConstruct) Preprocess(obj any, ctx *container.Container) (any, error)       { return obj, nil }
func (c *tellConstruct) StaticSizeof(ctx *container.Container) (int64, error)            { return 0, nil }
func (c *tellConstruct) Sizeof(obj any, ctx *container.Container) (int64, error)        { return 0, nil }
func (c *tellConstruct) FullSizeof(obj any, ctx *container.Container) (int64, error)    { return 0, nil }
func (c *tellConstruct) ExpectedSizeof(s *stream.Stream, ctx *container.Container) (int64, error) {
	return 0, nil
}
func (c *tellConstruct) ToElement(name string, obj any, ctx *container.Container) (*Element, error) {
	return nil, nil
}
func (c *tellConstruct) FromElement(name string, e *Element, ctx *container.Container) (any, error) {
	return nil, nil
}
