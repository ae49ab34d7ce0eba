package construct

import (
	"github.com/ev1313/dingsda/container"
	"github.com/ev1313/dingsda/stream"
)

// Renamed wraps subcon, giving it a name within its enclosing Struct.
// Path-tracking for error messages happens via errs.WithPath at each
// Subconstruct boundary; Renamed's job is purely to carry the name so
// Struct can use it as a field key and the XML bridge can use it as a
// tag/attribute name.
type Renamed struct {
	Subcon Construct
	named  string
}

// NewRenamed returns subcon renamed to name.
func NewRenamed(name string, subcon Construct) *Renamed {
	return &Renamed{Subcon: subcon, named: name}
}

func (c *Renamed) Name() string { return c.named }

func (c *Renamed) Parse(s *stream.Stream, ctx *container.Container) (any, error) {
	return c.Subcon.Parse(s, ctx)
}
func (c *Renamed) Build(s *stream.Stream, obj any, ctx *container.Container) error {
	return c.Subcon.Build(s, obj, ctx)
}
func (c *Renamed) Preprocess(obj any, ctx *container.Container) (any, error) {
	return c.Subcon.Preprocess(obj, ctx)
}
func (c *Renamed) StaticSizeof(ctx *container.Container) (int64, error) {
	return c.Subcon.StaticSizeof(ctx)
}
func (c *Renamed) Sizeof(obj any, ctx *container.Container) (int64, error) {
	return c.Subcon.Sizeof(obj, ctx)
}
func (c *Renamed) FullSizeof(obj any, ctx *container.Container) (int64, error) {
	return c.Subcon.FullSizeof(obj, ctx)
}
func (c *Renamed) ExpectedSizeof(s *stream.Stream, ctx *container.Container) (int64, error) {
	return c.Subcon.ExpectedSizeof(s, ctx)
}
func (c *Renamed) ToElement(name string, obj any, ctx *container.Container) (*Element, error) {
	return c.Subcon.ToElement(c.named, obj, ctx)
}
func (c *Renamed) FromElement(name string, e *Element, ctx *container.Container) (any, error) {
	return c.Subcon.FromElement(c.named, e, ctx)
}

// Name returns subcon's own name, or "" if it hasn't been Renamed.
// Struct/composite constructs use this to decide the field key for an
// un-renamed positional subcon.
func Name(c Construct) string { return c.Name() }

// Default wraps subcon, supplying Value when the field is absent from
// the build-time object instead of raising a missing-field error.
type Default struct {
	base
	Subcon Construct
	Value  any
}

func NewDefault(subcon Construct, value any) *Default {
	return &Default{Subcon: subcon, Value: value}
}

func (c *Default) Parse(s *stream.Stream, ctx *container.Container) (any, error) {
	return c.Subcon.Parse(s, ctx)
}
func (c *Default) Build(s *stream.Stream, obj any, ctx *container.Container) error {
	if obj == nil {
		obj = c.Value
	}
	return c.Subcon.Build(s, obj, ctx)
}
func (c *Default) Preprocess(obj any, ctx *container.Container) (any, error) {
	if obj == nil {
		obj = c.Value
	}
	return c.Subcon.Preprocess(obj, ctx)
}
func (c *Default) StaticSizeof(ctx *container.Container) (int64, error) {
	return c.Subcon.StaticSizeof(ctx)
}
func (c *Default) Sizeof(obj any, ctx *container.Container) (int64, error) {
	if obj == nil {
		obj = c.Value
	}
	return c.Subcon.Sizeof(obj, ctx)
}
func (c *Default) FullSizeof(obj any, ctx *container.Container) (int64, error) {
	if obj == nil {
		obj = c.Value
	}
	return c.Subcon.FullSizeof(obj, ctx)
}
func (c *Default) ExpectedSizeof(s *stream.Stream, ctx *container.Container) (int64, error) {
	return c.Subcon.ExpectedSizeof(s, ctx)
}
func (c *Default) ToElement(name string, obj any, ctx *container.Container) (*Element, error) {
	if obj == nil {
		obj = c.Value
	}
	return c.Subcon.ToElement(name, obj, ctx)
}
func (c *Default) FromElement(name string, e *Element, ctx *container.Container) (any, error) {
	return c.Subcon.FromElement(name, e, ctx)
}
