package construct

import (
	"fmt"

	"github.com/ev1313/dingsda/container"
	"github.com/ev1313/dingsda/errs"
	"github.com/ev1313/dingsda/expr"
	"github.com/ev1313/dingsda/stream"
)

// Switch evaluates KeyFunc against the context and dispatches to the
// matching entry in Cases (falling back to Default, or raising
// SwitchError if there is none). static_sizeof always fails: a Switch's
// size is inherently value-dependent.
//
// XML round-tripping a Switch is lossy without extra help: the case key
// usually is not recoverable from the child tag name alone. ToElement
// therefore records two hints in the context it is given (the parent
// struct's): `_switch_id_<field>` (the case key, formatted with %v) and
// `_switch_name_<field>` (the chosen case's name). It adds nothing to
// the element itself. FromElement first matches child tags against each
// case's Renamed name, then tries each case against the element's own
// attributes, and records `_switch_name_<field>` for the case it found,
// so an enclosing Rebuild can recover the key from that name.
type Switch struct {
	base
	KeyFunc expr.Expr
	Cases   map[any]Construct
	Default Construct
}

func NewSwitch(keyFunc expr.Expr, cases map[any]Construct, def Construct) *Switch {
	if def == nil {
		def = Pass
	}
	return &Switch{KeyFunc: keyFunc, Cases: cases, Default: def}
}

func (c *Switch) resolve(ctx *container.Container) (any, Construct, error) {
	key, err := expr.Eval(c.KeyFunc, ctx)
	if err != nil {
		return nil, nil, errs.WithPath(c.name, err)
	}
	if sc, ok := c.Cases[key]; ok {
		return key, sc, nil
	}
	if c.Default != nil {
		return key, c.Default, nil
	}
	return key, nil, errs.WithPath(c.name, errs.NewSwitchError(c.name, key))
}

func (c *Switch) Parse(s *stream.Stream, ctx *container.Container) (any, error) {
	_, sc, err := c.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return sc.Parse(s, ctx)
}

func (c *Switch) Build(s *stream.Stream, obj any, ctx *container.Container) error {
	_, sc, err := c.resolve(ctx)
	if err != nil {
		return err
	}
	return sc.Build(s, obj, ctx)
}

func (c *Switch) Preprocess(obj any, ctx *container.Container) (any, error) {
	_, sc, err := c.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return sc.Preprocess(obj, ctx)
}

func (c *Switch) StaticSizeof(ctx *container.Container) (int64, error) {
	return 0, errs.NewUnknownSizeError(c.name, "Switches cannot calculate static size")
}

func (c *Switch) Sizeof(obj any, ctx *container.Container) (int64, error) {
	_, sc, err := c.resolve(ctx)
	if err != nil {
		return 0, err
	}
	return sc.Sizeof(obj, ctx)
}

func (c *Switch) FullSizeof(obj any, ctx *container.Container) (int64, error) {
	_, sc, err := c.resolve(ctx)
	if err != nil {
		return 0, err
	}
	return sc.FullSizeof(obj, ctx)
}

func (c *Switch) ExpectedSizeof(s *stream.Stream, ctx *container.Container) (int64, error) {
	_, sc, err := c.resolve(ctx)
	if err != nil {
		return 0, err
	}
	return sc.ExpectedSizeof(s, ctx)
}

func (c *Switch) ToElement(name string, obj any, ctx *container.Container) (*Element, error) {
	key, sc, err := c.resolve(ctx)
	if err != nil {
		return nil, err
	}
	el, err := sc.ToElement(name, obj, ctx)
	if err != nil {
		return nil, err
	}
	if ctx != nil {
		ctx.Set("_switch_id_"+name, fmt.Sprintf("%v", key))
		ctx.Set("_switch_name_"+name, sc.Name())
	}
	return el, nil
}

func (c *Switch) FromElement(name string, e *Element, ctx *container.Container) (any, error) {
	// A case that renders as a real child element (e.g. a Renamed Struct)
	// is matched by its own name against the child's tag.
	for _, child := range e.Children() {
		for _, sc := range c.Cases {
			if sc.Name() != child.Tag() {
				continue
			}
			v, err := sc.FromElement(name, child, ctx)
			if err != nil {
				continue
			}
			if ctx != nil {
				ctx.Set("_switch_name_"+name, sc.Name())
			}
			return v, nil
		}
	}
	// A case that renders as an attribute merged onto the parent (e.g. a
	// Renamed atomic) leaves no child of its own -- try each case against
	// e directly and keep whichever one actually finds its attribute.
	for _, sc := range c.Cases {
		v, err := sc.FromElement(name, e, ctx)
		if err != nil {
			continue
		}
		if ctx != nil {
			ctx.Set("_switch_name_"+name, sc.Name())
		}
		return v, nil
	}
	if c.Default != nil {
		return c.Default.FromElement(name, e, ctx)
	}
	return nil, errs.NewXMLError(c.name, "no case matches element tag %q", e.Tag())
}
