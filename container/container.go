// Package container implements the Context/Container data model: an
// ordered, insertion-preserving name->value mapping with per-field
// offset/size metadata, non-owning parent/root back-links, and the
// reserved "_" (parent) and "_root" (topmost) lookups. Backed by
// github.com/Velocidex/ordereddict, the same ordered-map library
// Velocidex-vtypes uses for its own parse-result dictionaries.
package container

import (
	"fmt"

	"github.com/Velocidex/ordereddict"
	"github.com/davecgh/go-spew/spew"
)

// Meta records where a field's encoded bytes live in the stream, filled
// in during preprocessing. Expressions do not read Meta itself: Struct
// also writes each record out as flat `_<name>_offset`, `_<name>_size`
// and `_<name>_endoffset` fields, which is how a later sibling
// expression reads an earlier field's layout (this._header_endoffset).
type Meta struct {
	Offset    int64
	Size      int64
	EndOffset int64
	// PtrSize is set only for fields built through a Pointer/Area: the
	// number of bytes of the pointee (its FullSizeof), as opposed to
	// Size, which is the zero bytes the pointer field itself occupies in
	// its enclosing struct.
	PtrSize *int64
}

// Container is an ordered name->value mapping that also threads parent
// and root back-links and a parallel meta table. A Container produced by
// Struct parsing is never shared across goroutines and outlives the call
// that created it only as the caller's returned value.
type Container struct {
	dict   *ordereddict.Dict
	meta   map[string]Meta
	order  []string
	parent *Container
	root   *Container

	// subcons maps a field name to the Construct that produced it, so a
	// sibling Rebuild lambda can call back into e.g. this._subcons.count.sizeof().
	subcons map[string]any

	// Index holds this context's position within an enclosing
	// Array/GreedyRange/Area, or -1 if not inside one.
	Index int
}

// New creates a root container (no parent).
func New() *Container {
	return &Container{
		dict:  ordereddict.NewDict(),
		meta:  make(map[string]Meta),
		Index: -1,
	}
}

// NewChild creates a container whose parent is parent and whose root is
// parent's root (or parent itself, if parent is a root).
func NewChild(parent *Container) *Container {
	c := New()
	c.parent = parent
	if parent != nil {
		if parent.root != nil {
			c.root = parent.root
		} else {
			c.root = parent
		}
	}
	return c
}

// Parent returns the enclosing context, or nil at the root.
func (c *Container) Parent() *Container { return c.parent }

// Root returns the topmost context.
func (c *Container) Root() *Container {
	if c.root != nil {
		return c.root
	}
	return c
}

// Get looks up a plain field by name. The reserved names "_" and
// "_root" are handled by expr, not here, since they navigate the
// Container graph rather than the dict.
func (c *Container) Get(name string) (any, bool) {
	return c.dict.Get(name)
}

// MustGet looks up a field, returning nil if absent.
func (c *Container) MustGet(name string) any {
	v, _ := c.dict.Get(name)
	return v
}

// Set stores a field value, appending it to the insertion-order list the
// first time the name is seen.
func (c *Container) Set(name string, value any) {
	if _, ok := c.dict.Get(name); !ok {
		c.order = append(c.order, name)
	}
	c.dict.Set(name, value)
}

// Delete removes a field and its position in the insertion order.
func (c *Container) Delete(name string) {
	c.dict.Delete(name)
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	delete(c.meta, name)
}

// Keys returns field names in insertion order.
func (c *Container) Keys() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// GetMeta returns the offset/size record for a field, if preprocessing
// has filled it in.
func (c *Container) GetMeta(name string) (Meta, bool) {
	m, ok := c.meta[name]
	return m, ok
}

// SetMeta records a field's offset/size, normally called only from the
// Struct preprocess sweep.
func (c *Container) SetMeta(name string, m Meta) {
	c.meta[name] = m
}

// Subcon returns the Construct that produced field name, if the
// enclosing Struct recorded one (construct.Construct, stored as any here
// to avoid an import cycle between container and construct).
func (c *Container) Subcon(name string) (any, bool) {
	if c.subcons == nil {
		return nil, false
	}
	v, ok := c.subcons[name]
	return v, ok
}

// SetSubcon records the Construct that produced field name.
func (c *Container) SetSubcon(name string, sc any) {
	if c.subcons == nil {
		c.subcons = make(map[string]any)
	}
	c.subcons[name] = sc
}

// Clone returns a shallow copy of c: same parent/root, independent dict,
// meta and order.
func (c *Container) Clone() *Container {
	nc := NewChild(c.parent)
	nc.root = c.root
	nc.Index = c.Index
	for _, k := range c.order {
		v, _ := c.dict.Get(k)
		nc.Set(k, v)
	}
	for k, v := range c.meta {
		nc.meta[k] = v
	}
	return nc
}

// GoString renders a readable dump of the container for error messages
// and test failure output, via go-spew (the same deep-repr library
// Velocidex-vtypes depends on for its own debug output).
func (c *Container) GoString() string {
	m := make(map[string]any, len(c.order))
	for _, k := range c.order {
		v, _ := c.dict.Get(k)
		m[k] = v
	}
	return fmt.Sprintf("Container%s", spew.Sdump(m))
}

// ListContainer is an ordered sequence of values produced by Array,
// GreedyRange and similar repeating combinators. Each element's own
// Container (if it has one) carries an Index identifying its position.
type ListContainer struct {
	Items []any
}

// NewList returns an empty ListContainer.
func NewList() *ListContainer { return &ListContainer{} }

// Append adds v to the end of the list.
func (l *ListContainer) Append(v any) { l.Items = append(l.Items, v) }

// Len returns the number of elements.
func (l *ListContainer) Len() int { return len(l.Items) }
