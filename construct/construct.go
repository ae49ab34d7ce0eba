// Package construct is the combinator catalogue: the Construct contract,
// every atomic and composite combinator, the two-phase preprocess
// engine, and the XML bridge. Its declarative parse/build/preprocess
// split follows the classic Python "construct" library, adapted to Go's
// explicit-error, embeddable-struct idiom.
package construct

import (
	"github.com/ev1313/dingsda/container"
	"github.com/ev1313/dingsda/errs"
	"github.com/ev1313/dingsda/stream"
)

// Construct is the single contract every format-description node
// satisfies: parse bytes into a value, build a value into bytes,
// preprocess a value ahead of building, report sizes, and bridge to/from
// an XML-like Element tree. ctx is the enclosing context (nil at the
// very top of a call), name is this field's name as known to its parent
// ("" for anonymous/top-level constructs).
type Construct interface {
	// Parse reads this construct's encoding from s, given the enclosing
	// context ctx (may be nil at the top level).
	Parse(s *stream.Stream, ctx *container.Container) (any, error)

	// Build writes obj's encoding to s, given the enclosing context ctx.
	Build(s *stream.Stream, obj any, ctx *container.Container) error

	// Preprocess fills in meta and resolves Rebuild placeholders ahead of
	// a Build call, returning the (possibly replaced) value to build.
	Preprocess(obj any, ctx *container.Container) (any, error)

	// StaticSizeof returns this construct's size in bytes without
	// reference to any particular value, or an UnknownSizeError if the
	// size is value- or stream-dependent.
	StaticSizeof(ctx *container.Container) (int64, error)

	// Sizeof returns this construct's size given a concrete value,
	// falling back to StaticSizeof when the value doesn't matter.
	Sizeof(obj any, ctx *container.Container) (int64, error)

	// FullSizeof returns obj's size including any bytes it points at
	// elsewhere in the stream: a Pointer or Area reports its pointee's
	// footprint here, while its Sizeof reports the zero bytes it occupies
	// inline (subcons with deferred Rebuild values may need to evaluate
	// obj to answer).
	FullSizeof(obj any, ctx *container.Container) (int64, error)

	// ExpectedSizeof peeks s non-destructively (restoring its position
	// before returning) to answer how large this construct's encoding
	// will be without parsing past the inspection it needs -- a
	// length-prefixed construct reads just its prefix. Falls back to
	// StaticSizeof when no such lookahead applies.
	ExpectedSizeof(s *stream.Stream, ctx *container.Container) (int64, error)

	// ToElement renders obj as an XML-bridge Element (or nil, for
	// constructs that don't appear as their own element, e.g. a bare
	// atomic attribute value is instead surfaced by the parent Struct).
	ToElement(name string, obj any, ctx *container.Container) (*Element, error)

	// FromElement recovers a value from an XML-bridge Element.
	FromElement(name string, e *Element, ctx *container.Container) (any, error)

	// Name returns this construct's field name, set by Renamed.
	Name() string
}

// base is embedded by every concrete combinator and provides only Name
// and a default StaticSizeof that reports an unknown size. It does not
// supply Sizeof, FullSizeof or ExpectedSizeof: each concrete type
// implements those itself, usually by calling one of the shared
// fallback helpers below (sizeofViaStatic, fullSizeofViaSizeof,
// expectedSizeofViaStatic).
type base struct {
	name string
}

func (b *base) Name() string { return b.name }

// StaticSizeof default: unknown. Concrete leaf types with a fixed width
// override this.
func (b *base) StaticSizeof(ctx *container.Container) (int64, error) {
	return 0, errs.NewUnknownSizeError(b.name, "no static size")
}

// sizeofViaStatic is the shared `_sizeof` default body (core.py: fall
// back to static_sizeof, ignoring obj). Composite types that need obj
// override Sizeof directly instead of calling this.
func sizeofViaStatic(c Construct, obj any, ctx *container.Container) (int64, error) {
	return c.StaticSizeof(ctx)
}

// fullSizeofViaSizeof is the shared `_full_sizeof` default body (core.py:
// fall back to sizeof).
func fullSizeofViaSizeof(c Construct, obj any, ctx *container.Container) (int64, error) {
	return c.Sizeof(obj, ctx)
}

// expectedSizeofViaStatic is the shared `_expected_sizeof` default body:
// combinators with no cheaper lookahead just fall back to StaticSizeof,
// ignoring s entirely.
func expectedSizeofViaStatic(c Construct, s *stream.Stream, ctx *container.Container) (int64, error) {
	return c.StaticSizeof(ctx)
}
