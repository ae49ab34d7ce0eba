package construct_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ev1313/dingsda/construct"
	"github.com/ev1313/dingsda/container"
)

// roundtripCase is one fixture exercised by the generic invariant table
// below: a Construct, a build-time value for it, and (where the wire
// form is unambiguous) the exact bytes that value encodes to.
type roundtripCase struct {
	name  string
	c     construct.Construct
	value *container.Container
	bytes []byte // nil when the fixture's encoding isn't pinned to one exact form
}

func simpleStructCase() roundtripCase {
	c := construct.NewStruct(
		construct.NewRenamed("a", construct.NewFormatField(construct.UInt8)),
		construct.NewRenamed("b", construct.NewFormatField(construct.UInt16le)),
	)
	v := container.New()
	v.Set("a", uint64(10))
	v.Set("b", uint64(0x1234))
	return roundtripCase{
		name:  "fixed-width struct",
		c:     c,
		value: v,
		bytes: []byte{0x0A, 0x34, 0x12},
	}
}

func fixedArrayCase() roundtripCase {
	c := construct.NewStruct(
		construct.NewRenamed("count", construct.NewFormatField(construct.UInt8)),
		construct.NewRenamed("items", construct.NewArray(3, construct.NewFormatField(construct.UInt8))),
	)
	items := container.NewList()
	for _, n := range []uint64{5, 6, 7} {
		items.Append(n)
	}
	v := container.New()
	v.Set("count", uint64(3))
	v.Set("items", items)
	return roundtripCase{
		name:  "struct with fixed-count array",
		c:     c,
		value: v,
		bytes: []byte{0x03, 0x05, 0x06, 0x07},
	}
}

func prefixedArrayCase() roundtripCase {
	c := construct.NewStruct(
		construct.NewRenamed("items", construct.NewPrefixedArray(
			construct.NewFormatField(construct.UInt8),
			construct.NewFormatField(construct.UInt16le),
		)),
	)
	items := container.NewList()
	for _, n := range []uint64{0x0102, 0x0304} {
		items.Append(n)
	}
	v := container.New()
	v.Set("items", items)
	return roundtripCase{
		name:  "struct with length-prefixed array",
		c:     c,
		value: v,
		bytes: []byte{0x02, 0x02, 0x01, 0x04, 0x03},
	}
}

func roundtripCases() []roundtripCase {
	return []roundtripCase{
		simpleStructCase(),
		fixedArrayCase(),
		prefixedArrayCase(),
	}
}

// assertContainerValuesEqual compares two parsed/built containers field
// by field (not via reflect.DeepEqual on the whole struct, since a
// Container also carries non-semantic bookkeeping like meta/subcon
// tables that legitimately differ between a freshly-built value and one
// that has gone through a parse).
func assertContainerValuesEqual(t *testing.T, want, got *container.Container) {
	t.Helper()
	require.ElementsMatch(t, want.Keys(), got.Keys())
	for _, k := range want.Keys() {
		wv, _ := want.Get(k)
		gv, _ := got.Get(k)
		assertValueEqual(t, k, wv, gv)
	}
}

func assertValueEqual(t *testing.T, path string, want, got any) {
	t.Helper()
	switch w := want.(type) {
	case *container.Container:
		g, ok := got.(*container.Container)
		require.Truef(t, ok, "%s: expected *container.Container, got %T", path, got)
		assertContainerValuesEqual(t, w, g)
	case *container.ListContainer:
		g, ok := got.(*container.ListContainer)
		require.Truef(t, ok, "%s: expected *container.ListContainer, got %T", path, got)
		require.Equalf(t, w.Len(), g.Len(), "%s: list length mismatch", path)
		for i := range w.Items {
			assertValueEqual(t, path, w.Items[i], g.Items[i])
		}
	default:
		assert.EqualValuesf(t, want, got, "%s mismatch", path)
	}
}

// TestRoundtripParseOfBuild checks parse(build(x)) reproduces x, field
// for field, across every fixture.
func TestRoundtripParseOfBuild(t *testing.T) {
	for _, tc := range roundtripCases() {
		t.Run(tc.name, func(t *testing.T) {
			built, err := construct.Build(tc.c, tc.value)
			require.NoError(t, err)

			parsed, err := construct.Parse(tc.c, built)
			require.NoError(t, err)
			pc, ok := parsed.(*container.Container)
			require.True(t, ok)

			assertContainerValuesEqual(t, tc.value, pc)
		})
	}
}

// TestRoundtripBuildOfParse checks build(parse(bytes)) reproduces bytes
// exactly, for every fixture whose wire form is pinned.
func TestRoundtripBuildOfParse(t *testing.T) {
	for _, tc := range roundtripCases() {
		if tc.bytes == nil {
			continue
		}
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := construct.Parse(tc.c, tc.bytes)
			require.NoError(t, err)

			rebuilt, err := construct.Build(tc.c, parsed)
			require.NoError(t, err)
			assert.Equal(t, tc.bytes, rebuilt)
		})
	}
}

// TestRoundtripPreprocessIdempotent checks that running Preprocess a
// second time over its own output changes nothing: a Rebuild field
// resolved once should stay resolved to the same value, not drift on
// repeated passes.
func TestRoundtripPreprocessIdempotent(t *testing.T) {
	for _, tc := range roundtripCases() {
		t.Run(tc.name, func(t *testing.T) {
			once, err := construct.Preprocess(tc.c, tc.value)
			require.NoError(t, err)
			onceC, ok := once.(*container.Container)
			require.True(t, ok)

			twice, err := construct.Preprocess(tc.c, onceC)
			require.NoError(t, err)
			twiceC, ok := twice.(*container.Container)
			require.True(t, ok)

			assertContainerValuesEqual(t, onceC, twiceC)
		})
	}
}

// TestRoundtripSizeMonotonic checks static_sizeof <= sizeof(v) <=
// full_sizeof(v) wherever static_sizeof is defined at all; a
// variable-width construct (PrefixedArray, CString, ...) legitimately
// reports UnknownSizeError for static_sizeof, in which case only the
// sizeof <= full_sizeof half of the inequality applies.
func TestRoundtripSizeMonotonic(t *testing.T) {
	for _, tc := range roundtripCases() {
		t.Run(tc.name, func(t *testing.T) {
			pre, err := construct.Preprocess(tc.c, tc.value)
			require.NoError(t, err)

			sz, err := construct.Sizeof(tc.c, pre)
			require.NoError(t, err)

			full, err := tc.c.FullSizeof(pre, nil)
			require.NoError(t, err)
			assert.GreaterOrEqualf(t, full, sz, "full_sizeof must be at least sizeof")

			static, staticErr := construct.StaticSizeof(tc.c)
			if staticErr == nil {
				assert.LessOrEqualf(t, static, sz, "static_sizeof must not exceed sizeof(v)")
			}
		})
	}
}

// TestRoundtripMetaAdditive checks that a Struct's per-field meta
// offsets are monotonically increasing and additive: field i's Offset
// plus its Size lands exactly on field i+1's Offset.
func TestRoundtripMetaAdditive(t *testing.T) {
	for _, tc := range roundtripCases() {
		t.Run(tc.name, func(t *testing.T) {
			pre, err := construct.Preprocess(tc.c, tc.value)
			require.NoError(t, err)
			pc := pre.(*container.Container)

			var prevEnd int64
			for _, k := range pc.Keys() {
				meta, ok := pc.GetMeta(k)
				if !ok {
					continue
				}
				assert.Equalf(t, prevEnd, meta.Offset, "field %q offset does not follow its predecessor", k)
				assert.Equalf(t, meta.Offset+meta.Size, meta.EndOffset, "field %q EndOffset != Offset+Size", k)
				prevEnd = meta.EndOffset
			}
		})
	}
}
