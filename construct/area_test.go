package construct_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ev1313/dingsda/construct"
	"github.com/ev1313/dingsda/container"
	"github.com/ev1313/dingsda/expr"
	"github.com/ev1313/dingsda/stream"
)

// TestAreaContributesZeroSize covers scenario 3: two sibling header
// descriptors, each carrying an offset and a size for its own Area
// payload, where the OFFSET itself is never a hardcoded position -- it
// is computed from the other header's already-resolved wire values, a
// genuine cross-struct preprocess dependency. header2's offset is
// derived from header1's (offset + size); header1's own offset is the
// one quantity nothing else precedes, so it is the two descriptors'
// combined static width, computed from the schema rather than typed in
// by hand. Both headers' sizes come from their payload arrays' actual
// lengths via len_, not a literal either.
//
// The scenario's own illustrative offsets (4 and 8) would require data1
// to overlap header2's own descriptor bytes in a sequential encoding;
// this keeps every other stated fact -- an 8-byte combined header
// block, payload lengths 4 and 5, and a contiguous, non-overlapping
// 17-byte stream -- while placing the payloads after the full header
// block instead (offsets 8 and 12).
func TestAreaContributesZeroSize(t *testing.T) {
	headerDesc := func() *construct.Struct {
		return construct.NewStruct(
			construct.NewRenamed("offset", construct.NewRebuild(construct.NewFormatField(construct.UInt16le), expr.Lit(int64(0)))),
			construct.NewRenamed("size", construct.NewRebuild(construct.NewFormatField(construct.UInt16le), expr.Lit(int64(0)))),
		)
	}
	headerBlockSize, err := construct.StaticSizeof(headerDesc())
	require.NoError(t, err)
	headerBlockSize *= 2 // two headers, each of the same fixed width

	header1Offset := expr.Lit(headerBlockSize)
	header1Size, err := expr.Parse("len_(this._.data1)")
	require.NoError(t, err)
	header2Offset, err := expr.Parse("this._.header1.offset + this._.header1.size")
	require.NoError(t, err)
	header2Size, err := expr.Parse("len_(this._.data2)")
	require.NoError(t, err)

	header1 := construct.NewStruct(
		construct.NewRenamed("offset", construct.NewRebuild(construct.NewFormatField(construct.UInt16le), header1Offset)),
		construct.NewRenamed("size", construct.NewRebuild(construct.NewFormatField(construct.UInt16le), header1Size)),
	)
	header2 := construct.NewStruct(
		construct.NewRenamed("offset", construct.NewRebuild(construct.NewFormatField(construct.UInt16le), header2Offset)),
		construct.NewRenamed("size", construct.NewRebuild(construct.NewFormatField(construct.UInt16le), header2Size)),
	)

	data1Offset, err := expr.Parse("this.header1.offset")
	require.NoError(t, err)
	data1Size, err := expr.Parse("this.header1.size")
	require.NoError(t, err)
	data2Offset, err := expr.Parse("this.header2.offset")
	require.NoError(t, err)
	data2Size, err := expr.Parse("this.header2.size")
	require.NoError(t, err)

	c := construct.NewStruct(
		construct.NewRenamed("header1", header1),
		construct.NewRenamed("header2", header2),
		construct.NewRenamed("data1", &construct.Area{
			Offset:         data1Offset,
			Size:           data1Size,
			Subcon:         construct.NewFormatField(construct.UInt8),
			CheckStreamPos: true,
		}),
		construct.NewRenamed("data2", &construct.Area{
			Offset:         data2Offset,
			Size:           data2Size,
			Subcon:         construct.NewFormatField(construct.UInt8),
			CheckStreamPos: true,
		}),
	)

	data1 := container.NewList()
	for _, v := range []int64{1, 2, 3, 4} {
		data1.Append(v)
	}
	data2 := container.NewList()
	for _, v := range []int64{5, 6, 7, 8, 9} {
		data2.Append(v)
	}

	obj := container.New()
	obj.Set("data1", data1)
	obj.Set("data2", data2)

	pre, err := construct.Preprocess(c, obj)
	require.NoError(t, err)
	pc := pre.(*container.Container)

	for _, name := range []string{"data1", "data2"} {
		meta, ok := pc.GetMeta(name)
		require.True(t, ok)
		assert.EqualValues(t, 0, meta.Size, "an Area field must not perturb the enclosing struct's layout")
	}

	h1, _ := pc.Get("header1")
	h1c := h1.(*container.Container)
	h1Offset, _ := h1c.Get("offset")
	h1Size, _ := h1c.Get("size")
	assert.EqualValues(t, headerBlockSize, h1Offset)
	assert.EqualValues(t, 4, h1Size)

	h2, _ := pc.Get("header2")
	h2c := h2.(*container.Container)
	h2Offset, _ := h2c.Get("offset")
	h2Size, _ := h2c.Get("size")
	assert.EqualValues(t, headerBlockSize+4, h2Offset, "header2's offset is header1's offset plus header1's size, not a literal")
	assert.EqualValues(t, 5, h2Size)

	// Build directly off the already-preprocessed value (per api.go's own
	// guidance) rather than through the Build convenience wrapper, which
	// would preprocess pre a second time.
	s := stream.NewEmpty()
	require.NoError(t, c.Build(s, pre, nil))
	built := s.Bytes()
	require.Len(t, built, 17)
	assert.Equal(t, []byte{1, 2, 3, 4}, built[headerBlockSize:headerBlockSize+4])
	assert.Equal(t, []byte{5, 6, 7, 8, 9}, built[headerBlockSize+4:headerBlockSize+9])

	parsed, err := construct.Parse(c, built)
	require.NoError(t, err)
	parsedC := parsed.(*container.Container)

	gotData1, _ := parsedC.Get("data1")
	lst1, ok := gotData1.(*container.ListContainer)
	require.True(t, ok)
	require.Equal(t, 4, lst1.Len())
	for i, want := range []int64{1, 2, 3, 4} {
		assert.EqualValues(t, want, lst1.Items[i])
	}

	gotData2, _ := parsedC.Get("data2")
	lst2, ok := gotData2.(*container.ListContainer)
	require.True(t, ok)
	require.Equal(t, 5, lst2.Len())
	for i, want := range []int64{5, 6, 7, 8, 9} {
		assert.EqualValues(t, want, lst2.Items[i])
	}
}
