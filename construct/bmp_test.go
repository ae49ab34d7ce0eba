package construct_test

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ev1313/dingsda/construct"
	"github.com/ev1313/dingsda/container"
	"github.com/ev1313/dingsda/expr"
)

// TestBMPLikeRoundTrip covers scenario 1: a BMP-like header with a fixed
// 3-byte magic, a width/height pair, and a pixel array whose element
// count is the product of the two -- this.width*this.height, not a
// fixed or singly-derived count.
func TestBMPLikeRoundTrip(t *testing.T) {
	pixelCount, err := expr.Parse("this.width * this.height")
	require.NoError(t, err)

	c := construct.NewStruct(
		construct.NewRenamed("signature", construct.NewConst(construct.NewBytes(3), []byte("BMP"))),
		construct.NewRenamed("width", construct.NewFormatField(construct.UInt8)),
		construct.NewRenamed("height", construct.NewFormatField(construct.UInt8)),
		construct.NewRenamed("pixels", construct.NewArrayExpr(pixelCount, construct.NewFormatField(construct.UInt8))),
	)

	input := []byte{0x42, 0x4D, 0x50, 0x03, 0x02, 0x07, 0x08, 0x09, 0x0B, 0x0C, 0x0D}

	parsed, err := construct.Parse(c, input)
	require.NoError(t, err)

	pc, ok := parsed.(*container.Container)
	require.True(t, ok, "expected *container.Container, got %s", spew.Sdump(parsed))

	signature, _ := pc.Get("signature")
	assert.Equal(t, []byte("BMP"), signature)
	width, _ := pc.Get("width")
	assert.EqualValues(t, 3, width)
	height, _ := pc.Get("height")
	assert.EqualValues(t, 2, height)

	pixels, _ := pc.Get("pixels")
	lst, ok := pixels.(*container.ListContainer)
	require.True(t, ok)
	require.Equal(t, 6, lst.Len())
	want := []int64{7, 8, 9, 11, 12, 13}
	for i, w := range want {
		assert.EqualValues(t, w, lst.Items[i])
	}

	// Round-trip 2: build(parse(data)) reproduces data exactly.
	rebuilt, err := construct.Build(c, pc)
	require.NoError(t, err)
	assert.Equal(t, input, rebuilt)
}

func TestConstMismatchIsConstError(t *testing.T) {
	c := construct.NewConst(construct.NewBytes(2), []byte("BM"))
	_, err := construct.Parse(c, []byte("XX"))
	require.Error(t, err)
}
