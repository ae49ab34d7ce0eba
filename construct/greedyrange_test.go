package construct_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ev1313/dingsda/construct"
	"github.com/ev1313/dingsda/container"
)

// TestGreedyRangeStopsCleanlyAtEOF covers scenario 6: GreedyRange must
// consume as many whole elements as fit and stop without error when the
// stream runs out exactly on an element boundary.
func TestGreedyRangeStopsCleanlyAtEOF(t *testing.T) {
	c := construct.NewGreedyRange(construct.NewFormatField(construct.UInt16le))
	data := []byte{1, 0, 2, 0, 3, 0} // three little-endian uint16s, no remainder

	parsed, err := construct.Parse(c, data)
	require.NoError(t, err)
	lst := parsed.(*container.ListContainer)
	require.Equal(t, 3, lst.Len())
	assert.EqualValues(t, 1, lst.Items[0])
	assert.EqualValues(t, 2, lst.Items[1])
	assert.EqualValues(t, 3, lst.Items[2])
}

// TestGreedyRangeStopsOnPartialTrailingElement covers the case where the
// stream ends mid-element: GreedyRange must swallow the short read and
// return only the whole elements parsed so far, rather than erroring.
func TestGreedyRangeStopsOnPartialTrailingElement(t *testing.T) {
	c := construct.NewGreedyRange(construct.NewFormatField(construct.UInt16le))
	data := []byte{1, 0, 2, 0, 0xFF} // two whole elements, one dangling byte

	parsed, err := construct.Parse(c, data)
	require.NoError(t, err)
	lst := parsed.(*container.ListContainer)
	require.Equal(t, 2, lst.Len())
	assert.EqualValues(t, 1, lst.Items[0])
	assert.EqualValues(t, 2, lst.Items[1])
}

func TestGreedyRangeEmptyStream(t *testing.T) {
	c := construct.NewGreedyRange(construct.NewFormatField(construct.UInt8))
	parsed, err := construct.Parse(c, []byte{})
	require.NoError(t, err)
	lst := parsed.(*container.ListContainer)
	assert.Equal(t, 0, lst.Len())
}

func TestGreedyRangeBuildRoundTrip(t *testing.T) {
	c := construct.NewGreedyRange(construct.NewFormatField(construct.UInt8))
	lst := container.NewList()
	lst.Append(uint64(10))
	lst.Append(uint64(20))
	lst.Append(uint64(30))

	built, err := construct.Build(c, lst)
	require.NoError(t, err)
	assert.Equal(t, []byte{10, 20, 30}, built)

	parsed, err := construct.Parse(c, built)
	require.NoError(t, err)
	back := parsed.(*container.ListContainer)
	require.Equal(t, 3, back.Len())
	assert.EqualValues(t, 10, back.Items[0])
	assert.EqualValues(t, 20, back.Items[1])
	assert.EqualValues(t, 30, back.Items[2])
}
