package construct_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ev1313/dingsda/construct"
	"github.com/ev1313/dingsda/container"
)

// TestBitwisePackedFlags covers scenario 5: a single byte packed as a
// 1-bit flag, a 3-bit field and a 4-bit field, all MSB-first, read
// through a Bitwise block.
func TestBitwisePackedFlags(t *testing.T) {
	inner := construct.NewStruct(
		construct.NewRenamed("flag", construct.NewBitsInteger(1, false)),
		construct.NewRenamed("kind", construct.NewBitsInteger(3, false)),
		construct.NewRenamed("value", construct.NewBitsInteger(4, false)),
	)
	c := construct.NewBitwise(inner)

	// 1 | 101 | 0110  ->  1_101_0110 = 0xD6
	data := []byte{0xD6}

	parsed, err := construct.Parse(c, data)
	require.NoError(t, err)
	pc := parsed.(*container.Container)

	flag, _ := pc.Get("flag")
	assert.EqualValues(t, 1, flag)
	kind, _ := pc.Get("kind")
	assert.EqualValues(t, 5, kind)
	value, _ := pc.Get("value")
	assert.EqualValues(t, 6, value)

	built, err := construct.Build(c, pc)
	require.NoError(t, err)
	assert.Equal(t, data, built)
}

func TestBitwiseSignedField(t *testing.T) {
	// a bare BitsInteger must consume a whole byte for Bitwise's exit
	// alignment check to pass, so this uses an 8-bit signed field.
	c := construct.NewBitwise(construct.NewBitsInteger(8, true))
	s, err := construct.Parse(c, []byte{0xE0})
	require.NoError(t, err)
	assert.EqualValues(t, -32, s)
}

func TestBitwiseNonAlignedExitErrors(t *testing.T) {
	inner := construct.NewStruct(
		construct.NewRenamed("a", construct.NewBitsInteger(3, false)),
	)
	c := construct.NewBitwise(inner)
	_, err := construct.Parse(c, []byte{0xFF})
	require.Error(t, err)
}
