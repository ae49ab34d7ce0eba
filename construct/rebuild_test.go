package construct_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ev1313/dingsda/construct"
	"github.com/ev1313/dingsda/container"
	"github.com/ev1313/dingsda/expr"
)

// TestNestedRebuilds covers scenario 2: a struct with two Rebuild fields
// where the second depends on the first's resolved value via the
// context, exercising the left-to-right deferred-closure resolution
// order of the preprocess engine's second sweep.
func TestNestedRebuilds(t *testing.T) {
	itemsLenExpr := expr.Lambda(func(ctx *container.Container) (any, error) {
		items, _ := ctx.Get("items")
		b, _ := items.([]byte)
		return int64(len(b)), nil
	})
	totalExpr := expr.Lambda(func(ctx *container.Container) (any, error) {
		count, _ := ctx.Get("count")
		ci, _ := count.(int64)
		return ci + 1, nil // header field itself counts as one more unit
	})

	c := construct.NewStruct(
		construct.NewRenamed("count", construct.NewRebuild(construct.NewFormatField(construct.UInt16le), itemsLenExpr)),
		construct.NewRenamed("total", construct.NewRebuild(construct.NewFormatField(construct.UInt16le), totalExpr)),
		construct.NewRenamed("items", construct.NewBytesExpr(expr.This().Field("count").Expr())),
	)

	obj := container.New()
	obj.Set("items", []byte("abcdef"))

	built, err := construct.Build(c, obj)
	require.NoError(t, err)

	parsed, err := construct.Parse(c, built)
	require.NoError(t, err)
	pc := parsed.(*container.Container)

	count, _ := pc.Get("count")
	assert.EqualValues(t, 6, count)
	total, _ := pc.Get("total")
	assert.EqualValues(t, 7, total)
}

func TestPreprocessIdempotent(t *testing.T) {
	lenExpr := expr.Lambda(func(ctx *container.Container) (any, error) {
		v, _ := ctx.Get("data")
		b, _ := v.([]byte)
		return int64(len(b)), nil
	})
	c := construct.NewStruct(
		construct.NewRenamed("len", construct.NewRebuild(construct.NewFormatField(construct.UInt8), lenExpr)),
		construct.NewRenamed("data", construct.NewBytesExpr(expr.This().Field("len").Expr())),
	)
	obj := container.New()
	obj.Set("data", []byte("xyz"))

	pre1, err := construct.Preprocess(c, obj)
	require.NoError(t, err)
	pre1c := pre1.(*container.Container)
	l1, _ := pre1c.Get("len")

	pre2, err := construct.Preprocess(c, pre1)
	require.NoError(t, err)
	pre2c := pre2.(*container.Container)
	l2, _ := pre2c.Get("len")

	assert.Equal(t, l1, l2)
}
