package main

import (
	"github.com/ev1313/dingsda/construct"
	"github.com/ev1313/dingsda/container"
	"github.com/ev1313/dingsda/expr"
)

// formats lists the construct-cli tool's built-in format descriptions.
// A real deployment would load these from a plugin package instead of
// hardcoding them, but the point here is exercising Parse/Build end to
// end, not a format registry.
var formats = map[string]construct.Construct{
	"tlv": tlvFormat(),
}

// tlvFormat is a tag/length/value record: a one-byte tag, a
// little-endian uint16 length, and that many bytes of payload.
func tlvFormat() construct.Construct {
	return construct.NewStruct(
		construct.NewRenamed("tag", construct.NewFormatField(construct.UInt8)),
		construct.NewRenamed("length", construct.NewRebuild(
			construct.NewFormatField(construct.UInt16le),
			expr.Lambda(func(ctx *container.Container) (any, error) {
				v, _ := ctx.Get("value")
				b, _ := v.([]byte)
				return int64(len(b)), nil
			}),
		)),
		construct.NewRenamed("value", construct.NewBytesExpr(expr.This().Field("length").Expr())),
	)
}
