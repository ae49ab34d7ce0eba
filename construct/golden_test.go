package construct_test

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie"

	"github.com/ev1313/dingsda/construct"
	"github.com/ev1313/dingsda/container"
)

// TestGoldenContainerJSON pins the JSON rendering of a parsed
// Container against a checked-in fixture, the way a field-layout
// change that silently alters a parsed value's shape should show up
// as a diff instead of just passing.
func TestGoldenContainerJSON(t *testing.T) {
	c := construct.NewStruct(
		construct.NewRenamed("a", construct.NewFormatField(construct.UInt8)),
		construct.NewRenamed("b", construct.NewFormatField(construct.Int16le)),
	)

	parsed, err := construct.Parse(c, []byte{0x0A, 0xFB, 0xFF})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	pc := parsed.(*container.Container)

	out := make(map[string]any)
	for _, k := range pc.Keys() {
		v, _ := pc.Get(k)
		out[k] = v
	}

	serialized, err := json.MarshalIndent(out, "", " ")
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	goldie.Assert(t, "TestGoldenContainerJSON", serialized)
}
