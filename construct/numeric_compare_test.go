package construct_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ev1313/dingsda/construct"
	"github.com/ev1313/dingsda/container"
	"github.com/ev1313/dingsda/testutil"
)

// TestParsedFieldsCompareNumericallyEqual checks that a parsed
// Container's fields compare equal to their originally-built Go int
// literals under testutil.NumericComparer, even though FormatField's
// unsigned formatters decode to uint64 rather than int.
func TestParsedFieldsCompareNumericallyEqual(t *testing.T) {
	c := construct.NewStruct(
		construct.NewRenamed("a", construct.NewFormatField(construct.UInt8)),
		construct.NewRenamed("b", construct.NewFormatField(construct.Int16le)),
	)

	obj := container.New()
	obj.Set("a", 200)
	obj.Set("b", -100)

	built, err := construct.Build(c, obj)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	parsed, err := construct.Parse(c, built)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	pc := parsed.(*container.Container)

	a, _ := pc.Get("a")
	b, _ := pc.Get("b")

	want := map[string]any{"a": 200, "b": -100}
	got := map[string]any{"a": a, "b": b}

	if diff := cmp.Diff(want, got, testutil.NumericComparer); diff != "" {
		t.Errorf("numeric mismatch (-want +got):\n%s", diff)
	}
}
