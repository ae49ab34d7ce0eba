// Package testutil collects small comparison helpers shared by the
// construct package's tests, in place of hand-rolled equality checks
// repeated at every call site.
package testutil

import (
	"math"

	"github.com/google/go-cmp/cmp"
)

// ConvertToInt64 converts various numeric types to int64 for
// comparison, returning ok=false for a non-numeric or non-whole value.
// Parsed integers surface as a mix of int64/uint64 depending on
// signedness, so assertions that don't care which need this.
func ConvertToInt64(i any) (int64, bool) {
	switch v := i.(type) {
	case float64:
		if v == float64(int64(v)) {
			return int64(v), true
		}
		return 0, false
	case float32:
		if v == float32(int64(v)) {
			return int64(v), true
		}
		return 0, false
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		if v <= math.MaxInt64 {
			return int64(v), true
		}
		return 0, false
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		if v <= math.MaxInt64 {
			return int64(v), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// NumericComparer is a cmp.Comparer that treats any two whole-number
// values as equal regardless of their concrete Go type, so a
// cmp.Diff over a parsed Container doesn't fail merely because a
// FormatField returned uint64 where the test literal was int.
var NumericComparer = cmp.Comparer(func(x, y any) bool {
	xInt, xOk := ConvertToInt64(x)
	yInt, yOk := ConvertToInt64(y)
	if xOk && yOk {
		return xInt == yInt
	}
	if xFloat, xIsFloat := x.(float64); xIsFloat {
		if yFloat, yIsFloat := y.(float64); yIsFloat {
			return math.Abs(xFloat-yFloat) < 1e-9
		}
	}
	return cmp.Equal(x, y)
})
