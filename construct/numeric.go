package construct

import (
	"encoding/binary"
	"math"

	"github.com/ev1313/dingsda/errs"
)

// NumericFormatter is the External Collaborator contract FormatField
// delegates encode/decode to. DefaultNumericFormatter below is the only
// shipped implementation -- a from-scratch, standard-library component,
// since no reusable bidirectional N-byte numeric codec fit as an
// importable library independent of a larger one-directional parser
// (see DESIGN.md).
type NumericFormatter interface {
	// Width is the encoded size in bytes.
	Width() int
	Decode(b []byte) (any, error)
	Encode(v any) ([]byte, error)
}

type numKind int

const (
	numInt8 numKind = iota
	numUint8
	numInt16
	numUint16
	numInt32
	numUint32
	numInt64
	numUint64
	numFloat32
	numFloat64
)

// DefaultNumericFormatter implements NumericFormatter for the common
// fixed-width integer and IEEE-754 float encodings, little- or
// big-endian.
type DefaultNumericFormatter struct {
	kind numKind
	bo   binary.ByteOrder
}

func (f DefaultNumericFormatter) Width() int {
	switch f.kind {
	case numInt8, numUint8:
		return 1
	case numInt16, numUint16:
		return 2
	case numInt32, numUint32, numFloat32:
		return 4
	case numInt64, numUint64, numFloat64:
		return 8
	}
	return 0
}

func (f DefaultNumericFormatter) Decode(b []byte) (any, error) {
	if len(b) != f.Width() {
		return nil, errs.NewFormatErrorf("", "expected %d bytes, got %d", f.Width(), len(b))
	}
	switch f.kind {
	case numInt8:
		return int64(int8(b[0])), nil
	case numUint8:
		return uint64(b[0]), nil
	case numInt16:
		return int64(int16(f.bo.Uint16(b))), nil
	case numUint16:
		return uint64(f.bo.Uint16(b)), nil
	case numInt32:
		return int64(int32(f.bo.Uint32(b))), nil
	case numUint32:
		return uint64(f.bo.Uint32(b)), nil
	case numInt64:
		return int64(f.bo.Uint64(b)), nil
	case numUint64:
		return f.bo.Uint64(b), nil
	case numFloat32:
		return float64(math.Float32frombits(f.bo.Uint32(b))), nil
	case numFloat64:
		return math.Float64frombits(f.bo.Uint64(b)), nil
	}
	return nil, errs.NewFormatErrorf("", "unknown numeric kind")
}

func (f DefaultNumericFormatter) Encode(v any) ([]byte, error) {
	b := make([]byte, f.Width())
	switch f.kind {
	case numInt8:
		i, err := asInt64(v)
		if err != nil {
			return nil, err
		}
		b[0] = byte(int8(i))
	case numUint8:
		i, err := asUint64(v)
		if err != nil {
			return nil, err
		}
		b[0] = byte(i)
	case numInt16:
		i, err := asInt64(v)
		if err != nil {
			return nil, err
		}
		f.bo.PutUint16(b, uint16(int16(i)))
	case numUint16:
		i, err := asUint64(v)
		if err != nil {
			return nil, err
		}
		f.bo.PutUint16(b, uint16(i))
	case numInt32:
		i, err := asInt64(v)
		if err != nil {
			return nil, err
		}
		f.bo.PutUint32(b, uint32(int32(i)))
	case numUint32:
		i, err := asUint64(v)
		if err != nil {
			return nil, err
		}
		f.bo.PutUint32(b, uint32(i))
	case numInt64:
		i, err := asInt64(v)
		if err != nil {
			return nil, err
		}
		f.bo.PutUint64(b, uint64(i))
	case numUint64:
		i, err := asUint64(v)
		if err != nil {
			return nil, err
		}
		f.bo.PutUint64(b, i)
	case numFloat32:
		fv, err := asFloat64(v)
		if err != nil {
			return nil, err
		}
		f.bo.PutUint32(b, math.Float32bits(float32(fv)))
	case numFloat64:
		fv, err := asFloat64(v)
		if err != nil {
			return nil, err
		}
		f.bo.PutUint64(b, math.Float64bits(fv))
	}
	return b, nil
}

func asInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		return int64(x), nil
	case float64:
		return int64(x), nil
	default:
		return 0, errs.NewFormatErrorf("", "cannot encode %T as integer", v)
	}
}

func asUint64(v any) (uint64, error) {
	i, err := asInt64(v)
	if err != nil {
		return 0, err
	}
	return uint64(i), nil
}

func asFloat64(v any) (float64, error) {
	switch x := v.(type) {
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	default:
		return 0, errs.NewFormatErrorf("", "cannot encode %T as float", v)
	}
}

// Convenience formatter instances, named in the classic
// Int8ub/Int16ul/... style.
var (
	Int8    = DefaultNumericFormatter{kind: numInt8}
	UInt8   = DefaultNumericFormatter{kind: numUint8}
	Int16le = DefaultNumericFormatter{kind: numInt16, bo: binary.LittleEndian}
	Int16be = DefaultNumericFormatter{kind: numInt16, bo: binary.BigEndian}
	UInt16le = DefaultNumericFormatter{kind: numUint16, bo: binary.LittleEndian}
	UInt16be = DefaultNumericFormatter{kind: numUint16, bo: binary.BigEndian}
	Int32le = DefaultNumericFormatter{kind: numInt32, bo: binary.LittleEndian}
	Int32be = DefaultNumericFormatter{kind: numInt32, bo: binary.BigEndian}
	UInt32le = DefaultNumericFormatter{kind: numUint32, bo: binary.LittleEndian}
	UInt32be = DefaultNumericFormatter{kind: numUint32, bo: binary.BigEndian}
	Int64le = DefaultNumericFormatter{kind: numInt64, bo: binary.LittleEndian}
	Int64be = DefaultNumericFormatter{kind: numInt64, bo: binary.BigEndian}
	UInt64le = DefaultNumericFormatter{kind: numUint64, bo: binary.LittleEndian}
	UInt64be = DefaultNumericFormatter{kind: numUint64, bo: binary.BigEndian}
	Float32le = DefaultNumericFormatter{kind: numFloat32, bo: binary.LittleEndian}
	Float32be = DefaultNumericFormatter{kind: numFloat32, bo: binary.BigEndian}
	Float64le = DefaultNumericFormatter{kind: numFloat64, bo: binary.LittleEndian}
	Float64be = DefaultNumericFormatter{kind: numFloat64, bo: binary.BigEndian}
)
