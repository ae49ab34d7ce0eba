// Package errs defines the typed error kinds produced by the stream,
// container, expr and construct packages. Every wrapper carries the
// construct path that was active when the error occurred, the way
// dingsda's Python core threads a path string through every _parse/_build
// call so a failure deep in a nested Struct can be reported precisely.
package errs

import (
	"errors"
	"fmt"
	"runtime"
)

// Sentinel root causes. Wrapped by the typed errors below with extra
// context; check against these with errors.Is, or against the wrapper
// types with errors.As.
var (
	ErrUnderflow       = errors.New("not enough bytes in stream")
	ErrOverflow        = errors.New("write would overflow bounds")
	ErrBitAlignment    = errors.New("stream is not byte-aligned")
	ErrMalformed       = errors.New("malformed data")
	ErrConstMismatch   = errors.New("parsed value does not match expected constant")
	ErrOutOfRange      = errors.New("value out of range")
	ErrNoSwitchCase    = errors.New("no matching case and no default")
	ErrUnknownSize     = errors.New("size cannot be determined without a stream")
	ErrMissingField    = errors.New("field not found in context")
	ErrMalformedXML    = errors.New("malformed XML element")
)

// kind distinguishes the error categories below without requiring a
// near-identical struct definition for each.
type kind int

const (
	kindStream kind = iota
	kindFormat
	kindConst
	kindRange
	kindSwitch
	kindExplicit
	kindUnknownSize
	kindContext
	kindXML
)

func (k kind) String() string {
	switch k {
	case kindStream:
		return "StreamError"
	case kindFormat:
		return "FormatError"
	case kindConst:
		return "ConstError"
	case kindRange:
		return "RangeError"
	case kindSwitch:
		return "SwitchError"
	case kindExplicit:
		return "ExplicitError"
	case kindUnknownSize:
		return "UnknownSizeError"
	case kindContext:
		return "ContextError"
	case kindXML:
		return "XMLError"
	default:
		return "Error"
	}
}

// ConstructError is the single wrapper type backing every error kind the
// engine produces. Path is the dotted field path (e.g. "header.width")
// active when the error occurred, filled in as the error propagates
// upward through nested Structs — mirrors dingsda's path-threading.
type ConstructError struct {
	kind    kind
	Path    string
	Err     error
	Message string
	Caller  string
}

func (e *ConstructError) Error() string {
	s := e.kind.String()
	if e.Caller != "" {
		s += " in " + e.Caller
	}
	if e.Path != "" {
		s += " at " + e.Path
	}
	s += ": "
	if e.Message != "" {
		s += e.Message
		if e.Err != nil {
			s += " (" + e.Err.Error() + ")"
		}
	} else if e.Err != nil {
		s += e.Err.Error()
	}
	return s
}

func (e *ConstructError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, errs.ErrX) match regardless of which kind
// wrapped it, as long as the sentinel cause matches.
func (e *ConstructError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func getCaller(skip int) string {
	pcs := make([]uintptr, 1)
	n := runtime.Callers(2+skip, pcs)
	if n != 1 {
		return ""
	}
	frames := runtime.CallersFrames(pcs)
	frame, _ := frames.Next()
	return frame.Function
}

func newErr(k kind, path string, err error, msg string) *ConstructError {
	return &ConstructError{kind: k, Path: path, Err: err, Message: msg, Caller: getCaller(2)}
}

// NewStreamError reports a failure reading or writing the underlying
// stream (short read, seek out of bounds, unaligned bit exit).
func NewStreamError(path string, err error) error { return newErr(kindStream, path, err, "") }

// NewStreamErrorf is NewStreamError with a formatted message and
// ErrUnderflow/ErrOverflow/ErrBitAlignment left for the caller to pick.
func NewStreamErrorf(path string, cause error, format string, a ...any) error {
	return newErr(kindStream, path, cause, fmt.Sprintf(format, a...))
}

// NewFormatError reports structurally invalid data (bad magic, invalid
// enum encoding, corrupt length prefix).
func NewFormatError(path string, err error) error { return newErr(kindFormat, path, err, "") }

// NewFormatErrorf is NewFormatError with a formatted message.
func NewFormatErrorf(path string, format string, a ...any) error {
	return newErr(kindFormat, path, ErrMalformed, fmt.Sprintf(format, a...))
}

// NewConstError reports that a Const field's parsed bytes did not match
// the expected constant.
func NewConstError(path string, got, want any) error {
	return newErr(kindConst, path, ErrConstMismatch, fmt.Sprintf("got %v, expected %v", got, want))
}

// NewRangeError reports a value outside its declared bounds (Array count
// mismatch, negative length).
func NewRangeError(path string, format string, a ...any) error {
	return newErr(kindRange, path, ErrOutOfRange, fmt.Sprintf(format, a...))
}

// NewSwitchError reports a Switch whose key matched no case and had no
// default.
func NewSwitchError(path string, key any) error {
	return newErr(kindSwitch, path, ErrNoSwitchCase, fmt.Sprintf("key %v", key))
}

// NewExplicitError reports a user-level assertion failure (Check, or a
// StopIf-adjacent hard assertion).
func NewExplicitError(path string, format string, a ...any) error {
	return newErr(kindExplicit, path, nil, fmt.Sprintf(format, a...))
}

// NewUnknownSizeError reports that static_sizeof was asked of a
// construct whose size depends on a stream or context it was not given.
func NewUnknownSizeError(path string, what string) error {
	return newErr(kindUnknownSize, path, ErrUnknownSize, what)
}

// NewContextError reports a missing or mistyped context field referenced
// by an expression.
func NewContextError(path string, field string) error {
	return newErr(kindContext, path, ErrMissingField, field)
}

// NewXMLError reports a malformed element tree during fromET/toET.
func NewXMLError(path string, format string, a ...any) error {
	return newErr(kindXML, path, ErrMalformedXML, fmt.Sprintf(format, a...))
}

// IsExplicit reports whether err is (or wraps) an ExplicitError, the one
// kind that must never be silently swallowed by a lenient combinator
// such as Peek or GreedyRange.
func IsExplicit(err error) bool {
	var ce *ConstructError
	if errors.As(err, &ce) {
		return ce.kind == kindExplicit
	}
	return false
}

// WithPath rewraps err, prefixing its Path with field — used by Struct to
// build a dotted path as an error propagates up through nested fields.
func WithPath(field string, err error) error {
	if err == nil {
		return nil
	}
	var ce *ConstructError
	if errors.As(err, &ce) {
		cp := *ce
		if cp.Path == "" {
			cp.Path = field
		} else {
			cp.Path = field + "." + cp.Path
		}
		return &cp
	}
	return err
}
