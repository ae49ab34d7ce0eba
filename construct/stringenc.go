package construct

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

// StringEncoder is the External Collaborator contract for string-typed
// atomic fields. TextStringEncoder wraps a
// golang.org/x/text/encoding.Encoding, giving the engine access to a
// proper charset/transform codec instead of a hand-rolled one.
type StringEncoder interface {
	Decode(b []byte) (string, error)
	Encode(s string) ([]byte, error)
}

// TextStringEncoder adapts an x/text encoding.Encoding.
type TextStringEncoder struct {
	Enc encoding.Encoding
}

func (t TextStringEncoder) Decode(b []byte) (string, error) {
	out, err := t.Enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (t TextStringEncoder) Encode(s string) ([]byte, error) {
	return t.Enc.NewEncoder().Bytes([]byte(s))
}

// UTF8 is the default string encoder.
var UTF8 = TextStringEncoder{Enc: unicode.UTF8}
