// Package stream implements the bidirectional, seekable byte stream the
// construct engine reads from and writes to, plus its MSB-first packed
// bit-mode sub-cursor. Unlike bytes.Buffer, writes past the current end
// zero-fill the gap rather than erroring, since Pointer/Area building
// must be able to seek ahead of the current write position, write a
// payload, and seek back to continue the enclosing Struct — exactly the
// property Python's io.BytesIO gives dingsda's stream.py helpers.
package stream

import (
	"io"

	"github.com/ev1313/dingsda/errs"
)

// Stream is a growable, seekable in-memory buffer with an optional
// bit-level sub-mode. It is not safe for concurrent use; a single Parse
// or Build call owns exactly one Stream.
type Stream struct {
	buf []byte
	pos int64

	bitMode    bool
	bitBuf     byte
	bitCount   uint // number of valid bits remaining in bitBuf, counted from the MSB down
	bitBytePos int64
}

// New wraps an existing byte slice for reading (and, if later grown by
// writes, for building).
func New(data []byte) *Stream {
	return &Stream{buf: append([]byte(nil), data...)}
}

// NewEmpty returns a stream with no backing bytes yet, suitable for
// Build.
func NewEmpty() *Stream { return &Stream{} }

// Bytes returns the full backing buffer (not a copy).
func (s *Stream) Bytes() []byte { return s.buf }

// Tell returns the current byte offset.
func (s *Stream) Tell() int64 { return s.pos }

// Size returns the total number of bytes currently in the buffer.
func (s *Stream) Size() int64 { return int64(len(s.buf)) }

// EOF reports whether the cursor is at or past the end of the buffer.
func (s *Stream) EOF() bool { return s.pos >= int64(len(s.buf)) }

// Seek moves the cursor to an absolute offset. Negative offsets count
// from the end of the buffer (offset -N means len(buf)-N), matching
// dingsda's Pointer negative-offset convention. Seeking while in bit mode
// is only permitted when byte-aligned.
func (s *Stream) Seek(offset int64) error {
	if s.bitMode && s.bitCount != 0 {
		return errs.NewStreamError("", errs.ErrBitAlignment)
	}
	if offset < 0 {
		offset = int64(len(s.buf)) + offset
	}
	if offset < 0 {
		return errs.NewStreamErrorf("", errs.ErrOverflow, "seek to negative offset")
	}
	s.pos = offset
	return nil
}

// ReadBytes reads exactly n bytes, advancing the cursor. Must be called
// byte-aligned.
func (s *Stream) ReadBytes(n int) ([]byte, error) {
	if s.bitMode && s.bitCount != 0 {
		return nil, errs.NewStreamErrorf("", errs.ErrBitAlignment, "read while %d bits pending", s.bitCount)
	}
	if n < 0 {
		return nil, errs.NewRangeError("", "negative read length %d", n)
	}
	if s.pos+int64(n) > int64(len(s.buf)) {
		return nil, errs.NewStreamErrorf("", errs.ErrUnderflow, "need %d bytes at offset %d, have %d", n, s.pos, int64(len(s.buf))-s.pos)
	}
	out := make([]byte, n)
	copy(out, s.buf[s.pos:s.pos+int64(n)])
	s.pos += int64(n)
	return out, nil
}

// ReadRemaining reads all bytes from the cursor to EOF.
func (s *Stream) ReadRemaining() ([]byte, error) {
	n := int64(len(s.buf)) - s.pos
	if n < 0 {
		n = 0
	}
	return s.ReadBytes(int(n))
}

// WriteBytes writes b at the current cursor, growing and zero-filling the
// buffer as needed if the cursor is past the current end. Must be called
// byte-aligned.
func (s *Stream) WriteBytes(b []byte) error {
	if s.bitMode && s.bitCount != 0 {
		return errs.NewStreamErrorf("", errs.ErrBitAlignment, "write while %d bits pending", s.bitCount)
	}
	end := s.pos + int64(len(b))
	if end > int64(len(s.buf)) {
		grown := make([]byte, end)
		copy(grown, s.buf)
		s.buf = grown
	}
	copy(s.buf[s.pos:end], b)
	s.pos = end
	return nil
}

// EnterBits switches the stream into bit mode, starting a fresh
// MSB-first bit cursor at the current byte.
func (s *Stream) EnterBits() {
	s.bitMode = true
	s.bitCount = 0
	s.bitBytePos = s.pos
}

// LeaveBits exits bit mode. It is an error to leave with a partially
// consumed byte still pending (non-byte-aligned); the error carries a
// descriptive message naming how many bits were left over.
func (s *Stream) LeaveBits() error {
	if s.bitCount != 0 {
		pending := s.bitCount
		s.bitMode = false
		s.bitCount = 0
		return errs.NewStreamErrorf("", errs.ErrBitAlignment,
			"bitstream is not aligned to a byte boundary (%d bits pending)", pending)
	}
	s.bitMode = false
	return nil
}

// ReadBit reads a single bit MSB-first, pulling in a new byte from the
// underlying stream whenever the current one is exhausted.
func (s *Stream) ReadBit() (uint64, error) {
	if s.bitCount == 0 {
		if s.pos >= int64(len(s.buf)) {
			return 0, errs.NewStreamError("", errs.ErrUnderflow)
		}
		s.bitBuf = s.buf[s.pos]
		s.pos++
		s.bitCount = 8
	}
	bit := (s.bitBuf >> 7) & 1
	s.bitBuf <<= 1
	s.bitCount--
	return uint64(bit), nil
}

// ReadBits reads n bits MSB-first and assembles them into a uint64,
// most-significant bit first.
func (s *Stream) ReadBits(n int) (uint64, error) {
	var v uint64
	for i := 0; i < n; i++ {
		bit, err := s.ReadBit()
		if err != nil {
			return 0, err
		}
		v = (v << 1) | bit
	}
	return v, nil
}

// WriteBit writes a single bit MSB-first, flushing a completed byte to
// the underlying stream.
func (s *Stream) WriteBit(bit uint64) error {
	s.bitBuf = (s.bitBuf << 1) | byte(bit&1)
	s.bitCount++
	if s.bitCount == 8 {
		if err := s.writeRawByte(s.bitBuf); err != nil {
			return err
		}
		s.bitBuf = 0
		s.bitCount = 0
	}
	return nil
}

// WriteBits writes the low n bits of v, most-significant first.
func (s *Stream) WriteBits(v uint64, n int) error {
	for i := n - 1; i >= 0; i-- {
		if err := s.WriteBit((v >> uint(i)) & 1); err != nil {
			return err
		}
	}
	return nil
}

func (s *Stream) writeRawByte(b byte) error {
	end := s.pos + 1
	if end > int64(len(s.buf)) {
		grown := make([]byte, end)
		copy(grown, s.buf)
		s.buf = grown
	}
	s.buf[s.pos] = b
	s.pos = end
	return nil
}

// Reader returns an io.Reader view of the remaining bytes, for handing
// off to collaborators such as compress/flate or encoding/xml.
func (s *Stream) Reader() io.Reader {
	return &sliceReader{s: s}
}

type sliceReader struct{ s *Stream }

func (r *sliceReader) Read(p []byte) (int, error) {
	if r.s.pos >= int64(len(r.s.buf)) {
		return 0, io.EOF
	}
	n := copy(p, r.s.buf[r.s.pos:])
	r.s.pos += int64(n)
	return n, nil
}
