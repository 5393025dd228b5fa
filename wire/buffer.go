// Package wire implements the VRPN wire codec: big-endian primitives,
// alignment, the three string conventions the protocol mixes, the generic
// framed message, the typed payloads of §6, and the magic-cookie/UDP
// announcement encodings used at handshake.
package wire

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// Cursor is a read/write position over a byte slice. Reads advance the
// cursor and fail with ErrTruncated rather than panic; writes grow the
// underlying slice as needed. Offsets are absolute from the start of the
// current logical unit (a message or a handshake blob), so alignment can be
// computed directly from Cursor.Offset().
type Cursor struct {
	buf []byte
	off int
}

// NewCursor wraps buf for reading from the start.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// NewWriteCursor returns a cursor with an empty backing slice, growable by
// the Write* methods.
func NewWriteCursor() *Cursor {
	return &Cursor{buf: make([]byte, 0, 64)}
}

// Offset returns the current absolute offset.
func (c *Cursor) Offset() int {
	return c.off
}

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int {
	return len(c.buf) - c.off
}

// Bytes returns the full backing slice (not just the unread tail).
func (c *Cursor) Bytes() []byte {
	return c.buf
}

// Tail returns the unread portion of the buffer.
func (c *Cursor) Tail() []byte {
	return c.buf[c.off:]
}

func (c *Cursor) requireReadable(n int) error {
	if c.Remaining() < n {
		return errors.WithStack(ErrTruncated)
	}
	return nil
}

func (c *Cursor) grow(n int) []byte {
	needed := c.off + n
	if needed > len(c.buf) {
		if needed > cap(c.buf) {
			grown := make([]byte, len(c.buf), needed*2+8)
			copy(grown, c.buf)
			c.buf = grown
		}
		c.buf = c.buf[:needed]
	}
	start := c.off
	c.off += n
	return c.buf[start:c.off]
}

// ReadBytes reads n raw bytes.
func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	if err := c.requireReadable(n); err != nil {
		return nil, err
	}
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b, nil
}

// WriteBytes appends raw bytes.
func (c *Cursor) WriteBytes(b []byte) {
	dst := c.grow(len(b))
	copy(dst, b)
}

// ReadU32 reads a big-endian uint32.
func (c *Cursor) ReadU32() (uint32, error) {
	if err := c.requireReadable(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(c.buf[c.off : c.off+4])
	c.off += 4
	return v, nil
}

// WriteU32 writes a big-endian uint32.
func (c *Cursor) WriteU32(v uint32) {
	binary.BigEndian.PutUint32(c.grow(4), v)
}

// ReadI32 reads a big-endian int32.
func (c *Cursor) ReadI32() (int32, error) {
	v, err := c.ReadU32()
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}

// WriteI32 writes a big-endian int32.
func (c *Cursor) WriteI32(v int32) {
	c.WriteU32(uint32(v))
}

// ReadU64 reads a big-endian uint64.
func (c *Cursor) ReadU64() (uint64, error) {
	if err := c.requireReadable(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(c.buf[c.off : c.off+8])
	c.off += 8
	return v, nil
}

// WriteU64 writes a big-endian uint64.
func (c *Cursor) WriteU64(v uint64) {
	binary.BigEndian.PutUint64(c.grow(8), v)
}

// ReadF64 reads a big-endian IEEE-754 double.
func (c *Cursor) ReadF64() (float64, error) {
	v, err := c.ReadU64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// WriteF64 writes a big-endian IEEE-754 double.
func (c *Cursor) WriteF64(v float64) {
	c.WriteU64(math.Float64bits(v))
}

// AlignUp rounds off up to the next multiple of align.
func AlignUp(off, align int) int {
	rem := off % align
	if rem == 0 {
		return off
	}
	return off + (align - rem)
}

// PadTo writes zero bytes until the cursor's offset is a multiple of align.
func (c *Cursor) PadTo(align int) {
	target := AlignUp(c.off, align)
	if target > c.off {
		dst := c.grow(target - c.off)
		for i := range dst {
			dst[i] = 0
		}
	}
}

// SkipToAlignment advances the cursor to the next multiple of align,
// tolerating any byte values in the skipped region.
func (c *Cursor) SkipToAlignment(align int) error {
	target := AlignUp(c.off, align)
	if target > len(c.buf) {
		return errors.WithStack(ErrTruncated)
	}
	c.off = target
	return nil
}

// Skip advances the cursor by n bytes without inspecting their contents.
func (c *Cursor) Skip(n int) error {
	if err := c.requireReadable(n); err != nil {
		return err
	}
	c.off += n
	return nil
}
