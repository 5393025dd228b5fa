package wire

import (
	"bytes"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// ReadLengthPrefixedNulString reads the SENDER_DESCRIPTION/TYPE_DESCRIPTION
// form: a u32 length followed by that many bytes, the last of which is the
// terminating 0x00. The returned bytes exclude the terminator.
func (c *Cursor) ReadLengthPrefixedNulString() ([]byte, error) {
	l, err := c.ReadU32()
	if err != nil {
		return nil, err
	}
	if l == 0 {
		return nil, errors.WithStack(ErrBadPayload)
	}
	raw, err := c.ReadBytes(int(l))
	if err != nil {
		return nil, err
	}
	if raw[len(raw)-1] != 0 {
		return nil, errors.WithStack(ErrBadPayload)
	}
	return raw[:len(raw)-1], nil
}

// WriteLengthPrefixedNulString writes the SENDER_DESCRIPTION/TYPE_DESCRIPTION
// form for name, appending the terminating 0x00 itself.
func (c *Cursor) WriteLengthPrefixedNulString(name []byte) {
	c.WriteU32(uint32(len(name) + 1))
	c.WriteBytes(name)
	c.WriteBytes([]byte{0})
}

// ReadDualLengthNulString reads one half of the LOG_DESCRIPTION form: an i32
// length (excluding the terminator) followed by that many bytes plus a
// trailing 0x00.
func (c *Cursor) ReadDualLengthNulString() ([]byte, error) {
	l, err := c.ReadI32()
	if err != nil {
		return nil, err
	}
	if l < 0 {
		return nil, errors.WithStack(ErrBadPayload)
	}
	raw, err := c.ReadBytes(int(l) + 1)
	if err != nil {
		return nil, err
	}
	if raw[len(raw)-1] != 0 {
		return nil, errors.WithStack(ErrBadPayload)
	}
	return raw[:len(raw)-1], nil
}

// WriteDualLengthNulString writes one half of the LOG_DESCRIPTION form: the
// i32 length excluding the terminator, then name, then 0x00.
func (c *Cursor) WriteDualLengthNulString(name []byte) {
	c.WriteI32(int32(len(name)))
	c.WriteBytes(name)
	c.WriteBytes([]byte{0})
}

// ReadNulTerminated reads raw bytes up to and including a terminating 0x00,
// with no length prefix. Used by UDP_DESCRIPTION bodies and the UDP
// announcement datagram. The returned bytes exclude the terminator. Any
// trailing zero padding after the terminator is left unread.
func (c *Cursor) ReadNulTerminated() ([]byte, error) {
	idx := bytes.IndexByte(c.Tail(), 0)
	if idx < 0 {
		return nil, errors.WithStack(ErrTruncated)
	}
	s := c.Tail()[:idx]
	c.off += idx + 1
	return s, nil
}

// WriteNulTerminated writes s followed by a single 0x00 terminator.
func (c *Cursor) WriteNulTerminated(s []byte) {
	c.WriteBytes(s)
	c.WriteBytes([]byte{0})
}

// AsUTF8 validates b as UTF-8 text, returning ErrUTF8 if it is not. Binary
// string handling (the []byte forms above) is always available and
// preferred in the core; this is only for callers that need text.
func AsUTF8(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", errors.WithStack(ErrUTF8)
	}
	return string(b), nil
}
