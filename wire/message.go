package wire

import (
	"github.com/pkg/errors"
)

// TypeId and SenderId are connection-local identifiers; non-negative values
// are dynamically allocated per side, small negative values are reserved
// for system messages (see SystemType* constants).
type (
	TypeId   int32
	SenderId int32
)

// Reserved system type IDs. These never appear in a Registry; the codec
// layer (the endpoint's receive path) handles them directly.
const (
	SystemTypeSenderDescription TypeId = -1
	SystemTypeTypeDescription   TypeId = -2
	SystemTypeUDPDescription    TypeId = -3
	SystemTypeLogDescription    TypeId = -4
)

// TimeVal names a wall-clock instant as the sender's seconds/microseconds
// pair, each a big-endian int32 on the wire.
type TimeVal struct {
	Sec  int32
	Usec int32
}

// HeaderSize is the size in bytes of the padded wire header.
const HeaderSize = 24

// GenericMessage is the framing-layer view of a message: header fields plus
// an opaque body. Ephemeral — produced by the codec, consumed by the
// dispatcher, then dropped.
type GenericMessage struct {
	Timestamp TimeVal
	Sender    SenderId
	Type      TypeId
	Body      []byte
	Class     ClassOfService
}

func (c *Cursor) readTimeVal() (TimeVal, error) {
	sec, err := c.ReadI32()
	if err != nil {
		return TimeVal{}, err
	}
	usec, err := c.ReadI32()
	if err != nil {
		return TimeVal{}, err
	}
	return TimeVal{Sec: sec, Usec: usec}, nil
}

func (c *Cursor) writeTimeVal(t TimeVal) {
	c.WriteI32(t.Sec)
	c.WriteI32(t.Usec)
}

// EncodeMessage appends the wire encoding of msg to the cursor: the 24-byte
// padded header, the body, then zero padding out to the next multiple of 8.
// If seq is non-nil, its value is written into the header's four pad bytes
// (offsets 20-23); the value is informational only and decoders treat that
// slot as opaque.
func EncodeMessage(c *Cursor, msg *GenericMessage, seq *uint32) {
	length := uint32(HeaderSize + len(msg.Body))
	start := c.Offset()

	c.WriteU32(length)
	c.writeTimeVal(msg.Timestamp)
	c.WriteI32(int32(msg.Sender))
	c.WriteI32(int32(msg.Type))
	if seq != nil {
		c.WriteU32(*seq)
	} else {
		c.WriteU32(0)
	}
	c.WriteBytes(msg.Body)
	c.PadTo8FromMessageStart(start)
}

// PadTo8FromMessageStart pads the cursor with zero bytes until the number of
// bytes written since start is a multiple of 8.
func (c *Cursor) PadTo8FromMessageStart(start int) {
	written := c.Offset() - start
	padded := AlignUp(written, 8)
	if padded > written {
		dst := c.grow(padded - written)
		for i := range dst {
			dst[i] = 0
		}
	}
}

// DecodeMessage reads one GenericMessage from the cursor, per §4.3: read
// length, require length >= HeaderSize, read the remaining header fields,
// skip the 4 pad bytes, read length-HeaderSize body bytes, then skip forward
// to the next multiple of 8 measured from the start of this message.
func DecodeMessage(c *Cursor) (*GenericMessage, error) {
	start := c.Offset()

	length, err := c.ReadU32()
	if err != nil {
		return nil, err
	}
	if length < HeaderSize {
		return nil, errors.WithStack(ErrBadLength)
	}

	ts, err := c.readTimeVal()
	if err != nil {
		return nil, err
	}
	sender, err := c.ReadI32()
	if err != nil {
		return nil, err
	}
	typ, err := c.ReadI32()
	if err != nil {
		return nil, err
	}
	if err := c.Skip(4); err != nil {
		return nil, err
	}

	bodyLen := int(length) - HeaderSize
	if bodyLen < 0 {
		return nil, errors.WithStack(ErrBadLength)
	}
	body, err := c.ReadBytes(bodyLen)
	if err != nil {
		return nil, err
	}
	bodyCopy := append([]byte(nil), body...)

	if err := c.SkipToAlignment8FromMessageStart(start); err != nil {
		return nil, err
	}

	return &GenericMessage{
		Timestamp: ts,
		Sender:    SenderId(sender),
		Type:      TypeId(typ),
		Body:      bodyCopy,
	}, nil
}

// SkipToAlignment8FromMessageStart advances the cursor so that the number of
// bytes consumed since start is a multiple of 8, tolerating any pad byte
// values and any bytes still remaining in the buffer.
func (c *Cursor) SkipToAlignment8FromMessageStart(start int) error {
	consumed := c.Offset() - start
	target := start + AlignUp(consumed, 8)
	if target > len(c.buf) {
		return errors.WithStack(ErrTruncated)
	}
	c.off = target
	return nil
}

// DecodeStream decodes as many complete messages as the cursor's remaining
// bytes hold, stopping (without error) on a trailing partial message. It is
// the realization of the "lazy sequence over the incoming byte stream,
// finite per-read, restartable across reads" behavior: callers top up the
// cursor's buffer with the bytes from Cursor.Tail() plus newly-read bytes
// and call DecodeStream again.
func DecodeStream(c *Cursor) ([]*GenericMessage, error) {
	var msgs []*GenericMessage
	for {
		mark := c.Offset()
		if c.Remaining() < 4 {
			return msgs, nil
		}

		msg, err := DecodeMessage(c)
		if err != nil {
			if errors.Is(err, ErrTruncated) {
				c.off = mark
				return msgs, nil
			}
			return msgs, err
		}
		msgs = append(msgs, msg)
	}
}
