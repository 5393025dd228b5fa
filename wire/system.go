package wire

import (
	"net"

	"github.com/pkg/errors"
)

// SenderDescription is the decoded SENDER_DESCRIPTION system payload. The
// header's Sender field (repurposed) carries the remote sender ID being
// described; Name is the binary name to bind it to.
type SenderDescription struct {
	Name []byte
}

// DecodeSenderDescription decodes a SENDER_DESCRIPTION body.
func DecodeSenderDescription(body []byte) (*SenderDescription, error) {
	c := NewCursor(body)
	name, err := c.ReadLengthPrefixedNulString()
	if err != nil {
		return nil, err
	}
	return &SenderDescription{Name: name}, nil
}

// EncodeSenderDescription encodes d to a SENDER_DESCRIPTION body.
func EncodeSenderDescription(d *SenderDescription) []byte {
	c := NewWriteCursor()
	c.WriteLengthPrefixedNulString(d.Name)
	return c.Bytes()
}

// TypeDescription is the decoded TYPE_DESCRIPTION system payload. The
// header's Sender field (repurposed) carries the remote type ID being
// described.
type TypeDescription struct {
	Name []byte
}

// DecodeTypeDescription decodes a TYPE_DESCRIPTION body.
func DecodeTypeDescription(body []byte) (*TypeDescription, error) {
	c := NewCursor(body)
	name, err := c.ReadLengthPrefixedNulString()
	if err != nil {
		return nil, err
	}
	return &TypeDescription{Name: name}, nil
}

// EncodeTypeDescription encodes d to a TYPE_DESCRIPTION body.
func EncodeTypeDescription(d *TypeDescription) []byte {
	c := NewWriteCursor()
	c.WriteLengthPrefixedNulString(d.Name)
	return c.Bytes()
}

// UDPDescription is the decoded UDP_DESCRIPTION system payload: the
// dotted-quad IPv4 endpoint a peer accepts low-latency traffic on. The UDP
// port itself travels in the header's Sender slot (repurposed as a u16).
type UDPDescription struct {
	Host string
}

// DecodeUDPDescription decodes a UDP_DESCRIPTION body: a null-terminated
// IPv4 dotted-quad.
func DecodeUDPDescription(body []byte) (*UDPDescription, error) {
	c := NewCursor(body)
	raw, err := c.ReadNulTerminated()
	if err != nil {
		return nil, err
	}
	host := string(raw)
	if net.ParseIP(host) == nil {
		return nil, errors.WithStack(ErrBadPayload)
	}
	return &UDPDescription{Host: host}, nil
}

// EncodeUDPDescription encodes d to a UDP_DESCRIPTION body.
func EncodeUDPDescription(d *UDPDescription) []byte {
	c := NewWriteCursor()
	c.WriteNulTerminated([]byte(d.Host))
	return c.Bytes()
}

// LogMode is the logging-mode bitmask carried in cookies and LOG_DESCRIPTION
// messages.
type LogMode uint32

const (
	// LogIncoming logs messages received from the peer.
	LogIncoming LogMode = 1
	// LogOutgoing logs messages sent to the peer.
	LogOutgoing LogMode = 2
)

// LogDescription is the decoded LOG_DESCRIPTION system payload. The
// header's Sender field (repurposed) carries the logging-mode bitmask.
type LogDescription struct {
	InName  []byte
	OutName []byte
}

// DecodeLogDescription decodes a LOG_DESCRIPTION body: two
// dual-length-excluding-null strings, incoming log name then outgoing.
func DecodeLogDescription(body []byte) (*LogDescription, error) {
	c := NewCursor(body)
	in, err := c.ReadDualLengthNulString()
	if err != nil {
		return nil, err
	}
	out, err := c.ReadDualLengthNulString()
	if err != nil {
		return nil, err
	}
	return &LogDescription{InName: in, OutName: out}, nil
}

// EncodeLogDescription encodes d to a LOG_DESCRIPTION body.
func EncodeLogDescription(d *LogDescription) []byte {
	c := NewWriteCursor()
	c.WriteDualLengthNulString(d.InName)
	c.WriteDualLengthNulString(d.OutName)
	return c.Bytes()
}

// UDPPortFromSender extracts the u16 UDP port VRPN stuffs into the i32
// Sender slot of a UDP_DESCRIPTION header.
func UDPPortFromSender(sender SenderId) (uint16, error) {
	if sender < 0 || sender > 0xFFFF {
		return 0, errors.Wrapf(ErrBadPayload, "out-of-range udp port %d", sender)
	}
	return uint16(sender), nil
}
