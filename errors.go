package vrpn

import "github.com/pkg/errors"

// Connection/handshake/transport-level sentinel errors. Codec-level errors
// (Truncated, BadLength, BadPayload, UTF8) live in package wire; translation
// errors (UnknownRemoteId, ConflictingDescription) live in package
// registry. Compare with errors.Is.
var (
	// ErrHandshakeTimeout fires when cookie exchange does not complete
	// within the configured deadline (default 30s).
	ErrHandshakeTimeout = errors.New("vrpn: handshake timeout")

	// ErrTransportClosed is returned when the underlying transport reports
	// EOF or has already been closed.
	ErrTransportClosed = errors.New("vrpn: transport closed")

	// ErrTransportIO wraps an I/O error surfaced by the underlying
	// transport.
	ErrTransportIO = errors.New("vrpn: transport io error")

	// ErrNotConnected is returned by any send operation (Send,
	// SendUDPAnnouncement, SendLogDescription) attempted on a Closed
	// endpoint.
	ErrNotConnected = errors.New("vrpn: not connected")

	// ErrQueueOverflow is returned when a bounded outbound queue is full
	// and the message is dropped rather than blocking the caller
	// indefinitely.
	ErrQueueOverflow = errors.New("vrpn: outbound queue overflow")
)
