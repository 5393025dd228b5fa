package wire

import "github.com/pkg/errors"

// Codec-level sentinel errors. Callers should compare with errors.Is;
// concrete returns are wrapped with errors.WithStack for a trace.
var (
	// ErrTruncated is returned when a read would run past the end of the buffer.
	ErrTruncated = errors.New("vrpn: truncated")

	// ErrBadLength is returned when a frame's length field is invalid.
	ErrBadLength = errors.New("vrpn: bad length")

	// ErrBadPayload is returned when a typed payload's shape doesn't match its
	// declared counts (negative/non-finite counts, size mismatch, etc).
	ErrBadPayload = errors.New("vrpn: bad payload")

	// ErrUTF8 is returned when a string decoder is asked for text and the
	// underlying bytes are not valid UTF-8.
	ErrUTF8 = errors.New("vrpn: invalid utf8")
)
