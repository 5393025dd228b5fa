package wire

import (
	"bytes"
	"fmt"

	"github.com/pkg/errors"
)

// CookieSize is the fixed size in bytes of the magic cookie record.
const CookieSize = 24

// CookieVersionMajor and CookieVersionMinor are the protocol version this
// implementation claims in its magic cookie. spec.md is silent on a concrete default; this follows the
// version named in the spec's own worked example (S4) and the version the
// corpus's original Rust rewrite targets.
const (
	CookieVersionMajor = 7
	CookieVersionMinor = 35
)

// Default TCP and UDP service ports.
const (
	DefaultTCPPort = 3883
	DefaultUDPPort = 3883
)

// Cookie is the 24-byte handshake record exchanged by both sides of a
// connection.
type Cookie struct {
	Major   int
	Minor   int
	LogMode LogMode
}

// Encode renders the cookie to its fixed 24-byte wire form:
// "vrpn: ver. MM.mm  L\0" right-padded with 0x00.
func (k Cookie) Encode() [CookieSize]byte {
	var out [CookieSize]byte
	s := fmt.Sprintf("vrpn: ver. %02d.%02d  %d", k.Major, k.Minor, int(k.LogMode))
	copy(out[:], s)
	return out
}

// DecodeCookie parses a 24-byte cookie record.
func DecodeCookie(raw []byte) (Cookie, error) {
	if len(raw) != CookieSize {
		return Cookie{}, errors.WithStack(ErrBadLength)
	}
	text := raw
	if idx := bytes.IndexByte(raw, 0); idx >= 0 {
		text = raw[:idx]
	}

	var major, minor, logMode int
	n, err := fmt.Sscanf(string(text), "vrpn: ver. %2d.%2d  %d", &major, &minor, &logMode)
	if err != nil || n != 3 {
		return Cookie{}, errors.Wrap(ErrBadPayload, "malformed cookie")
	}

	return Cookie{Major: major, Minor: minor, LogMode: LogMode(logMode)}, nil
}

// ErrIncompatibleVersion is returned when two cookies' major versions
// differ.
var ErrIncompatibleVersion = errors.New("vrpn: incompatible protocol version")

// CheckCompatible reports whether local and remote cookies are compatible:
// equal major versions. Minor mismatches are accepted; per spec.md's open
// question on minor-version semantics, no behavior is gated on minor.
func CheckCompatible(local, remote Cookie) error {
	if local.Major != remote.Major {
		return errors.Wrapf(ErrIncompatibleVersion, "local %d.%02d remote %d.%02d",
			local.Major, local.Minor, remote.Major, remote.Minor)
	}
	return nil
}

// EncodeUDPAnnouncement renders the UDP+TCP handshake's announcement
// datagram: "<ipv4> <tcp-port>\0", the null-terminated ASCII string the
// client sends to the server's well-known UDP port. When shorter than 16
// bytes it is zero-padded to 16, matching observed servers that reject
// non-padded variants (see spec.md §9's open question); a longer string is
// returned unpadded.
func EncodeUDPAnnouncement(ipv4 string, tcpPort uint16) []byte {
	s := fmt.Sprintf("%s %d\x00", ipv4, tcpPort)
	if len(s) < 16 {
		padded := make([]byte, 16)
		copy(padded, s)
		return padded
	}
	return []byte(s)
}

// DecodeUDPAnnouncement parses the UDP+TCP handshake's announcement
// datagram. It accepts both the exact null-terminated form and forms
// zero-padded beyond the terminator.
func DecodeUDPAnnouncement(raw []byte) (ipv4 string, tcpPort uint16, err error) {
	idx := bytes.IndexByte(raw, 0)
	if idx < 0 {
		return "", 0, errors.WithStack(ErrTruncated)
	}
	text := string(raw[:idx])

	var ip string
	var port int
	n, scanErr := fmt.Sscanf(text, "%s %d", &ip, &port)
	if scanErr != nil || n != 2 {
		return "", 0, errors.Wrap(ErrBadPayload, "malformed udp announcement")
	}
	if port < 0 || port > 0xFFFF {
		return "", 0, errors.Wrap(ErrBadPayload, "out-of-range tcp port")
	}
	return ip, uint16(port), nil
}
