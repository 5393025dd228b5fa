package vrpn

import (
	"io"
	"net"
)

// ReliableTransport is the abstract byte-stream endpoint an Endpoint drives
// its TCP-equivalent traffic over. net.Conn and net.Pipe() connections
// satisfy it; opening the concrete socket is the caller's job, not this
// package's (see spec.md §1's Non-goals).
type ReliableTransport interface {
	io.Reader
	io.Writer
	Close() error
}

// UnreliableTransport is the abstract datagram endpoint an Endpoint drives
// its UDP-equivalent, lossy, low-latency traffic over. net.PacketConn
// satisfies it.
type UnreliableTransport interface {
	ReadFrom(p []byte) (n int, addr net.Addr, err error)
	WriteTo(p []byte, addr net.Addr) (n int, err error)
	Close() error
}
