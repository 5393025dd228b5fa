package vrpn

// ConnState is one stage of an endpoint's lifecycle. A connection never
// transitions backward.
type ConnState int

const (
	// StateInitial is the state right after a raw transport is handed to
	// the endpoint, before anything has been sent.
	StateInitial ConnState = iota
	// StateCookieExchange is entered once the local cookie has been sent;
	// the endpoint is waiting for the peer's.
	StateCookieExchange
	// StateDescriptionSync is entered once cookies are exchanged and found
	// compatible; pre-registered names are announced here. Implementations
	// routinely conflate this with StateEstablished, and this one does too
	// — it is retained as a distinct value purely so tests can observe it.
	StateDescriptionSync
	// StateEstablished is normal bidirectional operation.
	StateEstablished
	// StateClosing means local shutdown has been initiated: the outbound
	// queue is draining, inbound is still processed until transport EOF.
	StateClosing
	// StateClosed is terminal. Transports are released and any further
	// send fails with ErrNotConnected.
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateCookieExchange:
		return "cookie_exchange"
	case StateDescriptionSync:
		return "description_sync"
	case StateEstablished:
		return "established"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// validNext reports whether to is a legal successor of s. Every state may
// advance to Closed directly (error-driven transitions per spec.md §4.5);
// otherwise only forward, one-hop-or-more, movement along the canonical
// sequence is allowed.
func (s ConnState) validNext(to ConnState) bool {
	if to == StateClosed {
		return true
	}
	return to > s && to <= StateClosing
}
