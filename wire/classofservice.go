package wire

// ClassOfService is a bitmask requesting delivery characteristics for an
// outbound message. The only behaviorally significant distinction in the
// core is Reliable vs LowLatency; FixedLatency/FixedThroughput are
// transported but otherwise advisory.
type ClassOfService uint32

const (
	// ClassReliable routes to the TCP (reliable, ordered) queue.
	ClassReliable ClassOfService = 1 << iota
	// ClassLowLatency routes to the UDP queue when the UDP path is up,
	// falling back to TCP otherwise.
	ClassLowLatency
	// ClassFixedLatency is advisory only.
	ClassFixedLatency
	// ClassFixedThroughput is advisory only.
	ClassFixedThroughput
)

// Reliable reports whether the Reliable flag is set.
func (c ClassOfService) Reliable() bool {
	return c&ClassReliable != 0
}

// LowLatency reports whether the LowLatency flag is set.
func (c ClassOfService) LowLatency() bool {
	return c&ClassLowLatency != 0
}
