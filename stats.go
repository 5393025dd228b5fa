package vrpn

import "sync/atomic"

// EndpointStats exposes the counters spec.md §7's "drop and continue" /
// "report to error sink" policies leave otherwise invisible: how many
// messages were sent, dropped on decode, overflowed a full outbound queue
// (or failed to write during the close-time drain), or failed in a handler.
// Safe for concurrent reads while the endpoint runs.
type EndpointStats struct {
	messagesSent    atomic.Uint64
	messagesDropped atomic.Uint64
	queueOverflows  atomic.Uint64
	handlerErrors   atomic.Uint64
}

// MessagesSent returns the number of messages successfully handed to a
// transport.
func (s *EndpointStats) MessagesSent() uint64 { return s.messagesSent.Load() }

// MessagesDropped returns the number of inbound messages dropped due to a
// codec or translation error.
func (s *EndpointStats) MessagesDropped() uint64 { return s.messagesDropped.Load() }

// QueueOverflows returns the number of outbound messages dropped because
// their class's queue was full, plus those dropped because their write
// failed during the close-time drain.
func (s *EndpointStats) QueueOverflows() uint64 { return s.queueOverflows.Load() }

// HandlerErrors returns the number of errors returned by application
// handlers.
func (s *EndpointStats) HandlerErrors() uint64 { return s.handlerErrors.Load() }

func (s *EndpointStats) addSent()          { s.messagesSent.Add(1) }
func (s *EndpointStats) addDropped()       { s.messagesDropped.Add(1) }
func (s *EndpointStats) addQueueOverflow() { s.queueOverflows.Add(1) }
func (s *EndpointStats) addHandlerError()  { s.handlerErrors.Add(1) }
