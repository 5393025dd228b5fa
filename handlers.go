package vrpn

import (
	"go.uber.org/zap"

	"github.com/vrpn/vrpn-go/wire"
)

// anySenderID is a sentinel used in the handler table for handlers
// registered without a sender filter. It can never collide with a real
// SenderId: those are either non-negative (dynamically allocated) or one of
// the four reserved system values -1..-4.
const anySenderID wire.SenderId = -1 << 30

// HandlerFunc handles one decoded message addressed to a local type/sender
// pair. Its error return is reported to the endpoint's error sink (see
// Endpoint.OnError) and does not close the connection.
type HandlerFunc func(msg *wire.GenericMessage) error

type handlerEntry struct {
	sender wire.SenderId // anySenderID for a sender-agnostic handler
	fn     HandlerFunc
}

// Handle registers fn for messages of typeName sent by senderName. Both
// names are registered (assigning local IDs if new) so the names are known
// to DescriptionSync even if nothing is ever received or sent against them
// yet.
func (e *Endpoint) Handle(typeName, senderName string, fn HandlerFunc) {
	typeID := e.typeReg.Register(typeName)
	senderID := e.senderReg.Register(senderName)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[typeID] = append(e.handlers[typeID], handlerEntry{sender: senderID, fn: fn})
}

// HandleAny registers fn for messages of typeName from any sender.
func (e *Endpoint) HandleAny(typeName string, fn HandlerFunc) {
	typeID := e.typeReg.Register(typeName)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[typeID] = append(e.handlers[typeID], handlerEntry{sender: anySenderID, fn: fn})
}

// OnError registers the connection-wide sink for handler errors (spec.md
// §7). Only one sink may be registered; the most recent call wins. If
// never called, handler errors are logged through the endpoint's logger.
func (e *Endpoint) OnError(fn func(error)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errorSink = fn
}

// dispatch runs every handler registered for (typeID, senderID) plus every
// sender-agnostic handler registered for typeID, in registration order.
func (e *Endpoint) dispatch(typeID wire.TypeId, senderID wire.SenderId, msg *wire.GenericMessage) {
	e.mu.RLock()
	entries := e.handlers[typeID]
	sink := e.errorSink
	e.mu.RUnlock()

	for _, entry := range entries {
		if entry.sender != senderID && entry.sender != anySenderID {
			continue
		}
		if err := entry.fn(msg); err != nil {
			e.stats.addHandlerError()
			if sink != nil {
				sink(err)
			} else {
				e.log.Error("vrpn handler error", zap.Error(err))
			}
		}
	}
}
