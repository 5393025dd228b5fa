package vrpn

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vrpn/vrpn-go/wire"
)

// receiveLoop reads from the reliable transport, decodes as many complete
// messages as each read yields, and dispatches them. A message split across
// two reads is reassembled by carrying the undecoded tail forward; only a
// transport EOF with a nonempty undecoded tail, or a genuine BadLength
// frame, is treated as the Truncated/BadLength "close the connection"
// condition spec.md §4.5 describes.
func (e *Endpoint) receiveLoop(ctx context.Context) error {
	var pending []byte
	readBuf := make([]byte, 64*1024)

	for {
		if ctx.Err() != nil {
			return errors.WithStack(ctx.Err())
		}

		n, err := e.conn.Read(readBuf)
		if n > 0 {
			pending = append(pending, readBuf[:n]...)

			cur := wire.NewCursor(pending)
			msgs, derr := wire.DecodeStream(cur)
			for _, msg := range msgs {
				e.handleIncoming(msg)
			}
			pending = append([]byte(nil), cur.Tail()...)

			if derr != nil {
				e.log.Error("vrpn: malformed frame, closing connection", zap.Error(derr))
				return derr
			}
		}

		if err != nil {
			select {
			case <-e.closeCh:
				return errors.WithStack(ErrTransportClosed)
			default:
			}
			if len(pending) > 0 {
				e.log.Error("vrpn: transport ended mid-message", zap.Error(wire.ErrTruncated))
				return errors.WithStack(wire.ErrTruncated)
			}
			if errors.Is(err, io.EOF) {
				return errors.WithStack(ErrTransportClosed)
			}
			return errors.Wrapf(ErrTransportIO, "read: %v", err)
		}
	}
}

// handleIncoming routes a decoded GenericMessage to system-message handling
// or to the translation+dispatch path, per spec.md §4.6.
func (e *Endpoint) handleIncoming(msg *wire.GenericMessage) {
	switch msg.Type {
	case wire.SystemTypeSenderDescription:
		e.handleSenderDescription(msg)
	case wire.SystemTypeTypeDescription:
		e.handleTypeDescription(msg)
	case wire.SystemTypeUDPDescription:
		e.handleUDPDescription(msg)
	case wire.SystemTypeLogDescription:
		e.handleLogDescription(msg)
	default:
		e.handleDataMessage(msg)
	}
}

func (e *Endpoint) dropBadPayload(kind string, err error) {
	e.stats.addDropped()
	e.log.Warn("vrpn: dropping malformed "+kind, zap.Error(err))
}

func (e *Endpoint) handleSenderDescription(msg *wire.GenericMessage) {
	desc, err := wire.DecodeSenderDescription(msg.Body)
	if err != nil {
		e.dropBadPayload("sender_description", err)
		return
	}

	e.mu.Lock()
	local := e.senderReg.Register(string(desc.Name))
	err = e.senderTrans.Insert(msg.Sender, local)
	e.mu.Unlock()

	if err != nil {
		e.dropBadPayload("sender_description", err)
	}
}

func (e *Endpoint) handleTypeDescription(msg *wire.GenericMessage) {
	desc, err := wire.DecodeTypeDescription(msg.Body)
	if err != nil {
		e.dropBadPayload("type_description", err)
		return
	}

	remote := wire.TypeId(msg.Sender)
	e.mu.Lock()
	local := e.typeReg.Register(string(desc.Name))
	err = e.typeTrans.Insert(remote, local)
	e.mu.Unlock()

	if err != nil {
		e.dropBadPayload("type_description", err)
	}
}

func (e *Endpoint) handleUDPDescription(msg *wire.GenericMessage) {
	desc, err := wire.DecodeUDPDescription(msg.Body)
	if err != nil {
		e.dropBadPayload("udp_description", err)
		return
	}
	port, err := wire.UDPPortFromSender(msg.Sender)
	if err != nil {
		e.dropBadPayload("udp_description", err)
		return
	}

	addr, err := resolveUDPAddr(desc.Host, port)
	if err != nil {
		e.dropBadPayload("udp_description", err)
		return
	}
	e.setUDPPeer(addr)
	e.log.Info("vrpn: udp low-latency path established", zap.String("host", desc.Host), zap.Uint16("port", port))
}

func (e *Endpoint) handleLogDescription(msg *wire.GenericMessage) {
	desc, err := wire.DecodeLogDescription(msg.Body)
	if err != nil {
		e.dropBadPayload("log_description", err)
		return
	}
	e.log.Info("vrpn: peer log description",
		zap.String("in", string(desc.InName)),
		zap.String("out", string(desc.OutName)),
		zap.Uint32("mode", uint32(msg.Sender)))
}

func (e *Endpoint) handleDataMessage(msg *wire.GenericMessage) {
	e.mu.RLock()
	typeID, typeOK := e.typeTrans.Translate(msg.Type)
	senderID, senderOK := e.senderTrans.Translate(msg.Sender)
	e.mu.RUnlock()

	if !typeOK || !senderOK {
		e.stats.addDropped()
		e.log.Warn("vrpn: dropping message with untranslated remote id",
			zap.Int32("remote_type", int32(msg.Type)), zap.Int32("remote_sender", int32(msg.Sender)))
		return
	}

	translated := &wire.GenericMessage{
		Timestamp: msg.Timestamp,
		Sender:    senderID,
		Type:      typeID,
		Body:      msg.Body,
		Class:     msg.Class,
	}
	e.dispatch(typeID, senderID, translated)
}
