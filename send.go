package vrpn

import (
	"context"
	"io"
	"net"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vrpn/vrpn-go/wire"
)

func resolveUDPAddr(host string, port uint16) (net.Addr, error) {
	ip := net.ParseIP(host)
	if ip == nil {
		return nil, errors.Wrapf(wire.ErrBadPayload, "invalid udp host %q", host)
	}
	return &net.UDPAddr{IP: ip, Port: int(port)}, nil
}

// Send transmits body as a message of typeID from senderID. The first time
// either ID is used outbound on this connection, its description is sent
// first, on the reliable channel, ahead of the data message (spec.md
// §4.6). class selects the outbound queue: Reliable goes to the TCP queue,
// LowLatency goes to the UDP queue if the low-latency path is up, otherwise
// it falls back to TCP.
func (e *Endpoint) Send(typeID wire.TypeId, senderID wire.SenderId, body []byte, class wire.ClassOfService) error {
	if e.State() == StateClosed {
		return errors.WithStack(ErrNotConnected)
	}
	if err := e.ensureAnnounced(typeID, senderID); err != nil {
		return err
	}

	msg := &wire.GenericMessage{
		Timestamp: nowTimeVal(),
		Sender:    senderID,
		Type:      typeID,
		Body:      body,
		Class:     class,
	}
	return e.enqueue(msg)
}

func (e *Endpoint) ensureAnnounced(typeID wire.TypeId, senderID wire.SenderId) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.announcedSenders[senderID] {
		name, ok := e.senderReg.ByID(senderID)
		if !ok {
			return errors.Errorf("vrpn: unregistered sender id %d", senderID)
		}
		if err := e.writeSystemLocked(wire.SystemTypeSenderDescription, senderID,
			wire.EncodeSenderDescription(&wire.SenderDescription{Name: []byte(name)})); err != nil {
			return err
		}
		e.announcedSenders[senderID] = true
	}

	if !e.announcedTypes[typeID] {
		name, ok := e.typeReg.ByID(typeID)
		if !ok {
			return errors.Errorf("vrpn: unregistered type id %d", typeID)
		}
		if err := e.writeSystemLocked(wire.SystemTypeTypeDescription, wire.SenderId(typeID),
			wire.EncodeTypeDescription(&wire.TypeDescription{Name: []byte(name)})); err != nil {
			return err
		}
		e.announcedTypes[typeID] = true
	}

	return nil
}

// enqueue routes msg to the reliable or low-latency outbound queue and
// returns ErrQueueOverflow rather than blocking if that queue is full.
func (e *Endpoint) enqueue(msg *wire.GenericMessage) error {
	ch := e.reliableOut
	if msg.Class.LowLatency() && e.udpUp() {
		ch = e.lowLatencyOut
	}

	select {
	case ch <- msg:
		return nil
	default:
		e.stats.addQueueOverflow()
		return errors.WithStack(ErrQueueOverflow)
	}
}

func (e *Endpoint) writeMessage(w io.Writer, msg *wire.GenericMessage) error {
	seq := e.seq.Add(1)
	c := wire.NewWriteCursor()
	wire.EncodeMessage(c, msg, &seq)
	_, err := w.Write(c.Bytes())
	return err
}

// sendLoop drains ch onto w in FIFO order until ctx is canceled or Close is
// called, at which point it drains whatever remains within
// Config.CloseDrainTimeout before returning (spec.md §5).
func (e *Endpoint) sendLoop(ctx context.Context, ch chan *wire.GenericMessage, w io.Writer) error {
	for {
		select {
		case <-ctx.Done():
			return errors.WithStack(ctx.Err())
		case <-e.closeCh:
			e.drain(ch, w)
			close(e.drainDone)
			return errors.WithStack(ErrTransportClosed)
		case msg := <-ch:
			if err := e.writeMessage(w, msg); err != nil {
				return errors.Wrapf(ErrTransportIO, "write: %v", err)
			}
			e.stats.addSent()
		}
	}
}

// drain flushes whatever is already buffered in ch, best-effort: by the time
// this runs, Close has been called and closes the transport once this drain
// returns or Config.CloseDrainTimeout elapses, so a write failure here just
// means the peer won't get that last batch of messages rather than a fatal
// connection error; such a message is counted in QueueOverflows. It never
// blocks waiting for more messages to arrive.
func (e *Endpoint) drain(ch chan *wire.GenericMessage, w io.Writer) {
	for {
		select {
		case msg := <-ch:
			if err := e.writeMessage(w, msg); err != nil {
				e.stats.addQueueOverflow()
				e.log.Warn("vrpn: dropping outbound message on close", zap.Error(err))
				continue
			}
			e.stats.addSent()
		default:
			return
		}
	}
}

// udpSendLoop mirrors sendLoop for the low-latency path, but writes are
// non-blocking and lossy: a write failure is logged and the message is
// dropped rather than failing the connection (spec.md §5).
func (e *Endpoint) udpSendLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return errors.WithStack(ctx.Err())
		case <-e.closeCh:
			return nil
		case msg := <-e.lowLatencyOut:
			addr := e.udpPeer()
			if addr == nil {
				continue
			}
			seq := e.seq.Add(1)
			c := wire.NewWriteCursor()
			wire.EncodeMessage(c, msg, &seq)
			if _, err := e.udp.WriteTo(c.Bytes(), addr); err != nil {
				e.log.Warn("vrpn: dropping udp datagram on write error", zap.Error(err))
				continue
			}
			e.stats.addSent()
		}
	}
}

// udpReceiveLoop reads datagrams off the low-latency path and dispatches
// the messages they frame. A malformed datagram or a read error is logged
// and dropped; it never closes the connection (spec.md §7).
func (e *Endpoint) udpReceiveLoop(ctx context.Context) error {
	buf := make([]byte, 64*1024)
	for {
		if ctx.Err() != nil {
			return errors.WithStack(ctx.Err())
		}

		n, _, err := e.udp.ReadFrom(buf)
		if err != nil {
			state := e.State()
			if state == StateClosed || state == StateClosing {
				return errors.WithStack(ErrTransportClosed)
			}
			e.log.Warn("vrpn: udp read error, dropping datagram", zap.Error(err))
			continue
		}

		cur := wire.NewCursor(append([]byte(nil), buf[:n]...))
		msgs, derr := wire.DecodeStream(cur)
		if derr != nil {
			e.log.Warn("vrpn: dropping malformed udp datagram", zap.Error(derr))
			continue
		}
		for _, msg := range msgs {
			e.handleIncoming(msg)
		}
	}
}
