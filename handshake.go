package vrpn

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vrpn/vrpn-go/wire"
)

// handshake performs the TCP-only cookie exchange (spec.md §4.4): each side
// writes its cookie unprompted and reads the peer's. The UDP+TCP variant
// differs only in how the TCP transport came to be open (client announces
// over UDP, server dials back) — a concrete socket concern this package
// does not own (spec.md §1's Non-goals); once a reliable transport exists,
// the handshake below is identical for both modes.
func (e *Endpoint) handshake(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.HandshakeTimeout)
	defer cancel()

	e.setState(StateCookieExchange)

	local := wire.Cookie{
		Major:   wire.CookieVersionMajor,
		Minor:   wire.CookieVersionMinor,
		LogMode: e.cfg.LogMode,
	}.Encode()

	writeErrCh := make(chan error, 1)
	go func() {
		_, err := e.conn.Write(local[:])
		writeErrCh <- err
	}()

	readErrCh := make(chan error, 1)
	remoteBuf := make([]byte, wire.CookieSize)
	go func() {
		_, err := io.ReadFull(e.conn, remoteBuf)
		readErrCh <- err
	}()

	var writeErr, readErr error
	for i := 0; i < 2; i++ {
		select {
		case <-ctx.Done():
			_ = e.conn.Close()
			return e.handshakeTimedOut(ctx.Err())
		case writeErr = <-writeErrCh:
		case readErr = <-readErrCh:
		}
	}

	if writeErr != nil {
		return errors.Wrapf(ErrTransportIO, "writing cookie: %v", writeErr)
	}
	if readErr != nil {
		if errors.Is(readErr, io.EOF) || errors.Is(readErr, io.ErrUnexpectedEOF) {
			return errors.WithStack(ErrTransportClosed)
		}
		return errors.Wrapf(ErrTransportIO, "reading cookie: %v", readErr)
	}

	remote, err := wire.DecodeCookie(remoteBuf)
	if err != nil {
		return err
	}
	if err := wire.CheckCompatible(
		wire.Cookie{Major: wire.CookieVersionMajor, Minor: wire.CookieVersionMinor, LogMode: e.cfg.LogMode},
		remote,
	); err != nil {
		return err
	}
	if remote.Minor != wire.CookieVersionMinor {
		e.log.Info("vrpn: peer minor version differs, proceeding",
			zap.Int("local_minor", wire.CookieVersionMinor), zap.Int("remote_minor", remote.Minor))
	}

	e.setState(StateDescriptionSync)
	if err := e.announceAll(); err != nil {
		return err
	}
	e.setState(StateEstablished)
	return nil
}

func (e *Endpoint) handshakeTimedOut(cause error) error {
	return errors.Wrapf(ErrHandshakeTimeout, "cause: %v", cause)
}

// announceAll queues a SENDER_DESCRIPTION/TYPE_DESCRIPTION on the reliable
// outbound queue for every name registered before Run was called (spec.md
// §4.5's DescriptionSync step). The send/receive pump loops are not started
// until the handshake, this included, has completed, so writing directly
// here would block on a peer that is not reading yet; queued, the
// descriptions go out in order as soon as the reliable sender starts, ahead
// of any data message queued after them. It fails with ErrQueueOverflow if
// more names are pending than Config.OutboundQueueSize holds.
func (e *Endpoint) announceAll() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	announce := func(sysType wire.TypeId, senderSlot wire.SenderId, body []byte) error {
		return e.enqueue(&wire.GenericMessage{
			Timestamp: nowTimeVal(),
			Sender:    senderSlot,
			Type:      sysType,
			Body:      body,
			Class:     wire.ClassReliable,
		})
	}

	for id, name := range e.senderReg.Names() {
		sid := wire.SenderId(id)
		if e.announcedSenders[sid] {
			continue
		}
		if err := announce(wire.SystemTypeSenderDescription, sid,
			wire.EncodeSenderDescription(&wire.SenderDescription{Name: []byte(name)})); err != nil {
			return err
		}
		e.announcedSenders[sid] = true
	}
	for id, name := range e.typeReg.Names() {
		tid := wire.TypeId(id)
		if e.announcedTypes[tid] {
			continue
		}
		if err := announce(wire.SystemTypeTypeDescription, wire.SenderId(tid),
			wire.EncodeTypeDescription(&wire.TypeDescription{Name: []byte(name)})); err != nil {
			return err
		}
		e.announcedTypes[tid] = true
	}
	return nil
}

// writeSystemLocked writes a system message directly to the reliable
// transport. Callers must hold e.mu.
func (e *Endpoint) writeSystemLocked(sysType wire.TypeId, senderSlot wire.SenderId, body []byte) error {
	msg := &wire.GenericMessage{
		Timestamp: nowTimeVal(),
		Sender:    senderSlot,
		Type:      sysType,
		Body:      body,
		Class:     wire.ClassReliable,
	}
	return e.writeMessage(e.conn, msg)
}

// SendUDPAnnouncement sends a UDP_DESCRIPTION message announcing the
// endpoint on which this side accepts low-latency traffic (spec.md §4.4
// step 4). Typically called by the client once Established.
func (e *Endpoint) SendUDPAnnouncement(host string, port uint16) error {
	if e.State() == StateClosed {
		return errors.WithStack(ErrNotConnected)
	}
	msg := &wire.GenericMessage{
		Timestamp: nowTimeVal(),
		Sender:    wire.SenderId(port),
		Type:      wire.SystemTypeUDPDescription,
		Body:      wire.EncodeUDPDescription(&wire.UDPDescription{Host: host}),
		Class:     wire.ClassReliable,
	}
	return e.enqueue(msg)
}

// SendLogDescription sends a LOG_DESCRIPTION message describing the log
// files this side is writing (or empty names for none).
func (e *Endpoint) SendLogDescription(inName, outName string, mode wire.LogMode) error {
	if e.State() == StateClosed {
		return errors.WithStack(ErrNotConnected)
	}
	msg := &wire.GenericMessage{
		Timestamp: nowTimeVal(),
		Sender:    wire.SenderId(mode),
		Type:      wire.SystemTypeLogDescription,
		Body:      wire.EncodeLogDescription(&wire.LogDescription{InName: []byte(inName), OutName: []byte(outName)}),
		Class:     wire.ClassReliable,
	}
	return e.enqueue(msg)
}
