// Package vrpn implements the VRPN connection state machine and endpoint
// dispatcher: handshake, dynamic type/sender identifier negotiation over an
// abstract byte-stream transport, and demultiplexing of decoded messages to
// registered handlers. The wire-level codec lives in package wire; the
// per-side identifier tables live in package registry.
package vrpn

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/outofforest/logger"
	"github.com/outofforest/parallel"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vrpn/vrpn-go/registry"
	"github.com/vrpn/vrpn-go/wire"
)

// Default tunables, per spec.md §5.
const (
	DefaultHandshakeTimeout  = 30 * time.Second
	DefaultCloseDrainTimeout = 5 * time.Second
	DefaultOutboundQueueSize = 64
)

// Config configures an Endpoint.
type Config struct {
	Role              PeerRole
	LogMode           wire.LogMode
	HandshakeTimeout  time.Duration
	CloseDrainTimeout time.Duration
	OutboundQueueSize int
}

func (c Config) withDefaults() Config {
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.CloseDrainTimeout == 0 {
		c.CloseDrainTimeout = DefaultCloseDrainTimeout
	}
	if c.OutboundQueueSize == 0 {
		c.OutboundQueueSize = DefaultOutboundQueueSize
	}
	return c
}

// Endpoint owns one logical connection to a peer: handshake state, the
// translation tables, pending outbound queues per class of service, and
// registered handlers. It exclusively owns its transport handles for the
// duration of the connection — nothing here is shared across endpoints
// (spec.md §5).
type Endpoint struct {
	cfg  Config
	conn ReliableTransport
	udp  UnreliableTransport

	log *zap.Logger

	mu    sync.RWMutex
	state ConnState

	typeReg   *registry.TypeRegistry
	senderReg *registry.SenderRegistry

	typeTrans   *registry.TranslationTable[wire.TypeId]
	senderTrans *registry.TranslationTable[wire.SenderId]

	announcedTypes   map[wire.TypeId]bool
	announcedSenders map[wire.SenderId]bool

	handlers  map[wire.TypeId][]handlerEntry
	errorSink func(error)

	udpPeerAddr net.Addr // guarded by mu

	reliableOut   chan *wire.GenericMessage
	lowLatencyOut chan *wire.GenericMessage

	closeCh   chan struct{}
	drainDone chan struct{}
	closeOnce sync.Once

	seq atomic.Uint32

	stats EndpointStats
}

// NewEndpoint constructs an Endpoint over an already-open reliable
// transport and an optional unreliable transport (nil if this connection
// never negotiates a UDP low-latency path). Opening the concrete sockets is
// the caller's responsibility (spec.md §1's Non-goals).
func NewEndpoint(conn ReliableTransport, udp UnreliableTransport, cfg Config) *Endpoint {
	cfg = cfg.withDefaults()
	return &Endpoint{
		cfg:              cfg,
		conn:             conn,
		udp:              udp,
		log:              zap.NewNop(),
		state:            StateInitial,
		typeReg:          registry.NewTypeRegistry(),
		senderReg:        registry.NewSenderRegistry(),
		typeTrans:        registry.NewTranslationTable[wire.TypeId](),
		senderTrans:      registry.NewTranslationTable[wire.SenderId](),
		announcedTypes:   map[wire.TypeId]bool{},
		announcedSenders: map[wire.SenderId]bool{},
		handlers:         map[wire.TypeId][]handlerEntry{},
		reliableOut:      make(chan *wire.GenericMessage, cfg.OutboundQueueSize),
		lowLatencyOut:    make(chan *wire.GenericMessage, cfg.OutboundQueueSize),
		closeCh:          make(chan struct{}),
		drainDone:        make(chan struct{}),
	}
}

// RegisterType pre-registers a type name, returning its local ID. Call
// before Run so the name is included in DescriptionSync.
func (e *Endpoint) RegisterType(name string) wire.TypeId {
	return e.typeReg.Register(name)
}

// RegisterSender pre-registers a sender name, returning its local ID. Call
// before Run so the name is included in DescriptionSync.
func (e *Endpoint) RegisterSender(name string) wire.SenderId {
	return e.senderReg.Register(name)
}

// TypeID returns the local ID registered for name, if any.
func (e *Endpoint) TypeID(name string) (wire.TypeId, bool) {
	return e.typeReg.ByName(name)
}

// SenderID returns the local ID registered for name, if any.
func (e *Endpoint) SenderID(name string) (wire.SenderId, bool) {
	return e.senderReg.ByName(name)
}

// State returns the endpoint's current connection state.
func (e *Endpoint) State() ConnState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Stats returns the endpoint's counters.
func (e *Endpoint) Stats() *EndpointStats {
	return &e.stats
}

func (e *Endpoint) setState(s ConnState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.state.validNext(s) {
		return
	}
	e.state = s
}

// Close initiates local shutdown: state moves to Closing, the reliable
// sender gets up to Config.CloseDrainTimeout to flush whatever is already
// buffered, then the transports are closed — which is what unblocks
// receiveLoop's blocking Read, so it happens unconditionally once the grace
// period elapses (or the sender finishes early), not left for Run's
// goroutines to notice closeCh on their own.
func (e *Endpoint) Close() error {
	e.setState(StateClosing)
	e.closeOnce.Do(func() {
		close(e.closeCh)
		go func() {
			select {
			case <-e.drainDone:
			case <-time.After(e.cfg.CloseDrainTimeout):
			}
			e.transitionClosed()
		}()
	})
	return nil
}

func (e *Endpoint) transitionClosed() {
	e.setState(StateClosed)
	_ = e.conn.Close()
	if e.udp != nil {
		_ = e.udp.Close()
	}
}

// Run drives the endpoint to completion: performs the handshake, then pumps
// inbound and outbound traffic until ctx is canceled, Close is called, or
// the transport fails. Each of the receive loop and the per-class send
// loops runs under its own supervised goroutine (spec.md §9's "single
// select-loop task per endpoint", realized the way wave's client/server
// connection loops spawn a "receiver" and a "sender" under parallel.Run).
func (e *Endpoint) Run(ctx context.Context) error {
	e.log = logger.Get(ctx)

	if err := e.handshake(ctx); err != nil {
		e.transitionClosed()
		return err
	}

	defer e.transitionClosed()

	err := parallel.Run(ctx, func(ctx context.Context, spawn parallel.SpawnFn) error {
		spawn("receiver", parallel.Fail, e.receiveLoop)
		spawn("reliable-sender", parallel.Fail, func(ctx context.Context) error {
			return e.sendLoop(ctx, e.reliableOut, e.conn)
		})
		if e.udp != nil {
			spawn("udp-sender", parallel.Fail, e.udpSendLoop)
			spawn("udp-receiver", parallel.Fail, e.udpReceiveLoop)
		}
		return nil
	})

	// A locally-initiated Close closes the transport to unblock the
	// goroutines above; the ErrTransportClosed that produces is the
	// expected outcome, not a failure, so it is not returned to the caller.
	select {
	case <-e.closeCh:
		if errors.Is(err, ErrTransportClosed) {
			return nil
		}
	default:
	}
	return err
}

func (e *Endpoint) udpUp() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.udp != nil && e.udpPeerAddr != nil
}

func (e *Endpoint) setUDPPeer(addr net.Addr) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.udpPeerAddr = addr
}

func (e *Endpoint) udpPeer() net.Addr {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.udpPeerAddr
}

func nowTimeVal() wire.TimeVal {
	now := time.Now()
	return wire.TimeVal{Sec: int32(now.Unix()), Usec: int32(now.Nanosecond() / 1000)}
}
