package vrpn

import (
	"context"
	"net"

	"github.com/outofforest/logger"
	"github.com/outofforest/parallel"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ConnHandler configures and runs one freshly-accepted or freshly-dialed
// endpoint. Implementations typically call RegisterType/RegisterSender/
// Handle/HandleAny on ep before running it, then block on ep.Run(ctx).
type ConnHandler func(ctx context.Context, ep *Endpoint) error

// Serve accepts connections from ln and hands each one to a freshly
// constructed Endpoint, per spec.md §5's "the listener itself holds only
// the accepting socket" rule: ln is supplied by the caller (opening the
// concrete listening socket is outside this package's scope), and each
// accepted net.Conn becomes one endpoint's ReliableTransport, never shared
// with any other connection. Grounded on wave's RunServer accept loop,
// adapted: no revision-broadcast fan-out, one handler callback per
// connection instead.
func Serve(ctx context.Context, ln net.Listener, cfg Config, handle ConnHandler) error {
	return parallel.Run(ctx, func(ctx context.Context, spawn parallel.SpawnFn) error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return errors.WithStack(ctx.Err())
				}
				return errors.Wrap(ErrTransportIO, err.Error())
			}

			connCfg := cfg
			connCfg.Role = RoleServer
			ep := NewEndpoint(conn, nil, connCfg)

			spawn("conn", parallel.Continue, func(ctx context.Context) error {
				log := logger.Get(ctx)
				defer func() { _ = conn.Close() }()

				if err := handle(ctx, ep); err != nil && ctx.Err() == nil {
					log.Error("vrpn: connection failed", zap.Stringer("remote", conn.RemoteAddr()), zap.Error(err))
				}
				return nil
			})
		}
	})
}
