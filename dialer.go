package vrpn

import (
	"context"
	"time"

	"github.com/outofforest/logger"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Connector opens a fresh reliable transport and, optionally, an unreliable
// one for the low-latency path. Opening the concrete socket is the caller's
// concern (spec.md §1's Non-goals); Connector only hands back the already-
// open transports.
type Connector func(ctx context.Context) (ReliableTransport, UnreliableTransport, error)

// DialAndRun repeatedly connects via dial, runs one Endpoint over the
// result through handle, and on any non-context failure waits backoff
// before retrying, until ctx is canceled. Grounded on wave's Client.Run
// reconnect loop, adapted to a single connector instead of a fan-out over
// client.config.Servers.
func DialAndRun(ctx context.Context, dial Connector, cfg Config, backoff time.Duration, handle ConnHandler) error {
	if backoff <= 0 {
		backoff = time.Second
	}
	log := logger.Get(ctx)
	cfg.Role = RoleClient

	for {
		err := runOnce(ctx, dial, cfg, handle)
		if ctx.Err() != nil {
			return errors.WithStack(ctx.Err())
		}

		log.Error("vrpn: connection failed, reconnecting", zap.Duration("backoff", backoff), zap.Error(err))
		select {
		case <-ctx.Done():
			return errors.WithStack(ctx.Err())
		case <-time.After(backoff):
		}
	}
}

func runOnce(ctx context.Context, dial Connector, cfg Config, handle ConnHandler) error {
	conn, udp, err := dial(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()
	if udp != nil {
		defer func() { _ = udp.Close() }()
	}

	ep := NewEndpoint(conn, udp, cfg)
	return handle(ctx, ep)
}
