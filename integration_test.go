package vrpn_test

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/outofforest/parallel"
	"github.com/outofforest/qa"
	"github.com/stretchr/testify/require"

	vrpn "github.com/vrpn/vrpn-go"
	"github.com/vrpn/vrpn-go/wire"
)

func newPipeEndpoints(t *testing.T, clientCfg, serverCfg vrpn.Config) (*vrpn.Endpoint, *vrpn.Endpoint) {
	t.Helper()
	a, b := net.Pipe()
	clientCfg.Role = vrpn.RoleClient
	serverCfg.Role = vrpn.RoleServer
	return vrpn.NewEndpoint(a, nil, clientCfg), vrpn.NewEndpoint(b, nil, serverCfg)
}

// TestHandshakeReachesEstablished drives a client and server endpoint
// through the TCP-only cookie exchange (spec.md §4.4) over an in-memory
// net.Pipe and asserts both reach Established.
func TestHandshakeReachesEstablished(t *testing.T) {
	requireT := require.New(t)
	ctx := qa.NewContext(t)
	group := qa.NewGroup(ctx, t)
	defer func() {
		group.Exit(nil)
		requireT.NoError(group.Wait())
	}()

	client, server := newPipeEndpoints(t, vrpn.Config{}, vrpn.Config{})

	clientDone := make(chan error, 1)
	serverDone := make(chan error, 1)
	group.Spawn("client", parallel.Continue, func(ctx context.Context) error {
		clientDone <- client.Run(ctx)
		return nil
	})
	group.Spawn("server", parallel.Continue, func(ctx context.Context) error {
		serverDone <- server.Run(ctx)
		return nil
	})

	requireT.Eventually(func() bool {
		return client.State() == vrpn.StateEstablished && server.State() == vrpn.StateEstablished
	}, 2*time.Second, time.Millisecond)

	requireT.NoError(client.Close())
	requireT.NoError(server.Close())
	requireT.NoError(<-clientDone)
	requireT.NoError(<-serverDone)
}

// TestDynamicIDNegotiationOutOfOrder registers the same type/sender names on
// both sides in different orders, then sends a message and checks the
// receiver's handler observes the receiver's own local sender ID, not the wire ID
// (spec.md §4.6).
func TestDynamicIDNegotiationOutOfOrder(t *testing.T) {
	requireT := require.New(t)
	ctx := qa.NewContext(t)
	group := qa.NewGroup(ctx, t)
	defer func() {
		group.Exit(nil)
		requireT.NoError(group.Wait())
	}()

	client, server := newPipeEndpoints(t, vrpn.Config{}, vrpn.Config{})

	// Client registers sender "b" first, then "a"; server registers "a"
	// first, then "b" — local IDs are deliberately swapped across sides.
	client.RegisterSender("b")
	client.RegisterSender("a")
	server.RegisterSender("a")
	server.RegisterSender("b")

	clientType := client.RegisterType("vrpn_Analog Channel")
	server.RegisterType("vrpn_Analog Channel")

	received := make(chan *wire.GenericMessage, 1)
	server.HandleAny("vrpn_Analog Channel", func(msg *wire.GenericMessage) error {
		received <- msg
		return nil
	})

	group.Spawn("client", parallel.Continue, func(ctx context.Context) error {
		_ = client.Run(ctx)
		return nil
	})
	group.Spawn("server", parallel.Continue, func(ctx context.Context) error {
		_ = server.Run(ctx)
		return nil
	})

	requireT.Eventually(func() bool {
		return client.State() == vrpn.StateEstablished && server.State() == vrpn.StateEstablished
	}, 2*time.Second, time.Millisecond)

	aID, ok := client.SenderID("a")
	requireT.True(ok)
	body := wire.EncodeAnalog(&wire.Analog{Channels: []float64{42}})
	requireT.NoError(client.Send(clientType, aID, body, wire.ClassReliable))

	select {
	case msg := <-received:
		wantID, ok := server.SenderID("a")
		requireT.True(ok)
		requireT.Equal(wantID, msg.Sender)
		decoded, err := wire.DecodeAnalog(msg.Body)
		requireT.NoError(err)
		requireT.Equal([]float64{42}, decoded.Channels)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}

	requireT.NoError(client.Close())
	requireT.NoError(server.Close())
}

// TestQueueOverflowIsCountedNotBlocking fills the outbound queue past its
// configured size without a peer draining it and checks Send returns
// ErrQueueOverflow rather than blocking (spec.md §5). The endpoint's send
// loop is never started, so once the first Send's description-announcement
// writes are drained by the background reader below, the data messages
// accumulate in the bounded channel until it is full.
func TestQueueOverflowIsCountedNotBlocking(t *testing.T) {
	requireT := require.New(t)

	a, b := net.Pipe()
	defer func() { _ = a.Close() }()
	defer func() { _ = b.Close() }()
	go func() { _, _ = io.Copy(io.Discard, b) }()

	ep := vrpn.NewEndpoint(a, nil, vrpn.Config{OutboundQueueSize: 2})
	typeID := ep.RegisterType("vrpn_Button Change")
	senderID := ep.RegisterSender("button0")

	body := wire.EncodeButtonChange(&wire.ButtonChange{Buttons: []wire.ButtonChangeEvent{{ID: 0, State: 1}}})

	var lastErr error
	for i := 0; i < 8; i++ {
		lastErr = ep.Send(typeID, senderID, body, wire.ClassReliable)
		if lastErr != nil {
			break
		}
	}
	requireT.ErrorIs(lastErr, vrpn.ErrQueueOverflow)
	requireT.Greater(ep.Stats().QueueOverflows(), uint64(0))
}
