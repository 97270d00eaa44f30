// midimap/pkg/transport/nats_transport_test.go

package transport

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rgehrsitz/midimap/pkg/midi"
)

func runNatsServer(t *testing.T) *server.Server {
	t.Helper()
	ns, err := server.NewServer(&server.Options{
		Host:   "127.0.0.1",
		Port:   server.RANDOM_PORT,
		NoLog:  true,
		NoSigs: true,
	})
	require.NoError(t, err)

	go ns.Start()
	require.True(t, ns.ReadyForConnections(5*time.Second), "nats server not ready")
	t.Cleanup(ns.Shutdown)
	return ns
}

func TestNatsTransportRoundTrip(t *testing.T) {
	ns := runNatsServer(t)

	tr, err := NewNatsTransport(ns.ClientURL(), "midi.in", "midi.out")
	require.NoError(t, err)
	defer tr.Close()

	observer, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	defer observer.Close()

	out, err := observer.SubscribeSync("midi.out")
	require.NoError(t, err)
	require.NoError(t, observer.Flush())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- tr.Listen(ctx, func(ctx context.Context, msg midi.Message) error {
			return tr.Send(ctx, midi.Message{msg[0] + 1, msg[1], msg[2]})
		})
	}()

	// Publish until the listener's subscription is live.
	var m *nats.Msg
	deadline := time.Now().Add(3 * time.Second)
	for m == nil && time.Now().Before(deadline) {
		require.NoError(t, observer.Publish("midi.in", []byte{0x90, 0x10, 0x7F}))
		m, _ = out.NextMsg(100 * time.Millisecond)
	}
	require.NotNil(t, m, "no translated message received")
	assert.Equal(t, []byte{0x91, 0x10, 0x7F}, m.Data)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Listen did not return after cancel")
	}
}

func TestNatsTransportForwardsEmptyPayload(t *testing.T) {
	ns := runNatsServer(t)

	tr, err := NewNatsTransport(ns.ClientURL(), "midi.in", "midi.out")
	require.NoError(t, err)
	defer tr.Close()

	observer, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	defer observer.Close()

	out, err := observer.SubscribeSync("midi.out")
	require.NoError(t, err)
	require.NoError(t, observer.Flush())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go tr.Listen(ctx, func(ctx context.Context, msg midi.Message) error {
		return tr.Send(ctx, msg)
	})

	var m *nats.Msg
	deadline := time.Now().Add(3 * time.Second)
	for m == nil && time.Now().Before(deadline) {
		require.NoError(t, observer.Publish("midi.in", nil))
		m, _ = out.NextMsg(100 * time.Millisecond)
	}
	require.NotNil(t, m, "empty message was not forwarded")
	assert.Empty(t, m.Data)
}

func TestNewNatsTransportUnreachable(t *testing.T) {
	ns := runNatsServer(t)
	url := ns.ClientURL()
	ns.Shutdown()

	_, err := NewNatsTransport(url, "midi.in", "midi.out", nats.Timeout(200*time.Millisecond))
	assert.Error(t, err)
}
