// midimap/pkg/transport/nats_transport.go

package transport

import (
	"context"
	"errors"

	"github.com/nats-io/nats.go"

	"rgehrsitz/midimap/pkg/logging"
	"rgehrsitz/midimap/pkg/midi"
)

// NatsTransport reads raw message bytes from one subject and publishes to another.
type NatsTransport struct {
	conn   *nats.Conn
	input  string
	output string
}

func NewNatsTransport(url, input, output string, opts ...nats.Option) (*NatsTransport, error) {
	logging.Logger.Info().Str("url", url).Msg("Connecting to NATS")

	opts = append([]nats.Option{nats.Name("midimap")}, opts...)
	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, logging.NewError(logging.ErrorTypeTransport, "failed to connect to NATS", err,
			map[string]interface{}{"url": url})
	}

	logging.Logger.Info().Str("server", conn.ConnectedUrl()).Msg("Successfully connected to NATS")
	return &NatsTransport{conn: conn, input: input, output: output}, nil
}

func (t *NatsTransport) Listen(ctx context.Context, handle Handler) error {
	sub, err := t.conn.SubscribeSync(t.input)
	if err != nil {
		return logging.NewError(logging.ErrorTypeTransport, "failed to subscribe to NATS subject", err,
			map[string]interface{}{"subject": t.input})
	}
	defer sub.Unsubscribe()

	if err := t.conn.Flush(); err != nil {
		return logging.NewError(logging.ErrorTypeTransport, "failed to flush NATS subscription", err,
			map[string]interface{}{"subject": t.input})
	}
	logging.Logger.Info().Str("subject", t.input).Msg("Successfully subscribed to NATS subject")

	for {
		m, err := sub.NextMsgWithContext(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, nats.ErrConnectionClosed) || errors.Is(err, nats.ErrBadSubscription) {
				return nil
			}
			return logging.NewError(logging.ErrorTypeTransport, "failed to receive NATS message", err,
				map[string]interface{}{"subject": t.input})
		}
		if err := handle(ctx, midi.Message(m.Data)); err != nil {
			logging.LogError(logging.Logger, err)
		}
	}
}

func (t *NatsTransport) Send(_ context.Context, msg midi.Message) error {
	if err := t.conn.Publish(t.output, msg); err != nil {
		return logging.NewError(logging.ErrorTypeTransport, "failed to publish message", err,
			map[string]interface{}{"subject": t.output, "message": msg.Hex()})
	}
	return nil
}

func (t *NatsTransport) Close() error {
	t.conn.Close()
	return nil
}
