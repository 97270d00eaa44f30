// midimap/pkg/transport/redis_transport.go

package transport

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"rgehrsitz/midimap/pkg/logging"
	"rgehrsitz/midimap/pkg/midi"
)

// RedisTransport reads messages from one pub/sub channel and publishes to another. Payloads are
// space separated hex bytes ("90 3c 7f").
type RedisTransport struct {
	client *redis.Client
	input  string
	output string
}

// NewRedisTransport connects to the Redis server at addr and checks the connection.
func NewRedisTransport(ctx context.Context, addr, password string, db int, input, output string) (*RedisTransport, error) {
	logging.Logger.Info().Str("addr", addr).Int("db", db).Msg("Connecting to Redis")

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, logging.NewError(logging.ErrorTypeTransport, "failed to connect to Redis", err,
			map[string]interface{}{"addr": addr})
	}

	logging.Logger.Info().Msg("Successfully connected to Redis")
	return NewRedisTransportFromClient(client, input, output), nil
}

func NewRedisTransportFromClient(client *redis.Client, input, output string) *RedisTransport {
	return &RedisTransport{client: client, input: input, output: output}
}

func (t *RedisTransport) Listen(ctx context.Context, handle Handler) error {
	logging.Logger.Info().Str("channel", t.input).Msg("Subscribing to Redis channel")

	pubsub := t.client.Subscribe(ctx, t.input)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return logging.NewError(logging.ErrorTypeTransport, "failed to subscribe to Redis channel", err,
			map[string]interface{}{"channel": t.input})
	}
	logging.Logger.Info().Str("channel", t.input).Msg("Successfully subscribed to Redis channel")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				logging.Logger.Info().Str("channel", t.input).Msg("Redis subscription closed")
				return nil
			}
			msg, err := midi.ParseHex(m.Payload)
			if errors.Is(err, midi.ErrEmptyMessage) {
				msg, err = midi.Message{}, nil
			}
			if err != nil {
				logging.LogWarning(logging.Logger, logging.NewError(logging.ErrorTypeTransport, "discarding undecodable payload", err,
					map[string]interface{}{"channel": m.Channel, "payload": m.Payload}))
				continue
			}
			if err := handle(ctx, msg); err != nil {
				logging.LogError(logging.Logger, err)
			}
		}
	}
}

func (t *RedisTransport) Send(ctx context.Context, msg midi.Message) error {
	if err := t.client.Publish(ctx, t.output, msg.Hex()).Err(); err != nil {
		return logging.NewError(logging.ErrorTypeTransport, "failed to publish message", err,
			map[string]interface{}{"channel": t.output, "message": msg.Hex()})
	}
	return nil
}

func (t *RedisTransport) Close() error {
	return t.client.Close()
}
