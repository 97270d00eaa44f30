// midimap/tools/midi_stressor/midi_stressor_main_test.go

package main

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rgehrsitz/midimap/pkg/midi"
)

func TestParseFlags(t *testing.T) {
	opts := parseFlags([]string{})
	assert.Equal(t, "localhost:6379", opts.redisAddr)
	assert.Equal(t, "midi_in", opts.channel)
	assert.Equal(t, 100, opts.updateRate)
	assert.Equal(t, 0, opts.count)

	opts = parseFlags([]string{"-rate", "0", "-count", "5", "-channel", "in"})
	assert.Equal(t, 1, opts.updateRate)
	assert.Equal(t, 5, opts.count)
	assert.Equal(t, "in", opts.channel)
}

func TestRandomTripleQualifies(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		tr := randomTriple(rng)
		assert.True(t, tr.Valid(), tr.String())
	}
}

func TestPublish(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx := context.Background()
	pubsub := rdb.Subscribe(ctx, "midi_in")
	defer pubsub.Close()
	_, err = pubsub.Receive(ctx)
	require.NoError(t, err)

	opts := options{channel: "midi_in", updateRate: 1000, count: 3}
	sent, err := publish(ctx, rdb, opts, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, 3, sent)

	for i := 0; i < 3; i++ {
		recvCtx, cancel := context.WithTimeout(ctx, time.Second)
		msg, err := pubsub.ReceiveMessage(recvCtx)
		cancel()
		require.NoError(t, err)

		parsed, err := midi.ParseHex(msg.Payload)
		require.NoError(t, err)
		_, ok := parsed.Triple()
		assert.True(t, ok, msg.Payload)
	}
}

func TestPublishStopsOnCancel(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sent, err := publish(ctx, rdb, options{channel: "midi_in", updateRate: 10}, rand.New(rand.NewSource(1)))
	assert.NoError(t, err)
	assert.Equal(t, 0, sent)
}
