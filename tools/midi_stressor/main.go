// midimap/tools/midi_stressor/main.go

package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/schollz/progressbar/v3"

	"rgehrsitz/midimap/pkg/midi"
)

type options struct {
	redisAddr  string
	channel    string
	updateRate int
	count      int
}

func parseFlags(args []string) options {
	var opts options
	fs := flag.NewFlagSet("midi_stressor", flag.ExitOnError)
	fs.StringVar(&opts.redisAddr, "redis", "localhost:6379", "Redis address")
	fs.StringVar(&opts.channel, "channel", "midi_in", "Channel to publish messages on")
	fs.IntVar(&opts.updateRate, "rate", 100, "Number of messages per second")
	fs.IntVar(&opts.count, "count", 0, "Stop after this many messages (0 runs until interrupted)")
	fs.Parse(args)
	if opts.updateRate <= 0 {
		opts.updateRate = 1
	}
	return opts
}

var statusKinds = []uint8{midi.NoteOff, midi.NoteOn, midi.PolyPressure, midi.ControlChange, midi.ProgramChange, midi.ChannelPressure, midi.PitchBend}

// randomTriple returns a qualifying three-byte message.
func randomTriple(rng *rand.Rand) midi.Triple {
	var status uint8
	if rng.Intn(20) == 0 {
		status = midi.SongPosition
	} else {
		status = statusKinds[rng.Intn(len(statusKinds))] | uint8(rng.Intn(16))
	}
	return midi.Triple{status, uint8(rng.Intn(midi.DataCount)), uint8(rng.Intn(midi.DataCount))}
}

// publish sends n messages (or runs until ctx ends when n is 0) at the given rate.
func publish(ctx context.Context, rdb *redis.Client, opts options, rng *rand.Rand) (int, error) {
	ticker := time.NewTicker(time.Second / time.Duration(opts.updateRate))
	defer ticker.Stop()

	var bar *progressbar.ProgressBar
	if opts.count > 0 {
		bar = progressbar.Default(int64(opts.count), "publishing")
	}

	sent := 0
	for opts.count == 0 || sent < opts.count {
		select {
		case <-ctx.Done():
			return sent, nil
		case <-ticker.C:
		}

		msg := randomTriple(rng).Message()
		if err := rdb.Publish(ctx, opts.channel, msg.Hex()).Err(); err != nil {
			return sent, fmt.Errorf("error publishing message: %w", err)
		}
		sent++
		if bar != nil {
			bar.Add(1)
		} else if sent%opts.updateRate == 0 {
			fmt.Printf("Published %d messages, last %s\n", sent, msg)
		}
	}
	return sent, nil
}

func main() {
	opts := parseFlags(os.Args[1:])

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rdb := redis.NewClient(&redis.Options{
		Addr: opts.redisAddr,
	})
	defer rdb.Close()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		fmt.Printf("Failed to connect to Redis: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Connected to Redis at %s\n", opts.redisAddr)
	fmt.Printf("Publishing on %s at a rate of %d per second\n", opts.channel, opts.updateRate)

	sent, err := publish(ctx, rdb, opts, rand.New(rand.NewSource(time.Now().UnixNano())))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nPublished %d messages\n", sent)
}
