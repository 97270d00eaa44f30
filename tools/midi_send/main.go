// midimap/tools/midi_send/main.go

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"

	"rgehrsitz/midimap/pkg/midi"
)

var ctx = context.Background()

func main() {
	addr := flag.String("redis", "localhost:6379", "Redis address")
	input := flag.String("in", "midi_in", "Channel the daemon reads from")
	output := flag.String("out", "midi_out", "Channel the daemon writes to")
	flag.Parse()

	rdb := connectToRedis(*addr)
	defer rdb.Close()

	pubsub := rdb.Subscribe(ctx, *output)
	defer pubsub.Close()
	go printOutput(pubsub.Channel(), os.Stdout)

	startCLI(rdb, *input, os.Stdin)
}

func connectToRedis(addr string) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	return rdb
}

func printOutput(ch <-chan *redis.Message, w io.Writer) {
	for msg := range ch {
		fmt.Fprintf(w, "\n< %s\n", msg.Payload)
	}
}

func startCLI(rdb *redis.Client, channel string, in io.Reader) {
	reader := bufio.NewReader(in)

	for {
		fmt.Print("Enter command (send <hex bytes> or exit): ")
		input, err := reader.ReadString('\n')
		input = strings.TrimSpace(input)

		if input == "exit" || (err != nil && input == "") {
			break
		}

		if err := processCommand(rdb, channel, input); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}
}

func processCommand(rdb *redis.Client, channel, input string) error {
	cmd, rest, _ := strings.Cut(input, " ")
	if cmd != "send" || strings.TrimSpace(rest) == "" {
		return fmt.Errorf("invalid command. Use 'send <hex bytes>'")
	}

	msg, err := midi.ParseHex(rest)
	if err != nil {
		return fmt.Errorf("invalid message %q: %v", rest, err)
	}

	if err := rdb.Publish(ctx, channel, msg.Hex()).Err(); err != nil {
		return fmt.Errorf("error publishing message: %v", err)
	}

	fmt.Printf("> %s\n", msg)
	return nil
}
