// midimap/pkg/e2e_test.go

package pkg_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rgehrsitz/midimap/pkg/compiler"
	"rgehrsitz/midimap/pkg/runtime"
	"rgehrsitz/midimap/pkg/transport"
)

func TestEndToEnd(t *testing.T) {
	dir := t.TempDir()
	rulesFile := filepath.Join(dir, "rules.map")
	require.NoError(t, os.WriteFile(rulesFile, []byte(strings.Join([]string{
		"# remap the modulation wheel onto expression on every channel",
		"*,01,*|*,0B,*",
		"90,3C,*|90,3D,*",
		"90,ZZ,7F|91,00,00",
		"90,3C,7F|91,00,00",
	}, "\n")), 0644))

	// Compile to a table file and start the engine from it, as the daemon does with table_file.
	table := compiler.Compile(rulesFile)
	tableFile := filepath.Join(dir, "rules.mtab")
	require.NoError(t, compiler.WriteTableToFile(tableFile, table))

	engine, err := runtime.NewEngineFromFile(tableFile)
	require.NoError(t, err)

	ns, err := server.NewServer(&server.Options{Host: "127.0.0.1", Port: server.RANDOM_PORT, NoLog: true, NoSigs: true})
	require.NoError(t, err)
	go ns.Start()
	require.True(t, ns.ReadyForConnections(5*time.Second))
	defer ns.Shutdown()

	tr, err := transport.NewNatsTransport(ns.ClientURL(), "midi.in", "midi.out")
	require.NoError(t, err)
	defer tr.Close()

	client, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	defer client.Close()
	out, err := client.SubscribeSync("midi.out")
	require.NoError(t, err)
	require.NoError(t, client.Flush())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tr.Listen(ctx, engine.Handler(tr))

	// Send a passthrough message until the listener is subscribed.
	var ready *nats.Msg
	deadline := time.Now().Add(3 * time.Second)
	for ready == nil && time.Now().Before(deadline) {
		require.NoError(t, client.Publish("midi.in", []byte{0xFE}))
		ready, _ = out.NextMsg(100 * time.Millisecond)
	}
	require.NotNil(t, ready)
	// Drain the extra passthrough messages.
	for {
		if _, err := out.NextMsg(100 * time.Millisecond); err != nil {
			break
		}
	}

	cases := []struct {
		in, out []byte
	}{
		{[]byte{0xB2, 0x01, 0x40}, []byte{0xB2, 0x0B, 0x40}},
		{[]byte{0x90, 0x3C, 0x7F}, []byte{0x90, 0x3D, 0x7F}},
		{[]byte{0x90, 0x3C, 0x00}, []byte{0x90, 0x3D, 0x00}},
		{[]byte{0x80, 0x3C, 0x00}, []byte{0x80, 0x3C, 0x00}},
		{[]byte{0xF0, 0x7E, 0x7F, 0xF7}, []byte{0xF0, 0x7E, 0x7F, 0xF7}},
	}
	for _, c := range cases {
		require.NoError(t, client.Publish("midi.in", c.in))
	}
	for _, c := range cases {
		m, err := out.NextMsg(2 * time.Second)
		require.NoError(t, err)
		assert.Equal(t, c.out, m.Data)
	}
}
