// midimap/pkg/transport/transport.go

package transport

import (
	"context"

	"rgehrsitz/midimap/pkg/midi"
)

// Handler is called synchronously for every message a Source receives. The next message is not
// delivered until the handler returns.
type Handler func(ctx context.Context, msg midi.Message) error

// Source delivers incoming messages.
type Source interface {
	// Listen blocks, calling handle once per message, until ctx is cancelled or the stream ends.
	// Handler errors are logged and do not stop the stream.
	Listen(ctx context.Context, handle Handler) error
	Close() error
}

// Sink delivers outgoing messages.
type Sink interface {
	Send(ctx context.Context, msg midi.Message) error
	Close() error
}

// Transport is a connection that is both the input and the output endpoint.
type Transport interface {
	Source
	Sink
}
