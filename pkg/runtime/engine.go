// midimap/pkg/runtime/engine.go

package runtime

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"rgehrsitz/midimap/pkg/compiler"
	"rgehrsitz/midimap/pkg/logging"
	"rgehrsitz/midimap/pkg/midi"
	"rgehrsitz/midimap/pkg/transport"
)

// Engine translates incoming messages using a compiled table. The table is read-only, so an
// Engine may be used from any number of goroutines.
type Engine struct {
	table   *compiler.Table
	trace   *zerolog.Logger
	metrics *Metrics

	translated     atomic.Uint64
	unmapped       atomic.Uint64
	passthrough    atomic.Uint64
	deliveryErrors atomic.Uint64
	lastMessage    atomic.Int64
}

// Stats is a point-in-time copy of the engine counters.
type Stats struct {
	Translated      uint64    `json:"translated"`
	Unmapped        uint64    `json:"unmapped"`
	Passthrough     uint64    `json:"passthrough"`
	DeliveryErrors  uint64    `json:"delivery_errors"`
	TableEntries    int       `json:"table_entries"`
	LastMessageTime time.Time `json:"last_message_time"`
}

type Option func(*Engine)

// WithTrace logs "hh hh hh -> hh hh hh" for every control message.
func WithTrace(trace zerolog.Logger) Option {
	return func(e *Engine) { e.trace = &trace }
}

func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func NewEngine(table *compiler.Table, opts ...Option) *Engine {
	if table == nil {
		table = &compiler.Table{}
	}
	e := &Engine{table: table}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics != nil {
		e.metrics.tableEntries.Set(float64(table.Len()))
	}
	return e
}

// NewEngineFromFile loads a table written by compiler.WriteTableToFile.
func NewEngineFromFile(filename string, opts ...Option) (*Engine, error) {
	table, err := compiler.ReadTableFromFile(filename)
	if err != nil {
		return nil, err
	}
	return NewEngine(table, opts...), nil
}

// Translate returns the message to forward for msg. Anything that is not a three-byte control
// message is returned as is; so is a control message without a table entry.
func (e *Engine) Translate(msg midi.Message) midi.Message {
	e.lastMessage.Store(time.Now().UnixNano())

	in, ok := msg.Triple()
	if !ok {
		e.passthrough.Add(1)
		if e.metrics != nil {
			e.metrics.passthrough.Inc()
		}
		return msg
	}

	result := msg
	out, hit := e.table.Lookup(in)
	if hit {
		result = out.Message()
		e.translated.Add(1)
		if e.metrics != nil {
			e.metrics.translated.Inc()
		}
	} else {
		out = in
		e.unmapped.Add(1)
		if e.metrics != nil {
			e.metrics.unmapped.Inc()
		}
	}

	if e.trace != nil {
		e.trace.Log().Msg(in.String() + " -> " + out.String())
	}
	return result
}

// Process translates msg and hands the result to sink. A delivery failure is returned to the
// caller unchanged apart from being counted.
func (e *Engine) Process(ctx context.Context, msg midi.Message, sink transport.Sink) error {
	if err := sink.Send(ctx, e.Translate(msg)); err != nil {
		e.deliveryErrors.Add(1)
		if e.metrics != nil {
			e.metrics.deliveryErrors.Inc()
		}
		return err
	}
	return nil
}

// Handler adapts Process to a transport.Source callback.
func (e *Engine) Handler(sink transport.Sink) transport.Handler {
	return func(ctx context.Context, msg midi.Message) error {
		return e.Process(ctx, msg, sink)
	}
}

func (e *Engine) GetStats() Stats {
	stats := Stats{
		Translated:     e.translated.Load(),
		Unmapped:       e.unmapped.Load(),
		Passthrough:    e.passthrough.Load(),
		DeliveryErrors: e.deliveryErrors.Load(),
		TableEntries:   e.table.Len(),
	}
	if ns := e.lastMessage.Load(); ns != 0 {
		stats.LastMessageTime = time.Unix(0, ns)
	}
	return stats
}

// LogStats writes the counters at info level.
func (e *Engine) LogStats() {
	s := e.GetStats()
	logging.Logger.Info().
		Uint64("translated", s.Translated).
		Uint64("unmapped", s.Unmapped).
		Uint64("passthrough", s.Passthrough).
		Uint64("delivery_errors", s.DeliveryErrors).
		Int("table_entries", s.TableEntries).
		Msg("Translation statistics")
}
