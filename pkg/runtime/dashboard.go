// midimap/pkg/runtime/dashboard.go

package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rgehrsitz/midimap/pkg/logging"
)

type StatsProvider interface {
	GetStats() Stats
}

type Dashboard struct {
	engine         StatsProvider
	port           int
	gatherer       prometheus.Gatherer
	clients        map[*websocket.Conn]bool
	clientsMutex   sync.Mutex
	updateInterval time.Duration
}

// writeWait bounds a single stats push to one client.
const writeWait = time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NewDashboard serves engine statistics. gatherer may be nil, in which case /metrics is not
// registered.
func NewDashboard(engine StatsProvider, port int, updateInterval time.Duration, gatherer prometheus.Gatherer) *Dashboard {
	return &Dashboard{
		engine:         engine,
		port:           port,
		gatherer:       gatherer,
		clients:        make(map[*websocket.Conn]bool),
		updateInterval: updateInterval,
	}
}

func (d *Dashboard) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", d.handleHealth)
	mux.HandleFunc("/api/stats", d.handleStats)
	mux.HandleFunc("/events", d.handleWebSocket)
	if d.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(d.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// Start serves the dashboard until ctx is cancelled.
func (d *Dashboard) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", d.port),
		Handler:           d.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go d.broadcastUpdates(ctx)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		d.closeClients()
	}()

	logging.Logger.Info().Int("port", d.port).Msg("Dashboard starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return logging.NewError(logging.ErrorTypeRuntime, "dashboard server failed", err,
			map[string]interface{}{"port": d.port})
	}
	return nil
}

func (d *Dashboard) handleHealth(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "Server is running")
}

func (d *Dashboard) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(d.engine.GetStats()); err != nil {
		logging.Logger.Error().Err(err).Msg("Error encoding stats")
	}
}

func (d *Dashboard) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Logger.Warn().Err(err).Msg("Error upgrading to WebSocket")
		return
	}
	defer conn.Close()

	logging.Logger.Debug().Str("remote", conn.RemoteAddr().String()).Msg("Client connected")

	d.clientsMutex.Lock()
	d.clients[conn] = true
	d.clientsMutex.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	d.clientsMutex.Lock()
	delete(d.clients, conn)
	d.clientsMutex.Unlock()

	logging.Logger.Debug().Str("remote", conn.RemoteAddr().String()).Msg("Client disconnected")
}

func (d *Dashboard) broadcastUpdates(ctx context.Context) {
	ticker := time.NewTicker(d.updateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.broadcast()
		}
	}
}

func (d *Dashboard) broadcast() {
	message, err := json.Marshal(d.engine.GetStats())
	if err != nil {
		logging.Logger.Error().Err(err).Msg("Error marshaling stats")
		return
	}

	// Writes happen outside the lock so a slow client cannot hold up connects and disconnects.
	d.clientsMutex.Lock()
	clients := make([]*websocket.Conn, 0, len(d.clients))
	for client := range d.clients {
		clients = append(clients, client)
	}
	d.clientsMutex.Unlock()

	var failed []*websocket.Conn
	for _, client := range clients {
		client.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
			logging.Logger.Debug().Err(err).Msg("Error sending message to client")
			client.Close()
			failed = append(failed, client)
		}
	}

	if len(failed) == 0 {
		return
	}
	d.clientsMutex.Lock()
	for _, client := range failed {
		delete(d.clients, client)
	}
	d.clientsMutex.Unlock()
}

func (d *Dashboard) closeClients() {
	d.clientsMutex.Lock()
	defer d.clientsMutex.Unlock()
	for client := range d.clients {
		client.Close()
		delete(d.clients, client)
	}
}
