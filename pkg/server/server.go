package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/corkboard-dev/corkboard/pkg/persist"
	"github.com/corkboard-dev/corkboard/pkg/rooms"
	"github.com/corkboard-dev/corkboard/pkg/state"
)

// Server ties the sync core together: state store, hub, session manager,
// snapshot saver, and the HTTP/WebSocket endpoint. All collaborators are
// explicit instances owned by the process entry point; tests construct
// independent servers freely.
type Server struct {
	config   *Config
	store    *state.Store
	rooms    *rooms.Registry
	sessions *SessionManager
	hub      *Hub
	saver    *Saver
	metrics  *Metrics
	backend  persist.Store
	logger   *slog.Logger

	promRegistry *prometheus.Registry
	upgrader     websocket.Upgrader
	httpServer   *http.Server

	cancel context.CancelFunc
}

// New builds a Server around the given snapshot backend.
func New(config *Config, backend persist.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	config = config.withDefaults()

	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry, "corkboard")

	store := state.New(logger)
	roomReg := rooms.New()
	sessions := NewSessionManager(config.MaxSessions)
	hub := NewHub(store, roomReg, sessions, metrics, config, logger)

	srv := &Server{
		config:       config,
		store:        store,
		rooms:        roomReg,
		sessions:     sessions,
		hub:          hub,
		metrics:      metrics,
		backend:      backend,
		logger:       logger.With("component", "server"),
		promRegistry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
	}
	srv.saver = NewSaver(store, backend, metrics, config.SaveInterval, logger)
	srv.httpServer = &http.Server{
		Addr:         config.Address,
		Handler:      srv.routes(registry),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: 0, // WebSocket connections outlive any write timeout
	}
	return srv
}

// Store exposes the state store, used by tests and the CLI.
func (srv *Server) Store() *state.Store { return srv.store }

// Handler returns the HTTP handler, for mounting under a test server.
func (srv *Server) Handler() http.Handler { return srv.httpServer.Handler }

// Start initializes persistence, loads the last snapshot, and serves
// until Shutdown. It blocks in ListenAndServe.
func (srv *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	srv.cancel = cancel

	if err := srv.backend.Initialize(ctx); err != nil {
		return err
	}
	boards, err := srv.backend.Load(ctx)
	if err != nil {
		return err
	}
	srv.store.Seed(boards)
	srv.logger.Info("state loaded", "boards", len(boards))

	go srv.hub.Run(ctx)
	go srv.saver.Run(ctx)

	srv.logger.Info("listening", "address", srv.config.Address)
	if err := srv.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// StartBackground runs the hub and saver loops without binding a
// listener. Useful when the handler is mounted elsewhere (tests).
func (srv *Server) StartBackground(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	srv.cancel = cancel

	if err := srv.backend.Initialize(runCtx); err != nil {
		return err
	}
	boards, err := srv.backend.Load(runCtx)
	if err != nil {
		return err
	}
	srv.store.Seed(boards)

	go srv.hub.Run(runCtx)
	go srv.saver.Run(runCtx)
	return nil
}

// Shutdown closes sessions, stops the loops, and flushes a final
// snapshot.
func (srv *Server) Shutdown(ctx context.Context) error {
	srv.logger.Info("shutting down")

	var err error
	if srv.httpServer != nil {
		err = srv.httpServer.Shutdown(ctx)
	}
	srv.sessions.CloseAll()
	if srv.cancel != nil {
		srv.cancel()
	}
	srv.saver.Flush()
	return err
}
