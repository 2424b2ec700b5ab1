package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/corkboard-dev/corkboard/internal/errors"
	"github.com/corkboard-dev/corkboard/pkg/board"
	"github.com/corkboard-dev/corkboard/pkg/middleware"
	"github.com/corkboard-dev/corkboard/pkg/protocol"
)

// sessionHeader optionally identifies the caller's realtime session on
// side-channel requests, so board create/delete announcements can exclude
// the session that already applied its optimistic copy.
const sessionHeader = "X-Session-Id"

// routes builds the HTTP surface: the board listing/creation side-channel,
// the WebSocket endpoint, health, and metrics.
func (srv *Server) routes(gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Tracing("corkboard"))
	r.Use(middleware.HTTPMetrics(srv.promRegistry, "corkboard"))

	r.Get("/healthz", srv.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/boards", func(r chi.Router) {
		r.Get("/", srv.handleListBoards)
		r.Post("/", srv.handleCreateBoard)
		r.Delete("/{boardID}", srv.handleDeleteBoard)
		r.Patch("/{boardID}", srv.handleRenameBoard)
	})

	r.Get("/ws", srv.handleWebSocket)
	return r
}

func (srv *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": srv.sessions.Count(),
	})
}

// handleListBoards serves the initial page load: the full board collection.
func (srv *Server) handleListBoards(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, srv.store.GetAllBoards())
}

type createBoardRequest struct {
	Name string `json:"name"`
}

type renameBoardRequest struct {
	Name string `json:"name"`
}

// handleCreateBoard is the authoritative board creation path. The realtime
// layer only announces the result.
func (srv *Server) handleCreateBoard(w http.ResponseWriter, r *http.Request) {
	var req createBoardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	b, err := srv.store.CreateBoard(req.Name)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	srv.hub.BroadcastBoardCreated(b, r.Header.Get(sessionHeader))
	writeJSON(w, http.StatusCreated, b)
}

func (srv *Server) handleDeleteBoard(w http.ResponseWriter, r *http.Request) {
	boardID := chi.URLParam(r, "boardID")
	notes := srv.store.GetNotes(boardID)
	if !srv.store.DeleteBoard(boardID) {
		writeError(w, http.StatusNotFound, "board not found")
		return
	}
	srv.hub.forgetBoard(boardID, notes)
	srv.hub.BroadcastBoardDeleted(boardID, r.Header.Get(sessionHeader))
	w.WriteHeader(http.StatusNoContent)
}

func (srv *Server) handleRenameBoard(w http.ResponseWriter, r *http.Request) {
	var req renameBoardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	b, found, err := srv.store.RenameBoard(chi.URLParam(r, "boardID"), req.Name)
	if !found {
		writeError(w, http.StatusNotFound, "board not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	srv.hub.BroadcastBoardRenamed(b)
	writeJSON(w, http.StatusOK, b)
}

// handleWebSocket upgrades the connection, assigns a session id, sends
// the welcome message, and starts the session loops.
func (srv *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := srv.upgrader.Upgrade(w, r, nil)
	if err != nil {
		srv.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	s := newSession(board.NewID(), conn, srv.hub, srv.config, srv.logger)
	if !srv.sessions.Add(s) {
		srv.logger.Warn("session limit reached, rejecting connection")
		data := protocol.MustEncode(protocol.MsgError, &protocol.ErrorPayload{
			Code:    string(errors.CategoryTransport),
			Message: "session limit reached",
		}, "")
		conn.WriteMessage(websocket.TextMessage, data)
		conn.Close()
		return
	}

	srv.hub.connected(s)
	s.Send(protocol.MustEncode(protocol.MsgWelcome,
		&protocol.WelcomePayload{SessionID: s.ID}, s.ID))
	s.Start()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
