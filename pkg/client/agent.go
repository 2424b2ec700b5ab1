package client

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/corkboard-dev/corkboard/pkg/board"
	"github.com/corkboard-dev/corkboard/pkg/protocol"
)

// ConnState is the agent's connection lifecycle state.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	}
	return "unknown"
}

// Config tunes the agent.
type Config struct {
	// URL is the server's websocket endpoint, e.g. ws://localhost:8090/ws.
	URL string

	// Dialer establishes connections. Defaults to WebsocketDialer.
	Dialer Dialer

	// BackoffBase is the first reconnect delay. Doubles per attempt.
	BackoffBase time.Duration

	// BackoffMax caps the reconnect delay.
	BackoffMax time.Duration

	// DedupWindow suppresses a second note:create at the same board and
	// position within the window. Rapid double-clicks at one spot are
	// one note.
	DedupWindow time.Duration

	Logger *slog.Logger

	// OnError receives error acknowledgments from the server. Optional.
	OnError func(code, message string)
}

func (c *Config) withDefaults() {
	if c.Dialer == nil {
		c.Dialer = WebsocketDialer{}
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 500 * time.Millisecond
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 30 * time.Second
	}
	if c.DedupWindow <= 0 {
		c.DedupWindow = 750 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

type queuedOp struct {
	typ     protocol.MessageType
	payload any
}

type createMark struct {
	boardID string
	x, y    float64
	at      time.Time
}

// Agent mirrors server state over a websocket connection. All methods are
// safe for concurrent use.
type Agent struct {
	cfg Config
	log *slog.Logger

	mu          sync.Mutex
	started     bool
	state       ConnState
	sessionID   string
	activeBoard string
	conn        Conn
	queue       []queuedOp
	recent      []createMark
	cache       *cache

	cancel context.CancelFunc
	done   chan struct{}
}

// New builds an agent. Call Start to begin connecting.
func New(cfg Config) *Agent {
	cfg.withDefaults()
	return &Agent{
		cfg:   cfg,
		log:   cfg.Logger.With("component", "sync-agent"),
		state: StateDisconnected,
		cache: newCache(),
		done:  make(chan struct{}),
	}
}

// Start launches the connection loop. It returns immediately; state
// transitions are observable through State.
func (a *Agent) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.started = true
	a.cancel = cancel
	a.state = StateConnecting
	a.mu.Unlock()
	go a.run(ctx)
}

// Stop tears down the connection and halts reconnection. Queued
// operations are discarded. Safe on an agent that was never started.
func (a *Agent) Stop() {
	a.mu.Lock()
	started := a.started
	cancel := a.cancel
	conn := a.conn
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}
	if !started {
		// run was never launched, so nothing will ever close done.
		return
	}
	<-a.done
}

func (a *Agent) run(ctx context.Context) {
	defer close(a.done)
	defer func() {
		a.mu.Lock()
		a.state = StateDisconnected
		a.conn = nil
		a.mu.Unlock()
	}()

	attempts := 0
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := a.cfg.Dialer.Dial(ctx, a.cfg.URL)
		if err != nil {
			delay := a.backoff(attempts)
			attempts++
			a.log.Warn("dial failed", "error", err, "retry_in", delay)
			a.mu.Lock()
			a.state = StateReconnecting
			a.mu.Unlock()
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return
			}
			continue
		}

		a.mu.Lock()
		a.conn = conn
		a.state = StateConnecting
		a.mu.Unlock()

		err = a.readLoop(ctx, conn)
		conn.Close()
		if ctx.Err() != nil {
			return
		}

		a.mu.Lock()
		connected := a.state == StateConnected
		a.state = StateReconnecting
		a.conn = nil
		a.mu.Unlock()
		if connected {
			attempts = 0
		}

		delay := a.backoff(attempts)
		attempts++
		a.log.Info("connection lost", "error", err, "retry_in", delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}
}

func (a *Agent) backoff(attempts int) time.Duration {
	delay := a.cfg.BackoffBase
	for i := 0; i < attempts; i++ {
		delay *= 2
		if delay >= a.cfg.BackoffMax {
			return a.cfg.BackoffMax
		}
	}
	return delay
}

func (a *Agent) readLoop(ctx context.Context, conn Conn) error {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		env, err := protocol.DecodeEnvelope(data)
		if err != nil {
			a.log.Warn("bad envelope", "error", err)
			continue
		}
		a.handle(ctx, env)
	}
}

func (a *Agent) handle(ctx context.Context, env *protocol.Envelope) {
	switch env.Type {
	case protocol.MsgWelcome:
		var p protocol.WelcomePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			a.log.Warn("bad welcome", "error", err)
			return
		}
		a.onWelcome(p.SessionID)

	case protocol.MsgNoteCreated, protocol.MsgNoteUpdated, protocol.MsgNoteMoved, protocol.MsgEditing:
		var p protocol.NoteEventPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			a.log.Warn("bad note event", "type", env.Type, "error", err)
			return
		}
		a.mu.Lock()
		a.cache.putNote(p.Note)
		a.mu.Unlock()

	case protocol.MsgNoteDeleted:
		var p protocol.NoteDeletedPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			a.log.Warn("bad note event", "type", env.Type, "error", err)
			return
		}
		a.mu.Lock()
		a.cache.removeNote(p.NoteID, p.BoardID)
		a.mu.Unlock()

	case protocol.MsgBoardCreated:
		var p protocol.BoardEventPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			a.log.Warn("bad board event", "type", env.Type, "error", err)
			return
		}
		a.mu.Lock()
		a.cache.putBoard(&board.Board{ID: p.BoardID, Name: p.Name})
		a.mu.Unlock()

	case protocol.MsgBoardDeleted:
		var p protocol.BoardEventPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			a.log.Warn("bad board event", "type", env.Type, "error", err)
			return
		}
		a.mu.Lock()
		a.cache.removeBoard(p.BoardID)
		if a.activeBoard == p.BoardID {
			a.activeBoard = ""
		}
		a.mu.Unlock()

	case protocol.MsgBoardRenamed:
		var p protocol.BoardEventPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			a.log.Warn("bad board event", "type", env.Type, "error", err)
			return
		}
		a.mu.Lock()
		a.cache.renameBoard(p.BoardID, p.Name)
		a.mu.Unlock()

	case protocol.MsgSyncResponse:
		var p protocol.SyncResponsePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			a.log.Warn("bad sync response", "error", err)
			return
		}
		a.mu.Lock()
		a.cache.replaceBoard(p.Board)
		a.mu.Unlock()

	case protocol.MsgError:
		var p protocol.ErrorPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			a.log.Warn("bad error payload", "error", err)
			return
		}
		a.log.Warn("server rejected operation", "code", p.Code, "op", p.Op, "message", p.Message)
		if a.cfg.OnError != nil {
			a.cfg.OnError(p.Code, p.Message)
		}

	default:
		a.log.Debug("ignoring message", "type", env.Type)
	}
}

// onWelcome completes the handshake: adopt the session id, flush the
// offline queue in order, then resubscribe and resync the active board.
func (a *Agent) onWelcome(sessionID string) {
	a.mu.Lock()
	a.sessionID = sessionID
	a.state = StateConnected
	conn := a.conn
	pending := a.queue
	a.queue = nil
	active := a.activeBoard
	a.mu.Unlock()

	a.log.Info("connected", "session_id", sessionID)

	if conn == nil {
		return
	}
	for _, op := range pending {
		a.write(conn, op.typ, op.payload, sessionID)
	}
	if active != "" {
		a.write(conn, protocol.MsgSyncRequest, &protocol.SyncRequestPayload{BoardID: active}, sessionID)
	}
}

func (a *Agent) write(conn Conn, t protocol.MessageType, payload any, sessionID string) {
	data, err := protocol.Encode(t, payload, sessionID)
	if err != nil {
		a.log.Error("encode failed", "type", t, "error", err)
		return
	}
	if err := conn.WriteMessage(data); err != nil {
		a.log.Warn("write failed", "type", t, "error", err)
	}
}

// send writes immediately when connected, otherwise queues for the flush
// that follows the next welcome.
func (a *Agent) send(t protocol.MessageType, payload any) {
	a.mu.Lock()
	if a.state == StateConnected && a.conn != nil {
		conn, sid := a.conn, a.sessionID
		a.mu.Unlock()
		a.write(conn, t, payload, sid)
		return
	}
	a.queue = append(a.queue, queuedOp{typ: t, payload: payload})
	a.mu.Unlock()
}

// OpenBoard switches the active board: leave the previous room, join the
// new one, and request a full snapshot.
func (a *Agent) OpenBoard(boardID string) {
	a.mu.Lock()
	prev := a.activeBoard
	a.activeBoard = boardID
	a.mu.Unlock()

	if prev != "" && prev != boardID {
		a.send(protocol.MsgBoardLeave, &protocol.RoomPayload{BoardID: prev})
	}
	a.send(protocol.MsgSyncRequest, &protocol.SyncRequestPayload{BoardID: boardID})
}

// Resync requests a fresh snapshot of the active board.
func (a *Agent) Resync() {
	a.mu.Lock()
	active := a.activeBoard
	a.mu.Unlock()
	if active != "" {
		a.send(protocol.MsgSyncRequest, &protocol.SyncRequestPayload{BoardID: active})
	}
}

// CreateNote requests a note at a position. A repeat create at the same
// board and coordinates inside the dedup window is dropped.
func (a *Agent) CreateNote(boardID string, x, y float64) {
	now := time.Now()
	a.mu.Lock()
	kept := a.recent[:0]
	dup := false
	for _, m := range a.recent {
		if now.Sub(m.at) > a.cfg.DedupWindow {
			continue
		}
		kept = append(kept, m)
		if m.boardID == boardID && m.x == x && m.y == y {
			dup = true
		}
	}
	a.recent = kept
	if !dup {
		a.recent = append(a.recent, createMark{boardID: boardID, x: x, y: y, at: now})
	}
	a.mu.Unlock()
	if dup {
		return
	}
	a.send(protocol.MsgNoteCreate, &protocol.NoteCreatePayload{BoardID: boardID, X: x, Y: y})
}

// UpdateNote sends a field-granular patch.
func (a *Agent) UpdateNote(noteID string, patch *board.NotePatch) {
	a.send(protocol.MsgNoteUpdate, &protocol.NoteUpdatePayload{NoteID: noteID, Patch: patch})
}

// MoveNote sends a position-only update.
func (a *Agent) MoveNote(noteID string, x, y float64) {
	a.send(protocol.MsgNoteMove, &protocol.NoteMovePayload{NoteID: noteID, X: x, Y: y})
}

// DeleteNote removes a note.
func (a *Agent) DeleteNote(noteID string) {
	a.send(protocol.MsgNoteDelete, &protocol.NoteDeletePayload{NoteID: noteID})
}

// StartEditing marks this session as composing text in a note.
func (a *Agent) StartEditing(noteID string) {
	a.send(protocol.MsgEditingStart, &protocol.EditingPayload{NoteID: noteID})
}

// StopEditing clears this session's composition marker.
func (a *Agent) StopEditing(noteID string) {
	a.send(protocol.MsgEditingEnd, &protocol.EditingPayload{NoteID: noteID})
}

// DeleteBoard removes a board and everything on it.
func (a *Agent) DeleteBoard(boardID string) {
	a.send(protocol.MsgBoardDelete, &protocol.BoardDeletePayload{BoardID: boardID})
}

// RenameBoard renames a board.
func (a *Agent) RenameBoard(boardID, name string) {
	a.send(protocol.MsgBoardRename, &protocol.BoardRenamePayload{BoardID: boardID, Name: name})
}

// AnnounceBoard broadcasts a board already created through the HTTP API.
func (a *Agent) AnnounceBoard(boardID, name string) {
	a.mu.Lock()
	a.cache.putBoard(&board.Board{ID: boardID, Name: name})
	a.mu.Unlock()
	a.send(protocol.MsgBoardCreate, &protocol.BoardCreatePayload{BoardID: boardID, Name: name})
}

// State reports the connection lifecycle state.
func (a *Agent) State() ConnState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// SessionID is the id assigned by the server, empty before the first
// welcome.
func (a *Agent) SessionID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessionID
}

// Boards returns the cached board list in arrival order.
func (a *Agent) Boards() []*board.Board {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cache.boardList()
}

// Board returns the cached board by id.
func (a *Agent) Board(boardID string) (*board.Board, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cache.board(boardID)
}

// Note returns the cached note by id.
func (a *Agent) Note(noteID string) (*board.Note, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cache.note(noteID)
}

// QueueLen reports the number of operations waiting for reconnection.
func (a *Agent) QueueLen() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.queue)
}
