package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/corkboard-dev/corkboard/internal/errors"
	"github.com/corkboard-dev/corkboard/pkg/board"
	"github.com/corkboard-dev/corkboard/pkg/protocol"
	"github.com/corkboard-dev/corkboard/pkg/rooms"
	"github.com/corkboard-dev/corkboard/pkg/state"
)

// Error codes surfaced in error acks for soft failures that carry no
// registered code.
const (
	ackCodeNotFound = "not_found"
	ackCodeInternal = "internal"
)

type inboundMsg struct {
	session *Session
	data    []byte
}

// Hub is the single ingress point for all state-changing WebSocket
// traffic: it validates inbound operations, applies them to the state
// store, and fans out broadcast events to board groups.
//
// Operations are processed by one goroutine (Run) in arrival order, so
// within a connection no reordering occurs and same-field conflicts
// resolve to whichever update arrives last at the hub.
type Hub struct {
	store    *state.Store
	rooms    *rooms.Registry
	sessions *SessionManager
	metrics  *Metrics
	config   *Config
	logger   *slog.Logger

	inbound chan inboundMsg

	// editing tracks presence renewal times for the TTL sweep.
	editingMu sync.Mutex
	editing   map[string]editingEntry
}

type editingEntry struct {
	sessionID string
	renewedAt time.Time
}

// NewHub wires the hub to its collaborators. All instances are explicitly
// constructed and injected; there is no package-level state.
func NewHub(store *state.Store, reg *rooms.Registry, sessions *SessionManager,
	metrics *Metrics, config *Config, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		store:    store,
		rooms:    reg,
		sessions: sessions,
		metrics:  metrics,
		config:   config.withDefaults(),
		logger:   logger.With("component", "hub"),
		inbound:  make(chan inboundMsg, 1024),
		editing:  make(map[string]editingEntry),
	}
}

// Run processes inbound operations and sweeps expired editing presence.
// It blocks until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	sweep := time.NewTicker(h.config.EditingTTL / 3)
	defer sweep.Stop()

	for {
		select {
		case msg := <-h.inbound:
			h.process(msg.session, msg.data)

		case <-sweep.C:
			h.expireEditing()

		case <-ctx.Done():
			return
		}
	}
}

// ingest queues a raw inbound message for processing. Blocks when the
// queue is full, applying backpressure to that connection's read loop.
func (h *Hub) ingest(s *Session, data []byte) {
	h.inbound <- inboundMsg{session: s, data: data}
}

// connected registers a fresh session.
func (h *Hub) connected(s *Session) {
	h.metrics.RecordSessionOpen()
	h.logger.Info("session connected", "session", s.ID)
}

// disconnected cleans up after a closed session: drop room memberships
// and clear any editing presence it still held.
func (h *Hub) disconnected(s *Session) {
	h.sessions.Remove(s.ID)
	h.rooms.Drop(s.ID)
	h.metrics.RecordSessionClose()
	h.metrics.SetRooms(h.rooms.RoomCount())

	h.editingMu.Lock()
	for noteID, e := range h.editing {
		if e.sessionID == s.ID {
			delete(h.editing, noteID)
		}
	}
	h.editingMu.Unlock()

	for _, n := range h.store.ClearEditingBy(s.ID) {
		h.broadcastToBoard(n.BoardID, protocol.MustEncode(
			protocol.MsgEditing, &protocol.NoteEventPayload{Note: n}, s.ID))
	}

	h.logger.Info("session disconnected", "session", s.ID)
}

// process interprets one inbound message: envelope validation, payload
// decoding, state mutation, then broadcast. Failures of any kind are
// reported only to the originating session and never touch shared state.
func (h *Hub) process(s *Session, data []byte) {
	env, err := protocol.DecodeEnvelope(data)
	if err != nil {
		h.sendError(s, "", err)
		return
	}
	if env.SessionID == "" {
		h.sendError(s, env.Type, errors.New("E201").WithDetail("missing sessionId"))
		return
	}

	payload, err := protocol.DecodePayload(env)
	if err != nil {
		h.sendError(s, env.Type, err)
		return
	}

	start := time.Now()
	err = h.apply(s, env.Type, payload)
	h.metrics.RecordOp(string(env.Type), err, start)
	if err != nil {
		h.sendError(s, env.Type, err)
	}
}

// apply routes a validated operation to the state store and emits the
// resulting broadcast. Returned errors become error acks to the sender.
func (h *Hub) apply(s *Session, op protocol.MessageType, payload protocol.Payload) error {
	switch p := payload.(type) {
	case *protocol.NoteCreatePayload:
		n, ok := h.store.CreateNote(p.BoardID, p.X, p.Y)
		if !ok {
			return notFound("board", p.BoardID)
		}
		h.broadcastToBoard(n.BoardID, protocol.MustEncode(
			protocol.MsgNoteCreated, &protocol.NoteEventPayload{Note: n}, s.ID))

	case *protocol.NoteUpdatePayload:
		n, found, err := h.store.UpdateNote(p.NoteID, p.Patch)
		if !found {
			return notFound("note", p.NoteID)
		}
		if err != nil {
			return err
		}
		h.broadcastToBoard(n.BoardID, protocol.MustEncode(
			protocol.MsgNoteUpdated, &protocol.NoteEventPayload{Note: n}, s.ID))

	case *protocol.NoteMovePayload:
		n, found, err := h.store.MoveNote(p.NoteID, p.X, p.Y)
		if !found {
			return notFound("note", p.NoteID)
		}
		if err != nil {
			return err
		}
		h.broadcastToBoard(n.BoardID, protocol.MustEncode(
			protocol.MsgNoteMoved, &protocol.NoteEventPayload{Note: n}, s.ID))

	case *protocol.NoteDeletePayload:
		n, ok := h.store.GetNote(p.NoteID)
		if !ok {
			return notFound("note", p.NoteID)
		}
		h.store.DeleteNote(p.NoteID)
		h.dropEditing(p.NoteID)
		h.broadcastToBoard(n.BoardID, protocol.MustEncode(
			protocol.MsgNoteDeleted,
			&protocol.NoteDeletedPayload{NoteID: n.ID, BoardID: n.BoardID}, s.ID))

	case *protocol.EditingPayload:
		editor := s.ID
		if op == protocol.MsgEditingEnd {
			editor = ""
		}
		n, ok := h.store.SetEditing(p.NoteID, editor)
		if !ok {
			return notFound("note", p.NoteID)
		}
		h.trackEditing(p.NoteID, editor)
		h.broadcastToBoard(n.BoardID, protocol.MustEncode(
			protocol.MsgEditing, &protocol.NoteEventPayload{Note: n}, s.ID))

	case *protocol.RoomPayload:
		if op == protocol.MsgBoardJoin {
			if _, ok := h.store.GetBoard(p.BoardID); !ok {
				return notFound("board", p.BoardID)
			}
			h.rooms.Join(s.ID, p.BoardID)
		} else {
			h.rooms.Leave(s.ID, p.BoardID)
		}
		h.metrics.SetRooms(h.rooms.RoomCount())

	case *protocol.BoardCreatePayload:
		// Creation authority is the HTTP side-channel; by the time this
		// fires the board must already exist in the store. The sender has
		// its own optimistic copy, so the announcement goes to others.
		b, ok := h.store.GetBoard(p.BoardID)
		if !ok {
			return notFound("board", p.BoardID)
		}
		h.broadcastAllExcept(s.ID, protocol.MustEncode(
			protocol.MsgBoardCreated,
			&protocol.BoardEventPayload{BoardID: b.ID, Name: b.Name}, s.ID))

	case *protocol.BoardDeletePayload:
		notes := h.store.GetNotes(p.BoardID)
		if !h.store.DeleteBoard(p.BoardID) {
			return notFound("board", p.BoardID)
		}
		h.forgetBoard(p.BoardID, notes)
		h.broadcastAllExcept(s.ID, protocol.MustEncode(
			protocol.MsgBoardDeleted,
			&protocol.BoardEventPayload{BoardID: p.BoardID}, s.ID))

	case *protocol.BoardRenamePayload:
		b, found, err := h.store.RenameBoard(p.BoardID, p.Name)
		if !found {
			return notFound("board", p.BoardID)
		}
		if err != nil {
			return err
		}
		// No optimistic side-channel path exists for rename, so the
		// announcement includes the sender.
		h.broadcastAllExcept("", protocol.MustEncode(
			protocol.MsgBoardRenamed,
			&protocol.BoardEventPayload{BoardID: b.ID, Name: b.Name}, s.ID))

	case *protocol.SyncRequestPayload:
		b, ok := h.store.GetBoard(p.BoardID)
		if !ok {
			return notFound("board", p.BoardID)
		}
		// Resync implies subscription: a reconnecting client re-enters
		// the board group through the same request that recovers state.
		h.rooms.Join(s.ID, p.BoardID)
		h.metrics.SetRooms(h.rooms.RoomCount())
		s.Send(protocol.MustEncode(
			protocol.MsgSyncResponse, &protocol.SyncResponsePayload{Board: b}, s.ID))

	default:
		return errors.New("E202").WithDetail("type %q", op)
	}
	return nil
}

// BroadcastBoardCreated announces a board created through the HTTP
// side-channel. exceptSessionID excludes the creator's realtime session
// when the request identifies one.
func (h *Hub) BroadcastBoardCreated(b *board.Board, exceptSessionID string) {
	h.broadcastAllExcept(exceptSessionID, protocol.MustEncode(
		protocol.MsgBoardCreated,
		&protocol.BoardEventPayload{BoardID: b.ID, Name: b.Name}, exceptSessionID))
}

// BroadcastBoardDeleted announces a side-channel board deletion.
func (h *Hub) BroadcastBoardDeleted(boardID, exceptSessionID string) {
	h.broadcastAllExcept(exceptSessionID, protocol.MustEncode(
		protocol.MsgBoardDeleted,
		&protocol.BoardEventPayload{BoardID: boardID}, exceptSessionID))
}

// BroadcastBoardRenamed announces a side-channel rename to everyone.
func (h *Hub) BroadcastBoardRenamed(b *board.Board) {
	h.broadcastAllExcept("", protocol.MustEncode(
		protocol.MsgBoardRenamed,
		&protocol.BoardEventPayload{BoardID: b.ID, Name: b.Name}, ""))
}

// broadcastToBoard fans a message out to every member of the board's
// group, including the originating session: the sender's cache converges
// through the same path as everyone else's.
func (h *Hub) broadcastToBoard(boardID string, data []byte) {
	members := h.rooms.Members(boardID)
	for _, id := range members {
		if s, ok := h.sessions.Get(id); ok {
			s.Send(data)
		}
	}
	h.metrics.RecordBroadcast(len(members))
}

// broadcastAllExcept sends to the entire connected population, optionally
// excluding one session. Board identity is global, not board-scoped.
func (h *Hub) broadcastAllExcept(exceptID string, data []byte) {
	count := 0
	h.sessions.Each(func(s *Session) {
		if s.ID == exceptID {
			return
		}
		s.Send(data)
		count++
	})
	h.metrics.RecordBroadcast(count)
}

// sendError emits a scoped error ack to the originating session only.
func (h *Hub) sendError(s *Session, op protocol.MessageType, err error) {
	code := ackCodeInternal
	msg := err.Error()
	if ce, ok := err.(*errors.Error); ok {
		if ce.Code != "" {
			code = ce.Code
		} else {
			code = string(ce.Category)
		}
	} else if errors.IsCategory(err, errors.CategoryValidation) {
		code = string(errors.CategoryValidation)
	}
	if isNotFound(err) {
		code = ackCodeNotFound
	}

	h.logger.Debug("operation rejected", "session", s.ID, "op", op, "error", err)
	s.Send(protocol.MustEncode(protocol.MsgError, &protocol.ErrorPayload{
		Code:    code,
		Message: msg,
		Op:      op,
	}, s.ID))
}

// forgetBoard tears down the realtime state attached to a deleted board:
// its broadcast group and the editing entries of its notes. Without this
// the rooms gauge overcounts and dead memberships linger on long-lived
// sessions.
func (h *Hub) forgetBoard(boardID string, notes []*board.Note) {
	h.rooms.DropBoard(boardID)
	h.metrics.SetRooms(h.rooms.RoomCount())

	h.editingMu.Lock()
	for _, n := range notes {
		delete(h.editing, n.ID)
	}
	h.editingMu.Unlock()
}

// trackEditing records or clears a presence renewal for the TTL sweep.
func (h *Hub) trackEditing(noteID, sessionID string) {
	h.editingMu.Lock()
	defer h.editingMu.Unlock()
	if sessionID == "" {
		delete(h.editing, noteID)
		return
	}
	h.editing[noteID] = editingEntry{sessionID: sessionID, renewedAt: time.Now()}
}

func (h *Hub) dropEditing(noteID string) {
	h.editingMu.Lock()
	delete(h.editing, noteID)
	h.editingMu.Unlock()
}

// expireEditing clears presence markers that were never renewed within
// the TTL, covering editors that died without editing-end.
func (h *Hub) expireEditing() {
	cutoff := time.Now().Add(-h.config.EditingTTL)

	h.editingMu.Lock()
	var stale []string
	for noteID, e := range h.editing {
		if e.renewedAt.Before(cutoff) {
			stale = append(stale, noteID)
			delete(h.editing, noteID)
		}
	}
	h.editingMu.Unlock()

	for _, noteID := range stale {
		if n, ok := h.store.SetEditing(noteID, ""); ok {
			h.broadcastToBoard(n.BoardID, protocol.MustEncode(
				protocol.MsgEditing, &protocol.NoteEventPayload{Note: n}, ""))
		}
	}
	if len(stale) > 0 {
		h.metrics.RecordEditingExpired(len(stale))
		h.logger.Info("expired stale editing presence", "count", len(stale))
	}
}

// notFoundError is the soft failure for an operation referencing an id
// that does not exist. It reaches only the originating session's error
// ack and never corrupts shared state.
type notFoundError struct {
	kind string
	id   string
}

func (e *notFoundError) Error() string {
	return e.kind + " " + e.id + " not found"
}

func notFound(kind, id string) error {
	return &notFoundError{kind: kind, id: id}
}

func isNotFound(err error) bool {
	_, ok := err.(*notFoundError)
	return ok
}
