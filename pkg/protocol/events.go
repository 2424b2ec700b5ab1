package protocol

import (
	"github.com/corkboard-dev/corkboard/pkg/board"
)

// Outbound event payloads. These are server-constructed and always marshal.

// NoteEventPayload carries the post-mutation note for created, updated,
// moved, and editing events. Receivers replace their cached copy wholesale;
// updates are idempotent because the note carries its version.
type NoteEventPayload struct {
	Note *board.Note `json:"note"`
}

// NoteDeletedPayload identifies a removed note.
type NoteDeletedPayload struct {
	NoteID  string `json:"noteId"`
	BoardID string `json:"boardId"`
}

// BoardEventPayload carries board identity for board-level events.
// Board events omit the notes list; note state flows through note events
// and sync responses.
type BoardEventPayload struct {
	BoardID string `json:"boardId"`
	Name    string `json:"name,omitempty"`
}

// SyncResponsePayload ships the full current board, including all notes.
// Resync always sends a complete snapshot; there is no operation log.
type SyncResponsePayload struct {
	Board *board.Board `json:"board"`
}

// WelcomePayload gives a new connection its session id.
type WelcomePayload struct {
	SessionID string `json:"sessionId"`
}

// ErrorPayload is a scoped error acknowledgment sent only to the
// originating session. Errors are never broadcast.
type ErrorPayload struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Op      MessageType `json:"op,omitempty"`
}
