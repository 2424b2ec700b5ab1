package protocol

import (
	"encoding/json"
	"time"

	"github.com/corkboard-dev/corkboard/internal/errors"
)

// MessageType tags the envelope payload union.
type MessageType string

// Inbound operation types.
const (
	MsgNoteCreate   MessageType = "note:create"
	MsgNoteUpdate   MessageType = "note:update"
	MsgNoteDelete   MessageType = "note:delete"
	MsgNoteMove     MessageType = "note:move"
	MsgEditingStart MessageType = "note:editing:start"
	MsgEditingEnd   MessageType = "note:editing:end"
	MsgBoardJoin    MessageType = "board:join"
	MsgBoardLeave   MessageType = "board:leave"
	MsgBoardCreate  MessageType = "board:create"
	MsgBoardDelete  MessageType = "board:delete"
	MsgBoardRename  MessageType = "board:rename"
	MsgSyncRequest  MessageType = "sync:request"
)

// Outbound event types.
const (
	MsgNoteCreated  MessageType = "note:created"
	MsgNoteUpdated  MessageType = "note:updated"
	MsgNoteDeleted  MessageType = "note:deleted"
	MsgNoteMoved    MessageType = "note:moved"
	MsgEditing      MessageType = "note:editing"
	MsgBoardCreated MessageType = "board:created"
	MsgBoardDeleted MessageType = "board:deleted"
	MsgBoardRenamed MessageType = "board:renamed"
	MsgSyncResponse MessageType = "sync:response"
	MsgWelcome      MessageType = "session:welcome"
	MsgError        MessageType = "error"
)

// Envelope is the outer frame carried by every message in both directions.
type Envelope struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
	SessionID string          `json:"sessionId"`
}

// Encode builds an envelope around the payload and marshals it.
func Encode(t MessageType, payload any, sessionID string) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Newf(errors.CategoryProtocol, "encode %s payload: %v", t, err)
	}
	env := Envelope{
		Type:      t,
		Payload:   raw,
		Timestamp: time.Now().UnixMilli(),
		SessionID: sessionID,
	}
	return json.Marshal(env)
}

// MustEncode is Encode for payloads that cannot fail to marshal.
// It panics on error; reserve it for server-constructed payloads.
func MustEncode(t MessageType, payload any, sessionID string) []byte {
	data, err := Encode(t, payload, sessionID)
	if err != nil {
		panic(err)
	}
	return data
}

// DecodeEnvelope parses and validates the outer frame of an inbound
// message. The payload union is resolved separately by DecodePayload.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	if len(data) > MaxMessageBytes {
		return nil, errors.New("E204").WithDetail("%d bytes", len(data))
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.New("E201").Wrap(err)
	}
	if env.Type == "" {
		return nil, errors.New("E201").WithDetail("missing type")
	}
	if env.Timestamp == 0 {
		return nil, errors.New("E201").WithDetail("missing timestamp")
	}
	return &env, nil
}
