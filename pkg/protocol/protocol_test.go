package protocol

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/corkboard-dev/corkboard/internal/errors"
	"github.com/corkboard-dev/corkboard/pkg/board"
)

func TestEncodeDecodeEnvelope(t *testing.T) {
	data, err := Encode(MsgNoteCreate, &NoteCreatePayload{BoardID: "b1", X: 10, Y: 20}, "s1")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	env, err := DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	if env.Type != MsgNoteCreate || env.SessionID != "s1" {
		t.Errorf("env = %+v", env)
	}
	if env.Timestamp == 0 {
		t.Error("Encode must stamp the envelope")
	}

	p, err := DecodePayload(env)
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	create, ok := p.(*NoteCreatePayload)
	if !ok {
		t.Fatalf("payload type %T", p)
	}
	if create.BoardID != "b1" || create.X != 10 || create.Y != 20 {
		t.Errorf("payload = %+v", create)
	}
}

func TestDecodeEnvelopeMalformed(t *testing.T) {
	cases := map[string][]byte{
		"not json":          []byte("{nope"),
		"missing type":      []byte(`{"payload":{},"timestamp":1,"sessionId":"s"}`),
		"missing timestamp": []byte(`{"type":"note:create","payload":{},"sessionId":"s"}`),
	}
	for name, data := range cases {
		if _, err := DecodeEnvelope(data); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestDecodeEnvelopeTooLarge(t *testing.T) {
	big := append([]byte(`{"type":"note:update","timestamp":1,"payload":"`),
		bytes.Repeat([]byte("x"), MaxMessageBytes)...)
	big = append(big, []byte(`"}`)...)

	_, err := DecodeEnvelope(big)
	if err == nil {
		t.Fatal("oversized message should be rejected")
	}
	if !errors.IsCategory(err, errors.CategoryProtocol) {
		t.Errorf("error category = %v", err)
	}
}

func TestDecodePayloadUnknownType(t *testing.T) {
	env := &Envelope{Type: "note:explode", Payload: []byte(`{}`), Timestamp: 1}
	if _, err := DecodePayload(env); err == nil {
		t.Error("unknown operation type should be rejected")
	}
}

func TestDecodePayloadShapeValidation(t *testing.T) {
	cases := []struct {
		name    string
		typ     MessageType
		payload string
	}{
		{"create without board", MsgNoteCreate, `{"x":1,"y":2}`},
		{"update without note", MsgNoteUpdate, `{"patch":{"content":"x"}}`},
		{"update with empty patch", MsgNoteUpdate, `{"noteId":"n1","patch":{}}`},
		{"update with bad font", MsgNoteUpdate, `{"noteId":"n1","patch":{"fontSize":"giant"}}`},
		{"update with bad scale", MsgNoteUpdate, `{"noteId":"n1","patch":{"stickers":[{"id":"s","glyph":"g","scale":3}]}}`},
		{"move without note", MsgNoteMove, `{"x":1,"y":2}`},
		{"delete without note", MsgNoteDelete, `{}`},
		{"editing without note", MsgEditingStart, `{}`},
		{"join without board", MsgBoardJoin, `{}`},
		{"rename without name", MsgBoardRename, `{"boardId":"b1"}`},
		{"sync without board", MsgSyncRequest, `{}`},
		{"wrong field type", MsgNoteMove, `{"noteId":"n1","x":"left"}`},
	}
	for _, tc := range cases {
		env := &Envelope{Type: tc.typ, Payload: []byte(tc.payload), Timestamp: 1, SessionID: "s"}
		if _, err := DecodePayload(env); err == nil {
			t.Errorf("%s: expected rejection", tc.name)
		}
	}
}

func TestDecodePayloadEveryInboundType(t *testing.T) {
	cases := []struct {
		typ     MessageType
		payload string
	}{
		{MsgNoteCreate, `{"boardId":"b1","x":1,"y":2}`},
		{MsgNoteUpdate, `{"noteId":"n1","patch":{"content":"hi"}}`},
		{MsgNoteDelete, `{"noteId":"n1"}`},
		{MsgNoteMove, `{"noteId":"n1","x":5,"y":6}`},
		{MsgEditingStart, `{"noteId":"n1"}`},
		{MsgEditingEnd, `{"noteId":"n1"}`},
		{MsgBoardJoin, `{"boardId":"b1"}`},
		{MsgBoardLeave, `{"boardId":"b1"}`},
		{MsgBoardCreate, `{"boardId":"b1","name":"B"}`},
		{MsgBoardDelete, `{"boardId":"b1"}`},
		{MsgBoardRename, `{"boardId":"b1","name":"B2"}`},
		{MsgSyncRequest, `{"boardId":"b1"}`},
	}
	for _, tc := range cases {
		env := &Envelope{Type: tc.typ, Payload: []byte(tc.payload), Timestamp: 1, SessionID: "s"}
		if _, err := DecodePayload(env); err != nil {
			t.Errorf("%s: %v", tc.typ, err)
		}
	}
}

func TestNotePatchWireRoundTrip(t *testing.T) {
	content := "Goals"
	expanded := false
	raw, err := json.Marshal(&NoteUpdatePayload{
		NoteID: "n1",
		Patch:  &board.NotePatch{Content: &content, Expanded: &expanded},
	})
	if err != nil {
		t.Fatal(err)
	}

	var decoded NoteUpdatePayload
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Patch.Content == nil || *decoded.Patch.Content != "Goals" {
		t.Error("content pointer lost in transit")
	}
	if decoded.Patch.Expanded == nil || *decoded.Patch.Expanded {
		t.Error("false boolean must survive as a set field, not an absent one")
	}
	if decoded.Patch.X != nil {
		t.Error("absent fields must stay nil")
	}
}
