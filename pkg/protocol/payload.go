package protocol

import (
	"encoding/json"

	"github.com/corkboard-dev/corkboard/internal/errors"
	"github.com/corkboard-dev/corkboard/pkg/board"
)

// Payload is implemented by every inbound operation payload.
type Payload interface {
	// Validate checks the operation-specific shape rules: required fields
	// present, enumerations in range.
	Validate() error
}

// NoteCreatePayload asks for a note at a position on a board.
type NoteCreatePayload struct {
	BoardID string  `json:"boardId"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

func (p *NoteCreatePayload) Validate() error {
	if p.BoardID == "" {
		return errors.New("E203").WithDetail("note:create requires boardId")
	}
	return nil
}

// NoteUpdatePayload carries a field-granular partial update.
type NoteUpdatePayload struct {
	NoteID string           `json:"noteId"`
	Patch  *board.NotePatch `json:"patch"`
}

func (p *NoteUpdatePayload) Validate() error {
	if p.NoteID == "" {
		return errors.New("E203").WithDetail("note:update requires noteId")
	}
	if p.Patch == nil || p.Patch.IsZero() {
		return errors.New("E203").WithDetail("note:update requires a non-empty patch")
	}
	if p.Patch.FontSize != nil && !p.Patch.FontSize.Valid() {
		return errors.New("E104").WithDetail("got %q", *p.Patch.FontSize)
	}
	if p.Patch.Stickers != nil {
		for _, s := range *p.Patch.Stickers {
			if s.Scale < board.MinStickerScale || s.Scale > board.MaxStickerScale {
				return errors.New("E103").WithDetail("sticker %s scale %g", s.ID, s.Scale)
			}
		}
	}
	return nil
}

// NoteDeletePayload removes a note.
type NoteDeletePayload struct {
	NoteID string `json:"noteId"`
}

func (p *NoteDeletePayload) Validate() error {
	if p.NoteID == "" {
		return errors.New("E203").WithDetail("note:delete requires noteId")
	}
	return nil
}

// NoteMovePayload is the high-frequency position-only update.
type NoteMovePayload struct {
	NoteID string  `json:"noteId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

func (p *NoteMovePayload) Validate() error {
	if p.NoteID == "" {
		return errors.New("E203").WithDetail("note:move requires noteId")
	}
	return nil
}

// EditingPayload marks the start or end of text composition in a note.
type EditingPayload struct {
	NoteID string `json:"noteId"`
}

func (p *EditingPayload) Validate() error {
	if p.NoteID == "" {
		return errors.New("E203").WithDetail("editing ops require noteId")
	}
	return nil
}

// RoomPayload joins or leaves a board's broadcast group.
type RoomPayload struct {
	BoardID string `json:"boardId"`
}

func (p *RoomPayload) Validate() error {
	if p.BoardID == "" {
		return errors.New("E203").WithDetail("room ops require boardId")
	}
	return nil
}

// BoardCreatePayload announces a board that already exists in the store.
// Creation authority lives in the HTTP side-channel; this operation only
// triggers the broadcast to other sessions.
type BoardCreatePayload struct {
	BoardID string `json:"boardId"`
	Name    string `json:"name"`
}

func (p *BoardCreatePayload) Validate() error {
	if p.BoardID == "" {
		return errors.New("E203").WithDetail("board:create requires boardId")
	}
	return nil
}

// BoardDeletePayload removes a board.
type BoardDeletePayload struct {
	BoardID string `json:"boardId"`
}

func (p *BoardDeletePayload) Validate() error {
	if p.BoardID == "" {
		return errors.New("E203").WithDetail("board:delete requires boardId")
	}
	return nil
}

// BoardRenamePayload renames a board in place.
type BoardRenamePayload struct {
	BoardID string `json:"boardId"`
	Name    string `json:"name"`
}

func (p *BoardRenamePayload) Validate() error {
	if p.BoardID == "" {
		return errors.New("E203").WithDetail("board:rename requires boardId")
	}
	if p.Name == "" {
		return errors.New("E203").WithDetail("board:rename requires name")
	}
	return nil
}

// SyncRequestPayload asks for a full snapshot of one board.
type SyncRequestPayload struct {
	BoardID string `json:"boardId"`
}

func (p *SyncRequestPayload) Validate() error {
	if p.BoardID == "" {
		return errors.New("E203").WithDetail("sync:request requires boardId")
	}
	return nil
}

// DecodePayload resolves the payload union for an inbound envelope and
// validates the result. Unknown types are rejected; there is no default
// passthrough.
func DecodePayload(env *Envelope) (Payload, error) {
	var p Payload
	switch env.Type {
	case MsgNoteCreate:
		p = &NoteCreatePayload{}
	case MsgNoteUpdate:
		p = &NoteUpdatePayload{}
	case MsgNoteDelete:
		p = &NoteDeletePayload{}
	case MsgNoteMove:
		p = &NoteMovePayload{}
	case MsgEditingStart, MsgEditingEnd:
		p = &EditingPayload{}
	case MsgBoardJoin, MsgBoardLeave:
		p = &RoomPayload{}
	case MsgBoardCreate:
		p = &BoardCreatePayload{}
	case MsgBoardDelete:
		p = &BoardDeletePayload{}
	case MsgBoardRename:
		p = &BoardRenamePayload{}
	case MsgSyncRequest:
		p = &SyncRequestPayload{}
	default:
		return nil, errors.New("E202").WithDetail("type %q", env.Type)
	}

	if err := json.Unmarshal(env.Payload, p); err != nil {
		return nil, errors.New("E203").Wrap(err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
