package board

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// Coordinate and content bounds enforced on every mutation.
const (
	// MaxCoordinate bounds note positions on each axis. Positions outside
	// [-MaxCoordinate, MaxCoordinate] are clamped on create and rejected
	// on update.
	MaxCoordinate = 100000

	// MaxContentLen caps note content length in characters. Updates over
	// the cap are rejected, never truncated.
	MaxContentLen = 10000

	// MinStickerScale and MaxStickerScale bound sticker scaling.
	MinStickerScale = 0.5
	MaxStickerScale = 2.0
)

// Defaults applied to freshly created notes.
const (
	DefaultColor  = "yellow"
	DefaultWidth  = 200
	DefaultHeight = 160
)

// FontSize is the enumerated note font size.
type FontSize string

const (
	FontSmall  FontSize = "small"
	FontMedium FontSize = "medium"
	FontLarge  FontSize = "large"
)

// Valid reports whether f is one of the enumerated sizes.
func (f FontSize) Valid() bool {
	switch f {
	case FontSmall, FontMedium, FontLarge:
		return true
	}
	return false
}

// Image is an embedded image descriptor on a note.
type Image struct {
	ID      string  `json:"id"`
	Source  string  `json:"source"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
}

// Sticker is a glyph placed on a note.
type Sticker struct {
	ID    string  `json:"id"`
	Glyph string  `json:"glyph"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Scale float64 `json:"scale"`
}

// Note is a positioned content unit on a board.
type Note struct {
	ID        string    `json:"id"`
	BoardID   string    `json:"boardId"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Width     float64   `json:"width"`
	Height    float64   `json:"height"`
	Content   string    `json:"content"`
	Color     string    `json:"color"`
	FontSize  FontSize  `json:"fontSize"`
	Expanded  bool      `json:"isExpanded"`
	Images    []Image   `json:"images"`
	Stickers  []Sticker `json:"stickers"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Version increases by exactly one on every successful mutation.
	Version int64 `json:"version"`

	// EditingBy names the session currently composing text in this note.
	// Empty when idle. Ephemeral presence, not covered by Version.
	EditingBy string `json:"editingBy,omitempty"`
}

// Board is a named canvas owning an ordered list of notes.
type Board struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Notes     []*Note   `json:"notes"`
}

// NewID returns a fresh opaque identifier.
func NewID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// Clamp forces v into [-MaxCoordinate, MaxCoordinate].
func Clamp(v float64) float64 {
	if v < -MaxCoordinate {
		return -MaxCoordinate
	}
	if v > MaxCoordinate {
		return MaxCoordinate
	}
	return v
}

// NewNote builds a note at the clamped position with creation defaults:
// fully expanded, empty content, default color, medium font, version 1.
func NewNote(boardID string, x, y float64) *Note {
	now := time.Now()
	return &Note{
		ID:        NewID(),
		BoardID:   boardID,
		X:         Clamp(x),
		Y:         Clamp(y),
		Width:     DefaultWidth,
		Height:    DefaultHeight,
		Content:   "",
		Color:     DefaultColor,
		FontSize:  FontMedium,
		Expanded:  true,
		Images:    []Image{},
		Stickers:  []Sticker{},
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
}

// Clone returns a deep copy of the note.
func (n *Note) Clone() *Note {
	if n == nil {
		return nil
	}
	c := *n
	c.Images = make([]Image, len(n.Images))
	copy(c.Images, n.Images)
	c.Stickers = make([]Sticker, len(n.Stickers))
	copy(c.Stickers, n.Stickers)
	return &c
}

// Clone returns a deep copy of the board and all its notes.
func (b *Board) Clone() *Board {
	if b == nil {
		return nil
	}
	c := *b
	c.Notes = make([]*Note, len(b.Notes))
	for i, n := range b.Notes {
		c.Notes[i] = n.Clone()
	}
	return &c
}

// CloneAll deep-copies a board collection. Used to take a point-in-time
// snapshot before serialization so an in-flight save never observes a
// concurrent mutation.
func CloneAll(boards []*Board) []*Board {
	out := make([]*Board, len(boards))
	for i, b := range boards {
		out[i] = b.Clone()
	}
	return out
}
