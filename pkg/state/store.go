package state

import (
	"log/slog"
	"sync"
	"time"

	"github.com/corkboard-dev/corkboard/pkg/board"
)

// Store is the authoritative in-memory store of boards and notes.
//
// Boards own their notes; a secondary flat index (note id -> note) exists
// purely for O(1) lookup and is kept in lockstep with the per-board lists
// on every mutation path.
type Store struct {
	mu sync.RWMutex

	boards map[string]*board.Board
	order  []string // board ids in creation order

	// notes is the flat index. Every entry's note also appears in its
	// owning board's Notes list, and vice versa.
	notes map[string]*board.Note

	// generation increases on every successful mutation. The snapshot
	// loop records the generation it serialized and clears dirty only if
	// no mutation landed in between.
	generation uint64
	savedGen   uint64

	logger *slog.Logger
}

// New creates an empty Store.
func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		boards: make(map[string]*board.Board),
		notes:  make(map[string]*board.Note),
		logger: logger.With("component", "state"),
	}
}

// Seed replaces the store contents with a loaded board collection.
// Intended for startup, before any session is connected. Seeding does not
// mark the store dirty.
func (s *Store) Seed(boards []*board.Board) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.boards = make(map[string]*board.Board, len(boards))
	s.notes = make(map[string]*board.Note)
	s.order = s.order[:0]

	for _, b := range boards {
		c := b.Clone()
		s.boards[c.ID] = c
		s.order = append(s.order, c.ID)
		for _, n := range c.Notes {
			s.notes[n.ID] = n
		}
	}
}

// CreateBoard allocates a fresh board with the trimmed name.
func (s *Store) CreateBoard(name string) (*board.Board, error) {
	trimmed, err := board.ValidateName(name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	b := &board.Board{
		ID:        board.NewID(),
		Name:      trimmed,
		CreatedAt: now,
		UpdatedAt: now,
		Notes:     []*board.Note{},
	}
	s.boards[b.ID] = b
	s.order = append(s.order, b.ID)
	s.generation++

	s.logger.Info("board created", "board", b.ID, "name", trimmed)
	return b.Clone(), nil
}

// DeleteBoard removes the board and cascades removal of its notes from the
// flat index. Idempotent: reports false without error if the board is absent.
func (s *Store) DeleteBoard(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.boards[id]
	if !ok {
		return false
	}
	for _, n := range b.Notes {
		delete(s.notes, n.ID)
	}
	delete(s.boards, id)
	for i, bid := range s.order {
		if bid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.generation++

	s.logger.Info("board deleted", "board", id, "notes", len(b.Notes))
	return true
}

// RenameBoard updates the board name in place. Returns (nil, false, nil)
// when the board is unknown and (nil, true, err) when the board exists but
// the new name fails validation, mirroring UpdateNote: found reports
// existence, err reports validity.
func (s *Store) RenameBoard(id, name string) (*board.Board, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.boards[id]
	if !ok {
		return nil, false, nil
	}

	trimmed, err := board.ValidateName(name)
	if err != nil {
		return nil, true, err
	}
	b.Name = trimmed
	b.UpdatedAt = time.Now()
	s.generation++

	return b.Clone(), true, nil
}

// CreateNote creates a note on the board at the clamped position.
// Reports false when the board is unknown.
func (s *Store) CreateNote(boardID string, x, y float64) (*board.Note, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.boards[boardID]
	if !ok {
		s.logger.Warn("create note on unknown board", "board", boardID)
		return nil, false
	}

	n := board.NewNote(boardID, x, y)
	b.Notes = append(b.Notes, n)
	b.UpdatedAt = n.CreatedAt
	s.notes[n.ID] = n
	s.generation++

	return n.Clone(), true
}

// UpdateNote merges the patch into the stored note, field by field.
// The merged result is re-validated against every note invariant before
// commit; a rejected merge leaves the prior state fully intact.
// Reports (nil, false, nil) when the note is unknown.
func (s *Store) UpdateNote(id string, patch *board.NotePatch) (*board.Note, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notes[id]
	if !ok {
		return nil, false, nil
	}

	// Merge into a copy, validate, then commit. The stored note is never
	// mutated until the merged result has passed validation.
	merged := n.Clone()
	patch.ApplyTo(merged)
	if err := merged.Validate(); err != nil {
		return nil, true, err
	}

	merged.Version = n.Version + 1
	merged.UpdatedAt = time.Now()
	s.commitNote(merged)
	s.generation++

	return merged.Clone(), true, nil
}

// MoveNote is the position-only fast path. It participates in the same
// versioning and validation as UpdateNote.
func (s *Store) MoveNote(id string, x, y float64) (*board.Note, bool, error) {
	return s.UpdateNote(id, board.MovePatch(x, y))
}

// SetEditing sets or clears a note's editingBy presence marker. Presence is
// ephemeral view-state: it bypasses the version bump. Reports false when
// the note is unknown.
func (s *Store) SetEditing(id, sessionID string) (*board.Note, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notes[id]
	if !ok {
		return nil, false
	}
	n.EditingBy = sessionID
	return n.Clone(), true
}

// ClearEditingBy clears the presence marker on every note held by the
// given session and returns the affected notes. Used when a session
// disconnects without sending editing-end.
func (s *Store) ClearEditingBy(sessionID string) []*board.Note {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cleared []*board.Note
	for _, n := range s.notes {
		if n.EditingBy == sessionID {
			n.EditingBy = ""
			cleared = append(cleared, n.Clone())
		}
	}
	return cleared
}

// DeleteNote removes the note from the flat index and from its owning
// board's list. Idempotent: reports false if absent.
func (s *Store) DeleteNote(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notes[id]
	if !ok {
		return false
	}
	delete(s.notes, id)

	if b, ok := s.boards[n.BoardID]; ok {
		for i, bn := range b.Notes {
			if bn.ID == id {
				b.Notes = append(b.Notes[:i], b.Notes[i+1:]...)
				break
			}
		}
		b.UpdatedAt = time.Now()
	}
	s.generation++

	return true
}

// GetBoard returns a deep copy of the board, or (nil, false) for a miss.
func (s *Store) GetBoard(id string) (*board.Board, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.boards[id]
	if !ok {
		return nil, false
	}
	return b.Clone(), true
}

// GetAllBoards returns deep copies of all boards in creation order.
func (s *Store) GetAllBoards() []*board.Board {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*board.Board, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.boards[id].Clone())
	}
	return out
}

// GetNote returns a deep copy of the note, or (nil, false) for a miss.
func (s *Store) GetNote(id string) (*board.Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.notes[id]
	if !ok {
		return nil, false
	}
	return n.Clone(), true
}

// GetNotes returns deep copies of the board's notes, in board order.
// Returns an empty slice for an unknown board.
func (s *Store) GetNotes(boardID string) []*board.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.boards[boardID]
	if !ok {
		return []*board.Note{}
	}
	out := make([]*board.Note, len(b.Notes))
	for i, n := range b.Notes {
		out[i] = n.Clone()
	}
	return out
}

// Dirty reports whether a mutation landed since the last completed save.
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation != s.savedGen
}

// Snapshot returns a point-in-time deep copy of the board collection along
// with the generation it captures. Pass the generation to MarkSaved after
// a successful save.
func (s *Store) Snapshot() ([]*board.Board, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*board.Board, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.boards[id].Clone())
	}
	return out, s.generation
}

// MarkSaved records that the given generation reached durable storage.
// Mutations that landed after the snapshot keep the store dirty.
func (s *Store) MarkSaved(generation uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if generation > s.savedGen {
		s.savedGen = generation
	}
}

// commitNote swaps the merged note into both the flat index and the
// owning board's list, keeping the two in lockstep.
func (s *Store) commitNote(merged *board.Note) {
	s.notes[merged.ID] = merged
	if b, ok := s.boards[merged.BoardID]; ok {
		for i, bn := range b.Notes {
			if bn.ID == merged.ID {
				b.Notes[i] = merged
				break
			}
		}
		b.UpdatedAt = merged.UpdatedAt
	}
}
