package client

import (
	"github.com/corkboard-dev/corkboard/pkg/board"
)

// cache is the client's local mirror of server state. It is only ever
// touched under the agent's mutex.
type cache struct {
	boards map[string]*board.Board
	order  []string
	notes  map[string]*board.Note
}

func newCache() *cache {
	return &cache{
		boards: make(map[string]*board.Board),
		notes:  make(map[string]*board.Note),
	}
}

// putBoard inserts or replaces a board shell. Existing notes are kept
// unless the incoming board carries its own note list.
func (c *cache) putBoard(b *board.Board) {
	if b == nil {
		return
	}
	existing, ok := c.boards[b.ID]
	clone := b.Clone()
	if ok && len(clone.Notes) == 0 {
		clone.Notes = existing.Notes
	}
	if !ok {
		c.order = append(c.order, b.ID)
	}
	c.boards[b.ID] = clone
	for _, n := range clone.Notes {
		c.notes[n.ID] = n
	}
}

// replaceBoard installs a full snapshot, discarding whatever notes were
// cached for that board before.
func (c *cache) replaceBoard(b *board.Board) {
	if b == nil {
		return
	}
	if old, ok := c.boards[b.ID]; ok {
		for _, n := range old.Notes {
			delete(c.notes, n.ID)
		}
	} else {
		c.order = append(c.order, b.ID)
	}
	clone := b.Clone()
	c.boards[b.ID] = clone
	for _, n := range clone.Notes {
		c.notes[n.ID] = n
	}
}

func (c *cache) removeBoard(boardID string) {
	b, ok := c.boards[boardID]
	if !ok {
		return
	}
	for _, n := range b.Notes {
		delete(c.notes, n.ID)
	}
	delete(c.boards, boardID)
	for i, id := range c.order {
		if id == boardID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *cache) renameBoard(boardID, name string) {
	if b, ok := c.boards[boardID]; ok {
		b.Name = name
	}
}

// putNote replaces the cached copy of a note wholesale, unless a newer
// version is already present. Versions make replays idempotent.
func (c *cache) putNote(n *board.Note) {
	if n == nil {
		return
	}
	if existing, ok := c.notes[n.ID]; ok && existing.Version > n.Version {
		return
	}
	clone := n.Clone()
	b, ok := c.boards[clone.BoardID]
	if !ok {
		// Note for a board we have not seen yet. Keep it indexed so a
		// later board event can pick it up.
		c.notes[clone.ID] = clone
		return
	}
	replaced := false
	for i, existing := range b.Notes {
		if existing.ID == clone.ID {
			b.Notes[i] = clone
			replaced = true
			break
		}
	}
	if !replaced {
		b.Notes = append(b.Notes, clone)
	}
	c.notes[clone.ID] = clone
}

func (c *cache) removeNote(noteID, boardID string) {
	delete(c.notes, noteID)
	b, ok := c.boards[boardID]
	if !ok {
		return
	}
	for i, n := range b.Notes {
		if n.ID == noteID {
			b.Notes = append(b.Notes[:i], b.Notes[i+1:]...)
			return
		}
	}
}

func (c *cache) boardList() []*board.Board {
	out := make([]*board.Board, 0, len(c.order))
	for _, id := range c.order {
		if b, ok := c.boards[id]; ok {
			out = append(out, b.Clone())
		}
	}
	return out
}

func (c *cache) board(boardID string) (*board.Board, bool) {
	b, ok := c.boards[boardID]
	if !ok {
		return nil, false
	}
	return b.Clone(), true
}

func (c *cache) note(noteID string) (*board.Note, bool) {
	n, ok := c.notes[noteID]
	if !ok {
		return nil, false
	}
	return n.Clone(), true
}
