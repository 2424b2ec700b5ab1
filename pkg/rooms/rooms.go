// Package rooms maps live sessions to the board groups they have joined.
// It provides the fan-out target set for board-scoped broadcasts.
package rooms

import (
	"sync"
)

// Registry tracks board-group membership per session. A session may belong
// to several board groups at once (multiple tabs on different boards);
// each join is independent and re-joining is idempotent.
type Registry struct {
	mu sync.RWMutex

	// byBoard: board id -> set of session ids
	byBoard map[string]map[string]struct{}

	// bySession: session id -> set of board ids, for O(1) disconnect cleanup
	bySession map[string]map[string]struct{}
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		byBoard:   make(map[string]map[string]struct{}),
		bySession: make(map[string]map[string]struct{}),
	}
}

// Join adds the session to the board's group.
func (r *Registry) Join(sessionID, boardID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.byBoard[boardID] == nil {
		r.byBoard[boardID] = make(map[string]struct{})
	}
	r.byBoard[boardID][sessionID] = struct{}{}

	if r.bySession[sessionID] == nil {
		r.bySession[sessionID] = make(map[string]struct{})
	}
	r.bySession[sessionID][boardID] = struct{}{}
}

// Leave removes the session from the board's group. No-op if absent.
func (r *Registry) Leave(sessionID, boardID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if members, ok := r.byBoard[boardID]; ok {
		delete(members, sessionID)
		if len(members) == 0 {
			delete(r.byBoard, boardID)
		}
	}
	if boards, ok := r.bySession[sessionID]; ok {
		delete(boards, boardID)
		if len(boards) == 0 {
			delete(r.bySession, sessionID)
		}
	}
}

// Drop removes all memberships for the session, returning the board ids it
// was subscribed to. Called on disconnect.
func (r *Registry) Drop(sessionID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	boards := r.bySession[sessionID]
	delete(r.bySession, sessionID)

	out := make([]string, 0, len(boards))
	for boardID := range boards {
		out = append(out, boardID)
		if members, ok := r.byBoard[boardID]; ok {
			delete(members, sessionID)
			if len(members) == 0 {
				delete(r.byBoard, boardID)
			}
		}
	}
	return out
}

// DropBoard removes the board's group entirely, returning the session ids
// that were subscribed. Called when a board is deleted.
func (r *Registry) DropBoard(boardID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.byBoard[boardID]
	delete(r.byBoard, boardID)

	out := make([]string, 0, len(members))
	for sessionID := range members {
		out = append(out, sessionID)
		if boards, ok := r.bySession[sessionID]; ok {
			delete(boards, boardID)
			if len(boards) == 0 {
				delete(r.bySession, sessionID)
			}
		}
	}
	return out
}

// Members returns a snapshot of the session ids subscribed to the board.
func (r *Registry) Members(boardID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.byBoard[boardID]
	out := make([]string, 0, len(members))
	for id := range members {
		out = append(out, id)
	}
	return out
}

// Boards returns a snapshot of the board ids the session has joined.
func (r *Registry) Boards(sessionID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	boards := r.bySession[sessionID]
	out := make([]string, 0, len(boards))
	for id := range boards {
		out = append(out, id)
	}
	return out
}

// RoomCount returns the number of non-empty board groups.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byBoard)
}
