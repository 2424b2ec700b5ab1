package state

import (
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/corkboard-dev/corkboard/pkg/board"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(testLogger())
}

func TestCreateBoard(t *testing.T) {
	s := newTestStore(t)

	b, err := s.CreateBoard("  Sprint Planning  ")
	if err != nil {
		t.Fatalf("CreateBoard: %v", err)
	}
	if b.Name != "Sprint Planning" {
		t.Errorf("Name = %q, want trimmed", b.Name)
	}
	if b.ID == "" {
		t.Error("board id should be allocated")
	}
	if len(b.Notes) != 0 {
		t.Error("new board should have no notes")
	}
	if !s.Dirty() {
		t.Error("store should be dirty after a mutation")
	}
}

func TestCreateBoardEmptyName(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CreateBoard("   "); err == nil {
		t.Error("empty name should be rejected")
	}
	if len(s.GetAllBoards()) != 0 {
		t.Error("rejected create must not add a board")
	}
}

func TestDeleteBoardIdempotent(t *testing.T) {
	s := newTestStore(t)
	b, _ := s.CreateBoard("B")
	n, _ := s.CreateNote(b.ID, 0, 0)

	if !s.DeleteBoard(b.ID) {
		t.Error("first delete should report true")
	}
	if s.DeleteBoard(b.ID) {
		t.Error("second delete should report false")
	}
	if _, ok := s.GetNote(n.ID); ok {
		t.Error("board delete must cascade to the flat note index")
	}
}

func TestRenameBoardNotFound(t *testing.T) {
	s := newTestStore(t)
	s.CreateBoard("Existing")
	before := s.GetAllBoards()

	_, ok, err := s.RenameBoard("nope", "X")
	if err != nil {
		t.Fatalf("unknown id should not error: %v", err)
	}
	if ok {
		t.Error("unknown id should report not found")
	}

	after := s.GetAllBoards()
	if len(after) != len(before) || after[0].Name != before[0].Name {
		t.Error("GetAllBoards should be unchanged")
	}
}

func TestRenameBoard(t *testing.T) {
	s := newTestStore(t)
	b, _ := s.CreateBoard("Old")
	renamed, ok, err := s.RenameBoard(b.ID, "New")
	if err != nil || !ok {
		t.Fatalf("rename failed: ok=%v err=%v", ok, err)
	}
	if renamed.Name != "New" {
		t.Errorf("Name = %q", renamed.Name)
	}
	if _, _, err := s.RenameBoard(b.ID, " "); err == nil {
		t.Error("empty rename should be rejected")
	}
}

func TestRenameBoardInvalidNameStillFound(t *testing.T) {
	s := newTestStore(t)
	b, _ := s.CreateBoard("Keep")

	// A bad name on an existing board is a validation failure, not a
	// missing board: found must stay true so callers ack the right error.
	_, ok, err := s.RenameBoard(b.ID, "   ")
	if !ok {
		t.Error("existing board should report found=true")
	}
	if err == nil {
		t.Fatal("whitespace-only name should be rejected")
	}

	got, _ := s.GetBoard(b.ID)
	if got.Name != "Keep" {
		t.Errorf("Name = %q, rejected rename must not mutate", got.Name)
	}
}

func TestCreateNoteClamping(t *testing.T) {
	s := newTestStore(t)
	b, _ := s.CreateBoard("B")

	n, ok := s.CreateNote(b.ID, 2e6, -2e6)
	if !ok {
		t.Fatal("create failed")
	}
	if n.X != board.MaxCoordinate || n.Y != -board.MaxCoordinate {
		t.Errorf("position (%g, %g) not clamped", n.X, n.Y)
	}
	if n.Version != 1 {
		t.Errorf("Version = %d, want 1", n.Version)
	}
}

func TestCreateNoteUnknownBoard(t *testing.T) {
	s := newTestStore(t)
	if _, ok := s.CreateNote("nope", 0, 0); ok {
		t.Error("unknown board should report not found")
	}
}

func TestUpdateNoteVersionCounting(t *testing.T) {
	s := newTestStore(t)
	b, _ := s.CreateBoard("B")
	n, _ := s.CreateNote(b.ID, 0, 0)

	content := "hello"
	color := "accent-blue"
	for i := 0; i < 5; i++ {
		if _, _, err := s.UpdateNote(n.ID, &board.NotePatch{Content: &content, Color: &color}); err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
	}

	// A rejected update must not bump the version.
	tooLong := strings.Repeat("x", board.MaxContentLen+1)
	if _, ok, err := s.UpdateNote(n.ID, &board.NotePatch{Content: &tooLong}); err == nil || !ok {
		t.Fatal("over-cap content should be rejected with an error")
	}

	got, _ := s.GetNote(n.ID)
	if got.Version != 6 {
		t.Errorf("Version = %d, want initial+successful = 6", got.Version)
	}
	if got.Content != "hello" {
		t.Errorf("Content = %q, prior content must survive a rejected update", got.Content)
	}
}

func TestUpdateNoteFieldMerge(t *testing.T) {
	s := newTestStore(t)
	b, _ := s.CreateBoard("B")
	n, _ := s.CreateNote(b.ID, 0, 0)

	// Client A changes color, client B changes content. Both survive
	// because updates merge into the canonical note.
	color := "accent-blue"
	s.UpdateNote(n.ID, &board.NotePatch{Color: &color})
	content := "Goals"
	s.UpdateNote(n.ID, &board.NotePatch{Content: &content})

	got, _ := s.GetNote(n.ID)
	if got.Color != "accent-blue" || got.Content != "Goals" {
		t.Errorf("merge lost a field: %+v", got)
	}
}

func TestUpdateNoteLastWriteWins(t *testing.T) {
	s := newTestStore(t)
	b, _ := s.CreateBoard("B")
	n, _ := s.CreateNote(b.ID, 0, 0)

	first, second := "First", "Second"
	s.UpdateNote(n.ID, &board.NotePatch{Content: &first})
	s.UpdateNote(n.ID, &board.NotePatch{Content: &second})

	got, _ := s.GetNote(n.ID)
	if got.Content != "Second" {
		t.Errorf("Content = %q, arrival order decides the winner", got.Content)
	}
	if got.Version != 3 {
		t.Errorf("Version = %d, want 3", got.Version)
	}
}

func TestUpdateNoteNotFound(t *testing.T) {
	s := newTestStore(t)
	c := "x"
	_, ok, err := s.UpdateNote("nope", &board.NotePatch{Content: &c})
	if ok || err != nil {
		t.Errorf("unknown note: ok=%v err=%v, want soft miss", ok, err)
	}
}

func TestStickerScaleRejection(t *testing.T) {
	s := newTestStore(t)
	b, _ := s.CreateBoard("B")
	n, _ := s.CreateNote(b.ID, 0, 0)

	good := []board.Sticker{{ID: "s1", Glyph: "star", Scale: 1.0}}
	if _, _, err := s.UpdateNote(n.ID, &board.NotePatch{Stickers: &good}); err != nil {
		t.Fatalf("valid sticker rejected: %v", err)
	}

	bad := []board.Sticker{{ID: "s1", Glyph: "star", Scale: 0.4}}
	if _, _, err := s.UpdateNote(n.ID, &board.NotePatch{Stickers: &bad}); err == nil {
		t.Fatal("scale 0.4 should be rejected")
	}

	got, _ := s.GetNote(n.ID)
	if len(got.Stickers) != 1 || got.Stickers[0].Scale != 1.0 {
		t.Errorf("prior sticker scale must survive: %+v", got.Stickers)
	}
}

func TestMoveNote(t *testing.T) {
	s := newTestStore(t)
	b, _ := s.CreateBoard("B")
	n, _ := s.CreateNote(b.ID, 0, 0)

	moved, ok, err := s.MoveNote(n.ID, 50, 60)
	if err != nil || !ok {
		t.Fatalf("move failed: ok=%v err=%v", ok, err)
	}
	if moved.X != 50 || moved.Y != 60 {
		t.Errorf("position = (%g, %g)", moved.X, moved.Y)
	}
	if moved.Version != 2 {
		t.Errorf("move must bump version, got %d", moved.Version)
	}

	// Out-of-range moves are rejected by validation, not clamped.
	if _, _, err := s.MoveNote(n.ID, 2e6, 0); err == nil {
		t.Error("out-of-range move should be rejected")
	}
}

func TestDeleteNoteIdempotent(t *testing.T) {
	s := newTestStore(t)
	b, _ := s.CreateBoard("B")
	n, _ := s.CreateNote(b.ID, 0, 0)

	if !s.DeleteNote(n.ID) {
		t.Error("first delete should report true")
	}
	if s.DeleteNote(n.ID) {
		t.Error("second delete should report false")
	}
	if notes := s.GetNotes(b.ID); len(notes) != 0 {
		t.Errorf("board list should be empty, got %d", len(notes))
	}
}

func TestSetEditingBypassesVersion(t *testing.T) {
	s := newTestStore(t)
	b, _ := s.CreateBoard("B")
	n, _ := s.CreateNote(b.ID, 0, 0)

	got, ok := s.SetEditing(n.ID, "sess-1")
	if !ok {
		t.Fatal("note not found")
	}
	if got.EditingBy != "sess-1" {
		t.Errorf("EditingBy = %q", got.EditingBy)
	}
	if got.Version != 1 {
		t.Errorf("presence must not bump version, got %d", got.Version)
	}

	cleared := s.ClearEditingBy("sess-1")
	if len(cleared) != 1 || cleared[0].EditingBy != "" {
		t.Errorf("ClearEditingBy = %+v", cleared)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	s := newTestStore(t)
	b, _ := s.CreateBoard("B")
	n, _ := s.CreateNote(b.ID, 0, 0)

	snap, gen := s.Snapshot()

	// Mutate after the snapshot: the snapshot must not change, and the
	// store must stay dirty after MarkSaved for the older generation.
	content := "later"
	s.UpdateNote(n.ID, &board.NotePatch{Content: &content})

	if snap[0].Notes[0].Content != "" {
		t.Error("snapshot observed a later mutation")
	}

	s.MarkSaved(gen)
	if !s.Dirty() {
		t.Error("mutation after snapshot must keep the store dirty")
	}

	snap2, gen2 := s.Snapshot()
	s.MarkSaved(gen2)
	if s.Dirty() {
		t.Error("store should be clean after saving the latest generation")
	}
	if snap2[0].Notes[0].Content != "later" {
		t.Error("second snapshot should carry the mutation")
	}
}

func TestSeedDoesNotDirty(t *testing.T) {
	s := newTestStore(t)
	nb := board.NewNote("b1", 0, 0)
	s.Seed([]*board.Board{{ID: "b1", Name: "Loaded", Notes: []*board.Note{nb}}})

	if s.Dirty() {
		t.Error("seeding is not a mutation")
	}
	if _, ok := s.GetNote(nb.ID); !ok {
		t.Error("seeded notes must be indexed")
	}
}

func TestReadsReturnCopies(t *testing.T) {
	s := newTestStore(t)
	b, _ := s.CreateBoard("B")
	n, _ := s.CreateNote(b.ID, 0, 0)

	got, _ := s.GetNote(n.ID)
	got.Content = "mutated outside the store"

	again, _ := s.GetNote(n.ID)
	if again.Content != "" {
		t.Error("GetNote must return a defensive copy")
	}
}
