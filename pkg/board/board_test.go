package board

import (
	"strings"
	"testing"
)

func TestNewIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		if id == "" {
			t.Fatal("NewID returned empty string")
		}
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{99999, 99999},
		{100001, 100000},
		{-100001, -100000},
		{1e12, 100000},
		{-1e12, -100000},
	}
	for _, tt := range tests {
		if got := Clamp(tt.in); got != tt.want {
			t.Errorf("Clamp(%g) = %g, want %g", tt.in, got, tt.want)
		}
	}
}

func TestNewNoteDefaults(t *testing.T) {
	n := NewNote("b1", 1e9, -1e9)
	if n.Version != 1 {
		t.Errorf("Version = %d, want 1", n.Version)
	}
	if !n.Expanded {
		t.Error("new notes start expanded")
	}
	if n.Content != "" {
		t.Errorf("Content = %q, want empty", n.Content)
	}
	if n.Color != DefaultColor {
		t.Errorf("Color = %q, want %q", n.Color, DefaultColor)
	}
	if n.FontSize != FontMedium {
		t.Errorf("FontSize = %q, want medium", n.FontSize)
	}
	if n.X != MaxCoordinate || n.Y != -MaxCoordinate {
		t.Errorf("position (%g, %g) not clamped", n.X, n.Y)
	}
}

func TestNoteValidate(t *testing.T) {
	base := NewNote("b1", 0, 0)
	if err := base.Validate(); err != nil {
		t.Fatalf("fresh note should validate: %v", err)
	}

	tooLong := base.Clone()
	tooLong.Content = strings.Repeat("x", MaxContentLen+1)
	if err := tooLong.Validate(); err == nil {
		t.Error("over-cap content should be rejected")
	}

	atCap := base.Clone()
	atCap.Content = strings.Repeat("x", MaxContentLen)
	if err := atCap.Validate(); err != nil {
		t.Errorf("content at the cap should be accepted: %v", err)
	}

	badFont := base.Clone()
	badFont.FontSize = "huge"
	if err := badFont.Validate(); err == nil {
		t.Error("unknown font size should be rejected")
	}

	badScale := base.Clone()
	badScale.Stickers = []Sticker{{ID: "s1", Glyph: "star", Scale: 2.5}}
	if err := badScale.Validate(); err == nil {
		t.Error("sticker scale 2.5 should be rejected")
	}

	okScale := base.Clone()
	okScale.Stickers = []Sticker{{ID: "s1", Glyph: "star", Scale: 0.5}, {ID: "s2", Glyph: "heart", Scale: 2.0}}
	if err := okScale.Validate(); err != nil {
		t.Errorf("boundary scales should be accepted: %v", err)
	}

	flat := base.Clone()
	flat.Height = 0
	if err := flat.Validate(); err == nil {
		t.Error("zero height should be rejected")
	}
}

func TestValidateName(t *testing.T) {
	if _, err := ValidateName("   "); err == nil {
		t.Error("whitespace name should be rejected")
	}
	got, err := ValidateName("  Sprint Planning  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Sprint Planning" {
		t.Errorf("trimmed name = %q", got)
	}
}

func TestCloneIndependence(t *testing.T) {
	n := NewNote("b1", 10, 10)
	n.Stickers = []Sticker{{ID: "s1", Glyph: "star", Scale: 1}}
	c := n.Clone()
	c.Stickers[0].Scale = 1.5
	c.Content = "changed"
	if n.Stickers[0].Scale != 1 {
		t.Error("clone shares sticker backing array")
	}
	if n.Content != "" {
		t.Error("clone shares content")
	}

	b := &Board{ID: "b1", Name: "B", Notes: []*Note{n}}
	bc := b.Clone()
	bc.Notes[0].X = 999
	if n.X != 10 {
		t.Error("board clone shares notes")
	}
}

func TestPatchApply(t *testing.T) {
	n := NewNote("b1", 0, 0)
	content := "Goals"
	color := "accent-blue"
	p := &NotePatch{Content: &content, Color: &color}

	c := n.Clone()
	p.ApplyTo(c)
	if c.Content != "Goals" || c.Color != "accent-blue" {
		t.Errorf("patch not applied: %+v", c)
	}
	if c.X != n.X || c.Expanded != n.Expanded {
		t.Error("unset fields must be untouched")
	}
	if n.Content != "" {
		t.Error("ApplyTo mutated the original through the clone")
	}
}

func TestPatchIsZero(t *testing.T) {
	if !(&NotePatch{}).IsZero() {
		t.Error("empty patch should be zero")
	}
	x := 1.0
	if (&NotePatch{X: &x}).IsZero() {
		t.Error("patch with X should not be zero")
	}
}

func TestValidateBoard(t *testing.T) {
	n := NewNote("b1", 0, 0)
	good := &Board{ID: "b1", Name: "Board", Notes: []*Note{n}}
	if err := ValidateBoard(good); err != nil {
		t.Errorf("valid board rejected: %v", err)
	}

	orphan := &Board{ID: "b2", Name: "Board", Notes: []*Note{n}}
	if err := ValidateBoard(orphan); err == nil {
		t.Error("note owned by another board should be rejected")
	}
}
