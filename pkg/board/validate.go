package board

import (
	"strings"

	"github.com/corkboard-dev/corkboard/internal/errors"
)

// ValidateName checks a board name and returns the trimmed form.
func ValidateName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", errors.New("E101")
	}
	return trimmed, nil
}

// Validate checks every note invariant. It is re-run on the merged result
// of each partial update; a failure there rejects the whole mutation.
func (n *Note) Validate() error {
	if n.X < -MaxCoordinate || n.X > MaxCoordinate ||
		n.Y < -MaxCoordinate || n.Y > MaxCoordinate {
		return errors.Newf(errors.CategoryValidation,
			"note position (%g, %g) out of range", n.X, n.Y)
	}
	if n.Width <= 0 || n.Height <= 0 {
		return errors.New("E105")
	}
	if len(n.Content) > MaxContentLen {
		return errors.New("E102").WithDetail("content length %d exceeds %d", len(n.Content), MaxContentLen)
	}
	if !n.FontSize.Valid() {
		return errors.New("E104").WithDetail("got %q", n.FontSize)
	}
	for _, s := range n.Stickers {
		if s.Scale < MinStickerScale || s.Scale > MaxStickerScale {
			return errors.New("E103").WithDetail("sticker %s scale %g", s.ID, s.Scale)
		}
	}
	return nil
}

// ValidateBoard checks a loaded board and its notes. Used by the snapshot
// store to drop individually invalid boards while keeping the rest.
func ValidateBoard(b *Board) error {
	if b.ID == "" {
		return errors.Newf(errors.CategoryValidation, "board has no id")
	}
	if _, err := ValidateName(b.Name); err != nil {
		return err
	}
	for _, n := range b.Notes {
		if n.ID == "" {
			return errors.Newf(errors.CategoryValidation, "board %s has a note with no id", b.ID)
		}
		if n.BoardID != b.ID {
			return errors.Newf(errors.CategoryValidation,
				"note %s claims board %s but is owned by %s", n.ID, n.BoardID, b.ID)
		}
		if n.Version < 1 {
			return errors.Newf(errors.CategoryValidation, "note %s has version %d", n.ID, n.Version)
		}
		if err := n.Validate(); err != nil {
			return err
		}
	}
	return nil
}
