package board

// NotePatch is a partial note update. Nil fields are untouched by the
// merge; set fields overwrite the stored value (last-write-wins at field
// granularity). The version counter is not patchable: the store bumps it
// by one per successful merge.
type NotePatch struct {
	X        *float64   `json:"x,omitempty"`
	Y        *float64   `json:"y,omitempty"`
	Width    *float64   `json:"width,omitempty"`
	Height   *float64   `json:"height,omitempty"`
	Content  *string    `json:"content,omitempty"`
	Color    *string    `json:"color,omitempty"`
	FontSize *FontSize  `json:"fontSize,omitempty"`
	Expanded *bool      `json:"isExpanded,omitempty"`
	Images   *[]Image   `json:"images,omitempty"`
	Stickers *[]Sticker `json:"stickers,omitempty"`
}

// IsZero reports whether the patch sets no fields.
func (p *NotePatch) IsZero() bool {
	return p.X == nil && p.Y == nil && p.Width == nil && p.Height == nil &&
		p.Content == nil && p.Color == nil && p.FontSize == nil &&
		p.Expanded == nil && p.Images == nil && p.Stickers == nil
}

// ApplyTo merges the patch into n, field by field. The caller is expected
// to hand in a copy and validate the result before committing it.
func (p *NotePatch) ApplyTo(n *Note) {
	if p.X != nil {
		n.X = *p.X
	}
	if p.Y != nil {
		n.Y = *p.Y
	}
	if p.Width != nil {
		n.Width = *p.Width
	}
	if p.Height != nil {
		n.Height = *p.Height
	}
	if p.Content != nil {
		n.Content = *p.Content
	}
	if p.Color != nil {
		n.Color = *p.Color
	}
	if p.FontSize != nil {
		n.FontSize = *p.FontSize
	}
	if p.Expanded != nil {
		n.Expanded = *p.Expanded
	}
	if p.Images != nil {
		imgs := make([]Image, len(*p.Images))
		copy(imgs, *p.Images)
		n.Images = imgs
	}
	if p.Stickers != nil {
		sts := make([]Sticker, len(*p.Stickers))
		copy(sts, *p.Stickers)
		n.Stickers = sts
	}
}

// MovePatch builds a position-only patch. Moves ride the same merge,
// versioning, and validation path as any other update.
func MovePatch(x, y float64) *NotePatch {
	return &NotePatch{X: &x, Y: &y}
}
