package theme

import (
	"github.com/charmbracelet/lipgloss"

	"drumding/sequencer"
)

type Theme struct {
	Palette *Palette
	Symbols Symbols
}

type Symbols struct {
	StepOff      rune // · silent step
	StepHalf     rune // ◐ half velocity
	StepOn       rune // ● full velocity
	StepDisabled rune // × removed from rotation
	StepMasked   rune // - segment switched off
	Playhead     rune // ▶ highlighted while it sounds

	SegmentOn  rune // ■
	SegmentOff rune // □
}

func New(palette *Palette) *Theme {
	if palette == nil {
		palette = DefaultPalette()
	}
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			StepOff:      '·',
			StepHalf:     '◐',
			StepOn:       '●',
			StepDisabled: '×',
			StepMasked:   '-',
			Playhead:     '▶',

			SegmentOn:  '■',
			SegmentOff: '□',
		},
	}
}

// Color roles, indexes into a palette with at least NumRoles colors.
// Shorter palettes are sampled evenly instead.
const (
	RoleBG = iota
	RoleOff
	RoleHalf
	RoleOn
	RoleDisabled
	RoleBorder
	RoleText
	RoleHighlight
	RoleAccent
	RoleWarning
	RoleSegment
	NumRoles
)

func (t *Theme) role(r int) lipgloss.Color {
	if len(t.Palette.Colors) >= NumRoles {
		return lipgloss.Color(t.Palette.Index(r).Hex())
	}
	return lipgloss.Color(t.Palette.Lookup(float64(r) / float64(NumRoles-1)).Hex())
}

// Style helpers

func (t *Theme) BG() lipgloss.Color        { return t.role(RoleBG) }
func (t *Theme) FG() lipgloss.Color        { return t.role(RoleText) }
func (t *Theme) Muted() lipgloss.Color     { return t.role(RoleBorder) }
func (t *Theme) Accent() lipgloss.Color    { return t.role(RoleAccent) }
func (t *Theme) Highlight() lipgloss.Color { return t.role(RoleHighlight) }
func (t *Theme) Warning() lipgloss.Color   { return t.role(RoleWarning) }
func (t *Theme) Segment() lipgloss.Color   { return t.role(RoleSegment) }

// StepColor is the foreground for a step's display color. Muted steps use
// the border gray so programming stays visible but reads as silent.
func (t *Theme) StepColor(c sequencer.DisplayColor) lipgloss.Color {
	switch c {
	case sequencer.ColorOn:
		return t.role(RoleOn)
	case sequencer.ColorHalf:
		return t.role(RoleHalf)
	case sequencer.ColorDisabled:
		return t.role(RoleDisabled)
	case sequencer.ColorMuted:
		return t.role(RoleBorder)
	}
	return t.role(RoleOff)
}

// StepSymbol picks the glyph for a step's stored state.
func (t *Theme) StepSymbol(s sequencer.StepState) rune {
	switch s {
	case sequencer.On:
		return t.Symbols.StepOn
	case sequencer.HalfOn:
		return t.Symbols.StepHalf
	case sequencer.Disabled:
		return t.Symbols.StepDisabled
	}
	return t.Symbols.StepOff
}
