package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"drumding/sequencer"
	"drumding/theme"
)

// RenderPad renders a single colored glyph
func RenderPad(color lipgloss.Color, glyph rune) string {
	return lipgloss.NewStyle().Foreground(color).Render(string(glyph))
}

// RowOptions controls how a step row is drawn.
type RowOptions struct {
	Steps     int          // display slots to draw, from 0
	Cursor    int          // display index under the cursor, -1 for none
	Highlight map[int]bool // display indexes currently sounding
}

// RenderStepRow renders a track's cells as glyphs, one group per segment.
func RenderStepRow(th *theme.Theme, cells []sequencer.Cell, opts RowOptions) string {
	n := opts.Steps
	if n <= 0 || n > len(cells) {
		n = len(cells)
	}
	var out strings.Builder
	for i := 0; i < n; i++ {
		c := cells[i]
		if i > 0 && i%sequencer.SegmentSize == 0 {
			out.WriteString(" ")
		}

		glyph := th.StepSymbol(c.State)
		style := lipgloss.NewStyle().Foreground(th.StepColor(c.Color))
		if !c.Enabled {
			glyph = th.Symbols.StepMasked
			style = style.Foreground(th.StepColor(sequencer.ColorDisabled))
		}
		if opts.Highlight[c.Display] {
			style = style.Foreground(th.Highlight())
			if c.State == sequencer.Off {
				glyph = th.Symbols.Playhead
			}
		}
		if c.Display == opts.Cursor {
			style = style.Reverse(true)
		}
		out.WriteString(style.Render(string(glyph)))
	}
	return out.String()
}

// RenderSegments renders a segment mask as four boxes.
func RenderSegments(th *theme.Theme, mask [sequencer.NumSegments]bool) string {
	var out strings.Builder
	for _, on := range mask {
		if on {
			out.WriteString(RenderPad(th.Segment(), th.Symbols.SegmentOn))
		} else {
			out.WriteString(RenderPad(th.Muted(), th.Symbols.SegmentOff))
		}
	}
	return out.String()
}

// RenderLegendItem renders a single legend item: "● name - description"
func RenderLegendItem(color lipgloss.Color, glyph rune, name, desc string) string {
	return fmt.Sprintf("  %s %s - %s", RenderPad(color, glyph), name, desc)
}

// RenderLegend explains every glyph a step row can show, boxed on the
// theme background.
func RenderLegend(th *theme.Theme) string {
	items := []string{
		RenderLegendItem(th.StepColor(sequencer.ColorOn), th.Symbols.StepOn, "on", "full velocity"),
		RenderLegendItem(th.StepColor(sequencer.ColorHalf), th.Symbols.StepHalf, "half", "half velocity"),
		RenderLegendItem(th.StepColor(sequencer.ColorOff), th.Symbols.StepOff, "off", "rest"),
		RenderLegendItem(th.StepColor(sequencer.ColorDisabled), th.Symbols.StepDisabled, "disabled", "skipped by playback"),
		RenderLegendItem(th.StepColor(sequencer.ColorMuted), th.Symbols.StepOn, "muted", "hit on a muted track"),
		RenderLegendItem(th.Muted(), th.Symbols.StepMasked, "masked", "outside the enabled segments"),
		RenderLegendItem(th.Highlight(), th.Symbols.Playhead, "playing", "step just played"),
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(th.Muted()).
		BorderBackground(th.BG()).
		Render(strings.Join(items, "\n"))
}
