package widgets

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"

	"drumding/sequencer"
	"drumding/theme"
)

func testCells() []sequencer.Cell {
	cells := make([]sequencer.Cell, sequencer.NumSteps)
	for i := range cells {
		cells[i] = sequencer.Cell{Display: i, Index: i, Enabled: i < 32}
	}
	cells[0].State, cells[0].Color = sequencer.On, sequencer.ColorOn
	cells[1].State, cells[1].Color = sequencer.HalfOn, sequencer.ColorHalf
	cells[2].State, cells[2].Color = sequencer.Disabled, sequencer.ColorDisabled
	return cells
}

func TestRenderStepRowGlyphs(t *testing.T) {
	th := theme.New(nil)
	row := ansi.Strip(RenderStepRow(th, testCells(), RowOptions{Steps: 32, Cursor: -1}))

	groups := strings.Split(row, " ")
	if len(groups) != 2 {
		t.Fatalf("expected 2 segment groups, got %q", row)
	}
	if !strings.HasPrefix(groups[0], "●◐×·") {
		t.Fatalf("first group = %q", groups[0])
	}
	if n := len([]rune(groups[1])); n != 16 {
		t.Fatalf("second group has %d glyphs", n)
	}
}

func TestRenderStepRowMaskedAndHighlight(t *testing.T) {
	th := theme.New(nil)
	row := ansi.Strip(RenderStepRow(th, testCells(), RowOptions{
		Cursor:    -1,
		Highlight: map[int]bool{3: true},
	}))
	groups := strings.Split(row, " ")
	if len(groups) != 4 {
		t.Fatalf("full row should have 4 groups: %q", row)
	}
	if []rune(groups[0])[3] != '▶' {
		t.Fatalf("highlighted off step not drawn as playhead: %q", groups[0])
	}
	if groups[2] != strings.Repeat("-", 16) {
		t.Fatalf("masked segment = %q", groups[2])
	}
}

func TestRenderSegments(t *testing.T) {
	th := theme.New(nil)
	got := ansi.Strip(RenderSegments(th, [4]bool{true, true, false, true}))
	if got != "■■□■" {
		t.Fatalf("segments = %q", got)
	}
}

func TestRenderLegend(t *testing.T) {
	th := theme.New(nil)
	item := ansi.Strip(RenderLegendItem(th.FG(), th.Symbols.StepOn, "on", "full velocity"))
	if item != "  ● on - full velocity" {
		t.Fatalf("legend item = %q", item)
	}

	legend := ansi.Strip(RenderLegend(th))
	for _, want := range []string{"on - full velocity", "disabled", "masked", "playing"} {
		if !strings.Contains(legend, want) {
			t.Fatalf("legend missing %q:\n%s", want, legend)
		}
	}
}
