package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"drumding/midi"
	"drumding/sequencer"
	"drumding/theme"
)

func newTestModel(t *testing.T) Model {
	t.Helper()
	instruments, _ := sequencer.GetKit(sequencer.DefaultKit)
	seq, err := sequencer.New(instruments, sequencer.DefaultOptions())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return NewModel(seq, nil, theme.New(nil), false)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(m Model, msgs ...tea.Msg) Model {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func TestKeysEditSelectedTrack(t *testing.T) {
	m := newTestModel(t)
	kick, _ := m.Seq.TrackByName("kick")

	// kick is the 8th track
	for i := 0; i < int(kick); i++ {
		m = send(m, runes("j"))
	}
	m = send(m,
		tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}},
		runes("l"), runes("v"),
		runes("l"), runes("d"),
	)

	if got := m.Seq.Step(kick, 0); got != sequencer.On {
		t.Fatalf("kick[0] = %s", got)
	}
	if got := m.Seq.Step(kick, 1); got != sequencer.HalfOn {
		t.Fatalf("kick[1] = %s", got)
	}
	if got := m.Seq.Step(kick, 2); got != sequencer.Disabled {
		t.Fatalf("kick[2] = %s", got)
	}

	m = send(m, runes("u"))
	if got := m.Seq.Step(kick, 2); got != sequencer.Off {
		t.Fatalf("undo key left kick[2] = %s", got)
	}
}

func TestEditsFollowShift(t *testing.T) {
	m := newTestModel(t)
	m = send(m, runes(">"), tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	// cursor at display 0 is logical 63 after one shift right
	if got := m.Seq.Step(0, 63); got != sequencer.On {
		t.Fatalf("toggle did not land on the shifted step, [63] = %s", got)
	}
}

func TestDisableRefusesActiveStep(t *testing.T) {
	m := newTestModel(t)
	m = send(m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}, runes("d"))
	if got := m.Seq.Step(0, 0); got != sequencer.On {
		t.Fatalf("disable cleared an active step: %s", got)
	}
	if m.status == "" {
		t.Fatalf("expected a status hint")
	}
}

func TestNoteEntry(t *testing.T) {
	m := newTestModel(t)
	clamp, _ := m.Seq.TrackByName("clamp")
	for i := 0; i < int(clamp); i++ {
		m = send(m, runes("j"))
	}

	m = send(m, runes("n"), runes("5"), runes("2"), tea.KeyMsg{Type: tea.KeyEnter})
	if got := m.Seq.Note(clamp); got != 52 {
		t.Fatalf("note = %d, want 52", got)
	}

	m = send(m, runes("n"), tea.KeyMsg{Type: tea.KeyBackspace}, tea.KeyMsg{Type: tea.KeyBackspace}, runes("x"), tea.KeyMsg{Type: tea.KeyEnter})
	if got := m.Seq.Note(clamp); got != sequencer.NoNote {
		t.Fatalf("unparseable entry should unbind, got %d", got)
	}
	if m.mode != inputNone {
		t.Fatalf("input still open")
	}
}

func TestTempoEntry(t *testing.T) {
	m := newTestModel(t)
	m = send(m, runes("t"))
	for i := 0; i < 3; i++ {
		m = send(m, tea.KeyMsg{Type: tea.KeyBackspace})
	}
	m = send(m, runes("9"), runes("0"), tea.KeyMsg{Type: tea.KeyEnter})
	if m.Seq.Tempo() != 90 || m.err != nil {
		t.Fatalf("tempo = %d, err = %v", m.Seq.Tempo(), m.err)
	}

	m = send(m, runes("t"), runes("0"), tea.KeyMsg{Type: tea.KeyEnter}) // 900
	if m.err == nil || m.Seq.Tempo() != 90 {
		t.Fatalf("out of range tempo accepted: %d", m.Seq.Tempo())
	}
	if !strings.Contains(m.View(), "Tempo must be") {
		t.Fatalf("error not shown in view")
	}

	m = send(m, runes("+"))
	if m.Seq.Tempo() != 95 {
		t.Fatalf("tempo + = %d", m.Seq.Tempo())
	}
}

func TestStepHighlightFades(t *testing.T) {
	m := newTestModel(t)
	e := sequencer.StepEvent{Track: 0, Display: 3, Step: 125 * time.Millisecond}

	m = send(m, StepMsg(e))
	at := cell{track: 0, display: 3}
	first := m.lit[at]
	if first == 0 {
		t.Fatalf("step not highlighted")
	}
	m = send(m, StepMsg(e)) // played again before the first fade
	m = send(m, unlightMsg{at: at, gen: first})
	if _, ok := m.lit[at]; !ok {
		t.Fatalf("stale fade cleared a newer highlight")
	}
	m = send(m, unlightMsg{at: at, gen: m.lit[at]})
	if _, ok := m.lit[at]; ok {
		t.Fatalf("highlight did not fade")
	}
}

func TestDeviceEventsUpdateStatus(t *testing.T) {
	m := newTestModel(t)
	m = send(m, DeviceEventMsg(midi.DeviceEvent{Type: midi.DeviceConnected, Name: "gord 1", Port: "gord 1 20:0"}))
	if m.ports["gord 1"] != "gord 1 20:0" {
		t.Fatalf("port not recorded")
	}
	m = send(m, DeviceEventMsg(midi.DeviceEvent{Type: midi.DeviceDisconnected, Name: "gord 1"}))
	if m.ports["gord 1"] != "" || !strings.Contains(m.status, "visual-only") {
		t.Fatalf("disconnect not reported: %q", m.status)
	}
}

func TestViewListsTracks(t *testing.T) {
	m := newTestModel(t)
	view := m.View()
	for _, name := range []string{"crash1", "kick", "aux", "STOP", "120bpm"} {
		if !strings.Contains(view, name) {
			t.Fatalf("view missing %q", name)
		}
	}

	m = send(m, tea.KeyMsg{Type: tea.KeyTab})
	if !m.fullView {
		t.Fatalf("tab did not switch to full view")
	}
}

func TestQuitStops(t *testing.T) {
	m := newTestModel(t)
	next, cmd := m.Update(runes("q"))
	if cmd == nil || !next.(Model).quitting {
		t.Fatalf("q did not quit")
	}
	if next.(Model).View() != "" {
		t.Fatalf("view after quit should be empty")
	}
}

func TestStopClearsHighlights(t *testing.T) {
	m := newTestModel(t)
	m = send(m, runes("p"))
	m = send(m, StepMsg(sequencer.StepEvent{Track: 0, Display: 0, Step: time.Second}))
	if len(m.lit) == 0 {
		t.Fatalf("step not highlighted")
	}
	m = send(m, runes("p"))
	if m.Seq.Running() || len(m.lit) != 0 {
		t.Fatalf("stop left %d highlights", len(m.lit))
	}
}

func TestHelpShowsLegend(t *testing.T) {
	m := newTestModel(t)
	if strings.Contains(m.View(), "skipped by playback") {
		t.Fatalf("legend shown before help was opened")
	}
	m = send(m, runes("?"))
	if !strings.Contains(m.View(), "skipped by playback") {
		t.Fatalf("full help does not include the step legend")
	}
}
