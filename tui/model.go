package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"drumding/debug"
	"drumding/midi"
	"drumding/sequencer"
	"drumding/theme"
	"drumding/widgets"
)

// highlightFade is how long a played step stays lit, relative to the step.
const highlightFade = 0.8

type inputMode int

const (
	inputNone inputMode = iota
	inputNote
	inputTempo
)

type cell struct {
	track   sequencer.TrackID
	display int
}

type Model struct {
	Seq       *sequencer.Sequencer
	DeviceMgr *midi.DeviceManager // nil when running without ports
	Theme     *theme.Theme

	keys  keyMap
	help  help.Model
	input textinput.Model
	mode  inputMode

	row      int // selected track
	col      int // cursor display index
	fullView bool
	every    int

	steps    chan sequencer.StepEvent
	lit      map[cell]int // display cells currently highlighted, by generation
	litGen   int
	ports    map[string]string // configured name -> connected port, "" if gone
	status   string
	err      error
	quitting bool
}

type UpdateMsg struct{}

type StepMsg sequencer.StepEvent

type DeviceEventMsg midi.DeviceEvent

type unlightMsg struct {
	at  cell
	gen int
}

func NewModel(seq *sequencer.Sequencer, deviceMgr *midi.DeviceManager, th *theme.Theme, fullView bool) Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 3
	ti.Width = 4

	m := Model{
		Seq:       seq,
		DeviceMgr: deviceMgr,
		Theme:     th,
		keys:      keys,
		help:      help.New(),
		input:     ti,
		fullView:  fullView,
		every:     4,
		steps:     make(chan sequencer.StepEvent, 256),
		lit:       make(map[cell]int),
		ports:     make(map[string]string),
	}
	if deviceMgr != nil {
		for _, p := range deviceMgr.Ports() {
			m.ports[p.Name()] = ""
		}
	}

	// Runs on the tick loop; never block it
	steps := m.steps
	seq.SetOnStepPlayed(func(e sequencer.StepEvent) {
		select {
		case steps <- e:
		default:
		}
	})
	return m
}

func ListenForUpdates(seq *sequencer.Sequencer) tea.Cmd {
	return func() tea.Msg {
		<-seq.UpdateChan
		return UpdateMsg{}
	}
}

func ListenForSteps(steps <-chan sequencer.StepEvent) tea.Cmd {
	return func() tea.Msg {
		return StepMsg(<-steps)
	}
}

func ListenForDevices(deviceMgr *midi.DeviceManager) tea.Cmd {
	if deviceMgr == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-deviceMgr.Events()
		if !ok {
			return nil
		}
		return DeviceEventMsg(event)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		ListenForUpdates(m.Seq),
		ListenForSteps(m.steps),
		ListenForDevices(m.DeviceMgr),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.mode != inputNone {
			return m.updateInput(msg)
		}
		return m.updateKeys(msg)

	case UpdateMsg:
		return m, ListenForUpdates(m.Seq)

	case StepMsg:
		e := sequencer.StepEvent(msg)
		m.litGen++
		at := cell{track: e.Track, display: e.Display}
		m.lit[at] = m.litGen
		gen := m.litGen
		fade := time.Duration(float64(e.Step) * highlightFade)
		return m, tea.Batch(
			ListenForSteps(m.steps),
			tea.Tick(fade, func(time.Time) tea.Msg { return unlightMsg{at: at, gen: gen} }),
		)

	case unlightMsg:
		// A newer hit on the same cell owns it now
		if m.lit[msg.at] == msg.gen {
			delete(m.lit, msg.at)
		}
		return m, nil

	case DeviceEventMsg:
		switch msg.Type {
		case midi.DeviceConnected:
			m.ports[msg.Name] = msg.Port
			m.status = "connected " + msg.Port
		case midi.DeviceDisconnected:
			m.ports[msg.Name] = ""
			m.status = "lost " + msg.Name + ", playing visual-only"
		}
		return m, ListenForDevices(m.DeviceMgr)
	}

	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	id := sequencer.TrackID(m.row)
	m.status = ""
	m.err = nil

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		m.Seq.Stop()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		m.row = (m.row - 1 + m.Seq.Len()) % m.Seq.Len()
	case key.Matches(msg, m.keys.Down):
		m.row = (m.row + 1) % m.Seq.Len()
	case key.Matches(msg, m.keys.Left):
		m.col = (m.col - 1 + m.visibleSteps()) % m.visibleSteps()
	case key.Matches(msg, m.keys.Right):
		m.col = (m.col + 1) % m.visibleSteps()

	case key.Matches(msg, m.keys.Toggle):
		m.Seq.ToggleStep(id, m.cursorIndex())
	case key.Matches(msg, m.keys.Half):
		m.Seq.CycleHalf(id, m.cursorIndex())
	case key.Matches(msg, m.keys.Disable):
		idx := m.cursorIndex()
		if m.Seq.Step(id, idx).Audible() {
			m.status = "clear the step before disabling it"
		} else {
			m.Seq.ToggleDisabled(id, idx)
		}

	case key.Matches(msg, m.keys.Mute):
		m.Seq.ToggleMute(id)
	case key.Matches(msg, m.keys.Solo):
		m.Seq.Solo(id)
	case key.Matches(msg, m.keys.ShiftL):
		m.Seq.Shift(id, -1)
	case key.Matches(msg, m.keys.ShiftR):
		m.Seq.Shift(id, 1)
	case key.Matches(msg, m.keys.Segment):
		m.Seq.ToggleSegment(id, int(msg.String()[0]-'1'))
	case key.Matches(msg, m.keys.Extend):
		m.Seq.ExtendSection(id)
	case key.Matches(msg, m.keys.Remove):
		m.Seq.RemoveSection(id)
	case key.Matches(msg, m.keys.EveryUp):
		m.every = min(m.every+1, sequencer.MaxEvery)
		m.status = fmt.Sprintf("every %d", m.every)
	case key.Matches(msg, m.keys.EveryDn):
		m.every = max(m.every-1, sequencer.MinEvery)
		m.status = fmt.Sprintf("every %d", m.every)
	case key.Matches(msg, m.keys.Every):
		m.Seq.ApplyEvery(id, m.every)
	case key.Matches(msg, m.keys.Clear):
		m.Seq.ClearTrack(id)
	case key.Matches(msg, m.keys.ClearAll):
		m.Seq.ClearAll()
	case key.Matches(msg, m.keys.Reset):
		m.Seq.Reset()
		m.status = "factory reset"
	case key.Matches(msg, m.keys.Undo):
		if !m.Seq.Undo() {
			m.status = "nothing to undo"
		}

	case key.Matches(msg, m.keys.Note):
		m.mode = inputNote
		m.input.Reset()
		if n := m.Seq.Note(id); n != sequencer.NoNote {
			m.input.SetValue(strconv.Itoa(n))
		}
		cmd := m.input.Focus()
		return m, cmd
	case key.Matches(msg, m.keys.Tempo):
		m.mode = inputTempo
		m.input.Reset()
		m.input.SetValue(strconv.Itoa(m.Seq.Tempo()))
		cmd := m.input.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.Play):
		m.Seq.TogglePlay()
		if !m.Seq.Running() {
			m.lit = make(map[cell]int)
		}
	case key.Matches(msg, m.keys.TempoUp):
		m.Seq.SetTempo(m.Seq.Tempo() + 5)
	case key.Matches(msg, m.keys.TempoDown):
		m.Seq.SetTempo(m.Seq.Tempo() - 5)
	case key.Matches(msg, m.keys.Panic):
		m.Seq.Panic()
		m.status = "all notes off"
	case key.Matches(msg, m.keys.View):
		m.fullView = !m.fullView
		m.col %= m.visibleSteps()
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = inputNone
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		value := m.input.Value()
		switch m.mode {
		case inputNote:
			id := sequencer.TrackID(m.row)
			if !m.Seq.BindNoteText(id, value) {
				m.status = m.Seq.Name(id) + " unbound"
			}
		case inputTempo:
			m.err = m.applyTempo(value)
		}
		m.mode = inputNone
		m.input.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) applyTempo(text string) error {
	bpm, err := strconv.Atoi(strings.TrimSpace(text))
	lo, hi := m.Seq.TempoRange()
	if err != nil || bpm < lo || bpm > hi {
		debug.Log("ui", "rejected tempo %q", text)
		return fault.New("bad tempo "+text,
			fmsg.WithDesc("bad tempo", fmt.Sprintf("Tempo must be a number from %d to %d", lo, hi)),
			ftag.With(ftag.InvalidArgument))
	}
	m.Seq.SetTempo(bpm)
	return nil
}

func (m Model) visibleSteps() int {
	if m.fullView {
		return sequencer.NumSteps
	}
	return 2 * sequencer.SegmentSize
}

// cursorIndex maps the cursor's display position to the logical step.
func (m Model) cursorIndex() int {
	return m.Seq.LogicalIndex(sequencer.TrackID(m.row), m.col)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	st := m.Seq.Snapshot()

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent()).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	textStyle := lipgloss.NewStyle().Foreground(m.Theme.FG())
	selStyle := lipgloss.NewStyle().Foreground(m.Theme.Highlight())
	warnStyle := lipgloss.NewStyle().Foreground(m.Theme.Warning())

	playState := "STOP"
	if st.Running {
		playState = "PLAY"
	}
	header := headerStyle.Render(fmt.Sprintf("drumding  %s  %3dbpm  every:%d  %s", playState, st.Tempo, m.every, st.Policy))

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("  ")
	out.WriteString(m.portStatus(dimStyle, warnStyle))
	out.WriteString("\n\n")

	for i, ts := range st.Tracks {
		id := sequencer.TrackID(i)
		marker := "  "
		nameStyle := textStyle
		if i == m.row {
			marker = "> "
			nameStyle = selStyle
		}
		if ts.Silent {
			nameStyle = nameStyle.Faint(true)
		}

		note := "---"
		if ts.Note != sequencer.NoNote {
			note = fmt.Sprintf("%3d", ts.Note)
		}
		flags := flag(ts.Muted, "M") + flag(ts.Soloed, "S")

		highlight := make(map[int]bool)
		for c := range m.lit {
			if c.track == id {
				highlight[c.display] = true
			}
		}
		cursor := -1
		if i == m.row {
			cursor = m.col
		}

		out.WriteString(marker)
		out.WriteString(nameStyle.Render(fmt.Sprintf("%-11s", ts.Name)))
		out.WriteString(dimStyle.Render(fmt.Sprintf(" %s %s ", note, flags)))
		out.WriteString(widgets.RenderSegments(m.Theme, ts.Segments))
		out.WriteString(" ")
		out.WriteString(widgets.RenderStepRow(m.Theme, ts.Cells, widgets.RowOptions{
			Steps:     m.visibleSteps(),
			Cursor:    cursor,
			Highlight: highlight,
		}))
		out.WriteString("\n")
	}

	out.WriteString("\n")
	switch m.mode {
	case inputNote:
		out.WriteString(textStyle.Render("note for " + st.Tracks[m.row].Name + ": "))
		out.WriteString(m.input.View())
	case inputTempo:
		out.WriteString(textStyle.Render("tempo: "))
		out.WriteString(m.input.View())
	default:
		if m.err != nil {
			out.WriteString(warnStyle.Render(fmsg.GetIssue(m.err)))
		} else {
			out.WriteString(dimStyle.Render(m.status))
		}
	}
	out.WriteString("\n\n")
	out.WriteString(m.help.View(m.keys))
	if m.help.ShowAll {
		out.WriteString("\n\n")
		out.WriteString(widgets.RenderLegend(m.Theme))
	}

	return out.String()
}

func (m Model) portStatus(ok, bad lipgloss.Style) string {
	if m.DeviceMgr == nil {
		return ok.Render("dry run")
	}
	var parts []string
	for _, p := range m.DeviceMgr.Ports() {
		if m.ports[p.Name()] != "" {
			parts = append(parts, ok.Render(p.Name()+" ●"))
		} else {
			parts = append(parts, bad.Render(p.Name()+" ○"))
		}
	}
	return strings.Join(parts, " ")
}

func flag(on bool, s string) string {
	if on {
		return s
	}
	return " "
}
