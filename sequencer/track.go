package sequencer

// NoNote marks an instrument without a note binding.
const NoNote = -1

// TrackID is a stable handle for a track inside its Sequencer.
type TrackID int

// Instrument is the startup description of one track.
type Instrument struct {
	Name string
	Note int // 0-127, or NoNote
}

// Track is one instrument row: its pattern, note binding, mute flag and
// playback cursor. All fields are guarded by the owning Sequencer's lock.
type Track struct {
	name        string
	defaultNote int
	note        int // NoNote when unbound
	muted       bool
	pattern     Pattern

	cursor    int        // per-track playback cursor
	playhead  int        // display index last played, -1 if none
	positions []Position // derived, see refresh
}

func newTrack(inst Instrument, sections int) *Track {
	t := &Track{
		name:        inst.Name,
		defaultNote: inst.Note,
		note:        inst.Note,
		pattern:     NewPattern(sections),
		playhead:    -1,
	}
	t.refresh()
	return t
}

// refresh recomputes the active position list. Called after every change
// to steps, segments or offset.
func (t *Track) refresh() {
	t.positions = t.pattern.Positions()
}

func (t *Track) resetPlayback() {
	t.cursor = 0
	t.playhead = -1
}

func (t *Track) bound() bool {
	return t.note >= 0 && t.note <= 127
}

// cells returns all 64 display slots in display order.
func (t *Track) cells() []Cell {
	cells := make([]Cell, NumSteps)
	for d := range cells {
		i := t.pattern.LogicalIndex(d)
		s := t.pattern.steps[i]
		cells[d] = Cell{
			Display: d,
			Index:   i,
			State:   s,
			Color:   displayColor(s, t.muted),
			Enabled: t.pattern.segments[d/SegmentSize],
			Playing: d == t.playhead,
		}
	}
	return cells
}

// Cell is one rendered step slot.
type Cell struct {
	Display int
	Index   int
	State   StepState
	Color   DisplayColor
	Enabled bool // inside an enabled segment
	Playing bool // last played position
}
