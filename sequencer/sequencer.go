package sequencer

import (
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"

	"drumding/debug"
	"drumding/midi"
)

// Tempo bounds used when Options leaves them unset
const (
	DefaultTempo    = 120
	DefaultMinTempo = 0
	DefaultMaxTempo = 240
)

// DefaultSections is how many segments a new track has enabled.
const DefaultSections = 2

// Options configures a Sequencer. Start from DefaultOptions: the tempo
// bounds are taken as given, so a zero MaxTempo pins the tempo at 0.
type Options struct {
	Sink     midi.Sink
	Policy   CursorPolicy
	Tempo    int
	MinTempo int
	MaxTempo int
	Sections int // segments enabled at startup and after Reset
}

// DefaultOptions returns the stock settings: no sink, per-track cursors,
// 120 BPM within 0..240, two segments.
func DefaultOptions() Options {
	return Options{
		Policy:   PerTrack{},
		Tempo:    DefaultTempo,
		MinTempo: DefaultMinTempo,
		MaxTempo: DefaultMaxTempo,
		Sections: DefaultSections,
	}
}

// StepEvent is passed to the step hook for every position played.
type StepEvent struct {
	Track   TrackID
	Name    string
	Index   int
	Display int
	Color   DisplayColor
	Step    time.Duration // step length at the time it played
}

// Sequencer owns the tracks, solo selection, tempo and transport. Every
// method is safe for concurrent use; track state sits behind one lock that
// the tick loop also holds for the whole of each tick.
type Sequencer struct {
	mu       sync.Mutex
	tracks   []*Track
	byName   map[string]TrackID
	solo     TrackID // -1 when nothing is soloed
	undo     undoLog
	policy   CursorPolicy
	sections int
	out      *dispatcher

	tempo              atomic.Int64
	minTempo, maxTempo int

	running bool
	gen     uint64
	ticks   int // global tick counter since play
	stop    chan struct{}
	clock   Clock

	onStepPlayed func(StepEvent)

	// Notify UI of updates
	UpdateChan chan struct{}
}

// New creates a sequencer with one track per instrument, in order.
func New(instruments []Instrument, opts Options) (*Sequencer, error) {
	if opts.Policy == nil {
		opts.Policy = PerTrack{}
	}
	if opts.MinTempo > opts.MaxTempo {
		return nil, fault.New("inverted tempo range",
			fmsg.WithDesc("min tempo above max", "Minimum tempo must not exceed maximum tempo"),
			ftag.With(ftag.InvalidArgument))
	}
	if opts.Sections < 0 || opts.Sections > NumSegments {
		return nil, fault.New("sections out of range",
			fmsg.WithDesc("bad sections "+strconv.Itoa(opts.Sections), "Sections must be between 0 and 4"),
			ftag.With(ftag.InvalidArgument))
	}

	s := &Sequencer{
		byName:     make(map[string]TrackID, len(instruments)),
		solo:       -1,
		policy:     opts.Policy,
		sections:   opts.Sections,
		out:        newDispatcher(opts.Sink),
		minTempo:   opts.MinTempo,
		maxTempo:   opts.MaxTempo,
		clock:      systemClock{},
		UpdateChan: make(chan struct{}, 1),
	}
	for _, inst := range instruments {
		if inst.Name == "" {
			return nil, fault.New("empty instrument name",
				fmsg.WithDesc("empty name", "Every instrument needs a name"),
				ftag.With(ftag.InvalidArgument))
		}
		if _, dup := s.byName[inst.Name]; dup {
			return nil, fault.New("duplicate instrument "+inst.Name,
				fmsg.WithDesc("duplicate name", "Instrument \""+inst.Name+"\" is listed twice"),
				ftag.With(ftag.InvalidArgument))
		}
		if inst.Note < NoNote || inst.Note > 127 {
			inst.Note = NoNote
		}
		s.byName[inst.Name] = TrackID(len(s.tracks))
		s.tracks = append(s.tracks, newTrack(inst, opts.Sections))
	}
	s.SetTempo(opts.Tempo)
	return s, nil
}

// SetSink replaces the output. nil silences dispatch.
func (s *Sequencer) SetSink(sink midi.Sink) {
	s.mu.Lock()
	s.out = newDispatcher(sink)
	s.mu.Unlock()
}

// SetOnStepPlayed installs the per-tick hook. It runs on the tick loop's
// goroutine, after the lock is released, and must not block.
func (s *Sequencer) SetOnStepPlayed(fn func(StepEvent)) {
	s.mu.Lock()
	s.onStepPlayed = fn
	s.mu.Unlock()
}

// Policy returns the name of the cursor policy in use.
func (s *Sequencer) Policy() string {
	return s.policy.Name()
}

// Len returns the number of tracks.
func (s *Sequencer) Len() int {
	return len(s.tracks)
}

// Name returns the track's instrument name.
func (s *Sequencer) Name(id TrackID) string {
	return s.track(id).name
}

// TrackByName looks a track up by instrument name.
func (s *Sequencer) TrackByName(name string) (TrackID, bool) {
	id, ok := s.byName[name]
	return id, ok
}

// track panics on an unknown handle. Track slice is fixed after New.
func (s *Sequencer) track(id TrackID) *Track {
	if id < 0 || int(id) >= len(s.tracks) {
		panic("sequencer: unknown track " + strconv.Itoa(int(id)))
	}
	return s.tracks[id]
}

// Step editing

// editStep applies fn to one step, logging undo only when the value changes.
func (s *Sequencer) editStep(id TrackID, index int, fn func(StepState) StepState) StepState {
	checkIndex(index)
	t := s.track(id)
	s.mu.Lock()
	prev := t.pattern.steps[index]
	next := fn(prev)
	if next != prev {
		s.undo.push(undoEntry{track: id, index: index, prev: prev})
		t.pattern.steps[index] = next
		t.refresh()
	}
	s.mu.Unlock()
	if next != prev {
		debug.Log("edit", "%s[%d] %s -> %s", t.name, index, prev, next)
		s.notifyUpdate()
	}
	return next
}

// ToggleStep flips Off and On. Disabled steps are left alone.
func (s *Sequencer) ToggleStep(id TrackID, index int) StepState {
	return s.editStep(id, index, toggle)
}

// CycleHalf steps through Off, HalfOn, On.
func (s *Sequencer) CycleHalf(id TrackID, index int) StepState {
	return s.editStep(id, index, cycleHalf)
}

// ToggleDisabled flips Off and Disabled. Audible steps are left alone.
func (s *Sequencer) ToggleDisabled(id TrackID, index int) StepState {
	return s.editStep(id, index, toggleDisabled)
}

// Step returns the stored state at a logical index.
func (s *Sequencer) Step(id TrackID, index int) StepState {
	checkIndex(index)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.track(id).pattern.steps[index]
}

// Steps returns the track's stored pattern in logical order.
func (s *Sequencer) Steps(id TrackID) [NumSteps]StepState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.track(id).pattern.steps
}

// ClearTrack sets all 64 steps Off. Masks and shift are kept.
func (s *Sequencer) ClearTrack(id TrackID) {
	s.withTrack(id, func(t *Track) {
		t.pattern.Clear()
	})
}

// ClearAll clears every track.
func (s *Sequencer) ClearAll() {
	s.mu.Lock()
	for _, t := range s.tracks {
		t.pattern.Clear()
		t.refresh()
	}
	s.mu.Unlock()
	s.notifyUpdate()
}

// Reset restores the startup state: empty patterns, default notes and
// segments, no shift, mute, solo or undo history. Transport is untouched.
func (s *Sequencer) Reset() {
	s.mu.Lock()
	for _, t := range s.tracks {
		t.pattern = NewPattern(s.sections)
		t.note = t.defaultNote
		t.muted = false
		t.resetPlayback()
		t.refresh()
	}
	s.solo = -1
	s.undo.clear()
	s.ticks = 0
	s.mu.Unlock()
	debug.Log("edit", "factory reset")
	s.notifyUpdate()
}

// withTrack runs fn under the lock and refreshes the track afterwards.
func (s *Sequencer) withTrack(id TrackID, fn func(t *Track)) {
	t := s.track(id)
	s.mu.Lock()
	fn(t)
	t.refresh()
	s.mu.Unlock()
	s.notifyUpdate()
}

// Enablement

func (s *Sequencer) SetSegmentEnabled(id TrackID, seg int, enabled bool) {
	checkSegment(seg)
	s.withTrack(id, func(t *Track) {
		t.pattern.SetSegmentEnabled(seg, enabled)
	})
}

func (s *Sequencer) ToggleSegment(id TrackID, seg int) {
	checkSegment(seg)
	s.withTrack(id, func(t *Track) {
		t.pattern.SetSegmentEnabled(seg, !t.pattern.segments[seg])
	})
}

// SetActiveLength enables exactly the first sections segments (0-4).
func (s *Sequencer) SetActiveLength(id TrackID, sections int) {
	if sections < 0 || sections > NumSegments {
		panic("sequencer: section count out of range")
	}
	s.withTrack(id, func(t *Track) {
		t.pattern.SetActiveLength(sections)
	})
}

// ExtendSection grows the active length by 16; no-op at 64.
func (s *Sequencer) ExtendSection(id TrackID) {
	s.withTrack(id, func(t *Track) {
		t.pattern.Extend()
	})
}

// RemoveSection shrinks the active length by 16; no-op at 0.
func (s *Sequencer) RemoveSection(id TrackID) {
	s.withTrack(id, func(t *Track) {
		t.pattern.Shrink()
	})
}

// ActiveLength returns the number of enabled steps.
func (s *Sequencer) ActiveLength(id TrackID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.track(id).pattern.ActiveLength()
}

// Segments returns the track's segment mask.
func (s *Sequencer) Segments(id TrackID) [NumSegments]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.track(id).pattern.segments
}

// Generators

// Shift rotates the track one step later (+1) or earlier (-1).
func (s *Sequencer) Shift(id TrackID, direction int) {
	if direction != 1 && direction != -1 {
		panic("sequencer: shift direction must be +1 or -1")
	}
	s.withTrack(id, func(t *Track) {
		t.pattern.Rotate(direction)
	})
}

// ShiftOffset returns the track's rotation (0-63).
func (s *Sequencer) ShiftOffset(id TrackID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.track(id).pattern.offset
}

// DisplayIndex maps a logical index to where it is drawn and played.
func (s *Sequencer) DisplayIndex(id TrackID, index int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.track(id).pattern.DisplayIndex(index)
}

// LogicalIndex maps a drawn position back to the index edits address.
func (s *Sequencer) LogicalIndex(id TrackID, display int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.track(id).pattern.LogicalIndex(display)
}

// ApplyEvery puts a hit on every nth active position and clears the rest
// of the active window. Masked and Disabled steps are untouched.
func (s *Sequencer) ApplyEvery(id TrackID, n int) {
	if n < MinEvery || n > MaxEvery {
		panic("sequencer: every-N out of range")
	}
	s.withTrack(id, func(t *Track) {
		t.refresh()
		applyEvery(&t.pattern, t.positions, n)
		debug.Log("edit", "%s every %d over %d steps", t.name, n, len(t.positions))
	})
}

// Mute and solo

func (s *Sequencer) Mute(id TrackID)   { s.setMuted(id, true) }
func (s *Sequencer) Unmute(id TrackID) { s.setMuted(id, false) }

func (s *Sequencer) ToggleMute(id TrackID) {
	t := s.track(id)
	s.mu.Lock()
	t.muted = !t.muted
	s.mu.Unlock()
	s.notifyUpdate()
}

func (s *Sequencer) setMuted(id TrackID, muted bool) {
	t := s.track(id)
	s.mu.Lock()
	t.muted = muted
	s.mu.Unlock()
	s.notifyUpdate()
}

func (s *Sequencer) Muted(id TrackID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.track(id).muted
}

// Solo makes id the only audible track, or clears the solo if id already
// holds it.
func (s *Sequencer) Solo(id TrackID) {
	s.track(id)
	s.mu.Lock()
	if s.solo == id {
		s.solo = -1
	} else {
		s.solo = id
	}
	s.mu.Unlock()
	s.notifyUpdate()
}

// Soloed returns the soloed track, if any.
func (s *Sequencer) Soloed() (TrackID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.solo, s.solo >= 0
}

// Note binding

// BindNote sets the track's note (0-127).
func (s *Sequencer) BindNote(id TrackID, note int) error {
	if note < 0 || note > 127 {
		return fault.New("note out of range",
			fmsg.WithDesc("bad note "+strconv.Itoa(note), "Note must be between 0 and 127"),
			ftag.With(ftag.InvalidArgument))
	}
	t := s.track(id)
	s.mu.Lock()
	t.note = note
	s.mu.Unlock()
	s.notifyUpdate()
	return nil
}

// BindNoteText binds a note typed by the user. Text that is not a number
// in 0-127 leaves the track unbound and returns false.
func (s *Sequencer) BindNoteText(id TrackID, text string) bool {
	note, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || s.BindNote(id, note) != nil {
		s.UnbindNote(id)
		return false
	}
	return true
}

// UnbindNote silences the track until a note is bound again.
func (s *Sequencer) UnbindNote(id TrackID) {
	t := s.track(id)
	s.mu.Lock()
	t.note = NoNote
	s.mu.Unlock()
	s.notifyUpdate()
}

// Note returns the bound note, or NoNote.
func (s *Sequencer) Note(id TrackID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.track(id).note
}

// ResolveNote returns the note the track would play now: none when muted,
// when another track is soloed, or when unbound.
func (s *Sequencer) ResolveNote(id TrackID) (uint8, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveLocked(id)
}

func (s *Sequencer) resolveLocked(id TrackID) (uint8, bool) {
	t := s.track(id)
	if t.muted || (s.solo >= 0 && s.solo != id) || !t.bound() {
		return 0, false
	}
	return uint8(t.note), true
}

// Undo reverts the most recent single-step edit. Returns false when there
// is nothing to undo.
func (s *Sequencer) Undo() bool {
	s.mu.Lock()
	e, ok := s.undo.pop()
	if ok {
		t := s.track(e.track)
		t.pattern.steps[e.index] = e.prev
		t.refresh()
	}
	s.mu.Unlock()
	if ok {
		s.notifyUpdate()
	}
	return ok
}

// UndoDepth returns the number of undoable edits.
func (s *Sequencer) UndoDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.undo.len()
}

// Queries

// VisibleSteps returns all 64 slots in display order with the mute overlay
// applied to their colors.
func (s *Sequencer) VisibleSteps(id TrackID) []Cell {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.track(id).cells()
}

// Positions returns a copy of the track's active position list.
func (s *Sequencer) Positions(id TrackID) []Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.track(id)
	out := make([]Position, len(t.positions))
	copy(out, t.positions)
	return out
}

// Tempo and transport

// SetTempo sets the BPM, clamped to the configured range. Takes effect on
// the next step boundary.
func (s *Sequencer) SetTempo(bpm int) {
	if bpm < s.minTempo {
		bpm = s.minTempo
	}
	if bpm > s.maxTempo {
		bpm = s.maxTempo
	}
	s.tempo.Store(int64(bpm))
	s.notifyUpdate()
}

func (s *Sequencer) Tempo() int {
	return int(s.tempo.Load())
}

// TempoRange returns the configured bounds.
func (s *Sequencer) TempoRange() (lo, hi int) {
	return s.minTempo, s.maxTempo
}

// StepDuration is the length of one sixteenth at the current tempo.
func (s *Sequencer) StepDuration() time.Duration {
	return stepDuration(s.Tempo())
}

func (s *Sequencer) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Play starts the tick loop. The first step plays immediately. No-op when
// already running.
func (s *Sequencer) Play() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.gen++
	s.ticks = 0
	for _, t := range s.tracks {
		t.resetPlayback()
	}
	s.stop = make(chan struct{})
	gen, stop := s.gen, s.stop
	s.mu.Unlock()

	debug.Log("transport", "play at %d bpm (%s/step, %s policy)", s.Tempo(), s.StepDuration(), s.policy.Name())
	go s.loop(gen, stop)
	s.notifyUpdate()
}

// Stop halts playback, resets cursors and sends all-notes-off on all 16
// channels. The burst goes out on every call, running or not.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	if s.running {
		s.running = false
		s.gen++
		close(s.stop)
		s.stop = nil
		debug.Log("transport", "stop after %d ticks", s.ticks)
	}
	s.ticks = 0
	for _, t := range s.tracks {
		t.resetPlayback()
	}
	out := s.out
	s.mu.Unlock()

	out.allNotesOff()
	s.notifyUpdate()
}

// Panic sends the all-notes-off burst without touching the transport.
func (s *Sequencer) Panic() {
	s.mu.Lock()
	out := s.out
	s.mu.Unlock()
	out.allNotesOff()
}

// TogglePlay starts or stops playback.
func (s *Sequencer) TogglePlay() {
	if s.Running() {
		s.Stop()
	} else {
		s.Play()
	}
}

// tick advances every track by one step and dispatches. Returns false when
// gen is no longer the current play session.
func (s *Sequencer) tick(gen uint64) bool {
	step := s.StepDuration()

	s.mu.Lock()
	if !s.running || s.gen != gen {
		s.mu.Unlock()
		return false
	}
	n := s.ticks
	s.ticks++
	played := make([]StepEvent, 0, len(s.tracks))
	for i, t := range s.tracks {
		id := TrackID(i)
		pos, ok := s.policy.Due(t, n)
		if !ok {
			continue
		}
		t.playhead = pos.Display
		if note, ok := s.resolveLocked(id); ok {
			s.out.note(note, pos.State)
		}
		played = append(played, StepEvent{
			Track:   id,
			Name:    t.name,
			Index:   pos.Index,
			Display: pos.Display,
			Color:   displayColor(pos.State, t.muted),
			Step:    step,
		})
	}
	hook := s.onStepPlayed
	s.mu.Unlock()

	debug.LogEvery(SegmentSize, "transport", "tick %d", n)
	if hook != nil {
		for _, e := range played {
			hook(e)
		}
	}
	s.notifyUpdate()
	return true
}

// notifyUpdate wakes the UI without blocking.
func (s *Sequencer) notifyUpdate() {
	select {
	case s.UpdateChan <- struct{}{}:
	default:
	}
}
