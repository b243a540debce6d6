package sequencer

import (
	"sync"
	"testing"
	"time"

	"drumding/midi"
)

// manualClock only moves when the test advances it. waiting receives a
// value each time the loop blocks in After.
type manualClock struct {
	mu      sync.Mutex
	now     time.Time
	timers  []manualTimer
	waiting chan struct{}
}

type manualTimer struct {
	at time.Time
	ch chan time.Time
}

func newManualClock() *manualClock {
	return &manualClock{
		now:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		waiting: make(chan struct{}, 64),
	}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	ch := make(chan time.Time, 1)
	at := c.now.Add(d)
	if !at.After(c.now) {
		ch <- c.now
	} else {
		c.timers = append(c.timers, manualTimer{at: at, ch: ch})
	}
	c.mu.Unlock()
	c.waiting <- struct{}{}
	return ch
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	kept := c.timers[:0]
	for _, tm := range c.timers {
		if tm.at.After(c.now) {
			kept = append(kept, tm)
			continue
		}
		tm.ch <- c.now
	}
	c.timers = kept
}

func (c *manualClock) waitBlocked(t *testing.T) {
	t.Helper()
	select {
	case <-c.waiting:
	case <-time.After(2 * time.Second):
		t.Fatalf("tick loop never blocked on the clock")
	}
}

func TestStepDuration(t *testing.T) {
	tests := []struct {
		bpm  int
		want time.Duration
	}{
		{120, 125 * time.Millisecond},
		{60, 250 * time.Millisecond},
		{240, 62500 * time.Microsecond},
		{0, 15 * time.Second},
		{1, 15 * time.Second},
	}
	for _, tt := range tests {
		if got := stepDuration(tt.bpm); got != tt.want {
			t.Errorf("stepDuration(%d) = %s, want %s", tt.bpm, got, tt.want)
		}
	}
}

func TestCatchUpFiresEveryMissedBoundary(t *testing.T) {
	const d = 100 * time.Millisecond
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ticks := 0
	r := &run{
		next: t0,
		step: func() time.Duration { return d },
		tick: func() bool { ticks++; return true },
	}

	if n := r.catchUp(t0); n != 1 {
		t.Fatalf("first boundary fired %d ticks, want 1", n)
	}
	// Clock source blocked for 3.5 steps
	if n := r.catchUp(t0.Add(7 * d / 2)); n != 3 {
		t.Fatalf("after 3.5d stall fired %d ticks, want 3", n)
	}
	if want := t0.Add(4 * d); !r.next.Equal(want) {
		t.Fatalf("next = %s, want %s", r.next, want)
	}
	// Back to real-time pacing
	if n := r.catchUp(t0.Add(7*d/2 + d/4)); n != 0 {
		t.Fatalf("fired %d ticks before the next boundary", n)
	}
	if ticks != 4 {
		t.Fatalf("ticks = %d, want 4", ticks)
	}
}

func TestCatchUpUsesCurrentTempo(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d := 100 * time.Millisecond
	r := &run{
		next: t0,
		step: func() time.Duration { return d },
		tick: func() bool { return true },
	}
	r.catchUp(t0)
	d = 50 * time.Millisecond // tempo doubled between ticks
	r.catchUp(t0.Add(100 * time.Millisecond))
	if want := t0.Add(150 * time.Millisecond); !r.next.Equal(want) {
		t.Fatalf("next = %s, want %s", r.next, want)
	}
}

func TestCatchUpStopsWhenSessionEnds(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	r := &run{
		next: t0,
		step: func() time.Duration { return time.Millisecond },
		tick: func() bool { calls++; return calls < 3 },
	}
	if n := r.catchUp(t0.Add(time.Second)); n != 2 || !r.done {
		t.Fatalf("fired %d ticks, done=%v; want 2, true", n, r.done)
	}
}

func TestPlayKickForOneSecond(t *testing.T) {
	rec := &midi.Recorder{}
	s := newTestSequencer(t, rec)
	clk := newManualClock()
	s.clock = clk

	kick := mustTrack(t, s, "kick")
	s.SetActiveLength(kick, 1)
	s.ToggleStep(kick, 0)
	s.SetTempo(120)

	var mu sync.Mutex
	var played []StepEvent
	s.SetOnStepPlayed(func(e StepEvent) {
		if e.Track != kick {
			return
		}
		mu.Lock()
		played = append(played, e)
		mu.Unlock()
	})

	s.Play()
	clk.waitBlocked(t) // step 0 has played
	for i := 0; i < 8; i++ {
		clk.Advance(125 * time.Millisecond)
		clk.waitBlocked(t)
	}
	s.Stop()

	events := rec.Events()
	notes := events[:len(events)-midi.NumChannels]
	if len(notes) != 2 {
		t.Fatalf("note messages = %v, want one on/off pair", notes)
	}
	if notes[0] != (midi.Event{Type: midi.NoteOn, Note: 36, Velocity: 100}) ||
		notes[1] != (midi.Event{Type: midi.NoteOff, Note: 36, Velocity: 100}) {
		t.Fatalf("unexpected notes %v", notes)
	}
	for _, e := range events[len(notes):] {
		if e.Type != midi.CC || e.Note != midi.ControllerAllNotesOff {
			t.Fatalf("stop burst contains %s", e)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(played) != 9 {
		t.Fatalf("kick played %d steps in 1s, want 9", len(played))
	}
	for i, e := range played {
		if e.Display != i {
			t.Fatalf("tick %d played display %d", i, e.Display)
		}
	}
	if played[0].Color != ColorOn || played[1].Color != ColorOff {
		t.Fatalf("hook colors = %s, %s", played[0].Color, played[1].Color)
	}
}

func TestStopIsImmediate(t *testing.T) {
	rec := &midi.Recorder{}
	s := newTestSequencer(t, rec)
	clk := newManualClock()
	s.clock = clk
	kick := mustTrack(t, s, "kick")
	for i := 0; i < 32; i++ {
		s.ToggleStep(kick, i)
	}

	s.Play()
	clk.waitBlocked(t)
	s.Stop()
	rec.Reset()

	clk.Advance(time.Second)
	time.Sleep(20 * time.Millisecond)
	if got := rec.Events(); len(got) != 0 {
		t.Fatalf("messages after stop: %v", got)
	}
	if s.Snapshot().Tracks[kick].Playhead != -1 {
		t.Fatalf("stop did not reset the playhead")
	}
}

func TestPlayWhileRunningIsNoop(t *testing.T) {
	s := newTestSequencer(t, nil)
	clk := newManualClock()
	s.clock = clk

	s.Play()
	clk.waitBlocked(t)
	s.Play()
	select {
	case <-clk.waiting:
		t.Fatalf("second play started another loop")
	case <-time.After(20 * time.Millisecond):
	}
	s.Stop()
}

func TestPerTrackCursorsDrift(t *testing.T) {
	s := newTestSequencer(t, nil)
	kick := mustTrack(t, s, "kick")
	snare := mustTrack(t, s, "snare")
	s.SetActiveLength(kick, 1)
	s.SetActiveLength(snare, 2)
	s.ToggleDisabled(snare, 1)

	s.running = true
	s.gen = 1
	var kickSteps, snareSteps []int
	s.SetOnStepPlayed(func(e StepEvent) {
		switch e.Track {
		case kick:
			kickSteps = append(kickSteps, e.Display)
		case snare:
			snareSteps = append(snareSteps, e.Display)
		}
	})
	for i := 0; i < 17; i++ {
		s.tick(1)
	}

	if kickSteps[16] != 0 {
		t.Fatalf("kick did not wrap at 16: %v", kickSteps)
	}
	// snare skips the disabled step by compaction, never repeating one
	if snareSteps[1] != 2 || snareSteps[16] != 17 {
		t.Fatalf("snare steps = %v", snareSteps)
	}
}

func TestGlobalPolicyAlignsAndSkipsDisabled(t *testing.T) {
	instruments, _ := GetKit("gm")
	opts := DefaultOptions()
	opts.Policy = Global{}
	s, err := New(instruments, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	kick := mustTrack(t, s, "kick")
	snare := mustTrack(t, s, "snare")
	s.SetActiveLength(kick, 1)
	s.ToggleDisabled(snare, 1)

	s.running = true
	s.gen = 1
	var snareSteps []int
	var kickSteps []int
	s.SetOnStepPlayed(func(e StepEvent) {
		switch e.Track {
		case kick:
			kickSteps = append(kickSteps, e.Display)
		case snare:
			snareSteps = append(snareSteps, e.Display)
		}
	})
	for i := 0; i < 33; i++ {
		s.tick(1)
	}

	if len(kickSteps) != 33 || kickSteps[16] != 0 || kickSteps[32] != 0 {
		t.Fatalf("kick steps = %v", kickSteps)
	}
	// tick 1 lands on the disabled step and plays nothing
	if len(snareSteps) != 32 || snareSteps[1] != 2 || snareSteps[31] != 0 {
		t.Fatalf("snare steps = %v", snareSteps)
	}
}

func TestParsePolicy(t *testing.T) {
	for _, name := range PolicyNames() {
		p, err := ParsePolicy(name)
		if err != nil || p.Name() != name {
			t.Fatalf("ParsePolicy(%q) = %v, %v", name, p, err)
		}
	}
	if _, err := ParsePolicy("swing"); err == nil {
		t.Fatalf("unknown policy accepted")
	}
}
