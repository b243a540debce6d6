package sequencer

import (
	"runtime"
	"time"
)

// Clock is the time source of the tick loop.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// StepsPerBeat is the grid resolution: sixteenth notes.
const StepsPerBeat = 4

// stepDuration is the length of one step at bpm. 0 BPM counts as 1.
func stepDuration(bpm int) time.Duration {
	if bpm < 1 {
		bpm = 1
	}
	return time.Minute / time.Duration(bpm*StepsPerBeat)
}

// run is the state of one play session of the tick loop.
type run struct {
	next time.Time
	step func() time.Duration // current step length, read per tick
	tick func() bool          // false once the session is over
	done bool
}

// catchUp fires every step boundary at or before now, advancing next by
// the current step length after each one. Missed boundaries all fire; none
// are collapsed. Returns the number of ticks fired.
func (r *run) catchUp(now time.Time) int {
	n := 0
	for !r.done && !r.next.After(now) {
		if !r.tick() {
			r.done = true
			break
		}
		n++
		r.next = r.next.Add(r.step())
	}
	return n
}

// loop drives one play session until stop is closed or the session is
// superseded.
func (s *Sequencer) loop(gen uint64, stop <-chan struct{}) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	r := &run{
		next: s.clock.Now(),
		step: s.StepDuration,
		tick: func() bool { return s.tick(gen) },
	}
	for {
		r.catchUp(s.clock.Now())
		if r.done {
			return
		}
		select {
		case <-stop:
			return
		case <-s.clock.After(r.next.Sub(s.clock.Now())):
		}
	}
}
