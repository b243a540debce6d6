package sequencer

import (
	"sync"

	"drumding/debug"
	"drumding/midi"
)

// dispatcher turns due steps into sink messages. A nil sink is a silent
// no-op. Sink errors never reach the scheduler: a failure is reported when
// the output goes from working to failing, so a port that comes back and
// fails again is reported again.
//
// Sends are serialized by the dispatcher's own lock, not the sequencer's,
// so a slow port never holds up edits.
type dispatcher struct {
	mu     sync.Mutex
	sink   midi.Sink
	failed bool
}

func newDispatcher(sink midi.Sink) *dispatcher {
	return &dispatcher{sink: sink}
}

// note emits a note-on immediately followed by its note-off.
func (d *dispatcher) note(note uint8, s StepState) bool {
	if d.sink == nil || !s.Audible() {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	v := s.Velocity()
	d.check(d.sink.NoteOn(note, v))
	d.check(d.sink.NoteOff(note, v))
	return true
}

// allNotesOff sends CC 123 value 0 on every channel.
func (d *dispatcher) allNotesOff() {
	if d.sink == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for ch := uint8(0); ch < midi.NumChannels; ch++ {
		d.check(d.sink.ControlChange(ch, midi.ControllerAllNotesOff, 0))
	}
	debug.Log("dispatch", "all notes off")
}

// check must be called with d.mu held.
func (d *dispatcher) check(err error) {
	switch {
	case err != nil && !d.failed:
		d.failed = true
		debug.Warn("dispatch", "output failed, continuing visual-only: %v", err)
	case err == nil && d.failed:
		d.failed = false
		debug.Log("dispatch", "output recovered")
	}
}
