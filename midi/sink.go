package midi

import (
	"errors"
	"sync"

	"drumding/debug"
)

// Sink is the output side of the sequencer: anything that accepts note and
// control messages. Note messages go out on the sink's own channel.
type Sink interface {
	NoteOn(note, velocity uint8) error
	NoteOff(note, velocity uint8) error
	ControlChange(channel, controller, value uint8) error
}

// Fanout sends every message to all of its sinks. Errors are joined; a
// failing sink does not stop delivery to the others.
type Fanout []Sink

func (f Fanout) NoteOn(note, velocity uint8) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		errs = append(errs, s.NoteOn(note, velocity))
	}
	return errors.Join(errs...)
}

func (f Fanout) NoteOff(note, velocity uint8) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		errs = append(errs, s.NoteOff(note, velocity))
	}
	return errors.Join(errs...)
}

func (f Fanout) ControlChange(channel, controller, value uint8) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		errs = append(errs, s.ControlChange(channel, controller, value))
	}
	return errors.Join(errs...)
}

// Port is a sink whose target can be swapped at runtime (hot-plug). With no
// target every call is a silent no-op.
type Port struct {
	name string
	mu   sync.RWMutex
	sink Sink
}

// NewPort creates an unconnected port for the named output.
func NewPort(name string) *Port {
	return &Port{name: name}
}

func (p *Port) Name() string {
	return p.name
}

// Set replaces the target sink (nil disconnects).
func (p *Port) Set(s Sink) {
	p.mu.Lock()
	p.sink = s
	p.mu.Unlock()
}

// Connected reports whether a target is present.
func (p *Port) Connected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sink != nil
}

func (p *Port) target() Sink {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sink
}

func (p *Port) NoteOn(note, velocity uint8) error {
	if s := p.target(); s != nil {
		return s.NoteOn(note, velocity)
	}
	return nil
}

func (p *Port) NoteOff(note, velocity uint8) error {
	if s := p.target(); s != nil {
		return s.NoteOff(note, velocity)
	}
	return nil
}

func (p *Port) ControlChange(channel, controller, value uint8) error {
	if s := p.target(); s != nil {
		return s.ControlChange(channel, controller, value)
	}
	return nil
}

// Recorder keeps every message it receives, in order.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) NoteOn(note, velocity uint8) error {
	r.add(Event{Type: NoteOn, Note: note, Velocity: velocity})
	return nil
}

func (r *Recorder) NoteOff(note, velocity uint8) error {
	r.add(Event{Type: NoteOff, Note: note, Velocity: velocity})
	return nil
}

func (r *Recorder) ControlChange(channel, controller, value uint8) error {
	r.add(Event{Type: CC, Channel: channel, Note: controller, Velocity: value})
	return nil
}

func (r *Recorder) add(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Reset forgets all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

// LogSink writes messages to the debug log instead of a port (dry runs).
type LogSink struct{}

func (LogSink) NoteOn(note, velocity uint8) error {
	debug.Log("dispatch", "%s", Event{Type: NoteOn, Note: note, Velocity: velocity})
	return nil
}

func (LogSink) NoteOff(note, velocity uint8) error {
	debug.Log("dispatch", "%s", Event{Type: NoteOff, Note: note, Velocity: velocity})
	return nil
}

func (LogSink) ControlChange(channel, controller, value uint8) error {
	debug.LogEvery(NumChannels, "dispatch", "%s", Event{Type: CC, Channel: channel, Note: controller, Velocity: value})
	return nil
}
