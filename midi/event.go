package midi

import "fmt"

// MIDI message types
const (
	NoteOn  uint8 = 0x90
	NoteOff uint8 = 0x80
	CC      uint8 = 0xB0
)

// Channel mode messages used by the sequencer
const (
	ControllerAllNotesOff uint8 = 123
	NumChannels                 = 16
)

// Event represents a MIDI message sent to a sink
type Event struct {
	Type     uint8 // NoteOn, NoteOff, CC
	Channel  uint8 // CC only; note messages use the sink's channel
	Note     uint8 // note number, or controller number for CC
	Velocity uint8 // velocity, or controller value for CC
}

func (e Event) String() string {
	switch e.Type {
	case NoteOn:
		return fmt.Sprintf("note-on(%d,%d)", e.Note, e.Velocity)
	case NoteOff:
		return fmt.Sprintf("note-off(%d,%d)", e.Note, e.Velocity)
	case CC:
		return fmt.Sprintf("cc(ch=%d,%d,%d)", e.Channel, e.Note, e.Velocity)
	}
	return fmt.Sprintf("event(0x%02x)", e.Type)
}
