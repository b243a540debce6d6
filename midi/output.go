package midi

import (
	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// Output sends sequencer messages to one gomidi port on a fixed channel.
type Output struct {
	name    string
	channel uint8 // 0-15
	send    func(gomidi.Message) error
	port    drivers.Out
}

// NewOutput wraps an already opened send function.
func NewOutput(name string, channel uint8, send func(gomidi.Message) error) *Output {
	return &Output{
		name:    name,
		channel: channel & 0x0F,
		send:    send,
	}
}

// OpenOutput opens port and returns an Output on channel (0-15).
func OpenOutput(port drivers.Out, channel uint8) (*Output, error) {
	send, err := gomidi.SendTo(port)
	if err != nil {
		return nil, fault.Wrap(err,
			fmsg.WithDesc("open output port", "Could not open MIDI output "+port.String()),
			ftag.With(ftag.Internal))
	}
	o := NewOutput(port.String(), channel, send)
	o.port = port
	return o, nil
}

// FindOutPort returns the first output port whose name matches want.
func FindOutPort(want string) (drivers.Out, error) {
	outs := gomidi.GetOutPorts()
	names := make([]string, len(outs))
	for i, p := range outs {
		names[i] = p.String()
	}
	if i := MatchPort(names, want); i >= 0 {
		return outs[i], nil
	}
	return nil, fault.New("output port not found",
		fmsg.WithDesc("no port named "+want, "MIDI output \""+want+"\" is not connected"),
		ftag.With(ftag.NotFound))
}

func (o *Output) Name() string {
	return o.name
}

func (o *Output) Channel() uint8 {
	return o.channel
}

func (o *Output) NoteOn(note, velocity uint8) error {
	return o.send(gomidi.NoteOn(o.channel, note, velocity))
}

func (o *Output) NoteOff(note, velocity uint8) error {
	return o.send(gomidi.NoteOffVelocity(o.channel, note, velocity))
}

func (o *Output) ControlChange(channel, controller, value uint8) error {
	return o.send(gomidi.ControlChange(channel, controller, value))
}

// Close closes the underlying port if Output opened it.
func (o *Output) Close() error {
	if o.port == nil {
		return nil
	}
	return o.port.Close()
}
