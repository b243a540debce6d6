package midi

import (
	"context"
	"errors"
	"testing"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

type capture struct {
	msgs []gomidi.Message
	err  error
}

func (c *capture) send(m gomidi.Message) error {
	c.msgs = append(c.msgs, m)
	return c.err
}

func TestOutputEncodesMessages(t *testing.T) {
	c := &capture{}
	out := NewOutput("gord 1", 9, c.send)

	out.NoteOn(36, 100)
	out.NoteOff(36, 50)
	out.ControlChange(15, ControllerAllNotesOff, 0)

	if len(c.msgs) != 3 {
		t.Fatalf("sent %d messages, want 3", len(c.msgs))
	}

	var ch, key, vel uint8
	if !c.msgs[0].GetNoteOn(&ch, &key, &vel) || ch != 9 || key != 36 || vel != 100 {
		t.Fatalf("note-on decoded as ch=%d key=%d vel=%d", ch, key, vel)
	}
	if !c.msgs[1].GetNoteOff(&ch, &key, &vel) || ch != 9 || key != 36 || vel != 50 {
		t.Fatalf("note-off decoded as ch=%d key=%d vel=%d", ch, key, vel)
	}
	var cc, val uint8
	if !c.msgs[2].GetControlChange(&ch, &cc, &val) || ch != 15 || cc != 123 || val != 0 {
		t.Fatalf("cc decoded as ch=%d cc=%d val=%d", ch, cc, val)
	}
}

func TestOutputMasksChannel(t *testing.T) {
	out := NewOutput("x", 17, (&capture{}).send)
	if out.Channel() != 1 {
		t.Fatalf("channel = %d, want 1", out.Channel())
	}
}

func TestFanoutDeliversToAllAndJoinsErrors(t *testing.T) {
	a, b := &Recorder{}, &capture{err: errors.New("port gone")}
	f := Fanout{a, nil, NewOutput("b", 0, b.send)}

	err := f.NoteOn(38, 100)
	if err == nil {
		t.Fatalf("expected joined error from failing sink")
	}
	if len(a.Events()) != 1 || len(b.msgs) != 1 {
		t.Fatalf("fanout delivered %d/%d, want 1/1", len(a.Events()), len(b.msgs))
	}
	if err := (Fanout{a}).ControlChange(0, 123, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPortWithoutTargetIsSilent(t *testing.T) {
	p := NewPort("gord 1")
	if p.Connected() {
		t.Fatalf("new port should be disconnected")
	}
	if err := p.NoteOn(36, 100); err != nil {
		t.Fatalf("disconnected port returned %v", err)
	}

	r := &Recorder{}
	p.Set(r)
	p.NoteOn(36, 100)
	p.Set(nil)
	p.NoteOff(36, 100)

	got := r.Events()
	if len(got) != 1 || got[0].Type != NoteOn {
		t.Fatalf("recorded %v, want only the connected note-on", got)
	}
}

func TestMatchPort(t *testing.T) {
	names := []string{"Midi Through:Midi Through Port-0 14:0", "gord 1 20:0", "gord 10"}
	tests := []struct {
		want string
		idx  int
	}{
		{"gord 10", 2},
		{"gord 1", 1},
		{"GORD", 1},
		{"launchpad", -1},
		{"", -1},
	}
	for _, tt := range tests {
		if got := MatchPort(names, tt.want); got != tt.idx {
			t.Errorf("MatchPort(%q) = %d, want %d", tt.want, got, tt.idx)
		}
	}
}

type fakeOut struct{ name string }

func (f fakeOut) Open() error             { return nil }
func (f fakeOut) Close() error            { return nil }
func (f fakeOut) IsOpen() bool            { return true }
func (f fakeOut) Number() int             { return 0 }
func (f fakeOut) String() string          { return f.name }
func (f fakeOut) Underlying() interface{} { return nil }
func (f fakeOut) Send([]byte) error       { return nil }

func TestDeviceManagerHotPlug(t *testing.T) {
	var present []drivers.Out
	sent := &capture{}

	dm := NewDeviceManager([]OutputSpec{{PortName: "gord 1", Channel: 0}})
	dm.listPorts = func() []drivers.Out { return present }
	dm.open = func(p drivers.Out, ch uint8) (*Output, error) {
		return NewOutput(p.String(), ch, sent.send), nil
	}
	sink := dm.Sink()

	dm.Scan()
	if dm.Connected() != 0 {
		t.Fatalf("connected without any port present")
	}
	sink.NoteOn(36, 100) // silently dropped

	present = []drivers.Out{fakeOut{"gord 1 24:0"}}
	dm.Scan()
	if dm.Connected() != 1 {
		t.Fatalf("port not connected after it appeared")
	}
	if ev := <-dm.Events(); ev.Type != DeviceConnected || ev.Port != "gord 1 24:0" {
		t.Fatalf("unexpected event %+v", ev)
	}
	sink.NoteOn(36, 100)

	present = nil
	dm.Scan()
	if dm.Connected() != 0 {
		t.Fatalf("port still connected after it vanished")
	}
	if ev := <-dm.Events(); ev.Type != DeviceDisconnected {
		t.Fatalf("unexpected event %+v", ev)
	}
	sink.NoteOn(36, 100)

	if len(sent.msgs) != 1 {
		t.Fatalf("output saw %d messages, want 1", len(sent.msgs))
	}
}

func TestShutdownKeepsPortsForFinalBurst(t *testing.T) {
	sent := &capture{}
	dm := NewDeviceManager([]OutputSpec{{PortName: "gord 1", Channel: 0}})
	dm.pollRate = time.Hour
	dm.listPorts = func() []drivers.Out { return []drivers.Out{fakeOut{"gord 1 24:0"}} }
	dm.open = func(p drivers.Out, ch uint8) (*Output, error) {
		return NewOutput(p.String(), ch, sent.send), nil
	}
	sink := dm.Sink()

	ctx, cancel := context.WithCancel(context.Background())
	go dm.Run(ctx)
	if ev := <-dm.Events(); ev.Type != DeviceConnected {
		t.Fatalf("unexpected event %+v", ev)
	}
	cancel()
	for range dm.Events() {
	}

	// The signal has stopped polling; the stop burst must still get out
	for ch := uint8(0); ch < NumChannels; ch++ {
		sink.ControlChange(ch, ControllerAllNotesOff, 0)
	}
	if len(sent.msgs) != NumChannels {
		t.Fatalf("burst after cancel delivered %d/16", len(sent.msgs))
	}

	dm.Close()
	if dm.Connected() != 0 {
		t.Fatalf("Close left outputs open")
	}
	dm.Scan()
	if dm.Connected() != 0 {
		t.Fatalf("Scan reopened a port after Close")
	}
	sink.NoteOn(36, 100)
	if len(sent.msgs) != NumChannels {
		t.Fatalf("closed port still sending")
	}
}

func TestNewDeviceManagerUsesDriver(t *testing.T) {
	dm := NewDeviceManager(nil)
	if dm.listPorts == nil || dm.open == nil {
		t.Fatalf("driver hooks not set")
	}
	if dm.pollRate != time.Second || dm.timeout != 3*time.Second {
		t.Fatalf("poll %s timeout %s", dm.pollRate, dm.timeout)
	}
}
