package midi

import (
	"context"
	"strings"
	"sync"
	"time"

	"drumding/debug"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// DeviceEvent is emitted when a configured output connects/disconnects
type DeviceEvent struct {
	Type DeviceEventType
	Name string // configured port name
	Port string // actual port name (connect only)
}

type DeviceEventType int

const (
	DeviceConnected DeviceEventType = iota
	DeviceDisconnected
)

// OutputSpec names an output port to keep connected and its note channel.
type OutputSpec struct {
	PortName string
	Channel  uint8 // 0-15
}

type binding struct {
	spec OutputSpec
	port *Port
	out  *Output
}

// DeviceManager handles hot-plug of the configured output ports. Each OutputSpec
// gets a Port that stays valid for the whole session; the manager swaps the
// real output in and out of it as the device comes and goes.
type DeviceManager struct {
	bindings []*binding
	mu       sync.RWMutex
	events   chan DeviceEvent
	pollRate time.Duration
	timeout  time.Duration
	closed   bool // set by Close; Scan no longer opens ports

	listPorts func() []drivers.Out
	open      func(drivers.Out, uint8) (*Output, error)
}

// NewDeviceManager creates a new device manager
func NewDeviceManager(specs []OutputSpec) *DeviceManager {
	dm := &DeviceManager{
		events:    make(chan DeviceEvent, 16),
		pollRate:  time.Second,
		timeout:   3 * time.Second,
		listPorts: func() []drivers.Out { return gomidi.GetOutPorts() },
		open:      OpenOutput,
	}
	for _, s := range specs {
		dm.bindings = append(dm.bindings, &binding{spec: s, port: NewPort(s.PortName)})
	}
	return dm
}

// Events returns a channel of device connect/disconnect events
func (dm *DeviceManager) Events() <-chan DeviceEvent {
	return dm.events
}

// Sink returns a sink that fans out to every configured port.
func (dm *DeviceManager) Sink() Sink {
	var f Fanout
	for _, b := range dm.bindings {
		f = append(f, b.port)
	}
	return f
}

// Ports returns the session ports, in config order.
func (dm *DeviceManager) Ports() []*Port {
	ports := make([]*Port, len(dm.bindings))
	for i, b := range dm.bindings {
		ports[i] = b.port
	}
	return ports
}

// Connected reports how many configured outputs are currently open.
func (dm *DeviceManager) Connected() int {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	n := 0
	for _, b := range dm.bindings {
		if b.out != nil {
			n++
		}
	}
	return n
}

// Run starts the polling loop (blocking - run in goroutine). Cancelling ctx
// stops polling but leaves connected ports open, so a final all-notes-off
// can still go out; Close releases them.
func (dm *DeviceManager) Run(ctx context.Context) {
	ticker := time.NewTicker(dm.pollRate)
	defer ticker.Stop()

	// Initial scan
	dm.Scan()
	if dm.Connected() == 0 && len(dm.bindings) > 0 {
		debug.Warn("port", "no configured output available, playing visual-only")
	}

	for {
		select {
		case <-ctx.Done():
			close(dm.events)
			return
		case <-ticker.C:
			dm.Scan()
		}
	}
}

// Scan checks the current port list once, opening newly seen outputs and
// dropping vanished ones.
func (dm *DeviceManager) Scan() {
	// Port enumeration can hang (CoreMIDI), so it runs with a timeout
	ch := make(chan []drivers.Out, 1)
	go func() {
		ch <- dm.listPorts()
	}()

	var outPorts []drivers.Out
	select {
	case outPorts = <-ch:
	case <-time.After(dm.timeout):
		debug.Log("port", "port scan timed out")
		return
	}

	names := make([]string, len(outPorts))
	for i, p := range outPorts {
		names[i] = p.String()
	}

	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.closed {
		return
	}

	for _, b := range dm.bindings {
		idx := MatchPort(names, b.spec.PortName)

		if b.out != nil && (idx < 0 || names[idx] != b.out.Name()) {
			// Gone (or renamed): detach before closing
			b.port.Set(nil)
			b.out.Close()
			b.out = nil
			debug.Warn("port", "output %q disconnected", b.spec.PortName)
			dm.emit(DeviceEvent{Type: DeviceDisconnected, Name: b.spec.PortName})
		}

		if b.out == nil && idx >= 0 {
			out, err := dm.open(outPorts[idx], b.spec.Channel)
			if err != nil {
				debug.Log("port", "open %q: %v", names[idx], err)
				continue
			}
			b.out = out
			b.port.Set(out)
			debug.Log("port", "output %q connected as %q", b.spec.PortName, names[idx])
			dm.emit(DeviceEvent{Type: DeviceConnected, Name: b.spec.PortName, Port: names[idx]})
		}
	}
}

func (dm *DeviceManager) emit(e DeviceEvent) {
	select {
	case dm.events <- e:
	default:
		// Nobody listening; the Port already reflects the change
	}
}

// Close detaches and closes every open output. Later scans are no-ops.
func (dm *DeviceManager) Close() {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.closed = true
	for _, b := range dm.bindings {
		b.port.Set(nil)
		if b.out != nil {
			b.out.Close()
			b.out = nil
		}
	}
}

// MatchPort returns the index of the port best matching want: an exact name
// first, then a case-insensitive prefix (rtmidi appends client numbers to
// names). -1 if none.
func MatchPort(names []string, want string) int {
	if want == "" {
		return -1
	}
	for i, n := range names {
		if n == want {
			return i
		}
	}
	lw := strings.ToLower(want)
	for i, n := range names {
		if strings.HasPrefix(strings.ToLower(n), lw) {
			return i
		}
	}
	return -1
}
