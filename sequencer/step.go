package sequencer

// Pattern geometry
const (
	NumSteps    = 64
	SegmentSize = 16
	NumSegments = NumSteps / SegmentSize
)

// Velocities for audible steps
const (
	VelocityOn   uint8 = 100
	VelocityHalf uint8 = 50
)

// StepState is the stored value of one pattern slot.
type StepState uint8

const (
	Off StepState = iota
	HalfOn
	On
	Disabled // removed from rotation; never played
)

func (s StepState) String() string {
	switch s {
	case Off:
		return "off"
	case HalfOn:
		return "half"
	case On:
		return "on"
	case Disabled:
		return "disabled"
	}
	return "unknown"
}

// Audible reports whether the state produces a note.
func (s StepState) Audible() bool {
	return s == On || s == HalfOn
}

// Velocity returns the note velocity for the state, 0 if silent.
func (s StepState) Velocity() uint8 {
	switch s {
	case On:
		return VelocityOn
	case HalfOn:
		return VelocityHalf
	}
	return 0
}

// DisplayColor is what a renderer paints for a step. It folds the mute
// overlay into the stored state without changing it.
type DisplayColor uint8

const (
	ColorOff DisplayColor = iota
	ColorHalf
	ColorOn
	ColorDisabled
	ColorMuted
)

func (c DisplayColor) String() string {
	switch c {
	case ColorOff:
		return "off"
	case ColorHalf:
		return "half"
	case ColorOn:
		return "on"
	case ColorDisabled:
		return "disabled"
	case ColorMuted:
		return "muted"
	}
	return "unknown"
}

func displayColor(s StepState, muted bool) DisplayColor {
	if s == Disabled {
		return ColorDisabled
	}
	if muted && s.Audible() {
		return ColorMuted
	}
	switch s {
	case On:
		return ColorOn
	case HalfOn:
		return ColorHalf
	}
	return ColorOff
}

func checkIndex(index int) {
	if index < 0 || index >= NumSteps {
		panic("sequencer: step index out of range")
	}
}
