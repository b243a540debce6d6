package sequencer

// Position is one entry of a track's active position list.
type Position struct {
	Index   int // logical pattern index (what edits address)
	Display int // index after the shift offset (what is played and drawn)
	State   StepState
}

// Pattern holds 64 steps plus the enablement and phase metadata layered on
// top of them. The step array never changes size; segment masks and the
// shift offset only change how it is read.
type Pattern struct {
	steps    [NumSteps]StepState
	segments [NumSegments]bool
	offset   int // 0..63
}

// NewPattern returns an all-Off pattern with the first sections segments
// enabled.
func NewPattern(sections int) Pattern {
	var p Pattern
	p.SetActiveLength(sections)
	return p
}

func (p *Pattern) Step(index int) StepState {
	checkIndex(index)
	return p.steps[index]
}

func (p *Pattern) SetStep(index int, s StepState) {
	checkIndex(index)
	p.steps[index] = s
}

// Steps returns a copy of the stored steps in logical order.
func (p *Pattern) Steps() [NumSteps]StepState {
	return p.steps
}

// Clear sets every step to Off. Masks and offset are kept.
func (p *Pattern) Clear() {
	p.steps = [NumSteps]StepState{}
}

// Offset is the current rotation (0..63).
func (p *Pattern) Offset() int {
	return p.offset
}

// Rotate moves the pattern one step later (+1) or earlier (-1), circular
// over all 64 steps. Stored values are untouched.
func (p *Pattern) Rotate(direction int) {
	if direction != 1 && direction != -1 {
		panic("sequencer: shift direction must be +1 or -1")
	}
	p.offset = wrap(p.offset + direction)
}

// DisplayIndex maps a logical index to its shifted position.
func (p *Pattern) DisplayIndex(index int) int {
	checkIndex(index)
	return wrap(index + p.offset)
}

// LogicalIndex maps a shifted position back to the stored index.
func (p *Pattern) LogicalIndex(display int) int {
	checkIndex(display)
	return wrap(display - p.offset)
}

func wrap(i int) int {
	i %= NumSteps
	if i < 0 {
		i += NumSteps
	}
	return i
}

// Segments returns the segment mask.
func (p *Pattern) Segments() [NumSegments]bool {
	return p.segments
}

func (p *Pattern) SegmentEnabled(seg int) bool {
	checkSegment(seg)
	return p.segments[seg]
}

func (p *Pattern) SetSegmentEnabled(seg int, enabled bool) {
	checkSegment(seg)
	p.segments[seg] = enabled
}

// ActiveLength is the number of steps inside enabled segments.
func (p *Pattern) ActiveLength() int {
	n := 0
	for _, on := range p.segments {
		if on {
			n += SegmentSize
		}
	}
	return n
}

// SetActiveLength enables exactly the first sections segments.
func (p *Pattern) SetActiveLength(sections int) {
	if sections < 0 || sections > NumSegments {
		panic("sequencer: section count out of range")
	}
	for i := range p.segments {
		p.segments[i] = i < sections
	}
}

// Extend enables the first disabled segment. Returns false when all four
// are already on.
func (p *Pattern) Extend() bool {
	for i, on := range p.segments {
		if !on {
			p.segments[i] = true
			return true
		}
	}
	return false
}

// Shrink disables the last enabled segment. Returns false when none are on.
func (p *Pattern) Shrink() bool {
	for i := NumSegments - 1; i >= 0; i-- {
		if p.segments[i] {
			p.segments[i] = false
			return true
		}
	}
	return false
}

// Window returns the enabled display positions in play order, Disabled
// steps included.
func (p *Pattern) Window() []int {
	window := make([]int, 0, p.ActiveLength())
	for d := 0; d < NumSteps; d++ {
		if p.segments[d/SegmentSize] {
			window = append(window, d)
		}
	}
	return window
}

// Positions computes the active position list: enabled, non-Disabled
// steps in display order.
func (p *Pattern) Positions() []Position {
	var out []Position
	for _, d := range p.Window() {
		i := wrap(d - p.offset)
		if s := p.steps[i]; s != Disabled {
			out = append(out, Position{Index: i, Display: d, State: s})
		}
	}
	return out
}

func checkSegment(seg int) {
	if seg < 0 || seg >= NumSegments {
		panic("sequencer: segment index out of range")
	}
}
