package sequencer

// Every-N bounds
const (
	MinEvery = 1
	MaxEvery = 16
)

// applyEvery rewrites the steps under positions: entry i becomes On when
// i%n == 0, Off otherwise. Steps outside the list are untouched.
func applyEvery(p *Pattern, positions []Position, n int) {
	if n < MinEvery || n > MaxEvery {
		panic("sequencer: every-N out of range")
	}
	for i, pos := range positions {
		if i%n == 0 {
			p.steps[pos.Index] = On
		} else {
			p.steps[pos.Index] = Off
		}
	}
}

// cycleHalf advances Off -> HalfOn -> On -> Off. Disabled stays put.
func cycleHalf(s StepState) StepState {
	switch s {
	case Off:
		return HalfOn
	case HalfOn:
		return On
	case On:
		return Off
	}
	return s
}

// toggle flips Off and On (HalfOn counts as on). Disabled stays put.
func toggle(s StepState) StepState {
	switch s {
	case Off:
		return On
	case On, HalfOn:
		return Off
	}
	return s
}

// toggleDisabled flips Off and Disabled. Audible steps must be cleared
// first.
func toggleDisabled(s StepState) StepState {
	switch s {
	case Off:
		return Disabled
	case Disabled:
		return Off
	}
	return s
}
