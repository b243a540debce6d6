package sequencer

import (
	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
)

// CursorPolicy decides which position a track plays on a tick.
type CursorPolicy interface {
	Name() string
	// Due returns the position t plays on global tick n and advances any
	// per-track state. ok is false when the track has nothing to play.
	Due(t *Track, n int) (pos Position, ok bool)
}

// PerTrack walks each track's active position list with its own cursor.
// Tracks of different lengths drift against each other but never skip.
type PerTrack struct{}

func (PerTrack) Name() string { return "track" }

func (PerTrack) Due(t *Track, _ int) (Position, bool) {
	if len(t.positions) == 0 {
		return Position{}, false
	}
	pos := t.positions[t.cursor%len(t.positions)]
	t.cursor++
	return pos, true
}

// Global maps one shared tick counter onto each track's enabled window, so
// step 0 of every track lines up. Disabled steps in the window are skipped
// silently instead of compacted around.
type Global struct{}

func (Global) Name() string { return "global" }

func (Global) Due(t *Track, n int) (Position, bool) {
	if len(t.positions) == 0 {
		return Position{}, false
	}
	window := t.pattern.Window()
	d := window[n%len(window)]
	i := t.pattern.LogicalIndex(d)
	s := t.pattern.steps[i]
	t.cursor = n + 1
	if s == Disabled {
		return Position{}, false
	}
	return Position{Index: i, Display: d, State: s}, true
}

// PolicyNames lists the accepted policy names.
func PolicyNames() []string {
	return []string{"track", "global"}
}

// ParsePolicy returns the policy with the given name. Empty means "track".
func ParsePolicy(name string) (CursorPolicy, error) {
	switch name {
	case "", "track":
		return PerTrack{}, nil
	case "global":
		return Global{}, nil
	}
	return nil, fault.New("unknown cursor policy "+name,
		fmsg.WithDesc("unknown policy", "Policy must be \"track\" or \"global\", got \""+name+"\""),
		ftag.With(ftag.InvalidArgument))
}
