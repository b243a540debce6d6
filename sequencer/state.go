package sequencer

// State is a point-in-time copy of everything a renderer needs. It shares
// no memory with the live sequencer.
type State struct {
	Tempo   int          `json:"tempo"`
	Running bool         `json:"running"`
	Solo    int          `json:"solo"` // track index, -1 for none
	Policy  string       `json:"policy"`
	Undo    int          `json:"undo"` // undoable edits
	Tracks  []TrackState `json:"tracks"`
}

// TrackState holds all state for a single track
type TrackState struct {
	Name         string            `json:"name"`
	Note         int               `json:"note"` // NoNote when unbound
	Muted        bool              `json:"muted"`
	Soloed       bool              `json:"soloed"`
	Silent       bool              `json:"silent"` // would not sound right now
	Segments     [NumSegments]bool `json:"segments"`
	Shift        int               `json:"shift"`
	ActiveLength int               `json:"activeLength"`
	Cursor       int               `json:"cursor"`
	Playhead     int               `json:"playhead"` // display index, -1 if none
	Cells        []Cell            `json:"cells"`
}

// Snapshot copies the sequencer state under the lock.
func (s *Sequencer) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		Tempo:   s.Tempo(),
		Running: s.running,
		Solo:    int(s.solo),
		Policy:  s.policy.Name(),
		Undo:    s.undo.len(),
		Tracks:  make([]TrackState, len(s.tracks)),
	}
	for i, t := range s.tracks {
		_, audible := s.resolveLocked(TrackID(i))
		st.Tracks[i] = TrackState{
			Name:         t.name,
			Note:         t.note,
			Muted:        t.muted,
			Soloed:       s.solo == TrackID(i),
			Silent:       !audible,
			Segments:     t.pattern.segments,
			Shift:        t.pattern.offset,
			ActiveLength: t.pattern.ActiveLength(),
			Cursor:       t.cursor,
			Playhead:     t.playhead,
			Cells:        t.cells(),
		}
	}
	return st
}
