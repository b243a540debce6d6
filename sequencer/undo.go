package sequencer

// undoEntry records the state of one step before a single-step edit.
type undoEntry struct {
	track TrackID
	index int
	prev  StepState
}

// undoLog is an unbounded LIFO shared by all tracks.
type undoLog struct {
	entries []undoEntry
}

func (u *undoLog) push(e undoEntry) {
	u.entries = append(u.entries, e)
}

func (u *undoLog) pop() (undoEntry, bool) {
	if len(u.entries) == 0 {
		return undoEntry{}, false
	}
	e := u.entries[len(u.entries)-1]
	u.entries = u.entries[:len(u.entries)-1]
	return e, true
}

func (u *undoLog) len() int {
	return len(u.entries)
}

func (u *undoLog) clear() {
	u.entries = nil
}
