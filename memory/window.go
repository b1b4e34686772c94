package memory

// Window owns the ordered transcript of a conversation and the replay bound k.
// Appends retain everything; only Snapshot applies the bound, so the full
// transcript stays recoverable even though only a suffix is replayed.
//
// Window is not safe for concurrent use; callers serialize access per
// conversation (see the session cache).
type Window struct {
	turns []Turn
	k     int
}

// NewWindow returns an empty window retaining the most recent k exchanges
// in its snapshot. k <= 0 means an unbounded snapshot.
func NewWindow(k int) *Window {
	return &Window{k: k}
}

// Append adds a completed human/assistant exchange to the transcript.
func (w *Window) Append(human, assistant Turn) {
	w.turns = append(w.turns, human, assistant)
}

// LoadFrom replaces the window content with a persisted transcript.
// The load is not subject to the k bound; only Snapshot is.
func (w *Window) LoadFrom(turns []Turn) {
	w.turns = append(w.turns[:0:0], turns...)
}

// Clear drops all turns.
func (w *Window) Clear() {
	w.turns = nil
}

// Len reports the total number of retained turns.
func (w *Window) Len() int {
	return len(w.turns)
}

// Turns returns a copy of the full transcript, oldest first.
func (w *Window) Turns() []Turn {
	return append([]Turn(nil), w.turns...)
}

// Snapshot returns the turns of the most recent k exchanges, oldest first.
// This is the only conversation context the completion provider ever sees.
func (w *Window) Snapshot() []Turn {
	if w.k <= 0 {
		return w.Turns()
	}
	groups := groupExchanges(w.turns)
	if len(groups) <= w.k {
		return w.Turns()
	}
	start := groups[len(groups)-w.k].start
	return append([]Turn(nil), w.turns[start:]...)
}

// exchange describes a contiguous span of turns [start, end) in the
// transcript: a human turn paired with the assistant turn that follows it,
// or a lone turn that could not be paired.
type exchange struct {
	start int
	end   int
}

// groupExchanges groups turns into atomic units for the snapshot bound.
// A human turn immediately followed by an assistant turn forms one exchange;
// any other turn stands alone and still consumes one unit of k.
func groupExchanges(turns []Turn) []exchange {
	groups := make([]exchange, 0, (len(turns)+1)/2)
	for i := 0; i < len(turns); {
		if turns[i].Role == RoleHuman && i+1 < len(turns) && turns[i+1].Role == RoleAssistant {
			groups = append(groups, exchange{start: i, end: i + 2})
			i += 2
			continue
		}
		groups = append(groups, exchange{start: i, end: i + 1})
		i++
	}
	return groups
}
