package chat

// DefaultMaxHistoryTurns is the number of user/bot exchange pairs retained
// by a History when no explicit cap is given. Each pair contributes two
// entries, so the default ring holds 12 turns.
const DefaultMaxHistoryTurns = 6

// History is a bounded, ordered sequence of turns. When a push would exceed
// the cap of 2×maxTurns entries, the oldest entries are evicted first.
//
// A History is owned by exactly one session controller and is not safe for
// concurrent use. The relay never holds one: each request carries a copied
// snapshot.
type History struct {
	turns    []Turn
	maxTurns int
}

// NewHistory creates an empty history capped at 2×maxTurns entries.
// A non-positive maxTurns falls back to DefaultMaxHistoryTurns.
func NewHistory(maxTurns int) *History {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxHistoryTurns
	}
	return &History{maxTurns: maxTurns}
}

// Push appends a turn, evicting the oldest entries if the ring is full.
func (h *History) Push(role Role, text string) {
	h.turns = append(h.turns, Turn{Role: role, Text: text})

	max := h.maxTurns * 2
	if len(h.turns) > max {
		h.turns = append(h.turns[:0], h.turns[len(h.turns)-max:]...)
	}
}

// Snapshot returns a copy of the current turns, oldest first. Mutating the
// returned slice does not affect the history.
func (h *History) Snapshot() []Turn {
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Len returns the number of turns currently retained.
func (h *History) Len() int {
	return len(h.turns)
}
