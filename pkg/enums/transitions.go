package enums

// transitionTable lists, per state, the states it may move to. States absent
// from the table (or mapped to nothing) are terminal.
type transitionTable[T comparable] map[T][]T

func (t transitionTable[T]) allows(from, to T) bool {
	for _, candidate := range t[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

func (t transitionTable[T]) terminal(state T) bool {
	return len(t[state]) == 0
}
