package navigation

import "time"

// State is one navigation position. Superseded, never destroyed.
type State struct {
	CurrentRoute  string
	PreviousRoute string
	Params        map[string]string
	Timestamp     time.Time
}

// history is a bounded FIFO ring of prior navigation states. Once full,
// the oldest entry is evicted on push.
type history struct {
	buf   []State
	start int
	size  int
}

func newHistory(capacity int) *history {
	if capacity <= 0 {
		capacity = 1
	}
	return &history{buf: make([]State, capacity)}
}

func (h *history) push(s State) {
	if h.size == len(h.buf) {
		// Overwrite the oldest slot.
		h.buf[h.start] = s
		h.start = (h.start + 1) % len(h.buf)
		return
	}
	h.buf[(h.start+h.size)%len(h.buf)] = s
	h.size++
}

// pop removes and returns the most recent entry.
func (h *history) pop() (State, bool) {
	if h.size == 0 {
		return State{}, false
	}
	h.size--
	idx := (h.start + h.size) % len(h.buf)
	s := h.buf[idx]
	h.buf[idx] = State{}
	return s, true
}

func (h *history) len() int {
	return h.size
}
