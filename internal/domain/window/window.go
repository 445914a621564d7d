// Package window implements the rolling distraction window.
//
// The window keeps the last N attention states in a ring buffer and answers
// whether enough of them are non-attentive to warrant an intervention. It is
// owned by the sampling loop and is not safe for concurrent use.
package window

import "github.com/okian/attend/internal/domain/model"

// DefaultCapacity is used when a non-positive capacity is requested.
const DefaultCapacity = 10

// Window is a fixed-capacity FIFO of attention states.
type Window struct {
	buf       []model.State
	head      int // index of the oldest entry
	size      int
	negatives int // running count of negative states in buf[:size]
}

// New creates an empty window holding up to capacity states.
func New(capacity int) *Window {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Window{buf: make([]model.State, capacity)}
}

// Push appends s, evicting the oldest state once the window is full.
func (w *Window) Push(s model.State) {
	capacity := len(w.buf)
	if w.size == capacity {
		if w.buf[w.head].Negative() {
			w.negatives--
		}
		w.buf[w.head] = s
		w.head = (w.head + 1) % capacity
	} else {
		w.buf[(w.head+w.size)%capacity] = s
		w.size++
	}
	if s.Negative() {
		w.negatives++
	}
}

// ShouldIntervene reports whether the window is full and holds at least
// threshold negative states. It is always false while warming up.
func (w *Window) ShouldIntervene(threshold int) bool {
	if !w.Full() {
		return false
	}
	return w.negatives >= threshold
}

// NegativeCount returns the number of negative states currently held.
func (w *Window) NegativeCount() int { return w.negatives }

// Len returns the number of states held.
func (w *Window) Len() int { return w.size }

// Cap returns the window capacity.
func (w *Window) Cap() int { return len(w.buf) }

// Full reports whether the window has reached capacity.
func (w *Window) Full() bool { return w.size == len(w.buf) }

// Snapshot returns the held states, oldest first.
func (w *Window) Snapshot() []model.State {
	out := make([]model.State, w.size)
	for i := 0; i < w.size; i++ {
		out[i] = w.buf[(w.head+i)%len(w.buf)]
	}
	return out
}

// Reset empties the window.
func (w *Window) Reset() {
	w.head, w.size, w.negatives = 0, 0, 0
}
