// SPDX-License-Identifier: Unlicense OR MIT

// Package framequeue implements the double-buffered frame handoff
// between the Wayland commit/render loop (producer) and the frame
// sender (consumer). Producer and consumer synchronise
// through a mutex-protected pending/active pair plus a capacity-1
// signal channel; the sender composes that channel in a select
// alongside ctx.Done() and a timeout, which is the idiomatic Go
// equivalent of "condition variable with a 2s timeout".
package framequeue

import (
	"sync"

	"github.com/maksym-radziwill/p9wl-sub001/internal/fbuf"
)

const none = -1

// Queue holds two framebuffers plus pending/active indices. Both
// default to "none".
type Queue struct {
	mu sync.Mutex

	bufs            [2]*fbuf.Buffer
	pending, active int

	signal chan struct{}
}

// New creates a queue over two freshly allocated buffers of the given
// dimensions.
func New(width, height int) *Queue {
	q := &Queue{pending: none, active: none, signal: make(chan struct{}, 1)}
	q.bufs[0] = fbuf.New(width, height)
	q.bufs[1] = fbuf.New(width, height)
	return q
}

// Resize reallocates both buffers. Callers must ensure no frame is
// currently active/pending (the sender is idle) before calling this.
func (q *Queue) Resize(width, height int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.bufs[0].Resize(width, height)
	q.bufs[1].Resize(width, height)
}

// Submit copies live into a buffer that is neither pending nor active,
// marks it pending, and wakes the sender. If no buffer is free the
// frame is dropped — the sender will deliver a later one.
// Reports whether the frame was accepted.
func (q *Queue) Submit(live *fbuf.Buffer) bool {
	q.mu.Lock()
	free := -1
	for i := 0; i < 2; i++ {
		if i != q.pending && i != q.active {
			free = i
			break
		}
	}
	if free == -1 {
		q.mu.Unlock()
		return false
	}
	copy(q.bufs[free].Pix, live.Pix)
	q.pending = free
	q.mu.Unlock()
	q.wake()
	return true
}

func (q *Queue) wake() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// TryClaim moves pending into active and returns the active buffer, or
// reports ok=false if nothing is pending.
func (q *Queue) TryClaim() (buf *fbuf.Buffer, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pending == none {
		return nil, false
	}
	q.active = q.pending
	q.pending = none
	return q.bufs[q.active], true
}

// Release marks the active slot free again, called once the sender
// has finished transmitting (or dropping) the buffer TryClaim
// returned.
func (q *Queue) Release() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.active = none
}

// Signal exposes the wake channel for the sender's select loop.
func (q *Queue) Signal() <-chan struct{} {
	return q.signal
}

// Wake delivers a spurious wake-up, used to promptly re-evaluate
// window-change or shutdown flags without waiting for a real frame.
func (q *Queue) Wake() {
	q.wake()
}
