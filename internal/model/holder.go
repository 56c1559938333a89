package model

import (
	"sync/atomic"
)

// Holder is the single-slot publication point for the current model.
// Current is wait-free and safe for unboundedly many concurrent readers;
// writes come from one coordinator at a time. A Holder is created once at
// process start, holds the empty model until bootstrap, and is passed by
// reference to every component that needs the current snapshot.
type Holder struct {
	ref atomic.Pointer[Model]
}

// NewHolder creates a holder primed with the empty model.
func NewHolder() *Holder {
	h := &Holder{}
	h.ref.Store(Empty())
	return h
}

// Current returns the most recently published snapshot. Never nil.
func (h *Holder) Current() *Model {
	return h.ref.Load()
}

// Swap unconditionally replaces the held snapshot. It enforces no ordering
// policy; that is the coordinator's job.
func (h *Holder) Swap(next *Model) {
	h.ref.Store(next)
}

// CompareAndPublish publishes next only while its UpdatedAt is strictly
// newer than the held snapshot's, retrying on concurrent swaps. It returns
// false when next is stale. Under racing publishers the holder converges on
// the newest candidate rather than the last writer.
func (h *Holder) CompareAndPublish(next *Model) bool {
	for {
		cur := h.ref.Load()
		if !next.UpdatedAt.After(cur.UpdatedAt) {
			return false
		}
		if h.ref.CompareAndSwap(cur, next) {
			return true
		}
	}
}
