package http2

import "sync"

// flowWindow tracks one side of one flow-control window (RFC 7540 §6.9),
// used for both the connection-level and each stream-level window, kept
// separately as RFC 7540 §6.9.1 requires. Writers blocked on a depleted
// window wake on the next Increase via the embedded condition variable.
type flowWindow struct {
	mu   sync.Mutex
	cond *sync.Cond
	size int64
}

func newFlowWindow(initial uint32) *flowWindow {
	w := &flowWindow{size: int64(initial)}
	w.cond = sync.NewCond(&w.mu)
	return w
}

// Consume decrements the window by n, used when DATA payload (+padding)
// arrives on the inbound side or is sent on the outbound side.
func (w *flowWindow) Consume(n int64) {
	w.mu.Lock()
	w.size -= n
	w.mu.Unlock()
}

// Increase applies a WINDOW_UPDATE increment and wakes any writer
// waiting for room.
func (w *flowWindow) Increase(n int64) {
	w.mu.Lock()
	w.size += n
	w.mu.Unlock()
	w.cond.Broadcast()
}

// WaitForRoom blocks until the window is positive, returning the amount
// currently available.
func (w *flowWindow) WaitForRoom() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	for w.size <= 0 {
		w.cond.Wait()
	}
	return w.size
}

// Available reports the current window size; negative values are legal
// per RFC 7540 (a SETTINGS_INITIAL_WINDOW_SIZE decrease can push it
// below zero) and simply block further sends until it recovers.
func (w *flowWindow) Available() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size
}
