package exchange

import (
	"strconv"
	"sync"
	"time"

	"github.com/webforge/httpcore/httpproto/status"
)

// WriteFunc performs one physical write of a response fragment. Supplied
// by the caller that owns the socket (server package) so this package
// stays free of any I/O dependency.
type WriteFunc func(data []byte) error

// ReadListener receives request body chunks strictly in arrival order,
// exactly one outstanding callback at a time.
type ReadListener struct {
	// OnData is called for each chunk; the callback must invoke done
	// once it has finished with buffer, which is only valid until then.
	OnData func(buffer []byte, done func())
	// OnComplete fires at most once, when the body has been fully read.
	OnComplete func()
	// OnError fires at most once, instead of OnComplete, on failure.
	OnError func(err error)
}

// AsyncHandle is returned when a handler opts out of synchronous
// completion. All methods are safe to call from
// arbitrary goroutines.
type AsyncHandle struct {
	ex *Exchange

	mu        sync.Mutex
	completed bool

	// writeChain serialises Write calls in call order even when invoked
	// from different goroutines: each Write enqueues behind the previous
	// one's completion.
	writeChain chan struct{}
	write      WriteFunc

	readListener *ReadListener
	bodyDone     bool
}

func newAsyncHandle(ex *Exchange) *AsyncHandle {
	ch := make(chan struct{}, 1)
	ch <- struct{}{}
	return &AsyncHandle{ex: ex, writeChain: ch}
}

// BindWriter wires the physical write function. Until a writer is bound,
// Write drops its data and reports a nil error.
func (h *AsyncHandle) BindWriter(w WriteFunc) {
	h.mu.Lock()
	h.write = w
	h.mu.Unlock()
}

// Write enqueues data for the socket, preserving call order across
// threads via the internal write chain. doneCb, if non-nil, fires after
// the write physically completes (success or failure).
func (h *AsyncHandle) Write(data []byte, doneCb func(error)) {
	<-h.writeChain
	go func() {
		defer func() { h.writeChain <- struct{}{} }()

		h.mu.Lock()
		w := h.write
		h.mu.Unlock()

		var err error
		if w != nil {
			err = w(data)
		}
		if doneCb != nil {
			doneCb(err)
		}
	}()
}

// Complete finalises the exchange. Idempotent: a second call is a no-op.
func (h *AsyncHandle) Complete(err error) {
	h.mu.Lock()
	if h.completed {
		h.mu.Unlock()
		return
	}
	h.completed = true
	h.mu.Unlock()

	if err != nil {
		h.ex.Fail(err)
		return
	}
	h.ex.Done()
}

// Cancel aborts the exchange with a 503, optionally setting Retry-After
// when retryAfter is positive, then completes the exchange with
// status.ErrRejectedOverload.
func (h *AsyncHandle) Cancel(retryAfter time.Duration) {
	h.mu.Lock()
	resp := h.ex.Response
	h.mu.Unlock()

	if resp != nil {
		resp.SetCode(status.ServiceUnavailable)
		if retryAfter > 0 {
			resp.SetHeader("Retry-After", formatSeconds(retryAfter))
		}
	}

	h.Complete(status.ErrRejectedOverload)
}

// SetReadListener registers the body consumer. Setting it after the
// request body already completed invokes OnComplete immediately with no
// data.
func (h *AsyncHandle) SetReadListener(l *ReadListener) {
	h.mu.Lock()
	h.readListener = l
	bodyDone := h.bodyDone
	h.mu.Unlock()

	if bodyDone && l != nil && l.OnComplete != nil {
		l.OnComplete()
	}
}

// DeliverChunk feeds one body chunk to the registered listener, in
// stream order, called by the connection driver as bytes arrive. It
// blocks until the listener's done callback fires, upholding "exactly
// one outstanding callback at a time".
func (h *AsyncHandle) DeliverChunk(buf []byte) {
	h.mu.Lock()
	l := h.readListener
	h.mu.Unlock()

	if l == nil || l.OnData == nil {
		return
	}

	waitCh := make(chan struct{})
	l.OnData(buf, func() { close(waitCh) })
	<-waitCh
}

// DeliverComplete marks the body fully read.
func (h *AsyncHandle) DeliverComplete() {
	h.mu.Lock()
	h.bodyDone = true
	l := h.readListener
	h.mu.Unlock()

	if l != nil && l.OnComplete != nil {
		l.OnComplete()
	}
}

// DeliverError reports a body-read failure to the listener. Every call
// reaches OnError; repeated calls are not suppressed.
func (h *AsyncHandle) DeliverError(err error) {
	h.mu.Lock()
	l := h.readListener
	h.mu.Unlock()

	if l != nil && l.OnError != nil {
		l.OnError(err)
	}
}

// AddResponseCompleteHandler registers a callback fired once the
// exchange reaches its terminal state, regardless of outcome — the
// async-handle counterpart of Exchange.OnComplete.
func (h *AsyncHandle) AddResponseCompleteHandler(fn func(err error)) {
	h.ex.OnComplete(func(_ State, err error) {
		fn(err)
	})
}

func formatSeconds(d time.Duration) string {
	secs := int64(d / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.FormatInt(secs, 10)
}
