// Package exchange implements the per-request lifecycle bridging a
// parsed Request to a written Response, including the async handle
// contract.
package exchange

import (
	"sync"
	"time"

	"github.com/webforge/httpcore/httpmsg"
	"github.com/webforge/httpcore/httpproto/status"
)

// State is the Exchange state machine.
type State uint8

const (
	RequestHeadersReceived State = iota
	RequestBodyStreaming
	RequestComplete
	ResponseHeadersSent
	ResponseBodyStreaming
	Complete
	Errored
	TimedOut
	ClientDisconnected
)

func (s State) Terminal() bool {
	switch s {
	case Complete, Errored, TimedOut, ClientDisconnected:
		return true
	default:
		return false
	}
}

// CompletionListener is notified exactly once, when an Exchange reaches
// its terminal transition.
type CompletionListener func(final State, err error)

// Exchange is the unit of request/response work bridging one parsed
// Request to its Response. ConnID is a weak, non-owning back-reference
// into the owning connection's exchange table.
type Exchange struct {
	mu sync.Mutex

	ConnID   uint64
	StreamID uint32 // 0 for H1

	Request  *httpmsg.Request
	Response *httpmsg.Response

	state     State
	startedAt time.Time

	async     *AsyncHandle
	listeners []CompletionListener

	err error
}

// New creates an Exchange in RequestHeadersReceived, the sole valid
// initial state.
func New(connID uint64, req *httpmsg.Request, resp *httpmsg.Response) *Exchange {
	return &Exchange{
		ConnID:    connID,
		StreamID:  req.StreamID,
		Request:   req,
		Response:  resp,
		state:     RequestHeadersReceived,
		startedAt: time.Now(),
	}
}

// State returns the current lifecycle state.
func (e *Exchange) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// StartedAt returns when this exchange was created.
func (e *Exchange) StartedAt() time.Time {
	return e.startedAt
}

// OnComplete registers a listener fired once, on the terminal transition.
// If the exchange is already terminal, fn fires synchronously and
// immediately, matching AsyncHandle.complete()'s own idempotent-registration
// behaviour.
func (e *Exchange) OnComplete(fn CompletionListener) {
	e.mu.Lock()
	if e.state.Terminal() {
		final, err := e.state, e.err
		e.mu.Unlock()
		fn(final, err)
		return
	}
	e.listeners = append(e.listeners, fn)
	e.mu.Unlock()
}

// transition enforces monotonic progress through the state sequence —
// once terminal, an exchange never leaves that state (invariant ii), and
// a non-terminal transition never regresses to an earlier or equal state
// (invariant i) — then, on reaching a terminal state, fires every
// registered listener exactly once.
func (e *Exchange) transition(next State) {
	e.mu.Lock()
	if e.state.Terminal() {
		e.mu.Unlock()
		return
	}
	if !next.Terminal() && next <= e.state {
		e.mu.Unlock()
		return
	}
	e.state = next
	terminal := next.Terminal()
	var listeners []CompletionListener
	var err error
	if terminal {
		listeners = e.listeners
		err = e.err
	}
	e.mu.Unlock()

	if terminal {
		for _, l := range listeners {
			l(next, err)
		}
	}
}

// BodyStreaming records that a request body is being read.
func (e *Exchange) BodyStreaming() { e.transition(RequestBodyStreaming) }

// RequestDone records EndOfBody or a bodyless request.
func (e *Exchange) RequestDone() { e.transition(RequestComplete) }

// HeadersSent records the first byte of the response going out. The
// caller must have already frozen Response.Code/Headers before calling
// this.
func (e *Exchange) HeadersSent() { e.transition(ResponseHeadersSent) }

// BodyWriting records the response entering streaming output.
func (e *Exchange) BodyWriting() { e.transition(ResponseBodyStreaming) }

// Done marks successful completion.
func (e *Exchange) Done() { e.transition(Complete) }

// Fail marks the exchange Errored, recording the cause for listeners.
func (e *Exchange) Fail(err error) {
	e.mu.Lock()
	e.err = err
	e.mu.Unlock()
	e.transition(Errored)
}

// Timeout marks the exchange TimedOut.
func (e *Exchange) Timeout() {
	e.mu.Lock()
	e.err = status.ErrRequestTimeout
	e.mu.Unlock()
	e.transition(TimedOut)
}

// Disconnected marks the exchange ClientDisconnected (peer FIN/RST).
func (e *Exchange) Disconnected() {
	e.mu.Lock()
	e.err = status.ErrClientDisconnected
	e.mu.Unlock()
	e.transition(ClientDisconnected)
}

// Async lazily creates and returns the AsyncHandle for this exchange,
// claiming it for asynchronous completion.
func (e *Exchange) Async() *AsyncHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.async == nil {
		e.async = newAsyncHandle(e)
	}
	return e.async
}

// IsAsync reports whether a handler has already claimed async completion.
func (e *Exchange) IsAsync() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.async != nil
}
