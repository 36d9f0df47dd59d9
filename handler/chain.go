// Package handler implements the boundary between core exchanges and
// application code.
package handler

import (
	"github.com/webforge/httpcore/exchange"
	"github.com/webforge/httpcore/httpmsg"
	"github.com/webforge/httpcore/httpproto/status"
)

// Result is what a chain member reports after being consulted.
type Result uint8

const (
	// NotHandled means "try the next handler in the chain".
	NotHandled Result = iota
	// Handled means the handler wrote (or will write, synchronously) the
	// response before returning.
	Handled
	// Async means the handler called Exchange.Async() and will complete
	// the response later; the chain stops here.
	Async
)

// Handler is one link of the chain: route handler, static-file handler,
// rate-limit gate, or user code.
type Handler interface {
	Handle(req *httpmsg.Request, resp *httpmsg.Response, ex *exchange.Exchange) Result
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(req *httpmsg.Request, resp *httpmsg.Response, ex *exchange.Exchange) Result

func (f HandlerFunc) Handle(req *httpmsg.Request, resp *httpmsg.Response, ex *exchange.Exchange) Result {
	return f(req, resp, ex)
}

// Chain is the ordered sequence of Handlers consulted for one exchange.
// It implements the sync/async handler contract itself so the server
// driver only ever calls one method.
type Chain struct {
	handlers []Handler
	notFound Handler
}

// New builds a Chain trying each handler in order.
func New(handlers ...Handler) *Chain {
	return &Chain{handlers: handlers}
}

// WithNotFound overrides the default 404 responder.
func (c *Chain) WithNotFound(h Handler) *Chain {
	c.notFound = h
	return c
}

// ErrIllegalHandlerState is the invariant violation:
// a handler returned NotHandled after already claiming async completion.
type ErrIllegalHandlerState struct{}

func (ErrIllegalHandlerState) Error() string {
	return "handler claimed async completion then returned NotHandled"
}

// Dispatch runs the chain against one exchange. It returns Async if a
// handler claimed asynchronous completion; otherwise the response is
// fully written (Handled by some link, or the chain's default 404) by
// the time Dispatch returns.
func (c *Chain) Dispatch(req *httpmsg.Request, resp *httpmsg.Response, ex *exchange.Exchange) (Result, error) {
	for _, h := range c.handlers {
		result := h.Handle(req, resp, ex)

		switch result {
		case Handled:
			return Handled, nil
		case Async:
			return Async, nil
		case NotHandled:
			if ex.IsAsync() {
				// Once async is claimed, the handler owns completion —
				// falling through to the next handler after that is a
				// programming error, not a routing miss.
				return NotHandled, ErrIllegalHandlerState{}
			}
		}
	}

	if c.notFound != nil {
		return c.notFound.Handle(req, resp, ex), nil
	}

	RenderError(resp, status.NotFound, "the requested resource was not found")
	return Handled, nil
}
