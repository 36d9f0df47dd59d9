// Package httpmsg holds the Request/Response data model.
package httpmsg

import (
	"context"
	"net"

	"github.com/webforge/httpcore/httpproto/method"
	"github.com/webforge/httpcore/httpproto/proto"
	"github.com/webforge/httpcore/kv"
)

// BodyMode enumerates how a message's body is framed.
type BodyMode uint8

const (
	// BodyNone means no body is expected at all.
	BodyNone BodyMode = iota
	// BodyFixed means Content-Length bytes follow.
	BodyFixed
	// BodyChunked means Transfer-Encoding: chunked framing is used.
	BodyChunked
	// BodyUnspecified means the body extends to EOF (response-side only).
	BodyUnspecified
)

// BodyConsumerState tracks whether a Request's body has been read yet.
type BodyConsumerState uint8

const (
	BodyNotRead BodyConsumerState = iota
	BodyStreaming
	BodyConsumed
)

// Request is the server-side view of an incoming HTTP message. Headers
// use kv.Storage: an ordered, case-insensitive multimap preserving
// append order per name.
type Request struct {
	Method   method.Method
	Path     string
	RawQuery string
	Params   *kv.Storage
	Vars     *kv.Storage // dynamic routing segments, populated by the route helper
	Protocol proto.Protocol

	Headers *kv.Storage

	BodyMode      BodyMode
	ContentLength int
	Trailers      *kv.Storage

	Upgrade    proto.Protocol
	Connection string

	consumerState BodyConsumerState

	// Remote is the socket's remote address.
	Remote net.Addr
	// Ctx is user-managed and lives as long as the connection does.
	Ctx context.Context

	// StreamID identifies the owning H2 stream; zero for H1 requests.
	StreamID uint32
}

// NewRequest allocates a Request with pre-sized header/param storage per
// the given limits.
func NewRequest(paramsPrealloc int) *Request {
	return &Request{
		Method:   method.Unknown,
		Protocol: proto.HTTP11,
		Headers:  kv.New(),
		Params:   kv.NewPrealloc(paramsPrealloc),
		Vars:     kv.New(),
		Ctx:      context.Background(),
	}
}

// ConsumerState reports whether the body has been read yet.
func (r *Request) ConsumerState() BodyConsumerState {
	return r.consumerState
}

// MarkBodyStreaming transitions the consumer state on first body read.
func (r *Request) MarkBodyStreaming() {
	if r.consumerState == BodyNotRead {
		r.consumerState = BodyStreaming
	}
}

// MarkBodyConsumed transitions the consumer state once EndOfBody is seen.
func (r *Request) MarkBodyConsumed() {
	r.consumerState = BodyConsumed
}

// Reset clears a Request for reuse across keep-alive requests on the same
// connection (H1) — headers, params and trailers are cleared but the
// underlying storage arrays are retained.
func (r *Request) Reset() {
	r.Method = method.Unknown
	r.Path = ""
	r.RawQuery = ""
	r.Params.Clear()
	r.Vars.Clear()
	r.Headers.Clear()
	r.BodyMode = BodyNone
	r.ContentLength = 0
	r.Trailers = nil
	r.Upgrade = proto.Unknown
	r.Connection = ""
	r.consumerState = BodyNotRead
}
