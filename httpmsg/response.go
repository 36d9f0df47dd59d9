package httpmsg

import (
	json "github.com/json-iterator/go"

	"github.com/webforge/httpcore/httpproto/status"
	"github.com/webforge/httpcore/kv"
)

// OutputState is the Response output-state machine
// Nothing -> FullSent, or Nothing -> Streaming -> StreamingComplete.
type OutputState uint8

const (
	Nothing OutputState = iota
	FullSent
	Streaming
	StreamingComplete
)

// Response is the mutable-until-first-byte builder handlers write into.
// Once headers are emitted (output state leaves Nothing) Code/Headers
// become immutable — enforced by the response writer, not by this type,
// following a builder-then-freeze split.
type Response struct {
	Code    status.Code
	Status  status.Text // custom reason phrase; empty uses status.Reason(Code)
	Headers *kv.Storage
	Trailer *kv.Storage // only meaningful with BodyMode == BodyChunked

	BodyMode BodyMode
	// Body is the fixed payload for FullSent responses.
	Body []byte
	// ContentLength, when >= 0, is the declared length for a fixed-length
	// streamed response. -1 means "unknown, use chunked".
	ContentLength int64

	State OutputState
}

// NewResponse returns a 200 OK builder with empty headers.
func NewResponse() *Response {
	return &Response{
		Code:          status.OK,
		Headers:       kv.NewPrealloc(7),
		ContentLength: -1,
	}
}

// SetCode sets the status code, returning the Response for chaining.
func (r *Response) SetCode(code status.Code) *Response {
	r.Code = code
	return r
}

// ApplyDefaultStatus derives 204 No Content when a handler left the
// default 200 OK code untouched and wrote no body, so an empty response
// doesn't serialise as "200 OK" with a zero Content-Length.
func (r *Response) ApplyDefaultStatus() {
	if r.Code == status.OK && r.BodyMode == BodyNone && len(r.Body) == 0 {
		r.Code = status.NoContent
	}
}

// Header appends a header value: appends, doesn't replace, unless
// SetHeader is used.
func (r *Response) Header(key, value string) *Response {
	r.Headers.Add(key, value)
	return r
}

// SetHeader replaces every prior value for key.
func (r *Response) SetHeader(key, value string) *Response {
	r.Headers.Set(key, value)
	return r
}

// Write appends bytes to Body. It leaves BodyMode unchanged.
func (r *Response) Write(p []byte) (int, error) {
	if r.State != Nothing {
		return 0, status.NewError(status.InternalServerError, "response already completed")
	}
	r.Body = append(r.Body, p...)
	return len(p), nil
}

// JSON serialises v with json-iterator and sets it as the fixed body,
// also defaulting Content-Type to application/json when unset.
func (r *Response) JSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if !r.Headers.Has("Content-Type") {
		r.Header("Content-Type", "application/json;charset=utf-8")
	}
	r.Body = b
	return nil
}

// Clear resets the builder to its zero-value defaults for reuse across
// keep-alive requests.
func (r *Response) Clear() *Response {
	r.Code = status.OK
	r.Status = ""
	r.Headers.Clear()
	r.Trailer = nil
	r.BodyMode = BodyNone
	r.Body = r.Body[:0]
	r.ContentLength = -1
	r.State = Nothing
	return r
}
