package http2

import (
	"bytes"

	"github.com/webforge/httpcore/exchange"
	"github.com/webforge/httpcore/httpmsg"
	"github.com/webforge/httpcore/internal/timing"
)

// streamState is RFC 7540 §5.1's state machine, trimmed to the subset a
// server that never pushes needs.
type streamState uint8

const (
	streamIdle streamState = iota
	streamOpen
	streamHalfClosedRemote // client sent END_STREAM; server still writing
	streamClosed
)

// stream is one HTTP/2 stream's server-side bookkeeping.
type stream struct {
	id    uint32
	state streamState

	recvWindow *flowWindow
	sendWindow *flowWindow

	headerBlock bytes.Buffer // accumulates HEADERS + CONTINUATION fragments
	body        bytes.Buffer
	endHeaders  bool
	endStream   bool

	req  *httpmsg.Request
	resp *httpmsg.Response
	ex   *exchange.Exchange

	// readDeadline bounds the time between this stream's HEADERS frame
	// and its request being fully received; cancelled by completeRequest.
	readDeadline *timing.Deadline
}

func newStream(id uint32, connInitialWindow, peerInitialWindow uint32) *stream {
	return &stream{
		id:         id,
		state:      streamIdle,
		recvWindow: newFlowWindow(connInitialWindow),
		sendWindow: newFlowWindow(peerInitialWindow),
	}
}
