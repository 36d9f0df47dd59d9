package http2

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"net"
	"strconv"
	"sync"

	"golang.org/x/net/http2/hpack"

	"github.com/webforge/httpcore/config"
	"github.com/webforge/httpcore/exchange"
	"github.com/webforge/httpcore/handler"
	"github.com/webforge/httpcore/httpmsg"
	"github.com/webforge/httpcore/httpproto/method"
	"github.com/webforge/httpcore/httpproto/proto"
	"github.com/webforge/httpcore/httpproto/status"
	"github.com/webforge/httpcore/internal/timing"
	"github.com/webforge/httpcore/stats"
)

// ErrGoAway is returned from Serve once the connection has sent or
// received a GOAWAY and drained its stream table.
var ErrGoAway = errors.New("http2: connection going away")

// Conn multiplexes one negotiated HTTP/2 connection: frame codec, HPACK,
// per-stream flow control and dispatch into the handler chain. It plays the
// same role for H2 that the H1 connection driver plays for H1, generalised
// to a multiplexed stream table instead of one
// request at a time.
type Conn struct {
	nc      net.Conn
	r       *bufio.Reader
	cfg     *config.Config
	stats   *stats.Counters
	chain   *handler.Chain
	connID  uint64
	wheel   *timing.Wheel

	writeMu sync.Mutex

	// hpackMu serialises the "reset -> encode fields -> send HEADERS
	// frame" sequence across streams whose responses complete
	// concurrently — hpackEnc's dynamic table is one shared, ordered
	// stream of state, so the encode-and-send critical section for one
	// stream must finish before another's begins. Data frames aren't
	// covered: a stream stalled on flow control must not block another
	// stream's headers or data.
	hpackMu sync.Mutex

	hpackDec *hpack.Decoder
	hpackEnc *hpack.Encoder
	encBuf   bytes.Buffer

	peerSettings Settings
	ourSettings  Settings

	mu           sync.Mutex
	streams      map[uint32]*stream
	lastStreamID uint32
	goAway       bool

	connRecvWindow *flowWindow
	connSendWindow *flowWindow
}

// NewConn wraps an already-negotiated (ALPN "h2") net.Conn.
func NewConn(nc net.Conn, cfg *config.Config, st *stats.Counters, chain *handler.Chain, connID uint64, wheel *timing.Wheel) *Conn {
	c := &Conn{
		nc:             nc,
		r:              bufio.NewReaderSize(nc, cfg.NET.ReadBufferSize),
		cfg:            cfg,
		stats:          st,
		chain:          chain,
		connID:         connID,
		wheel:          wheel,
		peerSettings:   DefaultSettings(),
		ourSettings:    DefaultSettings(),
		streams:        make(map[uint32]*stream),
		connRecvWindow: newFlowWindow(cfg.H2.InitialWindowSize),
		connSendWindow: newFlowWindow(cfg.H2.InitialWindowSize),
	}
	c.ourSettings.MaxConcurrentStreams = cfg.H2.MaxConcurrentStreams
	c.ourSettings.MaxFrameSize = cfg.H2.MaxFrameSize
	c.ourSettings.InitialWindowSize = cfg.H2.InitialWindowSize

	c.hpackDec = hpack.NewDecoder(c.peerSettings.HeaderTableSize, nil)
	c.hpackEnc = hpack.NewEncoder(&c.encBuf)
	return c
}

// Serve reads the client preface, sends the initial SETTINGS frame and
// drives frames until the connection ends or errors.
func (c *Conn) Serve() error {
	var preface [len(ClientPreface)]byte
	if _, err := io.ReadFull(c.r, preface[:]); err != nil {
		return err
	}
	if string(preface[:]) != ClientPreface {
		return status.ErrBadRequest
	}

	if err := c.sendSettings(); err != nil {
		return err
	}

	defer c.abortInFlight()

	for {
		fh, err := ReadFrameHeader(c.r)
		if err != nil {
			return err
		}
		if fh.Length > c.ourSettings.MaxFrameSize {
			return ErrFrameTooLarge
		}

		payload := make([]byte, fh.Length)
		if _, err := io.ReadFull(c.r, payload); err != nil {
			return err
		}
		c.stats.AddBytesRead(int(fh.Length) + frameHeaderLen)

		if err := c.dispatch(fh, payload); err != nil {
			return err
		}

		c.mu.Lock()
		done := c.goAway && len(c.streams) == 0
		c.mu.Unlock()
		if done {
			return ErrGoAway
		}
	}
}

func (c *Conn) dispatch(fh FrameHeader, payload []byte) error {
	switch fh.Type {
	case FrameSettings:
		return c.handleSettings(fh, payload)
	case FrameWindowUpdate:
		return c.handleWindowUpdate(fh, payload)
	case FramePing:
		return c.handlePing(fh, payload)
	case FrameHeaders:
		return c.handleHeaders(fh, payload)
	case FrameContinuation:
		return c.handleContinuation(fh, payload)
	case FrameData:
		return c.handleData(fh, payload)
	case FrameRSTStream:
		c.closeStream(fh.StreamID)
		return nil
	case FrameGoAway:
		c.mu.Lock()
		c.goAway = true
		c.mu.Unlock()
		return nil
	case FramePriority, FramePushPromise:
		return nil // server never pushes; PRIORITY is advisory and ignored
	default:
		return nil // unknown frame types are ignored per RFC 7540 §4.1
	}
}

func (c *Conn) handleSettings(fh FrameHeader, payload []byte) error {
	if fh.Flags.Has(FlagACK) {
		return nil
	}
	if !decodeSettingsPayload(payload, &c.peerSettings) {
		return status.NewError(status.BadRequest, "malformed SETTINGS frame")
	}
	return c.writeFrame(FrameHeader{Type: FrameSettings, Flags: FlagACK}, nil)
}

func (c *Conn) sendSettings() error {
	var buf []byte
	buf = encodeSettingsPayload(buf, SettingMaxConcurrentStreams, c.ourSettings.MaxConcurrentStreams)
	buf = encodeSettingsPayload(buf, SettingInitialWindowSize, c.ourSettings.InitialWindowSize)
	buf = encodeSettingsPayload(buf, SettingMaxFrameSize, c.ourSettings.MaxFrameSize)
	return c.writeFrame(FrameHeader{Type: FrameSettings, Length: uint32(len(buf))}, buf)
}

func (c *Conn) handleWindowUpdate(fh FrameHeader, payload []byte) error {
	if len(payload) != 4 {
		return status.NewError(status.BadRequest, "malformed WINDOW_UPDATE")
	}
	inc := int64(uint32(payload[0])<<24|uint32(payload[1])<<16|uint32(payload[2])<<8|uint32(payload[3])) & 0x7fffffff

	if fh.StreamID == 0 {
		c.connSendWindow.Increase(inc)
		return nil
	}
	if s := c.getStream(fh.StreamID); s != nil {
		s.sendWindow.Increase(inc)
	}
	return nil
}

func (c *Conn) handlePing(fh FrameHeader, payload []byte) error {
	if fh.Flags.Has(FlagACK) {
		return nil
	}
	return c.writeFrame(FrameHeader{Type: FramePing, Flags: FlagACK, Length: uint32(len(payload))}, payload)
}

func (c *Conn) handleHeaders(fh FrameHeader, payload []byte) error {
	c.mu.Lock()
	if len(c.streams) >= int(c.ourSettings.MaxConcurrentStreams) {
		c.mu.Unlock()
		c.stats.RejectedDueToOverload()
		return c.writeFrame(FrameHeader{Type: FrameRSTStream, StreamID: fh.StreamID, Length: 4}, encodeUint32(uint32(errRefusedStream)))
	}
	s := newStream(fh.StreamID, c.cfg.H2.InitialWindowSize, c.peerSettings.InitialWindowSize)
	s.state = streamOpen
	s.req = httpmsg.NewRequest(c.cfg.URI.ParamsPrealloc)
	s.req.Protocol = proto.HTTP2
	s.req.StreamID = fh.StreamID
	s.req.Remote = c.nc.RemoteAddr()
	s.resp = httpmsg.NewResponse()
	c.streams[fh.StreamID] = s
	if fh.StreamID > c.lastStreamID {
		c.lastStreamID = fh.StreamID
	}
	c.mu.Unlock()

	if c.wheel != nil && c.cfg.Timeouts.RequestRead > 0 {
		s.readDeadline = c.wheel.Schedule(c.cfg.Timeouts.RequestRead, func() {
			_ = c.resetStream(s, errCancel)
		})
	}

	block, err := stripPadding(fh, payload)
	if err != nil {
		return err
	}
	// PRIORITY fields, when present, are five leading octets this codec
	// doesn't act on (server never reprioritises).
	if fh.Flags.Has(FlagPriority) {
		if len(block) < 5 {
			return status.NewError(status.BadRequest, "malformed HEADERS")
		}
		block = block[5:]
	}
	s.headerBlock.Write(block)
	s.endHeaders = fh.Flags.Has(FlagEndHeaders)
	s.endStream = fh.Flags.Has(FlagEndStream)

	if s.endHeaders {
		return c.finishHeaders(s)
	}
	return nil
}

func (c *Conn) handleContinuation(fh FrameHeader, payload []byte) error {
	s := c.getStream(fh.StreamID)
	if s == nil {
		return nil
	}
	s.headerBlock.Write(payload)
	if fh.Flags.Has(FlagEndHeaders) {
		s.endHeaders = true
		return c.finishHeaders(s)
	}
	return nil
}

func (c *Conn) finishHeaders(s *stream) error {
	fields, err := c.hpackDec.DecodeFull(s.headerBlock.Bytes())
	if err != nil {
		return status.NewError(status.RequestHeaderFieldsTooLarge, "hpack decode failed")
	}
	if headerListSize(fields) > uint64(c.cfg.Headers.MaxSize) {
		handler.RenderError(s.resp, status.RequestHeaderFieldsTooLarge, "header list too large")
		c.stats.InvalidHTTPRequest()
	}
	applyHeaderFields(s.req, fields)

	if s.endStream {
		return c.completeRequest(s)
	}
	return nil
}

func (c *Conn) handleData(fh FrameHeader, payload []byte) error {
	s := c.getStream(fh.StreamID)
	if s == nil {
		return nil
	}

	body, err := stripPadding(fh, payload)
	if err != nil {
		return err
	}

	total := int64(fh.Length)
	c.connRecvWindow.Consume(total)
	s.recvWindow.Consume(total)
	s.body.Write(body)

	if uint64(s.body.Len()) > c.cfg.Body.MaxSize {
		return c.resetStream(s, errFlowControlError)
	}

	// Replenish both windows once the payload has been buffered so the
	// peer keeps sending.
	c.connRecvWindow.Increase(total)
	s.recvWindow.Increase(total)
	_ = c.writeFrame(FrameHeader{Type: FrameWindowUpdate, StreamID: 0, Length: 4}, encodeUint32(uint32(total)))
	_ = c.writeFrame(FrameHeader{Type: FrameWindowUpdate, StreamID: fh.StreamID, Length: 4}, encodeUint32(uint32(total)))

	if fh.Flags.Has(FlagEndStream) {
		return c.completeRequest(s)
	}
	return nil
}

// completeRequest fires once a stream's request is fully received. It
// dispatches the handler chain and writes the response on the
// configured application executor rather than inline, since a response
// body larger than the send window blocks in writeDataFrames until a
// WINDOW_UPDATE arrives — and that frame can only be read by this
// connection's single Serve loop, which would otherwise be the very
// goroutine stuck waiting for it.
func (c *Conn) completeRequest(s *stream) error {
	s.state = streamHalfClosedRemote
	s.req.BodyMode = httpmsg.BodyFixed
	s.req.ContentLength = s.body.Len()
	s.ex = exchange.New(c.connID, s.req, s.resp)
	c.stats.RequestStarted()

	if s.readDeadline != nil {
		s.readDeadline.Cancel()
		s.readDeadline = nil
	}
	if s.req.ContentLength > 0 {
		s.ex.BodyStreaming()
	}
	s.ex.RequestDone()

	if s.resp.Code == status.RequestHeaderFieldsTooLarge {
		// header-list overflow was already flagged while headers were
		// still arriving; the request never reaches the handler chain.
		return c.writeResponseGuarded(s)
	}

	accepted := c.cfg.Executors.Handler.Submit(func() { c.runHandler(s) })
	if !accepted {
		c.stats.RejectedDueToOverload()
		handler.RenderError(s.resp, status.ServiceUnavailable, "the application executor rejected this request")
		return c.writeResponseGuarded(s)
	}
	return nil
}

// runHandler dispatches the handler chain and writes the response. It
// runs off the read loop, on a goroutine the executor provides.
func (c *Conn) runHandler(s *stream) {
	result, err := c.chain.Dispatch(s.req, s.resp, s.ex)
	if err != nil {
		s.ex.Fail(err)
		handler.RenderError(s.resp, status.InternalServerError, err.Error())
		result = handler.Handled
	}

	if result == handler.Async {
		s.ex.OnComplete(func(exchange.State, error) {
			_ = c.writeResponseGuarded(s)
		})
		return
	}

	_ = c.writeResponseGuarded(s)
}

// writeResponseGuarded wraps writeResponse with the ResponseWrite
// deadline, aborting only this stream (RST_STREAM) rather than the whole
// connection if it fires.
func (c *Conn) writeResponseGuarded(s *stream) error {
	var dl *timing.Deadline
	if c.wheel != nil && c.cfg.Timeouts.ResponseWrite > 0 {
		dl = c.wheel.Schedule(c.cfg.Timeouts.ResponseWrite, func() {
			s.ex.Timeout()
			_ = c.resetStream(s, errCancel)
		})
	}
	err := c.writeResponse(s)
	if dl != nil {
		dl.Cancel()
	}
	return err
}

func (c *Conn) writeResponse(s *stream) error {
	c.stats.RequestCompleted()
	s.resp.ApplyDefaultStatus()

	c.hpackMu.Lock()
	c.encBuf.Reset()
	pseudoStatus := strconv.Itoa(int(s.resp.Code))
	_ = c.hpackEnc.WriteField(hpack.HeaderField{Name: ":status", Value: pseudoStatus})
	s.resp.Headers.Each(func(k, v string) bool {
		_ = c.hpackEnc.WriteField(hpack.HeaderField{Name: k, Value: v})
		return true
	})
	block := append([]byte(nil), c.encBuf.Bytes()...)

	endStream := len(s.resp.Body) == 0
	err := c.writeFrame(FrameHeader{
		Type:     FrameHeaders,
		Flags:    endStreamFlag(endStream) | FlagEndHeaders,
		StreamID: s.id,
		Length:   uint32(len(block)),
	}, block)
	c.hpackMu.Unlock()
	if err != nil {
		return err
	}
	s.ex.HeadersSent()

	if !endStream {
		if err := c.writeDataFrames(s, s.resp.Body); err != nil {
			return err
		}
	}

	c.closeStream(s.id)
	s.ex.Done()
	return nil
}

func (c *Conn) writeDataFrames(s *stream, body []byte) error {
	s.ex.BodyWriting()
	for len(body) > 0 {
		room := minInt64(c.connSendWindow.WaitForRoom(), s.sendWindow.WaitForRoom())
		chunkSize := minInt64(int64(len(body)), room, int64(c.peerSettings.MaxFrameSize))
		if chunkSize <= 0 {
			chunkSize = int64(len(body))
		}
		chunk := body[:chunkSize]
		body = body[chunkSize:]

		c.connSendWindow.Consume(chunkSize)
		s.sendWindow.Consume(chunkSize)

		if err := c.writeFrame(FrameHeader{
			Type:     FrameData,
			Flags:    endStreamFlag(len(body) == 0),
			StreamID: s.id,
			Length:   uint32(chunkSize),
		}, chunk); err != nil {
			return err
		}
	}
	return nil
}

// GoAway sends a graceful-shutdown GOAWAY advertising the highest stream
// id served.
func (c *Conn) GoAway() error {
	c.mu.Lock()
	c.goAway = true
	last := c.lastStreamID
	c.mu.Unlock()

	payload := encodeUint32(last)
	payload = append(payload, encodeUint32(0)...) // NO_ERROR
	return c.writeFrame(FrameHeader{Type: FrameGoAway, Length: uint32(len(payload))}, payload)
}

func (c *Conn) resetStream(s *stream, code uint32) error {
	c.closeStream(s.id)
	return c.writeFrame(FrameHeader{Type: FrameRSTStream, StreamID: s.id, Length: 4}, encodeUint32(code))
}

func (c *Conn) closeStream(id uint32) {
	c.mu.Lock()
	delete(c.streams, id)
	c.mu.Unlock()
}

func (c *Conn) getStream(id uint32) *stream {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streams[id]
}

func (c *Conn) writeFrame(fh FrameHeader, payload []byte) error {
	fh.Length = uint32(len(payload))
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	buf := WriteFrameHeader(nil, fh)
	buf = append(buf, payload...)
	n, err := c.nc.Write(buf)
	c.stats.AddBytesSent(n)
	return err
}

const (
	errRefusedStream    = 0x7
	errFlowControlError = 0x3
	errCancel           = 0x8
)

// abortInFlight marks every stream still in the table when the
// connection drops as ClientDisconnected, so a handler blocked on
// AsyncHandle or streaming output observes the same terminal transition
// it would from a clean completion.
func (c *Conn) abortInFlight() {
	c.mu.Lock()
	streams := make([]*stream, 0, len(c.streams))
	for _, s := range c.streams {
		streams = append(streams, s)
	}
	c.mu.Unlock()

	for _, s := range streams {
		if s.readDeadline != nil {
			s.readDeadline.Cancel()
		}
		if s.ex != nil {
			s.ex.Disconnected()
		}
	}
}

func endStreamFlag(end bool) Flags {
	if end {
		return FlagEndStream
	}
	return 0
}

func encodeUint32(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func minInt64(vs ...int64) int64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func stripPadding(fh FrameHeader, payload []byte) ([]byte, error) {
	if !fh.Flags.Has(FlagPadded) {
		return payload, nil
	}
	if len(payload) == 0 {
		return nil, status.NewError(status.BadRequest, "PADDED flag with empty payload")
	}
	padLen := int(payload[0])
	payload = payload[1:]
	if padLen > len(payload) {
		return nil, status.NewError(status.BadRequest, "pad length exceeds frame")
	}
	return payload[:len(payload)-padLen], nil
}

func headerListSize(fields []hpack.HeaderField) uint64 {
	var total uint64
	for _, f := range fields {
		total += uint64(len(f.Name)) + uint64(len(f.Value)) + 32
	}
	return total
}

func applyHeaderFields(req *httpmsg.Request, fields []hpack.HeaderField) {
	req.Headers.Clear()
	for _, f := range fields {
		switch f.Name {
		case ":method":
			req.Method = method.Parse(f.Value)
		case ":path":
			path, query, _ := splitPath(f.Value)
			req.Path = path
			req.RawQuery = query
		case ":authority":
			req.Headers.Set("host", f.Value)
		case ":scheme":
			// scheme is implicit (TLS-terminated H2); nothing to store.
		default:
			req.Headers.Add(f.Name, f.Value)
		}
	}
}

func splitPath(target string) (path, query string, ok bool) {
	for i := 0; i < len(target); i++ {
		if target[i] == '?' {
			return target[:i], target[i+1:], true
		}
	}
	return target, "", true
}
