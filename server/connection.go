package server

import (
	"net"

	"github.com/indigo-web/chunkedbody"

	"github.com/webforge/httpcore/exchange"
	"github.com/webforge/httpcore/handler"
	"github.com/webforge/httpcore/httpmsg"
	"github.com/webforge/httpcore/httpproto/status"
	"github.com/webforge/httpcore/internal/buffer"
	"github.com/webforge/httpcore/internal/protocol/http1"
	"github.com/webforge/httpcore/internal/protocol/http2"
	"github.com/webforge/httpcore/internal/tcp"
)

// driveH1 runs the request/response loop for one cleartext or
// TLS-but-http/1.1 connection (one exchange at a time, keep-alive
// governed by the Connection header and the server's keep-alive cap).
func (s *Server) driveH1(conn net.Conn, connID uint64) {
	client := tcp.New(conn, s.cfg.Timeouts.Idle, make([]byte, s.cfg.NET.ReadBufferSize))

	requestLine := buffer.New(256, s.cfg.URI.MaxSize)
	headers := buffer.New(512, s.cfg.Headers.MaxSize)
	chunkedParser := chunkedbody.NewParser(chunkedbody.DefaultSettings())

	req := httpmsg.NewRequest(s.cfg.URI.ParamsPrealloc)
	req.Remote = conn.RemoteAddr()
	parser := http1.NewParser(s.cfg, req, requestLine, headers)
	bodyReader := http1.NewBodyReader(client, s.cfg.Body.MaxSize, chunkedParser)
	serializer := http1.NewSerializer(s.cfg)

	served := 0
	for {
		if s.cfg.NET.KeepAliveCap > 0 && served >= s.cfg.NET.KeepAliveCap {
			break
		}

		req.Reset()
		resp := httpmsg.NewResponse()

		ok, parseErr := s.readRequest(client, parser, req)
		if !ok {
			if parseErr != nil {
				s.writeParseError(client, serializer, req, parseErr)
			}
			break
		}

		bodyReader.Init(req)
		ex := exchange.New(connID, req, resp)
		s.stats.RequestStarted()

		if !s.drainRequestBody(client, bodyReader, req, ex) {
			return
		}

		result := s.dispatch(req, resp, ex)
		if result == handler.Async {
			done := make(chan struct{})
			ex.OnComplete(func(exchange.State, error) { close(done) })
			<-done
		}

		s.stats.RequestCompleted()
		resp.ApplyDefaultStatus()

		closeConn := s.isShutdown() || wantsClose(req) ||
			(s.cfg.NET.KeepAliveCap > 0 && served+1 >= s.cfg.NET.KeepAliveCap)
		if !s.writeResponse(client, serializer, req, resp, ex, closeConn) {
			return
		}

		served++
		if closeConn {
			return
		}
	}
}

// drainRequestBody discards the request body before the handler chain
// runs, bounded by Timeouts.RequestRead, and drives the exchange's
// request-side transitions. Handlers never receive the body bytes. It
// returns false if the connection should be torn down.
func (s *Server) drainRequestBody(client tcp.Client, bodyReader *http1.BodyReader, req *httpmsg.Request, ex *exchange.Exchange) bool {
	if req.BodyMode == httpmsg.BodyNone {
		ex.RequestDone()
		return true
	}

	ex.BodyStreaming()
	timedOut := false
	dl := s.scheduleTimeout(s.cfg.Timeouts.RequestRead, func() {
		timedOut = true
		ex.Timeout()
		_ = client.Close()
	})
	err := bodyReader.Discard()
	cancelTimeout(dl)
	if err != nil {
		if !timedOut {
			ex.Disconnected()
		}
		return false
	}

	ex.RequestDone()
	return true
}

// dispatch runs the handler chain through the configured application
// executor, responding 503 and counting the rejection if the executor
// is at capacity.
func (s *Server) dispatch(req *httpmsg.Request, resp *httpmsg.Response, ex *exchange.Exchange) handler.Result {
	type outcome struct {
		result handler.Result
		err    error
	}
	done := make(chan outcome, 1)

	accepted := s.cfg.Executors.Handler.Submit(func() {
		result, err := s.chain.Dispatch(req, resp, ex)
		done <- outcome{result, err}
	})
	if !accepted {
		s.stats.RejectedDueToOverload()
		handler.RenderError(resp, status.ServiceUnavailable, "the application executor rejected this request")
		return handler.Handled
	}

	o := <-done
	if o.err != nil {
		ex.Fail(o.err)
		handler.RenderError(resp, status.InternalServerError, o.err.Error())
		return handler.Handled
	}
	return o.result
}

// writeResponse serialises resp, bounded by Timeouts.ResponseWrite, and
// drives the exchange's response-side terminal transitions. It returns
// false if the connection should be torn down.
func (s *Server) writeResponse(client tcp.Client, serializer *http1.Serializer, req *httpmsg.Request, resp *httpmsg.Response, ex *exchange.Exchange, closeConn bool) bool {
	timedOut := false
	dl := s.scheduleTimeout(s.cfg.Timeouts.ResponseWrite, func() {
		timedOut = true
		ex.Timeout()
		_ = client.Close()
	})
	writeErr := serialize(client, serializer, req, resp, closeConn)
	cancelTimeout(dl)
	if writeErr != nil {
		if !timedOut {
			ex.Fail(writeErr)
		}
		return false
	}

	ex.HeadersSent()
	ex.Done()
	return true
}

// serialize picks fixed or chunked framing depending on how the handler
// left the response: BodyChunked routes through the streaming
// BeginStream/WriteChunk/EndStream path (negotiating trailers when the
// client sent TE: trailers), everything else through the single-shot
// WriteFull.
func serialize(client tcp.Client, serializer *http1.Serializer, req *httpmsg.Request, resp *httpmsg.Response, closeConn bool) error {
	if resp.BodyMode != httpmsg.BodyChunked {
		return serializer.WriteFull(client, req, resp, closeConn)
	}
	if err := serializer.BeginStream(client, req, resp, closeConn); err != nil {
		return err
	}
	if err := serializer.WriteChunk(client, req, resp, resp.Body); err != nil {
		return err
	}
	return serializer.EndStream(client, req, resp)
}

// readRequest reads and parses one request's headers. ok is false either
// because the socket failed (err is nil; caller just closes) or because
// the request itself was malformed (err carries the status.HTTPError to
// report before closing).
func (s *Server) readRequest(client interface {
	Read() ([]byte, error)
	Unread([]byte)
}, parser *http1.Parser, req *httpmsg.Request) (ok bool, err error) {
	for {
		data, readErr := client.Read()
		if readErr != nil {
			return false, nil
		}

		done, extra, parseErr := parser.Parse(data)
		if parseErr != nil {
			s.stats.InvalidHTTPRequest()
			return false, parseErr
		}
		if done {
			client.Unread(extra)
			return true, nil
		}
	}
}

// writeParseError renders the canned failure page for a request-line or
// header parse/framing error and writes it before the connection closes,
// unless the error is a bare close-connection signal carrying no status
// worth reporting.
func (s *Server) writeParseError(client tcp.Client, serializer *http1.Serializer, req *httpmsg.Request, parseErr error) {
	he, ok := parseErr.(status.HTTPError)
	if !ok || he.Code == status.CloseConnection {
		return
	}

	resp := httpmsg.NewResponse()
	handler.RenderError(resp, he.Code, he.Message)
	_ = serializer.WriteFull(client, req, resp, true)
}

func wantsClose(req *httpmsg.Request) bool {
	return req.Connection == "close"
}

// driveH2 runs one negotiated HTTP/2 connection to completion.
func (s *Server) driveH2(conn net.Conn, connID uint64) {
	c := http2.NewConn(conn, s.cfg, s.stats, s.chain, connID, s.wheel)
	_ = c.Serve()
}
