package http1

import (
	"strconv"
	"strings"
	"time"

	"github.com/webforge/httpcore/config"
	"github.com/webforge/httpcore/httpmsg"
	"github.com/webforge/httpcore/httpproto/method"
	"github.com/webforge/httpcore/httpproto/proto"
	"github.com/webforge/httpcore/httpproto/status"
	"github.com/webforge/httpcore/kv"
)

// Writer is the socket sink the serializer flushes into — satisfied by
// tcp.Conn and by the TLS channel alike.
type Writer interface {
	Write([]byte) error
}

// imfFixdate is RFC 7231 §7.1.1.1's preferred Date format. It's
// time.RFC1123 with the zone hardcoded to GMT rather than left to the
// %MST verb, since Go's UTC location renders as "UTC", not the "GMT"
// HTTP requires (the two are the same instant, just a different label).
const imfFixdate = "Mon, 02 Jan 2006 15:04:05 GMT"

// Serializer turns an httpmsg.Response into bytes on
// the wire, enforcing the Nothing -> FullSent / Nothing -> Streaming ->
// StreamingComplete state machine.
type Serializer struct {
	cfg     *config.Config
	buff    []byte
	chunked bool
}

// NewSerializer allocates a Serializer with cfg.NET.WriteBufferSize bytes
// pre-allocated scratch space.
func NewSerializer(cfg *config.Config) *Serializer {
	return &Serializer{
		cfg:  cfg,
		buff: make([]byte, 0, cfg.NET.WriteBufferSize),
	}
}

// WriteFull serialises resp as a single write: status line, headers and
// body together. Fails with an HTTPError of code InternalServerError if
// resp isn't in the Nothing state.
func (s *Serializer) WriteFull(w Writer, req *httpmsg.Request, resp *httpmsg.Response, closeConn bool) error {
	if resp.State != httpmsg.Nothing {
		return status.NewError(status.InternalServerError, "response already completed")
	}

	s.buff = s.buff[:0]
	s.appendStatusLine(req.Protocol, resp)

	suppressed := status.HasNoBody(resp.Code)
	body := resp.Body
	declaredLen := len(body)
	hasLength := resp.Headers.Has("Content-Length")
	if hasLength {
		if n, err := strconv.Atoi(resp.Headers.Value("Content-Length")); err == nil {
			declaredLen = n
			if declaredLen < len(body) {
				body = body[:declaredLen]
			}
		}
	}

	s.appendCommonHeaders(req, resp, closeConn, suppressed)
	if !suppressed && !hasLength {
		s.appendKV("Content-Length", strconv.Itoa(declaredLen))
	}
	s.crlf()

	if req.Method != method.HEAD && !suppressed {
		s.buff = append(s.buff, body...)
	}

	resp.State = httpmsg.FullSent
	return w.Write(s.buff)
}

// BeginStream writes the status line and headers for a streamed response,
// choosing Fixed framing when resp.ContentLength >= 0 or Chunked otherwise
// (Transfer-Encoding: chunked is inserted automatically).
func (s *Serializer) BeginStream(w Writer, req *httpmsg.Request, resp *httpmsg.Response, closeConn bool) error {
	if resp.State != httpmsg.Nothing {
		return status.NewError(status.InternalServerError, "response already completed")
	}

	s.buff = s.buff[:0]
	s.appendStatusLine(req.Protocol, resp)
	s.appendCommonHeaders(req, resp, closeConn, false)

	s.chunked = resp.ContentLength < 0
	if s.chunked {
		s.appendKV("Transfer-Encoding", "chunked")
		if resp.Trailer != nil && negotiatesTrailers(req) {
			s.appendKV("Trailer", trailerNames(resp.Trailer))
		}
	} else {
		s.appendKV("Content-Length", strconv.FormatInt(resp.ContentLength, 10))
	}
	s.crlf()

	resp.State = httpmsg.Streaming
	return w.Write(s.buff)
}

// WriteChunk writes one body fragment of a Streaming response. HEAD
// requests silently discard body writes.
func (s *Serializer) WriteChunk(w Writer, req *httpmsg.Request, resp *httpmsg.Response, data []byte) error {
	if resp.State != httpmsg.Streaming {
		return status.NewError(status.InternalServerError, "response is not streaming")
	}
	if req.Method == method.HEAD || len(data) == 0 {
		return nil
	}

	s.buff = s.buff[:0]
	if s.chunked {
		s.buff = appendChunkFrame(s.buff, data)
	} else {
		s.buff = append(s.buff, data...)
	}
	return w.Write(s.buff)
}

// EndStream finalises a Streaming response, writing the terminating zero-length chunk and any
// negotiated trailers.
func (s *Serializer) EndStream(w Writer, req *httpmsg.Request, resp *httpmsg.Response) error {
	if resp.State != httpmsg.Streaming {
		return status.NewError(status.InternalServerError, "response is not streaming")
	}

	if s.chunked {
		s.buff = s.buff[:0]
		s.buff = append(s.buff, "0\r\n"...)
		if resp.Trailer != nil && negotiatesTrailers(req) {
			resp.Trailer.Each(func(k, v string) bool {
				s.buff = append(s.buff, k...)
				s.buff = append(s.buff, ": "...)
				s.buff = append(s.buff, v...)
				s.buff = append(s.buff, "\r\n"...)
				return true
			})
		}
		s.buff = append(s.buff, "\r\n"...)
		if err := w.Write(s.buff); err != nil {
			return err
		}
	}

	resp.State = httpmsg.StreamingComplete
	return nil
}

func negotiatesTrailers(req *httpmsg.Request) bool {
	for _, v := range req.Headers.Values("te") {
		if v == "trailers" {
			return true
		}
	}
	return false
}

func trailerNames(t *kv.Storage) string {
	keys := t.Keys()
	out := ""
	for i, k := range keys {
		if i > 0 {
			out += ", "
		}
		out += k
	}
	return out
}

func (s *Serializer) appendStatusLine(p proto.Protocol, resp *httpmsg.Response) {
	s.buff = append(s.buff, proto.ToBytes(p)...)
	s.buff = append(s.buff, ' ')
	s.buff = strconv.AppendInt(s.buff, int64(resp.Code), 10)
	s.buff = append(s.buff, ' ')
	if resp.Status != "" {
		s.buff = append(s.buff, resp.Status...)
	} else {
		s.buff = append(s.buff, status.Reason(resp.Code)...)
	}
	s.buff = append(s.buff, "\r\n"...)
}

func (s *Serializer) appendCommonHeaders(req *httpmsg.Request, resp *httpmsg.Response, closeConn, suppressLength bool) {
	resp.Headers.Each(func(k, v string) bool {
		if suppressLength && strings.EqualFold(k, "Content-Length") {
			return true
		}
		s.appendKV(k, v)
		return true
	})

	if !resp.Headers.Has("Date") {
		s.appendKV("Date", time.Now().In(time.UTC).Format(imfFixdate))
	}

	if closeConn {
		s.appendKV("Connection", "close")
	}
}

func (s *Serializer) appendKV(key, value string) {
	s.buff = append(s.buff, key...)
	s.buff = append(s.buff, ':', ' ')
	s.buff = append(s.buff, value...)
	s.buff = append(s.buff, "\r\n"...)
}

func (s *Serializer) crlf() {
	s.buff = append(s.buff, "\r\n"...)
}

func appendChunkFrame(dst, data []byte) []byte {
	dst = strconv.AppendInt(dst, int64(len(data)), 16)
	dst = append(dst, "\r\n"...)
	dst = append(dst, data...)
	dst = append(dst, "\r\n"...)
	return dst
}
