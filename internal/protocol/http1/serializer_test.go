package http1

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/webforge/httpcore/config"
	"github.com/webforge/httpcore/httpmsg"
	"github.com/webforge/httpcore/httpproto/method"
	"github.com/webforge/httpcore/httpproto/proto"
	"github.com/webforge/httpcore/httpproto/status"
)

type collectingWriter struct {
	buf []byte
}

func (w *collectingWriter) Write(p []byte) error {
	w.buf = append(w.buf, p...)
	return nil
}

func newTestRequest(m method.Method) *httpmsg.Request {
	req := httpmsg.NewRequest(1)
	req.Method = m
	req.Protocol = proto.HTTP11
	return req
}

func TestWriteFullBasicResponse(t *testing.T) {
	s := NewSerializer(config.Default())
	w := &collectingWriter{}
	req := newTestRequest(method.GET)
	resp := httpmsg.NewResponse()
	resp.Header("Content-Type", "text/plain")
	_, _ = resp.Write([]byte("hi"))

	err := s.WriteFull(w, req, resp, false)
	require.NoError(t, err)

	out := string(w.buf)
	require.True(t, strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n"))
	require.Contains(t, out, "Content-Type: text/plain\r\n")
	require.Contains(t, out, "Content-Length: 2\r\n")
	require.True(t, strings.HasSuffix(out, "\r\n\r\nhi"))
	require.Equal(t, httpmsg.FullSent, resp.State)
}

func TestWriteFullSuppressesBodyForHead(t *testing.T) {
	s := NewSerializer(config.Default())
	w := &collectingWriter{}
	req := newTestRequest(method.HEAD)
	resp := httpmsg.NewResponse()
	_, _ = resp.Write([]byte("hidden"))

	require.NoError(t, s.WriteFull(w, req, resp, false))
	require.NotContains(t, string(w.buf), "hidden")
	require.Contains(t, string(w.buf), "Content-Length: 6\r\n")
}

func TestWriteFullSuppressesLengthForNoContent(t *testing.T) {
	s := NewSerializer(config.Default())
	w := &collectingWriter{}
	req := newTestRequest(method.GET)
	resp := httpmsg.NewResponse()
	resp.SetCode(status.NoContent)

	require.NoError(t, s.WriteFull(w, req, resp, false))
	require.NotContains(t, string(w.buf), "Content-Length")
}

func TestWriteFullAppendsConnectionCloseWhenRequested(t *testing.T) {
	s := NewSerializer(config.Default())
	w := &collectingWriter{}
	req := newTestRequest(method.GET)
	resp := httpmsg.NewResponse()

	require.NoError(t, s.WriteFull(w, req, resp, true))
	require.Contains(t, string(w.buf), "Connection: close\r\n")
}

func TestWriteFullRejectsNonNothingState(t *testing.T) {
	s := NewSerializer(config.Default())
	w := &collectingWriter{}
	req := newTestRequest(method.GET)
	resp := httpmsg.NewResponse()
	resp.State = httpmsg.FullSent

	err := s.WriteFull(w, req, resp, false)
	require.Error(t, err)
}

func TestStreamingChunkedRoundTrip(t *testing.T) {
	s := NewSerializer(config.Default())
	w := &collectingWriter{}
	req := newTestRequest(method.GET)
	resp := httpmsg.NewResponse()

	require.NoError(t, s.BeginStream(w, req, resp, false))
	require.Equal(t, httpmsg.Streaming, resp.State)
	require.Contains(t, string(w.buf), "Transfer-Encoding: chunked\r\n")

	require.NoError(t, s.WriteChunk(w, req, resp, []byte("abc")))
	require.NoError(t, s.EndStream(w, req, resp))

	out := string(w.buf)
	require.Contains(t, out, "3\r\nabc\r\n")
	require.True(t, strings.HasSuffix(out, "0\r\n\r\n"))
	require.Equal(t, httpmsg.StreamingComplete, resp.State)
}

func TestStreamingFixedLengthUsesContentLength(t *testing.T) {
	s := NewSerializer(config.Default())
	w := &collectingWriter{}
	req := newTestRequest(method.GET)
	resp := httpmsg.NewResponse()
	resp.ContentLength = 3

	require.NoError(t, s.BeginStream(w, req, resp, false))
	require.Contains(t, string(w.buf), "Content-Length: 3\r\n")
	require.NotContains(t, string(w.buf), "Transfer-Encoding")

	require.NoError(t, s.WriteChunk(w, req, resp, []byte("xyz")))
	require.Equal(t, "xyz", string(w.buf[len(w.buf)-3:]))
}

func TestWriteChunkDiscardsBodyForHead(t *testing.T) {
	s := NewSerializer(config.Default())
	w := &collectingWriter{}
	req := newTestRequest(method.HEAD)
	resp := httpmsg.NewResponse()

	require.NoError(t, s.BeginStream(w, req, resp, false))
	before := len(w.buf)
	require.NoError(t, s.WriteChunk(w, req, resp, []byte("nope")))
	require.Equal(t, before, len(w.buf))
}

func TestEndStreamRejectsNonStreamingState(t *testing.T) {
	s := NewSerializer(config.Default())
	w := &collectingWriter{}
	req := newTestRequest(method.GET)
	resp := httpmsg.NewResponse()

	err := s.EndStream(w, req, resp)
	require.Error(t, err)
}
