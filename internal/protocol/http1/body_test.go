package http1

import (
	"io"
	"testing"

	"github.com/indigo-web/chunkedbody"
	"github.com/stretchr/testify/require"

	"github.com/webforge/httpcore/httpmsg"
	"github.com/webforge/httpcore/httpproto/status"
	"github.com/webforge/httpcore/internal/unreader"
)

// sequentialClient hands back each slice in data exactly once, then io.EOF,
// honouring Unread pushback the way a real socket client would.
type sequentialClient struct {
	unreader unreader.Unreader
	data     [][]byte
	pos      int
}

func newSequentialClient(data ...[]byte) *sequentialClient {
	return &sequentialClient{data: data}
}

func (c *sequentialClient) Read() ([]byte, error) {
	return c.unreader.PendingOr(func() ([]byte, error) {
		if c.pos >= len(c.data) {
			return nil, io.EOF
		}
		b := c.data[c.pos]
		c.pos++
		return b, nil
	})
}

func (c *sequentialClient) Unread(b []byte) {
	c.unreader.Unread(b)
}

func readAll(t *testing.T, b *BodyReader) []byte {
	t.Helper()
	var out []byte
	for {
		chunk, err := b.Read()
		out = append(out, chunk...)
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
	}
}

func TestBodyReaderFixedSingleRead(t *testing.T) {
	client := newSequentialClient([]byte("hello world"))
	reader := NewBodyReader(client, 1024, chunkedbody.NewParser(chunkedbody.DefaultSettings()))

	req := httpmsg.NewRequest(0)
	req.BodyMode = httpmsg.BodyFixed
	req.ContentLength = len("hello world")
	reader.Init(req)

	require.Equal(t, []byte("hello world"), readAll(t, reader))
}

func TestBodyReaderFixedUnreadsOverread(t *testing.T) {
	// the socket hands back the body plus the start of the next request
	// line in one read; the reader must push the excess back.
	client := newSequentialClient([]byte("abcGET /next"))
	reader := NewBodyReader(client, 1024, chunkedbody.NewParser(chunkedbody.DefaultSettings()))

	req := httpmsg.NewRequest(0)
	req.BodyMode = httpmsg.BodyFixed
	req.ContentLength = 3
	reader.Init(req)

	require.Equal(t, []byte("abc"), readAll(t, reader))

	leftover, err := client.Read()
	require.NoError(t, err)
	require.Equal(t, []byte("GET /next"), leftover)
}

func TestBodyReaderNoneModeIsImmediateEOF(t *testing.T) {
	client := newSequentialClient([]byte("should never be read"))
	reader := NewBodyReader(client, 1024, chunkedbody.NewParser(chunkedbody.DefaultSettings()))

	req := httpmsg.NewRequest(0)
	req.BodyMode = httpmsg.BodyNone
	reader.Init(req)

	chunk, err := reader.Read()
	require.Equal(t, io.EOF, err)
	require.Empty(t, chunk)
}

func TestBodyReaderChunked(t *testing.T) {
	client := newSequentialClient([]byte("5\r\nhello\r\n0\r\n\r\n"))
	reader := NewBodyReader(client, 1024, chunkedbody.NewParser(chunkedbody.DefaultSettings()))

	req := httpmsg.NewRequest(0)
	req.BodyMode = httpmsg.BodyChunked
	reader.Init(req)

	require.Equal(t, []byte("hello"), readAll(t, reader))
}

func TestBodyReaderEnforcesMaxLen(t *testing.T) {
	client := newSequentialClient([]byte("abcdef"))
	reader := NewBodyReader(client, 3, chunkedbody.NewParser(chunkedbody.DefaultSettings()))

	req := httpmsg.NewRequest(0)
	req.BodyMode = httpmsg.BodyFixed
	req.ContentLength = 6
	reader.Init(req)

	_, err := reader.Read()
	require.ErrorIs(t, err, status.ErrBodyTooLarge)
}

func TestBodyReaderDiscardDrainsWithoutSurfacing(t *testing.T) {
	client := newSequentialClient([]byte("discard me"))
	reader := NewBodyReader(client, 1024, chunkedbody.NewParser(chunkedbody.DefaultSettings()))

	req := httpmsg.NewRequest(0)
	req.BodyMode = httpmsg.BodyFixed
	req.ContentLength = len("discard me")
	reader.Init(req)

	require.NoError(t, reader.Discard())

	chunk, err := reader.Read()
	require.Equal(t, io.EOF, err)
	require.Empty(t, chunk)
}
