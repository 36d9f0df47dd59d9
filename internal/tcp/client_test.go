package tcp

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClientReadReturnsWrittenBytes(t *testing.T) {
	server, peer := net.Pipe()
	defer server.Close()
	defer peer.Close()

	c := New(server, 0, make([]byte, 64))

	go func() {
		_, _ = peer.Write([]byte("hello"))
	}()

	data, err := c.Read()
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), data)
}

func TestClientUnreadIsReturnedByNextRead(t *testing.T) {
	server, peer := net.Pipe()
	defer server.Close()
	defer peer.Close()

	c := New(server, 0, make([]byte, 64))
	c.Unread([]byte("pushed back"))

	data, err := c.Read()
	require.NoError(t, err)
	require.Equal(t, []byte("pushed back"), data)
}

func TestClientWriteSendsToPeer(t *testing.T) {
	server, peer := net.Pipe()
	defer server.Close()
	defer peer.Close()

	c := New(server, 0, make([]byte, 64))

	done := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 64)
		n, _ := peer.Read(buf)
		done <- buf[:n]
	}()

	require.NoError(t, c.Write([]byte("outgoing")))
	require.Equal(t, []byte("outgoing"), <-done)
}

func TestClientCloseClosesUnderlyingConn(t *testing.T) {
	server, peer := net.Pipe()
	defer peer.Close()

	c := New(server, 0, make([]byte, 64))
	require.NoError(t, c.Close())

	_, err := server.Read(make([]byte, 1))
	require.Error(t, err)
}

func TestClientRemoteAddrDelegatesToConn(t *testing.T) {
	server, peer := net.Pipe()
	defer server.Close()
	defer peer.Close()

	c := New(server, 0, make([]byte, 64))
	require.Equal(t, server.RemoteAddr(), c.Remote())
}

func TestClientReadAppliesDeadlineWithoutBlockingForever(t *testing.T) {
	server, peer := net.Pipe()
	defer server.Close()
	defer peer.Close()

	c := New(server, 10*time.Millisecond, make([]byte, 64))

	_, err := c.Read()
	require.Error(t, err)
}
