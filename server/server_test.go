package server

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/webforge/httpcore/config"
	"github.com/webforge/httpcore/exchange"
	"github.com/webforge/httpcore/handler"
	"github.com/webforge/httpcore/httpmsg"
)

func echoHandler() handler.Handler {
	return handler.HandlerFunc(func(_ *httpmsg.Request, resp *httpmsg.Response, _ *exchange.Exchange) handler.Result {
		resp.Header("Content-Type", "text/plain")
		_, _ = resp.Write([]byte("pong"))
		return handler.Handled
	})
}

func newTestServer(t *testing.T, port int, h handler.Handler) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.HTTPPort = port
	cfg.HTTPSPort = -1
	return New(cfg, handler.New(h))
}

func TestServerServesSimpleGETOverH1(t *testing.T) {
	s := newTestServer(t, 17171, echoHandler())

	errCh := make(chan error, 1)
	go func() { errCh <- s.ListenAndServe() }()
	defer func() { _ = s.Kill() }()

	waitForListener(t, "127.0.0.1:17171")

	conn, err := net.Dial("tcp", "127.0.0.1:17171")
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("GET / HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"))
	require.NoError(t, err)

	reader := bufio.NewReader(conn)
	status, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Contains(t, status, "200")

	var body string
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		body += line
	}
	require.Contains(t, body, "pong")
}

func TestServerStopWaitsForInFlightThenCloses(t *testing.T) {
	s := newTestServer(t, 17172, echoHandler())
	go func() { _ = s.ListenAndServe() }()
	waitForListener(t, "127.0.0.1:17172")

	require.NoError(t, s.Stop(time.Second))

	_, err := net.DialTimeout("tcp", "127.0.0.1:17172", 200*time.Millisecond)
	require.Error(t, err)
}

func TestServerKillClosesActiveConnections(t *testing.T) {
	s := newTestServer(t, 17173, echoHandler())
	go func() { _ = s.ListenAndServe() }()
	waitForListener(t, "127.0.0.1:17173")

	conn, err := net.Dial("tcp", "127.0.0.1:17173")
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, s.Kill())

	conn.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 1)
	_, err = conn.Read(buf)
	require.Error(t, err)
}

func waitForListener(t *testing.T, addr string) {
	t.Helper()
	require.Eventually(t, func() bool {
		c, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err != nil {
			return false
		}
		_ = c.Close()
		return true
	}, 2*time.Second, 20*time.Millisecond)
}
