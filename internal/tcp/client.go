// Package tcp adapts net.Conn (plain or TLS) to the Client contract the
// H1 parser and body reader expect, folding in read-deadline management
// and single-slice pushback.
package tcp

import (
	"net"
	"time"

	"github.com/webforge/httpcore/internal/unreader"
)

// Client is the socket surface consumed by internal/protocol/http1.
type Client interface {
	Read() ([]byte, error)
	Unread([]byte)
	Write([]byte) error
	Remote() net.Addr
	Close() error
}

type client struct {
	unreader unreader.Unreader
	buff     []byte
	conn     net.Conn
	timeout  time.Duration
}

// New wraps conn, using buff as scratch read space and timeout as the
// per-read deadline (refreshed on every Read, matching the idle-timeout
// bookkeeping in package server).
func New(conn net.Conn, timeout time.Duration, buff []byte) Client {
	return &client{buff: buff, conn: conn, timeout: timeout}
}

func (c *client) Read() ([]byte, error) {
	return c.unreader.PendingOr(func() ([]byte, error) {
		if c.timeout > 0 {
			if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
				return nil, err
			}
		}
		n, err := c.conn.Read(c.buff)
		return c.buff[:n], err
	})
}

func (c *client) Unread(b []byte) { c.unreader.Unread(b) }

func (c *client) Write(b []byte) error {
	_, err := c.conn.Write(b)
	return err
}

func (c *client) Remote() net.Addr { return c.conn.RemoteAddr() }

func (c *client) Close() error { return c.conn.Close() }
