// Package config holds every server tuning knob as a plain struct built
// via Default() and never mutated
// piecemeal by the core — components receive a *Config by reference and
// treat it as read-only after Server.Serve starts.
package config

import (
	"crypto/tls"
	"time"

	"golang.org/x/crypto/acme/autocert"
)

// BodyTooLargeAction controls what happens when a request body exceeds
// Body.MaxSize.
type BodyTooLargeAction uint8

const (
	// SendResponse replies 413 and closes the connection after the
	// response completes, unless the response has already started, in
	// which case behaviour degrades to KillConnection (see DESIGN.md).
	SendResponse BodyTooLargeAction = iota
	// KillConnection closes the socket immediately without attempting to
	// write a response.
	KillConnection
)

// OnDisconnectCallback lets the application observe (and optionally
// modify) the terminal response written when a connection is torn down,
// in the same shape as a disconnect callback.
type OnDisconnectCallback func(req any) any

// URI holds request-line-related limits.
type URI struct {
	// MaxSize bounds the request target's length. Exceeding it by even a
	// single byte yields 414.
	MaxSize int
	// ParamsPrealloc sizes the initial query-parameter storage.
	ParamsPrealloc int
}

// Headers holds header-section limits.
type Headers struct {
	// MaxSize bounds the cumulative byte size of the header block,
	// trailers included.
	MaxSize int
	// MaxCount bounds the number of distinct header lines accepted.
	MaxCount int
	// MaxEncodingTokens bounds how many comma-separated tokens a single
	// Transfer-Encoding/Content-Encoding header may carry.
	MaxEncodingTokens int
	// Default holds operator-supplied response headers. Neither the H1
	// serializer nor the H2 connection reads it, so nothing here is merged
	// into responses.
	Default map[string]string
}

// Body holds request body limits.
type Body struct {
	// MaxSize is the hard ceiling on a request body, chunked or fixed.
	MaxSize uint64
	// TooLargeAction selects the behaviour on overflow.
	TooLargeAction BodyTooLargeAction
}

// Timeouts groups the three timeout classes enforced during an exchange.
type Timeouts struct {
	// Idle is the maximum time with no socket activity before the
	// connection is closed (default 10 minutes).
	Idle time.Duration
	// RequestRead bounds how long a request body read may stall waiting
	// for the next chunk (default 2 minutes).
	RequestRead time.Duration
	// ResponseWrite bounds how long a pending socket write may block
	// (default 2 minutes).
	ResponseWrite time.Duration
}

// NET groups socket/I/O tuning knobs.
type NET struct {
	// ReadBufferSize is the size of each pooled socket read buffer.
	ReadBufferSize int
	// WriteBufferSize sizes the response-serialisation scratch buffer.
	WriteBufferSize int
	// AcceptLoopInterruptPeriod is not read by the server: its accept
	// loops block in Accept() and end when Stop or Kill closes the
	// listener.
	AcceptLoopInterruptPeriod time.Duration
	// IOWorkers is the configured I/O worker count. The server does not
	// read it: each accepted connection runs on its own goroutine, with no
	// worker pool.
	IOWorkers int
	// KeepAliveCap bounds how many requests a single connection serves
	// before the server appends Connection: close.
	KeepAliveCap int
}

// H2 groups HTTP/2-specific settings.
type H2 struct {
	// MaxConcurrentStreams bounds the per-connection stream table.
	MaxConcurrentStreams uint32
	// InitialWindowSize is the initial per-stream flow-control window.
	InitialWindowSize uint32
	// MaxFrameSize bounds a single DATA/HEADERS frame's payload.
	MaxFrameSize uint32
	// ShutdownGrace is not read by the server: Stop does not send GOAWAY
	// on H2 connections, and its own grace argument bounds the wait.
	ShutdownGrace time.Duration
}

// TLS groups TLS 1.2/1.3 lifecycle settings.
type TLS struct {
	// Certificates configures the handshake directly, when autocert isn't used.
	Certificates []tls.Certificate
	// CipherFilter receives the supported cipher suite IDs (those of
	// tls.CipherSuites()) and returns the ordered list to offer the peer.
	// Its second argument is always nil; no default list is passed. A nil
	// filter offers the platform default. If the intersection with the
	// peer is empty, the handshake aborts.
	CipherFilter func(supported, deflt []uint16) []uint16
	// MinVersion/MaxVersion bound the negotiated protocol; defaults are
	// TLS 1.2 and TLS 1.3.
	MinVersion, MaxVersion uint16
	// ALPNProtocols lists offered protocols in preference order; "h2"
	// before "http/1.1" enables H2 negotiation.
	ALPNProtocols []string
	// AutocertManager, when non-nil, drives automatic certificate
	// provisioning via ACME instead of static Certificates.
	AutocertManager *autocert.Manager
}

// Executors groups the scheduling knobs.
type Executors struct {
	// Handler runs application handler code off the I/O worker so
	// blocking logic doesn't stall other connections. When it is nil,
	// server.New installs an unbounded goroutine-per-task executor.
	Handler TaskExecutor
}

// TaskExecutor abstracts the application executor
// an unbounded cached pool by default, but pluggable so operators can
// bound it and observe RejectedOverload behaviour.
type TaskExecutor interface {
	// Submit runs fn asynchronously. It returns false if the executor
	// rejected the task (bounded pool full) — the caller must then
	// respond 503 and increment RejectedDueToOverload.
	Submit(fn func()) (accepted bool)
}

// Handlers groups the escape hatches.
type Handlers struct {
	// OnUnhandledError is not consulted by the server: a handler error is
	// always rendered as the default 500 response on both H1 and H2.
	OnUnhandledError func(err error) (handled bool)
	// OnDisconnect is not called by the server on connection teardown.
	OnDisconnect OnDisconnectCallback
}

// Config is the immutable-after-start configuration object threaded by
// reference through every component.
type Config struct {
	HTTPPort  int
	HTTPSPort int

	URI       URI
	Headers   Headers
	Body      Body
	Timeouts  Timeouts
	NET       NET
	H2        H2
	TLS       TLS
	Executors Executors
	Handlers  Handlers
}

// Default returns a well-balanced configuration matching the numeric
// defaults.
func Default() *Config {
	return &Config{
		HTTPPort:  8080,
		HTTPSPort: -1,
		URI: URI{
			MaxSize:        8175,
			ParamsPrealloc: 5,
		},
		Headers: Headers{
			MaxSize:           8192,
			MaxCount:          100,
			MaxEncodingTokens: 4,
			Default:           make(map[string]string),
		},
		Body: Body{
			MaxSize:        24 * 1024 * 1024,
			TooLargeAction: SendResponse,
		},
		Timeouts: Timeouts{
			Idle:          10 * time.Minute,
			RequestRead:   2 * time.Minute,
			ResponseWrite: 2 * time.Minute,
		},
		NET: NET{
			ReadBufferSize:            8 * 1024,
			WriteBufferSize:           4 * 1024,
			AcceptLoopInterruptPeriod: 5 * time.Second,
			IOWorkers:                 defaultIOWorkers(),
			KeepAliveCap:              0, // 0 == unlimited
		},
		H2: H2{
			MaxConcurrentStreams: 100,
			InitialWindowSize:    65535,
			MaxFrameSize:         16384,
			ShutdownGrace:        30 * time.Second,
		},
		TLS: TLS{
			MinVersion:    tls.VersionTLS12,
			MaxVersion:    tls.VersionTLS13,
			ALPNProtocols: []string{"h2", "http/1.1"},
		},
	}
}
