// Package tlschannel implements wrapping a raw socket with the TLS
// handshake, cipher/ALPN negotiation and bounded half-close, grounded on
// the certificate/autocert plumbing built for stdlib crypto/tls,
// generalised to the configurable cipher filter and
// bounded close_notify wait.
package tlschannel

import (
	"crypto/tls"
	"net"
	"time"

	"github.com/webforge/httpcore/config"
	"github.com/webforge/httpcore/stats"
)

// Info describes a completed handshake, attached to a Connection once
// negotiation finishes.
type Info struct {
	Version     uint16
	CipherSuite uint16
	ALPN        string
	ServerName  string
}

// Listener wraps a plain net.Listener, performing the TLS handshake on
// Accept so the connection manager always deals in fully
// negotiated conns, matching a tlsListener/autoTLSListener split.
type Listener struct {
	net.Listener
	cfg    *tls.Config
	stats  *stats.Counters
	closeT time.Duration
}

// NewListener builds a Listener from cfg's TLS section. If
// cfg.TLS.AutocertManager is set it takes precedence over static
// Certificates, exactly as an autoTLSListener would.
func NewListener(inner net.Listener, cfg *config.Config, st *stats.Counters) *Listener {
	tlsCfg := &tls.Config{
		MinVersion:   cfg.TLS.MinVersion,
		MaxVersion:   cfg.TLS.MaxVersion,
		NextProtos:   cfg.TLS.ALPNProtocols,
		Certificates: cfg.TLS.Certificates,
	}

	if cfg.TLS.AutocertManager != nil {
		tlsCfg.GetCertificate = cfg.TLS.AutocertManager.GetCertificate
	}

	if cfg.TLS.CipherFilter != nil {
		tlsCfg.CipherSuites = cfg.TLS.CipherFilter(supportedCipherIDs(), nil)
	}

	return &Listener{
		Listener: inner,
		cfg:      tlsCfg,
		stats:    st,
		closeT:   cfg.Timeouts.Idle,
	}
}

// Accept blocks for the next connection and drives its handshake to
// completion before returning it, so a handshake failure never reaches
// the connection manager as a live Connection.
func (l *Listener) Accept() (net.Conn, error) {
	for {
		raw, err := l.Listener.Accept()
		if err != nil {
			return nil, err
		}

		tconn := tls.Server(raw, l.cfg)
		if err := tconn.Handshake(); err != nil {
			l.stats.FailedToConnect()
			_ = raw.Close()
			continue
		}

		return tconn, nil
	}
}

// Close performs the bounded half-close described above, then
// closes the underlying socket, using the listener's configured idle
// timeout as the close_notify wait bound.
func (l *Listener) Close(conn net.Conn) error {
	_ = ShutdownOutput(conn, l.closeT)
	return conn.Close()
}

// NegotiatedInfo extracts the Info the connection manager records on a
// successfully handshaked *tls.Conn.
func NegotiatedInfo(conn net.Conn) (Info, bool) {
	tconn, ok := conn.(*tls.Conn)
	if !ok {
		return Info{}, false
	}
	st := tconn.ConnectionState()
	return Info{
		Version:     st.Version,
		CipherSuite: st.CipherSuite,
		ALPN:        st.NegotiatedProtocol,
		ServerName:  st.ServerName,
	}, true
}

// ShutdownOutput sends close_notify and waits up to timeout for the
// peer's own close_notify before giving up rather than blocking
// indefinitely for a reply that may never come.
func ShutdownOutput(conn net.Conn, timeout time.Duration) error {
	tconn, ok := conn.(*tls.Conn)
	if !ok {
		return nil
	}

	if err := tconn.CloseWrite(); err != nil {
		return err
	}

	if timeout <= 0 {
		return nil
	}

	_ = tconn.SetReadDeadline(time.Now().Add(timeout))
	buf := make([]byte, 512)
	for {
		if _, err := tconn.Read(buf); err != nil {
			// Peer's close_notify, a timeout, or any other read error all
			// end the drain the same way: we've waited long enough.
			return nil
		}
	}
}

func supportedCipherIDs() []uint16 {
	ids := make([]uint16, 0, len(tls.CipherSuites())+len(tls.InsecureCipherSuites()))
	for _, c := range tls.CipherSuites() {
		ids = append(ids, c.ID)
	}
	return ids
}
