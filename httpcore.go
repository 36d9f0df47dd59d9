// Package httpcore is the embeddable HTTP server library's entry point:
// a small fluent builder over config.Config, handler.Chain and
// server.Server, in the shape of a fluent App/New/Tune/Listen
// builder, generalised to this module's H1+H2 dual listener
// model instead of a per-port listener list.
package httpcore

import (
	"time"

	"github.com/webforge/httpcore/config"
	"github.com/webforge/httpcore/handler"
	"github.com/webforge/httpcore/server"
	"github.com/webforge/httpcore/stats"
)

// App is the top-level handle applications build against: configure it,
// attach handlers, then Serve.
type App struct {
	cfg   *config.Config
	chain []handler.Handler

	onStart func()
	onStop  func()

	srv *server.Server
}

// New returns an App with balanced defaults (config.Default).
func New() *App {
	return &App{cfg: config.Default()}
}

// Tune replaces the configuration wholesale, in the same spirit as
// an App.Tune(settings) call.
func (a *App) Tune(cfg *config.Config) *App {
	a.cfg = cfg
	return a
}

// Handle appends a handler.Handler to the chain, tried in the order
// added.
func (a *App) Handle(h handler.Handler) *App {
	a.chain = append(a.chain, h)
	return a
}

// Route registers a route.Handler-wrapped terminal handler, the common
// case of Handle for URI-templated endpoints.
func (a *App) Route(r *handler.Route) *App {
	return a.Handle(r)
}

// NotifyOnStart registers a callback that Serve starts in its own
// goroutine just before binding the listeners; it may run before they
// accept.
func (a *App) NotifyOnStart(cb func()) *App {
	a.onStart = cb
	return a
}

// NotifyOnStop registers a callback fired once the accept loops have
// returned (after Stop/Kill closes the listeners); in-flight connections
// may still be finishing at that point.
func (a *App) NotifyOnStop(cb func()) *App {
	a.onStop = cb
	return a
}

// Serve builds the handler chain and blocks running the accept loops.
func (a *App) Serve() error {
	c := handler.New(a.chain...)
	a.srv = server.New(a.cfg, c)

	if a.onStart != nil {
		go a.onStart()
	}

	err := a.srv.ListenAndServe()

	if a.onStop != nil {
		a.onStop()
	}
	return err
}

// Stop initiates graceful shutdown with the given grace period.
func (a *App) Stop(grace time.Duration) error {
	if a.srv == nil {
		return nil
	}
	return a.srv.Stop(grace)
}

// Kill forces immediate shutdown.
func (a *App) Kill() error {
	if a.srv == nil {
		return nil
	}
	return a.srv.Kill()
}

// Stats returns a point-in-time snapshot of the server's counters.
func (a *App) Stats() stats.Snapshot {
	if a.srv == nil {
		return stats.Snapshot{}
	}
	return a.srv.Stats()
}
