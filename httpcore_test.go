package httpcore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/webforge/httpcore/config"
	"github.com/webforge/httpcore/exchange"
	"github.com/webforge/httpcore/handler"
	"github.com/webforge/httpcore/httpmsg"
	"github.com/webforge/httpcore/httpproto/method"
)

func TestNewUsesDefaultConfig(t *testing.T) {
	a := New()
	require.Equal(t, config.Default(), a.cfg)
}

func TestTuneReplacesConfig(t *testing.T) {
	a := New()
	cfg := config.Default()
	cfg.HTTPPort = 9999

	a.Tune(cfg)

	require.Equal(t, 9999, a.cfg.HTTPPort)
}

func TestHandleAndRouteAppendToChain(t *testing.T) {
	a := New()
	h := handler.HandlerFunc(func(_ *httpmsg.Request, _ *httpmsg.Response, _ *exchange.Exchange) handler.Result {
		return handler.NotHandled
	})

	a.Handle(h)
	require.Len(t, a.chain, 1)

	r := handler.NewRoute(method.GET, "/x", h)
	a.Route(r)
	require.Len(t, a.chain, 2)
}

func TestStopAndKillNoopBeforeServe(t *testing.T) {
	a := New()

	require.NoError(t, a.Stop(time.Second))
	require.NoError(t, a.Kill())
}

func TestStatsZeroBeforeServe(t *testing.T) {
	a := New()
	require.Equal(t, uint64(0), a.Stats().CompletedRequests)
}

func TestNotifyCallbacksAreStored(t *testing.T) {
	a := New()
	fired := false

	a.NotifyOnStart(func() { fired = true })
	require.NotNil(t, a.onStart)

	a.onStart()
	require.True(t, fired)
}
