package config

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultProducesSaneBaseline(t *testing.T) {
	cfg := Default()

	require.Equal(t, 8080, cfg.HTTPPort)
	require.Equal(t, -1, cfg.HTTPSPort)
	require.Greater(t, cfg.URI.MaxSize, 0)
	require.Greater(t, cfg.Headers.MaxSize, 0)
	require.Equal(t, SendResponse, cfg.Body.TooLargeAction)
	require.NotNil(t, cfg.Headers.Default)
}

func TestDefaultIOWorkersBoundedByCPUsAndCeiling(t *testing.T) {
	n := defaultIOWorkers()
	require.GreaterOrEqual(t, n, 1)
	require.LessOrEqual(t, n, 16)

	want := 2 * runtime.NumCPU()
	if want > 16 {
		want = 16
	}
	require.Equal(t, want, n)
}
