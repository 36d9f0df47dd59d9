package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFromYAMLOverridesNamedFields(t *testing.T) {
	doc := `
http_port: 9090
max_headers_size: 4096
idle_timeout: 30s
nio_threads: 4
`
	cfg, err := FromYAML(strings.NewReader(doc))
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.HTTPPort)
	require.Equal(t, 4096, cfg.Headers.MaxSize)
	require.Equal(t, 30*time.Second, cfg.Timeouts.Idle)
	require.Equal(t, 4, cfg.NET.IOWorkers)
}

func TestFromYAMLLeavesUnmentionedFieldsAtDefault(t *testing.T) {
	doc := `http_port: 9090`
	cfg, err := FromYAML(strings.NewReader(doc))
	require.NoError(t, err)

	def := Default()
	require.Equal(t, def.HTTPSPort, cfg.HTTPSPort)
	require.Equal(t, def.URI.MaxSize, cfg.URI.MaxSize)
	require.Equal(t, def.Timeouts.RequestRead, cfg.Timeouts.RequestRead)
}

func TestFromYAMLEmptyDocumentYieldsDefaults(t *testing.T) {
	cfg, err := FromYAML(strings.NewReader(""))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestFromYAMLRejectsMalformedDocument(t *testing.T) {
	_, err := FromYAML(strings.NewReader("http_port: [this is not an int"))
	require.Error(t, err)
}
