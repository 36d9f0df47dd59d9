package config

import (
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the subset of Config that makes sense to express as
// a document — executors, TLS certificate material and callbacks stay
// code-only.
type fileConfig struct {
	HTTPPort  int `yaml:"http_port"`
	HTTPSPort int `yaml:"https_port"`

	MaxHeadersSize int `yaml:"max_headers_size"`
	MaxURLSize     int `yaml:"max_url_size"`
	MaxRequestSize int `yaml:"max_request_size"`

	IdleTimeout          time.Duration `yaml:"idle_timeout"`
	RequestReadTimeout   time.Duration `yaml:"request_read_timeout"`
	ResponseWriteTimeout time.Duration `yaml:"response_write_timeout"`

	NIOThreads int `yaml:"nio_threads"`
}

// FromYAML parses a YAML document into a Config, layering the parsed
// values over Default(). Zero values in the document leave the default
// untouched, so a config file only needs to name what it overrides.
func FromYAML(r io.Reader) (*Config, error) {
	var fc fileConfig
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&fc); err != nil && err != io.EOF {
		return nil, err
	}

	cfg := Default()
	if fc.HTTPPort != 0 {
		cfg.HTTPPort = fc.HTTPPort
	}
	if fc.HTTPSPort != 0 {
		cfg.HTTPSPort = fc.HTTPSPort
	}
	if fc.MaxHeadersSize != 0 {
		cfg.Headers.MaxSize = fc.MaxHeadersSize
	}
	if fc.MaxURLSize != 0 {
		cfg.URI.MaxSize = fc.MaxURLSize
	}
	if fc.MaxRequestSize != 0 {
		cfg.Body.MaxSize = uint64(fc.MaxRequestSize)
	}
	if fc.IdleTimeout != 0 {
		cfg.Timeouts.Idle = fc.IdleTimeout
	}
	if fc.RequestReadTimeout != 0 {
		cfg.Timeouts.RequestRead = fc.RequestReadTimeout
	}
	if fc.ResponseWriteTimeout != 0 {
		cfg.Timeouts.ResponseWrite = fc.ResponseWriteTimeout
	}
	if fc.NIOThreads != 0 {
		cfg.NET.IOWorkers = fc.NIOThreads
	}

	return cfg, nil
}
