package fancyregex

import (
	"github.com/wippyai/fancy-regex/engine"
	"github.com/wippyai/fancy-regex/ffi"
)

// Option configures Compile.
type Option func(*config)

type config struct {
	boundary  ffi.Boundary
	serialize bool
}

func newConfig(opts []Option) *config {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.boundary == nil {
		cfg.boundary = engine.Default()
	}
	return cfg
}

// WithBoundary compiles the pattern with b instead of the process-wide
// in-process engine. A nil b keeps the default.
func WithBoundary(b ffi.Boundary) Option {
	return func(c *config) {
		c.boundary = b
	}
}

// WithSerializedCalls makes requests against the pattern run one at a time
// even when the boundary reports that it is reentrant.
func WithSerializedCalls() Option {
	return func(c *config) {
		c.serialize = true
	}
}
