package wasmkit

import (
	"github.com/jasonwyatt/wasmkit/runtime"
	"go.uber.org/zap"
)

// Config bundles the engine-wide knobs an embedder can tune, constructed
// via functional options and handed to linker.Builder.Build.
type Config struct {
	Limits runtime.Limits
	Logger *zap.Logger
}

// Option configures a Config.
type Option func(*Config)

// WithMaxCallStackDepth overrides the maximum recursive call depth before
// a call traps with KindCallStackExhausted (spec.md §4.I recommends
// at least 1024).
func WithMaxCallStackDepth(n int) Option {
	return func(c *Config) { c.Limits.MaxCallStackDepth = n }
}

// WithMaxOperandStackValues overrides the maximum live operand-stack
// depth of any single activation.
func WithMaxOperandStackValues(n int) Option {
	return func(c *Config) { c.Limits.MaxOperandStackValues = n }
}

// WithLogger overrides the no-op default logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// NewConfig applies opts over the default configuration.
func NewConfig(opts ...Option) Config {
	c := Config{Limits: runtime.DefaultLimits, Logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
