package partitionlog

import "go.uber.org/zap"

// DefaultSegLength is the compile-time SEG_LENGTH from the reference design;
// exposed as an overridable default so tests can force segment boundaries.
const DefaultSegLength int64 = 4096

type Config struct {
	SegLength int64
	Logger    *zap.SugaredLogger
}

type Option func(*Config)

func WithSegLength(n int64) Option {
	return func(c *Config) { c.SegLength = n }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Config) { c.Logger = l }
}

func defaultConfig() Config {
	return Config{
		SegLength: DefaultSegLength,
		Logger:    zap.NewNop().Sugar(),
	}
}
