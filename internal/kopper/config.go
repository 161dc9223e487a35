package kopper

import "go.uber.org/zap"

// DefaultSegmentSize is used when a Store is opened without WithSegmentSize.
const DefaultSegmentSize int64 = 4 * 1024 * 1024

// Config controls a Store's segmentation threshold and logging sink.
type Config struct {
	SegmentSize int64
	Logger      *zap.SugaredLogger
}

// Option mutates a Config at Open time.
type Option func(*Config)

// WithSegmentSize overrides the byte budget at which the active file rolls over.
func WithSegmentSize(n int64) Option {
	return func(c *Config) { c.SegmentSize = n }
}

// WithLogger injects a sugared logger; Open falls back to a no-op logger otherwise.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Config) { c.Logger = l }
}

func defaultConfig() Config {
	return Config{
		SegmentSize: DefaultSegmentSize,
		Logger:      zap.NewNop().Sugar(),
	}
}
