package protocol

import (
	"sync"

	"go.uber.org/zap"
)

// PoolConfig bounds how large a pooled buffer is allowed to grow before
// PutBuffer discards it instead of recycling it.
type PoolConfig struct {
	MaxPoolSize int
}

var DefaultPoolConfig = PoolConfig{
	MaxPoolSize: 1024 * 64,
}

var log = zap.NewNop().Sugar()

// SetLogger lets the process entry point inject its own sugared logger for
// the pool's reallocation/discard diagnostics.
func SetLogger(l *zap.SugaredLogger) {
	if l != nil {
		log = l
	}
}

var BytePool = sync.Pool{
	New: func() any {
		b := make([]byte, 4096)
		return &b
	},
}

func GetBufferWithCapacity(capacity int) *[]byte {
	ptr := BytePool.Get().(*[]byte)

	if cap(*ptr) < capacity {
		log.Debugw("protocol: buffer pool miss, allocating fresh buffer", "capacity", capacity)
		b := make([]byte, capacity)
		return &b
	}

	*ptr = (*ptr)[:capacity]
	return ptr
}

func PutBuffer(ptr *[]byte) {
	if len(*ptr) > DefaultPoolConfig.MaxPoolSize {
		log.Debugw("protocol: discarding oversized buffer instead of pooling it", "length", len(*ptr))
		return
	}

	BytePool.Put(ptr)
}
