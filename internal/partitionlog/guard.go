package partitionlog

import "sync"

// Guard serializes calls against one Partition; Partition itself carries
// no internal synchronization, so any caller sharing a Partition across
// goroutines needs one of these wrapped around it.
type Guard struct {
	mu        sync.Mutex
	Partition *Partition
}

func NewGuard(p *Partition) *Guard {
	return &Guard{Partition: p}
}

func (g *Guard) Produce(value []byte) (uint64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.Partition.Produce(value)
}

func (g *Guard) Consume(offset uint64) (*EntryCollection, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.Partition.Consume(offset)
}

func (g *Guard) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.Partition.Close()
}
