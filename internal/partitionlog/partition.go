// Package partitionlog implements an append-only ordered log of timestamped
// records keyed by a monotonically increasing offset: a directory of
// on-disk files, a sparse in-memory index mapping offsets to byte regions
// within those files, and a segment-granular random-access consume
// operation.
package partitionlog

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"kopperstack/internal/fslock"
)

// activeFileName is the only file this implementation ever produces into;
// the reference design allows a partition folder to hold more than one
// file and recovery tolerates any it finds there.
const activeFileName = "0"

// Partition is not internally synchronized: the data model (mutating the
// index, the active file's size, and next_offset) requires a caller to
// serialize Produce calls, exactly as the design notes require.
type Partition struct {
	dir string
	cfg Config
	log *zap.SugaredLogger
	lk  *fslock.DirLock

	files          map[string]*os.File
	activeFile     string
	activeFileSize int64
	index          sparseIndex
	nextOffset     uint64
}

// New opens or creates a partition directory. Every file already present
// is recovered by scan; an empty or missing directory starts at offset 0.
func New(dir string, opts ...Option) (*Partition, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, newInternalError(err)
	}

	lk, err := fslock.Acquire(dir)
	if err != nil {
		return nil, newInternalError(err)
	}

	p := &Partition{
		dir:        dir,
		cfg:        cfg,
		log:        cfg.Logger,
		lk:         lk,
		files:      make(map[string]*os.File),
		activeFile: activeFileName,
	}

	if _, err := p.recover(); err != nil {
		lk.Unlock()
		return nil, err
	}

	if _, ok := p.files[p.activeFile]; !ok {
		path := filepath.Join(dir, p.activeFile)
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			lk.Unlock()
			return nil, newInternalError(err)
		}
		p.files[p.activeFile] = f
	}

	return p, nil
}

// Produce encodes value with offset=next_offset and timestamp=now, cutting
// a new segment first if the active one's size would exceed SEG_LENGTH.
func (p *Partition) Produce(value []byte) (uint64, error) {
	offset := p.nextOffset
	timestamp := uint64(time.Now().Unix())
	encoded := encodeEntry(PartitionEntry{Offset: offset, Timestamp: timestamp, Value: value})

	last, hasActive := p.index.last()
	needsNewSegment := !hasActive || last.File != p.activeFile || last.Size+int64(len(encoded)) > p.cfg.SegLength

	if needsNewSegment {
		p.index.insert(indexEntry{File: p.activeFile, Offset: offset, Addr: p.activeFileSize, Size: 0})
		last, _ = p.index.last()
	}

	f := p.files[p.activeFile]
	n, err := f.Write(encoded)
	if err != nil {
		return 0, newInternalError(err)
	}

	last.Size += int64(n)
	p.activeFileSize += int64(n)
	p.nextOffset++

	return offset, nil
}

// Consume finds the segment containing offset, reads the whole segment
// from whichever file holds it, and returns a lazy iterator over it
// starting at offset.
func (p *Partition) Consume(offset uint64) (*EntryCollection, error) {
	if offset >= p.nextOffset {
		return nil, newBadOffsetError(offset)
	}

	entry, ok := p.index.lookup(offset)
	if !ok {
		return nil, newBadOffsetError(offset)
	}

	f, ok := p.files[entry.File]
	if !ok {
		return nil, newInternalError(fmt.Errorf("segment file %q is not open", entry.File))
	}

	buf := make([]byte, entry.Size)
	if entry.Size > 0 {
		if _, err := f.ReadAt(buf, entry.Addr); err != nil {
			return nil, newInternalError(err)
		}
	}

	return newEntryCollection(buf, offset), nil
}

// FirstOffset returns the smallest still-indexed offset, or
// NoFirstOffset if nothing has ever been produced.
func (p *Partition) FirstOffset() (uint64, error) {
	first, ok := p.index.first()
	if !ok {
		return 0, errNoFirstOffset
	}
	return first.Offset, nil
}

func (p *Partition) Close() error {
	var err error
	for _, f := range p.files {
		if cerr := f.Close(); cerr != nil {
			err = cerr
		}
	}
	if uerr := p.lk.Unlock(); uerr != nil && err == nil {
		err = uerr
	}
	return err
}
