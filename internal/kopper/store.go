// Package kopper implements a log-structured, append-only key/value store:
// an in-memory hash index over segmented on-disk files, crash recovery by
// scanning those files, and a background compactor that reclaims space from
// overwritten keys.
package kopper

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"kopperstack/internal/fslock"
)

type indexEntry struct {
	file   FileIndex
	offset int64
	length int64
}

type fileEntry struct {
	handle      *os.File
	unusedCount int64
}

type state struct {
	index      map[string]indexEntry
	files      map[FileIndex]*fileEntry
	activeFile FileIndex
	activeOff  int64
	totalSize  int64
}

// Store is a single Kopper instance bound to one directory.
type Store struct {
	dir string
	cfg Config
	log *zap.SugaredLogger
	lk  *fslock.DirLock

	mu sync.Mutex
	st state

	compactCh chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Open recovers an existing Kopper directory or creates a fresh one.
// A directory containing files whose names parse as FileIndex is recovered
// by scan; an empty or missing directory gets an initial file "0_0".
func Open(dir string, opts ...Option) (*Store, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, newIOError("open", err)
	}

	lk, err := fslock.Acquire(dir)
	if err != nil {
		return nil, newIOError("open", err)
	}

	s := &Store{
		dir:       dir,
		cfg:       cfg,
		log:       cfg.Logger,
		lk:        lk,
		compactCh: make(chan struct{}, 4096),
	}

	if err := s.recover(); err != nil {
		lk.Unlock()
		return nil, err
	}

	s.wg.Add(1)
	go s.compactionLoop()

	return s, nil
}

// Write appends key/value to the active segment and updates the index,
// in that order — the append happens before the index is mutated, so a
// failed append never leaves the index pointing at bytes that were never
// written.
func (s *Store) Write(key, value []byte) (int64, error) {
	if containsNull(key) {
		return 0, ErrKeyContainsNull
	}
	if containsNull(value) {
		return 0, ErrValueContainsNull
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	recLen := framedSize(key, value)
	rolled := false
	if s.st.activeOff+recLen > s.cfg.SegmentSize {
		if err := s.rollover(); err != nil {
			return 0, err
		}
		rolled = true
	}

	active := s.st.files[s.st.activeFile]
	rec := encodeRecord(key, value)

	n, err := active.handle.Write(rec)
	if err != nil {
		return 0, newIOError("write", err)
	}

	valueOffset := s.st.activeOff + int64(len(key)) + 1
	writtenFile := s.st.activeFile
	s.st.activeOff += int64(n)
	s.st.totalSize += int64(n)

	k := string(key)
	if old, ok := s.st.index[k]; ok {
		if of, ok2 := s.st.files[old.file]; ok2 {
			of.unusedCount++
		}
	}
	s.st.index[k] = indexEntry{file: writtenFile, offset: valueOffset, length: int64(len(value))}

	if rolled {
		select {
		case s.compactCh <- struct{}{}:
		default:
			s.log.Warnw("kopper: compaction signal dropped, queue full")
		}
	}

	return s.st.totalSize, nil
}

// Read looks up key, releases the lock, then performs a positional read
// against the resolved file so concurrent reads don't serialize on IO.
// A missing key is a normal result, not an error.
func (s *Store) Read(key []byte) (value []byte, found bool, err error) {
	s.mu.Lock()
	entry, ok := s.st.index[string(key)]
	if !ok {
		s.mu.Unlock()
		return nil, false, nil
	}
	fe := s.st.files[entry.file]
	handle := fe.handle
	s.mu.Unlock()

	buf := make([]byte, entry.length)
	if entry.length > 0 {
		if _, err := handle.ReadAt(buf, entry.offset); err != nil {
			return nil, false, newIOError("read", err)
		}
	}
	return buf, true, nil
}

// Size returns the total number of bytes persisted across all segment files.
func (s *Store) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.totalSize
}

// Path returns the directory this Store is bound to.
func (s *Store) Path() string {
	return s.dir
}

// Close stops the compactor and releases every open file handle and the
// directory lock.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.compactCh)
		s.wg.Wait()

		s.mu.Lock()
		for _, fe := range s.st.files {
			if cerr := fe.handle.Close(); cerr != nil {
				err = cerr
			}
		}
		s.mu.Unlock()

		if uerr := s.lk.Unlock(); uerr != nil && err == nil {
			err = uerr
		}
	})
	return err
}

// rollover must be called with s.mu held. It advances the active file to a
// fresh Base, resetting Index and the write offset.
func (s *Store) rollover() error {
	next := s.st.activeFile.rolled()
	path := filepath.Join(s.dir, next.String())
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return newIOError("rollover", err)
	}
	s.st.files[next] = &fileEntry{}
	s.st.files[next].handle = f
	s.st.activeFile = next
	s.st.activeOff = 0
	s.log.Infow("kopper rollover", "file", next.String())
	return nil
}
