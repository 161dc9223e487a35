package kopper

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// compactionLoop is the single background worker: one compaction per
// received signal, exiting when the sending end (Close) closes the channel.
func (s *Store) compactionLoop() {
	defer s.wg.Done()
	for range s.compactCh {
		if err := s.compactOnce(); err != nil {
			s.log.Warnw("kopper compaction failed", "error", err)
		}
	}
}

type victimRecord struct {
	key         string
	value       []byte
	valueOffset int64
}

// compactOnce picks the file with the most superseded entries, rewrites its
// still-live records into a new file, redirects the index, then drops the
// victim. The lock is released while the victim's bytes are loaded from
// disk so readers and writers aren't blocked on that IO.
func (s *Store) compactOnce() error {
	s.mu.Lock()
	victim, victimEntry, ok := s.chooseVictim()
	if !ok {
		s.mu.Unlock()
		return nil
	}
	handle := victimEntry.handle
	s.mu.Unlock()

	if _, err := handle.Seek(0, io.SeekStart); err != nil {
		return newIOError("compact", err)
	}
	data, err := io.ReadAll(handle)
	if err != nil {
		return newIOError("compact", err)
	}
	records := decodeAllRecords(data)

	s.mu.Lock()
	defer s.mu.Unlock()

	var newContents bytes.Buffer
	for _, rec := range records {
		entry, ok := s.st.index[rec.key]
		if !ok || entry.file != victim || entry.offset != rec.valueOffset {
			continue
		}
		newValueOffset := int64(newContents.Len()) + int64(len(rec.key)) + 1
		newContents.Write(encodeRecord([]byte(rec.key), rec.value))
		s.st.index[rec.key] = indexEntry{
			file:   victim.compacted(),
			offset: newValueOffset,
			length: int64(len(rec.value)),
		}
	}

	if newContents.Len() > 0 {
		compactedIdx := victim.compacted()
		path := filepath.Join(s.dir, compactedIdx.String())
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return newIOError("compact", err)
		}
		if _, err := f.Write(newContents.Bytes()); err != nil {
			f.Close()
			return newIOError("compact", err)
		}
		s.st.files[compactedIdx] = &fileEntry{handle: f}
		s.st.totalSize += int64(newContents.Len())
	}

	s.st.totalSize -= int64(len(data))
	delete(s.st.files, victim)
	handle.Close()
	if err := os.Remove(filepath.Join(s.dir, victim.String())); err != nil {
		s.log.Warnw("kopper compaction: removing victim file failed", "file", victim.String(), "error", err)
	}

	s.log.Infow("kopper compaction complete", "victim", victim.String())
	return nil
}

// chooseVictim must be called with s.mu held. The active file is never a
// candidate — base monotonically increases with writes, so it can't become
// one until another rollover moves writes off it.
func (s *Store) chooseVictim() (FileIndex, *fileEntry, bool) {
	var candidates []FileIndex
	for fi := range s.st.files {
		if fi != s.st.activeFile {
			candidates = append(candidates, fi)
		}
	}
	if len(candidates) == 0 {
		return FileIndex{}, nil, false
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Less(candidates[j]) })

	best := candidates[0]
	bestCount := s.st.files[best].unusedCount
	for _, fi := range candidates[1:] {
		if c := s.st.files[fi].unusedCount; c > bestCount {
			best = fi
			bestCount = c
		}
	}
	return best, s.st.files[best], true
}

// decodeAllRecords splits a raw segment byte slice into its key\0value\0
// records, remembering where each value started so the compactor can tell
// a live record from a superseded one by offset.
func decodeAllRecords(data []byte) []victimRecord {
	var recs []victimRecord
	i := 0
	for i < len(data) {
		keyEnd := bytes.IndexByte(data[i:], 0)
		if keyEnd < 0 {
			break
		}
		key := string(data[i : i+keyEnd])
		valueStart := i + keyEnd + 1
		valueEnd := bytes.IndexByte(data[valueStart:], 0)
		if valueEnd < 0 {
			break
		}
		value := append([]byte(nil), data[valueStart:valueStart+valueEnd]...)
		recs = append(recs, victimRecord{key: key, value: value, valueOffset: int64(valueStart)})
		i = valueStart + valueEnd + 1
	}
	return recs
}
