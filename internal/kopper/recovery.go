package kopper

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"

	"kopperstack/internal/fslock"
)

// recover rebuilds in-memory state by scanning every segment file in the
// directory. Later records overwrite earlier ones in the index, which is
// exactly the "last writer wins" semantics a live store enforces one write
// at a time.
func (s *Store) recover() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return newIOError("recover", err)
	}

	s.st = state{
		index: make(map[string]indexEntry),
		files: make(map[FileIndex]*fileEntry),
	}

	var fileIndices []FileIndex
	for _, ent := range entries {
		if ent.IsDir() || ent.Name() == fslock.LockFileName {
			continue
		}
		fi, perr := parseFileIndex(ent.Name())
		if perr != nil {
			return newParseError("recover", perr)
		}
		fileIndices = append(fileIndices, fi)
	}
	sort.Slice(fileIndices, func(i, j int) bool { return fileIndices[i].Less(fileIndices[j]) })

	for _, fi := range fileIndices {
		path := filepath.Join(s.dir, fi.String())
		f, oerr := os.OpenFile(path, os.O_RDWR|os.O_APPEND, 0644)
		if oerr != nil {
			return newIOError("recover", oerr)
		}
		info, serr := f.Stat()
		if serr != nil {
			f.Close()
			return newIOError("recover", serr)
		}
		s.st.files[fi] = &fileEntry{handle: f}
		s.st.totalSize += info.Size()
	}

	// Second pass: every file's handle is present in s.st.files now, so
	// unused_count accounting works even when a key's prior write lives in
	// the same file as a later one.
	for _, fi := range fileIndices {
		if err := s.scanFile(fi, s.st.files[fi].handle); err != nil {
			return err
		}
	}

	if len(fileIndices) == 0 {
		return s.createInitialFile()
	}

	active := fileIndices[len(fileIndices)-1]
	s.st.activeFile = active
	info, err := s.st.files[active].handle.Stat()
	if err != nil {
		return newIOError("recover", err)
	}
	s.st.activeOff = info.Size()

	if s.st.activeOff >= s.cfg.SegmentSize {
		if err := s.rollover(); err != nil {
			return err
		}
	}

	return nil
}

func (s *Store) createInitialFile() error {
	fi := FileIndex{Base: 0, Index: 0}
	path := filepath.Join(s.dir, fi.String())
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return newIOError("recover", err)
	}
	s.st.files[fi] = &fileEntry{handle: f}
	s.st.activeFile = fi
	s.st.activeOff = 0
	return nil
}

// scanFile replays one segment's key\0value\0 records into the index,
// crediting unused_count on whichever file held the superseded value.
func (s *Store) scanFile(fi FileIndex, f *os.File) error {
	if _, err := f.Seek(0, 0); err != nil {
		return newIOError("recover", err)
	}
	r := bufio.NewReader(f)

	const (
		readingKey = iota
		readingValue
	)

	state := readingKey
	var key []byte
	var value []byte
	var offset int64
	var valueStart int64

	for {
		b, err := r.ReadByte()
		if err != nil {
			break
		}
		if b == 0 {
			switch state {
			case readingKey:
				valueStart = offset + 1
				state = readingValue
			case readingValue:
				k := string(key)
				if old, ok := s.st.index[k]; ok {
					if of, ok2 := s.st.files[old.file]; ok2 {
						of.unusedCount++
					}
				}
				s.st.index[k] = indexEntry{file: fi, offset: valueStart, length: int64(len(value))}
				key = nil
				value = nil
				state = readingKey
			}
		} else {
			switch state {
			case readingKey:
				key = append(key, b)
			case readingValue:
				value = append(value, b)
			}
		}
		offset++
	}

	return nil
}
