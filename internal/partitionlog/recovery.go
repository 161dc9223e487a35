package partitionlog

import (
	"os"
	"path/filepath"
	"sort"

	"kopperstack/internal/fslock"
)

// recover implements spec.md §4.2's algorithm directly: read_dir(path),
// then for every file found, read it whole and replay its records,
// recomputing segment boundaries with the same SEG_LENGTH threshold
// Produce uses. It reports whether any record was found across the whole
// directory; an empty or missing directory means the caller starts fresh.
func (p *Partition) recover() (bool, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return false, newInternalError(err)
	}

	var names []string
	for _, ent := range entries {
		if ent.IsDir() || ent.Name() == fslock.LockFileName {
			continue
		}
		names = append(names, ent.Name())
	}
	sort.Strings(names)

	var (
		highestOffset uint64
		anyFound      bool
	)

	for _, name := range names {
		path := filepath.Join(p.dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return false, newInternalError(err)
		}

		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return false, newInternalError(err)
		}
		p.files[name] = f

		if name == p.activeFile {
			p.activeFileSize = int64(len(data))
		}

		if len(data) == 0 {
			continue
		}

		found, highest := p.scanFile(name, data)
		if found && (!anyFound || highest > highestOffset) {
			highestOffset = highest
		}
		anyFound = anyFound || found
	}

	if !anyFound {
		return false, nil
	}

	p.nextOffset = highestOffset + 1
	return true, nil
}

// scanFile replays one file's records into the index, stamping each
// segment with the file it came from so Consume knows where to read it
// back from. It returns whether any record was found and the highest
// offset seen.
func (p *Partition) scanFile(name string, data []byte) (bool, uint64) {
	var (
		highestOffset        uint64
		anyFound             bool
		lastSegCutoff        int64
		currentSegSize       int64
		firstOffsetOfSegment uint64
		haveSegment          bool
	)

	cursor := 0
	for cursor < len(data) {
		entry, n, ok := decodeEntry(data[cursor:])
		if !ok {
			break
		}

		if !anyFound || entry.Offset > highestOffset {
			highestOffset = entry.Offset
		}
		anyFound = true

		switch {
		case !haveSegment:
			lastSegCutoff = int64(cursor)
			currentSegSize = int64(n)
			firstOffsetOfSegment = entry.Offset
			haveSegment = true
		case currentSegSize+int64(n) > p.cfg.SegLength:
			p.index.insert(indexEntry{File: name, Offset: firstOffsetOfSegment, Addr: lastSegCutoff, Size: currentSegSize})
			lastSegCutoff = int64(cursor)
			currentSegSize = int64(n)
			firstOffsetOfSegment = entry.Offset
		default:
			currentSegSize += int64(n)
		}

		cursor += n
	}

	if haveSegment {
		p.index.insert(indexEntry{File: name, Offset: firstOffsetOfSegment, Addr: lastSegCutoff, Size: currentSegSize})
	}

	return anyFound, highestOffset
}
