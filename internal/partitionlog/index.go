package partitionlog

import "sort"

// indexEntry is a sparse pointer into one segment: which on-disk file the
// segment lives in, the segment's starting offset, its byte address within
// that file, and its current size.
type indexEntry struct {
	File   string
	Offset uint64
	Addr   int64
	Size   int64
}

// sparseIndex keeps segment boundaries ordered by starting offset. It's a
// slice, not a map, because lookups want "the greatest key <= target" — a
// binary search, the same shape as the teacher's segment index lookup.
type sparseIndex struct {
	entries []indexEntry
}

func (s *sparseIndex) insert(e indexEntry) {
	i := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].Offset > e.Offset
	})
	s.entries = append(s.entries, indexEntry{})
	copy(s.entries[i+1:], s.entries[i:])
	s.entries[i] = e
}

func (s *sparseIndex) last() (*indexEntry, bool) {
	if len(s.entries) == 0 {
		return nil, false
	}
	return &s.entries[len(s.entries)-1], true
}

func (s *sparseIndex) first() (indexEntry, bool) {
	if len(s.entries) == 0 {
		return indexEntry{}, false
	}
	return s.entries[0], true
}

// lookup returns the entry with the greatest Offset <= target.
func (s *sparseIndex) lookup(target uint64) (indexEntry, bool) {
	if len(s.entries) == 0 {
		return indexEntry{}, false
	}
	i := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].Offset > target
	}) - 1
	if i < 0 {
		return indexEntry{}, false
	}
	return s.entries[i], true
}
