package partitionlog

// EntryCollection is a lazy decoder that streams records out of a
// prefetched byte region, skipping any whose offset is below the offset
// the caller actually asked for, and reporting how many bytes of the
// region it has consumed so far.
type EntryCollection struct {
	data      []byte
	cursor    int
	minOffset uint64
}

func newEntryCollection(data []byte, minOffset uint64) *EntryCollection {
	return &EntryCollection{data: data, minOffset: minOffset}
}

// Next decodes and returns the next entry at or above minOffset, or
// (zero, false) once the region is exhausted.
func (c *EntryCollection) Next() (PartitionEntry, bool) {
	for c.cursor < len(c.data) {
		entry, n, ok := decodeEntry(c.data[c.cursor:])
		if !ok {
			return PartitionEntry{}, false
		}
		c.cursor += n
		if entry.Offset < c.minOffset {
			continue
		}
		return entry, true
	}
	return PartitionEntry{}, false
}

// SizeRead reports how many bytes of the prefetched region have been
// decoded so far, including entries skipped for being below minOffset.
func (c *EntryCollection) SizeRead() int {
	return c.cursor
}
