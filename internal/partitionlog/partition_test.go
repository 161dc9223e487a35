package partitionlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestProduceConsumeRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	offset, err := p.Produce([]byte("MyNewCrazyValue"))
	if err != nil {
		t.Fatalf("Produce: %v", err)
	}
	if offset != 0 {
		t.Fatalf("offset = %d, want 0", offset)
	}

	collection, err := p.Consume(0)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	entry, ok := collection.Next()
	if !ok {
		t.Fatalf("expected one entry")
	}
	if string(entry.Value) != "MyNewCrazyValue" {
		t.Fatalf("value = %q, want %q", entry.Value, "MyNewCrazyValue")
	}
	if _, ok := collection.Next(); ok {
		t.Fatalf("expected no further entries")
	}
}

func TestMonotonicity(t *testing.T) {
	dir := t.TempDir()
	p, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	for want := uint64(0); want < 5; want++ {
		got, err := p.Produce([]byte("x"))
		if err != nil {
			t.Fatalf("Produce: %v", err)
		}
		if got != want {
			t.Fatalf("Produce #%d = %d, want %d", want, got, want)
		}
	}
}

func TestBadOffsetOnEmptyPartition(t *testing.T) {
	dir := t.TempDir()
	p, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	if _, err := p.Consume(0); err == nil {
		t.Fatalf("expected BadOffset error")
	} else if perr, ok := err.(*Error); !ok || perr.Kind != KindBadOffset {
		t.Fatalf("Consume(0) error = %v, want BadOffset", err)
	}

	if _, err := p.FirstOffset(); err == nil {
		t.Fatalf("expected NoFirstOffset error")
	} else if perr, ok := err.(*Error); !ok || perr.Kind != KindNoFirstOffset {
		t.Fatalf("FirstOffset() error = %v, want NoFirstOffset", err)
	}
}

func TestSumOfConsumedValues(t *testing.T) {
	dir := t.TempDir()
	p, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	for _, v := range []string{"1", "2", "3"} {
		if _, err := p.Produce([]byte(v)); err != nil {
			t.Fatalf("Produce: %v", err)
		}
	}

	collection, err := p.Consume(0)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}

	sum := 0
	for {
		entry, ok := collection.Next()
		if !ok {
			break
		}
		var n int
		fmt.Sscanf(string(entry.Value), "%d", &n)
		sum += n
	}
	if sum != 6 {
		t.Fatalf("sum = %d, want 6", sum)
	}
}

func TestSegmentLocality(t *testing.T) {
	dir := t.TempDir()
	p, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	big := strings.Repeat("z", 1200)
	var last uint64
	for i := 0; i < 4; i++ {
		last, err = p.Produce([]byte(big))
		if err != nil {
			t.Fatalf("Produce #%d: %v", i, err)
		}
	}

	collection, err := p.Consume(last)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if _, ok := collection.Next(); !ok {
		t.Fatalf("expected the trailing entry to decode")
	}
	if collection.SizeRead() >= 1300 {
		t.Fatalf("SizeRead() = %d, want < 1300 (request should stay within the trailing segment)", collection.SizeRead())
	}
}

func TestRecoveryAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	p, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	values := []string{
		strings.Repeat("A", 1200),
		strings.Repeat("B", 1200),
		strings.Repeat("C", 1200),
		strings.Repeat("D", 1200),
	}
	var last uint64
	for _, v := range values {
		last, err = p.Produce([]byte(v))
		if err != nil {
			t.Fatalf("Produce: %v", err)
		}
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	p2, err := New(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer p2.Close()

	collection, err := p2.Consume(last)
	if err != nil {
		t.Fatalf("Consume after reopen: %v", err)
	}
	entry, ok := collection.Next()
	if !ok {
		t.Fatalf("expected the last produced entry to decode")
	}
	if string(entry.Value) != values[len(values)-1] {
		t.Fatalf("recovered value mismatch: got len %d, want %q prefix", len(entry.Value), values[len(values)-1][:1])
	}
}

// TestRecoveryScansEveryFileInDirectory writes a second, non-"0" file by
// hand to confirm recovery genuinely enumerates the directory (spec.md
// §4.2's read_dir loop) instead of only ever opening a hardcoded name.
func TestRecoveryScansEveryFileInDirectory(t *testing.T) {
	dir := t.TempDir()

	var extra []byte
	extra = append(extra, encodeEntry(PartitionEntry{Offset: 0, Timestamp: 1, Value: []byte("from-extra-file")})...)
	if err := os.WriteFile(filepath.Join(dir, "1"), extra, 0644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	p, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	first, err := p.FirstOffset()
	if err != nil {
		t.Fatalf("FirstOffset: %v", err)
	}
	if first != 0 {
		t.Fatalf("FirstOffset() = %d, want 0", first)
	}

	collection, err := p.Consume(0)
	if err != nil {
		t.Fatalf("Consume(0): %v", err)
	}
	entry, ok := collection.Next()
	if !ok {
		t.Fatalf("expected the hand-written record to decode")
	}
	if string(entry.Value) != "from-extra-file" {
		t.Fatalf("value = %q, want %q", entry.Value, "from-extra-file")
	}

	nextOffset, err := p.Produce([]byte("appended-after-recovery"))
	if err != nil {
		t.Fatalf("Produce: %v", err)
	}
	if nextOffset != 1 {
		t.Fatalf("Produce offset = %d, want 1 (continuing past the recovered file's offset)", nextOffset)
	}
}
