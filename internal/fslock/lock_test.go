package fslock

import "testing"

func TestAcquireExcludesSecondHolder(t *testing.T) {
	dir := t.TempDir()

	first, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer first.Unlock()

	if _, err := Acquire(dir); err == nil {
		t.Fatalf("expected second Acquire on the same directory to fail")
	}
}

func TestUnlockThenReacquire(t *testing.T) {
	dir := t.TempDir()

	first, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := first.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}

	second, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire after Unlock: %v", err)
	}
	defer second.Unlock()
}
