package realtime

import (
	"fmt"
	"sync"
	"testing"
)

func TestTranscriptBufferOrder(t *testing.T) {
	b := NewTranscriptBuffer()

	if got := b.Latest(); got != "" {
		t.Errorf("Latest() on empty buffer = %q, want empty", got)
	}
	if got := b.Snapshot(); len(got) != 0 {
		t.Errorf("Snapshot() on empty buffer has %d entries", len(got))
	}

	b.Append("hello")
	b.Append("world")

	got := b.Snapshot()
	want := []string{"hello", "world"}
	if len(got) != len(want) {
		t.Fatalf("Snapshot() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Snapshot()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if b.Latest() != "world" {
		t.Errorf("Latest() = %q, want %q", b.Latest(), "world")
	}
}

func TestTranscriptBufferSnapshotIsolation(t *testing.T) {
	b := NewTranscriptBuffer()
	b.Append("one")

	snap := b.Snapshot()
	snap[0] = "mutated"

	if b.Latest() != "one" {
		t.Errorf("buffer entry changed through snapshot copy: %q", b.Latest())
	}
}

func TestTranscriptBufferConcurrent(t *testing.T) {
	b := NewTranscriptBuffer()

	const writers = 8
	const perWriter = 100

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				b.Append(fmt.Sprintf("w%d-%d", w, i))
				// Readers race with appends; snapshots must stay consistent.
				_ = b.Snapshot()
				_ = b.Latest()
			}
		}(w)
	}
	wg.Wait()

	if got := b.Len(); got != writers*perWriter {
		t.Errorf("Len() = %d, want %d (no entries lost or duplicated)", got, writers*perWriter)
	}

	seen := make(map[string]bool, writers*perWriter)
	for _, entry := range b.Snapshot() {
		if seen[entry] {
			t.Fatalf("duplicated entry %q", entry)
		}
		seen[entry] = true
	}
}
