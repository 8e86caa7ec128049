package realtime

import "sync"

// TranscriptBuffer is a thread-safe append-only log of finalized transcript
// segments. The receive loop writes; the consumer reads at any cadence.
type TranscriptBuffer struct {
	mu      sync.RWMutex
	entries []string
}

// NewTranscriptBuffer creates an empty buffer.
func NewTranscriptBuffer() *TranscriptBuffer {
	return &TranscriptBuffer{}
}

// Append adds one finalized segment. Entries are never mutated afterwards.
func (b *TranscriptBuffer) Append(text string) {
	b.mu.Lock()
	b.entries = append(b.entries, text)
	b.mu.Unlock()
}

// Snapshot returns a copy of all segments appended so far, in arrival order.
// Appends racing with the call may or may not be included, but are never
// lost or duplicated.
func (b *TranscriptBuffer) Snapshot() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]string, len(b.entries))
	copy(out, b.entries)
	return out
}

// Latest returns the most recent segment, or "" if none.
func (b *TranscriptBuffer) Latest() string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.entries) == 0 {
		return ""
	}
	return b.entries[len(b.entries)-1]
}

// Len returns the number of segments.
func (b *TranscriptBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}
