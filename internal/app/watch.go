package app

import (
	"context"
	"time"
)

// watchInterval is how often the transcript snapshot is re-checked.
const watchInterval = 100 * time.Millisecond

// watch emits every transcript beyond the ones already seen, preserving
// arrival order. It returns when ctx is canceled.
func watch(ctx context.Context, poll func() []string, emit func(string)) {
	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	seen := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snapshot := poll()
			for ; seen < len(snapshot); seen++ {
				emit(snapshot[seen])
			}
		}
	}
}
