package engine

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorHistory_AppendAndTrim(t *testing.T) {
	h := NewErrorHistory(3)

	for i := 0; i < 5; i++ {
		h.Append(EngineError{Kind: ErrorNetwork, Message: fmt.Sprintf("err %d", i)})
	}

	entries := h.Snapshot()
	assert.Len(t, entries, 3)
	assert.Equal(t, "err 2", entries[0].Message)
	assert.Equal(t, "err 4", entries[2].Message)
}

func TestErrorHistory_SnapshotIsACopy(t *testing.T) {
	h := NewErrorHistory(5)
	h.Append(EngineError{Kind: ErrorTimeout, Message: "original"})

	snap := h.Snapshot()
	snap[0].Message = "mutated"

	assert.Equal(t, "original", h.Snapshot()[0].Message)
}

func TestErrorHistory_ConcurrentAppend(t *testing.T) {
	h := NewErrorHistory(16)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h.Append(EngineError{Kind: ErrorUnknown, Message: "concurrent"})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 16, h.Len())
}
