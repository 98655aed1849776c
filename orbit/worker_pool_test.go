package orbit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPoolRunsSubmittedJobs(t *testing.T) {
	var mu sync.Mutex
	var results []RotationResult

	pool := NewWorkerPool(2, orbitConfig(), func(r RotationResult) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	})

	for i := uint64(1); i <= 5; i++ {
		pool.Submit(orbitSnapshot(0.5, 3.0, 40, 4000, false), i)
	}
	pool.Close()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, results, 5)
	seen := map[uint64]bool{}
	for _, r := range results {
		seen[r.TraceID] = true
	}
	assert.Len(t, seen, 5, "every submission should produce exactly one result")
}

func TestWorkerPoolDefaultsSubZeroToOne(t *testing.T) {
	pool := NewWorkerPool(0, orbitConfig(), nil)
	done := make(chan struct{})
	pool.Submit(orbitSnapshot(0.5, 3.0, 40, 4000, false), 1)
	go func() {
		pool.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pool with n<1 did not process its submission")
	}
}
