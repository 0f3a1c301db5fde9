package deque_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/couchbase/go-lockfree-deque/deque"
	"github.com/stretchr/testify/require"
)

// TestConcurrentInsertersAndDeletersPreserveMultiset spawns N inserters,
// each publishing its own index exactly once, racing against N deleters,
// each spinning until it claims exactly one value. FIFO ordering between
// the two groups is not asserted (unspecified by the algorithm); only that
// every inserted value is observed exactly once across all deleters, and
// that the deque drains back to empty.
func TestConcurrentInsertersAndDeletersPreserveMultiset(t *testing.T) {
	const n = 10
	q := deque.New[int]()

	var seen [n]atomic.Int32
	start := make(chan struct{})

	var inserters, deleters sync.WaitGroup
	inserters.Add(n)
	deleters.Add(n)

	for i := 0; i < n; i++ {
		go func(v int) {
			defer inserters.Done()
			<-start
			q.InsertFromHead(v)
		}(i)
	}

	for i := 0; i < n; i++ {
		go func() {
			defer deleters.Done()
			<-start
			for {
				if v, ok := q.DeleteFromTail(); ok {
					seen[v].Add(1)
					return
				}
			}
		}()
	}

	close(start)
	inserters.Wait()
	deleters.Wait()

	for v := 0; v < n; v++ {
		require.EqualValues(t, 1, seen[v].Load(), "value %d returned an unexpected number of times", v)
	}
	require.EqualValues(t, 0, q.Len())
}

// TestConcurrentMixedWorkloadConservation runs a larger mix of inserts and
// deletes across many goroutines and checks the conservation property:
// every value taken out is unique, and the deque drains to exactly empty
// once every inserter has finished and every value has been reclaimed.
func TestConcurrentMixedWorkloadConservation(t *testing.T) {
	const (
		numInserters = 8
		perInserter  = 200
		numDeleters  = 8
		total        = numInserters * perInserter
	)
	q := deque.New[int]()
	seen := make([]atomic.Int32, total)

	var insertersWg sync.WaitGroup
	insertersWg.Add(numInserters)
	for i := 0; i < numInserters; i++ {
		go func(base int) {
			defer insertersWg.Done()
			for j := 0; j < perInserter; j++ {
				q.InsertFromHead(base*perInserter + j)
			}
		}(i)
	}

	stop := make(chan struct{})
	var removed atomic.Int64
	var deletersWg sync.WaitGroup
	deletersWg.Add(numDeleters)
	for i := 0; i < numDeleters; i++ {
		go func() {
			defer deletersWg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if v, ok := q.DeleteFromTail(); ok {
					seen[v].Add(1)
					removed.Add(1)
				}
			}
		}()
	}

	insertersWg.Wait()
	for removed.Load() < total {
		// Spin until the deleters have drained everything the inserters
		// published; they keep racing each other for the remaining tail.
	}
	close(stop)
	deletersWg.Wait()

	for i := range seen {
		require.LessOrEqual(t, seen[i].Load(), int32(1), "value %d removed more than once", i)
	}
	require.EqualValues(t, 0, q.Len())
}
