package deque_test

import (
	"testing"

	"github.com/couchbase/go-lockfree-deque/deque"
	refdeque "github.com/gammazero/deque"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestSequentialOpsMatchReferenceModel drives random, single-goroutine
// InsertFromHead/DeleteFromTail sequences and checks every observable
// result against a plain FIFO reference: this deque is linearizable for any
// single-threaded caller even though concurrent FIFO ordering across
// threads is explicitly unspecified.
func TestSequentialOpsMatchReferenceModel(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		q := deque.New[int]()
		var model refdeque.Deque[int]

		t.Repeat(map[string]func(*rapid.T){
			"insert": func(t *rapid.T) {
				v := rapid.Int().Draw(t, "value")
				q.InsertFromHead(v)
				model.PushFront(v)
			},
			"delete": func(t *rapid.T) {
				if model.Len() == 0 {
					t.Skip("model is empty")
				}
				expected := model.PopBack()

				got, ok := q.DeleteFromTail()
				require.True(t, ok, "DeleteFromTail failed on a non-empty deque")
				require.Equal(t, expected, got)
			},
			"": func(t *rapid.T) {
				require.EqualValues(t, model.Len(), q.Len())
				if model.Len() == 0 {
					_, ok := q.DeleteFromTail()
					require.False(t, ok, "DeleteFromTail should fail on empty")
				}
			},
		})
	})
}
