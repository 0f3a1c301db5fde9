package deque

import (
	"sync/atomic"

	"github.com/couchbase/go-lockfree-deque/hazard"
	"github.com/couchbase/go-lockfree-deque/internal/dlog"
)

// Deque is a lock-free, concurrent doubly-linked deque. The zero value is
// not usable; construct one with New.
type Deque[T any] struct {
	head atomic.Pointer[Node[T]]
	tail atomic.Pointer[Node[T]]

	desc atomic.Pointer[descriptor[T]]

	length atomic.Int64

	domain *hazard.Domain
	logger dlog.Logger
}

// Option configures a Deque at construction time.
type Option[T any] func(*Deque[T])

// WithDomain routes a Deque's hazard-pointer protection through an explicit
// domain instead of the process-wide default, for callers that want an
// isolated reclamation view for this structure alone.
func WithDomain[T any](d *hazard.Domain) Option[T] {
	return func(q *Deque[T]) { q.domain = d }
}

// WithLogger routes a Deque's logging to l instead of discarding it. The
// only message a Deque emits is Close's teardown notice; the insert and
// delete engines do not log.
func WithLogger[T any](l dlog.Logger) Option[T] {
	return func(q *Deque[T]) { q.logger = l }
}

// New constructs an empty, idle deque.
func New[T any](opts ...Option[T]) *Deque[T] {
	q := &Deque[T]{
		domain: hazard.Default(),
		logger: dlog.Nop(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Len returns a best-effort element count: monotone-consistent per thread,
// not linearizable with concurrent InsertFromHead/DeleteFromTail calls.
func (q *Deque[T]) Len() int64 {
	return q.length.Load()
}

// Close tears the deque down: it drives any still-in-flight descriptor to
// completion, retires it, and releases every node still reachable by
// walking prev from tail toward head. It is not part of the concurrent
// protocol; callers must ensure no other goroutine is still operating on
// the deque when Close runs.
func (q *Deque[T]) Close() {
	if d := q.desc.Load(); d != nil {
		q.help(d)
		if d.retired.CompareAndSwap(false, true) {
			q.domain.Retire(unsafePointerOf(d), hazard.NewBoxDeleter[descriptor[T]]())
		}
	}

	q.logger.Debugf("closing deque, draining remaining nodes")
	nodeDeleter := hazard.NewPointerDeleter[Node[T]]()
	for n := q.tail.Swap(nil); n != nil; {
		next := n.prev.Load()
		if n.retired.CompareAndSwap(false, true) {
			q.domain.Retire(unsafePointerOf(n), nodeDeleter)
		}
		n = next
	}
	q.head.Store(nil)
}
