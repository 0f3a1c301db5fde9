package deque

import "github.com/couchbase/go-lockfree-deque/hazard"

// InsertFromHead publishes v as the new head. On return it is reachable
// from Deque's head, and the prior head (if any) now has its prev pointer
// set to the new node.
func (q *Deque[T]) InsertFromHead(v T) {
	for {
		curGuard := hazard.Load(q.domain, &q.head)
		var cur *Node[T]
		if curGuard != nil {
			cur = curGuard.Data()
		}

		n := newNode(v)
		d := newInsertDescriptor(cur, n)

		installed := q.install(d)
		curGuard.Release()

		if !installed {
			continue
		}
		if d.success.Load() {
			q.length.Add(1)
			return
		}
		// head moved out from under this attempt between the guard-load
		// above and driveInsert's status-0 check; retry with a fresh
		// snapshot and a fresh descriptor.
	}
}

// driveInsert runs the two-state insert machine against d. Callable by the
// initiator or by any helper holding a live reference to d.
func (q *Deque[T]) driveInsert(d *descriptor[T]) {
	dGuard := hazard.Protect(q.domain, d)
	defer dGuard.Release()

	nextGuard := hazard.Protect(q.domain, d.next)
	if nextGuard == nil {
		d.pending.Store(false)
		return
	}
	defer nextGuard.Release()

	// d.current may be nil (insert into empty); Protect handles that by
	// returning a nil guard, which Release tolerates.
	curGuard := hazard.Protect(q.domain, d.current)
	defer curGuard.Release()

	for d.pending.Load() {
		switch d.status.Load() {
		case statusStart:
			if q.head.Load() != d.current {
				d.pending.Store(false)
				return
			}
			d.success.Store(true)
			d.status.CompareAndSwap(statusStart, statusMid)

		case statusMid:
			if d.current != nil {
				d.current.prev.Store(d.next)
			} else {
				// Empty-to-non-empty transition: the new node is both ends,
				// so the tail must come up alongside the head.
				q.tail.CompareAndSwap(nil, d.next)
			}
			q.head.CompareAndSwap(d.current, d.next)
			d.pending.Store(false)
			return

		default:
			return
		}
	}
}
