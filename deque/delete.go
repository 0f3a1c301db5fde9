package deque

import "github.com/couchbase/go-lockfree-deque/hazard"

// DeleteFromTail removes the tail node and returns its value, or reports ok
// = false if the deque was observed empty.
func (q *Deque[T]) DeleteFromTail() (v T, ok bool) {
	for {
		curGuard := hazard.Load(q.domain, &q.tail)
		if curGuard == nil {
			return v, false
		}
		cur := curGuard.Data()
		d := newDeleteDescriptor(cur)

		installed := q.install(d)
		curGuard.Release()

		if !installed {
			continue
		}
		if !d.success.Load() {
			// tail moved under this attempt; retry with a fresh snapshot.
			continue
		}
		if taken, ok := d.loadTakenValue(); ok {
			q.length.Add(-1)
			return taken, true
		}
		return v, false
	}
}

// driveDelete runs the three-state delete machine against d. Callable by
// the initiator or by any helper holding a live reference to d.
func (q *Deque[T]) driveDelete(d *descriptor[T]) {
	dGuard := hazard.Protect(q.domain, d)
	defer dGuard.Release()

	tGuard := hazard.Protect(q.domain, d.current)
	if tGuard == nil {
		d.pending.Store(false)
		return
	}
	defer tGuard.Release()
	t := tGuard.Data()

	pGuard := hazard.Load(q.domain, &t.prev)
	defer pGuard.Release()
	var p *Node[T]
	if pGuard != nil {
		p = pGuard.Data()
	}

	for d.pending.Load() {
		switch d.status.Load() {
		case statusStart:
			if q.tail.Load() != d.current {
				d.pending.Store(false)
				return
			}
			if p == nil {
				// Single-element case: this delete also empties the head.
				q.head.CompareAndSwap(d.current, nil)
			}
			d.status.CompareAndSwap(statusStart, statusMid)

		case statusMid:
			// Winner-takes-all: exactly one thread (initiator or helper)
			// ever observes ok=true here, no matter how many converge on
			// this state concurrently.
			if val, moved := t.takeValue(); moved {
				d.storeTakenValue(val)
			} else if !d.initStored.Load() {
				// Some thread claimed the payload but has not published it
				// yet. Advancing now could let a helper finish the whole
				// operation with the payload unread, losing it.
				continue
			}
			d.status.CompareAndSwap(statusMid, statusMoved)

		case statusMoved:
			d.success.Store(true)
			q.tail.CompareAndSwap(d.current, p)
			if t.retired.CompareAndSwap(false, true) {
				q.domain.Retire(unsafePointerOf(t), hazard.NewBoxDeleter[Node[T]]())
			}
			d.pending.Store(false)
			return

		default:
			return
		}
	}
}
