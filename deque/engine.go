package deque

import "github.com/couchbase/go-lockfree-deque/hazard"

// install runs the shared descriptor-slot protocol described for both the
// insert and delete engines: if the slot is free, try to claim it for d; if
// it holds a still-pending descriptor, help that one instead; if it holds a
// finished one, try to replace it with d and retire the old one.
//
// Returns true iff d itself ended up installed and driven by this call
// (regardless of whether d.success ended up true, the caller checks that
// separately and allocates a fresh descriptor to retry if not). Returns
// false when this call helped some other descriptor instead, in which case
// the caller should drop d and retry from scratch.
func (q *Deque[T]) install(d *descriptor[T]) bool {
	for {
		if q.desc.Load() == nil {
			if q.desc.CompareAndSwap(nil, d) {
				q.drive(d)
				return true
			}
			continue
		}

		ig := hazard.Load(q.domain, &q.desc)
		if ig == nil {
			// Slot went null between the check above and this guarded load;
			// the next iteration will take the null branch.
			continue
		}
		incumbent := ig.Data()

		if incumbent.pending.Load() {
			q.drive(incumbent)
			ig.Release()
			return false
		}

		if q.desc.CompareAndSwap(incumbent, d) {
			ig.Release()
			if incumbent.retired.CompareAndSwap(false, true) {
				q.domain.Retire(unsafePointerOf(incumbent), hazard.NewBoxDeleter[descriptor[T]]())
			}
			q.drive(d)
			return true
		}
		ig.Release()
	}
}

// drive dispatches a descriptor to the engine matching its op tag. Any
// thread may call this on any descriptor it has a live reference to, as
// initiator or as a helper.
func (q *Deque[T]) drive(d *descriptor[T]) {
	switch d.op {
	case opInsert:
		q.driveInsert(d)
	case opDelete:
		q.driveDelete(d)
	}
}

// help is the Close-time equivalent of drive for a descriptor this
// goroutine did not allocate and is not racing to install; it exists as a
// named call site purely for readability at the teardown path.
func (q *Deque[T]) help(d *descriptor[T]) {
	q.drive(d)
}
