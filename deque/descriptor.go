package deque

import "sync/atomic"

// operation tags a descriptor as driving either an insert or a delete. A
// tagged variant keeps descriptor dispatch a single field check rather than
// a vtable, and lets both engines share one slot type.
type operation uint8

const (
	opInsert operation = iota
	opDelete
)

// Progress states for both engines. Insert only ever reaches statusMid
// before finishing; delete additionally passes through statusMoved.
const (
	statusStart int32 = iota
	statusMid
	statusMoved
)

// descriptor is the published record of one pending mutation. It is
// immutable in op/current/next once constructed; status, pending, success,
// the taken-value slot and the retired flag are the only fields any thread
// mutates after publication, and only via CAS or single-shot guards.
type descriptor[T any] struct {
	op      operation
	current *Node[T] // end pointer snapshot observed at allocation time
	next    *Node[T] // new head node for insert; unused for delete

	status  atomic.Int32
	pending atomic.Bool
	success atomic.Bool

	takenValue Value[T]
	initStored atomic.Bool

	retired atomic.Bool
}

func newInsertDescriptor[T any](current, next *Node[T]) *descriptor[T] {
	d := &descriptor[T]{op: opInsert, current: current, next: next}
	d.pending.Store(true)
	return d
}

func newDeleteDescriptor[T any](current *Node[T]) *descriptor[T] {
	d := &descriptor[T]{op: opDelete, current: current}
	d.pending.Store(true)
	return d
}

// storeTakenValue publishes the payload a delete descriptor carries out to
// its initiator. Must only ever be called by the single thread that won the
// target node's valueMoved CAS.
func (d *descriptor[T]) storeTakenValue(v T) {
	d.takenValue.v = v
	d.initStored.Store(true)
}

// loadTakenValue returns the published payload, if any. Safe to call from
// the initiator only after the descriptor has finished (pending observed
// false), by which point initStored (if ever going to be true) already is.
func (d *descriptor[T]) loadTakenValue() (T, bool) {
	if !d.initStored.Load() {
		var zero T
		return zero, false
	}
	return d.takenValue.v, true
}
