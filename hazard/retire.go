package hazard

import (
	"sync/atomic"
	"unsafe"
)

// Deleter releases one retired allocation. The two concrete strategies below
// are the only ones this scheme mandates; both are stateless and safe to
// share across every retirement of a given type.
type Deleter interface {
	Delete(ptr unsafe.Pointer)
}

// Destroyer is an optional hook a retired value's type can implement to
// observe its own retirement (tests use this to count releases; production
// types need not implement it; Go's GC already reclaims the backing memory
// once nothing references it).
type Destroyer interface {
	OnRetire()
}

// boxDeleter models "reconstitute full ownership of a heap allocation and
// release it", the strategy used whenever a Node or Descriptor was
// independently heap-allocated and owns everything reachable from it.
type boxDeleter[T any] struct{}

func (boxDeleter[T]) Delete(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	if d, ok := any((*T)(ptr)).(Destroyer); ok {
		d.OnRetire()
	}
}

// NewBoxDeleter returns the DropBox-equivalent strategy for T.
func NewBoxDeleter[T any]() Deleter { return boxDeleter[T]{} }

// pointerDeleter models "run the value's own cleanup without assuming this
// call site owns a full, individually-boxed allocation", used for bulk
// teardown paths that walk and release a whole chain rather than retiring
// nodes one at a time through their normal single-shot path.
type pointerDeleter[T any] struct{}

func (pointerDeleter[T]) Delete(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	if d, ok := any((*T)(ptr)).(Destroyer); ok {
		d.OnRetire()
	}
}

// NewPointerDeleter returns the DropPointer-equivalent strategy for T.
func NewPointerDeleter[T any]() Deleter { return pointerDeleter[T]{} }

// retiredRecord pairs one retired pointer with the deleter that knows how to
// release it, intrusively linked into the domain's Treiber-stack retired
// list.
type retiredRecord struct {
	ptr     unsafe.Pointer
	deleter Deleter
	next    atomic.Pointer[retiredRecord]
}

// Retire hands ptr to the domain for eventual reclamation. It is pushed onto
// the retired list immediately and a reclamation pass is attempted before
// returning; the pass may or may not free ptr itself, depending on whether
// some slot still protects it at scan time.
func (d *Domain) Retire(ptr unsafe.Pointer, deleter Deleter) {
	if ptr == nil {
		return
	}
	rec := &retiredRecord{ptr: ptr, deleter: deleter}
	for {
		head := d.retiredHead.Load()
		rec.next.Store(head)
		if d.retiredHead.CompareAndSwap(head, rec) {
			break
		}
	}
	d.reclaim()
}

// reclaim detaches the entire retired list, partitions it against the
// current hazard set, deletes everything not protected, and splices
// whatever remains (plus anything retired concurrently by other threads
// while this pass ran) back onto the list.
func (d *Domain) reclaim() {
	detached := d.retiredHead.Swap(nil)
	if detached == nil {
		return
	}

	protected := d.protectedSet()

	var keepHead, keepTail *retiredRecord
	var freedCount, keptCount int64

	for rec := detached; rec != nil; {
		next := rec.next.Load()
		if _, ok := protected[rec.ptr]; ok {
			rec.next.Store(nil)
			if keepHead == nil {
				keepHead = rec
			} else {
				keepTail.next.Store(rec)
			}
			keepTail = rec
			keptCount++
		} else {
			rec.deleter.Delete(rec.ptr)
			freedCount++
		}
		rec = next
	}

	d.freed.Add(freedCount)
	d.kept.Add(keptCount)
	d.logger.Debugf("reclaim pass: freed=%d kept=%d", freedCount, keptCount)

	if keepHead == nil {
		return
	}
	// Splice the kept chain back without losing anything retired by another
	// thread's concurrent Retire call in the meantime: prepend the current
	// head onto our kept chain's tail rather than overwriting it outright.
	for {
		head := d.retiredHead.Load()
		keepTail.next.Store(head)
		if d.retiredHead.CompareAndSwap(head, keepHead) {
			return
		}
	}
}

func (d *Domain) protectedSet() map[unsafe.Pointer]struct{} {
	set := make(map[unsafe.Pointer]struct{})
	for s := d.pool.head.Load(); s != nil; s = s.next.Load() {
		if p := atomic.LoadPointer(&s.ptr); p != nil {
			set[p] = struct{}{}
		}
	}
	return set
}
