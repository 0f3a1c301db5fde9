// Package hazard implements a process-wide hazard-pointer reclamation
// domain: a pool of reusable protection slots, scope-bound guards over them,
// a retired-object list and reclaimer, and the Deleter capability threads
// use to release heterogeneous retired allocations.
//
// It has no notion of the deque built on top of it in package deque; nothing
// here is specific to a doubly-linked structure. A Domain exists so that
// multiple independent data structures can share one reclamation view (the
// intended default, mirroring how this scheme's origin keeps a single static
// domain for the whole process) while still allowing callers who want
// isolation to construct their own via NewDomain.
package hazard

import (
	"sync/atomic"
	"unsafe"

	"github.com/couchbase/go-lockfree-deque/internal/dlog"
)

// Guard is a scope-bound handle over a protected snapshot of an atomic
// pointer. While a Guard is live, Data is safe to dereference: no reclaim
// pass will free the object it points to. Call Release when done with it;
// Go has no destructors, so unlike the scheme this is modeled on, release is
// explicit rather than implicit on scope exit.
type Guard[T any] struct {
	domain *Domain
	slot   *slot
	ptr    *T
}

// Data returns the protected pointer. Valid only until Release.
func (g *Guard[T]) Data() *T {
	if g == nil {
		return nil
	}
	return g.ptr
}

// Release returns the underlying slot to the pool. Safe to call on a nil
// Guard (the result of protecting a nil pointer).
func (g *Guard[T]) Release() {
	if g == nil {
		return
	}
	g.domain.pool.release(g.slot)
}

// Load performs the guarded read described by the domain's protection
// protocol: snapshot, protect, re-snapshot, and retry until the two
// snapshots agree. Returns nil if the atomic pointer is observed null.
func Load[T any](d *Domain, addr *atomic.Pointer[T]) *Guard[T] {
	s := d.pool.acquire()
	p1 := addr.Load()
	for {
		s.protect(unsafe.Pointer(p1))
		p2 := addr.Load()
		if p1 == p2 {
			break
		}
		p1 = p2
	}
	if p1 == nil {
		d.pool.release(s)
		return nil
	}
	return &Guard[T]{domain: d, slot: s, ptr: p1}
}

// Protect registers hazard protection for a pointer a caller already holds
// (e.g. one it just read out of another Guard, or one it received as a
// function parameter), without re-reading any atomic location. This is what
// lets the insert/delete engines "guard-load" a descriptor or node that was
// handed to them directly rather than fetched from a shared atomic field.
// Returns nil for a nil pointer.
func Protect[T any](d *Domain, p *T) *Guard[T] {
	if p == nil {
		return nil
	}
	s := d.pool.acquire()
	s.protect(unsafe.Pointer(p))
	return &Guard[T]{domain: d, slot: s, ptr: p}
}

// slot is one protection record in a Domain's pool: the address it currently
// guards, a flag marking it free for acquisition, and an intrusive link to
// the next slot in the pool's list. ptr is untyped because one pool protects
// pointers of many unrelated concrete types over its lifetime as slots are
// reused across the Deques sharing that Domain.
type slot struct {
	ptr  unsafe.Pointer
	next atomic.Pointer[slot]
	free atomic.Bool
}

func (s *slot) protect(p unsafe.Pointer) {
	atomic.StorePointer(&s.ptr, p)
}

// pool is the intrusive, append-only, Treiber-stack list of slots.
type pool struct {
	head   atomic.Pointer[slot]
	logger dlog.Logger
}

// acquire returns a slot claimed for the caller's exclusive use: either one
// found free in the existing list, or a freshly pushed one. Pushing a new
// slot can lose its CAS race against another acquirer growing the list at
// the same time; rather than retry the push blindly, the list is rescanned
// first, since the race that grew it may also have freed a slot a prior
// holder just released.
func (p *pool) acquire() *slot {
	if s := p.scanFree(); s != nil {
		return s
	}
	for {
		fresh := &slot{}
		// fresh.free defaults to false: the acquirer is claiming it
		// immediately, there is no window where it's visible as free.
		head := p.head.Load()
		fresh.next.Store(head)
		if p.head.CompareAndSwap(head, fresh) {
			p.logger.Debugf("hazard slot pool grew by one")
			return fresh
		}
		if s := p.scanFree(); s != nil {
			return s
		}
	}
}

func (p *pool) scanFree() *slot {
	for s := p.head.Load(); s != nil; s = s.next.Load() {
		if s.free.CompareAndSwap(true, false) {
			return s
		}
	}
	return nil
}

func (p *pool) release(s *slot) {
	atomic.StorePointer(&s.ptr, nil)
	if !s.free.CompareAndSwap(false, true) {
		panic("Unsafe hazard slot release detected")
	}
}

// prewarm pushes n fresh, free slots onto the pool ahead of any use, purely
// to cut down on Treiber-push contention the first time a burst of
// goroutines all acquire at once. Never required for correctness.
func (p *pool) prewarm(n int) {
	for i := 0; i < n; i++ {
		s := &slot{}
		s.free.Store(true)
		for {
			head := p.head.Load()
			s.next.Store(head)
			if p.head.CompareAndSwap(head, s) {
				break
			}
		}
	}
}

// Domain owns one hazard-pointer pool and one retired list. The zero value
// is not usable; construct with NewDomain or use Default.
type Domain struct {
	pool        *pool
	retiredHead atomic.Pointer[retiredRecord]
	logger      dlog.Logger

	freed atomic.Int64
	kept  atomic.Int64
}

// DomainOption configures a Domain at construction time.
type DomainOption func(*Domain)

// WithLogger routes the domain's lifecycle-event logging (slot-pool growth,
// reclaim-pass summaries) to l instead of discarding it.
func WithLogger(l dlog.Logger) DomainOption {
	return func(d *Domain) { d.logger = l }
}

// WithSlotPoolHint pre-warms n slots. Advisory only.
func WithSlotPoolHint(n int) DomainOption {
	return func(d *Domain) {
		if n > 0 {
			d.pool.prewarm(n)
		}
	}
}

// NewDomain constructs an independent reclamation domain. Most callers
// should use Default instead, unless they specifically need isolation
// between multiple structures' hazard sets.
func NewDomain(opts ...DomainOption) *Domain {
	d := &Domain{
		pool:   &pool{logger: dlog.Nop()},
		logger: dlog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.pool.logger = d.logger
	return d
}

var defaultDomain = NewDomain()

// Default returns the process-wide shared domain. This mirrors the source
// scheme's single static domain; callers wanting isolated reclamation views
// across independently-torn-down structures should build their own Domain
// with NewDomain instead.
func Default() *Domain { return defaultDomain }

// Stats reports cumulative reclamation counters: total records freed across
// all passes, and total held-back observations (a record still protected at
// scan time counts once per pass that kept it).
func (d *Domain) Stats() (freed, kept int64) {
	return d.freed.Load(), d.kept.Load()
}
