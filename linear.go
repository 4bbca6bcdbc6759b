// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scq

import (
	"sync/atomic"
	"unsafe"

	"code.hybscloud.com/atomix"
)

// Linear is an unbounded linearizable MPMC queue.
//
// Producers append to a shared singly linked list with a single atomic
// exchange of the tail. Consumers walk the list from a pinned head version
// and claim nodes with an atomic ENQUEUED→DEQUEUED transition, so every
// datum is observed by exactly one consumer and the global enqueue order is
// preserved.
//
// The head is reclaimed RCU-style: a [Gate] publishes the current head
// version, dequeuers pin it while traversing, and superseded versions are
// chained until the oldest segment of the list has no readers left, at
// which point the whole covered node range is freed in insertion order.
type Linear struct {
	_ pad
	// newest node; nil only before the first enqueue
	tail atomic.Pointer[node]
	_    pad
	// set once the first enqueue has published the initial head version
	headInit atomix.Bool
	_        pad
	head     *Gate
	id       int
}

// headVersion demarcates one epoch of head traversal.
//
// While current, tailNode is nil. When superseded, the previous version's
// tailNode is set to the last node of its covered range, and the versions
// are linked into a retirement chain. The top bit of prev records that the
// version's last reader has released it; nodes are freed only from the
// chain tail, draining forward through already-released successors.
type headVersion struct {
	version Version // must stay first: the gate hands out *Version
	// tagged predecessor pointer; versionReleased is set by the freer
	prev atomix.Uintptr
	// keeps the predecessor visible to the collector until it is drained;
	// the tagged word above is an integer the collector cannot trace
	prevKeep atomic.Pointer[headVersion]
	next     atomic.Pointer[headVersion]
	tailNode atomic.Pointer[node]
	headNode *node
}

const versionReleased = uintptr(1) << 63

func asHeadVersion(v *Version) *headVersion {
	return (*headVersion)(unsafe.Pointer(v))
}

// NewLinear creates a linearizable queue.
// Returns ErrQueueLimit when the queue id table is full.
func NewLinear() (*Linear, error) {
	id, ok := acquireQueueID()
	if !ok {
		return nil, ErrQueueLimit
	}
	q := &Linear{id: id}
	q.head = NewGate(GateConfig{
		Alloc: func() *Version { return &new(headVersion).version },
		Free:  q.freeHeadVersion,
	})
	return q, nil
}

// Close releases the queue's id slot and synchronously drains the head
// version chain, returning any remaining pool cells to their slabs.
//
// The caller must guarantee quiescence: no concurrent operations and no
// outstanding head version pins. Goroutines that opted into node pools
// remain responsible for their own DestroyNodePool.
func (q *Linear) Close() error {
	q.head.Close()
	q.tail.Store(nil)
	q.headInit.Store(false)
	releaseQueueID(q.id)
	return nil
}

// CreateNodePool opts the calling goroutine into slab allocation for this
// queue's nodes. Enqueues from this goroutine then bypass the general
// allocator until the pool's reservation is exhausted.
func (q *Linear) CreateNodePool() {
	currentGoroutine().createNodePool(q, hugePageCount)
}

// DestroyNodePool releases the calling goroutine's pool for this queue.
// Cells still linked into the queue stay valid until reclaimed.
func (q *Linear) DestroyNodePool() {
	currentGoroutine().destroyNodePool(q)
}

func (q *Linear) newNode(datum uint64) *node {
	if p := currentGoroutine().nodePool(q); p != nil {
		if n := p.alloc(); n != nil {
			n.next.Store(nil)
			n.datum = datum
			n.state.StoreRelaxed(nodeEnqueued)
			return n
		}
	}
	n := &node{datum: datum}
	n.state.StoreRelaxed(nodeEnqueued)
	return n
}

// Enqueue appends datum to the queue. One atomic read-modify-write: the
// tail exchange both claims the append slot and publishes the node.
func (q *Linear) Enqueue(datum uint64) {
	n := q.newNode(datum)
	prev := q.tail.Swap(n)
	if prev == nil {
		// First enqueue since init: publish the initial head version.
		hv := asHeadVersion(q.head.MakeVersion())
		hv.headNode = n
		q.head.Publish(&hv.version)
		q.headInit.StoreRelease(true)
		return
	}
	prev.next.Store(n)
}

// Dequeue removes and returns the oldest datum.
// Returns (0, ErrWouldBlock) when the queue is empty.
func (q *Linear) Dequeue() (uint64, error) {
	if !q.headInit.LoadAcquire() {
		return 0, ErrWouldBlock
	}

	for {
		hv := asHeadVersion(q.head.Acquire())

		// tailNode turning non-nil means this version has been superseded
		// mid-walk; restart from the newer head. Reaching a nil next means
		// the walk hit the tail of the list without finding a claimable
		// node.
		n := hv.headNode
		var datum uint64
		found := false
		for n != nil && hv.tailNode.Load() == nil {
			if n.state.LoadAcquire() == nodeEnqueued &&
				n.state.CompareAndSwapAcqRel(nodeEnqueued, nodeDequeued) {
				datum = n.datum
				found = true
				break
			}
			n = n.next.Load()
		}

		if n != nil {
			if !found {
				q.head.Release(&hv.version)
				continue
			}
			if succ := n.next.Load(); succ != nil {
				q.adjustHead(hv, succ, n)
			}
		}

		q.head.Release(&hv.version)
		if found {
			return datum, nil
		}
		return 0, ErrWouldBlock
	}
}

// adjustHead tries to advance the published head past the claimed node.
// On success the superseded version is linked into the retirement chain
// and its covered range is sealed; dropping the attempt on a lost race is
// fine, a later dequeue will advance the head instead.
//
// The caller still pins prev, so prev cannot be freed before the linkage
// stores below are complete.
func (q *Linear) adjustHead(prev *headVersion, newHead, last *node) {
	hv := asHeadVersion(q.head.MakeVersion())
	hv.headNode = newHead
	hv.prev.StoreRelaxed(uintptr(unsafe.Pointer(prev)))
	hv.prevKeep.Store(prev)

	if !q.head.ComparePublish(&prev.version, &hv.version) {
		return
	}

	prev.next.Store(hv)
	prev.tailNode.Store(last)
}

// freeHeadVersion runs when a retired head version's last reader releases
// it. Only the chain tail may free its nodes; an inner version just marks
// itself released and is drained transitively once everything older is
// gone.
func (q *Linear) freeHeadVersion(v *Version) {
	hv := asHeadVersion(v)

	prior := hv.prev.AddAcqRel(versionReleased) &^ versionReleased
	if prior != 0 {
		return
	}

	for {
		// Chain tail: the covered range [headNode, tailNode] has no
		// readers left. A nil tailNode (the version was current when the
		// gate closed) drains to the end of the list.
		tail := hv.tailNode.Load()
		n := hv.headNode
		for n != tail {
			next := n.next.Load()
			freeNode(n)
			n = next
		}
		if tail != nil {
			freeNode(tail)
		}

		next := hv.next.Load()
		if next == nil {
			return
		}
		next.prevKeep.Store(nil)

		// Detach the successor from the drained predecessor. If its
		// release bit is already set (or lands concurrently, failing the
		// CAS), the successor has no readers either and is drained here;
		// otherwise its own last release will find a nil prev and drain
		// it.
		p := next.prev.LoadAcquire()
		if p&versionReleased == 0 &&
			next.prev.CompareAndSwapAcqRel(p, 0) {
			return
		}
		hv = next
	}
}
