// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scq

import (
	"sync/atomic"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// Relaxed is an unbounded MPMC queue with per-producer FIFO only.
//
// Every producer goroutine owns a private sub-queue and appends to it with
// a single atomic exchange, so there is no shared-tail contention point.
// Consumers steal entire sub-queue batches round-robin with two atomic
// exchanges and then pop from the stolen batch locally.
//
// Items from one producer are dequeued in their enqueue order; items from
// distinct producers may be reordered relative to each other.
type Relaxed struct {
	_       pad
	regLock atomix.Int32
	_       pad
	// live sub-queues; [0, threadNum) are registered
	threadNum atomix.Int32
	_         pad
	subqs     [MaxThreadNum]atomic.Pointer[subQueue]
	id        int
}

// subQueue is one producer's private list plus its owner's consumer-side
// state. The sentinel keeps the producer's tail exchange free of nil
// checks; drainedHead/drainedTail and the cursor are touched only by the
// owning goroutine.
type subQueue struct {
	_        pad
	sentinel node
	_        pad
	tail     atomic.Pointer[node]
	_        pad
	drainedHead *node
	drainedTail *node
	cursor      int
}

// NewRelaxed creates a relaxed queue.
// Returns ErrQueueLimit when the queue id table is full.
func NewRelaxed() (*Relaxed, error) {
	id, ok := acquireQueueID()
	if !ok {
		return nil, ErrQueueLimit
	}
	return &Relaxed{id: id}, nil
}

// Close releases the queue's id slot and drops every registered sub-queue
// with its remaining nodes. The caller must ensure no operations are in
// flight.
func (q *Relaxed) Close() error {
	n := int(q.threadNum.Load())
	for i := 0; i < n; i++ {
		q.subqs[i].Store(nil)
	}
	q.threadNum.Store(0)
	releaseQueueID(q.id)
	return nil
}

// CreateNodePool is a no-op: Relaxed nodes are freed on pop and use the
// general allocator.
func (q *Relaxed) CreateNodePool() {}

// DestroyNodePool is a no-op.
func (q *Relaxed) DestroyNodePool() {}

// register publishes a goroutine's fresh sub-queue into the table.
// The spin lock is held only for the table insertion.
func (q *Relaxed) register(sq *subQueue) {
	sq.tail.Store(&sq.sentinel)

	sw := spin.Wait{}
	for !q.regLock.CompareAndSwapAcqRel(0, 1) {
		sw.Once()
	}
	idx := int(q.threadNum.Load())
	if idx >= MaxThreadNum {
		q.regLock.StoreRelease(0)
		panic("scq: sub-queue table full")
	}
	q.subqs[idx].Store(sq)
	q.threadNum.AddAcqRel(1)
	q.regLock.StoreRelease(0)
}

// Enqueue appends datum to the calling goroutine's sub-queue. One atomic
// read-modify-write for the cross-goroutine hand-off; the sentinel
// guarantees the previous tail is never nil.
func (q *Relaxed) Enqueue(datum uint64) {
	sq := currentGoroutine().subQueue(q)
	n := &node{datum: datum}
	prev := sq.tail.Swap(n)
	prev.next.Store(n)
}

// Dequeue pops from the calling goroutine's drained batch, stealing a new
// batch round-robin when the local one is empty.
// Returns (0, ErrWouldBlock) when a full rotation finds nothing.
func (q *Relaxed) Dequeue() (uint64, error) {
	sq := currentGoroutine().subQueue(q)
	if sq.drainedHead != nil {
		return sq.popDrained(), nil
	}

	count := int(q.threadNum.LoadAcquire())
	for k := 0; k < count; k++ {
		idx := sq.cursor + k
		if idx >= count {
			idx -= count
		}
		victim := q.subqs[idx].Load()
		if victim == nil || victim.sentinel.next.Load() == nil {
			continue
		}

		// Detach the whole batch, then rebase the producer's tail onto
		// the sentinel so subsequent enqueues grow a fresh list. An
		// enqueue racing between the two exchanges lands in the detached
		// batch; popDrained resolves its pending next link.
		head := victim.sentinel.next.Swap(nil)
		if head == nil {
			continue
		}
		sq.drainedHead = head
		sq.drainedTail = victim.tail.Swap(&victim.sentinel)
		sq.cursor = idx
		return sq.popDrained(), nil
	}

	return 0, ErrWouldBlock
}

// popDrained removes one node from the owner's drained batch. A nil next
// before the batch tail means the producer's link store is still in
// flight; spin until it lands.
func (sq *subQueue) popDrained() uint64 {
	n := sq.drainedHead
	datum := n.datum
	if n == sq.drainedTail {
		sq.drainedHead = nil
		sq.drainedTail = nil
		return datum
	}
	next := n.next.Load()
	if next == nil {
		sw := spin.Wait{}
		for next == nil {
			sw.Once()
			next = n.next.Load()
		}
	}
	sq.drainedHead = next
	return datum
}
