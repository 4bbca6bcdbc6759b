// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package scq provides unbounded MPMC queue implementations for 64-bit
// opaque data.
//
// The package offers two engines sharing one contract:
//
//   - Linear: strict global FIFO. A lock-free singly linked list whose
//     head is reclaimed RCU-style through a versioned-snapshot gate.
//   - Relaxed: per-producer FIFO. Private per-producer sub-queues whose
//     batches are stolen whole by consumers, removing the shared-tail
//     contention point.
//
// # Quick Start
//
// Direct constructors:
//
//	q, err := scq.NewLinear()   // strict FIFO
//	q, err := scq.NewRelaxed()  // per-producer FIFO, higher throughput
//
// Builder API selects the engine by ordering requirement:
//
//	q, err := scq.New().Linearizable().Build()
//	q, err := scq.New().Relaxed().Build()
//
// # Basic Usage
//
//	q, err := scq.NewLinear()
//	if err != nil {
//	    // id table exhausted (ErrQueueLimit)
//	}
//	defer q.Close()
//
//	q.Enqueue(42) // always succeeds; the queue is unbounded
//
//	datum, err := q.Dequeue()
//	if scq.IsWouldBlock(err) {
//	    // queue is empty - try again later
//	}
//
// The datum is an opaque 64-bit value: a scalar, an index, or a packed
// handle. The queue performs no garbage-collector tracking of the datum;
// to pass Go objects, park them in an application-side table and queue the
// index (the same discipline as the indirect queues of
// code.hybscloud.com/lfq).
//
// # Choosing an Engine
//
// Linear makes every dequeue observe the single global enqueue order: for
// any pair of items where the second was enqueued after the first enqueue
// completed, the first is dequeued first. Each enqueue is one atomic
// exchange on a shared tail, so heavily contended producers serialize on
// one cache line.
//
// Relaxed gives each producer goroutine a private sub-queue and lets
// consumers steal whole batches round-robin. FIFO holds within each
// producer's items only; items from distinct producers may be reordered.
// Use it when per-producer ordering is enough and producer counts are
// high.
//
// # Node Pools
//
// Linear producers can opt into a per-goroutine slab pool that
// bump-allocates node cells from huge-page-hinted slabs, bypassing the
// general allocator on the enqueue fast path:
//
//	q.CreateNodePool()        // calling goroutine only
//	defer q.DestroyNodePool()
//
// Cells recycle through a FREE state once the reclamation chain drains
// them; when the pool's reservation is exhausted, enqueues fall back to
// the general allocator transparently. The pool belongs to the calling
// goroutine: destroying the queue does not destroy pools owned by other
// goroutines.
//
// # Per-Goroutine State
//
// Both engines key their producer-side state by goroutine identity.
// Sub-queues and pools live until the queue (or pool) is destroyed; the
// engines are meant to be driven from a bounded set of long-lived worker
// goroutines, not from one-shot goroutines per operation. A Relaxed queue
// registers at most MaxThreadNum participating goroutines.
//
// # Error Handling
//
// Dequeue returns [ErrWouldBlock] when the queue is empty. The error is
// sourced from [code.hybscloud.com/iox] for ecosystem consistency:
//
//	backoff := iox.Backoff{}
//	for {
//	    datum, err := q.Dequeue()
//	    if err == nil {
//	        backoff.Reset()
//	        process(datum)
//	        continue
//	    }
//	    backoff.Wait()
//	}
//
// NewLinear and NewRelaxed return [ErrQueueLimit] when the process-wide id
// table of MaxQueueNum slots is exhausted. Enqueue has no error path:
// the queues are unbounded and allocation failure is a runtime panic.
//
// # Shutdown
//
// Close requires external quiescence: no in-flight operations and, for
// Linear, no outstanding head version pins. Close then drains residual
// nodes synchronously. Misuse (double Close, operations after Close) is
// undefined behavior, as with any lock-free structure's teardown.
//
// # Race Detection
//
// Go's race detector tracks explicit synchronization primitives but cannot
// observe happens-before established through atomic memory orderings on
// separate variables. The stress tests that exercise such orderings skip
// themselves when RaceEnabled is true.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors,
// [code.hybscloud.com/atomix] for atomic primitives with explicit memory
// ordering, [code.hybscloud.com/spin] for CPU pause instructions,
// golang.org/x/sys for the transparent-huge-page hint of the node pool,
// and github.com/petermattis/goid for goroutine identity.
package scq
