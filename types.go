// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scq

// Queue is the combined producer-consumer interface for an unbounded queue.
//
// Both engines implement it:
//
//   - [Linear]: strict global FIFO, RCU-reclaimed shared list
//   - [Relaxed]: per-producer FIFO, batch-stealing consumers
//
// The datum is an opaque 64-bit value (a scalar, an index, or a packed
// handle). The queue performs no garbage-collector tracking of the datum;
// to pass Go objects, park them in an application-side table and queue the
// index, as with the indirect queues of code.hybscloud.com/lfq.
type Queue interface {
	Producer
	Consumer

	// Close releases the queue's id slot and residual state. The caller
	// must ensure no operations are in flight; see the package
	// documentation for the quiescence requirement.
	Close() error
}

// Producer is the interface for enqueueing data.
type Producer interface {
	// Enqueue appends datum to the queue. It always succeeds; the queues
	// are unbounded and allocation failure is a runtime panic.
	Enqueue(datum uint64)
}

// Consumer is the interface for dequeueing data.
type Consumer interface {
	// Dequeue removes and returns the next available datum (non-blocking).
	// Returns (0, ErrWouldBlock) when the queue is empty; the datum result
	// is meaningful only when the error is nil.
	Dequeue() (uint64, error)
}

// NodePooler is implemented by queues that accept a per-goroutine node pool.
//
// CreateNodePool opts the calling goroutine into slab allocation for this
// queue's nodes; DestroyNodePool releases the calling goroutine's pool.
// Only [Linear] actually pools nodes; on [Relaxed] both calls are no-ops.
type NodePooler interface {
	CreateNodePool()
	DestroyNodePool()
}
