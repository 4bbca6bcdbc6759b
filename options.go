// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scq

const (
	// MaxQueueNum is the capacity of the process-wide queue id table.
	MaxQueueNum = 1024

	// MaxThreadNum is the number of producer sub-queues a Relaxed queue
	// can register.
	MaxThreadNum = 1024
)

// Options configures queue creation.
type Options struct {
	// Ordering requirement (determines the engine)
	linearizable bool
}

// Builder creates queues with fluent configuration.
//
// Example:
//
//	// Strict FIFO across all goroutines
//	q, err := scq.New().Linearizable().Build()
//
//	// Per-producer FIFO only, scales past the shared-tail bottleneck
//	q, err := scq.New().Relaxed().Build()
type Builder struct {
	opts Options
}

// New creates a queue builder. The default engine is [Linear].
func New() *Builder {
	return &Builder{opts: Options{linearizable: true}}
}

// Linearizable selects the strict-FIFO engine.
// Every dequeue observes the single global enqueue order.
func (b *Builder) Linearizable() *Builder {
	b.opts.linearizable = true
	return b
}

// Relaxed selects the batch-stealing engine.
// FIFO holds per producer only; items from distinct producers may be
// reordered relative to each other.
func (b *Builder) Relaxed() *Builder {
	b.opts.linearizable = false
	return b
}

// Build creates the configured queue.
// Returns ErrQueueLimit when the queue id table is full.
func (b *Builder) Build() (Queue, error) {
	if b.opts.linearizable {
		return NewLinear()
	}
	return NewRelaxed()
}

// pad is cache line padding to prevent false sharing.
type pad [64]byte
