// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scq

import (
	"sync/atomic"

	"code.hybscloud.com/atomix"
)

// Node states. nodeFree must be the zero value: fresh pool cells are
// recyclable without initialization.
const (
	nodeFree int32 = iota
	nodeEnqueued
	nodeDequeued
)

// node is a singly linked list cell carrying one datum.
//
// next is monotonic once set. state is used by the Linear engine only:
// a successful ENQUEUED→DEQUEUED transition hands the datum to exactly one
// consumer, and FREE marks a pool cell as recyclable. Relaxed nodes are
// popped by the consumer that detached them and never change state.
type node struct {
	next   atomic.Pointer[node]
	datum  uint64
	state  atomix.Int32
	pooled bool
}

// freeNode returns a node at the end of its lifetime. Pool cells become
// recyclable; general-allocator nodes are left to the collector.
func freeNode(n *node) {
	if !n.pooled {
		return
	}
	n.next.Store(nil)
	n.state.StoreRelease(nodeFree)
}
