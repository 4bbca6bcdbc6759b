// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scq

import (
	"sync"

	"github.com/petermattis/goid"
)

// Per-goroutine state, keyed by goroutine id. Each record maps a queue id
// to that goroutine's sub-queue or node pool binding. Bindings carry the
// owning queue so that id reuse after Close cannot alias stale state.
//
// A record is touched only by its own goroutine after creation. Records are
// not reclaimed when a goroutine exits; the engines are meant to be driven
// from long-lived worker goroutines.
type goroutineState struct {
	subqs map[int]subQueueBinding
	pools map[int]nodePoolBinding
}

type subQueueBinding struct {
	owner *Relaxed
	sq    *subQueue
}

type nodePoolBinding struct {
	owner *Linear
	pool  *nodePool
}

var goroutineStates sync.Map // goroutine id → *goroutineState

func currentGoroutine() *goroutineState {
	gid := goid.Get()
	if v, ok := goroutineStates.Load(gid); ok {
		return v.(*goroutineState)
	}
	gs := &goroutineState{
		subqs: make(map[int]subQueueBinding),
		pools: make(map[int]nodePoolBinding),
	}
	v, _ := goroutineStates.LoadOrStore(gid, gs)
	return v.(*goroutineState)
}

// subQueue returns the calling goroutine's sub-queue for q, registering a
// fresh one on first use.
func (gs *goroutineState) subQueue(q *Relaxed) *subQueue {
	if b, ok := gs.subqs[q.id]; ok && b.owner == q {
		return b.sq
	}
	sq := new(subQueue)
	q.register(sq)
	gs.subqs[q.id] = subQueueBinding{owner: q, sq: sq}
	return sq
}

// nodePool returns the calling goroutine's pool for q, or nil when the
// goroutine has not opted in.
func (gs *goroutineState) nodePool(q *Linear) *nodePool {
	if b, ok := gs.pools[q.id]; ok && b.owner == q {
		return b.pool
	}
	return nil
}

func (gs *goroutineState) createNodePool(q *Linear, maxPages int) {
	if b, ok := gs.pools[q.id]; ok && b.owner == q {
		return
	}
	gs.pools[q.id] = nodePoolBinding{owner: q, pool: newNodePool(maxPages)}
}

func (gs *goroutineState) destroyNodePool(q *Linear) {
	if b, ok := gs.pools[q.id]; ok && b.owner == q {
		b.pool.release()
		delete(gs.pools, q.id)
	}
}
