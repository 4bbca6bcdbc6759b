// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scq

import (
	"testing"
)

// =============================================================================
// Node Pool
// =============================================================================

// TestNodePoolCommitAndBump verifies lazy slab commit and bump allocation
// across the page boundary.
func TestNodePoolCommitAndBump(t *testing.T) {
	p := newNodePool(2)
	if len(p.slabs) != 0 {
		t.Fatalf("fresh pool committed %d slabs, want 0", len(p.slabs))
	}

	seen := make(map[*node]bool, p.cellsPerPage)
	for i := range p.cellsPerPage {
		n := p.alloc()
		if n == nil {
			t.Fatalf("alloc(%d): got nil with pages remaining", i)
		}
		if !n.pooled {
			t.Fatalf("alloc(%d): cell not marked pooled", i)
		}
		if seen[n] {
			t.Fatalf("alloc(%d): cell handed out twice", i)
		}
		seen[n] = true
	}
	if len(p.slabs) != 1 {
		t.Fatalf("committed %d slabs after one page of cells, want 1", len(p.slabs))
	}

	// The next cell commits the second page.
	n := p.alloc()
	if n == nil {
		t.Fatal("alloc across page boundary: got nil")
	}
	if len(p.slabs) != 2 {
		t.Fatalf("committed %d slabs, want 2", len(p.slabs))
	}
	if seen[n] {
		t.Fatal("alloc across page boundary: cell handed out twice")
	}
}

// TestNodePoolExhaustion verifies the reservation bound: a saturated pool
// returns nil so callers fall back to the general allocator.
func TestNodePoolExhaustion(t *testing.T) {
	p := newNodePool(1)
	for range p.cellsPerPage {
		if p.alloc() == nil {
			t.Fatal("alloc: got nil before exhaustion")
		}
	}
	if p.alloc() != nil {
		t.Fatal("alloc on exhausted pool: got cell, want nil")
	}
	// Still nil on repeat: no page has drained.
	if p.alloc() != nil {
		t.Fatal("alloc on exhausted pool: got cell, want nil")
	}
}

// TestNodePoolRecycle verifies that a fully drained page is found by the
// recycle scan and bump allocation restarts at its first cell.
func TestNodePoolRecycle(t *testing.T) {
	p := newNodePool(1)
	cells := make([]*node, 0, p.cellsPerPage)
	for range p.cellsPerPage {
		cells = append(cells, p.alloc())
	}
	if p.alloc() != nil {
		t.Fatal("alloc on exhausted pool: got cell, want nil")
	}

	// Drain in insertion order, as the reclamation chain does.
	for _, n := range cells {
		n.state.StoreRelaxed(nodeDequeued)
		freeNode(n)
	}

	n := p.alloc()
	if n != cells[0] {
		t.Fatal("recycled alloc: want the first cell of the drained page")
	}
	if p.alloc() != cells[1] {
		t.Fatal("recycled alloc: want the second cell next")
	}
	if len(p.slabs) != 1 {
		t.Fatalf("recycling committed a slab: got %d, want 1", len(p.slabs))
	}
}

// TestNodePoolPartialPageNotRecycled verifies the cycling signal: a page
// whose last cell is still live must not be rescanned even when earlier
// cells are FREE.
func TestNodePoolPartialPageNotRecycled(t *testing.T) {
	p := newNodePool(1)
	cells := make([]*node, 0, p.cellsPerPage)
	for range p.cellsPerPage {
		cells = append(cells, p.alloc())
	}

	for _, n := range cells[:len(cells)-1] {
		freeNode(n)
	}

	if p.alloc() != nil {
		t.Fatal("alloc recycled a page whose last cell is live")
	}
	freeNode(cells[len(cells)-1])
	if p.alloc() != cells[0] {
		t.Fatal("recycled alloc after full drain: want the first cell")
	}
}

// TestLinearPoolFallbackRoundTrip saturates a one-page reservation and
// verifies enqueues keep succeeding through the allocator fallback with
// FIFO intact.
func TestLinearPoolFallbackRoundTrip(t *testing.T) {
	q, err := NewLinear()
	if err != nil {
		t.Fatalf("NewLinear: %v", err)
	}
	defer q.Close()

	gs := currentGoroutine()
	gs.pools[q.id] = nodePoolBinding{owner: q, pool: newNodePool(1)}
	defer gs.destroyNodePool(q)

	items := uint64(nodesPerHugePage + nodesPerHugePage/2)
	for i := uint64(1); i <= items; i++ {
		q.Enqueue(i)
	}
	for i := uint64(1); i <= items; i++ {
		got, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue(%d): %v", i, err)
		}
		if got != i {
			t.Fatalf("Dequeue: got %d, want %d", got, i)
		}
	}
	if _, err := q.Dequeue(); err == nil {
		t.Fatal("Dequeue on empty: got nil error")
	}
}

// TestLinearPoolSteadyStateRecycling pipelines enqueues and dequeues
// through several times the page capacity with a one-page pool, so drained
// cells are handed out again mid-traffic, and verifies FIFO order and that
// the pool stays at one committed slab. Whether a given enqueue got a
// recycled cell or a general-allocator node is not checked.
func TestLinearPoolSteadyStateRecycling(t *testing.T) {
	q, err := NewLinear()
	if err != nil {
		t.Fatalf("NewLinear: %v", err)
	}
	defer q.Close()

	gs := currentGoroutine()
	pool := newNodePool(1)
	gs.pools[q.id] = nodePoolBinding{owner: q, pool: pool}
	defer gs.destroyNodePool(q)

	// Depth-2 pipeline: every claimed node has a successor, so the head
	// advances and earlier cells return to FREE while traffic continues.
	q.Enqueue(1)
	q.Enqueue(2)
	total := uint64(3 * nodesPerHugePage)
	next := uint64(1)
	for i := uint64(3); i <= total; i++ {
		q.Enqueue(i)
		got, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue: %v", err)
		}
		if got != next {
			t.Fatalf("Dequeue: got %d, want %d", got, next)
		}
		next++
	}
	if len(pool.slabs) != 1 {
		t.Fatalf("steady state committed %d slabs, want 1", len(pool.slabs))
	}
	for next <= total {
		got, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue: %v", err)
		}
		if got != next {
			t.Fatalf("Dequeue: got %d, want %d", got, next)
		}
		next++
	}
}
