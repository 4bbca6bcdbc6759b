// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scq

import (
	"unsafe"

	"code.hybscloud.com/scq/internal/hugepage"
)

const (
	hugePageSize  = hugepage.Size
	hugePageCount = 512
)

var nodesPerHugePage = int(hugePageSize / unsafe.Sizeof(node{}))

// nodePool is a per-goroutine, per-queue slab of node cells.
//
// Slabs are committed lazily, one huge page worth of cells at a time, up to
// maxPages; each committed slab is hinted for transparent huge page
// backing. Cells are bump-allocated; a slab whose last cell has returned to
// FREE has cycled through completely, because the reclamation chain frees
// nodes in insertion order, so the cursor may safely restart there. When
// the reservation is exhausted the caller falls back to the general
// allocator.
//
// The pool is owned by a single goroutine; only the cells' state and next
// link are touched concurrently (by whichever goroutine drains a head
// version).
type nodePool struct {
	slabs        [][]node
	maxPages     int
	pageIdx      int // slab currently bump-allocated from
	cellIdx      int // next cell to hand out on that slab
	cellsPerPage int
}

func newNodePool(maxPages int) *nodePool {
	return &nodePool{
		slabs:        make([][]node, 0, maxPages),
		maxPages:     maxPages,
		cellsPerPage: nodesPerHugePage,
	}
}

// alloc hands out one cell, or nil when the reservation is exhausted.
// A handed-out cell is marked ENQUEUED, so the recycle scan treats it as
// live until freeNode returns it to FREE.
func (p *nodePool) alloc() *node {
	if p.pageIdx < len(p.slabs) && p.cellIdx < p.cellsPerPage {
		n := &p.slabs[p.pageIdx][p.cellIdx]
		p.cellIdx++
		n.state.StoreRelaxed(nodeEnqueued)
		return n
	}

	// Current page exhausted: reuse a committed page that has drained.
	for i := range p.slabs {
		if p.slabs[i][p.cellsPerPage-1].state.LoadAcquire() == nodeFree {
			p.pageIdx = i
			p.cellIdx = 1
			p.slabs[i][0].state.StoreRelaxed(nodeEnqueued)
			return &p.slabs[i][0]
		}
	}

	if len(p.slabs) < p.maxPages {
		slab := make([]node, p.cellsPerPage)
		for i := range slab {
			slab[i].pooled = true
		}
		hugepage.Advise(unsafe.Pointer(&slab[0]),
			uintptr(p.cellsPerPage)*unsafe.Sizeof(node{}))
		p.slabs = append(p.slabs, slab)
		p.pageIdx = len(p.slabs) - 1
		p.cellIdx = 1
		slab[0].state.StoreRelaxed(nodeEnqueued)
		return &slab[0]
	}

	return nil
}

// release drops the slabs in bulk. Cells still linked into a queue keep
// their backing slab alive until the reclamation chain reaches them.
func (p *nodePool) release() {
	p.slabs = nil
	p.pageIdx = 0
	p.cellIdx = 0
}
