// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scq

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// Process-wide queue id table. Each live queue owns one slot; the slot
// index keys per-goroutine sub-queue and pool bookkeeping. The table is
// guarded by a spin-exchange gate; the critical section is O(MaxQueueNum)
// but runs only on queue creation and Close.
var (
	queueIDLock  atomix.Int32
	queueIDTaken [MaxQueueNum]bool
)

func lockQueueIDs() {
	sw := spin.Wait{}
	for !queueIDLock.CompareAndSwapAcqRel(0, 1) {
		sw.Once()
	}
}

func unlockQueueIDs() {
	queueIDLock.StoreRelease(0)
}

// acquireQueueID claims the lowest free slot, or reports failure when the
// table is full.
func acquireQueueID() (int, bool) {
	lockQueueIDs()
	defer unlockQueueIDs()
	for i := range queueIDTaken {
		if !queueIDTaken[i] {
			queueIDTaken[i] = true
			return i, true
		}
	}
	return -1, false
}

func releaseQueueID(id int) {
	lockQueueIDs()
	queueIDTaken[id] = false
	unlockQueueIDs()
}
