// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package hugepage

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Size is the transparent huge page size assumed by the node pool.
const Size = 2 << 20

// Advise asks the kernel to back the Size-aligned interior of
// [addr, addr+length) with transparent huge pages. The advice is a hint;
// failures are ignored.
func Advise(addr unsafe.Pointer, length uintptr) {
	start := (uintptr(addr) + Size - 1) &^ uintptr(Size-1)
	end := (uintptr(addr) + length) &^ uintptr(Size-1)
	if end <= start {
		return
	}
	region := unsafe.Slice((*byte)(unsafe.Pointer(start)), end-start)
	_ = unix.Madvise(region, unix.MADV_HUGEPAGE)
}
