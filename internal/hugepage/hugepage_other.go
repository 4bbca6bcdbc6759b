// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !linux

package hugepage

import "unsafe"

// Size is the transparent huge page size assumed by the node pool.
const Size = 2 << 20

// Advise is a no-op on platforms without madvise support.
func Advise(addr unsafe.Pointer, length uintptr) {
	_ = addr
	_ = length
}
