// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package hugepage hints transparent huge page backing for large
// node slabs. On platforms without madvise support the hint is a no-op;
// callers must not depend on huge pages being granted.
package hugepage
