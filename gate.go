// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scq

import (
	"sync/atomic"
	"unsafe"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// Version is the unit of publication managed by a [Gate].
//
// A version carries an inner reference balance. While the version is the
// gate's published value, readers pin it through the gate word; once it is
// replaced, the accumulated pin count is deposited into the balance and the
// call that brings the balance to zero runs the gate's free callback.
//
// Containers embed Version as their first field and recover the container
// from the *Version the gate hands out.
type Version struct {
	refs atomix.Int64
}

// GateConfig supplies the version allocator and finalizer of a Gate.
//
// Alloc produces a fresh version object (typically the Version field of a
// larger container). Free runs exactly once per retired version, after the
// last reader that acquired it has released it. Free must not be nil.
type GateConfig struct {
	Alloc func() *Version
	Free  func(*Version)
}

// Gate publishes a single current version and tracks its readers.
//
// The gate word packs (version pointer, reader count) into one Uint128
// updated with double-word CAS, so publication and acquisition can race
// without tearing: a publisher atomically captures the exact number of pins
// issued against the version it replaces.
//
// Acquiring never blocks publishers; publishing never blocks readers.
// The 64-bit count side accommodates any realistic number of concurrent
// readers.
type Gate struct {
	_ pad
	// lo: *Version as uint64, hi: pins issued against it while current
	word atomix.Uint128
	_    pad
	// GC anchor for the version packed into word; the packed integer is
	// invisible to the collector
	live  atomic.Pointer[Version]
	alloc func() *Version
	free  func(*Version)
}

// NewGate creates a gate with no published version.
func NewGate(cfg GateConfig) *Gate {
	return &Gate{alloc: cfg.Alloc, free: cfg.Free}
}

// MakeVersion allocates a version via the configured allocator.
// The caller hands it back through Publish or ComparePublish; a version
// that is never published is simply discarded.
func (g *Gate) MakeVersion() *Version {
	return g.alloc()
}

func packVersion(v *Version) uint64 {
	return uint64(uintptr(unsafe.Pointer(v)))
}

func unpackVersion(lo uint64) *Version {
	return *(**Version)(unsafe.Pointer(&lo))
}

// Publish unconditionally replaces the current version with v.
// The replaced version, if any, enters its grace period.
func (g *Gate) Publish(v *Version) {
	newLo := packVersion(v)
	sw := spin.Wait{}
	for {
		lo, hi := g.word.LoadAcquire()
		if g.word.CompareAndSwapAcqRel(lo, hi, newLo, 0) {
			g.live.Store(v)
			g.retire(lo, hi)
			return
		}
		sw.Once()
	}
}

// ComparePublish replaces the current version with v only if the current
// version is exactly expect. Reports whether the replacement happened; on
// failure v stays unpublished and the caller abandons it.
func (g *Gate) ComparePublish(expect, v *Version) bool {
	expLo := packVersion(expect)
	newLo := packVersion(v)
	sw := spin.Wait{}
	for {
		lo, hi := g.word.LoadAcquire()
		if lo != expLo {
			return false
		}
		if g.word.CompareAndSwapAcqRel(lo, hi, newLo, 0) {
			g.live.Store(v)
			g.retire(lo, hi)
			return true
		}
		sw.Once()
	}
}

// Acquire pins and returns the current version. The version is safe to
// dereference until the matching Release. Returns nil only when no version
// has ever been published or the gate has been closed.
func (g *Gate) Acquire() *Version {
	sw := spin.Wait{}
	for {
		lo, hi := g.word.LoadAcquire()
		if lo == 0 {
			return nil
		}
		if g.word.CompareAndSwapAcqRel(lo, hi, lo, hi+1) {
			return unpackVersion(lo)
		}
		sw.Once()
	}
}

// Release drops a reader pin obtained from Acquire. When a retired
// version's balance reaches zero the free callback runs, exactly once.
func (g *Gate) Release(v *Version) {
	if v.refs.AddAcqRel(-1) == 0 {
		g.free(v)
	}
}

// Close retires the current version, if any. The caller must guarantee no
// further Acquire or publish calls; pins still held at Close defer the
// final free to their Release as usual.
func (g *Gate) Close() {
	sw := spin.Wait{}
	for {
		lo, hi := g.word.LoadAcquire()
		if lo == 0 {
			return
		}
		if g.word.CompareAndSwapAcqRel(lo, hi, 0, 0) {
			g.live.Store(nil)
			g.retire(lo, hi)
			return
		}
		sw.Once()
	}
}

// retire deposits the pin total captured from the gate word into the
// replaced version's balance. Releases performed while the version was
// still current drove the balance negative; the deposit settles them, and
// whichever add observes zero runs the free callback.
func (g *Gate) retire(lo, outer uint64) {
	old := unpackVersion(lo)
	if old == nil {
		return
	}
	if old.refs.AddAcqRel(int64(outer)) == 0 {
		g.free(old)
	}
}
