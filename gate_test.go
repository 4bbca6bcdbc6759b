// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scq

import (
	"sync"
	"testing"
	"unsafe"

	"code.hybscloud.com/atomix"
)

// =============================================================================
// Versioned-Snapshot Gate
// =============================================================================

// gateVersion is a minimal container for gate tests: the Version must be
// the first field, matching how the engines embed it.
type gateVersion struct {
	version Version
	id      int
	freed   atomix.Int32
}

func asGateVersion(v *Version) *gateVersion {
	return (*gateVersion)(unsafe.Pointer(v))
}

func newTestGate() *Gate {
	return NewGate(GateConfig{
		Alloc: func() *Version { return &new(gateVersion).version },
		Free:  func(v *Version) { asGateVersion(v).freed.Add(1) },
	})
}

// TestGatePublishAcquireRelease verifies the pin/retire protocol: a
// superseded version is freed only after its last reader releases, and
// exactly once.
func TestGatePublishAcquireRelease(t *testing.T) {
	g := newTestGate()

	if g.Acquire() != nil {
		t.Fatal("Acquire on empty gate: got version, want nil")
	}

	v1 := asGateVersion(g.MakeVersion())
	v1.id = 1
	g.Publish(&v1.version)

	pin := g.Acquire()
	if pin != &v1.version {
		t.Fatal("Acquire: got wrong version")
	}

	v2 := asGateVersion(g.MakeVersion())
	v2.id = 2
	g.Publish(&v2.version)

	if v1.freed.Load() != 0 {
		t.Fatal("superseded version freed while still pinned")
	}

	g.Release(pin)
	if got := v1.freed.Load(); got != 1 {
		t.Fatalf("superseded version freed %d times, want 1", got)
	}
	if v2.freed.Load() != 0 {
		t.Fatal("current version freed")
	}

	g.Close()
	if got := v2.freed.Load(); got != 1 {
		t.Fatalf("version freed %d times at Close, want 1", got)
	}
}

// TestGateRetireUnpinned verifies that replacing a version nobody pinned
// frees it during the publish itself.
func TestGateRetireUnpinned(t *testing.T) {
	g := newTestGate()

	v1 := asGateVersion(g.MakeVersion())
	g.Publish(&v1.version)
	v2 := asGateVersion(g.MakeVersion())
	g.Publish(&v2.version)

	if got := v1.freed.Load(); got != 1 {
		t.Fatalf("unpinned version freed %d times, want 1", got)
	}
	g.Close()
}

// TestGateComparePublish verifies the conditional publish contract.
func TestGateComparePublish(t *testing.T) {
	g := newTestGate()

	v1 := asGateVersion(g.MakeVersion())
	g.Publish(&v1.version)

	// Wrong expectation fails and publishes nothing.
	stranger := asGateVersion(g.MakeVersion())
	replacement := asGateVersion(g.MakeVersion())
	if g.ComparePublish(&stranger.version, &replacement.version) {
		t.Fatal("ComparePublish with wrong expectation succeeded")
	}
	if g.Acquire() != &v1.version {
		t.Fatal("failed ComparePublish changed the current version")
	}
	g.Release(&v1.version)

	// Matching expectation succeeds.
	v2 := asGateVersion(g.MakeVersion())
	if !g.ComparePublish(&v1.version, &v2.version) {
		t.Fatal("ComparePublish with matching expectation failed")
	}
	if got := v1.freed.Load(); got != 1 {
		t.Fatalf("replaced version freed %d times, want 1", got)
	}

	// The replaced version is no longer a valid expectation.
	v3 := asGateVersion(g.MakeVersion())
	if g.ComparePublish(&v1.version, &v3.version) {
		t.Fatal("ComparePublish against a retired version succeeded")
	}
	g.Close()
}

// TestGateConcurrent runs readers against a publisher and verifies every
// retired version is freed exactly once, after all its pins are gone.
func TestGateConcurrent(t *testing.T) {
	if RaceEnabled {
		t.Skip("skip: synchronization flows through atomic orderings the race detector cannot model")
	}
	g := newTestGate()

	const versions = 10000
	const readers = 8

	published := make([]*gateVersion, 0, versions)
	first := asGateVersion(g.MakeVersion())
	published = append(published, first)
	g.Publish(&first.version)

	var wg sync.WaitGroup
	var stop atomix.Bool
	for range readers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !stop.Load() {
				v := g.Acquire()
				if v == nil {
					return
				}
				// Touch the container while pinned.
				_ = asGateVersion(v).id
				g.Release(v)
			}
		}()
	}

	for i := 1; i < versions; i++ {
		v := asGateVersion(g.MakeVersion())
		v.id = i
		g.Publish(&v.version)
		published = append(published, v)
	}
	stop.Store(true)
	wg.Wait()
	g.Close()

	for i, v := range published {
		if got := v.freed.Load(); got != 1 {
			t.Fatalf("version %d freed %d times, want 1", i, got)
		}
	}
}
