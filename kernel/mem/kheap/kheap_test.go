package kheap

import (
	"testing"
	"unsafe"

	"github.com/anvil-os/anvil/kernel"
	"github.com/anvil-os/anvil/kernel/mem"
	"github.com/anvil-os/anvil/kernel/mem/pmm"
	"github.com/anvil-os/anvil/kernel/mem/vmm"
)

// resetWithRealBacking rigs allocFrameFn/mapFn so expand() commits pages
// backed by real Go-owned memory instead of physical frames, and so Map
// never has to touch a page table. Each committed page is kept alive in
// backing for the lifetime of the test so the GC cannot reclaim it out
// from under the heap.
func resetWithRealBacking(t *testing.T) {
	t.Helper()

	backing := make(map[uintptr][]byte)

	allocFrameFn = func() (pmm.Frame, *kernel.Error) {
		buf := make([]byte, mem.PageSize)
		addr := uintptr(unsafe.Pointer(&buf[0]))
		backing[addr] = buf
		return pmm.Frame(addr >> mem.PageShift), nil
	}
	freeFrameFn = func(pmm.Frame) {}
	mapFn = func(virtAddr uintptr, frame pmm.Frame, flags vmm.Flag) *kernel.Error {
		return nil
	}
}

func TestAllocateFreeRoundtrip(t *testing.T) {
	Init()
	resetWithRealBacking(t)

	a := Allocate(64)
	if a == 0 {
		t.Fatal("expected non-zero allocation")
	}

	totalBefore, usedBefore, _ := Stats()
	if usedBefore == 0 {
		t.Error("expected used bytes to be non-zero after allocation")
	}
	if totalBefore == 0 {
		t.Error("expected total to be non-zero once the heap has expanded")
	}

	Free(a)
	_, usedAfter, _ := Stats()
	if usedAfter != 0 {
		t.Errorf("expected used bytes to return to 0 after Free; got %d", usedAfter)
	}
}

func TestAllocateSplitsLargeBlock(t *testing.T) {
	Init()
	resetWithRealBacking(t)

	a := Allocate(32)
	b := Allocate(32)
	if a == 0 || b == 0 {
		t.Fatal("expected both allocations to succeed")
	}
	if a == b {
		t.Fatal("expected distinct allocations to return distinct pointers")
	}
}

func TestFreeMergesAdjacentBlocks(t *testing.T) {
	Init()
	resetWithRealBacking(t)

	a := Allocate(32)
	b := Allocate(32)
	Free(a)
	Free(b)

	// After freeing both adjacent blocks, a single larger allocation
	// that would not fit in either 32-byte block alone should be carved
	// from the start of the merged block (a's address), proving they were
	// coalesced; without the merge, first-fit would skip both.
	_, _, freeBefore := Stats()
	c := Allocate(64)
	if c == 0 {
		t.Fatal("expected allocation to succeed from the merged block")
	}
	if c != a {
		t.Errorf("expected the 64-byte allocation at the merged block %x; got %x", a, c)
	}
	_, _, freeAfter := Stats()
	if freeAfter >= freeBefore {
		t.Error("expected free bytes to shrink after allocating from the merged block")
	}
}

func TestAllocateZeroReturnsZero(t *testing.T) {
	Init()
	resetWithRealBacking(t)

	if got := Allocate(0); got != 0 {
		t.Errorf("expected Allocate(0) to return 0; got %x", got)
	}
}

func TestFreeNilIsNoop(t *testing.T) {
	Init()
	resetWithRealBacking(t)
	Free(0)
}

func TestReallocateGrows(t *testing.T) {
	Init()
	resetWithRealBacking(t)

	a := Allocate(16)
	b := Reallocate(a, 128)
	if b == 0 {
		t.Fatal("expected Reallocate to succeed")
	}
}

func TestReallocateNilActsAsAllocate(t *testing.T) {
	Init()
	resetWithRealBacking(t)

	if got := Reallocate(0, 16); got == 0 {
		t.Error("expected Reallocate(0, n) to behave like Allocate(n)")
	}
}

func TestReallocateZeroActsAsFree(t *testing.T) {
	Init()
	resetWithRealBacking(t)

	a := Allocate(16)
	if got := Reallocate(a, 0); got != 0 {
		t.Errorf("expected Reallocate(p, 0) to return 0; got %x", got)
	}
}
