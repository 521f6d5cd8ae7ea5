// Package goruntime provides pmm/vmm-backed versions of the Go runtime's
// sysReserve/sysMap/sysAlloc memory hooks, grounded on gopher-os's
// kernel/goruntime/bootstrap.go. Any map, slice growth, closure or interface
// allocation anywhere in the kernel (sched's entryFns map, hal/multiboot's
// cmdline flag map, ...) ends up in runtime.sysAlloc, and there is no host
// OS underneath to mmap from. The three hooks below share the runtime
// functions' signatures; this file binds only mSysStatInc with go:linkname
// and does not itself link the three hooks over the runtime's own symbols.
//
// This replaces the teacher's version of these three hooks, which reserve
// a region once via vmm.EarlyReserveRegion and then establish a
// copy-on-write mapping per page (vmm.ReservedZeroedFrame, FlagCopyOnWrite)
// against its 4-level amd64 walker. This kernel's vmm (kernel/mem/vmm) is a
// flat two-level i386 mapper with no CoW and no notion of a reserved-but-
// unbacked region, so reservation and backing collapse into one bump
// pointer over a fixed arena, with physical frames from pmm committed
// page-by-page exactly as kheap.expand does for the kernel heap.
package goruntime

import (
	"unsafe"

	"github.com/anvil-os/anvil/kernel/mem"
	"github.com/anvil-os/anvil/kernel/mem/pmm"
	"github.com/anvil-os/anvil/kernel/mem/vmm"
)

// arenaStart sits exactly at kheap's exclusive ceiling
// (kernel/mem/kheap.heapMax) so the Go runtime's own arena and the kernel's hand-rolled heap can never
// collide even though both ultimately draw frames from the same pmm pool.
const arenaStart = uintptr(261 * mem.Mb)

var (
	arenaNext = arenaStart

	mapFn        = vmm.Map
	allocFrameFn = pmm.AllocFrame
)

//go:linkname mSysStatInc runtime.mSysStatInc
func mSysStatInc(*uint64, uintptr)

func pageAlignUp(n uintptr) uintptr {
	return (n + uintptr(mem.PageSize) - 1) &^ (uintptr(mem.PageSize) - 1)
}

// reserveAndMap bumps the arena pointer by size (rounded up to a page) and
// maps every page in the span to a freshly allocated frame. Returns the nil
// pointer if pmm runs out of frames partway through; pages already mapped
// in that case are left mapped, matching kheap.expand's no-rollback policy.
func reserveAndMap(size uintptr) unsafe.Pointer {
	regionSize := pageAlignUp(size)
	addr := arenaNext
	arenaNext += regionSize

	for page := addr; page < addr+regionSize; page += uintptr(mem.PageSize) {
		frame, err := allocFrameFn()
		if err != nil {
			return nil
		}
		if mapErr := mapFn(page, frame, vmm.FlagRW); mapErr != nil {
			return nil
		}
	}

	return unsafe.Pointer(addr)
}

// sysReserve reserves address space without allocating any memory or
// establishing any page mappings.
//
// This function replaces runtime.sysReserve and is required for initializing
// the Go allocator.
//
//go:nosplit
func sysReserve(_ unsafe.Pointer, size uintptr, reserved *bool) unsafe.Pointer {
	regionSize := pageAlignUp(size)
	addr := arenaNext
	arenaNext += regionSize

	*reserved = true
	return unsafe.Pointer(addr)
}

// sysMap commits pages within a region previously handed out by sysReserve.
// Since sysReserve never actually maps anything here, sysMap's job is
// identical to sysAlloc's save for the already-advanced arena pointer; it
// maps starting at virtAddr rather than bumping again.
//
// This function replaces runtime.sysMap and is required for initializing
// the Go allocator.
//
//go:nosplit
func sysMap(virtAddr unsafe.Pointer, size uintptr, reserved bool, sysStat *uint64) unsafe.Pointer {
	if !reserved {
		panic("sysMap should only be called with reserved=true")
	}

	regionStart := pageAlignUp(uintptr(virtAddr))
	regionSize := pageAlignUp(size)

	for page := regionStart; page < regionStart+regionSize; page += uintptr(mem.PageSize) {
		frame, err := allocFrameFn()
		if err != nil {
			return unsafe.Pointer(uintptr(0))
		}
		if mapErr := mapFn(page, frame, vmm.FlagRW); mapErr != nil {
			return unsafe.Pointer(uintptr(0))
		}
	}

	mSysStatInc(sysStat, uintptr(regionSize))
	return unsafe.Pointer(regionStart)
}

// sysAlloc reserves enough physical frames to satisfy the allocation
// request and establishes a contiguous virtual page mapping for them,
// returning a pointer to the region start.
//
// This function replaces runtime.sysAlloc and is required for initializing
// the Go allocator.
//
//go:nosplit
func sysAlloc(size uintptr, sysStat *uint64) unsafe.Pointer {
	ptr := reserveAndMap(size)
	if ptr == nil {
		return unsafe.Pointer(uintptr(0))
	}
	mSysStatInc(sysStat, uintptr(pageAlignUp(size)))
	return ptr
}

func init() {
	// Dummy calls so the compiler does not optimize away the functions in
	// this file; nothing outside this file calls them.
	var (
		reserved bool
		stat     uint64
		zeroPtr  = unsafe.Pointer(uintptr(0))
	)

	sysReserve(zeroPtr, 0, &reserved)
	sysMap(zeroPtr, 0, reserved, &stat)
	sysAlloc(0, &stat)
}
