// Package vmm implements the two-level x86 page directory/page table
// manager, grounded on original_source/kernel/core/paging.c. This replaces
// the teacher's generic N-level, recursively-mapped amd64 walker
// (kernel/mem/vmm/{pdt,map,translate,tlb}.go), which exists to support a
// 4-level long-mode page table and copy-on-write; this kernel targets
// 32-bit protected mode with exactly two levels and no CoW, so the walk
// collapses to a fixed two-step PDE/PTE lookup and inactive-PDT support is
// dropped (there is only ever one page directory in v1 -- SCHED gives
// every task the same kernel directory).
package vmm

import (
	"unsafe"

	"github.com/anvil-os/anvil/kernel"
	"github.com/anvil-os/anvil/kernel/cpu"
	"github.com/anvil-os/anvil/kernel/mem"
	"github.com/anvil-os/anvil/kernel/mem/pmm"
)

const (
	entriesPerTable = 1024

	dirIndexShift = 22
	dirIndexMask  = 0x3FF
	tblIndexShift = 12
	tblIndexMask  = 0x3FF

	// identityMapEnd is the extent of the low identity mapping Init
	// establishes before enabling paging: the kernel image, the PMM
	// bitmap and the page directory/table frames used to build that
	// mapping itself all must already lie below this address.
	identityMapEnd = 4 * uintptr(mem.Mb)
)

type pageTable [entriesPerTable]entry

var (
	directory *pageTable

	switchPDTFn     = cpu.SwitchPDT
	enablePagingFn  = cpu.EnablePaging
	flushTLBEntryFn = cpu.FlushTLBEntry
	allocFrameFn    = pmm.AllocFrame
	cpuActivePDTFn  = cpu.ActivePDT

	errOutOfMemory = &kernel.Error{Module: "vmm", Message: "out of physical memory while allocating a page table"}
)

func tableAt(addr uintptr) *pageTable {
	return (*pageTable)(unsafe.Pointer(addr))
}

// Init allocates the kernel page directory, identity-maps [0, 4 MiB) with
// FlagPresent|FlagRW, loads it into cr3 and sets CR0.PG. Must run after
// pmm.Init. After this call every address below identityMapEnd is its own
// physical image; addresses above it are valid only once Map is called for
// them (KHEAP does this on demand).
func Init() *kernel.Error {
	dirFrame, err := allocFrameFn()
	if err != nil {
		return err
	}

	directory = tableAt(dirFrame.Address())
	for i := range directory {
		directory[i] = 0
	}

	for addr := uintptr(0); addr < identityMapEnd; addr += uintptr(mem.PageSize) {
		if err := mapPage(addr, pmm.Frame(addr>>mem.PageShift), FlagPresent|FlagRW); err != nil {
			return err
		}
	}

	switchPDTFn(dirFrame.Address())
	enablePagingFn()
	return nil
}

// pageTableFor returns the page table covering virtAddr, allocating and
// zeroing a new one if create is true and none is present yet.
func pageTableFor(virtAddr uintptr, create bool) (*pageTable, *kernel.Error) {
	pdIndex := (virtAddr >> dirIndexShift) & dirIndexMask
	pde := &directory[pdIndex]

	if pde.HasFlags(FlagPresent) {
		return tableAt(pde.Frame().Address()), nil
	}
	if !create {
		return nil, nil
	}

	tableFrame, err := allocFrameFn()
	if err != nil {
		return nil, errOutOfMemory
	}

	table := tableAt(tableFrame.Address())
	for i := range table {
		table[i] = 0
	}

	*pde = 0
	pde.SetFrame(tableFrame)
	pde.SetFlags(FlagPresent | FlagRW)

	return table, nil
}
