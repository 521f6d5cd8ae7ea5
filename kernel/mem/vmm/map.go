package vmm

import (
	"github.com/anvil-os/anvil/kernel"
	"github.com/anvil-os/anvil/kernel/mem/pmm"
)

// ErrInvalidMapping is returned by Unmap when asked to unmap a virtual
// address with no page table installed for it.
var ErrInvalidMapping = &kernel.Error{Module: "vmm", Message: "address has no page table mapped"}

// Map installs a mapping from the page containing virtAddr to frame with
// the given flags, allocating a new page table via PMM if the covering PDE
// is not yet present. The PDE itself is always installed with
// Present|RW; per-page protection lives entirely in the PTE, matching
// pagingGetPageTable's behavior in the reference implementation.
func Map(virtAddr uintptr, frame pmm.Frame, flags Flag) *kernel.Error {
	return mapPage(virtAddr, frame, flags)
}

func mapPage(virtAddr uintptr, frame pmm.Frame, flags Flag) *kernel.Error {
	table, err := pageTableFor(virtAddr, true)
	if err != nil {
		return err
	}

	ptIndex := (virtAddr >> tblIndexShift) & tblIndexMask
	pte := &table[ptIndex]

	*pte = 0
	pte.SetFrame(frame)
	pte.SetFlags(FlagPresent | flags)

	flushTLBEntryFn(virtAddr)
	return nil
}

// Unmap clears the mapping for the page containing virtAddr. The page
// table itself is left in place even if this was its last present entry;
// tables are never freed back to PMM in v1 (documented limitation).
func Unmap(virtAddr uintptr) *kernel.Error {
	table, err := pageTableFor(virtAddr, false)
	if err != nil {
		return err
	}
	if table == nil {
		return ErrInvalidMapping
	}

	ptIndex := (virtAddr >> tblIndexShift) & tblIndexMask
	table[ptIndex].ClearFlags(FlagPresent)
	flushTLBEntryFn(virtAddr)
	return nil
}
