package vmm

// Translate walks the page directory/table for virtAddr and returns the
// corresponding physical address, or ok=false if either the PDE or the PTE
// is not present.
func Translate(virtAddr uintptr) (physAddr uintptr, ok bool) {
	table, err := pageTableFor(virtAddr, false)
	if err != nil || table == nil {
		return 0, false
	}

	ptIndex := (virtAddr >> tblIndexShift) & tblIndexMask
	pte := &table[ptIndex]
	if !pte.HasFlags(FlagPresent) {
		return 0, false
	}

	return pte.Frame().Address() | (virtAddr & 0xFFF), true
}

// ActiveDirectory returns the physical address currently loaded in cr3.
func ActiveDirectory() uintptr {
	return cpuActivePDTFn()
}
