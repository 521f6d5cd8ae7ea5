package vmm

import "github.com/anvil-os/anvil/kernel/mem/pmm"

// Flag is a bit in a page directory or page table entry. The same bits are
// recognized at both levels except Dirty (PTE only) and PSE (PDE only), per
// the i386 paging format.
type Flag uint32

const (
	FlagPresent      Flag = 1 << 0
	FlagRW           Flag = 1 << 1
	FlagUser         Flag = 1 << 2
	FlagWriteThrough Flag = 1 << 3
	FlagNoCache      Flag = 1 << 4
	FlagAccessed     Flag = 1 << 5
	FlagDirty        Flag = 1 << 6 // PTE only
	FlagPSE          Flag = 1 << 7 // PDE only
	FlagGlobal       Flag = 1 << 8

	frameMask = ^uintptr(0xFFF)
)

// entry is a single PDE or PTE: the top 20 bits address a 4 KiB-aligned
// frame, the low 12 carry flags.
type entry uint32

func (e *entry) Frame() pmm.Frame {
	return pmm.Frame(uintptr(*e) & frameMask >> 12)
}

func (e *entry) SetFrame(f pmm.Frame) {
	*e = entry(uintptr(*e)&^frameMask | (f.Address() & frameMask))
}

func (e *entry) HasFlags(flags Flag) bool {
	return uint32(*e)&uint32(flags) == uint32(flags)
}

func (e *entry) SetFlags(flags Flag) {
	*e |= entry(flags)
}

func (e *entry) ClearFlags(flags Flag) {
	*e &^= entry(flags)
}
