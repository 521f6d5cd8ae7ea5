// Package idt manages the 256-entry Interrupt Descriptor Table. irq
// installs individual vectors; this package only owns the table storage and
// the load sequence, grounded on original_source/kernel/arch/i386/idt.c.
package idt

import "unsafe"

const entryCount = 256

// Gate flag bits for a 32-bit ring-0 interrupt gate, as required by every
// vector this kernel installs (spec §4.1).
const (
	FlagPresent  = 1 << 7
	FlagRing0    = 0 << 5
	FlagGate32   = 0x0E
	GateRing0In32 = FlagPresent | FlagRing0 | FlagGate32 // 0x8E
)

type entry struct {
	offsetLow  uint16
	selector   uint16
	zero       uint8
	flags      uint8
	offsetHigh uint16
}

type pointer struct {
	limit uint16
	base  uint32
}

var table [entryCount]entry

// SetGate installs handler at vector n with the given segment selector and
// gate flags. Used by irq.Init to install all 48 ISR/IRQ vectors.
func SetGate(n int, handler uintptr, selector uint16, flags uint8) {
	table[n] = entry{
		offsetLow:  uint16(handler & 0xFFFF),
		selector:   selector,
		zero:       0,
		flags:      flags,
		offsetHigh: uint16(handler >> 16),
	}
}

// Init clears the table and loads IDTR via lidt. Must run after gdt.Init
// (the kernel code selector it will reference must already be valid) and
// before irq.Init installs any gate.
func Init() {
	for i := range table {
		table[i] = entry{}
	}

	ptr := pointer{
		limit: uint16(unsafe.Sizeof(table)) - 1,
		base:  uint32(uintptr(unsafe.Pointer(&table[0]))),
	}
	flush(uintptr(unsafe.Pointer(&ptr)))
}

// flush is implemented in idt_386.s; issues lidt against the pointer at
// ptrAddr.
func flush(ptrAddr uintptr)
