// Package gdt builds the flat-model Global Descriptor Table: one null
// descriptor plus ring-0 and ring-3 code/data segments, all base 0, limit
// 4 GiB, 4 KiB granularity, 32-bit. Segmentation is otherwise unused; paging
// does the real memory protection.
package gdt

import "unsafe"

const entryCount = 5

// Segment selectors installed by Init, reused by idt/irq when building
// interrupt gates and by sched when painting initial task frames.
const (
	SelectorKernelCode uint16 = 0x08
	SelectorKernelData uint16 = 0x10
	SelectorUserCode   uint16 = 0x1B // RPL 3
	SelectorUserData   uint16 = 0x23 // RPL 3
)

const (
	accessPresent   = 1 << 7
	accessRing3     = 3 << 5
	accessSegment   = 1 << 4
	accessExec      = 1 << 3
	accessRW        = 1 << 1
	granularity4K   = 1 << 7
	granularity32BC = 1 << 6
)

type entry struct {
	limitLow  uint16
	baseLow   uint16
	baseMid   uint8
	access    uint8
	granLimit uint8 // high nibble: flags, low nibble: limit bits 16-19
	baseHigh  uint8
}

type pointer struct {
	limit uint16
	base  uint32
}

var table [entryCount]entry

func setGate(i int, base uint32, limit uint32, access uint8, gran uint8) {
	table[i] = entry{
		limitLow:  uint16(limit & 0xFFFF),
		baseLow:   uint16(base & 0xFFFF),
		baseMid:   uint8((base >> 16) & 0xFF),
		access:    access,
		granLimit: uint8((limit>>16)&0x0F) | (gran & 0xF0),
		baseHigh:  uint8((base >> 24) & 0xFF),
	}
}

// Init builds the five descriptors, loads GDTR via lgdt and reloads every
// segment register.
func Init() {
	setGate(0, 0, 0, 0, 0) // null descriptor

	setGate(1, 0, 0xFFFFF, accessPresent|accessSegment|accessExec|accessRW, granularity4K|granularity32BC)
	setGate(2, 0, 0xFFFFF, accessPresent|accessSegment|accessRW, granularity4K|granularity32BC)
	setGate(3, 0, 0xFFFFF, accessPresent|accessRing3|accessSegment|accessExec|accessRW, granularity4K|granularity32BC)
	setGate(4, 0, 0xFFFFF, accessPresent|accessRing3|accessSegment|accessRW, granularity4K|granularity32BC)

	ptr := pointer{
		limit: uint16(unsafe.Sizeof(table)) - 1,
		base:  uint32(uintptr(unsafe.Pointer(&table[0]))),
	}
	flush(uintptr(unsafe.Pointer(&ptr)))
}

// flush is implemented in gdt_386.s; it issues lgdt against the pointer at
// ptrAddr and reloads cs/ds/es/fs/gs/ss with SelectorKernelCode/Data.
func flush(ptrAddr uintptr)
