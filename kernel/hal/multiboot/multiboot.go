// Package multiboot decodes the Multiboot-1 information structure a
// compliant bootloader leaves for the kernel, and the command line it
// carries. Unlike gopher-os's Multiboot-2 tag scanner (which this package
// replaces, walking a TLV stream via findTagByType), Multiboot-1 hands over
// one flat struct, so this package is a set of field readers instead of a
// tag walk.
package multiboot

import (
	"reflect"
	"strings"
	"unsafe"
)

const (
	flagMemInfo = 1 << 0
	flagCmdLine = 1 << 2
	flagMmap    = 1 << 6
)

// info mirrors the leading fields of the Multiboot-1 information structure.
// Only the fields this kernel consumes are declared; fields after
// mmapLength/mmapAddr are never read.
type info struct {
	flags uint32

	memLower uint32
	memUpper uint32

	bootDevice uint32

	cmdline uint32

	modsCount uint32
	modsAddr  uint32

	_ [4]uint32 // syms (a.out or ELF section header table, unused)

	mmapLength uint32
	mmapAddr   uint32
}

// mmapEntry mirrors one Multiboot-1 memory map entry. size does not count
// itself; the stride to the next entry is size + 4.
type mmapEntry struct {
	size uint32
	addr uint64
	len  uint64
	typ  uint32
}

// MemRegionType enumerates the Multiboot-1 memory map entry types.
type MemRegionType uint32

// Available is the only region type the PMM may hand out frames from.
const Available MemRegionType = 1

// MemRegion describes one decoded memory map entry.
type MemRegion struct {
	Addr uint64
	Len  uint64
	Type MemRegionType
}

var infoPtr *info

// SetInfoPtr records the Multiboot info structure address passed in EBX at
// boot. Must be called before any other function in this package.
func SetInfoPtr(ptr uintptr) {
	infoPtr = (*info)(unsafe.Pointer(ptr))
}

// HasMemInfo reports whether mem_lower/mem_upper are valid (flag bit 0).
func HasMemInfo() bool {
	return infoPtr != nil && infoPtr.flags&flagMemInfo != 0
}

// MemLower and MemUpper return the BIOS-reported KiB counts below and above
// 1 MiB. Only meaningful when HasMemInfo is true.
func MemLower() uint32 { return infoPtr.memLower }
func MemUpper() uint32 { return infoPtr.memUpper }

// HasMemoryMap reports whether mmap_addr/mmap_length are valid (flag bit 6).
func HasMemoryMap() bool {
	return infoPtr != nil && infoPtr.flags&flagMmap != 0
}

// MemRegionVisitor is invoked once per decoded memory map entry. Returning
// false stops the scan early.
type MemRegionVisitor func(MemRegion) bool

// VisitMemRegions walks the Multiboot memory map, if present, calling visit
// for every entry.
func VisitMemRegions(visit MemRegionVisitor) {
	if !HasMemoryMap() {
		return
	}

	cur := uintptr(infoPtr.mmapAddr)
	end := cur + uintptr(infoPtr.mmapLength)

	for cur < end {
		e := (*mmapEntry)(unsafe.Pointer(cur))
		if !visit(MemRegion{Addr: e.addr, Len: e.len, Type: MemRegionType(e.typ)}) {
			return
		}
		cur += uintptr(e.size) + 4
	}
}

var flags map[string]string

// cmdLineString returns the raw, NUL-terminated command line as a Go string
// without copying it, the same reflect.SliceHeader trick the teacher's
// older multiboot snapshot used for tag payloads.
func cmdLineString() string {
	if infoPtr == nil || infoPtr.flags&flagCmdLine == 0 || infoPtr.cmdline == 0 {
		return ""
	}

	base := uintptr(infoPtr.cmdline)
	length := 0
	for *(*byte)(unsafe.Pointer(base + uintptr(length))) != 0 {
		length++
	}

	var s string
	hdr := (*reflect.StringHeader)(unsafe.Pointer(&s))
	hdr.Data = base
	hdr.Len = length
	return s
}

// parseCmdLine tokenizes the command line into whitespace-separated
// key=value or bare-flag tokens, the same splitting rule the teacher's
// GetBootCmdLine used against the Multiboot-2 cmdline tag.
func parseCmdLine() {
	flags = make(map[string]string)

	raw := cmdLineString()
	if len(raw) > 256 {
		raw = raw[:256]
	}

	for _, tok := range strings.Fields(raw) {
		if i := strings.IndexByte(tok, '='); i >= 0 {
			flags[tok[:i]] = tok[i+1:]
		} else {
			flags[tok] = ""
		}
	}
}

// HasFlag reports whether the given boolean token is present on the command
// line, e.g. HasFlag("earlycon").
func HasFlag(name string) bool {
	if flags == nil {
		parseCmdLine()
	}
	_, ok := flags[name]
	return ok
}

// Value returns the value of a key=value command line token.
func Value(name string) (string, bool) {
	if flags == nil {
		parseCmdLine()
	}
	v, ok := flags[name]
	return v, ok
}
