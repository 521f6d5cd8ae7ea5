// Package pmm implements a flat first-fit physical frame allocator backed
// by a single bitmap, grounded on original_source/kernel/core/pmm.c. This
// replaces the teacher's pooled BitmapAllocator (kernel/mem/pmm/allocator),
// which splits memory into one pool per Multiboot-2 region behind a
// two-stage bootmem-then-bitmap bring-up; that design exists to serve
// gopher-os's non-contiguous region handling, which this kernel's simpler
// memory model does not need. Frame still comes from the teacher's
// frame.go, which needs no changes for a flat allocator.
package pmm

import (
	"reflect"
	"unsafe"

	"github.com/anvil-os/anvil/kernel"
	"github.com/anvil-os/anvil/kernel/hal/multiboot"
	"github.com/anvil-os/anvil/kernel/mem"
)

const wordBits = 32

var (
	bitmap      []uint32
	totalFrames uint32
	freeFrames  uint32

	errOutOfMemory = &kernel.Error{Module: "pmm", Message: "out of physical memory"}
)

// Init sizes the frame bitmap to cover every frame up to the highest
// address the Multiboot memory map reports (or mem_lower+mem_upper when no
// map is present), places it word-aligned right after kernelEnd, marks
// every frame used, then frees the available regions the memory map names
// before re-reserving [0, kernelEnd+bitmap) so the kernel image and the
// bitmap's own backing store can never be handed out.
func Init(kernelEnd uintptr) {
	totalFrames = highestFrame()
	words := (totalFrames + wordBits - 1) / wordBits

	base := (kernelEnd + 3) &^ 3
	bitmap = sliceAt(base, words)
	for i := range bitmap {
		bitmap[i] = 0xFFFFFFFF
	}
	freeFrames = 0

	if multiboot.HasMemoryMap() {
		multiboot.VisitMemRegions(func(r multiboot.MemRegion) bool {
			if r.Type == multiboot.Available {
				markRegionFree(uintptr(r.Addr), mem.Size(r.Len))
			}
			return true
		})
	} else {
		// No memory map: everything above the first MiB (BIOS, VGA, etc.)
		// is assumed free.
		markRegionFree(uintptr(1*mem.Mb), mem.Size(multiboot.MemUpper())*mem.Kb)
	}

	bitmapEnd := base + uintptr(words)*4
	markRegionUsed(0, mem.Size(bitmapEnd))
}

func highestFrame() uint32 {
	if !multiboot.HasMemoryMap() {
		total := mem.Size(multiboot.MemLower()+multiboot.MemUpper()) * mem.Kb
		return uint32(total / mem.PageSize)
	}

	var highest uint64
	multiboot.VisitMemRegions(func(r multiboot.MemRegion) bool {
		if end := r.Addr + r.Len; end > highest {
			highest = end
		}
		return true
	})
	return uint32(highest / uint64(mem.PageSize))
}

func sliceAt(addr uintptr, words uint32) []uint32 {
	var s []uint32
	hdr := (*reflect.SliceHeader)(unsafe.Pointer(&s))
	hdr.Data = addr
	hdr.Len = int(words)
	hdr.Cap = int(words)
	return s
}

func frameUsed(frame uint32) bool {
	return bitmap[frame/wordBits]&(1<<(frame%wordBits)) != 0
}

func markFrameUsed(frame uint32) {
	if frame >= totalFrames {
		return
	}
	if !frameUsed(frame) {
		bitmap[frame/wordBits] |= 1 << (frame % wordBits)
		freeFrames--
	}
}

func markFrameFree(frame uint32) {
	if frame >= totalFrames {
		return
	}
	if frameUsed(frame) {
		bitmap[frame/wordBits] &^= 1 << (frame % wordBits)
		freeFrames++
	}
}

func markRegionUsed(start uintptr, length mem.Size) {
	if length == 0 {
		return
	}
	startFrame := uint32(start / uintptr(mem.PageSize))
	endFrame := uint32((start + uintptr(length) - 1) / uintptr(mem.PageSize))
	for f := startFrame; f <= endFrame; f++ {
		markFrameUsed(f)
	}
}

func markRegionFree(start uintptr, length mem.Size) {
	if length == 0 {
		return
	}
	startFrame := uint32(start / uintptr(mem.PageSize))
	endFrame := uint32((start + uintptr(length) - 1) / uintptr(mem.PageSize))
	for f := startFrame; f <= endFrame; f++ {
		markFrameFree(f)
	}
}

// AllocFrame returns the first free frame, marking it used, or
// errOutOfMemory once every frame up to totalFrames is taken.
func AllocFrame() (Frame, *kernel.Error) {
	for i, word := range bitmap {
		if word == 0xFFFFFFFF {
			continue
		}
		for bit := uint32(0); bit < wordBits; bit++ {
			frame := uint32(i)*wordBits + bit
			if frame >= totalFrames {
				return InvalidFrame, errOutOfMemory
			}
			if word&(1<<bit) == 0 {
				markFrameUsed(frame)
				return Frame(frame), nil
			}
		}
	}
	return InvalidFrame, errOutOfMemory
}

// FreeFrame returns a previously allocated frame to the pool.
func FreeFrame(f Frame) {
	markFrameFree(uint32(f))
}

// TotalMemory, FreeMemory and UsedMemory report the physical memory
// manager's bookkeeping in bytes.
func TotalMemory() mem.Size { return mem.Size(totalFrames) * mem.PageSize }
func FreeMemory() mem.Size  { return mem.Size(freeFrames) * mem.PageSize }
func UsedMemory() mem.Size  { return mem.Size(totalFrames-freeFrames) * mem.PageSize }
