// Package kheap implements the kernel's general-purpose allocator: a
// singly-linked list of first-fit free blocks that grows on demand by
// requesting frames from pmm and mapping them via vmm. Grounded on
// original_source/kernel/core/kheap.c; gopher-os has no equivalent (Go
// programs get their allocator from the runtime), so the block-header
// shape and split/coalesce rules below are a direct Go expression of the
// C reference rather than an adaptation of a Go file.
package kheap

import (
	"unsafe"

	"github.com/anvil-os/anvil/kernel/errors"
	"github.com/anvil-os/anvil/kernel/mem"
	"github.com/anvil-os/anvil/kernel/mem/pmm"
	"github.com/anvil-os/anvil/kernel/mem/vmm"
)

const (
	heapStart = uintptr(5 * mem.Mb)
	heapMax   = uintptr(261 * mem.Mb)

	blockAlign     = 16
	minExpandPages = 4
)

// block is the header prefixed to every allocated or free region. next
// chains blocks in ascending address order; there is no separate free
// list, matching the reference allocator's single ordered list.
type block struct {
	size uint32
	free bool
	next *block
}

var headerSize = uintptr(unsafe.Sizeof(block{}))

var (
	heapEnd    uintptr
	firstBlock *block

	total uint64
	used  uint64
	free  uint64

	allocFrameFn = pmm.AllocFrame
	freeFrameFn  = pmm.FreeFrame
	mapFn        = vmm.Map
)

func alignUp(n, align uintptr) uintptr {
	return (n + align - 1) &^ (align - 1)
}

// Init resets the heap to empty at HEAP_START; the first page is
// committed lazily by the first Allocate call that misses the (empty)
// block list.
func Init() {
	heapEnd = heapStart
	firstBlock = nil
	total, used, free = 0, 0, 0
}

// Stats reports {total, used, free} with used+free == total, modulo the
// bytes spent on block headers when a block is split.
func Stats() (totalBytes, usedBytes, freeBytes uint64) {
	return total, used, free
}

func blockAt(addr uintptr) *block {
	return (*block)(unsafe.Pointer(addr))
}

func addrOf(b *block) uintptr {
	return uintptr(unsafe.Pointer(b))
}

// expand commits increment bytes (rounded up to a page) of fresh heap,
// mapping each page from a newly allocated frame, and appends one new
// free block covering the span. Pages already mapped when a later page in
// the same call fails to allocate are left mapped; only the expansion as
// a whole reports failure.
func expand(increment uintptr) error {
	increment = alignUp(increment, uintptr(mem.PageSize))

	if heapEnd+increment > heapMax {
		return errors.ErrHeapExhausted
	}

	for addr := heapEnd; addr < heapEnd+increment; addr += uintptr(mem.PageSize) {
		frame, err := allocFrameFn()
		if err != nil {
			return errors.ErrHeapExhausted
		}
		if mapErr := mapFn(addr, frame, vmm.FlagRW); mapErr != nil {
			freeFrameFn(frame)
			return errors.ErrHeapExhausted
		}
	}

	newBlock := blockAt(heapEnd)
	newBlock.size = uint32(increment) - uint32(headerSize)
	newBlock.free = true
	newBlock.next = nil

	if firstBlock == nil {
		firstBlock = newBlock
	} else {
		tail := firstBlock
		for tail.next != nil {
			tail = tail.next
		}
		tail.next = newBlock
	}

	heapEnd += increment
	total += uint64(newBlock.size)
	free += uint64(newBlock.size)

	return nil
}

// Allocate returns a pointer to size usable bytes, or 0 if the heap could
// not be expanded to satisfy the request. size is rounded up to a 16-byte
// boundary.
func Allocate(size uintptr) uintptr {
	if size == 0 {
		return 0
	}
	size = alignUp(size, blockAlign)

	for cur := firstBlock; cur != nil; cur = cur.next {
		if !cur.free || uintptr(cur.size) < size {
			continue
		}

		if uintptr(cur.size) >= size+headerSize+blockAlign {
			remainder := blockAt(addrOf(cur) + headerSize + size)
			remainder.size = cur.size - uint32(size) - uint32(headerSize)
			remainder.free = true
			remainder.next = cur.next

			cur.size = uint32(size)
			cur.next = remainder

			free -= uint64(size) + uint64(headerSize)
		} else {
			free -= uint64(cur.size)
		}

		cur.free = false
		used += uint64(cur.size)
		return addrOf(cur) + headerSize
	}

	expandSize := alignUp(size+headerSize, uintptr(mem.PageSize))
	if minSize := minExpandPages * uintptr(mem.PageSize); expandSize < minSize {
		expandSize = minSize
	}
	if err := expand(expandSize); err != nil {
		return 0
	}

	return Allocate(size)
}

// Free returns ptr (as previously returned by Allocate) to the heap. The
// null pointer is a no-op.
func Free(ptr uintptr) {
	if ptr == 0 {
		return
	}

	b := blockAt(ptr - headerSize)
	b.free = true
	used -= uint64(b.size)
	free += uint64(b.size)

	mergeAdjacentFree()
}

// mergeAdjacentFree sweeps the block list once, merging any run of
// contiguous free blocks into one.
func mergeAdjacentFree() {
	for cur := firstBlock; cur != nil && cur.next != nil; {
		if cur.free && cur.next.free && addrOf(cur)+headerSize+uintptr(cur.size) == addrOf(cur.next) {
			cur.size += uint32(headerSize) + cur.next.size
			cur.next = cur.next.next
			continue
		}
		cur = cur.next
	}
}

// Reallocate resizes the allocation at ptr to size bytes, copying the
// overlap and freeing the old block if it moved. (nil, n) behaves like
// Allocate(n); (p, 0) behaves like Free(p).
func Reallocate(ptr, size uintptr) uintptr {
	if ptr == 0 {
		return Allocate(size)
	}
	if size == 0 {
		Free(ptr)
		return 0
	}

	b := blockAt(ptr - headerSize)
	if uintptr(b.size) >= size {
		return ptr
	}

	newPtr := Allocate(size)
	if newPtr == 0 {
		return 0
	}

	mem.Memcopy(ptr, newPtr, mem.Size(minUintptr(uintptr(b.size), size)))
	Free(ptr)
	return newPtr
}

func minUintptr(a, b uintptr) uintptr {
	if a < b {
		return a
	}
	return b
}
