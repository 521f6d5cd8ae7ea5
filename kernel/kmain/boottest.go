package kmain

import (
	"github.com/anvil-os/anvil/kernel/hal"
	"github.com/anvil-os/anvil/kernel/kfmt"
	"github.com/anvil-os/anvil/kernel/mem/kheap"
	"github.com/anvil-os/anvil/kernel/mem/pmm"
	"github.com/anvil-os/anvil/kernel/mem/vmm"
)

// runBootTests exercises PMM frame reuse, the identity-mapped low 4MiB and
// the kernel heap's split/coalesce path, printing a pass/fail line for
// each. It is gated on the "boottest" cmdline flag and grounded on
// original_source/kernel/core/main.c's equivalent self-check block, which
// runs the same three checks before falling into the scheduler.
func runBootTests() {
	w := hal.ActiveTerminal
	kfmt.Printf(w, "\nRunning boot tests...\n")

	runPMMFrameReuseTest(w)
	runIdentityMapTest(w)
	runHeapRoundTripTest(w)

	kfmt.Printf(w, "Boot tests complete.\n\n")
}

func runPMMFrameReuseTest(w kfmt.Writer) {
	p1, _ := pmm.AllocFrame()
	p2, _ := pmm.AllocFrame()
	p3, _ := pmm.AllocFrame()
	kfmt.Printf(w, "  pmm: allocated 0x%x, 0x%x, 0x%x\n", p1.Address(), p2.Address(), p3.Address())

	pmm.FreeFrame(p2)
	p4, _ := pmm.AllocFrame()
	if p4 == p2 {
		kfmt.Printf(w, "  pmm: freed frame reused - PASS\n")
	} else {
		kfmt.Printf(w, "  pmm: freed frame NOT reused - FAIL\n")
	}

	pmm.FreeFrame(p1)
	pmm.FreeFrame(p3)
	pmm.FreeFrame(p4)
}

func runIdentityMapTest(w kfmt.Writer) {
	const probe = uintptr(0x100000)
	phys, ok := vmm.Translate(probe)
	if ok && phys == probe {
		kfmt.Printf(w, "  paging: identity map at 0x%x - PASS\n", probe)
	} else {
		kfmt.Printf(w, "  paging: identity map at 0x%x - FAIL\n", probe)
	}
}

func runHeapRoundTripTest(w kfmt.Writer) {
	a := kheap.Allocate(32)
	b := kheap.Allocate(64)
	if a == 0 || b == 0 {
		kfmt.Printf(w, "  kheap: allocation returned nil pointer - FAIL\n")
		return
	}

	total, used, free := kheap.Stats()
	kfmt.Printf(w, "  kheap: total=%u used=%u free=%u\n", total, used, free)

	b = kheap.Reallocate(b, 128)
	kheap.Free(a)
	kheap.Free(b)

	total, used, free = kheap.Stats()
	kfmt.Printf(w, "  kheap: after free total=%u used=%u free=%u\n", total, used, free)
	if used == 0 {
		kfmt.Printf(w, "  kheap: split/coalesce round trip - PASS\n")
	} else {
		kfmt.Printf(w, "  kheap: split/coalesce round trip - FAIL\n")
	}
}
