// Package kmain sequences kernel bring-up: it is the boot orchestrator
// named in spec §2, grounded on original_source/kernel/core/main.c's
// KMain. gopher-os's own kernel/kmain.Kmain inits only as far as its
// allocator (it never reaches a scheduler), so the ordering of the calls
// below up through kheap is adapted from that file while the PIC/PIT/
// SCHED bring-up past it is authored directly from main.c, which is the
// only reference that boots all the way into multitasking.
package kmain

import (
	"unsafe"

	"github.com/anvil-os/anvil/kernel/cpu"
	"github.com/anvil-os/anvil/kernel/gdt"
	"github.com/anvil-os/anvil/kernel/hal"
	"github.com/anvil-os/anvil/kernel/hal/multiboot"
	"github.com/anvil-os/anvil/kernel/idt"
	"github.com/anvil-os/anvil/kernel/irq"
	"github.com/anvil-os/anvil/kernel/kfmt"
	"github.com/anvil-os/anvil/kernel/mem"
	"github.com/anvil-os/anvil/kernel/mem/kheap"
	"github.com/anvil-os/anvil/kernel/mem/pmm"
	"github.com/anvil-os/anvil/kernel/mem/vmm"
	"github.com/anvil-os/anvil/kernel/panic"
	"github.com/anvil-os/anvil/kernel/pic"
	"github.com/anvil-os/anvil/kernel/pit"
	"github.com/anvil-os/anvil/kernel/sched"

	// Imported for its side effect only: its init() references the
	// pmm/vmm-backed allocator hooks so they are kept in the binary.
	_ "github.com/anvil-os/anvil/kernel/goruntime"
)

// tickFrequencyHz is the rate pit.Init programs channel 0 to, matching
// original_source/kernel/core/main.c's PitInitialize(100) call.
const tickFrequencyHz = 100

// Kmain is the kernel's Go entry point, invoked once by the rt0 trampoline
// (stub.go) after it has built a minimal g0 and handed off a boot stack.
// multibootInfoPtr, kernelStart and kernelEnd are the raw addresses the
// bootloader and link script provide; see spec §6. Kmain sequences C1
// through C7 exactly as spec §2's control-flow table describes, then
// idles forever. It is not expected to return.
//
//go:noinline
func Kmain(multibootInfoPtr, kernelStart, kernelEnd uintptr) {
	multiboot.SetInfoPtr(multibootInfoPtr)

	hal.InitTerminal()
	hal.ActiveTerminal.Clear()
	if multiboot.HasFlag("earlycon") {
		hal.InitSerial()
	}

	w := hal.ActiveTerminal
	kfmt.Printf(w, "anvil\nBooting kernel...\n\n")
	kfmt.Printf(hal.ActiveSerial, "\n=== anvil boot log ===\n")
	kfmt.Printf(hal.ActiveSerial, "multiboot info at 0x%x\n", multibootInfoPtr)
	kfmt.Printf(hal.ActiveSerial, "kernel image: 0x%x - 0x%x\n", kernelStart, kernelEnd)

	gdt.Init()
	logStep(w, "GDT")

	idt.Init()
	logStep(w, "IDT")

	irq.Init()
	logStep(w, "IRQ/ISR")

	panic.Wire()
	vmm.RegisterExceptionHandlers()

	pic.Init()
	logStep(w, "PIC")

	pit.Init(tickFrequencyHz)
	logStep(w, "PIT")
	kfmt.Printf(w, "  tick rate: %u Hz\n", pit.Frequency())

	pmm.Init(kernelEnd)
	logStep(w, "PMM")
	kfmt.Printf(w, "  memory: %u MB total, %u MB free\n",
		uint32(pmm.TotalMemory()/mem.Mb), uint32(pmm.FreeMemory()/mem.Mb))

	if err := vmm.Init(); err != nil {
		panic.Panic("failed to initialize paging: %s", err.Error())
	}
	logStep(w, "paging")

	kheap.Init()
	logStep(w, "kernel heap")

	if multiboot.HasFlag("boottest") {
		runBootTests()
	}

	if multiboot.HasFlag("testpanic") {
		panic.Panic("requested via testpanic cmdline flag (value: %d)", 42)
	}

	if multiboot.HasFlag("testpagefault") {
		kfmt.Printf(w, "\ntriggering a page fault at 0xDEADBEEF...\n")
		badPtr := (*uint32)(unsafe.Pointer(uintptr(0xDEADBEEF)))
		_ = *badPtr
	}

	sched.Init()
	logStep(w, "scheduler")

	createDemoTasks()

	pit.RegisterTickHandler(sched.Schedule)
	irq.RegisterYieldHandler(sched.Schedule)
	sched.EnableScheduler()

	kfmt.Printf(w, "\nenabling interrupts... ")
	cpu.EnableInterrupts()
	kfmt.Printf(w, "OK\n\nmultitasking started\n")

	for {
		cpu.Halt()
	}
}

func logStep(w kfmt.Writer, name string) {
	kfmt.Printf(w, "%s initialized\n", name)
}
