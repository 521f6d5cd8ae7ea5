// Package irq defines the canonical trap frame pushed by every exception
// and IRQ entry stub, and dispatches to registered per-vector handlers.
// Grounded on original_source/kernel/arch/i386/isr.c and irq.c; gopher-os
// has no equivalent (its vmm.pageFaultHandler is invoked from the amd64
// runtime's own trap machinery, not a hand-rolled IDT), so the stub/struct
// shape here is carried over from the C side and expressed per spec §9's
// "mutable reference to a packed TrapFrame with explicit field order".
package irq

// Frame is the register snapshot built by every ISR/IRQ entry stub, bit for
// bit in the order the assembly in irq_386.s pushes it. SCHED mutates this
// in place to perform a context switch; the stub restores from whatever is
// here when it returns, not from what the CPU originally pushed.
type Frame struct {
	DS uint32

	// pusha order: last pushed (edi) sits at the lowest address, hence
	// first in this struct.
	EDI, ESI, EBP, ESP, EBX, EDX, ECX, EAX uint32

	IntNo, ErrCode uint32

	// CPU-pushed tail.
	EIP, CS, EFLAGS, UserESP, SS uint32
}

// ExceptionNames holds the 32 CPU exception mnemonics, indexed by vector,
// used by the ISR dispatcher to name an unhandled exception in the panic
// banner. Matches original_source/kernel/arch/i386/isr.c's
// exceptionMessages table exactly.
var ExceptionNames = [32]string{
	"Division By Zero",
	"Debug",
	"Non Maskable Interrupt",
	"Breakpoint",
	"Into Detected Overflow",
	"Out of Bounds",
	"Invalid Opcode",
	"No Coprocessor",
	"Double Fault",
	"Coprocessor Segment Overrun",
	"Bad TSS",
	"Segment Not Present",
	"Stack Fault",
	"General Protection Fault",
	"Page Fault",
	"Unknown Interrupt",
	"Coprocessor Fault",
	"Alignment Check",
	"Machine Check",
	"SIMD Floating-Point Exception",
	"Reserved",
	"Reserved",
	"Reserved",
	"Reserved",
	"Reserved",
	"Reserved",
	"Reserved",
	"Reserved",
	"Reserved",
	"Reserved",
	"Reserved",
	"Reserved",
}

// YieldVector is the software interrupt used by the cooperative yield path
// (int 0x81). Its stub builds the same Frame as any other vector, so
// preemption and yield share one context-switch code path.
const YieldVector = 0x81
