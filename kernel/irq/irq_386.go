package irq

import (
	"unsafe"

	"github.com/anvil-os/anvil/kernel/gdt"
	"github.com/anvil-os/anvil/kernel/idt"
	"github.com/anvil-os/anvil/kernel/kfmt"
	"github.com/anvil-os/anvil/kernel/pic"
)

// Handler is the parameterless flavor of an interrupt handler.
type Handler func()

// HandlerWithFrame receives the trap frame and may mutate it; the stub
// restores registers from whatever this handler left behind. Used by SCHED
// and the page-fault handler.
type HandlerWithFrame func(*Frame)

var (
	exceptionHandlers     [32]HandlerWithFrame
	irqHandlers           [16]Handler
	irqHandlersWithFrame  [16]HandlerWithFrame
	yieldHandler          HandlerWithFrame

	// panicFn points at kernel/panic.Regs in production; kept as a
	// variable to avoid an import cycle (panic imports irq for irq.Frame,
	// so irq cannot import panic).
	panicFn = func(frame *Frame, format string, args ...interface{}) {
		kfmt.Printf(nopWriter{}, format, args...)
	}
)

type nopWriter struct{}

func (nopWriter) WriteByte(byte) error      { return nil }
func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

// SetPanicFn installs the function called when an unhandled CPU exception
// is dispatched. panic.Wire, called by kernel/kmain during bring-up, wires
// this to panic.Regs.
func SetPanicFn(fn func(frame *Frame, format string, args ...interface{})) {
	panicFn = fn
}

// RegisterExceptionHandler installs a handler for CPU exception vector n
// (0-31), e.g. the page-fault handler at vector 14.
func RegisterExceptionHandler(n int, handler HandlerWithFrame) {
	exceptionHandlers[n] = handler
}

// RegisterHandler installs a parameterless handler for irq (0-15).
func RegisterHandler(irqNo uint8, handler Handler) {
	irqHandlers[irqNo] = handler
}

// RegisterHandlerWithFrame installs a frame-mutating handler for irq
// (0-15). Used by pit to register the scheduler-aware tick handler.
func RegisterHandlerWithFrame(irqNo uint8, handler HandlerWithFrame) {
	irqHandlersWithFrame[irqNo] = handler
}

// RegisterYieldHandler installs the handler invoked by int 0x81 (cooperative
// yield). Wired to sched.Schedule by kernel/kmain.
func RegisterYieldHandler(handler HandlerWithFrame) {
	yieldHandler = handler
}

// dispatchException is called by every isrN stub with a pointer to the
// frame it built. Exported (lowercase but linked from assembly by name) the
// same way the teacher links runtime hooks via go:linkname, except here the
// call is a plain CALL from hand-written .s rather than a runtime patch.
//
//go:nosplit
func dispatchException(frame *Frame) {
	n := frame.IntNo
	if int(n) < len(exceptionHandlers) && exceptionHandlers[n] != nil {
		exceptionHandlers[n](frame)
		return
	}
	panicFn(frame, "Unhandled CPU Exception: %s (INT %u)", ExceptionNames[n], n)
}

// dispatchIRQ is called by every irqN stub. After the handler (if any)
// returns, EOI is sent unconditionally, ensuring the PIC always sees one
// EOI per IRQ it delivered regardless of whether a handler was registered.
//
//go:nosplit
func dispatchIRQ(frame *Frame) {
	irqNo := uint8(frame.IntNo - 32)

	if irqNo < 16 {
		if h := irqHandlersWithFrame[irqNo]; h != nil {
			h(frame)
		} else if h := irqHandlers[irqNo]; h != nil {
			h()
		}
	}

	pic.EOI(irqNo)
}

// dispatchYield is called by the int 0x81 stub.
//
//go:nosplit
func dispatchYield(frame *Frame) {
	if yieldHandler != nil {
		yieldHandler(frame)
	}
}

// stub declares one ISR/IRQ entry point implemented in irq_386.s. Each has
// no Go body; the assembler fills in the code that builds the Frame and
// calls dispatchException/dispatchIRQ/dispatchYield.
type stub func()

var isrStubs = [32]stub{
	isr0, isr1, isr2, isr3, isr4, isr5, isr6, isr7,
	isr8, isr9, isr10, isr11, isr12, isr13, isr14, isr15,
	isr16, isr17, isr18, isr19, isr20, isr21, isr22, isr23,
	isr24, isr25, isr26, isr27, isr28, isr29, isr30, isr31,
}

var irqStubs = [16]stub{
	irq0, irq1, irq2, irq3, irq4, irq5, irq6, irq7,
	irq8, irq9, irq10, irq11, irq12, irq13, irq14, irq15,
}

func isr0()
func isr1()
func isr2()
func isr3()
func isr4()
func isr5()
func isr6()
func isr7()
func isr8()
func isr9()
func isr10()
func isr11()
func isr12()
func isr13()
func isr14()
func isr15()
func isr16()
func isr17()
func isr18()
func isr19()
func isr20()
func isr21()
func isr22()
func isr23()
func isr24()
func isr25()
func isr26()
func isr27()
func isr28()
func isr29()
func isr30()
func isr31()

func irq0()
func irq1()
func irq2()
func irq3()
func irq4()
func irq5()
func irq6()
func irq7()
func irq8()
func irq9()
func irq10()
func irq11()
func irq12()
func irq13()
func irq14()
func irq15()

func irq81() // int 0x81, cooperative yield

// funcPC recovers the entry address of a bodyless top-level function value.
// Go represents a non-closure func value as a pointer to a single-word
// funcval whose word is the code pointer itself; this is the same
// unsafe-pointer-chasing idiom gVisor and other bare-metal Go projects use
// in place of runtime.funcPC, which is not exported.
func funcPC(f stub) uintptr {
	return **(**uintptr)(unsafe.Pointer(&f))
}

// Init installs all 48 ISR/IRQ gates plus the yield vector into the IDT.
// Must run after gdt.Init and idt.Init.
func Init() {
	for n := 0; n < 32; n++ {
		idt.SetGate(n, funcPC(isrStubs[n]), gdt.SelectorKernelCode, idt.GateRing0In32)
	}
	for n := 0; n < 16; n++ {
		idt.SetGate(32+n, funcPC(irqStubs[n]), gdt.SelectorKernelCode, idt.GateRing0In32)
	}
	idt.SetGate(YieldVector, funcPC(irq81), gdt.SelectorKernelCode, idt.GateRing0In32)
}
