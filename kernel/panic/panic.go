// Package panic implements the kernel panic path: disable interrupts, print
// a banner plus a formatted message to both the VGA terminal and the serial
// port, optionally dump the trap frame, then halt forever. Grounded on
// original_source/kernel/core/panic.c; its VidWriteString/serialWriteString
// call pairs collapse here into a single kfmt.Printf call against a writer
// that fans out to both, since kfmt.Writer already models exactly the
// "single capability to put a byte" the design notes ask for, and calling
// it twice per line the way the C does would just be repetition.
package panic

import (
	"github.com/anvil-os/anvil/kernel/cpu"
	"github.com/anvil-os/anvil/kernel/hal"
	"github.com/anvil-os/anvil/kernel/irq"
	"github.com/anvil-os/anvil/kernel/kfmt"
	"github.com/anvil-os/anvil/kernel/mem/vmm"
)

// broadcastWriter fans every byte out to both the VGA terminal and the
// serial port, held as kfmt.Writer vars rather than direct hal references
// so tests can swap in buffers instead of touching real VGA memory or the
// UART.
type broadcastWriter struct{}

var (
	vgaOut    kfmt.Writer = hal.ActiveTerminal
	serialOut kfmt.Writer = hal.ActiveSerial
)

func (broadcastWriter) WriteByte(b byte) error {
	vgaOut.WriteByte(b)
	serialOut.WriteByte(b)
	return nil
}

func (w broadcastWriter) Write(p []byte) (int, error) {
	for _, b := range p {
		w.WriteByte(b)
	}
	return len(p), nil
}

var out = broadcastWriter{}

// haltFn is called once all output has been written. A var rather than a
// direct call to haltForever so tests can observe a panic completing
// without actually looping forever.
var haltFn = haltForever

const (
	banner = "\n\n!!! KERNEL PANIC !!!\n" +
		"================================================================================\n"
	footer = "\n================================================================================\n" +
		"System halted.\n"
)

// Panic prints a banner and the formatted message, then halts. It never
// returns; callers do not need a trailing return statement but one is
// conventional since the compiler cannot see haltForever never exits.
func Panic(format string, args ...interface{}) {
	cpu.DisableInterrupts()
	kfmt.Printf(out, banner)
	kfmt.Printf(out, format, args...)
	kfmt.Printf(out, "\n")
	kfmt.Printf(out, footer)
	haltFn()
}

// Regs is like Panic but also dumps the trap frame. irq's unhandled-
// exception path and vmm's page-fault/GPF handlers call this through
// SetPanicFn.
func Regs(frame *irq.Frame, format string, args ...interface{}) {
	cpu.DisableInterrupts()
	kfmt.Printf(out, banner)
	kfmt.Printf(out, format, args...)
	kfmt.Printf(out, "\n\nCPU Register Dump:\n")
	kfmt.Printf(out, "  EIP: 0x%x  CS: 0x%x  EFLAGS: 0x%x\n", frame.EIP, frame.CS, frame.EFLAGS)
	kfmt.Printf(out, "  EAX: 0x%x  EBX: 0x%x  ECX: 0x%x  EDX: 0x%x\n", frame.EAX, frame.EBX, frame.ECX, frame.EDX)
	kfmt.Printf(out, "  ESP: 0x%x  EBP: 0x%x  ESI: 0x%x  EDI: 0x%x\n", frame.ESP, frame.EBP, frame.ESI, frame.EDI)
	kfmt.Printf(out, "  DS:  0x%x  SS:  0x%x\n", frame.DS, frame.SS)
	kfmt.Printf(out, "  INT: %u  ERR: 0x%x\n", frame.IntNo, frame.ErrCode)
	kfmt.Printf(out, footer)
	haltFn()
}

func haltForever() {
	for {
		cpu.Halt()
	}
}

// Wire installs Regs as the handler irq and vmm call on an unhandled
// exception or page/GPF fault. Called once from kmain during bring-up.
func Wire() {
	irq.SetPanicFn(Regs)
	vmm.SetPanicFn(Regs)
}
