// Package pit drives the 8253/8254 Programmable Interval Timer on IRQ0,
// grounded on original_source/kernel/arch/i386/pit.c. gopher-os has no
// equivalent (it relies on the local APIC timer), so the command/divisor
// sequence below is authored directly from the C source.
package pit

import (
	"github.com/anvil-os/anvil/kernel/cpu"
	"github.com/anvil-os/anvil/kernel/irq"
	"github.com/anvil-os/anvil/kernel/pic"
)

const (
	channel0 = 0x40
	command  = 0x43

	baseFreq = 1193182

	// commandByte selects channel 0, lobyte/hibyte access, mode 3 (square
	// wave generator), binary (not BCD) counting.
	commandByte = 0x36
)

var (
	ticks     uint64
	frequency uint32
	tickFn    func(*irq.Frame)
)

// Init programs the PIT to fire at the given frequency (clamped to the
// range representable by the 16-bit divisor) and unmasks IRQ0. Must run
// after irq.Init and pic.Init.
func Init(freqHz uint32) {
	divisor := baseFreq / freqHz
	if divisor < 1 {
		divisor = 1
	}
	if divisor > 65535 {
		divisor = 65535
	}
	frequency = baseFreq / divisor

	cpu.Outb(command, commandByte)
	cpu.Outb(channel0, uint8(divisor&0xFF))
	cpu.Outb(channel0, uint8((divisor>>8)&0xFF))

	irq.RegisterHandlerWithFrame(0, pitIrqHandler)
	pic.ClearMask(0)
}

// RegisterTickHandler installs a handler invoked on every tick after the
// internal tick count is updated. Used by SCHED to drive round-robin
// preemption.
func RegisterTickHandler(handler func(*irq.Frame)) {
	tickFn = handler
}

// Ticks returns the number of timer ticks delivered since Init.
func Ticks() uint64 { return ticks }

// Frequency returns the actual programmed frequency in Hz, which may differ
// slightly from the requested one due to divisor rounding.
func Frequency() uint32 { return frequency }

func pitIrqHandler(frame *irq.Frame) {
	ticks++
	if tickFn != nil {
		tickFn(frame)
	}
}
