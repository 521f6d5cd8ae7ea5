// Package pic remaps the legacy 8259 cascaded PICs off the CPU exception
// range (0-31) onto vectors 32-47, grounded on
// original_source/kernel/arch/i386/pic.c. gopher-os has no Go equivalent of
// this chip (it targets a Multiboot2 loader on APIC-capable hardware and
// never programs the legacy 8259 itself), so the port-I/O sequence below is
// authored directly from the C source rather than adapted from a Go file.
package pic

import "github.com/anvil-os/anvil/kernel/cpu"

const (
	port1Command = 0x20
	port1Data    = 0x21
	port2Command = 0xA0
	port2Data    = 0xA1

	cmdEOI = 0x20

	icw1Init     = 0x10
	icw1ICW4     = 0x01
	icw4Mode8086 = 0x01
)

// Offset is the master PIC's vector base; the slave is always Offset+8.
const Offset = 32

// Init remaps the master PIC to vector Offset (32) and the slave to
// Offset+8 (40), then masks every line. Callers unmask individual IRQs
// (e.g. pit registers IRQ0) once their handler is installed.
func Init() {
	cpu.Outb(port1Command, icw1Init|icw1ICW4)
	cpu.IoWait()
	cpu.Outb(port2Command, icw1Init|icw1ICW4)
	cpu.IoWait()

	cpu.Outb(port1Data, Offset)
	cpu.IoWait()
	cpu.Outb(port2Data, Offset+8)
	cpu.IoWait()

	cpu.Outb(port1Data, 4) // tell master: slave lives at IRQ2
	cpu.IoWait()
	cpu.Outb(port2Data, 2) // tell slave its cascade identity
	cpu.IoWait()

	cpu.Outb(port1Data, icw4Mode8086)
	cpu.IoWait()
	cpu.Outb(port2Data, icw4Mode8086)
	cpu.IoWait()

	cpu.Outb(port1Data, 0xFF)
	cpu.Outb(port2Data, 0xFF)
}

// EOI acknowledges the in-service IRQ so the PIC can deliver the next one.
func EOI(irq uint8) {
	if irq >= 8 {
		cpu.Outb(port2Command, cmdEOI)
	}
	cpu.Outb(port1Command, cmdEOI)
}

// SetMask disables (masks) the given IRQ line.
func SetMask(irq uint8) {
	port, bit := dataPortAndBit(irq)
	cpu.Outb(port, cpu.Inb(port)|bit)
}

// ClearMask enables (unmasks) the given IRQ line.
func ClearMask(irq uint8) {
	port, bit := dataPortAndBit(irq)
	cpu.Outb(port, cpu.Inb(port)&^bit)
}

func dataPortAndBit(irq uint8) (uint16, uint8) {
	if irq < 8 {
		return port1Data, 1 << irq
	}
	return port2Data, 1 << (irq - 8)
}
