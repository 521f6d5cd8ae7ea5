// Package cpu exposes the handful of privileged x86 instructions the kernel
// needs that Go cannot express directly: segment/descriptor table loads,
// interrupt masking, TLB control and port I/O. Each declaration below has no
// body; the implementation lives in cpu_386.s and is linked in by the
// toolchain purely by symbol name, the same convention gopher-os uses for its
// cpu_amd64.go/.s pair.
package cpu

// EnableInterrupts sets EFLAGS.IF via sti.
func EnableInterrupts()

// DisableInterrupts clears EFLAGS.IF via cli.
func DisableInterrupts()

// Halt executes hlt. Returns when an unmasked interrupt fires.
func Halt()

// FlushTLBEntry invalidates the TLB entry covering virtAddr via invlpg.
func FlushTLBEntry(virtAddr uintptr)

// SwitchPDT loads pdtPhysAddr into cr3, flushing the entire TLB.
func SwitchPDT(pdtPhysAddr uintptr)

// ActivePDT returns the physical address currently loaded in cr3.
func ActivePDT() uintptr

// EnablePaging sets CR0.PG, turning on paging for whatever page directory
// is already loaded in cr3. Callers must load a valid PDT via SwitchPDT
// first, and that PDT must identity-map the code calling EnablePaging.
func EnablePaging()

// ReadCR2 returns the faulting linear address recorded by the last page
// fault.
func ReadCR2() uintptr

// Outb writes a byte to the given I/O port.
func Outb(port uint16, value uint8)

// Inb reads a byte from the given I/O port.
func Inb(port uint16) uint8

// IoWait burns a few cycles by writing to an unused port (0x80), giving old
// hardware time to process the previous out/in. Used after PIC/PIT
// programming sequences.
func IoWait()
