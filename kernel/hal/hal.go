// Package hal wires the concrete VGA console, terminal and COM1 serial port
// together and exposes the ActiveTerminal and ActiveSerial writers the rest
// of the kernel logs through before kheap exists. panic uses both directly,
// matching the spec's "both supplied by out-of-scope modules" phrasing.
package hal

import (
	"github.com/anvil-os/anvil/kernel/driver/serial"
	"github.com/anvil-os/anvil/kernel/driver/tty"
	"github.com/anvil-os/anvil/kernel/driver/video/console"
)

var vgaConsole = &console.Vga{}

// ActiveTerminal is the writer early boot code and panic use for VGA
// output.
var ActiveTerminal = &tty.Vt{}

// ActiveSerial is the writer early boot code and panic use for COM1
// output. Disabled (a no-op) until InitSerial enables it, matching the
// cmdline "earlycon" flag.
var ActiveSerial = &serial.Serial{}

// InitTerminal brings up the VGA console and attaches the terminal to it.
// Fixed 80x25 text mode at 0xB8000; there is no Multiboot framebuffer
// negotiation to do.
func InitTerminal() {
	vgaConsole.Init()
	ActiveTerminal.AttachTo(vgaConsole)
}

// InitSerial programs the UART and enables ActiveSerial. Called only when
// the "earlycon" cmdline flag is present.
func InitSerial() {
	ActiveSerial.Init()
	ActiveSerial.Enabled = true
}
