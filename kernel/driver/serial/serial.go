// Package serial drives the COM1 UART as an early diagnostic console,
// grounded on original_source/kernel/arch/i386/early_console.c. It is an
// out-of-scope collaborator per the core spec: the core only ever sees it as
// a kfmt.Writer.
package serial

import "github.com/anvil-os/anvil/kernel/cpu"

const (
	port = 0x3F8 // COM1

	regData        = port + 0
	regDivisorLow  = port + 0
	regIntEnable   = port + 1
	regDivisorHigh = port + 1
	regFifoCtrl    = port + 2
	regLineCtrl    = port + 3
	regModemCtrl   = port + 4
	regLineStatus  = port + 5

	lineStatusTxEmpty = 1 << 5
)

// Serial is a COM1 writer. Enabled gates whether WriteByte actually emits
// anything; with Enabled false it is a no-op, matching the cmdline
// "earlycon" flag semantics (off unless explicitly requested).
type Serial struct {
	Enabled bool
}

// Init programs the UART for 38400 8N1 with FIFOs enabled.
func (s *Serial) Init() {
	cpu.Outb(regIntEnable, 0x00) // disable interrupts
	cpu.Outb(regLineCtrl, 0x80)  // enable DLAB to set baud divisor
	cpu.Outb(regDivisorLow, 0x03)
	cpu.Outb(regDivisorHigh, 0x00) // divisor 3 => 38400 baud
	cpu.Outb(regLineCtrl, 0x03)    // 8N1, DLAB off
	cpu.Outb(regFifoCtrl, 0xC7)    // enable FIFO, clear, 14-byte threshold
	cpu.Outb(regModemCtrl, 0x0B)   // DTR/RTS set, IRQs enabled on the wire
}

func (s *Serial) isTransmitEmpty() bool {
	return cpu.Inb(regLineStatus)&lineStatusTxEmpty != 0
}

// WriteByte implements io.ByteWriter. \n is translated to \r\n, matching
// EConPutChar's behavior. A no-op when Enabled is false.
func (s *Serial) WriteByte(b byte) error {
	if !s.Enabled {
		return nil
	}

	if b == '\n' {
		s.putRaw('\r')
	}
	s.putRaw(b)
	return nil
}

// Write implements io.Writer.
func (s *Serial) Write(data []byte) (int, error) {
	for _, b := range data {
		s.WriteByte(b)
	}
	return len(data), nil
}

func (s *Serial) putRaw(b byte) {
	for !s.isTransmitEmpty() {
	}
	cpu.Outb(regData, b)
}
