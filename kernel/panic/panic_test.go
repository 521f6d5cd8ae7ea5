package panic

import (
	"strings"
	"testing"

	"github.com/anvil-os/anvil/kernel/irq"
)

type buf struct {
	sb strings.Builder
}

func (b *buf) WriteByte(c byte) error {
	b.sb.WriteByte(c)
	return nil
}

func (b *buf) Write(p []byte) (int, error) {
	return b.sb.Write(p)
}

func reset(t *testing.T) (*buf, *buf) {
	t.Helper()
	vga, serial := &buf{}, &buf{}
	vgaOut, serialOut = vga, serial
	haltFn = func() {}
	return vga, serial
}

func TestPanicWritesToBothOutputs(t *testing.T) {
	vga, serial := reset(t)

	Panic("disk read failed at sector %d", 42)

	for _, out := range []*buf{vga, serial} {
		s := out.sb.String()
		if !strings.Contains(s, "KERNEL PANIC") {
			t.Error("expected banner in output")
		}
		if !strings.Contains(s, "disk read failed at sector 42") {
			t.Error("expected formatted message in output")
		}
		if !strings.Contains(s, "System halted") {
			t.Error("expected footer in output")
		}
	}
}

func TestRegsDumpsFrame(t *testing.T) {
	vga, serial := reset(t)

	frame := &irq.Frame{EIP: 0xCAFEBABE, CS: 0x08, EAX: 1, IntNo: 14, ErrCode: 0x2}
	Regs(frame, "page fault")

	for _, out := range []*buf{vga, serial} {
		s := out.sb.String()
		if !strings.Contains(s, "cafebabe") {
			t.Errorf("expected EIP in hex in dump; got %q", s)
		}
		if !strings.Contains(s, "INT: 14") {
			t.Errorf("expected decimal INT in dump; got %q", s)
		}
	}
}

func TestPanicCallsHalt(t *testing.T) {
	reset(t)

	halted := false
	haltFn = func() { halted = true }

	Panic("stop")
	if !halted {
		t.Error("expected Panic to call haltFn")
	}
}
