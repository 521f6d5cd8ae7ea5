package tty

import (
	"testing"
	"unsafe"

	"github.com/anvil-os/anvil/kernel/driver/video/console"
)

func newTestConsole(fb []uint16) console.Vga {
	var cons console.Vga
	cons.InitAt(80, 25, uintptr(unsafe.Pointer(&fb[0])))
	return cons
}

func TestVtPosition(t *testing.T) {
	specs := []struct {
		inX, inY   uint16
		expX, expY uint16
	}{
		{20, 20, 20, 20},
		{100, 20, 79, 20},
		{10, 200, 10, 24},
		{100, 100, 79, 24},
	}

	fb := make([]uint16, 80*25)
	cons := newTestConsole(fb)

	var vt Vt
	vt.AttachTo(&cons)

	if w, h := vt.Dimensions(); w != 80 || h != 25 {
		t.Fatalf("expected dimensions 80x25; got %dx%d", w, h)
	}

	for specIndex, spec := range specs {
		vt.SetPosition(spec.inX, spec.inY)
		if x, y := vt.Position(); x != spec.expX || y != spec.expY {
			t.Errorf("[spec %d] expected position (%d, %d); got (%d, %d)", specIndex, spec.expX, spec.expY, x, y)
		}
	}
}

func TestVtWrite(t *testing.T) {
	fb := make([]uint16, 80*25)
	cons := newTestConsole(fb)

	var vt Vt
	vt.AttachTo(&cons)

	vt.Clear()
	vt.SetPosition(0, 1)
	vt.Write([]byte("12\n\t3\n4\r567\b8"))

	specs := []struct {
		x, y    uint16
		expChar byte
	}{
		{0, 1, '1'},
		{1, 1, '2'},
		{0, 2, ' '},
		{1, 2, ' '},
		{2, 2, ' '},
		{3, 2, ' '},
		{4, 2, '3'},
		{0, 3, '5'},
		{1, 3, '6'},
		{2, 3, '8'}, // overwritten by backspace
	}

	for specIndex, spec := range specs {
		ch := byte(fb[(spec.y*80)+spec.x] & 0xFF)
		if ch != spec.expChar {
			t.Errorf("[spec %d] expected char at (%d, %d) to be %c; got %c", specIndex, spec.x, spec.y, spec.expChar, ch)
		}
	}
}

func TestVtWrapsWithoutScroll(t *testing.T) {
	fb := make([]uint16, 80*25)
	cons := newTestConsole(fb)

	var vt Vt
	vt.AttachTo(&cons)

	vt.SetPosition(0, 24)
	vt.Write([]byte("\nX"))

	if x, y := vt.Position(); x != 1 || y != 0 {
		t.Fatalf("expected wrap to (1, 0) after last row; got (%d, %d)", x, y)
	}

	if ch := byte(fb[0] & 0xFF); ch != 'X' {
		t.Fatalf("expected wrapped write to land at row 0; got char %c", ch)
	}
}
