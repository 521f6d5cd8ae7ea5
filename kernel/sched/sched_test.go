package sched

import (
	"testing"
	"unsafe"

	"github.com/anvil-os/anvil/kernel/irq"
)

// resetWithFakeAllocator backs PCB/stack allocation with real Go memory
// instead of kheap, and nils out the hardware-facing hooks, mirroring the
// convention vmm and kheap's own tests use. backing keeps every allocated
// buffer alive for the duration of the test.
func resetWithFakeAllocator(t *testing.T) {
	t.Helper()

	backing := make([][]byte, 0, 16)
	allocateFn = func(size uintptr) uintptr {
		buf := make([]byte, size)
		backing = append(backing, buf)
		return uintptr(unsafe.Pointer(&buf[0]))
	}
	switchPDTFn = func(uintptr) {}
	activePDTFn = func() uintptr { return 0 }

	Init()
	entryFns = map[uint32]func(){}
}

func TestCreateEnqueuesReady(t *testing.T) {
	resetWithFakeAllocator(t)

	p, err := Create("taskA", ModeKernel, func() {})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if p.State != StateReady {
		t.Errorf("expected new PCB to be READY; got %v", p.State)
	}
	if readyHead != p || readyTail != p {
		t.Error("expected the new PCB to be the sole entry on the ready queue")
	}
	if p.Context.EIP == 0 {
		t.Error("expected Context.EIP to be painted with processEntry's address")
	}
}

func TestCreateAllocationFailureReportsNoFreeTask(t *testing.T) {
	resetWithFakeAllocator(t)
	allocateFn = func(uintptr) uintptr { return 0 }

	if _, err := Create("taskA", ModeKernel, func() {}); err == nil {
		t.Fatal("expected Create to fail when kheap allocation fails")
	}
}

func TestScheduleNoOpUntilEnabled(t *testing.T) {
	resetWithFakeAllocator(t)
	Create("taskA", ModeKernel, func() {})

	frame := &irq.Frame{}
	Schedule(frame)

	if current.PID != 0 {
		t.Error("expected Schedule to be a no-op before EnableScheduler")
	}
}

func TestScheduleRoundRobinFairness(t *testing.T) {
	resetWithFakeAllocator(t)
	EnableScheduler()

	a, _ := Create("a", ModeKernel, func() {})
	b, _ := Create("b", ModeKernel, func() {})

	frame := &irq.Frame{}

	// idle (pid 0) is current; the first Schedule call should switch to a.
	Schedule(frame)
	if current != a {
		t.Fatalf("expected first schedule to pick task a; got pid %d", current.PID)
	}

	Schedule(frame)
	if current != b {
		t.Fatalf("expected second schedule to pick task b; got pid %d", current.PID)
	}

	Schedule(frame)
	if current.PID != 0 {
		t.Fatalf("expected third schedule to cycle back to idle; got pid %d", current.PID)
	}
}

func TestTimesliceDecrementsAndResets(t *testing.T) {
	resetWithFakeAllocator(t)
	EnableScheduler()

	a, _ := Create("a", ModeKernel, func() {})

	frame := &irq.Frame{}
	Schedule(frame) // idle -> a; Schedule resets a.Timeslice to the default

	current.Timeslice = 1
	Schedule(frame) // a's timeslice hits 0 on this tick, resets to 10, requeued
	if a.Timeslice != defaultTimeslice {
		t.Errorf("expected timeslice to reset to %d once exhausted; got %d", defaultTimeslice, a.Timeslice)
	}
}

func TestExitedTaskNeverRunsAgain(t *testing.T) {
	resetWithFakeAllocator(t)
	EnableScheduler()

	a, _ := Create("a", ModeKernel, func() {})
	b, _ := Create("b", ModeKernel, func() {})

	frame := &irq.Frame{}
	Schedule(frame) // idle -> a
	current.State = StateTerminated

	Schedule(frame) // a terminated, dropped; b scheduled in
	if current != b {
		t.Fatalf("expected b to run after a terminates; got pid %d", current.PID)
	}

	Schedule(frame) // b -> idle; a must not reappear
	if current.PID != 0 {
		t.Fatalf("expected idle to run; got pid %d", current.PID)
	}
	Schedule(frame)
	if current != b {
		t.Fatalf("expected only b to cycle back, never a; got pid %d", current.PID)
	}
}

func TestBlockUnblock(t *testing.T) {
	resetWithFakeAllocator(t)
	EnableScheduler()

	a, _ := Create("a", ModeKernel, func() {})

	frame := &irq.Frame{}
	Schedule(frame) // idle -> a

	current.State = StateBlocked
	Schedule(frame) // a blocked, not requeued; falls back to idle
	if current.PID != 0 {
		t.Fatalf("expected idle to run while a is blocked; got pid %d", current.PID)
	}

	Unblock(a)
	if a.State != StateReady {
		t.Error("expected Unblock to move a blocked task back to READY")
	}
	Schedule(frame)
	if current != a {
		t.Fatalf("expected a to run again after Unblock; got pid %d", current.PID)
	}
}

func TestSchedulePageDirectorySwitch(t *testing.T) {
	resetWithFakeAllocator(t)
	EnableScheduler()

	var switched []uintptr
	switchPDTFn = func(pdt uintptr) { switched = append(switched, pdt) }

	a, _ := Create("a", ModeKernel, func() {})
	a.PageDirectory = 0xDEAD000

	Schedule(&irq.Frame{})
	if len(switched) != 1 || switched[0] != 0xDEAD000 {
		t.Errorf("expected a CR3 switch to a's page directory; got %v", switched)
	}
}
