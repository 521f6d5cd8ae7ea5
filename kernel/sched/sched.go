// Package sched implements process control blocks, a round-robin ready
// queue and context switching through the canonical trap frame. Grounded
// on original_source/kernel/core/process.c; gopher-os has no scheduler at
// all (it never gets past memory-management bring-up), so the PCB shape,
// the FIFO ready queue and the save/restore sequence below are a direct
// Go expression of the C reference rather than an adaptation of a
// gopher-os file.
package sched

import (
	"unsafe"

	"github.com/anvil-os/anvil/kernel/cpu"
	"github.com/anvil-os/anvil/kernel/errors"
	"github.com/anvil-os/anvil/kernel/gdt"
	"github.com/anvil-os/anvil/kernel/irq"
	"github.com/anvil-os/anvil/kernel/mem/kheap"
)

// State is a PCB's lifecycle stage.
type State uint8

const (
	StateReady State = iota
	StateRunning
	StateBlocked
	StateTerminated
)

// Mode selects the privilege level a PCB runs at. User mode is modeled but
// unused in v1: every task sched.Create hands out today runs at ring 0.
type Mode uint8

const (
	ModeKernel Mode = iota
	ModeUser
)

const (
	kernelStackSize  = 8 * 1024
	defaultTimeslice = 10
)

// Context mirrors every irq.Frame field except IntNo and ErrCode, in the
// same order. It is the authoritative copy
// of a READY or BLOCKED process's registers; a RUNNING process's
// authoritative copy lives on the CPU and on the interrupt frame currently
// in flight on its kernel stack.
type Context struct {
	DS                                     uint32
	EDI, ESI, EBP, ESP, EBX, EDX, ECX, EAX uint32
	EIP, CS, EFLAGS, UserESP, SS           uint32
}

// PCB is a process control block. Create allocates it from kheap, not from
// the Go allocator, so it can be addressed as a raw pointer the same way the
// dispatcher addresses an irq.Frame; only the idle PCB built by Init is an
// ordinary Go allocation.
type PCB struct {
	PID             uint32
	Name            [32]byte
	State           State
	Mode            Mode
	Context         Context
	KernelStackBase uintptr
	UserStackBase   uintptr
	PageDirectory   uintptr
	Timeslice       uint32
	Priority        uint32
	next            *PCB
}

// entryFns maps a PID to the live entry closure Create was given, since a
// raw kernel stack slot cannot safely hold a Go closure pointer once this
// memory stops being tracked by the allocator that handed it out (unlike
// the C trampoline, which pushes a raw function pointer for the new stack
// frame to read at [ebp+4]). processEntry resolves its task's entry
// function through Current().PID instead of reading anything off the
// stack; see entry_386.go.
var (
	current              *PCB
	readyHead, readyTail *PCB
	nextPID              uint32 = 1
	enabled              bool

	entryFns = map[uint32]func(){}

	allocateFn  = kheap.Allocate
	switchPDTFn = cpu.SwitchPDT
	activePDTFn = cpu.ActivePDT
)

func setName(p *PCB, name string) {
	n := copy(p.Name[:len(p.Name)-1], name)
	p.Name[n] = 0
}

// Init installs the idle PCB (pid 0) as current, representing the boot
// context that called Init. Once preempted it is requeued like any other
// RUNNING task, so it takes its turn in the round-robin rotation.
func Init() {
	current = &PCB{
		PID:           0,
		State:         StateRunning,
		Mode:          ModeKernel,
		Timeslice:     defaultTimeslice,
		PageDirectory: activePDTFn(),
	}
	setName(current, "idle")
	nextPID = 1
	readyHead, readyTail = nil, nil
	enabled = false
}

// Current returns the presently running PCB.
func Current() *PCB { return current }

// entryStub is the type funcPC expects. processEntry (entry_386.go) has a
// real Go body, unlike irq's isrN stubs, but funcPC works on any
// non-closure top-level func value, stub or not — it just reads the
// funcval's code pointer.
type entryStub func()

func funcPC(f entryStub) uintptr {
	return **(**uintptr)(unsafe.Pointer(&f))
}

// Create allocates a PCB and an 8 KiB kernel stack from kheap, paints the
// top of the stack with a synthetic trap frame that will transfer control
// to processEntry on first dispatch, mirrors the same values into the
// PCB's Context, and enqueues it READY. Returns errors.ErrNoFreeTask if
// either allocation fails; the spec treats that as "process not created",
// not a fatal condition, so the caller decides how to report it.
func Create(name string, mode Mode, entryFn func()) (*PCB, error) {
	pcbAddr := allocateFn(unsafe.Sizeof(PCB{}))
	if pcbAddr == 0 {
		return nil, errors.ErrNoFreeTask
	}
	stackAddr := allocateFn(kernelStackSize)
	if stackAddr == 0 {
		return nil, errors.ErrNoFreeTask
	}

	p := (*PCB)(unsafe.Pointer(pcbAddr))
	*p = PCB{}
	p.PID = nextPID
	nextPID++
	setName(p, name)
	p.Mode = mode
	p.State = StateReady
	p.Timeslice = defaultTimeslice
	p.Priority = 0
	p.KernelStackBase = stackAddr
	p.PageDirectory = activePDTFn()

	entryFns[p.PID] = entryFn

	codeSel, dataSel := uint32(gdt.SelectorKernelCode), uint32(gdt.SelectorKernelData)
	if mode == ModeUser {
		codeSel, dataSel = uint32(gdt.SelectorUserCode), uint32(gdt.SelectorUserData)
	}

	// ESP/UserESP are painted with stackTop for bookkeeping only: a same-ring
	// iret never restores %esp from the frame tail, and POPAL discards its
	// saved %esp slot rather than loading it (see entry_386.go), so neither
	// field drives where processEntry actually executes.
	stackTop := stackAddr + kernelStackSize
	p.Context = Context{
		DS:      dataSel,
		EIP:     funcPC(processEntry),
		CS:      codeSel,
		EFLAGS:  0x202,
		UserESP: stackTop,
		SS:      dataSel,
		ESP:     stackTop,
	}

	// Paint the same values as an irq.Frame at the top of the kernel stack.
	*(*irq.Frame)(unsafe.Pointer(stackTop - unsafe.Sizeof(irq.Frame{}))) = irq.Frame{
		DS: p.Context.DS, EIP: p.Context.EIP, CS: p.Context.CS, EFLAGS: p.Context.EFLAGS,
		UserESP: p.Context.UserESP, SS: p.Context.SS, ESP: p.Context.ESP,
	}

	enqueue(p)
	return p, nil
}

func enqueue(p *PCB) {
	p.next = nil
	if readyTail == nil {
		readyHead, readyTail = p, p
		return
	}
	readyTail.next = p
	readyTail = p
}

func dequeue() *PCB {
	if readyHead == nil {
		return nil
	}
	p := readyHead
	readyHead = readyHead.next
	if readyHead == nil {
		readyTail = nil
	}
	p.next = nil
	return p
}

func saveContext(p *PCB, frame *irq.Frame) {
	p.Context = Context{
		DS:  frame.DS,
		EDI: frame.EDI, ESI: frame.ESI, EBP: frame.EBP, ESP: frame.ESP,
		EBX: frame.EBX, EDX: frame.EDX, ECX: frame.ECX, EAX: frame.EAX,
		EIP: frame.EIP, CS: frame.CS, EFLAGS: frame.EFLAGS,
		UserESP: frame.UserESP, SS: frame.SS,
	}
}

func restoreContext(p *PCB, frame *irq.Frame) {
	frame.DS = p.Context.DS
	frame.EDI, frame.ESI, frame.EBP, frame.ESP = p.Context.EDI, p.Context.ESI, p.Context.EBP, p.Context.ESP
	frame.EBX, frame.EDX, frame.ECX, frame.EAX = p.Context.EBX, p.Context.EDX, p.Context.ECX, p.Context.EAX
	frame.EIP, frame.CS, frame.EFLAGS = p.Context.EIP, p.Context.CS, p.Context.EFLAGS
	frame.UserESP, frame.SS = p.Context.UserESP, p.Context.SS
}

// Schedule is the scheduling decision, called both from the PIT tick
// handler and from the int 0x81 yield handler with the same frame shape.
// If there is no other READY task it leaves current running untouched.
func Schedule(frame *irq.Frame) {
	if !enabled {
		return
	}

	if current.State == StateRunning {
		saveContext(current, frame)
		current.State = StateReady
		current.Timeslice--
		if current.Timeslice == 0 {
			current.Timeslice = defaultTimeslice
		}
		enqueue(current)
	}
	// StateTerminated: neither saved nor requeued, simply dropped from
	// circulation; its PCB and stack are never freed (no reaper in v1).

	next := dequeue()
	if next == nil {
		current.State = StateRunning
		return
	}

	if next.PageDirectory != current.PageDirectory {
		switchPDTFn(next.PageDirectory)
	}

	restoreContext(next, frame)
	next.State = StateRunning
	next.Timeslice = defaultTimeslice
	current = next
}

// Yield triggers int 0x81, handled identically to a timer preemption.
func Yield() {
	if enabled {
		triggerYield()
	}
}

// Block parks the current task and yields.
func Block() {
	current.State = StateBlocked
	Yield()
}

// Unblock moves a blocked PCB back onto the ready queue.
func Unblock(p *PCB) {
	if p.State == StateBlocked {
		p.State = StateReady
		enqueue(p)
	}
}

// Exit marks the current task TERMINATED and halts until the next tick
// switches it out. It never returns.
func Exit() {
	current.State = StateTerminated
	for {
		cpu.EnableInterrupts()
		cpu.Halt()
	}
}

// EnableScheduler turns on preemption. Until called, Schedule is a no-op,
// so the boot context runs uninterrupted through task creation.
func EnableScheduler() {
	enabled = true
}
