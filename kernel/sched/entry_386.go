package sched

import "github.com/anvil-os/anvil/kernel/cpu"

// processEntry is the address every freshly created PCB's Context.EIP
// points at. The dispatcher's iret transfers here the first time a task is
// scheduled in; from then on EIP is whatever value the task was preempted
// at, and processEntry is never revisited.
//
// A same-ring iret does not restore %esp from the frame tail (no privilege
// change occurs), so execution continues on whatever stack was live when
// the timer interrupt fired rather than migrating to the new task's own
// kernel stack; Context.ESP/UserESP are bookkeeping only (see sched.go's
// Create). processEntry resolves its entry function through Current(),
// which Schedule has already pointed at this PCB before the iret.
func processEntry() {
	cpu.EnableInterrupts()

	p := Current()
	if fn, ok := entryFns[p.PID]; ok && fn != nil {
		fn()
	}
	Exit()
}

// triggerYield executes int 0x81, declared in yield_386.s.
func triggerYield()
