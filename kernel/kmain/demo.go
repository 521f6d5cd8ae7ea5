package kmain

import (
	"github.com/anvil-os/anvil/kernel/hal"
	"github.com/anvil-os/anvil/kernel/kfmt"
	"github.com/anvil-os/anvil/kernel/sched"
)

// demoIterations and demoSpinCount bound the three round-robin demo tasks
// created below: enough iterations to observe preemption without flooding
// the terminal, matching original_source/kernel/core/main.c's testProcess1
// through testProcess3 (each a bounded counting loop with a busy-wait).
const (
	demoIterations = 5
	demoSpinCount  = 2000000
)

// demoLog records the id of each demo task iteration as it runs, in the
// order the scheduler actually dispatches them. It exists so a boot test
// or an external observer can confirm round-robin fairness (spec §8, S4)
// without parsing terminal output.
var (
	demoLog    [demoIterations * 3]byte
	demoLogLen int
)

func recordDemoIteration(id byte) {
	if demoLogLen < len(demoLog) {
		demoLog[demoLogLen] = id
		demoLogLen++
	}
}

// spinSink receives the loop counter in spin so the compiler cannot prove
// the busy-wait has no observable effect and fold it away.
var spinSink uint32

func spin(n int) {
	for i := 0; i < n; i++ {
		spinSink += uint32(i)
	}
}

func demoTaskEntry(id byte, label string) func() {
	return func() {
		for i := 0; i < demoIterations; i++ {
			kfmt.Printf(hal.ActiveTerminal, "[%s:%d] ", label, i)
			recordDemoIteration(id)
			spin(demoSpinCount)
		}
		sched.Exit()
	}
}

// createDemoTasks creates taskA, taskB and taskC, scheduled round-robin
// once the scheduler and its PIT tick handler are wired in. See spec §8
// scenarios S4 and S6.
func createDemoTasks() {
	names := []string{"taskA", "taskB", "taskC"}
	for i, name := range names {
		if _, err := sched.Create(name, sched.ModeKernel, demoTaskEntry(byte('A'+i), name)); err != nil {
			kfmt.Printf(hal.ActiveTerminal, "failed to create %s: %s\n", name, err.Error())
		}
	}
}
