/*
   Bounded Microcode Executor: wraps Executor with a cycle ceiling,
   the microcode-level counterpart to cpu.Bounded. Grounded on
   spec.md §4.5 (the same ceiling concept applied at the cycle level)
   and the teacher's batch-mode cycle limit in emu/core.go.
*/

package micro

// Bounded wraps an Executor with a maximum cycle-count ceiling.
type Bounded struct {
	*Executor
	maxCycles uint64
	cycles    uint64
}

// NewBounded returns a Bounded executor over exec with the given
// cycle ceiling.
func NewBounded(exec *Executor, maxCycles uint64) *Bounded {
	return &Bounded{Executor: exec, maxCycles: maxCycles}
}

// Run steps the wrapped Executor until it finishes, errors, hits a
// breakpoint, or exceeds maxCycles.
func (b *Bounded) Run() {
	for !b.HadErrorOnStep() && !b.ExecutionFinished() && !b.StoppedForBreakpoint() {
		if b.cycles >= b.maxCycles {
			b.setControlError("Possible endless loop detected.")
			b.RequestStop()
			return
		}
		b.Executor.Step()
		b.cycles++
	}
}

// CycleCount reports how many cycles this Bounded executor has run.
func (b *Bounded) CycleCount() uint64 { return b.cycles }
