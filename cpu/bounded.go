/*
   Bounded ISA Executor: wraps CPU with a step ceiling so batch/CLI
   execution is guaranteed to terminate. Grounded on spec.md §4.5 and
   the S370 simulator's instruction-count ceiling used by its batch
   test harness (emu/core.go's cycle limit for -test mode).
*/

package cpu

// Bounded wraps a CPU with a maximum instruction-step ceiling.
type Bounded struct {
	*CPU
	maxSteps uint64
	steps    uint64
}

// NewBounded returns a Bounded executor over cpu with the given step
// ceiling.
func NewBounded(cpu *CPU, maxSteps uint64) *Bounded {
	return &Bounded{CPU: cpu, maxSteps: maxSteps}
}

// Run steps the wrapped CPU until it finishes, errors, hits a
// breakpoint, or exceeds maxSteps, per spec.md §4.5's condition
// "!error && !finished && !breakpoint && step_count < max_steps".
func (b *Bounded) Run() {
	for !b.HadErrorOnStep() && !b.ExecutionFinished() && !b.StoppedForBreakpoint() {
		if b.steps >= b.maxSteps {
			b.setControlError("Possible endless loop detected.")
			b.RequestStop()
			return
		}
		b.CPU.Step()
		b.steps++
	}
}

// StepCount reports how many instructions this Bounded executor has run.
func (b *Bounded) StepCount() uint64 { return b.steps }
