package micro

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StanWarford/pep9suite-sub001/config"
	"github.com/StanWarford/pep9suite-sub001/isa"
	"github.com/StanWarford/pep9suite-sub001/memory"
	"github.com/StanWarford/pep9suite-sub001/register"
)

func newTestExecutor(t *testing.T, prog *MicrocodeProgram) (*Executor, *register.File, memory.Device) {
	t.Helper()
	bus := memory.NewBus(0xFFFF)
	bus.AddRAM(0x0000, 0x10000)
	regs := register.New()
	dp := NewDatapath(bus, regs, config.OneByteBus)
	return NewExecutor(prog, dp, regs, bus, config.Default(), nil), regs, bus
}

func TestExecutorUnconditionalBranch(t *testing.T) {
	prog := &MicrocodeProgram{
		Lines: []MicroLine{
			{Branch: Unconditional, TrueTarget: 1},
			{Branch: StopBranch},
		},
	}
	ex, _, _ := newTestExecutor(t, prog)
	ex.Step()
	require.False(t, ex.HadErrorOnStep())
	assert.Equal(t, 1, ex.ProgramCounter())
	assert.False(t, ex.ExecutionFinished())

	ex.Step()
	assert.True(t, ex.ExecutionFinished())
}

func TestExecutorConditionalBranchTakesTrueOnN(t *testing.T) {
	prog := &MicrocodeProgram{
		Lines: []MicroLine{
			{Branch: Conditional, Predicate: PredicateN, TrueTarget: 2, FalseTarget: 1},
			{Branch: StopBranch},
			{Branch: StopBranch},
		},
	}
	ex, regs, _ := newTestExecutor(t, prog)
	regs.WriteStatusBit(register.StatusN, true)
	ex.Step()
	require.False(t, ex.HadErrorOnStep())
	assert.Equal(t, 2, ex.ProgramCounter())
}

func TestExecutorConditionalBranchTakesFalseWhenPredicateFails(t *testing.T) {
	prog := &MicrocodeProgram{
		Lines: []MicroLine{
			{Branch: Conditional, Predicate: PredicateN, TrueTarget: 2, FalseTarget: 1},
			{Branch: StopBranch},
			{Branch: StopBranch},
		},
	}
	ex, _, _ := newTestExecutor(t, prog)
	ex.Step()
	require.False(t, ex.HadErrorOnStep())
	assert.Equal(t, 1, ex.ProgramCounter())
}

func TestExecutorInstructionSpecifierDecoder(t *testing.T) {
	prog := &MicrocodeProgram{
		Lines: []MicroLine{
			{Branch: InstructionSpecifierDecoder},
			{Branch: StopBranch}, // line 1: target for opcode 0x60
		},
	}
	prog.InstructionSpecifierTable[0x60] = 1
	ex, regs, _ := newTestExecutor(t, prog)
	regs.WriteByte(register.IS, 0x60)
	ex.Step()
	require.False(t, ex.HadErrorOnStep())
	assert.Equal(t, 1, ex.ProgramCounter())
}

func TestExecutorAddressingModeDecoder(t *testing.T) {
	prog := &MicrocodeProgram{
		Lines: []MicroLine{
			{Branch: AddressingModeDecoder},
			{Branch: StopBranch},
		},
	}
	prog.AddressingModeTable[isa.I] = 1
	ex, regs, _ := newTestExecutor(t, prog)
	// ADDA,i is opcode 0x60 (addressing mode I).
	regs.WriteByte(register.IS, 0x60)
	ex.Step()
	require.False(t, ex.HadErrorOnStep())
	assert.Equal(t, 1, ex.ProgramCounter())
}

func TestExecutorMemReadPredicateTracksBusState(t *testing.T) {
	prog := &MicrocodeProgram{
		Lines: []MicroLine{
			{Control: ControlSignals{AddrA: register.PC, AddrB: register.PC + 1, AddrC: NoAddr, MARCk: true}, Branch: Unconditional, TrueTarget: 1},
			{Control: ControlSignals{AddrC: NoAddr, MemRead: true}, Branch: Unconditional, TrueTarget: 2},
			{Control: ControlSignals{AddrC: NoAddr, MemRead: true}, Branch: Unconditional, TrueTarget: 3},
			{Control: ControlSignals{AddrC: NoAddr, MemRead: true}, Branch: Conditional, Predicate: PredicateMemRead, TrueTarget: 4, FalseTarget: 0},
			{Branch: StopBranch},
		},
	}
	ex, regs, mem := newTestExecutor(t, prog)
	regs.WriteWord(register.PC, 0x1000)
	mem.SetByte(0x1000, 0x42)

	for i := 0; i < 4; i++ {
		ex.Step()
		require.False(t, ex.HadErrorOnStep())
	}
	assert.Equal(t, 4, ex.ProgramCounter())
	ex.Step()
	assert.True(t, ex.ExecutionFinished())
}

func TestBoundedMicrocodeStopsOnEndlessLoop(t *testing.T) {
	prog := &MicrocodeProgram{
		Lines: []MicroLine{
			{Branch: Unconditional, TrueTarget: 0},
		},
	}
	ex, _, _ := newTestExecutor(t, prog)
	b := NewBounded(ex, 5)
	b.Run()

	assert.True(t, ex.HadErrorOnStep())
	assert.Equal(t, "Possible endless loop detected.", ex.GetErrorMessage())
	assert.True(t, ex.ExecutionFinished())
	assert.Equal(t, uint64(5), b.CycleCount())
}
