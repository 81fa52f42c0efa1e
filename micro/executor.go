/*
   Microcode Executor: drives a MicrocodeProgram one cycle at a time
   against a MicroDatapath. Grounded on spec.md §4.7, mirroring the
   ISA Executor's own fetch/dispatch/housekeeping shape in cpu.CPU.Step
   at the cycle level instead of the instruction level.

   Copyright (c) 2024, Richard Cornwell
*/

package micro

import (
	"fmt"
	"log/slog"

	"github.com/StanWarford/pep9suite-sub001/config"
	"github.com/StanWarford/pep9suite-sub001/interrupt"
	"github.com/StanWarford/pep9suite-sub001/isa"
	"github.com/StanWarford/pep9suite-sub001/memory"
	"github.com/StanWarford/pep9suite-sub001/register"
)

// Executor interprets a MicrocodeProgram cycle by cycle over a shared
// MicroDatapath.
type Executor struct {
	prog *MicrocodeProgram
	dp   *MicroDatapath
	regs *register.File
	mem  memory.Device
	interrupts *interrupt.Dispatcher
	cfg  config.Config
	log  *slog.Logger

	pc         int
	cycleCount uint64

	controlError  bool
	controlErrMsg string

	executionFinished bool
	inDebug           bool
	breakpoints       map[int]bool
	stoppedAtBreak    bool

	yieldFn func()
}

// NewExecutor returns an Executor over prog/datapath, sharing regs and
// mem with the datapath (and with any ISA Executor running the same
// simulation).
func NewExecutor(prog *MicrocodeProgram, dp *MicroDatapath, regs *register.File, mem memory.Device, cfg config.Config, log *slog.Logger) *Executor {
	if log == nil {
		log = slog.Default()
	}
	return &Executor{
		prog:        prog,
		dp:          dp,
		regs:        regs,
		mem:         mem,
		interrupts:  interrupt.New(),
		cfg:         cfg,
		log:         log,
		breakpoints: make(map[int]bool),
	}
}

func (e *Executor) Interrupts() *interrupt.Dispatcher { return e.interrupts }
func (e *Executor) Datapath() *MicroDatapath          { return e.dp }
func (e *Executor) ProgramCounter() int               { return e.pc }
func (e *Executor) CycleCount() uint64                { return e.cycleCount }
func (e *Executor) ExecutionFinished() bool           { return e.executionFinished }
func (e *Executor) StoppedForBreakpoint() bool        { return e.stoppedAtBreak }

func (e *Executor) SetBreakpoints(lines []int) {
	e.breakpoints = make(map[int]bool, len(lines))
	for _, l := range lines {
		e.breakpoints[l] = true
	}
}

func (e *Executor) SetDebug(on bool) { e.inDebug = on }

func (e *Executor) RequestStop() {
	e.executionFinished = true
	e.inDebug = false
}

// HadErrorOnStep is the OR of the datapath's and the executor's own
// sticky error flags.
func (e *Executor) HadErrorOnStep() bool {
	return e.dp.HadError() || e.controlError
}

func (e *Executor) GetErrorMessage() string {
	if e.dp.HadError() {
		return e.dp.ErrorMessage()
	}
	if e.controlError {
		return e.controlErrMsg
	}
	return ""
}

func (e *Executor) setControlError(format string, args ...any) {
	e.controlError = true
	e.controlErrMsg = fmt.Sprintf(format, args...)
	e.log.Warn("microcode control error", "message", e.controlErrMsg)
}

// Step runs exactly one microcycle, per spec.md §4.7.
func (e *Executor) Step() {
	if e.executionFinished || e.HadErrorOnStep() {
		return
	}
	e.stoppedAtBreak = false

	if e.pc == 0 {
		e.regs.SetIRCache(e.regs.ReadByteCurrent(register.IS))
		e.mem.OnCycleStarted()
	}

	if e.pc < 0 || e.pc >= len(e.prog.Lines) {
		e.setControlError("microprogram counter %d out of range", e.pc)
		e.executionFinished = true
		return
	}
	line := e.prog.Lines[e.pc]
	startPC := e.pc

	if e.cfg.Bus == config.TwoByteBus {
		e.dp.StepTwoByte(line.Control, line.Clock)
	} else {
		e.dp.Step(line.Control, line.Clock)
	}

	if line.Branch == StopBranch {
		e.executionFinished = true
	} else if !e.dp.HadError() {
		e.pc = e.computeNext(line)
	}

	e.cycleCount++
	if e.executionFinished || e.dp.HadError() {
		e.regs.Flatten()
	}
	e.mem.OnCycleFinished()

	if e.inDebug && e.breakpoints[startPC] {
		e.stoppedAtBreak = true
		e.interrupts.Post(interrupt.BreakpointMicro, startPC)
	}
	e.interrupts.Drain()

	e.log.Debug("microstep", "pc", startPC, "cycle", e.cycleCount)
}

func (e *Executor) computeNext(line MicroLine) int {
	switch line.Branch {
	case Unconditional, AssemblerAssigned:
		return line.TrueTarget
	case InstructionSpecifierDecoder:
		return e.prog.InstructionSpecifierTable[e.regs.GetIRCache()]
	case AddressingModeDecoder:
		mode := isa.DecodeAddressingMode(e.regs.GetIRCache())
		return e.prog.AddressingModeTable[mode]
	case Conditional:
		if e.evalPredicate(line.Predicate) {
			return line.TrueTarget
		}
		return line.FalseTarget
	default:
		return line.TrueTarget
	}
}

func (e *Executor) evalPredicate(p Predicate) bool {
	switch p {
	case PredicateN:
		return e.regs.ReadStatusBitCurrent(register.StatusN)
	case PredicateNotN:
		return !e.regs.ReadStatusBitCurrent(register.StatusN)
	case PredicateZ:
		return e.regs.ReadStatusBitCurrent(register.StatusZ)
	case PredicateNotZ:
		return !e.regs.ReadStatusBitCurrent(register.StatusZ)
	case PredicateV:
		return e.regs.ReadStatusBitCurrent(register.StatusV)
	case PredicateNotV:
		return !e.regs.ReadStatusBitCurrent(register.StatusV)
	case PredicateC:
		return e.regs.ReadStatusBitCurrent(register.StatusC)
	case PredicateNotC:
		return !e.regs.ReadStatusBitCurrent(register.StatusC)
	case PredicateS:
		return e.regs.ReadStatusBitCurrent(register.StatusS)
	case PredicateNotS:
		return !e.regs.ReadStatusBitCurrent(register.StatusS)
	case PredicateMemRead:
		return e.dp.State() == ReadReady
	case PredicateMemWrite:
		return e.dp.State() == WriteReady
	default:
		e.setControlError("unknown branch predicate %q", p)
		return false
	}
}
