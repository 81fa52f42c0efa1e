/*
   ISA-level executor: fetches, decodes, and executes one Pep/9
   machine instruction at a time, atomically, maintaining start-of-
   instruction register snapshots, the two-level call/trap stack, and
   ISA breakpoints.

   Adapted from the S370 simulator's emu/cpu.CycleCPU (emu/cpu/cpu.go):
   same fetch -> classify -> dispatch -> housekeeping shape (IRQ scan,
   opcode table dispatch, periodic housekeeping), generalized from
   370's multi-format RR/RX/RS/SI/SS decode to Pep/9's
   unary/non-unary/trap classification and its eight addressing modes.

   Copyright (c) 2024, Richard Cornwell
*/

package cpu

import (
	"fmt"
	"log/slog"

	"github.com/StanWarford/pep9suite-sub001/config"
	"github.com/StanWarford/pep9suite-sub001/interrupt"
	"github.com/StanWarford/pep9suite-sub001/isa"
	"github.com/StanWarford/pep9suite-sub001/memory"
	"github.com/StanWarford/pep9suite-sub001/operand"
	"github.com/StanWarford/pep9suite-sub001/register"
	"github.com/StanWarford/pep9suite-sub001/trace"
)

// yieldEvery is how many completed instructions pass between
// suspension points, matching spec.md §5.
const yieldEvery = 500

// CPU is the ISA-level executor. It owns a register file, an operand
// resolver, a stack tracer, and an interrupt dispatcher layered over
// a shared memory device.
type CPU struct {
	mem        memory.Device
	regs       *register.File
	resolver   *operand.Resolver
	tracer     *trace.Tracer
	interrupts *interrupt.Dispatcher
	cfg        config.Config
	log        *slog.Logger

	callDepth        int
	instructionCount uint64

	controlError  bool
	controlErrMsg string

	executionFinished bool
	inDebug           bool
	breakpoints       map[uint16]bool
	stoppedAtBreak    bool

	yieldFn func() // invoked every yieldEvery instructions; nil is a no-op.
}

// New returns a CPU sharing mem, configured per cfg. log may be nil,
// in which case slog.Default() is used.
func New(mem memory.Device, cfg config.Config, log *slog.Logger) *CPU {
	if log == nil {
		log = slog.Default()
	}
	regs := register.New()
	c := &CPU{
		mem:         mem,
		regs:        regs,
		resolver:    operand.New(mem, regs),
		tracer:      trace.New(),
		interrupts:  interrupt.New(),
		cfg:         cfg,
		log:         log,
		breakpoints: make(map[uint16]bool),
	}
	return c
}

func (c *CPU) Registers() *register.File         { return c.regs }
func (c *CPU) Memory() memory.Device              { return c.mem }
func (c *CPU) Tracer() *trace.Tracer              { return c.tracer }
func (c *CPU) Interrupts() *interrupt.Dispatcher  { return c.interrupts }
func (c *CPU) InstructionCount() uint64           { return c.instructionCount }
func (c *CPU) CallDepth() int                     { return c.callDepth }

// SetBreakpoints replaces the ISA breakpoint set.
func (c *CPU) SetBreakpoints(pcs []uint16) {
	c.breakpoints = make(map[uint16]bool, len(pcs))
	for _, pc := range pcs {
		c.breakpoints[pc] = true
	}
}

// SetDebug toggles breakpoint checking; a controller thread clears it
// to cancel a run in progress (spec.md §5).
func (c *CPU) SetDebug(on bool) { c.inDebug = on }

// SetYieldFunc installs a callback invoked every yieldEvery completed
// instructions so a host event loop can observe external signals
// (spec.md §5 "Suspension points").
func (c *CPU) SetYieldFunc(fn func()) { c.yieldFn = fn }

// RequestStop cancels an in-progress Run the way a controller thread
// would: flip executionFinished and drop debug mode so the next loop
// iteration exits cleanly, with no preemption.
func (c *CPU) RequestStop() {
	c.executionFinished = true
	c.inDebug = false
}

func (c *CPU) ExecutionFinished() bool  { return c.executionFinished }
func (c *CPU) StoppedForBreakpoint() bool { return c.stoppedAtBreak }

// HadErrorOnStep is the OR of every subsystem's sticky error flag:
// memory errors take precedence over control errors for message
// purposes, per spec.md §7.
func (c *CPU) HadErrorOnStep() bool {
	return c.mem.HadError() || c.controlError
}

// GetErrorMessage consults subsystems in the precedence order spec.md
// §7 prescribes: memory, then control (there is no data-section error
// kind at the ISA level; that belongs to microcode).
func (c *CPU) GetErrorMessage() string {
	if c.mem.HadError() {
		return c.mem.ErrorMessage()
	}
	if c.controlError {
		return c.controlErrMsg
	}
	return ""
}

func (c *CPU) setControlError(format string, args ...any) {
	c.controlError = true
	c.controlErrMsg = fmt.Sprintf(format, args...)
	c.log.Warn("control error", "message", c.controlErrMsg)
}

// Step executes exactly one Pep/9 instruction (or takes the
// already-pending breakpoint/error condition), per the algorithm in
// spec.md §4.4.
func (c *CPU) Step() {
	if c.executionFinished || c.HadErrorOnStep() {
		return
	}
	c.stoppedAtBreak = false

	startPC := c.regs.ReadWordCurrent(register.PC)
	c.mem.OnCycleStarted()

	opcode, ok := c.mem.ReadByte(startPC, memory.Instruction)
	if !ok {
		c.finishErroredInstruction(startPC)
		return
	}
	c.regs.WriteByte(register.IS, opcode)
	c.regs.WriteWord(register.PC, startPC+1)

	mnemonic := isa.DecodeMnemonic(opcode)
	mode := isa.DecodeAddressingMode(opcode)

	switch {
	case c.isTrapMnemonic(mnemonic):
		c.executeTrap(mnemonic, mode)
	case isa.IsUnary(mnemonic):
		c.executeUnary(mnemonic)
	case mnemonic == isa.MnemonicInvalid:
		c.setControlError("invalid opcode 0x%02X at 0x%04X", opcode, startPC)
	default:
		pc := c.regs.ReadWordCurrent(register.PC)
		opspec, ok := c.mem.ReadWord(pc, memory.Instruction)
		if !ok {
			c.finishErroredInstruction(startPC)
			return
		}
		c.regs.WriteWord(register.OS, opspec)
		c.regs.WriteWord(register.PC, pc+2)
		c.executeNonUnary(mnemonic, opspec, mode)
	}

	if c.HadErrorOnStep() && c.controlErrMsg == "" && c.mem.HadError() {
		c.controlErrMsg = c.mem.ErrorMessage()
	}

	switch mnemonic {
	case isa.CALL:
		c.callDepth++
	case isa.RET:
		c.callDepth--
	}
	if c.isTrapMnemonic(mnemonic) {
		c.callDepth++
	}
	if mnemonic == isa.RETTR {
		c.callDepth--
	}

	c.mem.OnCycleFinished()
	c.mem.OnInstructionFinished(opcode)
	if c.HadErrorOnStep() {
		c.executionFinished = true
	}

	c.instructionCount++
	if c.instructionCount%yieldEvery == 0 && c.yieldFn != nil {
		c.yieldFn()
	}

	c.regs.Flatten()

	if c.executionFinished {
		c.regs.OverwriteRegisterWordStart(register.PC, startPC)
	}

	if c.inDebug {
		pc := c.regs.ReadWordCurrent(register.PC)
		if c.breakpoints[pc] {
			c.stoppedAtBreak = true
			c.interrupts.Post(interrupt.BreakpointASM, pc)
		}
	}
	c.interrupts.Drain()

	c.log.Debug("step", "pc", startPC, "mnemonic", int(mnemonic), "count", c.instructionCount)
}

func (c *CPU) finishErroredInstruction(startPC uint16) {
	c.executionFinished = true
	c.regs.Flatten()
	c.regs.OverwriteRegisterWordStart(register.PC, startPC)
}

func (c *CPU) isTrapMnemonic(m isa.Mnemonic) bool {
	if m == isa.NOP0 {
		return c.cfg.NOP0IsTrap
	}
	return isa.IsTrap(m)
}

// setNZ16 sets N (high bit of a 16-bit result) and Z (result == 0).
func (c *CPU) setNZ16(result uint16) {
	c.regs.WriteStatusBit(register.StatusN, result&0x8000 != 0)
	c.regs.WriteStatusBit(register.StatusZ, result == 0)
}

func (c *CPU) setNZ8(result byte) {
	c.regs.WriteStatusBit(register.StatusN, result&0x80 != 0)
	c.regs.WriteStatusBit(register.StatusZ, result == 0)
}
