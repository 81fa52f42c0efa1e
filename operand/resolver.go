/*
   Pep/9 ISA operand resolver: effective-address computation and
   operand read/write across the eight addressing modes, for both
   byte and word widths.

   Adapted from the S370 simulator's operand-fetch code path in
   emu/cpu/cpu.go (cpuState methods that compute an RX/RS/SI/SS
   effective address before dispatching to an opcode handler); Pep/9's
   addressing modes are simpler (no base/index-register pairs to add,
   just SP/X) so the table collapses to one small switch per access
   kind instead of per-instruction-format code.

   Copyright (c) 2024, Richard Cornwell
*/

package operand

import (
	"github.com/StanWarford/pep9suite-sub001/isa"
	"github.com/StanWarford/pep9suite-sub001/memory"
	"github.com/StanWarford/pep9suite-sub001/register"
)

// Resolver computes effective addresses and performs operand
// read/write for one instruction's operand specifier.
type Resolver struct {
	mem  memory.Device
	regs *register.File

	// lastValue/lastAddress cache the most recent resolution so the
	// debugger can display what an instruction actually touched.
	lastValue   uint16
	lastAddress uint16
}

// New returns a Resolver over the given memory device and register
// file. Both are shared with the owning executor.
func New(mem memory.Device, regs *register.File) *Resolver {
	return &Resolver{mem: mem, regs: regs}
}

// LastValue is the most recently read operand value (word or
// zero-extended byte).
func (r *Resolver) LastValue() uint16 { return r.lastValue }

// LastAddress is the most recently resolved effective address (valid
// for every mode except I, which has no address).
func (r *Resolver) LastAddress() uint16 { return r.lastAddress }

// baseAddress computes the first-level address each mode dereferences
// from, before any indirection through memory.
func (r *Resolver) baseAddress(opspec uint16, mode isa.AddressingMode) uint16 {
	sp := r.regs.ReadWordCurrent(register.SP)
	x := r.regs.ReadWordCurrent(register.X)
	switch mode {
	case isa.D, isa.N:
		return opspec
	case isa.S, isa.SF:
		return opspec + sp
	case isa.X:
		return opspec + x
	case isa.SX, isa.SFX:
		return opspec + sp + x
	default:
		return opspec
	}
}

// effectiveAddress resolves the address a read/write ultimately
// touches, following one level of indirection for N/SF/SFX. Returns
// ok=false for immediate mode, which has no address.
func (r *Resolver) effectiveAddress(opspec uint16, mode isa.AddressingMode) (uint16, bool) {
	base := r.baseAddress(opspec, mode)
	switch mode {
	case isa.I:
		return 0, false
	case isa.D, isa.S, isa.X, isa.SX:
		return base, true
	case isa.N, isa.SF:
		r.mem.BeginTransaction(memory.Data)
		addr, ok := r.mem.ReadWord(base, memory.Data)
		r.mem.EndTransaction()
		if !ok {
			return 0, false
		}
		return addr, true
	case isa.SFX:
		r.mem.BeginTransaction(memory.Data)
		addr, ok := r.mem.ReadWord(base, memory.Data)
		r.mem.EndTransaction()
		if !ok {
			return 0, false
		}
		return addr + r.regs.ReadWordCurrent(register.X), true
	default:
		return 0, false
	}
}

// ReadOperandWord returns the 16-bit value the given mode resolves to.
func (r *Resolver) ReadOperandWord(opspec uint16, mode isa.AddressingMode) (uint16, bool) {
	if mode == isa.I {
		r.lastValue = opspec
		return opspec, true
	}
	addr, ok := r.effectiveAddress(opspec, mode)
	if !ok {
		return 0, false
	}
	r.mem.BeginTransaction(memory.Data)
	v, ok := r.mem.ReadWord(addr, memory.Data)
	r.mem.EndTransaction()
	if !ok {
		return 0, false
	}
	r.lastValue = v
	r.lastAddress = addr
	return v, true
}

// ReadOperandByte returns the low byte the given mode resolves to.
// For immediate mode, this is the low byte of the operand specifier.
func (r *Resolver) ReadOperandByte(opspec uint16, mode isa.AddressingMode) (byte, bool) {
	if mode == isa.I {
		r.lastValue = uint16(byte(opspec))
		return byte(opspec), true
	}
	addr, ok := r.effectiveAddress(opspec, mode)
	if !ok {
		return 0, false
	}
	r.mem.BeginTransaction(memory.Data)
	v, ok := r.mem.ReadByte(addr, memory.Data)
	r.mem.EndTransaction()
	if !ok {
		return 0, false
	}
	r.lastValue = uint16(v)
	r.lastAddress = addr
	return v, true
}

// WriteTargetAddress resolves the address a store instruction writes
// to. Immediate mode has no write target; callers must check ok.
func (r *Resolver) WriteTargetAddress(opspec uint16, mode isa.AddressingMode) (uint16, bool) {
	addr, ok := r.effectiveAddress(opspec, mode)
	if ok {
		r.lastAddress = addr
	}
	return addr, ok
}

// WriteOperandWord stores value at the mode's effective address.
// Writing through immediate mode always fails.
func (r *Resolver) WriteOperandWord(opspec uint16, mode isa.AddressingMode, value uint16) bool {
	addr, ok := r.WriteTargetAddress(opspec, mode)
	if !ok {
		return false
	}
	r.mem.BeginTransaction(memory.Data)
	ok = r.mem.WriteWord(addr, value, memory.Data)
	r.mem.EndTransaction()
	return ok
}

// WriteOperandByte stores the low byte of value at the mode's
// effective address.
func (r *Resolver) WriteOperandByte(opspec uint16, mode isa.AddressingMode, value byte) bool {
	addr, ok := r.WriteTargetAddress(opspec, mode)
	if !ok {
		return false
	}
	r.mem.BeginTransaction(memory.Data)
	ok = r.mem.WriteByte(addr, value, memory.Data)
	r.mem.EndTransaction()
	return ok
}
