/*
   Unary instruction handlers: no operand specifier byte, addressing
   mode NONE. Grounded on spec.md §4.4 "Unary semantics".
*/

package cpu

import (
	"github.com/StanWarford/pep9suite-sub001/isa"
	"github.com/StanWarford/pep9suite-sub001/memory"
	"github.com/StanWarford/pep9suite-sub001/register"
)

func (c *CPU) executeUnary(m isa.Mnemonic) {
	switch m {
	case isa.STOP:
		c.executionFinished = true

	case isa.RET:
		sp := c.regs.ReadWordCurrent(register.SP)
		c.mem.BeginTransaction(memory.Data)
		pc, ok := c.mem.ReadWord(sp, memory.Data)
		c.mem.EndTransaction()
		if !ok {
			c.setControlError("RET: failed to read return address at 0x%04X", sp)
			return
		}
		c.regs.WriteWord(register.PC, pc)
		c.regs.WriteWord(register.SP, sp+2)
		c.tracer.OnRet()

	case isa.RETTR:
		c.executeRETTR()

	case isa.MOVSPA:
		c.regs.WriteWord(register.A, c.regs.ReadWordCurrent(register.SP))

	case isa.MOVFLGA:
		status := c.packNZVC()
		c.regs.WriteWord(register.A, uint16(status))

	case isa.MOVAFLG:
		low := byte(c.regs.ReadWordCurrent(register.A))
		c.unpackAndWriteNZVC(low)

	case isa.NOTA:
		r := ^c.regs.ReadWordCurrent(register.A)
		c.regs.WriteWord(register.A, r)
		c.setNZ16(r)

	case isa.NOTX:
		r := ^c.regs.ReadWordCurrent(register.X)
		c.regs.WriteWord(register.X, r)
		c.setNZ16(r)

	case isa.NEGA:
		r := c.negate(register.A)
		c.setNZ16(r)
		c.regs.WriteStatusBit(register.StatusV, r == 0x8000)

	case isa.NEGX:
		r := c.negate(register.X)
		c.setNZ16(r)
		c.regs.WriteStatusBit(register.StatusV, r == 0x8000)

	case isa.ASLA:
		c.shiftLeft(register.A)
	case isa.ASLX:
		c.shiftLeft(register.X)

	case isa.ASRA:
		c.shiftRightArith(register.A)
	case isa.ASRX:
		c.shiftRightArith(register.X)

	case isa.ROLA:
		c.rotateLeft(register.A)
	case isa.ROLX:
		c.rotateLeft(register.X)

	case isa.RORA:
		c.rotateRight(register.A)
	case isa.RORX:
		c.rotateRight(register.X)

	case isa.NOP0, isa.NOP1:
		// no effect.

	default:
		c.setControlError("unhandled unary mnemonic %d", m)
	}
}

func (c *CPU) executeRETTR() {
	sp := c.regs.ReadWordCurrent(register.SP)
	c.mem.BeginTransaction(memory.Data)
	status, ok1 := c.mem.ReadByte(sp, memory.Data)
	a, ok2 := c.mem.ReadWord(sp+1, memory.Data)
	x, ok3 := c.mem.ReadWord(sp+3, memory.Data)
	pc, ok4 := c.mem.ReadWord(sp+5, memory.Data)
	newSP, ok5 := c.mem.ReadWord(sp+7, memory.Data)
	c.mem.EndTransaction()
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		c.setControlError("RETTR: failed to read OS stack frame at 0x%04X", sp)
		return
	}
	c.unpackAndWriteNZVC(status)
	c.regs.WriteWord(register.A, a)
	c.regs.WriteWord(register.X, x)
	c.regs.WriteWord(register.PC, pc)
	c.regs.WriteWord(register.SP, newSP)
	c.tracer.OnRetTR()
}

func (c *CPU) packNZVC() byte {
	return register.PackStatus(
		c.regs.ReadStatusBitCurrent(register.StatusN),
		c.regs.ReadStatusBitCurrent(register.StatusZ),
		c.regs.ReadStatusBitCurrent(register.StatusV),
		c.regs.ReadStatusBitCurrent(register.StatusC),
	)
}

func (c *CPU) unpackAndWriteNZVC(packed byte) {
	n, z, v, carry := register.UnpackStatus(packed)
	c.regs.WriteStatusBit(register.StatusN, n)
	c.regs.WriteStatusBit(register.StatusZ, z)
	c.regs.WriteStatusBit(register.StatusV, v)
	c.regs.WriteStatusBit(register.StatusC, carry)
}

func (c *CPU) negate(reg int) uint16 {
	r := -int32(int16(c.regs.ReadWordCurrent(reg)))
	result := uint16(r)
	c.regs.WriteWord(reg, result)
	return result
}

func (c *CPU) shiftLeft(reg int) {
	v := c.regs.ReadWordCurrent(reg)
	result := v << 1
	c.regs.WriteWord(reg, result)
	c.setNZ16(result)
	bit15 := v&0x8000 != 0
	bit14 := v&0x4000 != 0
	c.regs.WriteStatusBit(register.StatusV, bit15 != bit14)
	c.regs.WriteStatusBit(register.StatusC, bit15)
}

func (c *CPU) shiftRightArith(reg int) {
	v := int16(c.regs.ReadWordCurrent(reg))
	carry := v&0x01 != 0
	result := uint16(v >> 1)
	c.regs.WriteWord(reg, result)
	c.setNZ16(result)
	c.regs.WriteStatusBit(register.StatusC, carry)
}

func (c *CPU) rotateLeft(reg int) {
	v := c.regs.ReadWordCurrent(reg)
	var carryIn uint16
	if c.regs.ReadStatusBitCurrent(register.StatusC) {
		carryIn = 1
	}
	result := (v << 1) | carryIn
	c.regs.WriteWord(reg, result)
	c.regs.WriteStatusBit(register.StatusC, v&0x8000 != 0)
}

func (c *CPU) rotateRight(reg int) {
	v := c.regs.ReadWordCurrent(reg)
	var carryIn uint16
	if c.regs.ReadStatusBitCurrent(register.StatusC) {
		carryIn = 0x8000
	}
	result := (v >> 1) | carryIn
	c.regs.WriteWord(reg, result)
	c.regs.WriteStatusBit(register.StatusC, v&0x01 != 0)
}
