/*
   Non-unary instruction handlers: operand specifier plus addressing
   mode, resolved through the operand package. Grounded on spec.md
   §4.4 "Non-unary semantics".
*/

package cpu

import (
	"github.com/StanWarford/pep9suite-sub001/isa"
	"github.com/StanWarford/pep9suite-sub001/memory"
	"github.com/StanWarford/pep9suite-sub001/register"
)

func (c *CPU) executeNonUnary(m isa.Mnemonic, opspec uint16, mode isa.AddressingMode) {
	switch m {
	case isa.BR, isa.BRLE, isa.BRLT, isa.BREQ, isa.BRNE, isa.BRGE, isa.BRGT, isa.BRV, isa.BRC:
		c.executeBranch(m, opspec, mode)

	case isa.CALL:
		c.executeCall(opspec, mode)

	case isa.ADDSP:
		v, ok := c.resolver.ReadOperandWord(opspec, mode)
		if !ok {
			c.setControlError("ADDSP: failed to resolve operand")
			return
		}
		c.regs.WriteWord(register.SP, c.regs.ReadWordCurrent(register.SP)+v)

	case isa.SUBSP:
		v, ok := c.resolver.ReadOperandWord(opspec, mode)
		if !ok {
			c.setControlError("SUBSP: failed to resolve operand")
			return
		}
		c.regs.WriteWord(register.SP, c.regs.ReadWordCurrent(register.SP)-v)

	case isa.ADDA:
		c.executeAdd(register.A, opspec, mode)
	case isa.ADDX:
		c.executeAdd(register.X, opspec, mode)
	case isa.SUBA:
		c.executeSub(register.A, opspec, mode, true)
	case isa.SUBX:
		c.executeSub(register.X, opspec, mode, true)

	case isa.ANDA:
		c.executeBitwise(register.A, opspec, mode, func(a, b uint16) uint16 { return a & b })
	case isa.ANDX:
		c.executeBitwise(register.X, opspec, mode, func(a, b uint16) uint16 { return a & b })
	case isa.ORA:
		c.executeBitwise(register.A, opspec, mode, func(a, b uint16) uint16 { return a | b })
	case isa.ORX:
		c.executeBitwise(register.X, opspec, mode, func(a, b uint16) uint16 { return a | b })

	case isa.CPWA:
		c.executeCompareWord(register.A, opspec, mode)
	case isa.CPWX:
		c.executeCompareWord(register.X, opspec, mode)

	case isa.LDWA:
		c.executeLoadWord(register.A, opspec, mode)
	case isa.LDWX:
		c.executeLoadWord(register.X, opspec, mode)

	case isa.STWA:
		c.executeStoreWord(register.A, opspec, mode)
	case isa.STWX:
		c.executeStoreWord(register.X, opspec, mode)

	case isa.LDBA:
		c.executeLoadByte(register.A, opspec, mode)
	case isa.LDBX:
		c.executeLoadByte(register.X, opspec, mode)

	case isa.STBA:
		c.executeStoreByte(register.A, opspec, mode)
	case isa.STBX:
		c.executeStoreByte(register.X, opspec, mode)

	case isa.CPBA:
		c.executeCompareByte(register.A, opspec, mode)
	case isa.CPBX:
		c.executeCompareByte(register.X, opspec, mode)

	default:
		c.setControlError("unhandled non-unary mnemonic %d", m)
	}
}

func (c *CPU) branchTaken(m isa.Mnemonic) bool {
	n := c.regs.ReadStatusBitCurrent(register.StatusN)
	z := c.regs.ReadStatusBitCurrent(register.StatusZ)
	v := c.regs.ReadStatusBitCurrent(register.StatusV)
	carry := c.regs.ReadStatusBitCurrent(register.StatusC)
	switch m {
	case isa.BR:
		return true
	case isa.BRLE:
		return n || z
	case isa.BRLT:
		return n
	case isa.BREQ:
		return z
	case isa.BRNE:
		return !z
	case isa.BRGE:
		return !n
	case isa.BRGT:
		return !n && !z
	case isa.BRV:
		return v
	case isa.BRC:
		return carry
	default:
		return false
	}
}

func (c *CPU) executeBranch(m isa.Mnemonic, opspec uint16, mode isa.AddressingMode) {
	target, ok := c.resolver.ReadOperandWord(opspec, mode)
	if !ok {
		c.setControlError("%v: failed to resolve branch target", m)
		return
	}
	if c.branchTaken(m) {
		c.regs.WriteWord(register.PC, target)
	}
}

func (c *CPU) executeCall(opspec uint16, mode isa.AddressingMode) {
	target, ok := c.resolver.ReadOperandWord(opspec, mode)
	if !ok {
		c.setControlError("CALL: failed to resolve target")
		return
	}
	sp := c.regs.ReadWordCurrent(register.SP) - 2
	returnPC := c.regs.ReadWordCurrent(register.PC)
	c.mem.BeginTransaction(memory.Data)
	ok = c.mem.WriteWord(sp, returnPC, memory.Data)
	c.mem.EndTransaction()
	if !ok {
		c.setControlError("CALL: failed to push return address at 0x%04X", sp)
		return
	}
	c.regs.WriteWord(register.SP, sp)
	c.regs.WriteWord(register.PC, target)
	c.tracer.OnCall(sp)
}

// addWithFlags computes a+b (SUB passes b already inverted, carryIn=1)
// and returns the NZVC flags per spec.md §4.4's add-with-complement
// model: C = unsigned overflow of the 17-bit add, V = signed overflow
// via (~(a^b) & (a^r)) >> 15.
func addWithFlags(a, b uint16, carryIn uint16) (result uint16, n, z, v, carry bool) {
	sum := uint32(a) + uint32(b) + uint32(carryIn)
	result = uint16(sum)
	carry = sum > 0xFFFF
	signBit := (^(a ^ b) & (a ^ result)) >> 15
	v = signBit&1 != 0
	n = result&0x8000 != 0
	z = result == 0
	return
}

func (c *CPU) executeAdd(reg int, opspec uint16, mode isa.AddressingMode) {
	v, ok := c.resolver.ReadOperandWord(opspec, mode)
	if !ok {
		c.setControlError("ADD: failed to resolve operand")
		return
	}
	a := c.regs.ReadWordCurrent(reg)
	result, n, z, ov, carry := addWithFlags(a, v, 0)
	c.regs.WriteWord(reg, result)
	c.regs.WriteStatusBit(register.StatusN, n)
	c.regs.WriteStatusBit(register.StatusZ, z)
	c.regs.WriteStatusBit(register.StatusV, ov)
	c.regs.WriteStatusBit(register.StatusC, carry)
}

// executeSub implements SUBr as a + ~b + 1, writing the result back to
// reg only when writeBack is true. CPWr uses executeCompareWord, which
// repeats the same subtraction without the write-back.
func (c *CPU) executeSub(reg int, opspec uint16, mode isa.AddressingMode, writeBack bool) {
	v, ok := c.resolver.ReadOperandWord(opspec, mode)
	if !ok {
		c.setControlError("SUB: failed to resolve operand")
		return
	}
	a := c.regs.ReadWordCurrent(reg)
	result, n, z, ov, carry := addWithFlags(a, ^v, 1)
	if writeBack {
		c.regs.WriteWord(reg, result)
	}
	c.regs.WriteStatusBit(register.StatusN, n)
	c.regs.WriteStatusBit(register.StatusZ, z)
	c.regs.WriteStatusBit(register.StatusV, ov)
	c.regs.WriteStatusBit(register.StatusC, carry)
}

func (c *CPU) executeBitwise(reg int, opspec uint16, mode isa.AddressingMode, op func(a, b uint16) uint16) {
	v, ok := c.resolver.ReadOperandWord(opspec, mode)
	if !ok {
		c.setControlError("bitwise op: failed to resolve operand")
		return
	}
	a := c.regs.ReadWordCurrent(reg)
	result := op(a, v)
	c.regs.WriteWord(reg, result)
	c.setNZ16(result)
	c.regs.WriteStatusBit(register.StatusV, false)
	c.regs.WriteStatusBit(register.StatusC, false)
}

func (c *CPU) executeCompareWord(reg int, opspec uint16, mode isa.AddressingMode) {
	v, ok := c.resolver.ReadOperandWord(opspec, mode)
	if !ok {
		c.setControlError("CPW: failed to resolve operand")
		return
	}
	a := c.regs.ReadWordCurrent(reg)
	result, n, z, ov, carry := addWithFlags(a, ^v, 1)
	_ = result
	n = n != ov // N <- N xor V, so the comparison reflects signed order.
	c.regs.WriteStatusBit(register.StatusN, n)
	c.regs.WriteStatusBit(register.StatusZ, z)
	c.regs.WriteStatusBit(register.StatusV, ov)
	c.regs.WriteStatusBit(register.StatusC, carry)
}

func (c *CPU) executeLoadWord(reg int, opspec uint16, mode isa.AddressingMode) {
	v, ok := c.resolver.ReadOperandWord(opspec, mode)
	if !ok {
		c.setControlError("LDW: failed to resolve operand")
		return
	}
	c.regs.WriteWord(reg, v)
	c.setNZ16(v)
}

func (c *CPU) executeLoadByte(reg int, opspec uint16, mode isa.AddressingMode) {
	v, ok := c.resolver.ReadOperandByte(opspec, mode)
	if !ok {
		c.setControlError("LDB: failed to resolve operand")
		return
	}
	hi := byte(c.regs.ReadWordCurrent(reg) >> 8)
	c.regs.WriteWord(reg, uint16(hi)<<8|uint16(v))
	c.regs.WriteStatusBit(register.StatusN, false)
	c.regs.WriteStatusBit(register.StatusZ, v == 0)
}

func (c *CPU) executeStoreWord(reg int, opspec uint16, mode isa.AddressingMode) {
	v := c.regs.ReadWordCurrent(reg)
	if !c.resolver.WriteOperandWord(opspec, mode, v) {
		c.setControlError("STW: failed to resolve write target")
	}
}

func (c *CPU) executeStoreByte(reg int, opspec uint16, mode isa.AddressingMode) {
	v := byte(c.regs.ReadWordCurrent(reg))
	if !c.resolver.WriteOperandByte(opspec, mode, v) {
		c.setControlError("STB: failed to resolve write target")
	}
}

func (c *CPU) executeCompareByte(reg int, opspec uint16, mode isa.AddressingMode) {
	v, ok := c.resolver.ReadOperandByte(opspec, mode)
	if !ok {
		c.setControlError("CPB: failed to resolve operand")
		return
	}
	a := byte(c.regs.ReadWordCurrent(reg))
	result := a - v
	c.setNZ8(result)
	c.regs.WriteStatusBit(register.StatusV, false)
	c.regs.WriteStatusBit(register.StatusC, false)
}
