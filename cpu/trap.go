/*
   Trap handling: the unified NOP0(if-mapped)/NOP1/NOP/DECI/DECO/HEXO/
   STRO dispatch that pushes a process-state frame onto the OS stack
   and jumps to the OS's single trap handler. Grounded on spec.md
   §4.4 "Trap handling" and the worked example in spec.md §8 ("Trap
   frame save").
*/

package cpu

import (
	"github.com/StanWarford/pep9suite-sub001/isa"
	"github.com/StanWarford/pep9suite-sub001/memory"
	"github.com/StanWarford/pep9suite-sub001/register"
)

func (c *CPU) executeTrap(m isa.Mnemonic, mode isa.AddressingMode) {
	opcode := c.regs.ReadByteCurrent(register.IS)

	scratchVector := c.cfg.OSBurn - isa.BurnScratchOffset
	c.mem.BeginTransaction(memory.Data)
	t, ok := c.mem.ReadWord(scratchVector, memory.Data)
	c.mem.EndTransaction()
	if !ok {
		c.setControlError("trap: failed to read scratch vector at 0x%04X", scratchVector)
		return
	}

	if mode != isa.NONE {
		pc := c.regs.ReadWordCurrent(register.PC)
		c.regs.WriteWord(register.PC, pc+2)
	}

	// The published OS expects X already cleared by the time the
	// frame is saved (spec.md §8's worked example saves X as 0, not
	// its pre-trap value).
	savedX := uint16(0)
	c.regs.WriteWord(register.X, savedX)

	sp := c.regs.ReadWordCurrent(register.SP)
	pc := c.regs.ReadWordCurrent(register.PC)
	a := c.regs.ReadWordCurrent(register.A)
	status := c.packNZVC()

	c.mem.BeginTransaction(memory.Data)
	ok = c.mem.WriteByte(t-1, opcode, memory.Data)
	ok = c.mem.WriteWord(t-3, sp, memory.Data) && ok
	ok = c.mem.WriteWord(t-5, pc, memory.Data) && ok
	ok = c.mem.WriteWord(t-7, savedX, memory.Data) && ok
	ok = c.mem.WriteWord(t-9, a, memory.Data) && ok
	ok = c.mem.WriteByte(t-10, status, memory.Data) && ok
	c.mem.EndTransaction()
	if !ok {
		c.setControlError("trap: failed to push process-state frame at T=0x%04X", t)
		return
	}

	handlerVector := c.cfg.OSBurn - isa.BurnHandlerOffset
	c.mem.BeginTransaction(memory.Data)
	handler, ok := c.mem.ReadWord(handlerVector, memory.Data)
	c.mem.EndTransaction()
	if !ok {
		c.setControlError("trap: failed to read handler vector at 0x%04X", handlerVector)
		return
	}

	c.regs.WriteWord(register.SP, t-10)
	c.regs.WriteWord(register.PC, handler)
	c.tracer.OnTrapEntry(t)
}
