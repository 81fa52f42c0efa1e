/*
   MicroDatapath: the cycle-level machine a MicrocodeProgram drives.
   Grounded on spec.md §4.6. The register file and memory device are
   shared with the ISA Executor's packages (register.File,
   memory.Device) rather than re-implemented, the way the teacher
   shares cpuState/memory across its front-end and batch-mode paths.

   Copyright (c) 2024, Richard Cornwell
*/

package micro

import (
	"fmt"

	"github.com/StanWarford/pep9suite-sub001/config"
	"github.com/StanWarford/pep9suite-sub001/memory"
	"github.com/StanWarford/pep9suite-sub001/register"
)

// BusState is one state of the seven-state memory bus state machine.
type BusState int

const (
	BusNone BusState = iota
	ReadFirstWait
	ReadSecondWait
	ReadReady
	WriteFirstWait
	WriteSecondWait
	WriteReady
)

// MicroDatapath holds the memory registers (MARA, MARB, and MDR for
// the one-byte bus or MDRE/MDRO for the two-byte bus), the bus state, and
// an ALU result cache invalidated at the start of every cycle.
type MicroDatapath struct {
	mem  memory.Device
	regs *register.File
	bus  config.BusWidth

	marA, marB byte
	mdr        byte // one-byte bus
	mdre, mdro byte // two-byte bus

	state               BusState
	marChangedLastCycle bool

	cache struct {
		valid bool
		aluResult
	}

	hadError bool
	errMsg   string
}

// NewDatapath returns a MicroDatapath over mem/regs built for the
// given bus width. Registers 22..31 are initialized to the fixed
// constants by register.New, which the caller is expected to have
// used to build regs.
func NewDatapath(mem memory.Device, regs *register.File, bus config.BusWidth) *MicroDatapath {
	return &MicroDatapath{mem: mem, regs: regs, bus: bus}
}

func (d *MicroDatapath) HadError() bool      { return d.hadError }
func (d *MicroDatapath) ErrorMessage() string { return d.errMsg }

func (d *MicroDatapath) fail(format string, args ...any) {
	d.hadError = true
	d.errMsg = fmt.Sprintf(format, args...)
}

// State reports the datapath's current bus state.
func (d *MicroDatapath) State() BusState { return d.state }

// MAR returns the current memory address register value.
func (d *MicroDatapath) MAR() uint16 { return uint16(d.marA)<<8 | uint16(d.marB) }

// MDR returns the one-byte-bus data register.
func (d *MicroDatapath) MDR() byte { return d.mdr }

// MDRE/MDRO return the two-byte-bus even/odd data registers.
func (d *MicroDatapath) MDRE() byte { return d.mdre }
func (d *MicroDatapath) MDRO() byte { return d.mdro }

// nextBusState implements spec.md §4.6's transition table: a read or
// write completes on the third consecutive cycle holding the same
// MAR; a change of MAR or a reversal of direction restarts the wait
// sequence.
func nextBusState(prev BusState, memRead, memWrite, marChanged bool) BusState {
	switch {
	case !memRead && !memWrite:
		return BusNone
	case marChanged:
		if memRead {
			return ReadFirstWait
		}
		return WriteFirstWait
	case memRead && !memWrite:
		switch prev {
		case ReadFirstWait:
			return ReadSecondWait
		case ReadSecondWait, ReadReady:
			if prev == ReadSecondWait {
				return ReadReady
			}
			return ReadFirstWait
		default:
			return ReadFirstWait // direction switched from write/none
		}
	case memWrite && !memRead:
		switch prev {
		case WriteFirstWait:
			return WriteSecondWait
		case WriteSecondWait, WriteReady:
			if prev == WriteSecondWait {
				return WriteReady
			}
			return WriteFirstWait
		default:
			return WriteFirstWait
		}
	default:
		// MemRead and MemWrite both asserted: not a legal microcode
		// state (spec.md §4.6 doesn't define one); treat as idle.
		return BusNone
	}
}

func aBusValue(regs *register.File, addr int) (byte, bool) {
	if addr == NoAddr {
		return 0, false
	}
	return regs.ReadByteCurrent(addr), true
}

// Step runs one cycle of the one-byte-bus datapath against ctl/clk,
// per spec.md §4.6's ordered per-cycle algorithm.
func (d *MicroDatapath) Step(ctl ControlSignals, clk ClockSignals) {
	if d.hadError {
		return
	}

	// 1. Update bus state.
	marChanged := d.marChangedLastCycle
	d.state = nextBusState(d.state, ctl.MemRead, ctl.MemWrite, marChanged)
	d.marChangedLastCycle = false

	// 2. Invalidate ALU cache; compute buses and ALU inputs/output.
	d.cache.valid = false
	aVal, aPresent := aBusValue(d.regs, ctl.AddrA)
	bVal, bPresent := aBusValue(d.regs, ctl.AddrB)

	aluIn := aVal
	if ctl.AMux == 0 {
		aluIn = d.mdr
	}
	cin := d.regs.ReadStatusBitCurrent(register.StatusC)
	if ctl.CSMux != 0 {
		cin = d.regs.ReadStatusBitCurrent(register.StatusS)
	}
	res := evalALU(ctl.ALU, aluIn, bVal, cin)
	d.cache.valid = true
	d.cache.aluResult = res

	var cBusValue byte
	var cBusHasOutput bool
	if ctl.CMux == 0 {
		cBusValue = register.PackStatus(
			d.regs.ReadStatusBitCurrent(register.StatusN),
			d.regs.ReadStatusBitCurrent(register.StatusZ),
			d.regs.ReadStatusBitCurrent(register.StatusV),
			d.regs.ReadStatusBitCurrent(register.StatusC),
		)
		cBusHasOutput = true
	} else {
		cBusValue = res.value
		cBusHasOutput = res.hasOutput
	}

	// 3. MemWriteReady: write MDR to memory before MARCk takes effect.
	if d.state == WriteReady {
		if !d.mem.WriteByte(d.MAR(), d.mdr, memory.Data) {
			d.fail("datapath: memory write failed at 0x%04X", d.MAR())
			return
		}
	}

	// 4. MARCk.
	if ctl.MARCk {
		if !aPresent || !bPresent {
			d.fail("datapath: MARCk asserted without both A and B bus values present")
			return
		}
		if aVal != d.marA || bVal != d.marB {
			d.marChangedLastCycle = true
		}
		d.marA, d.marB = aVal, bVal
	}

	// 5. LoadCk.
	if ctl.LoadCk {
		if ctl.AddrC == NoAddr {
			d.fail("datapath: LoadCk asserted without a valid C address")
			return
		}
		if !cBusHasOutput {
			d.fail("datapath: LoadCk asserted but the C bus has no output")
			return
		}
		d.regs.WriteByte(ctl.AddrC, cBusValue)
	}

	// 6. MDRCk.
	if ctl.MDRCk {
		if ctl.MDRMux == 0 {
			if d.state != ReadReady {
				d.fail("datapath: MDRCk from memory asserted outside ReadReady")
				return
			}
			v, ok := d.mem.ReadByte(d.MAR(), memory.Data)
			if !ok {
				d.fail("datapath: memory read failed at 0x%04X", d.MAR())
				return
			}
			d.mdr = v
		} else {
			if !cBusHasOutput {
				d.fail("datapath: MDRCk from C bus asserted but C bus has no output")
				return
			}
			d.mdr = cBusValue
		}
	}

	// 7. Status clocks.
	if res.hasOutput {
		if clk.NCk {
			d.regs.WriteStatusBit(register.StatusN, res.n)
		}
		if clk.ZCk {
			if clk.AndZ {
				d.regs.WriteStatusBit(register.StatusZ, d.regs.ReadStatusBitCurrent(register.StatusZ) && res.z)
			} else {
				d.regs.WriteStatusBit(register.StatusZ, res.z)
			}
		}
		if clk.VCk {
			d.regs.WriteStatusBit(register.StatusV, res.v)
		}
		if clk.CCk {
			d.regs.WriteStatusBit(register.StatusC, res.c)
		}
		if clk.SCk {
			d.regs.WriteStatusBit(register.StatusS, res.c)
		}
	}
}

// StepTwoByte runs one cycle of the two-byte-bus datapath: memory
// operations address a whole word (the MAR's low bit is masked off),
// MDRECk/MDROCk clock the even/odd halves independently, and MARMux
// chooses the MARCk source between (MDRE,MDRO) and (A,B).
func (d *MicroDatapath) StepTwoByte(ctl ControlSignals, clk ClockSignals) {
	if d.hadError {
		return
	}

	marChanged := d.marChangedLastCycle
	d.state = nextBusState(d.state, ctl.MemRead, ctl.MemWrite, marChanged)
	d.marChangedLastCycle = false

	d.cache.valid = false
	aVal, aPresent := aBusValue(d.regs, ctl.AddrA)
	bVal, bPresent := aBusValue(d.regs, ctl.AddrB)

	aluIn := aVal
	if ctl.AMux == 0 {
		if ctl.EOMux == 0 {
			aluIn = d.mdre
		} else {
			aluIn = d.mdro
		}
	}
	cin := d.regs.ReadStatusBitCurrent(register.StatusC)
	if ctl.CSMux != 0 {
		cin = d.regs.ReadStatusBitCurrent(register.StatusS)
	}
	res := evalALU(ctl.ALU, aluIn, bVal, cin)
	d.cache.valid = true
	d.cache.aluResult = res

	var cBusValue byte
	var cBusHasOutput bool
	if ctl.CMux == 0 {
		cBusValue = register.PackStatus(
			d.regs.ReadStatusBitCurrent(register.StatusN),
			d.regs.ReadStatusBitCurrent(register.StatusZ),
			d.regs.ReadStatusBitCurrent(register.StatusV),
			d.regs.ReadStatusBitCurrent(register.StatusC),
		)
		cBusHasOutput = true
	} else {
		cBusValue = res.value
		cBusHasOutput = res.hasOutput
	}

	wordAddr := d.MAR() &^ 1

	if d.state == WriteReady {
		if !d.mem.WriteWord(wordAddr, uint16(d.mdre)<<8|uint16(d.mdro), memory.Data) {
			d.fail("datapath: memory write failed at 0x%04X", wordAddr)
			return
		}
	}

	if ctl.MARCk {
		var newA, newB byte
		if ctl.MARMux == 0 {
			newA, newB = d.mdre, d.mdro
		} else {
			if !aPresent || !bPresent {
				d.fail("datapath: MARCk asserted without both A and B bus values present")
				return
			}
			newA, newB = aVal, bVal
		}
		if newA != d.marA || newB != d.marB {
			d.marChangedLastCycle = true
		}
		d.marA, d.marB = newA, newB
	}

	if ctl.LoadCk {
		if ctl.AddrC == NoAddr {
			d.fail("datapath: LoadCk asserted without a valid C address")
			return
		}
		if !cBusHasOutput {
			d.fail("datapath: LoadCk asserted but the C bus has no output")
			return
		}
		d.regs.WriteByte(ctl.AddrC, cBusValue)
	}

	if ctl.MDRECk || ctl.MDROCk {
		if ctl.MDRMux == 0 {
			if d.state != ReadReady {
				d.fail("datapath: MDRCk from memory asserted outside ReadReady")
				return
			}
			v, ok := d.mem.ReadWord(wordAddr, memory.Data)
			if !ok {
				d.fail("datapath: memory read failed at 0x%04X", wordAddr)
				return
			}
			if ctl.MDRECk {
				d.mdre = byte(v >> 8)
			}
			if ctl.MDROCk {
				d.mdro = byte(v)
			}
		} else {
			if !cBusHasOutput {
				d.fail("datapath: MDRCk from C bus asserted but C bus has no output")
				return
			}
			if ctl.MDRECk {
				d.mdre = cBusValue
			}
			if ctl.MDROCk {
				d.mdro = cBusValue
			}
		}
	}

	if res.hasOutput {
		if clk.NCk {
			d.regs.WriteStatusBit(register.StatusN, res.n)
		}
		if clk.ZCk {
			if clk.AndZ {
				d.regs.WriteStatusBit(register.StatusZ, d.regs.ReadStatusBitCurrent(register.StatusZ) && res.z)
			} else {
				d.regs.WriteStatusBit(register.StatusZ, res.z)
			}
		}
		if clk.VCk {
			d.regs.WriteStatusBit(register.StatusV, res.v)
		}
		if clk.CCk {
			d.regs.WriteStatusBit(register.StatusC, res.c)
		}
		if clk.SCk {
			d.regs.WriteStatusBit(register.StatusS, res.c)
		}
	}
}
