package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StanWarford/pep9suite-sub001/config"
	"github.com/StanWarford/pep9suite-sub001/isa"
	"github.com/StanWarford/pep9suite-sub001/memory"
	"github.com/StanWarford/pep9suite-sub001/register"
)

func newTestCPU(t *testing.T) *CPU {
	t.Helper()
	bus := memory.NewBus(0xFFFF)
	bus.AddRAM(0x0000, 0x10000)
	cfg := config.Default()
	cfg.OSBurn = 0x0010
	return New(bus, cfg, nil)
}

func loadBytes(c *CPU, addr uint16, bytes ...byte) {
	for i, b := range bytes {
		c.Memory().SetByte(addr+uint16(i), b)
	}
}

func setPC(c *CPU, pc uint16) {
	c.Registers().WriteWord(register.PC, pc)
	c.Registers().Flatten()
}

func TestADDAImmediateNoOverflow(t *testing.T) {
	c := newTestCPU(t)
	op, ok := isa.EncodeOpcode(isa.ADDA, isa.I)
	require.True(t, ok)
	assert.Equal(t, byte(0x60), op)

	loadBytes(c, 0x1000, op, 0x00, 0x03)
	c.Registers().WriteWord(register.A, 0x0005)
	setPC(c, 0x1000)

	c.Step()

	require.False(t, c.HadErrorOnStep())
	assert.Equal(t, uint16(0x0008), c.Registers().ReadWordCurrent(register.A))
	assert.False(t, c.Registers().ReadStatusBitCurrent(register.StatusN))
	assert.False(t, c.Registers().ReadStatusBitCurrent(register.StatusZ))
	assert.False(t, c.Registers().ReadStatusBitCurrent(register.StatusV))
	assert.False(t, c.Registers().ReadStatusBitCurrent(register.StatusC))
	assert.Equal(t, uint16(0x1003), c.Registers().ReadWordCurrent(register.PC))
}

func TestSUBASignedOverflow(t *testing.T) {
	c := newTestCPU(t)
	op, ok := isa.EncodeOpcode(isa.SUBA, isa.I)
	require.True(t, ok)

	loadBytes(c, 0x1000, op, 0x00, 0x01)
	c.Registers().WriteWord(register.A, 0x8000)
	setPC(c, 0x1000)

	c.Step()

	require.False(t, c.HadErrorOnStep())
	assert.Equal(t, uint16(0x7FFF), c.Registers().ReadWordCurrent(register.A))
	assert.False(t, c.Registers().ReadStatusBitCurrent(register.StatusN))
	assert.False(t, c.Registers().ReadStatusBitCurrent(register.StatusZ))
	assert.True(t, c.Registers().ReadStatusBitCurrent(register.StatusV))
	assert.True(t, c.Registers().ReadStatusBitCurrent(register.StatusC))
}

func TestLDBADirectWithNZ(t *testing.T) {
	c := newTestCPU(t)
	op, ok := isa.EncodeOpcode(isa.LDBA, isa.D)
	require.True(t, ok)

	c.Memory().SetByte(0x0100, 0x00)
	loadBytes(c, 0x2000, op, 0x01, 0x00)
	c.Registers().WriteWord(register.A, 0xFF00)
	setPC(c, 0x2000)

	c.Step()

	require.False(t, c.HadErrorOnStep())
	assert.Equal(t, uint16(0xFF00), c.Registers().ReadWordCurrent(register.A))
	assert.False(t, c.Registers().ReadStatusBitCurrent(register.StatusN))
	assert.True(t, c.Registers().ReadStatusBitCurrent(register.StatusZ))
}

func TestCallRetRoundTrip(t *testing.T) {
	c := newTestCPU(t)
	callOp, ok := isa.EncodeOpcode(isa.CALL, isa.I)
	require.True(t, ok)
	retOp, ok := isa.EncodeOpcode(isa.RET, isa.NONE)
	require.True(t, ok)

	loadBytes(c, 0x1000, callOp, 0x20, 0x00)
	loadBytes(c, 0x2000, retOp)
	c.Registers().WriteWord(register.SP, 0xFB00)
	setPC(c, 0x1000)

	c.Step()
	require.False(t, c.HadErrorOnStep())
	assert.Equal(t, uint16(0xFAFE), c.Registers().ReadWordCurrent(register.SP))
	assert.Equal(t, uint16(0x2000), c.Registers().ReadWordCurrent(register.PC))
	assert.Equal(t, byte(0x10), c.Memory().GetByte(0xFAFE))
	assert.Equal(t, byte(0x03), c.Memory().GetByte(0xFAFF))

	c.Step()
	require.False(t, c.HadErrorOnStep())
	assert.Equal(t, uint16(0xFB00), c.Registers().ReadWordCurrent(register.SP))
	assert.Equal(t, uint16(0x1003), c.Registers().ReadWordCurrent(register.PC))
}

func TestTrapFrameSave(t *testing.T) {
	c := newTestCPU(t)
	op, ok := isa.EncodeOpcode(isa.DECI, isa.I)
	require.True(t, ok)

	const scratchBase = 0xFB8F
	const handler = 0xC000
	c.Memory().SetWord(c.cfg.OSBurn-isa.BurnScratchOffset, scratchBase)
	c.Memory().SetWord(c.cfg.OSBurn-isa.BurnHandlerOffset, handler)

	loadBytes(c, 0x4000, op, 0x00, 0x00)
	c.Registers().WriteWord(register.A, 0x1234)
	c.Registers().WriteWord(register.X, 0x5678)
	c.Registers().WriteWord(register.SP, 0xFB00)
	c.Registers().WriteStatusBit(register.StatusN, true)
	c.Registers().WriteStatusBit(register.StatusZ, false)
	c.Registers().WriteStatusBit(register.StatusV, true)
	c.Registers().WriteStatusBit(register.StatusC, false)
	c.Registers().Flatten()
	setPC(c, 0x4000)

	c.Step()

	require.False(t, c.HadErrorOnStep())
	assert.Equal(t, byte(0x30), c.Memory().GetByte(0xFB8E))
	assert.Equal(t, uint16(0xFB00), c.Memory().GetWord(0xFB8C))
	assert.Equal(t, uint16(0x4003), c.Memory().GetWord(0xFB8A))
	assert.Equal(t, uint16(0x0000), c.Memory().GetWord(0xFB88))
	assert.Equal(t, uint16(0x1234), c.Memory().GetWord(0xFB86))
	assert.Equal(t, byte(0x0A), c.Memory().GetByte(0xFB85))
	assert.Equal(t, uint16(0xFB85), c.Registers().ReadWordCurrent(register.SP))
	assert.Equal(t, uint16(handler), c.Registers().ReadWordCurrent(register.PC))
	assert.Equal(t, uint16(0), c.Registers().ReadWordCurrent(register.X))
}

func TestBoundedStopsOnEndlessLoop(t *testing.T) {
	c := newTestCPU(t)
	brOp, ok := isa.EncodeOpcode(isa.BR, isa.I)
	require.True(t, ok)
	loadBytes(c, 0x1000, brOp, 0x10, 0x00) // BR 0x1000,i: branches to itself
	setPC(c, 0x1000)

	b := NewBounded(c, 10)
	b.Run()

	assert.True(t, c.HadErrorOnStep())
	assert.Equal(t, "Possible endless loop detected.", c.GetErrorMessage())
	assert.True(t, c.ExecutionFinished())
	assert.Equal(t, uint64(10), b.StepCount())
}

func TestStoreImmediateModeIsRejectedByTable(t *testing.T) {
	_, ok := isa.EncodeOpcode(isa.STWA, isa.I)
	assert.False(t, ok)
}
