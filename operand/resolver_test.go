package operand

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StanWarford/pep9suite-sub001/isa"
	"github.com/StanWarford/pep9suite-sub001/memory"
	"github.com/StanWarford/pep9suite-sub001/register"
)

func newFixture() (*Resolver, *memory.Bus, *register.File) {
	m := memory.NewBus(0xFFFF)
	m.AddRAM(0, 0x10000)
	r := register.New()
	return New(m, r), m, r
}

func TestImmediateModeWordAndByte(t *testing.T) {
	res, _, _ := newFixture()
	v, ok := res.ReadOperandWord(0x1234, isa.I)
	require.True(t, ok)
	assert.Equal(t, uint16(0x1234), v)

	b, ok := res.ReadOperandByte(0x1234, isa.I)
	require.True(t, ok)
	assert.Equal(t, byte(0x34), b)
}

func TestImmediateModeWriteFails(t *testing.T) {
	res, _, _ := newFixture()
	ok := res.WriteOperandWord(0x1234, isa.I, 0x1)
	assert.False(t, ok)
}

func TestDirectMode(t *testing.T) {
	res, m, _ := newFixture()
	m.SetWord(0x0100, 0xBEEF)
	v, ok := res.ReadOperandWord(0x0100, isa.D)
	require.True(t, ok)
	assert.Equal(t, uint16(0xBEEF), v)

	addr, ok := res.WriteTargetAddress(0x0100, isa.D)
	require.True(t, ok)
	assert.Equal(t, uint16(0x0100), addr)
}

func TestStackRelativeMode(t *testing.T) {
	res, m, r := newFixture()
	r.WriteWord(register.SP, 0xFB00)
	m.SetWord(0xFB10, 0x4242)
	v, ok := res.ReadOperandWord(0x0010, isa.S)
	require.True(t, ok)
	assert.Equal(t, uint16(0x4242), v)
}

func TestIndexedMode(t *testing.T) {
	res, m, r := newFixture()
	r.WriteWord(register.X, 0x0005)
	m.SetWord(0x0105, 0x1111)
	v, ok := res.ReadOperandWord(0x0100, isa.X)
	require.True(t, ok)
	assert.Equal(t, uint16(0x1111), v)
}

func TestStackIndexedMode(t *testing.T) {
	res, m, r := newFixture()
	r.WriteWord(register.SP, 0xFB00)
	r.WriteWord(register.X, 0x0002)
	m.SetWord(0xFB12, 0x2222)
	v, ok := res.ReadOperandWord(0x0010, isa.SX)
	require.True(t, ok)
	assert.Equal(t, uint16(0x2222), v)
}

func TestIndirectMode(t *testing.T) {
	res, m, _ := newFixture()
	m.SetWord(0x0100, 0x0200)
	m.SetWord(0x0200, 0x3333)
	v, ok := res.ReadOperandWord(0x0100, isa.N)
	require.True(t, ok)
	assert.Equal(t, uint16(0x3333), v)
}

func TestStackDeferredMode(t *testing.T) {
	res, m, r := newFixture()
	r.WriteWord(register.SP, 0xFB00)
	m.SetWord(0xFB10, 0x0300)
	m.SetWord(0x0300, 0x4444)
	v, ok := res.ReadOperandWord(0x0010, isa.SF)
	require.True(t, ok)
	assert.Equal(t, uint16(0x4444), v)
}

func TestStackDeferredIndexedMode(t *testing.T) {
	res, m, r := newFixture()
	r.WriteWord(register.SP, 0xFB00)
	r.WriteWord(register.X, 0x0004)
	m.SetWord(0xFB10, 0x0300)
	m.SetWord(0x0304, 0x5555)
	v, ok := res.ReadOperandWord(0x0010, isa.SFX)
	require.True(t, ok)
	assert.Equal(t, uint16(0x5555), v)
}

func TestByteReadPreservesModeSemantics(t *testing.T) {
	res, m, _ := newFixture()
	m.SetByte(0x0050, 0x99)
	b, ok := res.ReadOperandByte(0x0050, isa.D)
	require.True(t, ok)
	assert.Equal(t, byte(0x99), b)
}

func TestWriteOperandWordDirect(t *testing.T) {
	res, m, _ := newFixture()
	ok := res.WriteOperandWord(0x0400, isa.D, 0x9876)
	require.True(t, ok)
	assert.Equal(t, uint16(0x9876), m.GetWord(0x0400))
}

func TestEffectiveAddressCachedForDebugger(t *testing.T) {
	res, m, _ := newFixture()
	m.SetWord(0x0100, 0x0200)
	_, ok := res.ReadOperandWord(0x0100, isa.N)
	require.True(t, ok)
	assert.Equal(t, uint16(0x0200), res.LastAddress())
}
