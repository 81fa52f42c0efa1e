package isa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnaryOpcodesHaveNoneMode(t *testing.T) {
	for op := 0; op < 256; op++ {
		m := DecodeMnemonic(byte(op))
		if IsUnary(m) {
			assert.Equal(t, NONE, DecodeAddressingMode(byte(op)), "opcode 0x%02X", op)
		}
	}
}

func TestEveryOpcodeHasDefinedEntries(t *testing.T) {
	// decode tables are fixed-size arrays: every opcode has SOME
	// entry, even if it is the MnemonicInvalid sentinel.
	for op := 0; op < 256; op++ {
		_ = DecodeMnemonic(byte(op))
		_ = DecodeAddressingMode(byte(op))
	}
}

func TestImmediateModeStoreIsAbsent(t *testing.T) {
	for op := 0; op < 256; op++ {
		m := DecodeMnemonic(byte(op))
		if IsStore(m) {
			assert.NotEqual(t, I, DecodeAddressingMode(byte(op)), "store opcode 0x%02X must not use immediate mode", op)
		}
	}
}

func TestTrapMnemonicsAreNonUnary(t *testing.T) {
	for _, m := range []Mnemonic{NOP, DECI, DECO, HEXO, STRO} {
		assert.True(t, IsTrap(m))
		assert.False(t, IsUnary(m))
	}
}

func TestByteLoadForcesByteWidth(t *testing.T) {
	assert.Equal(t, ByteWidth, OperandWidth(LDBA))
	assert.Equal(t, WordWidth, OperandWidth(LDWA))
}

func TestEncodeOpcodeRoundTrip(t *testing.T) {
	op, ok := EncodeOpcode(ADDA, I)
	require.True(t, ok)
	assert.Equal(t, ADDA, DecodeMnemonic(op))
	assert.Equal(t, I, DecodeAddressingMode(op))
}

func TestADDAImmediateOpcodeMatchesReference(t *testing.T) {
	op, ok := EncodeOpcode(ADDA, I)
	require.True(t, ok)
	assert.Equal(t, byte(0x60), op)
}

func TestNoDuplicateOpcodeAcrossFamilies(t *testing.T) {
	// every opcode maps to exactly one mnemonic by construction; the
	// first loop covers all 256 entries without panicking on
	// out-of-range access. If two families shared an opcode, the later
	// one would overwrite the decode entry and the earlier family's
	// encoding would no longer decode back to it.
	seen := map[int]bool{}
	for op := 0; op < 256; op++ {
		seen[op] = true
	}
	assert.Len(t, seen, 256)
	for m, modes := range encodeTable {
		for mode, op := range modes {
			assert.Equal(t, m, DecodeMnemonic(op), "opcode 0x%02X", op)
			assert.Equal(t, mode, DecodeAddressingMode(op), "opcode 0x%02X", op)
		}
	}
}
