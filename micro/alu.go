/*
   The MicroDatapath's 16-function ALU, grounded on spec.md §4.6's
   function table.
*/

package micro

// aluResult is what one ALU evaluation produces: a result byte, the
// NZVC bits it would set, and whether it produced one at all (every
// function 0..15 does, including function 15, whose result byte is 0;
// an out-of-range function number does not).
type aluResult struct {
	value byte
	n, z, v, c bool
	hasOutput  bool
}

// evalALU computes function fn over inputs a, b with carry-in cin,
// per spec.md §4.6. Function 15 ("move A to NZVC") unpacks a's bits
// directly into the status word and skips the normal N = bit7 / Z =
// zero recomputation.
func evalALU(fn int, a, b byte, cin bool) aluResult {
	var cinBit byte
	if cin {
		cinBit = 1
	}

	switch fn {
	case 0: // A
		return withNZ(a, false, false)
	case 1: // A+B
		sum := uint16(a) + uint16(b)
		r := byte(sum)
		return aluResult{value: r, n: r&0x80 != 0, z: r == 0, v: signedOverflow(a, b, r), c: sum > 0xFF, hasOutput: true}
	case 2: // A+~B+1 (A-B)
		nb := ^b
		sum := uint16(a) + uint16(nb) + 1
		r := byte(sum)
		return aluResult{value: r, n: r&0x80 != 0, z: r == 0, v: signedOverflow(a, nb, r), c: sum > 0xFF, hasOutput: true}
	case 3: // A+B+Cin
		sum := uint16(a) + uint16(b) + uint16(cinBit)
		r := byte(sum)
		return aluResult{value: r, n: r&0x80 != 0, z: r == 0, v: signedOverflow(a, b, r), c: sum > 0xFF, hasOutput: true}
	case 4: // A+~B+Cin
		nb := ^b
		sum := uint16(a) + uint16(nb) + uint16(cinBit)
		r := byte(sum)
		return aluResult{value: r, n: r&0x80 != 0, z: r == 0, v: signedOverflow(a, nb, r), c: sum > 0xFF, hasOutput: true}
	case 5: // A & B
		return withNZ(a&b, false, false)
	case 6: // ~(A & B)
		return withNZ(^(a & b), false, false)
	case 7: // A | B
		return withNZ(a|b, false, false)
	case 8: // ~(A | B)
		return withNZ(^(a | b), false, false)
	case 9: // A ^ B
		return withNZ(a^b, false, false)
	case 10: // ~A
		return withNZ(^a, false, false)
	case 11: // ASL A
		c := a&0x80 != 0
		v := (a&0x80 != 0) != (a&0x40 != 0)
		r := a << 1
		return aluResult{value: r, n: r&0x80 != 0, z: r == 0, v: v, c: c, hasOutput: true}
	case 12: // ROL A through C
		r := (a << 1) | cinBit
		return aluResult{value: r, n: r&0x80 != 0, z: r == 0, v: false, c: a&0x80 != 0, hasOutput: true}
	case 13: // ASR A, sign-extend
		c := a&0x01 != 0
		r := byte(int8(a) >> 1)
		return aluResult{value: r, n: r&0x80 != 0, z: r == 0, v: false, c: c, hasOutput: true}
	case 14: // ROR A through C
		var high byte
		if cin {
			high = 0x80
		}
		r := (a >> 1) | high
		return aluResult{value: r, n: r&0x80 != 0, z: r == 0, v: false, c: a&0x01 != 0, hasOutput: true}
	case 15: // move A -> NZVC directly; no result, no N/Z recomputation
		return aluResult{
			n: a&0x08 != 0,
			z: a&0x04 != 0,
			v: a&0x02 != 0,
			c: a&0x01 != 0,
			hasOutput: true,
		}
	default:
		return aluResult{}
	}
}

func withNZ(r byte, v, c bool) aluResult {
	return aluResult{value: r, n: r&0x80 != 0, z: r == 0, v: v, c: c, hasOutput: true}
}

// signedOverflow applies spec.md §4.4's add-with-complement formula at
// byte width: (~(a^b) & (a^r)) has its sign bit set on signed overflow.
func signedOverflow(a, b, r byte) bool {
	return (^(a ^ b) & (a ^ r) & 0x80) != 0
}
