package cpu

// buildCBPage fills the entire CB-prefixed page, which (unlike the main
// page) is perfectly regular: bits 0-2 always select an 8-bit operand via
// regIndex, and the remaining bits select a rotate/shift op (0x00-0x3F), a
// bit number to test (0x40-0x7F), reset (0x80-0xBF) or set (0xC0-0xFF).
func buildCBPage() {
	shifts := []func(c *CPU, v uint8) uint8{
		(*CPU).rlc,
		(*CPU).rrc,
		(*CPU).rl,
		(*CPU).rr,
		(*CPU).sla,
		(*CPU).sra,
		(*CPU).swap,
		(*CPU).srl,
	}

	for op := 0; op < 256; op++ {
		r := regIndex(op & 7)
		group := (op >> 3) & 7
		cycles := 8
		if r == regHLInd {
			cycles = 16
		}

		switch {
		case op < 0x40:
			fn := shifts[group]
			opcodeCBMap[op] = func(c *CPU) int {
				c.setR8(r, fn(c, c.getR8(r)))
				return cycles
			}
		case op < 0x80:
			bitN := uint8(group)
			bitCycles := cycles
			if r == regHLInd {
				// BIT b,(HL) only reads memory, so it skips the write-back
				// cost the other (HL) operand forms pay.
				bitCycles = 12
			}
			opcodeCBMap[op] = func(c *CPU) int {
				c.bit(bitN, c.getR8(r))
				return bitCycles
			}
		case op < 0xC0:
			bitN := uint8(group)
			opcodeCBMap[op] = func(c *CPU) int {
				c.setR8(r, res(bitN, c.getR8(r)))
				return cycles
			}
		default:
			bitN := uint8(group)
			opcodeCBMap[op] = func(c *CPU) int {
				c.setR8(r, set(bitN, c.getR8(r)))
				return cycles
			}
		}
	}
}
