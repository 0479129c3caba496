package cpu

// This file holds every main-page opcode that doesn't fit the regular
// bit-field patterns built in mapping.go: loads with side effects on HL or
// SP, the accumulator rotates, control flow that isn't a plain conditional
// branch, and the handful of single-purpose instructions (DAA, CPL, halt,
// interrupt toggles).

func patchNamedOpcodes() {
	opcodeMap[0x00] = opNOP
	opcodeMap[0x10] = opSTOP

	opcodeMap[0x02] = opLoadBCIndA
	opcodeMap[0x12] = opLoadDEIndA
	opcodeMap[0x22] = opLoadHLIncA
	opcodeMap[0x32] = opLoadHLDecA
	opcodeMap[0x0A] = opLoadABCInd
	opcodeMap[0x1A] = opLoadADEInd
	opcodeMap[0x2A] = opLoadAHLInc
	opcodeMap[0x3A] = opLoadAHLDec

	opcodeMap[0x07] = opRLCA
	opcodeMap[0x0F] = opRRCA
	opcodeMap[0x17] = opRLA
	opcodeMap[0x1F] = opRRA

	opcodeMap[0x08] = opLoadIndSP
	opcodeMap[0x18] = opJR
	opcodeMap[0xC3] = opJP
	opcodeMap[0xE9] = opJPHL

	opcodeMap[0x27] = opDAA
	opcodeMap[0x2F] = opCPL
	opcodeMap[0x37] = opSCF
	opcodeMap[0x3F] = opCCF

	opcodeMap[0x76] = opcode0x76

	opcodeMap[0xC6] = opALUImmediate(0)
	opcodeMap[0xCE] = opALUImmediate(1)
	opcodeMap[0xD6] = opALUImmediate(2)
	opcodeMap[0xDE] = opALUImmediate(3)
	opcodeMap[0xE6] = opALUImmediate(4)
	opcodeMap[0xEE] = opALUImmediate(5)
	opcodeMap[0xF6] = opALUImmediate(6)
	opcodeMap[0xFE] = opALUImmediate(7)

	opcodeMap[0xC9] = opRET
	opcodeMap[0xD9] = opcode0xD9
	opcodeMap[0xCD] = opCALL

	opcodeMap[0xE0] = opLoadHighImmA
	opcodeMap[0xF0] = opLoadAHighImm
	opcodeMap[0xE2] = opLoadHighCA
	opcodeMap[0xF2] = opLoadAHighC
	opcodeMap[0xEA] = opLoadIndImmA
	opcodeMap[0xFA] = opLoadAIndImm

	opcodeMap[0xE8] = opAddSPImm
	opcodeMap[0xF8] = opLoadHLSPImm
	opcodeMap[0xF9] = opLoadSPHL

	opcodeMap[0xF3] = opcode0xF3
	opcodeMap[0xFB] = opcode0xFB
}

func opNOP(c *CPU) int { return 4 }

// opSTOP consumes the mandatory padding byte that follows 0x10 on real
// hardware and halts the CPU; resuming STOP mode without the joypad wiring
// that normally wakes it is out of scope, so this behaves as a deep HALT.
func opSTOP(c *CPU) int {
	c.fetchByte()
	c.stopped = true
	c.halted = true
	return 4
}

func opLoadBCIndA(c *CPU) int { c.bus.Write(c.bc(), c.a); return 8 }
func opLoadDEIndA(c *CPU) int { c.bus.Write(c.de(), c.a); return 8 }
func opLoadABCInd(c *CPU) int { c.a = c.bus.Read(c.bc()); return 8 }
func opLoadADEInd(c *CPU) int { c.a = c.bus.Read(c.de()); return 8 }

func opLoadHLIncA(c *CPU) int {
	c.bus.Write(c.hl(), c.a)
	c.setHL(c.hl() + 1)
	return 8
}
func opLoadHLDecA(c *CPU) int {
	c.bus.Write(c.hl(), c.a)
	c.setHL(c.hl() - 1)
	return 8
}
func opLoadAHLInc(c *CPU) int {
	c.a = c.bus.Read(c.hl())
	c.setHL(c.hl() + 1)
	return 8
}
func opLoadAHLDec(c *CPU) int {
	c.a = c.bus.Read(c.hl())
	c.setHL(c.hl() - 1)
	return 8
}

// opRLCA/opRRCA/opRLA/opRRA reuse the CB-page rotate helpers but always
// clear Z, unlike their CB-prefixed counterparts (CB 0x00-0x1F) which set Z
// from the result.
func opRLCA(c *CPU) int { c.a = c.rlc(c.a); c.clearFlag(zeroFlag); return 4 }
func opRRCA(c *CPU) int { c.a = c.rrc(c.a); c.clearFlag(zeroFlag); return 4 }
func opRLA(c *CPU) int  { c.a = c.rl(c.a); c.clearFlag(zeroFlag); return 4 }
func opRRA(c *CPU) int  { c.a = c.rr(c.a); c.clearFlag(zeroFlag); return 4 }

// opLoadIndSP implements LD (nn),SP, storing the stack pointer at an
// immediate 16-bit address, low byte first.
func opLoadIndSP(c *CPU) int {
	addr := c.fetchWord()
	c.bus.Write(addr, uint8(c.sp))
	c.bus.Write(addr+1, uint8(c.sp>>8))
	return 20
}

func opJR(c *CPU) int { return c.jrIf(true) }
func opJP(c *CPU) int { return c.jpIf(true) }

// opJPHL jumps to the address in HL itself, not the value it points to.
func opJPHL(c *CPU) int {
	c.pc = c.hl()
	return 4
}

func opDAA(c *CPU) int { c.daa(); return 4 }
func opCPL(c *CPU) int {
	c.a = ^c.a
	c.setFlag(subFlag)
	c.setFlag(halfCarryFlag)
	return 4
}
func opSCF(c *CPU) int {
	c.setFlag(carryFlag)
	c.clearFlag(subFlag)
	c.clearFlag(halfCarryFlag)
	return 4
}
func opCCF(c *CPU) int {
	c.flagBit(carryFlag, !c.hasFlag(carryFlag))
	c.clearFlag(subFlag)
	c.clearFlag(halfCarryFlag)
	return 4
}

// opcode0x76 suspends the CPU until an interrupt class becomes pending; Step
// handles the wake-up (and the HALT-bug corner case) on the CPU's behalf.
func opcode0x76(c *CPU) int {
	c.halted = true
	return 4
}

// opALUImmediate returns a handler for one of the eight ADD/ADC/SUB/SBC/
// AND/XOR/OR/CP A,n opcodes, selected by group (same ordering as the 0x80
// register-operand block built in mapping.go).
func opALUImmediate(group int) Opcode {
	ops := []func(c *CPU, v uint8){
		(*CPU).addA,
		(*CPU).adcA,
		(*CPU).subA,
		(*CPU).sbcA,
		(*CPU).andA,
		(*CPU).xorA,
		(*CPU).orA,
		(*CPU).cpA,
	}
	fn := ops[group]
	return func(c *CPU) int {
		fn(c, c.fetchByte())
		return 8
	}
}

// opRET is plain, unconditional RET; it is always taken, unlike the four
// RET cc opcodes built from retIf in mapping.go.
func opRET(c *CPU) int {
	c.pc = c.popStack()
	return 16
}

// opcode0xD9 pops PC and re-enables interrupts immediately, without the
// one-instruction EI delay.
func opcode0xD9(c *CPU) int {
	c.pc = c.popStack()
	c.interruptsEnabled = true
	return 16
}

func opCALL(c *CPU) int { return c.callIf(true) }

func opLoadHighImmA(c *CPU) int {
	n := c.fetchByte()
	c.bus.Write(0xFF00+uint16(n), c.a)
	return 12
}
func opLoadAHighImm(c *CPU) int {
	n := c.fetchByte()
	c.a = c.bus.Read(0xFF00 + uint16(n))
	return 12
}
func opLoadHighCA(c *CPU) int {
	c.bus.Write(0xFF00+uint16(c.c), c.a)
	return 8
}
func opLoadAHighC(c *CPU) int {
	c.a = c.bus.Read(0xFF00 + uint16(c.c))
	return 8
}
func opLoadIndImmA(c *CPU) int {
	addr := c.fetchWord()
	c.bus.Write(addr, c.a)
	return 16
}
func opLoadAIndImm(c *CPU) int {
	addr := c.fetchWord()
	c.a = c.bus.Read(addr)
	return 16
}

func opAddSPImm(c *CPU) int {
	e := int8(c.fetchByte())
	c.sp = c.addSPSigned(e)
	return 16
}

// opLoadHLSPImm implements LD HL,SP+e8, sharing flag semantics with ADD
// SP,e8 but leaving SP itself untouched.
func opLoadHLSPImm(c *CPU) int {
	e := int8(c.fetchByte())
	c.setHL(c.addSPSigned(e))
	return 12
}

func opLoadSPHL(c *CPU) int {
	c.sp = c.hl()
	return 8
}

func opcode0xF3(c *CPU) int {
	c.interruptsEnabled = false
	c.eiPending = false
	return 4
}

// opcode0xFB enables interrupts after the NEXT instruction completes, matching
// the one-instruction delay real hardware exhibits.
func opcode0xFB(c *CPU) int {
	c.eiPending = true
	return 4
}
