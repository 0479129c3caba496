package cpu

import "log/slog"

// Opcode represents a function that executes a single decoded instruction
// and returns the machine cycles it consumed.
type Opcode func(*CPU) int

// Decode peeks the opcode at pc (following a 0xCB prefix if present) without
// advancing pc, records it in cpu.currentOpcode, and returns its handler.
func Decode(c *CPU) Opcode {
	b := c.bus.Read(c.pc)
	if b == 0xCB {
		cb := c.bus.Read(c.pc + 1)
		c.currentOpcode = 0xCB00 | uint16(cb)
		return opcodeCBMap[cb]
	}
	c.currentOpcode = uint16(b)
	return opcodeMap[b]
}

// decode resolves an already-known opcode word (as produced by Decode, or by
// a disassembler) to its handler; used by tooling outside the fetch loop.
func decode(opcode uint16) Opcode {
	if opcode&0xCB00 == 0xCB00 {
		return opcodeCBMap[uint8(opcode)]
	}
	return opcodeMap[uint8(opcode)]
}

var opcodeMap [256]Opcode
var opcodeCBMap [256]Opcode

// pairGroup selects one of the four 16-bit register pairs (BC, DE, HL, and
// SP or AF) that the main page encodes in bits 5-4 of the opcode.
type pairGroup uint8

const (
	pairBC pairGroup = iota
	pairDE
	pairHL
	pairSPorAF // SP for most groups, AF for PUSH/POP
)

func (c *CPU) getPair16(g pairGroup) uint16 {
	switch g {
	case pairBC:
		return c.bc()
	case pairDE:
		return c.de()
	case pairHL:
		return c.hl()
	default:
		return c.sp
	}
}

func (c *CPU) setPair16(g pairGroup, v uint16) {
	switch g {
	case pairBC:
		c.setBC(v)
	case pairDE:
		c.setDE(v)
	case pairHL:
		c.setHL(v)
	default:
		c.sp = v
	}
}

func (c *CPU) getPushPopPair(g pairGroup) uint16 {
	if g == pairSPorAF {
		return c.af()
	}
	return c.getPair16(g)
}

func (c *CPU) setPushPopPair(g pairGroup, v uint16) {
	if g == pairSPorAF {
		c.setAF(v)
		return
	}
	c.setPair16(g, v)
}

// condition evaluates one of the four branch conditions encoded in bits 4-3
// of conditional JP/JR/CALL/RET opcodes: 0=NZ, 1=Z, 2=NC, 3=C.
func (c *CPU) condition(idx uint8) bool {
	switch idx {
	case 0:
		return !c.hasFlag(zeroFlag)
	case 1:
		return c.hasFlag(zeroFlag)
	case 2:
		return !c.hasFlag(carryFlag)
	default:
		return c.hasFlag(carryFlag)
	}
}

func illegalOpcode(c *CPU) int {
	slog.Warn("cpu: illegal opcode executed, treating as NOP", "opcode", c.currentOpcode, "pc", c.pc)
	return 4
}

// init builds the two 256-entry dispatch tables once at package load. The
// bulk of the main page follows the LR35902's regular bit-field encoding
// (register selects in bits 0-2/3-5, pair selects in bits 4-5); those blocks
// are filled programmatically, and the table is then patched with the named
// handlers for every irregular opcode (loads with side effects, control
// flow, and the handful of single-purpose instructions).
func init() {
	for i := range opcodeMap {
		opcodeMap[i] = illegalOpcode
	}

	buildLoadRegisterToRegister()
	buildIncDecR8()
	buildLoadR8Immediate()
	buildALUWithA()
	buildIncDecR16()
	buildLoadR16Immediate()
	buildAddHLR16()
	buildPushPop()
	buildRST()
	buildConditionalControlFlow()
	patchNamedOpcodes()

	buildCBPage()
}

// buildLoadRegisterToRegister fills 0x40-0x7F, the 64 LD r,r' combinations;
// 0x76 (which would be LD (HL),(HL)) is HALT instead and is patched later.
func buildLoadRegisterToRegister() {
	for op := 0x40; op <= 0x7F; op++ {
		dst := regIndex((op >> 3) & 7)
		src := regIndex(op & 7)
		cycles := 4
		if dst == regHLInd || src == regHLInd {
			cycles = 8
		}
		opcodeMap[op] = func(c *CPU) int {
			c.setR8(dst, c.getR8(src))
			return cycles
		}
	}
}

// buildIncDecR8 fills INC r / DEC r at opcodes 0b00xxx100 / 0b00xxx101.
func buildIncDecR8() {
	for reg := 0; reg < 8; reg++ {
		r := regIndex(reg)
		cyclesFor := func(r regIndex) int {
			if r == regHLInd {
				return 12
			}
			return 4
		}
		cycles := cyclesFor(r)

		incOp := uint8(0x04 | reg<<3)
		opcodeMap[incOp] = func(c *CPU) int {
			c.setR8(r, c.inc8(c.getR8(r)))
			return cycles
		}

		decOp := uint8(0x05 | reg<<3)
		opcodeMap[decOp] = func(c *CPU) int {
			c.setR8(r, c.dec8(c.getR8(r)))
			return cycles
		}
	}
}

// buildLoadR8Immediate fills LD r,n at opcodes 0b00xxx110.
func buildLoadR8Immediate() {
	for reg := 0; reg < 8; reg++ {
		r := regIndex(reg)
		cycles := 8
		if r == regHLInd {
			cycles = 12
		}
		op := uint8(0x06 | reg<<3)
		opcodeMap[op] = func(c *CPU) int {
			n := c.fetchByte()
			c.setR8(r, n)
			return cycles
		}
	}
}

// buildALUWithA fills 0x80-0xBF: ADD/ADC/SUB/SBC/AND/XOR/OR/CP A,r.
func buildALUWithA() {
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
	for group := 0; group < 8; group++ {
		fn := ops[group]
		for reg := 0; reg < 8; reg++ {
			r := regIndex(reg)
			cycles := 4
			if r == regHLInd {
				cycles = 8
			}
			op := uint8(0x80 | group<<3 | reg)
			opcodeMap[op] = func(c *CPU) int {
				fn(c, c.getR8(r))
				return cycles
			}
		}
	}
}

// buildIncDecR16 fills INC rr / DEC rr at 0b00xx0011 / 0b00xx1011.
func buildIncDecR16() {
	for g := pairGroup(0); g < 4; g++ {
		group := g
		incOp := uint8(0x03 | uint8(group)<<4)
		opcodeMap[incOp] = func(c *CPU) int {
			c.setPair16(group, c.getPair16(group)+1)
			return 8
		}
		decOp := uint8(0x0B | uint8(group)<<4)
		opcodeMap[decOp] = func(c *CPU) int {
			c.setPair16(group, c.getPair16(group)-1)
			return 8
		}
	}
}

// buildLoadR16Immediate fills LD rr,nn at 0b00xx0001.
func buildLoadR16Immediate() {
	for g := pairGroup(0); g < 4; g++ {
		group := g
		op := uint8(0x01 | uint8(group)<<4)
		opcodeMap[op] = func(c *CPU) int {
			c.setPair16(group, c.fetchWord())
			return 12
		}
	}
}

// buildAddHLR16 fills ADD HL,rr at 0b00xx1001.
func buildAddHLR16() {
	for g := pairGroup(0); g < 4; g++ {
		group := g
		op := uint8(0x09 | uint8(group)<<4)
		opcodeMap[op] = func(c *CPU) int {
			c.addHL(c.getPair16(group))
			return 8
		}
	}
}

// buildPushPop fills PUSH rr / POP rr at 0b11xx0101 / 0b11xx0001; the pair
// index 3 selects AF rather than SP for these two families.
func buildPushPop() {
	for g := pairGroup(0); g < 4; g++ {
		group := g
		pushOp := uint8(0xC5 | uint8(group)<<4)
		opcodeMap[pushOp] = func(c *CPU) int {
			c.pushStack(c.getPushPopPair(group))
			return 16
		}
		popOp := uint8(0xC1 | uint8(group)<<4)
		opcodeMap[popOp] = func(c *CPU) int {
			c.setPushPopPair(group, c.popStack())
			return 12
		}
	}
}

// buildRST fills the 8 RST vectors at 0b11xxx111.
func buildRST() {
	for slot := 0; slot < 8; slot++ {
		target := uint16(slot * 8)
		op := uint8(0xC7 | slot<<3)
		opcodeMap[op] = func(c *CPU) int {
			return c.rst(target)
		}
	}
}

// buildConditionalControlFlow fills JR/JP/CALL/RET cc at their four slots
// each (bits 4-3 select the condition).
func buildConditionalControlFlow() {
	for cc := uint8(0); cc < 4; cc++ {
		idx := cc

		jrOp := uint8(0x20 | cc<<3)
		opcodeMap[jrOp] = func(c *CPU) int { return c.jrIf(c.condition(idx)) }

		jpOp := uint8(0xC2 | cc<<3)
		opcodeMap[jpOp] = func(c *CPU) int { return c.jpIf(c.condition(idx)) }

		callOp := uint8(0xC4 | cc<<3)
		opcodeMap[callOp] = func(c *CPU) int { return c.callIf(c.condition(idx)) }

		retOp := uint8(0xC0 | cc<<3)
		opcodeMap[retOp] = func(c *CPU) int { return c.retIf(c.condition(idx)) }
	}
}
