// Package cpu implements the Sharp LR35902 instruction interpreter: the
// fetch/decode/execute loop, the full opcode and CB-prefixed opcode maps,
// and interrupt dispatch.
package cpu

import (
	"fmt"

	"github.com/astrolane/dmgcore/dmg/addr"
	"github.com/astrolane/dmgcore/dmg/memory"
)

// interruptVectors maps an IE/IF bit index to its service routine address,
// in priority order (index 0 / VBlank is highest priority).
var interruptVectors = [5]uint16{0x40, 0x48, 0x50, 0x58, 0x60}

// CPU holds all Sharp LR35902 register state and drives instruction
// execution against a bus.
type CPU struct {
	a, b, c, d, e, h, l, f uint8
	sp, pc                 uint16

	bus *memory.MMU

	interruptsEnabled bool // IME
	eiPending         bool // EI takes effect after the next instruction
	halted            bool
	haltBug           bool
	stopped           bool

	cycles        uint64
	currentOpcode uint16
	dispatched    bool // set by handleInterrupts when it actually serviced an interrupt this call
}

// New creates a CPU wired to the given bus, with registers in the state a
// DMG leaves them in immediately after the boot ROM hands off control (PC
// at the cartridge entry point, 0x0100). Callers that want to run the boot
// ROM itself should reset pc to 0x0000 after construction.
func New(bus *memory.MMU) *CPU {
	return &CPU{
		bus: bus,
		a:   0x01, f: 0xB0,
		b: 0x00, c: 0x13,
		d: 0x00, e: 0xD8,
		h: 0x01, l: 0x4D,
		sp: 0xFFFE,
		pc: 0x0100,
	}
}

// Reset reinitializes registers to the boot-ROM entry state (PC=0x0000),
// for callers that load a boot ROM image at 0x0000.
func (c *CPU) Reset() {
	c.a, c.f = 0, 0
	c.b, c.c = 0, 0
	c.d, c.e = 0, 0
	c.h, c.l = 0, 0
	c.sp = 0
	c.pc = 0
	c.interruptsEnabled = false
	c.eiPending = false
	c.halted = false
	c.haltBug = false
	c.stopped = false
}

// PC returns the current program counter, mainly for disassembly/debugging.
func (c *CPU) PC() uint16 { return c.pc }

// SP returns the current stack pointer.
func (c *CPU) SP() uint16 { return c.sp }

// Registers returns the 8-bit register file as (a, f, b, c, d, e, h, l), for
// debugging/introspection use.
func (c *CPU) Registers() (a, f, b, cc, d, e, h, l uint8) {
	return c.a, c.f, c.b, c.c, c.d, c.e, c.h, c.l
}

// IME reports whether the interrupt master enable flag is set.
func (c *CPU) IME() bool { return c.interruptsEnabled }

// Halted reports whether the CPU is currently suspended awaiting an
// interrupt.
func (c *CPU) Halted() bool { return c.halted }

// Cycles returns the total number of machine cycles executed since the CPU
// was created, for debugging/introspection use.
func (c *CPU) Cycles() uint64 { return c.cycles }

// Step advances the CPU by one step and returns the number of machine
// cycles it consumed: a step that dispatches a pending interrupt executes
// no instruction and costs 20 cycles, a halted step with nothing pending
// idles for 4, and any other step fetches and executes exactly one
// instruction.
func (c *CPU) Step() int {
	pending := c.handleInterrupts()

	if c.halted {
		if pending {
			c.halted = false
			if !c.dispatched {
				// HALT bug: IME=0 with a pending interrupt wakes the CPU
				// but the next opcode fetch fails to advance PC, causing
				// it to execute twice. c.dispatched is false here precisely
				// when handleInterrupts found a pending class but IME was
				// clear, so it reported pending without servicing it.
				c.haltBug = true
			}
		} else {
			c.applyEIDelay()
			return 4
		}
	}

	if c.dispatched {
		// The interrupt service routine is a pseudo-instruction: its 20
		// cycles were already charged by handleInterrupts, and the next
		// Step() call fetches the first real opcode at the vector.
		c.applyEIDelay()
		return 20
	}

	cycles := c.execute()
	c.applyEIDelay()
	c.cycles += uint64(cycles)
	return cycles
}

func (c *CPU) applyEIDelay() {
	if c.eiPending {
		c.eiPending = false
		c.interruptsEnabled = true
	}
}

// execute fetches, decodes and runs a single opcode (or services the
// HALT-bug double read), returning its cycle cost.
func (c *CPU) execute() int {
	opcode := Decode(c)
	if opcode == nil {
		panic(fmt.Sprintf("cpu: unmapped opcode 0x%04X at pc=0x%04X", c.currentOpcode, c.pc))
	}

	if c.haltBug {
		// The PC is not incremented past the opcode byte, so the same
		// instruction byte is consumed twice; here we simply re-run the
		// handler without having advanced pc beforehand.
		c.haltBug = false
		return opcode(c)
	}

	c.advancePastOpcode()
	return opcode(c)
}

// advancePastOpcode moves pc past the opcode byte(s) that Decode peeked at,
// prior to the handler consuming any operand bytes.
func (c *CPU) advancePastOpcode() {
	if c.currentOpcode&0xFF00 == 0xCB00 {
		c.pc += 2
	} else {
		c.pc++
	}
}

// fetchByte reads the byte at pc and advances pc by one.
func (c *CPU) fetchByte() uint8 {
	v := c.bus.Read(c.pc)
	c.pc++
	return v
}

// fetchWord reads the little-endian word at pc and advances pc by two.
func (c *CPU) fetchWord() uint16 {
	lo := uint16(c.fetchByte())
	hi := uint16(c.fetchByte())
	return hi<<8 | lo
}

func (c *CPU) pushStack(v uint16) {
	c.sp -= 2
	c.bus.Write(c.sp, uint8(v))
	c.bus.Write(c.sp+1, uint8(v>>8))
}

func (c *CPU) popStack() uint16 {
	lo := uint16(c.bus.Read(c.sp))
	hi := uint16(c.bus.Read(c.sp + 1))
	c.sp += 2
	return hi<<8 | lo
}

// handleInterrupts checks IE & IF for a pending, enabled-class interrupt. If
// IME is set it dispatches the highest-priority one (20 cycles: push pc,
// clear IME and the serviced IF bit, jump to the vector) and returns true.
// If IME is clear it still reports whether a class is pending, without
// dispatching, so callers can implement HALT wake-up and the HALT bug.
func (c *CPU) handleInterrupts() bool {
	c.dispatched = false

	ifReg := c.bus.Read(addr.IF) & 0x1F
	ieReg := c.bus.Read(addr.IE) & 0x1F
	pending := ifReg & ieReg
	if pending == 0 {
		return false
	}
	if !c.interruptsEnabled {
		return true
	}

	var bitIdx uint8
	for i := uint8(0); i < 5; i++ {
		if pending&(1<<i) != 0 {
			bitIdx = i
			break
		}
	}

	c.bus.Write(addr.IF, ifReg&^(1<<bitIdx))
	c.interruptsEnabled = false
	c.pushStack(c.pc)
	c.pc = interruptVectors[bitIdx]
	c.cycles += 20
	c.dispatched = true
	return true
}
