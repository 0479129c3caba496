package dmg

import (
	"fmt"
	"io/ioutil"
	"log/slog"
	"sync"

	"github.com/astrolane/dmgcore/dmg/addr"
	"github.com/astrolane/dmgcore/dmg/cpu"
	"github.com/astrolane/dmgcore/dmg/debug"
	"github.com/astrolane/dmgcore/dmg/input"
	"github.com/astrolane/dmgcore/dmg/input/action"
	"github.com/astrolane/dmgcore/dmg/input/event"
	"github.com/astrolane/dmgcore/dmg/memory"
	"github.com/astrolane/dmgcore/dmg/timing"
	"github.com/astrolane/dmgcore/dmg/video"
)

// DebuggerState represents the current debugger mode
type DebuggerState int

const (
	DebuggerRunning   DebuggerState = iota // Normal execution
	DebuggerPaused                         // Paused, waiting for commands
	DebuggerStep                           // Execute one instruction then pause
	DebuggerStepFrame                      // Execute one frame then pause
)

// DMG represents the root struct and entry point for running the emulation.
// It satisfies the Emulator interface declared in emulator.go.
type DMG struct {
	cpu *cpu.CPU
	gpu *video.GPU
	mem *memory.MMU

	input *input.Manager

	limiter timing.Limiter

	// Debugger state
	debuggerState    DebuggerState
	debuggerMutex    sync.RWMutex
	stepRequested    bool
	frameRequested   bool
	instructionCount uint64
	frameCount       uint64

	// Completion detection for test ROMs that spin in a tight loop once
	// finished (e.g. Blargg's test suite): a ROM is considered done once its
	// PC has repeated the same value loopMinCount times in a row, or once
	// maxFrames have elapsed, whichever comes first.
	maxFrames    uint64
	loopMinCount int
	loopPC       uint16
	loopRepeats  int
}

func (e *DMG) init(mem *memory.MMU) {
	e.cpu = cpu.New(mem)
	e.gpu = video.NewGpu(mem)
	e.mem = mem
	e.limiter = timing.NewNoOpLimiter()
	e.input = input.NewManager(mem)
	e.input.On(action.EmulatorPauseToggle, event.Press, func() {
		if e.GetDebuggerState() == DebuggerPaused {
			e.DebuggerResume()
		} else {
			e.DebuggerPause()
		}
	})
	e.input.On(action.EmulatorStepFrame, event.Press, e.DebuggerStepFrame)
	e.input.On(action.EmulatorStepInstruction, event.Press, e.DebuggerStepInstruction)

	mem.SetTimerSeed(0xABCC)
}

// New creates a new DMG instance with an empty cartridge.
func New() *DMG {
	e := &DMG{}
	e.init(memory.NewWithCartridge(memory.NewCartridge()))

	return e
}

// NewWithFile creates a new DMG instance and loads the ROM file specified into it.
func NewWithFile(path string) (*DMG, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}

	slog.Debug("Loaded ROM data", "size", len(data))

	e := &DMG{}
	e.init(memory.NewWithCartridge(memory.NewCartridgeWithData(data)))

	return e, nil
}

// RunUntilFrame advances emulation by one frame, executing whole
// instructions until at least 70224 cycles have elapsed, honoring the
// current debugger state. It never returns an error itself;
// the error return exists to satisfy the Emulator interface for backends
// that surface fatal host-side failures (e.g. a dead SDL2 window).
func (e *DMG) RunUntilFrame() error {
	e.debuggerMutex.RLock()
	state := e.debuggerState
	e.debuggerMutex.RUnlock()

	// Handle paused state - don't execute anything
	if state == DebuggerPaused {
		e.limiter.WaitForNextFrame()
		return nil
	}

	// Handle step instruction - execute one instruction then pause
	if state == DebuggerStep {
		e.debuggerMutex.Lock()
		if e.stepRequested {
			e.stepRequested = false
			e.debuggerMutex.Unlock()

			// Execute one CPU instruction
			oldPC := e.cpu.PC()
			cycles := e.cpu.Step()
			e.mem.Tick(cycles)
			e.gpu.Tick(cycles)
			e.instructionCount++

			// Log the executed instruction
			slog.Debug("Step executed", "pc", fmt.Sprintf("0x%04X", oldPC), "new_pc", fmt.Sprintf("0x%04X", e.cpu.PC()))

			// Pause after execution
			e.SetDebuggerState(DebuggerPaused)
		} else {
			e.debuggerMutex.Unlock()
		}
		e.limiter.WaitForNextFrame()
		return nil
	}

	// Handle step frame - execute one frame then pause
	if state == DebuggerStepFrame {
		e.debuggerMutex.Lock()
		frameRequested := e.frameRequested
		if frameRequested {
			e.frameRequested = false
		}
		e.debuggerMutex.Unlock()

		if frameRequested {
			// Execute one full frame
			total := 0
			for {
				cycles := e.cpu.Step()
				e.mem.Tick(cycles)
				e.gpu.Tick(cycles)
				e.instructionCount++
				total += cycles

				if total >= 70224 {
					break
				}
			}
			e.frameCount++
			slog.Debug("Frame step completed", "frame", e.frameCount, "instructions", e.instructionCount)
			e.SetDebuggerState(DebuggerPaused)
		}
		e.limiter.WaitForNextFrame()
		return nil
	}

	// Normal execution (DebuggerRunning)
	total := 0
	for {
		cycles := e.cpu.Step()
		e.mem.Tick(cycles)
		e.gpu.Tick(cycles)
		e.instructionCount++

		total += cycles

		if total >= 70224 {
			e.frameCount++
			// Log every 60 frames (once per second at 60 FPS) only when running
			if e.frameCount%60 == 0 {
				slog.Debug("Frame completed", "frame", e.frameCount, "pc", fmt.Sprintf("0x%04X", e.cpu.PC()))
			}
			break
		}
	}
	e.limiter.WaitForNextFrame()
	return nil
}

func (e *DMG) GetCurrentFrame() *video.FrameBuffer {
	return e.gpu.GetFrameBuffer()
}

// HandleAction routes a key action through the input manager, which maps
// Game Boy controls to joypad presses and everything else to a registered
// debugger/emulator callback, if any.
func (e *DMG) HandleAction(act action.Action, pressed bool) {
	evt := event.Release
	if pressed {
		evt = event.Press
	}
	e.input.Trigger(act, evt)
}

func (e *DMG) HandleKeyPress(key memory.JoypadKey) {
	e.mem.HandleKeyPress(key)
}

func (e *DMG) HandleKeyRelease(key memory.JoypadKey) {
	e.mem.HandleKeyRelease(key)
}

func (e *DMG) GetCPU() *cpu.CPU {
	return e.cpu
}

// ExtractDebugData snapshots CPU, memory, OAM and VRAM state for debug
// displays. It returns nil if the emulator has not been initialized yet
// (e.g. a zero-value DMG{} before init has run).
func (e *DMG) ExtractDebugData() *debug.CompleteDebugData {
	if e.cpu == nil || e.mem == nil {
		return nil
	}

	a, f, b, c, d, ee, h, l := e.cpu.Registers()
	pc := e.cpu.PC()

	const snapshotSize = 16
	startAddr := pc
	size := snapshotSize
	if uint32(startAddr)+uint32(size) > 0x10000 {
		size = int(0x10000 - uint32(startAddr))
	}
	bytes := make([]uint8, size)
	for i := 0; i < size; i++ {
		bytes[i] = e.mem.Read(startAddr + uint16(i))
	}

	return &debug.CompleteDebugData{
		OAM:  debug.ExtractOAMData(e.mem, int(e.gpu.CurrentLine()), 8),
		VRAM: debug.ExtractVRAMData(e.mem),
		CPU: &debug.CPUState{
			A: a, F: f, B: b, C: c, D: d, E: ee, H: h, L: l,
			SP:     e.cpu.SP(),
			PC:     pc,
			IME:    e.cpu.IME(),
			Cycles: e.cpu.Cycles(),
		},
		Memory: &debug.MemorySnapshot{
			StartAddr: startAddr,
			Bytes:     bytes,
		},
		DebuggerState:   debug.DebuggerState(e.GetDebuggerState()),
		InterruptEnable: e.mem.Read(addr.IE),
		InterruptFlags:  e.mem.Read(addr.IF),
	}
}

// SetFrameLimiter installs the pacing strategy used between frames.
func (e *DMG) SetFrameLimiter(limiter timing.Limiter) {
	e.limiter = limiter
}

// ResetFrameTiming resets the installed frame limiter's internal clock,
// e.g. after resuming from a long debugger pause.
func (e *DMG) ResetFrameTiming() {
	if e.limiter != nil {
		e.limiter.Reset()
	}
}

// Debugger control methods
func (e *DMG) SetDebuggerState(state DebuggerState) {
	e.debuggerMutex.Lock()
	defer e.debuggerMutex.Unlock()
	e.debuggerState = state
	slog.Debug("Debugger state changed", "state", state)
}

func (e *DMG) GetDebuggerState() DebuggerState {
	e.debuggerMutex.RLock()
	defer e.debuggerMutex.RUnlock()
	return e.debuggerState
}

func (e *DMG) DebuggerPause() {
	e.SetDebuggerState(DebuggerPaused)
	slog.Info("Emulator paused")
}

func (e *DMG) DebuggerResume() {
	e.SetDebuggerState(DebuggerRunning)
	slog.Info("Emulator resumed")
}

func (e *DMG) DebuggerStepInstruction() {
	e.debuggerMutex.Lock()
	defer e.debuggerMutex.Unlock()
	e.stepRequested = true
	e.debuggerState = DebuggerStep
	slog.Info("Step instruction requested")
}

func (e *DMG) DebuggerStepFrame() {
	e.debuggerMutex.Lock()
	defer e.debuggerMutex.Unlock()
	e.frameRequested = true
	e.debuggerState = DebuggerStepFrame
	slog.Info("Step frame requested")
}

func (e *DMG) GetInstructionCount() uint64 {
	return e.instructionCount
}

func (e *DMG) GetFrameCount() uint64 {
	return e.frameCount
}

func (e *DMG) GetMMU() *memory.MMU {
	return e.mem
}

// ConfigureCompletionDetection arms the PC-loop heuristic used by
// RunUntilComplete: the ROM is considered finished once its PC repeats the
// same value minLoopCount times in a row, or once maxFrames have elapsed.
func (e *DMG) ConfigureCompletionDetection(maxFrames uint64, minLoopCount int) {
	e.maxFrames = maxFrames
	e.loopMinCount = minLoopCount
	e.loopPC = 0
	e.loopRepeats = 0
}

// RunUntilComplete runs frames until the PC-loop heuristic armed by
// ConfigureCompletionDetection fires, or maxFrames is reached, whichever
// comes first. Requires ConfigureCompletionDetection to have been called.
func (e *DMG) RunUntilComplete() {
	for e.frameCount < e.maxFrames {
		e.RunUntilFrame()

		pc := e.cpu.PC()
		if pc == e.loopPC {
			e.loopRepeats++
			if e.loopRepeats >= e.loopMinCount {
				return
			}
		} else {
			e.loopPC = pc
			e.loopRepeats = 1
		}
	}
}
