package dmg

import (
	"github.com/astrolane/dmgcore/dmg/debug"
	"github.com/astrolane/dmgcore/dmg/input/action"
	"github.com/astrolane/dmgcore/dmg/timing"
	"github.com/astrolane/dmgcore/dmg/video"
)

// Emulator is the interface for all emulator implementations
type Emulator interface {
	RunUntilFrame() error
	GetCurrentFrame() *video.FrameBuffer
	HandleAction(act action.Action, pressed bool)
	ExtractDebugData() *debug.CompleteDebugData
	SetFrameLimiter(limiter timing.Limiter)
	ResetFrameTiming()
}

var _ Emulator = (*DMG)(nil)
