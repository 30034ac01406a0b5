package systems

import (
	"time"

	"github.com/spaghettifunk/reel/engine/renderer/metadata"
)

// UniformInputs is what the global uniform block of a frame is derived from.
type UniformInputs struct {
	Width, Height uint32
	Time          float64
	Delta         float64
	Frame         uint64
	SampleRate    float64
	Now           time.Time
	Mouse         mouseState
}

func BuildUniforms(in UniformInputs) metadata.Uniforms {
	u := metadata.Uniforms{
		Resolution: [3]float32{float32(in.Width), float32(in.Height), 1},
		Time:       float32(in.Time),
		Mouse:      MouseUniform(in.Mouse, in.Height),
		Date:       DateUniform(in.Now),
		TimeDelta:  float32(in.Delta),
		SampleRate: float32(in.SampleRate),
		Frame:      int32(in.Frame),
	}
	if in.Delta > 0 {
		u.FrameRate = float32(1 / in.Delta)
	}
	return u
}

// MouseUniform packs the cursor the way shaders expect iMouse: xy is the last position
// while dragging, zw the drag start. z is negative once the button is up and w is only
// positive on the frame the button went down.
func MouseUniform(m mouseState, height uint32) [4]float32 {
	flip := func(y float64) float32 {
		return float32(float64(height) - 1 - y)
	}
	z := float32(m.dragX)
	w := flip(m.dragY)
	if !m.down {
		z = -z
	}
	if !m.down || m.lastX != m.dragX || m.lastY != m.dragY {
		w = -w
	}
	return [4]float32{float32(m.lastX), flip(m.lastY), z, w}
}

// DateUniform is year, zero based month, day of month and seconds since midnight.
func DateUniform(t time.Time) [4]float32 {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return [4]float32{
		float32(t.Year()),
		float32(t.Month() - 1),
		float32(t.Day()),
		float32(t.Sub(midnight).Seconds()),
	}
}
