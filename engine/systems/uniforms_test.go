package systems

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildUniforms(t *testing.T) {
	now := time.Date(2024, time.March, 9, 1, 2, 3, 0, time.UTC)
	u := BuildUniforms(UniformInputs{
		Width:      800,
		Height:     600,
		Time:       1.5,
		Delta:      0.02,
		Frame:      42,
		SampleRate: 44100,
		Now:        now,
	})

	assert.Equal(t, [3]float32{800, 600, 1}, u.Resolution)
	assert.Equal(t, float32(1.5), u.Time)
	assert.Equal(t, int32(42), u.Frame)
	assert.InDelta(t, 50, u.FrameRate, 1e-3)
	assert.Equal(t, float32(44100), u.SampleRate)
	assert.Equal(t, [4]float32{2024, 2, 9, 3723}, u.Date)
}

func TestBuildUniformsZeroDelta(t *testing.T) {
	u := BuildUniforms(UniformInputs{Width: 1, Height: 1})
	assert.Zero(t, u.FrameRate)
}

func TestMouseUniform(t *testing.T) {
	// Button down on this frame: drag start equals the last position.
	m := mouseState{down: true, lastX: 10, lastY: 20, dragX: 10, dragY: 20}
	assert.Equal(t, [4]float32{10, 79, 10, 79}, MouseUniform(m, 100))

	// Dragging: z stays positive, w turns negative.
	m.lastX, m.lastY = 30, 40
	assert.Equal(t, [4]float32{30, 59, 10, -79}, MouseUniform(m, 100))

	// Released: both negative.
	m.down = false
	assert.Equal(t, [4]float32{30, 59, -10, -79}, MouseUniform(m, 100))
}
