package core

import "github.com/spaghettifunk/reel/engine/containers"

const AVG_COUNT int = 30

// Metrics keeps a rolling frame time average and a frames per second
// counter. One instance belongs to the frame driver.
type Metrics struct {
	frameTimes         *containers.RingQueue[float64]
	msAverage          float64
	frames             int32
	accumulatedFrameMS float64
	fps                float64
}

func NewMetrics() *Metrics {
	return &Metrics{
		frameTimes: containers.NewRingQueue[float64](AVG_COUNT),
	}
}

// Update records the duration of one frame in seconds.
func (m *Metrics) Update(frameElapsedTime float64) {
	frameMS := frameElapsedTime * 1000.0
	m.frameTimes.Push(frameMS)

	total := 0.0
	m.frameTimes.Each(func(v float64) { total += v })
	m.msAverage = total / float64(m.frameTimes.Len())

	// Calculate Frames per second.
	m.accumulatedFrameMS += frameMS
	m.frames++
	if m.accumulatedFrameMS >= 1000 {
		m.fps = float64(m.frames)
		m.accumulatedFrameMS -= 1000
		m.frames = 0
	}
}

func (m *Metrics) FPS() float64 {
	return m.fps
}

func (m *Metrics) FrameTime() float64 {
	return m.msAverage
}

func (m *Metrics) Frame() (float64, float64) {
	return m.fps, m.msAverage
}
