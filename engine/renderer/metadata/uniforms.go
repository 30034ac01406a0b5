package metadata

import (
	"bytes"
	"encoding/binary"
)

const (
	// UniformsSize is the std140 size of the global uniform block.
	UniformsSize = 64
	// PushConstantsSize is the std430 size of the per pass push block.
	PushConstantsSize = 80
)

/**
 * @brief Global uniform block shared by every pass of a frame. Field order
 * and padding follow the std140 block declared in the shader preamble.
 */
type Uniforms struct {
	Resolution [3]float32
	Time       float32
	Mouse      [4]float32
	Date       [4]float32
	TimeDelta  float32
	SampleRate float32
	Frame      int32
	FrameRate  float32
}

// Bytes serialises the block in the layout the GPU expects.
func (u *Uniforms) Bytes() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, UniformsSize))
	_ = binary.Write(buf, binary.LittleEndian, u)
	return buf.Bytes()
}

/**
 * @brief Per pass push constants: resolution and playback time of each channel.
 */
type PushConstants struct {
	ChannelResolution [MaxChannels][4]float32
	ChannelTime       [MaxChannels]float32
}

// Bytes serialises the block in the layout the GPU expects.
func (p *PushConstants) Bytes() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, PushConstantsSize))
	_ = binary.Write(buf, binary.LittleEndian, p)
	return buf.Bytes()
}
