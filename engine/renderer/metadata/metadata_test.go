package metadata

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniformsLayout(t *testing.T) {
	u := Uniforms{
		Resolution: [3]float32{1024, 768, 1},
		Time:       2.5,
		Frame:      7,
		FrameRate:  60,
	}
	b := u.Bytes()
	require.Len(t, b, UniformsSize)

	f32 := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(b[off:])) }
	assert.Equal(t, float32(1024), f32(0))
	assert.Equal(t, float32(2.5), f32(12), "iTime packs after the vec3")
	assert.Equal(t, int32(7), int32(binary.LittleEndian.Uint32(b[56:])))
	assert.Equal(t, float32(60), f32(60))
}

func TestPushConstantsLayout(t *testing.T) {
	p := PushConstants{}
	p.ChannelResolution[1] = [4]float32{640, 480, 1, 0}
	p.ChannelTime[3] = 4
	b := p.Bytes()
	require.Len(t, b, PushConstantsSize)
	assert.Equal(t, float32(640), math.Float32frombits(binary.LittleEndian.Uint32(b[16:])))
	assert.Equal(t, float32(4), math.Float32frombits(binary.LittleEndian.Uint32(b[76:])))
}

func TestParseDeclarationEnums(t *testing.T) {
	pt, err := ParsePassType("image")
	require.NoError(t, err)
	assert.Equal(t, PassTypeImage, pt)
	_, err = ParsePassType("sound")
	assert.Error(t, err)

	it, err := ParseInputType("cubemap")
	require.NoError(t, err)
	assert.Equal(t, InputTypeCubemap, it)
	assert.Equal(t, "buffer", InputTypeBuffer.String())
	_, err = ParseInputType("keyboard")
	assert.Error(t, err)
}

func TestStateNames(t *testing.T) {
	assert.Len(t, ImageStates, 6)
	assert.Len(t, BufferStates, 4)
	assert.Equal(t, "RenderTarget", ImageStateRenderTarget.String())
	assert.Equal(t, "TransferDst", BufferStateTransferDst.String())
}

func TestImageSpecLayers(t *testing.T) {
	assert.Equal(t, uint32(6), ImageSpec{Kind: ImageKindCube}.Layers())
	assert.Equal(t, uint32(1), ImageSpec{Kind: ImageKind3D}.Layers())
	assert.Equal(t, 4, PixelFormatRGBA8Srgb.BytesPerPixel())
}
