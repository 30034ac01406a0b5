package systems

import (
	"testing"

	"github.com/spaghettifunk/reel/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMipCount(t *testing.T) {
	assert.Equal(t, uint32(1), MipCount(1, 1))
	assert.Equal(t, uint32(9), MipCount(256, 256))
	assert.Equal(t, uint32(2), MipCount(4, 2))
	assert.Equal(t, uint32(1), MipCount(64, 1))
}

func TestGenerateMips(t *testing.T) {
	pixels := make([]byte, 4*4*4)
	for i := range pixels {
		pixels[i] = 255
	}
	levels := GenerateMips(&metadata.ImageResourceData{Width: 4, Height: 4, Pixels: pixels}, MipCount(4, 4))

	require.Len(t, levels, 3)
	assert.Len(t, levels[0], 64)
	assert.Len(t, levels[1], 16)
	assert.Len(t, levels[2], 4)
	assert.Equal(t, []byte{255, 255, 255, 255}, levels[2])
}

func TestStaticPaths(t *testing.T) {
	paths := staticPaths([]metadata.InputDeclaration{
		{Channel: 0, Type: metadata.InputTypeTexture, FilePath: "/a.png"},
		{Channel: 1, Type: metadata.InputTypeVolume, FilePath: "/v.bin"},
		{Channel: 2, Type: metadata.InputTypeTexture},
		{Channel: 3, Type: metadata.InputTypeCubemap, FilePath: "/cube.png"},
		{Channel: 0, Type: metadata.InputTypeBuffer, ID: "a"},
		{Channel: 1, Type: metadata.InputTypeTexture, FilePath: "/a.png"},
	})
	assert.Equal(t, map[string]metadata.InputType{
		"/a.png": metadata.InputTypeTexture,
		"/v.bin": metadata.InputTypeVolume,
	}, paths)
}

func TestNewTextureSystemNeedsCapacity(t *testing.T) {
	_, err := NewTextureSystem(&TextureSystemConfig{}, nil, nil)
	assert.Error(t, err)
}
