package loaders

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spaghettifunk/reel/engine/core"
	"github.com/spaghettifunk/reel/engine/renderer/metadata"
)

var ErrBadVolume = errors.New("invalid volume file")

// volumeMagic opens every volume file.
var volumeMagic = [4]byte{'B', 'I', 'N', 0}

type volumeHeader struct {
	Magic    [4]byte
	Width    uint32
	Height   uint32
	Depth    uint32
	Channels uint32
}

var volumeHeaderSize = binary.Size(volumeHeader{})

var volumeFormats = [...]metadata.PixelFormat{
	metadata.PixelFormatR8Unorm,
	metadata.PixelFormatRG8Unorm,
	metadata.PixelFormatRGB8Unorm,
	metadata.PixelFormatRGBA8Unorm,
}

// VolumeLoader reads the raw 3D texture format: a little endian header followed by
// width*height*depth*channels bytes.
type VolumeLoader struct{}

func (vl *VolumeLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	data, err := ParseVolume(buf)
	if err != nil {
		core.LogError("failed to load volume '%s': %s", path, err)
		return nil, err
	}
	core.LogInfo("loaded %dx%dx%d: %s", data.Width, data.Height, data.Depth, path)

	return &metadata.Resource{
		Name:     filepath.Base(path),
		FullPath: path,
		Type:     metadata.ResourceTypeVolume,
		DataSize: uint64(len(data.Pixels)),
		Data:     data,
	}, nil
}

func (vl *VolumeLoader) Unload(res *metadata.Resource) error {
	if res != nil {
		res.Data = nil
	}
	return nil
}

func ParseVolume(buf []byte) (*metadata.ImageResourceData, error) {
	if len(buf) < volumeHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrBadVolume, len(buf))
	}

	var h volumeHeader
	if err := binary.Read(bytes.NewReader(buf[:volumeHeaderSize]), binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadVolume, err)
	}
	if h.Magic != volumeMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrBadVolume, h.Magic[:])
	}
	if h.Width == 0 || h.Height == 0 || h.Depth == 0 || h.Channels == 0 || h.Channels > 4 {
		return nil, fmt.Errorf("%w: %dx%dx%d with %d channels", ErrBadVolume, h.Width, h.Height, h.Depth, h.Channels)
	}

	want := uint64(h.Width) * uint64(h.Height) * uint64(h.Depth) * uint64(h.Channels)
	if uint64(len(buf)-volumeHeaderSize) != want {
		return nil, fmt.Errorf("%w: expected %d bytes of texels, got %d", ErrBadVolume, want, len(buf)-volumeHeaderSize)
	}

	return &metadata.ImageResourceData{
		ChannelCount: uint8(h.Channels),
		Width:        h.Width,
		Height:       h.Height,
		Depth:        h.Depth,
		Format:       volumeFormats[h.Channels-1],
		Pixels:       buf[volumeHeaderSize:],
	}, nil
}
