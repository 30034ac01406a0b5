package systems

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/reel/engine/core"
	"github.com/spaghettifunk/reel/engine/renderer/metadata"
	"github.com/spaghettifunk/reel/engine/renderer/vulkan"
)

// HistoryLength is the number of frames of output each pass keeps.
const HistoryLength = 2

// PoolFormat is the format of every pass output.
const PoolFormat = metadata.PixelFormatRGBA16Float

var ErrSlotOutOfRange = errors.New("pool slot out of range")

// PoolCapacity is the number of slots needed for maxPasses buffer passes plus the image pass.
func PoolCapacity(maxPasses int) int {
	return (maxPasses + 1) * HistoryLength
}

// SlotIndex addresses the output of a pass for a history parity.
func SlotIndex(pass, parity int) int {
	return pass*HistoryLength + parity
}

// TargetPool is the arena of render targets shared by every program. Passes address
// their outputs by slot index only.
type TargetPool struct {
	images []*vulkan.Image
	width  uint32
	height uint32
}

func NewTargetPool(maxPasses int) *TargetPool {
	return &TargetPool{
		images: make([]*vulkan.Image, PoolCapacity(maxPasses)),
	}
}

func (tp *TargetPool) Size() int {
	return len(tp.images)
}

func (tp *TargetPool) Extent() (uint32, uint32) {
	return tp.width, tp.height
}

// CheckSlot fails for slots outside the arena.
func (tp *TargetPool) CheckSlot(slot int) error {
	if slot < 0 || slot >= len(tp.images) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrSlotOutOfRange, slot, len(tp.images))
	}
	return nil
}

// Create (re)allocates every slot at the given size. Contents are undefined until cleared.
func (tp *TargetPool) Create(context *vulkan.VulkanContext, width, height uint32) error {
	tp.Destroy(context)
	for i := range tp.images {
		img, err := vulkan.CreateImage(context, metadata.ImageSpec{
			Kind:      metadata.ImageKind2D,
			Format:    PoolFormat,
			Width:     width,
			Height:    height,
			Depth:     1,
			MipLevels: 1,
			Usage:     metadata.ImageUsageSampled | metadata.ImageUsageTransferDst | metadata.ImageUsageColorAttachment,
			Memory:    metadata.MemoryUsageDeviceLocal,
		})
		if err != nil {
			core.LogError("failed to create pool slot %d: %s", i, err)
			tp.Destroy(context)
			return err
		}
		tp.images[i] = img
	}
	tp.width, tp.height = width, height
	core.LogDebug("Render target pool created: %d slots of %dx%d", len(tp.images), width, height)
	return nil
}

func (tp *TargetPool) Image(slot int) (*vulkan.Image, error) {
	if err := tp.CheckSlot(slot); err != nil {
		return nil, err
	}
	img := tp.images[slot]
	if img.IsNull() {
		return nil, fmt.Errorf("pool slot %d is not allocated", slot)
	}
	return img, nil
}

func (tp *TargetPool) Destroy(context *vulkan.VulkanContext) {
	for i, img := range tp.images {
		if img != nil {
			img.Destroy(context)
			tp.images[i] = nil
		}
	}
	tp.width, tp.height = 0, 0
}
