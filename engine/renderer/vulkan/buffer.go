package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/reel/engine/core"
	"github.com/spaghettifunk/reel/engine/renderer/metadata"
)

/**
 * @brief A device buffer with its own memory allocation.
 */
type Buffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Spec   metadata.BufferSpec
}

func bufferUsage(usage metadata.BufferUsage) vk.BufferUsageFlags {
	var flags vk.BufferUsageFlags
	if usage&metadata.BufferUsageUniform != 0 {
		flags |= vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit)
	}
	if usage&metadata.BufferUsageTransferSrc != 0 {
		flags |= vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit)
	}
	if usage&metadata.BufferUsageTransferDst != 0 {
		flags |= vk.BufferUsageFlags(vk.BufferUsageTransferDstBit)
	}
	return flags
}

// CreateBuffer creates a buffer and binds freshly allocated memory to it.
// On failure a null buffer is returned with the error.
func CreateBuffer(context *VulkanContext, spec metadata.BufferSpec) (*Buffer, error) {
	out := &Buffer{Spec: spec}
	device := context.Device.LogicalDevice

	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(spec.Size),
		Usage:       bufferUsage(spec.Usage),
		SharingMode: vk.SharingModeExclusive,
	}
	var handle vk.Buffer
	if err := resultError("vkCreateBuffer", vk.CreateBuffer(device, &bufferCreateInfo, context.Allocator, &handle)); err != nil {
		core.LogError("%s", err)
		return out, err
	}
	out.Handle = handle

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device, out.Handle, &requirements)
	requirements.Deref()

	memoryType := context.FindMemoryIndex(requirements.MemoryTypeBits, memoryProperties(spec.Memory))
	if memoryType < 0 {
		out.Destroy(context)
		return out, fmt.Errorf("buffer of %d bytes: %w", spec.Size, ErrNoMemoryType)
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(memoryType),
	}
	var memory vk.DeviceMemory
	if err := resultError("vkAllocateMemory", vk.AllocateMemory(device, &allocateInfo, context.Allocator, &memory)); err != nil {
		core.LogError("%s", err)
		out.Destroy(context)
		return out, err
	}
	out.Memory = memory

	if err := resultError("vkBindBufferMemory", vk.BindBufferMemory(device, out.Handle, out.Memory, 0)); err != nil {
		core.LogError("%s", err)
		out.Destroy(context)
		return out, err
	}
	return out, nil
}

// Write copies data to the start of a host visible buffer.
func (b *Buffer) Write(context *VulkanContext, data []byte) error {
	if b.IsNull() {
		return fmt.Errorf("write to a null buffer")
	}
	if uint64(len(data)) > b.Spec.Size {
		return fmt.Errorf("write of %d bytes overflows a %d byte buffer", len(data), b.Spec.Size)
	}
	device := context.Device.LogicalDevice
	var ptr unsafe.Pointer
	if err := resultError("vkMapMemory", vk.MapMemory(device, b.Memory, 0, vk.DeviceSize(len(data)), 0, &ptr)); err != nil {
		core.LogError("%s", err)
		return err
	}
	vk.Memcopy(ptr, data)
	vk.UnmapMemory(device, b.Memory)
	return nil
}

// Destroy releases the buffer, then its memory. Nil and already destroyed buffers are ignored.
func (b *Buffer) Destroy(context *VulkanContext) {
	if b == nil {
		return
	}
	device := context.Device.LogicalDevice
	if b.Handle != nil {
		vk.DestroyBuffer(device, b.Handle, context.Allocator)
		b.Handle = nil
	}
	if b.Memory != nil {
		vk.FreeMemory(device, b.Memory, context.Allocator)
		b.Memory = nil
	}
}

func (b *Buffer) IsNull() bool {
	return b == nil || (b.Handle == nil && b.Memory == nil)
}
