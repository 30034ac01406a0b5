package engine

import (
	"context"

	"github.com/spaghettifunk/reel/engine/core"
	"github.com/spaghettifunk/reel/engine/platform"
	"github.com/spaghettifunk/reel/engine/renderer/vulkan"
)

type ApplicationConfig struct {
	// The application name used in windowing and the Vulkan instance.
	Name   string
	Window platform.WindowConfig
	// Number of frames the CPU may record ahead of the GPU.
	FramesInFlight uint32
	// Enables the validation layers.
	Debug bool
	// Frames per second the loop is limited to, zero for no limit.
	TargetRate int
}

// Host is what the engine offers to the application it drives.
type Host interface {
	GPU() *vulkan.GraphicsContext
	RequestQuit()
}

// Application is the set of capabilities the frame loop drives. Input arrives on the
// loop thread between frames.
type Application interface {
	Initialize(ctx context.Context, host Host) error
	Animate(delta float64)
	Render() error
	Resize(width, height uint32)
	Key(key core.KeyCode, action core.Action)
	MouseButton(button core.Button, action core.Action)
	MouseMove(x, y float64)
	Shutdown() error
}
