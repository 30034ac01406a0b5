package platform

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/reel/engine/core"
)

var ErrNoMonitor = errors.New("no monitor available")

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

// Handler receives the window events of a platform.
type Handler interface {
	OnKey(key core.KeyCode, action core.Action)
	OnMouseButton(button core.Button, action core.Action)
	OnMouseMove(x, y float64)
	OnResize(width, height uint32)
}

// WindowConfig describes the window to open.
type WindowConfig struct {
	Title      string
	Width      uint32
	Height     uint32
	Fullscreen bool
	Monitor    int
	// Refresh rate requested for fullscreen modes.
	RefreshRate int
}

type Platform struct {
	Window  *glfw.Window
	handler Handler
}

func New() *Platform {
	return &Platform{}
}

func (p *Platform) SetHandler(h Handler) {
	p.handler = h
}

func (p *Platform) Startup(config WindowConfig) error {
	if err := glfw.Init(); err != nil {
		core.LogFatal("failed to initialize glfw: %s", err)
		return err
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return fmt.Errorf("glfw reports no Vulkan loader")
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	var monitor *glfw.Monitor
	width, height := int(config.Width), int(config.Height)
	if config.Fullscreen {
		m, err := selectMonitor(config.Monitor)
		if err != nil {
			glfw.Terminate()
			return err
		}
		monitor = m
		glfw.WindowHint(glfw.RefreshRate, config.RefreshRate)
		core.LogInfo("Fullscreen on monitor %d (%s) at %dx%d@%d", config.Monitor, m.GetName(), width, height, config.RefreshRate)
	}

	window, err := glfw.CreateWindow(width, height, config.Title, monitor, nil)
	if err != nil {
		core.LogFatal("failed to create window: %s", err)
		glfw.Terminate()
		return err
	}
	p.Window = window

	p.Window.SetKeyCallback(p.keyCallback)
	p.Window.SetMouseButtonCallback(p.mouseButtonCallback)
	p.Window.SetCursorPosCallback(p.cursorPosCallback)
	p.Window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	if config.Fullscreen {
		p.Window.SetInputMode(glfw.CursorMode, glfw.CursorHidden)
	}
	p.Window.Show()

	return nil
}

func selectMonitor(index int) (*glfw.Monitor, error) {
	monitors := glfw.GetMonitors()
	if len(monitors) == 0 {
		return nil, ErrNoMonitor
	}
	if index < 0 || index >= len(monitors) {
		core.LogWarn("monitor %d does not exist, using the primary monitor", index)
		return glfw.GetPrimaryMonitor(), nil
	}
	return monitors[index], nil
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
	return nil
}

// PumpMessages processes pending window events. It returns false once the window
// was asked to close.
func (p *Platform) PumpMessages() bool {
	glfw.PollEvents()
	return !p.Window.ShouldClose()
}

// RequestClose makes the next PumpMessages return false. Safe from any goroutine.
func (p *Platform) RequestClose() {
	if p.Window != nil {
		p.Window.SetShouldClose(true)
	}
	glfw.PostEmptyEvent()
}

func (p *Platform) FramebufferSize() (uint32, uint32) {
	w, h := p.Window.GetFramebufferSize()
	return uint32(w), uint32(h)
}

// RequiredInstanceExtensions lists the instance extensions a surface for this window needs.
func (p *Platform) RequiredInstanceExtensions() []string {
	return p.Window.GetRequiredInstanceExtensions()
}

func (p *Platform) CreateSurface(instance vk.Instance) (uintptr, error) {
	return p.Window.CreateWindowSurface(instance, nil)
}

func GetAbsoluteTime() float64 {
	return glfw.GetTime()
}

func (p *Platform) Sleep(ms float64) {
	time.Sleep(time.Duration(ms * float64(time.Millisecond)))
}

func (p *Platform) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if p.handler == nil {
		return
	}
	code := translateKey(key)
	if code == core.KEY_UNKNOWN {
		return
	}
	p.handler.OnKey(code, translateAction(action))
}

func (p *Platform) mouseButtonCallback(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
	if p.handler == nil {
		return
	}
	b, ok := translateButton(button)
	if !ok {
		return
	}
	p.handler.OnMouseButton(b, translateAction(action))
}

func (p *Platform) cursorPosCallback(w *glfw.Window, xpos, ypos float64) {
	if p.handler != nil {
		p.handler.OnMouseMove(xpos, ypos)
	}
}

func (p *Platform) framebufferSizeCallback(w *glfw.Window, width, height int) {
	if p.handler != nil {
		p.handler.OnResize(uint32(width), uint32(height))
	}
}

func translateKey(key glfw.Key) core.KeyCode {
	switch key {
	case glfw.KeyEscape:
		return core.KEY_ESCAPE
	case glfw.KeySpace:
		return core.KEY_SPACE
	case glfw.KeyLeft:
		return core.KEY_LEFT
	case glfw.KeyUp:
		return core.KEY_UP
	case glfw.KeyRight:
		return core.KEY_RIGHT
	case glfw.KeyDown:
		return core.KEY_DOWN
	case glfw.KeyN:
		return core.KEY_N
	case glfw.KeyP:
		return core.KEY_P
	case glfw.KeyQ:
		return core.KEY_Q
	case glfw.KeyR:
		return core.KEY_R
	default:
		return core.KEY_UNKNOWN
	}
}

func translateAction(action glfw.Action) core.Action {
	switch action {
	case glfw.Press:
		return core.ACTION_PRESS
	case glfw.Repeat:
		return core.ACTION_REPEAT
	default:
		return core.ACTION_RELEASE
	}
}

func translateButton(button glfw.MouseButton) (core.Button, bool) {
	switch button {
	case glfw.MouseButtonLeft:
		return core.BUTTON_LEFT, true
	case glfw.MouseButtonRight:
		return core.BUTTON_RIGHT, true
	case glfw.MouseButtonMiddle:
		return core.BUTTON_MIDDLE, true
	default:
		return 0, false
	}
}
