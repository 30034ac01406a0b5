package engine

import (
	"context"
	"errors"

	"github.com/spaghettifunk/reel/engine/core"
	"github.com/spaghettifunk/reel/engine/platform"
	"github.com/spaghettifunk/reel/engine/renderer/vulkan"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently booting up
	EngineStageBooting
	// Engine completed boot process and is ready to be initialized
	EngineStageBootComplete
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// How often the frame statistics are logged, in seconds.
const metricsInterval = 5.0

type Engine struct {
	currentStage Stage
	config       *ApplicationConfig
	app          Application
	isRunning    bool
	isSuspended  bool
	platform     *platform.Platform
	gpu          *vulkan.GraphicsContext
	width        uint32
	height       uint32
	clock        *core.Clock
	metrics      *core.Metrics
	lastTime     float64
}

func New(config *ApplicationConfig, app Application) *Engine {
	return &Engine{
		currentStage: EngineStageUninitialized,
		config:       config,
		app:          app,
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
		platform:     platform.New(),
		isRunning:    true,
		isSuspended:  false,
		width:        config.Window.Width,
		height:       config.Window.Height,
		lastTime:     0,
	}
}

func graphicsError(err error) error {
	var exitErr *core.ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	return core.NewExitError(core.ExitGraphicsInit, err)
}

// Initialize opens the window, brings the GPU up and initializes the application.
// Failures carry the graphics exit code.
func (e *Engine) Initialize(ctx context.Context) error {
	e.currentStage = EngineStageBooting
	e.platform.SetHandler(e)

	window := e.config.Window
	if window.Title == "" {
		window.Title = e.config.Name
	}
	if err := e.platform.Startup(window); err != nil {
		core.LogError("failed to start the platform: %s", err)
		return graphicsError(err)
	}
	e.width, e.height = e.platform.FramebufferSize()
	e.currentStage = EngineStageBootComplete

	e.currentStage = EngineStageInitializing
	e.gpu = vulkan.New(e.platform, e.config.FramesInFlight, e.config.Debug)
	if err := e.gpu.Initialize(e.config.Name, e.width, e.height); err != nil {
		core.LogError("failed to initialize the graphics context: %s", err)
		return graphicsError(err)
	}

	if err := e.app.Initialize(ctx, e); err != nil {
		return graphicsError(err)
	}
	e.currentStage = EngineStageInitialized
	return nil
}

// Run drives the application until the window closes, it asks to quit or ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	e.currentStage = EngineStageRunning
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	var targetFrameSeconds float64
	if e.config.TargetRate > 0 {
		targetFrameSeconds = 1.0 / float64(e.config.TargetRate)
	}
	var sinceReport float64

	for e.isRunning {
		select {
		case <-ctx.Done():
			core.LogInfo("Stop requested, shutting down.")
			e.isRunning = false
			continue
		default:
		}

		if !e.platform.PumpMessages() {
			e.isRunning = false
			break
		}

		if e.isSuspended {
			e.platform.Sleep(100)
			continue
		}

		// Update clock and get delta time.
		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		frameStartTime := platform.GetAbsoluteTime()

		e.app.Animate(delta)
		if err := e.app.Render(); err != nil {
			core.LogError("Render failed, shutting down: %s", err)
			e.isRunning = false
			return err
		}

		// Figure out how long the frame took and, if below the target, give time back to the OS.
		frameElapsedTime := platform.GetAbsoluteTime() - frameStartTime
		e.metrics.Update(frameElapsedTime)
		if remainingSeconds := targetFrameSeconds - frameElapsedTime; remainingSeconds > 0 {
			if remainingMS := remainingSeconds * 1000; remainingMS > 1 {
				e.platform.Sleep(remainingMS - 1)
			}
		}

		sinceReport += delta
		if sinceReport >= metricsInterval {
			fps, ms := e.metrics.Frame()
			core.LogDebug("%.0f fps, %.2f ms/frame", fps, ms)
			sinceReport = 0
		}

		e.lastTime = currentTime
	}
	return nil
}

// Shutdown tears down in reverse order of Initialize. Safe after a partial Initialize.
func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	var errs []error
	if e.gpu != nil {
		if err := e.app.Shutdown(); err != nil {
			errs = append(errs, err)
		}
		if err := e.gpu.Shutdown(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := e.platform.Shutdown(); err != nil {
		errs = append(errs, err)
	}
	e.currentStage = EngineStageUninitialized
	return errors.Join(errs...)
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

// GPU implements Host.
func (e *Engine) GPU() *vulkan.GraphicsContext {
	return e.gpu
}

// RequestQuit implements Host; the loop ends after the current frame.
func (e *Engine) RequestQuit() {
	core.LogInfo("Quit requested, shutting down.")
	e.isRunning = false
	e.platform.RequestClose()
}

// GetFramebufferSize returns the width and height (in this order)
// of the application framebuffer
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) OnKey(key core.KeyCode, action core.Action) {
	e.app.Key(key, action)
}

func (e *Engine) OnMouseButton(button core.Button, action core.Action) {
	e.app.MouseButton(button, action)
}

func (e *Engine) OnMouseMove(x, y float64) {
	e.app.MouseMove(x, y)
}

func (e *Engine) OnResize(width, height uint32) {
	// Check if different. If so, trigger a resize.
	if width == e.width && height == e.height {
		return
	}
	e.width = width
	e.height = height
	core.LogDebug("Window resize: %d, %d", width, height)

	// Handle minimization
	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	if e.gpu != nil {
		e.gpu.Resized(width, height)
	}
	e.app.Resize(width, height)
}
