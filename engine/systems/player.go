package systems

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spaghettifunk/reel/engine"
	"github.com/spaghettifunk/reel/engine/assets"
	"github.com/spaghettifunk/reel/engine/assets/loaders"
	"github.com/spaghettifunk/reel/engine/core"
	"github.com/spaghettifunk/reel/engine/renderer/metadata"
	"github.com/spaghettifunk/reel/engine/renderer/vulkan"
	"github.com/spaghettifunk/reel/engine/shaders"
)

const (
	// DescriptionFileName is the description of a program inside its directory.
	DescriptionFileName = "description.json"
	// Quiet time after the last file change before a hot reload starts, in seconds.
	reloadDebounce = 0.2
)

var ErrNoPrograms = errors.New("no program could be loaded")

type PlayerConfig struct {
	ProjectDir       string
	MaxPasses        int
	TransitionWindow float64
	SampleRate       float64
	MaxTextureCount  uint32
	DecodeWorkers    int
}

// mouseState follows the cursor in window coordinates, y down.
type mouseState struct {
	down       bool
	posX, posY float64
	lastX      float64
	lastY      float64
	dragX      float64
	dragY      float64
}

// Player plays the programs of a script one after the other.
type Player struct {
	config       *PlayerConfig
	assetManager *assets.AssetManager
	compiler     *shaders.Compiler
	builtins     *shaders.BuiltinShaders

	programs map[string]*Program
	order    []string
	playlist *Playlist

	ctx      context.Context
	host     engine.Host
	gpu      *vulkan.GraphicsContext
	sm       *SystemManager
	executor *Executor

	width, height uint32
	delta         float64
	mouse         mouseState

	wallTime        float64
	changedAt       float64
	pendingChange   bool
	reloadRequested bool
}

func NewPlayer(config *PlayerConfig, am *assets.AssetManager, compiler *shaders.Compiler) *Player {
	return &Player{
		config:       config,
		assetManager: am,
		compiler:     compiler,
		programs:     make(map[string]*Program),
		playlist:     NewPlaylist(nil),
		executor:     NewExecutor(),
	}
}

// LoadPrograms loads the description of every distinct name. Programs that fail to load
// or build are skipped with an error log. Returns ErrNoPrograms when none loaded.
func (p *Player) LoadPrograms(names []string) (int, error) {
	for _, name := range names {
		if _, ok := p.programs[name]; ok {
			continue
		}
		path := filepath.Join(p.config.ProjectDir, name, DescriptionFileName)
		res, err := p.assetManager.LoadAsset(path, metadata.ResourceTypeDescription, &loaders.DescriptionParams{ProjectDir: p.config.ProjectDir})
		if err != nil {
			core.LogError("Cannot load program '%s': %s", name, err)
			continue
		}
		decl := res.Data.(*metadata.ProgramDeclaration)
		prog, err := BuildProgram(name, decl, p.config.MaxPasses)
		if err != nil {
			core.LogError("%s", err)
			continue
		}
		p.programs[name] = prog
		p.order = append(p.order, name)
	}
	if len(p.programs) == 0 {
		return 0, ErrNoPrograms
	}
	core.LogInfo("%d program(s) loaded", len(p.programs))
	return len(p.programs), nil
}

// Program returns a loaded program.
func (p *Player) Program(name string) (*Program, bool) {
	prog, ok := p.programs[name]
	return prog, ok
}

// Compile builds the shared stages and compiles every pass of every program.
func (p *Player) Compile(ctx context.Context) error {
	builtins, err := shaders.LoadBuiltins(ctx, p.compiler)
	if err != nil {
		return err
	}
	p.builtins = builtins

	var errs []error
	for _, name := range p.order {
		for _, passErr := range p.programs[name].CompileAll(ctx, p.compiler) {
			errs = append(errs, passErr)
		}
	}
	return errors.Join(errs...)
}

// SetScript hands the script to the playlist, keeping only loaded programs.
func (p *Player) SetScript(entries []metadata.ScriptEntry, interval float64) error {
	return p.playlist.SetScript(entries, interval, func(name string) bool {
		_, ok := p.programs[name]
		return ok
	})
}

func (p *Player) Playlist() *Playlist {
	return p.playlist
}

// Initialize implements engine.Application.
func (p *Player) Initialize(ctx context.Context, host engine.Host) error {
	if p.builtins == nil {
		return fmt.Errorf("player initialized before its shaders were compiled")
	}
	p.ctx = ctx
	p.host = host
	p.gpu = host.GPU()

	sm, err := NewSystemManager(&SystemManagerConfig{
		MaxPasses:       p.config.MaxPasses,
		MaxTextureCount: p.config.MaxTextureCount,
		DecodeWorkers:   p.config.DecodeWorkers,
	}, p.gpu, p.builtins, p.assetManager)
	if err != nil {
		return err
	}
	p.sm = sm

	sets := 0
	var inputs []metadata.InputDeclaration
	for _, name := range p.order {
		prog := p.programs[name]
		sets += prog.DescriptorSets()
		for _, pass := range prog.Passes {
			inputs = append(inputs, pass.Decl.Inputs...)
		}
	}
	if err := sm.Initialize(sets); err != nil {
		return err
	}
	if err := sm.TextureSystem.LoadAll(p.gpu.Context(), inputs); err != nil {
		return err
	}

	w, h := p.gpu.Extent()
	return p.createTargets(w, h)
}

// createTargets (re)builds everything that depends on the output size.
func (p *Player) createTargets(width, height uint32) error {
	if err := p.gpu.WaitIdle(); err != nil {
		return err
	}
	if err := p.sm.CreateTargets(width, height); err != nil {
		return err
	}
	p.width, p.height = width, height
	p.executor.ResetPool()

	frame := p.frameContext(metadata.Uniforms{}, 0)
	for _, name := range p.order {
		if err := p.programs[name].Build(p.sm, frame); err != nil {
			core.LogError("%s", err)
		}
	}
	core.LogInfo("Render targets created at %dx%d", width, height)
	return nil
}

func (p *Player) frameContext(uniforms metadata.Uniforms, crossfade float32) *FrameContext {
	return NewFrameContext(p.playlist.Frame(), p.width, p.height, p.sm.Pool.Size(), uniforms, crossfade, p.sm.TextureSystem.Statics())
}

// Animate implements engine.Application.
func (p *Player) Animate(delta float64) {
	p.delta = delta
	p.wallTime += delta
	p.collectChanges()

	if p.pendingChange && p.wallTime-p.changedAt >= reloadDebounce {
		p.pendingChange = false
		p.reloadRequested = true
	}
	if p.reloadRequested {
		p.reloadRequested = false
		p.reload()
	}

	p.playlist.Advance(delta)
	if p.playlist.TakeReset() {
		p.executor.ResetPool()
	}
}

func (p *Player) collectChanges() {
	if p.assetManager == nil {
		return
	}
	changes := p.assetManager.Changes()
	for {
		select {
		case c, ok := <-changes:
			if !ok {
				return
			}
			p.onChange(c)
		default:
			return
		}
	}
}

func (p *Player) onChange(c assets.Change) {
	path := filepath.Clean(c.Path)
	switch c.Type {
	case metadata.ResourceTypeShaderSource:
		used := false
		for _, name := range p.order {
			prog := p.programs[name]
			prog.InvalidateCommon(p.compiler, path)
			used = used || prog.UsesSource(path)
		}
		if used {
			core.LogDebug("Shader source changed: %s", path)
			p.pendingChange = true
			p.changedAt = p.wallTime
		}
	case metadata.ResourceTypeDescription, metadata.ResourceTypeScript, metadata.ResourceTypeSettings:
		core.LogWarn("'%s' changed, restart the player to apply it", path)
	}
}

// reload recompiles every program and rebuilds the pipelines of those that compiled.
// A program that fails keeps its previous code and pipelines.
func (p *Player) reload() {
	core.LogInfo("Reloading shaders...")
	if err := p.gpu.WaitIdle(); err != nil {
		core.LogError("%s", err)
		return
	}
	frame := p.frameContext(metadata.Uniforms{}, 0)
	for _, name := range p.order {
		prog := p.programs[name]
		if errs := prog.CompileAll(p.ctx, p.compiler); len(errs) > 0 {
			for _, e := range errs {
				core.LogError("%s", e)
			}
			continue
		}
		if err := prog.Build(p.sm, frame); err != nil {
			core.LogError("%s", err)
		}
	}
	p.playlist.Restart()
}

// Render implements engine.Application.
func (p *Player) Render() error {
	cmd, err := p.gpu.BeginFrame()
	if errors.Is(err, core.ErrSwapchainBooting) {
		if w, h := p.gpu.Extent(); w > 0 && h > 0 && (w != p.width || h != p.height) {
			return p.createTargets(w, h)
		}
		return nil
	}
	if err != nil {
		return err
	}

	entry := p.playlist.Current()
	prog := p.programs[entry.Program]
	uniforms := BuildUniforms(UniformInputs{
		Width:      p.width,
		Height:     p.height,
		Time:       p.playlist.Elapsed(),
		Delta:      p.delta,
		Frame:      p.playlist.Frame(),
		SampleRate: p.config.SampleRate,
		Now:        time.Now(),
		Mouse:      p.mouse,
	})
	frame := p.frameContext(uniforms, p.playlist.Crossfade(p.config.TransitionWindow))
	frame.Frozen = p.frozen()

	_, _, state := p.gpu.SwapchainTarget()
	if err := p.executor.Execute(frame, prog, NewGPURecorder(p.sm, cmd), state); err != nil {
		core.LogError("frame %d: %s", frame.FrameIndex, err)
		return err
	}
	if err := p.gpu.EndFrame(); err != nil {
		return err
	}
	if !frame.Frozen {
		p.playlist.NextFrame()
	}
	return nil
}

// frozen reports whether the frame only presents the previous output. Paused playback
// renders once more when there is none, after a restart or a resize.
func (p *Player) frozen() bool {
	return p.playlist.Paused() && p.playlist.Frame() > 0 && p.executor.PoolInitialized()
}

// Resize implements engine.Application. Targets follow the swapchain on the next frame.
func (p *Player) Resize(width, height uint32) {
	core.LogDebug("Player resize requested: %dx%d", width, height)
}

// Key implements engine.Application.
func (p *Player) Key(key core.KeyCode, action core.Action) {
	if action != core.ACTION_PRESS {
		return
	}
	switch key {
	case core.KEY_ESCAPE, core.KEY_Q:
		if p.host != nil {
			p.host.RequestQuit()
		}
	case core.KEY_R:
		p.reloadRequested = true
	case core.KEY_LEFT:
		p.playlist.Previous()
	case core.KEY_RIGHT:
		p.playlist.Next()
	case core.KEY_SPACE:
		p.playlist.TogglePause()
	}
}

// MouseButton implements engine.Application.
func (p *Player) MouseButton(button core.Button, action core.Action) {
	if button != core.BUTTON_LEFT {
		return
	}
	switch action {
	case core.ACTION_PRESS:
		p.mouse.down = true
		p.mouse.lastX, p.mouse.lastY = p.mouse.posX, p.mouse.posY
		p.mouse.dragX, p.mouse.dragY = p.mouse.posX, p.mouse.posY
	case core.ACTION_RELEASE:
		p.mouse.down = false
	}
}

// MouseMove implements engine.Application.
func (p *Player) MouseMove(x, y float64) {
	p.mouse.posX, p.mouse.posY = x, y
	if p.mouse.down {
		p.mouse.lastX, p.mouse.lastY = x, y
	}
}

// Shutdown implements engine.Application.
func (p *Player) Shutdown() error {
	if p.sm == nil {
		return nil
	}
	if err := p.gpu.WaitIdle(); err != nil {
		core.LogWarn("%s", err)
	}
	for _, name := range p.order {
		p.programs[name].Destroy(p.gpu.Context())
	}
	err := p.sm.Shutdown()
	p.sm = nil
	return err
}
