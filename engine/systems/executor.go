package systems

import (
	"fmt"

	"github.com/spaghettifunk/reel/engine/core"
	"github.com/spaghettifunk/reel/engine/renderer/metadata"
)

// SwapchainTarget addresses the acquired swapchain image in Recorder calls.
const SwapchainTarget = -1

// Recorder records the commands of one frame. Targets are pool slots or SwapchainTarget.
type Recorder interface {
	UpdateUniforms(uniforms *metadata.Uniforms) error
	ClearImage(target int, before metadata.ImageState) error
	Barrier(target int, before, after metadata.ImageState) error
	DrawPass(pass *RenderPass, parity int) error
	DrawComposite(slot int, factor float32) error
}

// ExecStage tracks how far the executor got through a frame.
type ExecStage int

const (
	StageIdle ExecStage = iota
	StageUniformsUpdated
	StagePassesExecuting
	StageCompositing
	StagePresented
)

func (s ExecStage) String() string {
	switch s {
	case StageIdle:
		return "Idle"
	case StageUniformsUpdated:
		return "UniformsUpdated"
	case StagePassesExecuting:
		return "PassesExecuting"
	case StageCompositing:
		return "Compositing"
	case StagePresented:
		return "Presented"
	default:
		return "Invalid"
	}
}

// Executor records the passes of a program and the composite onto the swapchain.
// It owns the knowledge of whether the pool slots hold defined contents.
type Executor struct {
	stage           ExecStage
	pass            int
	poolInitialized bool
}

func NewExecutor() *Executor {
	return &Executor{}
}

func (e *Executor) Stage() ExecStage {
	return e.stage
}

// Pass is the index of the pass being recorded while in StagePassesExecuting.
func (e *Executor) Pass() int {
	return e.pass
}

// ResetPool marks every pool slot undefined, after the pool was (re)created.
func (e *Executor) ResetPool() {
	e.poolInitialized = false
}

func (e *Executor) PoolInitialized() bool {
	return e.poolInitialized
}

// Execute records one frame. A program that is not ready is skipped and the composite
// fades to black. A frozen frame only presents the output of the previous frame again.
func (e *Executor) Execute(frame *FrameContext, program *Program, rec Recorder, swapchainState metadata.ImageState) error {
	e.stage = StageIdle
	e.pass = 0

	if err := rec.UpdateUniforms(&frame.Uniforms); err != nil {
		return fmt.Errorf("update uniforms: %w", err)
	}
	e.stage = StageUniformsUpdated

	if !e.poolInitialized {
		for slot := 0; slot < frame.PoolSize; slot++ {
			if err := rec.ClearImage(slot, metadata.ImageStateUndefined); err != nil {
				return fmt.Errorf("clear pool slot %d: %w", slot, err)
			}
		}
		e.poolInitialized = true
	}

	factor := frame.Crossfade
	terminal := SlotIndex(0, frame.Parity)
	switch {
	case program != nil && program.Ready() && frame.Frozen:
		// The previous frame wrote the other parity.
		terminal = program.ImagePass().OutputSlot(1 - frame.Parity)
	case program != nil && program.Ready():
		e.stage = StagePassesExecuting
		for i, pass := range program.Passes {
			e.pass = i
			slot := pass.OutputSlot(frame.Parity)
			if err := rec.Barrier(slot, metadata.ImageStateShaderResource, metadata.ImageStateRenderTarget); err != nil {
				return err
			}
			if err := rec.DrawPass(pass, frame.Parity); err != nil {
				return fmt.Errorf("draw pass %d of '%s': %w", i, program.Name, err)
			}
			if err := rec.Barrier(slot, metadata.ImageStateRenderTarget, metadata.ImageStateShaderResource); err != nil {
				return err
			}
		}
		terminal = program.ImagePass().OutputSlot(frame.Parity)
	default:
		factor = 0
		if program != nil {
			core.LogDebug("Program '%s' is not ready, skipping its passes", program.Name)
		}
	}

	e.stage = StageCompositing
	if err := rec.Barrier(SwapchainTarget, swapchainState, metadata.ImageStateRenderTarget); err != nil {
		return err
	}
	if err := rec.DrawComposite(terminal, factor); err != nil {
		return fmt.Errorf("composite: %w", err)
	}
	if err := rec.Barrier(SwapchainTarget, metadata.ImageStateRenderTarget, metadata.ImageStatePresent); err != nil {
		return err
	}
	e.stage = StagePresented
	return nil
}
