package systems

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spaghettifunk/reel/engine/core"
	"github.com/spaghettifunk/reel/engine/renderer/metadata"
	"github.com/spaghettifunk/reel/engine/renderer/vulkan"
	"github.com/spaghettifunk/reel/engine/shaders"
)

var (
	ErrNoImagePass         = errors.New("no image pass")
	ErrMultipleImagePasses = errors.New("more than one image pass")
	ErrMultipleCommon      = errors.New("more than one common pass")
	ErrChannelRange        = errors.New("channel index out of range")
	ErrDuplicateChannel    = errors.New("channel declared twice")
	ErrTooManyPasses       = errors.New("too many passes")
)

// BuildError is returned when a description cannot be turned into a program.
type BuildError struct {
	Program string
	Err     error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("program '%s': %s", e.Program, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// PassError reports a pass that failed to compile.
type PassError struct {
	Program string
	Pass    int
	Path    string
	Err     error
}

func (e *PassError) Error() string {
	return fmt.Sprintf("program '%s' pass %d ('%s'): %s", e.Program, e.Pass, e.Path, e.Err)
}

func (e *PassError) Unwrap() error {
	return e.Err
}

/**
 * @brief A render graph: buffer passes in description order followed by the image pass.
 */
type Program struct {
	Name   string
	Passes []*RenderPass
	/** @brief Index of the terminal pass, always len(Passes)-1. */
	ImagePassIndex int
	/** @brief Shared source compiled ahead of every pass, empty when none. */
	CommonPath string

	compiled bool
	built    bool
}

// BuildProgram validates a description and lays out its passes.
func BuildProgram(name string, decl *metadata.ProgramDeclaration, maxPasses int) (*Program, error) {
	fail := func(err error) (*Program, error) {
		return nil, &BuildError{Program: name, Err: err}
	}
	if decl == nil {
		return fail(ErrNoImagePass)
	}

	prog := &Program{Name: name}
	var image *metadata.PassDeclaration
	var buffers []metadata.PassDeclaration

	for i := range decl.Passes {
		pass := decl.Passes[i]
		seen := make(map[int]bool, len(pass.Inputs))
		for _, in := range pass.Inputs {
			if in.Channel < 0 || in.Channel >= metadata.MaxChannels {
				return fail(fmt.Errorf("%w: %s pass uses channel %d", ErrChannelRange, pass.Type, in.Channel))
			}
			if seen[in.Channel] {
				return fail(fmt.Errorf("%w: %s pass, channel %d", ErrDuplicateChannel, pass.Type, in.Channel))
			}
			seen[in.Channel] = true
		}

		switch pass.Type {
		case metadata.PassTypeCommon:
			if prog.CommonPath != "" {
				return fail(ErrMultipleCommon)
			}
			prog.CommonPath = pass.Code
		case metadata.PassTypeImage:
			if image != nil {
				return fail(ErrMultipleImagePasses)
			}
			image = &pass
		default:
			buffers = append(buffers, pass)
		}
	}

	if image == nil {
		return fail(ErrNoImagePass)
	}
	if len(buffers) > maxPasses {
		return fail(fmt.Errorf("%w: %d buffer passes, at most %d", ErrTooManyPasses, len(buffers), maxPasses))
	}

	for i, b := range buffers {
		prog.Passes = append(prog.Passes, &RenderPass{Decl: b, Index: i})
	}
	prog.ImagePassIndex = len(buffers)
	prog.Passes = append(prog.Passes, &RenderPass{Decl: *image, Index: prog.ImagePassIndex})

	core.LogDebug("Program '%s' built: %d passes, common: %t", name, len(prog.Passes), prog.CommonPath != "")
	return prog, nil
}

// ImagePass is the terminal pass.
func (p *Program) ImagePass() *RenderPass {
	return p.Passes[p.ImagePassIndex]
}

// Compiled reports whether the last CompileAll succeeded for every pass.
func (p *Program) Compiled() bool {
	return p.compiled
}

// Ready reports whether every pass has code and a pipeline.
func (p *Program) Ready() bool {
	if !p.built {
		return false
	}
	for _, pass := range p.Passes {
		if len(pass.Code) == 0 || !pass.Built() {
			return false
		}
	}
	return true
}

// UsesSource reports whether path is the common source or a pass source of the program.
func (p *Program) UsesSource(path string) bool {
	if path == "" {
		return false
	}
	if p.CommonPath == path {
		return true
	}
	for _, pass := range p.Passes {
		if pass.Decl.Code == path {
			return true
		}
	}
	return false
}

// InvalidateCommon forces every pass to recompile when the common source is path.
func (p *Program) InvalidateCommon(compiler *shaders.Compiler, path string) bool {
	if p.CommonPath == "" || p.CommonPath != path {
		return false
	}
	for _, pass := range p.Passes {
		compiler.Invalidate(pass.Decl.Code)
	}
	return true
}

// CompileAll compiles every pass. New code is only kept when every pass compiled, so a
// failed reload keeps the previous code.
func (p *Program) CompileAll(ctx context.Context, compiler *shaders.Compiler) []*PassError {
	var common shaders.Chunk
	if p.CommonPath != "" {
		data, err := os.ReadFile(p.CommonPath)
		if err != nil {
			core.LogError("program '%s': cannot read common source '%s': %s", p.Name, p.CommonPath, err)
			p.compiled = false
			errs := make([]*PassError, 0, len(p.Passes))
			for _, pass := range p.Passes {
				errs = append(errs, &PassError{Program: p.Name, Pass: pass.Index, Path: p.CommonPath, Err: err})
			}
			return errs
		}
		common = shaders.Chunk(data)
	}

	codes := make([][]uint32, len(p.Passes))
	var errs []*PassError
	for i, pass := range p.Passes {
		code, err := compiler.Compile(ctx, pass.Decl.Code, shaders.Preamble(), shaders.ChannelDeclarations(pass.Decl.Inputs), common)
		if err != nil {
			errs = append(errs, &PassError{Program: p.Name, Pass: pass.Index, Path: pass.Decl.Code, Err: err})
			continue
		}
		codes[i] = code
	}

	p.compiled = len(errs) == 0
	if !p.compiled {
		return errs
	}
	for i, pass := range p.Passes {
		pass.Code = codes[i]
	}
	return nil
}

// Build (re)creates the GPU objects of every pass at the given size and writes their
// descriptor sets. On failure the program is left not ready.
func (p *Program) Build(sm *SystemManager, frame *FrameContext) error {
	p.built = false
	for _, pass := range p.Passes {
		if err := pass.CreatePipelineAndTargets(sm, frame.Width, frame.Height); err != nil {
			return fmt.Errorf("program '%s': %w", p.Name, err)
		}
		if err := pass.WriteBindings(sm, frame, p.Passes); err != nil {
			return fmt.Errorf("program '%s': %w", p.Name, err)
		}
	}
	p.built = true
	return nil
}

// DescriptorSets is the number of sets the program needs from the pass pool.
func (p *Program) DescriptorSets() int {
	return len(p.Passes) * HistoryLength
}

func (p *Program) Destroy(context *vulkan.VulkanContext) {
	for _, pass := range p.Passes {
		pass.Destroy(context)
	}
	p.built = false
}
