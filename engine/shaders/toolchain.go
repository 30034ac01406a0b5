package shaders

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/spaghettifunk/reel/engine/core"
)

const DefaultGlslc = "glslc"

// GlslcToolchain runs the glslc executable with the unit on stdin and reads the
// module from stdout.
type GlslcToolchain struct {
	Path string
	// Extra arguments placed before the input, for example a target environment.
	Args []string
}

func NewGlslcToolchain(path string) *GlslcToolchain {
	if path == "" {
		path = DefaultGlslc
	}
	return &GlslcToolchain{
		Path: path,
		Args: []string{"--target-env=vulkan1.1"},
	}
}

func (g *GlslcToolchain) CompileFragment(ctx context.Context, name, source string) ([]byte, error) {
	args := append([]string{"-fshader-stage=frag"}, g.Args...)
	args = append(args, "-o", "-", "-")

	core.LogDebug("Executing: %s %s", g.Path, strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, g.Path, args...)
	cmd.Stdin = strings.NewReader(source)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &CompileError{Path: name, Log: strings.ReplaceAll(stderr.String(), "<stdin>", name)}
		}
		return nil, fmt.Errorf("error executing %s: %w", g.Path, err)
	}
	return stdout.Bytes(), nil
}
