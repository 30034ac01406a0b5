package shaders

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spaghettifunk/reel/engine/assets/loaders"
	"github.com/spaghettifunk/reel/engine/core"
	"github.com/spaghettifunk/reel/engine/renderer/metadata"
)

var (
	ErrSourceMissing = errors.New("shader source does not exist")
	ErrEmptyOutput   = errors.New("compiler produced no SPIR-V")
)

// CompileError carries the diagnostics of a failed compilation.
type CompileError struct {
	Path string
	Log  string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("failed to compile '%s':\n%s", e.Path, strings.TrimSpace(e.Log))
}

// Toolchain turns one GLSL fragment unit into SPIR-V bytes.
type Toolchain interface {
	CompileFragment(ctx context.Context, name, source string) ([]byte, error)
}

// Compiler compiles pass sources and keeps the result next to the source as a
// sidecar artifact that is reused while it is newer than the source.
type Compiler struct {
	toolchain Toolchain
	binary    loaders.BinaryLoader

	mutex sync.Mutex
	stale map[string]struct{}
}

func NewCompiler(toolchain Toolchain) *Compiler {
	return &Compiler{
		toolchain: toolchain,
		stale:     make(map[string]struct{}),
	}
}

// ArtifactPath is the sidecar of a source: same name with the .spv extension.
func ArtifactPath(sourcePath string) string {
	return strings.TrimSuffix(sourcePath, filepath.Ext(sourcePath)) + ".spv"
}

// IsCacheValid reports whether an artifact written at artifactTime can stand in for a
// source last modified at sourceTime. Equal times are not valid.
func IsCacheValid(sourceTime, artifactTime time.Time) bool {
	return artifactTime.After(sourceTime)
}

// Invalidate makes Compile of sourcePath ignore its artifact until a compile succeeds.
// Used when a chunk the source is compiled with changed, which the timestamps cannot see.
func (c *Compiler) Invalidate(sourcePath string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.stale[filepath.Clean(sourcePath)] = struct{}{}
}

func (c *Compiler) isStale(sourcePath string) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	_, ok := c.stale[filepath.Clean(sourcePath)]
	return ok
}

// clearStale drops the mark once a fresh artifact was written.
func (c *Compiler) clearStale(sourcePath string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.stale, filepath.Clean(sourcePath))
}

// Compile returns the SPIR-V of a pass: the cached artifact when it is valid, otherwise
// the chunks followed by the source file compiled as one fragment unit.
func (c *Compiler) Compile(ctx context.Context, sourcePath string, chunks ...Chunk) ([]uint32, error) {
	sourceInfo, err := os.Stat(sourcePath)
	if err != nil {
		err = fmt.Errorf("%w: '%s'", ErrSourceMissing, sourcePath)
		core.LogError("%s", err)
		return nil, err
	}

	artifact := ArtifactPath(sourcePath)
	forced := c.isStale(sourcePath)
	if artifactInfo, err := os.Stat(artifact); err == nil && !forced && IsCacheValid(sourceInfo.ModTime(), artifactInfo.ModTime()) {
		res, err := c.binary.Load(artifact, metadata.ResourceTypeBinary, map[string]string{"name": filepath.Base(artifact)})
		if err == nil && res.DataSize > 0 {
			core.LogInfo("Using cached shader file '%s'", artifact)
			return res.Data.([]uint32), nil
		}
		core.LogWarn("Cannot read cached shader file '%s', recompiling", artifact)
	}

	source, err := os.ReadFile(sourcePath)
	if err != nil {
		core.LogError("couldn't read shader file '%s': %s", sourcePath, err)
		return nil, err
	}

	var sb strings.Builder
	for _, chunk := range chunks {
		sb.WriteString(string(chunk))
	}
	sb.Write(source)

	core.LogInfo("Compiling shader '%s'...", sourcePath)
	spv, err := c.compile(ctx, sourcePath, sb.String())
	if err != nil {
		return nil, err
	}

	// A failed compile keeps the mark, the old artifact must not be served.
	if err := writeArtifact(artifact, spv); err != nil {
		core.LogWarn("Cannot write shader cache '%s': %s", artifact, err)
	} else {
		c.clearStale(sourcePath)
	}
	return loaders.BytesToBytecode(spv), nil
}

// CompileSource compiles an in-memory unit without touching the cache.
func (c *Compiler) CompileSource(ctx context.Context, name, source string) ([]uint32, error) {
	spv, err := c.compile(ctx, name, source)
	if err != nil {
		return nil, err
	}
	return loaders.BytesToBytecode(spv), nil
}

func (c *Compiler) compile(ctx context.Context, name, source string) ([]byte, error) {
	spv, err := c.toolchain.CompileFragment(ctx, name, source)
	if err != nil {
		var compileErr *CompileError
		if !errors.As(err, &compileErr) {
			err = &CompileError{Path: name, Log: err.Error()}
		}
		core.LogError("%s", err)
		return nil, err
	}
	if len(spv) < 4 || len(spv)%4 != 0 {
		err := &CompileError{Path: name, Log: ErrEmptyOutput.Error()}
		core.LogError("%s", err)
		return nil, err
	}
	return spv, nil
}

// writeArtifact writes the whole file under a unique name first so a reader never
// sees a partial artifact.
func writeArtifact(path string, data []byte) error {
	tmp := fmt.Sprintf("%s.%s.tmp", path, uuid.NewString())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
