package systems

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/reel/engine/assets"
	"github.com/spaghettifunk/reel/engine/core"
	"github.com/spaghettifunk/reel/engine/renderer/metadata"
	"github.com/spaghettifunk/reel/engine/renderer/vulkan"
	"github.com/spaghettifunk/reel/engine/shaders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHost struct {
	quit bool
}

func (h *fakeHost) GPU() *vulkan.GraphicsContext { return nil }
func (h *fakeHost) RequestQuit()                 { h.quit = true }

func writeProgram(t *testing.T, root, name, description string, sources ...string) {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	writeFile(t, dir, DescriptionFileName, description)
	for _, src := range sources {
		writeFile(t, dir, src, "void mainImage(out vec4 c, in vec2 f) { c = vec4(1); }\n")
	}
}

func newTestPlayer(t *testing.T) (*Player, string) {
	t.Helper()
	root := t.TempDir()
	writeProgram(t, root, "good", `[
		{"type":"buffer","code":"BufferA.glsl","outputs":[{"id":"a"}]},
		{"type":"image","code":"Image.glsl","inputs":[{"channel":0,"type":"buffer","id":"a"}]},
		{"type":"common","code":"Common.glsl"}
	]`, "BufferA.glsl", "Image.glsl", "Common.glsl")
	writeProgram(t, root, "other", `[{"type":"image","code":"Image.glsl"}]`, "Image.glsl")
	writeProgram(t, root, "bad", `[{"type":"buffer","code":"BufferA.glsl"}]`, "BufferA.glsl")

	am, err := assets.NewAssetManager()
	require.NoError(t, err)
	require.NoError(t, am.Initialize(root, false))
	t.Cleanup(func() { _ = am.Close() })

	compiler := shaders.NewCompiler(&fakeToolchain{})
	return NewPlayer(&PlayerConfig{ProjectDir: root, MaxPasses: 4, TransitionWindow: 0.5}, am, compiler), root
}

func TestLoadProgramsSkipsBroken(t *testing.T) {
	p, _ := newTestPlayer(t)

	n, err := p.LoadPrograms([]string{"good", "bad", "missing", "other", "good"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	prog, ok := p.Program("good")
	require.True(t, ok)
	assert.Len(t, prog.Passes, 2)
	assert.NotEmpty(t, prog.CommonPath)
	_, ok = p.Program("bad")
	assert.False(t, ok)
}

func TestLoadProgramsNothingLoads(t *testing.T) {
	p, _ := newTestPlayer(t)
	_, err := p.LoadPrograms([]string{"bad", "missing"})
	assert.ErrorIs(t, err, ErrNoPrograms)
}

func TestCompileAndScript(t *testing.T) {
	p, _ := newTestPlayer(t)
	_, err := p.LoadPrograms([]string{"good", "other"})
	require.NoError(t, err)

	require.NoError(t, p.Compile(context.Background()))
	prog, _ := p.Program("good")
	assert.True(t, prog.Compiled())

	require.NoError(t, p.SetScript([]metadata.ScriptEntry{
		{Program: "good", Duration: 1},
		{Program: "bad", Duration: 1},
		{Program: "other", Duration: 2},
	}, 3))
	assert.Equal(t, 2, p.Playlist().Len())
	assert.Equal(t, metadata.ScriptEntry{Program: "good", Duration: 3}, p.Playlist().Current())
}

func TestInitializeNeedsCompiledShaders(t *testing.T) {
	p, _ := newTestPlayer(t)
	assert.Error(t, p.Initialize(context.Background(), &fakeHost{}))
}

func TestKeyBindings(t *testing.T) {
	p, _ := newTestPlayer(t)
	_, err := p.LoadPrograms([]string{"good", "other"})
	require.NoError(t, err)
	require.NoError(t, p.SetScript([]metadata.ScriptEntry{{Program: "good"}, {Program: "other"}}, 1))
	host := &fakeHost{}
	p.host = host

	p.Key(core.KEY_RIGHT, core.ACTION_RELEASE)
	assert.Equal(t, "good", p.Playlist().Current().Program)

	p.Key(core.KEY_RIGHT, core.ACTION_PRESS)
	assert.Equal(t, "other", p.Playlist().Current().Program)
	p.Key(core.KEY_LEFT, core.ACTION_PRESS)
	assert.Equal(t, "good", p.Playlist().Current().Program)

	p.Key(core.KEY_SPACE, core.ACTION_PRESS)
	assert.True(t, p.Playlist().Paused())
	p.Key(core.KEY_SPACE, core.ACTION_PRESS)
	assert.False(t, p.Playlist().Paused())

	p.Key(core.KEY_R, core.ACTION_PRESS)
	assert.True(t, p.reloadRequested)

	assert.False(t, host.quit)
	p.Key(core.KEY_Q, core.ACTION_PRESS)
	assert.True(t, host.quit)
}

func TestMouseDrag(t *testing.T) {
	p, _ := newTestPlayer(t)

	p.MouseMove(5, 6)
	assert.Equal(t, [4]float32{0, 99, -0, -99}, MouseUniform(p.mouse, 100))

	p.MouseButton(core.BUTTON_LEFT, core.ACTION_PRESS)
	assert.Equal(t, [4]float32{5, 93, 5, 93}, MouseUniform(p.mouse, 100))

	p.MouseMove(15, 16)
	assert.Equal(t, [4]float32{15, 83, 5, -93}, MouseUniform(p.mouse, 100))

	p.MouseButton(core.BUTTON_RIGHT, core.ACTION_RELEASE)
	assert.True(t, p.mouse.down)

	p.MouseButton(core.BUTTON_LEFT, core.ACTION_RELEASE)
	p.MouseMove(50, 50)
	assert.Equal(t, [4]float32{15, 83, -5, -93}, MouseUniform(p.mouse, 100))
}

func TestSourceChangeSchedulesReload(t *testing.T) {
	p, root := newTestPlayer(t)
	_, err := p.LoadPrograms([]string{"good"})
	require.NoError(t, err)
	abs, err := filepath.Abs(root)
	require.NoError(t, err)

	p.onChange(assets.Change{Path: filepath.Join(abs, "unrelated", "X.glsl"), Type: metadata.ResourceTypeShaderSource})
	assert.False(t, p.pendingChange)

	p.wallTime = 4
	p.onChange(assets.Change{Path: filepath.Join(abs, "good", "Image.glsl"), Type: metadata.ResourceTypeShaderSource})
	assert.True(t, p.pendingChange)
	assert.Equal(t, 4.0, p.changedAt)

	p.pendingChange = false
	p.onChange(assets.Change{Path: filepath.Join(abs, "good", DescriptionFileName), Type: metadata.ResourceTypeDescription})
	assert.False(t, p.pendingChange)
}

func TestAnimateResetsPoolOnEntryChange(t *testing.T) {
	p, _ := newTestPlayer(t)
	_, err := p.LoadPrograms([]string{"good", "other"})
	require.NoError(t, err)
	require.NoError(t, p.SetScript([]metadata.ScriptEntry{{Program: "good", Duration: 1}, {Program: "other", Duration: 1}}, 1))

	p.Animate(0.5)
	assert.False(t, p.executor.PoolInitialized())
	p.executor.poolInitialized = true

	p.Animate(0.25)
	assert.True(t, p.executor.PoolInitialized())

	p.Animate(0.5)
	assert.Equal(t, "other", p.Playlist().Current().Program)
	assert.False(t, p.executor.PoolInitialized())
}

func TestPausedPlaybackFreezesAfterOneFrame(t *testing.T) {
	p, _ := newTestPlayer(t)
	_, err := p.LoadPrograms([]string{"good"})
	require.NoError(t, err)
	require.NoError(t, p.SetScript([]metadata.ScriptEntry{{Program: "good"}}, 1))

	p.Key(core.KEY_SPACE, core.ACTION_PRESS)
	assert.False(t, p.frozen(), "nothing rendered yet")

	p.executor.poolInitialized = true
	p.Playlist().NextFrame()
	assert.True(t, p.frozen())

	// A resize resets the pool, the next frame renders again.
	p.executor.ResetPool()
	assert.False(t, p.frozen())

	p.executor.poolInitialized = true
	p.Key(core.KEY_SPACE, core.ACTION_PRESS)
	assert.False(t, p.frozen())
}
