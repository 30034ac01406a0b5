package shaders

import (
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spaghettifunk/reel/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeToolchain returns a tiny module and records what it was asked to compile.
type fakeToolchain struct {
	calls   int
	sources []string
	fail    string
}

func (f *fakeToolchain) CompileFragment(ctx context.Context, name, source string) ([]byte, error) {
	f.calls++
	f.sources = append(f.sources, source)
	if f.fail != "" && strings.Contains(source, f.fail) {
		return nil, &CompileError{Path: name, Log: "ERROR: 0:1: syntax error"}
	}
	out := make([]byte, 8)
	binary.LittleEndian.PutUint32(out, 0x07230203)
	binary.LittleEndian.PutUint32(out[4:], uint32(f.calls))
	return out, nil
}

func writeSource(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestPreamble(t *testing.T) {
	p := string(Preamble())
	assert.True(t, strings.HasPrefix(p, "#version 450\n"))
	assert.Contains(t, p, "layout(set = 0, binding = 4) uniform UniformBufferObject")
	assert.Contains(t, p, "layout(push_constant) uniform PushConstants")
	assert.Contains(t, p, "mainImage(o_color, fragCoord);")
	assert.Less(t, strings.Index(p, "iTime"), strings.Index(p, "iMouse"))
}

func TestChannelDeclarations(t *testing.T) {
	decls := ChannelDeclarations([]metadata.InputDeclaration{
		{Channel: 2, Type: metadata.InputTypeVolume},
		{Channel: 0, Type: metadata.InputTypeBuffer, ID: "4dXGR8"},
		{Channel: 1, Type: metadata.InputTypeCubemap},
	})
	assert.Equal(t,
		"uniform layout(set = 0, binding = 0) sampler2D iChannel0;\n"+
			"uniform layout(set = 0, binding = 1) samplerCube iChannel1;\n"+
			"uniform layout(set = 0, binding = 2) sampler3D iChannel2;\n",
		string(decls))

	assert.Empty(t, string(ChannelDeclarations(nil)))
}

func TestArtifactPath(t *testing.T) {
	assert.Equal(t, filepath.Join("a", "Image.spv"), ArtifactPath(filepath.Join("a", "Image.glsl")))
	assert.Equal(t, "pass.spv", ArtifactPath("pass"))
}

func TestIsCacheValid(t *testing.T) {
	now := time.Now()
	assert.True(t, IsCacheValid(now, now.Add(time.Second)))
	assert.False(t, IsCacheValid(now, now), "equal timestamps are stale")
	assert.False(t, IsCacheValid(now, now.Add(-time.Second)))
}

func TestCompileWritesAndReusesArtifact(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "Image.glsl", "void mainImage(out vec4 c, in vec2 f) { c = vec4(1); }\n")
	tc := &fakeToolchain{}
	c := NewCompiler(tc)

	code, err := c.Compile(context.Background(), src, Preamble(), Chunk("// common\n"))
	require.NoError(t, err)
	assert.Equal(t, uint32(0x07230203), code[0])
	assert.Equal(t, 1, tc.calls)
	assert.FileExists(t, ArtifactPath(src))

	unit := tc.sources[0]
	assert.True(t, strings.HasPrefix(unit, "#version 450"))
	assert.Less(t, strings.Index(unit, "// common"), strings.Index(unit, "void mainImage(out"))

	// Age the source so the artifact is strictly newer.
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(src, past, past))

	cached, err := c.Compile(context.Background(), src, Preamble())
	require.NoError(t, err)
	assert.Equal(t, code, cached)
	assert.Equal(t, 1, tc.calls, "cache hit must not invoke the toolchain")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}

func TestCompileRecompilesWhenSourceIsNewer(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "BufferA.glsl", "void mainImage(out vec4 c, in vec2 f) {}\n")
	tc := &fakeToolchain{}
	c := NewCompiler(tc)

	_, err := c.Compile(context.Background(), src)
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(ArtifactPath(src), past, past))

	_, err = c.Compile(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 2, tc.calls)
}

func TestInvalidateForcesRecompile(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "Image.glsl", "void mainImage(out vec4 c, in vec2 f) {}\n")
	past := time.Now().Add(-time.Hour)
	tc := &fakeToolchain{}
	c := NewCompiler(tc)

	_, err := c.Compile(context.Background(), src)
	require.NoError(t, err)
	require.NoError(t, os.Chtimes(src, past, past))

	c.Invalidate(src)
	_, err = c.Compile(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 2, tc.calls)

	// Only the next compile is forced.
	_, err = c.Compile(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 2, tc.calls)
}

func TestFailedForcedCompileKeepsArtifactStale(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "Image.glsl", "void mainImage(out vec4 c, in vec2 f) {}\n")
	past := time.Now().Add(-time.Hour)
	tc := &fakeToolchain{fail: "broken"}
	c := NewCompiler(tc)

	_, err := c.Compile(context.Background(), src, Chunk("// common v1\n"))
	require.NoError(t, err)
	require.NoError(t, os.Chtimes(src, past, past))

	// The common chunk changed and no longer compiles.
	c.Invalidate(src)
	_, err = c.Compile(context.Background(), src, Chunk("broken\n"))
	require.Error(t, err)
	assert.Equal(t, 2, tc.calls)

	// Still stale: the old artifact is not served.
	_, err = c.Compile(context.Background(), src, Chunk("broken\n"))
	require.Error(t, err)
	assert.Equal(t, 3, tc.calls)

	_, err = c.Compile(context.Background(), src, Chunk("// common v2\n"))
	require.NoError(t, err)
	assert.Equal(t, 4, tc.calls)

	_, err = c.Compile(context.Background(), src, Chunk("// common v2\n"))
	require.NoError(t, err)
	assert.Equal(t, 4, tc.calls, "a successful compile clears the mark")
}

func TestCompileFailureIsNotCached(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "Image.glsl", "broken\n")
	c := NewCompiler(&fakeToolchain{fail: "broken"})

	_, err := c.Compile(context.Background(), src)
	var compileErr *CompileError
	require.True(t, errors.As(err, &compileErr))
	assert.Equal(t, src, compileErr.Path)
	assert.Contains(t, compileErr.Error(), "syntax error")
	assert.NoFileExists(t, ArtifactPath(src))
}

func TestCompileMissingSource(t *testing.T) {
	c := NewCompiler(&fakeToolchain{})
	_, err := c.Compile(context.Background(), filepath.Join(t.TempDir(), "nope.glsl"))
	assert.ErrorIs(t, err, ErrSourceMissing)
}

func TestUnreadableArtifactFallsBackToCompile(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "Image.glsl", "void mainImage(out vec4 c, in vec2 f) {}\n")
	require.NoError(t, os.WriteFile(ArtifactPath(src), nil, 0o644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(src, past, past))

	tc := &fakeToolchain{}
	_, err := NewCompiler(tc).Compile(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 1, tc.calls)
}

func TestCompileWGSLQuad(t *testing.T) {
	words, err := CompileWGSL(quadShaderWGSL)
	require.NoError(t, err)
	require.NotEmpty(t, words)
	assert.Equal(t, uint32(0x07230203), words[0], "SPIR-V magic")
}

func TestLoadBuiltins(t *testing.T) {
	tc := &fakeToolchain{}
	builtins, err := LoadBuiltins(context.Background(), NewCompiler(tc))
	require.NoError(t, err)
	assert.NotEmpty(t, builtins.QuadVertex)
	assert.NotEmpty(t, builtins.Composite)
	require.Len(t, tc.sources, 1)
	assert.Contains(t, tc.sources[0], "u_factor")
}
