package systems

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
	"github.com/spaghettifunk/reel/engine/shaders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeToolchain struct {
	calls   int
	sources []string
	fail    string
}

func (f *fakeToolchain) CompileFragment(ctx context.Context, name, source string) ([]byte, error) {
	f.calls++
	f.sources = append(f.sources, source)
	if f.fail != "" && strings.Contains(source, f.fail) {
		return nil, &shaders.CompileError{Path: name, Log: "ERROR: 0:1: syntax error"}
	}
	out := make([]byte, 8)
	binary.LittleEndian.PutUint32(out, 0x07230203)
	binary.LittleEndian.PutUint32(out[4:], uint32(f.calls))
	return out, nil
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func imagePass(code string, inputs ...metadata.InputDeclaration) metadata.PassDeclaration {
	return metadata.PassDeclaration{Type: metadata.PassTypeImage, OutputID: "img", Code: code, Inputs: inputs}
}

func bufferPass(id, code string, inputs ...metadata.InputDeclaration) metadata.PassDeclaration {
	return metadata.PassDeclaration{Type: metadata.PassTypeBuffer, OutputID: id, Code: code, Inputs: inputs}
}

func TestBuildProgramOrdersImageLast(t *testing.T) {
	decl := &metadata.ProgramDeclaration{Passes: []metadata.PassDeclaration{
		imagePass("Image.glsl"),
		{Type: metadata.PassTypeCommon, Code: "Common.glsl"},
		bufferPass("a", "BufferA.glsl"),
		bufferPass("b", "BufferB.glsl"),
	}}
	prog, err := BuildProgram("p", decl, 4)
	require.NoError(t, err)

	require.Len(t, prog.Passes, 3)
	assert.Equal(t, 2, prog.ImagePassIndex)
	assert.Equal(t, "Image.glsl", prog.ImagePass().Decl.Code)
	assert.Equal(t, "BufferA.glsl", prog.Passes[0].Decl.Code)
	assert.Equal(t, "BufferB.glsl", prog.Passes[1].Decl.Code)
	for i, pass := range prog.Passes {
		assert.Equal(t, i, pass.Index)
	}
	assert.Equal(t, "Common.glsl", prog.CommonPath)
	assert.Equal(t, 6, prog.DescriptorSets())
	assert.False(t, prog.Ready())
	assert.False(t, prog.Compiled())
}

func TestBuildProgramErrors(t *testing.T) {
	cases := map[string]struct {
		passes []metadata.PassDeclaration
		want   error
	}{
		"no image": {
			passes: []metadata.PassDeclaration{bufferPass("a", "A.glsl")},
			want:   ErrNoImagePass,
		},
		"two images": {
			passes: []metadata.PassDeclaration{imagePass("A.glsl"), imagePass("B.glsl")},
			want:   ErrMultipleImagePasses,
		},
		"two commons": {
			passes: []metadata.PassDeclaration{
				imagePass("I.glsl"),
				{Type: metadata.PassTypeCommon, Code: "C1.glsl"},
				{Type: metadata.PassTypeCommon, Code: "C2.glsl"},
			},
			want: ErrMultipleCommon,
		},
		"channel out of range": {
			passes: []metadata.PassDeclaration{imagePass("I.glsl", metadata.InputDeclaration{Channel: 4})},
			want:   ErrChannelRange,
		},
		"duplicate channel": {
			passes: []metadata.PassDeclaration{imagePass("I.glsl",
				metadata.InputDeclaration{Channel: 1},
				metadata.InputDeclaration{Channel: 1, Type: metadata.InputTypeVolume},
			)},
			want: ErrDuplicateChannel,
		},
		"too many passes": {
			passes: []metadata.PassDeclaration{
				bufferPass("a", "A.glsl"), bufferPass("b", "B.glsl"), bufferPass("c", "C.glsl"),
				imagePass("I.glsl"),
			},
			want: ErrTooManyPasses,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := BuildProgram("p", &metadata.ProgramDeclaration{Passes: tc.passes}, 2)
			require.ErrorIs(t, err, tc.want)
			var buildErr *BuildError
			require.True(t, errors.As(err, &buildErr))
			assert.Equal(t, "p", buildErr.Program)
		})
	}

	_, err := BuildProgram("nil", nil, 2)
	assert.ErrorIs(t, err, ErrNoImagePass)
}

func TestUsesSource(t *testing.T) {
	prog, err := BuildProgram("p", &metadata.ProgramDeclaration{Passes: []metadata.PassDeclaration{
		imagePass("/p/Image.glsl"),
		bufferPass("a", "/p/BufferA.glsl"),
		{Type: metadata.PassTypeCommon, Code: "/p/Common.glsl"},
	}}, 4)
	require.NoError(t, err)

	assert.True(t, prog.UsesSource("/p/Image.glsl"))
	assert.True(t, prog.UsesSource("/p/BufferA.glsl"))
	assert.True(t, prog.UsesSource("/p/Common.glsl"))
	assert.False(t, prog.UsesSource("/q/Image.glsl"))
	assert.False(t, prog.UsesSource(""))
}

func compileFixture(t *testing.T, image string) (*Program, string) {
	t.Helper()
	dir := t.TempDir()
	common := writeFile(t, dir, "Common.glsl", "float shared() { return 1.0; }\n")
	a := writeFile(t, dir, "BufferA.glsl", "void mainImage(out vec4 c, in vec2 f) { c = vec4(shared()); }\n")
	img := writeFile(t, dir, "Image.glsl", image)

	prog, err := BuildProgram("p", &metadata.ProgramDeclaration{Dir: dir, Passes: []metadata.PassDeclaration{
		bufferPass("a", a, metadata.InputDeclaration{Channel: 0, Type: metadata.InputTypeBuffer, ID: "a"}),
		imagePass(img, metadata.InputDeclaration{Channel: 0, Type: metadata.InputTypeBuffer, ID: "a"}),
		{Type: metadata.PassTypeCommon, Code: common},
	}}, 4)
	require.NoError(t, err)
	return prog, dir
}

func TestCompileAllConcatenatesChunks(t *testing.T) {
	prog, _ := compileFixture(t, "void mainImage(out vec4 c, in vec2 f) { c = texture(iChannel0, f); }\n")
	tc := &fakeToolchain{}

	errs := prog.CompileAll(context.Background(), shaders.NewCompiler(tc))
	require.Empty(t, errs)
	assert.True(t, prog.Compiled())
	require.Equal(t, 2, tc.calls)

	unit := tc.sources[0]
	assert.True(t, strings.HasPrefix(unit, "#version 450"))
	decl := strings.Index(unit, "sampler2D iChannel0;")
	common := strings.Index(unit, "float shared()")
	body := strings.Index(unit, "c = vec4(shared());")
	assert.Positive(t, decl)
	assert.Less(t, decl, common)
	assert.Less(t, common, body)

	for _, pass := range prog.Passes {
		assert.NotEmpty(t, pass.Code)
	}
}

func TestCompileAllKeepsOldCodeOnFailure(t *testing.T) {
	prog, _ := compileFixture(t, "void mainImage(out vec4 c, in vec2 f) { c = vec4(0); }\n")
	tc := &fakeToolchain{}
	compiler := shaders.NewCompiler(tc)
	require.Empty(t, prog.CompileAll(context.Background(), compiler))
	before := [][]uint32{prog.Passes[0].Code, prog.Passes[1].Code}

	// Break the image pass and make sure its artifact is stale.
	img := prog.ImagePass().Decl.Code
	require.NoError(t, os.WriteFile(img, []byte("broken\n"), 0o644))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(img, future, future))
	tc.fail = "broken"

	errs := prog.CompileAll(context.Background(), compiler)
	require.Len(t, errs, 1)
	assert.Equal(t, prog.ImagePassIndex, errs[0].Pass)
	assert.Equal(t, img, errs[0].Path)
	var compileErr *shaders.CompileError
	assert.True(t, errors.As(errs[0], &compileErr))

	assert.False(t, prog.Compiled())
	assert.Equal(t, before[0], prog.Passes[0].Code)
	assert.Equal(t, before[1], prog.Passes[1].Code)
}

func TestCompileAllMissingCommon(t *testing.T) {
	prog, dir := compileFixture(t, "void mainImage(out vec4 c, in vec2 f) {}\n")
	require.NoError(t, os.Remove(filepath.Join(dir, "Common.glsl")))
	tc := &fakeToolchain{}

	errs := prog.CompileAll(context.Background(), shaders.NewCompiler(tc))
	assert.Len(t, errs, len(prog.Passes))
	assert.Zero(t, tc.calls)
	assert.False(t, prog.Compiled())
}

func TestInvalidateCommonForcesEveryPass(t *testing.T) {
	prog, dir := compileFixture(t, "void mainImage(out vec4 c, in vec2 f) {}\n")
	tc := &fakeToolchain{}
	compiler := shaders.NewCompiler(tc)
	require.Empty(t, prog.CompileAll(context.Background(), compiler))
	require.Equal(t, 2, tc.calls)

	// Sources older than their artifacts: a plain compile is served from cache.
	past := time.Now().Add(-time.Hour)
	for _, pass := range prog.Passes {
		require.NoError(t, os.Chtimes(pass.Decl.Code, past, past))
	}
	require.Empty(t, prog.CompileAll(context.Background(), compiler))
	assert.Equal(t, 2, tc.calls)

	assert.False(t, prog.InvalidateCommon(compiler, filepath.Join(dir, "Other.glsl")))
	assert.True(t, prog.InvalidateCommon(compiler, filepath.Join(dir, "Common.glsl")))
	require.Empty(t, prog.CompileAll(context.Background(), compiler))
	assert.Equal(t, 4, tc.calls)
}
