package assets

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spaghettifunk/reel/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetermineAssetType(t *testing.T) {
	cases := map[string]metadata.ResourceType{
		"p/description.json":  metadata.ResourceTypeDescription,
		"script.json":         metadata.ResourceTypeScript,
		"settings.toml":       metadata.ResourceTypeSettings,
		"p/Image.glsl":        metadata.ResourceTypeShaderSource,
		"p/Image.spv":         metadata.ResourceTypeBinary,
		"p/Image.spv.abc.tmp": metadata.ResourceTypeNone,
		"media/a/noise.PNG":   metadata.ResourceTypeImage,
		"media/a/organic.jpg": metadata.ResourceTypeImage,
		"media/a/grey.bin":    metadata.ResourceTypeVolume,
		"README.md":           metadata.ResourceTypeNone,
	}
	for path, want := range cases {
		assert.Equal(t, want, determineAssetType(path), path)
	}
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestInitializeIndexesProject(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "script.json"), `["prog"]`)
	writeFile(t, filepath.Join(dir, "prog", "description.json"), `[{"type":"image","code":"Image.glsl"}]`)
	writeFile(t, filepath.Join(dir, "prog", "Image.glsl"), "void mainImage(out vec4 c, in vec2 f) {}\n")
	writeFile(t, filepath.Join(dir, ".git", "config"), "")

	am, err := NewAssetManager()
	require.NoError(t, err)
	require.NoError(t, am.Initialize(dir, false))
	defer am.Close()

	root, _ := filepath.Abs(dir)
	descs := am.Assets(metadata.ResourceTypeDescription)
	assert.Equal(t, []string{filepath.Join(root, "prog", "description.json")}, descs)

	info, ok := am.Lookup(filepath.Join(root, "prog", "Image.glsl"))
	require.True(t, ok)
	assert.Equal(t, metadata.ResourceTypeShaderSource, info.Type)
	assert.True(t, info.LastLoaded.IsZero())

	res, err := am.LoadAsset(filepath.Join(root, "script.json"), metadata.ResourceTypeScript, nil)
	require.NoError(t, err)
	assert.Equal(t, []metadata.ScriptEntry{{Program: "prog", Duration: 1}}, res.Data)
	info, ok = am.Lookup(filepath.Join(root, "script.json"))
	require.True(t, ok)
	assert.False(t, info.LastLoaded.IsZero())

	_, err = am.LoadAsset(filepath.Join(root, "prog", "Image.glsl"), metadata.ResourceTypeShaderSource, nil)
	assert.Error(t, err, "sources are compiled, not loaded")
}

func TestWatchPublishesChanges(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "prog", "Image.glsl")
	writeFile(t, src, "// v1\n")

	am, err := NewAssetManager()
	require.NoError(t, err)
	require.NoError(t, am.Initialize(dir, true))

	// Our own artifacts are not reported.
	writeFile(t, filepath.Join(dir, "prog", "Image.spv"), "1234")
	writeFile(t, src, "// v2\n")

	deadline := time.After(5 * time.Second)
	for found := false; !found; {
		select {
		case c := <-am.Changes():
			require.NotEqual(t, metadata.ResourceTypeBinary, c.Type)
			if filepath.Base(c.Path) == "Image.glsl" {
				assert.Equal(t, metadata.ResourceTypeShaderSource, c.Type)
				found = true
			}
		case <-deadline:
			t.Fatal("no change published for the shader source")
		}
	}

	require.NoError(t, am.Close())
	require.NoError(t, am.Close())
	for range am.Changes() {
	}
}
