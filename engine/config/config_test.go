package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOptionsDefaults(t *testing.T) {
	o, err := ParseOptions(nil)
	require.NoError(t, err)

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, DefaultWidth, o.Width)
	assert.Equal(t, DefaultHeight, o.Height)
	assert.Equal(t, DefaultRate, o.Rate)
	assert.Equal(t, DefaultInterval, o.Interval)
	assert.False(t, o.Fullscreen)
	assert.Equal(t, wd, o.Project)
	assert.Equal(t, filepath.Join(wd, DefaultScriptName), o.Script)
}

func TestParseOptions(t *testing.T) {
	o, err := ParseOptions([]string{"-W", "640", "--height=480", "-f", "-m", "1", "-d",
		"-p", "/proj", "-s", "tunnel", "-i", "2.5", "-R", "144"})
	require.NoError(t, err)
	assert.Equal(t, 640, o.Width)
	assert.Equal(t, 480, o.Height)
	assert.Equal(t, 144, o.Rate)
	assert.True(t, o.Fullscreen)
	assert.Equal(t, 1, o.Monitor)
	assert.True(t, o.Debug)
	assert.Equal(t, "/proj", o.Project)
	assert.Equal(t, "tunnel", o.Shader)
	assert.Equal(t, 2.5, o.Interval)
	assert.Equal(t, filepath.Join("/proj", DefaultScriptName), o.Script)

	o, err = ParseOptions([]string{"--project", "/proj", "--script", "/elsewhere/show.json"})
	require.NoError(t, err)
	assert.Equal(t, "/elsewhere/show.json", o.Script)
}

func TestParseOptionsHelp(t *testing.T) {
	o, err := ParseOptions([]string{"--help"})
	assert.ErrorIs(t, err, ErrHelp)
	assert.Contains(t, o.Usage(), "--fullscreen")
	assert.Contains(t, o.Usage(), "-W, --width")
}

func TestParseOptionsErrors(t *testing.T) {
	for _, args := range [][]string{
		{"--bogus"},
		{"--width"},
		{"-W", "wide"},
		{"-W", "0"},
		{"-i", "-1"},
		{"-R", "0"},
		{"-m", "-2"},
		{"stray"},
	} {
		_, err := ParseOptions(args)
		assert.ErrorIs(t, err, ErrCommandLine, "%v", args)
	}
}

func TestLoadSettingsMissingFile(t *testing.T) {
	s, err := LoadSettings(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)
	assert.Equal(t, 10, s.PoolSize())
}

func TestLoadSettings(t *testing.T) {
	dir := t.TempDir()
	doc := "log_level = \"debug\"\ntransition_window = 1.5\nframes_in_flight = 3\nwatch = false\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, SettingsFileName), []byte(doc), 0o644))

	s, err := LoadSettings(dir)
	require.NoError(t, err)
	assert.Equal(t, "debug", s.LogLevel)
	assert.Equal(t, 1.5, s.TransitionWindow)
	assert.Equal(t, 3, s.FramesInFlight)
	assert.False(t, s.Watch)
	assert.Equal(t, 4, s.MaxPasses, "absent keys keep their default")
	assert.Equal(t, "glslc", s.Glslc)
}

func TestLoadSettingsRejects(t *testing.T) {
	for _, doc := range []string{
		"frames_in_flight = 7",
		"max_passes = 0",
		"transition_window = -1.0",
		"glslc = \"\"",
		"unknown_key = 1",
		"log_level = ",
	} {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, SettingsFileName), []byte(doc), 0o644))
		_, err := LoadSettings(dir)
		assert.ErrorIs(t, err, ErrInvalidSettings, doc)
	}
}
