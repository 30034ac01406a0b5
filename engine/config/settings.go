package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

var ErrInvalidSettings = errors.New("invalid settings")

const SettingsFileName = "settings.toml"

// Settings are the per project knobs that rarely change between runs.
type Settings struct {
	LogLevel string `toml:"log_level"`
	// Seconds of fade in and fade out at the ends of a playlist entry.
	TransitionWindow float64 `toml:"transition_window"`
	FramesInFlight   int     `toml:"frames_in_flight"`
	// Buffer passes a program may declare; the pool holds two slots per pass plus the image pass.
	MaxPasses  int     `toml:"max_passes"`
	Glslc      string  `toml:"glslc"`
	Watch      bool    `toml:"watch"`
	SampleRate float64 `toml:"sample_rate"`
}

func DefaultSettings() *Settings {
	return &Settings{
		LogLevel:         "info",
		TransitionWindow: 0.5,
		FramesInFlight:   2,
		MaxPasses:        4,
		Glslc:            "glslc",
		Watch:            true,
		SampleRate:       44100,
	}
}

// LoadSettings reads <projectDir>/settings.toml over the defaults. A missing file
// yields the defaults.
func LoadSettings(projectDir string) (*Settings, error) {
	s := DefaultSettings()
	path := filepath.Join(projectDir, SettingsFileName)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}

	if err := ParseSettings(data, s); err != nil {
		return nil, fmt.Errorf("'%s': %w", path, err)
	}
	return s, nil
}

// ParseSettings decodes TOML into s, keeping the fields the document leaves out.
func ParseSettings(data []byte, s *Settings) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSettings, err)
	}
	return s.Validate()
}

func (s *Settings) Validate() error {
	switch {
	case s.TransitionWindow < 0:
		return fmt.Errorf("%w: transition_window must not be negative", ErrInvalidSettings)
	case s.FramesInFlight < 1 || s.FramesInFlight > 3:
		return fmt.Errorf("%w: frames_in_flight must be in 1..3, got %d", ErrInvalidSettings, s.FramesInFlight)
	case s.MaxPasses < 1:
		return fmt.Errorf("%w: max_passes must be positive, got %d", ErrInvalidSettings, s.MaxPasses)
	case s.Glslc == "":
		return fmt.Errorf("%w: glslc must name an executable", ErrInvalidSettings)
	case s.SampleRate <= 0:
		return fmt.Errorf("%w: sample_rate must be positive", ErrInvalidSettings)
	}
	return nil
}

// PoolSize is the number of render targets a program can address.
func (s *Settings) PoolSize() int {
	return (s.MaxPasses + 1) * 2
}
