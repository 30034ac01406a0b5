package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
)

var (
	// ErrHelp is returned when usage was requested; the caller prints Usage.
	ErrHelp        = pflag.ErrHelp
	ErrCommandLine = errors.New("command line error")
)

const (
	DefaultWidth      = 1024
	DefaultHeight     = 768
	DefaultRate       = 60
	DefaultInterval   = 1.0
	DefaultScriptName = "script.json"
)

// Options are the command line settings of one run.
type Options struct {
	Width      int
	Height     int
	Rate       int
	Fullscreen bool
	Monitor    int
	Debug      bool
	// Project is the directory holding the script and one directory per program.
	Project string
	// Shader plays a single program and ignores the script.
	Shader string
	Script string
	// Interval multiplies every script duration.
	Interval float64

	usage string
	help  bool
}

func newFlagSet(o *Options) *pflag.FlagSet {
	fs := pflag.NewFlagSet("reel", pflag.ContinueOnError)
	fs.SortFlags = false
	fs.SetOutput(io.Discard)

	fs.IntVarP(&o.Width, "width", "W", DefaultWidth, "set window or screen width")
	fs.IntVarP(&o.Height, "height", "H", DefaultHeight, "set window or screen height")
	fs.IntVarP(&o.Rate, "rate", "R", DefaultRate, "set refresh rate in full screen mode")
	fs.BoolVarP(&o.Fullscreen, "fullscreen", "f", false, "enable full screen mode")
	fs.IntVarP(&o.Monitor, "monitor", "m", 0, "set the monitor index for full screen mode")
	fs.BoolVarP(&o.Debug, "debug", "d", false, "enable the Vulkan validation layer")
	fs.StringVarP(&o.Project, "project", "p", "", "path to the project, default is cwd")
	fs.StringVarP(&o.Shader, "shader", "s", "", "start with a particular shader")
	fs.StringVarP(&o.Script, "script", "t", "", "path to the script file, default is <project>/script.json")
	fs.Float64VarP(&o.Interval, "interval", "i", DefaultInterval, "scale the duration of every script entry")
	fs.BoolVarP(&o.help, "help", "h", false, "show this message")
	return fs
}

// ParseOptions parses the arguments after the program name. Relative project and script
// paths are kept as given; an empty project means the working directory.
func ParseOptions(args []string) (*Options, error) {
	o := &Options{}
	fs := newFlagSet(o)
	o.usage = "Standalone player for Shadertoys.\nAvailable options:\n" + fs.FlagUsages()

	if err := fs.Parse(args); err != nil {
		return o, fmt.Errorf("%w: %s", ErrCommandLine, err)
	}
	if o.help {
		return o, ErrHelp
	}
	if fs.NArg() > 0 {
		return o, fmt.Errorf("%w: unrecognized option %s", ErrCommandLine, fs.Arg(0))
	}
	if err := o.validate(); err != nil {
		return o, err
	}

	if o.Project == "" {
		wd, err := os.Getwd()
		if err != nil {
			return o, err
		}
		o.Project = wd
	}
	if o.Script == "" {
		o.Script = filepath.Join(o.Project, DefaultScriptName)
	}
	return o, nil
}

func (o *Options) validate() error {
	switch {
	case o.Width <= 0 || o.Height <= 0:
		return fmt.Errorf("%w: window size must be positive, got %dx%d", ErrCommandLine, o.Width, o.Height)
	case o.Rate <= 0:
		return fmt.Errorf("%w: refresh rate must be positive, got %d", ErrCommandLine, o.Rate)
	case o.Interval <= 0:
		return fmt.Errorf("%w: interval must be positive, got %g", ErrCommandLine, o.Interval)
	case o.Monitor < 0:
		return fmt.Errorf("%w: monitor index must not be negative, got %d", ErrCommandLine, o.Monitor)
	}
	return nil
}

// Usage is the help text.
func (o *Options) Usage() string {
	return o.usage
}
