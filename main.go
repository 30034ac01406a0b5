/*
reel plays a script of Shadertoy style programs full screen or in a window.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/google/uuid"
	"github.com/spaghettifunk/reel/engine"
	"github.com/spaghettifunk/reel/engine/assets"
	"github.com/spaghettifunk/reel/engine/assets/loaders"
	"github.com/spaghettifunk/reel/engine/config"
	"github.com/spaghettifunk/reel/engine/core"
	"github.com/spaghettifunk/reel/engine/platform"
	"github.com/spaghettifunk/reel/engine/renderer/metadata"
	"github.com/spaghettifunk/reel/engine/shaders"
	"github.com/spaghettifunk/reel/engine/systems"
)

const appName = "reel"

func main() {
	os.Exit(core.ExitCode(run(os.Args[1:])))
}

func run(args []string) error {
	opts, err := config.ParseOptions(args)
	if err != nil {
		if errors.Is(err, config.ErrHelp) {
			fmt.Fprint(os.Stderr, opts.Usage())
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		return core.NewExitError(core.ExitCommandLine, err)
	}
	if opts.Project, err = filepath.Abs(opts.Project); err != nil {
		return core.NewExitError(core.ExitCommandLine, err)
	}

	settings, err := config.LoadSettings(opts.Project)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return core.NewExitError(core.ExitCommandLine, err)
	}
	level := settings.LogLevel
	if opts.Debug {
		level = "debug"
	}
	if err := core.SetLogLevel(level); err != nil {
		return core.NewExitError(core.ExitCommandLine, err)
	}
	core.LogInfo("Starting %s session %s on project '%s'", appName, uuid.NewString(), opts.Project)

	entries, err := scriptEntries(opts)
	if err != nil {
		core.LogError("Cannot load the script: %s", err)
		return core.NewExitError(core.ExitNoScript, err)
	}

	am, err := assets.NewAssetManager()
	if err != nil {
		return core.NewExitError(core.ExitCommandLine, err)
	}
	defer am.Close()
	if err := am.Initialize(opts.Project, settings.Watch); err != nil {
		core.LogError("Cannot read project '%s': %s", opts.Project, err)
		return core.NewExitError(core.ExitCommandLine, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	compiler := shaders.NewCompiler(shaders.NewGlslcToolchain(settings.Glslc))
	player := systems.NewPlayer(&systems.PlayerConfig{
		ProjectDir:       opts.Project,
		MaxPasses:        settings.MaxPasses,
		TransitionWindow: settings.TransitionWindow,
		SampleRate:       settings.SampleRate,
		MaxTextureCount:  256,
		DecodeWorkers:    runtime.NumCPU(),
	}, am, compiler)

	if _, err := player.LoadPrograms(uniquePrograms(entries)); err != nil {
		core.LogError("%s", err)
		return core.NewExitError(core.ExitNoPrograms, err)
	}
	if err := player.Compile(ctx); err != nil {
		core.LogError("Shader compilation failed")
		return core.NewExitError(core.ExitShaderCompile, err)
	}
	if err := player.SetScript(entries, opts.Interval); err != nil {
		core.LogError("%s", err)
		return core.NewExitError(core.ExitNoPrograms, err)
	}

	e := engine.New(&engine.ApplicationConfig{
		Name: appName,
		Window: platform.WindowConfig{
			Title:       appName,
			Width:       uint32(opts.Width),
			Height:      uint32(opts.Height),
			Fullscreen:  opts.Fullscreen,
			Monitor:     opts.Monitor,
			RefreshRate: opts.Rate,
		},
		FramesInFlight: uint32(settings.FramesInFlight),
		Debug:          opts.Debug,
		TargetRate:     opts.Rate,
	}, player)

	if err := e.Initialize(ctx); err != nil {
		core.LogError("Initialization failed: %s", err)
		if shutdownErr := e.Shutdown(); shutdownErr != nil {
			core.LogWarn("%s", shutdownErr)
		}
		return err
	}

	runErr := e.Run(ctx)
	if err := e.Shutdown(); err != nil {
		core.LogError("%s", err)
	}
	if runErr != nil {
		return core.NewExitError(core.ExitGraphicsInit, runErr)
	}
	core.LogInfo("Bye.")
	return nil
}

// scriptEntries is the single --shader program, playing forever, or the script file.
func scriptEntries(opts *config.Options) ([]metadata.ScriptEntry, error) {
	if opts.Shader != "" {
		return []metadata.ScriptEntry{{Program: opts.Shader, Duration: 0}}, nil
	}
	return loaders.LoadScript(opts.Script)
}

func uniquePrograms(entries []metadata.ScriptEntry) []string {
	seen := make(map[string]bool, len(entries))
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !seen[e.Program] {
			seen[e.Program] = true
			names = append(names, e.Program)
		}
	}
	return names
}
