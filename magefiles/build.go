//go:build mage

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/spaghettifunk/reel/engine/assets/loaders"
	"github.com/spaghettifunk/reel/engine/config"
	"github.com/spaghettifunk/reel/engine/shaders"
	"github.com/spaghettifunk/reel/engine/systems"
)

const binaryName = "reel"

type Build mg.Namespace

// Builds the player binary into ./bin.
func (Build) Binary() error {
	if err := os.MkdirAll("bin", 0o755); err != nil {
		return err
	}
	_, err := executeCmd("go", withArgs("build", "-o", filepath.Join("bin", binaryName), "."), withStream())
	return err
}

// Compiles every pass of every program under project into its .spv sidecar.
func (Build) Shaders(project string) error {
	settings, err := config.LoadSettings(project)
	if err != nil {
		return err
	}
	descriptions, err := findDescriptions(project)
	if err != nil {
		return err
	}

	compiler := shaders.NewCompiler(shaders.NewGlslcToolchain(settings.Glslc))
	var errs []error
	for _, path := range descriptions {
		name := filepath.Base(filepath.Dir(path))
		decl, err := loaders.LoadDescription(path, project)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		prog, err := systems.BuildProgram(name, decl, settings.MaxPasses)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, pass := range prog.Passes {
			compiler.Invalidate(pass.Decl.Code)
		}
		for _, passErr := range prog.CompileAll(context.Background(), compiler) {
			errs = append(errs, passErr)
		}
		fmt.Printf("%s: %d passes\n", name, len(prog.Passes))
	}
	return errors.Join(errs...)
}

func findDescriptions(project string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(project, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == systems.DescriptionFileName {
			out = append(out, path)
		}
		return nil
	})
	return out, err
}
