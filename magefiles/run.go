//go:build mage

package main

import (
	"fmt"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Builds the binary and plays the script of project, from inside the project directory.
func (Run) Player(project string) error {
	mg.Deps(Build.Binary)
	binary, err := filepath.Abs(filepath.Join("bin", binaryName))
	if err != nil {
		return err
	}
	fmt.Println("Run player...")
	_, err = executeCmd(binary, withDir(project), withStream())
	return err
}
