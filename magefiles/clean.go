//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
)

type Clean mg.Namespace

// Removes every compiled .spv sidecar under project.
func (Clean) Cache(project string) error {
	removed := 0
	err := filepath.WalkDir(project, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".spv") {
			return nil
		}
		if err := os.Remove(path); err != nil {
			return err
		}
		removed++
		return nil
	})
	fmt.Printf("%d shader artifacts removed\n", removed)
	return err
}
