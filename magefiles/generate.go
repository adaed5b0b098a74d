//go:build mage

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Generate builds the CLI and writes wiki_base.txt for the built-in company
// outline, using placeholder text for sections that fail.
func Generate() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "generate", "--on-failure", "placeholder")
}

// Replay rebuilds wiki_base.txt from answers saved in responses/, without
// calling a model. Fetch them first with "article-engine fetch --save responses".
func Replay() error {
	mg.Deps(Build, Init)
	return sh.RunV(filepath.Join(binDir, binName), "generate",
		"--backend", "dir", "--responses-dir", "responses", "--on-failure", "abort")
}
