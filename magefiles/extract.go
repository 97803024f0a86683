//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Process runs the full affiliation pipeline for one arXiv ID and prints JSON.
func Process(id string) error {
	mg.Deps(Build)
	return sh.RunV(binPath(), "process", id, "--format", "json")
}

// Serve starts the HTTP API on the default address.
func Serve() error {
	mg.Deps(Build)
	return sh.RunV(binPath(), "serve")
}
