//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Fetch downloads (or reads from cache) the PDF for an arXiv ID and prints its page count.
func Fetch(id string) error {
	mg.Deps(Build)
	return sh.RunV(binPath(), "fetch", id)
}

// Cache lists the PDFs recorded in the cache manifest.
func Cache() error {
	mg.Deps(Build)
	return sh.RunV(binPath(), "cache")
}
