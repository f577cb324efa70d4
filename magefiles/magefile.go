//go:build mage

// Package main provides build targets for the ccm project using Mage.
//
// Usage:
//
//	mage build          Compile the ccm binary to bin/
//	mage test:all       Run every test in the module
//	mage test:unit      Run package tests, skipping the CLI end-to-end suite
//	mage test:cover     Run all tests with a coverage profile in bin/
//	mage lint           Run golangci-lint
//	mage clean          Remove build artifacts
//	mage install        Install ccm to GOPATH/bin
//	mage stats          Print Go lines of code per top-level directory
package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "ccm"
	binaryDir  = "bin"
	cmdDir     = "./cmd/ccm"
	versionVar = "github.com/mesh-intelligence/ccmanager/internal/cli.Version"
)

// version reports the string stamped into the binary, without a leading
// "v". CCM_VERSION wins, then `git describe`, then "dev".
func version() string {
	if v := os.Getenv("CCM_VERSION"); v != "" {
		return strings.TrimPrefix(v, "v")
	}
	out, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil || strings.TrimSpace(out) == "" {
		return "dev"
	}
	return strings.TrimPrefix(strings.TrimSpace(out), "v")
}

// Build compiles the ccm binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	ldflags := "-X " + versionVar + "=" + version()
	return sh.RunV(binGo, "build", "-v", "-ldflags", ldflags,
		"-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}
