//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Compiles the GLSL shaders to SPIR-V with glslc.
func (Build) Shaders() error {
	if _, err := executeCmd("glslc", withArgs("assets/shaders/castle.vert", "-o", "assets/shaders/castle.vert.spv"), withStream()); err != nil {
		return err
	}
	if _, err := executeCmd("glslc", withArgs("assets/shaders/castle.frag", "-o", "assets/shaders/castle.frag.spv"), withStream()); err != nil {
		return err
	}
	return nil
}

// Compiles the citadel binary.
func (Build) Binary() error {
	mg.Deps(Build.Shaders)
	if _, err := executeCmd("go", withArgs("build", "-o", "citadel", "."), withStream()); err != nil {
		return err
	}
	return nil
}
