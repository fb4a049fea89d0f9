//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Compiles the shaders and runs the castle demo.
func (Run) Demo() error {
	mg.Deps(Build.Shaders)
	fmt.Println("Run citadel...")
	if _, err := executeCmd("go", withArgs("run", "main.go"), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the demo on the headless backend, useful on machines without Vulkan.
func (Run) Headless() error {
	fmt.Println("Run citadel (null backend)...")
	if _, err := executeCmd("go", withArgs("run", "main.go", "-config", "assets/citadel_headless.toml"), withStream()); err != nil {
		return err
	}
	return nil
}
