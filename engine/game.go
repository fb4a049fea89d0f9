package engine

import (
	"github.com/spaghettifunk/citadel/engine/config"
	"github.com/spaghettifunk/citadel/engine/scene"
	"github.com/spaghettifunk/citadel/engine/systems"
)

// Game is the application hook set. The engine owns the loop; the game owns
// the content.
type Game struct {
	ApplicationConfig *config.ApplicationConfig
	State             interface{}
	FnBoot            Boot
	FnUpdate          Update
	FnOnResize        OnResize
}

// Boot registers geometry and populates the scene before the renderer
// uploads anything to the GPU.
type Boot func(sc *scene.Scene, geometry *systems.GeometrySystem) error

type Update func(state interface{}, deltaTime float64) error
type OnResize func(width uint32, height uint32) error
