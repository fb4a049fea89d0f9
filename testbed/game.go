package testbed

import (
	"github.com/spaghettifunk/citadel/engine"
	"github.com/spaghettifunk/citadel/engine/config"
	"github.com/spaghettifunk/citadel/engine/core"
	"github.com/spaghettifunk/citadel/engine/scene"
	"github.com/spaghettifunk/citadel/engine/systems"
)

// CastleGame is the demo application: a fortified castle assembled from
// procedural shapes, viewed through an orbiting camera. Hold '1' for
// wireframe, drag left to orbit, drag right to zoom.
type CastleGame struct {
	*engine.Game
}

type gameState struct {
	secondsSinceReport float64
}

func NewCastleGame(cfg *config.ApplicationConfig) *CastleGame {
	state := &gameState{}
	return &CastleGame{
		Game: &engine.Game{
			ApplicationConfig: cfg,
			State:             state,
			FnBoot:            boot,
			FnUpdate:          state.update,
		},
	}
}

func boot(sc *scene.Scene, geometry *systems.GeometrySystem) error {
	if err := scene.RegisterCastleGeometry(geometry); err != nil {
		return err
	}
	return scene.BuildCastle(sc, geometry)
}

func (gs *gameState) update(state interface{}, deltaTime float64) error {
	gs.secondsSinceReport += deltaTime
	if gs.secondsSinceReport >= 5 {
		fps, frameTime := core.MetricsFrame()
		core.LogDebug("%.1f fps, %.2f ms per frame", fps, frameTime)
		gs.secondsSinceReport = 0
	}
	return nil
}
