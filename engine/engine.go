package engine

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spaghettifunk/citadel/engine/config"
	"github.com/spaghettifunk/citadel/engine/core"
	"github.com/spaghettifunk/citadel/engine/platform"
	"github.com/spaghettifunk/citadel/engine/renderer"
	"github.com/spaghettifunk/citadel/engine/renderer/components"
	"github.com/spaghettifunk/citadel/engine/renderer/device"
	"github.com/spaghettifunk/citadel/engine/renderer/null"
	"github.com/spaghettifunk/citadel/engine/renderer/vulkan"
	"github.com/spaghettifunk/citadel/engine/scene"
	"github.com/spaghettifunk/citadel/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently booting up
	EngineStageBooting
	// Engine is up and running the main loop
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// targetFrameSeconds caps the loop at 60 frames per second; time left over
// after a frame is handed back to the OS.
const targetFrameSeconds = 1.0 / 60.0

type Engine struct {
	currentStage Stage
	gameInstance *Game

	// Both flags are written from the event-processing goroutine.
	isRunning   atomic.Bool
	isSuspended atomic.Bool

	platform *platform.Platform
	backend  device.Backend
	renderer *renderer.System
	geometry *systems.GeometrySystem
	scene    *scene.Scene
	camera   *components.OrbitCamera

	configWatcher *config.Watcher

	width  uint32
	height uint32

	clock    *core.Clock
	lastTime float64
}

func New(g *Game) (*Engine, error) {
	p, err := platform.New()
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	cfg := g.ApplicationConfig
	core.SetLogLevel(core.ParseLogLevel(cfg.LogLevel))

	var backend device.Backend
	switch cfg.Renderer.Backend {
	case "vulkan":
		backend = vulkan.New(p)
	case "null":
		backend = null.New()
	default:
		return nil, fmt.Errorf("unknown renderer backend %q", cfg.Renderer.Backend)
	}

	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		clock:        core.NewClock(),
		platform:     p,
		backend:      backend,
		geometry:     systems.NewGeometrySystem(),
		scene:        scene.New(),
		width:        cfg.Width,
		height:       cfg.Height,
		lastTime:     0,
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageBooting

	if err := core.InputInitialize(); err != nil {
		return err
	}
	if !core.EventSystemInitialize() {
		return fmt.Errorf("failed to initialize the event system")
	}
	if err := core.MetricsInitialize(); err != nil {
		return err
	}

	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e.onEvent)
	core.EventRegister(core.EVENT_CODE_KEY_PRESSED, e.onKey)
	core.EventRegister(core.EVENT_CODE_RESIZED, e.onResized)

	cfg := e.gameInstance.ApplicationConfig
	if err := e.platform.Startup(cfg.Name, cfg.StartPosX, cfg.StartPosY, cfg.Width, cfg.Height); err != nil {
		return err
	}

	// The game fills the scene first so the renderer knows how many objects
	// each frame slot has to carry.
	if err := e.gameInstance.FnBoot(e.scene, e.geometry); err != nil {
		return err
	}

	rs, err := renderer.NewSystem(e.backend, e.geometry, e.scene.ItemCount(), &renderer.Config{
		ApplicationName:    cfg.Name,
		Width:              cfg.Width,
		Height:             cfg.Height,
		VertexShaderPath:   cfg.Renderer.VertexShaderPath,
		FragmentShaderPath: cfg.Renderer.FragmentShaderPath,
		StallTimeout:       cfg.StallTimeout(),
	})
	if err != nil {
		return err
	}
	e.renderer = rs

	e.camera = components.NewOrbitCamera(float32(e.width) / float32(e.height))

	if cfg.Path != "" {
		w, err := config.Watch(cfg.Path)
		if err != nil {
			core.LogWarn("config watcher disabled: %s", err)
		} else {
			e.configWatcher = w
		}
	}

	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			return err
		}
	}

	core.LogInfo("engine initialized with %d scene objects", e.scene.ItemCount())
	return nil
}

func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	go core.ProcessEvents()

	for e.isRunning.Load() {
		e.platform.PumpMessages()
		if e.platform.ShouldClose() {
			e.isRunning.Store(false)
			break
		}

		if e.isSuspended.Load() {
			continue
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime

		e.updateCamera()

		if e.gameInstance.FnUpdate != nil {
			if err := e.gameInstance.FnUpdate(e.gameInstance.State, delta); err != nil {
				core.LogError("game update failed, shutting down: %s", err)
				e.isRunning.Store(false)
				break
			}
		}

		if err := e.drawFrame(currentTime, delta); err != nil {
			if errors.Is(err, core.ErrRingStall) {
				core.LogError("GPU stopped responding: %s", err)
			} else {
				core.LogError("frame failed, shutting down: %s", err)
			}
			e.isRunning.Store(false)
			break
		}

		e.clock.Update()
		frameElapsed := e.clock.Elapsed() - currentTime
		core.MetricsUpdate(frameElapsed)

		// If the frame finished early, give the remainder back to the OS.
		if pause := frameSleep(targetFrameSeconds, frameElapsed); pause > 0 {
			time.Sleep(pause)
		}

		// Input state is copied last so drag deltas cover the whole frame.
		core.InputUpdate(delta)
		e.lastTime = currentTime
	}

	e.currentStage = EngineStageShuttingDown
	return nil
}

// frameSleep returns how long to pause after a frame that beat the target.
// A millisecond is held back so the loop wakes before the next deadline.
func frameSleep(targetSeconds, elapsedSeconds float64) time.Duration {
	remaining := time.Duration((targetSeconds - elapsedSeconds) * float64(time.Second))
	if remaining <= time.Millisecond {
		return 0
	}
	return remaining - time.Millisecond
}

func (e *Engine) updateCamera() {
	if dx, dy := core.InputDragDelta(core.BUTTON_LEFT); dx != 0 || dy != 0 {
		e.camera.Orbit(float32(dx), float32(dy))
	}
	if dx, dy := core.InputDragDelta(core.BUTTON_RIGHT); dx != 0 || dy != 0 {
		e.camera.Zoom(float32(dx), float32(dy))
	}
}

func (e *Engine) drawFrame(totalTime, delta float64) error {
	slot, err := e.renderer.BeginFrame()
	if err != nil {
		return err
	}

	if err := e.scene.UpdateObjectBuffer(slot); err != nil {
		return err
	}
	if err := e.scene.UpdatePassBuffer(slot, e.camera, e.width, e.height, totalTime, delta); err != nil {
		return err
	}

	wireframe := core.InputIsKeyDown(core.KEY_1)
	return e.renderer.DrawFrame(slot, e.scene.Items(), wireframe)
}

func (e *Engine) Shutdown() error {
	if e.configWatcher != nil {
		e.configWatcher.Close()
	}
	if e.renderer != nil {
		if err := e.renderer.Shutdown(); err != nil {
			core.LogError(err.Error())
		}
	}
	if err := core.EventSystemShutdown(); err != nil {
		return err
	}
	if err := core.InputShutdown(); err != nil {
		return err
	}
	return e.platform.Shutdown()
}

// Camera exposes the orbit camera, mostly for the game's own update hook.
func (e *Engine) Camera() *components.OrbitCamera {
	return e.camera
}

func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) onEvent(context core.EventContext) {
	switch context.Type {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning.Store(false)
	}
}

func (e *Engine) onKey(context core.EventContext) {
	ke, ok := context.Data.(*core.KeyEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return
	}
	if ke.KeyCode == core.KEY_ESCAPE {
		core.EventFire(core.EventContext{
			Type: core.EVENT_CODE_APPLICATION_QUIT,
		})
	}
}

func (e *Engine) onResized(context core.EventContext) {
	se, ok := context.Data.(*core.SystemEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return
	}

	width := se.WindowWidth
	height := se.WindowHeight
	if width == e.width && height == e.height {
		return
	}
	e.width = width
	e.height = height

	core.LogDebug("window resize: %d, %d", width, height)

	// Minimized windows report a zero extent.
	if width == 0 || height == 0 {
		core.LogInfo("window minimized, suspending application.")
		e.isSuspended.Store(true)
		return
	}
	if e.isSuspended.Load() {
		core.LogInfo("window restored, resuming application.")
		e.isSuspended.Store(false)
	}

	e.camera.SetAspect(float32(width) / float32(height))
	if e.gameInstance.FnOnResize != nil {
		e.gameInstance.FnOnResize(width, height)
	}
	if err := e.renderer.Resized(uint16(width), uint16(height)); err != nil {
		core.LogError(err.Error())
	}
}
