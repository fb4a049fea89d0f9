package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/citadel/engine/core"
)

// RendererConfig selects the rendering backend and its shader sources.
type RendererConfig struct {
	// Backend is "vulkan" or "null".
	Backend            string `toml:"backend"`
	VertexShaderPath   string `toml:"vertex_shader"`
	FragmentShaderPath string `toml:"fragment_shader"`
	// StallTimeoutMS bounds how long a frame waits on the GPU before the
	// engine gives up. Zero waits forever.
	StallTimeoutMS int64 `toml:"stall_timeout_ms"`
}

type ApplicationConfig struct {
	// Path is where the config was loaded from, empty when running on
	// defaults. The watcher needs it for live reloads.
	Path string `toml:"-"`

	Name      string         `toml:"name"`
	StartPosX uint32         `toml:"start_pos_x"`
	StartPosY uint32         `toml:"start_pos_y"`
	Width     uint32         `toml:"width"`
	Height    uint32         `toml:"height"`
	LogLevel  string         `toml:"log_level"`
	Renderer  RendererConfig `toml:"renderer"`
}

func defaults() *ApplicationConfig {
	return &ApplicationConfig{
		Name:      "Citadel",
		StartPosX: 100,
		StartPosY: 100,
		Width:     1280,
		Height:    720,
		LogLevel:  "info",
		Renderer: RendererConfig{
			Backend:            "vulkan",
			VertexShaderPath:   "assets/shaders/castle.vert.spv",
			FragmentShaderPath: "assets/shaders/castle.frag.spv",
			StallTimeoutMS:     0,
		},
	}
}

func (c *ApplicationConfig) StallTimeout() time.Duration {
	return time.Duration(c.Renderer.StallTimeoutMS) * time.Millisecond
}

func (c *ApplicationConfig) validate() error {
	if c.Width == 0 || c.Height == 0 {
		return fmt.Errorf("window size %dx%d is invalid", c.Width, c.Height)
	}
	switch c.Renderer.Backend {
	case "vulkan", "null":
	default:
		return fmt.Errorf("unknown renderer backend %q", c.Renderer.Backend)
	}
	if c.Renderer.StallTimeoutMS < 0 {
		return fmt.Errorf("stall_timeout_ms must not be negative")
	}
	return nil
}

// Load reads the TOML file at path. A missing file is not an error; the
// defaults are returned so the demo runs without any setup.
func Load(path string) (*ApplicationConfig, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			core.LogInfo("config file %s not found, using defaults", path)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.Path = path
	return cfg, nil
}

// Watcher re-reads the config file when it changes on disk and applies the
// settings that are safe to change at runtime, currently the log level.
type Watcher struct {
	path     string
	fsnotify *fsnotify.Watcher
	done     chan struct{}
	once     sync.Once
}

func Watch(path string) (*Watcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatch.Add(path); err != nil {
		fsWatch.Close()
		return nil, fmt.Errorf("failed to watch config %s: %w", path, err)
	}

	w := &Watcher{
		path:     path,
		fsnotify: fsWatch,
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(w.path)
			if err != nil {
				core.LogWarn("config reload failed: %s", err)
				continue
			}
			core.SetLogLevel(core.ParseLogLevel(cfg.LogLevel))
			core.LogInfo("config reloaded, log level is now %q", cfg.LogLevel)
		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogWarn("config watcher: %s", err)
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) Close() error {
	w.once.Do(func() {
		close(w.done)
	})
	return w.fsnotify.Close()
}
