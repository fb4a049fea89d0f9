/*
Citadel renders a small fortified castle with Vulkan and lets you orbit
around it. See assets/citadel.toml for the runtime settings.
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/citadel/engine"
	"github.com/spaghettifunk/citadel/engine/config"
	"github.com/spaghettifunk/citadel/testbed"
)

func main() {
	configPath := flag.String("config", "assets/citadel.toml", "path to the application config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	game := testbed.NewCastleGame(cfg)

	e, err := engine.New(game.Game)
	if err != nil {
		panic(err)
	}

	if err := e.Initialize(); err != nil {
		panic(err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	go func() {
		<-sigCh
		_ = e.Shutdown()
	}()

	if err := e.Run(); err != nil {
		panic(err)
	}

	if err := e.Shutdown(); err != nil {
		panic(err)
	}
}
