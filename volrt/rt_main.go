package main

import (
	"flag"
	"runtime"

	"github.com/gekko3d/volumetric"
	"github.com/gekko3d/volumetric/volrt/rt/app"
	"github.com/gekko3d/volumetric/volrt/rt/config"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "", "YAML config file (default $"+config.EnvPath+")")
	debug := flag.Bool("debug", false, "Enable debug mode (FPS and timings overlay)")
	flag.Parse()

	logger := volumetric.NewDefaultLogger("volrt", *debug)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Errorf("Load config: %v", err)
		return
	}
	if err := cfg.Validate(); err != nil {
		logger.Errorf("Invalid config: %v", err)
		return
	}
	if *debug {
		cfg.Debug = true
	}
	logger.SetDebug(cfg.Debug)

	if err := glfw.Init(); err != nil {
		panic(err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(cfg.Window.Width, cfg.Window.Height, cfg.Window.Title, nil, nil)
	if err != nil {
		panic(err)
	}
	defer window.Destroy()

	application := app.NewApp(window, cfg, logger)
	if err := application.Init(); err != nil {
		logger.Errorf("Init: %v", err)
		application.Release()
		return
	}
	defer application.Release()

	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		application.Resize(width, height)
	})

	window.SetCursorPosCallback(func(w *glfw.Window, xpos, ypos float64) {
		application.HandleCursor(xpos, ypos)
	})

	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		application.HandleKey(key, action, mods)
	})

	for !window.ShouldClose() {
		glfw.PollEvents()
		application.Update()
		application.Render()
	}
}
