package app

import (
	"fmt"
	"strings"

	"github.com/gekko3d/volumetric"
	"github.com/gekko3d/volumetric/volrt/rt/config"
	"github.com/gekko3d/volumetric/volrt/rt/core"
	"github.com/gekko3d/volumetric/volrt/rt/editor"
	"github.com/gekko3d/volumetric/volrt/rt/gpu"
	"github.com/gekko3d/volumetric/volrt/rt/volume"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

const depthFormat = wgpu.TextureFormatDepth32Float

var (
	clearColor = wgpu.Color{R: 0.08, G: 0.09, B: 0.12, A: 1}
	panelColor = [4]float32{1, 1, 1, 1}
	debugColor = [4]float32{1, 1, 0, 1}
)

// App is the volume viewer: one actor in an empty scene, a fly camera and
// a text property panel.
type App struct {
	Window   *glfw.Window
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	Surface  *wgpu.Surface
	Config   *wgpu.SurfaceConfiguration

	Settings *config.Config
	Logger   volumetric.Logger

	DepthTexture *wgpu.Texture
	DepthTexView *wgpu.TextureView

	Volume     *volumetric.Actor
	VolumePass *gpu.VolumePass
	BoundsPass *gpu.BoundsPass
	Panel      *editor.Panel
	Camera     *core.CameraState
	Profiler   *Profiler

	TextRenderer     *core.TextRenderer
	TextPipeline     *wgpu.RenderPipeline
	TextAtlas        *wgpu.Texture
	TextAtlasView    *wgpu.TextureView
	TextSampler      *wgpu.Sampler
	TextBindGroup    *wgpu.BindGroup
	TextVertexBuffer *wgpu.Buffer
	TextItems        []core.TextItem
	TextVertexCount  uint32

	LastTime       float64
	LastRenderTime float64
	MouseCaptured  bool
	DebugMode      bool
	MouseX, MouseY float64
	lookX, lookY   float32

	FrameCount int
	FPS        float64
	FPSTime    float64
}

func NewApp(window *glfw.Window, settings *config.Config, logger volumetric.Logger) *App {
	if settings == nil {
		settings = config.Default()
	}
	if logger == nil {
		logger = volumetric.NewNopLogger()
	}
	return &App{
		Window:    window,
		Settings:  settings,
		Logger:    logger,
		Camera:    core.NewCameraState(),
		Panel:     editor.NewPanel(),
		Profiler:  NewProfiler(),
		DebugMode: settings.Debug,
	}
}

func (a *App) Init() error {
	a.Instance = wgpu.CreateInstance(nil)

	surface := a.Instance.CreateSurface(GetSurfaceDescriptor(a.Window))
	a.Surface = surface

	adapter, err := a.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return err
	}
	a.Adapter = adapter

	a.Device, err = adapter.RequestDevice(nil)
	if err != nil {
		return err
	}
	a.Queue = a.Device.GetQueue()

	width, height := a.Window.GetFramebufferSize()
	caps := surface.GetCapabilities(adapter)
	format := caps.Formats[0]

	a.Config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      format,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	surface.Configure(adapter, a.Device, a.Config)

	if err := a.setupDepth(width, height); err != nil {
		return fmt.Errorf("depth target: %w", err)
	}

	a.VolumePass, err = gpu.NewVolumePass(a.Device, format, a.Settings.Volume.Precision)
	if err != nil {
		return fmt.Errorf("%w: volume pass: %w", volumetric.ErrInitialization, err)
	}
	a.BoundsPass, err = gpu.NewBoundsPass(a.Device, format)
	if err != nil {
		return fmt.Errorf("bounds pass: %w", err)
	}

	a.Volume = volumetric.NewActor(a.VolumePass, a.Logger)
	a.Settings.Apply(a.Volume)
	a.Volume.SetScreenSize(mgl32.Vec2{float32(width), float32(height)})
	a.Camera.Aspect = aspect(width, height)

	if err := a.Profiler.Measure("regenerate", a.Volume.Init); err != nil {
		return err
	}
	a.updateCounts()

	a.TextRenderer = core.NewBasicTextRenderer()
	if err := a.setupTextResources(); err != nil {
		a.Logger.Warnf("Text overlay disabled: %v", err)
		a.TextPipeline = nil
	}

	a.LastTime = glfw.GetTime()
	return nil
}

func GetSurfaceDescriptor(w *glfw.Window) *wgpu.SurfaceDescriptor {
	return wgpuglfw.GetSurfaceDescriptor(w)
}

func aspect(w, h int) float32 {
	if w <= 0 || h <= 0 {
		return 1
	}
	return float32(w) / float32(h)
}

// setupDepth (re)creates the scene depth target. It is written by the scene
// pass and sampled by the ray marcher.
func (a *App) setupDepth(w, h int) error {
	if w == 0 || h == 0 {
		return nil
	}
	if a.DepthTexView != nil {
		a.DepthTexView.Release()
		a.DepthTexView = nil
	}
	if a.DepthTexture != nil {
		a.DepthTexture.Release()
		a.DepthTexture = nil
	}

	var err error
	a.DepthTexture, err = a.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Scene Depth",
		Size:          wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        depthFormat,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		return err
	}
	a.DepthTexView, err = a.DepthTexture.CreateView(nil)
	return err
}

// DepthView makes App the actor's frame target.
func (a *App) DepthView() *wgpu.TextureView { return a.DepthTexView }

func (a *App) Resize(w, h int) {
	if w <= 0 || h <= 0 {
		return
	}
	a.Config.Width = uint32(w)
	a.Config.Height = uint32(h)
	a.Surface.Configure(a.Adapter, a.Device, a.Config)
	if err := a.setupDepth(w, h); err != nil {
		a.Logger.Errorf("Resize depth target: %v", err)
	}
	a.Volume.SetScreenSize(mgl32.Vec2{float32(w), float32(h)})
	a.Camera.Aspect = aspect(w, h)
}

// HandleKey handles window level keys and forwards the rest to the editor.
func (a *App) HandleKey(key glfw.Key, action glfw.Action, mods glfw.ModifierKey) {
	if action != glfw.Press && action != glfw.Repeat {
		return
	}
	switch key {
	case glfw.KeyTab:
		if action != glfw.Press {
			return
		}
		a.MouseCaptured = !a.MouseCaptured
		if a.MouseCaptured {
			a.Window.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
		} else {
			a.Window.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
		}
		return
	case glfw.KeyEscape:
		a.Window.SetShouldClose(true)
		return
	}

	act := KeyAction(key, mods)
	if act == ActionNone {
		return
	}
	var err error
	if act == ActionRegenerate {
		err = a.Profiler.Measure("regenerate", func() error {
			return Dispatch(act, a.Volume, a.Panel)
		})
		a.updateCounts()
	} else {
		err = Dispatch(act, a.Volume, a.Panel)
	}
	if err != nil {
		a.Logger.Errorf("Editor action %d: %v", act, err)
	}
}

// HandleCursor accumulates look deltas while the mouse is captured.
func (a *App) HandleCursor(x, y float64) {
	if a.MouseCaptured {
		a.lookX += float32(x - a.MouseX)
		a.lookY += float32(y - a.MouseY)
	}
	a.MouseX, a.MouseY = x, y
}

func (a *App) updateCounts() {
	ts := a.Volume.TextureSize()
	a.Profiler.SetCount("voxels", volume.VoxelCount(ts))
	a.Profiler.SetCount("layers", a.Volume.LayerCount())
	a.Profiler.SetCount("generation", int(a.Volume.Generation()))
}

func (a *App) Update() {
	now := glfw.GetTime()
	dt := float32(now - a.LastTime)
	a.LastTime = now

	in := pollFlyInput(a.Window)
	in.LookX, in.LookY = a.lookX, a.lookY
	a.lookX, a.lookY = 0, 0
	in.Apply(a.Camera, dt)

	a.ClearText()
	y := float32(10)
	if a.Panel.Visible {
		text := strings.Join(a.Panel.Lines(a.Volume), "\n")
		a.DrawText(text, 10, y, 1.0, panelColor)
		y += a.TextRenderer.GetLineHeight(1.0) * float32(strings.Count(text, "\n")+2)
	}
	if a.DebugMode {
		a.DrawText(fmt.Sprintf("FPS: %.1f\n%s", a.FPS, a.Profiler.GetStatsString()), 10, y, 1.0, debugColor)
	}
	a.uploadText()

	if a.Panel.ShowBoundingBox {
		viewProj := a.Camera.ProjectionMatrix().Mul4(a.Camera.ViewMatrix())
		bmin, bmax := a.Volume.Bounds()
		a.BoundsPass.Update(viewProj, bmin, bmax, gpu.BoundsColor)
	}
}

func (a *App) Render() {
	a.Profiler.BeginScope("frame")
	defer a.Profiler.EndScope("frame")

	nextTexture, err := a.Surface.GetCurrentTexture()
	if err != nil {
		a.Logger.Errorf("GetCurrentTexture failed: %v", err)
		return
	}
	defer nextTexture.Release()

	view, err := nextTexture.CreateView(nil)
	if err != nil {
		a.Logger.Errorf("CreateView failed: %v", err)
		return
	}
	defer view.Release()

	encoder, err := a.Device.CreateCommandEncoder(nil)
	if err != nil {
		a.Logger.Errorf("CreateCommandEncoder failed: %v", err)
		return
	}

	// Scene pass: the depth written here is what the volume composites against.
	sPass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: clearColor,
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            a.DepthTexView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})
	if err := sPass.End(); err != nil {
		a.Logger.Errorf("Scene pass End failed: %v", err)
	}

	oPass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:    view,
			LoadOp:  wgpu.LoadOpLoad,
			StoreOp: wgpu.StoreOpStore,
		}},
	})
	if err := a.Volume.Draw(a.Camera, a, oPass); err != nil {
		a.Logger.Debugf("Volume draw skipped: %v", err)
	}
	if a.Panel.ShowBoundingBox {
		a.BoundsPass.Draw(oPass)
	}
	a.drawText(oPass)
	if err := oPass.End(); err != nil {
		a.Logger.Errorf("Overlay pass End failed: %v", err)
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		a.Logger.Errorf("Encoder Finish failed: %v", err)
		return
	}
	a.Queue.Submit(cmd)
	a.Surface.Present()

	now := glfw.GetTime()
	if a.LastRenderTime > 0 {
		a.FrameCount++
		a.FPSTime += now - a.LastRenderTime
		if a.FPSTime >= 1.0 {
			a.FPS = float64(a.FrameCount) / a.FPSTime
			a.FrameCount = 0
			a.FPSTime = 0
		}
	}
	a.LastRenderTime = now
}

func (a *App) Release() {
	if a.Volume != nil {
		a.Volume.Release()
	}
	if a.VolumePass != nil {
		a.VolumePass.Destroy()
	}
	if a.BoundsPass != nil {
		a.BoundsPass.Release()
	}
	if a.TextVertexBuffer != nil {
		a.TextVertexBuffer.Release()
	}
	if a.TextBindGroup != nil {
		a.TextBindGroup.Release()
	}
	if a.TextPipeline != nil {
		a.TextPipeline.Release()
	}
	if a.TextSampler != nil {
		a.TextSampler.Release()
	}
	if a.TextAtlasView != nil {
		a.TextAtlasView.Release()
	}
	if a.TextAtlas != nil {
		a.TextAtlas.Release()
	}
	if a.DepthTexView != nil {
		a.DepthTexView.Release()
	}
	if a.DepthTexture != nil {
		a.DepthTexture.Release()
	}
	if a.Device != nil {
		a.Device.Release()
	}
	if a.Adapter != nil {
		a.Adapter.Release()
	}
	if a.Surface != nil {
		a.Surface.Release()
	}
	if a.Instance != nil {
		a.Instance.Release()
	}
}
