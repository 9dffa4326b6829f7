package volumetric

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gekko3d/volumetric/volrt/rt/core"
	"github.com/gekko3d/volumetric/volrt/rt/gpu"
	"github.com/gekko3d/volumetric/volrt/rt/noise"
	"github.com/gekko3d/volumetric/volrt/rt/volume"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

var (
	ErrInitialization = errors.New("volume actor initialization failed")
	ErrNotReady       = errors.New("volume actor is not ready")
	ErrLayerIndex     = errors.New("noise layer index out of range")
)

const (
	DefaultVirtualTextureSize         = 128
	DefaultStepSize                   = 0.05
	DefaultMinDensity                 = 0.0
	DefaultMaxDensity                 = 1.0
	DefaultOpacity                    = 0.08
	DefaultAlphaThreshold             = 0.95
	DefaultLightMarchStepSize         = 0.5
	DefaultLightBaseIntensity         = 0.2
	DefaultLightAbsorptionCoefficient = 1.0
	DefaultNoiseSeed                  = 1337
)

var (
	DefaultVolumeSize     = mgl32.Vec3{10, 10, 10}
	DefaultLightDirection = mgl32.Vec3{0.4, 1, 0.3}
)

// DefaultLayers is the stack a fresh actor starts from: a coarse layer with a
// fine detail layer on top.
func DefaultLayers() []noise.Layer {
	return []noise.Layer{
		{
			Offset:  mgl32.Vec3{120.34, 467.66, 53.87},
			Scale:   3,
			Opacity: 0.6,
			Type:    noise.Perlin,
			Blend:   noise.Add,
		},
		{
			Offset:  mgl32.Vec3{125.34, 46.66, 520.87},
			Scale:   22,
			Opacity: 0.2,
			Type:    noise.Perlin,
			Blend:   noise.Add,
		},
	}
}

// Renderer is the GPU side of the actor. gpu.VolumePass implements it.
type Renderer interface {
	UploadMesh(mesh core.CubeMesh) error
	UploadNoise(texels []byte, width, height uint32) error
	UploadDensity(field *volume.Field) error
	SetDepthTarget(view *wgpu.TextureView)
	WriteUniforms(u *gpu.VolumeUniforms)
	Draw(pass *wgpu.RenderPassEncoder) error
	// Release drops what the uploads created. The renderer must accept
	// uploads again afterwards.
	Release()
}

// DimensionLimiter is implemented by renderers that cap the density texture
// size. The actor passes the cap to its generator so that oversized fields are
// rejected before they are allocated.
type DimensionLimiter interface {
	MaxTextureDimension() uint32
}

// Camera is what the actor reads from the viewer's camera each frame.
type Camera interface {
	ViewMatrix() mgl32.Mat4
	ProjectionMatrix() mgl32.Mat4
	WorldPosition() mgl32.Vec3
	NearPlane() float32
	FarPlane() float32
}

// FrameTarget supplies the scene depth the marcher composites against.
type FrameTarget interface {
	DepthView() *wgpu.TextureView
}

type State uint8

const (
	StateUninitialized State = iota
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "uninitialized"
	}
}

// Actor owns the placement, sizing and shading parameters of one volume and
// keeps its density texture in step with the noise layers. Parameter setters
// never regenerate; call Regenerate after editing layers or sizing.
type Actor struct {
	renderer  Renderer
	generator *volume.Generator
	logger    Logger

	state     State
	mesh      core.CubeMesh
	meshStale bool

	transform  core.Transform
	volumeSize mgl32.Vec3

	virtualTextureSize uint32
	textureFitSize     mgl32.Vec3
	textureSize        [3]uint32

	stepSize                   float32
	minDensity                 float32
	maxDensity                 float32
	opacity                    float32
	alphaThreshold             float32
	lightMarchStepSize         float32
	lightBaseIntensity         float32
	lightAbsorptionCoefficient float32
	lightDirection             mgl32.Vec3
	screenSize                 mgl32.Vec2

	layersMu sync.RWMutex
	layers   []noise.Layer

	field      *volume.Field
	generation uint64
}

func NewActor(renderer Renderer, logger Logger) *Actor {
	a := &Actor{
		renderer:  renderer,
		generator: volume.NewGenerator(noise.NewEvaluator(DefaultNoiseSeed), 0),
		logger:    orNop(logger),

		transform:  *core.NewTransform(),
		volumeSize: DefaultVolumeSize,

		virtualTextureSize: DefaultVirtualTextureSize,
		textureFitSize:     mgl32.Vec3{1, 1, 1},

		stepSize:                   DefaultStepSize,
		minDensity:                 DefaultMinDensity,
		maxDensity:                 DefaultMaxDensity,
		opacity:                    DefaultOpacity,
		alphaThreshold:             DefaultAlphaThreshold,
		lightMarchStepSize:         DefaultLightMarchStepSize,
		lightBaseIntensity:         DefaultLightBaseIntensity,
		lightAbsorptionCoefficient: DefaultLightAbsorptionCoefficient,
		lightDirection:             DefaultLightDirection,
	}
	a.limitGenerator()
	return a
}

// SetGenerator swaps the field generator, e.g. for a different seed or
// worker count. Takes effect on the next Regenerate.
func (a *Actor) SetGenerator(g *volume.Generator) {
	if g != nil {
		a.generator = g
		a.limitGenerator()
	}
}

func (a *Actor) limitGenerator() {
	if l, ok := a.renderer.(DimensionLimiter); ok && a.generator.MaxDimension == 0 {
		a.generator.MaxDimension = l.MaxTextureDimension()
	}
}

func (a *Actor) State() State { return a.state }

// Init uploads the proxy mesh and the jitter texture, installs the default
// layers when none were set, and runs the first generation. Any failure
// leaves the actor in StateFailed and is wrapped in ErrInitialization.
func (a *Actor) Init() error {
	if a.state == StateReady {
		return nil
	}
	if a.renderer == nil {
		return a.fail("renderer", errors.New("no renderer"))
	}

	a.mesh = core.NewCubeMesh(a.volumeSize)
	a.meshStale = false
	if err := a.renderer.UploadMesh(a.mesh); err != nil {
		return a.fail("mesh", err)
	}

	texels := gpu.NoiseTexels(gpu.NoiseTextureSeed, gpu.NoiseTextureSize, gpu.NoiseTextureSize)
	if err := a.renderer.UploadNoise(texels, gpu.NoiseTextureSize, gpu.NoiseTextureSize); err != nil {
		return a.fail("noise texture", err)
	}

	a.layersMu.Lock()
	if a.layers == nil {
		a.layers = DefaultLayers()
	}
	a.layersMu.Unlock()

	if err := a.regenerate(); err != nil {
		return a.fail("volume data", err)
	}

	a.state = StateReady
	return nil
}

func (a *Actor) fail(stage string, err error) error {
	a.state = StateFailed
	a.logger.Errorf("Volume renderer init failed at %s: %v", stage, err)
	return fmt.Errorf("%w: %s: %w", ErrInitialization, stage, err)
}

// Regenerate rebuilds the field from a snapshot of the current layers and
// sizing, then replaces the density texture. On a rejected generation the
// previous field and texture stay in place.
func (a *Actor) Regenerate() error {
	if a.state != StateReady {
		return ErrNotReady
	}
	if a.meshStale {
		mesh := core.NewCubeMesh(a.volumeSize)
		if err := a.renderer.UploadMesh(mesh); err != nil {
			return fmt.Errorf("upload mesh: %w", err)
		}
		a.mesh = mesh
		a.meshStale = false
	}
	return a.regenerate()
}

func (a *Actor) regenerate() error {
	layers := a.Layers()

	start := time.Now()
	field, err := a.generator.Generate(a.textureFitSize, a.virtualTextureSize, layers)
	if err != nil {
		a.logger.Warnf("Volume generation rejected: %v", err)
		return err
	}
	d := field.Dimensions
	a.logger.Infof("Volume renderer texture size (%d, %d, %d)", d[0], d[1], d[2])
	a.logger.Debugf("Generated %d voxels from %d layers (seed %d) in %s",
		field.Len(), len(layers), a.generator.Evaluator.Seed(), time.Since(start))

	if err := a.renderer.UploadDensity(field); err != nil {
		a.logger.Errorf("Density upload failed: %v", err)
		return fmt.Errorf("upload density: %w", err)
	}

	a.field = field
	a.textureSize = d
	a.generation++
	return nil
}

// Uniforms assembles the per-draw block for camera.
func (a *Actor) Uniforms(camera Camera) *gpu.VolumeUniforms {
	boundMin, boundMax := a.transform.Bounds(a.volumeSize)
	return &gpu.VolumeUniforms{
		Model:      a.transform.ObjectToWorld(),
		View:       camera.ViewMatrix(),
		Projection: camera.ProjectionMatrix(),

		CameraPos: camera.WorldPosition(),
		ZNear:     camera.NearPlane(),
		ZFar:      camera.FarPlane(),

		ScreenWidth:  uint32(a.screenSize.X()),
		ScreenHeight: uint32(a.screenSize.Y()),
		TexSize:      a.textureSize,

		BoundMin: boundMin,
		BoundMax: boundMax,

		StepSize:       a.stepSize,
		MinDensity:     a.minDensity,
		MaxDensity:     a.maxDensity,
		Opacity:        a.opacity,
		AlphaThreshold: a.alphaThreshold,

		LightDirection:             a.lightDirection,
		LightMarchStepSize:         a.lightMarchStepSize,
		LightBaseIntensity:         a.lightBaseIntensity,
		LightAbsorptionCoefficient: a.lightAbsorptionCoefficient,
	}
}

// Draw records the volume into pass. Outside StateReady nothing is recorded
// and ErrNotReady is returned.
func (a *Actor) Draw(camera Camera, target FrameTarget, pass *wgpu.RenderPassEncoder) error {
	if a.state != StateReady {
		return ErrNotReady
	}
	a.renderer.SetDepthTarget(target.DepthView())
	a.renderer.WriteUniforms(a.Uniforms(camera))
	return a.renderer.Draw(pass)
}

// Release drops the actor's mesh, noise and density resources and returns
// it to StateUninitialized; Init can be called again. The renderer itself
// (pipeline, samplers) belongs to whoever created it.
func (a *Actor) Release() {
	if a.renderer != nil {
		a.renderer.Release()
	}
	a.field = nil
	a.state = StateUninitialized
}

// Bounds is the world box handed to the marcher.
func (a *Actor) Bounds() (mgl32.Vec3, mgl32.Vec3) {
	return a.transform.Bounds(a.volumeSize)
}

func (a *Actor) Field() *volume.Field { return a.field }

// Generation counts successful regenerations.
func (a *Actor) Generation() uint64 { return a.generation }

func (a *Actor) Mesh() core.CubeMesh { return a.mesh }

// Placement

func (a *Actor) Position() mgl32.Vec3     { return a.transform.Position }
func (a *Actor) SetPosition(p mgl32.Vec3) { a.transform.Position = p }
func (a *Actor) Scale() mgl32.Vec3        { return a.transform.Scale }
func (a *Actor) SetScale(s mgl32.Vec3)    { a.transform.Scale = s }

// Rotation is stored for editors but not applied to the model matrix.
func (a *Actor) Rotation() mgl32.Vec3     { return a.transform.Rotation }
func (a *Actor) SetRotation(r mgl32.Vec3) { a.transform.Rotation = r }

func (a *Actor) VolumeSize() mgl32.Vec3 { return a.volumeSize }

// SetVolumeSize moves the bounds immediately; the proxy mesh follows on the
// next Regenerate.
func (a *Actor) SetVolumeSize(s mgl32.Vec3) {
	a.volumeSize = s
	a.meshStale = a.state == StateReady
}

// Sizing

func (a *Actor) VirtualTextureSize() uint32 { return a.virtualTextureSize }

// SetVirtualTextureSize stores v when it lies in the open interval
// (MinVirtualSize, MaxVirtualSize) and reports whether it did.
func (a *Actor) SetVirtualTextureSize(v uint32) bool {
	if !volume.ValidVirtualSize(v) {
		return false
	}
	a.virtualTextureSize = v
	return true
}

func (a *Actor) TextureFitSize() mgl32.Vec3     { return a.textureFitSize }
func (a *Actor) SetTextureFitSize(f mgl32.Vec3) { a.textureFitSize = f }

// TextureSize is the resolution of the last generated field.
func (a *Actor) TextureSize() [3]uint32 { return a.textureSize }

// Shading

func (a *Actor) StepSize() float32                       { return a.stepSize }
func (a *Actor) SetStepSize(v float32)                   { a.stepSize = v }
func (a *Actor) MinDensity() float32                     { return a.minDensity }
func (a *Actor) SetMinDensity(v float32)                 { a.minDensity = v }
func (a *Actor) MaxDensity() float32                     { return a.maxDensity }
func (a *Actor) SetMaxDensity(v float32)                 { a.maxDensity = v }
func (a *Actor) Opacity() float32                        { return a.opacity }
func (a *Actor) SetOpacity(v float32)                    { a.opacity = v }
func (a *Actor) AlphaThreshold() float32                 { return a.alphaThreshold }
func (a *Actor) SetAlphaThreshold(v float32)             { a.alphaThreshold = v }
func (a *Actor) LightMarchStepSize() float32             { return a.lightMarchStepSize }
func (a *Actor) SetLightMarchStepSize(v float32)         { a.lightMarchStepSize = v }
func (a *Actor) LightBaseIntensity() float32             { return a.lightBaseIntensity }
func (a *Actor) SetLightBaseIntensity(v float32)         { a.lightBaseIntensity = v }
func (a *Actor) LightAbsorptionCoefficient() float32     { return a.lightAbsorptionCoefficient }
func (a *Actor) SetLightAbsorptionCoefficient(v float32) { a.lightAbsorptionCoefficient = v }
func (a *Actor) LightDirection() mgl32.Vec3              { return a.lightDirection }
func (a *Actor) SetLightDirection(d mgl32.Vec3)          { a.lightDirection = d }
func (a *Actor) ScreenSize() mgl32.Vec2                  { return a.screenSize }
func (a *Actor) SetScreenSize(s mgl32.Vec2)              { a.screenSize = s }

// Layers

// Layers returns a copy of the layer stack.
func (a *Actor) Layers() []noise.Layer {
	a.layersMu.RLock()
	defer a.layersMu.RUnlock()
	out := make([]noise.Layer, len(a.layers))
	copy(out, a.layers)
	return out
}

func (a *Actor) SetLayers(layers []noise.Layer) {
	cp := make([]noise.Layer, len(layers))
	copy(cp, layers)
	a.layersMu.Lock()
	a.layers = cp
	a.layersMu.Unlock()
}

func (a *Actor) LayerCount() int {
	a.layersMu.RLock()
	defer a.layersMu.RUnlock()
	return len(a.layers)
}

func (a *Actor) Layer(i int) (noise.Layer, error) {
	a.layersMu.RLock()
	defer a.layersMu.RUnlock()
	if i < 0 || i >= len(a.layers) {
		return noise.Layer{}, fmt.Errorf("%w: %d of %d", ErrLayerIndex, i, len(a.layers))
	}
	return a.layers[i], nil
}

func (a *Actor) SetLayer(i int, l noise.Layer) error {
	a.layersMu.Lock()
	defer a.layersMu.Unlock()
	if i < 0 || i >= len(a.layers) {
		return fmt.Errorf("%w: %d of %d", ErrLayerIndex, i, len(a.layers))
	}
	a.layers[i] = l
	return nil
}

// AddLayer appends l and returns its index.
func (a *Actor) AddLayer(l noise.Layer) int {
	a.layersMu.Lock()
	defer a.layersMu.Unlock()
	a.layers = append(a.layers, l)
	return len(a.layers) - 1
}

func (a *Actor) RemoveLayer(i int) error {
	a.layersMu.Lock()
	defer a.layersMu.Unlock()
	if i < 0 || i >= len(a.layers) {
		return fmt.Errorf("%w: %d of %d", ErrLayerIndex, i, len(a.layers))
	}
	a.layers = append(a.layers[:i], a.layers[i+1:]...)
	return nil
}
