package volumetric

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gekko3d/volumetric/volrt/rt/core"
	"github.com/gekko3d/volumetric/volrt/rt/gpu"
	"github.com/gekko3d/volumetric/volrt/rt/noise"
	"github.com/gekko3d/volumetric/volrt/rt/volume"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTexture struct {
	owner *fakeRenderer
}

func (t *fakeTexture) Release() { t.owner.liveDensity-- }

type fakeRenderer struct {
	density gpu.Slot[*fakeTexture]

	liveDensity    int
	maxLiveDensity int
	densityUploads int
	meshUploads    int
	noiseUploads   int
	noiseSize      [2]uint32
	draws          int
	releases       int
	depthSet       bool
	lastMesh       core.CubeMesh
	lastUniforms   *gpu.VolumeUniforms

	// Mirrors VolumePass: uploads are dropped by Release, the pipeline
	// only by destroy.
	meshLive  bool
	noiseLive bool
	destroyed bool

	failMesh    error
	failDensity error
	maxDim      uint32
}

func (f *fakeRenderer) MaxTextureDimension() uint32 { return f.maxDim }

func (f *fakeRenderer) UploadMesh(mesh core.CubeMesh) error {
	if f.failMesh != nil {
		return f.failMesh
	}
	f.meshUploads++
	f.meshLive = true
	f.lastMesh = mesh
	return nil
}

func (f *fakeRenderer) UploadNoise(texels []byte, width, height uint32) error {
	f.noiseUploads++
	f.noiseLive = true
	f.noiseSize = [2]uint32{width, height}
	return nil
}

func (f *fakeRenderer) UploadDensity(field *volume.Field) error {
	return f.density.Replace(func() (*fakeTexture, error) {
		if f.failDensity != nil {
			return nil, f.failDensity
		}
		f.densityUploads++
		f.liveDensity++
		if f.liveDensity > f.maxLiveDensity {
			f.maxLiveDensity = f.liveDensity
		}
		return &fakeTexture{owner: f}, nil
	})
}

func (f *fakeRenderer) SetDepthTarget(view *wgpu.TextureView) { f.depthSet = true }

func (f *fakeRenderer) WriteUniforms(u *gpu.VolumeUniforms) {
	if f.destroyed {
		return
	}
	f.lastUniforms = u
}

func (f *fakeRenderer) Draw(pass *wgpu.RenderPassEncoder) error {
	if f.destroyed {
		return gpu.ErrNoPipeline
	}
	if !f.meshLive || !f.noiseLive || !f.density.Live() {
		return gpu.ErrResourcesMissing
	}
	f.draws++
	return nil
}

func (f *fakeRenderer) Release() {
	f.releases++
	f.meshLive = false
	f.noiseLive = false
	f.density.Release()
}

func (f *fakeRenderer) destroy() {
	f.Release()
	f.destroyed = true
}

type recordingLogger struct {
	Logger
	debug []string
}

func (l *recordingLogger) Debugf(format string, args ...any) {
	l.debug = append(l.debug, fmt.Sprintf(format, args...))
}

type fakeTarget struct{}

func (fakeTarget) DepthView() *wgpu.TextureView { return nil }

// newSmallActor keeps generations cheap.
func newSmallActor(t *testing.T) (*Actor, *fakeRenderer) {
	t.Helper()
	r := &fakeRenderer{}
	a := NewActor(r, nil)
	require.True(t, a.SetVirtualTextureSize(16))
	return a, r
}

func TestVirtualTextureSizeBoundaries(t *testing.T) {
	a := NewActor(&fakeRenderer{}, nil)
	before := a.VirtualTextureSize()

	for _, v := range []uint32{8, 0, 2000, 5000} {
		assert.False(t, a.SetVirtualTextureSize(v), "value %d", v)
		assert.Equal(t, before, a.VirtualTextureSize(), "value %d", v)
	}

	for _, v := range []uint32{9, 1999} {
		assert.True(t, a.SetVirtualTextureSize(v), "value %d", v)
		assert.Equal(t, v, a.VirtualTextureSize())
	}
}

func TestInitUploadsEverything(t *testing.T) {
	a, r := newSmallActor(t)
	require.NoError(t, a.Init())

	assert.Equal(t, StateReady, a.State())
	assert.Equal(t, 1, r.meshUploads)
	assert.Equal(t, 1, r.noiseUploads)
	assert.Equal(t, [2]uint32{gpu.NoiseTextureSize, gpu.NoiseTextureSize}, r.noiseSize)
	assert.Equal(t, 1, r.densityUploads)
	assert.Equal(t, [3]uint32{16, 16, 16}, a.TextureSize())
	assert.Equal(t, DefaultLayers(), a.Layers())
	assert.Equal(t, uint64(1), a.Generation())

	// the proxy spans the volume box
	assert.Equal(t, core.NewCubeMesh(DefaultVolumeSize), r.lastMesh)

	// a second Init is a no-op
	require.NoError(t, a.Init())
	assert.Equal(t, 1, r.meshUploads)
}

func TestInitKeepsPresetLayers(t *testing.T) {
	a, _ := newSmallActor(t)
	preset := []noise.Layer{noise.DefaultLayer()}
	a.SetLayers(preset)
	require.NoError(t, a.Init())
	assert.Equal(t, preset, a.Layers())
}

func TestInitFailure(t *testing.T) {
	boom := errors.New("device lost")
	a, r := newSmallActor(t)
	r.failMesh = boom

	err := a.Init()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInitialization)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StateFailed, a.State())

	assert.ErrorIs(t, a.Draw(core.NewCameraState(), fakeTarget{}, nil), ErrNotReady)
	assert.ErrorIs(t, a.Regenerate(), ErrNotReady)
	assert.Equal(t, 0, r.draws)
}

func TestDrawBeforeInit(t *testing.T) {
	a, r := newSmallActor(t)
	err := a.Draw(core.NewCameraState(), fakeTarget{}, nil)
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Equal(t, 0, r.draws)
	assert.Nil(t, r.lastUniforms)
}

func TestDraw(t *testing.T) {
	a, r := newSmallActor(t)
	require.NoError(t, a.Init())
	a.SetScreenSize(mgl32.Vec2{800, 600})

	require.NoError(t, a.Draw(core.NewCameraState(), fakeTarget{}, nil))
	assert.Equal(t, 1, r.draws)
	assert.True(t, r.depthSet)
	require.NotNil(t, r.lastUniforms)
	assert.Equal(t, uint32(800), r.lastUniforms.ScreenWidth)
	assert.Equal(t, uint32(600), r.lastUniforms.ScreenHeight)
	assert.Equal(t, [3]uint32{16, 16, 16}, r.lastUniforms.TexSize)
}

func TestRegenerationKeepsOneTexture(t *testing.T) {
	a, r := newSmallActor(t)
	require.NoError(t, a.Init())

	for i := 0; i < 5; i++ {
		require.NoError(t, a.Regenerate())
	}

	assert.Equal(t, 6, r.densityUploads)
	assert.Equal(t, 1, r.maxLiveDensity)
	assert.Equal(t, 1, r.liveDensity)
	assert.Equal(t, uint64(6), a.Generation())

	a.Release()
	assert.Equal(t, 0, r.liveDensity)
	assert.Equal(t, StateUninitialized, a.State())
	assert.Nil(t, a.Field())
}

func TestReleaseThenInitDrawsAgain(t *testing.T) {
	a, r := newSmallActor(t)
	cam := core.NewCameraState()
	require.NoError(t, a.Init())
	require.NoError(t, a.Draw(cam, fakeTarget{}, nil))

	a.Release()
	assert.ErrorIs(t, a.Draw(cam, fakeTarget{}, nil), ErrNotReady)
	assert.False(t, r.meshLive)

	require.NoError(t, a.Init())
	require.NoError(t, a.Draw(cam, fakeTarget{}, nil))
	assert.Equal(t, 2, r.draws)
	assert.Equal(t, 2, r.meshUploads)
	assert.Equal(t, 1, r.liveDensity)
}

func TestDrawAfterRendererDestroyed(t *testing.T) {
	a, r := newSmallActor(t)
	require.NoError(t, a.Init())
	a.Release()
	r.destroy()

	require.NoError(t, a.Init())
	assert.ErrorIs(t, a.Draw(core.NewCameraState(), fakeTarget{}, nil), gpu.ErrNoPipeline)
}

func TestOversizedFieldRejectedBeforeUpload(t *testing.T) {
	r := &fakeRenderer{maxDim: 20}
	a := NewActor(r, nil)
	require.True(t, a.SetVirtualTextureSize(16))
	require.NoError(t, a.Init())
	field := a.Field()

	a.SetTextureFitSize(mgl32.Vec3{2, 1, 1})
	assert.ErrorIs(t, a.Regenerate(), volume.ErrTextureTooLarge)
	assert.Equal(t, 1, r.densityUploads)
	assert.Same(t, field, a.Field())

	g := volume.NewGenerator(noise.NewEvaluator(1), 1)
	a.SetGenerator(g)
	assert.Equal(t, uint32(20), g.MaxDimension)
}

func TestGenerationLogsSeed(t *testing.T) {
	log := &recordingLogger{Logger: NewNopLogger()}
	a := NewActor(&fakeRenderer{}, log)
	require.True(t, a.SetVirtualTextureSize(16))
	a.SetGenerator(volume.NewGenerator(noise.NewEvaluator(4242), 1))
	require.NoError(t, a.Init())

	require.NotEmpty(t, log.debug)
	assert.Contains(t, log.debug[len(log.debug)-1], "seed 4242")
}

func TestRegenerationIsExplicit(t *testing.T) {
	a, _ := newSmallActor(t)
	require.NoError(t, a.Init())
	field := a.Field()

	require.True(t, a.SetVirtualTextureSize(20))
	a.SetLayers(nil)
	assert.Equal(t, [3]uint32{16, 16, 16}, a.TextureSize())
	assert.Same(t, field, a.Field())

	require.NoError(t, a.Regenerate())
	assert.Equal(t, [3]uint32{20, 20, 20}, a.TextureSize())
	assert.NotSame(t, field, a.Field())
}

func TestDeleteLastLayerThenRegenerate(t *testing.T) {
	a, _ := newSmallActor(t)
	require.NoError(t, a.Init())

	for a.LayerCount() > 0 {
		require.NoError(t, a.RemoveLayer(a.LayerCount()-1))
	}
	require.NoError(t, a.Regenerate())

	field := a.Field()
	require.NotNil(t, field)
	for i, v := range field.Voxels {
		if v.X() != 0 || v.Y() != 1 {
			t.Fatalf("voxel %d = %v, want (0, 1)", i, v)
		}
	}
}

func TestRejectedGenerationKeepsField(t *testing.T) {
	a, r := newSmallActor(t)
	require.NoError(t, a.Init())
	field := a.Field()

	bad := noise.DefaultLayer()
	bad.Scale = 0
	a.AddLayer(bad)

	err := a.Regenerate()
	assert.ErrorIs(t, err, noise.ErrInvalidScale)
	assert.Same(t, field, a.Field())
	assert.Equal(t, uint64(1), a.Generation())
	assert.Equal(t, 1, r.liveDensity)

	a.SetTextureFitSize(mgl32.Vec3{1, 0, 1})
	require.NoError(t, a.RemoveLayer(a.LayerCount()-1))
	assert.ErrorIs(t, a.Regenerate(), volume.ErrDegenerateFitSize)
	assert.Same(t, field, a.Field())
}

func TestEndToEndCube(t *testing.T) {
	a := NewActor(&fakeRenderer{}, nil)
	a.SetLayers([]noise.Layer{{
		Offset:  mgl32.Vec3{0, 0, 0},
		Scale:   1,
		Opacity: 1,
		Type:    noise.Perlin,
		Blend:   noise.Add,
	}})
	require.True(t, a.SetVirtualTextureSize(64))
	a.SetTextureFitSize(mgl32.Vec3{1, 1, 1})
	require.NoError(t, a.Init())

	field := a.Field()
	assert.Equal(t, [3]uint32{64, 64, 64}, field.Dimensions)
	require.Len(t, field.Voxels, 64*64*64)
	for i, v := range field.Voxels {
		if v.Y() != 1 {
			t.Fatalf("mask at %d = %v", i, v.Y())
		}
	}
}

func TestEndToEndStretched(t *testing.T) {
	a := NewActor(&fakeRenderer{}, nil)
	require.True(t, a.SetVirtualTextureSize(64))
	a.SetTextureFitSize(mgl32.Vec3{2, 1, 1})
	require.NoError(t, a.Init())

	d := a.TextureSize()
	assert.Greater(t, d[0], d[1])
	assert.Equal(t, d[1], d[2])
}

func TestSettersStoreValues(t *testing.T) {
	a := NewActor(&fakeRenderer{}, nil)

	a.SetOpacity(0.7)
	a.SetStepSize(0.02)
	a.SetMinDensity(0.1)
	a.SetMaxDensity(0.8)
	a.SetAlphaThreshold(0.5)
	a.SetLightMarchStepSize(0.3)
	a.SetLightBaseIntensity(0.4)
	a.SetLightAbsorptionCoefficient(2)
	a.SetLightDirection(mgl32.Vec3{0, -1, 0})
	a.SetPosition(mgl32.Vec3{1, 2, 3})
	a.SetScale(mgl32.Vec3{2, 2, 2})
	a.SetRotation(mgl32.Vec3{0, 1, 0})
	a.SetVolumeSize(mgl32.Vec3{4, 5, 6})
	a.SetTextureFitSize(mgl32.Vec3{3, 1, 1})
	a.SetScreenSize(mgl32.Vec2{640, 480})

	assert.Equal(t, float32(0.7), a.Opacity())
	assert.Equal(t, float32(0.02), a.StepSize())
	assert.Equal(t, float32(0.1), a.MinDensity())
	assert.Equal(t, float32(0.8), a.MaxDensity())
	assert.Equal(t, float32(0.5), a.AlphaThreshold())
	assert.Equal(t, float32(0.3), a.LightMarchStepSize())
	assert.Equal(t, float32(0.4), a.LightBaseIntensity())
	assert.Equal(t, float32(2), a.LightAbsorptionCoefficient())
	assert.Equal(t, mgl32.Vec3{0, -1, 0}, a.LightDirection())
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, a.Position())
	assert.Equal(t, mgl32.Vec3{2, 2, 2}, a.Scale())
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, a.Rotation())
	assert.Equal(t, mgl32.Vec3{4, 5, 6}, a.VolumeSize())
	assert.Equal(t, mgl32.Vec3{3, 1, 1}, a.TextureFitSize())
	assert.Equal(t, mgl32.Vec2{640, 480}, a.ScreenSize())
}

func TestUniformsPlacement(t *testing.T) {
	a := NewActor(&fakeRenderer{}, nil)
	a.SetPosition(mgl32.Vec3{1, 2, 3})
	a.SetVolumeSize(mgl32.Vec3{4, 4, 4})
	a.SetRotation(mgl32.Vec3{1.2, 0, 0})

	cam := core.NewCameraState()
	u := a.Uniforms(cam)

	assert.Equal(t, mgl32.Vec3{-1, 0, 1}, u.BoundMin)
	assert.Equal(t, mgl32.Vec3{3, 4, 5}, u.BoundMax)
	// rotation does not reach the model matrix
	assert.Equal(t, mgl32.Translate3D(1, 2, 3), u.Model)
	assert.Equal(t, cam.Position, u.CameraPos)
	assert.Equal(t, cam.Near, u.ZNear)
	assert.Equal(t, cam.Far, u.ZFar)
	assert.Equal(t, cam.ViewMatrix(), u.View)
}

func TestVolumeSizeRebuildsMeshOnRegenerate(t *testing.T) {
	a, r := newSmallActor(t)
	require.NoError(t, a.Init())

	size := mgl32.Vec3{2, 4, 8}
	a.SetVolumeSize(size)
	assert.Equal(t, 1, r.meshUploads)

	require.NoError(t, a.Regenerate())
	assert.Equal(t, 2, r.meshUploads)
	assert.Equal(t, core.NewCubeMesh(size), a.Mesh())
}

func TestLayerOps(t *testing.T) {
	a := NewActor(&fakeRenderer{}, nil)
	a.SetLayers(DefaultLayers())

	_, err := a.Layer(5)
	assert.ErrorIs(t, err, ErrLayerIndex)
	assert.ErrorIs(t, a.SetLayer(-1, noise.DefaultLayer()), ErrLayerIndex)
	assert.ErrorIs(t, a.RemoveLayer(2), ErrLayerIndex)

	idx := a.AddLayer(noise.DefaultLayer())
	assert.Equal(t, 2, idx)
	assert.Equal(t, 3, a.LayerCount())

	l, err := a.Layer(0)
	require.NoError(t, err)
	l.Opacity = -0.5
	require.NoError(t, a.SetLayer(0, l))
	got, _ := a.Layer(0)
	assert.Equal(t, float32(-0.5), got.Opacity)

	// copies do not alias the actor's list
	snapshot := a.Layers()
	snapshot[1].Scale = 99
	got, _ = a.Layer(1)
	assert.Equal(t, float32(22), got.Scale)

	require.NoError(t, a.RemoveLayer(0))
	got, _ = a.Layer(0)
	assert.Equal(t, float32(22), got.Scale)
}
