package gpu

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/gekko3d/volumetric/volrt/rt/core"
	"github.com/gekko3d/volumetric/volrt/rt/shaders"
	"github.com/gekko3d/volumetric/volrt/rt/volume"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// Default wgpu limit for 3D textures.
const MaxTextureDimension3D = 2048

// Texture bindings of group 1. Samplers follow the textures.
const (
	BindingDensityTex = iota
	BindingNoiseTex
	BindingDepthTex
	BindingDensitySampler
	BindingNoiseSampler
)

var (
	ErrNoDepthTarget    = errors.New("volume pass has no depth target")
	ErrResourcesMissing = errors.New("volume pass resources not uploaded")
	ErrNoPipeline       = errors.New("volume pass has no pipeline")
)

// SampledTexture is a texture together with the view bound to the pipeline.
type SampledTexture struct {
	Texture *wgpu.Texture
	View    *wgpu.TextureView
	Label   string
}

func (t *SampledTexture) Release() {
	if t.View != nil {
		t.View.Release()
	}
	if t.Texture != nil {
		t.Texture.Release()
	}
}

// VolumePass rasterizes the cube proxy with front faces culled so that every
// covered pixel runs the ray marcher once, then blends the result over the
// colour target. It does not depth test; the fragment shader reads the scene
// depth texture itself.
type VolumePass struct {
	Device    *wgpu.Device
	Queue     *wgpu.Queue
	Precision volume.Precision

	Pipeline   *wgpu.RenderPipeline
	UniformBuf *wgpu.Buffer
	UniformBG  *wgpu.BindGroup
	TextureBGL *wgpu.BindGroupLayout

	DensitySampler *wgpu.Sampler
	NoiseSampler   *wgpu.Sampler

	VertexBuf Slot[*wgpu.Buffer]
	IndexBuf  Slot[*wgpu.Buffer]
	Density   Slot[*SampledTexture]
	Noise     Slot[*SampledTexture]
	TextureBG Slot[*wgpu.BindGroup]

	depthView  *wgpu.TextureView
	indexCount uint32
}

func NewVolumePass(device *wgpu.Device, format wgpu.TextureFormat, precision volume.Precision) (*VolumePass, error) {
	p := &VolumePass{
		Device:    device,
		Queue:     device.GetQueue(),
		Precision: precision,
	}

	shaderModule, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "VolumeShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.VolumeWGSL},
	})
	if err != nil {
		return nil, err
	}
	defer shaderModule.Release()

	uniformBGL, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "VolumeUniformBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: VolumeUniformsSize,
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}
	defer uniformBGL.Release()

	// Full float 3D textures are only filterable behind a device feature.
	densitySampleType := wgpu.TextureSampleTypeFloat
	densitySamplerType := wgpu.SamplerBindingTypeFiltering
	densityFilter := wgpu.FilterModeLinear
	if precision == volume.PrecisionF32 {
		densitySampleType = wgpu.TextureSampleTypeUnfilterableFloat
		densitySamplerType = wgpu.SamplerBindingTypeNonFiltering
		densityFilter = wgpu.FilterModeNearest
	}

	p.TextureBGL, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "VolumeTextureBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    BindingDensityTex,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    densitySampleType,
					ViewDimension: wgpu.TextureViewDimension3D,
				},
			},
			{
				Binding:    BindingNoiseTex,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    BindingDepthTex,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeDepth,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    BindingDensitySampler,
				Visibility: wgpu.ShaderStageFragment,
				Sampler:    wgpu.SamplerBindingLayout{Type: densitySamplerType},
			},
			{
				Binding:    BindingNoiseSampler,
				Visibility: wgpu.ShaderStageFragment,
				Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeNonFiltering},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	pipelineLayout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "VolumePipelineLayout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{uniformBGL, p.TextureBGL},
	})
	if err != nil {
		return nil, err
	}
	defer pipelineLayout.Release()

	p.Pipeline, err = device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "VolumePipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     shaderModule,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{{
				ArrayStride: uint64(unsafe.Sizeof(mgl32.Vec3{})),
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes: []wgpu.VertexAttribute{
					{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
				},
			}},
		},
		Fragment: &wgpu.FragmentState{
			Module:     shaderModule,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format: format,
				// premultiplied output from the marcher
				Blend: &wgpu.BlendState{
					Color: wgpu.BlendComponent{
						SrcFactor: wgpu.BlendFactorOne,
						DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						Operation: wgpu.BlendOperationAdd,
					},
					Alpha: wgpu.BlendComponent{
						SrcFactor: wgpu.BlendFactorOne,
						DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						Operation: wgpu.BlendOperationAdd,
					},
				},
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeFront,
		},
		DepthStencil: nil,
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, err
	}

	p.UniformBuf, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "VolumeUB",
		Size:  VolumeUniformsSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}

	p.UniformBG, err = device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "VolumeUniformBG",
		Layout: p.Pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: p.UniformBuf, Size: VolumeUniformsSize},
		},
	})
	if err != nil {
		return nil, err
	}

	p.DensitySampler, err = device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "DensitySampler",
		AddressModeU:  wgpu.AddressModeMirrorRepeat,
		AddressModeV:  wgpu.AddressModeMirrorRepeat,
		AddressModeW:  wgpu.AddressModeMirrorRepeat,
		MagFilter:     densityFilter,
		MinFilter:     densityFilter,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, err
	}

	p.NoiseSampler, err = device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "NoiseSampler",
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeNearest,
		MinFilter:     wgpu.FilterModeNearest,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, err
	}

	return p, nil
}

func (p *VolumePass) UploadMesh(mesh core.CubeMesh) error {
	vSize := uint64(len(mesh.Vertices) * int(unsafe.Sizeof(mgl32.Vec3{})))
	err := p.VertexBuf.Replace(func() (*wgpu.Buffer, error) {
		return p.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "VolumeCubeVB",
			Size:  vSize,
			Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		})
	})
	if err != nil {
		return fmt.Errorf("vertex buffer: %w", err)
	}
	vb, _ := p.VertexBuf.Get()
	p.Queue.WriteBuffer(vb, 0, unsafe.Slice((*byte)(unsafe.Pointer(&mesh.Vertices[0])), vSize))

	iSize := uint64(len(mesh.Indices) * 4)
	err = p.IndexBuf.Replace(func() (*wgpu.Buffer, error) {
		return p.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "VolumeCubeIB",
			Size:  iSize,
			Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
		})
	})
	if err != nil {
		return fmt.Errorf("index buffer: %w", err)
	}
	ib, _ := p.IndexBuf.Get()
	p.Queue.WriteBuffer(ib, 0, unsafe.Slice((*byte)(unsafe.Pointer(&mesh.Indices[0])), iSize))
	p.indexCount = uint32(len(mesh.Indices))
	return nil
}

func (p *VolumePass) UploadNoise(texels []byte, width, height uint32) error {
	if uint32(len(texels)) != width*height {
		return fmt.Errorf("noise texture: %d texels for %dx%d", len(texels), width, height)
	}
	p.TextureBG.Release()
	return p.Noise.Replace(func() (*SampledTexture, error) {
		return p.createTexture("NoiseTex", wgpu.TextureDimension2D, wgpu.TextureFormatR8Unorm,
			wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1}, 1, texels)
	})
}

// MaxTextureDimension is the largest density texture axis the pass accepts.
func (p *VolumePass) MaxTextureDimension() uint32 { return MaxTextureDimension3D }

// UploadDensity replaces the density texture with field. The previous
// texture is released first.
func (p *VolumePass) UploadDensity(field *volume.Field) error {
	d := field.Dimensions
	for axis := 0; axis < 3; axis++ {
		if d[axis] == 0 || d[axis] > MaxTextureDimension3D {
			return fmt.Errorf("density texture: axis %d size %d outside [1, %d]", axis, d[axis], MaxTextureDimension3D)
		}
	}

	format := wgpu.TextureFormatRG16Float
	if p.Precision == volume.PrecisionF32 {
		format = wgpu.TextureFormatRG32Float
	}

	p.TextureBG.Release()
	return p.Density.Replace(func() (*SampledTexture, error) {
		return p.createTexture("DensityTex-"+field.ID.String(), wgpu.TextureDimension3D, format,
			wgpu.Extent3D{Width: d[0], Height: d[1], DepthOrArrayLayers: d[2]},
			p.Precision.BytesPerTexel(), field.Encode(p.Precision))
	})
}

func (p *VolumePass) createTexture(label string, dim wgpu.TextureDimension, format wgpu.TextureFormat, extent wgpu.Extent3D, bytesPerTexel uint32, data []byte) (*SampledTexture, error) {
	tex, err := p.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          extent,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     dim,
		Format:        format,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}

	p.Queue.WriteTexture(tex.AsImageCopy(), data, &wgpu.TextureDataLayout{
		Offset:       0,
		BytesPerRow:  extent.Width * bytesPerTexel,
		RowsPerImage: extent.Height,
	}, &extent)

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}
	return &SampledTexture{Texture: tex, View: view, Label: label}, nil
}

// SetDepthTarget points the marcher at the scene depth attachment. The view
// stays owned by the frame target.
func (p *VolumePass) SetDepthTarget(view *wgpu.TextureView) {
	if view == p.depthView {
		return
	}
	p.depthView = view
	p.TextureBG.Release()
}

func (p *VolumePass) WriteUniforms(u *VolumeUniforms) {
	if p.UniformBuf == nil {
		return
	}
	p.Queue.WriteBuffer(p.UniformBuf, 0, u.Pack())
}

func (p *VolumePass) ensureTextureBindGroup() error {
	if p.TextureBG.Live() {
		return nil
	}
	density, okD := p.Density.Get()
	noiseTex, okN := p.Noise.Get()
	if !okD || !okN {
		return ErrResourcesMissing
	}
	if p.depthView == nil {
		return ErrNoDepthTarget
	}

	return p.TextureBG.Replace(func() (*wgpu.BindGroup, error) {
		return p.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "VolumeTextureBG",
			Layout: p.TextureBGL,
			Entries: []wgpu.BindGroupEntry{
				{Binding: BindingDensityTex, TextureView: density.View},
				{Binding: BindingNoiseTex, TextureView: noiseTex.View},
				{Binding: BindingDepthTex, TextureView: p.depthView},
				{Binding: BindingDensitySampler, Sampler: p.DensitySampler},
				{Binding: BindingNoiseSampler, Sampler: p.NoiseSampler},
			},
		})
	})
}

// Draw records the single indexed draw of the cube proxy.
func (p *VolumePass) Draw(pass *wgpu.RenderPassEncoder) error {
	if p.Pipeline == nil {
		return ErrNoPipeline
	}
	vb, okV := p.VertexBuf.Get()
	ib, okI := p.IndexBuf.Get()
	if !okV || !okI {
		return ErrResourcesMissing
	}
	if err := p.ensureTextureBindGroup(); err != nil {
		return err
	}
	bg, _ := p.TextureBG.Get()

	pass.SetPipeline(p.Pipeline)
	pass.SetBindGroup(0, p.UniformBG, nil)
	pass.SetBindGroup(1, bg, nil)
	pass.SetVertexBuffer(0, vb, 0, vb.GetSize())
	pass.SetIndexBuffer(ib, wgpu.IndexFormatUint32, 0, ib.GetSize())
	pass.DrawIndexed(p.indexCount, 1, 0, 0, 0)
	return nil
}

// Release drops the per-volume resources: mesh buffers, textures and the
// texture bind group. The pipeline survives, so the pass can be uploaded to
// again.
func (p *VolumePass) Release() {
	p.TextureBG.Release()
	p.Density.Release()
	p.Noise.Release()
	p.VertexBuf.Release()
	p.IndexBuf.Release()
	p.depthView = nil
	p.indexCount = 0
}

// Destroy releases everything, the pipeline included. The pass is unusable
// afterwards; Draw reports ErrNoPipeline.
func (p *VolumePass) Destroy() {
	p.Release()
	if p.NoiseSampler != nil {
		p.NoiseSampler.Release()
		p.NoiseSampler = nil
	}
	if p.DensitySampler != nil {
		p.DensitySampler.Release()
		p.DensitySampler = nil
	}
	if p.UniformBG != nil {
		p.UniformBG.Release()
		p.UniformBG = nil
	}
	if p.UniformBuf != nil {
		p.UniformBuf.Release()
		p.UniformBuf = nil
	}
	if p.TextureBGL != nil {
		p.TextureBGL.Release()
		p.TextureBGL = nil
	}
	if p.Pipeline != nil {
		p.Pipeline.Release()
		p.Pipeline = nil
	}
}
