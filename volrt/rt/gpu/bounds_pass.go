package gpu

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/gekko3d/volumetric/volrt/rt/shaders"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

const BoundsUniformsSize = 80

// BoundsColor is the wireframe colour of the volume box.
var BoundsColor = [4]float32{1, 1, 0, 1}

// WireCubeVertices returns the 12 edges of the unit cube centred on the
// origin as a line list.
func WireCubeVertices() []mgl32.Vec3 {
	min, max := float32(-0.5), float32(0.5)
	return []mgl32.Vec3{
		// Bottom
		{min, min, min}, {max, min, min},
		{max, min, min}, {max, min, max},
		{max, min, max}, {min, min, max},
		{min, min, max}, {min, min, min},
		// Top
		{min, max, min}, {max, max, min},
		{max, max, min}, {max, max, max},
		{max, max, max}, {min, max, max},
		{min, max, max}, {min, max, min},
		// Sides
		{min, min, min}, {min, max, min},
		{max, min, min}, {max, max, min},
		{max, min, max}, {max, max, max},
		{min, min, max}, {min, max, max},
	}
}

// BoxModel maps the unit cube onto the axis aligned box [min, max].
func BoxModel(min, max mgl32.Vec3) mgl32.Mat4 {
	center := min.Add(max).Mul(0.5)
	size := max.Sub(min)
	return mgl32.Translate3D(center.X(), center.Y(), center.Z()).
		Mul4(mgl32.Scale3D(size.X(), size.Y(), size.Z()))
}

// PackBoundsUniforms lays out { mvp: mat4x4<f32>, color: vec4<f32> }.
func PackBoundsUniforms(mvp mgl32.Mat4, color [4]float32) []byte {
	buf := make([]byte, BoundsUniformsSize)
	for i := 0; i < 16; i++ {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(mvp[i]))
	}
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint32(buf[64+i*4:], math.Float32bits(color[i]))
	}
	return buf
}

// BoundsPass draws the volume's bounding box as lines on top of the scene.
type BoundsPass struct {
	Device       *wgpu.Device
	Queue        *wgpu.Queue
	Pipeline     *wgpu.RenderPipeline
	UniformBuf   *wgpu.Buffer
	BindGroup    *wgpu.BindGroup
	VertexBuffer *wgpu.Buffer
	VertexCount  uint32
}

func NewBoundsPass(device *wgpu.Device, format wgpu.TextureFormat) (*BoundsPass, error) {
	shaderModule, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "BoundsShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.BoundsWGSL},
	})
	if err != nil {
		return nil, err
	}
	defer shaderModule.Release()

	bgl, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "BoundsBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: BoundsUniformsSize,
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}
	defer bgl.Release()

	pipelineLayout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		BindGroupLayouts: []*wgpu.BindGroupLayout{bgl},
	})
	if err != nil {
		return nil, err
	}
	defer pipelineLayout.Release()

	pipeline, err := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "BoundsPipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     shaderModule,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{
				{
					ArrayStride: uint64(unsafe.Sizeof(mgl32.Vec3{})),
					StepMode:    wgpu.VertexStepModeVertex,
					Attributes: []wgpu.VertexAttribute{
						{
							Format:         wgpu.VertexFormatFloat32x3,
							Offset:         0,
							ShaderLocation: 0,
						},
					},
				},
			},
		},
		Fragment: &wgpu.FragmentState{
			Module:     shaderModule,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    format,
					WriteMask: wgpu.ColorWriteMaskAll,
					Blend: &wgpu.BlendState{
						Color: wgpu.BlendComponent{
							Operation: wgpu.BlendOperationAdd,
							SrcFactor: wgpu.BlendFactorSrcAlpha,
							DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						},
						Alpha: wgpu.BlendComponent{
							Operation: wgpu.BlendOperationAdd,
							SrcFactor: wgpu.BlendFactorOne,
							DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						},
					},
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyLineList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
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

	p := &BoundsPass{
		Device:   device,
		Queue:    device.GetQueue(),
		Pipeline: pipeline,
	}

	p.UniformBuf, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "BoundsUB",
		Size:  BoundsUniformsSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}

	p.BindGroup, err = device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "BoundsBG",
		Layout: pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: p.UniformBuf, Size: BoundsUniformsSize},
		},
	})
	if err != nil {
		return nil, err
	}

	vertices := WireCubeVertices()
	p.VertexCount = uint32(len(vertices))
	vSize := uint64(len(vertices) * int(unsafe.Sizeof(mgl32.Vec3{})))
	p.VertexBuffer, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "BoundsVertexBuffer",
		Size:  vSize,
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	p.Queue.WriteBuffer(p.VertexBuffer, 0, unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), vSize))

	return p, nil
}

// Update places the box for the next Draw.
func (p *BoundsPass) Update(viewProj mgl32.Mat4, min, max mgl32.Vec3, color [4]float32) {
	mvp := viewProj.Mul4(BoxModel(min, max))
	p.Queue.WriteBuffer(p.UniformBuf, 0, PackBoundsUniforms(mvp, color))
}

func (p *BoundsPass) Draw(pass *wgpu.RenderPassEncoder) {
	pass.SetPipeline(p.Pipeline)
	pass.SetBindGroup(0, p.BindGroup, nil)
	pass.SetVertexBuffer(0, p.VertexBuffer, 0, p.VertexBuffer.GetSize())
	pass.Draw(p.VertexCount, 1, 0, 0)
}

func (p *BoundsPass) Release() {
	if p.VertexBuffer != nil {
		p.VertexBuffer.Release()
		p.VertexBuffer = nil
	}
	if p.BindGroup != nil {
		p.BindGroup.Release()
		p.BindGroup = nil
	}
	if p.UniformBuf != nil {
		p.UniformBuf.Release()
		p.UniformBuf = nil
	}
	if p.Pipeline != nil {
		p.Pipeline.Release()
		p.Pipeline = nil
	}
}
