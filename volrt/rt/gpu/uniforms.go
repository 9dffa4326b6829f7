package gpu

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const VolumeUniformsSize = 304

// VolumeUniforms is everything the ray marcher needs for one draw. The
// field order and padding match the VolumeUniforms struct in volume.wgsl.
type VolumeUniforms struct {
	Model      mgl32.Mat4
	View       mgl32.Mat4
	Projection mgl32.Mat4

	CameraPos mgl32.Vec3
	ZNear     float32
	ZFar      float32

	ScreenWidth  uint32
	ScreenHeight uint32
	TexSize      [3]uint32

	BoundMin mgl32.Vec3
	BoundMax mgl32.Vec3

	StepSize       float32
	MinDensity     float32
	MaxDensity     float32
	Opacity        float32
	AlphaThreshold float32

	LightDirection             mgl32.Vec3
	LightMarchStepSize         float32
	LightBaseIntensity         float32
	LightAbsorptionCoefficient float32
}

// Pack lays the block out as:
//
//	model        mat4  0
//	view         mat4  64
//	projection   mat4  128
//	camera_pos   vec3  192, step_size       f32 204
//	bound_min    vec3  208, min_density     f32 220
//	bound_max    vec3  224, max_density     f32 236
//	light_dir    vec3  240, opacity         f32 252
//	tex_size     vec3u 256, alpha_threshold f32 268
//	screen_size  vec2  272, z_near f32 280, z_far f32 284
//	light_step   f32   288, light_base f32 292, light_absorption f32 296
func (u *VolumeUniforms) Pack() []byte {
	buf := make([]byte, VolumeUniformsSize)

	putF := func(offset int, v float32) {
		binary.LittleEndian.PutUint32(buf[offset:], math.Float32bits(v))
	}
	putU := func(offset int, v uint32) {
		binary.LittleEndian.PutUint32(buf[offset:], v)
	}
	writeMat := func(offset int, m mgl32.Mat4) {
		for i, v := range m {
			putF(offset+i*4, v)
		}
	}
	writeVec3 := func(offset int, v mgl32.Vec3) {
		putF(offset, v[0])
		putF(offset+4, v[1])
		putF(offset+8, v[2])
	}

	writeMat(0, u.Model)
	writeMat(64, u.View)
	writeMat(128, u.Projection)

	writeVec3(192, u.CameraPos)
	putF(204, u.StepSize)
	writeVec3(208, u.BoundMin)
	putF(220, u.MinDensity)
	writeVec3(224, u.BoundMax)
	putF(236, u.MaxDensity)
	writeVec3(240, u.LightDirection)
	putF(252, u.Opacity)

	putU(256, u.TexSize[0])
	putU(260, u.TexSize[1])
	putU(264, u.TexSize[2])
	putF(268, u.AlphaThreshold)

	putF(272, float32(u.ScreenWidth))
	putF(276, float32(u.ScreenHeight))
	putF(280, u.ZNear)
	putF(284, u.ZFar)

	putF(288, u.LightMarchStepSize)
	putF(292, u.LightBaseIntensity)
	putF(296, u.LightAbsorptionCoefficient)

	return buf
}
