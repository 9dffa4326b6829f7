package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// clipCorrection maps OpenGL style clip depth [-w, w] to WebGPU's [0, w].
var clipCorrection = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

type CameraState struct {
	Position    mgl32.Vec3
	Yaw         float32
	Pitch       float32
	Speed       float32
	Sensitivity float32
	FovDeg      float32
	Aspect      float32
	Near        float32
	Far         float32
}

func NewCameraState() *CameraState {
	return &CameraState{
		Position:    mgl32.Vec3{0, 0, 20},
		Speed:       10.0,
		Sensitivity: 0.003,
		FovDeg:      60,
		Aspect:      16.0 / 9.0,
		Near:        0.1,
		Far:         1000.0,
	}
}

// GetForward is Y-up; yaw 0 looks down -Z.
func (c *CameraState) GetForward() mgl32.Vec3 {
	return mgl32.Vec3{
		float32(math.Cos(float64(c.Pitch)) * math.Sin(float64(c.Yaw))),
		float32(math.Sin(float64(c.Pitch))),
		float32(-math.Cos(float64(c.Pitch)) * math.Cos(float64(c.Yaw))),
	}
}

func (c *CameraState) GetRight() mgl32.Vec3 {
	return c.GetForward().Cross(mgl32.Vec3{0, 1, 0}).Normalize()
}

func (c *CameraState) ViewMatrix() mgl32.Mat4 {
	eye := c.Position
	return mgl32.LookAtV(eye, eye.Add(c.GetForward()), mgl32.Vec3{0, 1, 0})
}

func (c *CameraState) ProjectionMatrix() mgl32.Mat4 {
	aspect := c.Aspect
	if aspect <= 0 {
		aspect = 1
	}
	return clipCorrection.Mul4(mgl32.Perspective(mgl32.DegToRad(c.FovDeg), aspect, c.Near, c.Far))
}

func (c *CameraState) WorldPosition() mgl32.Vec3 { return c.Position }
func (c *CameraState) NearPlane() float32        { return c.Near }
func (c *CameraState) FarPlane() float32         { return c.Far }

// ClampPitch keeps the camera from flipping over the poles.
func (c *CameraState) ClampPitch() {
	const limit = math.Pi/2 - 0.01
	if c.Pitch > limit {
		c.Pitch = limit
	}
	if c.Pitch < -limit {
		c.Pitch = -limit
	}
}
