package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Transform is the placement of a volume. Rotation holds Euler angles in
// radians and is carried for editors only; ObjectToWorld does not apply it
// because the ray marcher works against an axis-aligned box.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Vec3
	Scale    mgl32.Vec3
}

func NewTransform() *Transform {
	return &Transform{
		Position: mgl32.Vec3{0, 0, 0},
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

func (t *Transform) ObjectToWorld() mgl32.Mat4 {
	// M = T * S
	translate := mgl32.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z())
	scale := mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z())
	return translate.Mul4(scale)
}

// Bounds is the world box centred on Position with extent size.
func (t *Transform) Bounds(size mgl32.Vec3) (mgl32.Vec3, mgl32.Vec3) {
	half := size.Mul(0.5)
	return t.Position.Sub(half), t.Position.Add(half)
}
