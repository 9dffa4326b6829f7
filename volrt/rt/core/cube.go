package core

import "github.com/go-gl/mathgl/mgl32"

const CubeIndexCount = 36

// cubeIndices cover the six faces with two triangles each.
var cubeIndices = [CubeIndexCount]uint32{
	0, 1, 2, 0, 2, 3,
	3, 2, 5, 3, 5, 4,
	4, 5, 6, 4, 6, 7,
	7, 6, 1, 7, 1, 0,
	7, 0, 3, 7, 3, 4,
	1, 6, 5, 1, 5, 2,
}

var unitCorners = [8]mgl32.Vec3{
	{0, 0, 0},
	{0, 1, 0},
	{1, 1, 0},
	{1, 0, 0},
	{1, 0, 1},
	{1, 1, 1},
	{0, 1, 1},
	{0, 0, 1},
}

// CubeMesh is the proxy geometry the ray marcher rasterizes.
type CubeMesh struct {
	Vertices [8]mgl32.Vec3
	Indices  [CubeIndexCount]uint32
}

// NewCubeMesh builds a cube centred at the origin with extent size.
func NewCubeMesh(size mgl32.Vec3) CubeMesh {
	m := CubeMesh{Indices: cubeIndices}
	for i, c := range unitCorners {
		c = c.Sub(mgl32.Vec3{0.5, 0.5, 0.5})
		m.Vertices[i] = mgl32.Vec3{c.X() * size.X(), c.Y() * size.Y(), c.Z() * size.Z()}
	}
	return m
}
