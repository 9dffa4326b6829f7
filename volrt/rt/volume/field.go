package volume

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// Field is a dense grid of (density, mask) pairs stored x-fastest, then y,
// then z. len(Voxels) always equals the product of Dimensions.
type Field struct {
	ID         uuid.UUID
	Dimensions [3]uint32
	Voxels     []mgl32.Vec2
}

func NewField(dims [3]uint32) *Field {
	return &Field{
		ID:         uuid.New(),
		Dimensions: dims,
		Voxels:     make([]mgl32.Vec2, VoxelCount(dims)),
	}
}

func VoxelCount(dims [3]uint32) int {
	return int(dims[0]) * int(dims[1]) * int(dims[2])
}

func (f *Field) Len() int { return len(f.Voxels) }

func (f *Field) Index(x, y, z int) int {
	return x + int(f.Dimensions[0])*(y+int(f.Dimensions[1])*z)
}

func (f *Field) At(x, y, z int) mgl32.Vec2 {
	return f.Voxels[f.Index(x, y, z)]
}

// Floats views the voxels as interleaved density/mask floats without copying.
func (f *Field) Floats() []float32 {
	if len(f.Voxels) == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&f.Voxels[0])), len(f.Voxels)*2)
}
