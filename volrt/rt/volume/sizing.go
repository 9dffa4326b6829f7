package volume

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// Exclusive bounds of the virtual texture size.
	MinVirtualSize = 8
	MaxVirtualSize = 2000

	// absorbs float error so that exact ratios do not truncate one voxel short
	sizeTolerance = 1e-4
)

var (
	ErrDegenerateFitSize  = errors.New("texture fit size must be positive on every axis")
	ErrInvalidVirtualSize = errors.New("virtual texture size out of range")
	ErrTextureTooLarge    = errors.New("texture size exceeds the dimension limit")
)

// ValidVirtualSize reports whether v lies in the open interval (8, 2000).
func ValidVirtualSize(v uint32) bool {
	return v > MinVirtualSize && v < MaxVirtualSize
}

// FitTextureSize spreads a virtualSize^3 voxel budget across the axes in
// proportion to fit, keeping the geometric mean resolution at virtualSize.
func FitTextureSize(fit mgl32.Vec3, virtualSize uint32) ([3]uint32, error) {
	var dims [3]uint32
	for i := 0; i < 3; i++ {
		f := float64(fit[i])
		if !(f > 0) || math.IsInf(f, 0) {
			return dims, fmt.Errorf("%w: %v", ErrDegenerateFitSize, fit)
		}
	}

	cubeRoot := math.Cbrt(float64(fit[0]) * float64(fit[1]) * float64(fit[2]))
	for i := 0; i < 3; i++ {
		n := float64(virtualSize) * float64(fit[i]) / cubeRoot
		dims[i] = uint32(math.Max(1, math.Floor(n+sizeTolerance)))
	}
	return dims, nil
}
