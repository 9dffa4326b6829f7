package volume

import (
	"fmt"
	"runtime"

	"github.com/gekko3d/volumetric/volrt/rt/noise"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"
)

// Generator fills a Field from noise layers. Slices along z are evaluated
// concurrently; each worker writes only its own slices.
type Generator struct {
	Evaluator *noise.Evaluator
	Workers   int
	// MaxDimension caps every axis of the derived size; 0 means no cap.
	MaxDimension uint32
}

func NewGenerator(evaluator *noise.Evaluator, workers int) *Generator {
	return &Generator{Evaluator: evaluator, Workers: workers}
}

// Generate derives the texture size from fit and virtualSize and evaluates
// every voxel at its integer coordinate. The density lands in X, the mask
// (always 1) in Y. layers is not modified.
func (g *Generator) Generate(fit mgl32.Vec3, virtualSize uint32, layers []noise.Layer) (*Field, error) {
	if !ValidVirtualSize(virtualSize) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidVirtualSize, virtualSize)
	}
	dims, err := FitTextureSize(fit, virtualSize)
	if err != nil {
		return nil, err
	}
	if g.MaxDimension > 0 {
		for axis, d := range dims {
			if d > g.MaxDimension {
				return nil, fmt.Errorf("%w: axis %d size %d > %d", ErrTextureTooLarge, axis, d, g.MaxDimension)
			}
		}
	}

	scaled, err := ScaleLayers(layers, virtualSize)
	if err != nil {
		return nil, err
	}

	field := NewField(dims)
	workers := g.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var eg errgroup.Group
	eg.SetLimit(workers)
	for z := 0; z < int(dims[2]); z++ {
		eg.Go(func() error {
			g.fillSlice(field, z, scaled)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return field, nil
}

func (g *Generator) fillSlice(field *Field, z int, layers []noise.Layer) {
	w, h := int(field.Dimensions[0]), int(field.Dimensions[1])
	base := field.Index(0, 0, z)
	for y := 0; y < h; y++ {
		row := base + y*w
		for x := 0; x < w; x++ {
			d := g.Evaluator.Evaluate(mgl32.Vec3{float32(x), float32(y), float32(z)}, layers)
			field.Voxels[row+x] = mgl32.Vec2{d, 1}
		}
	}
}

// ScaleLayers returns a copy of layers with every scale divided by
// virtualSize, so layers authored at texture scale stay resolution independent.
func ScaleLayers(layers []noise.Layer, virtualSize uint32) ([]noise.Layer, error) {
	out := make([]noise.Layer, len(layers))
	for i, l := range layers {
		if err := l.Validate(); err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		l.Scale /= float32(virtualSize)
		out[i] = l
	}
	return out, nil
}
