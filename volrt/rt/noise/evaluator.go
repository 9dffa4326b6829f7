package noise

import (
	"math"

	"github.com/aquilax/go-perlin"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	perlinAlpha   = 2.0
	perlinBeta    = 2.0
	perlinOctaves = 1
	// lattice period of go-perlin; it offsets coordinates by 4096 and
	// truncates, so anything below -4096 must be wrapped first
	perlinPeriod = 256
)

// Evaluator composites noise layers into a scalar density.
// It holds no mutable state after construction and may be shared
// between generator workers.
type Evaluator struct {
	seed   int64
	perlin *perlin.Perlin
}

func NewEvaluator(seed int64) *Evaluator {
	return &Evaluator{
		seed:   seed,
		perlin: perlin.NewPerlin(perlinAlpha, perlinBeta, perlinOctaves, seed),
	}
}

func (e *Evaluator) Seed() int64 { return e.seed }

// Sample returns base noise of kind t at p, in [0, 1].
func (e *Evaluator) Sample(t Type, p mgl32.Vec3) float32 {
	x, y, z := float64(p.X()), float64(p.Y()), float64(p.Z())
	switch t {
	case Worley:
		return float32(1 - math.Min(worleyF1(x, y, z, e.seed), 1))
	default:
		v := (e.perlin.Noise3D(wrapPerlin(x), wrapPerlin(y), wrapPerlin(z)) + 1) / 2
		return float32(math.Max(0, math.Min(1, v)))
	}
}

func wrapPerlin(v float64) float64 {
	return v - perlinPeriod*math.Floor(v/perlinPeriod)
}

// Evaluate folds layers over point in list order. Each layer samples at
// (point + offset) / scale; callers pass scales already divided by the
// virtual texture size. The result is not clamped.
func (e *Evaluator) Evaluate(point mgl32.Vec3, layers []Layer) float32 {
	var acc float32
	for i := range layers {
		l := &layers[i]
		p := point.Add(l.Offset).Mul(1 / l.Scale)
		v := e.Sample(l.Type, p) * l.Opacity
		acc = blend(acc, v, l.Blend)
	}
	return acc
}

func blend(acc, v float32, op Blend) float32 {
	switch op {
	case Subtract:
		return acc - v
	case Multiply:
		return acc * v
	case Divide:
		// zero divisor leaves the accumulator as is
		if v == 0 {
			return acc
		}
		return acc / v
	default:
		return acc + v
	}
}
