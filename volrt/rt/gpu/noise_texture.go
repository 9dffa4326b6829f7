package gpu

import "github.com/gekko3d/volumetric/volrt/rt/noise"

const (
	NoiseTextureSize = 64
	NoiseTextureSeed = 2356
)

// NoiseTexels builds the single channel dithering texture sampled by the ray
// marcher to jitter ray start positions. Rows are y, x runs fastest.
func NoiseTexels(seed uint32, width, height int) []byte {
	rng := noise.NewXorshift(seed)
	texels := make([]byte, 0, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			texels = append(texels, uint8(rng.NextFloat()*255.0))
		}
	}
	return texels
}
