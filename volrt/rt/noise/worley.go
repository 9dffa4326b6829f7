package noise

import "math"

// worleyF1 is the distance from (x, y, z) to the nearest feature point of a
// jittered unit lattice, one feature point per cell.
func worleyF1(x, y, z float64, seed int64) float64 {
	ix, iy, iz := int(math.Floor(x)), int(math.Floor(y)), int(math.Floor(z))

	minDist := math.MaxFloat64
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				cx, cy, cz := ix+dx, iy+dy, iz+dz
				px := float64(cx) + hashToFloat(hash(cx, cy, cz, 0, seed))
				py := float64(cy) + hashToFloat(hash(cx, cy, cz, 1, seed))
				pz := float64(cz) + hashToFloat(hash(cx, cy, cz, 2, seed))

				ddx, ddy, ddz := px-x, py-y, pz-z
				d := ddx*ddx + ddy*ddy + ddz*ddz
				if d < minDist {
					minDist = d
				}
			}
		}
	}
	return math.Sqrt(minDist)
}

func hash(x, y, z, channel int, seed int64) uint32 {
	h := uint32(seed) ^ uint32(seed>>32)
	h += uint32(x)*374761393 + uint32(y)*668265263 + uint32(z)*2147483647 + uint32(channel)*2246822519
	h = (h ^ (h >> 13)) * 1274126177
	return h ^ (h >> 16)
}

// hashToFloat maps a hash into [0, 1).
func hashToFloat(h uint32) float64 {
	return float64(h&0xFFFFFF) / 16777216.0
}
