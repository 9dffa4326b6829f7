package noise

// Xorshift is a 32-bit xorshift sequence. The same seed always produces the
// same sequence, which keeps the dithering texture stable between runs.
type Xorshift struct {
	state uint32
}

func NewXorshift(seed uint32) *Xorshift {
	if seed == 0 {
		seed = 0x9E3779B9
	}
	return &Xorshift{state: seed}
}

func (x *Xorshift) NextUint32() uint32 {
	s := x.state
	s ^= s << 13
	s ^= s >> 17
	s ^= s << 5
	x.state = s
	return s
}

// NextFloat returns a value in [0, 1).
func (x *Xorshift) NextFloat() float32 {
	return float32(x.NextUint32()>>8) / (1 << 24)
}
