package volume

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/x448/float16"
)

// Precision of the uploaded density texels.
type Precision uint8

const (
	// Half floats, filterable on every adapter.
	PrecisionF16 Precision = iota
	// Full floats, unfilterable unless the device exposes float32-filterable.
	PrecisionF32
)

func (p Precision) String() string {
	if p == PrecisionF32 {
		return "f32"
	}
	return "f16"
}

func (p Precision) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Precision) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "f32", "float32":
		*p = PrecisionF32
	case "f16", "float16":
		*p = PrecisionF16
	default:
		return fmt.Errorf("unknown precision %q", string(text))
	}
	return nil
}

// BytesPerTexel of a two channel texel at precision p.
func (p Precision) BytesPerTexel() uint32 {
	if p == PrecisionF32 {
		return 8
	}
	return 4
}

// Encode packs the field as little-endian two channel texels.
func (f *Field) Encode(p Precision) []byte {
	if p == PrecisionF32 {
		return f.EncodeRG32()
	}
	return f.EncodeRG16()
}

func (f *Field) EncodeRG32() []byte {
	src := f.Floats()
	buf := make([]byte, len(src)*4)
	for i, v := range src {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func (f *Field) EncodeRG16() []byte {
	src := f.Floats()
	buf := make([]byte, len(src)*2)
	for i, v := range src {
		binary.LittleEndian.PutUint16(buf[i*2:], float16.Fromfloat32(v).Bits())
	}
	return buf
}
