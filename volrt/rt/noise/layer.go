package noise

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

var ErrInvalidScale = errors.New("noise layer scale must be positive")

// Type selects the base noise sampled by a layer.
type Type uint8

const (
	Perlin Type = iota
	Worley
)

var typeNames = [...]string{"perlin", "worley"}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", t)
}

// Next cycles through the known kinds.
func (t Type) Next() Type {
	return Type((int(t) + 1) % len(typeNames))
}

func (t Type) MarshalText() ([]byte, error) {
	if int(t) >= len(typeNames) {
		return nil, fmt.Errorf("unknown noise type %d", t)
	}
	return []byte(typeNames[t]), nil
}

func (t *Type) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	for i, n := range typeNames {
		if n == name {
			*t = Type(i)
			return nil
		}
	}
	return fmt.Errorf("unknown noise type %q", string(text))
}

// Blend is the operator used to fold a layer into the accumulated density.
type Blend uint8

const (
	Add Blend = iota
	Subtract
	Multiply
	Divide
)

var blendNames = [...]string{"add", "subtract", "multiply", "divide"}

func (b Blend) String() string {
	if int(b) < len(blendNames) {
		return blendNames[b]
	}
	return fmt.Sprintf("Blend(%d)", b)
}

func (b Blend) Next() Blend {
	return Blend((int(b) + 1) % len(blendNames))
}

func (b Blend) MarshalText() ([]byte, error) {
	if int(b) >= len(blendNames) {
		return nil, fmt.Errorf("unknown blend mode %d", b)
	}
	return []byte(blendNames[b]), nil
}

func (b *Blend) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	for i, n := range blendNames {
		if n == name {
			*b = Blend(i)
			return nil
		}
	}
	return fmt.Errorf("unknown blend mode %q", string(text))
}

// Layer is one noise contribution to the density field.
type Layer struct {
	Offset  mgl32.Vec3 `yaml:"offset"`
	Scale   float32    `yaml:"scale"`
	Opacity float32    `yaml:"opacity"`
	Type    Type       `yaml:"type"`
	Blend   Blend      `yaml:"blend"`
}

// DefaultLayer is what the editor appends on "add layer".
func DefaultLayer() Layer {
	return Layer{
		Scale:   1,
		Opacity: 1,
		Type:    Perlin,
		Blend:   Add,
	}
}

func (l Layer) Validate() error {
	if !(l.Scale > 0) {
		return fmt.Errorf("%w: got %v", ErrInvalidScale, l.Scale)
	}
	return nil
}
