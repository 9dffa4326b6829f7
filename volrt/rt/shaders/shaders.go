package shaders

import (
	_ "embed"
)

//go:embed volume.wgsl
var VolumeWGSL string

//go:embed bounds.wgsl
var BoundsWGSL string

//go:embed text.wgsl
var TextWGSL string
