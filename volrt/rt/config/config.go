package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/gekko3d/volumetric"
	"github.com/gekko3d/volumetric/volrt/rt/noise"
	"github.com/gekko3d/volumetric/volrt/rt/volume"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

// EnvPath names the variable consulted when Load gets no path.
const EnvPath = "VOLUME_CONFIG"

type Config struct {
	Window WindowConfig  `yaml:"window"`
	Volume VolumeConfig  `yaml:"volume"`
	Render RenderConfig  `yaml:"render"`
	Layers []noise.Layer `yaml:"layers"`
	Debug  bool          `yaml:"debug"`
}

type WindowConfig struct {
	Title  string `yaml:"title"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

type VolumeConfig struct {
	Position           mgl32.Vec3       `yaml:"position"`
	Scale              mgl32.Vec3       `yaml:"scale"`
	Rotation           mgl32.Vec3       `yaml:"rotation"`
	Size               mgl32.Vec3       `yaml:"size"`
	FitSize            mgl32.Vec3       `yaml:"fit_size"`
	VirtualTextureSize uint32           `yaml:"virtual_texture_size"`
	Seed               int64            `yaml:"seed"`
	Workers            int              `yaml:"workers"`
	Precision          volume.Precision `yaml:"precision"`
}

type RenderConfig struct {
	StepSize                   float32    `yaml:"step_size"`
	MinDensity                 float32    `yaml:"min_density"`
	MaxDensity                 float32    `yaml:"max_density"`
	Opacity                    float32    `yaml:"opacity"`
	AlphaThreshold             float32    `yaml:"alpha_threshold"`
	LightMarchStepSize         float32    `yaml:"light_march_step_size"`
	LightBaseIntensity         float32    `yaml:"light_base_intensity"`
	LightAbsorptionCoefficient float32    `yaml:"light_absorption"`
	LightDirection             mgl32.Vec3 `yaml:"light_direction"`
}

func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  "Volume Rendering",
			Width:  1600,
			Height: 900,
		},
		Volume: VolumeConfig{
			Scale:              mgl32.Vec3{1, 1, 1},
			Size:               volumetric.DefaultVolumeSize,
			FitSize:            mgl32.Vec3{1, 1, 1},
			VirtualTextureSize: volumetric.DefaultVirtualTextureSize,
			Seed:               volumetric.DefaultNoiseSeed,
			Precision:          volume.PrecisionF16,
		},
		Render: RenderConfig{
			StepSize:                   volumetric.DefaultStepSize,
			MinDensity:                 volumetric.DefaultMinDensity,
			MaxDensity:                 volumetric.DefaultMaxDensity,
			Opacity:                    volumetric.DefaultOpacity,
			AlphaThreshold:             volumetric.DefaultAlphaThreshold,
			LightMarchStepSize:         volumetric.DefaultLightMarchStepSize,
			LightBaseIntensity:         volumetric.DefaultLightBaseIntensity,
			LightAbsorptionCoefficient: volumetric.DefaultLightAbsorptionCoefficient,
			LightDirection:             volumetric.DefaultLightDirection,
		},
		Layers: volumetric.DefaultLayers(),
	}
}

// Load reads the YAML file at path over the defaults. An empty path falls
// back to $VOLUME_CONFIG; with neither set the defaults are returned.
// A layers list in the file replaces the default layers entirely.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvPath)
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d", c.Window.Width, c.Window.Height))
	}
	if _, err := volume.FitTextureSize(c.Volume.FitSize, volumetric.DefaultVirtualTextureSize); err != nil {
		errs = append(errs, err)
	}
	if !volume.ValidVirtualSize(c.Volume.VirtualTextureSize) {
		errs = append(errs, fmt.Errorf("%w: %d", volume.ErrInvalidVirtualSize, c.Volume.VirtualTextureSize))
	}
	if c.Volume.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative: %d", c.Volume.Workers))
	}
	for i, l := range c.Layers {
		if err := l.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("layer %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Apply pushes the volume and render sections into a. It does not
// regenerate.
func (c *Config) Apply(a *volumetric.Actor) {
	a.SetPosition(c.Volume.Position)
	a.SetScale(c.Volume.Scale)
	a.SetRotation(c.Volume.Rotation)
	a.SetVolumeSize(c.Volume.Size)
	a.SetTextureFitSize(c.Volume.FitSize)
	a.SetVirtualTextureSize(c.Volume.VirtualTextureSize)
	a.SetGenerator(volume.NewGenerator(noise.NewEvaluator(c.Volume.Seed), c.Volume.Workers))

	a.SetStepSize(c.Render.StepSize)
	a.SetMinDensity(c.Render.MinDensity)
	a.SetMaxDensity(c.Render.MaxDensity)
	a.SetOpacity(c.Render.Opacity)
	a.SetAlphaThreshold(c.Render.AlphaThreshold)
	a.SetLightMarchStepSize(c.Render.LightMarchStepSize)
	a.SetLightBaseIntensity(c.Render.LightBaseIntensity)
	a.SetLightAbsorptionCoefficient(c.Render.LightAbsorptionCoefficient)
	a.SetLightDirection(c.Render.LightDirection)

	a.SetLayers(c.Layers)
}
