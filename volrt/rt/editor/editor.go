package editor

import (
	"fmt"

	"github.com/gekko3d/volumetric"
	"github.com/gekko3d/volumetric/volrt/rt/noise"

	"github.com/go-gl/mathgl/mgl32"
)

// Ranges of the editable values.
const (
	MinLayerScale  = 0.01
	MaxLayerScale  = 512
	MaxLayerOffset = 1000
	MinStepSize    = 0.001
	MaxStepSize    = 50
)

// Panel is the property panel state for one actor. The selected layer index
// lives here, not in the actor.
type Panel struct {
	Visible         bool
	ShowBoundingBox bool
	Selected        int
}

func NewPanel() *Panel {
	return &Panel{Visible: true}
}

func (p *Panel) Toggle() { p.Visible = !p.Visible }

func (p *Panel) ToggleBoundingBox() { p.ShowBoundingBox = !p.ShowBoundingBox }

func (p *Panel) clampSelection(a *volumetric.Actor) int {
	n := a.LayerCount()
	if p.Selected >= n {
		p.Selected = n - 1
	}
	if p.Selected < 0 {
		p.Selected = 0
	}
	return n
}

func (p *Panel) SelectNext(a *volumetric.Actor) {
	n := p.clampSelection(a)
	if n == 0 {
		return
	}
	p.Selected = (p.Selected + 1) % n
}

func (p *Panel) SelectPrev(a *volumetric.Actor) {
	n := p.clampSelection(a)
	if n == 0 {
		return
	}
	p.Selected = (p.Selected - 1 + n) % n
}

// AddLayer appends a default layer and selects it.
func (p *Panel) AddLayer(a *volumetric.Actor) {
	p.Selected = a.AddLayer(noise.DefaultLayer())
}

// DeleteLayer removes the selected layer; the selection steps back one.
func (p *Panel) DeleteLayer(a *volumetric.Actor) error {
	if p.clampSelection(a) == 0 {
		return nil
	}
	if err := a.RemoveLayer(p.Selected); err != nil {
		return err
	}
	if p.Selected > 0 {
		p.Selected--
	}
	return nil
}

// editSelected applies fn to the selected layer. With no layers it does nothing.
func (p *Panel) editSelected(a *volumetric.Actor, fn func(l *noise.Layer)) error {
	if p.clampSelection(a) == 0 {
		return nil
	}
	l, err := a.Layer(p.Selected)
	if err != nil {
		return err
	}
	fn(&l)
	return a.SetLayer(p.Selected, l)
}

func (p *Panel) CycleType(a *volumetric.Actor) error {
	return p.editSelected(a, func(l *noise.Layer) { l.Type = l.Type.Next() })
}

func (p *Panel) CycleBlend(a *volumetric.Actor) error {
	return p.editSelected(a, func(l *noise.Layer) { l.Blend = l.Blend.Next() })
}

func (p *Panel) NudgeScale(a *volumetric.Actor, delta float32) error {
	return p.editSelected(a, func(l *noise.Layer) {
		l.Scale = mgl32.Clamp(l.Scale+delta, MinLayerScale, MaxLayerScale)
	})
}

func (p *Panel) NudgeOpacity(a *volumetric.Actor, delta float32) error {
	return p.editSelected(a, func(l *noise.Layer) {
		l.Opacity = mgl32.Clamp(l.Opacity+delta, -1, 1)
	})
}

func (p *Panel) NudgeOffset(a *volumetric.Actor, delta mgl32.Vec3) error {
	return p.editSelected(a, func(l *noise.Layer) {
		o := l.Offset.Add(delta)
		for i := range o {
			o[i] = mgl32.Clamp(o[i], -MaxLayerOffset, MaxLayerOffset)
		}
		l.Offset = o
	})
}

// NudgeDensity shifts the density window, both ends kept in [0, 1].
func (p *Panel) NudgeDensity(a *volumetric.Actor, minDelta, maxDelta float32) {
	a.SetMinDensity(mgl32.Clamp(a.MinDensity()+minDelta, 0, 1))
	a.SetMaxDensity(mgl32.Clamp(a.MaxDensity()+maxDelta, 0, 1))
}

func (p *Panel) NudgeStepSize(a *volumetric.Actor, delta float32) {
	a.SetStepSize(mgl32.Clamp(a.StepSize()+delta, MinStepSize, MaxStepSize))
}

func (p *Panel) Regenerate(a *volumetric.Actor) error {
	return a.Regenerate()
}

// Lines renders the panel as overlay text, one entry per line.
func (p *Panel) Lines(a *volumetric.Actor) []string {
	bbox := "off"
	if p.ShowBoundingBox {
		bbox = "on"
	}
	ts := a.TextureSize()
	lines := []string{
		"Volume Renderer",
		fmt.Sprintf("Bounding box: %s", bbox),
		fmt.Sprintf("Density: min %.2f max %.2f step %.3f", a.MinDensity(), a.MaxDensity(), a.StepSize()),
		fmt.Sprintf("Opacity %.2f alpha threshold %.2f", a.Opacity(), a.AlphaThreshold()),
		fmt.Sprintf("Light: step %.2f base %.2f absorption %.2f", a.LightMarchStepSize(), a.LightBaseIntensity(), a.LightAbsorptionCoefficient()),
		fmt.Sprintf("Texture %dx%dx%d (virtual %d)", ts[0], ts[1], ts[2], a.VirtualTextureSize()),
	}

	layers := a.Layers()
	lines = append(lines, fmt.Sprintf("Layers (%d):", len(layers)))
	for i, l := range layers {
		marker := " "
		if i == p.Selected {
			marker = ">"
		}
		lines = append(lines, fmt.Sprintf("%s %d %s %s scale %.2f opacity %.2f offset (%.1f, %.1f, %.1f)",
			marker, i, l.Type, l.Blend, l.Scale, l.Opacity, l.Offset.X(), l.Offset.Y(), l.Offset.Z()))
	}
	return lines
}
