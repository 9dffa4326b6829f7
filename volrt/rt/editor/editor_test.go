package editor

import (
	"strings"
	"testing"

	"github.com/gekko3d/volumetric"
	"github.com/gekko3d/volumetric/volrt/rt/noise"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newActor() *volumetric.Actor {
	a := volumetric.NewActor(nil, nil)
	a.SetLayers(volumetric.DefaultLayers())
	return a
}

func TestToggles(t *testing.T) {
	p := NewPanel()
	require.True(t, p.Visible)
	p.Toggle()
	assert.False(t, p.Visible)
	p.Toggle()
	assert.True(t, p.Visible)

	assert.False(t, p.ShowBoundingBox)
	p.ToggleBoundingBox()
	assert.True(t, p.ShowBoundingBox)
}

func TestSelectionWraps(t *testing.T) {
	a := newActor()
	p := NewPanel()

	p.SelectNext(a)
	assert.Equal(t, 1, p.Selected)
	p.SelectNext(a)
	assert.Equal(t, 0, p.Selected)
	p.SelectPrev(a)
	assert.Equal(t, 1, p.Selected)

	// stale selection is pulled back into range
	p.Selected = 7
	p.SelectPrev(a)
	assert.Equal(t, 0, p.Selected)
}

func TestAddAndDeleteLayer(t *testing.T) {
	a := newActor()
	p := NewPanel()

	p.AddLayer(a)
	assert.Equal(t, 3, a.LayerCount())
	assert.Equal(t, 2, p.Selected)
	l, err := a.Layer(2)
	require.NoError(t, err)
	assert.Equal(t, noise.DefaultLayer(), l)

	require.NoError(t, p.DeleteLayer(a))
	assert.Equal(t, 2, a.LayerCount())
	assert.Equal(t, 1, p.Selected)

	require.NoError(t, p.DeleteLayer(a))
	require.NoError(t, p.DeleteLayer(a))
	assert.Equal(t, 0, a.LayerCount())
	assert.Equal(t, 0, p.Selected)

	// nothing left to delete or edit
	assert.NoError(t, p.DeleteLayer(a))
	assert.NoError(t, p.CycleType(a))
	assert.NoError(t, p.NudgeScale(a, 1))
}

func TestLayerEdits(t *testing.T) {
	a := newActor()
	p := NewPanel()
	p.Selected = 1

	require.NoError(t, p.CycleType(a))
	require.NoError(t, p.CycleBlend(a))
	require.NoError(t, p.NudgeOpacity(a, 5))
	require.NoError(t, p.NudgeScale(a, -100))
	require.NoError(t, p.NudgeOffset(a, mgl32.Vec3{1, 0, -1}))

	l, err := a.Layer(1)
	require.NoError(t, err)
	assert.Equal(t, noise.Worley, l.Type)
	assert.Equal(t, noise.Subtract, l.Blend)
	assert.Equal(t, float32(1), l.Opacity)
	assert.Equal(t, float32(MinLayerScale), l.Scale)
	assert.InDelta(t, 126.34, l.Offset.X(), 1e-3)
	assert.InDelta(t, 519.87, l.Offset.Z(), 1e-3)

	require.NoError(t, p.NudgeOffset(a, mgl32.Vec3{-5000, 0, 5000}))
	l, _ = a.Layer(1)
	assert.Equal(t, float32(-MaxLayerOffset), l.Offset.X())
	assert.Equal(t, float32(MaxLayerOffset), l.Offset.Z())

	// the other layer is untouched
	first, _ := a.Layer(0)
	assert.Equal(t, volumetric.DefaultLayers()[0], first)
}

func TestRenderParameterNudges(t *testing.T) {
	a := newActor()
	p := NewPanel()

	p.NudgeDensity(a, -1, 5)
	assert.Equal(t, float32(0), a.MinDensity())
	assert.Equal(t, float32(1), a.MaxDensity())

	a.SetStepSize(0.01)
	p.NudgeStepSize(a, -1)
	assert.Equal(t, float32(MinStepSize), a.StepSize())
}

func TestRegenerateNeedsInit(t *testing.T) {
	a := newActor()
	p := NewPanel()
	assert.ErrorIs(t, p.Regenerate(a), volumetric.ErrNotReady)
}

func TestLines(t *testing.T) {
	a := newActor()
	p := NewPanel()
	p.Selected = 1

	lines := p.Lines(a)
	require.NotEmpty(t, lines)
	assert.Equal(t, "Volume Renderer", lines[0])

	text := strings.Join(lines, "\n")
	assert.Contains(t, text, "Bounding box: off")
	assert.Contains(t, text, "Layers (2):")
	assert.Contains(t, text, "> 1 perlin add scale 22.00 opacity 0.20")
	assert.Contains(t, text, "  0 perlin add scale 3.00 opacity 0.60")
}
