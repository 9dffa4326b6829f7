package app

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gekko3d/volumetric"
	"github.com/gekko3d/volumetric/volrt/rt/core"
	"github.com/gekko3d/volumetric/volrt/rt/editor"
	"github.com/gekko3d/volumetric/volrt/rt/noise"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyAction(t *testing.T) {
	cases := []struct {
		key  glfw.Key
		mods glfw.ModifierKey
		want Action
	}{
		{glfw.KeyP, glfw.ModControl, ActionTogglePanel},
		{glfw.KeyP, 0, ActionNone},
		{glfw.KeyB, glfw.ModControl, ActionNone},
		{glfw.KeyB, 0, ActionToggleBounds},
		{glfw.KeyLeftBracket, 0, ActionSelectPrev},
		{glfw.KeyRightBracket, 0, ActionSelectNext},
		{glfw.KeyN, 0, ActionAddLayer},
		{glfw.KeyDelete, 0, ActionDeleteLayer},
		{glfw.KeyT, 0, ActionCycleType},
		{glfw.KeyM, 0, ActionCycleBlend},
		{glfw.KeyR, 0, ActionRegenerate},
		{glfw.KeyPageUp, 0, ActionOffsetYPos},
		{glfw.KeyKPAdd, 0, ActionScaleUp},
		{glfw.KeyMinus, 0, ActionScaleDown},
		{glfw.KeyComma, 0, ActionOpacityDown},
		{glfw.KeyW, 0, ActionNone},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, KeyAction(c.key, c.mods), "key %d mods %d", c.key, c.mods)
	}
}

func TestDispatch(t *testing.T) {
	a := volumetric.NewActor(nil, nil)
	a.SetLayers(volumetric.DefaultLayers())
	p := editor.NewPanel()

	require.NoError(t, Dispatch(ActionTogglePanel, a, p))
	assert.False(t, p.Visible)

	require.NoError(t, Dispatch(ActionAddLayer, a, p))
	assert.Equal(t, 3, a.LayerCount())
	assert.Equal(t, 2, p.Selected)

	require.NoError(t, Dispatch(ActionOffsetZPos, a, p))
	require.NoError(t, Dispatch(ActionScaleUp, a, p))
	require.NoError(t, Dispatch(ActionCycleBlend, a, p))
	l, err := a.Layer(2)
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec3{0, 0, OffsetStep}, l.Offset)
	assert.Equal(t, float32(1+ScaleStep), l.Scale)
	assert.Equal(t, noise.Subtract, l.Blend)

	// the actor was never initialized
	assert.True(t, errors.Is(Dispatch(ActionRegenerate, a, p), volumetric.ErrNotReady))

	require.NoError(t, Dispatch(ActionDeleteLayer, a, p))
	assert.Equal(t, 2, a.LayerCount())
	assert.NoError(t, Dispatch(ActionNone, a, p))
}

func TestFlyInput(t *testing.T) {
	cam := core.NewCameraState()
	start := cam.Position

	FlyInput{Forward: 1}.Apply(cam, 0.5)
	moved := cam.Position.Sub(start)
	assert.InDelta(t, cam.Speed*0.5, moved.Len(), 1e-4)
	assert.Less(t, moved.Z(), float32(0))

	// no input, no movement
	pos := cam.Position
	FlyInput{}.Apply(cam, 1)
	assert.Equal(t, pos, cam.Position)

	FlyInput{LookY: -1e6}.Apply(cam, 0)
	assert.Less(t, cam.Pitch, float32(1.571))
}

func TestProfiler(t *testing.T) {
	p := NewProfiler()
	err := p.Measure("regenerate", func() error {
		time.Sleep(time.Millisecond)
		return nil
	})
	require.NoError(t, err)
	p.BeginScope("frame")
	p.EndScope("frame")
	p.BeginScope("regenerate")
	p.SetCount("voxels", 4096)

	assert.Equal(t, []string{"regenerate", "frame"}, p.Order)
	assert.GreaterOrEqual(t, p.Scopes["regenerate"], time.Millisecond)

	stats := p.GetStatsString()
	assert.True(t, strings.Contains(stats, "voxels"))
	assert.True(t, strings.Index(stats, "regenerate") < strings.Index(stats, "frame"))

	boom := errors.New("boom")
	assert.ErrorIs(t, p.Measure("x", func() error { return boom }), boom)
}
