package app

import (
	"github.com/gekko3d/volumetric"
	"github.com/gekko3d/volumetric/volrt/rt/core"
	"github.com/gekko3d/volumetric/volrt/rt/editor"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

// Action is an editor command bound to a key.
type Action int

const (
	ActionNone Action = iota
	ActionTogglePanel
	ActionToggleBounds
	ActionSelectPrev
	ActionSelectNext
	ActionAddLayer
	ActionDeleteLayer
	ActionCycleType
	ActionCycleBlend
	ActionRegenerate
	ActionOffsetXNeg
	ActionOffsetXPos
	ActionOffsetYNeg
	ActionOffsetYPos
	ActionOffsetZNeg
	ActionOffsetZPos
	ActionScaleUp
	ActionScaleDown
	ActionOpacityUp
	ActionOpacityDown
)

const (
	OffsetStep  = 1.0
	ScaleStep   = 0.25
	OpacityStep = 0.05
)

// KeyAction maps a key press to its editor action.
func KeyAction(key glfw.Key, mods glfw.ModifierKey) Action {
	if mods&glfw.ModControl != 0 {
		if key == glfw.KeyP {
			return ActionTogglePanel
		}
		return ActionNone
	}

	switch key {
	case glfw.KeyB:
		return ActionToggleBounds
	case glfw.KeyLeftBracket:
		return ActionSelectPrev
	case glfw.KeyRightBracket:
		return ActionSelectNext
	case glfw.KeyN:
		return ActionAddLayer
	case glfw.KeyDelete:
		return ActionDeleteLayer
	case glfw.KeyT:
		return ActionCycleType
	case glfw.KeyM:
		return ActionCycleBlend
	case glfw.KeyR:
		return ActionRegenerate
	case glfw.KeyLeft:
		return ActionOffsetXNeg
	case glfw.KeyRight:
		return ActionOffsetXPos
	case glfw.KeyPageDown:
		return ActionOffsetYNeg
	case glfw.KeyPageUp:
		return ActionOffsetYPos
	case glfw.KeyDown:
		return ActionOffsetZNeg
	case glfw.KeyUp:
		return ActionOffsetZPos
	case glfw.KeyEqual, glfw.KeyKPAdd:
		return ActionScaleUp
	case glfw.KeyMinus, glfw.KeyKPSubtract:
		return ActionScaleDown
	case glfw.KeyPeriod:
		return ActionOpacityUp
	case glfw.KeyComma:
		return ActionOpacityDown
	}
	return ActionNone
}

// Dispatch runs action against the actor through the panel. Layer edits
// are not regenerated until ActionRegenerate.
func Dispatch(action Action, a *volumetric.Actor, p *editor.Panel) error {
	switch action {
	case ActionTogglePanel:
		p.Toggle()
	case ActionToggleBounds:
		p.ToggleBoundingBox()
	case ActionSelectPrev:
		p.SelectPrev(a)
	case ActionSelectNext:
		p.SelectNext(a)
	case ActionAddLayer:
		p.AddLayer(a)
	case ActionDeleteLayer:
		return p.DeleteLayer(a)
	case ActionCycleType:
		return p.CycleType(a)
	case ActionCycleBlend:
		return p.CycleBlend(a)
	case ActionRegenerate:
		return p.Regenerate(a)
	case ActionOffsetXNeg:
		return p.NudgeOffset(a, mgl32.Vec3{-OffsetStep, 0, 0})
	case ActionOffsetXPos:
		return p.NudgeOffset(a, mgl32.Vec3{OffsetStep, 0, 0})
	case ActionOffsetYNeg:
		return p.NudgeOffset(a, mgl32.Vec3{0, -OffsetStep, 0})
	case ActionOffsetYPos:
		return p.NudgeOffset(a, mgl32.Vec3{0, OffsetStep, 0})
	case ActionOffsetZNeg:
		return p.NudgeOffset(a, mgl32.Vec3{0, 0, -OffsetStep})
	case ActionOffsetZPos:
		return p.NudgeOffset(a, mgl32.Vec3{0, 0, OffsetStep})
	case ActionScaleUp:
		return p.NudgeScale(a, ScaleStep)
	case ActionScaleDown:
		return p.NudgeScale(a, -ScaleStep)
	case ActionOpacityUp:
		return p.NudgeOpacity(a, OpacityStep)
	case ActionOpacityDown:
		return p.NudgeOpacity(a, -OpacityStep)
	}
	return nil
}

// FlyInput is one frame of fly camera input. Move axes are in [-1, 1],
// look deltas are in pixels.
type FlyInput struct {
	Forward float32
	Right   float32
	Up      float32
	LookX   float32
	LookY   float32
}

// Apply turns and moves cam for a frame of length dt seconds.
func (in FlyInput) Apply(cam *core.CameraState, dt float32) {
	cam.Yaw += in.LookX * cam.Sensitivity
	cam.Pitch -= in.LookY * cam.Sensitivity
	cam.ClampPitch()

	forward := cam.GetForward()
	right := cam.GetRight()
	up := mgl32.Vec3{0, 1, 0}

	move := right.Mul(in.Right).Add(up.Mul(in.Up)).Add(forward.Mul(in.Forward))
	if move.Len() > 0 {
		cam.Position = cam.Position.Add(move.Normalize().Mul(cam.Speed * dt))
	}
}

func pollFlyInput(w *glfw.Window) FlyInput {
	var in FlyInput
	if w.GetKey(glfw.KeyW) == glfw.Press {
		in.Forward += 1
	}
	if w.GetKey(glfw.KeyS) == glfw.Press {
		in.Forward -= 1
	}
	if w.GetKey(glfw.KeyD) == glfw.Press {
		in.Right += 1
	}
	if w.GetKey(glfw.KeyA) == glfw.Press {
		in.Right -= 1
	}
	if w.GetKey(glfw.KeySpace) == glfw.Press {
		in.Up += 1
	}
	if w.GetKey(glfw.KeyLeftShift) == glfw.Press {
		in.Up -= 1
	}
	return in
}
