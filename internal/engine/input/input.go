// Package input turns SDL2 events into viewer controls.
package input

import (
	"github.com/veandco/go-sdl2/sdl"
)

// Action is a discrete command bound to a key.
type Action int

const (
	ActionNone Action = iota
	ActionCycleBlur
	ActionCycleShading
	ActionToggleMipmap
	ActionCycleOutput
	ActionPause
	ActionScreenshot
)

// State is everything gathered by one Update.
type State struct {
	Quit bool

	// Mouse motion while the left button is held, in pixels.
	DragX, DragY float32
	// Wheel movement, positive away from the user.
	Zoom float32

	Actions []Action
}

// Input handles all input processing.
type Input struct {
	state    State
	bindings map[sdl.Keycode]Action
}

// New creates an input handler with the default key bindings.
func New() *Input {
	return &Input{
		bindings: map[sdl.Keycode]Action{
			sdl.K_b:   ActionCycleBlur,
			sdl.K_s:   ActionCycleShading,
			sdl.K_m:   ActionToggleMipmap,
			sdl.K_v:   ActionCycleOutput,
			sdl.K_p:   ActionPause,
			sdl.K_F12: ActionScreenshot,
		},
	}
}

// Bind maps key to action, replacing any previous binding.
func (i *Input) Bind(key sdl.Keycode, action Action) {
	i.bindings[key] = action
}

// Update drains the SDL event queue.
func (i *Input) Update() State {
	i.state = State{Actions: i.state.Actions[:0]}
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		i.handle(event)
	}
	return i.state
}

func (i *Input) handle(event sdl.Event) {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		i.state.Quit = true

	case *sdl.KeyboardEvent:
		if e.Type != sdl.KEYDOWN || e.Repeat != 0 {
			return
		}
		if e.Keysym.Sym == sdl.K_ESCAPE {
			i.state.Quit = true
			return
		}
		if a, ok := i.bindings[e.Keysym.Sym]; ok {
			i.state.Actions = append(i.state.Actions, a)
		}

	case *sdl.MouseMotionEvent:
		if e.State&sdl.ButtonLMask() != 0 {
			i.state.DragX += float32(e.XRel)
			i.state.DragY += float32(e.YRel)
		}

	case *sdl.MouseWheelEvent:
		i.state.Zoom += float32(e.Y)
	}
}
