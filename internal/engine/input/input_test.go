package input

import (
	"testing"

	"github.com/veandco/go-sdl2/sdl"
)

func keyDown(key sdl.Keycode) *sdl.KeyboardEvent {
	return &sdl.KeyboardEvent{Type: sdl.KEYDOWN, Keysym: sdl.Keysym{Sym: key}}
}

func TestHandleKeys(t *testing.T) {
	in := New()
	in.handle(keyDown(sdl.K_b))
	in.handle(keyDown(sdl.K_F12))
	in.handle(&sdl.KeyboardEvent{Type: sdl.KEYUP, Keysym: sdl.Keysym{Sym: sdl.K_s}})
	in.handle(&sdl.KeyboardEvent{Type: sdl.KEYDOWN, Repeat: 1, Keysym: sdl.Keysym{Sym: sdl.K_s}})
	in.handle(keyDown(sdl.K_q))

	want := []Action{ActionCycleBlur, ActionScreenshot}
	if len(in.state.Actions) != len(want) {
		t.Fatalf("expected %d actions, got %v", len(want), in.state.Actions)
	}
	for i, a := range want {
		if in.state.Actions[i] != a {
			t.Errorf("action %d: expected %d, got %d", i, a, in.state.Actions[i])
		}
	}
	if in.state.Quit {
		t.Error("unexpected quit")
	}
}

func TestHandleQuit(t *testing.T) {
	in := New()
	in.handle(keyDown(sdl.K_ESCAPE))
	if !in.state.Quit {
		t.Error("expected escape to quit")
	}

	in = New()
	in.handle(&sdl.QuitEvent{Type: sdl.QUIT})
	if !in.state.Quit {
		t.Error("expected quit event to quit")
	}
}

func TestHandleMouse(t *testing.T) {
	in := New()
	in.handle(&sdl.MouseMotionEvent{XRel: 5, YRel: -2, State: sdl.ButtonLMask()})
	in.handle(&sdl.MouseMotionEvent{XRel: 100, YRel: 100})
	in.handle(&sdl.MouseWheelEvent{Y: 2})
	in.handle(&sdl.MouseWheelEvent{Y: -1})

	if in.state.DragX != 5 || in.state.DragY != -2 {
		t.Errorf("expected drag (5, -2), got (%v, %v)", in.state.DragX, in.state.DragY)
	}
	if in.state.Zoom != 1 {
		t.Errorf("expected zoom 1, got %v", in.state.Zoom)
	}
}

func TestBind(t *testing.T) {
	in := New()
	in.Bind(sdl.K_q, ActionPause)
	in.handle(keyDown(sdl.K_q))
	if len(in.state.Actions) != 1 || in.state.Actions[0] != ActionPause {
		t.Errorf("expected rebound key to pause, got %v", in.state.Actions)
	}
}
