package core

import "testing"

func TestInputFrame(t *testing.T) {
	var f InputFrame
	if f.Has(ActionFlap) {
		t.Error("zero frame should have no actions")
	}

	f.Set(ActionFlap)
	if !f.Has(ActionFlap) {
		t.Error("Set should mark the action")
	}
	if f.Has(ActionPause) {
		t.Error("unrelated action should not be set")
	}

	f.Clear()
	if f.Has(ActionFlap) {
		t.Error("Clear should remove all actions")
	}
}

func TestActionString(t *testing.T) {
	tests := map[Action]string{
		ActionNone:    "None",
		ActionFlap:    "Flap",
		ActionPause:   "Pause",
		ActionRestart: "Restart",
		ActionQuit:    "Quit",
		Action(99):    "Unknown",
	}
	for a, want := range tests {
		if got := a.String(); got != want {
			t.Errorf("Action(%d).String() = %q, expected %q", a, got, want)
		}
	}
}
