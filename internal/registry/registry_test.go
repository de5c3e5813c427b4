package registry

import (
	"errors"
	"testing"

	"github.com/vovakirdan/flappy-rl/internal/games/flappy"
)

type constPolicy struct {
	id     string
	action flappy.Action
}

func (p constPolicy) ID() string                           { return p.id }
func (p constPolicy) Description() string                  { return "always " + p.action.String() }
func (p constPolicy) Act(flappy.Observation) flappy.Action { return p.action }

func TestRegisterAndCreate(t *testing.T) {
	Register("test-const-flap", func(int64) Policy {
		return constPolicy{id: "test-const-flap", action: flappy.ActionFlap}
	})

	if !Exists("test-const-flap") {
		t.Fatal("registered policy should exist")
	}

	p, err := Create("test-const-flap", 1)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if p.Act(flappy.Observation{}) != flappy.ActionFlap {
		t.Error("created policy does not behave as registered")
	}

	found := false
	for _, info := range List() {
		if info.ID == "test-const-flap" {
			found = true
			if info.Description != "always flap" {
				t.Errorf("description = %q", info.Description)
			}
		}
	}
	if !found {
		t.Error("List() should include the registered policy")
	}
}

func TestCreateUnknown(t *testing.T) {
	if _, err := Create("no-such-policy", 1); !errors.Is(err, ErrUnknownPolicy) {
		t.Errorf("Create() error = %v, expected ErrUnknownPolicy", err)
	}
	if Exists("no-such-policy") {
		t.Error("Exists should be false for unknown ids")
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	f := func(int64) Policy { return constPolicy{id: "test-dup"} }
	Register("test-dup", f)

	defer func() {
		if recover() == nil {
			t.Error("duplicate Register should panic")
		}
	}()
	Register("test-dup", f)
}

func TestListSorted(t *testing.T) {
	Register("test-b", func(int64) Policy { return constPolicy{id: "test-b"} })
	Register("test-a", func(int64) Policy { return constPolicy{id: "test-a"} })

	list := List()
	for i := 1; i < len(list); i++ {
		if list[i-1].ID >= list[i].ID {
			t.Fatalf("List() not sorted: %q before %q", list[i-1].ID, list[i].ID)
		}
	}
}
