package combat

import (
	"reflect"
	"testing"
)

func TestSetTargetRefreshesIndicators(t *testing.T) {
	ind := &recordingIndicator{}
	m := NewTargetManager(ind)
	a, b := newFakeShip("a", 0), newFakeShip("b", 0)

	m.SetTarget(a)
	m.SetTarget(b)
	m.SetTarget(b)
	m.ClearTarget()

	want := []string{"+a", "-a", "+b", "-b", "+b", "-b"}
	if !reflect.DeepEqual(ind.calls, want) {
		t.Errorf("Expected indicator calls %v, got %v", want, ind.calls)
	}
	if m.Current() != nil || m.CurrentID() != "" {
		t.Errorf("Expected no target, got %q", m.CurrentID())
	}
}

func TestAutoTargetNeverOverrides(t *testing.T) {
	m := NewTargetManager(nil)
	chosen, attacker := newFakeShip("chosen", 0), newFakeShip("attacker", 0)

	if !m.AutoTarget(attacker) {
		t.Fatal("Expected auto-target with no selection")
	}
	m.SetTarget(chosen)
	if m.AutoTarget(attacker) {
		t.Error("Expected auto-target to leave a deliberate target alone")
	}
	if m.CurrentID() != "chosen" {
		t.Errorf("Expected target 'chosen', got %q", m.CurrentID())
	}
}

func TestAutoTargetIgnoresDestroyedAttacker(t *testing.T) {
	m := NewTargetManager(nil)
	attacker := newFakeShip("attacker", 0)
	attacker.Destroy()
	if m.AutoTarget(attacker) || m.Current() != nil {
		t.Error("Expected destroyed attacker to be ignored")
	}
	if m.AutoTarget(nil) {
		t.Error("Expected nil attacker to be ignored")
	}
}

func TestUpdateClearsDestroyedTarget(t *testing.T) {
	ind := &recordingIndicator{}
	m := NewTargetManager(ind)
	b := newFakeShip("b", 0)
	m.SetTarget(b)

	m.Update()
	if m.CurrentID() != "b" {
		t.Fatalf("Expected live target to stay, got %q", m.CurrentID())
	}

	b.Destroy()
	m.Update()
	if m.Current() != nil {
		t.Errorf("Expected destroyed target to be cleared, got %q", m.CurrentID())
	}
	if last := ind.calls[len(ind.calls)-1]; last != "-b" {
		t.Errorf("Expected indicator cleared last, got %q", last)
	}
}

func TestTargetExclusivity(t *testing.T) {
	m := NewTargetManager(nil)
	ships := []*fakeShip{newFakeShip("a", 0), newFakeShip("b", 0), newFakeShip("c", 0)}
	ops := []func(){
		func() { m.SetTarget(ships[0]) },
		func() { m.AutoTarget(ships[1]) },
		func() { m.ClearTarget() },
		func() { m.AutoTarget(ships[2]) },
		func() { m.SetTarget(ships[1]) },
		func() { m.AutoTarget(ships[0]) },
	}
	for i, op := range ops {
		op()
		id := m.CurrentID()
		matches := 0
		for _, s := range ships {
			if s.id == id {
				matches++
			}
		}
		if id != "" && matches != 1 {
			t.Fatalf("step %d: expected exactly one matching ship for %q, got %d", i, id, matches)
		}
	}
	if m.CurrentID() != "b" {
		t.Errorf("Expected final target 'b', got %q", m.CurrentID())
	}
}
