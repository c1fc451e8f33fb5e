package physicstest

import (
	"testing"

	"spark-arena/internal/handle"
	"spark-arena/internal/physics"
)

type countingListener struct {
	begins, ends int
}

func (l *countingListener) BeginContact(a, b handle.Handle) { l.begins++ }
func (l *countingListener) EndContact(a, b handle.Handle)   { l.ends++ }

func newPair(w *World) (*Fixture, *Fixture) {
	a := w.CreateBody(physics.BodyDef{Type: physics.DynamicBody})
	b := w.CreateBody(physics.BodyDef{Type: physics.KinematicBody})
	fa := a.CreateFixture(physics.FixtureDef{Filter: physics.Filter{Category: 1, Mask: 2}, Tag: 1}).(*Fixture)
	fb := b.CreateFixture(physics.FixtureDef{Filter: physics.Filter{Category: 2, Mask: 1}, Tag: 2}).(*Fixture)
	return fa, fb
}

// TestTouchSeparate verifies contact episodes reach the listener once each
func TestTouchSeparate(t *testing.T) {
	w := New()
	l := &countingListener{}
	w.SetContactListener(l)
	fa, fb := newPair(w)

	if !w.Touch(fa, fb) {
		t.Fatal("Expected first touch to begin a contact")
	}
	if w.Touch(fb, fa) {
		t.Error("Touching an already touching pair should be a no-op")
	}
	if l.begins != 1 {
		t.Errorf("Expected 1 begin, got %d", l.begins)
	}
	if n := len(fa.Body().Contacts()); n != 1 {
		t.Errorf("Expected 1 contact, got %d", n)
	}

	if !w.Separate(fa, fb) {
		t.Fatal("Expected separate to end the contact")
	}
	if w.Separate(fa, fb) {
		t.Error("Separating twice should be a no-op")
	}
	if l.ends != 1 {
		t.Errorf("Expected 1 end, got %d", l.ends)
	}
}

// TestTouchRespectsFilter verifies filtered pairs never begin contacts
func TestTouchRespectsFilter(t *testing.T) {
	w := New()
	a := w.CreateBody(physics.BodyDef{})
	b := w.CreateBody(physics.BodyDef{})
	fa := a.CreateFixture(physics.FixtureDef{Filter: physics.Filter{Category: 1, Mask: 1, Group: -1}}).(*Fixture)
	fb := b.CreateFixture(physics.FixtureDef{Filter: physics.Filter{Category: 1, Mask: 1, Group: -1}}).(*Fixture)

	if w.Touch(fa, fb) {
		t.Error("Same negative group should never touch")
	}
}

// TestDestroyEndsContacts verifies destroying a body ends its touching contacts
func TestDestroyEndsContacts(t *testing.T) {
	w := New()
	l := &countingListener{}
	w.SetContactListener(l)
	fa, fb := newPair(w)
	w.Touch(fa, fb)

	w.DestroyBody(fb.Body())

	if l.ends != 1 {
		t.Errorf("Expected 1 end on destroy, got %d", l.ends)
	}
	if !fb.Body().Destroyed() {
		t.Error("Body should be marked destroyed")
	}
	if w.Touch(fa, fb) {
		t.Error("Destroyed body should not touch")
	}
	if len(w.Bodies()) != 1 {
		t.Errorf("Expected 1 live body, got %d", len(w.Bodies()))
	}
}

// TestStepIntegratesVelocity verifies non-static bodies move by velocity
func TestStepIntegratesVelocity(t *testing.T) {
	w := New()
	b := w.CreateBody(physics.BodyDef{Type: physics.KinematicBody, Position: physics.Vec2{X: 1}})
	s := w.CreateBody(physics.BodyDef{Type: physics.StaticBody})
	b.SetLinearVelocity(physics.Vec2{X: 2, Y: -4})
	s.SetLinearVelocity(physics.Vec2{X: 5})

	hooked := 0
	w.OnStep = func(*World) { hooked++ }
	w.Step(0.5)

	if p := b.Position(); p != (physics.Vec2{X: 2, Y: -2}) {
		t.Errorf("Expected (2,-2), got %v", p)
	}
	if p := s.Position(); p != (physics.Vec2{}) {
		t.Errorf("Static body should not move, got %v", p)
	}
	if hooked != 1 {
		t.Errorf("Expected OnStep to run once, got %d", hooked)
	}
}
