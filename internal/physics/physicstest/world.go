// Package physicstest provides a scriptable physics.World for tests.
//
// Bodies integrate position from velocity on Step, but no geometry is
// evaluated: tests decide which fixture pairs touch with Touch and Separate.
// Filtering, contact lists and destroy-time EndContact follow the engine.
package physicstest

import (
	"slices"

	"spark-arena/internal/handle"
	"spark-arena/internal/physics"
)

// World is an in-memory physics.World
type World struct {
	bodies   []*Body
	touching []pair
	listener physics.ContactListener

	// OnStep runs inside Step after integration, standing in for the
	// engine's collision pass. Touch/Separate called from it are delivered
	// exactly like engine callbacks.
	OnStep func(w *World)

	Steps     int
	Destroyed int
}

type pair struct {
	a, b *Fixture
}

// New creates an empty world
func New() *World {
	return &World{}
}

// Body is a body in the fake world
type Body struct {
	world     *World
	def       physics.BodyDef
	pos       physics.Vec2
	vel       physics.Vec2
	angle     float64
	typ       physics.BodyType
	fixtures  []*Fixture
	destroyed bool
}

// Fixture is a fixture in the fake world
type Fixture struct {
	body *Body
	def  physics.FixtureDef
}

// Tag returns the fixture's handle
func (f *Fixture) Tag() handle.Handle { return f.def.Tag }

// IsSensor reports whether the fixture is a sensor
func (f *Fixture) IsSensor() bool { return f.def.Sensor }

// Def returns the definition the fixture was created from
func (f *Fixture) Def() physics.FixtureDef { return f.def }

// Body returns the fixture's body
func (f *Fixture) Body() *Body { return f.body }

// CreateBody implements physics.World
func (w *World) CreateBody(def physics.BodyDef) physics.Body {
	b := &Body{
		world: w,
		def:   def,
		pos:   def.Position,
		angle: def.Angle,
		typ:   def.Type,
	}
	w.bodies = append(w.bodies, b)
	return b
}

// DestroyBody implements physics.World. Touching contacts of the body end
// first, as the engine does.
func (w *World) DestroyBody(pb physics.Body) {
	b, ok := pb.(*Body)
	if !ok || b.destroyed {
		return
	}
	for _, p := range w.touchingOf(b) {
		w.Separate(p.a, p.b)
	}
	b.destroyed = true
	w.Destroyed++
	w.bodies = slices.DeleteFunc(w.bodies, func(o *Body) bool { return o == b })
}

// Step implements physics.World
func (w *World) Step(dt float64) {
	w.Steps++
	for _, b := range w.bodies {
		if b.typ == physics.StaticBody {
			continue
		}
		b.pos = b.pos.Add(b.vel.Scale(dt))
	}
	if w.OnStep != nil {
		w.OnStep(w)
	}
}

// SetContactListener implements physics.World
func (w *World) SetContactListener(l physics.ContactListener) {
	w.listener = l
}

// Bodies returns the live bodies in creation order
func (w *World) Bodies() []*Body {
	return slices.Clone(w.bodies)
}

// FixtureByTag finds a live fixture by its handle
func (w *World) FixtureByTag(h handle.Handle) *Fixture {
	for _, b := range w.bodies {
		for _, f := range b.fixtures {
			if f.def.Tag == h {
				return f
			}
		}
	}
	return nil
}

// Touch begins a contact between a and b. It returns false when the pair is
// already touching, filtered out, on the same body, or on a destroyed body.
func (w *World) Touch(a, b *Fixture) bool {
	if a == nil || b == nil || a.body == b.body || a.body.destroyed || b.body.destroyed {
		return false
	}
	if !physics.ShouldCollide(a.def.Filter, b.def.Filter) {
		return false
	}
	if w.indexOf(a, b) >= 0 {
		return false
	}
	w.touching = append(w.touching, pair{a, b})
	if w.listener != nil {
		w.listener.BeginContact(a.def.Tag, b.def.Tag)
	}
	return true
}

// Separate ends a contact between a and b. It returns false when they were
// not touching.
func (w *World) Separate(a, b *Fixture) bool {
	i := w.indexOf(a, b)
	if i < 0 {
		return false
	}
	p := w.touching[i]
	w.touching = slices.Delete(w.touching, i, i+1)
	if w.listener != nil {
		w.listener.EndContact(p.a.def.Tag, p.b.def.Tag)
	}
	return true
}

// Touching reports whether a and b are in contact
func (w *World) Touching(a, b *Fixture) bool {
	return w.indexOf(a, b) >= 0
}

func (w *World) indexOf(a, b *Fixture) int {
	return slices.IndexFunc(w.touching, func(p pair) bool {
		return (p.a == a && p.b == b) || (p.a == b && p.b == a)
	})
}

func (w *World) touchingOf(b *Body) []pair {
	var out []pair
	for _, p := range w.touching {
		if p.a.body == b || p.b.body == b {
			out = append(out, p)
		}
	}
	return out
}

// Position implements physics.Body
func (b *Body) Position() physics.Vec2 { return b.pos }

// Angle implements physics.Body
func (b *Body) Angle() float64 { return b.angle }

// SetTransform implements physics.Body
func (b *Body) SetTransform(pos physics.Vec2, angle float64) {
	b.pos = pos
	b.angle = angle
}

// LinearVelocity implements physics.Body
func (b *Body) LinearVelocity() physics.Vec2 { return b.vel }

// SetLinearVelocity implements physics.Body
func (b *Body) SetLinearVelocity(v physics.Vec2) { b.vel = v }

// Type implements physics.Body
func (b *Body) Type() physics.BodyType { return b.typ }

// SetType implements physics.Body
func (b *Body) SetType(t physics.BodyType) { b.typ = t }

// CreateFixture implements physics.Body
func (b *Body) CreateFixture(def physics.FixtureDef) physics.Fixture {
	f := &Fixture{body: b, def: def}
	b.fixtures = append(b.fixtures, f)
	return f
}

// Contacts implements physics.Body
func (b *Body) Contacts() []physics.Contact {
	var out []physics.Contact
	for _, p := range b.world.touchingOf(b) {
		out = append(out, physics.Contact{A: p.a.def.Tag, B: p.b.def.Tag})
	}
	return out
}

// Fixtures returns the body's fixtures in creation order
func (b *Body) Fixtures() []*Fixture {
	return slices.Clone(b.fixtures)
}

// Def returns the definition the body was created from
func (b *Body) Def() physics.BodyDef { return b.def }

// Destroyed reports whether DestroyBody was called on b
func (b *Body) Destroyed() bool { return b.destroyed }
