package physics

import (
	"github.com/bytearena/box2d"

	"spark-arena/internal/handle"
)

// Solver iteration counts used by every Step
const (
	VelocityIterations = 8
	PositionIterations = 3
)

// Box2DWorld is the production World backed by github.com/bytearena/box2d.
// Gravity is zero: the arena is top-down.
type Box2DWorld struct {
	world *box2d.B2World
}

// NewBox2DWorld creates an empty zero-gravity world
func NewBox2DWorld() *Box2DWorld {
	world := box2d.MakeB2World(box2d.MakeB2Vec2(0, 0))
	return &Box2DWorld{world: &world}
}

// CreateBody adds a body to the world
func (w *Box2DWorld) CreateBody(def BodyDef) Body {
	bd := box2d.MakeB2BodyDef()
	bd.Type = toB2BodyType(def.Type)
	bd.Position = box2d.MakeB2Vec2(def.Position.X, def.Position.Y)
	bd.Angle = def.Angle
	bd.FixedRotation = def.FixedRotation
	bd.Bullet = def.Bullet
	return &box2dBody{body: w.world.CreateBody(&bd)}
}

// DestroyBody removes a body. Box2D reports EndContact for every touching
// contact of the body before it is gone.
func (w *Box2DWorld) DestroyBody(b Body) {
	bb, ok := b.(*box2dBody)
	if !ok || bb.body == nil {
		return
	}
	w.world.DestroyBody(bb.body)
	bb.body = nil
}

// Step advances the simulation by dt seconds
func (w *Box2DWorld) Step(dt float64) {
	w.world.Step(dt, VelocityIterations, PositionIterations)
}

// SetContactListener installs the single world-wide contact listener
func (w *Box2DWorld) SetContactListener(l ContactListener) {
	w.world.SetContactListener(&box2dListener{listener: l})
}

type box2dBody struct {
	body *box2d.B2Body
}

func (b *box2dBody) Position() Vec2 {
	p := b.body.GetPosition()
	return Vec2{p.X, p.Y}
}

func (b *box2dBody) Angle() float64 {
	return b.body.GetAngle()
}

func (b *box2dBody) SetTransform(pos Vec2, angle float64) {
	b.body.SetTransform(box2d.MakeB2Vec2(pos.X, pos.Y), angle)
}

func (b *box2dBody) LinearVelocity() Vec2 {
	v := b.body.GetLinearVelocity()
	return Vec2{v.X, v.Y}
}

func (b *box2dBody) SetLinearVelocity(v Vec2) {
	b.body.SetLinearVelocity(box2d.MakeB2Vec2(v.X, v.Y))
}

func (b *box2dBody) Type() BodyType {
	switch b.body.GetType() {
	case box2d.B2BodyType.B2_kinematicBody:
		return KinematicBody
	case box2d.B2BodyType.B2_dynamicBody:
		return DynamicBody
	default:
		return StaticBody
	}
}

func (b *box2dBody) SetType(t BodyType) {
	b.body.SetType(toB2BodyType(t))
}

func (b *box2dBody) CreateFixture(def FixtureDef) Fixture {
	fd := box2d.MakeB2FixtureDef()
	fd.Shape = toB2Shape(def.Shape)
	fd.IsSensor = def.Sensor
	fd.Density = def.Density
	fd.Filter.CategoryBits = def.Filter.Category
	fd.Filter.MaskBits = def.Filter.Mask
	fd.Filter.GroupIndex = def.Filter.Group
	fd.UserData = def.Tag
	return &box2dFixture{fixture: b.body.CreateFixtureFromDef(&fd)}
}

func (b *box2dBody) Contacts() []Contact {
	var out []Contact
	for edge := b.body.GetContactList(); edge != nil; edge = edge.Next {
		c := edge.Contact
		if c == nil || !c.IsTouching() {
			continue
		}
		out = append(out, Contact{A: tagOf(c.GetFixtureA()), B: tagOf(c.GetFixtureB())})
	}
	return out
}

type box2dFixture struct {
	fixture *box2d.B2Fixture
}

func (f *box2dFixture) Tag() handle.Handle { return tagOf(f.fixture) }

func (f *box2dFixture) IsSensor() bool { return f.fixture.IsSensor() }

// box2dListener forwards engine callbacks as fixture handle pairs
type box2dListener struct {
	listener ContactListener
}

func (l *box2dListener) BeginContact(contact box2d.B2ContactInterface) {
	l.listener.BeginContact(tagOf(contact.GetFixtureA()), tagOf(contact.GetFixtureB()))
}

func (l *box2dListener) EndContact(contact box2d.B2ContactInterface) {
	l.listener.EndContact(tagOf(contact.GetFixtureA()), tagOf(contact.GetFixtureB()))
}

// Contacts are only observed, never adjusted
func (l *box2dListener) PreSolve(contact box2d.B2ContactInterface, oldManifold box2d.B2Manifold) {
}

func (l *box2dListener) PostSolve(contact box2d.B2ContactInterface, impulse *box2d.B2ContactImpulse) {
}

func tagOf(f *box2d.B2Fixture) handle.Handle {
	if f == nil {
		return handle.None
	}
	if h, ok := f.GetUserData().(handle.Handle); ok {
		return h
	}
	return handle.None
}

func toB2BodyType(t BodyType) uint8 {
	switch t {
	case KinematicBody:
		return box2d.B2BodyType.B2_kinematicBody
	case DynamicBody:
		return box2d.B2BodyType.B2_dynamicBody
	default:
		return box2d.B2BodyType.B2_staticBody
	}
}

func toB2Shape(s Shape) box2d.B2ShapeInterface {
	switch shape := s.(type) {
	case Circle:
		circle := box2d.MakeB2CircleShape()
		circle.M_radius = shape.Radius
		return &circle
	case Polygon:
		verts := make([]box2d.B2Vec2, len(shape.Vertices))
		for i, v := range shape.Vertices {
			verts[i] = box2d.MakeB2Vec2(v.X, v.Y)
		}
		poly := box2d.MakeB2PolygonShape()
		poly.Set(verts, len(verts))
		return &poly
	case Box:
		poly := box2d.MakeB2PolygonShape()
		poly.SetAsBoxFromCenterAndAngle(shape.HalfWidth, shape.HalfHeight,
			box2d.MakeB2Vec2(shape.Center.X, shape.Center.Y), 0)
		return &poly
	default:
		panic("physics: unsupported shape")
	}
}
