// Package physics is the narrow contract between the simulation and the rigid
// body engine. The simulation never sees engine types: bodies are driven
// kinematically, fixtures carry a handle.Handle as their only user data, and
// contact callbacks deliver the two fixture handles.
package physics

import (
	"math"

	"spark-arena/internal/handle"
)

// Vec2 is a 2D vector in world units
type Vec2 struct {
	X, Y float64
}

// Add returns v + o
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

// Sub returns v - o
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

// Scale returns v * s
func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }

// Len returns the vector length
func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Y) }

// Angle returns the direction of v in radians
func (v Vec2) Angle() float64 { return math.Atan2(v.Y, v.X) }

// Rotate returns v rotated by angle radians
func (v Vec2) Rotate(angle float64) Vec2 {
	sin, cos := math.Sincos(angle)
	return Vec2{v.X*cos - v.Y*sin, v.X*sin + v.Y*cos}
}

// FromAngle returns a vector of length l pointing along angle
func FromAngle(angle, l float64) Vec2 {
	sin, cos := math.Sincos(angle)
	return Vec2{cos * l, sin * l}
}

// BodyType selects how the engine moves a body
type BodyType uint8

const (
	StaticBody    BodyType = iota // Never moves
	KinematicBody                 // Moves only by its velocity, ignores forces
	DynamicBody                   // Fully simulated
)

// String returns a readable body type
func (t BodyType) String() string {
	switch t {
	case StaticBody:
		return "static"
	case KinematicBody:
		return "kinematic"
	case DynamicBody:
		return "dynamic"
	default:
		return "unknown"
	}
}

// Filter decides which fixture pairs generate contacts at all.
// Two fixtures with the same non-zero group always (positive) or never
// (negative) collide; otherwise each side's category must be in the other's mask.
type Filter struct {
	Category uint16
	Mask     uint16
	Group    int16
}

// ShouldCollide reports whether fixtures with filters a and b produce
// contacts under the engine's filtering rule
func ShouldCollide(a, b Filter) bool {
	if a.Group == b.Group && a.Group != 0 {
		return a.Group > 0
	}
	return a.Mask&b.Category != 0 && b.Mask&a.Category != 0
}

// Shape is a fixture geometry in body-local coordinates
type Shape interface {
	isShape()
}

// Circle is a circle centered on the body origin
type Circle struct {
	Radius float64
}

// Polygon is a convex polygon
type Polygon struct {
	Vertices []Vec2
}

// Box is an axis-aligned box with half extents offset by Center
type Box struct {
	HalfWidth  float64
	HalfHeight float64
	Center     Vec2
}

func (Circle) isShape()  {}
func (Polygon) isShape() {}
func (Box) isShape()     {}

// BodyDef describes a body to create
type BodyDef struct {
	Type          BodyType
	Position      Vec2
	Angle         float64
	FixedRotation bool
	Bullet        bool // Continuous collision for fast movers
}

// FixtureDef describes a fixture attached to a body
type FixtureDef struct {
	Shape   Shape
	Filter  Filter
	Sensor  bool
	Density float64
	Tag     handle.Handle // Only user data the engine ever stores
}

// Contact is a currently touching fixture pair
type Contact struct {
	A, B handle.Handle
}

// Fixture is an attached collision shape
type Fixture interface {
	Tag() handle.Handle
	IsSensor() bool
}

// Body is a rigid body owned by a World
type Body interface {
	Position() Vec2
	Angle() float64
	SetTransform(pos Vec2, angle float64)
	LinearVelocity() Vec2
	SetLinearVelocity(v Vec2)
	Type() BodyType
	SetType(t BodyType)
	CreateFixture(def FixtureDef) Fixture
	// Contacts enumerates the body's touching contacts at this moment
	Contacts() []Contact
}

// ContactListener receives begin/end callbacks during World.Step and when a
// body with touching contacts is destroyed. Implementations must not destroy
// bodies from inside a callback.
type ContactListener interface {
	BeginContact(a, b handle.Handle)
	EndContact(a, b handle.Handle)
}

// World is a physics world
type World interface {
	CreateBody(def BodyDef) Body
	DestroyBody(b Body)
	Step(dt float64)
	SetContactListener(l ContactListener)
}
