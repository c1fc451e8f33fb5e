package game

import "spark-arena/internal/physics"

// Arena extents. Walls confine the player; the outer edge catches bullets.
const (
	WallHalfWidth  = 25.0
	WallHalfHeight = 33.0
	EdgeHalfWidth  = 35.0
	EdgeHalfHeight = 43.0
	borderHalf     = 1.0
)

// arenaEdge is the object registered behind the edge sensor
type arenaEdge struct{}

// Rect is an axis-aligned box given by center and half extents
type Rect struct {
	Center                physics.Vec2
	HalfWidth, HalfHeight float64
}

// borders returns the four boxes framing a hw by hh rectangle
func borders(hw, hh float64) []Rect {
	return []Rect{
		{Center: physics.Vec2{X: 0, Y: -hh}, HalfWidth: hw, HalfHeight: borderHalf},
		{Center: physics.Vec2{X: 0, Y: hh}, HalfWidth: hw, HalfHeight: borderHalf},
		{Center: physics.Vec2{X: -hw, Y: 0}, HalfWidth: borderHalf, HalfHeight: hh},
		{Center: physics.Vec2{X: hw, Y: 0}, HalfWidth: borderHalf, HalfHeight: hh},
	}
}

// Walls returns the wall boxes, used by renderers
func Walls() []Rect { return borders(WallHalfWidth, WallHalfHeight) }

// Edges returns the edge sensor boxes
func Edges() []Rect { return borders(EdgeHalfWidth, EdgeHalfHeight) }

// buildArena creates the static wall body and the static edge sensor body
func (g *Game) buildArena() {
	walls := g.world.CreateBody(physics.BodyDef{Type: physics.StaticBody, FixedRotation: true})
	for _, r := range Walls() {
		walls.CreateFixture(physics.FixtureDef{
			Shape:   physics.Box{HalfWidth: r.HalfWidth, HalfHeight: r.HalfHeight, Center: r.Center},
			Filter:  wallFilter,
			Density: 1,
		})
	}

	edgeTag := g.registry.Register(&arenaEdge{})
	edge := g.world.CreateBody(physics.BodyDef{Type: physics.StaticBody, FixedRotation: true})
	for _, r := range Edges() {
		edge.CreateFixture(physics.FixtureDef{
			Shape:   physics.Box{HalfWidth: r.HalfWidth, HalfHeight: r.HalfHeight, Center: r.Center},
			Filter:  edgeFilter,
			Sensor:  true,
			Density: 1,
			Tag:     edgeTag,
		})
	}
	g.edge = edge
}
