package game

import (
	"slices"

	"spark-arena/internal/handle"
	"spark-arena/internal/physics"
)

// BulletRadius is the radius of a bullet's sensor circle
const BulletRadius = 0.25

// Bullet is a short-lived sensor moving at constant velocity. It queues its
// explosion on first contact and keeps collecting touched units until the
// queue is flushed after the physics step.
type Bullet struct {
	id       string
	game     *Game
	owner    *Unit
	faction  Faction
	body     physics.Body
	tag      handle.Handle
	exploded bool // Queued for explosion; set at most once
	done     bool // Explosion has run
	touched  []*Unit
	onHit    func(target *Unit)
}

// ID returns the bullet's public identity
func (b *Bullet) ID() string { return b.id }

// Owner returns the unit that fired the bullet
func (b *Bullet) Owner() *Unit { return b.owner }

// Exploded reports whether the bullet has been queued for explosion
func (b *Bullet) Exploded() bool { return b.exploded }

// Done reports whether the explosion has been applied
func (b *Bullet) Done() bool { return b.done }

// Touched returns the units collected so far
func (b *Bullet) Touched() []*Unit { return slices.Clone(b.touched) }

// Position returns the body position; zero after the explosion
func (b *Bullet) Position() physics.Vec2 {
	if b.body == nil {
		return physics.Vec2{}
	}
	return b.body.Position()
}

// OnBeginContact collects units and queues the explosion once. Hitting the
// arena edge queues it too so stray bullets do not live forever.
func (b *Bullet) OnBeginContact(other any) {
	if b.done {
		return
	}
	switch o := other.(type) {
	case *Unit:
		if !slices.Contains(b.touched, o) {
			b.touched = append(b.touched, o)
		}
		b.requestExplode()
	case *arenaEdge:
		b.requestExplode()
	}
}

func (b *Bullet) requestExplode() {
	if b.exploded {
		return
	}
	b.exploded = true
	b.game.deferExplosion(b)
}

// explode runs from the deferred queue only, never inside a contact callback
func (b *Bullet) explode() {
	if b.done {
		return
	}
	b.done = true
	b.game.registry.Free(b.tag)
	b.game.world.DestroyBody(b.body)
	b.body = nil

	touched := b.touched
	for _, t := range touched {
		b.onHit(t)
	}
	b.game.bulletExploded(b, len(touched))
}
