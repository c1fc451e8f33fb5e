package game

import (
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/google/uuid"

	"spark-arena/internal/contact"
	"spark-arena/internal/handle"
	"spark-arena/internal/physics"
)

// Observer receives simulation counters; the metrics layer implements it
type Observer interface {
	ObserveTick(d time.Duration, enemies, bullets int)
	UnitSpawned(f Faction)
	UnitKilled(f Faction)
	BulletFired(f Faction)
	BulletExploded(touched int)
}

// NopObserver discards everything
type NopObserver struct{}

func (NopObserver) ObserveTick(time.Duration, int, int) {}
func (NopObserver) UnitSpawned(Faction)                 {}
func (NopObserver) UnitKilled(Faction)                  {}
func (NopObserver) BulletFired(Faction)                 {}
func (NopObserver) BulletExploded(int)                  {}

// Options are the optional collaborators of a Game
type Options struct {
	Events   *EventLog // Nil uses a log that is never started
	Observer Observer  // Nil uses NopObserver
}

// Game is the single authoritative world. It is not safe for concurrent
// use; Engine serializes access.
//
// Contact callbacks fire inside the physics step and only touch bookkeeping.
// Destructive effects they decide (bullet explosions, and the kills those
// cause) are queued and applied after every unit and the level have been
// stepped, in queue order.
type Game struct {
	world    physics.World
	registry *handle.Registry[any]
	contacts *contact.Dispatcher
	events   *EventLog
	observer Observer

	player  *Player
	enemies []*Unit
	bullets []*Bullet
	pending []*Bullet
	edge    physics.Body

	level     *LevelNode
	levelDone bool

	tick    uint64
	elapsed float64
	kills   int
}

// NewGame validates cfg, builds the arena and the player on world, and
// enters the level if one is configured
func NewGame(world physics.World, cfg Config, opts Options) (*Game, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid game config: %w", err)
	}

	registry := handle.NewRegistry[any]()
	g := &Game{
		world:    world,
		registry: registry,
		contacts: contact.NewDispatcher(registry),
		events:   opts.Events,
		observer: opts.Observer,
	}
	if g.events == nil {
		g.events = NewEventLog()
	}
	if g.observer == nil {
		g.observer = NopObserver{}
	}

	world.SetContactListener(g.contacts)
	g.buildArena()

	g.player = &Player{Unit: newUnit(g, FactionPlayer, cfg.Player.UnitConfig, physics.DynamicBody)}
	g.unitSpawned(g.player.Unit)

	if cfg.Level != nil {
		g.level = newLevelNode(g, cfg.Level, g.levelComplete)
		g.level.Enter()
	}
	return g, nil
}

// Step advances the world by dt seconds: physics first, then the player,
// the enemies and the level, then the deferred explosions.
func (g *Game) Step(dt float64) {
	g.tick++
	g.elapsed += dt

	g.world.Step(dt)

	g.player.Step(dt)
	for _, e := range slices.Clone(g.enemies) {
		e.Step(dt)
	}
	if g.level != nil {
		g.level.Step(dt)
	}

	g.flushExplosions()
	g.reap()
}

// OnKeyDown handles a pressed key code. Unknown codes return false.
func (g *Game) OnKeyDown(code string) bool {
	k := ParseKey(code)
	if k == KeyUnknown {
		return false
	}
	g.player.KeyDown(k)
	return true
}

// OnKeyUp handles a released key code. Unknown codes return false.
func (g *Game) OnKeyUp(code string) bool {
	k := ParseKey(code)
	if k == KeyUnknown {
		return false
	}
	g.player.KeyUp(k)
	return true
}

// AddEnemy validates cfg and spawns an enemy that hunts the player
func (g *Game) AddEnemy(cfg EnemyConfig) (*Unit, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid enemy: %w", err)
	}
	return g.spawnEnemy(cfg, nil), nil
}

// spawnEnemy implements enemySpawner; cfg must already be validated
func (g *Game) spawnEnemy(cfg EnemyConfig, onKilled func()) *Unit {
	u := newUnit(g, FactionEnemy, cfg.UnitConfig, physics.KinematicBody)
	u.ai = true
	u.SetTarget(g.player.Unit)
	if onKilled != nil {
		u.onKilled = func(*Unit) { onKilled() }
	}
	g.enemies = append(g.enemies, u)
	state := cfg.State
	u.setBehavior(&state)
	g.unitSpawned(u)
	return u
}

// spawnBullet launches a bullet from the owner's front along its facing
func (g *Game) spawnBullet(owner *Unit, speed float64, onHit func(*Unit)) *Bullet {
	angle := owner.Angle()
	start := owner.Position().Add(physics.FromAngle(angle, owner.size))

	b := &Bullet{
		id:      uuid.NewString(),
		game:    g,
		owner:   owner,
		faction: owner.faction,
		onHit:   onHit,
	}
	b.tag = g.registry.Register(b)
	b.body = g.world.CreateBody(physics.BodyDef{
		Type:          physics.DynamicBody,
		Position:      start,
		Angle:         angle,
		FixedRotation: true,
		Bullet:        true,
	})
	b.body.CreateFixture(physics.FixtureDef{
		Shape:   physics.Circle{Radius: BulletRadius},
		Filter:  missileFilter(owner.faction),
		Sensor:  true,
		Density: 1,
		Tag:     b.tag,
	})
	b.body.SetLinearVelocity(physics.FromAngle(angle, speed))
	g.bullets = append(g.bullets, b)

	g.observer.BulletFired(owner.faction)
	g.events.EmitSimple(EventTypeBulletFired, g.tick, "", BulletPayload{
		BulletID: b.id,
		OwnerID:  owner.id,
		X:        start.X,
		Y:        start.Y,
	})
	return b
}

// deferExplosion queues b for the end of the tick
func (g *Game) deferExplosion(b *Bullet) {
	g.pending = append(g.pending, b)
}

// flushExplosions applies queued explosions in the order they were queued
func (g *Game) flushExplosions() {
	for i := 0; i < len(g.pending); i++ {
		g.pending[i].explode()
	}
	clear(g.pending)
	g.pending = g.pending[:0]
}

// reap drops destroyed enemies and exploded bullets
func (g *Game) reap() {
	g.enemies = slices.DeleteFunc(g.enemies, func(u *Unit) bool { return u.destroyed })
	g.bullets = slices.DeleteFunc(g.bullets, func(b *Bullet) bool { return b.done })
}

func (g *Game) unitSpawned(u *Unit) {
	pos := u.Position()
	if u.faction == FactionEnemy {
		log.Printf("👾 Enemy %s spawned at (%.1f, %.1f)", u.id[:8], pos.X, pos.Y)
	}
	g.observer.UnitSpawned(u.faction)
	g.events.EmitSimple(EventTypeSpawn, g.tick, "", SpawnPayload{
		UnitID:  u.id,
		Faction: u.faction.String(),
		X:       pos.X,
		Y:       pos.Y,
		HP:      u.hp,
	})
}

func (g *Game) unitDamaged(u *Unit, amount int) {
	g.events.EmitSimple(EventTypeDamage, g.tick, u.id, DamagePayload{
		VictimID: u.id,
		Damage:   amount,
		VictimHP: u.hp,
	})
}

func (g *Game) unitKilled(u *Unit) {
	if u.faction == FactionEnemy {
		g.kills++
		log.Printf("💀 Enemy %s killed (%d kills)", u.id[:8], g.kills)
	} else {
		log.Printf("💀 Player down at tick %d", g.tick)
	}
	g.observer.UnitKilled(u.faction)
	g.events.EmitSimple(EventTypeKill, g.tick, "", KillPayload{
		VictimID: u.id,
		Faction:  u.faction.String(),
		Kills:    g.kills,
	})
}

func (g *Game) bulletExploded(b *Bullet, touched int) {
	g.observer.BulletExploded(touched)
	g.events.EmitSimple(EventTypeBulletExploded, g.tick, "", BulletPayload{
		BulletID: b.id,
		OwnerID:  b.owner.id,
		Touched:  touched,
	})
}

func (g *Game) levelComplete() {
	g.levelDone = true
	log.Printf("🏁 Level complete after %.1fs with %d kills", g.elapsed, g.kills)
	g.events.EmitSimple(EventTypeLevelComplete, g.tick, "", LevelPayload{
		Kills:   g.kills,
		Elapsed: g.elapsed,
	})
}

// Close leaves the level so no further spawns happen
func (g *Game) Close() {
	if g.level != nil {
		g.level.Leave()
	}
}

// Player returns the player unit
func (g *Game) Player() *Player { return g.player }

// Enemies returns the live enemies in spawn order
func (g *Game) Enemies() []*Unit {
	out := make([]*Unit, 0, len(g.enemies))
	for _, e := range g.enemies {
		if !e.destroyed {
			out = append(out, e)
		}
	}
	return out
}

// Bullets returns the bullets that have not exploded yet
func (g *Game) Bullets() []*Bullet {
	out := make([]*Bullet, 0, len(g.bullets))
	for _, b := range g.bullets {
		if !b.done {
			out = append(out, b)
		}
	}
	return out
}

// PendingExplosions returns how many bullets are queued right now
func (g *Game) PendingExplosions() int { return len(g.pending) }

// Level returns the root level node, or nil
func (g *Game) Level() *LevelNode { return g.level }

// LevelDone reports whether the root level node has completed
func (g *Game) LevelDone() bool { return g.levelDone }

// Kills returns the number of enemies destroyed
func (g *Game) Kills() int { return g.kills }

// Tick returns the number of steps taken
func (g *Game) Tick() uint64 { return g.tick }

// Elapsed returns simulated seconds
func (g *Game) Elapsed() float64 { return g.elapsed }

