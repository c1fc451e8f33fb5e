package game

import (
	"math"
	"slices"

	"github.com/google/uuid"

	"spark-arena/internal/handle"
	"spark-arena/internal/physics"
)

// Unit is the base combat entity. Position, angle and velocity live on the
// physics body; everything else is owned here.
type Unit struct {
	id      string
	game    *Game
	faction Faction
	body    physics.Body
	handles []handle.Handle

	size  float64
	speed float64
	hp    int
	maxHP int

	destroyed bool
	inRange   []rangeEntry // Attack-range multiset, insertion ordered
	shoot     *ShootMethod
	behavior  *Behavior
	target    *Unit
	ai        bool // Auto start/stop shooting from WorthFiring
	onKilled  func(*Unit)
}

// rangeEntry counts overlaps between the attack cone and one unit
type rangeEntry struct {
	unit  *Unit
	count int
}

// attackRange is the object registered behind a unit's cone sensor
type attackRange struct {
	owner *Unit
}

// OnBeginContact counts a new overlap with another unit
func (r *attackRange) OnBeginContact(other any) {
	if u, ok := other.(*Unit); ok {
		r.owner.enterRange(u)
	}
}

// OnEndContact drops one overlap with another unit
func (r *attackRange) OnEndContact(other any) {
	if u, ok := other.(*Unit); ok {
		r.owner.leaveRange(u)
	}
}

// newUnit creates the body with a solid circle and a cone sensor, both
// registered under fresh handles. cfg must already be validated.
func newUnit(g *Game, faction Faction, cfg UnitConfig, bodyType physics.BodyType) *Unit {
	u := &Unit{
		id:      uuid.NewString(),
		game:    g,
		faction: faction,
		size:    cfg.Size,
		speed:   cfg.Speed,
		hp:      cfg.HP,
		maxHP:   cfg.HP,
	}

	u.body = g.world.CreateBody(physics.BodyDef{
		Type:          bodyType,
		Position:      physics.Vec2{X: cfg.X, Y: cfg.Y},
		Angle:         cfg.Angle,
		FixedRotation: true,
	})

	solid := g.registry.Register(u)
	u.body.CreateFixture(physics.FixtureDef{
		Shape:   physics.Circle{Radius: cfg.Size},
		Filter:  solidFilter(faction),
		Density: 1,
		Tag:     solid,
	})

	cone := g.registry.Register(&attackRange{owner: u})
	u.body.CreateFixture(physics.FixtureDef{
		Shape:   AttackCone(cfg.Size),
		Filter:  missileFilter(faction),
		Sensor:  true,
		Density: 1,
		Tag:     cone,
	})
	u.handles = append(u.handles, solid, cone)

	if cfg.Shoot != nil {
		u.shoot = newShootMethod(u, *cfg.Shoot)
	}
	return u
}

// ID returns the unit's public identity
func (u *Unit) ID() string { return u.id }

// Faction returns the side the unit fights for
func (u *Unit) Faction() Faction { return u.faction }

// HP returns the current hit points
func (u *Unit) HP() int { return u.hp }

// MaxHP returns the hit points the unit was created with
func (u *Unit) MaxHP() int { return u.maxHP }

// Size returns the unit's radius scale
func (u *Unit) Size() float64 { return u.size }

// Destroyed reports whether the unit has been killed
func (u *Unit) Destroyed() bool { return u.destroyed }

// ShootMethod returns the unit's attack-timing machine, or nil
func (u *Unit) ShootMethod() *ShootMethod { return u.shoot }

// Behavior returns the current AI behavior, or nil
func (u *Unit) Behavior() *Behavior { return u.behavior }

// Position returns the body position; zero once destroyed
func (u *Unit) Position() physics.Vec2 {
	if u.body == nil {
		return physics.Vec2{}
	}
	return u.body.Position()
}

// Angle returns the facing in radians; zero once destroyed
func (u *Unit) Angle() float64 {
	if u.body == nil {
		return 0
	}
	return u.body.Angle()
}

// Target returns the live target or nil. A destroyed target is cleared here.
func (u *Unit) Target() *Unit {
	if u.target != nil && u.target.destroyed {
		u.target = nil
	}
	return u.target
}

// SetTarget sets the unit to pursue; destroyed units are never targeted
func (u *Unit) SetTarget(t *Unit) {
	if t != nil && t.destroyed {
		t = nil
	}
	u.target = t
}

// InRange reports whether o currently overlaps the attack cone
func (u *Unit) InRange(o *Unit) bool {
	if o == nil || o.destroyed {
		return false
	}
	return u.rangeCount(o) > 0
}

// InRangeUnits returns the live units overlapping the attack cone
func (u *Unit) InRangeUnits() []*Unit {
	out := make([]*Unit, 0, len(u.inRange))
	for _, e := range u.inRange {
		if !e.unit.destroyed {
			out = append(out, e.unit)
		}
	}
	return out
}

func (u *Unit) rangeCount(o *Unit) int {
	i := slices.IndexFunc(u.inRange, func(e rangeEntry) bool { return e.unit == o })
	if i < 0 {
		return 0
	}
	return u.inRange[i].count
}

func (u *Unit) enterRange(o *Unit) {
	if u.destroyed {
		return
	}
	i := slices.IndexFunc(u.inRange, func(e rangeEntry) bool { return e.unit == o })
	if i < 0 {
		u.inRange = append(u.inRange, rangeEntry{unit: o, count: 1})
		return
	}
	u.inRange[i].count++
}

func (u *Unit) leaveRange(o *Unit) {
	i := slices.IndexFunc(u.inRange, func(e rangeEntry) bool { return e.unit == o })
	if i < 0 {
		return
	}
	u.inRange[i].count--
	if u.inRange[i].count <= 0 {
		u.inRange = slices.Delete(u.inRange, i, i+1)
	}
}

// MakeDamage subtracts hit points and kills the unit when they run out.
// Damage to a destroyed unit is ignored.
func (u *Unit) MakeDamage(amount int) {
	if u.destroyed {
		return
	}
	u.hp -= amount
	u.game.unitDamaged(u, amount)
	if u.hp <= 0 {
		u.Kill()
	}
}

// Kill destroys the unit. Every active contact is ended through the
// dispatcher first so other units' range counts stay balanced, then the
// handles are freed and the body released. Killing twice is a no-op.
func (u *Unit) Kill() {
	if u.destroyed {
		return
	}
	u.game.contacts.EndAll(u.body.Contacts())
	u.destroyed = true
	for _, h := range u.handles {
		u.game.registry.Free(h)
	}
	u.handles = nil
	u.game.world.DestroyBody(u.body)
	u.body = nil

	if u.shoot != nil {
		u.shoot.Stop()
	}
	u.behavior = nil
	u.inRange = nil
	u.target = nil

	u.game.unitKilled(u)
	if cb := u.onKilled; cb != nil {
		u.onKilled = nil
		cb(u)
	}
}

// Step advances the unit by dt seconds
func (u *Unit) Step(dt float64) {
	if u.destroyed {
		return
	}
	u.Target()
	if u.behavior != nil {
		u.behavior.Step(dt)
	}
	if u.shoot == nil {
		return
	}
	if u.ai {
		if u.shoot.WorthFiring() {
			u.shoot.Start()
		} else {
			u.shoot.Stop()
		}
	}
	u.shoot.Step(dt)
}

// setBehavior leaves the current behavior and enters the next one
func (u *Unit) setBehavior(cfg *BehaviorConfig) {
	if u.behavior != nil {
		u.behavior.Leave()
		u.behavior = nil
	}
	if cfg == nil || u.destroyed {
		return
	}
	b := newBehavior(u, *cfg)
	u.behavior = b
	b.Enter()
}

func (u *Unit) setVelocity(v physics.Vec2) {
	if u.body != nil {
		u.body.SetLinearVelocity(v)
	}
}

func (u *Unit) faceTo(p physics.Vec2) {
	pos := u.body.Position()
	d := p.Sub(pos)
	if d.X == 0 && d.Y == 0 {
		return
	}
	u.body.SetTransform(pos, d.Angle())
}

// faceTarget turns toward the live target, if any
func (u *Unit) faceTarget() {
	if t := u.Target(); t != nil {
		u.faceTo(t.Position())
	}
}

// followUp turns to the target and closes in until it is inside the cone
func (u *Unit) followUp() {
	t := u.Target()
	if t == nil {
		u.setVelocity(physics.Vec2{})
		return
	}
	u.faceTo(t.Position())
	d := t.Position().Sub(u.body.Position())
	dist := d.Len()
	if u.InRange(t) || dist == 0 {
		u.setVelocity(physics.Vec2{})
		return
	}
	u.setVelocity(d.Scale(u.speed / dist))
}

// moveTo heads for p and reports whether the unit is within tol of it.
// Velocity is capped so the unit does not overshoot within one step.
func (u *Unit) moveTo(p physics.Vec2, tol, dt float64) bool {
	d := p.Sub(u.body.Position())
	dist := d.Len()
	if dist <= tol {
		u.setVelocity(physics.Vec2{})
		return true
	}
	speed := u.speed
	if dt > 0 {
		speed = math.Min(speed, dist/dt)
	}
	u.setVelocity(d.Scale(speed / dist))
	u.faceTo(p)
	return false
}

// inRangeCount implements shooter
func (u *Unit) inRangeCount() int { return len(u.InRangeUnits()) }

// hasTarget implements shooter
func (u *Unit) hasTarget() bool { return u.Target() != nil }

// damageInRange implements shooter
func (u *Unit) damageInRange(dmg int) {
	for _, o := range u.InRangeUnits() {
		o.MakeDamage(dmg)
	}
}

// fireBullet implements shooter
func (u *Unit) fireBullet(speed float64, dmg int) {
	if u.destroyed {
		return
	}
	u.game.spawnBullet(u, speed, func(target *Unit) {
		target.MakeDamage(dmg)
	})
}
