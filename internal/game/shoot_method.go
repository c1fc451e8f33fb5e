package game

import "fmt"

// shooter is what a shoot method needs from the unit that owns it
type shooter interface {
	inRangeCount() int
	hasTarget() bool
	damageInRange(dmg int)
	fireBullet(speed float64, dmg int)
}

// ShootMethod is the attack-timing machine: idle or active, with a countdown
// to the next discrete shot. Windup is PreTime, cooldown is PostTime.
type ShootMethod struct {
	owner       shooter
	cfg         ShootConfig
	shooting    bool
	nextShootAt float64
	shots       int
}

// newShootMethod panics on an unknown type; payloads are validated before
// any construction happens.
func newShootMethod(owner shooter, cfg ShootConfig) *ShootMethod {
	switch cfg.Type {
	case ShootAttack, ShootAmmo:
	default:
		panic(fmt.Sprintf("game: %q: %v", cfg.Type, ErrUnknownShootMethod))
	}
	return &ShootMethod{owner: owner, cfg: cfg}
}

// Start activates the machine. The countdown is raised to at least the
// windup so a restarted cycle never fires early.
func (s *ShootMethod) Start() {
	if s.shooting {
		return
	}
	s.shooting = true
	s.nextShootAt = max(s.nextShootAt, s.cfg.PreTime)
}

// Stop deactivates the machine without touching the countdown, so resuming
// keeps the same cadence.
func (s *ShootMethod) Stop() {
	s.shooting = false
}

// Step advances the countdown and fires at most one shot
func (s *ShootMethod) Step(dt float64) {
	s.nextShootAt -= dt
	if s.shooting && s.nextShootAt <= 0 {
		s.nextShootAt = s.cfg.PreTime + s.cfg.PostTime
		s.shots++
		s.fire()
	}
}

func (s *ShootMethod) fire() {
	switch s.cfg.Type {
	case ShootAttack:
		s.owner.damageInRange(s.cfg.Damage)
	case ShootAmmo:
		s.owner.fireBullet(s.cfg.Speed, s.cfg.Damage)
	}
}

// WorthFiring is advisory: AI owners use it to start and stop the machine.
// Step never consults it.
func (s *ShootMethod) WorthFiring() bool {
	switch s.cfg.Type {
	case ShootAttack:
		return s.owner.inRangeCount() > 0
	case ShootAmmo:
		return s.owner.hasTarget()
	}
	return false
}

// Shooting reports whether the machine is active
func (s *ShootMethod) Shooting() bool { return s.shooting }

// Shots returns how many shots have been fired
func (s *ShootMethod) Shots() int { return s.shots }

// Type returns the variant
func (s *ShootMethod) Type() ShootMethodType { return s.cfg.Type }
