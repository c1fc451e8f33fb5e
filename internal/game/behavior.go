package game

import (
	"fmt"

	"spark-arena/internal/physics"
)

// Behavior is a unit's AI state machine. The variant is picked by the
// config's type; followUp drives a dynamic body while active.
type Behavior struct {
	unit *Unit
	cfg  BehaviorConfig
	done bool
}

func newBehavior(u *Unit, cfg BehaviorConfig) *Behavior {
	switch cfg.Type {
	case BehaviorFollowUp, BehaviorMoveTo:
	default:
		panic(fmt.Sprintf("game: %q: %v", cfg.Type, ErrUnknownBehavior))
	}
	return &Behavior{unit: u, cfg: cfg}
}

// Type returns the variant
func (b *Behavior) Type() BehaviorType { return b.cfg.Type }

// Done reports whether the behavior has signaled completion
func (b *Behavior) Done() bool { return b.done }

// Enter activates the behavior
func (b *Behavior) Enter() {
	if b.cfg.Type == BehaviorFollowUp {
		b.unit.body.SetType(physics.DynamicBody)
	}
}

// Leave deactivates the behavior
func (b *Behavior) Leave() {
	if b.cfg.Type == BehaviorFollowUp && b.unit.body != nil {
		b.unit.body.SetType(physics.KinematicBody)
		b.unit.setVelocity(physics.Vec2{})
	}
}

// Step runs one tick of the behavior
func (b *Behavior) Step(dt float64) {
	switch b.cfg.Type {
	case BehaviorFollowUp:
		b.unit.followUp()
	case BehaviorMoveTo:
		dest := physics.Vec2{X: b.cfg.X, Y: b.cfg.Y}
		if b.unit.moveTo(dest, b.cfg.tolerance(), dt) {
			b.unit.faceTarget()
			b.complete()
		}
	}
}

// complete signals once. With a follow-on configured the unit switches to
// it; otherwise the behavior stays in place and keeps holding position.
func (b *Behavior) complete() {
	if b.done {
		return
	}
	b.done = true
	if b.cfg.Then != nil && b.unit.behavior == b {
		b.unit.setBehavior(b.cfg.Then)
	}
}
