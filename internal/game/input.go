package game

import "spark-arena/internal/physics"

// Key is one of the closed set of control codes the game understands
type Key uint8

const (
	KeyUnknown Key = iota
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyShoot
)

var keyCodes = map[string]Key{
	"KeyW":       KeyUp,
	"ArrowUp":    KeyUp,
	"KeyS":       KeyDown,
	"ArrowDown":  KeyDown,
	"KeyA":       KeyLeft,
	"ArrowLeft":  KeyLeft,
	"KeyD":       KeyRight,
	"ArrowRight": KeyRight,
	"Space":      KeyShoot,
}

// ParseKey maps a keyboard event code to a Key
func ParseKey(code string) Key {
	return keyCodes[code]
}

// MoveFlag is a bit in the player's movement state
type MoveFlag uint8

const (
	MoveLeft  MoveFlag = 1 << 0
	MoveRight MoveFlag = 1 << 1
	MoveUp    MoveFlag = 1 << 2
	MoveDown  MoveFlag = 1 << 3
)

func (k Key) moveFlag() MoveFlag {
	switch k {
	case KeyUp:
		return MoveUp
	case KeyDown:
		return MoveDown
	case KeyLeft:
		return MoveLeft
	case KeyRight:
		return MoveRight
	}
	return 0
}

// direction turns movement flags into a unit-or-zero vector. Left wins over
// right and up over down.
func (m MoveFlag) direction() physics.Vec2 {
	var v physics.Vec2
	if m&MoveLeft != 0 {
		v.X = -1
	} else if m&MoveRight != 0 {
		v.X = 1
	}
	if m&MoveUp != 0 {
		v.Y = -1
	} else if m&MoveDown != 0 {
		v.Y = 1
	}
	if l := v.Len(); l > 1 {
		v = v.Scale(1 / l)
	}
	return v
}

// Player is the keyboard-controlled unit
type Player struct {
	*Unit
	moves MoveFlag
}

// Moves returns the held movement flags
func (p *Player) Moves() MoveFlag { return p.moves }

// KeyDown applies a pressed key
func (p *Player) KeyDown(k Key) {
	if k == KeyShoot {
		if p.shoot != nil {
			p.shoot.Start()
		}
		return
	}
	p.moves |= k.moveFlag()
	p.updateVelocity()
}

// KeyUp applies a released key
func (p *Player) KeyUp(k Key) {
	if k == KeyShoot {
		if p.shoot != nil {
			p.shoot.Stop()
		}
		return
	}
	p.moves &^= k.moveFlag()
	p.updateVelocity()
}

func (p *Player) updateVelocity() {
	if p.destroyed {
		return
	}
	dir := p.moves.direction()
	p.setVelocity(dir.Scale(p.speed))
	if dir != (physics.Vec2{}) {
		p.faceTo(p.body.Position().Add(dir))
	}
}

// Step refreshes velocity and facing from the held keys, then steps the unit
func (p *Player) Step(dt float64) {
	if p.destroyed {
		return
	}
	p.updateVelocity()
	p.Unit.Step(dt)
}
