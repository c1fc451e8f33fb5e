package game

import (
	stderrors "errors"
	"fmt"
	"math"

	"github.com/pixil98/go-errors"
)

// Unknown variant discriminators are fatal at construction time
var (
	ErrUnknownShootMethod = stderrors.New("unknown shoot method type")
	ErrUnknownBehavior    = stderrors.New("unknown behavior type")
	ErrUnknownLevelNode   = stderrors.New("unknown level node type")
)

// ShootMethodType selects an attack-timing variant
type ShootMethodType string

const (
	ShootAttack ShootMethodType = "attack" // Damages everything in the attack cone
	ShootAmmo   ShootMethodType = "ammo"   // Fires a bullet along the facing
)

// ShootConfig configures an attack-timing machine
type ShootConfig struct {
	Type     ShootMethodType `json:"type"`
	PreTime  float64         `json:"preTime"`  // Windup before a shot, seconds
	PostTime float64         `json:"postTime"` // Cooldown after a shot, seconds
	Damage   int             `json:"dmg"`
	Speed    float64         `json:"v,omitempty"` // Bullet speed, ammo only
}

// Validate checks the shoot method payload
func (c *ShootConfig) Validate() error {
	switch c.Type {
	case ShootAttack, ShootAmmo:
	default:
		return fmt.Errorf("%q: %w", c.Type, ErrUnknownShootMethod)
	}

	el := errors.NewErrorList()
	if c.PreTime < 0 || c.PostTime < 0 {
		el.Add(fmt.Errorf("preTime and postTime must not be negative"))
	}
	if c.PreTime+c.PostTime <= 0 {
		el.Add(fmt.Errorf("preTime + postTime must be positive"))
	}
	if c.Damage < 0 {
		el.Add(fmt.Errorf("dmg must not be negative"))
	}
	if c.Type == ShootAmmo && c.Speed <= 0 {
		el.Add(fmt.Errorf("ammo requires a positive v"))
	}
	return el.Err()
}

// BehaviorType selects an AI behavior variant
type BehaviorType string

const (
	BehaviorFollowUp BehaviorType = "followUp" // Chase the target and engage
	BehaviorMoveTo   BehaviorType = "moveTo"   // Walk to a fixed point
)

// DefaultArrivalTolerance is the moveTo arrival distance when none is set
const DefaultArrivalTolerance = 0.5

// BehaviorConfig configures an AI behavior machine
type BehaviorConfig struct {
	Type      BehaviorType    `json:"type"`
	X         float64         `json:"x,omitempty"`
	Y         float64         `json:"y,omitempty"`
	Tolerance float64         `json:"tolerance,omitempty"`
	Then      *BehaviorConfig `json:"then,omitempty"` // Entered when this one completes
}

// Validate checks the behavior payload and its follow-on chain
func (c *BehaviorConfig) Validate() error {
	switch c.Type {
	case BehaviorFollowUp, BehaviorMoveTo:
	default:
		return fmt.Errorf("%q: %w", c.Type, ErrUnknownBehavior)
	}

	el := errors.NewErrorList()
	if c.Tolerance < 0 {
		el.Add(fmt.Errorf("tolerance must not be negative"))
	}
	if c.Then != nil {
		if err := c.Then.Validate(); err != nil {
			el.Add(fmt.Errorf("then: %w", err))
		}
	}
	return el.Err()
}

func (c *BehaviorConfig) tolerance() float64 {
	if c.Tolerance > 0 {
		return c.Tolerance
	}
	return DefaultArrivalTolerance
}

// UnitConfig holds what every unit needs
type UnitConfig struct {
	X     float64      `json:"x"`
	Y     float64      `json:"y"`
	Angle float64      `json:"angle,omitempty"`
	HP    int          `json:"hp"`
	Size  float64      `json:"size"`
	Speed float64      `json:"speed"`
	Shoot *ShootConfig `json:"shoot,omitempty"`
}

// Validate checks the unit payload
func (c *UnitConfig) Validate() error {
	el := errors.NewErrorList()
	if c.HP <= 0 {
		el.Add(fmt.Errorf("hp must be positive"))
	}
	if c.Size <= 0 {
		el.Add(fmt.Errorf("size must be positive"))
	}
	if c.Speed < 0 {
		el.Add(fmt.Errorf("speed must not be negative"))
	}
	if c.Shoot != nil {
		if err := c.Shoot.Validate(); err != nil {
			el.Add(fmt.Errorf("shoot: %w", err))
		}
	}
	return el.Err()
}

// EnemyConfig is a unit plus the behavior it starts with
type EnemyConfig struct {
	UnitConfig
	State BehaviorConfig `json:"state"`
}

// Validate checks the enemy payload
func (c *EnemyConfig) Validate() error {
	el := errors.NewErrorList()
	el.Add(c.UnitConfig.Validate())
	if err := c.State.Validate(); err != nil {
		el.Add(fmt.Errorf("state: %w", err))
	}
	return el.Err()
}

// LevelNodeType selects a level node variant
type LevelNodeType string

const (
	LevelParallel    LevelNodeType = "parallel"
	LevelInterval    LevelNodeType = "interval"
	LevelCreateEnemy LevelNodeType = "createEnemy"
)

// LevelConfig configures one level node and, for containers, its children
type LevelConfig struct {
	Type LevelNodeType `json:"type"`

	// parallel
	States []LevelConfig `json:"states,omitempty"`

	// interval
	Delay    float64      `json:"delay,omitempty"`
	Interval float64      `json:"interval,omitempty"`
	Count    int          `json:"count,omitempty"`
	Each     *LevelConfig `json:"each,omitempty"`

	// createEnemy
	Enemy *EnemyConfig `json:"enemy,omitempty"`
}

// Validate checks the node and its whole subtree
func (c *LevelConfig) Validate() error {
	el := errors.NewErrorList()
	switch c.Type {
	case LevelParallel:
		for i := range c.States {
			if err := c.States[i].Validate(); err != nil {
				el.Add(fmt.Errorf("states[%d]: %w", i, err))
			}
		}
	case LevelInterval:
		if c.Delay < 0 || c.Interval < 0 {
			el.Add(fmt.Errorf("delay and interval must not be negative"))
		}
		if c.Count < 0 {
			el.Add(fmt.Errorf("count must not be negative"))
		}
		if c.Each == nil {
			el.Add(fmt.Errorf("interval requires each"))
		} else if err := c.Each.Validate(); err != nil {
			el.Add(fmt.Errorf("each: %w", err))
		}
	case LevelCreateEnemy:
		if c.Enemy == nil {
			el.Add(fmt.Errorf("createEnemy requires enemy"))
		} else if err := c.Enemy.Validate(); err != nil {
			el.Add(fmt.Errorf("enemy: %w", err))
		}
	default:
		return fmt.Errorf("%q: %w", c.Type, ErrUnknownLevelNode)
	}
	return el.Err()
}

// Config is everything needed to build a game world
type Config struct {
	Player PlayerConfig `json:"player"`
	Level  *LevelConfig `json:"level,omitempty"`
}

// PlayerConfig is the player's unit
type PlayerConfig struct {
	UnitConfig
}

// Validate checks the whole game payload
func (c *Config) Validate() error {
	el := errors.NewErrorList()
	if err := c.Player.Validate(); err != nil {
		el.Add(fmt.Errorf("player: %w", err))
	}
	if c.Level != nil {
		if err := c.Level.Validate(); err != nil {
			el.Add(fmt.Errorf("level: %w", err))
		}
	}
	return el.Err()
}

// DefaultPlayerSpeed is the player's movement speed in world units per second
const DefaultPlayerSpeed = 20.0

// DefaultConfig returns the demo arena: the player near the bottom and a
// level of two lanes, each spawning five chasers one second apart.
func DefaultConfig() Config {
	return Config{
		Player: PlayerConfig{UnitConfig: UnitConfig{
			X:     0,
			Y:     10,
			Angle: -math.Pi / 2,
			HP:    100,
			Size:  1,
			Speed: DefaultPlayerSpeed,
			Shoot: &ShootConfig{Type: ShootAmmo, PreTime: 0.05, PostTime: 0.2, Damage: 25, Speed: 40},
		}},
		Level: DemoLevel(),
	}
}

// DemoLevel is the default level script
func DemoLevel() *LevelConfig {
	lane := func(x float64) LevelConfig {
		return LevelConfig{
			Type:     LevelInterval,
			Interval: 1,
			Count:    5,
			Delay:    0,
			Each: &LevelConfig{
				Type: LevelCreateEnemy,
				Enemy: &EnemyConfig{
					UnitConfig: UnitConfig{
						X:     x,
						Y:     -40,
						Angle: math.Pi / 2,
						HP:    100,
						Size:  1,
						Speed: 5,
						Shoot: &ShootConfig{Type: ShootAttack, PreTime: 0.3, PostTime: 0.7, Damage: 5},
					},
					State: BehaviorConfig{Type: BehaviorFollowUp},
				},
			},
		}
	}
	return &LevelConfig{
		Type:   LevelParallel,
		States: []LevelConfig{lane(-10), lane(10)},
	}
}
