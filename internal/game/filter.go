package game

import (
	"math"

	"spark-arena/internal/physics"
)

// Collision categories
const (
	CategoryPlayer        uint16 = 1 << 0
	CategoryEnemy         uint16 = 1 << 1
	CategoryPlayerMissile uint16 = 1 << 2
	CategoryEnemyMissile  uint16 = 1 << 3
	CategoryWall          uint16 = 1 << 4
	CategoryEdge          uint16 = 1 << 5
)

// Collision groups. All negative: members of one group never touch each other.
const (
	GroupPlayer  int16 = -1
	GroupEnemy   int16 = -2
	GroupMissile int16 = -3
	GroupEdge    int16 = -4
	GroupWall    int16 = -5
)

// Faction identifies which side a unit fights for
type Faction uint8

const (
	FactionPlayer Faction = iota
	FactionEnemy
)

// String returns the faction name
func (f Faction) String() string {
	switch f {
	case FactionPlayer:
		return "player"
	case FactionEnemy:
		return "enemy"
	default:
		return "unknown"
	}
}

// solidFilter is the filter of a unit's body fixture
func solidFilter(f Faction) physics.Filter {
	if f == FactionPlayer {
		return physics.Filter{
			Category: CategoryPlayer,
			Mask:     CategoryEnemy | CategoryEnemyMissile | CategoryWall,
			Group:    GroupPlayer,
		}
	}
	return physics.Filter{
		Category: CategoryEnemy,
		Mask:     CategoryPlayer | CategoryPlayerMissile,
		Group:    GroupEnemy,
	}
}

// missileFilter is shared by a faction's attack cones and bullets
func missileFilter(f Faction) physics.Filter {
	if f == FactionPlayer {
		return physics.Filter{
			Category: CategoryPlayerMissile,
			Mask:     CategoryEnemy | CategoryEdge,
			Group:    GroupMissile,
		}
	}
	return physics.Filter{
		Category: CategoryEnemyMissile,
		Mask:     CategoryPlayer | CategoryEdge,
		Group:    GroupMissile,
	}
}

var (
	wallFilter = physics.Filter{Category: CategoryWall, Mask: CategoryPlayer, Group: GroupWall}
	edgeFilter = physics.Filter{
		Category: CategoryEdge,
		Mask:     CategoryPlayerMissile | CategoryEnemyMissile,
		Group:    GroupEdge,
	}
)

// ConeRadius is the reach of a size-1 unit's attack cone
const ConeRadius = 4.0

// AttackCone returns the forward cone polygon: the body origin plus five
// points on an arc spanning 45 degrees either side of the facing.
func AttackCone(size float64) physics.Polygon {
	r := ConeRadius * size
	verts := []physics.Vec2{{X: 0, Y: 0}}
	for _, deg := range []float64{-45, -22.5, 0, 22.5, 45} {
		verts = append(verts, physics.FromAngle(deg*math.Pi/180, r))
	}
	return physics.Polygon{Vertices: verts}
}
