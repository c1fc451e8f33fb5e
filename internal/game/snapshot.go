package game

import (
	"sync/atomic"
	"time"
)

// ResourceLimits caps what a snapshot carries
type ResourceLimits struct {
	MaxEnemies int // Enemies copied into a snapshot
	MaxBullets int // Bullets copied into a snapshot
}

// DefaultLimits are generous for the demo level
var DefaultLimits = ResourceLimits{
	MaxEnemies: 256,
	MaxBullets: 512,
}

// UnitSnapshot is an immutable copy of unit state for rendering
// Uses value types (not pointers) to ensure immutability
type UnitSnapshot struct {
	ID       string  `json:"id"`
	Faction  string  `json:"faction"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Angle    float64 `json:"angle"`
	Size     float64 `json:"size"`
	HP       int     `json:"hp"`
	MaxHP    int     `json:"maxHp"`
	InRange  int     `json:"inRange"`
	Shooting bool    `json:"shooting"`
	Dead     bool    `json:"dead"`
}

// BulletSnapshot is an immutable bullet for rendering
type BulletSnapshot struct {
	ID      string  `json:"id"`
	Faction string  `json:"faction"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

// GameSnapshot is a complete immutable game state for rendering
// All slices are pre-allocated and capped
type GameSnapshot struct {
	Sequence   uint64    `json:"sequence"`  // Monotonic sequence for ordering
	Timestamp  time.Time `json:"timestamp"` // When snapshot was created
	TickNumber uint64    `json:"tick"`      // Game tick this represents
	Elapsed    float64   `json:"elapsed"`   // Simulated seconds

	Player  UnitSnapshot     `json:"player"`
	Enemies []UnitSnapshot   `json:"enemies"`
	Bullets []BulletSnapshot `json:"bullets"`

	// Aggregate stats
	EnemyCount int  `json:"enemyCount"`
	Kills      int  `json:"kills"`
	LevelDone  bool `json:"levelDone"`
}

// SnapshotPool pre-allocates snapshots to avoid GC pressure
// Uses triple buffering for lock-free producer/consumer
type SnapshotPool struct {
	snapshots [3]GameSnapshot // Triple buffer
	limits    ResourceLimits
	writeIdx  uint32 // atomic - producer index
	readIdx   uint32 // atomic - consumer index
	sequence  uint64 // atomic - monotonic sequence
}

// NewSnapshotPool creates a pool with pre-allocated slices
func NewSnapshotPool(limits ResourceLimits) *SnapshotPool {
	pool := &SnapshotPool{limits: limits}
	for i := 0; i < 3; i++ {
		pool.snapshots[i] = GameSnapshot{
			Enemies: make([]UnitSnapshot, 0, limits.MaxEnemies),
			Bullets: make([]BulletSnapshot, 0, limits.MaxBullets),
		}
	}
	return pool
}

// AcquireWrite gets the next write slot (producer only, called from game tick)
// Returns a snapshot with reset slices but preserved capacity
func (p *SnapshotPool) AcquireWrite() *GameSnapshot {
	idx := atomic.AddUint32(&p.writeIdx, 1) % 3
	snap := &p.snapshots[idx]

	snap.Enemies = snap.Enemies[:0]
	snap.Bullets = snap.Bullets[:0]
	snap.Player = UnitSnapshot{}

	snap.Sequence = atomic.AddUint64(&p.sequence, 1)
	snap.Timestamp = time.Now()
	return snap
}

// PublishWrite marks write complete and advances read pointer
func (p *SnapshotPool) PublishWrite() {
	atomic.StoreUint32(&p.readIdx, atomic.LoadUint32(&p.writeIdx))
}

// AcquireRead gets the latest complete snapshot (consumer only)
func (p *SnapshotPool) AcquireRead() *GameSnapshot {
	idx := atomic.LoadUint32(&p.readIdx) % 3
	return &p.snapshots[idx]
}

// GetLimits returns the resource limits
func (p *SnapshotPool) GetLimits() ResourceLimits {
	return p.limits
}

func snapshotUnit(u *Unit) UnitSnapshot {
	s := UnitSnapshot{
		ID:      u.id,
		Faction: u.faction.String(),
		Size:    u.size,
		HP:      u.hp,
		MaxHP:   u.maxHP,
		Dead:    u.destroyed,
	}
	if !u.destroyed {
		pos := u.Position()
		s.X, s.Y = pos.X, pos.Y
		s.Angle = u.Angle()
		s.InRange = u.inRangeCount()
	}
	if u.shoot != nil {
		s.Shooting = u.shoot.Shooting()
	}
	return s
}

// Snapshot fills snap from the current world state, honoring the limits
func (g *Game) Snapshot(snap *GameSnapshot, limits ResourceLimits) {
	snap.TickNumber = g.tick
	snap.Elapsed = g.elapsed
	snap.Player = snapshotUnit(g.player.Unit)
	for _, e := range g.enemies {
		if len(snap.Enemies) >= limits.MaxEnemies {
			break
		}
		if e.destroyed {
			continue
		}
		snap.Enemies = append(snap.Enemies, snapshotUnit(e))
	}
	for _, b := range g.bullets {
		if len(snap.Bullets) >= limits.MaxBullets {
			break
		}
		if b.done {
			continue
		}
		pos := b.Position()
		snap.Bullets = append(snap.Bullets, BulletSnapshot{
			ID:      b.id,
			Faction: b.faction.String(),
			X:       pos.X,
			Y:       pos.Y,
		})
	}
	snap.EnemyCount = len(g.enemies)
	snap.Kills = g.kills
	snap.LevelDone = g.levelDone
}
