package game

import (
	"math"

	"spark-arena/internal/physics/physicstest"
)

// tb is satisfied by both *testing.T and *rapid.T
type tb interface {
	Helper()
	Fatalf(format string, args ...any)
}

// newTestGame builds a game without a level on the scriptable world
func newTestGame(t tb) (*Game, *physicstest.World) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Level = nil
	return newTestGameWith(t, cfg)
}

func newTestGameWith(t tb, cfg Config) (*Game, *physicstest.World) {
	t.Helper()
	w := physicstest.New()
	g, err := NewGame(w, cfg, Options{})
	if err != nil {
		t.Fatalf("NewGame failed: %v", err)
	}
	return g, w
}

func testEnemy(x, y float64) EnemyConfig {
	return EnemyConfig{
		UnitConfig: UnitConfig{X: x, Y: y, Angle: math.Pi / 2, HP: 100, Size: 1, Speed: 5},
		State:      BehaviorConfig{Type: BehaviorFollowUp},
	}
}

func mustAddEnemy(t tb, g *Game, cfg EnemyConfig) *Unit {
	t.Helper()
	u, err := g.AddEnemy(cfg)
	if err != nil {
		t.Fatalf("AddEnemy failed: %v", err)
	}
	return u
}

// solidOf returns the unit's body fixture; call before the unit is killed
func solidOf(w *physicstest.World, u *Unit) *physicstest.Fixture {
	return w.FixtureByTag(u.handles[0])
}

// coneOf returns the unit's attack cone sensor
func coneOf(w *physicstest.World, u *Unit) *physicstest.Fixture {
	return w.FixtureByTag(u.handles[1])
}

func bulletFixture(w *physicstest.World, b *Bullet) *physicstest.Fixture {
	return w.FixtureByTag(b.tag)
}

func edgeFixture(w *physicstest.World, g *Game) *physicstest.Fixture {
	for _, b := range w.Bodies() {
		if b == g.edge {
			return b.Fixtures()[0]
		}
	}
	return nil
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
