package game

import (
	"fmt"
	"slices"
)

// enemySpawner creates an enemy and calls onKilled once when it dies
type enemySpawner interface {
	spawnEnemy(cfg EnemyConfig, onKilled func()) *Unit
}

// LevelNode is one node of the level script. Containers (parallel, interval)
// track running children and complete once they have all drained; a
// createEnemy leaf completes when its enemy is destroyed.
type LevelNode struct {
	spawner  enemySpawner
	cfg      *LevelConfig
	onOver   func()
	active   bool
	done     bool
	children []*LevelNode

	// interval
	nextAfter float64
	fired     int
}

// newLevelNode panics on an unknown type; use LoadLevel for untrusted payloads
func newLevelNode(spawner enemySpawner, cfg *LevelConfig, onOver func()) *LevelNode {
	switch cfg.Type {
	case LevelParallel, LevelInterval, LevelCreateEnemy:
	default:
		panic(fmt.Sprintf("game: %q: %v", cfg.Type, ErrUnknownLevelNode))
	}
	return &LevelNode{spawner: spawner, cfg: cfg, onOver: onOver}
}

// LoadLevel validates cfg and builds the root node without entering it
func LoadLevel(spawner enemySpawner, cfg *LevelConfig, onOver func()) (*LevelNode, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("loading level: %w", err)
	}
	return newLevelNode(spawner, cfg, onOver), nil
}

// Type returns the variant
func (n *LevelNode) Type() LevelNodeType { return n.cfg.Type }

// Done reports whether the node has signaled completion
func (n *LevelNode) Done() bool { return n.done }

// Active reports whether the node is entered and not yet done
func (n *LevelNode) Active() bool { return n.active }

// Fired returns the spawn count of an interval node
func (n *LevelNode) Fired() int { return n.fired }

// Children returns the running children
func (n *LevelNode) Children() []*LevelNode { return slices.Clone(n.children) }

// Enter activates the node
func (n *LevelNode) Enter() {
	if n.active || n.done {
		return
	}
	n.active = true
	switch n.cfg.Type {
	case LevelParallel:
		for i := range n.cfg.States {
			n.enterChild(&n.cfg.States[i])
		}
		if len(n.children) == 0 {
			n.complete()
		}
	case LevelInterval:
		n.fired = 0
		n.nextAfter = n.cfg.Delay
	case LevelCreateEnemy:
		n.spawner.spawnEnemy(*n.cfg.Enemy, n.complete)
	}
}

// Step advances the node and its children by dt seconds
func (n *LevelNode) Step(dt float64) {
	if !n.active {
		return
	}
	if n.cfg.Type == LevelInterval {
		n.stepInterval(dt)
		if !n.active {
			return
		}
	}
	for _, c := range slices.Clone(n.children) {
		c.Step(dt)
	}
}

func (n *LevelNode) stepInterval(dt float64) {
	if n.fired >= n.cfg.Count {
		if len(n.children) == 0 {
			n.complete()
		}
		return
	}
	n.nextAfter -= dt
	for n.nextAfter < 0 && n.fired < n.cfg.Count {
		n.nextAfter += n.cfg.Interval
		n.fired++
		n.enterChild(n.cfg.Each)
	}
}

// Leave deactivates the node and all running children
func (n *LevelNode) Leave() {
	for _, c := range n.children {
		c.Leave()
	}
	n.children = nil
	n.active = false
}

func (n *LevelNode) enterChild(cfg *LevelConfig) {
	var child *LevelNode
	child = newLevelNode(n.spawner, cfg, func() { n.childDone(child) })
	n.children = append(n.children, child)
	child.Enter()
}

func (n *LevelNode) childDone(child *LevelNode) {
	i := slices.Index(n.children, child)
	if i < 0 {
		return
	}
	n.children = slices.Delete(n.children, i, i+1)
	if len(n.children) > 0 || !n.active {
		return
	}
	switch n.cfg.Type {
	case LevelParallel:
		n.complete()
	case LevelInterval:
		if n.fired >= n.cfg.Count {
			n.complete()
		}
	}
}

// complete signals the parent exactly once
func (n *LevelNode) complete() {
	if n.done {
		return
	}
	n.done = true
	n.active = false
	if n.onOver != nil {
		n.onOver()
	}
}
