package game

import (
	"fmt"
	"log"
	"sync"
	"time"

	"spark-arena/internal/physics"
)

// EngineConfig configures the real-time loop around a Game
type EngineConfig struct {
	TickRate int
	Game     Config
	NewWorld func() physics.World // Called once per (re)start
	Observer Observer
	Limits   ResourceLimits
}

// Engine runs a Game at a fixed tick rate and serializes every call into it
type Engine struct {
	mu   sync.Mutex
	game *Game
	cfg  EngineConfig

	running  bool
	ticker   *time.Ticker
	stopChan chan struct{}

	observer     Observer
	snapshotPool *SnapshotPool
	eventLog     *EventLog
	restarts     int
}

// NewEngine builds the first world and publishes its initial snapshot
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.TickRate <= 0 {
		return nil, fmt.Errorf("tick rate must be positive, got %d", cfg.TickRate)
	}
	if cfg.NewWorld == nil {
		cfg.NewWorld = func() physics.World { return physics.NewBox2DWorld() }
	}
	if cfg.Observer == nil {
		cfg.Observer = NopObserver{}
	}
	if cfg.Limits == (ResourceLimits{}) {
		cfg.Limits = DefaultLimits
	}

	e := &Engine{
		cfg:          cfg,
		stopChan:     make(chan struct{}),
		observer:     cfg.Observer,
		snapshotPool: NewSnapshotPool(cfg.Limits),
		eventLog:     NewEventLog(),
	}

	g, err := e.newGame()
	if err != nil {
		return nil, err
	}
	e.game = g
	e.produceSnapshot()
	return e, nil
}

func (e *Engine) newGame() (*Game, error) {
	return NewGame(e.cfg.NewWorld(), e.cfg.Game, Options{
		Events:   e.eventLog,
		Observer: e.observer,
	})
}

// Start begins the game loop
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.ticker = time.NewTicker(time.Second / time.Duration(e.cfg.TickRate))
	e.mu.Unlock()

	go func() {
		for {
			select {
			case <-e.ticker.C:
				e.tick()
			case <-e.stopChan:
				return
			}
		}
	}()

	log.Printf("🎮 Game engine started at %d TPS", e.cfg.TickRate)
}

// Stop stops the game loop
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}

	e.running = false
	if e.ticker != nil {
		e.ticker.Stop()
	}
	close(e.stopChan)
	log.Println("🛑 Game engine stopped")
}

// tick is called at tickRate times per second
func (e *Engine) tick() {
	e.Advance(1.0 / float64(e.cfg.TickRate))
}

// Advance steps the game once by dt and publishes a snapshot. The ticker
// calls it; tests call it directly.
func (e *Engine) Advance(dt float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	e.game.Step(dt)
	e.produceSnapshot()
	e.observer.ObserveTick(time.Since(start), len(e.game.enemies), len(e.game.bullets))
}

func (e *Engine) produceSnapshot() {
	snap := e.snapshotPool.AcquireWrite()
	e.game.Snapshot(snap, e.snapshotPool.GetLimits())
	e.snapshotPool.PublishWrite()
}

// OnKeyDown forwards a pressed key code to the game
func (e *Engine) OnKeyDown(code string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.game.OnKeyDown(code)
}

// OnKeyUp forwards a released key code to the game
func (e *Engine) OnKeyUp(code string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.game.OnKeyUp(code)
}

// AddEnemy spawns an enemy and returns its ID
func (e *Engine) AddEnemy(cfg EnemyConfig) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	u, err := e.game.AddEnemy(cfg)
	if err != nil {
		return "", err
	}
	return u.ID(), nil
}

// Restart tears the world down and rebuilds it from the configured level
// on a fresh physics world. The loop, if running, keeps going.
func (e *Engine) Restart() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, err := e.newGame()
	if err != nil {
		return err
	}
	e.game.Close()
	e.game = g
	e.restarts++
	e.eventLog.EmitSimple(EventTypeRestart, 0, "", map[string]int{"restarts": e.restarts})
	e.produceSnapshot()
	log.Printf("🔄 Level restarted (%d)", e.restarts)
	return nil
}

// GetSnapshot returns the latest immutable snapshot for lock-free rendering
func (e *Engine) GetSnapshot() *GameSnapshot {
	return e.snapshotPool.AcquireRead()
}

// StartEventLog initializes the event logging system
func (e *Engine) StartEventLog(filePath string) error {
	return e.eventLog.Start(filePath)
}

// StopEventLog gracefully stops the event logging system
func (e *Engine) StopEventLog() {
	e.eventLog.Stop()
}

// EventLogStats returns event log counters for monitoring
func (e *Engine) EventLogStats() EventLogStats {
	return e.eventLog.Stats()
}

// RecentEvents returns up to n of the latest logged events
func (e *Engine) RecentEvents(n int) []Event {
	return e.eventLog.Recent(n)
}

// TickRate returns the configured ticks per second
func (e *Engine) TickRate() int {
	return e.cfg.TickRate
}

// Running reports whether the loop is active
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}
