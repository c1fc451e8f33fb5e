package game

import (
	"bufio"
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	EventBufferSize    = 1024                   // Pending events awaiting the writer
	BatchFlushInterval = 100 * time.Millisecond // How often pending events hit disk
	RecentEvents       = 64                     // Events kept for Recent
)

// EventBudget is a per-second rate and burst for one event type
type EventBudget struct {
	PerSecond float64
	Burst     int
}

// EventBudgets throttles the chatty types. Kills, level completion and
// restarts have no budget and are always accepted.
var EventBudgets = map[EventType]EventBudget{
	EventTypeDamage:         {PerSecond: 300, Burst: 60},
	EventTypeBulletFired:    {PerSecond: 200, Burst: 40},
	EventTypeBulletExploded: {PerSecond: 200, Burst: 40},
	EventTypeSpawn:          {PerSecond: 100, Burst: 20},
}

// EventLogStats are the counters exposed on /api/stats and /metrics
type EventLogStats struct {
	Total         uint64            `json:"total"`
	Dropped       uint64            `json:"dropped"`
	Written       uint64            `json:"written"`
	Pending       int               `json:"pending"`
	Running       bool              `json:"running"`
	DroppedByType map[string]uint64 `json:"droppedByType"`
}

// EventLog keeps the latest combat events in memory and, when given a path,
// appends them to a JSONL file from a background writer. Each noisy event
// type has its own budget so a damage flood cannot crowd out kills.
type EventLog struct {
	mu       sync.Mutex
	running  bool
	sequence uint64
	limiters map[EventType]*rate.Limiter
	pending  []Event // Only queued when a file is open
	recent   []Event // Oldest first
	total    uint64
	written  uint64
	dropped  map[EventType]uint64

	file     *os.File
	out      *bufio.Writer
	stopChan chan struct{}
	stopOnce sync.Once
	writerWg sync.WaitGroup
}

// NewEventLog creates a stopped event log
func NewEventLog() *EventLog {
	limiters := make(map[EventType]*rate.Limiter, len(EventBudgets))
	for t, b := range EventBudgets {
		limiters[t] = rate.NewLimiter(rate.Limit(b.PerSecond), b.Burst)
	}
	return &EventLog{
		limiters: limiters,
		dropped:  make(map[EventType]uint64),
		stopChan: make(chan struct{}),
	}
}

// Start accepts events from now on. An empty path keeps them in memory only.
func (el *EventLog) Start(filePath string) error {
	el.mu.Lock()
	defer el.mu.Unlock()
	if el.running {
		return nil
	}

	if filePath != "" {
		file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		el.file = file
		el.out = bufio.NewWriter(file)
		el.writerWg.Add(1)
		go el.writerLoop()
	}

	el.running = true
	return nil
}

// Stop refuses further events, writes what is pending and closes the file
func (el *EventLog) Stop() {
	el.stopOnce.Do(func() {
		el.mu.Lock()
		el.running = false
		el.mu.Unlock()

		close(el.stopChan)
		el.writerWg.Wait()

		if el.file != nil {
			el.file.Close()
		}
	})
}

// Emit records an event. It returns false when the log is stopped or the
// event's type is over budget.
func (el *EventLog) Emit(event Event) bool {
	el.mu.Lock()
	defer el.mu.Unlock()

	if !el.running {
		return false
	}
	if lim := el.limiters[event.Type]; lim != nil && !lim.Allow() {
		el.dropped[event.Type]++
		return false
	}

	el.sequence++
	el.total++
	event.Sequence = el.sequence

	if el.out != nil {
		if len(el.pending) == EventBufferSize {
			// Writer is behind; the oldest pending event gives way
			el.dropped[el.pending[0].Type]++
			el.pending = append(el.pending[:0], el.pending[1:]...)
		}
		el.pending = append(el.pending, event)
	}

	if len(el.recent) == RecentEvents {
		el.recent = append(el.recent[:0], el.recent[1:]...)
	}
	el.recent = append(el.recent, event)

	return true
}

// EmitSimple builds and emits an event in one call
func (el *EventLog) EmitSimple(eventType EventType, tickNum uint64, sourceID string, payload interface{}) bool {
	return el.Emit(NewEvent(eventType, tickNum, sourceID, payload))
}

// Recent returns up to n of the latest accepted events, oldest first.
// A non-positive n returns all of them.
func (el *EventLog) Recent(n int) []Event {
	el.mu.Lock()
	defer el.mu.Unlock()

	if n <= 0 || n > len(el.recent) {
		n = len(el.recent)
	}
	out := make([]Event, n)
	copy(out, el.recent[len(el.recent)-n:])
	return out
}

// writerLoop flushes pending events on a timer and once more on Stop
func (el *EventLog) writerLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(BatchFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-el.stopChan:
			el.flush()
			return
		case <-ticker.C:
			el.flush()
		}
	}
}

// flush writes every pending event as one JSON line
func (el *EventLog) flush() {
	el.mu.Lock()
	batch := el.pending
	el.pending = nil
	el.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	enc := json.NewEncoder(el.out)
	n := 0
	for _, event := range batch {
		if err := enc.Encode(event); err != nil {
			log.Printf("⚠️ Event log encode failed: %v", err)
			continue
		}
		n++
	}
	if err := el.out.Flush(); err != nil {
		log.Printf("⚠️ Event log write failed: %v", err)
		return
	}

	el.mu.Lock()
	el.written += uint64(n)
	el.mu.Unlock()
}

// Stats returns a copy of the counters
func (el *EventLog) Stats() EventLogStats {
	el.mu.Lock()
	defer el.mu.Unlock()

	s := EventLogStats{
		Total:         el.total,
		Written:       el.written,
		Pending:       len(el.pending),
		Running:       el.running,
		DroppedByType: make(map[string]uint64, len(el.dropped)),
	}
	for t, n := range el.dropped {
		s.Dropped += n
		s.DroppedByType[t.String()] = n
	}
	return s
}
