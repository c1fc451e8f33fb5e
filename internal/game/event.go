package game

import (
	"encoding/json"
	"time"
)

// EventType enum for event classification
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeSpawn
	EventTypeDamage
	EventTypeKill
	EventTypeBulletFired
	EventTypeBulletExploded
	EventTypeLevelComplete
	EventTypeRestart
)

// EventVersion for backwards compatibility of the log format
const EventVersion uint8 = 1

// Event is the core event structure for the event log
type Event struct {
	Version   uint8           `json:"version"`   // Schema version
	Type      EventType       `json:"type"`      // Event type
	Timestamp int64           `json:"timestamp"` // Unix nano
	Sequence  uint64          `json:"sequence"`  // Monotonic per log, starting at 1
	TickNum   uint64          `json:"tickNum"`   // Game tick this occurred in
	SourceID  string          `json:"sourceId"`  // Unit the event is about, if any
	Payload   json.RawMessage `json:"payload"`   // Inline JSON payload
}

// String returns human-readable event type
func (t EventType) String() string {
	switch t {
	case EventTypeSpawn:
		return "spawn"
	case EventTypeDamage:
		return "damage"
	case EventTypeKill:
		return "kill"
	case EventTypeBulletFired:
		return "bullet_fired"
	case EventTypeBulletExploded:
		return "bullet_exploded"
	case EventTypeLevelComplete:
		return "level_complete"
	case EventTypeRestart:
		return "restart"
	default:
		return "unknown"
	}
}

// MarshalText writes the type by name so log lines stay readable
func (t EventType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses a type name; unknown names become EventTypeUnknown
func (t *EventType) UnmarshalText(text []byte) error {
	*t = EventTypeUnknown
	for c := EventTypeSpawn; c <= EventTypeRestart; c++ {
		if c.String() == string(text) {
			*t = c
			break
		}
	}
	return nil
}

// SpawnPayload contains unit spawn details
type SpawnPayload struct {
	UnitID  string  `json:"unitId"`
	Faction string  `json:"faction"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	HP      int     `json:"hp"`
}

// DamagePayload contains damage event details
type DamagePayload struct {
	VictimID string `json:"victimId"`
	Damage   int    `json:"damage"`
	VictimHP int    `json:"victimHp"`
}

// KillPayload contains kill event details
type KillPayload struct {
	VictimID string `json:"victimId"`
	Faction  string `json:"faction"`
	Kills    int    `json:"kills"`
}

// BulletPayload describes a bullet being fired or exploding
type BulletPayload struct {
	BulletID string  `json:"bulletId"`
	OwnerID  string  `json:"ownerId"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Touched  int     `json:"touched,omitempty"`
}

// LevelPayload marks level completion
type LevelPayload struct {
	Kills   int     `json:"kills"`
	Elapsed float64 `json:"elapsed"`
}

// EncodePayload marshals a payload for inlining into an event
func EncodePayload(payload interface{}) json.RawMessage {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, tickNum uint64, sourceID string, payload interface{}) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		TickNum:   tickNum,
		SourceID:  sourceID,
		Payload:   EncodePayload(payload),
	}
}
