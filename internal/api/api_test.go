package api_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"spark-arena/internal/api"
	"spark-arena/internal/game"
	"spark-arena/internal/physics"
	"spark-arena/internal/physics/physicstest"
	"spark-arena/internal/render"
)

// ============================================================================
// Mock Implementations
// ============================================================================

// MockEngine implements api.EngineInterface for testing
type MockEngine struct {
	mu       sync.Mutex
	snapshot game.GameSnapshot
	down     []string
	up       []string
	enemies  []game.EnemyConfig
	restarts int
	events   []game.Event
}

func NewMockEngine() *MockEngine {
	return &MockEngine{
		snapshot: game.GameSnapshot{
			TickNumber: 7,
			Player:     game.UnitSnapshot{ID: "player", Faction: "player", Y: 10, Size: 1, HP: 100, MaxHP: 100},
			Kills:      3,
		},
	}
}

func (m *MockEngine) GetSnapshot() *game.GameSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.snapshot
	return &snap
}

func (m *MockEngine) OnKeyDown(code string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if game.ParseKey(code) == game.KeyUnknown {
		return false
	}
	m.down = append(m.down, code)
	return true
}

func (m *MockEngine) OnKeyUp(code string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if game.ParseKey(code) == game.KeyUnknown {
		return false
	}
	m.up = append(m.up, code)
	return true
}

func (m *MockEngine) AddEnemy(cfg game.EnemyConfig) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", fmt.Errorf("invalid enemy: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enemies = append(m.enemies, cfg)
	return fmt.Sprintf("enemy-%d", len(m.enemies)), nil
}

func (m *MockEngine) Restart() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restarts++
	return nil
}

func (m *MockEngine) RecentEvents(n int) []game.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > len(m.events) {
		n = len(m.events)
	}
	return m.events[len(m.events)-n:]
}

func (m *MockEngine) EventLogStats() game.EventLogStats {
	return game.EventLogStats{Total: uint64(len(m.events)), Running: true}
}

func (m *MockEngine) spawned() []game.EnemyConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]game.EnemyConfig(nil), m.enemies...)
}

func (m *MockEngine) restartCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.restarts
}

func (m *MockEngine) keys() (down, up []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.down...), append([]string(nil), m.up...)
}

var _ api.EngineInterface = (*game.Engine)(nil)

func newTestServer(t *testing.T, engine api.EngineInterface, renderer api.FrameRenderer) *httptest.Server {
	t.Helper()
	router := api.NewRouter(api.RouterConfig{
		Engine:         engine,
		Renderer:       renderer,
		DisableLogging: true, // Quiet logs in tests
		RateLimitConfig: &api.RateLimitConfig{
			Read:  api.BudgetFor(1000), // High limits for tests
			Input: api.BudgetFor(1000),
			World: api.BudgetFor(1000),
		},
	})
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// ============================================================================
// API Endpoint Tests
// ============================================================================

// TestAPIGetState tests the snapshot endpoint
func TestAPIGetState(t *testing.T) {
	ts := newTestServer(t, NewMockEngine(), nil)

	resp, err := http.Get(ts.URL + "/api/state")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}

	var snap game.GameSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if snap.TickNumber != 7 || snap.Kills != 3 || snap.Player.HP != 100 {
		t.Errorf("Unexpected snapshot %+v", snap)
	}
}

// TestAPIGetStats tests the aggregate stats endpoint
func TestAPIGetStats(t *testing.T) {
	ts := newTestServer(t, NewMockEngine(), nil)

	resp, err := http.Get(ts.URL + "/api/stats")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	var stats map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if stats["kills"] != 3.0 || stats["tick"] != 7.0 {
		t.Errorf("Unexpected stats %v", stats)
	}
	if _, ok := stats["eventLog"].(map[string]interface{}); !ok {
		t.Error("Stats should include event log counters")
	}
}

// TestAPIKeyInput tests keydown/keyup forwarding and validation
func TestAPIKeyInput(t *testing.T) {
	engine := NewMockEngine()
	ts := newTestServer(t, engine, nil)

	tests := []struct {
		name        string
		path        string
		body        string
		wantStatus  int
		wantHandled bool
	}{
		{"keydown", "/api/input/keydown", `{"code": "KeyW"}`, http.StatusOK, true},
		{"keyup", "/api/input/keyup", `{"code": "KeyW"}`, http.StatusOK, true},
		{"unknown key", "/api/input/keydown", `{"code": "KeyQ"}`, http.StatusOK, false},
		{"missing code", "/api/input/keydown", `{}`, http.StatusBadRequest, false},
		{"invalid json", "/api/input/keyup", `{invalid}`, http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, ts.URL+tt.path, tt.body)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("Expected %d, got %d", tt.wantStatus, resp.StatusCode)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var result map[string]bool
			if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if result["handled"] != tt.wantHandled {
				t.Errorf("Expected handled=%v, got %v", tt.wantHandled, result["handled"])
			}
		})
	}

	down, up := engine.keys()
	if len(down) != 1 || len(up) != 1 {
		t.Errorf("Expected one keydown and one keyup forwarded, got %v and %v", down, up)
	}
}

// TestAPIAddEnemy tests enemy spawning and payload validation
func TestAPIAddEnemy(t *testing.T) {
	engine := NewMockEngine()
	ts := newTestServer(t, engine, nil)

	resp := postJSON(t, ts.URL+"/api/enemies", `{"x": 5, "y": -30, "hp": 50, "size": 1, "speed": 5}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var result map[string]string
	json.NewDecoder(resp.Body).Decode(&result)
	if result["id"] != "enemy-1" {
		t.Errorf("Expected id enemy-1, got %q", result["id"])
	}
	if spawned := engine.spawned(); len(spawned) != 1 || spawned[0].State.Type != game.BehaviorFollowUp {
		t.Errorf("Expected one followUp enemy by default, got %+v", spawned)
	}

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"zero hp", `{"x": 5, "y": -30, "size": 1}`, "hp must be positive"},
		{"unknown behavior", `{"hp": 10, "size": 1, "state": {"type": "wander"}}`, "unknown behavior"},
		{"invalid json", `{invalid}`, "Invalid request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, ts.URL+"/api/enemies", tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", resp.StatusCode)
			}
			var result map[string]string
			json.NewDecoder(resp.Body).Decode(&result)
			if !strings.Contains(result["error"], tt.wantErr) {
				t.Errorf("Expected error containing %q, got %q", tt.wantErr, result["error"])
			}
		})
	}
}

// TestAPIRestart tests the restart endpoint
func TestAPIRestart(t *testing.T) {
	engine := NewMockEngine()
	ts := newTestServer(t, engine, nil)

	resp := postJSON(t, ts.URL+"/api/level/restart", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
	if n := engine.restartCount(); n != 1 {
		t.Errorf("Expected one restart, got %d", n)
	}

	// Wrong method
	resp, err := http.Get(ts.URL + "/api/level/restart")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", resp.StatusCode)
	}
}

// TestAPIEvents tests the recent events endpoint
func TestAPIEvents(t *testing.T) {
	engine := NewMockEngine()
	engine.events = []game.Event{
		game.NewEvent(game.EventTypeSpawn, 1, "", game.SpawnPayload{UnitID: "a"}),
		game.NewEvent(game.EventTypeKill, 2, "", game.KillPayload{VictimID: "a", Kills: 1}),
	}
	ts := newTestServer(t, engine, nil)

	resp, err := http.Get(ts.URL + "/api/events?n=1")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	var events []struct {
		Type    string          `json:"type"`
		Tick    uint64          `json:"tick"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(events) != 1 || events[0].Type != "kill" || events[0].Tick != 2 {
		t.Fatalf("Expected the latest kill event, got %+v", events)
	}
	var payload game.KillPayload
	if err := json.Unmarshal(events[0].Payload, &payload); err != nil || payload.Kills != 1 {
		t.Errorf("Expected inline kill payload, got %s", events[0].Payload)
	}

	bad, err := http.Get(ts.URL + "/api/events?n=zero")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad n, got %d", bad.StatusCode)
	}
}

// failingRenderer always fails to encode
type failingRenderer struct{}

func (failingRenderer) EncodePNG(io.Writer, *game.GameSnapshot) error {
	return errors.New("no canvas")
}

// TestAPIFrame tests the PNG endpoint with and without a renderer
func TestAPIFrame(t *testing.T) {
	t.Run("rendered", func(t *testing.T) {
		ts := newTestServer(t, NewMockEngine(), render.NewRenderer(2))
		resp, err := http.Get(ts.URL + "/api/frame.png")
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		defer resp.Body.Close()

		if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
			t.Errorf("Expected image/png, got %q", ct)
		}
		if _, err := png.Decode(resp.Body); err != nil {
			t.Errorf("Response is not a PNG: %v", err)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		ts := newTestServer(t, NewMockEngine(), nil)
		resp, err := http.Get(ts.URL + "/api/frame.png")
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", resp.StatusCode)
		}
	})

	t.Run("render error", func(t *testing.T) {
		ts := newTestServer(t, NewMockEngine(), failingRenderer{})
		resp, err := http.Get(ts.URL + "/api/frame.png")
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusInternalServerError {
			t.Errorf("Expected 500, got %d", resp.StatusCode)
		}
	})
}

// TestAPIWithRealEngine drives the real engine through the router
func TestAPIWithRealEngine(t *testing.T) {
	cfg := game.DefaultConfig()
	cfg.Level = nil
	engine, err := game.NewEngine(game.EngineConfig{
		TickRate: 30,
		Game:     cfg,
		NewWorld: func() physics.World { return physicstest.New() },
	})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	ts := newTestServer(t, engine, nil)

	resp := postJSON(t, ts.URL+"/api/enemies", `{"x": 0, "y": -20, "hp": 40, "size": 1, "speed": 5}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	postJSON(t, ts.URL+"/api/input/keydown", `{"code": "KeyD"}`)
	engine.Advance(0.5)

	r, err := http.Get(ts.URL + "/api/state")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer r.Body.Close()
	var snap game.GameSnapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(snap.Enemies) != 1 || snap.Enemies[0].HP != 40 {
		t.Errorf("Expected the posted enemy, got %+v", snap.Enemies)
	}
	if snap.Player.X != 10 {
		t.Errorf("Expected the player to move right to x=10, got %f", snap.Player.X)
	}
}

// TestAPIHealth tests the health endpoint
func TestAPIHealth(t *testing.T) {
	ts := newTestServer(t, NewMockEngine(), nil)
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "OK" {
		t.Errorf("Expected 200 OK, got %d %q", resp.StatusCode, body)
	}
}

// ============================================================================
// Rate Limiting Tests
// ============================================================================

// TestAPIRateLimit verifies bursts beyond the read budget get 429
func TestAPIRateLimit(t *testing.T) {
	limiter := api.NewIPRateLimiter(api.RateLimitConfig{
		Read:        api.Budget{PerSecond: 1, Burst: 3},
		IdleTimeout: time.Hour,
	})
	defer limiter.Stop()

	router := api.NewRouter(api.RouterConfig{
		Engine:         NewMockEngine(),
		RateLimiter:    limiter,
		DisableLogging: true,
	})
	ts := httptest.NewServer(router)
	defer ts.Close()

	var statuses []int
	for i := 0; i < 5; i++ {
		resp, err := http.Get(ts.URL + "/api/state")
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		resp.Body.Close()
		statuses = append(statuses, resp.StatusCode)
	}

	if statuses[2] != http.StatusOK {
		t.Errorf("Expected the burst to pass, got %v", statuses)
	}
	if statuses[4] != http.StatusTooManyRequests {
		t.Errorf("Expected 429 after the burst, got %v", statuses)
	}
	if limiter.Rejected(api.RouteRead) == 0 {
		t.Error("Expected rejected reads to be counted")
	}

	// /health is never limited
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected health to bypass limits, got %d", resp.StatusCode)
	}
}

// TestAPIRouteClassBudgets verifies polling state cannot starve key events
// and enemy spawns have their own small budget
func TestAPIRouteClassBudgets(t *testing.T) {
	limiter := api.NewIPRateLimiter(api.RateLimitConfig{
		Read:        api.Budget{PerSecond: 0.001, Burst: 1},
		Input:       api.Budget{PerSecond: 0.001, Burst: 4},
		World:       api.Budget{PerSecond: 0.001, Burst: 1},
		IdleTimeout: time.Hour,
	})
	defer limiter.Stop()

	engine := NewMockEngine()
	ts := httptest.NewServer(api.NewRouter(api.RouterConfig{
		Engine:         engine,
		RateLimiter:    limiter,
		DisableLogging: true,
	}))
	defer ts.Close()

	for i := 0; i < 3; i++ {
		resp, err := http.Get(ts.URL + "/api/state")
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		resp.Body.Close()
	}
	if limiter.Rejected(api.RouteRead) != 2 {
		t.Fatalf("Expected 2 rejected reads, got %d", limiter.Rejected(api.RouteRead))
	}

	for i := 0; i < 4; i++ {
		resp := postJSON(t, ts.URL+"/api/input/keydown", `{"code":"KeyA"}`)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Key event %d should use the input budget, got %d", i, resp.StatusCode)
		}
	}
	if resp := postJSON(t, ts.URL+"/api/input/keyup", `{"code":"KeyA"}`); resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("Expected the input budget to run out, got %d", resp.StatusCode)
	}

	body := `{"x": 0, "y": -20, "hp": 10, "size": 1, "speed": 5}`
	if resp := postJSON(t, ts.URL+"/api/enemies", body); resp.StatusCode != http.StatusOK {
		t.Fatalf("First spawn should pass, got %d", resp.StatusCode)
	}
	if resp := postJSON(t, ts.URL+"/api/enemies", body); resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("Expected the world budget to run out, got %d", resp.StatusCode)
	}
	if resp := postJSON(t, ts.URL+"/api/level/restart", `{}`); resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("Restart shares the world budget, got %d", resp.StatusCode)
	}
	if n := len(engine.spawned()); n != 1 {
		t.Errorf("Expected one spawned enemy, got %d", n)
	}
	if limiter.Clients() != 1 {
		t.Errorf("Expected one client tracked, got %d", limiter.Clients())
	}
}

// TestBudgetFor verifies the derived burst
func TestBudgetFor(t *testing.T) {
	tests := map[float64]int{20: 40, 2: 4, 0.25: 1}
	for rps, burst := range tests {
		if got := api.BudgetFor(rps); got.Burst != burst || got.PerSecond != rps {
			t.Errorf("BudgetFor(%v) = %+v, want burst %d", rps, got, burst)
		}
	}
}

// TestClientIP covers proxy headers and RemoteAddr
func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		trustProxy bool
		want       string
	}{
		{"remote addr", nil, false, "10.0.0.1"},
		{"forwarded chain", map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.1"}, true, "1.2.3.4"},
		{"real ip", map[string]string{"X-Real-IP": " 5.6.7.8 "}, true, "5.6.7.8"},
		{"untrusted headers ignored", map[string]string{"X-Forwarded-For": "1.2.3.4"}, false, "10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = "10.0.0.1:5555"
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := api.ClientIP(r, tt.trustProxy); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

// TestIsAllowedOrigin verifies only pages served from this machine pass
func TestIsAllowedOrigin(t *testing.T) {
	tests := map[string]bool{
		"":                      false,
		"http://localhost":      true,
		"http://localhost:5173": true,
		"https://localhost":     true,
		"http://127.0.0.1:3000": true,
		"http://[::1]:8080":     true,
		"http://localhost.evil": false,
		"https://example.com":   false,
		"file://localhost":      false,
	}
	for origin, want := range tests {
		if got := api.IsAllowedOrigin(origin); got != want {
			t.Errorf("IsAllowedOrigin(%q) = %v, want %v", origin, got, want)
		}
	}
}

// TestConnLimiter verifies the per-IP connection cap
func TestConnLimiter(t *testing.T) {
	cl := api.NewConnLimiter(2)

	if !cl.Acquire("1.1.1.1") || !cl.Acquire("1.1.1.1") {
		t.Fatal("First two connections should be allowed")
	}
	if cl.Acquire("1.1.1.1") {
		t.Error("Third connection should be rejected")
	}
	if !cl.Acquire("2.2.2.2") {
		t.Error("Other IPs are limited separately")
	}

	cl.Release("1.1.1.1")
	if got := cl.Open("1.1.1.1"); got != 1 {
		t.Errorf("Expected 1 connection after release, got %d", got)
	}
	cl.Release("1.1.1.1")
	cl.Release("1.1.1.1")
	if got := cl.Open("1.1.1.1"); got != 0 {
		t.Errorf("Extra releases must not go negative, got %d", got)
	}
}

// ============================================================================
// WebSocket Tests
// ============================================================================

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	header := http.Header{"Origin": []string{"http://localhost"}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	return conn
}

// TestWebSocketSnapshotsAndKeys verifies the feed and key forwarding
func TestWebSocketSnapshotsAndKeys(t *testing.T) {
	engine := NewMockEngine()
	server := api.NewServer(engine, api.ServerOptions{
		BroadcastInterval: 10 * time.Millisecond,
		DisableLogging:    true,
	})
	server.StartWorkers()
	defer server.Stop()

	ts := httptest.NewServer(server.Router())
	defer ts.Close()

	conn := dialWS(t, ts)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Expected a snapshot broadcast: %v", err)
	}
	var msg struct {
		Event string            `json:"event"`
		Data  game.GameSnapshot `json:"data"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if msg.Event != "game:state" || msg.Data.TickNumber != 7 {
		t.Errorf("Unexpected message %s", data)
	}

	if err := conn.WriteJSON(map[string]string{"type": "keydown", "code": "KeyA"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	conn.Close()

	// The disconnect releases the held key
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		down, up := engine.keys()
		if len(down) == 1 && len(up) == 1 && up[0] == "KeyA" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	down, up := engine.keys()
	t.Errorf("Expected KeyA pressed then released on disconnect, got down=%v up=%v", down, up)
}

// TestWebSocketRejectsForeignOrigin verifies the origin check
func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	server := api.NewServer(NewMockEngine(), api.ServerOptions{DisableLogging: true})
	server.StartWorkers()
	defer server.Stop()

	ts := httptest.NewServer(server.Router())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"https://example.com"}})
	if err == nil {
		t.Fatal("Expected the handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("Expected 403, got %v", resp)
	}
}

// ============================================================================
// Observability Tests
// ============================================================================

// TestMetricsExposed verifies observer calls land on /metrics
func TestMetricsExposed(t *testing.T) {
	var m api.Metrics
	m.UnitSpawned(game.FactionEnemy)
	m.UnitKilled(game.FactionEnemy)
	m.BulletFired(game.FactionPlayer)
	m.BulletExploded(2)
	m.ObserveTick(time.Millisecond, 4, 1)

	ts := httptest.NewServer(api.DebugHandler(api.DefaultObservabilityConfig()))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, want := range []string{
		`arena_units_spawned_total{faction="enemy"}`,
		`arena_units_killed_total{faction="enemy"}`,
		`arena_bullets_fired_total{faction="player"}`,
		"arena_bullet_explosion_touches_count",
		"arena_enemies 4",
		"game_tick_duration_seconds_count",
	} {
		if !bytes.Contains(body, []byte(want)) {
			t.Errorf("Expected %s in metrics output", want)
		}
	}
}

// TestDebugHandlerBasicAuth verifies the optional auth wrapper
func TestDebugHandlerBasicAuth(t *testing.T) {
	cfg := api.DefaultObservabilityConfig()
	cfg.BasicAuthUser, cfg.BasicAuthPass = "ops", "secret"
	ts := httptest.NewServer(api.DebugHandler(cfg))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 without credentials, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	req.SetBasicAuth("ops", "secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 with credentials, got %d", resp.StatusCode)
	}
}
