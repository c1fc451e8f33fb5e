package api

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"spark-arena/internal/game"
)

// DefaultEventPage is how many events /api/events returns without ?n=
const DefaultEventPage = 20

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.GetSnapshot())
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	snapshot := h.engine.GetSnapshot()
	writeJSON(w, map[string]interface{}{
		"tick":       snapshot.TickNumber,
		"elapsed":    snapshot.Elapsed,
		"enemyCount": snapshot.EnemyCount,
		"kills":      snapshot.Kills,
		"levelDone":  snapshot.LevelDone,
		"playerHp":   snapshot.Player.HP,
		"eventLog":   h.engine.EventLogStats(),
	})
}

// eventView renders an event with its type name and inline payload
type eventView struct {
	Type     string          `json:"type"`
	Sequence uint64          `json:"sequence"`
	Tick     uint64          `json:"tick"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

func (h *routerHandlers) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	n := DefaultEventPage
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			writeError(w, "n must be a positive integer", http.StatusBadRequest)
			return
		}
		n = parsed
	}

	events := h.engine.RecentEvents(n)
	out := make([]eventView, 0, len(events))
	for _, ev := range events {
		out = append(out, eventView{
			Type:     ev.Type.String(),
			Sequence: ev.Sequence,
			Tick:     ev.TickNum,
			Payload:  ev.Payload,
		})
	}
	writeJSON(w, out)
}

func (h *routerHandlers) handleGetFrame(w http.ResponseWriter, r *http.Request) {
	if h.renderer == nil {
		writeError(w, "Renderer disabled", http.StatusNotFound)
		return
	}

	var buf bytes.Buffer
	if err := h.renderer.EncodePNG(&buf, h.engine.GetSnapshot()); err != nil {
		log.Printf("⚠️ Frame render failed: %v", err)
		writeError(w, "Render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

type keyRequest struct {
	Code string `json:"code"`
}

func (h *routerHandlers) handleKeyDown(w http.ResponseWriter, r *http.Request) {
	h.handleKey(w, r, h.engine.OnKeyDown)
}

func (h *routerHandlers) handleKeyUp(w http.ResponseWriter, r *http.Request) {
	h.handleKey(w, r, h.engine.OnKeyUp)
}

func (h *routerHandlers) handleKey(w http.ResponseWriter, r *http.Request, apply func(string) bool) {
	var req keyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Code == "" {
		writeError(w, "Code is required", http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]bool{"handled": apply(req.Code)})
}

func (h *routerHandlers) handleAddEnemy(w http.ResponseWriter, r *http.Request) {
	var cfg game.EnemyConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if cfg.State.Type == "" {
		cfg.State.Type = game.BehaviorFollowUp
	}

	id, err := h.engine.AddEnemy(cfg)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]string{"id": id})
}

func (h *routerHandlers) handleRestart(w http.ResponseWriter, r *http.Request) {
	log.Println("🔄 Restart requested via API")
	if err := h.engine.Restart(); err != nil {
		log.Printf("❌ Restart failed: %v", err)
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
