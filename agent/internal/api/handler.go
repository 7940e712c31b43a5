package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/obsidianstack/capturestack/pkg/capture"
)

// ControlFunc is called after PUT /api/v1/control changed the store flags.
type ControlFunc func(ControlState)

// Handler is the HTTP handler for all /api/v1/* endpoints.
// It reads the capture store and returns JSON responses.
type Handler struct {
	store     *capture.Store
	onControl ControlFunc
	mux       *http.ServeMux
}

// New creates a Handler wired to st and registers all routes. onControl may be
// nil.
func New(st *capture.Store, onControl ControlFunc) http.Handler {
	h := &Handler{store: st, onControl: onControl, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/stacks", h.listStacks)
	h.mux.HandleFunc("/api/v1/stacks/", h.getStack) // subtree, extracts {id}
	h.mux.HandleFunc("/api/v1/control", h.control)
	h.mux.HandleFunc("/api/v1/stats", h.stats)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health: flags and store occupancy.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp := HealthResponse{
		State:     "capturing",
		Enabled:   h.store.Enabled(),
		Debug:     h.store.Debug(),
		DepthMode: h.store.DepthMode().String(),
		Capacity:  h.store.Cap(),
	}
	if !resp.Enabled {
		resp.State = "disabled"
	}
	for _, e := range h.store.Entries() {
		resp.Size++
		if e.Key.Live() {
			resp.LiveCount++
		}
		if e.Snapshot.Deep() {
			resp.DeepCount++
		}
	}
	jsonResp(w, http.StatusOK, resp)
}

// listStacks returns GET /api/v1/stacks: every stored entry, newest first.
func (h *Handler) listStacks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, BuildStacks(h.store))
}

// getStack returns GET /api/v1/stacks/{id}: the stitched stack for the newest
// live object with that identity id.
func (h *Handler) getStack(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	raw := strings.TrimPrefix(r.URL.Path, "/api/v1/stacks/")
	if raw == "" {
		h.listStacks(w, r)
		return
	}
	id, err := parseID(raw)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid stack id")
		return
	}

	e, ok := h.store.Lookup(id)
	if !ok {
		jsonErr(w, http.StatusNotFound, "stack not found")
		return
	}
	jsonResp(w, http.StatusOK, StackResponse{
		StackSummary: toSummary(e),
		Frames:       e.Snapshot.Frames(),
	})
}

// control handles GET and PUT /api/v1/control.
func (h *Handler) control(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPut:
		var req controlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonErr(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.Enabled != nil {
			h.store.SetEnabled(*req.Enabled)
		}
		if req.Debug != nil {
			h.store.SetDebug(*req.Debug)
		}
		state := h.state()
		slog.Info("api: control updated", "enabled", state.Enabled, "debug", state.Debug)
		if h.onControl != nil {
			h.onControl(state)
		}
	default:
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, h.state())
}

// stats returns GET /api/v1/stats: the store's operation counters.
func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, h.store.Stats())
}

// --- helpers ----------------------------------------------------------------

func (h *Handler) state() ControlState {
	return ControlState{Enabled: h.store.Enabled(), Debug: h.store.Debug()}
}

// BuildStacks returns the summary list served by GET /api/v1/stacks, newest
// first. The WebSocket hub pushes the same payload.
func BuildStacks(st *capture.Store) []StackSummary {
	entries := st.Entries()
	out := make([]StackSummary, 0, len(entries))
	for _, e := range entries {
		out = append(out, toSummary(e))
	}
	return out
}

func toSummary(e capture.Entry) StackSummary {
	segments := 0
	for s := e.Snapshot; s != nil; s = s.Ancestor() {
		segments++
	}
	return StackSummary{
		ID:         e.Key.ID(),
		Type:       e.Key.TypeName(),
		Live:       e.Key.Live(),
		Deep:       e.Snapshot.Deep(),
		Segments:   segments,
		RawDepth:   e.Snapshot.RawDepth(),
		CapturedAt: e.Snapshot.CapturedAt().UTC().Format(time.RFC3339Nano),
	}
}

// parseID accepts decimal or 0x-prefixed hex ids.
func parseID(s string) (uint64, error) {
	return strconv.ParseUint(s, 0, 64)
}

func jsonResp(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
