package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Swind/go-simpleq/core"
)

const defaultTaskLimit = 20

// Handlers contains all HTTP handlers.
type Handlers struct {
	ctrl   Controller
	logger core.Logger
}

// Response helpers

type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{Success: false, Error: message})
}

// HealthCheck returns the health status.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// GetStatus returns the queue stats snapshot.
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.Stats())
}

// ListTasks returns recently finished tasks, newest first.
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	limit := defaultTaskLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	tasks := h.ctrl.RecentTasks(limit)
	if tasks == nil {
		tasks = []core.TaskExecutionRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tasks": tasks,
		"count": len(tasks),
	})
}

// Pause stops new tasks from starting.
func (h *Handlers) Pause(w http.ResponseWriter, r *http.Request) {
	h.ctrl.Pause()
	writeJSON(w, http.StatusOK, h.ctrl.Stats())
}

// Resume restarts dispatch.
func (h *Handlers) Resume(w http.ResponseWriter, r *http.Request) {
	h.ctrl.Resume()
	writeJSON(w, http.StatusOK, h.ctrl.Stats())
}

// Kill discards every pending task.
func (h *Handlers) Kill(w http.ResponseWriter, r *http.Request) {
	h.ctrl.Kill()
	writeJSON(w, http.StatusOK, h.ctrl.Stats())
}

type concurrencyRequest struct {
	Concurrency *int `json:"concurrency"`
}

// SetConcurrency changes the concurrency limit.
func (h *Handlers) SetConcurrency(w http.ResponseWriter, r *http.Request) {
	var req concurrencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Concurrency == nil {
		writeError(w, http.StatusBadRequest, "concurrency is required")
		return
	}

	if err := h.ctrl.SetConcurrency(*req.Concurrency); err != nil {
		if errors.Is(err, core.ErrInvalidConcurrency) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.ctrl.Stats())
}
