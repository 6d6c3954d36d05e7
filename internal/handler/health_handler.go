package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/twopeaks/controlroom/internal/controller"
)

// Pinger is satisfied by *sqlx.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	// DB is nil when the memory store is in use.
	DB     Pinger
	Driver string
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	controller.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthHandler) HealthDB(w http.ResponseWriter, r *http.Request) {
	if h.DB == nil {
		controller.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "driver": h.Driver})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.DB.PingContext(ctx); err != nil {
		controller.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	controller.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "driver": h.Driver})
}
