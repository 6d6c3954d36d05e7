package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/twopeaks/controlroom/internal/controller"
	appErrors "github.com/twopeaks/controlroom/internal/errors"
	"github.com/twopeaks/controlroom/internal/service"
)

// SupportHandler serves the customer support assistant.
type SupportHandler struct {
	Service *service.SupportService
}

func (h *SupportHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		controller.WriteError(w, r, appErrors.NewInvalidField("body", "is not valid JSON"))
		return
	}
	reply, err := h.Service.Answer(r.Context(), chi.URLParam(r, "sessionID"), payload.Message)
	if err != nil {
		controller.WriteError(w, r, err)
		return
	}
	controller.WriteJSON(w, http.StatusOK, reply)
}

func (h *SupportHandler) Topics(w http.ResponseWriter, r *http.Request) {
	limit := service.DefaultTopicLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			controller.WriteError(w, r, appErrors.NewInvalidField("limit", "must be a positive integer"))
			return
		}
		limit = n
	}
	topics, err := h.Service.Topics(r.Context(), limit)
	if err != nil {
		controller.WriteError(w, r, err)
		return
	}
	controller.WriteJSON(w, http.StatusOK, map[string]any{"data": topics})
}
