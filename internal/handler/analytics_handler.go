package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/twopeaks/controlroom/internal/controller"
	appErrors "github.com/twopeaks/controlroom/internal/errors"
	"github.com/twopeaks/controlroom/internal/service"
)

// AnalyticsHandler exposes customer insights and the finance assistant.
type AnalyticsHandler struct {
	Insights *service.InsightsService
	Finance  *service.FinanceService
}

func (h *AnalyticsHandler) Segments(w http.ResponseWriter, r *http.Request) {
	segments, err := h.Insights.Segments(r.Context())
	if err != nil {
		controller.WriteError(w, r, err)
		return
	}
	controller.WriteJSON(w, http.StatusOK, map[string]any{"data": segments, "count": len(segments)})
}

func (h *AnalyticsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	segments, err := h.Insights.Segments(r.Context())
	if err != nil {
		controller.WriteError(w, r, err)
		return
	}
	report, err := h.Insights.Summarize(r.Context(), segments)
	if err != nil {
		controller.WriteError(w, r, err)
		return
	}
	controller.WriteJSON(w, http.StatusOK, map[string]any{"report": report, "segments": len(segments)})
}

func (h *AnalyticsHandler) FinanceMetrics(w http.ResponseWriter, r *http.Request) {
	window := 0
	if raw := r.URL.Query().Get("window"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			controller.WriteError(w, r, appErrors.NewInvalidField("window", "must be a positive integer"))
			return
		}
		window = n
	}
	controller.WriteJSON(w, http.StatusOK, h.Finance.Report(window))
}

func (h *AnalyticsHandler) FinanceAsk(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		controller.WriteError(w, r, appErrors.NewInvalidField("body", "is not valid JSON"))
		return
	}
	answer, err := h.Finance.Ask(r.Context(), payload.Question)
	if err != nil {
		controller.WriteError(w, r, err)
		return
	}
	controller.WriteJSON(w, http.StatusOK, map[string]string{"answer": answer})
}
