package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	appErrors "github.com/twopeaks/controlroom/internal/errors"
	"github.com/twopeaks/controlroom/internal/model"
	"github.com/twopeaks/controlroom/internal/service"
)

type ReviewController struct {
	ReviewService *service.ReviewService
}

func (c *ReviewController) Routes(r chi.Router) {
	r.Get("/review/{table}/queued", c.ListQueued)
	r.Get("/review/{table}/stats", c.Stats)
	r.Get("/review/{table}/items", c.ListByStatus)
	r.Get("/review/{table}/{id}", c.Get)
	r.Post("/review/{table}/{id}/claim", c.Claim)
	r.Delete("/review/{table}/{id}/claim", c.Release)
	r.Post("/review/{table}/{id}/decision", c.Decide)
}

func (c *ReviewController) ListQueued(w http.ResponseWriter, r *http.Request) {
	table, err := tableParam(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	items, err := c.ReviewService.ListQueued(r.Context(), table)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"data": items, "count": len(items)})
}

func (c *ReviewController) Stats(w http.ResponseWriter, r *http.Request) {
	table, err := tableParam(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	stats, err := c.ReviewService.Stats(r.Context(), table)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

// ListByStatus lists items of any status, ?status=SENT for the audit view.
func (c *ReviewController) ListByStatus(w http.ResponseWriter, r *http.Request) {
	table, err := tableParam(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	status, ok := model.ParseStatus(r.URL.Query().Get("status"))
	if !ok {
		WriteError(w, r, appErrors.NewInvalidField("status", "must be QUEUED, APPROVED, REJECTED or SENT"))
		return
	}
	items, err := c.ReviewService.ListByStatus(r.Context(), table, status)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"data": items, "count": len(items)})
}

func (c *ReviewController) Get(w http.ResponseWriter, r *http.Request) {
	table, id, err := c.target(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	item, err := c.ReviewService.Get(r.Context(), table, id)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, item)
}

type claimBody struct {
	Reviewer string `json:"reviewer"`
}

func (c *ReviewController) target(r *http.Request) (model.ReviewTable, uuid.UUID, error) {
	table, err := tableParam(r)
	if err != nil {
		return "", uuid.Nil, err
	}
	id, err := idParam(r)
	return table, id, err
}

func (c *ReviewController) Claim(w http.ResponseWriter, r *http.Request) {
	table, id, err := c.target(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	var body claimBody
	if err := decodeBody(r, &body); err != nil {
		WriteError(w, r, err)
		return
	}
	item, err := c.ReviewService.Claim(r.Context(), table, id, body.Reviewer)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, item)
}

func (c *ReviewController) Release(w http.ResponseWriter, r *http.Request) {
	table, id, err := c.target(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	reviewer := r.URL.Query().Get("reviewer")
	if err := c.ReviewService.Release(r.Context(), table, id, reviewer); err != nil {
		WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type decisionBody struct {
	Status     string  `json:"status"`
	Version    int     `json:"version"`
	Subject    *string `json:"subject"`
	Message    *string `json:"message"`
	ReviewedBy string  `json:"reviewed_by"`
}

// Decide records APPROVED or REJECTED, optionally with edits.
func (c *ReviewController) Decide(w http.ResponseWriter, r *http.Request) {
	table, id, err := c.target(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	var body decisionBody
	if err := decodeBody(r, &body); err != nil {
		WriteError(w, r, err)
		return
	}
	status, ok := model.ParseStatus(body.Status)
	if !ok || !status.IsDecision() {
		WriteError(w, r, appErrors.NewInvalidDecision(body.Status))
		return
	}

	item, err := c.ReviewService.Decide(r.Context(), table, id, model.Decision{
		Status:          status,
		ExpectedVersion: body.Version,
		Subject:         body.Subject,
		Message:         body.Message,
		ReviewedBy:      body.ReviewedBy,
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, item)
}
