package controller

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/twopeaks/controlroom/internal/model"
	"github.com/twopeaks/controlroom/internal/service"
)

const defaultSimulateCount = 10

// PipelineController drives engagement capture, scoring and drafting.
type PipelineController struct {
	EngagementService *service.EngagementService
	ScoringService    *service.ScoringService
	GenerationService *service.GenerationService
}

func (c *PipelineController) Routes(r chi.Router) {
	r.Post("/engagement", c.Ingest)
	r.Get("/engagement", c.ListEngagement)
	r.Post("/engagement/simulate", c.Simulate)
	r.Post("/leads/score", c.ScoreLeads)
	r.Get("/leads", c.ListLeads)
	r.Post("/templates/generate", c.GenerateTemplates)
}

type engagementBody struct {
	Username  string     `json:"username"`
	Comment   string     `json:"comment"`
	Likes     int        `json:"likes"`
	Followers int        `json:"followers"`
	Timestamp *time.Time `json:"timestamp"`
}

func (c *PipelineController) Ingest(w http.ResponseWriter, r *http.Request) {
	var body engagementBody
	if err := decodeBody(r, &body); err != nil {
		WriteError(w, r, err)
		return
	}
	ev := model.EngagementEvent{
		Username:    body.Username,
		CommentText: body.Comment,
		Likes:       body.Likes,
		Followers:   body.Followers,
	}
	if body.Timestamp != nil {
		ev.Timestamp = *body.Timestamp
	}
	stored, err := c.EngagementService.Ingest(r.Context(), ev)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, stored)
}

func (c *PipelineController) ListEngagement(w http.ResponseWriter, r *http.Request) {
	events, err := c.EngagementService.List(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"data": events, "count": len(events)})
}

func (c *PipelineController) Simulate(w http.ResponseWriter, r *http.Request) {
	count, err := queryInt(r, "count", defaultSimulateCount)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	events, err := c.EngagementService.Simulate(r.Context(), count)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{"data": events, "count": len(events)})
}

func (c *PipelineController) ScoreLeads(w http.ResponseWriter, r *http.Request) {
	leads, err := c.ScoringService.ScorePending(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"data": leads, "count": len(leads)})
}

func (c *PipelineController) ListLeads(w http.ResponseWriter, r *http.Request) {
	minScore, err := queryInt(r, "min_score", model.MinScore)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	leads, err := c.ScoringService.ListLeads(r.Context(), minScore)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"data": leads, "count": len(leads)})
}

func (c *PipelineController) GenerateTemplates(w http.ResponseWriter, r *http.Request) {
	threshold, err := queryInt(r, "threshold", 0)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	templates, err := c.GenerationService.GenerateQualified(r.Context(), threshold)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"data": templates, "count": len(templates)})
}
