package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/twopeaks/controlroom/internal/controller"
)

// Router bundles every HTTP surface of the control room.
type Router struct {
	Health    *HealthHandler
	Pipeline  *controller.PipelineController
	Review    *controller.ReviewController
	Orders    *controller.OrderController
	Support   *SupportHandler
	Analytics *AnalyticsHandler
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", rt.Health.Health)
	r.Get("/health/db", rt.Health.HealthDB)
	r.Handle("/metrics", promhttp.Handler())

	rt.Pipeline.Routes(r)
	rt.Review.Routes(r)
	rt.Orders.Routes(r)

	r.Post("/support/sessions/{sessionID}/messages", rt.Support.PostMessage)
	r.Get("/support/topics", rt.Support.Topics)

	r.Get("/insights/segments", rt.Analytics.Segments)
	r.Post("/insights/summary", rt.Analytics.Summary)
	r.Get("/finance/metrics", rt.Analytics.FinanceMetrics)
	r.Post("/finance/ask", rt.Analytics.FinanceAsk)
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Int("status", ww.Status()).
			Dur("took", time.Since(start)).Str("request_id", middleware.GetReqID(r.Context())).Msg("http")
	})
}
