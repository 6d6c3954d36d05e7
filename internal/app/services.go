package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/twopeaks/controlroom/internal/queue"
	"github.com/twopeaks/controlroom/internal/service"
)

// Services holds one instance of every domain service.
type Services struct {
	Engagement  *service.EngagementService
	Scoring     *service.ScoringService
	Generation  *service.GenerationService
	Review      *service.ReviewService
	Fulfillment *service.FulfillmentService
	Support     *service.SupportService
	Insights    *service.InsightsService
	Finance     *service.FinanceService
}

// Services builds the domain services. publisher receives send jobs for
// approved items and may be nil.
func (d *Deps) Services(publisher queue.Publisher) (*Services, error) {
	cfg := d.Config
	channels := cfg.Pipeline.Channels()

	finance, err := service.NewFinanceService(cfg.App.FinanceCSV, d.LLM, d.Brand)
	if err != nil {
		return nil, err
	}

	return &Services{
		Engagement: &service.EngagementService{
			Events: d.Store.Engagement,
			Mirror: d.Mirror,
			Brand:  d.Brand,
			Rand:   d.Rand,
		},
		Scoring: &service.ScoringService{
			Events:               d.Store.Engagement,
			Leads:                d.Store.Leads,
			Reviews:              d.Store.Reviews,
			LLM:                  d.LLM,
			Mirror:               d.Mirror,
			Brand:                d.Brand,
			PlaceholderThreshold: cfg.Pipeline.PlaceholderThreshold,
			Channels:             channels,
		},
		Generation: &service.GenerationService{
			Leads:            d.Store.Leads,
			Reviews:          d.Store.Reviews,
			LLM:              d.LLM,
			Mirror:           d.Mirror,
			Brand:            d.Brand,
			Channels:         channels,
			Threshold:        cfg.Pipeline.TemplateThreshold,
			MinMessageLength: cfg.Pipeline.MinMessageLength,
		},
		Review: &service.ReviewService{
			Reviews:         d.Store.Reviews,
			Queue:           publisher,
			Leases:          d.Leases,
			LeaseTTL:        cfg.Redis.LeaseTTL,
			Mirror:          d.Mirror,
			DefaultReviewer: cfg.App.Reviewer,
		},
		Fulfillment: &service.FulfillmentService{
			Orders:  d.Store.Orders,
			Reviews: d.Store.Reviews,
			LLM:     d.LLM,
			Mirror:  d.Mirror,
			Brand:   d.Brand,
			Rand:    d.Rand,
		},
		Support: &service.SupportService{
			LLM:      d.LLM,
			Tickets:  d.Store.Tickets,
			Sessions: d.Sessions,
			Index:    service.NewVectorIndex(),
			Brand:    d.Brand,
		},
		Insights: &service.InsightsService{
			Orders: d.Store.Orders,
			LLM:    d.LLM,
			Brand:  d.Brand,
		},
		Finance: finance,
	}, nil
}

// LoadFAQ indexes the FAQ corpus in the background. Support answers work
// without context until it finishes.
func (s *Services) LoadFAQ(ctx context.Context, dir string) {
	go func() {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()
		if _, err := s.Support.LoadFAQ(ctx, dir); err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("⚠️ FAQ index not built, support answers run without context")
		}
	}()
}

// SendWorker builds the sender for approved items.
func (d *Deps) SendWorker() *service.SendWorker {
	w := service.NewSendWorker(d.Store.Reviews, d.Store.Orders,
		&service.LogSender{FailureRate: d.Config.Sender.FailureRate, Rand: d.Rand})
	w.Mirror = d.Mirror
	return w
}
