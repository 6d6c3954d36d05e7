package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/twopeaks/controlroom/internal/config"
	appErrors "github.com/twopeaks/controlroom/internal/errors"
	"github.com/twopeaks/controlroom/internal/llm"
	"github.com/twopeaks/controlroom/internal/metrics"
	"github.com/twopeaks/controlroom/internal/model"
	"github.com/twopeaks/controlroom/internal/repository"
	"github.com/twopeaks/controlroom/internal/sheets"
)

const fulfillmentTemperature = 0.7

// FulfillmentService handles mock orders and post-purchase emails.
type FulfillmentService struct {
	Orders  repository.OrderRepositoryInterface
	Reviews repository.ReviewRepositoryInterface
	LLM     llm.Client
	Mirror  *sheets.Mirror
	Brand   config.Brand
	Rand    *Rand
	Now     func() time.Time
}

func (s *FulfillmentService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// GenerateMockOrders creates n Shopify-like orders.
func (s *FulfillmentService) GenerateMockOrders(ctx context.Context, n int) ([]model.Order, error) {
	if err := checkCount(n); err != nil {
		return nil, err
	}
	orders := make([]model.Order, 0, n)
	rows := make([][]any, 0, n)
	for i := 0; i < n; i++ {
		o := model.Order{
			CreatedAt: s.now(),
			Email:     fmt.Sprintf("customer%d@example.com", i),
			FirstName: s.Rand.Pick(s.Brand.FirstNames),
			Products:  s.pickProducts(),
			Total:     math.Round(s.Rand.Float(12, 45)*100) / 100,
			Status:    model.AllOrderStatuses[s.Rand.Between(0, len(model.AllOrderStatuses)-1)],
		}

		var err error
		for attempt := 0; attempt < 10; attempt++ {
			o.OrderID = fmt.Sprintf("TP-%d", s.Rand.Between(10000, 99999))
			if err = s.Orders.CreateOrder(ctx, &o); !appErrors.IsConflict(err) {
				break
			}
		}
		if err != nil {
			return orders, err
		}
		orders = append(orders, o)
		rows = append(rows, o.SheetRow())
	}
	s.Mirror.Append(ctx, sheets.PostPurchaseLog, rows...)
	log.Info().Int("count", len(orders)).Msg("✅ mock orders generated")
	return orders, nil
}

func (s *FulfillmentService) pickProducts() string {
	first := s.Rand.Pick(s.Brand.Products)
	if s.Rand.Between(1, 2) == 1 || len(s.Brand.Products) < 2 {
		return first
	}
	second := first
	for second == first {
		second = s.Rand.Pick(s.Brand.Products)
	}
	return first + ", " + second
}

func (s *FulfillmentService) ListOrders(ctx context.Context, status model.OrderStatus) ([]model.Order, error) {
	return s.Orders.ListOrders(ctx, status)
}

// AdvanceOrder moves an order forward through PENDING, SHIPPED, DELIVERED.
func (s *FulfillmentService) AdvanceOrder(ctx context.Context, orderID string, next model.OrderStatus) (*model.Order, error) {
	o, err := s.Orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.Status.CanAdvanceTo(next) {
		return nil, appErrors.NewInvalidTransition("orders", orderID, string(o.Status), string(next))
	}
	if err := s.Orders.UpdateOrderStatus(ctx, orderID, next); err != nil {
		return nil, err
	}
	o.Status = next
	s.Mirror.Append(ctx, sheets.PostPurchaseLog, o.SheetRow())
	return o, nil
}

// GenerateEmails drafts a thank-you email for every delivered order that
// does not have one yet.
func (s *FulfillmentService) GenerateEmails(ctx context.Context) ([]model.FulfillmentTemplate, error) {
	orders, err := s.Orders.ListOrders(ctx, model.OrderDelivered)
	if err != nil {
		return nil, err
	}

	out := []model.FulfillmentTemplate{}
	for _, o := range orders {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		exists, err := s.Reviews.FulfillmentExists(ctx, o.OrderID)
		if err != nil {
			return out, err
		}
		if exists {
			continue
		}

		subject, message := s.draft(ctx, o)
		tpl := &model.FulfillmentTemplate{
			OrderID:   o.OrderID,
			Email:     o.Email,
			FirstName: o.FirstName,
			Subject:   subject,
			Message:   message,
		}
		if err := s.Reviews.CreateFulfillmentTemplate(ctx, tpl); err != nil {
			if appErrors.IsConflict(err) {
				continue
			}
			return out, err
		}
		metrics.RecordTemplate(string(model.TableFulfillment), "created")
		s.Mirror.Append(ctx, sheets.FulfillmentLog, tpl.SheetRow())
		out = append(out, *tpl)
	}
	log.Info().Int("count", len(out)).Msg("✅ fulfillment emails queued for review")
	return out, nil
}

func (s *FulfillmentService) draft(ctx context.Context, o model.Order) (string, string) {
	data := map[string]string{
		"first_name": o.FirstName,
		"products":   o.Products,
		"video_url":  s.Brand.VideoURL,
	}
	req := llm.Prompt(RenderTemplate(s.Brand.FulfillmentPrompt, data), fulfillmentTemperature)

	var subject, message string
	var reply llm.MessageReply
	if err := s.LLM.CompleteJSON(ctx, req, llm.MessageSchema, &reply); err == nil {
		subject, message = strings.TrimSpace(reply.Subject), strings.TrimSpace(reply.Message)
	} else if text, err := s.LLM.Complete(ctx, req); err == nil {
		subject, message = llm.ParseSubjectMessage(text, s.Brand.FulfillmentSubject)
	} else {
		log.Warn().Err(err).Str("order_id", o.OrderID).Msg("⚠️ fulfillment LLM unavailable, using founders' note")
	}

	if subject == "" {
		subject = s.Brand.FulfillmentSubject
	}
	if message == "" {
		metrics.RecordTemplate(string(model.TableFulfillment), "fallback")
		message = RenderTemplate(s.Brand.FulfillmentFallback, data)
	}
	return subject, message
}
