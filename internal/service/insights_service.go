package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/twopeaks/controlroom/internal/config"
	"github.com/twopeaks/controlroom/internal/llm"
	"github.com/twopeaks/controlroom/internal/model"
	"github.com/twopeaks/controlroom/internal/repository"
)

const (
	insightsTemperature = 0.4
	insightsTableRows   = 20

	NoInsightsData = "No customer data available to generate insights."
)

// SegmentCustomers aggregates orders per email and assigns each customer
// a behavioural segment. Results are sorted by email.
func SegmentCustomers(orders []model.Order, now time.Time) []model.CustomerSegment {
	byEmail := map[string]*model.CustomerSegment{}
	for _, o := range orders {
		email := strings.ToLower(strings.TrimSpace(o.Email))
		if email == "" {
			continue
		}
		seg, ok := byEmail[email]
		if !ok {
			seg = &model.CustomerSegment{Email: email, FirstName: o.FirstName}
			byEmail[email] = seg
		}
		seg.TotalOrders++
		seg.TotalSpent += o.Total
		if o.CreatedAt.After(seg.LastOrder) {
			seg.LastOrder = o.CreatedAt
			if o.FirstName != "" {
				seg.FirstName = o.FirstName
			}
		}
	}

	out := make([]model.CustomerSegment, 0, len(byEmail))
	for _, seg := range byEmail {
		seg.AvgOrderValue = seg.TotalSpent / float64(seg.TotalOrders)
		seg.RecencyDays = int(now.Sub(seg.LastOrder).Hours() / 24)
		seg.Segment = classifySegment(*seg)
		seg.InsightSummary = segmentInsight(*seg)
		out = append(out, *seg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out
}

func classifySegment(s model.CustomerSegment) string {
	switch {
	case s.TotalOrders >= 3 && s.RecencyDays < 30:
		return model.SegmentLoyalist
	case s.TotalOrders == 1 && s.TotalSpent > 40:
		return model.SegmentHighValueNew
	case s.TotalOrders == 1:
		return model.SegmentFirstTime
	case s.TotalOrders >= 2 && s.RecencyDays > 45:
		return model.SegmentAtRisk
	default:
		return model.SegmentEngaged
	}
}

func segmentInsight(s model.CustomerSegment) string {
	switch s.Segment {
	case model.SegmentLoyalist:
		return fmt.Sprintf("%s orders often and recently, a loyal fan of Two Peaks.", s.FirstName)
	case model.SegmentHighValueNew:
		return "New but premium: high order value, ripe for a follow-up campaign."
	case model.SegmentAtRisk:
		return "Has not ordered recently; consider a reactivation offer."
	case model.SegmentEngaged:
		return "Engaged customer, orders semi-regularly."
	default:
		return "First-time buyer; send the nurturing welcome series."
	}
}

// InsightsService turns order history into segments and a written report.
type InsightsService struct {
	Orders repository.OrderRepositoryInterface
	LLM    llm.Client
	Brand  config.Brand
	Now    func() time.Time
}

func (s *InsightsService) Segments(ctx context.Context) ([]model.CustomerSegment, error) {
	orders, err := s.Orders.ListOrders(ctx, "")
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	return SegmentCustomers(orders, now), nil
}

// Summarize writes a marketing report over the first segments.
func (s *InsightsService) Summarize(ctx context.Context, segments []model.CustomerSegment) (string, error) {
	if len(segments) == 0 {
		return NoInsightsData, nil
	}
	prompt := RenderTemplate(s.Brand.InsightsPrompt, map[string]string{
		"segment_table": SegmentTable(segments, insightsTableRows),
	})
	report, err := s.LLM.Complete(ctx, llm.Prompt(prompt, insightsTemperature))
	if err != nil {
		return "", fmt.Errorf("insights report: %w", err)
	}
	return strings.TrimSpace(report), nil
}

// SegmentTable renders up to limit segments as a plain text table.
func SegmentTable(segments []model.CustomerSegment, limit int) string {
	var b strings.Builder
	b.WriteString("first_name | segment | total_orders | total_spent | recency_days\n")
	for i, s := range segments {
		if i == limit {
			break
		}
		fmt.Fprintf(&b, "%s | %s | %d | %.2f | %d\n", s.FirstName, s.Segment, s.TotalOrders, s.TotalSpent, s.RecencyDays)
	}
	return b.String()
}
