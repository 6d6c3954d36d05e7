package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/twopeaks/controlroom/internal/config"
	"github.com/twopeaks/controlroom/internal/model"
	"github.com/twopeaks/controlroom/internal/repository"
)

func TestSegmentCustomers(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	daysAgo := func(d int) time.Time { return now.AddDate(0, 0, -d) }
	orders := []model.Order{
		{Email: "loyal@x.com", FirstName: "Asha", Total: 20, CreatedAt: daysAgo(40)},
		{Email: "loyal@x.com", FirstName: "Asha", Total: 20, CreatedAt: daysAgo(20)},
		{Email: "LOYAL@x.com", FirstName: "Asha", Total: 20, CreatedAt: daysAgo(3)},
		{Email: "big@x.com", FirstName: "Raj", Total: 44.5, CreatedAt: daysAgo(10)},
		{Email: "first@x.com", FirstName: "Maya", Total: 15, CreatedAt: daysAgo(10)},
		{Email: "lapsed@x.com", FirstName: "John", Total: 18, CreatedAt: daysAgo(90)},
		{Email: "lapsed@x.com", FirstName: "John", Total: 18, CreatedAt: daysAgo(60)},
		{Email: "steady@x.com", FirstName: "Neha", Total: 25, CreatedAt: daysAgo(30)},
		{Email: "steady@x.com", FirstName: "Neha", Total: 25, CreatedAt: daysAgo(12)},
		{Email: "", Total: 99},
	}

	segs := SegmentCustomers(orders, now)
	want := map[string]string{
		"big@x.com":    model.SegmentHighValueNew,
		"first@x.com":  model.SegmentFirstTime,
		"lapsed@x.com": model.SegmentAtRisk,
		"loyal@x.com":  model.SegmentLoyalist,
		"steady@x.com": model.SegmentEngaged,
	}
	if len(segs) != len(want) {
		t.Fatalf("got %d segments, want %d", len(segs), len(want))
	}
	for i, s := range segs {
		if want[s.Email] != s.Segment {
			t.Errorf("%s: segment %q, want %q", s.Email, s.Segment, want[s.Email])
		}
		if i > 0 && segs[i-1].Email > s.Email {
			t.Errorf("not sorted by email")
		}
		if s.InsightSummary == "" {
			t.Errorf("%s has no insight", s.Email)
		}
	}
	loyal := segs[3]
	if loyal.TotalOrders != 3 || loyal.TotalSpent != 60 || loyal.AvgOrderValue != 20 || loyal.RecencyDays != 3 {
		t.Errorf("loyalist aggregates wrong: %+v", loyal)
	}
}

func TestInsightsSummarize(t *testing.T) {
	ctx := context.Background()
	client := &fakeLLM{textFn: func(string) (string, error) { return "  Strong repeat base.  ", nil }}
	svc := &InsightsService{Orders: repository.NewMemory(), LLM: client, Brand: config.DefaultBrand()}

	report, err := svc.Summarize(ctx, nil)
	if err != nil || report != NoInsightsData {
		t.Fatalf("empty data: %q %v", report, err)
	}
	if len(client.prompts) != 0 {
		t.Error("model called without data")
	}

	segs := []model.CustomerSegment{{FirstName: "Asha", Segment: model.SegmentLoyalist, TotalOrders: 3, TotalSpent: 60}}
	report, err = svc.Summarize(ctx, segs)
	if err != nil || report != "Strong repeat base." {
		t.Fatalf("report %q err %v", report, err)
	}
	if !strings.Contains(client.prompts[0], "Asha | Loyalist | 3 | 60.00") {
		t.Errorf("segment table missing from prompt: %q", client.prompts[0])
	}
}

func TestSegmentTableLimit(t *testing.T) {
	segs := make([]model.CustomerSegment, 30)
	lines := strings.Count(SegmentTable(segs, insightsTableRows), "\n")
	if lines != insightsTableRows+1 {
		t.Errorf("table has %d lines, want %d", lines, insightsTableRows+1)
	}
}
