package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/twopeaks/controlroom/internal/config"
	appErrors "github.com/twopeaks/controlroom/internal/errors"
	"github.com/twopeaks/controlroom/internal/model"
	"github.com/twopeaks/controlroom/internal/repository"
	"github.com/twopeaks/controlroom/internal/sheets"
)

func newEngagement(store *repository.MemoryStore) *EngagementService {
	return &EngagementService{
		Events: store,
		Brand:  config.DefaultBrand(),
		Rand:   NewRand(42),
		Now:    func() time.Time { return time.Date(2025, 6, 1, 18, 30, 0, 0, time.UTC) },
	}
}

func TestSimulate_ShapeAndUniqueness(t *testing.T) {
	store := repository.NewMemory()
	svc := newEngagement(store)
	events, err := svc.Simulate(context.Background(), 40)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 40 {
		t.Fatalf("got %d events", len(events))
	}

	handle := regexp.MustCompile(`^[a-z_]+_\d{3,4}$`)
	seen := map[string]bool{}
	for _, ev := range events {
		if seen[ev.Username] {
			t.Errorf("duplicate username %s", ev.Username)
		}
		seen[ev.Username] = true
		if !handle.MatchString(ev.Username) {
			t.Errorf("unexpected username shape %q", ev.Username)
		}
		if ev.Likes < 10 || ev.Likes > 100 || ev.Followers < 500 || ev.Followers > 5000 {
			t.Errorf("counts out of range: %+v", ev)
		}
		if ev.Timestamp.Location().String() != engagementZone {
			t.Errorf("timestamp zone %s", ev.Timestamp.Location())
		}
	}

	more, err := svc.Simulate(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	for _, ev := range more {
		if seen[ev.Username] {
			t.Errorf("second batch reused %s", ev.Username)
		}
	}
}

func TestIngest_Validation(t *testing.T) {
	svc := newEngagement(repository.NewMemory())
	ctx := context.Background()

	bad := []model.EngagementEvent{
		{CommentText: "hi"},
		{Username: "@someone"},
		{Username: "x", CommentText: "y", Likes: -1},
	}
	for _, ev := range bad {
		if _, err := svc.Ingest(ctx, ev); !appErrors.IsInvalidInput(err) {
			t.Errorf("Ingest(%+v) = %v, want invalid input", ev, err)
		}
	}

	got, err := svc.Ingest(ctx, model.EngagementEvent{Username: " @chai_lover ", CommentText: "Need this!"})
	if err != nil {
		t.Fatal(err)
	}
	if got.Username != "chai_lover" || got.Timestamp.IsZero() {
		t.Errorf("unexpected event %+v", got)
	}
}

func TestImportRecords_SkipsIncompleteRows(t *testing.T) {
	store := repository.NewMemory()
	svc := newEngagement(store)
	n, err := svc.ImportRecords(context.Background(), []sheets.Record{
		{"username": "@legacy_1", "comment": "old comment", "likes": "7", "followers": "x", "timestamp": "2024-03-01 10:00:00"},
		{"username": "", "comment": "orphan"},
		{"username": "legacy_2", "comment_text": "alt header"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("imported %d, want 2", n)
	}
	events, _ := store.ListEvents(context.Background())
	if events[0].Username != "legacy_1" || events[0].Likes != 7 || events[0].Followers != 0 {
		t.Errorf("unexpected first event %+v", events[0])
	}
	if events[0].Timestamp.Year() != 2024 {
		t.Errorf("timestamp not parsed: %v", events[0].Timestamp)
	}
}

func TestGeneratorsRejectOutOfRangeCounts(t *testing.T) {
	store := repository.NewMemory()
	engagement := newEngagement(store)
	orders := newFulfillment(store, &fakeLLM{})
	ctx := context.Background()

	for _, n := range []int{-1, 0, MaxGenerated + 1, 2_000_000_000} {
		if _, err := engagement.Simulate(ctx, n); !appErrors.IsInvalidInput(err) {
			t.Errorf("Simulate(%d): expected invalid input, got %v", n, err)
		}
		if _, err := orders.GenerateMockOrders(ctx, n); !appErrors.IsInvalidInput(err) {
			t.Errorf("GenerateMockOrders(%d): expected invalid input, got %v", n, err)
		}
	}
	if evs, _ := store.ListEvents(ctx); len(evs) != 0 {
		t.Errorf("rejected calls wrote %d events", len(evs))
	}
	if _, err := engagement.Simulate(ctx, MaxGenerated); err != nil {
		t.Errorf("Simulate at the cap: %v", err)
	}
}
