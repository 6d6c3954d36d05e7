package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/twopeaks/controlroom/internal/errors"
	"github.com/twopeaks/controlroom/internal/model"
)

func seedOutreach(t *testing.T, m *MemoryStore, username, subject, message string) *model.OutreachTemplate {
	t.Helper()
	tpl := &model.OutreachTemplate{Username: username, Channel: model.ChannelEmail, Subject: subject, Message: message}
	if err := m.CreateOutreachTemplate(context.Background(), tpl); err != nil {
		t.Fatalf("create template: %v", err)
	}
	return tpl
}

func TestMemoryStore_ListQueuedKeepsInsertionOrder(t *testing.T) {
	m := NewMemory()
	a := seedOutreach(t, m, "alice", "s1", "m1")
	b := seedOutreach(t, m, "bob", "s2", "m2")
	c := seedOutreach(t, m, "carol", "s3", "m3")

	items, err := m.ListByStatus(context.Background(), model.TableOutreach, model.StatusQueued)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []uuid.UUID{a.ID, b.ID, c.ID}
	if len(items) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(items))
	}
	for i, id := range want {
		if items[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, items[i].ID)
		}
		if items[i].Table != model.TableOutreach {
			t.Errorf("position %d: table not set", i)
		}
	}
}

func TestMemoryStore_DecideRemovesFromQueue(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	a := seedOutreach(t, m, "alice", "s1", "m1")
	b := seedOutreach(t, m, "bob", "s2", "m2")

	item, err := m.Decide(ctx, model.TableOutreach, a.ID, model.Decision{Status: model.StatusApproved})
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if item.Status != model.StatusApproved || item.ReviewedBy != model.DefaultReviewer || item.DecidedAt == nil {
		t.Errorf("unexpected decided item: %+v", item)
	}
	if item.Version != 2 {
		t.Errorf("expected version 2, got %d", item.Version)
	}

	queued, _ := m.ListByStatus(ctx, model.TableOutreach, model.StatusQueued)
	if len(queued) != 1 || queued[0].ID != b.ID {
		t.Fatalf("expected only bob queued, got %+v", queued)
	}

	stats, _ := m.ReviewStats(ctx, model.TableOutreach)
	if stats[model.StatusQueued] != 1 || stats[model.StatusApproved] != 1 || stats[model.StatusSent] != 0 {
		t.Errorf("unexpected stats: %v", stats)
	}
}

func TestMemoryStore_SecondDecisionReportsCurrentStatus(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	a := seedOutreach(t, m, "alice", "s1", "m1")

	if _, err := m.Decide(ctx, model.TableOutreach, a.ID, model.Decision{Status: model.StatusRejected}); err != nil {
		t.Fatalf("first decide: %v", err)
	}
	_, err := m.Decide(ctx, model.TableOutreach, a.ID, model.Decision{Status: model.StatusApproved})

	var nf *appErrors.ErrReviewItemNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected not found error, got %v", err)
	}
	if nf.Status != string(model.StatusRejected) {
		t.Errorf("expected status REJECTED on error, got %q", nf.Status)
	}

	got, _ := m.GetReviewItem(ctx, model.TableOutreach, a.ID)
	if got.Status != model.StatusRejected {
		t.Errorf("second decision must not overwrite, got %s", got.Status)
	}
}

func TestMemoryStore_UnknownIDIsNotFound(t *testing.T) {
	m := NewMemory()
	_, err := m.Decide(context.Background(), model.TableFulfillment, uuid.New(), model.Decision{Status: model.StatusApproved})
	if !appErrors.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryStore_StaleVersionConflicts(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	a := seedOutreach(t, m, "alice", "s1", "m1")

	if _, err := m.UpdateDraft(ctx, model.TableOutreach, a.ID, "s1b", "m1b"); err != nil {
		t.Fatalf("update draft: %v", err)
	}
	_, err := m.Decide(ctx, model.TableOutreach, a.ID, model.Decision{Status: model.StatusApproved, ExpectedVersion: 1})

	var vc *appErrors.ErrVersionConflict
	if !errors.As(err, &vc) {
		t.Fatalf("expected version conflict, got %v", err)
	}
	if vc.Expected != 1 || vc.Actual != 2 {
		t.Errorf("unexpected conflict detail: %+v", vc)
	}
}

func TestMemoryStore_InvalidDecision(t *testing.T) {
	m := NewMemory()
	a := seedOutreach(t, m, "alice", "s1", "m1")
	_, err := m.Decide(context.Background(), model.TableOutreach, a.ID, model.Decision{Status: model.StatusSent})
	if !appErrors.IsInvalidInput(err) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestMemoryStore_EditsRoundTripVerbatim(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	a := seedOutreach(t, m, "alice", "s1", "m1")

	subject := "  Spaced   subject "
	message := "Line one\n\nLine two with émojis 🏔️\t"
	_, err := m.Decide(ctx, model.TableOutreach, a.ID, model.Decision{
		Status:     model.StatusApproved,
		Subject:    &subject,
		Message:    &message,
		ReviewedBy: "dana",
	})
	if err != nil {
		t.Fatalf("decide: %v", err)
	}

	got, _ := m.GetReviewItem(ctx, model.TableOutreach, a.ID)
	if got.Subject != subject || got.Message != message {
		t.Errorf("edits not stored verbatim: %q / %q", got.Subject, got.Message)
	}
	if got.ReviewedBy != "dana" {
		t.Errorf("expected reviewer dana, got %q", got.ReviewedBy)
	}
}

func TestMemoryStore_OneQueuedPerUsernameAndChannel(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	a := seedOutreach(t, m, "alice", "s1", "m1")

	dup := &model.OutreachTemplate{Username: "alice", Channel: model.ChannelEmail, Subject: "x", Message: "y"}
	if err := m.CreateOutreachTemplate(ctx, dup); !appErrors.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}

	other := &model.OutreachTemplate{Username: "alice", Channel: model.ChannelInstagramDM, Subject: "x", Message: "y"}
	if err := m.CreateOutreachTemplate(ctx, other); err != nil {
		t.Fatalf("other channel should be allowed: %v", err)
	}

	if _, err := m.Decide(ctx, model.TableOutreach, a.ID, model.Decision{Status: model.StatusRejected}); err != nil {
		t.Fatalf("decide: %v", err)
	}
	if err := m.CreateOutreachTemplate(ctx, dup); err != nil {
		t.Fatalf("new draft after decision should be allowed: %v", err)
	}
}

func TestMemoryStore_MarkSentRequiresApproval(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	a := seedOutreach(t, m, "alice", "s1", "m1")
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if _, err := m.MarkSent(ctx, model.TableOutreach, a.ID, now); !appErrors.IsInvalidInput(err) {
		t.Fatalf("expected invalid transition for queued item, got %v", err)
	}
	if _, err := m.Decide(ctx, model.TableOutreach, a.ID, model.Decision{Status: model.StatusApproved}); err != nil {
		t.Fatalf("decide: %v", err)
	}
	item, err := m.MarkSent(ctx, model.TableOutreach, a.ID, now)
	if err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	if item.Status != model.StatusSent || item.SentAt == nil || !item.SentAt.Equal(now) {
		t.Errorf("unexpected sent item: %+v", item)
	}

	events, _ := m.FetchUnpublished(ctx, 10)
	if len(events) != 2 {
		t.Fatalf("expected 2 outbox events, got %d", len(events))
	}
	if events[0].EventType != model.EventReviewDecided || events[1].EventType != model.EventReviewSent {
		t.Errorf("unexpected event order: %s, %s", events[0].EventType, events[1].EventType)
	}

	if err := m.MarkPublished(ctx, events[0].ID, now); err != nil {
		t.Fatalf("mark published: %v", err)
	}
	remaining, _ := m.FetchUnpublished(ctx, 10)
	if len(remaining) != 1 || remaining[0].ID != events[1].ID {
		t.Errorf("expected only the sent event to remain, got %+v", remaining)
	}
}

func TestMemoryStore_ConcurrentDecisionsSingleWinner(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	a := seedOutreach(t, m, "alice", "s1", "m1")

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status := model.StatusApproved
			if i%2 == 1 {
				status = model.StatusRejected
			}
			if _, err := m.Decide(ctx, model.TableOutreach, a.ID, model.Decision{Status: status}); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one successful decision, got %d", wins)
	}
}

func TestMemoryStore_ListUnscored(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	ev1 := &model.EngagementEvent{Username: "alice", CommentText: "love it"}
	ev2 := &model.EngagementEvent{Username: "bob", CommentText: "meh"}
	_ = m.CreateEvent(ctx, ev1)
	_ = m.CreateEvent(ctx, ev2)

	lead := model.NewScoredLead(*ev1, 8, "keen", model.ScoreParsed)
	if err := m.CreateLead(ctx, &lead); err != nil {
		t.Fatalf("create lead: %v", err)
	}

	unscored, _ := m.ListUnscored(ctx)
	if len(unscored) != 1 || unscored[0].Username != "bob" {
		t.Errorf("expected only bob unscored, got %+v", unscored)
	}
	if ok, _ := m.UsernameExists(ctx, "alice"); !ok {
		t.Errorf("expected alice to exist")
	}
}

func TestMemoryStore_OrderStatus(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.CreateOrder(ctx, &model.Order{OrderID: "TP-1001", Email: "a@b.co"}); err != nil {
		t.Fatalf("create order: %v", err)
	}
	if err := m.UpdateOrderStatus(ctx, "TP-1001", model.OrderShipped); err != nil {
		t.Fatalf("update: %v", err)
	}
	shipped, _ := m.ListOrders(ctx, model.OrderShipped)
	if len(shipped) != 1 {
		t.Fatalf("expected 1 shipped order, got %d", len(shipped))
	}
	if err := m.UpdateOrderStatus(ctx, "missing", model.OrderShipped); !appErrors.IsNotFound(err) {
		t.Errorf("expected order not found, got %v", err)
	}
}
