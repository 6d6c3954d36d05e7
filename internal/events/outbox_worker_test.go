package events

import (
	"context"
	"errors"
	"testing"

	"github.com/twopeaks/controlroom/internal/model"
	"github.com/twopeaks/controlroom/internal/repository"
)

type fakePublisher struct {
	fail      map[string]bool
	published []string
}

func (f *fakePublisher) Publish(_ context.Context, eventType string, _ []byte, key string) error {
	if f.fail[eventType] {
		return errors.New("broker unavailable")
	}
	f.published = append(f.published, eventType+"@"+key)
	return nil
}

func seedDecidedAndSent(t *testing.T, store *repository.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	tpl := &model.OutreachTemplate{Username: "alice", Channel: model.ChannelEmail, Subject: "s", Message: "m"}
	if err := store.CreateOutreachTemplate(ctx, tpl); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.Decide(ctx, model.TableOutreach, tpl.ID, model.Decision{Status: model.StatusApproved}); err != nil {
		t.Fatalf("decide: %v", err)
	}
	if _, err := store.MarkSent(ctx, model.TableOutreach, tpl.ID, tpl.CreatedAt); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
}

func TestOutboxWorker_PublishesAndMarks(t *testing.T) {
	store := repository.NewMemory()
	seedDecidedAndSent(t, store)
	pub := &fakePublisher{}

	w := NewOutboxWorker(store, pub, 0, 0)
	n, err := w.ProcessOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 || len(pub.published) != 2 {
		t.Fatalf("expected 2 published events, got %d (%v)", n, pub.published)
	}

	remaining, _ := store.FetchUnpublished(context.Background(), 10)
	if len(remaining) != 0 {
		t.Errorf("expected outbox drained, got %d", len(remaining))
	}
}

func TestOutboxWorker_FailedEventsStayUnpublished(t *testing.T) {
	store := repository.NewMemory()
	seedDecidedAndSent(t, store)
	pub := &fakePublisher{fail: map[string]bool{model.EventReviewSent: true}}

	w := NewOutboxWorker(store, pub, 0, 0)
	n, _ := w.ProcessOnce(context.Background())
	if n != 1 {
		t.Fatalf("expected 1 published event, got %d", n)
	}

	remaining, _ := store.FetchUnpublished(context.Background(), 10)
	if len(remaining) != 1 {
		t.Fatalf("expected 1 pending event, got %d", len(remaining))
	}
	if remaining[0].Attempts != 1 || remaining[0].LastError == "" {
		t.Errorf("expected failure recorded, got %+v", remaining[0])
	}
}
