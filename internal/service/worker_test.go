package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/twopeaks/controlroom/internal/model"
	"github.com/twopeaks/controlroom/internal/repository"
)

func TestSendWorker_ApprovedBecomesSent(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemory()
	tpl := queueOutreach(t, store, "sender")
	if _, err := store.Decide(ctx, model.TableOutreach, tpl.ID, model.Decision{Status: model.StatusApproved}); err != nil {
		t.Fatal(err)
	}

	sender := &fakeSender{}
	w := NewSendWorker(store, store, sender)
	if err := w.Process(ctx, model.SendJob{Table: model.TableOutreach, ID: tpl.ID}); err != nil {
		t.Fatal(err)
	}
	item, _ := store.GetReviewItem(ctx, model.TableOutreach, tpl.ID)
	if item.Status != model.StatusSent || item.SentAt == nil {
		t.Errorf("expected SENT with timestamp, got %+v", item)
	}

	// redelivery of the same job is a no-op
	if err := w.Process(ctx, model.SendJob{Table: model.TableOutreach, ID: tpl.ID}); err != nil {
		t.Fatal(err)
	}
	if sender.calls != 1 {
		t.Errorf("expected one delivery, got %d", sender.calls)
	}
}

func TestSendWorker_FailureLeavesApproved(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemory()
	tpl := queueOutreach(t, store, "flaky")
	_, _ = store.Decide(ctx, model.TableOutreach, tpl.ID, model.Decision{Status: model.StatusApproved})

	w := NewSendWorker(store, store, &fakeSender{err: errors.New("smtp timeout")})
	if err := w.Process(ctx, model.SendJob{Table: model.TableOutreach, ID: tpl.ID}); err == nil {
		t.Fatal("expected an error for retry")
	}
	item, _ := store.GetReviewItem(ctx, model.TableOutreach, tpl.ID)
	if item.Status != model.StatusApproved {
		t.Errorf("failed send changed status to %s", item.Status)
	}
}

func TestSendWorker_FulfillmentStoresMessageID(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemory()
	order := model.Order{OrderID: "TP-12345", Email: "a@example.com", FirstName: "Asha", Status: model.OrderDelivered, CreatedAt: time.Now()}
	if err := store.CreateOrder(ctx, &order); err != nil {
		t.Fatal(err)
	}
	tpl := model.FulfillmentTemplate{OrderID: order.OrderID, Email: order.Email, FirstName: "Asha", Subject: "Thanks", Message: "Enjoy"}
	if err := store.CreateFulfillmentTemplate(ctx, &tpl); err != nil {
		t.Fatal(err)
	}
	_, _ = store.Decide(ctx, model.TableFulfillment, tpl.ID, model.Decision{Status: model.StatusApproved})

	w := NewSendWorker(store, store, &fakeSender{})
	if err := w.Process(ctx, model.SendJob{Table: model.TableFulfillment, ID: tpl.ID}); err != nil {
		t.Fatal(err)
	}
	got, _ := store.GetOrder(ctx, order.OrderID)
	if got.EmailMessageID != "msg-test" {
		t.Errorf("message id not stored: %+v", got)
	}
}

func TestLogSender_FailureRate(t *testing.T) {
	ctx := context.Background()
	item := model.ReviewItem{Channel: model.ChannelEmail, Recipient: "x"}
	if _, err := (&LogSender{FailureRate: 1, Rand: NewRand(1)}).Send(ctx, item); err == nil {
		t.Error("failure rate 1 should always fail")
	}
	id, err := (&LogSender{Rand: NewRand(1)}).Send(ctx, item)
	if err != nil || len(id) < 5 || id[:4] != "msg-" {
		t.Errorf("unexpected id %q err %v", id, err)
	}
}
