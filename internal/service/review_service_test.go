package service

import (
	"context"
	"errors"
	"testing"
	"time"

	appErrors "github.com/twopeaks/controlroom/internal/errors"
	"github.com/twopeaks/controlroom/internal/model"
	"github.com/twopeaks/controlroom/internal/repository"
)

func queueOutreach(t *testing.T, store *repository.MemoryStore, username string) model.OutreachTemplate {
	t.Helper()
	tpl := model.OutreachTemplate{Username: username, Channel: model.ChannelEmail, Subject: "Hello", Message: "Hi @" + username}
	if err := store.CreateOutreachTemplate(context.Background(), &tpl); err != nil {
		t.Fatalf("create template: %v", err)
	}
	return tpl
}

func newReview(store *repository.MemoryStore, pub *recordingPublisher) *ReviewService {
	return &ReviewService{
		Reviews:         store,
		Queue:           pub,
		Leases:          NewMemoryLeaseStore(),
		LeaseTTL:        time.Minute,
		DefaultReviewer: model.DefaultReviewer,
	}
}

func TestDecide_ApprovedIsEnqueued(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemory()
	pub := &recordingPublisher{}
	tpl := queueOutreach(t, store, "approve_me")

	item, err := newReview(store, pub).Decide(ctx, model.TableOutreach, tpl.ID, model.Decision{Status: model.StatusApproved})
	if err != nil {
		t.Fatal(err)
	}
	if item.Status != model.StatusApproved || item.ReviewedBy != model.DefaultReviewer {
		t.Errorf("unexpected item %+v", item)
	}
	if len(pub.jobs) != 1 || pub.jobs[0].ID != tpl.ID || pub.jobs[0].Table != model.TableOutreach {
		t.Fatalf("expected one send job, got %+v", pub.jobs)
	}
}

func TestDecide_RejectedIsNotEnqueued(t *testing.T) {
	store := repository.NewMemory()
	pub := &recordingPublisher{}
	tpl := queueOutreach(t, store, "reject_me")

	if _, err := newReview(store, pub).Decide(context.Background(), model.TableOutreach, tpl.ID,
		model.Decision{Status: model.StatusRejected, ReviewedBy: "sam"}); err != nil {
		t.Fatal(err)
	}
	if len(pub.jobs) != 0 {
		t.Errorf("rejected item was enqueued")
	}
}

func TestDecide_PublishFailureStillRecordsDecision(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemory()
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := newReview(store, pub)
	tpl := queueOutreach(t, store, "broker_down")

	if _, err := svc.Decide(ctx, model.TableOutreach, tpl.ID, model.Decision{Status: model.StatusApproved}); err != nil {
		t.Fatalf("decision should succeed without the broker: %v", err)
	}

	pub.err = nil
	n, err := svc.RequeueApproved(ctx, model.TableOutreach)
	if err != nil || n != 1 || len(pub.jobs) != 1 {
		t.Fatalf("requeue: n=%d err=%v jobs=%d", n, err, len(pub.jobs))
	}
}

func TestDecide_LeaseHeldByOther(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemory()
	svc := newReview(store, &recordingPublisher{})
	tpl := queueOutreach(t, store, "contested")

	if _, err := svc.Claim(ctx, model.TableOutreach, tpl.ID, "alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Claim(ctx, model.TableOutreach, tpl.ID, "bob"); !appErrors.IsConflict(err) {
		t.Fatalf("second claim should conflict, got %v", err)
	}

	_, err := svc.Decide(ctx, model.TableOutreach, tpl.ID, model.Decision{Status: model.StatusApproved, ReviewedBy: "bob"})
	var held *appErrors.ErrLeaseHeld
	if !errors.As(err, &held) || held.Holder != "alice" {
		t.Fatalf("expected lease held by alice, got %v", err)
	}

	if _, err := svc.Decide(ctx, model.TableOutreach, tpl.ID, model.Decision{Status: model.StatusApproved, ReviewedBy: "alice"}); err != nil {
		t.Fatalf("holder should be able to decide: %v", err)
	}
	if holder, _ := svc.Leases.Holder(ctx, leaseKey(model.TableOutreach, tpl.ID)); holder != "" {
		t.Errorf("lease not released after decision, holder %q", holder)
	}
}

func TestClaim_DecidedItem(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemory()
	svc := newReview(store, &recordingPublisher{})
	tpl := queueOutreach(t, store, "done")

	if _, err := svc.Decide(ctx, model.TableOutreach, tpl.ID, model.Decision{Status: model.StatusRejected}); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Claim(ctx, model.TableOutreach, tpl.ID, "alice")
	var nf *appErrors.ErrReviewItemNotFound
	if !errors.As(err, &nf) || nf.Status != string(model.StatusRejected) {
		t.Fatalf("expected decided error, got %v", err)
	}
}

func TestDecide_ErrorsPassThrough(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemory()
	svc := newReview(store, &recordingPublisher{})
	tpl := queueOutreach(t, store, "versioned")

	if _, err := svc.Decide(ctx, model.TableOutreach, tpl.ID, model.Decision{Status: model.StatusApproved, ExpectedVersion: 5}); !appErrors.IsConflict(err) {
		t.Errorf("stale version: got %v", err)
	}
	if _, err := svc.Decide(ctx, model.TableOutreach, tpl.ID, model.Decision{Status: model.StatusSent}); !appErrors.IsInvalidInput(err) {
		t.Errorf("SENT decision: got %v", err)
	}
	if _, err := svc.Decide(ctx, model.TableFulfillment, tpl.ID, model.Decision{Status: model.StatusApproved}); !appErrors.IsNotFound(err) {
		t.Errorf("wrong table: got %v", err)
	}
}

func TestMemoryLeaseStore_Expiry(t *testing.T) {
	ctx := context.Background()
	leases := NewMemoryLeaseStore()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	leases.now = func() time.Time { return now }

	if _, ok, _ := leases.Claim(ctx, "k", "alice", time.Minute); !ok {
		t.Fatal("first claim failed")
	}
	if cur, ok, _ := leases.Claim(ctx, "k", "bob", time.Minute); ok || cur != "alice" {
		t.Fatalf("bob claimed a live lease: %q %v", cur, ok)
	}
	now = now.Add(2 * time.Minute)
	if _, ok, _ := leases.Claim(ctx, "k", "bob", time.Minute); !ok {
		t.Fatal("expired lease was not reclaimable")
	}
	_ = leases.Release(ctx, "k", "alice")
	if h, _ := leases.Holder(ctx, "k"); h != "bob" {
		t.Errorf("release by non-holder removed the lease, holder %q", h)
	}
}
