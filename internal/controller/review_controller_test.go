package controller_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/twopeaks/controlroom/internal/controller"
	"github.com/twopeaks/controlroom/internal/model"
	"github.com/twopeaks/controlroom/internal/repository"
	"github.com/twopeaks/controlroom/internal/service"
)

type nopPublisher struct{ published int }

func (p *nopPublisher) Publish(string, any) error {
	p.published++
	return nil
}

func setupReview(t *testing.T) (http.Handler, *repository.MemoryStore, *nopPublisher) {
	t.Helper()
	store := repository.NewMemory()
	pub := &nopPublisher{}
	ctrl := &controller.ReviewController{ReviewService: &service.ReviewService{
		Reviews:         store,
		Queue:           pub,
		Leases:          service.NewMemoryLeaseStore(),
		LeaseTTL:        time.Minute,
		DefaultReviewer: model.DefaultReviewer,
	}}
	r := chi.NewRouter()
	ctrl.Routes(r)
	return r, store, pub
}

func queue(t *testing.T, store *repository.MemoryStore, username string) model.OutreachTemplate {
	t.Helper()
	tpl := model.OutreachTemplate{Username: username, Channel: model.ChannelEmail, Subject: "Hi", Message: "Hello there"}
	if err := store.CreateOutreachTemplate(context.Background(), &tpl); err != nil {
		t.Fatal(err)
	}
	return tpl
}

func do(h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(buf.Bytes()))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestDecisionStatusMapping(t *testing.T) {
	h, store, pub := setupReview(t)
	tpl := queue(t, store, "mapped")
	path := "/review/outreach/" + tpl.ID.String() + "/decision"

	tests := []struct {
		name string
		path string
		body any
		want int
	}{
		{"invalid decision", path, map[string]any{"status": "SENT"}, http.StatusBadRequest},
		{"stale version", path, map[string]any{"status": "APPROVED", "version": 9}, http.StatusConflict},
		{"unknown table", "/review/coupons/" + tpl.ID.String() + "/decision", map[string]any{"status": "APPROVED"}, http.StatusBadRequest},
		{"bad id", "/review/outreach/not-a-uuid/decision", map[string]any{"status": "APPROVED"}, http.StatusBadRequest},
		{"approve", path, map[string]any{"status": "approved", "version": 1, "message": "Edited"}, http.StatusOK},
		{"already decided", path, map[string]any{"status": "REJECTED"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(h, http.MethodPost, tt.path, tt.body)
			if w.Code != tt.want {
				t.Fatalf("status %d, want %d: %s", w.Code, tt.want, w.Body.String())
			}
		})
	}

	item, _ := store.GetReviewItem(context.Background(), model.TableOutreach, tpl.ID)
	if item.Message != "Edited" || item.Status != model.StatusApproved {
		t.Errorf("edit not applied: %+v", item)
	}
	if pub.published != 1 {
		t.Errorf("expected one send job, got %d", pub.published)
	}
}

func TestClaimConflict(t *testing.T) {
	h, store, _ := setupReview(t)
	tpl := queue(t, store, "claimed")
	claim := "/review/outreach/" + tpl.ID.String() + "/claim"

	if w := do(h, http.MethodPost, claim, map[string]string{"reviewer": "alice"}); w.Code != http.StatusOK {
		t.Fatalf("claim: %d", w.Code)
	}
	if w := do(h, http.MethodPost, claim, map[string]string{"reviewer": "bob"}); w.Code != http.StatusConflict {
		t.Fatalf("second claim: %d", w.Code)
	}
	decide := "/review/outreach/" + tpl.ID.String() + "/decision"
	if w := do(h, http.MethodPost, decide, map[string]string{"status": "APPROVED", "reviewed_by": "bob"}); w.Code != http.StatusConflict {
		t.Fatalf("decision under foreign lease: %d", w.Code)
	}
	if w := do(h, http.MethodDelete, claim+"?reviewer=alice", nil); w.Code != http.StatusNoContent {
		t.Fatalf("release: %d", w.Code)
	}
	if w := do(h, http.MethodPost, decide, map[string]string{"status": "APPROVED", "reviewed_by": "bob"}); w.Code != http.StatusOK {
		t.Fatalf("decision after release: %d", w.Code)
	}
}

func TestQueuedAndStats(t *testing.T) {
	h, store, _ := setupReview(t)
	queue(t, store, "one")
	queue(t, store, "two")

	w := do(h, http.MethodGet, "/review/outreach/queued", nil)
	var resp struct {
		Data  []model.ReviewItem `json:"data"`
		Count int                `json:"count"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 2 || resp.Data[0].Key != "one" {
		t.Errorf("unexpected queue %+v", resp)
	}

	w = do(h, http.MethodGet, "/review/outreach/stats", nil)
	var stats map[string]int
	_ = json.NewDecoder(w.Body).Decode(&stats)
	if stats["QUEUED"] != 2 {
		t.Errorf("stats %v", stats)
	}
}

func TestGetAndListByStatus(t *testing.T) {
	h, store, _ := setupReview(t)
	kept := queue(t, store, "kept")
	sent := queue(t, store, "approved")

	w := do(h, http.MethodPost, "/review/outreach/"+sent.ID.String()+"/decision", map[string]any{"status": "APPROVED", "version": 1})
	if w.Code != http.StatusOK {
		t.Fatalf("approve: %d %s", w.Code, w.Body.String())
	}

	w = do(h, http.MethodGet, "/review/outreach/items?status=approved", nil)
	var resp struct {
		Data  []model.ReviewItem `json:"data"`
		Count int                `json:"count"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 1 || resp.Data[0].ID != sent.ID {
		t.Errorf("approved list %+v", resp)
	}

	if w := do(h, http.MethodGet, "/review/outreach/items?status=pending", nil); w.Code != http.StatusBadRequest {
		t.Errorf("unknown status: %d", w.Code)
	}

	w = do(h, http.MethodGet, "/review/outreach/"+kept.ID.String(), nil)
	var item model.ReviewItem
	if err := json.NewDecoder(w.Body).Decode(&item); err != nil {
		t.Fatal(err)
	}
	if w.Code != http.StatusOK || item.Key != "kept" || item.Status != model.StatusQueued {
		t.Errorf("get: %d %+v", w.Code, item)
	}

	missing := "/review/outreach/00000000-0000-0000-0000-000000000001"
	if w := do(h, http.MethodGet, missing, nil); w.Code != http.StatusNotFound {
		t.Errorf("missing item: %d", w.Code)
	}
}
