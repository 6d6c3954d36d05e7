package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	appErrors "github.com/twopeaks/controlroom/internal/errors"
	"github.com/twopeaks/controlroom/internal/metrics"
	"github.com/twopeaks/controlroom/internal/model"
	"github.com/twopeaks/controlroom/internal/queue"
	"github.com/twopeaks/controlroom/internal/repository"
	"github.com/twopeaks/controlroom/internal/sheets"
)

// ReviewService is the human-in-the-loop queue over both template tables.
type ReviewService struct {
	Reviews repository.ReviewRepositoryInterface
	Queue   queue.Publisher
	// Leases is optional; without it claims always succeed.
	Leases          LeaseStore
	LeaseTTL        time.Duration
	Mirror          *sheets.Mirror
	DefaultReviewer string
	Now             func() time.Time
}

func (s *ReviewService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func leaseKey(table model.ReviewTable, id uuid.UUID) string {
	return string(table) + ":" + id.String()
}

// ListQueued returns the QUEUED items of table in insertion order.
func (s *ReviewService) ListQueued(ctx context.Context, table model.ReviewTable) ([]model.ReviewItem, error) {
	return s.Reviews.ListByStatus(ctx, table, model.StatusQueued)
}

func (s *ReviewService) ListByStatus(ctx context.Context, table model.ReviewTable, status model.Status) ([]model.ReviewItem, error) {
	return s.Reviews.ListByStatus(ctx, table, status)
}

func (s *ReviewService) Get(ctx context.Context, table model.ReviewTable, id uuid.UUID) (*model.ReviewItem, error) {
	return s.Reviews.GetReviewItem(ctx, table, id)
}

func (s *ReviewService) Stats(ctx context.Context, table model.ReviewTable) (map[model.Status]int, error) {
	return s.Reviews.ReviewStats(ctx, table)
}

// Decide applies a reviewer decision. Approved items are handed to the
// sender; a publish failure is logged and left for RequeueApproved.
func (s *ReviewService) Decide(ctx context.Context, table model.ReviewTable, id uuid.UUID, d model.Decision) (*model.ReviewItem, error) {
	if d.ReviewedBy == "" {
		d.ReviewedBy = s.DefaultReviewer
	}
	if d.ReviewedBy == "" {
		d.ReviewedBy = model.DefaultReviewer
	}
	if d.DecidedAt.IsZero() {
		d.DecidedAt = s.now()
	}

	if s.Leases != nil {
		holder, err := s.Leases.Holder(ctx, leaseKey(table, id))
		if err != nil {
			return nil, err
		}
		if holder != "" && holder != d.ReviewedBy {
			metrics.RecordDecision(string(table), "lease_held")
			return nil, appErrors.NewLeaseHeld(string(table), id.String(), holder)
		}
	}

	item, err := s.Reviews.Decide(ctx, table, id, d)
	if err != nil {
		metrics.RecordDecision(string(table), decisionErrorLabel(err))
		return nil, err
	}
	metrics.RecordDecision(string(table), string(item.Status))
	log.Info().Str("table", string(table)).Str("id", id.String()).Str("status", string(item.Status)).
		Str("reviewed_by", item.ReviewedBy).Msg("review decision recorded")

	if s.Leases != nil {
		if err := s.Leases.Release(ctx, leaseKey(table, id), d.ReviewedBy); err != nil {
			log.Warn().Err(err).Str("id", id.String()).Msg("lease release failed")
		}
	}
	s.Mirror.Append(ctx, sheets.ReviewLog, reviewLogRow(*item, d.DecidedAt))

	if item.Status == model.StatusApproved {
		s.enqueue(*item)
	}
	return item, nil
}

func (s *ReviewService) enqueue(item model.ReviewItem) {
	if s.Queue == nil {
		return
	}
	job := model.SendJob{Table: item.Table, ID: item.ID}
	if err := s.Queue.Publish(queue.SendTopic, job); err != nil {
		log.Error().Err(err).Str("table", string(item.Table)).Str("id", item.ID.String()).Msg("failed to enqueue approved item")
	}
}

// RequeueApproved republishes every APPROVED item of table, for items
// whose send job was lost. It returns how many were published.
func (s *ReviewService) RequeueApproved(ctx context.Context, table model.ReviewTable) (int, error) {
	items, err := s.Reviews.ListByStatus(ctx, table, model.StatusApproved)
	if err != nil {
		return 0, err
	}
	for _, item := range items {
		s.enqueue(item)
	}
	return len(items), nil
}

// Claim takes an edit lease on a QUEUED item for reviewer.
func (s *ReviewService) Claim(ctx context.Context, table model.ReviewTable, id uuid.UUID, reviewer string) (*model.ReviewItem, error) {
	item, err := s.Reviews.GetReviewItem(ctx, table, id)
	if err != nil {
		return nil, err
	}
	if item.Status != model.StatusQueued {
		return nil, appErrors.NewReviewItemDecided(string(table), id.String(), string(item.Status))
	}
	if s.Leases == nil {
		return item, nil
	}
	if reviewer == "" {
		reviewer = s.DefaultReviewer
	}
	holder, ok, err := s.Leases.Claim(ctx, leaseKey(table, id), reviewer, s.LeaseTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, appErrors.NewLeaseHeld(string(table), id.String(), holder)
	}
	return item, nil
}

func (s *ReviewService) Release(ctx context.Context, table model.ReviewTable, id uuid.UUID, reviewer string) error {
	if s.Leases == nil {
		return nil
	}
	if reviewer == "" {
		reviewer = s.DefaultReviewer
	}
	return s.Leases.Release(ctx, leaseKey(table, id), reviewer)
}

func decisionErrorLabel(err error) string {
	var decided *appErrors.ErrReviewItemNotFound
	switch {
	case errors.As(err, &decided) && decided.Status != "":
		return "already_decided"
	case appErrors.IsNotFound(err):
		return "not_found"
	case appErrors.IsConflict(err):
		return "conflict"
	case appErrors.IsInvalidInput(err):
		return "invalid"
	}
	return "error"
}

func reviewLogRow(item model.ReviewItem, at time.Time) []any {
	return []any{at.Format(time.RFC3339), string(item.Table), item.ID.String(), string(item.Status), item.ReviewedBy}
}
