package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	appErrors "github.com/twopeaks/controlroom/internal/errors"
	"github.com/twopeaks/controlroom/internal/metrics"
	"github.com/twopeaks/controlroom/internal/model"
	"github.com/twopeaks/controlroom/internal/repository"
	"github.com/twopeaks/controlroom/internal/sheets"
)

// Sender delivers an approved item and returns the provider message id.
type Sender interface {
	Send(ctx context.Context, item model.ReviewItem) (string, error)
}

// SendWorker moves approved items to SENT. Queue drivers call Process for
// every delivered job.
type SendWorker struct {
	Reviews repository.ReviewRepositoryInterface
	Orders  repository.OrderRepositoryInterface
	Sender  Sender
	Mirror  *sheets.Mirror
	Now     func() time.Time
}

func NewSendWorker(reviews repository.ReviewRepositoryInterface, orders repository.OrderRepositoryInterface, sender Sender) *SendWorker {
	return &SendWorker{
		Reviews: reviews,
		Orders:  orders,
		Sender:  sender,
		Now:     time.Now,
	}
}

// Process sends one approved item. It returns an error only when a retry
// could succeed.
func (w *SendWorker) Process(ctx context.Context, job model.SendJob) error {
	item, err := w.Reviews.GetReviewItem(ctx, job.Table, job.ID)
	if appErrors.IsNotFound(err) || appErrors.IsInvalidInput(err) {
		log.Warn().Err(err).Str("id", job.ID.String()).Msg("⚠️ send job for unknown item")
		return nil
	}
	if err != nil {
		return err
	}
	if item.Status != model.StatusApproved {
		log.Info().Str("id", item.ID.String()).Str("status", string(item.Status)).Msg("skipping item that is not APPROVED")
		return nil
	}

	messageID, err := w.Sender.Send(ctx, *item)
	metrics.RecordSend(string(job.Table), err)
	if err != nil {
		return fmt.Errorf("send %s %s: %w", job.Table, job.ID, err)
	}

	sent, err := w.Reviews.MarkSent(ctx, job.Table, job.ID, w.Now().UTC())
	if appErrors.IsInvalidInput(err) {
		log.Warn().Err(err).Str("id", job.ID.String()).Msg("item changed while sending")
		return nil
	}
	if err != nil {
		return err
	}

	if job.Table == model.TableFulfillment && w.Orders != nil {
		if err := w.Orders.SetEmailMessageID(ctx, sent.Key, messageID); err != nil {
			log.Warn().Err(err).Str("order_id", sent.Key).Msg("failed to store email message id")
		}
	}
	w.Mirror.Append(ctx, sheets.ReviewLog, reviewLogRow(*sent, *sent.SentAt))

	log.Info().Str("table", string(job.Table)).Str("id", job.ID.String()).Str("message_id", messageID).Msg("✅ message sent")
	return nil
}

// LogSender simulates delivery: it logs the message and returns a
// synthetic id. FailureRate in [0,1] injects random failures.
type LogSender struct {
	FailureRate float64
	Rand        *Rand
}

func (s *LogSender) Send(ctx context.Context, item model.ReviewItem) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.FailureRate > 0 && s.Rand != nil && s.Rand.Float(0, 1) < s.FailureRate {
		return "", fmt.Errorf("mock sending failed")
	}
	id := "msg-" + uuid.NewString()
	log.Info().Str("channel", string(item.Channel)).Str("recipient", item.Recipient).
		Str("subject", item.Subject).Str("message_id", id).Msg("📤 simulated send")
	return id, nil
}
