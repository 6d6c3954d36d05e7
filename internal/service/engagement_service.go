package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog/log"

	"github.com/twopeaks/controlroom/internal/config"
	appErrors "github.com/twopeaks/controlroom/internal/errors"
	"github.com/twopeaks/controlroom/internal/model"
	"github.com/twopeaks/controlroom/internal/repository"
	"github.com/twopeaks/controlroom/internal/sheets"
)

const engagementZone = "America/Denver"

// EngagementService captures social comments, real or simulated.
type EngagementService struct {
	Events repository.EngagementRepositoryInterface
	Mirror *sheets.Mirror
	Brand  config.Brand
	Rand   *Rand
	Now    func() time.Time
}

func (s *EngagementService) now() time.Time {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	loc, err := time.LoadLocation(engagementZone)
	if err != nil {
		return now().UTC()
	}
	return now().In(loc).Truncate(time.Second)
}

// Ingest validates and stores a real comment.
func (s *EngagementService) Ingest(ctx context.Context, ev model.EngagementEvent) (*model.EngagementEvent, error) {
	ev.Username = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(ev.Username), "@"))
	if ev.Username == "" {
		return nil, appErrors.NewInvalidField("username", "is required")
	}
	if strings.TrimSpace(ev.CommentText) == "" {
		return nil, appErrors.NewInvalidField("comment", "is required")
	}
	if ev.Likes < 0 || ev.Followers < 0 {
		return nil, appErrors.NewInvalidField("likes/followers", "must not be negative")
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = s.now()
	}
	if err := s.Events.CreateEvent(ctx, &ev); err != nil {
		return nil, err
	}
	s.Mirror.Append(ctx, sheets.EngagementRaw, ev.SheetRow())
	return &ev, nil
}

// Simulate creates n fake comments with usernames unique across the store.
func (s *EngagementService) Simulate(ctx context.Context, n int) ([]model.EngagementEvent, error) {
	if err := checkCount(n); err != nil {
		return nil, err
	}
	taken := map[string]bool{}
	events := make([]model.EngagementEvent, 0, n)
	rows := make([][]any, 0, n)
	for i := 0; i < n; i++ {
		username, err := s.uniqueUsername(ctx, taken)
		if err != nil {
			return events, err
		}
		ev := model.EngagementEvent{
			Timestamp:   s.now(),
			Username:    username,
			CommentText: s.Rand.Pick(s.Brand.CommentPool),
			Likes:       s.Rand.Between(10, 100),
			Followers:   s.Rand.Between(500, 5000),
		}
		if err := s.Events.CreateEvent(ctx, &ev); err != nil {
			return events, err
		}
		events = append(events, ev)
		rows = append(rows, ev.SheetRow())
	}
	s.Mirror.Append(ctx, sheets.EngagementRaw, rows...)
	log.Info().Int("count", len(events)).Msg("✅ simulated engagement added")
	return events, nil
}

func (s *EngagementService) uniqueUsername(ctx context.Context, taken map[string]bool) (string, error) {
	for i := 0; i < 1000; i++ {
		candidate := fmt.Sprintf("%s_%d", s.Rand.Pick(s.Brand.BaseHandles), s.Rand.Between(100, 9999))
		if taken[candidate] {
			continue
		}
		exists, err := s.Events.UsernameExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			taken[candidate] = true
			return candidate, nil
		}
	}
	return fmt.Sprintf("user_%d", s.Rand.Between(100000, 999999)), nil
}

func (s *EngagementService) List(ctx context.Context) ([]model.EngagementEvent, error) {
	return s.Events.ListEvents(ctx)
}

// ImportRecords stores legacy worksheet rows. Rows without a username or
// comment are skipped; the count of stored events is returned.
func (s *EngagementService) ImportRecords(ctx context.Context, records []sheets.Record) (int, error) {
	imported := 0
	for _, rec := range records {
		ev := model.EngagementEvent{
			Username:    rec.Get("username"),
			CommentText: rec.Get("comment", "comment_text"),
			Likes:       atoiOrZero(rec.Get("likes")),
			Followers:   atoiOrZero(rec.Get("followers")),
			Timestamp:   parseSheetTime(rec.Get("timestamp")),
		}
		if ev.Username == "" || ev.CommentText == "" {
			continue
		}
		ev.Username = strings.TrimPrefix(ev.Username, "@")
		if err := s.Events.CreateEvent(ctx, &ev); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

var sheetTimeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

// parseSheetTime accepts the timestamp formats the worksheets have used.
func parseSheetTime(s string) time.Time {
	for _, layout := range sheetTimeLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t
		}
	}
	return time.Now().UTC()
}
