package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/twopeaks/controlroom/internal/config"
	appErrors "github.com/twopeaks/controlroom/internal/errors"
	"github.com/twopeaks/controlroom/internal/llm"
	"github.com/twopeaks/controlroom/internal/metrics"
	"github.com/twopeaks/controlroom/internal/model"
	"github.com/twopeaks/controlroom/internal/repository"
	"github.com/twopeaks/controlroom/internal/sheets"
)

const scoringTemperature = 0.2

// ScoringService rates engagement events for purchase interest.
type ScoringService struct {
	Events  repository.EngagementRepositoryInterface
	Leads   repository.LeadRepositoryInterface
	Reviews repository.ReviewRepositoryInterface
	LLM     llm.Client
	Mirror  *sheets.Mirror
	Brand   config.Brand

	// PlaceholderThreshold is the score at which a placeholder outreach
	// draft is queued for the first channel.
	PlaceholderThreshold int
	Channels             []model.Channel
}

// ScoreEvent scores one event, stores the lead and queues a placeholder
// draft for hot leads.
func (s *ScoringService) ScoreEvent(ctx context.Context, ev model.EngagementEvent) (*model.ScoredLead, error) {
	prompt := RenderTemplate(s.Brand.ScoringPrompt, map[string]string{
		"username":  ev.Username,
		"comment":   ev.CommentText,
		"followers": itoa(ev.Followers),
		"likes":     itoa(ev.Likes),
	})
	score, reason, source := s.classify(ctx, prompt)

	lead := model.NewScoredLead(ev, score, reason, source)
	if err := s.Leads.CreateLead(ctx, &lead); err != nil {
		return nil, fmt.Errorf("store lead for %s: %w", ev.Username, err)
	}
	metrics.RecordLeadScored(string(source))
	s.Mirror.Append(ctx, sheets.QualifiedLeads, lead.SheetRow())

	log.Info().Str("username", lead.Username).Int("score", lead.Score).Str("source", string(source)).Msg("lead scored")

	if s.PlaceholderThreshold > 0 && lead.Score >= s.PlaceholderThreshold {
		if err := s.queuePlaceholder(ctx, lead); err != nil {
			log.Warn().Err(err).Str("username", lead.Username).Msg("placeholder draft not queued")
		}
	}
	return &lead, nil
}

// classify asks for structured output first, then falls back to the text
// micro-format, then to the defaults.
func (s *ScoringService) classify(ctx context.Context, prompt string) (int, string, model.ScoreSource) {
	req := llm.Prompt(prompt, scoringTemperature)

	var reply llm.ScoreReply
	err := s.LLM.CompleteJSON(ctx, req, llm.ScoreSchema, &reply)
	if err == nil && reply.Score >= model.MinScore && reply.Score <= model.MaxScore {
		reason := strings.TrimSpace(reply.Reason)
		if reason == "" {
			reason = model.DefaultReason
		}
		return reply.Score, reason, model.ScoreStructured
	}
	if err != nil {
		log.Debug().Err(err).Msg("structured scoring failed, trying text reply")
	}

	text, err := s.LLM.Complete(ctx, req)
	if err != nil {
		log.Warn().Err(err).Msg("⚠️ scoring LLM unavailable, using default score")
		return model.DefaultScore, model.DefaultReason, model.ScoreDefault
	}
	score, reason, ok := llm.ParseScore(text, model.DefaultScore, model.DefaultReason)
	if !ok {
		return score, reason, model.ScoreDefault
	}
	return score, reason, model.ScoreParsed
}

func (s *ScoringService) queuePlaceholder(ctx context.Context, lead model.ScoredLead) error {
	channels := s.Channels
	if len(channels) == 0 {
		channels = model.DefaultChannels
	}
	channel := channels[0]

	latest, err := s.Reviews.LatestOutreach(ctx, lead.Username, channel)
	if err != nil {
		return err
	}
	if latest != nil {
		return nil
	}

	tpl := &model.OutreachTemplate{
		Username: lead.Username,
		Channel:  channel,
		Subject:  s.Brand.DefaultSubject,
		Message:  RenderTemplate(s.Brand.FallbackMessage, map[string]string{"username": lead.Username}),
	}
	err = s.Reviews.CreateOutreachTemplate(ctx, tpl)
	if appErrors.IsConflict(err) {
		return nil
	}
	if err != nil {
		return err
	}
	metrics.RecordTemplate(string(model.TableOutreach), "placeholder")
	s.Mirror.Append(ctx, sheets.MarketingTemplates, tpl.SheetRow())
	return nil
}

// ScorePending scores every event that has no lead yet, oldest first.
func (s *ScoringService) ScorePending(ctx context.Context) ([]model.ScoredLead, error) {
	events, err := s.Events.ListUnscored(ctx)
	if err != nil {
		return nil, err
	}
	leads := make([]model.ScoredLead, 0, len(events))
	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return leads, err
		}
		lead, err := s.ScoreEvent(ctx, ev)
		if err != nil {
			return leads, err
		}
		leads = append(leads, *lead)
	}
	log.Info().Int("count", len(leads)).Msg("✅ lead scoring complete")
	return leads, nil
}

func (s *ScoringService) ListLeads(ctx context.Context, minScore int) ([]model.ScoredLead, error) {
	return s.Leads.ListLeads(ctx, minScore)
}
