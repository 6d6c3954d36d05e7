package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/twopeaks/controlroom/internal/config"
	appErrors "github.com/twopeaks/controlroom/internal/errors"
	"github.com/twopeaks/controlroom/internal/llm"
	"github.com/twopeaks/controlroom/internal/metrics"
	"github.com/twopeaks/controlroom/internal/model"
	"github.com/twopeaks/controlroom/internal/repository"
	"github.com/twopeaks/controlroom/internal/sheets"
)

const generationTemperature = 0.5

// GenerationService drafts outreach messages for qualified leads.
type GenerationService struct {
	Leads   repository.LeadRepositoryInterface
	Reviews repository.ReviewRepositoryInterface
	LLM     llm.Client
	Mirror  *sheets.Mirror
	Brand   config.Brand

	Channels         []model.Channel
	Threshold        int
	MinMessageLength int
}

// GenerateQualified drafts templates for every stored lead at or above
// the configured threshold.
func (s *GenerationService) GenerateQualified(ctx context.Context, threshold int) ([]model.OutreachTemplate, error) {
	if threshold <= 0 {
		threshold = s.Threshold
	}
	leads, err := s.Leads.ListLeads(ctx, threshold)
	if err != nil {
		return nil, err
	}
	return s.Generate(ctx, leads, threshold)
}

// Generate drafts one template per qualifying lead per channel. A QUEUED
// draft for the same pair is refreshed in place; a decided one is left
// alone.
func (s *GenerationService) Generate(ctx context.Context, leads []model.ScoredLead, threshold int) ([]model.OutreachTemplate, error) {
	if threshold <= 0 {
		threshold = s.Threshold
	}
	channels := s.Channels
	if len(channels) == 0 {
		channels = model.DefaultChannels
	}

	out := []model.OutreachTemplate{}
	for _, lead := range leads {
		if lead.Score < threshold {
			continue
		}
		for _, channel := range channels {
			if err := ctx.Err(); err != nil {
				return out, err
			}
			tpl, err := s.generateOne(ctx, lead, channel)
			if err != nil {
				return out, fmt.Errorf("generate %s/%s: %w", lead.Username, channel, err)
			}
			if tpl != nil {
				out = append(out, *tpl)
			}
		}
	}
	log.Info().Int("templates", len(out)).Int("threshold", threshold).Msg("✅ template generation complete")
	return out, nil
}

func (s *GenerationService) generateOne(ctx context.Context, lead model.ScoredLead, channel model.Channel) (*model.OutreachTemplate, error) {
	table := string(model.TableOutreach)
	latest, err := s.Reviews.LatestOutreach(ctx, lead.Username, channel)
	if err != nil {
		return nil, err
	}
	if latest != nil && latest.Status != model.StatusQueued {
		metrics.RecordTemplate(table, "skipped")
		return nil, nil
	}

	subject, message := s.draft(ctx, lead, channel)

	if latest != nil {
		item, err := s.Reviews.UpdateDraft(ctx, model.TableOutreach, latest.ID, subject, message)
		if appErrors.IsNotFound(err) {
			// decided between the lookup and the update
			metrics.RecordTemplate(table, "skipped")
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		latest.Subject, latest.Message, latest.Version = item.Subject, item.Message, item.Version
		metrics.RecordTemplate(table, "refreshed")
		return latest, nil
	}

	tpl := &model.OutreachTemplate{
		Username: lead.Username,
		Channel:  channel,
		Subject:  subject,
		Message:  message,
	}
	if err := s.Reviews.CreateOutreachTemplate(ctx, tpl); err != nil {
		if appErrors.IsConflict(err) {
			metrics.RecordTemplate(table, "skipped")
			return nil, nil
		}
		return nil, err
	}
	metrics.RecordTemplate(table, "created")
	s.Mirror.Append(ctx, sheets.MarketingTemplates, tpl.SheetRow())
	return tpl, nil
}

// draft returns the LLM subject and message, or the canned copy when the
// model is unavailable or its message is too short.
func (s *GenerationService) draft(ctx context.Context, lead model.ScoredLead, channel model.Channel) (string, string) {
	prompt := RenderTemplate(s.Brand.TemplatePrompt, map[string]string{
		"username": lead.Username,
		"reason":   lead.Reason,
		"channel":  strings.ReplaceAll(string(channel), "_", " "),
	})
	req := llm.Prompt(prompt, generationTemperature)

	var subject, message string
	var reply llm.MessageReply
	if err := s.LLM.CompleteJSON(ctx, req, llm.MessageSchema, &reply); err == nil {
		subject, message = strings.TrimSpace(reply.Subject), strings.TrimSpace(reply.Message)
	} else if text, err := s.LLM.Complete(ctx, req); err == nil {
		subject, message = llm.ParseSubjectMessage(text, s.Brand.DefaultSubject)
	} else {
		log.Warn().Err(err).Str("username", lead.Username).Msg("⚠️ template LLM unavailable, using canned copy")
	}

	if subject == "" {
		subject = s.Brand.DefaultSubject
	}
	if utf8.RuneCountInString(message) < s.MinMessageLength || message == "" {
		metrics.RecordTemplate(string(model.TableOutreach), "fallback")
		message = RenderTemplate(s.Brand.FallbackMessage, map[string]string{"username": lead.Username})
	}
	return subject, message
}
