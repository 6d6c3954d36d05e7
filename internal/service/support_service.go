package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/twopeaks/controlroom/internal/config"
	appErrors "github.com/twopeaks/controlroom/internal/errors"
	"github.com/twopeaks/controlroom/internal/llm"
	"github.com/twopeaks/controlroom/internal/model"
	"github.com/twopeaks/controlroom/internal/repository"
)

const (
	supportTemperature = 0.5
	faqChunkSize       = 800
	faqChunkOverlap    = 100
	retrievalTopK      = 3
	embedBatchSize     = 64

	DefaultHistoryLimit = 20
	DefaultTopicLimit   = 5

	supportFallbackAnswer = "Sorry, something went wrong. Please try again in a moment."
)

var firstTimeMarkers = []string{"first time", "new customer", "recommend", "try"}

// SupportService answers customer questions from the FAQ corpus.
type SupportService struct {
	LLM          llm.Client
	Tickets      repository.TicketRepositoryInterface
	Sessions     SessionStore
	Index        *VectorIndex
	Brand        config.Brand
	HistoryLimit int
	Now          func() time.Time
}

type SupportReply struct {
	SessionID string   `json:"session_id"`
	Answer    string   `json:"answer"`
	Sources   []string `json:"sources,omitempty"`
	HintAdded bool     `json:"hint_added"`
	Fallback  bool     `json:"fallback"`
}

type TopicCount struct {
	Topic   string `json:"topic"`
	Tickets int    `json:"tickets"`
}

// LoadFAQ embeds every markdown file in dir into the index and returns the
// number of chunks added.
func (s *SupportService) LoadFAQ(ctx context.Context, dir string) (int, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return 0, err
	}
	sort.Strings(paths)

	var chunks []Chunk
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("⚠️ skipping unreadable FAQ file")
			continue
		}
		for _, text := range ChunkText(string(raw), faqChunkSize, faqChunkOverlap) {
			chunks = append(chunks, Chunk{Source: filepath.Base(path), Text: text})
		}
	}

	added := 0
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := min(start+embedBatchSize, len(chunks))
		batch := chunks[start:end]
		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}
		vecs, err := s.LLM.Embed(ctx, texts)
		if err != nil {
			return added, fmt.Errorf("embed FAQ chunks: %w", err)
		}
		for i, c := range batch {
			s.Index.Add(c, vecs[i])
			added++
		}
	}
	log.Info().Int("files", len(paths)).Int("chunks", added).Msg("📄 FAQ corpus loaded")
	return added, nil
}

// NeedsFirstTimeHint reports whether the query reads like a new customer.
func NeedsFirstTimeHint(query string) bool {
	q := strings.ToLower(query)
	for _, m := range firstTimeMarkers {
		if strings.Contains(q, m) {
			return true
		}
	}
	return false
}

// Answer replies to query within the given session and logs a ticket.
func (s *SupportService) Answer(ctx context.Context, sessionID, query string) (*SupportReply, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, appErrors.NewInvalidField("message", "is required")
	}
	if sessionID == "" {
		return nil, appErrors.NewInvalidField("session_id", "is required")
	}

	session, err := s.Sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	reply := &SupportReply{SessionID: sessionID}
	contextText, sources := s.retrieve(ctx, query)
	reply.Sources = sources
	if NeedsFirstTimeHint(query) {
		contextText += "\n\n" + s.Brand.FirstTimeHint
		reply.HintAdded = true
	}

	msgs := []llm.Message{{Role: llm.RoleSystem, Content: s.Brand.SupportPrompt}}
	for _, turn := range session.History {
		msgs = append(msgs, llm.Message{Role: turn.Role, Content: turn.Content})
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: fmt.Sprintf("Context:\n%s\n\nUser: %s", contextText, query)})

	answer, err := s.LLM.Complete(ctx, llm.CompletionRequest{Messages: msgs, Temperature: supportTemperature})
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("⚠️ support LLM error")
		reply.Answer = supportFallbackAnswer
		reply.Fallback = true
		return reply, nil
	}
	reply.Answer = strings.TrimSpace(answer)

	limit := s.HistoryLimit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	session.Append(limit,
		model.ChatTurn{Role: llm.RoleUser, Content: query},
		model.ChatTurn{Role: llm.RoleAssistant, Content: reply.Answer},
	)
	session.UpdatedAt = s.now()
	if err := s.Sessions.Save(ctx, session); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("session save failed")
	}

	ticket := &model.SupportTicket{
		Timestamp:         s.now(),
		SessionID:         sessionID,
		UserQuery:         query,
		AssistantResponse: reply.Answer,
	}
	if err := s.Tickets.CreateTicket(ctx, ticket); err != nil {
		log.Error().Err(err).Msg("❌ ticket log error")
	}
	return reply, nil
}

func (s *SupportService) retrieve(ctx context.Context, query string) (string, []string) {
	if s.Index == nil || s.Index.Len() == 0 {
		return "", nil
	}
	vecs, err := s.LLM.Embed(ctx, []string{query})
	if err != nil || len(vecs) == 0 {
		log.Warn().Err(err).Msg("retrieval failed, answering without context")
		return "", nil
	}
	hits := s.Index.Search(vecs[0], retrievalTopK)
	texts := make([]string, len(hits))
	sources := make([]string, len(hits))
	for i, h := range hits {
		texts[i] = h.Text
		sources[i] = h.Source
	}
	return strings.Join(texts, "\n\n"), sources
}

func (s *SupportService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

var (
	wordPattern = regexp.MustCompile(`\b\w+\b`)
	stopwords   = map[string]bool{}
)

func init() {
	for _, w := range strings.Fields(`the and a to of in is on for or it my are with can you your
		how what who when where why which about from this that our me do we an if will order orders help`) {
		stopwords[w] = true
	}
}

// ExtractKeywords lower-cases text and drops stopwords and short words.
func ExtractKeywords(text string) []string {
	var out []string
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if len(w) > 2 && !stopwords[w] {
			out = append(out, w)
		}
	}
	return out
}

// Topics counts keywords across logged ticket queries, most frequent first.
func (s *SupportService) Topics(ctx context.Context, limit int) ([]TopicCount, error) {
	if limit <= 0 {
		limit = DefaultTopicLimit
	}
	tickets, err := s.Tickets.ListTickets(ctx)
	if err != nil {
		return nil, err
	}
	counts := map[string]int{}
	for _, t := range tickets {
		for _, w := range ExtractKeywords(t.UserQuery) {
			counts[w]++
		}
	}

	topics := make([]TopicCount, 0, len(counts))
	for w, n := range counts {
		topics = append(topics, TopicCount{Topic: strings.ToUpper(w[:1]) + w[1:], Tickets: n})
	}
	sort.Slice(topics, func(i, j int) bool {
		if topics[i].Tickets != topics[j].Tickets {
			return topics[i].Tickets > topics[j].Tickets
		}
		return topics[i].Topic < topics[j].Topic
	})
	if len(topics) > limit {
		topics = topics[:limit]
	}
	return topics, nil
}
