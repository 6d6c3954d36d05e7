package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/twopeaks/controlroom/internal/config"
	appErrors "github.com/twopeaks/controlroom/internal/errors"
	"github.com/twopeaks/controlroom/internal/llm"
	"github.com/twopeaks/controlroom/internal/repository"
)

func newSupport(store *repository.MemoryStore, client *fakeLLM) *SupportService {
	return &SupportService{
		LLM:      client,
		Tickets:  store,
		Sessions: NewMemorySessionStore(),
		Index:    NewVectorIndex(),
		Brand:    config.DefaultBrand(),
	}
}

func writeFAQ(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"shipping.md": "We ship within 2 business days. Shipping is free over $40.",
		"refunds.md":  "Refunds are issued within 30 days of delivery.",
		"notes.txt":   "ignored",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestLoadFAQAndRetrieve(t *testing.T) {
	ctx := context.Background()
	client := &fakeLLM{
		embedFn: keywordEmbed,
		textFn:  func(string) (string, error) { return "We ship in two days.", nil },
	}
	svc := newSupport(repository.NewMemory(), client)

	n, err := svc.LoadFAQ(ctx, writeFAQ(t))
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("indexed %d chunks, want 2", n)
	}

	reply, err := svc.Answer(ctx, "s1", "How long does shipping take?")
	if err != nil {
		t.Fatal(err)
	}
	if len(reply.Sources) == 0 || reply.Sources[0] != "shipping.md" {
		t.Errorf("best source %v, want shipping.md first", reply.Sources)
	}
	if !strings.Contains(client.prompts[0], "free over $40") {
		t.Errorf("context not passed to the model: %q", client.prompts[0])
	}
}

func TestAnswer_SessionHistoryAndTicket(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemory()
	var seen [][]llm.Message
	client := &fakeLLM{textFn: func(string) (string, error) { return "Happy to help.", nil }}
	svc := newSupport(store, client)
	svc.LLM = &historySpy{fakeLLM: client, seen: &seen}

	if _, err := svc.Answer(ctx, "abc", "Do you have decaf?"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Answer(ctx, "abc", "And oat milk?"); err != nil {
		t.Fatal(err)
	}
	// system + 2 prior turns + current question
	if got := len(seen[1]); got != 4 {
		t.Errorf("second call carried %d messages, want 4", got)
	}

	tickets, _ := store.ListTickets(ctx)
	if len(tickets) != 2 || tickets[0].SessionID != "abc" || tickets[1].AssistantResponse != "Happy to help." {
		t.Errorf("unexpected tickets %+v", tickets)
	}
}

type historySpy struct {
	*fakeLLM
	seen *[][]llm.Message
}

func (h *historySpy) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	*h.seen = append(*h.seen, req.Messages)
	return h.fakeLLM.Complete(ctx, req)
}

func TestAnswer_FirstTimeHint(t *testing.T) {
	client := &fakeLLM{textFn: func(string) (string, error) { return "Try the Masala blend.", nil }}
	svc := newSupport(repository.NewMemory(), client)

	reply, err := svc.Answer(context.Background(), "new", "It's my first time, what do you recommend?")
	if err != nil {
		t.Fatal(err)
	}
	if !reply.HintAdded || !strings.Contains(client.prompts[0], svc.Brand.FirstTimeHint) {
		t.Errorf("hint missing: %+v", reply)
	}
}

func TestAnswer_LLMFailureFallsBack(t *testing.T) {
	store := repository.NewMemory()
	svc := newSupport(store, &fakeLLM{})
	reply, err := svc.Answer(context.Background(), "x", "where is my order")
	if err != nil {
		t.Fatal(err)
	}
	if !reply.Fallback || reply.Answer != supportFallbackAnswer {
		t.Errorf("unexpected reply %+v", reply)
	}
	if tickets, _ := store.ListTickets(context.Background()); len(tickets) != 0 {
		t.Errorf("failed answer logged a ticket")
	}
}

func TestAnswer_Validation(t *testing.T) {
	svc := newSupport(repository.NewMemory(), &fakeLLM{})
	if _, err := svc.Answer(context.Background(), "s", "   "); !appErrors.IsInvalidInput(err) {
		t.Errorf("empty message: %v", err)
	}
	if _, err := svc.Answer(context.Background(), "", "hello"); !appErrors.IsInvalidInput(err) {
		t.Errorf("empty session: %v", err)
	}
}

func TestTopics(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemory()
	client := &fakeLLM{textFn: func(string) (string, error) { return "ok", nil }}
	svc := newSupport(store, client)

	for _, q := range []string{"Where is my shipping update?", "Shipping to Canada?", "Is chai caffeinated?"} {
		if _, err := svc.Answer(ctx, "s", q); err != nil {
			t.Fatal(err)
		}
	}
	topics, err := svc.Topics(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(topics) != 2 || topics[0].Topic != "Shipping" || topics[0].Tickets != 2 {
		t.Errorf("unexpected topics %+v", topics)
	}

	empty, err := newSupport(repository.NewMemory(), client).Topics(ctx, 5)
	if err != nil || len(empty) != 0 {
		t.Errorf("no tickets should give no topics: %+v %v", empty, err)
	}
}

func TestExtractKeywords(t *testing.T) {
	got := ExtractKeywords("How do I cancel my subscription to the chai club?")
	want := []string{"cancel", "subscription", "chai", "club"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestChunkTextAndIndex(t *testing.T) {
	chunks := ChunkText(strings.Repeat("a", 25), 10, 3)
	if len(chunks) != 4 || len([]rune(chunks[0])) != 10 {
		t.Fatalf("unexpected chunks %q", chunks)
	}
	if ChunkText("", 10, 2) != nil {
		t.Error("empty text should give no chunks")
	}

	ix := NewVectorIndex()
	ix.Add(Chunk{Source: "a", Text: "x"}, []float32{1, 0})
	ix.Add(Chunk{Source: "b", Text: "y"}, []float32{0, 1})
	ix.Add(Chunk{Source: "c", Text: "z"}, []float32{0.7, 0.7})
	hits := ix.Search([]float32{1, 0.1}, 2)
	if len(hits) != 2 || hits[0].Source != "a" || hits[1].Source != "c" {
		t.Errorf("unexpected ranking %+v", hits)
	}
}
