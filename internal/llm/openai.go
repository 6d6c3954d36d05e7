package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/twopeaks/controlroom/internal/config"
	"github.com/twopeaks/controlroom/internal/metrics"
)

// OpenAIClient paces every call through a shared limiter and bounds it
// with a per-call timeout.
type OpenAIClient struct {
	api            *openai.Client
	model          string
	embeddingModel string
	limiter        *rate.Limiter
	timeout        time.Duration
}

// New returns an OpenAI backed client, or NoopClient when no key is set.
func New(cfg config.OpenAIConfig) Client {
	if cfg.APIKey == "" {
		log.Warn().Msg("⚠️ OPENAI_API_KEY not set, agents will use fallback copy")
		return NoopClient{}
	}
	return NewOpenAI(cfg)
}

func NewOpenAI(cfg config.OpenAIConfig) *OpenAIClient {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	return &OpenAIClient{
		api:            openai.NewClientWithConfig(apiCfg),
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
		limiter:        rate.NewLimiter(limit, burst),
		timeout:        cfg.Timeout,
	}
}

func (c *OpenAIClient) begin(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, fmt.Errorf("llm rate limit wait: %w", err)
	}
	if c.timeout <= 0 {
		ctx, cancel := context.WithCancel(ctx)
		return ctx, cancel, nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	return ctx, cancel, nil
}

func (c *OpenAIClient) chatRequest(req CompletionRequest) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	return openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	return c.chat(ctx, "chat", c.chatRequest(req))
}

func (c *OpenAIClient) CompleteJSON(ctx context.Context, req CompletionRequest, schema Schema, out any) error {
	chatReq := c.chatRequest(req)
	def := schema.Definition
	chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
			Name:   schema.Name,
			Schema: &def,
			Strict: true,
		},
	}
	text, err := c.chat(ctx, "json", chatReq)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("decode %s reply: %w", schema.Name, err)
	}
	return nil
}

func (c *OpenAIClient) chat(ctx context.Context, kind string, req openai.ChatCompletionRequest) (string, error) {
	ctx, cancel, err := c.begin(ctx)
	if err != nil {
		return "", err
	}
	defer cancel()

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err == nil && len(resp.Choices) == 0 {
		err = errors.New("llm returned no choices")
	}
	metrics.RecordLLMCall(kind, err, time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	ctx, cancel, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	start := time.Now()
	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: inputs,
		Model: openai.EmbeddingModel(c.embeddingModel),
	})
	if err == nil && len(resp.Data) != len(inputs) {
		err = fmt.Errorf("expected %d embeddings, got %d", len(inputs), len(resp.Data))
	}
	metrics.RecordLLMCall("embed", err, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}

	out := make([][]float32, len(inputs))
	for _, d := range resp.Data {
		if d.Index >= 0 && d.Index < len(out) {
			out[d.Index] = d.Embedding
		}
	}
	return out, nil
}

var _ Client = (*OpenAIClient)(nil)
