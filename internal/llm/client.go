// Package llm wraps the chat and embedding API used by the agents.
package llm

import (
	"context"
	"errors"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// ErrNotConfigured is returned by NoopClient for every call.
var ErrNotConfigured = errors.New("llm: no API key configured")

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string
	Content string
}

type CompletionRequest struct {
	Messages    []Message
	Temperature float32
	MaxTokens   int
}

// Prompt builds a single user message request.
func Prompt(text string, temperature float32) CompletionRequest {
	return CompletionRequest{
		Messages:    []Message{{Role: RoleUser, Content: text}},
		Temperature: temperature,
	}
}

// Schema names a JSON schema the model's reply must satisfy.
type Schema struct {
	Name       string
	Definition jsonschema.Definition
}

// Client is what the services depend on. The OpenAI implementation is the
// only production one; tests use fakes.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	// CompleteJSON asks for a reply matching schema and decodes it into out.
	CompleteJSON(ctx context.Context, req CompletionRequest, schema Schema, out any) error
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// NoopClient fails every call, which makes the services fall back to
// their canned output.
type NoopClient struct{}

func (NoopClient) Complete(context.Context, CompletionRequest) (string, error) {
	return "", ErrNotConfigured
}

func (NoopClient) CompleteJSON(context.Context, CompletionRequest, Schema, any) error {
	return ErrNotConfigured
}

func (NoopClient) Embed(context.Context, []string) ([][]float32, error) {
	return nil, ErrNotConfigured
}

// ScoreSchema is the structured reply for lead scoring.
var ScoreSchema = Schema{
	Name: "lead_score",
	Definition: jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"score":  {Type: jsonschema.Integer, Description: "purchase interest from 1 to 10"},
			"reason": {Type: jsonschema.String, Description: "short reason"},
		},
		Required:             []string{"score", "reason"},
		AdditionalProperties: false,
	},
}

// MessageSchema is the structured reply for drafted messages.
var MessageSchema = Schema{
	Name: "drafted_message",
	Definition: jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"subject": {Type: jsonschema.String},
			"message": {Type: jsonschema.String},
		},
		Required:             []string{"subject", "message"},
		AdditionalProperties: false,
	},
}

type ScoreReply struct {
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}

type MessageReply struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}
