package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/twopeaks/controlroom/internal/llm"
	"github.com/twopeaks/controlroom/internal/model"
)

var errLLMDown = errors.New("llm down")

// fakeLLM answers from per-call hooks. A nil hook fails the call.
type fakeLLM struct {
	mu      sync.Mutex
	jsonFn  func(prompt string) (string, error)
	textFn  func(prompt string) (string, error)
	embedFn func(texts []string) ([][]float32, error)
	prompts []string
}

func lastContent(req llm.CompletionRequest) string {
	if len(req.Messages) == 0 {
		return ""
	}
	return req.Messages[len(req.Messages)-1].Content
}

func (f *fakeLLM) record(req llm.CompletionRequest) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := lastContent(req)
	f.prompts = append(f.prompts, p)
	return p
}

func (f *fakeLLM) Complete(_ context.Context, req llm.CompletionRequest) (string, error) {
	p := f.record(req)
	if f.textFn == nil {
		return "", errLLMDown
	}
	return f.textFn(p)
}

func (f *fakeLLM) CompleteJSON(_ context.Context, req llm.CompletionRequest, _ llm.Schema, out any) error {
	p := f.record(req)
	if f.jsonFn == nil {
		return errLLMDown
	}
	raw, err := f.jsonFn(p)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), out)
}

func (f *fakeLLM) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.embedFn == nil {
		return nil, errLLMDown
	}
	return f.embedFn(texts)
}

// keywordEmbed maps text onto fixed axes so similarity is predictable.
func keywordEmbed(texts []string) ([][]float32, error) {
	axes := []string{"ship", "refund", "caffeine", "subscri"}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, len(axes)+1)
		v[len(axes)] = 0.01
		for j, a := range axes {
			if strings.Contains(strings.ToLower(t), a) {
				v[j] = 1
			}
		}
		out[i] = v
	}
	return out, nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	jobs []model.SendJob
	err  error
}

func (p *recordingPublisher) Publish(topic string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	if job, ok := payload.(model.SendJob); ok {
		p.jobs = append(p.jobs, job)
	}
	return nil
}

type fakeSender struct {
	calls int
	err   error
}

func (s *fakeSender) Send(context.Context, model.ReviewItem) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return "msg-test", nil
}
