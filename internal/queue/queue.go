package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/twopeaks/controlroom/internal/model"
)

// SendTopic carries approved review items to the sender.
const SendTopic = "outreach_sends"

// DefaultMaxRetries bounds redelivery of a failing job for every driver.
const DefaultMaxRetries = 3

// Publisher is what the review service needs to hand off approved items.
type Publisher interface {
	Publish(topic string, payload any) error
}

// Queue is a Publisher that can also register topic handlers.
type Queue interface {
	Publisher
	Subscribe(topic string, handler func(payload any) error) error
}

// InMemoryQueue runs handlers in-process with linear backoff between
// attempts. Jobs are lost on restart; RequeueApproved covers that gap.
type InMemoryQueue struct {
	mu         sync.Mutex
	handlers   map[string][]func(payload any) error
	maxRetries int
	backoff    time.Duration
	wg         sync.WaitGroup
}

func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		handlers:   make(map[string][]func(payload any) error),
		maxRetries: DefaultMaxRetries,
		backoff:    500 * time.Millisecond,
	}
}

// WithBackoff sets the linear backoff step between attempts.
func (q *InMemoryQueue) WithBackoff(step time.Duration) *InMemoryQueue {
	q.backoff = step
	return q
}

type delivery struct {
	topic   string
	payload any
	attempt int
}

// Publish fans payload out to every subscriber of topic. Each handler runs
// in its own goroutine and is retried up to the queue's limit.
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}
	for _, handler := range handlers {
		q.wg.Add(1)
		go q.deliver(handler, delivery{topic: topic, payload: payload})
	}
	return nil
}

func (q *InMemoryQueue) deliver(handler func(payload any) error, d delivery) {
	defer q.wg.Done()
	for {
		err := handler(d.payload)
		if err == nil {
			log.Debug().Str("topic", d.topic).Int("attempt", d.attempt).Msg("job processed")
			return
		}
		d.attempt++
		if d.attempt > q.maxRetries {
			log.Error().Err(err).Str("topic", d.topic).Interface("payload", d.payload).Msg("❌ job permanently failed")
			return
		}
		log.Warn().Err(err).Str("topic", d.topic).Int("attempt", d.attempt).Int("max_retries", q.maxRetries).Msg("job failed, retrying")
		time.Sleep(time.Duration(d.attempt) * q.backoff)
	}
}

func (q *InMemoryQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// Wait blocks until every published job has finished or given up.
func (q *InMemoryQueue) Wait() {
	q.wg.Wait()
}

// Drain is Wait bounded by ctx. Jobs still running when ctx ends are
// abandoned.
func (q *InMemoryQueue) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendHandler processes one approved item.
type SendHandler interface {
	Process(ctx context.Context, job model.SendJob) error
}

// StartSendSubscriber wires the send topic to handler.
func StartSendSubscriber(ctx context.Context, q Queue, handler SendHandler) error {
	err := q.Subscribe(SendTopic, func(payload any) error {
		job, ok := payload.(model.SendJob)
		if !ok {
			log.Warn().Msgf("⚠️ invalid payload type %T on %s, expected SendJob", payload, SendTopic)
			return nil
		}
		log.Info().Str("table", string(job.Table)).Str("id", job.ID.String()).Msg("📩 processing approved item")
		return handler.Process(ctx, job)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", SendTopic, err)
	}
	return nil
}
