package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/streadway/amqp"

	"github.com/twopeaks/controlroom/internal/model"
)

const retryHeader = "x-retry-count"

// RabbitMQ publishes send jobs to a durable queue and consumes them with
// manual ack. A failed job is republished with an incremented retry header.
type RabbitMQ struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	queue      string
	maxRetries int
	mu         sync.Mutex
}

func DialRabbitMQ(url, queueName string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}
	return &RabbitMQ{conn: conn, ch: ch, queue: queueName, maxRetries: DefaultMaxRetries}, nil
}

// Publish sends a SendJob to the declared queue. The queue name stands in
// for the topic.
func (r *RabbitMQ) Publish(_ string, payload any) error {
	job, ok := payload.(model.SendJob)
	if !ok {
		return fmt.Errorf("rabbitmq: unsupported payload %T", payload)
	}
	return r.publish(job, 0)
}

func (r *RabbitMQ) publish(job model.SendJob, retry int) error {
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ch.Publish("", r.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Headers:      amqp.Table{retryHeader: int32(retry)},
		Body:         body,
	})
}

// Consume runs handler for each delivery until ctx is done.
func (r *RabbitMQ) Consume(ctx context.Context, handler SendHandler) error {
	msgs, err := r.ch.Consume(
		r.queue,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("rabbitmq delivery channel closed")
			}
			r.handle(ctx, d, handler)
		}
	}
}

func (r *RabbitMQ) handle(ctx context.Context, d amqp.Delivery, handler SendHandler) {
	var job model.SendJob
	if err := json.Unmarshal(d.Body, &job); err != nil {
		log.Warn().Err(err).Msg("invalid send job")
		d.Ack(false)
		return
	}

	err := handler.Process(ctx, job)
	if err == nil {
		d.Ack(false)
		return
	}

	retry := RetryCount(d.Headers)
	if retry < r.maxRetries {
		log.Warn().Err(err).Str("id", job.ID.String()).Int("retry", retry+1).Msg("send failed, requeueing")
		if pubErr := r.publish(job, retry+1); pubErr != nil {
			log.Error().Err(pubErr).Str("id", job.ID.String()).Msg("requeue failed")
			d.Nack(false, true)
			return
		}
	} else {
		log.Error().Err(err).Str("id", job.ID.String()).Int("retries", retry).Msg("send permanently failed")
	}
	d.Ack(false)
}

// RetryCount reads the retry header whatever integer type the broker
// decoded it as.
func RetryCount(headers amqp.Table) int {
	switch v := headers[retryHeader].(type) {
	case int:
		return v
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	}
	return 0
}

func (r *RabbitMQ) Close() error {
	if err := r.ch.Close(); err != nil {
		r.conn.Close()
		return err
	}
	return r.conn.Close()
}

var _ Publisher = (*RabbitMQ)(nil)
