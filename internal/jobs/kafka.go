package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/segmentio/kafka-go"
)

const (
	DefaultTopic   = "checkout-jobs"
	DefaultGroupID = "checkout-workers"
)

// KafkaQueue publishes jobs to a topic keyed by basket, so attempts on one
// basket stay on one partition.
type KafkaQueue struct {
	writer *kafka.Writer
}

func NewKafkaQueue(topic string, brokers ...string) *KafkaQueue {
	if topic == "" {
		topic = DefaultTopic
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaQueue{writer: w}
}

func (q *KafkaQueue) Enqueue(ctx context.Context, key string, payload []byte) error {
	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventCheckoutRequested)},
		},
	}
	if err := q.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write checkout job: %w", err)
	}
	return nil
}

func (q *KafkaQueue) Close() error {
	return q.writer.Close()
}

// KafkaConsumer reads jobs as part of a consumer group. Offsets are committed
// after the handler returns, so a crash mid-job redelivers it. A handler error
// is logged and the offset is still committed.
type KafkaConsumer struct {
	readers []*kafka.Reader
	logger  *slog.Logger
}

func NewKafkaConsumer(topic, groupID string, readers int, logger *slog.Logger, brokers ...string) *KafkaConsumer {
	if topic == "" {
		topic = DefaultTopic
	}
	if groupID == "" {
		groupID = DefaultGroupID
	}
	if readers <= 0 {
		readers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &KafkaConsumer{logger: logger}
	for i := 0; i < readers; i++ {
		c.readers = append(c.readers, kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MaxBytes: 10e6, // 10MB
		}))
	}
	return c
}

// Run blocks until ctx is done.
func (c *KafkaConsumer) Run(ctx context.Context, h Handler) {
	var wg sync.WaitGroup
	for _, r := range c.readers {
		wg.Add(1)
		go func(r *kafka.Reader) {
			defer wg.Done()
			for ctx.Err() == nil {
				c.processMessage(ctx, r, h)
			}
		}(r)
	}
	wg.Wait()
}

func (c *KafkaConsumer) processMessage(ctx context.Context, r *kafka.Reader, h Handler) {
	m, err := r.FetchMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		c.logger.ErrorContext(ctx, "error reading message", "error", err)
		return
	}

	job, err := Decode(m.Value)
	if err != nil {
		c.logger.ErrorContext(ctx, "dropping checkout job", "offset", m.Offset, "error", err)
	} else if err := h(ctx, job); err != nil {
		c.logger.ErrorContext(ctx, "checkout job failed", "key", string(m.Key), "basket_id", job.BasketID, "error", err)
	}

	if err := r.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
		c.logger.ErrorContext(ctx, "error committing message", "offset", m.Offset, "error", err)
	}
}

func (c *KafkaConsumer) Close() error {
	var errs []error
	for _, r := range c.readers {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
