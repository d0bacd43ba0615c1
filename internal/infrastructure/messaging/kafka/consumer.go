package kafka

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/SumFormula-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SumFormula-Intelligence/pkg/errors"
)

// ConsumerConfig holds configuration for the Consumer.
type ConsumerConfig struct {
	Brokers         []string
	GroupID         string
	Topics          []string
	MinBytes        int
	MaxBytes        int
	MaxWait         time.Duration
	StartOffset     int64
	MaxRetries      int
	RetryBackoff    time.Duration
	DeadLetterTopic string
	SASLMechanism   string
	SASLUsername    string
	SASLPassword    string
}

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
	Stats() kafka.ReaderStats
}

// ConsumerMetrics is a snapshot of consumer counters.
type ConsumerMetrics struct {
	Processed    int64
	Failed       int64
	Retried      int64
	DeadLettered int64
}

// Consumer reads messages from a consumer group, dispatches them to the
// handler registered for their topic and commits each offset once the message
// has either been handled or dead-lettered.
type Consumer struct {
	reader     ReaderInterface
	config     ConsumerConfig
	deadLetter Publisher
	logger     logging.Logger

	mu       sync.RWMutex
	handlers map[string]MessageHandler

	running atomic.Bool
	closed  atomic.Bool
	done    chan struct{}

	processed    atomic.Int64
	failed       atomic.Int64
	retried      atomic.Int64
	deadLettered atomic.Int64
}

func applyConsumerDefaults(cfg *ConsumerConfig) {
	if cfg.MinBytes == 0 {
		cfg.MinBytes = 1
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = 10 << 20
	}
	if cfg.MaxWait == 0 {
		cfg.MaxWait = 500 * time.Millisecond
	}
	if cfg.StartOffset == 0 {
		cfg.StartOffset = kafka.FirstOffset
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = time.Second
	}
}

// ValidateConsumerConfig checks the fields NewConsumer cannot default.
func ValidateConsumerConfig(cfg ConsumerConfig) error {
	if len(cfg.Brokers) == 0 {
		return errors.InvalidConfiguration("kafka brokers are required")
	}
	if cfg.GroupID == "" {
		return errors.InvalidConfiguration("kafka consumer group is required")
	}
	if len(cfg.Topics) == 0 {
		return errors.InvalidConfiguration("at least one topic is required")
	}
	if cfg.MaxRetries < 0 {
		return errors.InvalidConfiguration("kafka max retries must be >= 0")
	}
	return nil
}

// NewConsumer creates a group consumer over cfg.Topics.  deadLetter may be
// nil, in which case exhausted messages are logged and committed.
func NewConsumer(cfg ConsumerConfig, deadLetter Publisher, logger logging.Logger) (*Consumer, error) {
	if err := ValidateConsumerConfig(cfg); err != nil {
		return nil, err
	}
	applyConsumerDefaults(&cfg)

	mech, err := saslMechanism(cfg.SASLMechanism, cfg.SASLUsername, cfg.SASLPassword)
	if err != nil {
		return nil, err
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		GroupTopics: cfg.Topics,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
		MaxWait:     cfg.MaxWait,
		StartOffset: cfg.StartOffset,
		Dialer: &kafka.Dialer{
			Timeout:       10 * time.Second,
			DualStack:     true,
			SASLMechanism: mech,
		},
	})
	return newConsumerWithReader(reader, cfg, deadLetter, logger), nil
}

func newConsumerWithReader(r ReaderInterface, cfg ConsumerConfig, deadLetter Publisher, logger logging.Logger) *Consumer {
	applyConsumerDefaults(&cfg)
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Consumer{
		reader:     r,
		config:     cfg,
		deadLetter: deadLetter,
		logger:     logger,
		handlers:   make(map[string]MessageHandler),
		done:       make(chan struct{}),
	}
}

// Subscribe registers handler for topic, replacing any earlier handler.
func (c *Consumer) Subscribe(topic string, handler MessageHandler) error {
	if topic == "" {
		return errors.InvalidParam("topic is required")
	}
	if handler == nil {
		return errors.InvalidParam("handler is required")
	}
	c.mu.Lock()
	c.handlers[topic] = handler
	c.mu.Unlock()
	return nil
}

// Start consumes until ctx is cancelled or Close is called.  It blocks, and
// returns nil on a clean shutdown.
func (c *Consumer) Start(ctx context.Context) error {
	if c.closed.Load() {
		return errors.New(errors.ErrCodeServiceUnavailable, "consumer closed")
	}
	if !c.running.CompareAndSwap(false, true) {
		return errors.New(errors.ErrCodeConflict, "consumer already running")
	}
	defer close(c.done)

	c.logger.Info("kafka consumer started",
		logging.String("group", c.config.GroupID),
		logging.Any("topics", c.config.Topics))

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || c.closed.Load() {
				c.logger.Info("kafka consumer stopped")
				return nil
			}
			c.logger.Error("fetch failed", logging.Err(err))
			if !sleepCtx(ctx, c.config.RetryBackoff) {
				return nil
			}
			continue
		}

		if !c.processMessage(ctx, m) {
			c.logger.Info("kafka consumer stopped, message left uncommitted",
				logging.String("topic", m.Topic),
				logging.Int64("offset", m.Offset))
			return nil
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.logger.Error("commit failed",
				logging.String("topic", m.Topic),
				logging.Int64("offset", m.Offset),
				logging.Err(err))
		}
	}
}

// processMessage runs the handler with retries.  A client-class error is
// permanent and goes straight to the dead-letter topic.  It returns false when
// ctx ended before the message was settled; such a message is neither
// dead-lettered nor committed, so it is redelivered.
func (c *Consumer) processMessage(ctx context.Context, m kafka.Message) bool {
	c.mu.RLock()
	handler, ok := c.handlers[m.Topic]
	c.mu.RUnlock()
	if !ok {
		c.logger.Warn("no handler for topic, skipping", logging.String("topic", m.Topic))
		return true
	}

	msg := fromKafkaMessage(m)
	var err error
	attempts := 0
	for attempts <= c.config.MaxRetries {
		attempts++
		if err = handler(ctx, msg); err == nil {
			c.processed.Add(1)
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		if errors.IsValidation(err) {
			break
		}
		if attempts <= c.config.MaxRetries {
			c.retried.Add(1)
			backoff := c.config.RetryBackoff * time.Duration(1<<(attempts-1))
			c.logger.Warn("handler failed, retrying",
				logging.String("topic", m.Topic),
				logging.Int("attempt", attempts),
				logging.Duration("backoff", backoff),
				logging.Err(err))
			if !sleepCtx(ctx, backoff) {
				return false
			}
		}
	}

	c.failed.Add(1)
	c.logger.Error("message handling failed",
		logging.String("topic", m.Topic),
		logging.Int64("offset", m.Offset),
		logging.Int("attempts", attempts),
		logging.Err(err))
	c.sendToDeadLetter(ctx, msg, attempts, err)
	return true
}

func (c *Consumer) sendToDeadLetter(ctx context.Context, msg *Message, attempts int, cause error) {
	if c.deadLetter == nil || c.config.DeadLetterTopic == "" {
		return
	}
	headers := make(map[string]string, len(msg.Headers)+3)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[HeaderOriginalTopic] = msg.Topic
	headers[HeaderAttempts] = strconv.Itoa(attempts)
	if cause != nil {
		headers[HeaderError] = cause.Error()
	}

	// The fetch context may already be cancelled during shutdown.
	dlqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	err := c.deadLetter.Publish(dlqCtx, &ProducerMessage{
		Topic:   c.config.DeadLetterTopic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	})
	if err != nil {
		c.logger.Error("dead-letter publish failed",
			logging.String("topic", c.config.DeadLetterTopic),
			logging.Err(err))
		return
	}
	c.deadLettered.Add(1)
}

// Metrics returns a snapshot of the consumer counters.
func (c *Consumer) Metrics() ConsumerMetrics {
	return ConsumerMetrics{
		Processed:    c.processed.Load(),
		Failed:       c.failed.Load(),
		Retried:      c.retried.Load(),
		DeadLettered: c.deadLettered.Load(),
	}
}

// Lag returns the reader lag reported by kafka-go.
func (c *Consumer) Lag() int64 {
	return c.reader.Stats().Lag
}

// Close stops the consumer and closes the reader.  Later calls are no-ops.
func (c *Consumer) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := c.reader.Close()
	if c.running.Load() {
		select {
		case <-c.done:
		case <-time.After(30 * time.Second):
			c.logger.Warn("timed out waiting for consumer loop")
		}
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "close reader").WithDetail(fmt.Sprint(c.config.Topics))
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

//Personal.AI order the ending
