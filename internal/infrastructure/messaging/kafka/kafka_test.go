package kafka

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/SumFormula-Intelligence/internal/testutil"
	"github.com/turtacn/SumFormula-Intelligence/pkg/errors"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	return nil
}

func (w *fakeWriter) Stats() kafka.WriterStats { return kafka.WriterStats{} }

func (w *fakeWriter) written() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]kafka.Message, len(w.messages))
	copy(out, w.messages)
	return out
}

type fakeReader struct {
	msgs      chan kafka.Message
	closeOnce sync.Once
	closed    chan struct{}

	mu        sync.Mutex
	committed []kafka.Message
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	r := &fakeReader{msgs: make(chan kafka.Message, len(msgs)), closed: make(chan struct{})}
	for _, m := range msgs {
		r.msgs <- m
	}
	return r
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.msgs:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case <-r.closed:
		return kafka.Message{}, stderrors.New("reader closed")
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	r.committed = append(r.committed, msgs...)
	r.mu.Unlock()
	return nil
}

func (r *fakeReader) Close() error {
	r.closeOnce.Do(func() { close(r.closed) })
	return nil
}

func (r *fakeReader) Stats() kafka.ReaderStats { return kafka.ReaderStats{Lag: 7} }

func (r *fakeReader) commitCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := newProducerWithWriter(w, ProducerConfig{Brokers: []string{"b:9092"}}, nil)

	err := p.Publish(context.Background(), &ProducerMessage{
		Topic:   "results",
		Key:     []byte("job-1"),
		Value:   []byte(`{"ok":true}`),
		Headers: map[string]string{"content-type": "application/json"},
	})
	require.NoError(t, err)

	got := w.written()
	require.Len(t, got, 1)
	assert.Equal(t, "results", got[0].Topic)
	assert.Equal(t, []byte("job-1"), got[0].Key)
	require.Len(t, got[0].Headers, 1)
	assert.Equal(t, "content-type", got[0].Headers[0].Key)
	assert.False(t, got[0].Time.IsZero())
	assert.Equal(t, int64(1), p.Metrics().MessagesSent)
	assert.Equal(t, int64(11), p.Metrics().BytesSent)
}

func TestProducer_PublishRejectsBadMessages(t *testing.T) {
	p := newProducerWithWriter(&fakeWriter{}, ProducerConfig{MaxMessageBytes: 4}, nil)
	ctx := context.Background()

	assert.True(t, errors.IsValidation(p.Publish(ctx, nil)))
	assert.True(t, errors.IsValidation(p.Publish(ctx, &ProducerMessage{Value: []byte("x")})))
	assert.True(t, errors.IsValidation(p.Publish(ctx, &ProducerMessage{Topic: "t"})))
	assert.True(t, errors.IsValidation(p.Publish(ctx, &ProducerMessage{Topic: "t", Value: []byte("too long")})))
}

func TestProducer_PublishWriterFailure(t *testing.T) {
	w := &fakeWriter{err: stderrors.New("broker down")}
	p := newProducerWithWriter(w, ProducerConfig{}, nil)

	err := p.Publish(context.Background(), &ProducerMessage{Topic: "t", Value: []byte("v")})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeServiceUnavailable))
	assert.Equal(t, int64(1), p.Metrics().MessagesFailed)
}

func TestProducer_Close(t *testing.T) {
	w := &fakeWriter{}
	p := newProducerWithWriter(w, ProducerConfig{}, nil)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.True(t, w.closed)

	err := p.Publish(context.Background(), &ProducerMessage{Topic: "t", Value: []byte("v")})
	assert.ErrorIs(t, err, ErrProducerClosed)
}

func TestNewProducer_Validation(t *testing.T) {
	_, err := NewProducer(ProducerConfig{}, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidConfiguration))

	_, err = NewProducer(ProducerConfig{Brokers: []string{"b"}, Compression: "brotli"}, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidConfiguration))

	_, err = NewProducer(ProducerConfig{Brokers: []string{"b"}, SASLMechanism: "GSSAPI"}, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidConfiguration))

	p, err := NewProducer(ProducerConfig{Brokers: []string{"b"}, Compression: "snappy", SASLMechanism: "SCRAM-SHA-512"}, nil)
	require.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestValidateConsumerConfig(t *testing.T) {
	valid := ConsumerConfig{Brokers: []string{"b"}, GroupID: "g", Topics: []string{"t"}}
	assert.NoError(t, ValidateConsumerConfig(valid))

	for name, mutate := range map[string]func(*ConsumerConfig){
		"no brokers":       func(c *ConsumerConfig) { c.Brokers = nil },
		"no group":         func(c *ConsumerConfig) { c.GroupID = "" },
		"no topics":        func(c *ConsumerConfig) { c.Topics = nil },
		"negative retries": func(c *ConsumerConfig) { c.MaxRetries = -1 },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := valid
			mutate(&cfg)
			assert.True(t, errors.IsCode(ValidateConsumerConfig(cfg), errors.ErrCodeInvalidConfiguration))
		})
	}
}

// runConsumer starts c, waits until the reader has committed want messages,
// then shuts it down.
func runConsumer(t *testing.T, c *Consumer, r *fakeReader, want int) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- c.Start(ctx) }()

	require.Eventually(t, func() bool { return r.commitCount() >= want }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, c.Close())
	require.NoError(t, <-errCh)
}

func TestConsumer_DispatchesAndCommits(t *testing.T) {
	r := newFakeReader(
		kafka.Message{Topic: "requests", Offset: 1, Value: []byte("a")},
		kafka.Message{Topic: "requests", Offset: 2, Value: []byte("b"),
			Headers: []kafka.Header{{Key: "trace", Value: []byte("t1")}}},
	)
	c := newConsumerWithReader(r, ConsumerConfig{GroupID: "g", Topics: []string{"requests"}}, nil, nil)

	var mu sync.Mutex
	var seen []string
	require.NoError(t, c.Subscribe("requests", func(_ context.Context, msg *Message) error {
		mu.Lock()
		seen = append(seen, string(msg.Value)+msg.Headers["trace"])
		mu.Unlock()
		return nil
	}))

	runConsumer(t, c, r, 2)

	assert.Equal(t, []string{"a", "bt1"}, seen)
	assert.Equal(t, int64(2), c.Metrics().Processed)
	assert.Equal(t, int64(7), c.Lag())
}

func TestConsumer_RetriesTransientFailures(t *testing.T) {
	r := newFakeReader(kafka.Message{Topic: "requests", Value: []byte("v")})
	c := newConsumerWithReader(r, ConsumerConfig{MaxRetries: 2, RetryBackoff: time.Millisecond}, nil, nil)

	calls := 0
	require.NoError(t, c.Subscribe("requests", func(context.Context, *Message) error {
		calls++
		if calls < 3 {
			return stderrors.New("transient")
		}
		return nil
	}))

	runConsumer(t, c, r, 1)

	assert.Equal(t, 3, calls)
	m := c.Metrics()
	assert.Equal(t, int64(1), m.Processed)
	assert.Equal(t, int64(2), m.Retried)
	assert.Zero(t, m.Failed)
}

func TestConsumer_DeadLettersExhaustedMessages(t *testing.T) {
	r := newFakeReader(kafka.Message{
		Topic: "requests", Key: []byte("k"), Value: []byte("v"),
		Headers: []kafka.Header{{Key: "trace", Value: []byte("t1")}},
	})
	dlqWriter := &fakeWriter{}
	dlq := newProducerWithWriter(dlqWriter, ProducerConfig{}, nil)
	logger := testutil.NewMockLogger()
	c := newConsumerWithReader(r, ConsumerConfig{
		MaxRetries: 1, RetryBackoff: time.Millisecond, DeadLetterTopic: "requests.dlq",
	}, dlq, logger)

	calls := 0
	require.NoError(t, c.Subscribe("requests", func(context.Context, *Message) error {
		calls++
		return stderrors.New("boom")
	}))

	runConsumer(t, c, r, 1)

	assert.Equal(t, 2, calls)
	got := dlqWriter.written()
	require.Len(t, got, 1)
	assert.Equal(t, "requests.dlq", got[0].Topic)
	assert.Equal(t, []byte("k"), got[0].Key)

	headers := fromKafkaMessage(got[0]).Headers
	assert.Equal(t, "requests", headers[HeaderOriginalTopic])
	assert.Equal(t, "boom", headers[HeaderError])
	assert.Equal(t, "2", headers[HeaderAttempts])
	assert.Equal(t, "t1", headers["trace"])

	assert.Equal(t, int64(1), c.Metrics().DeadLettered)
	assert.True(t, logger.HasMessage("error", "message handling failed"))
}

func TestConsumer_ValidationErrorsSkipRetries(t *testing.T) {
	r := newFakeReader(kafka.Message{Topic: "requests", Value: []byte("garbage")})
	dlqWriter := &fakeWriter{}
	c := newConsumerWithReader(r, ConsumerConfig{
		MaxRetries: 5, RetryBackoff: time.Millisecond, DeadLetterTopic: "dlq",
	}, newProducerWithWriter(dlqWriter, ProducerConfig{}, nil), nil)

	calls := 0
	require.NoError(t, c.Subscribe("requests", func(context.Context, *Message) error {
		calls++
		return errors.New(errors.ErrCodeBadRequest, "undecodable")
	}))

	runConsumer(t, c, r, 1)

	assert.Equal(t, 1, calls)
	assert.Len(t, dlqWriter.written(), 1)
	assert.Zero(t, c.Metrics().Retried)
}

func TestConsumer_UnknownTopicIsCommitted(t *testing.T) {
	r := newFakeReader(kafka.Message{Topic: "other", Value: []byte("v")})
	c := newConsumerWithReader(r, ConsumerConfig{}, nil, nil)

	runConsumer(t, c, r, 1)

	assert.Zero(t, c.Metrics().Processed)
	assert.Zero(t, c.Metrics().Failed)
}

func TestConsumer_SubscribeValidation(t *testing.T) {
	c := newConsumerWithReader(newFakeReader(), ConsumerConfig{}, nil, nil)
	assert.Error(t, c.Subscribe("", func(context.Context, *Message) error { return nil }))
	assert.Error(t, c.Subscribe("t", nil))
}

func TestConsumer_StartAfterClose(t *testing.T) {
	c := newConsumerWithReader(newFakeReader(), ConsumerConfig{}, nil, nil)
	require.NoError(t, c.Close())
	err := c.Start(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeServiceUnavailable))
}

func TestConsumer_StopsOnContextCancel(t *testing.T) {
	c := newConsumerWithReader(newFakeReader(), ConsumerConfig{}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Start(ctx) }()

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
}

// startAndCancel starts c, cancels ctx once the handler signals inFlight,
// and waits for Start to return.
func startAndCancel(t *testing.T, c *Consumer, inFlight <-chan struct{}) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- c.Start(ctx) }()

	select {
	case <-inFlight:
	case <-time.After(2 * time.Second):
		t.Fatal("handler never ran")
	}
	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestConsumer_ShutdownMidHandlerLeavesMessageForRedelivery(t *testing.T) {
	r := newFakeReader(kafka.Message{Topic: "requests", Offset: 9, Value: []byte("v")})
	dlqWriter := &fakeWriter{}
	c := newConsumerWithReader(r, ConsumerConfig{
		MaxRetries: 3, RetryBackoff: time.Millisecond, DeadLetterTopic: "dlq",
	}, newProducerWithWriter(dlqWriter, ProducerConfig{}, nil), nil)

	inFlight := make(chan struct{})
	require.NoError(t, c.Subscribe("requests", func(ctx context.Context, _ *Message) error {
		close(inFlight)
		<-ctx.Done()
		return errors.Wrap(ctx.Err(), errors.ErrCodeGenerationFailed, "generation cancelled")
	}))

	startAndCancel(t, c, inFlight)

	assert.Empty(t, dlqWriter.written())
	assert.Zero(t, r.commitCount())
	m := c.Metrics()
	assert.Zero(t, m.Failed)
	assert.Zero(t, m.DeadLettered)
	assert.Zero(t, m.Retried)
}

func TestConsumer_ShutdownDuringBackoffLeavesMessageForRedelivery(t *testing.T) {
	r := newFakeReader(kafka.Message{Topic: "requests", Value: []byte("v")})
	dlqWriter := &fakeWriter{}
	c := newConsumerWithReader(r, ConsumerConfig{
		MaxRetries: 3, RetryBackoff: time.Hour, DeadLetterTopic: "dlq",
	}, newProducerWithWriter(dlqWriter, ProducerConfig{}, nil), nil)

	inFlight := make(chan struct{})
	require.NoError(t, c.Subscribe("requests", func(context.Context, *Message) error {
		close(inFlight)
		return stderrors.New("transient")
	}))

	startAndCancel(t, c, inFlight)

	assert.Empty(t, dlqWriter.written())
	assert.Zero(t, r.commitCount())
	assert.Zero(t, c.Metrics().DeadLettered)
}

//Personal.AI order the ending
