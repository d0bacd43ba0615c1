package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/SumFormula-Intelligence/internal/config"
	"github.com/turtacn/SumFormula-Intelligence/internal/testutil"
	"github.com/turtacn/SumFormula-Intelligence/pkg/errors"
)

func kafkaConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Kafka.Enabled = true
	cfg.Kafka.Brokers = []string{"127.0.0.1:1"}
	return cfg
}

func TestNewWorker_RequiresKafka(t *testing.T) {
	_, err := NewWorker(nil, nil)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))

	_, err = NewWorker(config.NewDefaultConfig(), nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidConfiguration))
}

func TestNewWorker_RejectsBadSASL(t *testing.T) {
	cfg := kafkaConfig()
	cfg.Kafka.SASLMechanism = "GSSAPI"
	_, err := NewWorker(cfg, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidConfiguration))
}

func TestWorker_RunStopsOnCancel(t *testing.T) {
	logger := testutil.NewMockLogger()
	w, err := NewWorker(kafkaConfig(), logger)
	require.NoError(t, err)
	require.NotNil(t, w.Service)
	assert.True(t, logger.HasMessage("info", "worker initialized"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, "") }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
	w.Close()
}

//Personal.AI order the ending
