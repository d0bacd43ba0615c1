package app

import (
	"context"
	"sync"

	"github.com/turtacn/SumFormula-Intelligence/internal/application/sumformula"
	"github.com/turtacn/SumFormula-Intelligence/internal/config"
	redisinfra "github.com/turtacn/SumFormula-Intelligence/internal/infrastructure/database/redis"
	"github.com/turtacn/SumFormula-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/SumFormula-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SumFormula-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/SumFormula-Intelligence/internal/interfaces/worker"
	"github.com/turtacn/SumFormula-Intelligence/pkg/errors"
)

// Worker consumes prediction jobs from Kafka and publishes their results.
type Worker struct {
	Config  *config.Config
	Logger  logging.Logger
	Service sumformula.Service

	consumer  *kafka.Consumer
	producer  *kafka.Producer
	redis     *redisinfra.Client
	closeOnce sync.Once
}

// NewWorker builds the job pipeline.  The kafka section must be enabled.
func NewWorker(cfg *config.Config, logger logging.Logger) (*Worker, error) {
	if cfg == nil {
		return nil, errors.InvalidParam("config is required")
	}
	if !cfg.Kafka.Enabled {
		return nil, errors.InvalidConfiguration("kafka is disabled")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	w := &Worker{Config: cfg, Logger: logger}
	kc := cfg.Kafka

	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:       kc.Brokers,
		Acks:          "all",
		MaxRetries:    kc.MaxRetries,
		Compression:   kc.Compression,
		SASLMechanism: kc.SASLMechanism,
		SASLUsername:  kc.SASLUsername,
		SASLPassword:  kc.SASLPassword,
	}, logger)
	if err != nil {
		return nil, err
	}
	w.producer = producer

	client, cache, err := newCache(cfg.Redis, cfg.Worker.Timeout, logger)
	if err != nil {
		w.Close()
		return nil, err
	}
	w.redis = client

	svc, err := sumformula.NewService(cfg, cache, prometheus.NewNoopFormulaMetrics(), logger)
	if err != nil {
		w.Close()
		return nil, err
	}
	w.Service = svc

	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:         kc.Brokers,
		GroupID:         kc.GroupID,
		Topics:          []string{kc.RequestTopic},
		MaxRetries:      kc.MaxRetries,
		RetryBackoff:    kc.RetryBackoff,
		DeadLetterTopic: kc.DeadLetterTopic,
		SASLMechanism:   kc.SASLMechanism,
		SASLUsername:    kc.SASLUsername,
		SASLPassword:    kc.SASLPassword,
	}, producer, logger)
	if err != nil {
		w.Close()
		return nil, err
	}
	w.consumer = consumer

	handler := worker.NewPredictionHandler(svc, producer, kc.ResultTopic, logger)
	if err := consumer.Subscribe(kc.RequestTopic, handler.Handle); err != nil {
		w.Close()
		return nil, err
	}

	logger.Info("worker initialized",
		logging.String("requests", kc.RequestTopic),
		logging.String("results", kc.ResultTopic),
		logging.Bool("cache", cfg.Redis.Enabled))
	return w, nil
}

// Run consumes until ctx is cancelled, then closes the pipeline.  Rule
// changes in configPath are applied live, as for the server.
func (w *Worker) Run(ctx context.Context, configPath string) error {
	if configPath != "" {
		config.Watch(configPath, func(cfg *config.Config) {
			w.Service.Reload(cfg.Rules)
		}, func(err error) {
			w.Logger.Warn("config reload rejected", logging.Err(err))
		})
	}
	err := w.consumer.Start(ctx)
	w.Close()
	return err
}

// Close stops the consumer before the producer so in-flight results are
// flushed.  It is safe to call more than once.
func (w *Worker) Close() {
	w.closeOnce.Do(func() {
		if w.consumer != nil {
			if err := w.consumer.Close(); err != nil {
				w.Logger.Warn("kafka consumer close failed", logging.Err(err))
			}
		}
		if w.producer != nil {
			if err := w.producer.Close(); err != nil {
				w.Logger.Warn("kafka producer close failed", logging.Err(err))
			}
		}
		if w.redis != nil {
			if err := w.redis.Close(); err != nil {
				w.Logger.Warn("redis close failed", logging.Err(err))
			}
		}
		_ = w.Logger.Sync()
	})
}

//Personal.AI order the ending
