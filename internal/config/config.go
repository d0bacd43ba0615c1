// Package config defines all configuration structures for the
// SumFormula-Intelligence service.  No I/O or parsing logic lives here, only
// plain data types and validation.
package config

import (
	"strings"
	"time"

	"github.com/turtacn/SumFormula-Intelligence/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Host            string          `mapstructure:"host" yaml:"host"`
	Port            int             `mapstructure:"port" yaml:"port"`
	ReadTimeout     time.Duration   `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration   `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration   `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxBodySize     int64           `mapstructure:"max_body_size" yaml:"max_body_size"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// RateLimitConfig throttles /api/v1 per client IP.
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled" yaml:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	Burst             int     `mapstructure:"burst" yaml:"burst"`
}

// GRPCConfig holds the optional gRPC listener.  Reflection is registered
// only when Debug is set.
type GRPCConfig struct {
	Enabled         bool          `mapstructure:"enabled" yaml:"enabled"`
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	Debug           bool          `mapstructure:"debug" yaml:"debug"`
	MaxRecvMsgSize  int           `mapstructure:"max_recv_msg_size" yaml:"max_recv_msg_size"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout" yaml:"graceful_timeout"`
}

// RedisConfig holds the prediction cache connection parameters.  The cache
// is optional; when Enabled is false predictions are always computed.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled" yaml:"enabled"`
	Addr         string        `mapstructure:"addr" yaml:"addr"`
	Password     string        `mapstructure:"password" yaml:"password"`
	DB           int           `mapstructure:"db" yaml:"db"`
	PoolSize     int           `mapstructure:"pool_size" yaml:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns" yaml:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix" yaml:"key_prefix"`
	TTL          time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// MetricsConfig controls the Prometheus collector.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Namespace string `mapstructure:"namespace" yaml:"namespace"`
	Subsystem string `mapstructure:"subsystem" yaml:"subsystem"`
	Path      string `mapstructure:"path" yaml:"path"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level       string   `mapstructure:"level" yaml:"level"`   // "debug" | "info" | "warn" | "error"
	Format      string   `mapstructure:"format" yaml:"format"` // "json" | "console"
	OutputPaths []string `mapstructure:"output_paths" yaml:"output_paths"`
}

// ElementRangeConfig is an inclusive atom-count window for one element.
type ElementRangeConfig struct {
	Min int `mapstructure:"min" yaml:"min"`
	Max int `mapstructure:"max" yaml:"max"`
}

// GeneratorConfig controls candidate enumeration.
type GeneratorConfig struct {
	Tolerance float64 `mapstructure:"tolerance" yaml:"tolerance"`
	// MaxTolerance is the largest tolerance a request may ask for.
	MaxTolerance float64                       `mapstructure:"max_tolerance" yaml:"max_tolerance"`
	MaxResults   int                           `mapstructure:"max_results" yaml:"max_results"`
	Elements     map[string]ElementRangeConfig `mapstructure:"elements" yaml:"elements"`
}

// ElementRatioConfig selects the ratio type and bound table.
type ElementRatioConfig struct {
	Type  string `mapstructure:"type" yaml:"type"`   // "hydrogen_carbon" | "heteratoms_carbon" | "all"
	Range string `mapstructure:"range" yaml:"range"` // "common" | "extended" | "extreme"
}

// ElementRuleConfig lists the element windows accepted by the element rule.
type ElementRuleConfig struct {
	Elements map[string]ElementRangeConfig `mapstructure:"elements" yaml:"elements"`
}

// RDBEConfig is the accepted ring/double-bond window.
type RDBEConfig struct {
	Min float64 `mapstructure:"min" yaml:"min"`
	Max float64 `mapstructure:"max" yaml:"max"`
}

// MMElementConfig selects the element maxima table.
type MMElementConfig struct {
	Database  string `mapstructure:"database" yaml:"database"` // "wiley" | "dnp"
	RangeMass int    `mapstructure:"range_mass" yaml:"range_mass"`
}

// RulesConfig describes the plausibility rule set applied to candidates.
type RulesConfig struct {
	Enabled      []string           `mapstructure:"enabled" yaml:"enabled"`
	ElementRatio ElementRatioConfig `mapstructure:"element_ratio" yaml:"element_ratio"`
	Element      ElementRuleConfig  `mapstructure:"element" yaml:"element"`
	RDBE         RDBEConfig         `mapstructure:"rdbe" yaml:"rdbe"`
	MMElement    MMElementConfig    `mapstructure:"mm_element" yaml:"mm_element"`
	Aggregation  string             `mapstructure:"aggregation" yaml:"aggregation"` // "mean" | "product"
	Threshold    float64            `mapstructure:"threshold" yaml:"threshold"`
}

// WorkerConfig holds batch-prediction execution parameters.
type WorkerConfig struct {
	Concurrency int           `mapstructure:"concurrency" yaml:"concurrency"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxBatch    int           `mapstructure:"max_batch" yaml:"max_batch"`
}

// KafkaConfig holds the asynchronous prediction job pipeline settings.
type KafkaConfig struct {
	Enabled         bool          `mapstructure:"enabled" yaml:"enabled"`
	Brokers         []string      `mapstructure:"brokers" yaml:"brokers"`
	GroupID         string        `mapstructure:"group_id" yaml:"group_id"`
	RequestTopic    string        `mapstructure:"request_topic" yaml:"request_topic"`
	ResultTopic     string        `mapstructure:"result_topic" yaml:"result_topic"`
	DeadLetterTopic string        `mapstructure:"dead_letter_topic" yaml:"dead_letter_topic"`
	MaxRetries      int           `mapstructure:"max_retries" yaml:"max_retries"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff" yaml:"retry_backoff"`
	Compression     string        `mapstructure:"compression" yaml:"compression"`       // "" | "gzip" | "snappy" | "lz4" | "zstd"
	SASLMechanism   string        `mapstructure:"sasl_mechanism" yaml:"sasl_mechanism"` // "" | "PLAIN" | "SCRAM-SHA-256" | "SCRAM-SHA-512"
	SASLUsername    string        `mapstructure:"sasl_username" yaml:"sasl_username"`
	SASLPassword    string        `mapstructure:"sasl_password" yaml:"sasl_password"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	GRPC      GRPCConfig      `mapstructure:"grpc" yaml:"grpc"`
	Redis     RedisConfig     `mapstructure:"redis" yaml:"redis"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Generator GeneratorConfig `mapstructure:"generator" yaml:"generator"`
	Rules     RulesConfig     `mapstructure:"rules" yaml:"rules"`
	Worker    WorkerConfig    `mapstructure:"worker" yaml:"worker"`
	Kafka     KafkaConfig     `mapstructure:"kafka" yaml:"kafka"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.
// Rule parameters are not checked here: an unusable rule falls back to its
// defaults when the rule set is assembled.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}

	if c.Server.RateLimit.Enabled {
		if c.Server.RateLimit.RequestsPerSecond <= 0 {
			return errors.Errorf("config: server.rate_limit.requests_per_second must be positive")
		}
		if c.Server.RateLimit.Burst < 1 {
			return errors.Errorf("config: server.rate_limit.burst must be at least 1")
		}
	}

	if c.GRPC.Enabled {
		if c.GRPC.Port < 1 || c.GRPC.Port > 65535 {
			return errors.Errorf("config: grpc.port %d is out of range [1, 65535]", c.GRPC.Port)
		}
		if c.GRPC.Port == c.Server.Port && c.GRPC.Host == c.Server.Host {
			return errors.Errorf("config: grpc.port %d collides with server.port", c.GRPC.Port)
		}
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			return errors.Errorf("config: redis.addr is required when redis is enabled")
		}
		if c.Redis.DB < 0 {
			return errors.Errorf("config: redis.db must be >= 0, got %d", c.Redis.DB)
		}
	}

	if c.Generator.Tolerance <= 0 {
		return errors.Errorf("config: generator.tolerance must be > 0, got %g", c.Generator.Tolerance)
	}
	if c.Generator.MaxTolerance < c.Generator.Tolerance {
		return errors.Errorf("config: generator.max_tolerance %g is below generator.tolerance %g",
			c.Generator.MaxTolerance, c.Generator.Tolerance)
	}
	if c.Generator.MaxResults < 0 {
		return errors.Errorf("config: generator.max_results must be >= 0, got %d", c.Generator.MaxResults)
	}
	for sym, er := range c.Generator.Elements {
		if er.Min < 0 || er.Max < er.Min {
			return errors.Errorf("config: generator.elements.%s must satisfy 0 <= min <= max", sym)
		}
	}

	if c.Rules.Threshold < 0 || c.Rules.Threshold > 1 {
		return errors.Errorf("config: rules.threshold must be within [0, 1], got %g", c.Rules.Threshold)
	}

	if c.Worker.Concurrency < 1 {
		return errors.Errorf("config: worker.concurrency must be >= 1, got %d", c.Worker.Concurrency)
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return errors.Errorf("config: kafka.brokers is required when kafka is enabled")
		}
		if c.Kafka.GroupID == "" || c.Kafka.RequestTopic == "" || c.Kafka.ResultTopic == "" {
			return errors.Errorf("config: kafka.group_id, kafka.request_topic and kafka.result_topic are required")
		}
		if c.Kafka.MaxRetries < 0 {
			return errors.Errorf("config: kafka.max_retries must be >= 0, got %d", c.Kafka.MaxRetries)
		}
		switch c.Kafka.SASLMechanism {
		case "", "PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512":
		default:
			return errors.Errorf("config: kafka.sasl_mechanism %q is not supported", c.Kafka.SASLMechanism)
		}
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return errors.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return errors.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}

//Personal.AI order the ending
