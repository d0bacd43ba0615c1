package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerHost      = "0.0.0.0"
	DefaultServerPort      = 8080
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultMaxBodySize     = 1 << 20

	DefaultRateLimitRPS   = 20.0
	DefaultRateLimitBurst = 40

	DefaultGRPCPort            = 9090
	DefaultGRPCMaxRecvMsgSize  = 4 << 20
	DefaultGRPCGracefulTimeout = 10 * time.Second

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisPoolSize  = 10
	DefaultRedisKeyPrefix = "sumformula:"
	DefaultRedisTTL       = 10 * time.Minute

	DefaultMetricsNamespace = "sumformula"
	DefaultMetricsPath      = "/metrics"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultGeneratorTolerance  = 0.05
	DefaultGeneratorMaxTol     = 1.0
	DefaultGeneratorMaxResults = 500

	DefaultRatioType   = "hydrogen_carbon"
	DefaultRatioRange  = "common"
	DefaultRDBEMin     = -0.5
	DefaultRDBEMax     = 30.0
	DefaultMMDatabase  = "wiley"
	DefaultMMRangeMass = 500
	DefaultAggregation = "mean"
	DefaultThreshold   = 1.0

	DefaultWorkerConcurrency = 4
	DefaultWorkerTimeout     = 30 * time.Second
	DefaultWorkerMaxBatch    = 100

	DefaultKafkaGroupID         = "sumformula-worker"
	DefaultKafkaRequestTopic    = "sumformula.predict.requests"
	DefaultKafkaResultTopic     = "sumformula.predict.results"
	DefaultKafkaDeadLetterTopic = "sumformula.predict.dlq"
	DefaultKafkaMaxRetries      = 3
	DefaultKafkaRetryBackoff    = time.Second
)

// DefaultKafkaBrokers is used when no broker list is configured.
var DefaultKafkaBrokers = []string{"localhost:9092"}

// DefaultEnabledRules is the rule set applied when none is configured.
var DefaultEnabledRules = []string{"element_ratio", "nitrogen", "rdbe", "mm_element", "tolerance_range"}

// DefaultGeneratorElements mirrors the generator's built-in element window.
func DefaultGeneratorElements() map[string]ElementRangeConfig {
	return map[string]ElementRangeConfig{
		"C": {Min: 0, Max: 50},
		"H": {Min: 0, Max: 100},
		"N": {Min: 0, Max: 20},
		"O": {Min: 0, Max: 20},
		"P": {Min: 0, Max: 5},
		"S": {Min: 0, Max: 5},
	}
}

// NewDefaultConfig returns a Config with every default applied.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every zero-value field in cfg with its default.
// Fields that have already been set are left unchanged so that explicit
// configuration always wins.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = DefaultMaxBodySize
	}
	if cfg.Server.RateLimit.RequestsPerSecond == 0 {
		cfg.Server.RateLimit.RequestsPerSecond = DefaultRateLimitRPS
	}
	if cfg.Server.RateLimit.Burst == 0 {
		cfg.Server.RateLimit.Burst = DefaultRateLimitBurst
	}

	// ── gRPC ──────────────────────────────────────────────────────────────────
	if cfg.GRPC.Host == "" {
		cfg.GRPC.Host = DefaultServerHost
	}
	if cfg.GRPC.Port == 0 {
		cfg.GRPC.Port = DefaultGRPCPort
	}
	if cfg.GRPC.MaxRecvMsgSize == 0 {
		cfg.GRPC.MaxRecvMsgSize = DefaultGRPCMaxRecvMsgSize
	}
	if cfg.GRPC.GracefulTimeout == 0 {
		cfg.GRPC.GracefulTimeout = DefaultGRPCGracefulTimeout
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = DefaultRedisPoolSize
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Redis.TTL == 0 {
		cfg.Redis.TTL = DefaultRedisTTL
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Generator ─────────────────────────────────────────────────────────────
	if cfg.Generator.Tolerance == 0 {
		cfg.Generator.Tolerance = DefaultGeneratorTolerance
	}
	if cfg.Generator.MaxTolerance == 0 {
		cfg.Generator.MaxTolerance = DefaultGeneratorMaxTol
	}
	if cfg.Generator.MaxResults == 0 {
		cfg.Generator.MaxResults = DefaultGeneratorMaxResults
	}
	if len(cfg.Generator.Elements) == 0 {
		cfg.Generator.Elements = DefaultGeneratorElements()
	}

	// ── Rules ─────────────────────────────────────────────────────────────────
	if len(cfg.Rules.Enabled) == 0 {
		cfg.Rules.Enabled = append([]string(nil), DefaultEnabledRules...)
	}
	if cfg.Rules.ElementRatio.Type == "" {
		cfg.Rules.ElementRatio.Type = DefaultRatioType
	}
	if cfg.Rules.ElementRatio.Range == "" {
		cfg.Rules.ElementRatio.Range = DefaultRatioRange
	}
	// Both zero means the window was never set; 0..0 is not a useful window.
	if cfg.Rules.RDBE.Min == 0 && cfg.Rules.RDBE.Max == 0 {
		cfg.Rules.RDBE.Min = DefaultRDBEMin
		cfg.Rules.RDBE.Max = DefaultRDBEMax
	}
	if cfg.Rules.MMElement.Database == "" {
		cfg.Rules.MMElement.Database = DefaultMMDatabase
	}
	if cfg.Rules.MMElement.RangeMass == 0 {
		cfg.Rules.MMElement.RangeMass = DefaultMMRangeMass
	}
	if cfg.Rules.Aggregation == "" {
		cfg.Rules.Aggregation = DefaultAggregation
	}
	if cfg.Rules.Threshold == 0 {
		cfg.Rules.Threshold = DefaultThreshold
	}

	// ── Worker ────────────────────────────────────────────────────────────────
	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = DefaultWorkerConcurrency
	}
	if cfg.Worker.Timeout == 0 {
		cfg.Worker.Timeout = DefaultWorkerTimeout
	}
	if cfg.Worker.MaxBatch == 0 {
		cfg.Worker.MaxBatch = DefaultWorkerMaxBatch
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = append([]string(nil), DefaultKafkaBrokers...)
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.RequestTopic == "" {
		cfg.Kafka.RequestTopic = DefaultKafkaRequestTopic
	}
	if cfg.Kafka.ResultTopic == "" {
		cfg.Kafka.ResultTopic = DefaultKafkaResultTopic
	}
	if cfg.Kafka.DeadLetterTopic == "" {
		cfg.Kafka.DeadLetterTopic = DefaultKafkaDeadLetterTopic
	}
	if cfg.Kafka.MaxRetries == 0 {
		cfg.Kafka.MaxRetries = DefaultKafkaMaxRetries
	}
	if cfg.Kafka.RetryBackoff == 0 {
		cfg.Kafka.RetryBackoff = DefaultKafkaRetryBackoff
	}
}

//Personal.AI order the ending
