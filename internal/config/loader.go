package config

import (
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/turtacn/SumFormula-Intelligence/pkg/errors"
)

// envPrefix is the environment variable prefix used by all settings.
const envPrefix = "SUMFORMULA"

// newViper builds a pre-configured Viper instance: YAML file type,
// SUMFORMULA_ env prefix, automatic env binding, and a key replacer that maps
// "." → "_" so that "redis.addr" resolves to SUMFORMULA_REDIS_ADDR.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	registerKeys(v)
	return v
}

// registerKeys makes every scalar key known to viper.  AutomaticEnv only
// consults the environment for keys viper has already seen, so without this
// an env-only deployment would unmarshal nothing.
func registerKeys(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.idle_timeout", d.Server.IdleTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.max_body_size", d.Server.MaxBodySize)
	v.SetDefault("server.rate_limit.enabled", d.Server.RateLimit.Enabled)
	v.SetDefault("server.rate_limit.requests_per_second", d.Server.RateLimit.RequestsPerSecond)
	v.SetDefault("server.rate_limit.burst", d.Server.RateLimit.Burst)

	v.SetDefault("grpc.enabled", d.GRPC.Enabled)
	v.SetDefault("grpc.host", d.GRPC.Host)
	v.SetDefault("grpc.port", d.GRPC.Port)
	v.SetDefault("grpc.debug", d.GRPC.Debug)
	v.SetDefault("grpc.max_recv_msg_size", d.GRPC.MaxRecvMsgSize)
	v.SetDefault("grpc.graceful_timeout", d.GRPC.GracefulTimeout)

	v.SetDefault("redis.enabled", d.Redis.Enabled)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.pool_size", d.Redis.PoolSize)
	v.SetDefault("redis.key_prefix", d.Redis.KeyPrefix)
	v.SetDefault("redis.ttl", d.Redis.TTL)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.namespace", d.Metrics.Namespace)
	v.SetDefault("metrics.path", d.Metrics.Path)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("generator.tolerance", d.Generator.Tolerance)
	v.SetDefault("generator.max_tolerance", d.Generator.MaxTolerance)
	v.SetDefault("generator.max_results", d.Generator.MaxResults)

	v.SetDefault("rules.enabled", d.Rules.Enabled)
	v.SetDefault("rules.element_ratio.type", d.Rules.ElementRatio.Type)
	v.SetDefault("rules.element_ratio.range", d.Rules.ElementRatio.Range)
	v.SetDefault("rules.rdbe.min", d.Rules.RDBE.Min)
	v.SetDefault("rules.rdbe.max", d.Rules.RDBE.Max)
	v.SetDefault("rules.mm_element.database", d.Rules.MMElement.Database)
	v.SetDefault("rules.mm_element.range_mass", d.Rules.MMElement.RangeMass)
	v.SetDefault("rules.aggregation", d.Rules.Aggregation)
	v.SetDefault("rules.threshold", d.Rules.Threshold)

	v.SetDefault("worker.concurrency", d.Worker.Concurrency)
	v.SetDefault("worker.timeout", d.Worker.Timeout)
	v.SetDefault("worker.max_batch", d.Worker.MaxBatch)

	v.SetDefault("kafka.enabled", d.Kafka.Enabled)
	v.SetDefault("kafka.brokers", d.Kafka.Brokers)
	v.SetDefault("kafka.group_id", d.Kafka.GroupID)
	v.SetDefault("kafka.request_topic", d.Kafka.RequestTopic)
	v.SetDefault("kafka.result_topic", d.Kafka.ResultTopic)
	v.SetDefault("kafka.dead_letter_topic", d.Kafka.DeadLetterTopic)
	v.SetDefault("kafka.max_retries", d.Kafka.MaxRetries)
	v.SetDefault("kafka.retry_backoff", d.Kafka.RetryBackoff)
	v.SetDefault("kafka.compression", d.Kafka.Compression)
	v.SetDefault("kafka.sasl_mechanism", d.Kafka.SASLMechanism)
	v.SetDefault("kafka.sasl_username", d.Kafka.SASLUsername)
	v.SetDefault("kafka.sasl_password", d.Kafka.SASLPassword)
}

// Load reads the YAML file at configPath, merges any SUMFORMULA_* environment
// overrides, applies defaults for unset fields, and validates the result.
// An empty path is equivalent to LoadFromEnv.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return LoadFromEnv()
	}
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "config: failed to read config file").
			WithDetail(configPath)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from SUMFORMULA_* environment
// variables.
//
//	SUMFORMULA_<SECTION>_<FIELD>   e.g.  SUMFORMULA_REDIS_ADDR
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "config: failed to unmarshal configuration")
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Watch re-reads configPath whenever it changes on disk and passes the newly
// validated Config to onChange.  Invalid revisions are reported to onError
// (when non-nil) and otherwise ignored.  An unreadable configPath is reported
// the same way and nothing is watched.  Watch does not block.
func Watch(configPath string, onChange func(*Config), onError func(error)) {
	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		if onError != nil {
			onError(errors.Wrap(err, errors.ErrCodeValidation, "config: failed to read config file").
				WithDetail(configPath))
		}
		return
	}

	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}

// MustLoad is Load that panics on error.  Intended for main().
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic("config: MustLoad failed: " + err.Error())
	}
	return cfg
}

//Personal.AI order the ending
